package engine

import (
	"fmt"

	"github.com/shaiso/Cadence/internal/domain"
)

// ValidateDefinition проверяет структурную корректность workflow definition.
// Вызывается при сохранении новой версии: некорректная структура не должна
// попасть в хранилище и сорвать запуск.
//
// Проверки:
//   - хотя бы один узел;
//   - ровно один узел типа start;
//   - ID узлов непустые и уникальные;
//   - ID рёбер уникальные;
//   - рёбра ссылаются только на существующие узлы;
//   - не более одного ребра на пару (source, handle).
//
// Неизвестные типы узлов не считаются ошибкой: для них предусмотрен
// default executor.
func ValidateDefinition(def *domain.WorkflowDefinition) error {
	if len(def.Nodes) == 0 {
		return NewValidationError("", "nodes", "workflow has no nodes", ErrEmptyNodes)
	}

	nodeIDs := make(map[string]struct{}, len(def.Nodes))
	startCount := 0
	for _, n := range def.Nodes {
		if n.ID == "" {
			return NewValidationError("", "id", "node has empty ID", ErrEmptyNodeID)
		}
		if _, ok := nodeIDs[n.ID]; ok {
			return NewValidationError(n.ID, "id",
				fmt.Sprintf("duplicate node ID %q", n.ID), ErrDuplicateNodeID)
		}
		nodeIDs[n.ID] = struct{}{}
		if n.Kind == domain.KindStart {
			startCount++
		}
	}

	if startCount == 0 {
		return NewValidationError("", "nodes", "workflow has no start node", ErrNoStartNode)
	}
	if startCount > 1 {
		return NewValidationError("", "nodes",
			fmt.Sprintf("workflow has %d start nodes, expected 1", startCount), ErrMultipleStartNodes)
	}

	edgeIDs := make(map[string]struct{}, len(def.Edges))
	handles := make(map[string]string, len(def.Edges)) // (source, handle) -> edge ID
	for _, e := range def.Edges {
		if _, ok := edgeIDs[e.ID]; ok && e.ID != "" {
			return NewValidationError(e.ID, "id",
				fmt.Sprintf("duplicate edge ID %q", e.ID), ErrDuplicateEdgeID)
		}
		edgeIDs[e.ID] = struct{}{}

		if _, ok := nodeIDs[e.Source]; !ok {
			return NewValidationError(e.ID, "source",
				fmt.Sprintf("edge %q references unknown source node %q", e.ID, e.Source), ErrDanglingEdge)
		}
		if _, ok := nodeIDs[e.Target]; !ok {
			return NewValidationError(e.ID, "target",
				fmt.Sprintf("edge %q references unknown target node %q", e.ID, e.Target), ErrDanglingEdge)
		}

		key := e.Source + "\x00" + e.Handle()
		if prev, ok := handles[key]; ok {
			return NewValidationError(e.ID, "sourceHandle",
				fmt.Sprintf("edges %q and %q share source %q and handle %q", prev, e.ID, e.Source, e.Handle()),
				ErrDuplicateHandle)
		}
		handles[key] = e.ID
	}

	return nil
}
