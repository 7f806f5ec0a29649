package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/Cadence/internal/actions"
	"github.com/shaiso/Cadence/internal/domain"
)

// NodeRecord — результат исполнения одного узла в рамках traversal.
// Записывается в node_executions после завершения обхода.
type NodeRecord struct {
	NodeID     string
	Kind       domain.ActionKind
	Status     domain.ExecutionStatus
	Input      map[string]any
	Output     map[string]any
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// TraversalResult — итог обхода графа для одного lead.
type TraversalResult struct {
	// Status — итоговый статус lead: completed или failed.
	Status domain.LeadStatus

	// Records — записи исполнения узлов в порядке обхода.
	// Заполняются и при частичном обходе (падение executor, цикл).
	Records []NodeRecord
}

// Traverser обходит workflow definition для одного lead.
//
// Обход последовательный и handle-driven: executor текущего узла
// возвращает handle, по которому выбирается исходящее ребро. Узел
// без подходящего ребра завершает обход со статусом completed.
// Падение executor завершает обход со статусом failed — узлы после
// точки падения не исполняются.
type Traverser struct {
	registry *actions.Registry
	logger   *slog.Logger
}

// NewTraverser создаёт Traverser. Если registry == nil, используется
// реестр по умолчанию со всеми известными executors.
func NewTraverser(registry *actions.Registry, logger *slog.Logger) *Traverser {
	if registry == nil {
		registry = actions.NewRegistry()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Traverser{registry: registry, logger: logger}
}

// Traverse выполняет полный обход definition для одного lead.
//
// snapshot — слепок полей lead на момент старта run; он кладётся в
// state.Lead и не изменяется executors (они пишут только в state.Meta).
//
// Ошибка возвращается только для структурных проблем обхода: цикл или
// ребро в несуществующий узел. Падение executor ошибкой НЕ является —
// оно отражается в Status и в записи узла, решение о retry принимает
// вызывающий по error strategy кампании.
func (t *Traverser) Traverse(ctx context.Context, def *domain.WorkflowDefinition, snapshot map[string]any) (*TraversalResult, error) {
	start, ok := def.StartNode()
	if !ok {
		return nil, fmt.Errorf("traverse: %w", ErrNoStartNode)
	}

	state := actions.State{Lead: snapshot, Meta: map[string]any{}}
	result := &TraversalResult{Status: domain.LeadStatusCompleted}
	visited := make(map[string]struct{}, len(def.Nodes))

	current := start
	for current != nil {
		if _, seen := visited[current.ID]; seen {
			result.Status = domain.LeadStatusFailed
			result.Records = append(result.Records, NodeRecord{
				NodeID:     current.ID,
				Kind:       current.Kind,
				Status:     domain.ExecutionStatusFailed,
				Input:      stateInput(state),
				Error:      fmt.Sprintf("node %q visited twice", current.ID),
				StartedAt:  time.Now().UTC(),
				FinishedAt: time.Now().UTC(),
			})
			return result, fmt.Errorf("traverse node %s: %w", current.ID, ErrCycleDetected)
		}
		visited[current.ID] = struct{}{}

		rec := NodeRecord{
			NodeID:    current.ID,
			Kind:      current.Kind,
			Input:     stateInput(state),
			StartedAt: time.Now().UTC(),
		}

		ec := actions.NewExecContext(state)
		executor := t.registry.Get(current.Kind)
		res, err := executor.Execute(ctx, current, ec)
		rec.FinishedAt = time.Now().UTC()

		if err != nil {
			rec.Status = domain.ExecutionStatusFailed
			rec.Error = err.Error()
			rec.Output = map[string]any{"logs": ec.Logs()}
			result.Records = append(result.Records, rec)
			result.Status = domain.LeadStatusFailed
			t.logger.Warn("node execution failed",
				slog.String("node_id", current.ID),
				slog.String("node_kind", string(current.Kind)),
				slog.String("error", err.Error()))
			return result, nil
		}

		for k, v := range res.Meta {
			state.Meta[k] = v
		}

		rec.Status = domain.ExecutionStatusCompleted
		rec.Output = map[string]any{
			"nextHandle": res.NextHandle,
			"meta":       res.Meta,
			"logs":       ec.Logs(),
		}
		result.Records = append(result.Records, rec)

		t.logger.Debug("node executed",
			slog.String("node_id", current.ID),
			slog.String("node_kind", string(current.Kind)),
			slog.String("next_handle", res.NextHandle))

		edges := def.OutgoingEdges(current.ID, res.NextHandle)
		if len(edges) == 0 {
			break
		}
		next, ok := def.NodeByID(edges[0].Target)
		if !ok {
			result.Status = domain.LeadStatusFailed
			return result, fmt.Errorf("traverse edge %s: target %q: %w", edges[0].ID, edges[0].Target, ErrUnknownNode)
		}
		current = next
	}

	return result, nil
}

// stateInput снимает копию state для записи в Input узла.
func stateInput(s actions.State) map[string]any {
	c := s.Clone()
	return map[string]any{"lead": c.Lead, "meta": c.Meta}
}
