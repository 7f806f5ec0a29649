package domain

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// DefaultHandle — имя выхода узла по умолчанию.
// Узел с единственным наследником помечает своё ребро этим handle.
const DefaultHandle = "source"

// ActionKind — закрытое множество типов действий узлов.
//
// Диспетчеризация по ActionKind идёт через actions.Registry;
// неизвестный тип получает default executor и не ломает traversal.
type ActionKind string

const (
	KindStart          ActionKind = "start"
	KindSendConnection ActionKind = "send-connection"
	KindSendMessage    ActionKind = "send-message"
	KindInMail         ActionKind = "inmail"
	KindViewProfile    ActionKind = "view-profile"
	KindFollow         ActionKind = "follow"
	KindLikePost       ActionKind = "like-post"
	KindIfConnection   ActionKind = "if-connection"
	KindIfOpenProfile  ActionKind = "if-open-profile"
)

// KnownKinds — все известные типы действий.
var KnownKinds = []ActionKind{
	KindStart,
	KindSendConnection,
	KindSendMessage,
	KindInMail,
	KindViewProfile,
	KindFollow,
	KindLikePost,
	KindIfConnection,
	KindIfOpenProfile,
}

// IsKnown возвращает true, если тип входит в закрытое множество.
func (k ActionKind) IsKnown() bool {
	for _, known := range KnownKinds {
		if k == known {
			return true
		}
	}
	return false
}

// Node — узел workflow definition.
type Node struct {
	// ID — идентификатор узла, уникальный в пределах definition.
	ID string `json:"id"`

	// Kind — тип действия.
	Kind ActionKind `json:"type"`

	// Config — конфигурация действия (шаблон сообщения и т.п.).
	Config map[string]any `json:"config,omitempty"`
}

// Edge — направленное ребро между узлами.
type Edge struct {
	// ID — идентификатор ребра, уникальный в пределах definition.
	ID string `json:"id"`

	// Source — ID исходного узла.
	Source string `json:"source"`

	// Target — ID целевого узла.
	Target string `json:"target"`

	// SourceHandle — именованный выход source-узла ("yes"/"no"/"source").
	// Пустое значение эквивалентно DefaultHandle.
	SourceHandle string `json:"sourceHandle,omitempty"`
}

// Handle возвращает имя выхода с учётом default.
func (e *Edge) Handle() string {
	if e.SourceHandle == "" {
		return DefaultHandle
	}
	return e.SourceHandle
}

// WorkflowDefinition — неизменяемый версионированный snapshot графа
// действий кампании.
//
// Definition никогда не мутируется: при изменении workflow вставляется
// новая версия, а предыдущая активная деактивируется. В любой момент
// у кампании не более одной активной definition.
type WorkflowDefinition struct {
	// ID — уникальный идентификатор definition.
	ID uuid.UUID `json:"id"`

	// CampaignID — кампания-владелец.
	CampaignID uuid.UUID `json:"campaign_id"`

	// Version — номер версии (с 1, монотонно растёт).
	Version int `json:"version"`

	// Nodes — узлы графа. Ровно один узел имеет Kind == KindStart.
	Nodes []Node `json:"nodes"`

	// Edges — рёбра графа.
	Edges []Edge `json:"edges"`

	// IsActive — является ли версия активной.
	IsActive bool `json:"is_active"`

	// CreatedAt — время создания версии.
	CreatedAt time.Time `json:"created_at"`
}

// StartNode возвращает стартовый узел definition.
func (d *WorkflowDefinition) StartNode() (*Node, bool) {
	for i := range d.Nodes {
		if d.Nodes[i].Kind == KindStart {
			return &d.Nodes[i], true
		}
	}
	return nil, false
}

// NodeByID возвращает узел по ID.
func (d *WorkflowDefinition) NodeByID(id string) (*Node, bool) {
	for i := range d.Nodes {
		if d.Nodes[i].ID == id {
			return &d.Nodes[i], true
		}
	}
	return nil, false
}

// OutgoingEdges возвращает рёбра из узла source с указанным handle,
// отсортированные по ID ребра. Сортировка фиксирует детерминированный
// выбор, если definition сохранена до появления валидации дубликатов.
func (d *WorkflowDefinition) OutgoingEdges(source, handle string) []Edge {
	var edges []Edge
	for _, e := range d.Edges {
		if e.Source == source && e.Handle() == handle {
			edges = append(edges, e)
		}
	}
	sort.Slice(edges, func(i, j int) bool { return edges[i].ID < edges[j].ID })
	return edges
}
