package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/shaiso/Cadence/internal/actions"
	"github.com/shaiso/Cadence/internal/domain"
)

// instantRegistry возвращает реестр, где все узлы исполняются мгновенно
// и переходят по handle из config["handle"] (по умолчанию source).
func instantRegistry() *actions.Registry {
	r := actions.NewEmptyRegistry()
	exec := actions.ExecutorFunc(func(_ context.Context, node *domain.Node, _ *actions.ExecContext) (*actions.Result, error) {
		handle := domain.DefaultHandle
		if h, ok := node.Config["handle"].(string); ok {
			handle = h
		}
		return &actions.Result{NextHandle: handle}, nil
	})
	r.SetDefault(exec)
	return r
}

func linearDefinition() *domain.WorkflowDefinition {
	return &domain.WorkflowDefinition{
		Nodes: []domain.Node{
			{ID: "n1", Kind: domain.KindStart},
			{ID: "n2", Kind: domain.KindSendConnection},
			{ID: "n3", Kind: domain.KindSendMessage},
		},
		Edges: []domain.Edge{
			{ID: "e1", Source: "n1", Target: "n2"},
			{ID: "e2", Source: "n2", Target: "n3"},
		},
	}
}

func TestTraverseLinear(t *testing.T) {
	tr := NewTraverser(instantRegistry(), nil)

	res, err := tr.Traverse(context.Background(), linearDefinition(), map[string]any{"firstName": "Ivan"})
	if err != nil {
		t.Fatalf("Traverse: %v", err)
	}
	if res.Status != domain.LeadStatusCompleted {
		t.Fatalf("status = %s, want %s", res.Status, domain.LeadStatusCompleted)
	}
	if len(res.Records) != 3 {
		t.Fatalf("records = %d, want 3", len(res.Records))
	}

	wantOrder := []string{"n1", "n2", "n3"}
	for i, rec := range res.Records {
		if rec.NodeID != wantOrder[i] {
			t.Errorf("record[%d].NodeID = %s, want %s", i, rec.NodeID, wantOrder[i])
		}
		if rec.Status != domain.ExecutionStatusCompleted {
			t.Errorf("record[%d].Status = %s, want %s", i, rec.Status, domain.ExecutionStatusCompleted)
		}
	}
}

func TestTraverseBranchByHandle(t *testing.T) {
	def := &domain.WorkflowDefinition{
		Nodes: []domain.Node{
			{ID: "start", Kind: domain.KindStart},
			{ID: "cond", Kind: domain.KindIfConnection},
			{ID: "yes-node", Kind: domain.KindSendMessage},
			{ID: "no-node", Kind: domain.KindSendConnection},
		},
		Edges: []domain.Edge{
			{ID: "e1", Source: "start", Target: "cond"},
			{ID: "e2", Source: "cond", Target: "yes-node", SourceHandle: "yes"},
			{ID: "e3", Source: "cond", Target: "no-node", SourceHandle: "no"},
		},
	}

	tr := NewTraverser(actions.NewRegistry(), nil)
	res, err := tr.Traverse(context.Background(), def, map[string]any{"connected": true})
	if err != nil {
		t.Fatalf("Traverse: %v", err)
	}
	if res.Status != domain.LeadStatusCompleted {
		t.Fatalf("status = %s, want %s", res.Status, domain.LeadStatusCompleted)
	}

	last := res.Records[len(res.Records)-1]
	if last.NodeID != "yes-node" {
		t.Fatalf("last node = %s, want yes-node", last.NodeID)
	}
	for _, rec := range res.Records {
		if rec.NodeID == "no-node" {
			t.Fatal("no-node executed on yes branch")
		}
	}
}

// Отсутствие ребра под возвращённый handle завершает обход completed:
// условный узел без ветки — нормальный конец пути, не ошибка.
func TestTraverseNoMatchingEdgeCompletes(t *testing.T) {
	def := &domain.WorkflowDefinition{
		Nodes: []domain.Node{
			{ID: "start", Kind: domain.KindStart},
			{ID: "cond", Kind: domain.KindIfConnection},
			{ID: "unreached", Kind: domain.KindSendMessage},
		},
		Edges: []domain.Edge{
			{ID: "e1", Source: "start", Target: "cond"},
			{ID: "e2", Source: "cond", Target: "unreached", SourceHandle: "yes"},
		},
	}

	tr := NewTraverser(actions.NewRegistry(), nil)
	// connected отсутствует в snapshot — условие уйдёт в ветку no,
	// для которой ребра нет.
	res, err := tr.Traverse(context.Background(), def, map[string]any{})
	if err != nil {
		t.Fatalf("Traverse: %v", err)
	}
	if res.Status != domain.LeadStatusCompleted {
		t.Fatalf("status = %s, want %s", res.Status, domain.LeadStatusCompleted)
	}
	if len(res.Records) != 2 {
		t.Fatalf("records = %d, want 2", len(res.Records))
	}
}

func TestTraverseExecutorFailureStopsTraversal(t *testing.T) {
	r := actions.NewEmptyRegistry()
	r.SetDefault(actions.ExecutorFunc(func(_ context.Context, _ *domain.Node, _ *actions.ExecContext) (*actions.Result, error) {
		return &actions.Result{NextHandle: domain.DefaultHandle}, nil
	}))
	r.Register(domain.KindSendConnection, actions.ExecutorFunc(func(_ context.Context, _ *domain.Node, _ *actions.ExecContext) (*actions.Result, error) {
		return nil, errors.New("rate limit exceeded")
	}))

	tr := NewTraverser(r, nil)
	res, err := tr.Traverse(context.Background(), linearDefinition(), map[string]any{})
	if err != nil {
		t.Fatalf("Traverse: executor failure must not be an engine error, got %v", err)
	}
	if res.Status != domain.LeadStatusFailed {
		t.Fatalf("status = %s, want %s", res.Status, domain.LeadStatusFailed)
	}
	// n1 completed, n2 failed, n3 не исполнялся.
	if len(res.Records) != 2 {
		t.Fatalf("records = %d, want 2", len(res.Records))
	}
	last := res.Records[1]
	if last.NodeID != "n2" || last.Status != domain.ExecutionStatusFailed {
		t.Fatalf("record[1] = {%s %s}, want {n2 failed}", last.NodeID, last.Status)
	}
	if last.Error != "rate limit exceeded" {
		t.Fatalf("record[1].Error = %q", last.Error)
	}
}

func TestTraverseCycleDetected(t *testing.T) {
	def := &domain.WorkflowDefinition{
		Nodes: []domain.Node{
			{ID: "a", Kind: domain.KindStart},
			{ID: "b", Kind: domain.KindViewProfile},
		},
		Edges: []domain.Edge{
			{ID: "e1", Source: "a", Target: "b"},
			{ID: "e2", Source: "b", Target: "a"},
		},
	}

	tr := NewTraverser(instantRegistry(), nil)
	res, err := tr.Traverse(context.Background(), def, map[string]any{})
	if !errors.Is(err, ErrCycleDetected) {
		t.Fatalf("err = %v, want ErrCycleDetected", err)
	}
	if res == nil || res.Status != domain.LeadStatusFailed {
		t.Fatalf("partial result missing or not failed: %+v", res)
	}
}

func TestTraverseNoStartNode(t *testing.T) {
	def := &domain.WorkflowDefinition{
		Nodes: []domain.Node{{ID: "n1", Kind: domain.KindSendMessage}},
	}
	tr := NewTraverser(instantRegistry(), nil)
	if _, err := tr.Traverse(context.Background(), def, nil); !errors.Is(err, ErrNoStartNode) {
		t.Fatalf("err = %v, want ErrNoStartNode", err)
	}
}

// Результаты условного узла видны последующим через state.Meta.
func TestTraverseMetaAccumulates(t *testing.T) {
	var seenMeta map[string]any
	r := actions.NewEmptyRegistry()
	r.Register(domain.KindStart, actions.ExecutorFunc(func(_ context.Context, _ *domain.Node, _ *actions.ExecContext) (*actions.Result, error) {
		return &actions.Result{NextHandle: domain.DefaultHandle, Meta: map[string]any{"startedBy": "test"}}, nil
	}))
	r.SetDefault(actions.ExecutorFunc(func(_ context.Context, _ *domain.Node, ec *actions.ExecContext) (*actions.Result, error) {
		seenMeta = ec.State().Meta
		return &actions.Result{}, nil
	}))

	def := &domain.WorkflowDefinition{
		Nodes: []domain.Node{
			{ID: "n1", Kind: domain.KindStart},
			{ID: "n2", Kind: domain.KindFollow},
		},
		Edges: []domain.Edge{{ID: "e1", Source: "n1", Target: "n2"}},
	}

	if _, err := NewTraverser(r, nil).Traverse(context.Background(), def, nil); err != nil {
		t.Fatalf("Traverse: %v", err)
	}
	if seenMeta["startedBy"] != "test" {
		t.Fatalf("meta not propagated: %v", seenMeta)
	}
}
