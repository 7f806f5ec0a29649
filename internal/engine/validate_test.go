package engine

import (
	"errors"
	"testing"

	"github.com/shaiso/Cadence/internal/domain"
)

func TestValidateDefinition(t *testing.T) {
	tests := []struct {
		name    string
		def     *domain.WorkflowDefinition
		wantErr error
	}{
		{
			name:    "empty nodes",
			def:     &domain.WorkflowDefinition{},
			wantErr: ErrEmptyNodes,
		},
		{
			name: "valid linear",
			def: &domain.WorkflowDefinition{
				Nodes: []domain.Node{
					{ID: "a", Kind: domain.KindStart},
					{ID: "b", Kind: domain.KindSendMessage},
				},
				Edges: []domain.Edge{{ID: "e1", Source: "a", Target: "b"}},
			},
			wantErr: nil,
		},
		{
			name: "no start node",
			def: &domain.WorkflowDefinition{
				Nodes: []domain.Node{{ID: "a", Kind: domain.KindSendMessage}},
			},
			wantErr: ErrNoStartNode,
		},
		{
			name: "multiple start nodes",
			def: &domain.WorkflowDefinition{
				Nodes: []domain.Node{
					{ID: "a", Kind: domain.KindStart},
					{ID: "b", Kind: domain.KindStart},
				},
			},
			wantErr: ErrMultipleStartNodes,
		},
		{
			name: "empty node ID",
			def: &domain.WorkflowDefinition{
				Nodes: []domain.Node{{ID: "", Kind: domain.KindStart}},
			},
			wantErr: ErrEmptyNodeID,
		},
		{
			name: "duplicate node ID",
			def: &domain.WorkflowDefinition{
				Nodes: []domain.Node{
					{ID: "a", Kind: domain.KindStart},
					{ID: "a", Kind: domain.KindFollow},
				},
			},
			wantErr: ErrDuplicateNodeID,
		},
		{
			name: "dangling edge source",
			def: &domain.WorkflowDefinition{
				Nodes: []domain.Node{{ID: "a", Kind: domain.KindStart}},
				Edges: []domain.Edge{{ID: "e1", Source: "ghost", Target: "a"}},
			},
			wantErr: ErrDanglingEdge,
		},
		{
			name: "dangling edge target",
			def: &domain.WorkflowDefinition{
				Nodes: []domain.Node{{ID: "a", Kind: domain.KindStart}},
				Edges: []domain.Edge{{ID: "e1", Source: "a", Target: "ghost"}},
			},
			wantErr: ErrDanglingEdge,
		},
		{
			name: "duplicate edge ID",
			def: &domain.WorkflowDefinition{
				Nodes: []domain.Node{
					{ID: "a", Kind: domain.KindStart},
					{ID: "b", Kind: domain.KindFollow},
				},
				Edges: []domain.Edge{
					{ID: "e1", Source: "a", Target: "b"},
					{ID: "e1", Source: "b", Target: "a", SourceHandle: "yes"},
				},
			},
			wantErr: ErrDuplicateEdgeID,
		},
		{
			name: "duplicate handle on same source",
			def: &domain.WorkflowDefinition{
				Nodes: []domain.Node{
					{ID: "a", Kind: domain.KindStart},
					{ID: "b", Kind: domain.KindFollow},
					{ID: "c", Kind: domain.KindLikePost},
				},
				Edges: []domain.Edge{
					{ID: "e1", Source: "a", Target: "b"},
					{ID: "e2", Source: "a", Target: "c"},
				},
			},
			wantErr: ErrDuplicateHandle,
		},
		{
			name: "same handle on different sources is fine",
			def: &domain.WorkflowDefinition{
				Nodes: []domain.Node{
					{ID: "a", Kind: domain.KindStart},
					{ID: "b", Kind: domain.KindFollow},
					{ID: "c", Kind: domain.KindLikePost},
				},
				Edges: []domain.Edge{
					{ID: "e1", Source: "a", Target: "b"},
					{ID: "e2", Source: "b", Target: "c"},
				},
			},
			wantErr: nil,
		},
		{
			name: "explicit handle equals default handle collides",
			def: &domain.WorkflowDefinition{
				Nodes: []domain.Node{
					{ID: "a", Kind: domain.KindStart},
					{ID: "b", Kind: domain.KindFollow},
					{ID: "c", Kind: domain.KindLikePost},
				},
				Edges: []domain.Edge{
					{ID: "e1", Source: "a", Target: "b"},
					{ID: "e2", Source: "a", Target: "c", SourceHandle: domain.DefaultHandle},
				},
			},
			wantErr: ErrDuplicateHandle,
		},
		{
			name: "unknown node kind is allowed",
			def: &domain.WorkflowDefinition{
				Nodes: []domain.Node{
					{ID: "a", Kind: domain.KindStart},
					{ID: "b", Kind: domain.ActionKind("custom-action")},
				},
				Edges: []domain.Edge{{ID: "e1", Source: "a", Target: "b"}},
			},
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDefinition(tt.def)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("ValidateDefinition: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("err is not *ValidationError: %T", err)
			}
		})
	}
}
