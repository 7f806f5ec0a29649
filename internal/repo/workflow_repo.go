package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Cadence/internal/domain"
)

// WorkflowRepo — репозиторий версионированных workflow definitions.
type WorkflowRepo struct {
	pool *pgxpool.Pool
}

// NewWorkflowRepo создаёт новый WorkflowRepo.
func NewWorkflowRepo(pool *pgxpool.Pool) *WorkflowRepo {
	return &WorkflowRepo{pool: pool}
}

// SaveNewVersion вставляет новую активную версию definition кампании.
//
// В одной транзакции: предыдущая активная версия деактивируется, номер
// версии берётся как max+1. Уникальный частичный индекс на
// (campaign_id) WHERE is_active страхует от гонки двух сохранений.
func (r *WorkflowRepo) SaveNewVersion(ctx context.Context, def *domain.WorkflowDefinition) error {
	nodesJSON, err := json.Marshal(def.Nodes)
	if err != nil {
		return fmt.Errorf("marshal nodes: %w", err)
	}
	edgesJSON, err := json.Marshal(def.Edges)
	if err != nil {
		return fmt.Errorf("marshal edges: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		UPDATE workflow_definitions
		SET is_active = false
		WHERE campaign_id = $1 AND is_active
	`, def.CampaignID)
	if err != nil {
		return fmt.Errorf("deactivate previous version: %w", err)
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO workflow_definitions (id, campaign_id, version, nodes, edges, is_active, created_at)
		VALUES ($1, $2,
		        (SELECT coalesce(max(version), 0) + 1 FROM workflow_definitions WHERE campaign_id = $2),
		        $3, $4, true, $5)
		RETURNING version
	`, def.ID, def.CampaignID, nodesJSON, edgesJSON, def.CreatedAt).Scan(&def.Version)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert workflow definition: %w", err)
	}

	def.IsActive = true
	return tx.Commit(ctx)
}

// GetActive возвращает активную definition кампании.
func (r *WorkflowRepo) GetActive(ctx context.Context, campaignID uuid.UUID) (*domain.WorkflowDefinition, error) {
	query := workflowSelect + ` WHERE campaign_id = $1 AND is_active`
	return scanWorkflow(r.pool.QueryRow(ctx, query, campaignID))
}

// GetByID возвращает definition по ID.
func (r *WorkflowRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.WorkflowDefinition, error) {
	query := workflowSelect + ` WHERE id = $1`
	return scanWorkflow(r.pool.QueryRow(ctx, query, id))
}

// ListVersions возвращает все версии definition кампании, новые первыми.
func (r *WorkflowRepo) ListVersions(ctx context.Context, campaignID uuid.UUID) ([]domain.WorkflowDefinition, error) {
	query := workflowSelect + ` WHERE campaign_id = $1 ORDER BY version DESC`
	rows, err := r.pool.Query(ctx, query, campaignID)
	if err != nil {
		return nil, fmt.Errorf("list workflow versions: %w", err)
	}
	defer rows.Close()

	var defs []domain.WorkflowDefinition
	for rows.Next() {
		def, err := scanWorkflow(rows)
		if err != nil {
			return nil, err
		}
		defs = append(defs, *def)
	}
	return defs, rows.Err()
}

const workflowSelect = `
	SELECT id, campaign_id, version, nodes, edges, is_active, created_at
	FROM workflow_definitions
`

// scanWorkflow сканирует одну строку в WorkflowDefinition.
func scanWorkflow(row pgx.Row) (*domain.WorkflowDefinition, error) {
	var def domain.WorkflowDefinition
	var nodesJSON, edgesJSON []byte

	err := row.Scan(
		&def.ID,
		&def.CampaignID,
		&def.Version,
		&nodesJSON,
		&edgesJSON,
		&def.IsActive,
		&def.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan workflow definition: %w", err)
	}

	if err := json.Unmarshal(nodesJSON, &def.Nodes); err != nil {
		return nil, fmt.Errorf("unmarshal nodes: %w", err)
	}
	if err := json.Unmarshal(edgesJSON, &def.Edges); err != nil {
		return nil, fmt.Errorf("unmarshal edges: %w", err)
	}

	return &def, nil
}
