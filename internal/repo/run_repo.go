package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Cadence/internal/domain"
)

// RunRepo — репозиторий campaign runs.
type RunRepo struct {
	pool *pgxpool.Pool
}

// NewRunRepo создаёт новый RunRepo.
func NewRunRepo(pool *pgxpool.Pool) *RunRepo {
	return &RunRepo{pool: pool}
}

// CreateWithLeads атомарно создаёт run вместе со snapshot'ами leads.
// Записи campaign_run_leads вставляются через COPY: списки бывают
// большими, построчный INSERT при создании run неприемлем.
func (r *RunRepo) CreateWithLeads(ctx context.Context, run *domain.CampaignRun, leads []domain.CampaignRunLead) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO campaign_runs
			(id, campaign_id, workflow_definition_id, status, total_leads,
			 processed, success, failed, idempotency_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 0, 0, 0, $6, $7, $8)
	`,
		run.ID,
		run.CampaignID,
		run.WorkflowDefinitionID,
		run.Status,
		run.Stats.TotalLeads,
		nullString(run.IdempotencyKey),
		run.CreatedAt,
		run.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	if len(leads) > 0 {
		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"campaign_run_leads"},
			[]string{"id", "campaign_run_id", "lead_id", "status", "snapshot", "created_at", "updated_at"},
			pgx.CopyFromSlice(len(leads), func(i int) ([]any, error) {
				l := leads[i]
				return []any{l.ID, l.CampaignRunID, l.LeadID, l.Status, l.Snapshot, l.CreatedAt, l.UpdatedAt}, nil
			}),
		)
		if err != nil {
			return fmt.Errorf("copy run leads: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// GetByID возвращает run по ID.
func (r *RunRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.CampaignRun, error) {
	query := runSelect + ` WHERE id = $1`
	return scanRun(r.pool.QueryRow(ctx, query, id))
}

// GetByIdempotencyKey возвращает run кампании по ключу идемпотентности.
func (r *RunRepo) GetByIdempotencyKey(ctx context.Context, campaignID uuid.UUID, key string) (*domain.CampaignRun, error) {
	query := runSelect + ` WHERE campaign_id = $1 AND idempotency_key = $2`
	return scanRun(r.pool.QueryRow(ctx, query, campaignID, key))
}

// RunFilter — параметры фильтрации runs.
type RunFilter struct {
	CampaignID *uuid.UUID
	Status     domain.RunStatus
	Limit      int
	Offset     int
}

// List возвращает runs с фильтрацией, новые первыми.
func (r *RunRepo) List(ctx context.Context, filter RunFilter) ([]domain.CampaignRun, error) {
	query := runSelect + `
		WHERE ($1::uuid IS NULL OR campaign_id = $1)
		  AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.pool.Query(ctx, query,
		nullUUID(filter.CampaignID),
		nullString(string(filter.Status)),
		filter.Limit,
		filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.CampaignRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// Update обновляет статус и временные метки run.
func (r *RunRepo) Update(ctx context.Context, run *domain.CampaignRun) error {
	query := `
		UPDATE campaign_runs
		SET status = $2, started_at = $3, ended_at = $4, error = $5, updated_at = now()
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		run.ID,
		run.Status,
		run.StartedAt,
		run.EndedAt,
		nullString(run.Error),
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkRunningIfPending переводит run в running, если он ещё pending.
// Возвращает true при фактическом переходе. Compare-and-set нужен,
// чтобы job с attempt > 1 не перезаписал started_at.
func (r *RunRepo) MarkRunningIfPending(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE campaign_runs
		SET status = $2, started_at = now(), updated_at = now()
		WHERE id = $1 AND status = $3
	`
	result, err := r.pool.Exec(ctx, query, id, domain.RunStatusRunning, domain.RunStatusPending)
	if err != nil {
		return false, fmt.Errorf("mark run running: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// AddStats атомарно добавляет дельты к счётчикам run.
func (r *RunRepo) AddStats(ctx context.Context, id uuid.UUID, processed, success, failed int) error {
	query := `
		UPDATE campaign_runs
		SET processed = processed + $2,
		    success = success + $3,
		    failed = failed + $4,
		    updated_at = now()
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query, id, processed, success, failed)
	if err != nil {
		return fmt.Errorf("add run stats: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const runSelect = `
	SELECT id, campaign_id, workflow_definition_id, status, started_at, ended_at,
	       error, total_leads, processed, success, failed, idempotency_key,
	       created_at, updated_at
	FROM campaign_runs
`

// scanRun сканирует одну строку в CampaignRun.
func scanRun(row pgx.Row) (*domain.CampaignRun, error) {
	var run domain.CampaignRun
	var runError *string
	var idempotencyKey *string

	err := row.Scan(
		&run.ID,
		&run.CampaignID,
		&run.WorkflowDefinitionID,
		&run.Status,
		&run.StartedAt,
		&run.EndedAt,
		&runError,
		&run.Stats.TotalLeads,
		&run.Stats.Processed,
		&run.Stats.Success,
		&run.Stats.Failed,
		&idempotencyKey,
		&run.CreatedAt,
		&run.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}

	if runError != nil {
		run.Error = *runError
	}
	if idempotencyKey != nil {
		run.IdempotencyKey = *idempotencyKey
	}

	return &run, nil
}
