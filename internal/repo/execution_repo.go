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

// ExecutionRepo — репозиторий записей обработки: campaign_run_leads,
// node_executions и campaign_logs.
type ExecutionRepo struct {
	pool *pgxpool.Pool
}

// NewExecutionRepo создаёт новый ExecutionRepo.
func NewExecutionRepo(pool *pgxpool.Pool) *ExecutionRepo {
	return &ExecutionRepo{pool: pool}
}

// ListRunLeads возвращает записи участия leads в run.
func (r *ExecutionRepo) ListRunLeads(ctx context.Context, runID uuid.UUID) ([]domain.CampaignRunLead, error) {
	query := `
		SELECT id, campaign_run_id, lead_id, status, snapshot, created_at, updated_at
		FROM campaign_run_leads
		WHERE campaign_run_id = $1
		ORDER BY created_at ASC
	`
	rows, err := r.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("list run leads: %w", err)
	}
	defer rows.Close()

	var leads []domain.CampaignRunLead
	for rows.Next() {
		var l domain.CampaignRunLead
		if err := rows.Scan(&l.ID, &l.CampaignRunID, &l.LeadID, &l.Status, &l.Snapshot, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan run lead: %w", err)
		}
		leads = append(leads, l)
	}
	return leads, rows.Err()
}

// GetRunLead возвращает запись участия одного lead.
func (r *ExecutionRepo) GetRunLead(ctx context.Context, runID, leadID uuid.UUID) (*domain.CampaignRunLead, error) {
	query := `
		SELECT id, campaign_run_id, lead_id, status, snapshot, created_at, updated_at
		FROM campaign_run_leads
		WHERE campaign_run_id = $1 AND lead_id = $2
	`
	var l domain.CampaignRunLead
	err := r.pool.QueryRow(ctx, query, runID, leadID).
		Scan(&l.ID, &l.CampaignRunID, &l.LeadID, &l.Status, &l.Snapshot, &l.CreatedAt, &l.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan run lead: %w", err)
	}
	return &l, nil
}

// UpdateLeadStatus обновляет статус lead в run.
func (r *ExecutionRepo) UpdateLeadStatus(ctx context.Context, runID, leadID uuid.UUID, status domain.LeadStatus) error {
	query := `
		UPDATE campaign_run_leads
		SET status = $3, updated_at = now()
		WHERE campaign_run_id = $1 AND lead_id = $2
	`
	result, err := r.pool.Exec(ctx, query, runID, leadID, status)
	if err != nil {
		return fmt.Errorf("update run lead status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListUnfinishedLeadIDs возвращает ID leads run, не достигших
// терминального статуса. Используется при retry: в повторный job
// попадают только они.
func (r *ExecutionRepo) ListUnfinishedLeadIDs(ctx context.Context, runID uuid.UUID) ([]uuid.UUID, error) {
	query := `
		SELECT lead_id
		FROM campaign_run_leads
		WHERE campaign_run_id = $1 AND status NOT IN ($2, $3)
		ORDER BY created_at ASC
	`
	rows, err := r.pool.Query(ctx, query, runID, domain.LeadStatusCompleted, domain.LeadStatusFailed)
	if err != nil {
		return nil, fmt.Errorf("list unfinished leads: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan lead id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// InsertNodeExecutions batch-вставляет записи исполнения узлов.
// Записи одного lead вставляются вместе после завершения traversal.
func (r *ExecutionRepo) InsertNodeExecutions(ctx context.Context, execs []domain.NodeExecution) error {
	if len(execs) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO node_executions
			(id, campaign_run_id, lead_id, node_id, node_type, status,
			 input, output, error, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	for _, e := range execs {
		batch.Queue(query,
			e.ID, e.CampaignRunID, e.LeadID, e.NodeID, e.NodeKind, e.Status,
			e.Input, e.Output, nullString(e.Error), e.StartedAt, e.FinishedAt,
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range execs {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("insert node execution: %w", err)
		}
	}
	return nil
}

// ListNodeExecutions возвращает записи исполнения узлов run,
// опционально отфильтрованные по lead.
func (r *ExecutionRepo) ListNodeExecutions(ctx context.Context, runID uuid.UUID, leadID *uuid.UUID) ([]domain.NodeExecution, error) {
	query := `
		SELECT id, campaign_run_id, lead_id, node_id, node_type, status,
		       input, output, error, started_at, finished_at
		FROM node_executions
		WHERE campaign_run_id = $1
		  AND ($2::uuid IS NULL OR lead_id = $2)
		ORDER BY started_at ASC
	`
	rows, err := r.pool.Query(ctx, query, runID, nullUUID(leadID))
	if err != nil {
		return nil, fmt.Errorf("list node executions: %w", err)
	}
	defer rows.Close()

	var execs []domain.NodeExecution
	for rows.Next() {
		var e domain.NodeExecution
		var execError *string
		err := rows.Scan(
			&e.ID, &e.CampaignRunID, &e.LeadID, &e.NodeID, &e.NodeKind, &e.Status,
			&e.Input, &e.Output, &execError, &e.StartedAt, &e.FinishedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan node execution: %w", err)
		}
		if execError != nil {
			e.Error = *execError
		}
		execs = append(execs, e)
	}
	return execs, rows.Err()
}

// AppendLog добавляет строку в лог run.
func (r *ExecutionRepo) AppendLog(ctx context.Context, log *domain.CampaignLog) error {
	query := `
		INSERT INTO campaign_logs (id, campaign_run_id, level, message, node_id, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.pool.Exec(ctx, query,
		log.ID, log.CampaignRunID, log.Level, log.Message, nullString(log.NodeID), log.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert campaign log: %w", err)
	}
	return nil
}

// ListLogs возвращает строки лога run в хронологическом порядке.
func (r *ExecutionRepo) ListLogs(ctx context.Context, runID uuid.UUID, limit int) ([]domain.CampaignLog, error) {
	query := `
		SELECT id, campaign_run_id, level, message, node_id, timestamp
		FROM campaign_logs
		WHERE campaign_run_id = $1
		ORDER BY timestamp ASC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, runID, limit)
	if err != nil {
		return nil, fmt.Errorf("list campaign logs: %w", err)
	}
	defer rows.Close()

	var logs []domain.CampaignLog
	for rows.Next() {
		var l domain.CampaignLog
		var nodeID *string
		if err := rows.Scan(&l.ID, &l.CampaignRunID, &l.Level, &l.Message, &nodeID, &l.Timestamp); err != nil {
			return nil, fmt.Errorf("scan campaign log: %w", err)
		}
		if nodeID != nil {
			l.NodeID = *nodeID
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
