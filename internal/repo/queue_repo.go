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

// QueueRepo — репозиторий операционных записей об очередях кампаний.
type QueueRepo struct {
	pool *pgxpool.Pool
}

// NewQueueRepo создаёт новый QueueRepo.
func NewQueueRepo(pool *pgxpool.Pool) *QueueRepo {
	return &QueueRepo{pool: pool}
}

// Create создаёт запись об очереди. Одна очередь на кампанию.
func (r *QueueRepo) Create(ctx context.Context, q *domain.CampaignQueue) error {
	query := `
		INSERT INTO campaign_queues
			(id, campaign_id, queue_name, worker_count, status,
			 completed_jobs, failed_jobs, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 0, 0, $6, $7)
	`
	_, err := r.pool.Exec(ctx, query,
		q.ID, q.CampaignID, q.QueueName, q.WorkerCount, q.Status, q.CreatedAt, q.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert campaign queue: %w", err)
	}
	return nil
}

// GetByCampaign возвращает запись об очереди кампании.
func (r *QueueRepo) GetByCampaign(ctx context.Context, campaignID uuid.UUID) (*domain.CampaignQueue, error) {
	query := queueSelect + ` WHERE campaign_id = $1`
	return scanQueue(r.pool.QueryRow(ctx, query, campaignID))
}

// List возвращает все записи об очередях. Используется worker-процессом
// для восстановления реестра после рестарта.
func (r *QueueRepo) List(ctx context.Context) ([]domain.CampaignQueue, error) {
	query := queueSelect + ` ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list campaign queues: %w", err)
	}
	defer rows.Close()

	var queues []domain.CampaignQueue
	for rows.Next() {
		q, err := scanQueue(rows)
		if err != nil {
			return nil, err
		}
		queues = append(queues, *q)
	}
	return queues, rows.Err()
}

// UpdateStatus переводит очередь в active или paused.
func (r *QueueRepo) UpdateStatus(ctx context.Context, campaignID uuid.UUID, status domain.QueueStatus) error {
	query := `
		UPDATE campaign_queues
		SET status = $2, updated_at = now()
		WHERE campaign_id = $1
	`
	result, err := r.pool.Exec(ctx, query, campaignID, status)
	if err != nil {
		return fmt.Errorf("update queue status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AddJobCounters атомарно добавляет дельты к монотонным счётчикам jobs.
func (r *QueueRepo) AddJobCounters(ctx context.Context, campaignID uuid.UUID, completed, failed int) error {
	query := `
		UPDATE campaign_queues
		SET completed_jobs = completed_jobs + $2,
		    failed_jobs = failed_jobs + $3,
		    updated_at = now()
		WHERE campaign_id = $1
	`
	result, err := r.pool.Exec(ctx, query, campaignID, completed, failed)
	if err != nil {
		return fmt.Errorf("add queue counters: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete удаляет запись об очереди кампании.
func (r *QueueRepo) Delete(ctx context.Context, campaignID uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM campaign_queues WHERE campaign_id = $1`, campaignID)
	if err != nil {
		return fmt.Errorf("delete campaign queue: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const queueSelect = `
	SELECT id, campaign_id, queue_name, worker_count, status,
	       completed_jobs, failed_jobs, created_at, updated_at
	FROM campaign_queues
`

// scanQueue сканирует одну строку в CampaignQueue.
func scanQueue(row pgx.Row) (*domain.CampaignQueue, error) {
	var q domain.CampaignQueue
	err := row.Scan(
		&q.ID, &q.CampaignID, &q.QueueName, &q.WorkerCount, &q.Status,
		&q.CompletedJobs, &q.FailedJobs, &q.CreatedAt, &q.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan campaign queue: %w", err)
	}
	return &q, nil
}
