package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Cadence/internal/domain"
)

// ScheduleRepo — репозиторий расписаний кампаний.
type ScheduleRepo struct {
	pool *pgxpool.Pool
}

// NewScheduleRepo создаёт новый ScheduleRepo.
func NewScheduleRepo(pool *pgxpool.Pool) *ScheduleRepo {
	return &ScheduleRepo{pool: pool}
}

// Create создаёт schedule.
func (r *ScheduleRepo) Create(ctx context.Context, s *domain.CampaignSchedule) error {
	query := `
		INSERT INTO campaign_schedules
			(id, campaign_id, lead_list_id, cron_expr, enabled, next_due_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.pool.Exec(ctx, query,
		s.ID, s.CampaignID, s.LeadListID, s.CronExpr, s.Enabled, s.NextDueAt, s.CreatedAt, s.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert schedule: %w", err)
	}
	return nil
}

// GetByID возвращает schedule по ID.
func (r *ScheduleRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.CampaignSchedule, error) {
	query := scheduleSelect + ` WHERE id = $1`
	return scanSchedule(r.pool.QueryRow(ctx, query, id))
}

// ListDue возвращает включённые schedules с наступившим next_due_at.
func (r *ScheduleRepo) ListDue(ctx context.Context, now time.Time) ([]domain.CampaignSchedule, error) {
	query := scheduleSelect + `
		WHERE enabled AND next_due_at <= $1
		ORDER BY next_due_at ASC
	`
	return r.querySchedules(ctx, query, now)
}

// ListByCampaign возвращает schedules кампании.
func (r *ScheduleRepo) ListByCampaign(ctx context.Context, campaignID uuid.UUID) ([]domain.CampaignSchedule, error) {
	query := scheduleSelect + ` WHERE campaign_id = $1 ORDER BY created_at ASC`
	return r.querySchedules(ctx, query, campaignID)
}

// Advance сдвигает next_due_at после создания run.
func (r *ScheduleRepo) Advance(ctx context.Context, id uuid.UUID, nextDue, lastRun time.Time) error {
	query := `
		UPDATE campaign_schedules
		SET next_due_at = $2, last_run_at = $3, updated_at = now()
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query, id, nextDue, lastRun)
	if err != nil {
		return fmt.Errorf("advance schedule: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetEnabled включает или выключает schedule.
func (r *ScheduleRepo) SetEnabled(ctx context.Context, id uuid.UUID, enabled bool) error {
	query := `
		UPDATE campaign_schedules
		SET enabled = $2, updated_at = now()
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query, id, enabled)
	if err != nil {
		return fmt.Errorf("set schedule enabled: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const scheduleSelect = `
	SELECT id, campaign_id, lead_list_id, cron_expr, enabled, next_due_at,
	       last_run_at, created_at, updated_at
	FROM campaign_schedules
`

func (r *ScheduleRepo) querySchedules(ctx context.Context, query string, args ...any) ([]domain.CampaignSchedule, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query schedules: %w", err)
	}
	defer rows.Close()

	var schedules []domain.CampaignSchedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, *s)
	}
	return schedules, rows.Err()
}

// scanSchedule сканирует одну строку в CampaignSchedule.
func scanSchedule(row pgx.Row) (*domain.CampaignSchedule, error) {
	var s domain.CampaignSchedule
	err := row.Scan(
		&s.ID, &s.CampaignID, &s.LeadListID, &s.CronExpr, &s.Enabled,
		&s.NextDueAt, &s.LastRunAt, &s.CreatedAt, &s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan schedule: %w", err)
	}
	return &s, nil
}
