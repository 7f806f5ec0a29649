package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Cadence/internal/domain"
)

// CampaignRepo — репозиторий кампаний.
type CampaignRepo struct {
	pool *pgxpool.Pool
}

// NewCampaignRepo создаёт новый CampaignRepo.
func NewCampaignRepo(pool *pgxpool.Pool) *CampaignRepo {
	return &CampaignRepo{pool: pool}
}

// Create создаёт новую кампанию.
func (r *CampaignRepo) Create(ctx context.Context, c *domain.Campaign) error {
	query := `
		INSERT INTO campaigns (id, name, description, status, error_strategy, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.pool.Exec(ctx, query,
		c.ID,
		c.Name,
		nullString(c.Description),
		c.Status,
		nullString(string(c.ErrorStrategy)),
		c.CreatedAt,
		c.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert campaign: %w", err)
	}
	return nil
}

// GetByID возвращает кампанию по ID.
func (r *CampaignRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Campaign, error) {
	query := `
		SELECT id, name, description, status, error_strategy, created_at, updated_at
		FROM campaigns
		WHERE id = $1
	`
	return scanCampaign(r.pool.QueryRow(ctx, query, id))
}

// List возвращает кампании, упорядоченные по времени создания.
func (r *CampaignRepo) List(ctx context.Context, limit, offset int) ([]domain.Campaign, error) {
	query := `
		SELECT id, name, description, status, error_strategy, created_at, updated_at
		FROM campaigns
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	var campaigns []domain.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, *c)
	}
	return campaigns, rows.Err()
}

// Update обновляет изменяемые поля кампании.
func (r *CampaignRepo) Update(ctx context.Context, c *domain.Campaign) error {
	query := `
		UPDATE campaigns
		SET name = $2, description = $3, status = $4, error_strategy = $5, updated_at = now()
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		c.ID,
		c.Name,
		nullString(c.Description),
		c.Status,
		nullString(string(c.ErrorStrategy)),
	)
	if err != nil {
		return fmt.Errorf("update campaign: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete удаляет кампанию. Связанные runs, workflows и schedules
// удаляются каскадом на уровне схемы.
func (r *CampaignRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM campaigns WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete campaign: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// scanCampaign сканирует одну строку в Campaign.
func scanCampaign(row pgx.Row) (*domain.Campaign, error) {
	var c domain.Campaign
	var description *string
	var strategy *string

	err := row.Scan(
		&c.ID,
		&c.Name,
		&description,
		&c.Status,
		&strategy,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan campaign: %w", err)
	}

	if description != nil {
		c.Description = *description
	}
	if strategy != nil {
		c.ErrorStrategy = domain.ErrorStrategy(*strategy)
	}

	return &c, nil
}

// nullString возвращает nil для пустой строки (для NULL в БД).
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// nullUUID возвращает nil для пустого UUID.
func nullUUID(id *uuid.UUID) *uuid.UUID {
	if id == nil || *id == uuid.Nil {
		return nil
	}
	return id
}

// isUniqueViolation распознаёт нарушение уникальности (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
