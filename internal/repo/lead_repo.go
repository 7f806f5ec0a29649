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

// LeadRepo — репозиторий lead lists и leads.
type LeadRepo struct {
	pool *pgxpool.Pool
}

// NewLeadRepo создаёт новый LeadRepo.
func NewLeadRepo(pool *pgxpool.Pool) *LeadRepo {
	return &LeadRepo{pool: pool}
}

// CreateList создаёт lead list и bulk-вставляет его leads через COPY.
func (r *LeadRepo) CreateList(ctx context.Context, list *domain.LeadList, leads []domain.Lead) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO lead_lists (id, name, created_at)
		VALUES ($1, $2, $3)
	`, list.ID, list.Name, list.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert lead list: %w", err)
	}

	if len(leads) > 0 {
		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"leads"},
			[]string{"id", "lead_list_id", "first_name", "last_name", "email", "company", "position", "profile_url", "connected", "created_at", "updated_at"},
			pgx.CopyFromSlice(len(leads), func(i int) ([]any, error) {
				l := leads[i]
				return []any{
					l.ID, l.LeadListID,
					nullString(l.FirstName), nullString(l.LastName),
					nullString(l.Email), nullString(l.Company),
					nullString(l.Position), nullString(l.ProfileURL),
					l.Connected, l.CreatedAt, l.UpdatedAt,
				}, nil
			}),
		)
		if err != nil {
			return fmt.Errorf("copy leads: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// GetList возвращает lead list по ID вместе с количеством leads.
func (r *LeadRepo) GetList(ctx context.Context, id uuid.UUID) (*domain.LeadList, error) {
	query := `
		SELECT ll.id, ll.name, ll.created_at, count(l.id)
		FROM lead_lists ll
		LEFT JOIN leads l ON l.lead_list_id = ll.id
		WHERE ll.id = $1
		GROUP BY ll.id
	`
	var list domain.LeadList
	err := r.pool.QueryRow(ctx, query, id).Scan(&list.ID, &list.Name, &list.CreatedAt, &list.Count)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan lead list: %w", err)
	}
	return &list, nil
}

// ListLists возвращает все lead lists.
func (r *LeadRepo) ListLists(ctx context.Context) ([]domain.LeadList, error) {
	query := `
		SELECT ll.id, ll.name, ll.created_at, count(l.id)
		FROM lead_lists ll
		LEFT JOIN leads l ON l.lead_list_id = ll.id
		GROUP BY ll.id
		ORDER BY ll.created_at DESC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list lead lists: %w", err)
	}
	defer rows.Close()

	var lists []domain.LeadList
	for rows.Next() {
		var list domain.LeadList
		if err := rows.Scan(&list.ID, &list.Name, &list.CreatedAt, &list.Count); err != nil {
			return nil, fmt.Errorf("scan lead list: %w", err)
		}
		lists = append(lists, list)
	}
	return lists, rows.Err()
}

// ListByLeadList возвращает leads списка.
func (r *LeadRepo) ListByLeadList(ctx context.Context, leadListID uuid.UUID) ([]domain.Lead, error) {
	query := leadSelect + ` WHERE lead_list_id = $1 ORDER BY created_at ASC`
	return r.queryLeads(ctx, query, leadListID)
}

// ListByIDs возвращает leads по набору ID. Порядок не гарантируется.
func (r *LeadRepo) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Lead, error) {
	query := leadSelect + ` WHERE id = ANY($1)`
	return r.queryLeads(ctx, query, ids)
}

const leadSelect = `
	SELECT id, lead_list_id, first_name, last_name, email, company, position,
	       profile_url, connected, created_at, updated_at
	FROM leads
`

func (r *LeadRepo) queryLeads(ctx context.Context, query string, args ...any) ([]domain.Lead, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query leads: %w", err)
	}
	defer rows.Close()

	var leads []domain.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, *l)
	}
	return leads, rows.Err()
}

// scanLead сканирует одну строку в Lead.
func scanLead(row pgx.Row) (*domain.Lead, error) {
	var l domain.Lead
	var firstName, lastName, email, company, position, profileURL *string

	err := row.Scan(
		&l.ID,
		&l.LeadListID,
		&firstName,
		&lastName,
		&email,
		&company,
		&position,
		&profileURL,
		&l.Connected,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan lead: %w", err)
	}

	l.FirstName = deref(firstName)
	l.LastName = deref(lastName)
	l.Email = deref(email)
	l.Company = deref(company)
	l.Position = deref(position)
	l.ProfileURL = deref(profileURL)

	return &l, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
