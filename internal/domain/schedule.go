package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CampaignSchedule — правило периодического запуска кампании.
//
// Scheduler на каждом тике выбирает due schedules (enabled и
// next_due_at <= now), создаёт run и сдвигает next_due_at по
// cron-выражению.
type CampaignSchedule struct {
	// ID — уникальный идентификатор schedule.
	ID uuid.UUID `json:"id"`

	// CampaignID — кампания, для которой создаются runs.
	CampaignID uuid.UUID `json:"campaign_id"`

	// LeadListID — список leads для создаваемых runs.
	LeadListID uuid.UUID `json:"lead_list_id"`

	// CronExpr — стандартное 5-польное cron-выражение.
	CronExpr string `json:"cron_expr"`

	// Enabled — включён ли schedule.
	Enabled bool `json:"enabled"`

	// NextDueAt — время следующего запуска (UTC).
	NextDueAt time.Time `json:"next_due_at"`

	// LastRunAt — время последнего созданного run.
	LastRunAt *time.Time `json:"last_run_at,omitempty"`

	// CreatedAt — время создания.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt — время последнего изменения.
	UpdatedAt time.Time `json:"updated_at"`
}

// IdempotencyKey возвращает ключ идемпотентности для run,
// создаваемого этим schedule на время due.
func (s *CampaignSchedule) IdempotencyKey(due time.Time) string {
	return fmt.Sprintf("%s_%d", s.ID, due.UTC().Unix())
}
