package domain

import (
	"time"

	"github.com/google/uuid"
)

// RunStats — агрегированные счётчики run.
type RunStats struct {
	// TotalLeads — размер снятого при создании run списка leads.
	TotalLeads int `json:"total_leads"`

	// Processed — количество leads, достигших терминального статуса.
	Processed int `json:"processed"`

	// Success — leads со статусом completed.
	Success int `json:"success"`

	// Failed — leads со статусом failed.
	Failed int `json:"failed"`
}

// CampaignRun — одна попытка выполнения workflow definition над
// зафиксированным набором leads.
//
// Run создаётся API (или scheduler'ом) вместе со snapshot'ами leads;
// мутируется только job processor'ом и отменой. После перехода в
// терминальный статус запись больше не меняется.
type CampaignRun struct {
	// ID — уникальный идентификатор run.
	ID uuid.UUID `json:"id"`

	// CampaignID — кампания-владелец.
	CampaignID uuid.UUID `json:"campaign_id"`

	// WorkflowDefinitionID — версия definition, зафиксированная при создании.
	WorkflowDefinitionID uuid.UUID `json:"workflow_definition_id"`

	// Status — текущий статус run.
	Status RunStatus `json:"status"`

	// StartedAt — время перехода в running. Nil, пока run не начался.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// EndedAt — время перехода в терминальный статус.
	EndedAt *time.Time `json:"ended_at,omitempty"`

	// Error — текст ошибки, если run завершился failed.
	Error string `json:"error,omitempty"`

	// Stats — счётчики прогресса.
	Stats RunStats `json:"stats"`

	// IdempotencyKey — ключ против дубликатов (scheduled runs:
	// "{schedule_id}_{next_due_at}"). Пустой для ручных запусков.
	IdempotencyKey string `json:"idempotency_key,omitempty"`

	// CreatedAt — время создания run.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt — время последнего изменения.
	UpdatedAt time.Time `json:"updated_at"`
}

// Duration возвращает продолжительность выполнения.
// Возвращает 0, если run ещё не завершён.
func (r *CampaignRun) Duration() time.Duration {
	if r.StartedAt == nil || r.EndedAt == nil {
		return 0
	}
	return r.EndedAt.Sub(*r.StartedAt)
}

// IsFinished возвращает true, если run завершён (в любом статусе).
func (r *CampaignRun) IsFinished() bool {
	return r.Status.IsTerminal()
}

// MarkRunning переводит run в статус running.
func (r *CampaignRun) MarkRunning() {
	now := time.Now()
	r.Status = RunStatusRunning
	r.StartedAt = &now
}

// MarkCompleted переводит run в статус completed.
func (r *CampaignRun) MarkCompleted() {
	now := time.Now()
	r.Status = RunStatusCompleted
	r.EndedAt = &now
}

// MarkFailed переводит run в статус failed с ошибкой.
func (r *CampaignRun) MarkFailed(err string) {
	now := time.Now()
	r.Status = RunStatusFailed
	r.EndedAt = &now
	r.Error = err
}

// MarkCanceled переводит run в статус canceled.
func (r *CampaignRun) MarkCanceled() {
	now := time.Now()
	r.Status = RunStatusCanceled
	r.EndedAt = &now
}
