package domain

import (
	"time"

	"github.com/google/uuid"
)

// CampaignRunLead — участие одного lead в run.
//
// Пара (CampaignRunID, LeadID) уникальна. Snapshot снимается при
// создании run и далее не меняется: traversal воспроизводим, даже если
// живая запись lead изменится.
type CampaignRunLead struct {
	// ID — уникальный идентификатор записи.
	ID uuid.UUID `json:"id"`

	// CampaignRunID — run-владелец.
	CampaignRunID uuid.UUID `json:"campaign_run_id"`

	// LeadID — lead, который обрабатывается.
	LeadID uuid.UUID `json:"lead_id"`

	// Status — статус обработки lead в этом run.
	Status LeadStatus `json:"status"`

	// Snapshot — копия полей lead на момент создания run.
	Snapshot map[string]any `json:"snapshot"`

	// CreatedAt — время создания.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt — время последнего изменения статуса.
	UpdatedAt time.Time `json:"updated_at"`
}

// NodeExecution — append-only аудит-запись о посещении узла.
// Одна запись на узел на lead на run; после вставки не обновляется.
type NodeExecution struct {
	// ID — уникальный идентификатор записи.
	ID uuid.UUID `json:"id"`

	// CampaignRunID — run-владелец.
	CampaignRunID uuid.UUID `json:"campaign_run_id"`

	// LeadID — lead, для которого выполнялся узел.
	LeadID uuid.UUID `json:"lead_id"`

	// NodeID — ID узла в definition.
	NodeID string `json:"node_id"`

	// NodeKind — тип действия узла.
	NodeKind ActionKind `json:"node_type"`

	// Status — completed или failed.
	Status ExecutionStatus `json:"status"`

	// Input — состояние (lead snapshot + meta) на входе узла.
	Input map[string]any `json:"input,omitempty"`

	// Output — результат executor'а, включая собранные log-строки.
	Output map[string]any `json:"output,omitempty"`

	// Error — текст ошибки при status == failed.
	Error string `json:"error,omitempty"`

	// StartedAt — время начала выполнения узла.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt — время завершения.
	FinishedAt time.Time `json:"finished_at"`
}

// CampaignLog — append-only строка лога run, упорядоченная по времени.
type CampaignLog struct {
	// ID — уникальный идентификатор строки.
	ID uuid.UUID `json:"id"`

	// CampaignRunID — run-владелец.
	CampaignRunID uuid.UUID `json:"campaign_run_id"`

	// Level — уровень: info, warn, error.
	Level LogLevel `json:"level"`

	// Message — текст.
	Message string `json:"message"`

	// NodeID — ID узла, если строка относится к конкретному узлу.
	NodeID string `json:"node_id,omitempty"`

	// Timestamp — время записи.
	Timestamp time.Time `json:"timestamp"`
}
