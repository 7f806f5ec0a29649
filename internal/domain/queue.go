package domain

import (
	"time"

	"github.com/google/uuid"
)

// CampaignQueue — операционная запись о живой очереди кампании.
//
// Строка создаётся вместе с очередью и удаляется при её teardown.
// После рестарта worker-процесс восстанавливает реестр очередей из
// этой таблицы, а не из памяти.
type CampaignQueue struct {
	// ID — уникальный идентификатор записи.
	ID uuid.UUID `json:"id"`

	// CampaignID — кампания-владелец (одна очередь на кампанию).
	CampaignID uuid.UUID `json:"campaign_id"`

	// QueueName — имя очереди в брокере.
	QueueName string `json:"queue_name"`

	// WorkerCount — конфигурация конкурентности (jobs в полёте).
	WorkerCount int `json:"worker_count"`

	// Status — active или paused.
	Status QueueStatus `json:"status"`

	// CompletedJobs — монотонный счётчик успешно завершённых jobs.
	CompletedJobs int `json:"completed_jobs"`

	// FailedJobs — монотонный счётчик перманентно упавших jobs.
	FailedJobs int `json:"failed_jobs"`

	// CreatedAt — время создания очереди.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt — время последнего изменения.
	UpdatedAt time.Time `json:"updated_at"`
}

// QueueCounts — point-in-time снимок состояния очереди кампании.
// Снимок не гарантирует согласованность между полями.
type QueueCounts struct {
	Waiting   int  `json:"waiting"`
	Active    int  `json:"active"`
	Completed int  `json:"completed"`
	Failed    int  `json:"failed"`
	Paused    bool `json:"paused"`
}
