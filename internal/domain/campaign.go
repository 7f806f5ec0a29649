package domain

import (
	"time"

	"github.com/google/uuid"
)

// Campaign — outreach-кампания: именованный контейнер для workflow
// definitions, runs и очереди.
type Campaign struct {
	// ID — уникальный идентификатор кампании.
	ID uuid.UUID `json:"id"`

	// Name — название кампании.
	Name string `json:"name"`

	// Description — описание (опционально).
	Description string `json:"description,omitempty"`

	// Status — статус кампании: draft, active, archived.
	Status CampaignStatus `json:"status"`

	// ErrorStrategy — стратегия обработки ошибок jobs этой кампании.
	// Пустое значение означает retry-with-backoff.
	ErrorStrategy ErrorStrategy `json:"error_strategy,omitempty"`

	// CreatedAt — время создания.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt — время последнего изменения.
	UpdatedAt time.Time `json:"updated_at"`
}

// Strategy возвращает действующую стратегию ошибок с учётом default.
func (c *Campaign) Strategy() ErrorStrategy {
	return ParseErrorStrategy(string(c.ErrorStrategy))
}
