package domain

import (
	"time"

	"github.com/google/uuid"
)

// LeadList — именованный список leads (результат импорта).
type LeadList struct {
	// ID — уникальный идентификатор списка.
	ID uuid.UUID `json:"id"`

	// Name — название списка.
	Name string `json:"name"`

	// Count — количество leads в списке.
	Count int `json:"count"`

	// CreatedAt — время создания.
	CreatedAt time.Time `json:"created_at"`
}

// Lead — запись о prospect'е.
//
// Движок никогда не читает живую запись во время выполнения:
// при создании run снимается Snapshot, и traversal работает только с ним.
type Lead struct {
	// ID — уникальный идентификатор lead.
	ID uuid.UUID `json:"id"`

	// LeadListID — ссылка на список, которому принадлежит lead.
	LeadListID uuid.UUID `json:"lead_list_id"`

	// FirstName, LastName — имя.
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`

	// Email — контактный email.
	Email string `json:"email,omitempty"`

	// Company — компания.
	Company string `json:"company,omitempty"`

	// Position — должность.
	Position string `json:"position,omitempty"`

	// ProfileURL — ссылка на профиль.
	ProfileURL string `json:"profile_url,omitempty"`

	// Connected — установлен ли контакт.
	Connected bool `json:"connected"`

	// CreatedAt — время создания.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt — время последнего изменения.
	UpdatedAt time.Time `json:"updated_at"`
}

// Snapshot возвращает неизменяемую копию полей lead для хранения в run.
// Структура snapshot — плоский JSON-объект, который видят executors.
func (l *Lead) Snapshot() map[string]any {
	return map[string]any{
		"firstName":  l.FirstName,
		"lastName":   l.LastName,
		"email":      l.Email,
		"company":    l.Company,
		"position":   l.Position,
		"profileUrl": l.ProfileURL,
		"connected":  l.Connected,
	}
}
