package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// Типы сообщений.
const (
	MessageTypeCampaignJob  MessageType = "campaign.job"
	MessageTypeJobEvent     MessageType = "campaign.job.event"
	MessageTypeQueueControl MessageType = "queue.control"
)

// ControlCommand — команда управления очередью кампании.
type ControlCommand string

// Команды управления.
const (
	ControlCreate ControlCommand = "create"
	ControlPause  ControlCommand = "pause"
	ControlResume ControlCommand = "resume"
	ControlRemove ControlCommand = "remove"
)

// Message — сообщение для публикации.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип сообщения.
	Type MessageType `json:"type"`

	// Payload — полезная нагрузка.
	Payload any `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// CampaignJobPayload — payload для campaign job: батч leads одного run.
type CampaignJobPayload struct {
	JobID      uuid.UUID   `json:"job_id"`
	RunID      uuid.UUID   `json:"run_id"`
	CampaignID uuid.UUID   `json:"campaign_id"`
	LeadIDs    []uuid.UUID `json:"lead_ids"`

	// Attempt — номер попытки, начиная с 1. Увеличивается при
	// retry-with-backoff.
	Attempt int `json:"attempt"`
}

// JobEventPayload — событие жизненного цикла job для прогресс-стримов.
type JobEventPayload struct {
	JobID      uuid.UUID `json:"job_id"`
	RunID      uuid.UUID `json:"run_id"`
	CampaignID uuid.UUID `json:"campaign_id"`

	// Status — active, completed или failed.
	Status string `json:"status"`

	// Error — текст ошибки для failed.
	Error string `json:"error,omitempty"`

	// Processed/Success/Failed/Total — агрегаты run на момент события.
	Processed int `json:"processed"`
	Success   int `json:"success"`
	Failed    int `json:"failed"`
	Total     int `json:"total"`
}

// Статусы job в событиях.
const (
	JobEventActive    = "active"
	JobEventCompleted = "completed"
	JobEventFailed    = "failed"
)

// ControlPayload — команда управления очередью кампании.
// Рассылается через fanout всем worker-процессам; владелец очереди
// применяет команду, остальные игнорируют.
type ControlPayload struct {
	Command     ControlCommand `json:"command"`
	CampaignID  uuid.UUID      `json:"campaign_id"`
	WorkerCount int            `json:"worker_count,omitempty"`
}

// Publisher публикует сообщения в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		logger: logger,
	}
}

// Publish публикует сообщение в указанный exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message, priority uint8) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(exchange),   // exchange
			string(routingKey), // routing key
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent, // сообщение переживёт рестарт RabbitMQ
				MessageId:    msg.ID,
				Timestamp:    msg.Timestamp,
				Priority:     priority,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)

		return nil
	})
}

// PublishCampaignJob публикует job в очередь кампании.
// Потребитель: worker кампании.
func (p *Publisher) PublishCampaignJob(ctx context.Context, payload CampaignJobPayload, priority uint8) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeCampaignJob,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	return p.Publish(ctx, ExchangeJobs, RoutingKey(payload.CampaignID.String()), msg, priority)
}

// PublishJobEvent публикует событие жизненного цикла job.
// Потребители: прогресс-стримы (SSE relay).
func (p *Publisher) PublishJobEvent(ctx context.Context, payload JobEventPayload) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeJobEvent,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	rk := RoutingKey(fmt.Sprintf("campaign.%s.job.%s", payload.CampaignID, payload.Status))
	return p.Publish(ctx, ExchangeEvents, rk, msg, 0)
}

// PublishControl рассылает команду управления очередью всем worker-процессам.
func (p *Publisher) PublishControl(ctx context.Context, payload ControlPayload) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeQueueControl,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	return p.Publish(ctx, ExchangeControl, "", msg, 0)
}

// ParsePayload парсит payload сообщения в указанный тип.
func ParsePayload[T any](msg *Message) (T, error) {
	var result T

	// Payload может быть уже распарсен как map или быть raw json
	payloadBytes, err := json.Marshal(msg.Payload)
	if err != nil {
		return result, fmt.Errorf("marshal payload: %w", err)
	}

	if err := json.Unmarshal(payloadBytes, &result); err != nil {
		return result, fmt.Errorf("unmarshal payload: %w", err)
	}

	return result, nil
}
