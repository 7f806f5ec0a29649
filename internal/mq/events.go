package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// EventStream — подписка на события жизненного цикла jobs одной кампании.
//
// Для каждой подписки объявляется exclusive auto-delete очередь,
// привязанная к ExchangeEvents по паттерну campaign.<id>.#. Очередь
// живёт ровно столько, сколько живёт подписчик (SSE-клиент).
type EventStream struct {
	conn   *Connection
	logger *slog.Logger
}

// NewEventStream создаёт EventStream.
func NewEventStream(conn *Connection, logger *slog.Logger) *EventStream {
	return &EventStream{conn: conn, logger: logger}
}

// Subscribe открывает поток событий кампании. Возвращённый канал
// закрывается при отмене ctx или вызове cancel. Cancel обязателен —
// он освобождает AMQP канал и exclusive очередь.
func (s *EventStream) Subscribe(ctx context.Context, campaignID uuid.UUID) (<-chan JobEventPayload, func(), error) {
	ch, err := s.conn.NewChannel()
	if err != nil {
		return nil, nil, err
	}

	q, err := ch.QueueDeclare(
		"",    // auto-generated name
		false, // durable
		true,  // auto-delete
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		ch.Close()
		return nil, nil, fmt.Errorf("declare event queue: %w", err)
	}

	pattern := fmt.Sprintf("campaign.%s.#", campaignID)
	if err := ch.QueueBind(q.Name, pattern, string(ExchangeEvents), false, nil); err != nil {
		ch.Close()
		return nil, nil, fmt.Errorf("bind event queue: %w", err)
	}

	deliveries, err := ch.Consume(
		q.Name,
		"",    // consumer tag
		true,  // auto-ack: события не требуют подтверждения
		true,  // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		ch.Close()
		return nil, nil, fmt.Errorf("consume events: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	out := make(chan JobEventPayload, 16)

	go func() {
		defer close(out)
		defer ch.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case raw, ok := <-deliveries:
				if !ok {
					return
				}

				var msg Message
				if err := json.Unmarshal(raw.Body, &msg); err != nil {
					s.logger.Warn("malformed event message", "error", err)
					continue
				}

				payload, err := ParsePayload[JobEventPayload](&msg)
				if err != nil {
					s.logger.Warn("malformed event payload", "error", err)
					continue
				}

				select {
				case out <- payload:
				case <-ctx.Done():
					return
				default:
					// Медленный подписчик; событие прогресса можно
					// потерять, следующее принесёт свежие агрегаты.
				}
			}
		}
	}()

	return out, cancel, nil
}
