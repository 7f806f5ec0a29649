package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/time/rate"
)

// Handler — функция обработки сообщения.
// Возвращает error, если обработка не удалась (сообщение будет nack).
type Handler func(ctx context.Context, msg *Delivery) error

// Delivery — доставленное сообщение с методами ack/nack.
type Delivery struct {
	// Message — распарсенное сообщение.
	Message Message

	// Raw — сырое AMQP сообщение.
	Raw amqp.Delivery
}

// Ack подтверждает успешную обработку сообщения.
func (d *Delivery) Ack() error {
	return d.Raw.Ack(false)
}

// Nack отклоняет сообщение.
// requeue=true — вернуть в очередь, false — отправить в DLQ.
func (d *Delivery) Nack(requeue bool) error {
	return d.Raw.Nack(false, requeue)
}

// Consumer потребляет сообщения из очереди RabbitMQ.
//
// Concurrency ограничивает число одновременно обрабатываемых сообщений
// семафором, Limiter — частоту взятия новых сообщений. Оба лимита
// применяются до вызова handler.
type Consumer struct {
	conn    *Connection
	logger  *slog.Logger
	queue   string
	handler Handler

	prefetch    int
	concurrency int
	limiter     *rate.Limiter

	mu         sync.Mutex
	cancelFunc context.CancelFunc
	stopped    bool
	wg         sync.WaitGroup
}

// ConsumerConfig — конфигурация consumer.
type ConsumerConfig struct {
	// Queue — имя очереди.
	Queue string

	// Handler — обработчик сообщений.
	Handler Handler

	// Prefetch — количество сообщений для предварительной загрузки.
	// По умолчанию равно Concurrency.
	Prefetch int

	// Concurrency — максимум одновременно обрабатываемых сообщений.
	// По умолчанию 1.
	Concurrency int

	// RatePerSecond — максимум сообщений в секунду. 0 — без лимита.
	RatePerSecond float64

	// RateBurst — burst для rate limiter. По умолчанию 1.
	RateBurst int
}

// NewConsumer создаёт новый Consumer.
func NewConsumer(conn *Connection, logger *slog.Logger, cfg ConsumerConfig) *Consumer {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = concurrency
	}

	var limiter *rate.Limiter
	if cfg.RatePerSecond > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}

	return &Consumer{
		conn:        conn,
		logger:      logger,
		queue:       cfg.Queue,
		handler:     cfg.Handler,
		prefetch:    prefetch,
		concurrency: concurrency,
		limiter:     limiter,
	}
}

// Start запускает потребление сообщений. Блокируется до отмены контекста
// или вызова Stop.
func (c *Consumer) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)

	// Stop мог прийти раньше Start (Start обычно уходит в goroutine).
	c.mu.Lock()
	c.cancelFunc = cancel
	stopped := c.stopped
	c.mu.Unlock()
	if stopped {
		cancel()
	}

	err := c.consume(ctx)

	// Даём in-flight handlers завершиться перед возвратом.
	c.wg.Wait()

	return err
}

// consume — основной цикл потребления.
func (c *Consumer) consume(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		deliveries, ch, err := c.setupConsume()
		if err != nil {
			c.logger.Error("failed to setup consume", "queue", c.queue, "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-c.conn.ReconnectNotify():
				c.logger.Info("reconnected, restarting consumer", "queue", c.queue)
				continue
			}
		}

		c.logger.Info("consumer started", "queue", c.queue, "concurrency", c.concurrency)

		err = c.processDeliveries(ctx, deliveries)
		ch.Close()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Warn("deliveries channel closed, reconnecting", "queue", c.queue)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-c.conn.ReconnectNotify():
				continue
			}
		}
	}
}

// setupConsume открывает отдельный канал и начинает потребление.
// Отдельный канал нужен, чтобы Qos не пересекался с другими consumers
// того же соединения.
func (c *Consumer) setupConsume() (<-chan amqp.Delivery, *amqp.Channel, error) {
	ch, err := c.conn.NewChannel()
	if err != nil {
		return nil, nil, err
	}

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		ch.Close()
		return nil, nil, fmt.Errorf("set qos: %w", err)
	}

	deliveries, err := ch.Consume(
		c.queue, // queue
		"",      // consumer tag (auto-generated)
		false,   // auto-ack (мы ack вручную)
		false,   // exclusive
		false,   // no-local
		false,   // no-wait
		nil,     // args
	)
	if err != nil {
		ch.Close()
		return nil, nil, fmt.Errorf("consume: %w", err)
	}

	return deliveries, ch, nil
}

// processDeliveries раздаёт сообщения пулу обработчиков с учётом
// семафора и rate limiter.
func (c *Consumer) processDeliveries(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	sem := make(chan struct{}, c.concurrency)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case raw, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("deliveries channel closed")
			}

			if c.limiter != nil {
				if err := c.limiter.Wait(ctx); err != nil {
					raw.Nack(false, true)
					return err
				}
			}

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				raw.Nack(false, true)
				return ctx.Err()
			}

			c.wg.Add(1)
			go func(raw amqp.Delivery) {
				defer c.wg.Done()
				defer func() { <-sem }()
				c.handleDelivery(ctx, raw)
			}(raw)
		}
	}
}

// handleDelivery обрабатывает одно сообщение.
func (c *Consumer) handleDelivery(ctx context.Context, raw amqp.Delivery) {
	var msg Message
	if err := json.Unmarshal(raw.Body, &msg); err != nil {
		c.logger.Error("failed to unmarshal message",
			"queue", c.queue,
			"error", err,
			"body", string(raw.Body),
		)
		// Некорректное сообщение — отправляем в DLQ
		raw.Nack(false, false)
		return
	}

	delivery := &Delivery{
		Message: msg,
		Raw:     raw,
	}

	c.logger.Debug("received message",
		"queue", c.queue,
		"message_id", msg.ID,
		"type", msg.Type,
	)

	// Handler сам решает судьбу сообщения (ack/nack/republish с новым
	// attempt). Ошибка здесь означает, что handler не смог этого сделать.
	if err := c.handler(ctx, delivery); err != nil {
		c.logger.Error("handler failed",
			"queue", c.queue,
			"message_id", msg.ID,
			"type", msg.Type,
			"error", err,
		)
		raw.Nack(false, true)
		return
	}
}

// Stop останавливает consumer. Безопасен до и после Start.
func (c *Consumer) Stop() {
	c.mu.Lock()
	c.stopped = true
	cancel := c.cancelFunc
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}
