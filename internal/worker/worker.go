package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/shaiso/Cadence/internal/mq"
	"github.com/shaiso/Cadence/internal/telemetry"
)

// Значения конкурентности по умолчанию (per campaign).
const (
	defaultConcurrency   = 5
	defaultRatePerSecond = 10.0
)

// Worker потребляет очередь одной кампании.
//
// По одному Worker на живую очередь; жизненным циклом управляет
// queue.Manager. Worker ограничивает конкурентность и частоту взятия
// jobs, делегирует обработку Processor'у и применяет ErrorHandler
// к job-level сбоям.
type Worker struct {
	campaignID uuid.UUID
	queueName  string

	conn         *mq.Connection
	processor    *Processor
	errorHandler *ErrorHandler
	logger       *slog.Logger

	concurrency   int
	ratePerSecond float64

	mu       sync.Mutex
	consumer *mq.Consumer
	baseCtx  context.Context
	paused   bool
	inFlight int
	wg       sync.WaitGroup
}

// Config — конфигурация Worker.
type Config struct {
	CampaignID uuid.UUID
	QueueName  string

	Conn         *mq.Connection
	Processor    *Processor
	ErrorHandler *ErrorHandler
	Logger       *slog.Logger

	// Concurrency — максимум одновременных jobs (default: 5).
	Concurrency int

	// RatePerSecond — максимум jobs в секунду (default: 10).
	RatePerSecond float64
}

// New создаёт Worker.
func New(cfg Config) *Worker {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	rate := cfg.RatePerSecond
	if rate <= 0 {
		rate = defaultRatePerSecond
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Worker{
		campaignID:    cfg.CampaignID,
		queueName:     cfg.QueueName,
		conn:          cfg.Conn,
		processor:     cfg.Processor,
		errorHandler:  cfg.ErrorHandler,
		logger:        logger.With("campaign_id", cfg.CampaignID, "queue", cfg.QueueName),
		concurrency:   concurrency,
		ratePerSecond: rate,
	}
}

// Start запускает потребление очереди кампании. Не блокируется.
func (w *Worker) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.baseCtx = ctx
	w.startConsumerLocked()
}

// startConsumerLocked создаёт consumer и запускает его в горутине.
// Вызывается под w.mu.
func (w *Worker) startConsumerLocked() {
	consumer := mq.NewConsumer(w.conn, w.logger, mq.ConsumerConfig{
		Queue:         w.queueName,
		Handler:       w.handleJob,
		Concurrency:   w.concurrency,
		RatePerSecond: w.ratePerSecond,
		RateBurst:     w.concurrency,
	})
	w.consumer = consumer
	w.paused = false

	ctx := w.baseCtx
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.Error("campaign consumer error", "error", err)
		}
	}()

	w.logger.Info("campaign worker started", "concurrency", w.concurrency)
}

// Pause останавливает dequeue. Сообщения копятся в очереди брокера,
// in-flight jobs дорабатывают.
func (w *Worker) Pause() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.paused {
		return
	}
	w.paused = true

	if w.consumer != nil {
		w.consumer.Stop()
		w.consumer = nil
	}

	w.logger.Info("campaign worker paused")
}

// Resume возобновляет dequeue ранее приостановленного worker'а.
func (w *Worker) Resume() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.paused {
		return
	}

	w.startConsumerLocked()
	w.logger.Info("campaign worker resumed")
}

// Stop останавливает worker и дожидается in-flight jobs.
func (w *Worker) Stop() {
	w.mu.Lock()
	if w.consumer != nil {
		w.consumer.Stop()
		w.consumer = nil
	}
	w.mu.Unlock()

	w.wg.Wait()
	w.logger.Info("campaign worker stopped")
}

// IsPaused возвращает true, если dequeue остановлен.
func (w *Worker) IsPaused() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.paused
}

// InFlight возвращает число jobs, выполняющихся прямо сейчас.
func (w *Worker) InFlight() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.inFlight
}

// handleJob — consumer handler одной очереди кампании.
// Сам подтверждает или отклоняет сообщение в зависимости от итога.
func (w *Worker) handleJob(ctx context.Context, delivery *mq.Delivery) error {
	payload, err := mq.ParsePayload[mq.CampaignJobPayload](&delivery.Message)
	if err != nil {
		w.logger.Error("failed to parse job payload", "error", err)
		// Некорректный payload — в DLQ.
		return delivery.Nack(false)
	}

	w.trackInFlight(1)
	defer w.trackInFlight(-1)

	outcome, jobErr := w.processor.ProcessJob(ctx, payload)
	if jobErr != nil {
		outcome, err = w.errorHandler.Handle(ctx, payload, jobErr)
		if err != nil {
			w.logger.Error("error handler failed", "job_id", payload.JobID, "error", err)
			// Handler не отработал — вернуть сообщение в очередь.
			return delivery.Nack(true)
		}
	}

	switch outcome {
	case OutcomePaused:
		// Job вернётся в очередь и будет обработан после resume.
		if err := delivery.Nack(true); err != nil {
			return err
		}
		w.Pause()
		return nil

	case OutcomeFailed:
		// Сбой уже персистирован; копия сообщения уходит в DLQ
		// для ручного разбора.
		return delivery.Nack(false)

	default:
		return delivery.Ack()
	}
}

// trackInFlight обновляет счётчик и метрику in-flight jobs.
func (w *Worker) trackInFlight(delta int) {
	w.mu.Lock()
	w.inFlight += delta
	w.mu.Unlock()

	telemetry.JobsInFlight.WithLabelValues(w.campaignID.String()).Add(float64(delta))
}
