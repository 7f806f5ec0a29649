package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Cadence/internal/domain"
	"github.com/shaiso/Cadence/internal/mq"
	"github.com/shaiso/Cadence/internal/repo"
	"github.com/shaiso/Cadence/internal/telemetry"
)

// defaultWorkerCount — конкурентность очереди по умолчанию.
const defaultWorkerCount = 5

// Transport — операции с брокером, нужные менеджеру.
type Transport interface {
	DeclareQueue(ctx context.Context, campaignID uuid.UUID) (string, error)
	DeleteQueue(ctx context.Context, campaignID uuid.UUID) error
	QueueDepth(ctx context.Context, campaignID uuid.UUID) (int, error)
}

// Store — операции с таблицей campaign_queues.
type Store interface {
	CreateQueue(ctx context.Context, q *domain.CampaignQueue) error
	GetQueue(ctx context.Context, campaignID uuid.UUID) (*domain.CampaignQueue, error)
	ListQueues(ctx context.Context) ([]domain.CampaignQueue, error)
	SetQueueStatus(ctx context.Context, campaignID uuid.UUID, status domain.QueueStatus) error
	DeleteQueueRecord(ctx context.Context, campaignID uuid.UUID) error
}

// JobRunner — то, чем менеджер управляет per campaign.
// Реализуется worker.Worker.
type JobRunner interface {
	Start(ctx context.Context)
	Pause()
	Resume()
	Stop()
	IsPaused() bool
	InFlight() int
}

// WorkerFactory создаёт runner для очереди кампании.
type WorkerFactory func(campaignID uuid.UUID, queueName string, workerCount int) JobRunner

// Manager — реестр живых очередей кампаний в этом процессе.
//
// Создание, пауза, возобновление и удаление очередей идут через
// Manager; состояние дублируется в campaign_queues, чтобы после
// рестарта Rediscover восстановил реестр. Команды от других процессов
// приходят через control exchange в HandleControl.
type Manager struct {
	transport Transport
	store     Store
	factory   WorkerFactory
	logger    *slog.Logger

	mu      sync.Mutex
	baseCtx context.Context
	entries map[uuid.UUID]*entry
}

type entry struct {
	queue  domain.CampaignQueue
	runner JobRunner
}

// ManagerConfig — конфигурация Manager.
type ManagerConfig struct {
	Transport Transport
	Store     Store
	Factory   WorkerFactory
	Logger    *slog.Logger
}

// NewManager создаёт Manager.
func NewManager(cfg ManagerConfig) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		transport: cfg.Transport,
		store:     cfg.Store,
		factory:   cfg.Factory,
		logger:    logger,
		entries:   map[uuid.UUID]*entry{},
	}
}

// Start запоминает базовый контекст runners и восстанавливает реестр
// из БД.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	m.baseCtx = ctx
	m.mu.Unlock()

	return m.Rediscover(ctx)
}

// Create создаёт очередь кампании: объявляет её в брокере, пишет
// запись в БД и запускает runner.
func (m *Manager) Create(ctx context.Context, campaignID uuid.UUID, workerCount int) (*domain.CampaignQueue, error) {
	if workerCount <= 0 {
		workerCount = defaultWorkerCount
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[campaignID]; ok {
		return nil, fmt.Errorf("%w: campaign %s", ErrQueueExists, campaignID)
	}

	queueName, err := m.transport.DeclareQueue(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	now := time.Now().UTC()
	q := &domain.CampaignQueue{
		ID:          uuid.New(),
		CampaignID:  campaignID,
		QueueName:   queueName,
		WorkerCount: workerCount,
		Status:      domain.QueueStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := m.store.CreateQueue(ctx, q); err != nil {
		if errors.Is(err, repo.ErrAlreadyExists) {
			// Запись есть (другой процесс или прошлая жизнь этого) —
			// подхватываем её вместо создания.
			existing, getErr := m.store.GetQueue(ctx, campaignID)
			if getErr != nil {
				return nil, fmt.Errorf("get existing queue: %w", getErr)
			}
			q = existing
		} else {
			return nil, fmt.Errorf("create queue record: %w", err)
		}
	}

	m.startLocked(q)
	m.logger.Info("campaign queue created",
		"campaign_id", campaignID, "queue", queueName, "worker_count", q.WorkerCount)

	return q, nil
}

// startLocked запускает runner и регистрирует entry. Вызывается под m.mu.
func (m *Manager) startLocked(q *domain.CampaignQueue) {
	runner := m.factory(q.CampaignID, q.QueueName, q.WorkerCount)
	runner.Start(m.baseCtx)
	if q.Status == domain.QueueStatusPaused {
		runner.Pause()
	}

	m.entries[q.CampaignID] = &entry{queue: *q, runner: runner}
	telemetry.ActiveQueues.Set(float64(len(m.entries)))
}

// Pause останавливает dequeue очереди кампании. Jobs копятся в брокере.
func (m *Manager) Pause(ctx context.Context, campaignID uuid.UUID) error {
	m.mu.Lock()
	e, ok := m.entries[campaignID]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: campaign %s", ErrQueueNotFound, campaignID)
	}

	e.runner.Pause()
	if err := m.store.SetQueueStatus(ctx, campaignID, domain.QueueStatusPaused); err != nil {
		return fmt.Errorf("persist paused status: %w", err)
	}

	m.logger.Info("campaign queue paused", "campaign_id", campaignID)
	return nil
}

// Resume возобновляет dequeue ранее приостановленной очереди.
func (m *Manager) Resume(ctx context.Context, campaignID uuid.UUID) error {
	m.mu.Lock()
	e, ok := m.entries[campaignID]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: campaign %s", ErrQueueNotFound, campaignID)
	}

	e.runner.Resume()
	if err := m.store.SetQueueStatus(ctx, campaignID, domain.QueueStatusActive); err != nil {
		return fmt.Errorf("persist active status: %w", err)
	}

	m.logger.Info("campaign queue resumed", "campaign_id", campaignID)
	return nil
}

// Remove останавливает runner и удаляет очередь из брокера и БД
// вместе с накопленными jobs. Повторный вызов для уже удалённой
// кампании — no-op: чистка брокера и БД выполняется в любом случае,
// чтобы подобрать осиротевшие ресурсы.
func (m *Manager) Remove(ctx context.Context, campaignID uuid.UUID) error {
	m.mu.Lock()
	e, ok := m.entries[campaignID]
	if ok {
		delete(m.entries, campaignID)
		telemetry.ActiveQueues.Set(float64(len(m.entries)))
	}
	m.mu.Unlock()

	if ok {
		e.runner.Stop()
	}

	if err := m.transport.DeleteQueue(ctx, campaignID); err != nil {
		m.logger.Warn("failed to delete broker queue", "campaign_id", campaignID, "error", err)
	}
	if err := m.store.DeleteQueueRecord(ctx, campaignID); err != nil && !errors.Is(err, repo.ErrNotFound) {
		return fmt.Errorf("delete queue record: %w", err)
	}

	if !ok {
		m.logger.Debug("remove for unknown campaign queue", "campaign_id", campaignID)
		return nil
	}

	m.logger.Info("campaign queue removed", "campaign_id", campaignID)
	return nil
}

// Status возвращает point-in-time снимок счётчиков очереди.
// Поля собираются из трёх источников (брокер, runner, БД) без общей
// транзакции, согласованность между ними не гарантируется.
func (m *Manager) Status(ctx context.Context, campaignID uuid.UUID) (*domain.QueueCounts, error) {
	m.mu.Lock()
	e, ok := m.entries[campaignID]
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: campaign %s", ErrQueueNotFound, campaignID)
	}

	counts := &domain.QueueCounts{
		Active: e.runner.InFlight(),
		Paused: e.runner.IsPaused(),
	}

	waiting, err := m.transport.QueueDepth(ctx, campaignID)
	if err != nil {
		m.logger.Warn("failed to inspect queue depth", "campaign_id", campaignID, "error", err)
	} else {
		counts.Waiting = waiting
	}

	q, err := m.store.GetQueue(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("get queue record: %w", err)
	}
	counts.Completed = q.CompletedJobs
	counts.Failed = q.FailedJobs

	return counts, nil
}

// Rediscover восстанавливает реестр из campaign_queues: для каждой
// записи без локального entry заново объявляется очередь в брокере и
// запускается runner. Paused очереди поднимаются приостановленными.
func (m *Manager) Rediscover(ctx context.Context) error {
	queues, err := m.store.ListQueues(ctx)
	if err != nil {
		return fmt.Errorf("list queues: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range queues {
		q := &queues[i]
		if _, ok := m.entries[q.CampaignID]; ok {
			continue
		}

		if _, err := m.transport.DeclareQueue(ctx, q.CampaignID); err != nil {
			m.logger.Error("failed to redeclare queue",
				"campaign_id", q.CampaignID, "queue", q.QueueName, "error", err)
			continue
		}

		m.startLocked(q)
		m.logger.Info("campaign queue rediscovered",
			"campaign_id", q.CampaignID, "queue", q.QueueName, "status", q.Status)
	}

	return nil
}

// HandleControl — consumer handler команд с control exchange.
// Команды идемпотентны; для кампаний без локальной очереди pause,
// resume и remove игнорируются.
func (m *Manager) HandleControl(ctx context.Context, delivery *mq.Delivery) error {
	payload, err := mq.ParsePayload[mq.ControlPayload](&delivery.Message)
	if err != nil {
		m.logger.Error("failed to parse control payload", "error", err)
		return delivery.Nack(false)
	}

	m.logger.Debug("control command received",
		"command", payload.Command, "campaign_id", payload.CampaignID)

	switch payload.Command {
	case mq.ControlCreate:
		if _, err := m.Create(ctx, payload.CampaignID, payload.WorkerCount); err != nil && !errors.Is(err, ErrQueueExists) {
			m.logger.Error("control create failed", "campaign_id", payload.CampaignID, "error", err)
			return delivery.Nack(true)
		}

	case mq.ControlPause:
		if err := m.Pause(ctx, payload.CampaignID); err != nil && !errors.Is(err, ErrQueueNotFound) {
			m.logger.Error("control pause failed", "campaign_id", payload.CampaignID, "error", err)
			return delivery.Nack(true)
		}

	case mq.ControlResume:
		if err := m.Resume(ctx, payload.CampaignID); err != nil && !errors.Is(err, ErrQueueNotFound) {
			m.logger.Error("control resume failed", "campaign_id", payload.CampaignID, "error", err)
			return delivery.Nack(true)
		}

	case mq.ControlRemove:
		if err := m.Remove(ctx, payload.CampaignID); err != nil {
			m.logger.Error("control remove failed", "campaign_id", payload.CampaignID, "error", err)
			return delivery.Nack(true)
		}

	default:
		m.logger.Warn("unknown control command", "command", payload.Command)
	}

	return delivery.Ack()
}

// Shutdown останавливает все runners, не трогая брокер и БД:
// очереди переживают рестарт процесса.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	entries := make([]*entry, 0, len(m.entries))
	for _, e := range m.entries {
		entries = append(entries, e)
	}
	m.entries = map[uuid.UUID]*entry{}
	telemetry.ActiveQueues.Set(0)
	m.mu.Unlock()

	for _, e := range entries {
		e.runner.Stop()
	}

	m.logger.Info("queue manager stopped", "queues", len(entries))
}
