package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Cadence/internal/domain"
	"github.com/shaiso/Cadence/internal/mq"
	"github.com/shaiso/Cadence/internal/telemetry"
)

// Параметры retry по умолчанию.
const (
	defaultMaxAttempts = 3
	defaultBackoffBase = time.Second
)

// ErrorHandler применяет error strategy кампании к job-level сбою.
//
// Стратегии:
//   - retry-with-backoff: переотправить job с exponential backoff,
//     в payload попадают только незавершённые leads;
//   - pause-on-failure: остановить очередь кампании, job вернётся в неё;
//   - skip-and-continue: пометить незавершённые leads failed и жить дальше.
//
// Фатальные ошибки (IsFatal) проваливают run сразу, стратегия не
// применяется: retry не чинит цикл в definition.
type ErrorHandler struct {
	storage   Storage
	publisher Publisher
	logger    *slog.Logger

	maxAttempts int
	backoffBase time.Duration
}

// ErrorHandlerConfig — конфигурация ErrorHandler.
type ErrorHandlerConfig struct {
	Storage   Storage
	Publisher Publisher
	Logger    *slog.Logger

	// MaxAttempts — максимум попыток job (default: 3).
	MaxAttempts int

	// BackoffBase — базовая задержка retry (default: 1s).
	// Задержка попытки n: BackoffBase * 2^(n-1).
	BackoffBase time.Duration
}

// NewErrorHandler создаёт ErrorHandler.
func NewErrorHandler(cfg ErrorHandlerConfig) *ErrorHandler {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	backoffBase := cfg.BackoffBase
	if backoffBase <= 0 {
		backoffBase = defaultBackoffBase
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &ErrorHandler{
		storage:     cfg.Storage,
		publisher:   cfg.Publisher,
		logger:      logger,
		maxAttempts: maxAttempts,
		backoffBase: backoffBase,
	}
}

// Handle обрабатывает job-level сбой и возвращает итог для consumer'а.
// Ошибка возвращается, только если сам handler не смог отработать
// (тогда сообщение уйдёт в nack/requeue).
func (h *ErrorHandler) Handle(ctx context.Context, payload mq.CampaignJobPayload, jobErr error) (Outcome, error) {
	h.logger.Warn("job failed",
		"job_id", payload.JobID,
		"run_id", payload.RunID,
		"campaign_id", payload.CampaignID,
		"attempt", payload.Attempt,
		"error", jobErr,
	)

	if IsFatal(jobErr) {
		h.logger.Error("fatal job error, failing run without retry",
			"job_id", payload.JobID, "run_id", payload.RunID, "error", jobErr)
		return h.failJob(ctx, payload, jobErr)
	}

	strategy := domain.ErrorStrategyRetryWithBackoff
	if campaign, err := h.storage.GetCampaign(ctx, payload.CampaignID); err == nil {
		strategy = campaign.Strategy()
	} else {
		h.logger.Warn("failed to load campaign, using default strategy",
			"campaign_id", payload.CampaignID, "error", err)
	}

	switch strategy {
	case domain.ErrorStrategyPauseOnFailure:
		return h.pauseQueue(ctx, payload, jobErr)

	case domain.ErrorStrategySkipAndContinue:
		return h.skipJob(ctx, payload, jobErr)

	default:
		return h.retryJob(ctx, payload, jobErr)
	}
}

// retryJob переотправляет job с exponential backoff. В payload нового
// attempt попадают только незавершённые leads: обработанные при retry
// не повторяются.
func (h *ErrorHandler) retryJob(ctx context.Context, payload mq.CampaignJobPayload, jobErr error) (Outcome, error) {
	if payload.Attempt >= h.maxAttempts {
		h.logger.Warn("retry attempts exhausted, failing job",
			"job_id", payload.JobID, "attempt", payload.Attempt)
		return h.failJob(ctx, payload, jobErr)
	}

	residual, err := h.storage.ListUnfinishedLeadIDs(ctx, payload.RunID)
	if err != nil {
		return "", fmt.Errorf("list unfinished leads: %w", err)
	}
	if len(residual) == 0 {
		// Всё уже обработано, retry не нужен.
		return OutcomeCompleted, nil
	}

	delay := h.backoffBase << (payload.Attempt - 1)
	h.logger.Info("retrying job",
		"job_id", payload.JobID,
		"attempt", payload.Attempt+1,
		"delay", delay,
		"residual_leads", len(residual),
	)

	select {
	case <-time.After(delay):
	case <-ctx.Done():
		return "", ctx.Err()
	}

	retry := mq.CampaignJobPayload{
		JobID:      payload.JobID,
		RunID:      payload.RunID,
		CampaignID: payload.CampaignID,
		LeadIDs:    residual,
		Attempt:    payload.Attempt + 1,
	}
	if err := h.publisher.PublishCampaignJob(ctx, retry, 0); err != nil {
		return "", fmt.Errorf("republish job: %w", err)
	}

	telemetry.JobsProcessed.WithLabelValues(string(OutcomeRetried)).Inc()
	return OutcomeRetried, nil
}

// pauseQueue останавливает очередь кампании. Job вернётся в очередь
// и будет обработан после resume.
func (h *ErrorHandler) pauseQueue(ctx context.Context, payload mq.CampaignJobPayload, jobErr error) (Outcome, error) {
	if err := h.storage.SetQueueStatus(ctx, payload.CampaignID, domain.QueueStatusPaused); err != nil {
		return "", fmt.Errorf("pause queue: %w", err)
	}

	h.appendLog(ctx, payload, domain.LogLevelError,
		fmt.Sprintf("queue paused after job failure: %v", jobErr))
	h.logger.Warn("queue paused on failure",
		"campaign_id", payload.CampaignID, "job_id", payload.JobID)

	return OutcomePaused, nil
}

// skipJob помечает незавершённые leads этого job failed и завершает
// run, не трогая очередь.
func (h *ErrorHandler) skipJob(ctx context.Context, payload mq.CampaignJobPayload, jobErr error) (Outcome, error) {
	if err := h.failResidualLeads(ctx, payload); err != nil {
		return "", err
	}

	// Все leads теперь терминальные, run можно закрыть.
	run, err := h.storage.GetRun(ctx, payload.RunID)
	if err == nil && !run.Status.IsTerminal() {
		run.MarkCompleted()
		if err := h.storage.UpdateRun(ctx, run); err != nil {
			return "", fmt.Errorf("complete run: %w", err)
		}
	}

	h.appendLog(ctx, payload, domain.LogLevelWarn,
		fmt.Sprintf("job skipped after failure: %v", jobErr))

	return h.failCounters(ctx, payload, "")
}

// failJob перманентно проваливает job и run.
func (h *ErrorHandler) failJob(ctx context.Context, payload mq.CampaignJobPayload, jobErr error) (Outcome, error) {
	if err := h.failResidualLeads(ctx, payload); err != nil {
		return "", err
	}

	run, err := h.storage.GetRun(ctx, payload.RunID)
	if err == nil && !run.Status.IsTerminal() {
		run.MarkFailed(jobErr.Error())
		if err := h.storage.UpdateRun(ctx, run); err != nil {
			return "", fmt.Errorf("fail run: %w", err)
		}
	}

	h.appendLog(ctx, payload, domain.LogLevelError,
		fmt.Sprintf("run failed: %v", jobErr))

	return h.failCounters(ctx, payload, jobErr.Error())
}

// failResidualLeads помечает незавершённые leads run как failed.
func (h *ErrorHandler) failResidualLeads(ctx context.Context, payload mq.CampaignJobPayload) error {
	residual, err := h.storage.ListUnfinishedLeadIDs(ctx, payload.RunID)
	if err != nil {
		return fmt.Errorf("list unfinished leads: %w", err)
	}

	for _, leadID := range residual {
		if err := h.storage.UpdateLeadStatus(ctx, payload.RunID, leadID, domain.LeadStatusFailed); err != nil {
			return fmt.Errorf("fail lead %s: %w", leadID, err)
		}
		if err := h.storage.AddRunStats(ctx, payload.RunID, 1, 0, 1); err != nil {
			return fmt.Errorf("add run stats: %w", err)
		}
		telemetry.LeadsProcessed.WithLabelValues(string(domain.LeadStatusFailed)).Inc()
	}

	return nil
}

// failCounters обновляет счётчики очереди и публикует событие failed.
func (h *ErrorHandler) failCounters(ctx context.Context, payload mq.CampaignJobPayload, errMsg string) (Outcome, error) {
	if err := h.storage.AddJobCounters(ctx, payload.CampaignID, 0, 1); err != nil {
		h.logger.Warn("failed to bump queue counters",
			"campaign_id", payload.CampaignID, "error", err)
	}

	telemetry.JobsProcessed.WithLabelValues(string(OutcomeFailed)).Inc()

	if h.publisher != nil {
		event := mq.JobEventPayload{
			JobID:      payload.JobID,
			RunID:      payload.RunID,
			CampaignID: payload.CampaignID,
			Status:     mq.JobEventFailed,
			Error:      errMsg,
		}
		if run, err := h.storage.GetRun(ctx, payload.RunID); err == nil {
			event.Processed = run.Stats.Processed
			event.Success = run.Stats.Success
			event.Failed = run.Stats.Failed
			event.Total = run.Stats.TotalLeads
		}
		if err := h.publisher.PublishJobEvent(ctx, event); err != nil {
			h.logger.Warn("failed to publish job event", "job_id", payload.JobID, "error", err)
		}
	}

	return OutcomeFailed, nil
}

func (h *ErrorHandler) appendLog(ctx context.Context, payload mq.CampaignJobPayload, level domain.LogLevel, msg string) {
	log := &domain.CampaignLog{
		ID:            uuid.New(),
		CampaignRunID: payload.RunID,
		Level:         level,
		Message:       msg,
		Timestamp:     time.Now().UTC(),
	}
	if err := h.storage.AppendLog(ctx, log); err != nil {
		h.logger.Warn("failed to append campaign log", "run_id", payload.RunID, "error", err)
	}
}
