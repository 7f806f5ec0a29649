package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Cadence/internal/domain"
	"github.com/shaiso/Cadence/internal/engine"
	"github.com/shaiso/Cadence/internal/mq"
	"github.com/shaiso/Cadence/internal/repo"
	"github.com/shaiso/Cadence/internal/telemetry"
)

// Outcome — итог обработки job.
type Outcome string

const (
	// OutcomeCompleted — все leads job обработаны.
	OutcomeCompleted Outcome = "completed"

	// OutcomeSkipped — job проигнорирован (run завершён или отменён).
	OutcomeSkipped Outcome = "skipped"

	// OutcomeRetried — job переотправлен с новым attempt.
	OutcomeRetried Outcome = "retried"

	// OutcomeFailed — job перманентно провален.
	OutcomeFailed Outcome = "failed"

	// OutcomePaused — очередь кампании поставлена на паузу, job вернётся в неё.
	OutcomePaused Outcome = "paused"
)

// Publisher — то, что processor публикует обратно в MQ.
type Publisher interface {
	PublishJobEvent(ctx context.Context, payload mq.JobEventPayload) error
	PublishCampaignJob(ctx context.Context, payload mq.CampaignJobPayload, priority uint8) error
}

// Processor выполняет campaign job: последовательно прогоняет leads
// батча через traversal, персистит результаты и двигает статус run.
type Processor struct {
	storage   Storage
	traverser *engine.Traverser
	publisher Publisher
	logger    *slog.Logger
}

// NewProcessor создаёт Processor.
func NewProcessor(storage Storage, traverser *engine.Traverser, publisher Publisher, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		storage:   storage,
		traverser: traverser,
		publisher: publisher,
		logger:    logger,
	}
}

// ProcessJob обрабатывает один job.
//
// Ошибка означает job-level сбой (инфраструктура или фатальный дефект
// definition); решение о retry/pause/fail принимает ErrorHandler.
// Падение traversal отдельного lead ошибкой job не является: lead
// помечается failed, обработка продолжается.
func (p *Processor) ProcessJob(ctx context.Context, payload mq.CampaignJobPayload) (Outcome, error) {
	run, err := p.storage.GetRun(ctx, payload.RunID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return "", fmt.Errorf("%w: %s", ErrRunNotFound, payload.RunID)
		}
		return "", fmt.Errorf("get run: %w", err)
	}

	if run.Status.IsTerminal() {
		p.logger.Debug("run finished, skipping job",
			"run_id", run.ID, "status", run.Status, "job_id", payload.JobID)
		return OutcomeSkipped, nil
	}

	def, err := p.storage.GetWorkflow(ctx, run.WorkflowDefinitionID)
	if err != nil {
		return "", fmt.Errorf("get workflow definition: %w", err)
	}

	// Compare-and-set: job с attempt > 1 не перезапишет started_at.
	started, err := p.storage.MarkRunningIfPending(ctx, run.ID)
	if err != nil {
		return "", fmt.Errorf("mark run running: %w", err)
	}
	if started {
		p.logger.Info("run started",
			"run_id", run.ID, "campaign_id", run.CampaignID, "total_leads", run.Stats.TotalLeads)
	}

	p.publishEvent(ctx, payload, mq.JobEventActive, "")

	for _, leadID := range payload.LeadIDs {
		// Отмена кооперативная: статус run перечитывается между leads,
		// lead в полёте дорабатывает до конца.
		fresh, err := p.storage.GetRun(ctx, run.ID)
		if err != nil {
			return "", fmt.Errorf("refresh run: %w", err)
		}
		if fresh.Status == domain.RunStatusCanceled {
			p.logger.Info("run canceled, stopping job",
				"run_id", run.ID, "job_id", payload.JobID)
			return OutcomeSkipped, nil
		}
		if fresh.Status.IsTerminal() {
			return OutcomeSkipped, nil
		}

		if err := p.processLead(ctx, def, run, leadID); err != nil {
			return "", err
		}
	}

	return p.finalize(ctx, payload, run)
}

// processLead прогоняет одного lead через traversal и персистит итог.
func (p *Processor) processLead(ctx context.Context, def *domain.WorkflowDefinition, run *domain.CampaignRun, leadID uuid.UUID) error {
	lead, err := p.storage.GetRunLead(ctx, run.ID, leadID)
	if err != nil {
		return fmt.Errorf("get run lead %s: %w", leadID, err)
	}

	// Терминальный lead при retry не обрабатывается повторно.
	if lead.Status.IsTerminal() {
		p.logger.Debug("lead already finished, skipping",
			"run_id", run.ID, "lead_id", leadID, "status", lead.Status)
		return nil
	}

	if err := p.storage.UpdateLeadStatus(ctx, run.ID, leadID, domain.LeadStatusRunning); err != nil {
		return fmt.Errorf("mark lead running: %w", err)
	}

	started := time.Now()
	result, travErr := p.traverser.Traverse(ctx, def, lead.Snapshot)
	telemetry.ObserveTraversal(started)

	if result != nil {
		if err := p.persistRecords(ctx, run.ID, leadID, result.Records); err != nil {
			return err
		}
	}

	// Структурная ошибка обхода фатальна для всего run.
	if travErr != nil {
		if err := p.storage.UpdateLeadStatus(ctx, run.ID, leadID, domain.LeadStatusFailed); err != nil {
			return fmt.Errorf("mark lead failed: %w", err)
		}
		if err := p.storage.AddRunStats(ctx, run.ID, 1, 0, 1); err != nil {
			return fmt.Errorf("add run stats: %w", err)
		}
		return fmt.Errorf("traverse lead %s: %w", leadID, travErr)
	}

	if err := p.storage.UpdateLeadStatus(ctx, run.ID, leadID, result.Status); err != nil {
		return fmt.Errorf("update lead status: %w", err)
	}

	success, failed := 0, 0
	if result.Status == domain.LeadStatusCompleted {
		success = 1
	} else {
		failed = 1
	}
	if err := p.storage.AddRunStats(ctx, run.ID, 1, success, failed); err != nil {
		return fmt.Errorf("add run stats: %w", err)
	}

	telemetry.LeadsProcessed.WithLabelValues(string(result.Status)).Inc()

	level := domain.LogLevelInfo
	if result.Status == domain.LeadStatusFailed {
		level = domain.LogLevelWarn
	}
	p.appendLog(ctx, run.ID, level,
		fmt.Sprintf("lead %s finished with status %s (%d nodes)", leadID, result.Status, len(result.Records)), "")

	return nil
}

// persistRecords сохраняет записи исполнения узлов одного lead.
func (p *Processor) persistRecords(ctx context.Context, runID, leadID uuid.UUID, records []engine.NodeRecord) error {
	if len(records) == 0 {
		return nil
	}

	execs := make([]domain.NodeExecution, 0, len(records))
	for _, rec := range records {
		execs = append(execs, domain.NodeExecution{
			ID:            uuid.New(),
			CampaignRunID: runID,
			LeadID:        leadID,
			NodeID:        rec.NodeID,
			NodeKind:      rec.Kind,
			Status:        rec.Status,
			Input:         rec.Input,
			Output:        rec.Output,
			Error:         rec.Error,
			StartedAt:     rec.StartedAt,
			FinishedAt:    rec.FinishedAt,
		})
		telemetry.NodeExecutions.WithLabelValues(string(rec.Kind), string(rec.Status)).Inc()
	}

	if err := p.storage.InsertNodeExecutions(ctx, execs); err != nil {
		return fmt.Errorf("insert node executions: %w", err)
	}
	return nil
}

// finalize завершает job и, если leads не осталось, весь run.
func (p *Processor) finalize(ctx context.Context, payload mq.CampaignJobPayload, run *domain.CampaignRun) (Outcome, error) {
	unfinished, err := p.storage.ListUnfinishedLeadIDs(ctx, run.ID)
	if err != nil {
		return "", fmt.Errorf("list unfinished leads: %w", err)
	}

	if len(unfinished) == 0 {
		fresh, err := p.storage.GetRun(ctx, run.ID)
		if err != nil {
			return "", fmt.Errorf("refresh run: %w", err)
		}
		if !fresh.Status.IsTerminal() {
			fresh.MarkCompleted()
			if err := p.storage.UpdateRun(ctx, fresh); err != nil {
				return "", fmt.Errorf("complete run: %w", err)
			}
			p.appendLog(ctx, run.ID, domain.LogLevelInfo,
				fmt.Sprintf("run completed: %d processed, %d success, %d failed",
					fresh.Stats.Processed, fresh.Stats.Success, fresh.Stats.Failed), "")
			p.logger.Info("run completed",
				"run_id", run.ID,
				"campaign_id", run.CampaignID,
				"processed", fresh.Stats.Processed,
				"success", fresh.Stats.Success,
				"failed", fresh.Stats.Failed,
			)
		}
	}

	if err := p.storage.AddJobCounters(ctx, payload.CampaignID, 1, 0); err != nil {
		p.logger.Warn("failed to bump queue counters", "campaign_id", payload.CampaignID, "error", err)
	}

	telemetry.JobsProcessed.WithLabelValues(string(OutcomeCompleted)).Inc()
	p.publishEvent(ctx, payload, mq.JobEventCompleted, "")

	return OutcomeCompleted, nil
}

// publishEvent публикует прогресс-событие с актуальными агрегатами run.
// Сбой публикации не фатален: следующее событие принесёт свежие числа.
func (p *Processor) publishEvent(ctx context.Context, payload mq.CampaignJobPayload, status, errMsg string) {
	if p.publisher == nil {
		return
	}

	event := mq.JobEventPayload{
		JobID:      payload.JobID,
		RunID:      payload.RunID,
		CampaignID: payload.CampaignID,
		Status:     status,
		Error:      errMsg,
	}

	if run, err := p.storage.GetRun(ctx, payload.RunID); err == nil {
		event.Processed = run.Stats.Processed
		event.Success = run.Stats.Success
		event.Failed = run.Stats.Failed
		event.Total = run.Stats.TotalLeads
	}

	if err := p.publisher.PublishJobEvent(ctx, event); err != nil {
		p.logger.Warn("failed to publish job event",
			"job_id", payload.JobID, "status", status, "error", err)
	}
}

// appendLog пишет строку в campaign_logs. Сбой записи лога не
// прерывает обработку.
func (p *Processor) appendLog(ctx context.Context, runID uuid.UUID, level domain.LogLevel, msg, nodeID string) {
	log := &domain.CampaignLog{
		ID:            uuid.New(),
		CampaignRunID: runID,
		Level:         level,
		Message:       msg,
		NodeID:        nodeID,
		Timestamp:     time.Now().UTC(),
	}
	if err := p.storage.AppendLog(ctx, log); err != nil {
		p.logger.Warn("failed to append campaign log", "run_id", runID, "error", err)
	}
}
