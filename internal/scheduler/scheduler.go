package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Cadence/internal/domain"
	"github.com/shaiso/Cadence/internal/mq"
	"github.com/shaiso/Cadence/internal/repo"
)

// Scheduler — планировщик, создающий runs для due schedules.
type Scheduler struct {
	scheduleRepo *repo.ScheduleRepo
	runRepo      *repo.RunRepo
	workflowRepo *repo.WorkflowRepo
	campaignRepo *repo.CampaignRepo
	leadRepo     *repo.LeadRepo
	conn         *mq.Connection
	publisher    *mq.Publisher
	logger       *slog.Logger
}

// Config — конфигурация Scheduler.
type Config struct {
	ScheduleRepo *repo.ScheduleRepo
	RunRepo      *repo.RunRepo
	WorkflowRepo *repo.WorkflowRepo
	CampaignRepo *repo.CampaignRepo
	LeadRepo     *repo.LeadRepo
	Conn         *mq.Connection
	Publisher    *mq.Publisher
	Logger       *slog.Logger
}

// New создаёт новый Scheduler.
func New(cfg Config) *Scheduler {
	return &Scheduler{
		scheduleRepo: cfg.ScheduleRepo,
		runRepo:      cfg.RunRepo,
		workflowRepo: cfg.WorkflowRepo,
		campaignRepo: cfg.CampaignRepo,
		leadRepo:     cfg.LeadRepo,
		conn:         cfg.Conn,
		publisher:    cfg.Publisher,
		logger:       cfg.Logger,
	}
}

// Tick выполняет один тик планировщика.
//
// 1. Находит due schedules (enabled=true, next_due_at <= now)
// 2. Для каждого создаёт run со snapshot'ами leads и ставит job в очередь
// 3. Сдвигает next_due_at по cron-выражению
//
// Ошибки одного schedule не блокируют обработку остальных.
func (s *Scheduler) Tick(ctx context.Context) error {
	now := time.Now().UTC()

	schedules, err := s.scheduleRepo.ListDue(ctx, now)
	if err != nil {
		return fmt.Errorf("list due schedules: %w", err)
	}

	if len(schedules) == 0 {
		return nil
	}

	s.logger.Debug("found due schedules", "count", len(schedules))

	var processed, created int
	for i := range schedules {
		sched := &schedules[i]

		runCreated, err := s.processSchedule(ctx, sched, now)
		if err != nil {
			s.logger.Error("failed to process schedule",
				"schedule_id", sched.ID,
				"campaign_id", sched.CampaignID,
				"error", err,
			)
			continue
		}

		processed++
		if runCreated {
			created++
		}
	}

	s.logger.Info("scheduler tick completed",
		"due", len(schedules),
		"processed", processed,
		"runs_created", created,
	)

	return nil
}

// processSchedule обрабатывает один schedule.
// Возвращает true, если run был создан (не был дубликатом).
func (s *Scheduler) processSchedule(ctx context.Context, sched *domain.CampaignSchedule, now time.Time) (bool, error) {
	// 1. Кампания должна существовать и быть активной.
	campaign, err := s.campaignRepo.GetByID(ctx, sched.CampaignID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			s.logger.Warn("campaign not found for schedule, skipping",
				"schedule_id", sched.ID,
				"campaign_id", sched.CampaignID,
			)
			return false, s.advance(ctx, sched, now)
		}
		return false, fmt.Errorf("get campaign: %w", err)
	}
	if campaign.Status != domain.CampaignStatusActive {
		s.logger.Debug("campaign is not active, skipping schedule",
			"schedule_id", sched.ID,
			"campaign_id", sched.CampaignID,
			"status", campaign.Status,
		)
		return false, s.advance(ctx, sched, now)
	}

	// 2. Нужна активная версия workflow.
	def, err := s.workflowRepo.GetActive(ctx, sched.CampaignID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			s.logger.Warn("campaign has no active workflow, skipping schedule",
				"schedule_id", sched.ID,
				"campaign_id", sched.CampaignID,
			)
			return false, s.advance(ctx, sched, now)
		}
		return false, fmt.Errorf("get active workflow: %w", err)
	}

	// 3. Ключ идемпотентности: "{schedule_id}_{next_due_at_unix}".
	// Для одного schedule и конкретного времени создаётся ровно один run,
	// сколько бы процессов ни обработало этот тик.
	idempKey := sched.IdempotencyKey(sched.NextDueAt)

	existing, err := s.runRepo.GetByIdempotencyKey(ctx, sched.CampaignID, idempKey)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return false, fmt.Errorf("check idempotency: %w", err)
	}

	if existing != nil {
		s.logger.Debug("run already exists for due time",
			"schedule_id", sched.ID,
			"run_id", existing.ID,
			"idempotency_key", idempKey,
		)
		return false, s.advance(ctx, sched, now)
	}

	// 4. Snapshot leads и создание run.
	leads, err := s.leadRepo.ListByLeadList(ctx, sched.LeadListID)
	if err != nil {
		return false, fmt.Errorf("list leads: %w", err)
	}
	if len(leads) == 0 {
		s.logger.Warn("lead list is empty, skipping schedule",
			"schedule_id", sched.ID,
			"lead_list_id", sched.LeadListID,
		)
		return false, s.advance(ctx, sched, now)
	}

	run := &domain.CampaignRun{
		ID:                   uuid.New(),
		CampaignID:           sched.CampaignID,
		WorkflowDefinitionID: def.ID,
		Status:               domain.RunStatusPending,
		Stats:                domain.RunStats{TotalLeads: len(leads)},
		IdempotencyKey:       idempKey,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	runLeads := make([]domain.CampaignRunLead, len(leads))
	leadIDs := make([]uuid.UUID, len(leads))
	for i := range leads {
		runLeads[i] = domain.CampaignRunLead{
			ID:            uuid.New(),
			CampaignRunID: run.ID,
			LeadID:        leads[i].ID,
			Status:        domain.LeadStatusPending,
			Snapshot:      leads[i].Snapshot(),
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		leadIDs[i] = leads[i].ID
	}

	if err := s.runRepo.CreateWithLeads(ctx, run, runLeads); err != nil {
		return false, fmt.Errorf("create run: %w", err)
	}

	s.logger.Info("created run from schedule",
		"run_id", run.ID,
		"schedule_id", sched.ID,
		"campaign_id", sched.CampaignID,
		"total_leads", len(leads),
	)

	// 5. Очередь и job. Run уже в БД, поэтому ошибки брокера не фатальны:
	// job можно переотправить вручную через API.
	if _, err := mq.DeclareCampaignQueue(ctx, s.conn, sched.CampaignID); err != nil {
		s.logger.Warn("failed to declare campaign queue",
			"campaign_id", sched.CampaignID, "error", err)
	}

	if err := s.publisher.PublishControl(ctx, mq.ControlPayload{
		Command:    mq.ControlCreate,
		CampaignID: sched.CampaignID,
	}); err != nil {
		s.logger.Warn("failed to publish queue create command",
			"campaign_id", sched.CampaignID, "error", err)
	}

	if err := s.publisher.PublishCampaignJob(ctx, mq.CampaignJobPayload{
		JobID:      uuid.New(),
		RunID:      run.ID,
		CampaignID: sched.CampaignID,
		LeadIDs:    leadIDs,
		Attempt:    1,
	}, 0); err != nil {
		s.logger.Warn("failed to publish campaign job",
			"run_id", run.ID, "error", err)
	}

	return true, s.advance(ctx, sched, now)
}

// advance сдвигает next_due_at schedule по cron-выражению.
func (s *Scheduler) advance(ctx context.Context, sched *domain.CampaignSchedule, now time.Time) error {
	nextDue, err := NextDue(sched.CronExpr, now)
	if err != nil {
		// Некорректное выражение: отключаем schedule, иначе он будет
		// due на каждом тике.
		s.logger.Error("failed to calculate next due, disabling schedule",
			"schedule_id", sched.ID,
			"error", err,
		)
		return s.scheduleRepo.SetEnabled(ctx, sched.ID, false)
	}

	if err := s.scheduleRepo.Advance(ctx, sched.ID, nextDue, now); err != nil {
		return fmt.Errorf("advance schedule: %w", err)
	}
	return nil
}
