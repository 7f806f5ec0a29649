package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Cadence/internal/actions"
	"github.com/shaiso/Cadence/internal/domain"
	"github.com/shaiso/Cadence/internal/engine"
	"github.com/shaiso/Cadence/internal/mq"
	"github.com/shaiso/Cadence/internal/repo"
)

// fakeStorage — in-memory реализация Storage для тестов.
type fakeStorage struct {
	mu sync.Mutex

	runs      map[uuid.UUID]*domain.CampaignRun
	campaigns map[uuid.UUID]*domain.Campaign
	workflows map[uuid.UUID]*domain.WorkflowDefinition
	leads     map[uuid.UUID]map[uuid.UUID]*domain.CampaignRunLead

	execs []domain.NodeExecution
	logs  []domain.CampaignLog

	queueStatus map[uuid.UUID]domain.QueueStatus
	completed   map[uuid.UUID]int
	failed      map[uuid.UUID]int
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		runs:        map[uuid.UUID]*domain.CampaignRun{},
		campaigns:   map[uuid.UUID]*domain.Campaign{},
		workflows:   map[uuid.UUID]*domain.WorkflowDefinition{},
		leads:       map[uuid.UUID]map[uuid.UUID]*domain.CampaignRunLead{},
		queueStatus: map[uuid.UUID]domain.QueueStatus{},
		completed:   map[uuid.UUID]int{},
		failed:      map[uuid.UUID]int{},
	}
}

func (f *fakeStorage) GetRun(_ context.Context, id uuid.UUID) (*domain.CampaignRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	run, ok := f.runs[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	c := *run
	return &c, nil
}

func (f *fakeStorage) UpdateRun(_ context.Context, run *domain.CampaignRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.runs[run.ID]
	if !ok {
		return repo.ErrNotFound
	}
	stats := stored.Stats
	c := *run
	c.Stats = stats
	f.runs[run.ID] = &c
	return nil
}

func (f *fakeStorage) MarkRunningIfPending(_ context.Context, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	run, ok := f.runs[id]
	if !ok {
		return false, repo.ErrNotFound
	}
	if run.Status != domain.RunStatusPending {
		return false, nil
	}
	run.MarkRunning()
	return true, nil
}

func (f *fakeStorage) AddRunStats(_ context.Context, id uuid.UUID, processed, success, failed int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	run, ok := f.runs[id]
	if !ok {
		return repo.ErrNotFound
	}
	run.Stats.Processed += processed
	run.Stats.Success += success
	run.Stats.Failed += failed
	return nil
}

func (f *fakeStorage) GetCampaign(_ context.Context, id uuid.UUID) (*domain.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.campaigns[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeStorage) GetWorkflow(_ context.Context, id uuid.UUID) (*domain.WorkflowDefinition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	def, ok := f.workflows[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return def, nil
}

func (f *fakeStorage) GetRunLead(_ context.Context, runID, leadID uuid.UUID) (*domain.CampaignRunLead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lead, ok := f.leads[runID][leadID]
	if !ok {
		return nil, repo.ErrNotFound
	}
	c := *lead
	return &c, nil
}

func (f *fakeStorage) UpdateLeadStatus(_ context.Context, runID, leadID uuid.UUID, status domain.LeadStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	lead, ok := f.leads[runID][leadID]
	if !ok {
		return repo.ErrNotFound
	}
	lead.Status = status
	return nil
}

func (f *fakeStorage) ListUnfinishedLeadIDs(_ context.Context, runID uuid.UUID) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []uuid.UUID
	for id, lead := range f.leads[runID] {
		if !lead.Status.IsTerminal() {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (f *fakeStorage) InsertNodeExecutions(_ context.Context, execs []domain.NodeExecution) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.execs = append(f.execs, execs...)
	return nil
}

func (f *fakeStorage) AppendLog(_ context.Context, log *domain.CampaignLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, *log)
	return nil
}

func (f *fakeStorage) AddJobCounters(_ context.Context, campaignID uuid.UUID, completed, failed int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed[campaignID] += completed
	f.failed[campaignID] += failed
	return nil
}

func (f *fakeStorage) SetQueueStatus(_ context.Context, campaignID uuid.UUID, status domain.QueueStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queueStatus[campaignID] = status
	return nil
}

// fakePublisher записывает публикации.
type fakePublisher struct {
	mu     sync.Mutex
	events []mq.JobEventPayload
	jobs   []mq.CampaignJobPayload
}

func (f *fakePublisher) PublishJobEvent(_ context.Context, payload mq.JobEventPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, payload)
	return nil
}

func (f *fakePublisher) PublishCampaignJob(_ context.Context, payload mq.CampaignJobPayload, _ uint8) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, payload)
	return nil
}

// fixture — готовый набор: кампания, run с двумя leads, линейный workflow.
type fixture struct {
	storage   *fakeStorage
	publisher *fakePublisher
	processor *Processor

	campaign domain.Campaign
	run      domain.CampaignRun
	leadIDs  []uuid.UUID
	payload  mq.CampaignJobPayload
}

func newFixture(t *testing.T, strategy domain.ErrorStrategy) *fixture {
	t.Helper()

	storage := newFakeStorage()
	publisher := &fakePublisher{}

	campaign := domain.Campaign{
		ID:            uuid.New(),
		Name:          "test campaign",
		Status:        domain.CampaignStatusActive,
		ErrorStrategy: strategy,
	}
	storage.campaigns[campaign.ID] = &campaign

	def := &domain.WorkflowDefinition{
		ID:         uuid.New(),
		CampaignID: campaign.ID,
		Version:    1,
		Nodes: []domain.Node{
			{ID: "n1", Kind: domain.KindStart},
			{ID: "n2", Kind: domain.KindSendMessage},
		},
		Edges:    []domain.Edge{{ID: "e1", Source: "n1", Target: "n2"}},
		IsActive: true,
	}
	storage.workflows[def.ID] = def

	run := domain.CampaignRun{
		ID:                   uuid.New(),
		CampaignID:           campaign.ID,
		WorkflowDefinitionID: def.ID,
		Status:               domain.RunStatusPending,
		Stats:                domain.RunStats{TotalLeads: 2},
	}
	storage.runs[run.ID] = &run

	leadIDs := []uuid.UUID{uuid.New(), uuid.New()}
	storage.leads[run.ID] = map[uuid.UUID]*domain.CampaignRunLead{}
	for _, id := range leadIDs {
		storage.leads[run.ID][id] = &domain.CampaignRunLead{
			ID:            uuid.New(),
			CampaignRunID: run.ID,
			LeadID:        id,
			Status:        domain.LeadStatusPending,
			Snapshot:      map[string]any{"firstName": "Ivan", "connected": false},
		}
	}

	traverser := engine.NewTraverser(actions.NewRegistry(), nil)
	processor := NewProcessor(storage, traverser, publisher, nil)

	return &fixture{
		storage:   storage,
		publisher: publisher,
		processor: processor,
		campaign:  campaign,
		run:       run,
		leadIDs:   leadIDs,
		payload: mq.CampaignJobPayload{
			JobID:      uuid.New(),
			RunID:      run.ID,
			CampaignID: campaign.ID,
			LeadIDs:    leadIDs,
			Attempt:    1,
		},
	}
}

func TestProcessJobCompletesRun(t *testing.T) {
	fx := newFixture(t, "")

	outcome, err := fx.processor.ProcessJob(context.Background(), fx.payload)
	if err != nil {
		t.Fatalf("ProcessJob: %v", err)
	}
	if outcome != OutcomeCompleted {
		t.Fatalf("outcome = %s, want %s", outcome, OutcomeCompleted)
	}

	run := fx.storage.runs[fx.run.ID]
	if run.Status != domain.RunStatusCompleted {
		t.Fatalf("run status = %s, want %s", run.Status, domain.RunStatusCompleted)
	}
	if run.Stats.Processed != 2 || run.Stats.Success != 2 || run.Stats.Failed != 0 {
		t.Fatalf("stats = %+v, want 2 processed / 2 success", run.Stats)
	}
	if run.StartedAt == nil || run.EndedAt == nil {
		t.Fatal("started_at/ended_at not set")
	}

	for _, id := range fx.leadIDs {
		if got := fx.storage.leads[fx.run.ID][id].Status; got != domain.LeadStatusCompleted {
			t.Errorf("lead %s status = %s, want completed", id, got)
		}
	}

	// 2 узла на lead, 2 lead.
	if len(fx.storage.execs) != 4 {
		t.Fatalf("node executions = %d, want 4", len(fx.storage.execs))
	}

	if fx.storage.completed[fx.campaign.ID] != 1 {
		t.Fatalf("completed jobs counter = %d, want 1", fx.storage.completed[fx.campaign.ID])
	}

	var sawActive, sawCompleted bool
	for _, e := range fx.publisher.events {
		switch e.Status {
		case mq.JobEventActive:
			sawActive = true
		case mq.JobEventCompleted:
			sawCompleted = true
			if e.Processed != 2 || e.Total != 2 {
				t.Errorf("completed event aggregates = %+v", e)
			}
		}
	}
	if !sawActive || !sawCompleted {
		t.Fatalf("events missing: active=%v completed=%v", sawActive, sawCompleted)
	}
}

// Терминальные leads при retry не обрабатываются повторно.
func TestProcessJobSkipsFinishedLeads(t *testing.T) {
	fx := newFixture(t, "")

	fx.storage.leads[fx.run.ID][fx.leadIDs[0]].Status = domain.LeadStatusCompleted
	fx.storage.runs[fx.run.ID].Stats.Processed = 1
	fx.storage.runs[fx.run.ID].Stats.Success = 1

	outcome, err := fx.processor.ProcessJob(context.Background(), fx.payload)
	if err != nil {
		t.Fatalf("ProcessJob: %v", err)
	}
	if outcome != OutcomeCompleted {
		t.Fatalf("outcome = %s, want %s", outcome, OutcomeCompleted)
	}

	// Только второй lead прошёл traversal.
	if len(fx.storage.execs) != 2 {
		t.Fatalf("node executions = %d, want 2", len(fx.storage.execs))
	}

	run := fx.storage.runs[fx.run.ID]
	if run.Stats.Processed != 2 || run.Stats.Success != 2 {
		t.Fatalf("stats = %+v, want 2/2", run.Stats)
	}
}

func TestProcessJobSkipsTerminalRun(t *testing.T) {
	fx := newFixture(t, "")
	fx.storage.runs[fx.run.ID].Status = domain.RunStatusCanceled

	outcome, err := fx.processor.ProcessJob(context.Background(), fx.payload)
	if err != nil {
		t.Fatalf("ProcessJob: %v", err)
	}
	if outcome != OutcomeSkipped {
		t.Fatalf("outcome = %s, want %s", outcome, OutcomeSkipped)
	}
	if len(fx.storage.execs) != 0 {
		t.Fatal("leads processed for canceled run")
	}
}

// Отмена кооперативная: статус run перечитывается перед каждым lead.
// Run, отменённый во время обработки первого lead, останавливает цикл,
// второй lead остаётся нетронутым.
func TestProcessJobStopsAfterMidJobCancel(t *testing.T) {
	fx := newFixture(t, "")

	registry := actions.NewRegistry()
	registry.Register(domain.KindSendMessage, actions.ExecutorFunc(
		func(_ context.Context, _ *domain.Node, _ *actions.ExecContext) (*actions.Result, error) {
			fx.storage.mu.Lock()
			fx.storage.runs[fx.run.ID].MarkCanceled()
			fx.storage.mu.Unlock()
			return &actions.Result{NextHandle: domain.DefaultHandle}, nil
		}))
	fx.processor = NewProcessor(fx.storage, engine.NewTraverser(registry, nil), fx.publisher, nil)

	outcome, err := fx.processor.ProcessJob(context.Background(), fx.payload)
	if err != nil {
		t.Fatalf("ProcessJob: %v", err)
	}
	if outcome != OutcomeSkipped {
		t.Fatalf("outcome = %s, want %s", outcome, OutcomeSkipped)
	}

	// Lead в полёте дорабатывает до конца, следующий не начинается.
	if got := fx.storage.leads[fx.run.ID][fx.leadIDs[0]].Status; got != domain.LeadStatusCompleted {
		t.Fatalf("first lead status = %s, want completed", got)
	}
	if got := fx.storage.leads[fx.run.ID][fx.leadIDs[1]].Status; got != domain.LeadStatusPending {
		t.Fatalf("second lead status = %s, want pending", got)
	}
	if len(fx.storage.execs) != 2 {
		t.Fatalf("node executions = %d, want 2", len(fx.storage.execs))
	}
}

func TestProcessJobMissingRun(t *testing.T) {
	fx := newFixture(t, "")
	fx.payload.RunID = uuid.New()

	_, err := fx.processor.ProcessJob(context.Background(), fx.payload)
	if !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("err = %v, want ErrRunNotFound", err)
	}
	if !IsFatal(err) {
		t.Fatal("missing run must be fatal")
	}
}

func TestProcessJobCycleIsFatal(t *testing.T) {
	fx := newFixture(t, "")

	def := fx.storage.workflows[fx.run.WorkflowDefinitionID]
	def.Edges = append(def.Edges, domain.Edge{ID: "e2", Source: "n2", Target: "n1"})

	_, err := fx.processor.ProcessJob(context.Background(), fx.payload)
	if !errors.Is(err, engine.ErrCycleDetected) {
		t.Fatalf("err = %v, want ErrCycleDetected", err)
	}
	if !IsFatal(err) {
		t.Fatal("cycle must be fatal")
	}
}

func newHandler(fx *fixture) *ErrorHandler {
	return NewErrorHandler(ErrorHandlerConfig{
		Storage:     fx.storage,
		Publisher:   fx.publisher,
		MaxAttempts: 3,
		BackoffBase: time.Millisecond,
	})
}

func TestErrorHandlerRetryPublishesResidual(t *testing.T) {
	fx := newFixture(t, domain.ErrorStrategyRetryWithBackoff)

	// Первый lead уже завершён, второй — нет.
	fx.storage.leads[fx.run.ID][fx.leadIDs[0]].Status = domain.LeadStatusCompleted

	outcome, err := newHandler(fx).Handle(context.Background(), fx.payload, fmt.Errorf("db timeout"))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if outcome != OutcomeRetried {
		t.Fatalf("outcome = %s, want %s", outcome, OutcomeRetried)
	}

	if len(fx.publisher.jobs) != 1 {
		t.Fatalf("republished jobs = %d, want 1", len(fx.publisher.jobs))
	}
	retry := fx.publisher.jobs[0]
	if retry.Attempt != 2 {
		t.Fatalf("retry attempt = %d, want 2", retry.Attempt)
	}
	if len(retry.LeadIDs) != 1 || retry.LeadIDs[0] != fx.leadIDs[1] {
		t.Fatalf("retry leads = %v, want only unfinished lead", retry.LeadIDs)
	}
}

func TestErrorHandlerRetryExhausted(t *testing.T) {
	fx := newFixture(t, domain.ErrorStrategyRetryWithBackoff)
	fx.payload.Attempt = 3

	outcome, err := newHandler(fx).Handle(context.Background(), fx.payload, fmt.Errorf("db timeout"))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if outcome != OutcomeFailed {
		t.Fatalf("outcome = %s, want %s", outcome, OutcomeFailed)
	}

	run := fx.storage.runs[fx.run.ID]
	if run.Status != domain.RunStatusFailed {
		t.Fatalf("run status = %s, want failed", run.Status)
	}
	if fx.storage.failed[fx.campaign.ID] != 1 {
		t.Fatalf("failed jobs counter = %d, want 1", fx.storage.failed[fx.campaign.ID])
	}

	// Незавершённые leads помечены failed.
	for _, id := range fx.leadIDs {
		if got := fx.storage.leads[fx.run.ID][id].Status; got != domain.LeadStatusFailed {
			t.Errorf("lead %s status = %s, want failed", id, got)
		}
	}
}

func TestErrorHandlerPauseOnFailure(t *testing.T) {
	fx := newFixture(t, domain.ErrorStrategyPauseOnFailure)

	outcome, err := newHandler(fx).Handle(context.Background(), fx.payload, fmt.Errorf("db timeout"))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if outcome != OutcomePaused {
		t.Fatalf("outcome = %s, want %s", outcome, OutcomePaused)
	}
	if fx.storage.queueStatus[fx.campaign.ID] != domain.QueueStatusPaused {
		t.Fatal("queue not paused in storage")
	}

	// Run не провален: после resume job обработается заново.
	if fx.storage.runs[fx.run.ID].Status == domain.RunStatusFailed {
		t.Fatal("run must not be failed on pause")
	}
}

func TestErrorHandlerSkipAndContinue(t *testing.T) {
	fx := newFixture(t, domain.ErrorStrategySkipAndContinue)

	outcome, err := newHandler(fx).Handle(context.Background(), fx.payload, fmt.Errorf("db timeout"))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if outcome != OutcomeFailed {
		t.Fatalf("outcome = %s, want %s", outcome, OutcomeFailed)
	}

	// Run закрыт, но не провален: остальная очередь живёт.
	run := fx.storage.runs[fx.run.ID]
	if run.Status != domain.RunStatusCompleted {
		t.Fatalf("run status = %s, want completed", run.Status)
	}
	if run.Stats.Failed != 2 {
		t.Fatalf("failed leads = %d, want 2", run.Stats.Failed)
	}
	if fx.storage.queueStatus[fx.campaign.ID] == domain.QueueStatusPaused {
		t.Fatal("skip-and-continue must not pause the queue")
	}
}

func TestErrorHandlerFatalSkipsStrategy(t *testing.T) {
	fx := newFixture(t, domain.ErrorStrategyRetryWithBackoff)

	jobErr := fmt.Errorf("traverse: %w", engine.ErrCycleDetected)
	outcome, err := newHandler(fx).Handle(context.Background(), fx.payload, jobErr)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if outcome != OutcomeFailed {
		t.Fatalf("outcome = %s, want %s", outcome, OutcomeFailed)
	}
	if len(fx.publisher.jobs) != 0 {
		t.Fatal("fatal error must not be retried")
	}
	if fx.storage.runs[fx.run.ID].Status != domain.RunStatusFailed {
		t.Fatal("run must be failed")
	}
}
