package queue

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shaiso/Cadence/internal/domain"
	"github.com/shaiso/Cadence/internal/repo"
)

// fakeTransport — Transport без брокера.
type fakeTransport struct {
	mu       sync.Mutex
	declared map[uuid.UUID]bool
	depth    map[uuid.UUID]int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		declared: map[uuid.UUID]bool{},
		depth:    map[uuid.UUID]int{},
	}
}

func (t *fakeTransport) DeclareQueue(_ context.Context, campaignID uuid.UUID) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.declared[campaignID] = true
	return "campaign.jobs." + campaignID.String(), nil
}

func (t *fakeTransport) DeleteQueue(_ context.Context, campaignID uuid.UUID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.declared, campaignID)
	return nil
}

func (t *fakeTransport) QueueDepth(_ context.Context, campaignID uuid.UUID) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.depth[campaignID], nil
}

// fakeQueueStore — Store без БД.
type fakeQueueStore struct {
	mu     sync.Mutex
	queues map[uuid.UUID]*domain.CampaignQueue
}

func newFakeQueueStore() *fakeQueueStore {
	return &fakeQueueStore{queues: map[uuid.UUID]*domain.CampaignQueue{}}
}

func (s *fakeQueueStore) CreateQueue(_ context.Context, q *domain.CampaignQueue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.queues[q.CampaignID]; ok {
		return repo.ErrAlreadyExists
	}
	c := *q
	s.queues[q.CampaignID] = &c
	return nil
}

func (s *fakeQueueStore) GetQueue(_ context.Context, campaignID uuid.UUID) (*domain.CampaignQueue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.queues[campaignID]
	if !ok {
		return nil, repo.ErrNotFound
	}
	c := *q
	return &c, nil
}

func (s *fakeQueueStore) ListQueues(_ context.Context) ([]domain.CampaignQueue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.CampaignQueue
	for _, q := range s.queues {
		out = append(out, *q)
	}
	return out, nil
}

func (s *fakeQueueStore) SetQueueStatus(_ context.Context, campaignID uuid.UUID, status domain.QueueStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.queues[campaignID]
	if !ok {
		return repo.ErrNotFound
	}
	q.Status = status
	return nil
}

func (s *fakeQueueStore) DeleteQueueRecord(_ context.Context, campaignID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.queues[campaignID]; !ok {
		return repo.ErrNotFound
	}
	delete(s.queues, campaignID)
	return nil
}

// fakeRunner — JobRunner, фиксирующий вызовы.
type fakeRunner struct {
	mu       sync.Mutex
	started  bool
	paused   bool
	stopped  bool
	inFlight int
}

func (r *fakeRunner) Start(context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = true
}

func (r *fakeRunner) Pause() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paused = true
}

func (r *fakeRunner) Resume() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paused = false
}

func (r *fakeRunner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = true
}

func (r *fakeRunner) IsPaused() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.paused
}

func (r *fakeRunner) InFlight() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inFlight
}

type managerFixture struct {
	manager   *Manager
	transport *fakeTransport
	store     *fakeQueueStore

	mu      sync.Mutex
	runners map[uuid.UUID]*fakeRunner
}

func newManagerFixture(t *testing.T) *managerFixture {
	t.Helper()

	fx := &managerFixture{
		transport: newFakeTransport(),
		store:     newFakeQueueStore(),
		runners:   map[uuid.UUID]*fakeRunner{},
	}

	fx.manager = NewManager(ManagerConfig{
		Transport: fx.transport,
		Store:     fx.store,
		Factory: func(campaignID uuid.UUID, _ string, _ int) JobRunner {
			r := &fakeRunner{}
			fx.mu.Lock()
			fx.runners[campaignID] = r
			fx.mu.Unlock()
			return r
		},
	})

	if err := fx.manager.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return fx
}

func (fx *managerFixture) runner(id uuid.UUID) *fakeRunner {
	fx.mu.Lock()
	defer fx.mu.Unlock()
	return fx.runners[id]
}

func TestManagerCreate(t *testing.T) {
	fx := newManagerFixture(t)
	campaignID := uuid.New()

	q, err := fx.manager.Create(context.Background(), campaignID, 0)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if q.WorkerCount != defaultWorkerCount {
		t.Fatalf("worker count = %d, want default %d", q.WorkerCount, defaultWorkerCount)
	}
	if q.Status != domain.QueueStatusActive {
		t.Fatalf("status = %s, want active", q.Status)
	}

	if !fx.transport.declared[campaignID] {
		t.Fatal("broker queue not declared")
	}
	if _, err := fx.store.GetQueue(context.Background(), campaignID); err != nil {
		t.Fatalf("queue record not created: %v", err)
	}
	if r := fx.runner(campaignID); r == nil || !r.started {
		t.Fatal("runner not started")
	}

	// Повторное создание — конфликт.
	if _, err := fx.manager.Create(context.Background(), campaignID, 0); !errors.Is(err, ErrQueueExists) {
		t.Fatalf("err = %v, want ErrQueueExists", err)
	}
}

func TestManagerPauseResume(t *testing.T) {
	fx := newManagerFixture(t)
	campaignID := uuid.New()

	if _, err := fx.manager.Create(context.Background(), campaignID, 3); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := fx.manager.Pause(context.Background(), campaignID); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if !fx.runner(campaignID).IsPaused() {
		t.Fatal("runner not paused")
	}
	q, _ := fx.store.GetQueue(context.Background(), campaignID)
	if q.Status != domain.QueueStatusPaused {
		t.Fatalf("stored status = %s, want paused", q.Status)
	}

	if err := fx.manager.Resume(context.Background(), campaignID); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if fx.runner(campaignID).IsPaused() {
		t.Fatal("runner still paused")
	}
	q, _ = fx.store.GetQueue(context.Background(), campaignID)
	if q.Status != domain.QueueStatusActive {
		t.Fatalf("stored status = %s, want active", q.Status)
	}
}

func TestManagerRemove(t *testing.T) {
	fx := newManagerFixture(t)
	campaignID := uuid.New()

	if _, err := fx.manager.Create(context.Background(), campaignID, 0); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := fx.manager.Remove(context.Background(), campaignID); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	if !fx.runner(campaignID).stopped {
		t.Fatal("runner not stopped")
	}
	if fx.transport.declared[campaignID] {
		t.Fatal("broker queue not deleted")
	}
	if _, err := fx.store.GetQueue(context.Background(), campaignID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatal("queue record not deleted")
	}

	// Повторное удаление — no-op.
	if err := fx.manager.Remove(context.Background(), campaignID); err != nil {
		t.Fatalf("second Remove: %v", err)
	}
}

func TestManagerRemoveUnknownCampaignIsNoop(t *testing.T) {
	fx := newManagerFixture(t)

	if err := fx.manager.Remove(context.Background(), uuid.New()); err != nil {
		t.Fatalf("Remove: %v", err)
	}
}

func TestManagerStatus(t *testing.T) {
	fx := newManagerFixture(t)
	campaignID := uuid.New()

	if _, err := fx.manager.Create(context.Background(), campaignID, 0); err != nil {
		t.Fatalf("Create: %v", err)
	}

	fx.transport.depth[campaignID] = 7
	fx.runner(campaignID).inFlight = 2
	fx.store.queues[campaignID].CompletedJobs = 10
	fx.store.queues[campaignID].FailedJobs = 1

	counts, err := fx.manager.Status(context.Background(), campaignID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}

	want := domain.QueueCounts{Waiting: 7, Active: 2, Completed: 10, Failed: 1, Paused: false}
	if *counts != want {
		t.Fatalf("counts = %+v, want %+v", *counts, want)
	}
}

// После рестарта реестр восстанавливается из БД; paused очереди
// поднимаются приостановленными.
func TestManagerRediscover(t *testing.T) {
	fx := newManagerFixture(t)

	activeID, pausedID := uuid.New(), uuid.New()
	fx.store.queues[activeID] = &domain.CampaignQueue{
		ID: uuid.New(), CampaignID: activeID,
		QueueName: "campaign.jobs." + activeID.String(),
		Status:    domain.QueueStatusActive, WorkerCount: 5,
	}
	fx.store.queues[pausedID] = &domain.CampaignQueue{
		ID: uuid.New(), CampaignID: pausedID,
		QueueName: "campaign.jobs." + pausedID.String(),
		Status:    domain.QueueStatusPaused, WorkerCount: 5,
	}

	if err := fx.manager.Rediscover(context.Background()); err != nil {
		t.Fatalf("Rediscover: %v", err)
	}

	if r := fx.runner(activeID); r == nil || !r.started || r.IsPaused() {
		t.Fatal("active queue not rediscovered running")
	}
	if r := fx.runner(pausedID); r == nil || !r.started || !r.IsPaused() {
		t.Fatal("paused queue must come back paused")
	}
	if !fx.transport.declared[activeID] || !fx.transport.declared[pausedID] {
		t.Fatal("queues not redeclared in broker")
	}
}
