package relay

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Cadence/internal/domain"
	"github.com/shaiso/Cadence/internal/mq"
	"github.com/shaiso/Cadence/internal/repo"
)

type fakeRunStore struct {
	mu   sync.Mutex
	runs map[uuid.UUID]*domain.CampaignRun
}

func (s *fakeRunStore) GetByID(_ context.Context, id uuid.UUID) (*domain.CampaignRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	c := *run
	return &c, nil
}

func (s *fakeRunStore) set(run *domain.CampaignRun) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *run
	s.runs[run.ID] = &c
}

type fakeEventSource struct {
	ch       chan mq.JobEventPayload
	canceled bool
}

func (s *fakeEventSource) Subscribe(context.Context, uuid.UUID) (<-chan mq.JobEventPayload, func(), error) {
	return s.ch, func() { s.canceled = true }, nil
}

func TestServeRunProgressNotFound(t *testing.T) {
	relay := New(&fakeEventSource{}, &fakeRunStore{runs: map[uuid.UUID]*domain.CampaignRun{}}, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/progress", nil)
	relay.ServeRunProgress(rec, req, uuid.New())

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

// Терминальный run отдаёт snapshot и event: end без подписки на брокер.
func TestServeRunProgressFinishedRun(t *testing.T) {
	run := &domain.CampaignRun{
		ID:         uuid.New(),
		CampaignID: uuid.New(),
		Status:     domain.RunStatusCompleted,
		Stats:      domain.RunStats{TotalLeads: 3, Processed: 3, Success: 3},
	}
	store := &fakeRunStore{runs: map[uuid.UUID]*domain.CampaignRun{run.ID: run}}
	source := &fakeEventSource{ch: make(chan mq.JobEventPayload)}
	relay := New(source, store, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/progress", nil)
	relay.ServeRunProgress(rec, req, run.ID)

	body := rec.Body.String()
	if rec.Header().Get("Content-Type") != "text/event-stream" {
		t.Fatalf("content-type = %q", rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(body, "event: progress") {
		t.Fatalf("no progress event in body: %q", body)
	}
	if !strings.Contains(body, `"processed":3`) {
		t.Fatalf("snapshot aggregates missing: %q", body)
	}
	if !strings.Contains(body, "event: end") {
		t.Fatalf("no end event in body: %q", body)
	}
}

// Живой run стримит события до терминального статуса, после чего
// подписка снимается.
func TestServeRunProgressStreamsUntilTerminal(t *testing.T) {
	run := &domain.CampaignRun{
		ID:         uuid.New(),
		CampaignID: uuid.New(),
		Status:     domain.RunStatusRunning,
		Stats:      domain.RunStats{TotalLeads: 2},
	}
	store := &fakeRunStore{runs: map[uuid.UUID]*domain.CampaignRun{run.ID: run}}
	// Небуферизованный канал: отправка синхронизируется с приёмом в
	// ServeRunProgress, иначе run может стать терминальным до подписки.
	source := &fakeEventSource{ch: make(chan mq.JobEventPayload)}
	relay := New(source, store, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/progress", nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		relay.ServeRunProgress(rec, req, run.ID)
	}()

	// Событие чужого run игнорируется.
	source.ch <- mq.JobEventPayload{RunID: uuid.New(), CampaignID: run.CampaignID, Status: mq.JobEventActive}

	// Run завершился; событие приносит свежие агрегаты из store.
	run.Status = domain.RunStatusCompleted
	run.Stats.Processed = 2
	run.Stats.Success = 2
	store.set(run)
	source.ch <- mq.JobEventPayload{RunID: run.ID, CampaignID: run.CampaignID, Status: mq.JobEventCompleted}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not terminate")
	}

	body := rec.Body.String()
	if !strings.Contains(body, `"processed":2`) {
		t.Fatalf("final aggregates missing: %q", body)
	}
	if !strings.Contains(body, "event: end") {
		t.Fatalf("no end event: %q", body)
	}
	if !source.canceled {
		t.Fatal("event subscription not canceled")
	}
}
