package worker

import (
	"context"

	"github.com/google/uuid"
	"github.com/shaiso/Cadence/internal/domain"
	"github.com/shaiso/Cadence/internal/repo"
)

// Storage — всё, что processor'у нужно от хранилища.
// Плоский интерфейс, чтобы тесты подменяли его одним фейком.
type Storage interface {
	GetRun(ctx context.Context, id uuid.UUID) (*domain.CampaignRun, error)
	UpdateRun(ctx context.Context, run *domain.CampaignRun) error
	MarkRunningIfPending(ctx context.Context, id uuid.UUID) (bool, error)
	AddRunStats(ctx context.Context, id uuid.UUID, processed, success, failed int) error

	GetCampaign(ctx context.Context, id uuid.UUID) (*domain.Campaign, error)
	GetWorkflow(ctx context.Context, id uuid.UUID) (*domain.WorkflowDefinition, error)

	GetRunLead(ctx context.Context, runID, leadID uuid.UUID) (*domain.CampaignRunLead, error)
	UpdateLeadStatus(ctx context.Context, runID, leadID uuid.UUID, status domain.LeadStatus) error
	ListUnfinishedLeadIDs(ctx context.Context, runID uuid.UUID) ([]uuid.UUID, error)

	InsertNodeExecutions(ctx context.Context, execs []domain.NodeExecution) error
	AppendLog(ctx context.Context, log *domain.CampaignLog) error

	AddJobCounters(ctx context.Context, campaignID uuid.UUID, completed, failed int) error
	SetQueueStatus(ctx context.Context, campaignID uuid.UUID, status domain.QueueStatus) error
}

// storeStorage адаптирует repo.Store к интерфейсу Storage.
type storeStorage struct {
	store *repo.Store
}

// NewStorage оборачивает repo.Store в Storage.
func NewStorage(store *repo.Store) Storage {
	return &storeStorage{store: store}
}

func (s *storeStorage) GetRun(ctx context.Context, id uuid.UUID) (*domain.CampaignRun, error) {
	return s.store.Runs.GetByID(ctx, id)
}

func (s *storeStorage) UpdateRun(ctx context.Context, run *domain.CampaignRun) error {
	return s.store.Runs.Update(ctx, run)
}

func (s *storeStorage) MarkRunningIfPending(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.store.Runs.MarkRunningIfPending(ctx, id)
}

func (s *storeStorage) AddRunStats(ctx context.Context, id uuid.UUID, processed, success, failed int) error {
	return s.store.Runs.AddStats(ctx, id, processed, success, failed)
}

func (s *storeStorage) GetCampaign(ctx context.Context, id uuid.UUID) (*domain.Campaign, error) {
	return s.store.Campaigns.GetByID(ctx, id)
}

func (s *storeStorage) GetWorkflow(ctx context.Context, id uuid.UUID) (*domain.WorkflowDefinition, error) {
	return s.store.Workflows.GetByID(ctx, id)
}

func (s *storeStorage) GetRunLead(ctx context.Context, runID, leadID uuid.UUID) (*domain.CampaignRunLead, error) {
	return s.store.Executions.GetRunLead(ctx, runID, leadID)
}

func (s *storeStorage) UpdateLeadStatus(ctx context.Context, runID, leadID uuid.UUID, status domain.LeadStatus) error {
	return s.store.Executions.UpdateLeadStatus(ctx, runID, leadID, status)
}

func (s *storeStorage) ListUnfinishedLeadIDs(ctx context.Context, runID uuid.UUID) ([]uuid.UUID, error) {
	return s.store.Executions.ListUnfinishedLeadIDs(ctx, runID)
}

func (s *storeStorage) InsertNodeExecutions(ctx context.Context, execs []domain.NodeExecution) error {
	return s.store.Executions.InsertNodeExecutions(ctx, execs)
}

func (s *storeStorage) AppendLog(ctx context.Context, log *domain.CampaignLog) error {
	return s.store.Executions.AppendLog(ctx, log)
}

func (s *storeStorage) AddJobCounters(ctx context.Context, campaignID uuid.UUID, completed, failed int) error {
	return s.store.Queues.AddJobCounters(ctx, campaignID, completed, failed)
}

func (s *storeStorage) SetQueueStatus(ctx context.Context, campaignID uuid.UUID, status domain.QueueStatus) error {
	return s.store.Queues.UpdateStatus(ctx, campaignID, status)
}
