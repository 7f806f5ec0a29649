package queue

import (
	"context"

	"github.com/google/uuid"
	"github.com/shaiso/Cadence/internal/domain"
	"github.com/shaiso/Cadence/internal/mq"
	"github.com/shaiso/Cadence/internal/repo"
)

// amqpTransport реализует Transport поверх mq.Connection.
type amqpTransport struct {
	conn *mq.Connection
}

// NewTransport оборачивает AMQP соединение в Transport.
func NewTransport(conn *mq.Connection) Transport {
	return &amqpTransport{conn: conn}
}

func (t *amqpTransport) DeclareQueue(ctx context.Context, campaignID uuid.UUID) (string, error) {
	return mq.DeclareCampaignQueue(ctx, t.conn, campaignID)
}

func (t *amqpTransport) DeleteQueue(ctx context.Context, campaignID uuid.UUID) error {
	return mq.DeleteCampaignQueue(ctx, t.conn, campaignID)
}

func (t *amqpTransport) QueueDepth(ctx context.Context, campaignID uuid.UUID) (int, error) {
	return mq.QueueDepth(ctx, t.conn, campaignID)
}

// repoStore реализует Store поверх repo.QueueRepo.
type repoStore struct {
	queues *repo.QueueRepo
}

// NewStore оборачивает repo.QueueRepo в Store.
func NewStore(queues *repo.QueueRepo) Store {
	return &repoStore{queues: queues}
}

func (s *repoStore) CreateQueue(ctx context.Context, q *domain.CampaignQueue) error {
	return s.queues.Create(ctx, q)
}

func (s *repoStore) GetQueue(ctx context.Context, campaignID uuid.UUID) (*domain.CampaignQueue, error) {
	return s.queues.GetByCampaign(ctx, campaignID)
}

func (s *repoStore) ListQueues(ctx context.Context) ([]domain.CampaignQueue, error) {
	return s.queues.List(ctx)
}

func (s *repoStore) SetQueueStatus(ctx context.Context, campaignID uuid.UUID, status domain.QueueStatus) error {
	return s.queues.UpdateStatus(ctx, campaignID, status)
}

func (s *repoStore) DeleteQueueRecord(ctx context.Context, campaignID uuid.UUID) error {
	return s.queues.Delete(ctx, campaignID)
}
