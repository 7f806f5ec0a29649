package repo

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store — агрегат всех репозиториев поверх одного пула.
// Передаётся компонентам, которым нужно несколько репозиториев
// (processor, scheduler, API handlers).
type Store struct {
	Campaigns  *CampaignRepo
	Leads      *LeadRepo
	Workflows  *WorkflowRepo
	Runs       *RunRepo
	Executions *ExecutionRepo
	Queues     *QueueRepo
	Schedules  *ScheduleRepo

	pool *pgxpool.Pool
}

// NewStore создаёт Store поверх пула.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		Campaigns:  NewCampaignRepo(pool),
		Leads:      NewLeadRepo(pool),
		Workflows:  NewWorkflowRepo(pool),
		Runs:       NewRunRepo(pool),
		Executions: NewExecutionRepo(pool),
		Queues:     NewQueueRepo(pool),
		Schedules:  NewScheduleRepo(pool),
		pool:       pool,
	}
}

// TryAdvisoryLock пытается взять session-level advisory lock.
// Используется scheduler'ом для leader election: тик выполняет только
// процесс, удерживающий lock.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (bool, error) {
	var acquired bool
	err := s.pool.QueryRow(ctx, `SELECT pg_try_advisory_lock($1)`, key).Scan(&acquired)
	if err != nil {
		return false, err
	}
	return acquired, nil
}

// AdvisoryUnlock снимает advisory lock.
func (s *Store) AdvisoryUnlock(ctx context.Context, key int64) error {
	_, err := s.pool.Exec(ctx, `SELECT pg_advisory_unlock($1)`, key)
	return err
}
