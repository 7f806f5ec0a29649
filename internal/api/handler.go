package api

import (
	"log/slog"

	"github.com/shaiso/Cadence/internal/mq"
	"github.com/shaiso/Cadence/internal/relay"
	"github.com/shaiso/Cadence/internal/repo"
)

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	campaignRepo  *repo.CampaignRepo
	leadRepo      *repo.LeadRepo
	workflowRepo  *repo.WorkflowRepo
	runRepo       *repo.RunRepo
	executionRepo *repo.ExecutionRepo
	queueRepo     *repo.QueueRepo
	scheduleRepo  *repo.ScheduleRepo
	conn          *mq.Connection
	publisher     *mq.Publisher
	relay         *relay.Relay
	logger        *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	CampaignRepo  *repo.CampaignRepo
	LeadRepo      *repo.LeadRepo
	WorkflowRepo  *repo.WorkflowRepo
	RunRepo       *repo.RunRepo
	ExecutionRepo *repo.ExecutionRepo
	QueueRepo     *repo.QueueRepo
	ScheduleRepo  *repo.ScheduleRepo
	Conn          *mq.Connection
	Publisher     *mq.Publisher
	Relay         *relay.Relay
	Logger        *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	return &Handler{
		campaignRepo:  cfg.CampaignRepo,
		leadRepo:      cfg.LeadRepo,
		workflowRepo:  cfg.WorkflowRepo,
		runRepo:       cfg.RunRepo,
		executionRepo: cfg.ExecutionRepo,
		queueRepo:     cfg.QueueRepo,
		scheduleRepo:  cfg.ScheduleRepo,
		conn:          cfg.Conn,
		publisher:     cfg.Publisher,
		relay:         cfg.Relay,
		logger:        cfg.Logger,
	}
}
