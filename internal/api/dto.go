package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Cadence/internal/domain"
)

// Campaign DTOs

// CreateCampaignRequest — запрос на создание кампании.
type CreateCampaignRequest struct {
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	ErrorStrategy string `json:"error_strategy,omitempty"`
}

// UpdateCampaignRequest — запрос на обновление кампании.
type UpdateCampaignRequest struct {
	Name          *string `json:"name,omitempty"`
	Description   *string `json:"description,omitempty"`
	Status        *string `json:"status,omitempty"`
	ErrorStrategy *string `json:"error_strategy,omitempty"`
}

// CampaignResponse — ответ с кампанией.
type CampaignResponse struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	Status        string    `json:"status"`
	ErrorStrategy string    `json:"error_strategy"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// CampaignFromDomain конвертирует domain.Campaign в CampaignResponse.
func CampaignFromDomain(c domain.Campaign) CampaignResponse {
	return CampaignResponse{
		ID:            c.ID,
		Name:          c.Name,
		Description:   c.Description,
		Status:        string(c.Status),
		ErrorStrategy: string(c.Strategy()),
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

// Lead DTOs

// LeadInput — один lead в запросе на импорт списка.
type LeadInput struct {
	FirstName  string `json:"first_name,omitempty"`
	LastName   string `json:"last_name,omitempty"`
	Email      string `json:"email,omitempty"`
	Company    string `json:"company,omitempty"`
	Position   string `json:"position,omitempty"`
	ProfileURL string `json:"profile_url,omitempty"`
	Connected  bool   `json:"connected,omitempty"`
}

// CreateLeadListRequest — запрос на импорт списка leads.
type CreateLeadListRequest struct {
	Name  string      `json:"name"`
	Leads []LeadInput `json:"leads"`
}

// LeadListResponse — ответ со списком leads.
type LeadListResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Count     int       `json:"count"`
	CreatedAt time.Time `json:"created_at"`
}

// LeadListFromDomain конвертирует domain.LeadList в LeadListResponse.
func LeadListFromDomain(l domain.LeadList) LeadListResponse {
	return LeadListResponse{
		ID:        l.ID,
		Name:      l.Name,
		Count:     l.Count,
		CreatedAt: l.CreatedAt,
	}
}

// Workflow DTOs

// SaveWorkflowRequest — запрос на сохранение новой версии workflow.
type SaveWorkflowRequest struct {
	Nodes []domain.Node `json:"nodes"`
	Edges []domain.Edge `json:"edges"`
}

// WorkflowResponse — ответ с версией workflow definition.
type WorkflowResponse struct {
	ID         uuid.UUID     `json:"id"`
	CampaignID uuid.UUID     `json:"campaign_id"`
	Version    int           `json:"version"`
	Nodes      []domain.Node `json:"nodes"`
	Edges      []domain.Edge `json:"edges"`
	IsActive   bool          `json:"is_active"`
	CreatedAt  time.Time     `json:"created_at"`
}

// WorkflowFromDomain конвертирует domain.WorkflowDefinition в WorkflowResponse.
func WorkflowFromDomain(d domain.WorkflowDefinition) WorkflowResponse {
	return WorkflowResponse{
		ID:         d.ID,
		CampaignID: d.CampaignID,
		Version:    d.Version,
		Nodes:      d.Nodes,
		Edges:      d.Edges,
		IsActive:   d.IsActive,
		CreatedAt:  d.CreatedAt,
	}
}

// Run DTOs

// CreateRunRequest — запрос на запуск кампании.
type CreateRunRequest struct {
	LeadListID     uuid.UUID `json:"lead_list_id"`
	IdempotencyKey string    `json:"idempotency_key,omitempty"`

	// Priority — приоритет job в очереди, 0..10.
	Priority int `json:"priority,omitempty"`
}

// RunResponse — ответ с run.
type RunResponse struct {
	ID                   uuid.UUID       `json:"id"`
	CampaignID           uuid.UUID       `json:"campaign_id"`
	WorkflowDefinitionID uuid.UUID       `json:"workflow_definition_id"`
	Status               string          `json:"status"`
	StartedAt            *time.Time      `json:"started_at,omitempty"`
	EndedAt              *time.Time      `json:"ended_at,omitempty"`
	Error                string          `json:"error,omitempty"`
	Stats                domain.RunStats `json:"stats"`
	IdempotencyKey       string          `json:"idempotency_key,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// RunFromDomain конвертирует domain.CampaignRun в RunResponse.
func RunFromDomain(r domain.CampaignRun) RunResponse {
	return RunResponse{
		ID:                   r.ID,
		CampaignID:           r.CampaignID,
		WorkflowDefinitionID: r.WorkflowDefinitionID,
		Status:               string(r.Status),
		StartedAt:            r.StartedAt,
		EndedAt:              r.EndedAt,
		Error:                r.Error,
		Stats:                r.Stats,
		IdempotencyKey:       r.IdempotencyKey,
		CreatedAt:            r.CreatedAt,
		UpdatedAt:            r.UpdatedAt,
	}
}

// RunDetailResponse — run вместе с последними log-записями.
type RunDetailResponse struct {
	RunResponse
	Logs []LogResponse `json:"logs"`
}

// RunLeadResponse — ответ с per-lead состоянием run.
type RunLeadResponse struct {
	ID        uuid.UUID      `json:"id"`
	LeadID    uuid.UUID      `json:"lead_id"`
	Status    string         `json:"status"`
	Snapshot  map[string]any `json:"snapshot,omitempty"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// RunLeadFromDomain конвертирует domain.CampaignRunLead в RunLeadResponse.
func RunLeadFromDomain(l domain.CampaignRunLead) RunLeadResponse {
	return RunLeadResponse{
		ID:        l.ID,
		LeadID:    l.LeadID,
		Status:    string(l.Status),
		Snapshot:  l.Snapshot,
		UpdatedAt: l.UpdatedAt,
	}
}

// NodeExecutionResponse — ответ с записью выполнения узла.
type NodeExecutionResponse struct {
	ID         uuid.UUID      `json:"id"`
	LeadID     uuid.UUID      `json:"lead_id"`
	NodeID     string         `json:"node_id"`
	NodeKind   string         `json:"node_type"`
	Status     string         `json:"status"`
	Input      map[string]any `json:"input,omitempty"`
	Output     map[string]any `json:"output,omitempty"`
	Error      string         `json:"error,omitempty"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
}

// NodeExecutionFromDomain конвертирует domain.NodeExecution в NodeExecutionResponse.
func NodeExecutionFromDomain(e domain.NodeExecution) NodeExecutionResponse {
	return NodeExecutionResponse{
		ID:         e.ID,
		LeadID:     e.LeadID,
		NodeID:     e.NodeID,
		NodeKind:   string(e.NodeKind),
		Status:     string(e.Status),
		Input:      e.Input,
		Output:     e.Output,
		Error:      e.Error,
		StartedAt:  e.StartedAt,
		FinishedAt: e.FinishedAt,
	}
}

// LogResponse — ответ с log-записью run.
type LogResponse struct {
	ID        uuid.UUID `json:"id"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	NodeID    string    `json:"node_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// LogFromDomain конвертирует domain.CampaignLog в LogResponse.
func LogFromDomain(l domain.CampaignLog) LogResponse {
	return LogResponse{
		ID:        l.ID,
		Level:     string(l.Level),
		Message:   l.Message,
		NodeID:    l.NodeID,
		Timestamp: l.Timestamp,
	}
}

// Queue DTOs

// CreateQueueRequest — запрос на создание очереди кампании.
type CreateQueueRequest struct {
	WorkerCount int `json:"worker_count,omitempty"`
}

// QueueResponse — ответ с очередью кампании.
type QueueResponse struct {
	ID            uuid.UUID `json:"id"`
	CampaignID    uuid.UUID `json:"campaign_id"`
	QueueName     string    `json:"queue_name"`
	WorkerCount   int       `json:"worker_count"`
	Status        string    `json:"status"`
	CompletedJobs int       `json:"completed_jobs"`
	FailedJobs    int       `json:"failed_jobs"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// QueueFromDomain конвертирует domain.CampaignQueue в QueueResponse.
func QueueFromDomain(q domain.CampaignQueue) QueueResponse {
	return QueueResponse{
		ID:            q.ID,
		CampaignID:    q.CampaignID,
		QueueName:     q.QueueName,
		WorkerCount:   q.WorkerCount,
		Status:        string(q.Status),
		CompletedJobs: q.CompletedJobs,
		FailedJobs:    q.FailedJobs,
		CreatedAt:     q.CreatedAt,
		UpdatedAt:     q.UpdatedAt,
	}
}

// QueueStatusResponse — живые счётчики очереди.
type QueueStatusResponse struct {
	CampaignID uuid.UUID `json:"campaign_id"`
	QueueName  string    `json:"queue_name"`
	Waiting    int       `json:"waiting"`
	Completed  int       `json:"completed"`
	Failed     int       `json:"failed"`
	Paused     bool      `json:"paused"`
}

// Schedule DTOs

// CreateScheduleRequest — запрос на создание расписания запусков.
type CreateScheduleRequest struct {
	LeadListID uuid.UUID `json:"lead_list_id"`
	CronExpr   string    `json:"cron_expr"`
	Enabled    bool      `json:"enabled"`
}

// SetEnabledRequest — запрос на включение/выключение расписания.
type SetEnabledRequest struct {
	Enabled bool `json:"enabled"`
}

// ScheduleResponse — ответ с расписанием.
type ScheduleResponse struct {
	ID         uuid.UUID  `json:"id"`
	CampaignID uuid.UUID  `json:"campaign_id"`
	LeadListID uuid.UUID  `json:"lead_list_id"`
	CronExpr   string     `json:"cron_expr"`
	Enabled    bool       `json:"enabled"`
	NextDueAt  time.Time  `json:"next_due_at"`
	LastRunAt  *time.Time `json:"last_run_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// ScheduleFromDomain конвертирует domain.CampaignSchedule в ScheduleResponse.
func ScheduleFromDomain(s domain.CampaignSchedule) ScheduleResponse {
	return ScheduleResponse{
		ID:         s.ID,
		CampaignID: s.CampaignID,
		LeadListID: s.LeadListID,
		CronExpr:   s.CronExpr,
		Enabled:    s.Enabled,
		NextDueAt:  s.NextDueAt,
		LastRunAt:  s.LastRunAt,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.UpdatedAt,
	}
}
