package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Cadence/internal/domain"
	"github.com/shaiso/Cadence/internal/mq"
	"github.com/shaiso/Cadence/internal/repo"
)

// ListRuns возвращает список runs с фильтрацией.
// GET /api/v1/runs?campaign_id=...&status=...&limit=...&offset=...
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	filter := repo.RunFilter{
		Limit:  queryInt(r, "limit", 50),
		Offset: queryInt(r, "offset", 0),
	}

	if campaignIDStr := r.URL.Query().Get("campaign_id"); campaignIDStr != "" {
		campaignID, err := uuid.Parse(campaignIDStr)
		if err != nil {
			BadRequest(w, "invalid campaign_id")
			return
		}
		filter.CampaignID = &campaignID
	}

	if status := r.URL.Query().Get("status"); status != "" {
		filter.Status = domain.RunStatus(status)
	}

	runs, err := h.runRepo.List(r.Context(), filter)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]RunResponse, len(runs))
	for i, run := range runs {
		result[i] = RunFromDomain(run)
	}

	List(w, result, len(result))
}

// CreateRun запускает кампанию для списка leads.
//
// Снимает snapshot каждого lead, создаёт run в состоянии pending и
// ставит job в очередь кампании. При совпадении idempotency key
// возвращается уже существующий run.
//
// POST /api/v1/campaigns/{id}/runs
func (h *Handler) CreateRun(w http.ResponseWriter, r *http.Request) {
	campaignID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid campaign id")
		return
	}

	var req CreateRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}
	if req.LeadListID == uuid.Nil {
		BadRequest(w, "lead_list_id is required")
		return
	}

	campaign, err := h.campaignRepo.GetByID(r.Context(), campaignID)
	if HandleRepoError(w, h.logger, err, "campaign not found") {
		return
	}
	if campaign.Status == domain.CampaignStatusArchived {
		InvalidState(w, "campaign is archived")
		return
	}

	def, err := h.workflowRepo.GetActive(r.Context(), campaignID)
	if HandleRepoError(w, h.logger, err, "campaign has no active workflow") {
		return
	}

	if req.IdempotencyKey != "" {
		existing, err := h.runRepo.GetByIdempotencyKey(r.Context(), campaignID, req.IdempotencyKey)
		if err == nil && existing != nil {
			Success(w, RunFromDomain(*existing))
			return
		}
	}

	if _, err := h.leadRepo.GetList(r.Context(), req.LeadListID); HandleRepoError(w, h.logger, err, "lead list not found") {
		return
	}

	leads, err := h.leadRepo.ListByLeadList(r.Context(), req.LeadListID)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}
	if len(leads) == 0 {
		BadRequest(w, "lead list is empty")
		return
	}

	now := time.Now().UTC()
	run := &domain.CampaignRun{
		ID:                   uuid.New(),
		CampaignID:           campaignID,
		WorkflowDefinitionID: def.ID,
		Status:               domain.RunStatusPending,
		Stats:                domain.RunStats{TotalLeads: len(leads)},
		IdempotencyKey:       req.IdempotencyKey,
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

	if err := h.runRepo.CreateWithLeads(r.Context(), run, runLeads); err != nil {
		InternalError(w, h.logger, err)
		return
	}

	// Очередь объявляется синхронно, чтобы job не потерялся, если
	// queue manager ещё не обработал control-команду.
	if _, err := mq.DeclareCampaignQueue(r.Context(), h.conn, campaignID); err != nil {
		h.logger.Warn("failed to declare campaign queue",
			"campaign_id", campaignID, "error", err)
	}

	if err := h.publisher.PublishControl(r.Context(), mq.ControlPayload{
		Command:    mq.ControlCreate,
		CampaignID: campaignID,
	}); err != nil {
		h.logger.Warn("failed to publish queue create command",
			"campaign_id", campaignID, "error", err)
	}

	priority := req.Priority
	if priority < 0 {
		priority = 0
	}
	if priority > mq.MaxJobPriority {
		priority = mq.MaxJobPriority
	}

	if err := h.publisher.PublishCampaignJob(r.Context(), mq.CampaignJobPayload{
		JobID:      uuid.New(),
		RunID:      run.ID,
		CampaignID: campaignID,
		LeadIDs:    leadIDs,
		Attempt:    1,
	}, uint8(priority)); err != nil {
		h.logger.Warn("failed to publish campaign job",
			"run_id", run.ID, "error", err)
	}

	Created(w, RunFromDomain(*run))
}

// GetRun возвращает run вместе с последними log-записями.
// GET /api/v1/runs/{id}
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid run id")
		return
	}

	run, err := h.runRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "run not found") {
		return
	}

	logs, err := h.executionRepo.ListLogs(r.Context(), id, 50)
	if err != nil {
		h.logger.Warn("failed to load run logs", "run_id", id, "error", err)
	}

	detail := RunDetailResponse{
		RunResponse: RunFromDomain(*run),
		Logs:        make([]LogResponse, len(logs)),
	}
	for i, l := range logs {
		detail.Logs[i] = LogFromDomain(l)
	}

	Success(w, detail)
}

// CancelRun отменяет run.
//
// Статус меняется на canceled сразу; worker замечает это между leads
// и прекращает обход.
//
// POST /api/v1/runs/{id}/cancel
func (h *Handler) CancelRun(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid run id")
		return
	}

	run, err := h.runRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "run not found") {
		return
	}

	if run.IsFinished() {
		InvalidState(w, "run is already finished")
		return
	}

	run.MarkCanceled()

	if err := h.runRepo.Update(r.Context(), run); err != nil {
		InternalError(w, h.logger, err)
		return
	}

	Success(w, RunFromDomain(*run))
}

// ListRunLeads возвращает per-lead состояние run.
// GET /api/v1/runs/{id}/leads
func (h *Handler) ListRunLeads(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid run id")
		return
	}

	if _, err := h.runRepo.GetByID(r.Context(), id); HandleRepoError(w, h.logger, err, "run not found") {
		return
	}

	leads, err := h.executionRepo.ListRunLeads(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]RunLeadResponse, len(leads))
	for i, l := range leads {
		result[i] = RunLeadFromDomain(l)
	}

	List(w, result, len(result))
}

// ListRunExecutions возвращает записи выполнения узлов.
// GET /api/v1/runs/{id}/executions?lead_id=...
func (h *Handler) ListRunExecutions(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid run id")
		return
	}

	var leadID *uuid.UUID
	if leadIDStr := r.URL.Query().Get("lead_id"); leadIDStr != "" {
		parsed, err := uuid.Parse(leadIDStr)
		if err != nil {
			BadRequest(w, "invalid lead_id")
			return
		}
		leadID = &parsed
	}

	if _, err := h.runRepo.GetByID(r.Context(), id); HandleRepoError(w, h.logger, err, "run not found") {
		return
	}

	execs, err := h.executionRepo.ListNodeExecutions(r.Context(), id, leadID)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]NodeExecutionResponse, len(execs))
	for i, e := range execs {
		result[i] = NodeExecutionFromDomain(e)
	}

	List(w, result, len(result))
}

// ListRunLogs возвращает log-записи run.
// GET /api/v1/runs/{id}/logs?limit=...
func (h *Handler) ListRunLogs(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid run id")
		return
	}

	if _, err := h.runRepo.GetByID(r.Context(), id); HandleRepoError(w, h.logger, err, "run not found") {
		return
	}

	logs, err := h.executionRepo.ListLogs(r.Context(), id, queryInt(r, "limit", 100))
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]LogResponse, len(logs))
	for i, l := range logs {
		result[i] = LogFromDomain(l)
	}

	List(w, result, len(result))
}

// StreamRunProgress стримит прогресс run через Server-Sent Events.
// GET /api/v1/runs/{id}/progress
func (h *Handler) StreamRunProgress(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid run id")
		return
	}

	h.relay.ServeRunProgress(w, r, id)
}

// queryInt парсит целочисленный query-параметр с дефолтным значением.
func queryInt(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return defaultVal
	}
	return n
}
