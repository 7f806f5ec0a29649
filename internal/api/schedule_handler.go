package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Cadence/internal/domain"
	"github.com/shaiso/Cadence/internal/scheduler"
)

// CreateSchedule создаёт расписание запусков кампании.
// POST /api/v1/campaigns/{id}/schedules
func (h *Handler) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	campaignID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid campaign id")
		return
	}

	var req CreateScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if req.LeadListID == uuid.Nil {
		BadRequest(w, "lead_list_id is required")
		return
	}
	if err := scheduler.ValidateCronExpr(req.CronExpr); err != nil {
		BadRequest(w, err.Error())
		return
	}

	if _, err := h.campaignRepo.GetByID(r.Context(), campaignID); HandleRepoError(w, h.logger, err, "campaign not found") {
		return
	}
	if _, err := h.leadRepo.GetList(r.Context(), req.LeadListID); HandleRepoError(w, h.logger, err, "lead list not found") {
		return
	}

	nextDue, err := scheduler.NextDue(req.CronExpr, time.Now())
	if err != nil {
		BadRequest(w, err.Error())
		return
	}

	now := time.Now().UTC()
	sched := &domain.CampaignSchedule{
		ID:         uuid.New(),
		CampaignID: campaignID,
		LeadListID: req.LeadListID,
		CronExpr:   req.CronExpr,
		Enabled:    req.Enabled,
		NextDueAt:  nextDue,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := h.scheduleRepo.Create(r.Context(), sched); err != nil {
		InternalError(w, h.logger, err)
		return
	}

	Created(w, ScheduleFromDomain(*sched))
}

// ListSchedules возвращает расписания кампании.
// GET /api/v1/campaigns/{id}/schedules
func (h *Handler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	campaignID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid campaign id")
		return
	}

	schedules, err := h.scheduleRepo.ListByCampaign(r.Context(), campaignID)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]ScheduleResponse, len(schedules))
	for i, s := range schedules {
		result[i] = ScheduleFromDomain(s)
	}

	List(w, result, len(result))
}

// SetScheduleEnabled включает или выключает расписание.
// PUT /api/v1/schedules/{id}/enabled
func (h *Handler) SetScheduleEnabled(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid schedule id")
		return
	}

	var req SetEnabledRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if err := h.scheduleRepo.SetEnabled(r.Context(), id, req.Enabled); HandleRepoError(w, h.logger, err, "schedule not found") {
		return
	}

	sched, err := h.scheduleRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "schedule not found") {
		return
	}

	Success(w, ScheduleFromDomain(*sched))
}
