package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Cadence/internal/domain"
	"github.com/shaiso/Cadence/internal/mq"
)

// ListCampaigns возвращает список кампаний.
// GET /api/v1/campaigns?limit=...&offset=...
func (h *Handler) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	campaigns, err := h.campaignRepo.List(r.Context(), limit, offset)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]CampaignResponse, len(campaigns))
	for i, c := range campaigns {
		result[i] = CampaignFromDomain(c)
	}

	List(w, result, len(result))
}

// CreateCampaign создаёт новую кампанию.
// POST /api/v1/campaigns
func (h *Handler) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var req CreateCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if req.Name == "" {
		BadRequest(w, "name is required")
		return
	}

	now := time.Now().UTC()
	campaign := &domain.Campaign{
		ID:            uuid.New(),
		Name:          req.Name,
		Description:   req.Description,
		Status:        domain.CampaignStatusDraft,
		ErrorStrategy: domain.ParseErrorStrategy(req.ErrorStrategy),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := h.campaignRepo.Create(r.Context(), campaign); err != nil {
		InternalError(w, h.logger, err)
		return
	}

	Created(w, CampaignFromDomain(*campaign))
}

// GetCampaign возвращает кампанию по ID.
// GET /api/v1/campaigns/{id}
func (h *Handler) GetCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid campaign id")
		return
	}

	campaign, err := h.campaignRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "campaign not found") {
		return
	}

	Success(w, CampaignFromDomain(*campaign))
}

// UpdateCampaign обновляет кампанию.
// PUT /api/v1/campaigns/{id}
func (h *Handler) UpdateCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid campaign id")
		return
	}

	var req UpdateCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	campaign, err := h.campaignRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "campaign not found") {
		return
	}

	if req.Name != nil {
		campaign.Name = *req.Name
	}
	if req.Description != nil {
		campaign.Description = *req.Description
	}
	if req.Status != nil {
		status := domain.CampaignStatus(*req.Status)
		switch status {
		case domain.CampaignStatusDraft, domain.CampaignStatusActive, domain.CampaignStatusArchived:
			campaign.Status = status
		default:
			BadRequest(w, "invalid campaign status")
			return
		}
	}
	if req.ErrorStrategy != nil {
		campaign.ErrorStrategy = domain.ParseErrorStrategy(*req.ErrorStrategy)
	}

	if err := h.campaignRepo.Update(r.Context(), campaign); err != nil {
		InternalError(w, h.logger, err)
		return
	}

	Success(w, CampaignFromDomain(*campaign))
}

// DeleteCampaign удаляет кампанию вместе с runs и schedules.
// DELETE /api/v1/campaigns/{id}
func (h *Handler) DeleteCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid campaign id")
		return
	}

	if err := h.campaignRepo.Delete(r.Context(), id); err != nil {
		HandleRepoError(w, h.logger, err, "campaign not found")
		return
	}

	// Очередь кампании убирает queue manager по control-команде.
	if err := h.publisher.PublishControl(r.Context(), mq.ControlPayload{
		Command:    mq.ControlRemove,
		CampaignID: id,
	}); err != nil {
		h.logger.Warn("failed to publish queue remove command",
			"campaign_id", id, "error", err)
	}

	NoContent(w)
}
