package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Cadence/internal/domain"
	"github.com/shaiso/Cadence/internal/engine"
)

// SaveWorkflow сохраняет новую версию workflow definition кампании.
// Предыдущая активная версия деактивируется в той же транзакции.
// PUT /api/v1/campaigns/{id}/workflow
func (h *Handler) SaveWorkflow(w http.ResponseWriter, r *http.Request) {
	campaignID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid campaign id")
		return
	}

	var req SaveWorkflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if _, err := h.campaignRepo.GetByID(r.Context(), campaignID); HandleRepoError(w, h.logger, err, "campaign not found") {
		return
	}

	def := &domain.WorkflowDefinition{
		ID:         uuid.New(),
		CampaignID: campaignID,
		Nodes:      req.Nodes,
		Edges:      req.Edges,
		IsActive:   true,
		CreatedAt:  time.Now().UTC(),
	}

	if err := engine.ValidateDefinition(def); err != nil {
		var verr *engine.ValidationError
		if errors.As(err, &verr) {
			BadRequest(w, verr.Error())
			return
		}
		BadRequest(w, err.Error())
		return
	}

	if err := h.workflowRepo.SaveNewVersion(r.Context(), def); err != nil {
		InternalError(w, h.logger, err)
		return
	}

	Created(w, WorkflowFromDomain(*def))
}

// GetActiveWorkflow возвращает активную версию workflow кампании.
// GET /api/v1/campaigns/{id}/workflow
func (h *Handler) GetActiveWorkflow(w http.ResponseWriter, r *http.Request) {
	campaignID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid campaign id")
		return
	}

	def, err := h.workflowRepo.GetActive(r.Context(), campaignID)
	if HandleRepoError(w, h.logger, err, "campaign has no active workflow") {
		return
	}

	Success(w, WorkflowFromDomain(*def))
}

// ListWorkflowVersions возвращает все версии workflow кампании.
// GET /api/v1/campaigns/{id}/workflow/versions
func (h *Handler) ListWorkflowVersions(w http.ResponseWriter, r *http.Request) {
	campaignID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid campaign id")
		return
	}

	versions, err := h.workflowRepo.ListVersions(r.Context(), campaignID)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]WorkflowResponse, len(versions))
	for i, v := range versions {
		result[i] = WorkflowFromDomain(v)
	}

	List(w, result, len(result))
}
