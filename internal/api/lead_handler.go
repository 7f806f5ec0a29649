package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Cadence/internal/domain"
)

// CreateLeadList импортирует новый список leads.
// POST /api/v1/lead-lists
func (h *Handler) CreateLeadList(w http.ResponseWriter, r *http.Request) {
	var req CreateLeadListRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if req.Name == "" {
		BadRequest(w, "name is required")
		return
	}
	if len(req.Leads) == 0 {
		BadRequest(w, "leads are required")
		return
	}

	now := time.Now().UTC()
	list := &domain.LeadList{
		ID:        uuid.New(),
		Name:      req.Name,
		Count:     len(req.Leads),
		CreatedAt: now,
	}

	leads := make([]domain.Lead, len(req.Leads))
	for i, in := range req.Leads {
		leads[i] = domain.Lead{
			ID:         uuid.New(),
			LeadListID: list.ID,
			FirstName:  in.FirstName,
			LastName:   in.LastName,
			Email:      in.Email,
			Company:    in.Company,
			Position:   in.Position,
			ProfileURL: in.ProfileURL,
			Connected:  in.Connected,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
	}

	if err := h.leadRepo.CreateList(r.Context(), list, leads); err != nil {
		InternalError(w, h.logger, err)
		return
	}

	Created(w, LeadListFromDomain(*list))
}

// ListLeadLists возвращает все списки leads.
// GET /api/v1/lead-lists
func (h *Handler) ListLeadLists(w http.ResponseWriter, r *http.Request) {
	lists, err := h.leadRepo.ListLists(r.Context())
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]LeadListResponse, len(lists))
	for i, l := range lists {
		result[i] = LeadListFromDomain(l)
	}

	List(w, result, len(result))
}

// GetLeadList возвращает список leads по ID.
// GET /api/v1/lead-lists/{id}
func (h *Handler) GetLeadList(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid lead list id")
		return
	}

	list, err := h.leadRepo.GetList(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "lead list not found") {
		return
	}

	Success(w, LeadListFromDomain(*list))
}

// ListLeads возвращает leads списка.
// GET /api/v1/lead-lists/{id}/leads
func (h *Handler) ListLeads(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid lead list id")
		return
	}

	if _, err := h.leadRepo.GetList(r.Context(), id); HandleRepoError(w, h.logger, err, "lead list not found") {
		return
	}

	leads, err := h.leadRepo.ListByLeadList(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	List(w, leads, len(leads))
}
