package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Middleware chain
	chain := Chain(
		Recovery(h.logger),
		Logging(h.logger),
	)

	// Campaigns
	mux.Handle("GET /api/v1/campaigns", chain(http.HandlerFunc(h.ListCampaigns)))
	mux.Handle("POST /api/v1/campaigns", chain(http.HandlerFunc(h.CreateCampaign)))
	mux.Handle("GET /api/v1/campaigns/{id}", chain(http.HandlerFunc(h.GetCampaign)))
	mux.Handle("PUT /api/v1/campaigns/{id}", chain(http.HandlerFunc(h.UpdateCampaign)))
	mux.Handle("DELETE /api/v1/campaigns/{id}", chain(http.HandlerFunc(h.DeleteCampaign)))

	// Lead lists
	mux.Handle("POST /api/v1/lead-lists", chain(http.HandlerFunc(h.CreateLeadList)))
	mux.Handle("GET /api/v1/lead-lists", chain(http.HandlerFunc(h.ListLeadLists)))
	mux.Handle("GET /api/v1/lead-lists/{id}", chain(http.HandlerFunc(h.GetLeadList)))
	mux.Handle("GET /api/v1/lead-lists/{id}/leads", chain(http.HandlerFunc(h.ListLeads)))

	// Workflow definitions
	mux.Handle("PUT /api/v1/campaigns/{id}/workflow", chain(http.HandlerFunc(h.SaveWorkflow)))
	mux.Handle("GET /api/v1/campaigns/{id}/workflow", chain(http.HandlerFunc(h.GetActiveWorkflow)))
	mux.Handle("GET /api/v1/campaigns/{id}/workflow/versions", chain(http.HandlerFunc(h.ListWorkflowVersions)))

	// Runs
	mux.Handle("GET /api/v1/runs", chain(http.HandlerFunc(h.ListRuns)))
	mux.Handle("POST /api/v1/campaigns/{id}/runs", chain(http.HandlerFunc(h.CreateRun)))
	mux.Handle("GET /api/v1/runs/{id}", chain(http.HandlerFunc(h.GetRun)))
	mux.Handle("POST /api/v1/runs/{id}/cancel", chain(http.HandlerFunc(h.CancelRun)))
	mux.Handle("GET /api/v1/runs/{id}/leads", chain(http.HandlerFunc(h.ListRunLeads)))
	mux.Handle("GET /api/v1/runs/{id}/executions", chain(http.HandlerFunc(h.ListRunExecutions)))
	mux.Handle("GET /api/v1/runs/{id}/logs", chain(http.HandlerFunc(h.ListRunLogs)))
	mux.Handle("GET /api/v1/runs/{id}/progress", chain(http.HandlerFunc(h.StreamRunProgress)))

	// Queues
	mux.Handle("GET /api/v1/queues", chain(http.HandlerFunc(h.ListQueues)))
	mux.Handle("POST /api/v1/campaigns/{id}/queue", chain(http.HandlerFunc(h.CreateQueue)))
	mux.Handle("GET /api/v1/campaigns/{id}/queue", chain(http.HandlerFunc(h.GetQueueStatus)))
	mux.Handle("POST /api/v1/campaigns/{id}/queue/pause", chain(http.HandlerFunc(h.PauseQueue)))
	mux.Handle("POST /api/v1/campaigns/{id}/queue/resume", chain(http.HandlerFunc(h.ResumeQueue)))
	mux.Handle("DELETE /api/v1/campaigns/{id}/queue", chain(http.HandlerFunc(h.RemoveQueue)))

	// Schedules
	mux.Handle("POST /api/v1/campaigns/{id}/schedules", chain(http.HandlerFunc(h.CreateSchedule)))
	mux.Handle("GET /api/v1/campaigns/{id}/schedules", chain(http.HandlerFunc(h.ListSchedules)))
	mux.Handle("PUT /api/v1/schedules/{id}/enabled", chain(http.HandlerFunc(h.SetScheduleEnabled)))
}
