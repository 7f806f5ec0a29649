package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/shaiso/Cadence/internal/domain"
	"github.com/shaiso/Cadence/internal/mq"
)

// ListQueues возвращает все очереди кампаний.
// GET /api/v1/queues
func (h *Handler) ListQueues(w http.ResponseWriter, r *http.Request) {
	queues, err := h.queueRepo.List(r.Context())
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]QueueResponse, len(queues))
	for i, q := range queues {
		result[i] = QueueFromDomain(q)
	}

	List(w, result, len(result))
}

// CreateQueue запрашивает создание очереди кампании.
//
// Саму очередь и её workers поднимает queue manager в worker-процессе,
// поэтому команда выполняется асинхронно через control exchange.
//
// POST /api/v1/campaigns/{id}/queue
func (h *Handler) CreateQueue(w http.ResponseWriter, r *http.Request) {
	campaignID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid campaign id")
		return
	}

	var req CreateQueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if _, err := h.campaignRepo.GetByID(r.Context(), campaignID); HandleRepoError(w, h.logger, err, "campaign not found") {
		return
	}

	if err := h.publisher.PublishControl(r.Context(), mq.ControlPayload{
		Command:     mq.ControlCreate,
		CampaignID:  campaignID,
		WorkerCount: req.WorkerCount,
	}); err != nil {
		InternalError(w, h.logger, err)
		return
	}

	Accepted(w, map[string]any{
		"campaign_id": campaignID,
		"command":     string(mq.ControlCreate),
	})
}

// GetQueueStatus возвращает живые счётчики очереди кампании.
// GET /api/v1/campaigns/{id}/queue
func (h *Handler) GetQueueStatus(w http.ResponseWriter, r *http.Request) {
	campaignID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid campaign id")
		return
	}

	queue, err := h.queueRepo.GetByCampaign(r.Context(), campaignID)
	if HandleRepoError(w, h.logger, err, "queue not found") {
		return
	}

	waiting, err := mq.QueueDepth(r.Context(), h.conn, campaignID)
	if err != nil {
		h.logger.Warn("failed to read queue depth",
			"campaign_id", campaignID, "error", err)
	}

	Success(w, QueueStatusResponse{
		CampaignID: campaignID,
		QueueName:  queue.QueueName,
		Waiting:    waiting,
		Completed:  queue.CompletedJobs,
		Failed:     queue.FailedJobs,
		Paused:     queue.Status == domain.QueueStatusPaused,
	})
}

// PauseQueue приостанавливает обработку очереди кампании.
// POST /api/v1/campaigns/{id}/queue/pause
func (h *Handler) PauseQueue(w http.ResponseWriter, r *http.Request) {
	h.setQueueState(w, r, domain.QueueStatusPaused, mq.ControlPause)
}

// ResumeQueue возобновляет обработку очереди кампании.
// POST /api/v1/campaigns/{id}/queue/resume
func (h *Handler) ResumeQueue(w http.ResponseWriter, r *http.Request) {
	h.setQueueState(w, r, domain.QueueStatusActive, mq.ControlResume)
}

func (h *Handler) setQueueState(w http.ResponseWriter, r *http.Request, status domain.QueueStatus, command mq.ControlCommand) {
	campaignID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid campaign id")
		return
	}

	if err := h.queueRepo.UpdateStatus(r.Context(), campaignID, status); HandleRepoError(w, h.logger, err, "queue not found") {
		return
	}

	// Consumers останавливает/запускает queue manager по control-команде.
	if err := h.publisher.PublishControl(r.Context(), mq.ControlPayload{
		Command:    command,
		CampaignID: campaignID,
	}); err != nil {
		h.logger.Warn("failed to publish queue control command",
			"campaign_id", campaignID, "command", command, "error", err)
	}

	queue, err := h.queueRepo.GetByCampaign(r.Context(), campaignID)
	if HandleRepoError(w, h.logger, err, "queue not found") {
		return
	}

	Success(w, QueueFromDomain(*queue))
}

// RemoveQueue запрашивает удаление очереди кампании.
// DELETE /api/v1/campaigns/{id}/queue
func (h *Handler) RemoveQueue(w http.ResponseWriter, r *http.Request) {
	campaignID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid campaign id")
		return
	}

	// Команда идёт без проверки существования очереди: remove для
	// уже удалённой кампании — no-op на стороне manager.
	if err := h.publisher.PublishControl(r.Context(), mq.ControlPayload{
		Command:    mq.ControlRemove,
		CampaignID: campaignID,
	}); err != nil {
		InternalError(w, h.logger, err)
		return
	}

	Accepted(w, map[string]any{
		"campaign_id": campaignID,
		"command":     string(mq.ControlRemove),
	})
}
