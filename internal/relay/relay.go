package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Cadence/internal/domain"
	"github.com/shaiso/Cadence/internal/mq"
)

// defaultHeartbeat — интервал keep-alive комментариев SSE.
const defaultHeartbeat = 15 * time.Second

// EventSource — подписка на события jobs кампании.
// Реализуется mq.EventStream.
type EventSource interface {
	Subscribe(ctx context.Context, campaignID uuid.UUID) (<-chan mq.JobEventPayload, func(), error)
}

// RunStore — чтение run для initial snapshot и терминальной проверки.
type RunStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.CampaignRun, error)
}

// Progress — кадр прогресса run, отправляемый SSE-клиенту.
type Progress struct {
	RunID     uuid.UUID        `json:"run_id"`
	Status    domain.RunStatus `json:"status"`
	Processed int              `json:"processed"`
	Success   int              `json:"success"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// Relay стримит прогресс run клиентам через Server-Sent Events.
//
// Первым кадром уходит snapshot из БД, дальше — события из брокера.
// Поток закрывается, когда run достигает терминального статуса или
// клиент отключается; подписка на события кампании снимается вместе
// с ним.
type Relay struct {
	events    EventSource
	runs      RunStore
	logger    *slog.Logger
	heartbeat time.Duration
}

// New создаёт Relay.
func New(events EventSource, runs RunStore, logger *slog.Logger) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{
		events:    events,
		runs:      runs,
		logger:    logger,
		heartbeat: defaultHeartbeat,
	}
}

// ServeRunProgress обслуживает одно SSE-соединение для run.
func (r *Relay) ServeRunProgress(w http.ResponseWriter, req *http.Request, runID uuid.UUID) {
	ctx := req.Context()

	run, err := r.runs.GetByID(ctx, runID)
	if err != nil {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	// Initial snapshot: клиент сразу видит текущее состояние, даже
	// если события перестали приходить.
	r.writeProgress(w, flusher, runFrame(run))

	if run.Status.IsTerminal() {
		r.writeEnd(w, flusher, run.Status)
		return
	}

	ch, cancel, err := r.events.Subscribe(ctx, run.CampaignID)
	if err != nil {
		r.logger.Error("failed to subscribe to campaign events",
			"campaign_id", run.CampaignID, "error", err)
		r.writeEnd(w, flusher, run.Status)
		return
	}
	defer cancel()

	ticker := time.NewTicker(r.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()

		case ev, ok := <-ch:
			if !ok {
				return
			}
			// События кампании общие для всех её runs.
			if ev.RunID != runID {
				continue
			}

			fresh, err := r.runs.GetByID(ctx, runID)
			if err != nil {
				r.logger.Warn("failed to refresh run", "run_id", runID, "error", err)
				continue
			}

			r.writeProgress(w, flusher, runFrame(fresh))

			if fresh.Status.IsTerminal() {
				r.writeEnd(w, flusher, fresh.Status)
				return
			}
		}
	}
}

// runFrame собирает кадр прогресса из run.
func runFrame(run *domain.CampaignRun) Progress {
	return Progress{
		RunID:     run.ID,
		Status:    run.Status,
		Processed: run.Stats.Processed,
		Success:   run.Stats.Success,
		Failed:    run.Stats.Failed,
		Total:     run.Stats.TotalLeads,
	}
}

// writeProgress отправляет event: progress.
func (r *Relay) writeProgress(w http.ResponseWriter, flusher http.Flusher, p Progress) {
	data, err := json.Marshal(p)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: progress\ndata: %s\n\n", data)
	flusher.Flush()
}

// writeEnd отправляет терминальный event: end и финальный статус.
func (r *Relay) writeEnd(w http.ResponseWriter, flusher http.Flusher, status domain.RunStatus) {
	fmt.Fprintf(w, "event: end\ndata: {\"status\":%q}\n\n", status)
	flusher.Flush()
}
