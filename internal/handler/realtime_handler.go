package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/go-chi/chi/v5"

	"beyond-pages/internal/realtime"
	"beyond-pages/pkg/errors"
	"beyond-pages/pkg/logger"
)

const heartbeatInterval = 25 * time.Second

var columnName = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// RealtimeHandler streams table changes as server-sent events
type RealtimeHandler struct {
	hub       *realtime.Hub
	heartbeat time.Duration
	logger    *logger.Logger
}

func NewRealtimeHandler(hub *realtime.Hub, logger *logger.Logger) *RealtimeHandler {
	return &RealtimeHandler{hub: hub, heartbeat: heartbeatInterval, logger: logger}
}

// Stream handles GET /api/realtime/{table}?column=&value=. Private tables
// are always filtered to the caller's own rows.
func (h *RealtimeHandler) Stream(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	table := chi.URLParam(r, "table")
	if _, ok := realtime.Tables[table]; !ok {
		respondError(w, r, errors.NewNotFoundError("Table does not publish changes"), h.logger)
		return
	}

	filter := realtime.Filter{Column: r.URL.Query().Get("column"), Value: r.URL.Query().Get("value")}
	if realtime.IsPrivate(table) {
		filter = realtime.Filter{Column: realtime.OwnerColumn, Value: user.ID}
	} else if filter.Column != "" && !columnName.MatchString(filter.Column) {
		respondError(w, r, errors.NewFieldError("column", "Invalid column name"), h.logger)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, r, errors.NewInternalError("Streaming unsupported", nil), h.logger)
		return
	}

	sub, err := h.hub.Subscribe(table, filter)
	if err != nil {
		respondError(w, r, errors.NewBackendError("Change feed unavailable", err), h.logger)
		return
	}
	defer sub.Close()

	// The stream outlives the server write timeout
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "event: ready\ndata: {\"table\":%q}\n\n", table)
	flusher.Flush()

	log := h.logger.WithFields(map[string]interface{}{"table": table, "user_id": user.ID})
	log.Debug("Realtime subscriber connected")

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			log.Debug("Realtime subscriber disconnected")
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				log.WithError(err).Warn("Failed to encode change event")
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
