package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cosmic-idle/server/internal/events"
	"github.com/cosmic-idle/server/internal/infra/storage"
)

// EventsHandler serves the in-memory event log and the durable history.
type EventsHandler struct {
	eventLog *events.EventLog
	history  storage.EventRepository
}

// NewEventsHandler creates an EventsHandler. history may be nil.
func NewEventsHandler(el *events.EventLog, history storage.EventRepository) *EventsHandler {
	return &EventsHandler{eventLog: el, history: history}
}

// EventsResponse is the answer of a Since query.
type EventsResponse struct {
	LastSeq int64              `json:"last_seq"`
	Events  []events.GameEvent `json:"events"`
}

// Since returns retained events after a sequence number, optionally
// filtered by type.
// GET /api/events?since=N&type=LEVEL_UP
func (h *EventsHandler) Since(c *gin.Context) {
	since, err := strconv.ParseInt(c.DefaultQuery("since", "0"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "since must be an integer"})
		return
	}
	eventType := c.Query("type")

	out := make([]events.GameEvent, 0)
	for _, e := range h.eventLog.Since(since) {
		if eventType != "" && string(e.Type) != eventType {
			continue
		}
		out = append(out, e)
	}
	c.JSON(http.StatusOK, EventsResponse{LastSeq: h.eventLog.LastSeq(), Events: out})
}

// History returns durable events, newest first.
// GET /api/events/history?limit=N&type=PRESTIGE
func (h *EventsHandler) History(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "event history is disabled"})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(storage.DefaultHistoryLimit)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer"})
		return
	}

	var records []storage.EventRecord
	if t := c.Query("type"); t != "" {
		records, err = h.history.ByType(c.Request.Context(), t, limit)
	} else {
		records, err = h.history.Recent(c.Request.Context(), limit)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if records == nil {
		records = []storage.EventRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"events": records})
}

// Stats counts retained events by type.
// GET /api/events/stats
func (h *EventsHandler) Stats(c *gin.Context) {
	all := h.eventLog.Replay()

	counts := make(map[events.EventType]int)
	for _, e := range all {
		counts[e.Type]++
	}

	c.JSON(http.StatusOK, gin.H{
		"generated_at": time.Now().Format(time.RFC3339),
		"retained":     len(all),
		"last_seq":     h.eventLog.LastSeq(),
		"by_type":      counts,
	})
}
