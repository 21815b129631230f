// Package metrics provides observability for the game server.
package metrics

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Collector gathers performance and gameplay counters.
type Collector struct {
	// Tick metrics
	TickCount      int64
	TickLatencySum int64 // nanoseconds
	TickLatencyMax int64
	TicksClamped   int64
	LastTickTime   time.Time

	// Persistence metrics
	SavesWritten  int64
	SaveLatSum    int64
	SaveLatMax    int64
	SaveErrors    int64
	LoadsAttempts int64
	LoadsFallback int64 // loads that fell back to a fresh game
	HistoryErrors int64 // events that never reached the history table

	// WebSocket metrics
	WSConnectionsActive int64
	WSMessagesIn        int64
	WSMessagesOut       int64
	WSErrors            int64

	// Gameplay
	ActionsApplied int64
	Victories      int64
	Deaths         int64
	Prestiges      int64

	// System
	StartTime time.Time
	mu        sync.RWMutex
}

// Global collector instance
var collector = NewCollector()

// Get returns the global collector.
func Get() *Collector {
	return collector
}

// NewCollector creates an empty collector. Tests use their own instance.
func NewCollector() *Collector {
	return &Collector{StartTime: time.Now()}
}

// RecordTick records a tick cycle completion.
func (c *Collector) RecordTick(latency time.Duration, clamped bool) {
	atomic.AddInt64(&c.TickCount, 1)
	atomic.AddInt64(&c.TickLatencySum, int64(latency))
	if clamped {
		atomic.AddInt64(&c.TicksClamped, 1)
	}

	// Update max (non-atomic but acceptable for metrics)
	if int64(latency) > atomic.LoadInt64(&c.TickLatencyMax) {
		atomic.StoreInt64(&c.TickLatencyMax, int64(latency))
	}

	c.mu.Lock()
	c.LastTickTime = time.Now()
	c.mu.Unlock()
}

// RecordSave records a save attempt.
func (c *Collector) RecordSave(latency time.Duration, err error) {
	if err != nil {
		atomic.AddInt64(&c.SaveErrors, 1)
		return
	}
	atomic.AddInt64(&c.SavesWritten, 1)
	atomic.AddInt64(&c.SaveLatSum, int64(latency))

	if int64(latency) > atomic.LoadInt64(&c.SaveLatMax) {
		atomic.StoreInt64(&c.SaveLatMax, int64(latency))
	}
}

// RecordLoad records a load attempt and whether it fell back to defaults.
func (c *Collector) RecordLoad(fellBack bool) {
	atomic.AddInt64(&c.LoadsAttempts, 1)
	if fellBack {
		atomic.AddInt64(&c.LoadsFallback, 1)
	}
}

// RecordHistoryError counts an event lost on its way to event history.
func (c *Collector) RecordHistoryError() {
	atomic.AddInt64(&c.HistoryErrors, 1)
}

// RecordWSConnection records WebSocket connection changes.
func (c *Collector) RecordWSConnection(delta int64) {
	atomic.AddInt64(&c.WSConnectionsActive, delta)
}

// RecordWSMessage records WebSocket messages.
func (c *Collector) RecordWSMessage(incoming bool) {
	if incoming {
		atomic.AddInt64(&c.WSMessagesIn, 1)
	} else {
		atomic.AddInt64(&c.WSMessagesOut, 1)
	}
}

// RecordWSError records a WebSocket error.
func (c *Collector) RecordWSError() {
	atomic.AddInt64(&c.WSErrors, 1)
}

// RecordAction records an applied player action.
func (c *Collector) RecordAction() {
	atomic.AddInt64(&c.ActionsApplied, 1)
}

// RecordVictory records a defeated enemy.
func (c *Collector) RecordVictory() {
	atomic.AddInt64(&c.Victories, 1)
}

// RecordDeath records a player death.
func (c *Collector) RecordDeath() {
	atomic.AddInt64(&c.Deaths, 1)
}

// RecordPrestige records a warp jump.
func (c *Collector) RecordPrestige() {
	atomic.AddInt64(&c.Prestiges, 1)
}

// Snapshot returns current metrics as a map.
func (c *Collector) Snapshot() map[string]interface{} {
	c.mu.RLock()
	lastTick := c.LastTickTime
	c.mu.RUnlock()

	tickCount := atomic.LoadInt64(&c.TickCount)
	saves := atomic.LoadInt64(&c.SavesWritten)

	// Calculate averages
	var tickAvg, saveAvg float64
	if tickCount > 0 {
		tickAvg = float64(atomic.LoadInt64(&c.TickLatencySum)) / float64(tickCount) / 1e6 // ms
	}
	if saves > 0 {
		saveAvg = float64(atomic.LoadInt64(&c.SaveLatSum)) / float64(saves) / 1e6
	}

	return map[string]interface{}{
		"uptime_seconds": time.Since(c.StartTime).Seconds(),

		"tick": map[string]interface{}{
			"count":          tickCount,
			"clamped":        atomic.LoadInt64(&c.TicksClamped),
			"avg_latency_ms": tickAvg,
			"max_latency_ms": float64(atomic.LoadInt64(&c.TickLatencyMax)) / 1e6,
			"last_tick":      lastTick.Format(time.RFC3339),
		},

		"persistence": map[string]interface{}{
			"saves":           saves,
			"avg_save_lat_ms": saveAvg,
			"max_save_lat_ms": float64(atomic.LoadInt64(&c.SaveLatMax)) / 1e6,
			"errors":          atomic.LoadInt64(&c.SaveErrors),
			"loads":           atomic.LoadInt64(&c.LoadsAttempts),
			"load_fallbacks":  atomic.LoadInt64(&c.LoadsFallback),
			"history_errors":  atomic.LoadInt64(&c.HistoryErrors),
		},

		"websocket": map[string]interface{}{
			"active_connections": atomic.LoadInt64(&c.WSConnectionsActive),
			"messages_in":        atomic.LoadInt64(&c.WSMessagesIn),
			"messages_out":       atomic.LoadInt64(&c.WSMessagesOut),
			"errors":             atomic.LoadInt64(&c.WSErrors),
		},

		"gameplay": map[string]interface{}{
			"actions":   atomic.LoadInt64(&c.ActionsApplied),
			"victories": atomic.LoadInt64(&c.Victories),
			"deaths":    atomic.LoadInt64(&c.Deaths),
			"prestiges": atomic.LoadInt64(&c.Prestiges),
		},
	}
}

// Handler returns an HTTP handler for the JSON metrics endpoint.
func (c *Collector) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")
		json.NewEncoder(w).Encode(c.Snapshot())
	}
}

// PrometheusHandler returns metrics in Prometheus text format.
func (c *Collector) PrometheusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		counter := func(name, help string, v int64) {
			fmt.Fprintf(w, "# HELP idle_%s %s\n", name, help)
			fmt.Fprintf(w, "# TYPE idle_%s counter\n", name)
			fmt.Fprintf(w, "idle_%s %d\n\n", name, v)
		}

		counter("tick_count", "Total tick cycles", atomic.LoadInt64(&c.TickCount))
		counter("ticks_clamped", "Ticks whose delta hit the upper bound", atomic.LoadInt64(&c.TicksClamped))

		fmt.Fprintf(w, "# HELP idle_tick_latency_max_ms Maximum tick latency\n")
		fmt.Fprintf(w, "# TYPE idle_tick_latency_max_ms gauge\n")
		fmt.Fprintf(w, "idle_tick_latency_max_ms %.3f\n\n", float64(atomic.LoadInt64(&c.TickLatencyMax))/1e6)

		counter("saves_total", "Successful saves", atomic.LoadInt64(&c.SavesWritten))
		counter("save_errors_total", "Failed saves", atomic.LoadInt64(&c.SaveErrors))
		counter("history_errors_total", "Events lost before reaching history", atomic.LoadInt64(&c.HistoryErrors))

		fmt.Fprintf(w, "# HELP idle_ws_connections Active WebSocket connections\n")
		fmt.Fprintf(w, "# TYPE idle_ws_connections gauge\n")
		fmt.Fprintf(w, "idle_ws_connections %d\n\n", atomic.LoadInt64(&c.WSConnectionsActive))

		fmt.Fprintf(w, "# HELP idle_ws_messages_total Total WebSocket messages\n")
		fmt.Fprintf(w, "# TYPE idle_ws_messages_total counter\n")
		fmt.Fprintf(w, "idle_ws_messages_total{direction=\"in\"} %d\n", atomic.LoadInt64(&c.WSMessagesIn))
		fmt.Fprintf(w, "idle_ws_messages_total{direction=\"out\"} %d\n\n", atomic.LoadInt64(&c.WSMessagesOut))

		counter("actions_total", "Applied player actions", atomic.LoadInt64(&c.ActionsApplied))
		counter("victories_total", "Enemies defeated", atomic.LoadInt64(&c.Victories))
		counter("deaths_total", "Player deaths", atomic.LoadInt64(&c.Deaths))
		counter("prestiges_total", "Warp jumps", atomic.LoadInt64(&c.Prestiges))
	}
}
