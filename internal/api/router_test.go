package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/cosmic-idle/server/internal/engine"
	"github.com/cosmic-idle/server/internal/events"
	"github.com/cosmic-idle/server/internal/infra/storage"
	"github.com/cosmic-idle/server/internal/persistence"
	"github.com/cosmic-idle/server/internal/platform/logger"
	"github.com/cosmic-idle/server/internal/platform/metrics"
)

type fixture struct {
	router  *gin.Engine
	engine  *engine.Engine
	store   *storage.MemoryStore
	history *storage.MemoryEventRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logger.Discard()
	m := metrics.NewCollector()
	el := events.NewEventLog(nil)
	store := storage.NewMemoryStore()
	history := storage.NewMemoryEventRepository()

	cfg := engine.DefaultConfig()
	cfg.Metrics = m
	eng := engine.NewEngine(el, log, cfg)
	gw := persistence.NewGateway(store, "", el, log, m)

	r := NewRouter(Deps{
		Game:    NewGameHandler(eng, gw, log),
		Events:  NewEventsHandler(el, history),
		Metrics: m,
	})
	return &fixture{router: r, engine: eng, store: store, history: history}
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	if w := f.do(http.MethodGet, "/health", ""); w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}
}

func TestGetState(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/api/state", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var snap engine.Snapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("Bad body: %v", err)
	}
	if snap.Stats.Damage != 7 {
		t.Errorf("Expected damage 7, got %d", snap.Stats.Damage)
	}
}

func TestPostAction(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/api/actions", `{"type":"CLICK_MINE"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp ActionResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if !resp.Applied || resp.State.Resources.Stardust != 1 {
		t.Errorf("Unexpected response: applied=%v stardust=%v", resp.Applied, resp.State.Resources.Stardust)
	}

	// Legal but unaffordable
	w = f.do(http.MethodPost, "/api/actions", `{"type":"BUY_BUILDING","building":"autoMiner"}`)
	json.Unmarshal(w.Body.Bytes(), &resp)
	if w.Code != http.StatusOK || resp.Applied {
		t.Errorf("Expected 200 not applied, got %d %v", w.Code, resp.Applied)
	}
}

func TestPostActionRejectsMalformed(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		body string
	}{
		{"not json", `{`},
		{"unknown type", `{"type":"DANCE"}`},
		{"unknown building", `{"type":"BUY_BUILDING","building":"farm"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := f.do(http.MethodPost, "/api/actions", tt.body); w.Code != http.StatusBadRequest {
				t.Errorf("Expected 400, got %d", w.Code)
			}
		})
	}
}

func TestSaveAndReset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.engine.ClickMine()

	if w := f.do(http.MethodPost, "/api/save", ""); w.Code != http.StatusOK {
		t.Fatalf("Save failed: %d", w.Code)
	}
	if _, err := f.store.Get(ctx, persistence.DefaultSaveKey); err != nil {
		t.Fatalf("Expected record stored: %v", err)
	}

	if w := f.do(http.MethodPost, "/api/reset", ""); w.Code != http.StatusBadRequest {
		t.Errorf("Reset without confirm should be rejected, got %d", w.Code)
	}

	if w := f.do(http.MethodPost, "/api/reset?confirm=true", ""); w.Code != http.StatusOK {
		t.Fatalf("Reset failed: %d", w.Code)
	}
	if got := f.engine.Snapshot().Resources.Stardust; got != 0 {
		t.Errorf("Expected wiped resources, got %v", got)
	}

	// The old run must not come back on the next start.
	reader := persistence.NewGateway(f.store, "", nil, logger.Discard(), nil)
	snap, res, err := reader.Load(ctx)
	if err != nil || !res.Found {
		t.Fatalf("Expected the fresh game stored, found=%v err=%v", res.Found, err)
	}
	if snap.Resources.Stardust != 0 || snap.Player.Level != 1 {
		t.Errorf("Expected a fresh record after reset, got stardust %v level %d", snap.Resources.Stardust, snap.Player.Level)
	}
}

func TestEventsSince(t *testing.T) {
	f := newFixture(t)
	f.engine.ToggleAutoProgress()
	f.engine.ToggleAutoProgress()
	f.engine.EquipModule("plating")

	w := f.do(http.MethodGet, "/api/events?since=1", "")
	var resp EventsResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Events) != 2 || resp.LastSeq != 3 {
		t.Errorf("Expected 2 events after seq 1 with last 3, got %d last %d", len(resp.Events), resp.LastSeq)
	}

	w = f.do(http.MethodGet, "/api/events?type=MODULE_EQUIPPED", "")
	json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Events) != 1 {
		t.Errorf("Expected 1 filtered event, got %d", len(resp.Events))
	}

	if w := f.do(http.MethodGet, "/api/events?since=abc", ""); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad since, got %d", w.Code)
	}
}

func TestEventHistory(t *testing.T) {
	f := newFixture(t)
	f.history.Append(context.Background(), storage.EventRecord{Seq: 1, ID: "a", EventType: "PRESTIGE", Payload: "{}"})

	w := f.do(http.MethodGet, "/api/events/history?limit=5", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"PRESTIGE"`) {
		t.Errorf("Unexpected history response %d: %s", w.Code, w.Body.String())
	}
}

func TestMetricsEndpoints(t *testing.T) {
	f := newFixture(t)
	f.do(http.MethodPost, "/api/actions", `{"type":"CLICK_MINE"}`)

	w := f.do(http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "idle_actions_total 1") {
		t.Errorf("Unexpected prometheus output: %s", w.Body.String())
	}

	w = f.do(http.MethodGet, "/api/metrics", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"gameplay"`) {
		t.Errorf("Unexpected metrics JSON: %s", w.Body.String())
	}

	if w := f.do(http.MethodGet, "/api/metrics/recommendations", ""); w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}
}
