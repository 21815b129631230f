package main

import (
	"math/rand"
	"testing"
	"time"

	"github.com/cosmic-idle/server/internal/engine"
	"github.com/cosmic-idle/server/internal/network"
)

func TestRandomActionsAreWellFormed(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	eng := engine.NewEngine(nil, nil, engine.DefaultConfig())

	for i := 0; i < 500; i++ {
		a := randomAction(rng, true)
		if _, err := eng.Dispatch(a); err != nil {
			t.Fatalf("Expected %s to dispatch cleanly, got %v", a.Type, err)
		}
	}
}

func TestRandomActionOmitsPrestigeUnlessAllowed(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 1000; i++ {
		if a := randomAction(rng, false); a.Type == engine.ActionPrestige {
			t.Fatal("Expected no PRESTIGE when disallowed")
		}
	}
}

func TestCountEnvelope(t *testing.T) {
	stats := &Stats{}

	countEnvelope(inbound{Type: network.MessageAck, Data: []byte(`{"action":"CLICK_MINE","applied":true}`)}, stats)
	countEnvelope(inbound{Type: network.MessageAck, Data: []byte(`{"action":"PRESTIGE","applied":false}`)}, stats)
	countEnvelope(inbound{Type: network.MessageError, Error: "rate limited"}, stats)
	countEnvelope(inbound{Type: network.MessageState}, stats)

	if stats.Acks != 2 || stats.Applied != 1 || stats.Rejected != 1 {
		t.Errorf("Expected acks=2 applied=1 rejected=1, got %d/%d/%d", stats.Acks, stats.Applied, stats.Rejected)
	}
}

func TestLatencySummary(t *testing.T) {
	minLat, avgLat, maxLat := latencySummary([]time.Duration{3 * time.Millisecond, time.Millisecond, 2 * time.Millisecond})
	if minLat != time.Millisecond || avgLat != 2*time.Millisecond || maxLat != 3*time.Millisecond {
		t.Errorf("Expected 1ms/2ms/3ms, got %v/%v/%v", minLat, avgLat, maxLat)
	}
}
