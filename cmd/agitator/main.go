// Package main - agitator
// Load generator: opens many websocket sessions against a running server and
// spams random player actions, counting acks and errors.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cosmic-idle/server/internal/domain/economy"
	"github.com/cosmic-idle/server/internal/domain/player"
	"github.com/cosmic-idle/server/internal/domain/prestige"
	"github.com/cosmic-idle/server/internal/domain/rules"
	"github.com/cosmic-idle/server/internal/engine"
	"github.com/cosmic-idle/server/internal/network"
)

// Config for the agitator
type Config struct {
	ServerURL      string
	NumClients     int
	ActionInterval time.Duration
	TestDuration   time.Duration
	AllowPrestige  bool
	ResultsPath    string
}

// Stats tracks performance metrics
type Stats struct {
	MessagesSent     int64
	MessagesReceived int64
	Acks             int64
	Applied          int64
	Rejected         int64 // error envelopes from the server
	Errors           int64 // transport failures
	Latencies        []time.Duration
	mu               sync.Mutex
}

func main() {
	serverURL := flag.String("url", "ws://localhost:8080/ws", "WebSocket server URL")
	numClients := flag.Int("clients", 20, "Number of concurrent clients")
	interval := flag.Duration("interval", 100*time.Millisecond, "Action interval per client")
	duration := flag.Duration("duration", 30*time.Second, "Test duration")
	allowPrestige := flag.Bool("prestige", false, "include PRESTIGE in the action mix")
	out := flag.String("out", "agitator_results.json", "results file, empty to skip")
	flag.Parse()

	config := Config{
		ServerURL:      *serverURL,
		NumClients:     *numClients,
		ActionInterval: *interval,
		TestDuration:   *duration,
		AllowPrestige:  *allowPrestige,
		ResultsPath:    *out,
	}

	fmt.Println("=========================================")
	fmt.Println("AGITATOR - websocket load generator")
	fmt.Println("=========================================")
	fmt.Printf("Server:   %s\n", config.ServerURL)
	fmt.Printf("Clients:  %d\n", config.NumClients)
	fmt.Printf("Interval: %v\n", config.ActionInterval)
	fmt.Printf("Duration: %v\n", config.TestDuration)
	fmt.Println("=========================================")

	ctx, cancel := context.WithTimeout(context.Background(), config.TestDuration)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	stats := runStressTest(ctx, config)
	printResults(stats, config)
}

func runStressTest(ctx context.Context, config Config) *Stats {
	stats := &Stats{
		Latencies: make([]time.Duration, 0, 10000),
	}

	var wg sync.WaitGroup
	for i := 0; i < config.NumClients; i++ {
		wg.Add(1)
		go func(clientID int) {
			defer wg.Done()
			runClient(ctx, clientID, config, stats)
		}(i)

		// Stagger client starts to avoid thundering herd
		time.Sleep(10 * time.Millisecond)
	}
	fmt.Printf("All %d clients started\n\n", config.NumClients)

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fmt.Printf("Progress: sent=%d recv=%d acks=%d rejected=%d errors=%d\n",
					atomic.LoadInt64(&stats.MessagesSent),
					atomic.LoadInt64(&stats.MessagesReceived),
					atomic.LoadInt64(&stats.Acks),
					atomic.LoadInt64(&stats.Rejected),
					atomic.LoadInt64(&stats.Errors))
			}
		}
	}()

	wg.Wait()
	return stats
}

func runClient(ctx context.Context, clientID int, config Config, stats *Stats) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, config.ServerURL, nil)
	if err != nil {
		log.Printf("client %d: connection failed: %v", clientID, err)
		atomic.AddInt64(&stats.Errors, 1)
		return
	}
	defer conn.Close()

	go func() {
		for {
			var env inbound
			if err := conn.ReadJSON(&env); err != nil {
				return
			}
			atomic.AddInt64(&stats.MessagesReceived, 1)
			countEnvelope(env, stats)
		}
	}()

	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(clientID)))
	ticker := time.NewTicker(config.ActionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			action := randomAction(rng, config.AllowPrestige)
			start := time.Now()

			if err := conn.WriteJSON(action); err != nil {
				atomic.AddInt64(&stats.Errors, 1)
				return
			}

			latency := time.Since(start)
			atomic.AddInt64(&stats.MessagesSent, 1)

			stats.mu.Lock()
			stats.Latencies = append(stats.Latencies, latency)
			stats.mu.Unlock()
		}
	}
}

// inbound mirrors network.Envelope with the payload left undecoded.
type inbound struct {
	Type  string          `json:"type"`
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

func countEnvelope(env inbound, stats *Stats) {
	switch env.Type {
	case network.MessageAck:
		atomic.AddInt64(&stats.Acks, 1)
		var ack network.Ack
		if err := json.Unmarshal(env.Data, &ack); err == nil && ack.Applied {
			atomic.AddInt64(&stats.Applied, 1)
		}
	case network.MessageError:
		atomic.AddInt64(&stats.Rejected, 1)
	}
}

var (
	attributes = []player.Attribute{player.AttrStrength, player.AttrDexterity, player.AttrVitality, player.AttrIntelligence}
	modules    = []rules.Module{rules.ModuleNone, rules.ModuleVampirism, rules.ModuleOverclock, rules.ModulePlating}
	gears      = []player.GearType{player.GearWeapon, player.GearArmor}
	artifacts  = []prestige.ArtifactID{prestige.ArtifactTimeDilation, prestige.ArtifactMatterConversion, prestige.ArtifactVoidShield}
)

// randomAction draws from the action vocabulary. Clicks dominate the mix so
// purchases eventually become affordable.
func randomAction(rng *rand.Rand, allowPrestige bool) engine.Action {
	switch n := rng.Intn(20); {
	case n < 8:
		return engine.Action{Type: engine.ActionClickMine}
	case n < 10:
		b := economy.BuildingTypes[rng.Intn(len(economy.BuildingTypes))]
		return engine.Action{Type: engine.ActionBuyBuilding, Building: string(b)}
	case n < 12:
		return engine.Action{Type: engine.ActionAllocatePoint, Stat: string(attributes[rng.Intn(len(attributes))])}
	case n == 12:
		return engine.Action{Type: engine.ActionEquipModule, Module: string(modules[rng.Intn(len(modules))])}
	case n == 13:
		return engine.Action{Type: engine.ActionSetAutoHeal, Percent: rng.Intn(10) * 10}
	case n == 14:
		return engine.Action{Type: engine.ActionUpgradeGear, Gear: string(gears[rng.Intn(len(gears))])}
	case n == 15:
		return engine.Action{Type: engine.ActionAddXP, Amount: float64(rng.Intn(50))}
	case n == 16:
		return engine.Action{Type: engine.ActionSetStage, Stage: 1 + rng.Intn(5)}
	case n == 17:
		return engine.Action{Type: engine.ActionToggleAutoProgress}
	case n == 18:
		return engine.Action{Type: engine.ActionBuyArtifact, Artifact: string(artifacts[rng.Intn(len(artifacts))])}
	default:
		if allowPrestige {
			return engine.Action{Type: engine.ActionPrestige}
		}
		return engine.Action{Type: engine.ActionClickMine}
	}
}

func printResults(stats *Stats, config Config) {
	fmt.Println("\n=========================================")
	fmt.Println("LOAD TEST RESULTS")
	fmt.Println("=========================================")

	sent := atomic.LoadInt64(&stats.MessagesSent)
	recv := atomic.LoadInt64(&stats.MessagesReceived)
	acks := atomic.LoadInt64(&stats.Acks)
	applied := atomic.LoadInt64(&stats.Applied)
	rejected := atomic.LoadInt64(&stats.Rejected)
	errs := atomic.LoadInt64(&stats.Errors)

	fmt.Printf("Messages Sent:     %d\n", sent)
	fmt.Printf("Messages Received: %d\n", recv)
	fmt.Printf("Acks:              %d (%d applied)\n", acks, applied)
	fmt.Printf("Rejected:          %d\n", rejected)
	fmt.Printf("Errors:            %d\n", errs)
	fmt.Printf("Error Rate:        %.2f%%\n", float64(errs)/float64(sent+1)*100)

	throughput := float64(sent) / config.TestDuration.Seconds()
	fmt.Printf("Throughput:        %.2f msg/sec\n", throughput)

	stats.mu.Lock()
	lat := append([]time.Duration(nil), stats.Latencies...)
	stats.mu.Unlock()
	minLat, avgLat, maxLat := latencySummary(lat)
	if len(lat) > 0 {
		fmt.Printf("\nWrite latency:\n")
		fmt.Printf("  Min: %v\n", minLat)
		fmt.Printf("  Avg: %v\n", avgLat)
		fmt.Printf("  Max: %v\n", maxLat)
	}

	fmt.Println("\n-----------------------------------------")
	switch {
	case errs == 0 && rejected == 0:
		fmt.Println("PASSED: server handled the load")
	case float64(errs+rejected)/float64(sent+1) < 0.05:
		fmt.Println("WARNING: some errors or rate-limit rejections")
	default:
		fmt.Println("FAILED: high error rate")
	}

	if config.ResultsPath == "" {
		return
	}
	results := map[string]interface{}{
		"messages_sent":      sent,
		"messages_received":  recv,
		"acks":               acks,
		"applied":            applied,
		"rejected":           rejected,
		"errors":             errs,
		"throughput_per_sec": throughput,
		"config": map[string]interface{}{
			"clients":  config.NumClients,
			"interval": config.ActionInterval.String(),
			"duration": config.TestDuration.String(),
		},
	}
	jsonData, _ := json.MarshalIndent(results, "", "  ")
	if err := os.WriteFile(config.ResultsPath, jsonData, 0644); err != nil {
		log.Printf("write results: %v", err)
		return
	}
	fmt.Printf("Results saved to %s\n", config.ResultsPath)
}

func latencySummary(lat []time.Duration) (minLat, avgLat, maxLat time.Duration) {
	if len(lat) == 0 {
		return 0, 0, 0
	}
	var total time.Duration
	minLat, maxLat = lat[0], lat[0]
	for _, l := range lat {
		total += l
		if l < minLat {
			minLat = l
		}
		if l > maxLat {
			maxLat = l
		}
	}
	return minLat, total / time.Duration(len(lat)), maxLat
}
