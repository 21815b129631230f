// Package optimization provides tuning presets for the server's buffers and
// pools, and recommendations derived from observed metrics.
package optimization

import (
	"fmt"
	"runtime"
)

// Config holds tuned parameters.
type Config struct {
	// Channel buffer sizes
	BroadcastChannelBuffer int
	ClientSendBuffer       int

	// In-memory event history
	EventLogCapacity int

	// Connection pools
	DBMaxOpenConns int

	// Rate limiting
	MaxMessagesPerSecond int
	MaxClients           int
}

// Preset names accepted by Preset.
const (
	PresetDefault = "default"
	PresetLow     = "low"
	PresetStress  = "stress"
)

// DefaultConfig returns sensible defaults for production.
func DefaultConfig() *Config {
	numCPU := runtime.NumCPU()

	return &Config{
		BroadcastChannelBuffer: 256,
		ClientSendBuffer:       64, // per websocket

		EventLogCapacity: 1024,

		DBMaxOpenConns: numCPU * 4,

		MaxMessagesPerSecond: 50, // per client
		MaxClients:           64,
	}
}

// StressTestConfig returns aggressive settings for load testing with the
// agitator.
func StressTestConfig() *Config {
	numCPU := runtime.NumCPU()

	return &Config{
		BroadcastChannelBuffer: 1024,
		ClientSendBuffer:       256,

		EventLogCapacity: 4096,

		DBMaxOpenConns: numCPU * 8,

		MaxMessagesPerSecond: 500,
		MaxClients:           500,
	}
}

// LowResourceConfig returns minimal settings for development.
func LowResourceConfig() *Config {
	return &Config{
		BroadcastChannelBuffer: 16,
		ClientSendBuffer:       8,

		EventLogCapacity: 128,

		DBMaxOpenConns: 2,

		MaxMessagesPerSecond: 10,
		MaxClients:           8,
	}
}

// Preset resolves a preset name. The empty name is the default preset.
func Preset(name string) (*Config, error) {
	switch name {
	case "", PresetDefault:
		return DefaultConfig(), nil
	case PresetLow:
		return LowResourceConfig(), nil
	case PresetStress:
		return StressTestConfig(), nil
	}
	return nil, fmt.Errorf("unknown tuning preset %q", name)
}

// Recommendations provides suggestions based on observed metrics.
type Recommendations struct {
	IncreaseBroadcastBuffer bool     `json:"increase_broadcast_buffer"`
	IncreaseDBConnections   bool     `json:"increase_db_connections"`
	LengthenTickInterval    bool     `json:"lengthen_tick_interval"`
	Notes                   []string `json:"notes"`
}

// Analyze examines a metrics snapshot and returns recommendations.
func Analyze(metrics map[string]interface{}) *Recommendations {
	rec := &Recommendations{
		Notes: make([]string, 0),
	}

	// Check tick latency
	if tick, ok := metrics["tick"].(map[string]interface{}); ok {
		if maxLat, ok := tick["max_latency_ms"].(float64); ok && maxLat > 50 {
			rec.LengthenTickInterval = true
			rec.Notes = append(rec.Notes, "Tick latency exceeds 50ms - lengthen tick_interval")
		}
		if clamped, ok := tick["clamped"].(int64); ok && clamped > 0 {
			rec.LengthenTickInterval = true
			rec.Notes = append(rec.Notes, "Ticks hit max_tick_delta - the process is stalling")
		}
	}

	// Check save latency
	if p, ok := metrics["persistence"].(map[string]interface{}); ok {
		if maxLat, ok := p["max_save_lat_ms"].(float64); ok && maxLat > 100 {
			rec.IncreaseDBConnections = true
			rec.Notes = append(rec.Notes, "Save latency exceeds 100ms - increase DB connections")
		}
		if errors, ok := p["errors"].(int64); ok && errors > 0 {
			rec.IncreaseDBConnections = true
			rec.Notes = append(rec.Notes, "Save errors detected - check the storage backend")
		}
	}

	// Check WebSocket backpressure
	if ws, ok := metrics["websocket"].(map[string]interface{}); ok {
		if errors, ok := ws["errors"].(int64); ok && errors > 0 {
			rec.IncreaseBroadcastBuffer = true
			rec.Notes = append(rec.Notes, "WebSocket errors detected - increase client send buffer")
		}
	}

	return rec
}

// ApplyRecommendations modifies config based on recommendations.
func ApplyRecommendations(config *Config, rec *Recommendations) *Config {
	if rec.IncreaseBroadcastBuffer {
		config.BroadcastChannelBuffer *= 2
		config.ClientSendBuffer *= 2
	}
	if rec.IncreaseDBConnections {
		config.DBMaxOpenConns = int(float64(config.DBMaxOpenConns) * 1.5)
	}
	return config
}
