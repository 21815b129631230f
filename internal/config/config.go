// Package config loads the server configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cosmic-idle/server/internal/domain/economy"
	"github.com/cosmic-idle/server/internal/domain/prestige"
	"github.com/cosmic-idle/server/internal/domain/rules"
	"github.com/cosmic-idle/server/internal/engine"
	"github.com/cosmic-idle/server/internal/infra/storage"
	"github.com/cosmic-idle/server/internal/persistence"
	"github.com/cosmic-idle/server/internal/platform/optimization"
)

// Config is the root of the YAML document.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Logging LoggingConfig `yaml:"logging"`
	Tuning  TuningConfig  `yaml:"tuning"`
	Balance BalanceConfig `yaml:"balance"`
}

// ServerConfig holds the listen address and loop cadences.
type ServerConfig struct {
	Addr              string        `yaml:"addr"`
	TickInterval      time.Duration `yaml:"tick_interval"`
	MaxTickDelta      time.Duration `yaml:"max_tick_delta"`
	AutosaveInterval  time.Duration `yaml:"autosave_interval"`
	BroadcastInterval time.Duration `yaml:"broadcast_interval"`
}

// StorageConfig selects the save backend.
type StorageConfig struct {
	Driver       string `yaml:"driver"` // sqlite, postgres or memory
	DSN          string `yaml:"dsn"`
	SaveKey      string `yaml:"save_key"`
	EventHistory bool   `yaml:"event_history"`
}

// LoggingConfig sets the log level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// TuningConfig names an optimization preset.
type TuningConfig struct {
	Preset string `yaml:"preset"`
}

// BalanceConfig overrides the shipped balance tables.
type BalanceConfig struct {
	PrestigeRequirement int                         `yaml:"prestige_requirement"`
	Buildings           map[string]BuildingOverride `yaml:"buildings"`
	Artifacts           map[string]ArtifactOverride `yaml:"artifacts"`
}

// BuildingOverride replaces a building's cost or output vector. A present
// vector replaces the whole default vector.
type BuildingOverride struct {
	Cost   *economy.Resources `yaml:"cost"`
	Output *economy.Resources `yaml:"output"`
}

// ArtifactOverride replaces an artifact's Dark Matter price.
type ArtifactOverride struct {
	Cost *int `yaml:"cost"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:              ":8080",
			TickInterval:      engine.DefaultTickInterval,
			MaxTickDelta:      engine.DefaultMaxTickDelta,
			AutosaveInterval:  engine.DefaultAutosaveInterval,
			BroadcastInterval: 250 * time.Millisecond,
		},
		Storage: StorageConfig{
			Driver:       storage.DriverSQLite,
			DSN:          "idle.db",
			SaveKey:      persistence.DefaultSaveKey,
			EventHistory: true,
		},
		Logging: LoggingConfig{Level: "info"},
		Tuning:  TuningConfig{Preset: optimization.PresetDefault},
		Balance: BalanceConfig{
			PrestigeRequirement: engine.DefaultPrestigeRequirement,
		},
	}
}

// Load reads path over Default. An empty path returns Default.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	var errs []error

	s := c.Server
	if s.Addr == "" {
		errs = append(errs, errors.New("server.addr is empty"))
	}
	if s.TickInterval <= 0 {
		errs = append(errs, errors.New("server.tick_interval must be positive"))
	}
	if s.MaxTickDelta < s.TickInterval {
		errs = append(errs, errors.New("server.max_tick_delta must be at least tick_interval"))
	}
	if s.AutosaveInterval <= 0 {
		errs = append(errs, errors.New("server.autosave_interval must be positive"))
	}
	if s.BroadcastInterval <= 0 {
		errs = append(errs, errors.New("server.broadcast_interval must be positive"))
	}

	switch c.Storage.Driver {
	case storage.DriverSQLite, storage.DriverPostgres:
		if c.Storage.DSN == "" {
			errs = append(errs, fmt.Errorf("storage.dsn is required for driver %q", c.Storage.Driver))
		}
	case storage.DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown storage.driver %q", c.Storage.Driver))
	}

	if _, err := optimization.Preset(c.Tuning.Preset); err != nil {
		errs = append(errs, err)
	}

	if c.Balance.PrestigeRequirement < 0 {
		errs = append(errs, errors.New("balance.prestige_requirement must not be negative"))
	}
	if c.Balance.PrestigeRequirement > rules.MaxStage {
		errs = append(errs, fmt.Errorf("balance.prestige_requirement must not exceed the last stage %d", rules.MaxStage))
	}
	for id, o := range c.Balance.Buildings {
		if !economy.BuildingType(id).Valid() {
			errs = append(errs, fmt.Errorf("unknown building %q", id))
			continue
		}
		if o.Cost != nil && (o.Cost.Stardust < 0 || o.Cost.Energy < 0 || o.Cost.Essence < 0) {
			errs = append(errs, fmt.Errorf("building %q has a negative cost", id))
		}
	}
	defaults := prestige.DefaultCatalog()
	for id, o := range c.Balance.Artifacts {
		if _, ok := defaults[prestige.ArtifactID(id)]; !ok {
			errs = append(errs, fmt.Errorf("unknown artifact %q", id))
			continue
		}
		if o.Cost != nil && *o.Cost < 0 {
			errs = append(errs, fmt.Errorf("artifact %q has a negative cost", id))
		}
	}

	return errors.Join(errs...)
}

// BuildingCatalog applies the overrides to the default building table.
func (c *Config) BuildingCatalog() economy.Catalog {
	cat := economy.DefaultCatalog()
	for id, o := range c.Balance.Buildings {
		t := economy.BuildingType(id)
		spec, ok := cat[t]
		if !ok {
			continue
		}
		if o.Cost != nil {
			spec.BaseCost = *o.Cost
		}
		if o.Output != nil {
			spec.Output = *o.Output
		}
		cat[t] = spec
	}
	return cat
}

// ArtifactCatalog applies the overrides to the default artifact table.
func (c *Config) ArtifactCatalog() prestige.Catalog {
	cat := prestige.DefaultCatalog()
	for id, o := range c.Balance.Artifacts {
		a, ok := cat[prestige.ArtifactID(id)]
		if !ok || o.Cost == nil {
			continue
		}
		a.Cost = *o.Cost
		cat[a.ID] = a
	}
	return cat
}

// EngineConfig builds the engine balance from this configuration.
func (c *Config) EngineConfig() engine.Config {
	return engine.Config{
		Buildings:           c.BuildingCatalog(),
		Artifacts:           c.ArtifactCatalog(),
		PrestigeRequirement: c.Balance.PrestigeRequirement,
	}
}

// TuningPreset resolves the tuning preset. Validate has already checked it.
func (c *Config) TuningPreset() *optimization.Config {
	t, err := optimization.Preset(c.Tuning.Preset)
	if err != nil {
		return optimization.DefaultConfig()
	}
	return t
}
