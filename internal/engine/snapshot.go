package engine

import (
	"time"

	"github.com/cosmic-idle/server/internal/domain/combat"
	"github.com/cosmic-idle/server/internal/domain/economy"
	"github.com/cosmic-idle/server/internal/domain/player"
	"github.com/cosmic-idle/server/internal/domain/prestige"
	"github.com/cosmic-idle/server/internal/domain/rules"
)

// Snapshot is a point-in-time copy of the whole game. It is what the
// websocket hub pushes and what the persistence gateway saves from.
type Snapshot struct {
	Player     player.Player      `json:"player"`
	Stats      rules.DerivedStats `json:"stats"`
	Resources  economy.Resources  `json:"resources"`
	Buildings  economy.Buildings  `json:"buildings"`
	Production economy.Resources  `json:"production"`

	BuildingCosts map[economy.BuildingType]economy.Resources `json:"buildingCosts"`
	GearCosts     map[player.GearType]economy.Resources     `json:"gearCosts"`

	Combat              combat.State   `json:"combat"`
	Prestige            prestige.State `json:"prestige"`
	CanPrestige         bool           `json:"canPrestige"`
	NextDarkMatter      int            `json:"nextDarkMatter"`
	PrestigeRequirement int            `json:"prestigeRequirement"`

	TakenAt time.Time `json:"takenAt"`
}

// PrestigePayload records a warp jump.
type PrestigePayload struct {
	Gained         int `json:"gained"`
	DarkMatter     int `json:"dark_matter"`
	TimesPrestiged int `json:"times_prestiged"`
	ReachedStage   int `json:"reached_stage"`
}

// PointPayload records a spent stat point.
type PointPayload struct {
	Stat      player.Attribute `json:"stat"`
	Remaining int              `json:"remaining"`
}

// ModulePayload records a loadout change.
type ModulePayload struct {
	Module rules.Module `json:"module"`
}

// AutoHealSetPayload records a new auto-heal threshold.
type AutoHealSetPayload struct {
	Percent int `json:"percent"`
}

// BuildingPayload records a purchase.
type BuildingPayload struct {
	Building economy.BuildingType `json:"building"`
	Count    int                  `json:"count"`
	NextCost economy.Resources    `json:"next_cost"`
}

// GearPayload records a gear upgrade.
type GearPayload struct {
	Gear player.GearType `json:"gear"`
	Tier int             `json:"tier"`
}

// AutoProgressPayload records a toggle.
type AutoProgressPayload struct {
	Enabled bool `json:"enabled"`
}

// ArtifactPayload records an artifact purchase.
type ArtifactPayload struct {
	Artifact   prestige.ArtifactID `json:"artifact"`
	DarkMatter int                 `json:"dark_matter"`
}
