package engine

import (
	"errors"
	"fmt"

	"github.com/cosmic-idle/server/internal/domain/economy"
	"github.com/cosmic-idle/server/internal/domain/player"
	"github.com/cosmic-idle/server/internal/domain/prestige"
	"github.com/cosmic-idle/server/internal/domain/rules"
)

// ActionType is the wire name of a player action.
type ActionType string

const (
	ActionAllocatePoint      ActionType = "ALLOCATE_POINT"
	ActionEquipModule        ActionType = "EQUIP_MODULE"
	ActionSetAutoHeal        ActionType = "SET_AUTO_HEAL"
	ActionAddXP              ActionType = "ADD_XP"
	ActionBuyBuilding        ActionType = "BUY_BUILDING"
	ActionUpgradeGear        ActionType = "UPGRADE_GEAR"
	ActionClickMine          ActionType = "CLICK_MINE"
	ActionSetStage           ActionType = "SET_STAGE"
	ActionToggleAutoProgress ActionType = "TOGGLE_AUTO_PROGRESS"
	ActionPrestige           ActionType = "PRESTIGE"
	ActionBuyArtifact        ActionType = "BUY_ARTIFACT"
)

var (
	// ErrUnknownAction is returned for an action type outside the vocabulary.
	ErrUnknownAction = errors.New("unknown action")
	// ErrInvalidArgument is returned when an action names an unknown stat,
	// module, building, gear slot or artifact.
	ErrInvalidArgument = errors.New("invalid action argument")
)

// Action is a player request as it arrives from HTTP or the websocket.
// Only the field matching Type is read.
type Action struct {
	Type     ActionType `json:"type"`
	Stat     string     `json:"stat,omitempty"`
	Module   string     `json:"module,omitempty"`
	Percent  int        `json:"percent,omitempty"`
	Amount   float64    `json:"amount,omitempty"`
	Building string     `json:"building,omitempty"`
	Gear     string     `json:"gear,omitempty"`
	Stage    int        `json:"stage,omitempty"`
	Artifact string     `json:"artifact,omitempty"`
}

// Dispatch routes an action to the matching engine call. It reports
// whether the action changed state. Legal requests the player cannot
// afford return (false, nil).
func (e *Engine) Dispatch(a Action) (bool, error) {
	switch a.Type {
	case ActionAllocatePoint:
		attr := player.Attribute(a.Stat)
		if !attr.Valid() {
			return false, fmt.Errorf("%w: stat %q", ErrInvalidArgument, a.Stat)
		}
		return e.AllocatePoint(attr), nil

	case ActionEquipModule:
		m := rules.Module(a.Module)
		if !m.Valid() {
			return false, fmt.Errorf("%w: module %q", ErrInvalidArgument, a.Module)
		}
		return e.EquipModule(m), nil

	case ActionSetAutoHeal:
		e.SetAutoHeal(a.Percent)
		return true, nil

	case ActionAddXP:
		if a.Amount < 0 {
			return false, fmt.Errorf("%w: negative xp %v", ErrInvalidArgument, a.Amount)
		}
		e.AddXP(a.Amount)
		return a.Amount > 0, nil

	case ActionBuyBuilding:
		t := economy.BuildingType(a.Building)
		if !t.Valid() {
			return false, fmt.Errorf("%w: building %q", ErrInvalidArgument, a.Building)
		}
		return e.BuyBuilding(t), nil

	case ActionUpgradeGear:
		g := player.GearType(a.Gear)
		if !g.Valid() {
			return false, fmt.Errorf("%w: gear %q", ErrInvalidArgument, a.Gear)
		}
		return e.UpgradeGear(g), nil

	case ActionClickMine:
		e.ClickMine()
		return true, nil

	case ActionSetStage:
		return e.SetStage(a.Stage), nil

	case ActionToggleAutoProgress:
		e.ToggleAutoProgress()
		return true, nil

	case ActionPrestige:
		return e.Prestige(), nil

	case ActionBuyArtifact:
		id := prestige.ArtifactID(a.Artifact)
		_, artifacts := e.Catalogs()
		if _, ok := artifacts[id]; !ok {
			return false, fmt.Errorf("%w: artifact %q", ErrInvalidArgument, a.Artifact)
		}
		return e.BuyArtifact(id), nil
	}
	return false, fmt.Errorf("%w: %q", ErrUnknownAction, a.Type)
}
