// Package player defines the player character: attributes, level, gear,
// the equipped module and current HP.
// This package is PURE and must NOT import any infrastructure packages (network, events, platform).
package player

import (
	"math"

	"github.com/cosmic-idle/server/internal/domain/rules"
)

// Attribute names one of the four allocatable base attributes.
type Attribute string

const (
	AttrStrength     Attribute = "strength"
	AttrDexterity    Attribute = "dexterity"
	AttrVitality     Attribute = "vitality"
	AttrIntelligence Attribute = "intelligence"
)

// Valid reports whether a is a known attribute.
func (a Attribute) Valid() bool {
	switch a {
	case AttrStrength, AttrDexterity, AttrVitality, AttrIntelligence:
		return true
	}
	return false
}

// GearType names an upgradable gear slot.
type GearType string

const (
	GearWeapon GearType = "weapon"
	GearArmor  GearType = "armor"
)

// Valid reports whether g is a known gear slot.
func (g GearType) Valid() bool {
	return g == GearWeapon || g == GearArmor
}

// Player is the stored state of the character. Derived combat figures are
// never stored; see Stats.
type Player struct {
	Level      int     `json:"level"`
	XP         float64 `json:"xp"`
	MaxXP      float64 `json:"maxXp"` // XP needed for the next level
	StatPoints int     `json:"statPoints"`

	// Base Attributes
	Strength     int `json:"strength"`
	Dexterity    int `json:"dexterity"`
	Vitality     int `json:"vitality"`
	Intelligence int `json:"intelligence"`

	// Gear Tiers
	WeaponTier int `json:"weaponTier"`
	ArmorTier  int `json:"armorTier"`

	ActiveModule rules.Module `json:"activeModule"`

	CurrentHP         float64 `json:"currentHp"`
	AutoHealThreshold int     `json:"autoHealThreshold"` // percent, 0 disables
}

// New creates a fresh level 1 character.
func New() *Player {
	p := &Player{}
	p.Reset()
	return p
}

// Reset restores the first-run values in place, so holders of the pointer
// keep observing the same character.
func (p *Player) Reset() {
	*p = Player{
		Level:        1,
		XP:           0,
		MaxXP:        rules.InitialXPRequirement,
		StatPoints:   0,
		Strength:     5,
		Dexterity:    5,
		Vitality:     10,
		Intelligence: 1,
		ActiveModule: rules.ModuleNone,
		CurrentHP:    100,
	}
}

// Attributes returns the input set for the derived stat formulas.
func (p *Player) Attributes() rules.Attributes {
	return rules.Attributes{
		Strength:     p.Strength,
		Dexterity:    p.Dexterity,
		Vitality:     p.Vitality,
		Intelligence: p.Intelligence,
		WeaponTier:   p.WeaponTier,
		ArmorTier:    p.ArmorTier,
		Module:       p.ActiveModule,
	}
}

// Stats computes the derived combat figures from the current attributes.
func (p *Player) Stats() rules.DerivedStats {
	return rules.DeriveStats(p.Attributes())
}

// HPPercent is current HP as a percentage of max HP.
func (p *Player) HPPercent() float64 {
	maxHP := p.Stats().MaxHP
	if maxHP <= 0 {
		return 0
	}
	return p.CurrentHP / maxHP * 100
}

// AllocatePoint spends one stat point on attr. It is a no-op without
// unspent points.
func (p *Player) AllocatePoint(attr Attribute) bool {
	if p.StatPoints <= 0 || !attr.Valid() {
		return false
	}
	switch attr {
	case AttrStrength:
		p.Strength++
	case AttrDexterity:
		p.Dexterity++
	case AttrVitality:
		p.Vitality++
	case AttrIntelligence:
		p.Intelligence++
	}
	p.StatPoints--
	return true
}

// EquipModule swaps the loadout slot. Modules are free, so this always
// succeeds for a known module. HP is clamped to the new maximum.
func (p *Player) EquipModule(m rules.Module) bool {
	if !m.Valid() {
		return false
	}
	p.ActiveModule = m
	p.clampHP()
	return true
}

// UpgradeGear increments a gear tier. The caller has already checked and
// debited the cost.
func (p *Player) UpgradeGear(g GearType) bool {
	switch g {
	case GearWeapon:
		p.WeaponTier++
	case GearArmor:
		p.ArmorTier++
	default:
		return false
	}
	p.clampHP()
	return true
}

// SetAutoHeal stores the auto-heal threshold. Clamping to [0,90] step 10 is
// the caller's job.
func (p *Player) SetAutoHeal(percent int) {
	p.AutoHealThreshold = percent
}

// AddXP adds experience and resolves every level-up it pays for. It returns
// the number of levels gained.
//
// Each level-up fully heals to the max HP computed from the attributes as
// they were when AddXP was called; points granted here are only spent later.
func (p *Player) AddXP(amount float64) int {
	healTo := rules.CalculateMaxHP(p.Vitality, p.ArmorTier, p.ActiveModule)

	total := p.XP + amount
	gained := 0
	for total >= p.MaxXP && p.MaxXP > 0 {
		total -= p.MaxXP
		p.Level++
		p.StatPoints += rules.PointsPerLevel
		p.MaxXP = rules.NextXPRequirement(p.MaxXP)
		p.CurrentHP = healTo
		gained++
	}
	p.XP = total
	return gained
}

// Heal restores HP, clamped to [0, max HP].
func (p *Player) Heal(amount float64) {
	p.CurrentHP = clamp(p.CurrentHP+amount, 0, p.Stats().MaxHP)
}

// TakeDamage applies a hit through defense. Every hit deals at least 1 and
// HP never drops below 0. It returns the damage actually dealt.
func (p *Player) TakeDamage(amount float64) float64 {
	dealt := rules.DamageTaken(amount, p.Stats().Defense)
	p.CurrentHP = math.Max(0, p.CurrentHP-dealt)
	return dealt
}

// RestoreFullHP sets HP to the current maximum.
func (p *Player) RestoreFullHP() {
	p.CurrentHP = p.Stats().MaxHP
}

// IsDead reports whether HP has reached zero.
func (p *Player) IsDead() bool {
	return p.CurrentHP <= 0
}

// Repair forces loaded or externally supplied values back inside their
// domains.
func (p *Player) Repair() {
	if p.Level < 1 {
		p.Level = 1
	}
	if p.XP < 0 {
		p.XP = 0
	}
	// Below the level-1 requirement the growth curve floors back onto
	// itself and every level costs a single XP point.
	if p.MaxXP < rules.InitialXPRequirement {
		p.MaxXP = rules.InitialXPRequirement
	}
	if p.StatPoints < 0 {
		p.StatPoints = 0
	}
	if !p.ActiveModule.Valid() {
		p.ActiveModule = rules.ModuleNone
	}
	p.AutoHealThreshold = rules.SnapAutoHeal(p.AutoHealThreshold)
	p.clampHP()
}

func (p *Player) clampHP() {
	p.CurrentHP = clamp(p.CurrentHP, 0, p.Stats().MaxHP)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
