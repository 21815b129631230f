// Package rules contains the pure calculation logic for game mechanics.
// This package is PURE and must NOT import any infrastructure packages.
//
// Every figure here is a function of its inputs only. Callers recompute on
// each read instead of caching, so a changed attribute can never leave a
// stale value behind.
package rules

import "math"

// Module identifies the combat loadout slot content.
type Module string

const (
	ModuleNone      Module = "none"
	ModuleVampirism Module = "vampirism"
	ModuleOverclock Module = "overclock"
	ModulePlating   Module = "plating"
)

// Valid reports whether m is one of the four known modules.
func (m Module) Valid() bool {
	switch m {
	case ModuleNone, ModuleVampirism, ModuleOverclock, ModulePlating:
		return true
	}
	return false
}

const (
	hpPerVitality      = 10
	hpPerArmorTier     = 50
	vampirismHPFactor  = 0.7
	damagePerStrength  = 1.5
	damagePerWeapon    = 5
	defensePerArmor    = 1
	defensePerVitality = 0.1
	baseAttackCooldown = 2.0
	dexterityCooldown  = 0.96
	minAttackCooldown  = 0.2
	platingSlowdown    = 1.1
)

// Attributes is the stored input set the derived stats are computed from.
type Attributes struct {
	Strength     int
	Dexterity    int
	Vitality     int
	Intelligence int
	WeaponTier   int
	ArmorTier    int
	Module       Module
}

// ModuleStats holds the magnitude of every module effect at the current
// intelligence, whether or not the module is equipped.
type ModuleStats struct {
	VampirismHeal       float64 `json:"vampirismHeal"`
	PlatingDefense      int     `json:"platingDefense"`
	OverclockSpeedBonus float64 `json:"overclockSpeedBonus"`
}

// DerivedStats are the combat figures of a player.
type DerivedStats struct {
	MaxHP          float64     `json:"maxHp"`
	Damage         int         `json:"damage"`
	Defense        int         `json:"defense"`
	AttackCooldown float64     `json:"attackCooldown"` // seconds
	Modules        ModuleStats `json:"modStats"`
}

// DisplayMaxHP is the integer shown to the player. Threshold math keeps
// using the float MaxHP.
func (d DerivedStats) DisplayMaxHP() int {
	return int(d.MaxHP)
}

// CalculateModuleStats computes module magnitudes from intelligence.
func CalculateModuleStats(intelligence int) ModuleStats {
	in := float64(intelligence)
	return ModuleStats{
		VampirismHeal:       2 + math.Floor(in*0.2),
		PlatingDefense:      5 + int(math.Floor(in*0.5)),
		OverclockSpeedBonus: 0.20 + in*0.01,
	}
}

// CalculateMaxHP is the max-HP formula including the vampirism penalty.
func CalculateMaxHP(vitality, armorTier int, module Module) float64 {
	hp := float64(vitality*hpPerVitality + armorTier*hpPerArmorTier)
	if module == ModuleVampirism {
		hp *= vampirismHPFactor
	}
	return hp
}

// DeriveStats computes all combat figures for a set of attributes.
func DeriveStats(a Attributes) DerivedStats {
	mods := CalculateModuleStats(a.Intelligence)

	damage := int(math.Floor(float64(a.Strength)*damagePerStrength + float64(a.WeaponTier*damagePerWeapon)))
	defense := int(math.Floor(float64(a.ArmorTier*defensePerArmor) + float64(a.Vitality)*defensePerVitality))
	cooldown := math.Max(minAttackCooldown, baseAttackCooldown*math.Pow(dexterityCooldown, float64(a.Dexterity)))

	switch a.Module {
	case ModulePlating:
		defense += mods.PlatingDefense
		cooldown *= platingSlowdown
	case ModuleOverclock:
		cooldown /= 1 + mods.OverclockSpeedBonus
	}

	return DerivedStats{
		MaxHP:          CalculateMaxHP(a.Vitality, a.ArmorTier, a.Module),
		Damage:         damage,
		Defense:        defense,
		AttackCooldown: cooldown,
		Modules:        mods,
	}
}

// DamageTaken applies defense to an incoming hit. Every hit lands for at
// least 1.
func DamageTaken(incoming float64, defense int) float64 {
	return math.Max(1, incoming-float64(defense))
}
