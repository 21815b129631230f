package rules

import "math"

const (
	// InitialXPRequirement is the XP needed to leave level 1.
	InitialXPRequirement = 100
	// PointsPerLevel is the number of stat points granted per level-up.
	PointsPerLevel = 3
	// MaxStage is the last stage that can be unlocked. Enemy stats stay
	// finite and strictly increasing up to here; past stage 3169 the HP
	// curve overflows float64.
	MaxStage = 3000

	xpGrowth          = 1.2
	buildingCostScale = 1.15
	gearCostScale     = 1.5
	enemyScale        = 1.25
)

// NextXPRequirement grows the per-level XP requirement.
func NextXPRequirement(current float64) float64 {
	return math.Floor(current * xpGrowth)
}

// ScaledBuildingCost is floor(base * 1.15^count). Costs are always floored
// so the displayed integer is never exceeded.
func ScaledBuildingCost(base float64, count int) float64 {
	return math.Floor(base * math.Pow(buildingCostScale, float64(count)))
}

// ScaledGearCost is base * 1.5^tier, left unfloored.
func ScaledGearCost(base float64, tier int) float64 {
	return base * math.Pow(gearCostScale, float64(tier))
}

// EnemyScale is the geometric difficulty multiplier for a stage.
func EnemyScale(stage int) float64 {
	return math.Pow(enemyScale, float64(stage-1))
}

// DarkMatterGain is the prestige payout for the next prestige.
func DarkMatterGain(timesPrestiged int) int {
	return 1 + int(math.Floor(float64(timesPrestiged)*0.5))
}

// SnapAutoHeal clamps an auto-heal percentage to [0,90] in steps of 10.
func SnapAutoHeal(percent int) int {
	if percent < 0 {
		return 0
	}
	if percent > 90 {
		return 90
	}
	return percent / 10 * 10
}
