// Package economy owns the resource stocks, the building counts and the
// production rates derived from them.
package economy

import (
	"github.com/cosmic-idle/server/internal/domain/player"
	"github.com/cosmic-idle/server/internal/domain/prestige"
	"github.com/cosmic-idle/server/internal/domain/rules"
)

// Resources is a vector over the three currencies. It doubles as a stock,
// a cost and a per-second rate.
type Resources struct {
	Stardust float64 `json:"stardust" yaml:"stardust"`
	Energy   float64 `json:"energy" yaml:"energy"`
	Essence  float64 `json:"essence" yaml:"essence"`
}

// Covers reports whether every component of r is at least the matching
// component of cost.
func (r Resources) Covers(cost Resources) bool {
	return r.Stardust >= cost.Stardust && r.Energy >= cost.Energy && r.Essence >= cost.Essence
}

// Sub returns r - o.
func (r Resources) Sub(o Resources) Resources {
	return Resources{Stardust: r.Stardust - o.Stardust, Energy: r.Energy - o.Energy, Essence: r.Essence - o.Essence}
}

// Add returns r + o.
func (r Resources) Add(o Resources) Resources {
	return Resources{Stardust: r.Stardust + o.Stardust, Energy: r.Energy + o.Energy, Essence: r.Essence + o.Essence}
}

// Scale returns r * k.
func (r Resources) Scale(k float64) Resources {
	return Resources{Stardust: r.Stardust * k, Energy: r.Energy * k, Essence: r.Essence * k}
}

// Buildings holds the owned count of each building.
type Buildings struct {
	SolarCollector    int `json:"solarCollector"`
	AutoMiner         int `json:"autoMiner"`
	QuantumFabricator int `json:"quantumFabricator"`
}

// Count returns the owned count of t.
func (b Buildings) Count(t BuildingType) int {
	switch t {
	case SolarCollector:
		return b.SolarCollector
	case AutoMiner:
		return b.AutoMiner
	case QuantumFabricator:
		return b.QuantumFabricator
	}
	return 0
}

func (b *Buildings) increment(t BuildingType) {
	switch t {
	case SolarCollector:
		b.SolarCollector++
	case AutoMiner:
		b.AutoMiner++
	case QuantumFabricator:
		b.QuantumFabricator++
	}
}

// Economy is the resource model. Production is always a pure function of
// the building counts.
type Economy struct {
	Resources  Resources
	Buildings  Buildings
	Production Resources

	catalog  Catalog
	prestige *prestige.State
}

// New creates an empty economy. A nil catalog uses DefaultCatalog.
func New(catalog Catalog, ps *prestige.State) *Economy {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Economy{catalog: catalog, prestige: ps}
}

// Catalog returns the building balance in use.
func (e *Economy) Catalog() Catalog {
	return e.catalog
}

// Reset restores the first-run state in place.
func (e *Economy) Reset() {
	e.Resources = Resources{}
	e.Buildings = Buildings{}
	e.Production = Resources{}
}

// Restore installs loaded stocks and counts and recomputes production.
func (e *Economy) Restore(res Resources, b Buildings) {
	if b.SolarCollector < 0 {
		b.SolarCollector = 0
	}
	if b.AutoMiner < 0 {
		b.AutoMiner = 0
	}
	if b.QuantumFabricator < 0 {
		b.QuantumFabricator = 0
	}
	e.Resources = res
	e.Buildings = b
	e.recalculateProduction()
}

// Cost is the price of the next unit of t given currentCount owned.
func (e *Economy) Cost(t BuildingType, currentCount int) Resources {
	base := e.catalog[t].BaseCost
	return Resources{
		Stardust: rules.ScaledBuildingCost(base.Stardust, currentCount),
		Energy:   rules.ScaledBuildingCost(base.Energy, currentCount),
		Essence:  rules.ScaledBuildingCost(base.Essence, currentCount),
	}
}

// NextCost is the price of the next unit of t.
func (e *Economy) NextCost(t BuildingType) Resources {
	return e.Cost(t, e.Buildings.Count(t))
}

// BuyBuilding buys one unit of t if every balance covers the cost.
func (e *Economy) BuyBuilding(t BuildingType) bool {
	if _, ok := e.catalog[t]; !ok {
		return false
	}
	cost := e.NextCost(t)
	if !e.Resources.Covers(cost) {
		return false
	}
	e.Resources = e.Resources.Sub(cost)
	e.Buildings.increment(t)
	e.recalculateProduction()
	return true
}

// GearCost is the price of raising a gear slot from tier.
func GearCost(tier int) Resources {
	return Resources{
		Stardust: rules.ScaledGearCost(GearBaseStardust, tier),
		Essence:  rules.ScaledGearCost(GearBaseEssence, tier),
	}
}

// TryUpgradeGear pays for and applies one gear tier on p.
func (e *Economy) TryUpgradeGear(p *player.Player, g player.GearType) bool {
	if !g.Valid() {
		return false
	}
	tier := p.WeaponTier
	if g == player.GearArmor {
		tier = p.ArmorTier
	}
	cost := GearCost(tier)
	if e.Resources.Stardust < cost.Stardust || e.Resources.Essence < cost.Essence {
		return false
	}
	e.Resources.Stardust -= cost.Stardust
	e.Resources.Essence -= cost.Essence
	return p.UpgradeGear(g)
}

// ClickMine is manual income: +1 stardust, no prerequisite.
func (e *Economy) ClickMine() {
	e.Resources.Stardust++
}

// SpendEnergy debits amount if the balance covers it.
func (e *Economy) SpendEnergy(amount float64) bool {
	if e.Resources.Energy < amount {
		return false
	}
	e.Resources.Energy -= amount
	return true
}

// Grant credits loot.
func (e *Economy) Grant(r Resources) {
	e.Resources = e.Resources.Add(r)
}

// Tick advances production by dt seconds scaled by the global speed
// multiplier. Net-negative rates may drive a stock below zero; that is
// the upkeep pressure and is left unclamped.
func (e *Economy) Tick(dt float64) {
	mult := 1.0
	if e.prestige != nil {
		mult = e.prestige.SpeedMultiplier()
	}
	e.Resources = e.Resources.Add(e.Production.Scale(dt * mult))
}

// recalculateProduction rebuilds the rate vector from scratch.
func (e *Economy) recalculateProduction() {
	var prod Resources
	for _, t := range BuildingTypes {
		spec, ok := e.catalog[t]
		if !ok {
			continue
		}
		prod = prod.Add(spec.Output.Scale(float64(e.Buildings.Count(t))))
	}
	e.Production = prod
}
