package economy

// BuildingType identifies one of the automated producers.
type BuildingType string

const (
	SolarCollector    BuildingType = "solarCollector"
	AutoMiner         BuildingType = "autoMiner"
	QuantumFabricator BuildingType = "quantumFabricator"
)

// BuildingTypes lists every building in display order.
var BuildingTypes = []BuildingType{SolarCollector, AutoMiner, QuantumFabricator}

// Valid reports whether t is a known building.
func (t BuildingType) Valid() bool {
	switch t {
	case SolarCollector, AutoMiner, QuantumFabricator:
		return true
	}
	return false
}

// BuildingSpec is the balance entry of a building: base purchase cost and
// output per second per owned unit. Negative output is upkeep.
type BuildingSpec struct {
	BaseCost Resources `json:"baseCost" yaml:"cost"`
	Output   Resources `json:"output" yaml:"output"`
}

// Catalog maps building types to their balance entries.
type Catalog map[BuildingType]BuildingSpec

// DefaultCatalog returns the shipped building balance.
func DefaultCatalog() Catalog {
	return Catalog{
		SolarCollector: {
			BaseCost: Resources{Stardust: 15},
			Output:   Resources{Energy: 1},
		},
		AutoMiner: {
			BaseCost: Resources{Stardust: 50},
			Output:   Resources{Stardust: 2, Energy: -0.5},
		},
		QuantumFabricator: {
			BaseCost: Resources{Stardust: 1000, Energy: 500, Essence: 10},
			Output:   Resources{Stardust: 50, Energy: -10, Essence: 0.1},
		},
	}
}

// Gear upgrade base prices; both slots share them.
const (
	GearBaseStardust = 100
	GearBaseEssence  = 5
)
