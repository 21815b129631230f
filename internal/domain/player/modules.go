package player

import "github.com/cosmic-idle/server/internal/domain/rules"

// ModuleInfo is the display entry of a module.
type ModuleInfo struct {
	ID          rules.Module `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
}

// Modules lists every loadout option in display order.
var Modules = []ModuleInfo{
	{ID: rules.ModuleNone, Name: "Empty Slot", Description: "No module installed."},
	{ID: rules.ModuleVampirism, Name: "Vampiric Nanobots", Description: "Heal on hit. Max HP -30%."},
	{ID: rules.ModuleOverclock, Name: "Neural Overclock", Description: "+20% attack speed (+1% per INT). Costs 1 Energy/s."},
	{ID: rules.ModulePlating, Name: "Titanium Plating", Description: "+5 Defense (+0.5 per INT). -10% attack speed."},
}
