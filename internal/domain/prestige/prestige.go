// Package prestige holds the permanent meta-progression: Dark Matter and
// the artifacts bought with it. Normal resets never touch this state; only
// a full wipe does.
package prestige

import "github.com/cosmic-idle/server/internal/domain/rules"

// ArtifactID identifies a one-time permanent modifier.
type ArtifactID string

const (
	ArtifactTimeDilation     ArtifactID = "time_dilation"
	ArtifactMatterConversion ArtifactID = "matter_conversion"
	ArtifactVoidShield       ArtifactID = "void_shield"
)

// TimeDilationMultiplier is the global speed factor while Time Dilation is owned.
const TimeDilationMultiplier = 1.5

// Artifact is a catalog entry.
type Artifact struct {
	ID          ArtifactID `json:"id" yaml:"id"`
	Name        string     `json:"name" yaml:"name"`
	Cost        int        `json:"cost" yaml:"cost"`
	Description string     `json:"description" yaml:"description"`
}

// Catalog maps artifact ids to their definitions.
type Catalog map[ArtifactID]Artifact

// DefaultCatalog returns the shipped artifact list.
func DefaultCatalog() Catalog {
	return Catalog{
		ArtifactTimeDilation: {
			ID:          ArtifactTimeDilation,
			Name:        "Time Dilation",
			Cost:        1,
			Description: "Global Speed x1.5 (Production & Combat).",
		},
		ArtifactMatterConversion: {
			ID:          ArtifactMatterConversion,
			Name:        "Matter Conversion",
			Cost:        3,
			Description: "Killing enemies grants Stardust based on their Max HP.",
		},
		ArtifactVoidShield: {
			ID:          ArtifactVoidShield,
			Name:        "Void Shield",
			Cost:        5,
			Description: "Overflow Healing generates a temporary Shield (Max +50% HP).",
		},
	}
}

// State is the prestige record.
type State struct {
	DarkMatter      int                 `json:"darkMatter"`
	TotalDarkMatter int                 `json:"totalDarkMatter"` // lifetime, never decreases
	Artifacts       map[ArtifactID]bool `json:"artifacts"`
	TimesPrestiged  int                 `json:"timesPrestiged"`

	catalog Catalog
}

// New creates an empty prestige record priced from catalog. A nil catalog
// uses DefaultCatalog.
func New(catalog Catalog) *State {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	s := &State{catalog: catalog}
	s.Wipe()
	return s
}

// Wipe clears everything. Only a confirmed full reset calls this.
func (s *State) Wipe() {
	s.DarkMatter = 0
	s.TotalDarkMatter = 0
	s.TimesPrestiged = 0
	s.Artifacts = make(map[ArtifactID]bool, len(s.catalog))
	for id := range s.catalog {
		s.Artifacts[id] = false
	}
}

// Catalog returns the artifact definitions this record is priced from.
func (s *State) Catalog() Catalog {
	return s.catalog
}

// NextGain is the Dark Matter the next Prestige call would award.
func (s *State) NextGain() int {
	return rules.DarkMatterGain(s.TimesPrestiged)
}

// Prestige awards Dark Matter and bumps the counter. It never resets any
// other model; the caller does that.
func (s *State) Prestige() int {
	gain := s.NextGain()
	s.DarkMatter += gain
	s.TotalDarkMatter += gain
	s.TimesPrestiged++
	return gain
}

// Owns reports whether the artifact has been bought.
func (s *State) Owns(id ArtifactID) bool {
	return s.Artifacts[id]
}

// BuyArtifact purchases an artifact once. Unknown ids, owned artifacts and
// insufficient Dark Matter are no-ops.
func (s *State) BuyArtifact(id ArtifactID) bool {
	art, ok := s.catalog[id]
	if !ok || s.Artifacts[id] || s.DarkMatter < art.Cost {
		return false
	}
	s.DarkMatter -= art.Cost
	s.Artifacts[id] = true
	return true
}

// SpeedMultiplier is the factor applied to elapsed time by production and
// combat.
func (s *State) SpeedMultiplier() float64 {
	if s.Owns(ArtifactTimeDilation) {
		return TimeDilationMultiplier
	}
	return 1
}

// Clone returns a deep copy sharing the catalog.
func (s *State) Clone() State {
	c := *s
	c.Artifacts = make(map[ArtifactID]bool, len(s.Artifacts))
	for k, v := range s.Artifacts {
		c.Artifacts[k] = v
	}
	return c
}

// Restore copies a loaded record in. Artifacts already owned stay owned;
// the lifetime total is repaired to be at least the spendable balance.
func (s *State) Restore(loaded State) {
	if loaded.DarkMatter < 0 {
		loaded.DarkMatter = 0
	}
	if loaded.TotalDarkMatter < loaded.DarkMatter {
		loaded.TotalDarkMatter = loaded.DarkMatter
	}
	if loaded.TimesPrestiged < 0 {
		loaded.TimesPrestiged = 0
	}
	s.DarkMatter = loaded.DarkMatter
	s.TotalDarkMatter = loaded.TotalDarkMatter
	s.TimesPrestiged = loaded.TimesPrestiged
	for id := range s.catalog {
		if _, ok := s.Artifacts[id]; !ok {
			s.Artifacts[id] = false
		}
	}
	for id, owned := range loaded.Artifacts {
		if _, known := s.catalog[id]; known && owned {
			s.Artifacts[id] = true
		}
	}
}
