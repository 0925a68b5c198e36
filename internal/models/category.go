package models

import "sort"

// BoulderCount is the fixed number of boulders per category. Competition
// format is always four boulders; the rotation rules depend on it.
const BoulderCount = 4

// MaxCategoriesPerRound caps how many categories a round may hold.
const MaxCategoriesPerRound = 4

// Category is one competition class: four boulders sharing an initial
// roster, plus the per-climber progress ledger.
type Category struct {
	ID       int        `json:"id"`
	Name     string     `json:"name"`
	Boulders []*Boulder `json:"boulders"`

	// ClimberProgress maps a climber name to the sorted set of boulder ids
	// that climber has climbed.
	ClimberProgress map[string][]int `json:"climberProgress"`
}

// Boulder is one climbing station: its own roster and active-climber state.
type Boulder struct {
	ID                  int      `json:"id"`
	Climbers            []string `json:"climbers"`
	CurrentClimberIndex int      `json:"currentClimberIndex"`
	HasStarted          bool     `json:"hasStarted"`
	SkipNext            bool     `json:"skipNext"`
}

// NewCategory builds a category with four boulders sharing the given roster.
// Each boulder gets its own copy of the roster since they are independently
// mutated after creation.
func NewCategory(id int, name string, climbers []string) *Category {
	cat := &Category{
		ID:              id,
		Name:            name,
		Boulders:        make([]*Boulder, 0, BoulderCount),
		ClimberProgress: make(map[string][]int),
	}
	for i := 1; i <= BoulderCount; i++ {
		roster := make([]string, len(climbers))
		copy(roster, climbers)
		cat.Boulders = append(cat.Boulders, &Boulder{ID: i, Climbers: roster})
	}
	return cat
}

// RecordProgress marks boulderID as climbed by climber. Recording the same
// pair twice leaves the set unchanged; values stay sorted ascending.
func (c *Category) RecordProgress(climber string, boulderID int) {
	if climber == "" {
		return
	}
	climbed := c.ClimberProgress[climber]
	for _, id := range climbed {
		if id == boulderID {
			return
		}
	}
	climbed = append(climbed, boulderID)
	sort.Ints(climbed)
	c.ClimberProgress[climber] = climbed
}

// IsComplete reports whether climber has climbed all boulders of the
// category. Complete climbers stay in the roster but are skipped by the
// rotation.
func (c *Category) IsComplete(climber string) bool {
	return len(c.ClimberProgress[climber]) >= BoulderCount
}

// Clone returns a deep copy of the category, fully detached from the live
// tree.
func (c *Category) Clone() *Category {
	clone := &Category{
		ID:              c.ID,
		Name:            c.Name,
		Boulders:        make([]*Boulder, 0, len(c.Boulders)),
		ClimberProgress: make(map[string][]int, len(c.ClimberProgress)),
	}
	for _, b := range c.Boulders {
		dup := *b
		dup.Climbers = append([]string(nil), b.Climbers...)
		clone.Boulders = append(clone.Boulders, &dup)
	}
	for climber, climbed := range c.ClimberProgress {
		clone.ClimberProgress[climber] = append([]int(nil), climbed...)
	}
	return clone
}

// Reset clears the progress ledger and returns every boulder to its initial
// state, keeping the rosters.
func (c *Category) Reset() {
	c.ClimberProgress = make(map[string][]int)
	for _, b := range c.Boulders {
		b.CurrentClimberIndex = 0
		b.HasStarted = false
		b.SkipNext = false
	}
}
