package models

// PersistedState is the slice of a room's state that survives restarts.
// Live clock fields and viewer counts are deliberately excluded.
type PersistedState struct {
	Rounds           []*Round `json:"rounds"`
	ActiveRoundIndex int      `json:"activeRoundIndex"`
	NextCategoryID   int      `json:"nextCategoryID"`
}

// TimerSnapshot is the live clock view pushed to every viewer.
type TimerSnapshot struct {
	Phase            Phase `json:"phase"`
	Running          bool  `json:"running"`
	RemainingSeconds int   `json:"remainingSeconds"`
}

// ConfigSnapshot is the room configuration view.
type ConfigSnapshot struct {
	ClimbSeconds      int  `json:"climbSeconds"`
	TransitionSeconds int  `json:"transitionSeconds"`
	ShowNames         bool `json:"showNames"`
}

// RoundSummary describes one round in the rounds overview.
type RoundSummary struct {
	Name          string `json:"name"`
	CategoryCount int    `json:"categoryCount"`
}

// RoundsSnapshot is the rounds overview pushed when rounds change.
type RoundsSnapshot struct {
	Rounds      []RoundSummary `json:"rounds"`
	ActiveIndex int            `json:"activeIndex"`
}

// CategoriesSnapshot carries the full categories of the active round.
type CategoriesSnapshot struct {
	Categories []*Category `json:"categories"`
}

// ViewersSnapshot carries the current viewer count of a room.
type ViewersSnapshot struct {
	Viewers int `json:"viewers"`
}

// Persisted extracts the durable fields of a timer state as a deep copy.
// Callers take it under the room lock; the save goroutine then marshals it
// without ever touching live state.
func (ts *TimerState) Persisted() *PersistedState {
	rounds := make([]*Round, 0, len(ts.Rounds))
	for _, round := range ts.Rounds {
		rounds = append(rounds, round.Clone())
	}
	return &PersistedState{
		Rounds:           rounds,
		ActiveRoundIndex: ts.ActiveRoundIndex,
		NextCategoryID:   ts.NextCategoryID,
	}
}

// TimerSnapshot returns the live clock view of the state.
func (ts *TimerState) TimerSnapshot() TimerSnapshot {
	return TimerSnapshot{
		Phase:            ts.Phase,
		Running:          ts.Running,
		RemainingSeconds: ts.RemainingSeconds,
	}
}

// ConfigSnapshot returns the configuration view of the state.
func (ts *TimerState) ConfigSnapshot() ConfigSnapshot {
	return ConfigSnapshot{
		ClimbSeconds:      ts.ClimbSeconds,
		TransitionSeconds: ts.TransitionSeconds,
		ShowNames:         ts.ShowNames,
	}
}

// RoundsSnapshot returns the rounds overview of the state.
func (ts *TimerState) RoundsSnapshot() RoundsSnapshot {
	snap := RoundsSnapshot{
		Rounds:      make([]RoundSummary, 0, len(ts.Rounds)),
		ActiveIndex: ts.ActiveRoundIndex,
	}
	for _, round := range ts.Rounds {
		snap.Rounds = append(snap.Rounds, RoundSummary{
			Name:          round.Name,
			CategoryCount: len(round.Categories),
		})
	}
	return snap
}

// CategoriesSnapshot returns a deep copy of the active round's categories, so
// broadcasting can marshal it outside the room lock.
func (ts *TimerState) CategoriesSnapshot() CategoriesSnapshot {
	cats := ts.Categories()
	copies := make([]*Category, 0, len(cats))
	for _, cat := range cats {
		copies = append(copies, cat.Clone())
	}
	return CategoriesSnapshot{Categories: copies}
}
