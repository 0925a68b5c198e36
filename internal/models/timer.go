package models

// Phase represents the current phase of a room's countdown.
type Phase string

const (
	PhaseStopped    Phase = "stopped"
	PhaseClimb      Phase = "climb"
	PhaseTransition Phase = "transition"
)

// Default durations applied to freshly created rooms when no configuration
// overrides them.
const (
	DefaultClimbSeconds      = 240
	DefaultTransitionSeconds = 15
)

// TimerState is the canonical state of one room: countdown configuration,
// the live clock fields, and the rounds/categories tree.
type TimerState struct {
	ClimbSeconds      int    `json:"climbSeconds"`
	TransitionSeconds int    `json:"transitionSeconds"`
	Phase             Phase  `json:"phase"`
	Running           bool   `json:"running"`
	RemainingSeconds  int    `json:"remainingSeconds"`
	ShowNames         bool   `json:"showNames"`

	Rounds           []*Round `json:"rounds"`
	ActiveRoundIndex int      `json:"activeRoundIndex"`

	// NextCategoryID is a per-room monotonic counter so category ids are
	// never reused, even across reloads.
	NextCategoryID int `json:"nextCategoryID"`
}

// NewTimerState returns a stopped timer with the given configured durations
// and no rounds.
func NewTimerState(climbSeconds, transitionSeconds int) *TimerState {
	return &TimerState{
		ClimbSeconds:      climbSeconds,
		TransitionSeconds: transitionSeconds,
		Phase:             PhaseStopped,
		RemainingSeconds:  climbSeconds,
		ShowNames:         true,
		Rounds:            []*Round{},
		NextCategoryID:    1,
	}
}

// Round is a named, ordered set of categories, usually one per competition
// stage.
type Round struct {
	Name       string      `json:"name"`
	Categories []*Category `json:"categories"`
}

// Clone returns a deep copy of the round.
func (r *Round) Clone() *Round {
	clone := &Round{Name: r.Name, Categories: make([]*Category, 0, len(r.Categories))}
	for _, cat := range r.Categories {
		clone.Categories = append(clone.Categories, cat.Clone())
	}
	return clone
}

// ActiveRound returns the round the room is currently showing, or nil when
// the index is out of range.
func (ts *TimerState) ActiveRound() *Round {
	if ts.ActiveRoundIndex < 0 || ts.ActiveRoundIndex >= len(ts.Rounds) {
		return nil
	}
	return ts.Rounds[ts.ActiveRoundIndex]
}

// Categories returns the categories of the active round. It is a derived
// view; all mutations go through the round itself so the view can never fall
// out of sync with the persisted tree.
func (ts *TimerState) Categories() []*Category {
	round := ts.ActiveRound()
	if round == nil {
		return nil
	}
	return round.Categories
}

// FindCategory returns the category with the given id in the active round,
// or nil when no such category exists.
func (ts *TimerState) FindCategory(id int) *Category {
	for _, cat := range ts.Categories() {
		if cat.ID == id {
			return cat
		}
	}
	return nil
}
