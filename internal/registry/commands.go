package registry

import (
	"github.com/rs/zerolog/log"

	"github.com/blocclock/blocclock/internal/models"
	"github.com/blocclock/blocclock/internal/rotation"
)

// Command is the closed set of mutations a client may apply to a room. Each
// variant carries a statically defined payload; anything else is rejected at
// the gateway before it reaches the registry.
type Command interface {
	isCommand()
}

// TimerPatch sets the live clock fields. Nil fields are left untouched.
// Patching never triggers rotation; only the zero-crossing path does.
type TimerPatch struct {
	Running          *bool         `json:"running,omitempty"`
	RemainingSeconds *int          `json:"remainingSeconds,omitempty"`
	Phase            *models.Phase `json:"phase,omitempty"`
}

// ConfigPatch reconfigures durations and display options.
type ConfigPatch struct {
	ClimbSeconds      *int  `json:"climbSeconds,omitempty"`
	TransitionSeconds *int  `json:"transitionSeconds,omitempty"`
	ShowNames         *bool `json:"showNames,omitempty"`
}

// UpsertCategory creates a category (ID nil) or updates an existing one.
// A nil Climbers slice keeps the current rosters on update.
type UpsertCategory struct {
	ID       *int     `json:"id,omitempty"`
	Name     string   `json:"name"`
	Climbers []string `json:"climbers"`
}

// DeleteCategory removes a category from the active round.
type DeleteCategory struct {
	ID int `json:"id"`
}

// AdvanceOne advances a single boulder of a single category.
type AdvanceOne struct {
	CategoryID int `json:"categoryID"`
	BoulderIdx int `json:"boulderIdx"`
}

// AdvanceBoulderAll advances the same boulder index across every category.
type AdvanceBoulderAll struct {
	BoulderIdx int `json:"boulderIdx"`
}

// AdvanceCategoryAll advances every boulder of one category in a single
// left-to-right pass.
type AdvanceCategoryAll struct {
	CategoryID int `json:"categoryID"`
}

// AdvanceEverything advances every boulder of every category.
type AdvanceEverything struct{}

// SkipClimber arms a pending empty slot on one boulder.
type SkipClimber struct {
	CategoryID int `json:"categoryID"`
	BoulderIdx int `json:"boulderIdx"`
}

// ResetProgress clears one category's ledger and boulder state.
type ResetProgress struct {
	CategoryID int `json:"categoryID"`
}

// SwitchRound activates another round. Switching is a hard reset of the
// target round, not a resume.
type SwitchRound struct {
	Index int `json:"index"`
}

func (TimerPatch) isCommand()         {}
func (ConfigPatch) isCommand()        {}
func (UpsertCategory) isCommand()     {}
func (DeleteCategory) isCommand()     {}
func (AdvanceOne) isCommand()         {}
func (AdvanceBoulderAll) isCommand()  {}
func (AdvanceCategoryAll) isCommand() {}
func (AdvanceEverything) isCommand()  {}
func (SkipClimber) isCommand()        {}
func (ResetProgress) isCommand()      {}
func (SwitchRound) isCommand()        {}

// changes records which snapshots a command invalidated.
type changes struct {
	timer      bool
	config     bool
	rounds     bool
	categories bool
	persist    bool
}

// Apply routes a command to the room and broadcasts the resulting
// snapshots to all of its viewers. Invalid payloads are logged and dropped;
// a bad command never corrupts room state.
func (r *Registry) Apply(roomID string, cmd Command) {
	room := r.GetOrCreate(roomID)
	room.apply(cmd)
}

func (rm *Room) apply(cmd Command) {
	rm.mu.Lock()
	rm.touch()
	ch := rm.applyLocked(cmd)

	var (
		timer     models.TimerSnapshot
		config    models.ConfigSnapshot
		rounds    models.RoundsSnapshot
		cats      models.CategoriesSnapshot
		persisted *models.PersistedState
	)
	if ch.timer {
		timer = rm.state.TimerSnapshot()
	}
	if ch.config {
		config = rm.state.ConfigSnapshot()
	}
	if ch.rounds {
		rounds = rm.state.RoundsSnapshot()
	}
	if ch.categories {
		cats = rm.state.CategoriesSnapshot()
	}
	if ch.persist {
		persisted = rm.state.Persisted()
	}
	running := rm.state.Running
	rm.mu.Unlock()

	// The ticker handle is idempotent in both directions, so the patch can
	// simply assert the desired state.
	if ch.timer {
		if running {
			rm.ticker.Start(rm.tick)
		} else {
			rm.ticker.Stop()
		}
		rm.reg.publisher.PublishTimer(rm.id, timer)
	}
	if ch.config {
		rm.reg.publisher.PublishConfig(rm.id, config)
	}
	if ch.rounds {
		rm.reg.publisher.PublishRounds(rm.id, rounds)
	}
	if ch.categories {
		rm.reg.publisher.PublishCategories(rm.id, cats)
	}
	if persisted != nil {
		rm.saveAsync(persisted)
	}
}

func (rm *Room) applyLocked(cmd Command) changes {
	st := rm.state

	switch c := cmd.(type) {
	case TimerPatch:
		if c.Phase != nil {
			switch *c.Phase {
			case models.PhaseStopped, models.PhaseClimb, models.PhaseTransition:
				st.Phase = *c.Phase
			default:
				log.Warn().Str("room", rm.id).Str("phase", string(*c.Phase)).Msg("dropping timer patch with unknown phase")
				return changes{}
			}
		}
		if c.RemainingSeconds != nil {
			secs := *c.RemainingSeconds
			if secs < 0 {
				secs = 0
			}
			st.RemainingSeconds = secs
		}
		if c.Running != nil {
			st.Running = *c.Running
		}
		return changes{timer: true}

	case ConfigPatch:
		if c.ClimbSeconds != nil && *c.ClimbSeconds > 0 {
			st.ClimbSeconds = *c.ClimbSeconds
		}
		if c.TransitionSeconds != nil && *c.TransitionSeconds >= 0 {
			st.TransitionSeconds = *c.TransitionSeconds
		}
		if c.ShowNames != nil {
			st.ShowNames = *c.ShowNames
		}
		return changes{config: true}

	case UpsertCategory:
		return rm.upsertCategoryLocked(c)

	case DeleteCategory:
		round := st.ActiveRound()
		if round == nil {
			log.Warn().Str("room", rm.id).Msg("dropping category delete with no active round")
			return changes{}
		}
		for i, cat := range round.Categories {
			if cat.ID == c.ID {
				round.Categories = append(round.Categories[:i], round.Categories[i+1:]...)
				return changes{rounds: true, categories: true, persist: true}
			}
		}
		log.Warn().Str("room", rm.id).Int("category", c.ID).Msg("dropping delete of unknown category")
		return changes{}

	case AdvanceOne:
		cat := st.FindCategory(c.CategoryID)
		if cat == nil {
			log.Warn().Str("room", rm.id).Int("category", c.CategoryID).Msg("dropping advance of unknown category")
			return changes{}
		}
		rotation.Advance(cat, c.BoulderIdx)
		return changes{categories: true, persist: true}

	case AdvanceBoulderAll:
		rotation.AdvanceBoulder(st.Categories(), c.BoulderIdx)
		return changes{categories: true, persist: true}

	case AdvanceCategoryAll:
		cat := st.FindCategory(c.CategoryID)
		if cat == nil {
			log.Warn().Str("room", rm.id).Int("category", c.CategoryID).Msg("dropping advance of unknown category")
			return changes{}
		}
		rotation.AdvanceCategory(cat)
		return changes{categories: true, persist: true}

	case AdvanceEverything:
		rotation.AdvanceAll(st.Categories())
		return changes{categories: true, persist: true}

	case SkipClimber:
		cat := st.FindCategory(c.CategoryID)
		if cat == nil {
			log.Warn().Str("room", rm.id).Int("category", c.CategoryID).Msg("dropping skip for unknown category")
			return changes{}
		}
		rotation.ArmSkip(cat, c.BoulderIdx)
		return changes{categories: true, persist: true}

	case ResetProgress:
		cat := st.FindCategory(c.CategoryID)
		if cat == nil {
			log.Warn().Str("room", rm.id).Int("category", c.CategoryID).Msg("dropping reset for unknown category")
			return changes{}
		}
		cat.Reset()
		return changes{categories: true, persist: true}

	case SwitchRound:
		if c.Index < 0 || c.Index >= len(st.Rounds) {
			log.Warn().Str("room", rm.id).Int("index", c.Index).Msg("dropping switch to out-of-range round")
			return changes{}
		}
		st.ActiveRoundIndex = c.Index
		for _, cat := range st.Rounds[c.Index].Categories {
			cat.Reset()
		}
		return changes{rounds: true, categories: true, persist: true}

	default:
		log.Warn().Str("room", rm.id).Msg("dropping unknown command")
		return changes{}
	}
}

func (rm *Room) upsertCategoryLocked(c UpsertCategory) changes {
	st := rm.state

	if c.ID != nil {
		cat := st.FindCategory(*c.ID)
		if cat == nil {
			log.Warn().Str("room", rm.id).Int("category", *c.ID).Msg("dropping update of unknown category")
			return changes{}
		}
		if c.Name != "" {
			cat.Name = c.Name
		}
		if c.Climbers != nil {
			// A new roster restarts the category from scratch.
			fresh := models.NewCategory(cat.ID, cat.Name, c.Climbers)
			*cat = *fresh
		}
		return changes{rounds: true, categories: true, persist: true}
	}

	if len(st.Rounds) == 0 {
		st.Rounds = append(st.Rounds, &models.Round{Name: "Round 1"})
		st.ActiveRoundIndex = 0
	}
	round := st.ActiveRound()
	if round == nil {
		log.Warn().Str("room", rm.id).Int("index", st.ActiveRoundIndex).Msg("dropping category upsert with no active round")
		return changes{}
	}
	if len(round.Categories) >= models.MaxCategoriesPerRound {
		log.Warn().Str("room", rm.id).Str("round", round.Name).Msg("dropping category upsert, round is at capacity")
		return changes{}
	}

	id := st.NextCategoryID
	st.NextCategoryID++
	round.Categories = append(round.Categories, models.NewCategory(id, c.Name, c.Climbers))
	return changes{rounds: true, categories: true, persist: true}
}

// ReplaceRounds installs an imported rounds tree wholesale, assigning fresh
// category ids and activating the first round. Used by the import
// collaborator; the previous tree is discarded.
func (r *Registry) ReplaceRounds(roomID string, rounds []*models.Round) {
	room := r.GetOrCreate(roomID)

	room.mu.Lock()
	room.touch()
	st := room.state
	for _, round := range rounds {
		for _, cat := range round.Categories {
			cat.ID = st.NextCategoryID
			st.NextCategoryID++
		}
	}
	st.Rounds = rounds
	st.ActiveRoundIndex = 0
	roundsSnap := st.RoundsSnapshot()
	cats := st.CategoriesSnapshot()
	persisted := st.Persisted()
	room.mu.Unlock()

	room.reg.publisher.PublishRounds(room.id, roundsSnap)
	room.reg.publisher.PublishCategories(room.id, cats)
	room.saveAsync(persisted)
	log.Info().Str("room", room.id).Int("rounds", len(rounds)).Msg("rounds imported")
}
