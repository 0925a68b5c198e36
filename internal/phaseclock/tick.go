// Package phaseclock drives a room's countdown: a once-per-second tick over
// the timer state, and a cancellable per-room ticker handle that fires it.
package phaseclock

import (
	"github.com/blocclock/blocclock/internal/models"
	"github.com/blocclock/blocclock/internal/rotation"
)

// Result reports what a tick changed so the caller knows which snapshots to
// broadcast and whether to persist.
type Result struct {
	TimerChanged  bool
	RosterChanged bool
}

// Tick advances the countdown by one second. While seconds remain it only
// decrements. Once the countdown has sat at zero for a full tick (so the
// zero renders visibly) the zero-crossing runs: leaving the climb phase
// batch-advances every category, then the clock flips to the transition
// phase or, when no transition is configured, straight back into climb.
// This is the only path that auto-advances climbers.
func Tick(state *models.TimerState) Result {
	if !state.Running {
		return Result{}
	}

	if state.RemainingSeconds > 0 {
		state.RemainingSeconds--
		return Result{TimerChanged: true}
	}

	switch state.Phase {
	case models.PhaseClimb:
		rotation.AdvanceAll(state.Categories())
		if state.TransitionSeconds > 0 {
			state.Phase = models.PhaseTransition
			state.RemainingSeconds = state.TransitionSeconds
		} else {
			state.RemainingSeconds = state.ClimbSeconds
		}
		return Result{TimerChanged: true, RosterChanged: true}

	case models.PhaseTransition:
		state.Phase = models.PhaseClimb
		state.RemainingSeconds = state.ClimbSeconds
		return Result{TimerChanged: true}

	default:
		// Running with a stopped phase is an invalid combination; arm the
		// stop rather than ticking forever at zero.
		state.Running = false
		return Result{TimerChanged: true}
	}
}
