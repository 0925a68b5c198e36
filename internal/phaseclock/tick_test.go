package phaseclock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blocclock/blocclock/internal/models"
)

func runningState(climb, transition int) *models.TimerState {
	st := models.NewTimerState(climb, transition)
	st.Phase = models.PhaseClimb
	st.Running = true
	st.RemainingSeconds = climb
	return st
}

func TestTickPausedIsNoop(t *testing.T) {
	st := runningState(10, 5)
	st.Running = false
	st.RemainingSeconds = 7

	res := Tick(st)
	assert.Equal(t, Result{}, res)
	assert.Equal(t, 7, st.RemainingSeconds, "pause keeps remaining and phase")
	assert.Equal(t, models.PhaseClimb, st.Phase)
}

func TestTickDecrements(t *testing.T) {
	st := runningState(10, 5)

	res := Tick(st)
	assert.Equal(t, Result{TimerChanged: true}, res)
	assert.Equal(t, 9, st.RemainingSeconds)
}

func TestZeroCrossingWaitsOneTick(t *testing.T) {
	st := runningState(1, 5)

	// 1 -> 0: just a decrement so the zero renders for a full second.
	res := Tick(st)
	assert.Equal(t, Result{TimerChanged: true}, res)
	assert.Equal(t, 0, st.RemainingSeconds)
	assert.Equal(t, models.PhaseClimb, st.Phase)

	// The next tick is the crossing.
	res = Tick(st)
	assert.True(t, res.RosterChanged)
	assert.Equal(t, models.PhaseTransition, st.Phase)
	assert.Equal(t, 5, st.RemainingSeconds)
}

func TestClimbZeroCrossingAdvancesRotation(t *testing.T) {
	st := runningState(1, 5)
	st.Rounds = []*models.Round{{
		Name:       "Quali",
		Categories: []*models.Category{models.NewCategory(1, "cat", []string{"A", "B"})},
	}}

	Tick(st)        // 1 -> 0
	res := Tick(st) // crossing

	require.True(t, res.RosterChanged)
	b := st.Categories()[0].Boulders[0]
	assert.True(t, b.HasStarted, "leaving climb batch-advances the rotation")
	assert.Equal(t, []int{1}, st.Categories()[0].ClimberProgress["A"])
}

func TestTransitionZeroCrossingReturnsToClimb(t *testing.T) {
	st := runningState(10, 5)
	st.Phase = models.PhaseTransition
	st.RemainingSeconds = 0

	res := Tick(st)
	assert.Equal(t, Result{TimerChanged: true}, res)
	assert.False(t, res.RosterChanged, "only leaving climb advances climbers")
	assert.Equal(t, models.PhaseClimb, st.Phase)
	assert.Equal(t, 10, st.RemainingSeconds)
}

func TestZeroTransitionLoopsClimbToClimb(t *testing.T) {
	st := runningState(3, 0)
	st.RemainingSeconds = 0

	res := Tick(st)
	assert.True(t, res.RosterChanged)
	assert.Equal(t, models.PhaseClimb, st.Phase, "no transition phase is ever observed")
	assert.Equal(t, 3, st.RemainingSeconds, "remaining resets to the full climb duration")
}

func TestRunningWhileStoppedArmsStop(t *testing.T) {
	st := models.NewTimerState(10, 5)
	st.Running = true
	st.RemainingSeconds = 0

	res := Tick(st)
	assert.True(t, res.TimerChanged)
	assert.False(t, st.Running)
}
