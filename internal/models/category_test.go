package models

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCategoryShape(t *testing.T) {
	cat := NewCategory(7, "Women Open", []string{"A", "B"})

	assert.Equal(t, 7, cat.ID)
	require.Len(t, cat.Boulders, BoulderCount)
	for i, b := range cat.Boulders {
		assert.Equal(t, i+1, b.ID)
		assert.Equal(t, []string{"A", "B"}, b.Climbers)
		assert.False(t, b.HasStarted)
		assert.False(t, b.SkipNext)
		assert.Equal(t, 0, b.CurrentClimberIndex)
	}

	// Rosters are independent copies.
	cat.Boulders[0].Climbers[0] = "Z"
	assert.Equal(t, "A", cat.Boulders[1].Climbers[0])
}

func TestRecordProgressIdempotentAndSorted(t *testing.T) {
	cat := NewCategory(1, "cat", []string{"A"})

	cat.RecordProgress("A", 3)
	cat.RecordProgress("A", 1)
	cat.RecordProgress("A", 3)
	cat.RecordProgress("A", 2)

	if diff := cmp.Diff([]int{1, 2, 3}, cat.ClimberProgress["A"]); diff != "" {
		t.Errorf("progress mismatch (-want +got):\n%s", diff)
	}

	assert.False(t, cat.IsComplete("A"))
	cat.RecordProgress("A", 4)
	assert.True(t, cat.IsComplete("A"))
}

func TestCategoryReset(t *testing.T) {
	cat := NewCategory(1, "cat", []string{"A", "B"})
	cat.RecordProgress("A", 1)
	cat.Boulders[0].HasStarted = true
	cat.Boulders[0].CurrentClimberIndex = 1
	cat.Boulders[2].SkipNext = true

	cat.Reset()

	assert.Empty(t, cat.ClimberProgress)
	for _, b := range cat.Boulders {
		assert.False(t, b.HasStarted)
		assert.False(t, b.SkipNext)
		assert.Equal(t, 0, b.CurrentClimberIndex)
		assert.Equal(t, []string{"A", "B"}, b.Climbers, "reset keeps rosters")
	}
}

func TestCategoriesIsDerivedView(t *testing.T) {
	ts := NewTimerState(240, 15)
	assert.Nil(t, ts.Categories())

	ts.Rounds = []*Round{
		{Name: "Quali", Categories: []*Category{NewCategory(1, "a", nil)}},
		{Name: "Final", Categories: []*Category{NewCategory(2, "b", nil), NewCategory(3, "c", nil)}},
	}

	assert.Len(t, ts.Categories(), 1)
	ts.ActiveRoundIndex = 1
	assert.Len(t, ts.Categories(), 2, "view follows the active round")
	assert.NotNil(t, ts.FindCategory(3))
	assert.Nil(t, ts.FindCategory(1), "inactive rounds are not visible")

	ts.ActiveRoundIndex = 9
	assert.Nil(t, ts.Categories())
}

func TestSnapshotsDetachFromLiveState(t *testing.T) {
	ts := NewTimerState(240, 15)
	cat := NewCategory(1, "a", []string{"A", "B"})
	ts.Rounds = []*Round{{Name: "Quali", Categories: []*Category{cat}}}

	persisted := ts.Persisted()
	snap := ts.CategoriesSnapshot()

	// Later mutations must never reach an already-taken snapshot; saves and
	// broadcasts marshal these outside the room lock.
	cat.Boulders[0].HasStarted = true
	cat.Boulders[0].Climbers[0] = "Z"
	cat.RecordProgress("A", 1)

	frozen := persisted.Rounds[0].Categories[0]
	assert.False(t, frozen.Boulders[0].HasStarted)
	assert.Equal(t, "A", frozen.Boulders[0].Climbers[0])
	assert.Empty(t, frozen.ClimberProgress)

	require.Len(t, snap.Categories, 1)
	assert.False(t, snap.Categories[0].Boulders[0].HasStarted)
	assert.Empty(t, snap.Categories[0].ClimberProgress)
}

func TestSnapshots(t *testing.T) {
	ts := NewTimerState(240, 15)
	ts.Rounds = []*Round{{Name: "Quali", Categories: []*Category{NewCategory(1, "a", nil)}}}

	rounds := ts.RoundsSnapshot()
	require.Len(t, rounds.Rounds, 1)
	assert.Equal(t, RoundSummary{Name: "Quali", CategoryCount: 1}, rounds.Rounds[0])

	timer := ts.TimerSnapshot()
	assert.Equal(t, PhaseStopped, timer.Phase)
	assert.Equal(t, 240, timer.RemainingSeconds)

	persisted := ts.Persisted()
	assert.Equal(t, ts.Rounds, persisted.Rounds)
	assert.Equal(t, 1, persisted.NextCategoryID)
}
