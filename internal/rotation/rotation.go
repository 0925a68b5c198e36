// Package rotation implements the climber rotation rules: which climber is
// up on each boulder, when a boulder is allowed to start, how a skip slot
// flows through the boulders, and how finished climbers drop out of the
// rotation without leaving the roster.
package rotation

import "github.com/blocclock/blocclock/internal/models"

// CanStart reports whether the boulder at boulderIdx may begin its rotation.
// Boulder 0 always may. A later boulder waits until the previous one has
// started and advanced at least twice, so every climber gets one full rest
// cycle before the field spreads to the next boulder. The gate is evaluated
// freshly on every attempt because sibling boulders move within a single
// batched pass.
func CanStart(cat *models.Category, boulderIdx int) bool {
	if boulderIdx <= 0 {
		return true
	}
	if boulderIdx >= len(cat.Boulders) {
		return false
	}
	prev := cat.Boulders[boulderIdx-1]
	return prev.HasStarted && prev.CurrentClimberIndex > 1
}

// Advance moves the boulder at boulderIdx one step: consume a pending skip,
// start the boulder if its gate allows, or rotate to the next unfinished
// climber. Invalid indexes and empty rosters are no-ops.
func Advance(cat *models.Category, boulderIdx int) {
	if cat == nil || boulderIdx < 0 || boulderIdx >= len(cat.Boulders) {
		return
	}
	b := cat.Boulders[boulderIdx]

	if b.SkipNext {
		// The empty slot flows exactly one boulder per invocation. The
		// climber pointer does not move.
		b.SkipNext = false
		if boulderIdx+1 < len(cat.Boulders) {
			cat.Boulders[boulderIdx+1].SkipNext = true
		}
		return
	}

	advanceClimber(cat, boulderIdx)
}

// advanceClimber performs the start/rotate half of an advance, ignoring any
// pending skip on the boulder.
func advanceClimber(cat *models.Category, boulderIdx int) {
	b := cat.Boulders[boulderIdx]
	if len(b.Climbers) == 0 {
		return
	}

	if !b.HasStarted {
		if !CanStart(cat, boulderIdx) {
			return
		}
		// Starting puts climber 0 on the wall without moving the pointer.
		b.HasStarted = true
		cat.RecordProgress(b.Climbers[b.CurrentClimberIndex], b.ID)
		return
	}

	cat.RecordProgress(b.Climbers[b.CurrentClimberIndex], b.ID)
	next := (b.CurrentClimberIndex + 1) % len(b.Climbers)
	b.CurrentClimberIndex = nextIncomplete(cat, b, next)
}

// nextIncomplete scans forward from start (wrapping) for the first climber
// that still has boulders left. When everyone is complete the naive next
// position is kept; the display renders it as DONE.
func nextIncomplete(cat *models.Category, b *models.Boulder, start int) int {
	n := len(b.Climbers)
	for i := 0; i < n; i++ {
		idx := (start + i) % n
		if !cat.IsComplete(b.Climbers[idx]) {
			return idx
		}
	}
	return start
}

// AdvanceCategory advances every boulder of a category in a single pass, in
// increasing boulder order. The ordering matters: boulder i's start gate and
// skip flow depend on boulder i-1's post-advance state within the same pass.
// A skip handed to boulder i+1 during the pass is not consumed again in the
// same pass; the receiving boulder runs its normal advance instead, so the
// empty slot travels exactly one hop per pass.
func AdvanceCategory(cat *models.Category) {
	if cat == nil {
		return
	}
	skipArrived := false
	for i, b := range cat.Boulders {
		arrived := skipArrived
		skipArrived = false
		if b.SkipNext && !arrived {
			b.SkipNext = false
			if i+1 < len(cat.Boulders) {
				cat.Boulders[i+1].SkipNext = true
				skipArrived = true
			}
			continue
		}
		advanceClimber(cat, i)
	}
}

// AdvanceAll advances every category in order.
func AdvanceAll(cats []*models.Category) {
	for _, cat := range cats {
		AdvanceCategory(cat)
	}
}

// AdvanceBoulder advances the boulder at boulderIdx in every category. Each
// category applies its own gate and skip rules independently.
func AdvanceBoulder(cats []*models.Category, boulderIdx int) {
	for _, cat := range cats {
		Advance(cat, boulderIdx)
	}
}

// ArmSkip marks the boulder at boulderIdx with a pending empty slot. The
// slot displaces that boulder's next advance and then flows onward.
func ArmSkip(cat *models.Category, boulderIdx int) {
	if cat == nil || boulderIdx < 0 || boulderIdx >= len(cat.Boulders) {
		return
	}
	cat.Boulders[boulderIdx].SkipNext = true
}
