package phaseclock

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitFire(t *testing.T, fired <-chan struct{}) {
	t.Helper()
	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for tick")
	}
}

func TestTickerFiresOncePerSecond(t *testing.T) {
	fc := clockwork.NewFakeClock()
	ticker := NewTicker(fc)
	fired := make(chan struct{}, 16)

	ticker.Start(func() { fired <- struct{}{} })
	defer ticker.Stop()

	// Wait for the goroutine to reach its ticker before advancing.
	fc.BlockUntil(1)

	fc.Advance(time.Second)
	waitFire(t, fired)
	fc.Advance(time.Second)
	waitFire(t, fired)

	select {
	case <-fired:
		t.Fatal("ticker fired without time advancing")
	default:
	}
}

func TestTickerStartIsIdempotent(t *testing.T) {
	fc := clockwork.NewFakeClock()
	ticker := NewTicker(fc)
	fired := make(chan struct{}, 16)

	ticker.Start(func() { fired <- struct{}{} })
	ticker.Start(func() { t.Error("second start must be ignored") })
	defer ticker.Stop()
	require.True(t, ticker.Running())

	fc.BlockUntil(1)
	fc.Advance(time.Second)
	waitFire(t, fired)

	select {
	case <-fired:
		t.Fatal("duplicate ticker leaked")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestTickerStopIsIdempotent(t *testing.T) {
	fc := clockwork.NewFakeClock()
	ticker := NewTicker(fc)

	ticker.Start(func() {})
	fc.BlockUntil(1)

	ticker.Stop()
	ticker.Stop()
	assert.False(t, ticker.Running())

	// A stopped ticker can be started again. The old clockwork ticker may
	// still be winding down, so advance until the new one fires.
	fired := make(chan struct{}, 16)
	ticker.Start(func() { fired <- struct{}{} })
	defer ticker.Stop()
	require.Eventually(t, func() bool {
		fc.Advance(time.Second)
		select {
		case <-fired:
			return true
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}
