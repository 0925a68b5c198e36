package phaseclock

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Ticker is a room's recurring one-second task handle. Start and Stop are
// its only operations; both are idempotent, so a room can never leak a
// duplicate timer.
type Ticker struct {
	clock    clockwork.Clock
	interval time.Duration

	mu      sync.Mutex
	stopCh  chan struct{}
	running bool
}

// NewTicker creates a ticker over the given clock. In production pass
// clockwork.NewRealClock(); tests use a FakeClock.
func NewTicker(clock clockwork.Clock) *Ticker {
	return &Ticker{clock: clock, interval: time.Second}
}

// Start begins firing fire once per second. Starting a running ticker is a
// no-op.
func (t *Ticker) Start(fire func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		log.Debug().Msg("ticker already running - start ignored")
		return
	}
	t.running = true
	stopCh := make(chan struct{})
	t.stopCh = stopCh

	go func() {
		ticker := t.clock.NewTicker(t.interval)
		defer ticker.Stop()
		for {
			select {
			case <-stopCh:
				return
			case <-ticker.Chan():
				fire()
			}
		}
	}()
}

// Stop cancels the recurring tick unconditionally. Stopping a stopped
// ticker is a no-op.
func (t *Ticker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return
	}
	t.running = false
	close(t.stopCh)
	t.stopCh = nil
}

// Running reports whether the ticker is currently firing.
func (t *Ticker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}
