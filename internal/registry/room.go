package registry

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/blocclock/blocclock/internal/models"
	"github.com/blocclock/blocclock/internal/phaseclock"
)

// Room is one live competition room: its timer state, viewer count, and
// clock ticker. All mutations run under the room mutex, so no two commands
// or ticks to the same room ever interleave.
type Room struct {
	id  string
	reg *Registry

	mu           sync.Mutex
	state        *models.TimerState
	viewers      int
	lastActivity time.Time

	ticker *phaseclock.Ticker
}

func newRoom(r *Registry, id string) *Room {
	return &Room{
		id:           id,
		reg:          r,
		state:        models.NewTimerState(r.opts.DefaultClimbSeconds, r.opts.DefaultTransitionSeconds),
		lastActivity: r.clock.Now(),
		ticker:       phaseclock.NewTicker(r.clock),
	}
}

// ID returns the sanitized room identifier.
func (rm *Room) ID() string {
	return rm.id
}

// tick runs one clock second under the room lock and publishes what changed.
func (rm *Room) tick() {
	rm.mu.Lock()
	res := phaseclock.Tick(rm.state)
	timer := rm.state.TimerSnapshot()
	var cats models.CategoriesSnapshot
	var persisted *models.PersistedState
	if res.RosterChanged {
		cats = rm.state.CategoriesSnapshot()
		persisted = rm.state.Persisted()
	}
	stopped := !rm.state.Running
	rm.mu.Unlock()

	if stopped {
		rm.ticker.Stop()
	}
	if res.TimerChanged {
		rm.reg.publisher.PublishTimer(rm.id, timer)
	}
	if res.RosterChanged {
		rm.reg.publisher.PublishCategories(rm.id, cats)
		rm.saveAsync(persisted)
	}
}

// saveAsync fires a persistence write without awaiting it. The in-memory
// state stays authoritative whether or not the write lands.
func (rm *Room) saveAsync(persisted *models.PersistedState) {
	go func() {
		if err := rm.reg.store.Save(rm.id, persisted); err != nil {
			log.Error().Err(err).Str("room", rm.id).Msg("failed to persist room state")
		}
	}()
}

// touch records activity for idle eviction.
func (rm *Room) touch() {
	rm.lastActivity = rm.reg.clock.Now()
}

// Join registers a viewer and returns the full set of snapshots the new
// connection needs. The updated viewer count is broadcast to everyone.
func (rm *Room) Join() (models.TimerSnapshot, models.ConfigSnapshot, models.RoundsSnapshot, models.CategoriesSnapshot, models.ViewersSnapshot) {
	rm.mu.Lock()
	rm.viewers++
	rm.touch()
	timer := rm.state.TimerSnapshot()
	config := rm.state.ConfigSnapshot()
	rounds := rm.state.RoundsSnapshot()
	cats := rm.state.CategoriesSnapshot()
	viewers := models.ViewersSnapshot{Viewers: rm.viewers}
	rm.mu.Unlock()

	rm.reg.publisher.PublishViewers(rm.id, viewers)
	return timer, config, rounds, cats, viewers
}

// Leave unregisters a viewer and broadcasts the updated count.
func (rm *Room) Leave() {
	rm.mu.Lock()
	if rm.viewers > 0 {
		rm.viewers--
	}
	rm.touch()
	viewers := models.ViewersSnapshot{Viewers: rm.viewers}
	rm.mu.Unlock()

	rm.reg.publisher.PublishViewers(rm.id, viewers)
}

// Viewers returns the current viewer count.
func (rm *Room) Viewers() int {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.viewers
}
