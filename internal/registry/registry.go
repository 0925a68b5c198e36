// Package registry owns the set of active rooms: identifier sanitization,
// lazy creation from persisted data, deletion and idle eviction rules, and
// the application of client commands to a room's timer state.
package registry

import (
	"errors"
	"regexp"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/blocclock/blocclock/internal/models"
)

// DefaultRoomID is the distinguished room every invalid or empty identifier
// resolves to. It is never evicted and never deleted.
const DefaultRoomID = "default"

const maxRoomIDLen = 50

var roomIDStrip = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrDefaultRoom    = errors.New("default room cannot be deleted")
	ErrRoomHasViewers = errors.New("room has active viewers")
	ErrRoomRunning    = errors.New("room clock is running")
	ErrLastRoom       = errors.New("last room cannot be deleted")
)

// Store is the persistence collaborator. Load returns nil for an absent
// room; Save errors are logged and never fatal.
type Store interface {
	Load(roomID string) (*models.PersistedState, error)
	Save(roomID string, state *models.PersistedState) error
}

// Publisher delivers snapshot events to every viewer of a room. The gateway
// implements it.
type Publisher interface {
	PublishTimer(roomID string, snap models.TimerSnapshot)
	PublishConfig(roomID string, snap models.ConfigSnapshot)
	PublishRounds(roomID string, snap models.RoundsSnapshot)
	PublishCategories(roomID string, snap models.CategoriesSnapshot)
	PublishViewers(roomID string, snap models.ViewersSnapshot)
}

// Options configures room defaults and eviction.
type Options struct {
	DefaultClimbSeconds      int
	DefaultTransitionSeconds int
	IdleEvictAfter           time.Duration
	EvictSweepEvery          time.Duration
}

// DefaultOptions returns the registry defaults used when no configuration
// overrides them.
func DefaultOptions() Options {
	return Options{
		DefaultClimbSeconds:      models.DefaultClimbSeconds,
		DefaultTransitionSeconds: models.DefaultTransitionSeconds,
		IdleEvictAfter:           2 * time.Hour,
		EvictSweepEvery:          10 * time.Minute,
	}
}

// Registry maps sanitized room identifiers to live rooms.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*Room

	store     Store
	publisher Publisher
	clock     clockwork.Clock
	opts      Options

	sweepStop chan struct{}
	sweepOnce sync.Once
}

// New creates a registry. The publisher may be set later via SetPublisher
// since the gateway needs the registry first.
func New(store Store, clock clockwork.Clock, opts Options) *Registry {
	return &Registry{
		rooms:     make(map[string]*Room),
		store:     store,
		publisher: nopPublisher{},
		clock:     clock,
		opts:      opts,
		sweepStop: make(chan struct{}),
	}
}

// SetPublisher wires the snapshot publisher. Must be called before clients
// connect.
func (r *Registry) SetPublisher(p Publisher) {
	r.publisher = p
}

// SanitizeRoomID normalizes an identifier to the safe charset and length.
// An empty or fully invalid identifier resolves to the default room.
func SanitizeRoomID(id string) string {
	id = roomIDStrip.ReplaceAllString(id, "")
	if len(id) > maxRoomIDLen {
		id = id[:maxRoomIDLen]
	}
	if id == "" {
		return DefaultRoomID
	}
	return id
}

// GetOrCreate returns the room for the sanitized id, creating it from
// persisted data on first reference.
func (r *Registry) GetOrCreate(id string) *Room {
	id = SanitizeRoomID(id)

	r.mu.Lock()
	defer r.mu.Unlock()

	if room, ok := r.rooms[id]; ok {
		return room
	}

	room := newRoom(r, id)
	if persisted, err := r.store.Load(id); err != nil {
		log.Error().Err(err).Str("room", id).Msg("failed to load persisted room state, starting empty")
	} else if persisted != nil {
		room.state.Rounds = persisted.Rounds
		room.state.ActiveRoundIndex = persisted.ActiveRoundIndex
		if persisted.NextCategoryID > room.state.NextCategoryID {
			room.state.NextCategoryID = persisted.NextCategoryID
		}
		if room.state.ActiveRound() == nil {
			room.state.ActiveRoundIndex = 0
		}
	}
	r.rooms[id] = room

	log.Info().Str("room", id).Int("rounds", len(room.state.Rounds)).Msg("room created")
	return room
}

// Get returns an existing room without creating one.
func (r *Registry) Get(id string) (*Room, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[SanitizeRoomID(id)]
	return room, ok
}

// Delete removes a room. The default room, rooms with viewers, rooms with a
// running clock, and the last remaining room are all refused.
func (r *Registry) Delete(id string) error {
	id = SanitizeRoomID(id)
	if id == DefaultRoomID {
		return ErrDefaultRoom
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[id]
	if !ok {
		return ErrRoomNotFound
	}
	if len(r.rooms) <= 1 {
		return ErrLastRoom
	}

	room.mu.Lock()
	viewers := room.viewers
	running := room.ticker.Running()
	room.mu.Unlock()

	if viewers > 0 {
		return ErrRoomHasViewers
	}
	if running {
		return ErrRoomRunning
	}

	room.ticker.Stop()
	delete(r.rooms, id)
	log.Info().Str("room", id).Msg("room deleted")
	return nil
}

// RoomInfo is the administrative view of one room.
type RoomInfo struct {
	ID            string       `json:"id"`
	Viewers       int          `json:"viewers"`
	Phase         models.Phase `json:"phase"`
	Running       bool         `json:"running"`
	CategoryCount int          `json:"categoryCount"`
	RoundCount    int          `json:"roundCount"`
}

// List returns the administrative view of every room.
func (r *Registry) List() []RoomInfo {
	r.mu.Lock()
	rooms := make([]*Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		rooms = append(rooms, room)
	}
	r.mu.Unlock()

	infos := make([]RoomInfo, 0, len(rooms))
	for _, room := range rooms {
		room.mu.Lock()
		infos = append(infos, RoomInfo{
			ID:            room.id,
			Viewers:       room.viewers,
			Phase:         room.state.Phase,
			Running:       room.state.Running,
			CategoryCount: len(room.state.Categories()),
			RoundCount:    len(room.state.Rounds),
		})
		room.mu.Unlock()
	}
	return infos
}

// StartEviction begins the idle-room sweep. Rooms with zero viewers, a
// non-running clock, and no activity beyond the threshold are removed. The
// default room is exempt.
func (r *Registry) StartEviction() {
	if r.opts.EvictSweepEvery <= 0 || r.opts.IdleEvictAfter <= 0 {
		return
	}
	go func() {
		ticker := r.clock.NewTicker(r.opts.EvictSweepEvery)
		defer ticker.Stop()
		for {
			select {
			case <-r.sweepStop:
				return
			case <-ticker.Chan():
				r.sweepIdle()
			}
		}
	}()
}

func (r *Registry) sweepIdle() {
	cutoff := r.clock.Now().Add(-r.opts.IdleEvictAfter)

	r.mu.Lock()
	var idle []string
	for id, room := range r.rooms {
		if id == DefaultRoomID {
			continue
		}
		room.mu.Lock()
		if room.viewers == 0 && !room.ticker.Running() && room.lastActivity.Before(cutoff) {
			idle = append(idle, id)
		}
		room.mu.Unlock()
	}
	for _, id := range idle {
		delete(r.rooms, id)
		log.Info().Str("room", id).Msg("idle room evicted")
	}
	r.mu.Unlock()
}

// Shutdown stops every room's clock and the eviction sweep, then persists
// every room synchronously. Used by the orderly-shutdown path.
func (r *Registry) Shutdown() {
	r.sweepOnce.Do(func() { close(r.sweepStop) })

	r.mu.Lock()
	rooms := make([]*Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		rooms = append(rooms, room)
	}
	r.mu.Unlock()

	for _, room := range rooms {
		room.ticker.Stop()
		room.mu.Lock()
		persisted := room.state.Persisted()
		room.mu.Unlock()
		if err := r.store.Save(room.id, persisted); err != nil {
			log.Error().Err(err).Str("room", room.id).Msg("failed to persist room during shutdown")
		}
	}
	log.Info().Int("rooms", len(rooms)).Msg("registry shut down")
}

// nopPublisher drops every snapshot. It stands in until the gateway is
// wired.
type nopPublisher struct{}

func (nopPublisher) PublishTimer(string, models.TimerSnapshot)           {}
func (nopPublisher) PublishConfig(string, models.ConfigSnapshot)         {}
func (nopPublisher) PublishRounds(string, models.RoundsSnapshot)         {}
func (nopPublisher) PublishCategories(string, models.CategoriesSnapshot) {}
func (nopPublisher) PublishViewers(string, models.ViewersSnapshot)       {}
