package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blocclock/blocclock/internal/models"
	"github.com/blocclock/blocclock/internal/registry"
)

type nopStore struct{}

func (nopStore) Load(string) (*models.PersistedState, error) { return nil, nil }
func (nopStore) Save(string, *models.PersistedState) error   { return nil }

// wireEvent decodes the server-to-client envelope with the payload left raw
// so each test can decode only the events it cares about.
type wireEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func newTestManager(t *testing.T) (*Manager, *registry.Registry, *httptest.Server) {
	t.Helper()

	reg := registry.New(nopStore{}, clockwork.NewRealClock(), registry.DefaultOptions())
	manager := NewManager(reg, DefaultConfig())
	reg.SetPublisher(manager)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go manager.Start(ctx)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := manager.UpgradeConnection(w, r, r.URL.Query().Get("room")); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}))
	t.Cleanup(server.Close)

	return manager, reg, server
}

func dialRoom(t *testing.T, server *httptest.Server, roomID string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/?room=" + roomID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) wireEvent {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var event wireEvent
	require.NoError(t, json.Unmarshal(data, &event))
	return event
}

// readEventOfType drains events until one of the wanted type arrives.
// Broadcasts for other snapshot kinds may interleave.
func readEventOfType(t *testing.T, conn *websocket.Conn, eventType EventType) wireEvent {
	t.Helper()

	for i := 0; i < 20; i++ {
		event := readEvent(t, conn)
		if event.Type == string(eventType) {
			return event
		}
	}
	t.Fatalf("no %s event received", eventType)
	return wireEvent{}
}

func TestJoinSendsFullSnapshotSet(t *testing.T) {
	_, _, server := newTestManager(t)
	conn := dialRoom(t, server, "finals")

	// The join snapshots and the viewers broadcast race on delivery order,
	// so collect by type instead of asserting a sequence.
	seen := make(map[string]json.RawMessage)
	for len(seen) < 5 {
		event := readEvent(t, conn)
		seen[event.Type] = event.Data
	}

	var timer models.TimerSnapshot
	require.NoError(t, json.Unmarshal(seen["timer"], &timer))
	assert.Equal(t, models.PhaseStopped, timer.Phase)
	assert.False(t, timer.Running)

	var config models.ConfigSnapshot
	require.NoError(t, json.Unmarshal(seen["config"], &config))
	assert.Equal(t, models.DefaultClimbSeconds, config.ClimbSeconds)

	var viewers models.ViewersSnapshot
	require.NoError(t, json.Unmarshal(seen["viewers"], &viewers))
	assert.Equal(t, 1, viewers.Viewers)

	assert.Contains(t, seen, "rounds")
	assert.Contains(t, seen, "categories")
}

func TestCommandIsAppliedAndBroadcast(t *testing.T) {
	_, _, server := newTestManager(t)
	conn := dialRoom(t, server, "finals")
	for i := 0; i < 5; i++ {
		readEvent(t, conn)
	}

	msg := `{"type":"config_patch","payload":{"climbSeconds":300,"transitionSeconds":30}}`
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(msg)))

	event := readEventOfType(t, conn, EventConfig)
	var config models.ConfigSnapshot
	require.NoError(t, json.Unmarshal(event.Data, &config))
	assert.Equal(t, 300, config.ClimbSeconds)
	assert.Equal(t, 30, config.TransitionSeconds)
}

func TestInvalidCommandKeepsConnectionAlive(t *testing.T) {
	_, _, server := newTestManager(t)
	conn := dialRoom(t, server, "finals")
	for i := 0; i < 5; i++ {
		readEvent(t, conn)
	}

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"nonsense"}`)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"config_patch","payload":{"showNames":false}}`)))

	event := readEventOfType(t, conn, EventConfig)
	var config models.ConfigSnapshot
	require.NoError(t, json.Unmarshal(event.Data, &config))
	assert.False(t, config.ShowNames)
}

func TestBroadcastReachesEveryViewerOfTheRoom(t *testing.T) {
	_, _, server := newTestManager(t)
	first := dialRoom(t, server, "finals")
	second := dialRoom(t, server, "finals")
	other := dialRoom(t, server, "qualifiers")
	for i := 0; i < 5; i++ {
		readEvent(t, first)
		readEvent(t, second)
		readEvent(t, other)
	}

	msg := `{"type":"timer_patch","payload":{"remainingSeconds":90}}`
	require.NoError(t, first.WriteMessage(websocket.TextMessage, []byte(msg)))

	for _, conn := range []*websocket.Conn{first, second} {
		event := readEventOfType(t, conn, EventTimer)
		var timer models.TimerSnapshot
		require.NoError(t, json.Unmarshal(event.Data, &timer))
		assert.Equal(t, 90, timer.RemainingSeconds)
	}

	// The other room sees nothing beyond a possible viewers update.
	require.NoError(t, other.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, data, err := other.ReadMessage()
	if err == nil {
		var event wireEvent
		require.NoError(t, json.Unmarshal(data, &event))
		assert.NotEqual(t, string(EventTimer), event.Type)
	}
}

func TestDisconnectReleasesViewer(t *testing.T) {
	manager, reg, server := newTestManager(t)
	conn := dialRoom(t, server, "finals")
	for i := 0; i < 5; i++ {
		readEvent(t, conn)
	}

	room, ok := reg.Get("finals")
	require.True(t, ok)
	assert.Equal(t, 1, room.Viewers())

	conn.Close()

	require.Eventually(t, func() bool {
		return room.Viewers() == 0
	}, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		total, _ := manager.ConnectionStats()
		return total == 0
	}, 2*time.Second, 10*time.Millisecond)
}
