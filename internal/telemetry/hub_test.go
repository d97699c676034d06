package telemetry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	diag "github.com/coreman2200/funtimes-boogie/internal/diagnostics"
	"github.com/coreman2200/funtimes-boogie/internal/game"
	"github.com/coreman2200/funtimes-boogie/internal/stick"
)

func dial(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var m message
	require.NoError(t, conn.ReadJSON(&m))
	return m
}

func TestStateStream(t *testing.T) {
	h := NewHub()
	h.PublishSnapshot(game.Snapshot{State: game.TitleSelect})
	srv := httptest.NewServer(h.Handler())
	defer srv.Close()

	conn := dial(t, srv, "/ws")
	first := readMessage(t, conn)
	assert.Equal(t, "snapshot", first.Type)
	require.NotNil(t, first.Snapshot)
	assert.Equal(t, game.TitleSelect, first.Snapshot.State)

	h.PublishSnapshot(game.Snapshot{State: game.SongPlay, SongName: "Song #1", Strikes: 1})
	m := readMessage(t, conn)
	require.NotNil(t, m.Snapshot)
	assert.Equal(t, game.SongPlay, m.Snapshot.State)
	assert.Equal(t, 1, m.Snapshot.Strikes)

	h.PublishReading(stick.NewReading(0, 2048))
	m = readMessage(t, conn)
	assert.Equal(t, "reading", m.Type)
	require.NotNil(t, m.Reading)
	assert.Equal(t, stick.Left, m.Reading.Direction())
}

func TestDiagReplayAndStream(t *testing.T) {
	h := NewHub()
	h.Push(diag.Diagnostic{Severity: diag.Warn, Code: diag.InputTimeout})
	srv := httptest.NewServer(h.Handler())
	defer srv.Close()

	conn := dial(t, srv, "/diag")
	var d diag.Diagnostic
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, conn.ReadJSON(&d))
	assert.Equal(t, diag.InputTimeout, d.Code)
	assert.False(t, d.At.IsZero())

	h.Push(diag.Diagnostic{Severity: diag.Info, Code: diag.RoundWin})
	require.NoError(t, conn.ReadJSON(&d))
	assert.Equal(t, diag.RoundWin, d.Code)
}

func TestRecentIsBounded(t *testing.T) {
	h := NewHub()
	for i := 0; i < recentDiags+5; i++ {
		h.Push(diag.Diagnostic{Code: "X", Evidence: map[string]any{"i": i}})
	}
	got := h.Recent()
	require.Len(t, got, recentDiags)
	assert.Equal(t, 5, got[0].Evidence["i"])
}

func TestControlMovesStick(t *testing.T) {
	h := NewHub()
	v := stick.NewVirtual()
	h.Stick = v
	srv := httptest.NewServer(h.Handler())
	defer srv.Close()

	conn := dial(t, srv, "/control")
	require.NoError(t, conn.WriteJSON(map[string]float64{"x": 50, "y": 0}))
	ack := readMessage(t, conn)
	assert.Equal(t, "snapshot", ack.Type)

	s := stick.NewSampler(v)
	r, err := s.Sample(context.Background())
	require.NoError(t, err)
	assert.Equal(t, stick.Up, r.Direction())
}

func TestControlWithoutStick(t *testing.T) {
	h := NewHub()
	h.applyControl(Control{})
	got := h.Recent()
	require.Len(t, got, 1)
	assert.Equal(t, "CONTROL.NO_STICK", got[0].Code)
}

func TestHealth(t *testing.T) {
	h := NewHub()
	h.Counters["samples"] = func() uint64 { return 42 }
	h.PublishSnapshot(game.Snapshot{State: game.RoundEnd, Outcome: game.Lose})
	srv := httptest.NewServer(h.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, float64(42), body["samples"])
	assert.Equal(t, "round-end", body["state"])
	assert.Equal(t, "lose", body["outcome"])
}

func TestPublishDoesNotWaitForSlowClient(t *testing.T) {
	h := NewHub()
	// a client whose writer never drains its queue
	slow := &client{send: make(chan []byte, 2)}
	h.clients[slow] = true

	start := time.Now()
	for i := 0; i < 10; i++ {
		h.PublishSnapshot(game.Snapshot{Round: i})
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)
	require.Len(t, slow.send, 2, "overflow is dropped")

	var m message
	require.NoError(t, json.Unmarshal(<-slow.send, &m))
	require.NotNil(t, m.Snapshot)
	assert.Equal(t, 0, m.Snapshot.Round)
	assert.Equal(t, 9, h.snap.Round, "latest snapshot is still recorded")
}
