package webui

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/0h41/joykontrol/src/configuration"
	"github.com/0h41/joykontrol/src/engine"
	"github.com/0h41/joykontrol/src/midi"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type setCall struct {
	index  int
	button configuration.ButtonConfig
}

type fakeEngine struct {
	mu       sync.Mutex
	state    engine.State
	sets     chan setCall
	selected chan int
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		state: engine.State{
			Device:   "Arcade Stick",
			Attached: true,
			Buttons: []configuration.ButtonConfig{
				configuration.DefaultButtonConfig(),
				{Function: configuration.ControlChange, Channel: 3, Value: 20},
			},
			Ports:    []midi.Port{{Index: 0, Name: "Midi Through"}},
			Selected: 0,
		},
		sets:     make(chan setCall, 8),
		selected: make(chan int, 8),
	}
}

func (e *fakeEngine) Snapshot(ctx context.Context) (engine.State, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state, nil
}

func (e *fakeEngine) SetButton(ctx context.Context, index int, button configuration.ButtonConfig) error {
	e.sets <- setCall{index: index, button: button}
	return nil
}

func (e *fakeEngine) SelectPort(ctx context.Context, index int) error {
	e.selected <- index
	return nil
}

func startServer(t *testing.T) (*WebUIServer, *fakeEngine, *websocket.Conn) {
	t.Helper()
	eng := newFakeEngine()
	s, err := NewWebUIServer("127.0.0.1:0", eng)
	require.NoError(t, err)
	go s.handleBroadcasts()

	httpServer := httptest.NewServer(s.Handler())
	t.Cleanup(httpServer.Close)
	t.Cleanup(func() {
		_ = s.Stop(context.Background())
	})

	url := "ws" + strings.TrimPrefix(httpServer.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	welcome := readMessage(t, conn)
	require.Equal(t, "welcome", welcome["type"])
	return s, eng, conn
}

func readMessage(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestGetState(t *testing.T) {
	_, _, conn := startServer(t)
	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "getState"}))

	msg := readMessage(t, conn)
	assert.Equal(t, "state", msg["type"])
	assert.Equal(t, "Arcade Stick", msg["device"])
	assert.Equal(t, true, msg["attached"])
	assert.Equal(t, float64(0), msg["selected"])

	buttons := msg["buttons"].([]interface{})
	require.Len(t, buttons, 2)
	assert.Equal(t, map[string]interface{}{
		"function": "ControlChange",
		"channel":  float64(3),
		"value":    float64(20),
	}, buttons[1])
}

func TestSetButtonClamps(t *testing.T) {
	_, eng, conn := startServer(t)
	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type":     "setButton",
		"index":    1,
		"function": "ControlChange",
		"channel":  20,
		"value":    300,
	}))

	select {
	case call := <-eng.sets:
		assert.Equal(t, 1, call.index)
		assert.Equal(t, configuration.ButtonConfig{Function: configuration.ControlChange, Channel: 15, Value: 127}, call.button)
	case <-time.After(2 * time.Second):
		t.Fatal("setButton not forwarded")
	}
}

func TestSetButtonRejectsUnknownFunction(t *testing.T) {
	_, eng, conn := startServer(t)
	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type":     "setButton",
		"index":    0,
		"function": "PitchBend",
	}))
	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type":     "setButton",
		"index":    0,
		"function": "Note",
		"channel":  -4,
		"value":    64,
	}))

	select {
	case call := <-eng.sets:
		assert.Equal(t, configuration.ButtonConfig{Function: configuration.Note, Channel: 0, Value: 64}, call.button)
	case <-time.After(2 * time.Second):
		t.Fatal("setButton not forwarded")
	}
	assert.Empty(t, eng.sets)
}

func TestSelectPort(t *testing.T) {
	_, eng, conn := startServer(t)
	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "selectPort", "index": 2}))

	select {
	case index := <-eng.selected:
		assert.Equal(t, 2, index)
	case <-time.After(2 * time.Second):
		t.Fatal("selectPort not forwarded")
	}
}

func TestBroadcastButtonUpdate(t *testing.T) {
	s, _, conn := startServer(t)
	s.NotifyConfigUpdate(configuration.TopicButtonUpdated, configuration.ButtonUpdate{
		Index:  1,
		Button: configuration.ButtonConfig{Function: configuration.Note, Channel: 9, Value: 36},
	})

	msg := readMessage(t, conn)
	assert.Equal(t, "buttonUpdated", msg["type"])
	assert.Equal(t, float64(1), msg["index"])
	assert.Equal(t, map[string]interface{}{
		"function": "Note",
		"channel":  float64(9),
		"value":    float64(36),
	}, msg["button"])
}

func TestBroadcastStateOnReset(t *testing.T) {
	s, _, conn := startServer(t)
	config := configuration.NewConfigManager()
	s.Subscribe(config)

	config.OnDeviceAttached(2)
	msg := readMessage(t, conn)
	assert.Equal(t, "state", msg["type"])
}

func TestWebSocketOrigin(t *testing.T) {
	s, err := NewWebUIServer("127.0.0.1:0", newFakeEngine())
	require.NoError(t, err)
	httpServer := httptest.NewServer(s.Handler())
	t.Cleanup(httpServer.Close)
	url := "ws" + strings.TrimPrefix(httpServer.URL, "http") + "/ws"

	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"http://elsewhere.example"}})
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {httpServer.URL}})
	require.NoError(t, err)
	conn.Close()
}

func TestStaticFiles(t *testing.T) {
	s, err := NewWebUIServer("127.0.0.1:0", newFakeEngine())
	require.NoError(t, err)

	recorder := httptest.NewRecorder()
	s.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "joykontrol")
}
