package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
	"github.com/yegors/airport-sim/internal/display"
	"github.com/yegors/airport-sim/internal/events"
	"github.com/yegors/airport-sim/internal/input"
	"github.com/yegors/airport-sim/pkg/logger"
)

type recordingSubmitter struct {
	mu   sync.Mutex
	cmds []input.Command
	err  error
}

func (r *recordingSubmitter) Submit(cmd input.Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.cmds = append(r.cmds, cmd)
	return nil
}

func startHub(t *testing.T, frameEvery int) (*Server, *httptest.Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewServer(logger.NewNop(), frameEvery)
	go hub.Run(ctx)
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleConnection))
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return hub, srv
}

func dial(t *testing.T, hub *Server, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	return conn
}

func TestFramesAreThinned(t *testing.T) {
	hub, srv := startHub(t, 2)
	conn := dial(t, hub, srv, "")

	for seq := uint64(1); seq <= 4; seq++ {
		hub.ShowFrame(&display.Frame{Seq: seq})
	}

	for _, expected := range []float64{2, 4} {
		var msg struct {
			Type string         `json:"type"`
			Data map[string]any `json:"data"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatal(err)
		}
		if msg.Type != MessageTypeFrame {
			t.Fatalf("got type %s, expected %s", msg.Type, MessageTypeFrame)
		}
		if got := msg.Data["seq"]; got != expected {
			t.Errorf("got seq %v, expected %v", got, expected)
		}
	}
}

func TestEventsAsMsgpack(t *testing.T) {
	hub, srv := startHub(t, 1)
	conn := dial(t, hub, srv, "?encoding=msgpack")

	err := hub.Handle(context.Background(), events.Event{
		Type:       events.Spawned,
		AirplaneID: 7,
		Callsign:   "SIM007",
		Runway:     -1,
	})
	if err != nil {
		t.Fatal(err)
	}

	kind, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	if kind != websocket.BinaryMessage {
		t.Fatalf("got message kind %d, expected binary", kind)
	}
	var msg struct {
		Type string       `msgpack:"type"`
		Data events.Event `msgpack:"data"`
	}
	if err := msgpack.Unmarshal(data, &msg); err != nil {
		t.Fatal(err)
	}
	if msg.Type != MessageTypeEvent || msg.Data.Callsign != "SIM007" || msg.Data.AirplaneID != 7 {
		t.Errorf("got %+v", msg)
	}
}

func TestCommandsAreSubmitted(t *testing.T) {
	hub, srv := startHub(t, 1)
	sub := &recordingSubmitter{}
	hub.SetSubmitter(sub)
	conn := dial(t, hub, srv, "")

	tests := []struct {
		command  string
		accepted bool
	}{
		{"spawn_inbound", true},
		{"warp_speed", false},
		{"toggle_trails", true},
	}
	for _, tc := range tests {
		req, _ := json.Marshal(map[string]any{
			"type": MessageTypeCommand,
			"data": map[string]string{"command": tc.command},
		})
		if err := conn.WriteMessage(websocket.TextMessage, req); err != nil {
			t.Fatal(err)
		}
		var msg struct {
			Type string        `json:"type"`
			Data CommandResult `json:"data"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatal(err)
		}
		if msg.Type != MessageTypeCommandResult || msg.Data.Command != tc.command {
			t.Fatalf("%s: got %+v", tc.command, msg)
		}
		if msg.Data.Accepted != tc.accepted {
			t.Errorf("%s: got accepted %v, expected %v", tc.command, msg.Data.Accepted, tc.accepted)
		}
	}

	sub.mu.Lock()
	defer sub.mu.Unlock()
	expected := []input.Command{input.SpawnInbound, input.ToggleTrails}
	if len(sub.cmds) != len(expected) {
		t.Fatalf("got %v, expected %v", sub.cmds, expected)
	}
	for i := range expected {
		if sub.cmds[i] != expected[i] {
			t.Errorf("command %d: got %v, expected %v", i, sub.cmds[i], expected[i])
		}
	}
}

func TestBusySubmitterIsReported(t *testing.T) {
	hub := NewServer(logger.NewNop(), 1)
	if got := hub.handleCommand(CommandRequest{Command: "exit"}); got.Accepted || got.Error != ErrNoSubmitter.Error() {
		t.Errorf("got %+v without a submitter", got)
	}

	hub.SetSubmitter(&recordingSubmitter{err: input.ErrBusy})
	got := hub.handleCommand(CommandRequest{Command: "exit"})
	if got.Accepted || !strings.Contains(got.Error, input.ErrBusy.Error()) {
		t.Errorf("got %+v, expected busy error", got)
	}
}

func TestNoFramesWithoutClients(t *testing.T) {
	hub := NewServer(logger.NewNop(), 1)
	hub.ShowFrame(&display.Frame{Seq: 1})
	if len(hub.broadcast) != 0 {
		t.Errorf("got %d queued messages, expected 0", len(hub.broadcast))
	}
}
