package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nhooyr.io/websocket"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(slog.Default())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func TestHubRegisterUnregister(t *testing.T) {
	hub := startHub(t)
	client := &Client{hub: hub, send: make(chan []byte, 256)}

	hub.register <- client
	time.Sleep(50 * time.Millisecond)
	if got := hub.ClientCount(); got != 1 {
		t.Errorf("after register: ClientCount() = %d, want 1", got)
	}

	hub.unregister <- client
	time.Sleep(50 * time.Millisecond)
	if got := hub.ClientCount(); got != 0 {
		t.Errorf("after unregister: ClientCount() = %d, want 0", got)
	}
}

func TestHubBroadcast(t *testing.T) {
	hub := startHub(t)
	c1 := &Client{hub: hub, send: make(chan []byte, 256)}
	c2 := &Client{hub: hub, send: make(chan []byte, 256)}
	hub.register <- c1
	hub.register <- c2
	time.Sleep(50 * time.Millisecond)

	msg := []byte(`{"type":"job_progress"}`)
	hub.Broadcast(msg)

	for i, c := range []*Client{c1, c2} {
		select {
		case got := <-c.send:
			if string(got) != string(msg) {
				t.Errorf("client %d got %q, want %q", i, got, msg)
			}
		case <-time.After(time.Second):
			t.Errorf("client %d did not receive broadcast", i)
		}
	}
}

func TestHubBroadcast_DropsSlowClient(t *testing.T) {
	hub := startHub(t)
	slow := &Client{hub: hub, send: make(chan []byte, 1)}
	hub.register <- slow
	time.Sleep(50 * time.Millisecond)

	slow.send <- []byte("filler")
	hub.Broadcast([]byte("overflow"))
	time.Sleep(50 * time.Millisecond)

	if got := hub.ClientCount(); got != 0 {
		t.Errorf("slow client should be dropped, ClientCount() = %d, want 0", got)
	}
}

func TestHubRunStopsOnCancel(t *testing.T) {
	hub := NewHub(slog.Default())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	c := &Client{hub: hub, send: make(chan []byte, 1)}
	hub.register <- c
	cancel()

	select {
	case <-hub.done:
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}
	if _, ok := <-c.send; ok {
		t.Error("client channel should be closed on shutdown")
	}
}

func TestNewMessage(t *testing.T) {
	data, err := NewMessage(MsgCacheCleared, nil)
	if err != nil {
		t.Fatalf("NewMessage error: %v", err)
	}
	if string(data) != `{"type":"cache_cleared"}` {
		t.Errorf("got %s", data)
	}

	data, err = NewMessage(MsgJobProgress, map[string]int{"completed": 1})
	if err != nil {
		t.Fatal(err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatal(err)
	}
	if msg.Type != MsgJobProgress || string(msg.Payload) != `{"completed":1}` {
		t.Errorf("unexpected message %+v", msg)
	}
}

func TestBroadcastError(t *testing.T) {
	hub := startHub(t)
	c := &Client{hub: hub, send: make(chan []byte, 4)}
	hub.register <- c
	time.Sleep(50 * time.Millisecond)

	hub.BroadcastError("boom")
	select {
	case got := <-c.send:
		if !strings.Contains(string(got), `"message":"boom"`) || !strings.Contains(string(got), `"type":"error"`) {
			t.Errorf("unexpected error message %s", got)
		}
	case <-time.After(time.Second):
		t.Error("no error broadcast received")
	}
}

func TestHandleWebSocket(t *testing.T) {
	hub := startHub(t)
	hub.SetSnapshot(func() (any, error) {
		return map[string]int{"jobs": 0}, nil
	})
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	read := func() Message {
		t.Helper()
		_, data, err := conn.Read(ctx)
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatal(err)
		}
		return msg
	}

	if msg := read(); msg.Type != MsgFullState || string(msg.Payload) != `{"jobs":0}` {
		t.Errorf("expected full_state snapshot, got %+v", msg)
	}

	for hub.ClientCount() == 0 {
		time.Sleep(10 * time.Millisecond)
	}
	hub.BroadcastJSON(MsgJobCompleted, map[string]string{"job_id": "1"})
	if msg := read(); msg.Type != MsgJobCompleted {
		t.Errorf("expected job_completed, got %+v", msg)
	}

	sync, _ := NewMessage(MsgSync, nil)
	if err := conn.Write(ctx, websocket.MessageText, sync); err != nil {
		t.Fatal(err)
	}
	if msg := read(); msg.Type != MsgFullState {
		t.Errorf("expected full_state after sync, got %+v", msg)
	}
}
