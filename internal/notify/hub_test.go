package notify_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"tabletrack.dev/app/internal/notify"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// dial upgrades one client against a test server and subscribes it to the
// channel named in the request path.
func newHubServer(t *testing.T, hub *notify.Hub) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		c := hub.Attach(conn, logger)
		hub.Join(c, strings.TrimPrefix(r.URL.Path, "/"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, channel string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/" + channel
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", channel, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) (string, map[string]any) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var env struct {
		Event string         `json:"event"`
		Data  map[string]any `json:"data"`
		TS    int64          `json:"ts"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("unmarshal %s: %v", raw, err)
	}
	if env.TS == 0 {
		t.Error("envelope has no timestamp")
	}
	return env.Event, env.Data
}

func TestHubDeliversToSubscribers(t *testing.T) {
	hub := notify.NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	srv := newHubServer(t, hub)
	conn := dial(t, srv, notify.ChannelAdmins)

	// join travels through the hub loop; give it a beat before publishing
	time.Sleep(50 * time.Millisecond)

	hub.Publish(notify.ChannelAdmins, "order.new", map[string]any{"order_id": "o-1"})

	event, data := readEnvelope(t, conn)
	if event != "order.new" {
		t.Errorf("event = %s, want order.new", event)
	}
	if data["order_id"] != "o-1" {
		t.Errorf("data = %v", data)
	}
}

func TestHubRoomIsolation(t *testing.T) {
	hub := notify.NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	srv := newHubServer(t, hub)
	alice := dial(t, srv, notify.CustomerChannel("alice"))
	bob := dial(t, srv, notify.CustomerChannel("bob"))

	time.Sleep(50 * time.Millisecond)

	hub.Publish(notify.CustomerChannel("alice"), "payment.success", map[string]any{"order_id": "o-1"})

	if event, _ := readEnvelope(t, alice); event != "payment.success" {
		t.Errorf("alice event = %s, want payment.success", event)
	}

	// bob's socket must stay silent
	_ = bob.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	if _, raw, err := bob.ReadMessage(); err == nil {
		t.Errorf("bob received %s, want nothing", raw)
	}
}

func TestHubFanOutToAllRoomMembers(t *testing.T) {
	hub := notify.NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	srv := newHubServer(t, hub)
	first := dial(t, srv, notify.OrderChannel("o-1"))
	second := dial(t, srv, notify.OrderChannel("o-1"))

	time.Sleep(50 * time.Millisecond)

	hub.Publish(notify.OrderChannel("o-1"), "order.status", map[string]any{"new_status": "PREPARING"})

	for _, conn := range []*websocket.Conn{first, second} {
		event, data := readEnvelope(t, conn)
		if event != "order.status" {
			t.Errorf("event = %s, want order.status", event)
		}
		if data["new_status"] != "PREPARING" {
			t.Errorf("data = %v", data)
		}
	}
}

func TestHubPublishWithoutSubscribersDoesNotBlock(t *testing.T) {
	hub := notify.NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	done := make(chan struct{})
	go func() {
		hub.Publish(notify.OrderChannel("ghost"), "order.status", map[string]any{})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked with no subscribers")
	}
}
