package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/example/taxi-dispatch/internal/models"
)

func TestWSRegistryDeliversEvent(t *testing.T) {
	reg := NewWSRegistry()
	upgrader := websocket.Upgrader{}
	registered := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		reg.Add("TAXI001", conn)
		close(registered)
	}))
	defer srv.Close()

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	select {
	case <-registered:
	case <-time.After(time.Second):
		t.Fatal("session never registered")
	}

	ev := models.RideEvent{Type: models.EventRideRequested, VehicleID: "TAXI001", RiderID: "alice"}
	if err := reg.Notify("TAXI001", ev); err != nil {
		t.Fatalf("notify: %v", err)
	}
	client.SetReadDeadline(time.Now().Add(time.Second))
	var got models.RideEvent
	if err := client.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Type != ev.Type || got.RiderID != "alice" {
		t.Fatalf("unexpected event %+v", got)
	}

	if err := reg.Notify("TAXI002", ev); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

type recordingNotifier struct {
	targets []string
	err     error
}

func (r *recordingNotifier) Notify(target string, ev models.RideEvent) error {
	r.targets = append(r.targets, target)
	return r.err
}

func TestMultiJoinsErrorsAndIgnoresMissingSessions(t *testing.T) {
	a := &recordingNotifier{err: ErrNoSession}
	b := &recordingNotifier{}
	if err := (Multi{a, nil, b}).Notify(AdminTarget, models.RideEvent{}); err != nil {
		t.Fatalf("missing sessions should not fail fan-out: %v", err)
	}
	if len(a.targets) != 1 || len(b.targets) != 1 {
		t.Fatal("every notifier should be called")
	}

	boom := errors.New("boom")
	c := &recordingNotifier{err: boom}
	if err := (Multi{b, c}).Notify("TAXI001", models.RideEvent{}); !errors.Is(err, boom) {
		t.Fatalf("expected joined error, got %v", err)
	}
}

func TestWebhookPostsEvent(t *testing.T) {
	var body map[string]json.RawMessage
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	wh := NewWebhook(srv.URL, "secret")
	if err := wh.Notify(AdminTarget, models.RideEvent{Type: models.EventArrived, VehicleID: "TAXI003"}); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if auth != "Bearer secret" {
		t.Fatalf("unexpected auth header %q", auth)
	}
	if string(body["target"]) != `"admin"` {
		t.Fatalf("unexpected target %s", body["target"])
	}

	fail := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer fail.Close()
	if err := NewWebhook(fail.URL, "").Notify(AdminTarget, models.RideEvent{}); err == nil {
		t.Fatal("expected error on 502")
	}
}

type blockingNotifier struct {
	release chan struct{}
	got     chan string
}

func (b *blockingNotifier) Notify(target string, ev models.RideEvent) error {
	<-b.release
	b.got <- ev.VehicleID
	return nil
}

func TestAsyncDoesNotBlockOnSlowSink(t *testing.T) {
	sink := &blockingNotifier{release: make(chan struct{}), got: make(chan string, 4)}
	a := NewAsync(sink, 2, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.Run(ctx)

	done := make(chan error, 1)
	go func() { done <- a.Notify(AdminTarget, models.RideEvent{VehicleID: "TAXI001"}) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("notify: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Notify blocked on a stalled sink")
	}

	// the worker holds one event, the buffer takes two more
	var full bool
	for i := 0; i < 5; i++ {
		if err := a.Notify(AdminTarget, models.RideEvent{VehicleID: "TAXI002"}); errors.Is(err, ErrQueueFull) {
			full = true
			break
		}
	}
	if !full {
		t.Fatal("expected ErrQueueFull once the buffer is exhausted")
	}

	close(sink.release)
	select {
	case id := <-sink.got:
		if id != "TAXI001" {
			t.Fatalf("first delivered event = %q", id)
		}
	case <-time.After(time.Second):
		t.Fatal("event never delivered")
	}
}
