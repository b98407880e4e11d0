package relay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Hitchwiki/mediawiki-nostr/internal/nostr"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

// fakeRelay is an in-process relay speaking just enough NIP-01 for tests.
type fakeRelay struct {
	t *testing.T

	// behavior knobs
	okFlag   bool
	okReason string
	silent   bool // never answer publishes
	stored   []*nostr.Event

	srv *httptest.Server

	mu    sync.Mutex
	conns []*websocket.Conn
}

func newFakeRelay(t *testing.T) *fakeRelay {
	t.Helper()
	f := &fakeRelay{t: t, okFlag: true}
	f.srv = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeRelay) url() string {
	return "ws" + strings.TrimPrefix(f.srv.URL, "http")
}

func (f *fakeRelay) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	f.mu.Lock()
	f.conns = append(f.conns, conn)
	f.mu.Unlock()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var arr []json.RawMessage
		if err := json.Unmarshal(data, &arr); err != nil || len(arr) == 0 {
			continue
		}
		var label string
		_ = json.Unmarshal(arr[0], &label)

		switch label {
		case "EVENT":
			if f.silent {
				continue
			}
			var ev nostr.Event
			_ = json.Unmarshal(arr[1], &ev)
			resp, _ := json.Marshal([]any{"OK", ev.ID, f.okFlag, f.okReason})
			_ = conn.WriteMessage(websocket.TextMessage, resp)
		case "REQ":
			var subID string
			_ = json.Unmarshal(arr[1], &subID)
			for _, ev := range f.stored {
				resp, _ := json.Marshal([]any{"EVENT", subID, ev})
				_ = conn.WriteMessage(websocket.TextMessage, resp)
			}
			resp, _ := json.Marshal([]any{"EOSE", subID})
			_ = conn.WriteMessage(websocket.TextMessage, resp)
		}
	}
}

func (f *fakeRelay) dropConnections() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.conns {
		_ = c.Close()
	}
	f.conns = nil
}

func signedEvent(t *testing.T, content string, createdAt int64, tags [][]string) *nostr.Event {
	t.Helper()
	sk, err := nostr.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("GeneratePrivateKey error: %v", err)
	}
	ev := &nostr.Event{
		CreatedAt: createdAt,
		Kind:      nostr.KindTextNote,
		Tags:      tags,
		Content:   content,
	}
	if err := ev.Sign(sk); err != nil {
		t.Fatalf("Sign error: %v", err)
	}
	return ev
}

func TestPublishAccepted(t *testing.T) {
	f := newFakeRelay(t)
	r, err := Connect(context.Background(), f.url(), nil)
	if err != nil {
		t.Fatalf("Connect error: %v", err)
	}
	defer r.Close()

	ev := signedEvent(t, "hello", 1700000000, [][]string{{"t", "hitchwiki"}})
	if err := r.Publish(context.Background(), ev); err != nil {
		t.Errorf("Publish error: %v, want nil", err)
	}
}

func TestPublishRejected(t *testing.T) {
	f := newFakeRelay(t)
	f.okFlag = false
	f.okReason = "blocked: no thanks"

	r, err := Connect(context.Background(), f.url(), nil)
	if err != nil {
		t.Fatalf("Connect error: %v", err)
	}
	defer r.Close()

	ev := signedEvent(t, "hello", 1700000000, nil)
	err = r.Publish(context.Background(), ev)
	if err == nil {
		t.Fatal("Publish succeeded, want rejection")
	}
	var re *RelayError
	if !errors.As(err, &re) {
		t.Fatalf("Publish error type = %T, want *RelayError", err)
	}
	if re.URL != f.url() {
		t.Errorf("RelayError.URL = %q, want %q", re.URL, f.url())
	}
	if !strings.Contains(re.Error(), "no thanks") {
		t.Errorf("RelayError = %q, want relay reason included", re.Error())
	}
}

func TestPublishContextTimeout(t *testing.T) {
	f := newFakeRelay(t)
	f.silent = true

	r, err := Connect(context.Background(), f.url(), nil)
	if err != nil {
		t.Fatalf("Connect error: %v", err)
	}
	defer r.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	ev := signedEvent(t, "hello", 1700000000, nil)
	if err := r.Publish(ctx, ev); err == nil {
		t.Error("Publish with silent relay succeeded, want timeout error")
	}
}

func TestSubscribeDeliversValidatedEvents(t *testing.T) {
	f := newFakeRelay(t)
	good := signedEvent(t, "good", 1700000001, [][]string{{"t", "hitchwiki"}})
	forged := signedEvent(t, "forged", 1700000002, [][]string{{"t", "hitchwiki"}})
	forged.Content = "tampered after signing"
	f.stored = []*nostr.Event{good, forged}

	r, err := Connect(context.Background(), f.url(), nil)
	if err != nil {
		t.Fatalf("Connect error: %v", err)
	}
	defer r.Close()

	sub, err := r.Subscribe(context.Background(), []nostr.Filter{{Kinds: []int{1}}}, SubscribeOptions{CloseOnEOSE: true})
	if err != nil {
		t.Fatalf("Subscribe error: %v", err)
	}

	var got []*nostr.Event
	for ev := range sub.Events {
		got = append(got, ev)
	}
	if len(got) != 1 {
		t.Fatalf("received %d events, want only the validly signed one", len(got))
	}
	if got[0].ID != good.ID {
		t.Errorf("received event %s, want %s", got[0].ID, good.ID)
	}

	select {
	case <-sub.EOSE:
	default:
		t.Error("EOSE not signalled after end of stored events")
	}
}

func TestSubscribeFilterMismatchDropped(t *testing.T) {
	f := newFakeRelay(t)
	other := signedEvent(t, "other channel", 1700000001, [][]string{{"t", "other-channel"}})
	ours := signedEvent(t, "ours", 1700000002, [][]string{{"t", "hitchwiki"}})
	f.stored = []*nostr.Event{other, ours}

	r, err := Connect(context.Background(), f.url(), nil)
	if err != nil {
		t.Fatalf("Connect error: %v", err)
	}
	defer r.Close()

	sub, err := r.Subscribe(context.Background(),
		[]nostr.Filter{{Kinds: []int{1}, HashtagTs: []string{"hitchwiki"}}},
		SubscribeOptions{CloseOnEOSE: true})
	if err != nil {
		t.Fatalf("Subscribe error: %v", err)
	}

	var got []*nostr.Event
	for ev := range sub.Events {
		got = append(got, ev)
	}
	if len(got) != 1 || got[0].ID != ours.ID {
		t.Errorf("got %d events, want only the hitchwiki-tagged one", len(got))
	}
}

func TestStatusTransitions(t *testing.T) {
	f := newFakeRelay(t)

	var mu sync.Mutex
	var seen []Status
	onStatus := func(url string, st Status) {
		mu.Lock()
		seen = append(seen, st)
		mu.Unlock()
	}

	r, err := Connect(context.Background(), f.url(), onStatus)
	if err != nil {
		t.Fatalf("Connect error: %v", err)
	}

	f.dropConnections()

	deadline := time.After(2 * time.Second)
	for {
		mu.Lock()
		n := len(seen)
		disconnected := n > 0 && seen[n-1] == StatusDisconnected
		mu.Unlock()
		if disconnected {
			break
		}
		select {
		case <-deadline:
			t.Fatal("relay never reported disconnected after drop")
		case <-time.After(10 * time.Millisecond):
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if seen[0] != StatusConnecting || seen[1] != StatusConnected {
		t.Errorf("status sequence = %v, want connecting, connected, ... disconnected", seen)
	}
	_ = r
}

func TestConnectFailure(t *testing.T) {
	var last Status
	_, err := Connect(context.Background(), "ws://127.0.0.1:1", func(url string, st Status) { last = st })
	if err == nil {
		t.Fatal("Connect to closed port succeeded")
	}
	if last != StatusDisconnected {
		t.Errorf("final status = %v, want disconnected", last)
	}
}
