// Package relay implements the Nostr relay wire protocol over websockets:
// one outbound publish path and any number of inbound subscriptions per
// connection, with per-relay status reporting and bounded timeouts on every
// network-facing operation.
package relay

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Hitchwiki/mediawiki-nostr/internal/nostr"
)

// Status of a single relay connection.
type Status int

const (
	StatusConnecting Status = iota
	StatusConnected
	StatusDisconnected
)

func (s Status) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// StatusFunc receives connection state transitions per relay URL. It may be
// called from the connection's read goroutine and must not block.
type StatusFunc func(url string, status Status)

const (
	// ConnectTimeout bounds the websocket dial.
	ConnectTimeout = 5 * time.Second
	// PublishTimeout bounds the wait for the relay's OK after sending.
	PublishTimeout = 10 * time.Second
)

type okResult struct {
	accepted bool
	reason   string
}

// Relay is one live relay connection.
type Relay struct {
	URL string

	conn     *websocket.Conn
	onStatus StatusFunc

	writeMu sync.Mutex // gorilla allows a single concurrent writer

	mu        sync.Mutex
	subs      map[string]*Subscription
	okWaiters map[string]chan okResult
	closed    bool
	sawEvent  bool

	done chan struct{}
}

// Connect dials a relay with ConnectTimeout. onStatus may be nil.
func Connect(ctx context.Context, url string, onStatus StatusFunc) (*Relay, error) {
	if onStatus == nil {
		onStatus = func(string, Status) {}
	}
	onStatus(url, StatusConnecting)

	dialCtx, cancel := context.WithTimeout(ctx, ConnectTimeout)
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, url, nil)
	if err != nil {
		onStatus(url, StatusDisconnected)
		return nil, &RelayError{URL: url, Err: fmt.Errorf("%w: %v", ErrConnectionTimeout, err)}
	}

	r := &Relay{
		URL:       url,
		conn:      conn,
		onStatus:  onStatus,
		subs:      make(map[string]*Subscription),
		okWaiters: make(map[string]chan okResult),
		done:      make(chan struct{}),
	}
	onStatus(url, StatusConnected)
	go r.readLoop()
	return r, nil
}

func (r *Relay) write(data []byte) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	if err := r.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return &RelayError{URL: r.URL, Err: err}
	}
	return nil
}

// Publish sends the event and waits up to PublishTimeout for the matching
// OK. An OK with the false flag is this relay's rejection, returned as an
// error carrying the relay's reason.
func (r *Relay) Publish(ctx context.Context, ev *nostr.Event) error {
	data, err := nostr.EventEnvelope(ev)
	if err != nil {
		return err
	}

	ch := make(chan okResult, 1)
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return &RelayError{URL: r.URL, Err: ErrRelayClosed}
	}
	r.okWaiters[ev.ID] = ch
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		delete(r.okWaiters, ev.ID)
		r.mu.Unlock()
	}()

	if err := r.write(data); err != nil {
		return err
	}

	timer := time.NewTimer(PublishTimeout)
	defer timer.Stop()
	select {
	case res := <-ch:
		if !res.accepted {
			return &RelayError{URL: r.URL, Err: fmt.Errorf("rejected: %s", res.reason)}
		}
		return nil
	case <-timer.C:
		return &RelayError{URL: r.URL, Err: fmt.Errorf("%w waiting for OK", ErrConnectionTimeout)}
	case <-ctx.Done():
		return &RelayError{URL: r.URL, Err: ctx.Err()}
	case <-r.done:
		return &RelayError{URL: r.URL, Err: ErrRelayClosed}
	}
}

// SubscribeOptions control a subscription's lifetime.
type SubscribeOptions struct {
	// CloseOnEOSE ends the subscription once the relay has delivered all
	// stored events, for one-shot history fetches.
	CloseOnEOSE bool
}

// Subscription is a streaming read of matching events. Events is closed
// when the subscription ends; EOSE is closed once the relay signals end of
// stored events.
type Subscription struct {
	ID     string
	Events chan *nostr.Event
	EOSE   chan struct{}

	relay    *Relay
	filters  []nostr.Filter
	opts     SubscribeOptions
	eoseOnce sync.Once
	stopOnce sync.Once

	quit    chan struct{}
	sendMu  sync.Mutex
	stopped bool
}

// Subscribe opens a subscription with a fresh id.
func (r *Relay) Subscribe(ctx context.Context, filters []nostr.Filter, opts SubscribeOptions) (*Subscription, error) {
	sub := &Subscription{
		ID:      uuid.NewString(),
		Events:  make(chan *nostr.Event, 64),
		EOSE:    make(chan struct{}),
		quit:    make(chan struct{}),
		relay:   r,
		filters: filters,
		opts:    opts,
	}

	data, err := nostr.ReqEnvelope(sub.ID, filters...)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, &RelayError{URL: r.URL, Err: ErrRelayClosed}
	}
	r.subs[sub.ID] = sub
	r.mu.Unlock()

	if err := r.write(data); err != nil {
		r.mu.Lock()
		delete(r.subs, sub.ID)
		r.mu.Unlock()
		return nil, err
	}
	return sub, nil
}

// Close ends the subscription and closes its Events channel.
func (s *Subscription) Close() {
	s.stopOnce.Do(func() {
		close(s.quit) // unblocks any in-flight deliver

		s.relay.mu.Lock()
		delete(s.relay.subs, s.ID)
		closed := s.relay.closed
		s.relay.mu.Unlock()

		if !closed {
			if data, err := nostr.CloseEnvelope(s.ID); err == nil {
				_ = s.relay.write(data)
			}
		}

		// Events is closed only once no deliver holds sendMu.
		s.sendMu.Lock()
		s.stopped = true
		close(s.Events)
		s.sendMu.Unlock()
	})
}

// deliver hands an event to the consumer, giving up if the subscription is
// closed while the channel is full.
func (s *Subscription) deliver(ev *nostr.Event) {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if s.stopped {
		return
	}
	select {
	case s.Events <- ev:
	case <-s.quit:
	}
}

func (s *Subscription) signalEOSE() {
	s.eoseOnce.Do(func() { close(s.EOSE) })
}

// readLoop dispatches inbound frames until the connection drops. Events are
// verified (id recomputed, signature checked) and matched against the
// subscription's filters before delivery; failures are dropped with a log
// line, never delivered.
func (r *Relay) readLoop() {
	defer r.teardown()
	for {
		_, data, err := r.conn.ReadMessage()
		if err != nil {
			return
		}
		msg, err := nostr.ParseRelayMessage(data)
		if err != nil {
			log.Printf("relay %s: unparseable message: %v", r.URL, err)
			continue
		}

		switch msg.Label {
		case nostr.LabelEvent:
			r.dispatchEvent(msg)
		case nostr.LabelOK:
			r.mu.Lock()
			ch, ok := r.okWaiters[msg.EventID]
			r.mu.Unlock()
			if ok {
				select {
				case ch <- okResult{accepted: msg.OK, reason: msg.Reason}:
				default: // duplicate OK for the same id
				}
			}
		case nostr.LabelEOSE:
			r.mu.Lock()
			sub, ok := r.subs[msg.SubscriptionID]
			r.mu.Unlock()
			if ok {
				sub.signalEOSE()
				if sub.opts.CloseOnEOSE {
					sub.Close()
				}
			}
		case nostr.LabelClosed:
			r.mu.Lock()
			sub, ok := r.subs[msg.SubscriptionID]
			r.mu.Unlock()
			if ok {
				log.Printf("relay %s: subscription %s closed: %s", r.URL, msg.SubscriptionID, msg.Reason)
				sub.Close()
			}
		case nostr.LabelNotice:
			log.Printf("relay %s: NOTICE: %s", r.URL, msg.Notice)
		default:
			log.Printf("relay %s: ignoring %q message", r.URL, msg.Label)
		}
	}
}

func (r *Relay) dispatchEvent(msg *nostr.RelayMessage) {
	if err := msg.Event.Verify(); err != nil {
		log.Printf("relay %s: dropping event %s: %v", r.URL, msg.Event.ID, err)
		return
	}

	r.mu.Lock()
	sub, ok := r.subs[msg.SubscriptionID]
	if !r.sawEvent {
		// A processed event proves the relay is alive even if transport
		// notifications were missed.
		r.sawEvent = true
		r.onStatus(r.URL, StatusConnected)
	}
	r.mu.Unlock()
	if !ok {
		return
	}

	matched := len(sub.filters) == 0
	for _, f := range sub.filters {
		if f.Matches(msg.Event) {
			matched = true
			break
		}
	}
	if !matched {
		return
	}
	sub.deliver(msg.Event)
}

func (r *Relay) teardown() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	subs := make([]*Subscription, 0, len(r.subs))
	for _, s := range r.subs {
		subs = append(subs, s)
	}
	r.mu.Unlock()

	close(r.done)
	for _, s := range subs {
		s.Close()
	}
	_ = r.conn.Close()
	r.onStatus(r.URL, StatusDisconnected)
}

// Close tears the connection down, ending all subscriptions.
func (r *Relay) Close() {
	_ = r.conn.Close() // unblocks readLoop, which runs teardown
	r.teardown()
}
