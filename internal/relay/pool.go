package relay

import (
	"context"
	"log"
	"sync"

	"github.com/Hitchwiki/mediawiki-nostr/internal/nostr"
)

// Pool fans publishes and subscriptions out across a fixed set of relay
// URLs. Connections are established lazily and re-established on the next
// use after a drop; there are no automatic retry loops.
type Pool struct {
	urls     []string
	onStatus StatusFunc

	mu     sync.Mutex
	relays map[string]*Relay
	closed bool
}

// NewPool validates the relay list and returns a pool. An empty list is a
// hard configuration error.
func NewPool(urls []string, onStatus StatusFunc) (*Pool, error) {
	if len(urls) == 0 {
		return nil, ErrNoRelays
	}
	if onStatus == nil {
		onStatus = func(string, Status) {}
	}
	return &Pool{
		urls:     urls,
		onStatus: onStatus,
		relays:   make(map[string]*Relay),
	}, nil
}

// URLs returns the configured relay list.
func (p *Pool) URLs() []string { return p.urls }

// ensureRelay returns a live connection for url, dialing if needed.
func (p *Pool) ensureRelay(ctx context.Context, url string) (*Relay, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, &RelayError{URL: url, Err: ErrRelayClosed}
	}
	if r, ok := p.relays[url]; ok {
		r.mu.Lock()
		alive := !r.closed
		r.mu.Unlock()
		if alive {
			p.mu.Unlock()
			return r, nil
		}
		delete(p.relays, url)
	}
	p.mu.Unlock()

	r, err := Connect(ctx, url, p.onStatus)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		r.Close()
		return nil, &RelayError{URL: url, Err: ErrRelayClosed}
	}
	p.relays[url] = r
	p.mu.Unlock()
	return r, nil
}

// Publish sends the event to every relay in parallel. It succeeds as soon
// as one relay accepts; it fails with a PublishError aggregating every
// per-relay reason only when all of them fail or reject.
func (p *Pool) Publish(ctx context.Context, ev *nostr.Event) error {
	results := make(chan error, len(p.urls))
	for _, url := range p.urls {
		go func(url string) {
			r, err := p.ensureRelay(ctx, url)
			if err != nil {
				results <- err
				return
			}
			results <- r.Publish(ctx, ev)
		}(url)
	}

	var failures []*RelayError
	for range p.urls {
		err := <-results
		if err == nil {
			// At least one relay accepted; remaining failures are
			// warnings, collected by the goroutines into the buffered
			// channel and dropped.
			return nil
		}
		if re, ok := err.(*RelayError); ok {
			failures = append(failures, re)
		} else {
			failures = append(failures, &RelayError{URL: "", Err: err})
		}
		log.Printf("publish: %v", err)
	}
	return &PublishError{Failures: failures}
}

// Subscribe opens the same subscription on every relay and merges the
// streams. It fails only if no relay could be subscribed. The merged
// channel closes when every underlying subscription has ended, which for
// CloseOnEOSE subscriptions means every live relay finished replaying
// stored events.
func (p *Pool) Subscribe(ctx context.Context, filters []nostr.Filter, opts SubscribeOptions) (<-chan *nostr.Event, func(), error) {
	var subs []*Subscription
	var firstErr error
	for _, url := range p.urls {
		r, err := p.ensureRelay(ctx, url)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			log.Printf("subscribe: %v", err)
			continue
		}
		sub, err := r.Subscribe(ctx, filters, opts)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			log.Printf("subscribe: %v", err)
			continue
		}
		subs = append(subs, sub)
	}
	if len(subs) == 0 {
		return nil, nil, &RelayError{URL: "", Err: ErrSubscriptionFailed}
	}

	merged := make(chan *nostr.Event, 64)
	done := make(chan struct{})
	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(sub *Subscription) {
			defer wg.Done()
			for ev := range sub.Events {
				// The done case releases a goroutine blocked on a full
				// merged buffer after the consumer cancelled.
				select {
				case merged <- ev:
				case <-done:
					return
				}
			}
		}(sub)
	}
	go func() {
		wg.Wait()
		close(merged)
	}()

	var cancelOnce sync.Once
	cancelAll := func() {
		cancelOnce.Do(func() { close(done) })
		for _, sub := range subs {
			sub.Close()
		}
	}
	return merged, cancelAll, nil
}

// Close tears down every connection.
func (p *Pool) Close() {
	p.mu.Lock()
	p.closed = true
	relays := make([]*Relay, 0, len(p.relays))
	for _, r := range p.relays {
		relays = append(relays, r)
	}
	p.relays = make(map[string]*Relay)
	p.mu.Unlock()

	for _, r := range relays {
		r.Close()
	}
}
