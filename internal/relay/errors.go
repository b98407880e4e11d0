package relay

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrPublishFailed is returned when no configured relay accepted an
	// event within the publish timeout.
	ErrPublishFailed = errors.New("publish failed on all relays")

	// ErrSubscriptionFailed is returned when no configured relay could be
	// subscribed.
	ErrSubscriptionFailed = errors.New("subscription failed on all relays")

	// ErrConnectionTimeout is returned when a relay did not complete an
	// operation within its deadline.
	ErrConnectionTimeout = errors.New("relay timed out")

	// ErrRelayClosed is returned for operations on a closed connection.
	ErrRelayClosed = errors.New("relay connection closed")

	// ErrNoRelays is returned when a pool is configured with an empty
	// relay list.
	ErrNoRelays = errors.New("no relays configured")
)

// RelayError carries the originating relay URL so callers can report which
// endpoint failed.
type RelayError struct {
	URL string
	Err error
}

func (e *RelayError) Error() string { return fmt.Sprintf("relay %s: %v", e.URL, e.Err) }

func (e *RelayError) Unwrap() error { return e.Err }

// PublishError aggregates per-relay failures when every relay failed.
type PublishError struct {
	Failures []*RelayError
}

func (e *PublishError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = f.Error()
	}
	return ErrPublishFailed.Error() + ": " + strings.Join(parts, "; ")
}

func (e *PublishError) Is(target error) bool { return target == ErrPublishFailed }
