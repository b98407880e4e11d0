package nostr

import "errors"

var (
	// ErrInvalidKeyFormat is returned when a key is not valid hex or bech32,
	// has a bad checksum, or decodes to the wrong length.
	ErrInvalidKeyFormat = errors.New("invalid key format")

	// ErrEventIDMismatch is returned when an event's claimed id does not
	// match the hash of its canonical serialization.
	ErrEventIDMismatch = errors.New("event id does not match canonical serialization")

	// ErrSignatureInvalid is returned when an event's signature does not
	// verify against its id and pubkey.
	ErrSignatureInvalid = errors.New("invalid event signature")

	// ErrInvalidEvent is returned when an event is missing required fields
	// or has malformed tags.
	ErrInvalidEvent = errors.New("invalid event")
)
