package nostr

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
)

// Event kinds used by the chat and login flows (NIP-01).
const (
	KindProfileMetadata = 0
	KindTextNote        = 1
	KindDeletion        = 5
	KindReaction        = 7
)

// MessageExpiry is the advisory lifetime attached to outgoing chat messages
// via an expiration tag (NIP-40). Relays that support it prune the event;
// nothing is enforced locally.
const MessageExpiry = 30 * 24 * time.Hour

// Event is a Nostr event as defined in NIP-01. Once signed it is immutable;
// ID and Sig bind the remaining fields.
type Event struct {
	ID        string     `json:"id"`
	PubKey    string     `json:"pubkey"`
	CreatedAt int64      `json:"created_at"`
	Kind      int        `json:"kind"`
	Tags      [][]string `json:"tags"`
	Content   string     `json:"content"`
	Sig       string     `json:"sig"`
}

const hexDigits = "0123456789abcdef"

// escapeString appends s to dst as a JSON string, escaping only what
// RFC 8259 requires: quotation mark, reverse solidus and the control
// characters below 0x20. Everything else, including U+2028 and U+2029,
// passes through raw. The stock json encoder escapes those two even with
// SetEscapeHTML(false) and would change the hash.
func escapeString(dst []byte, s string) []byte {
	dst = append(dst, '"')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '"':
			dst = append(dst, '\\', '"')
		case c == '\\':
			dst = append(dst, '\\', '\\')
		case c == '\b':
			dst = append(dst, '\\', 'b')
		case c == '\t':
			dst = append(dst, '\\', 't')
		case c == '\n':
			dst = append(dst, '\\', 'n')
		case c == '\f':
			dst = append(dst, '\\', 'f')
		case c == '\r':
			dst = append(dst, '\\', 'r')
		case c < 0x20:
			dst = append(dst, '\\', 'u', '0', '0', hexDigits[c>>4], hexDigits[c&0xf])
		default:
			dst = append(dst, c)
		}
	}
	return append(dst, '"')
}

// Serialize returns the canonical NIP-01 serialization used to derive the
// event id: the JSON array [0, pubkey, created_at, kind, tags, content],
// written by hand so the bytes match what other implementations hash.
func (ev *Event) Serialize() []byte {
	b := make([]byte, 0, 128+len(ev.Content)+len(ev.Tags)*32)
	b = append(b, `[0,"`...)
	b = append(b, ev.PubKey...)
	b = append(b, `",`...)
	b = strconv.AppendInt(b, ev.CreatedAt, 10)
	b = append(b, ',')
	b = strconv.AppendInt(b, int64(ev.Kind), 10)
	b = append(b, ",["...)
	for i, tag := range ev.Tags {
		if i > 0 {
			b = append(b, ',')
		}
		b = append(b, '[')
		for j, s := range tag {
			if j > 0 {
				b = append(b, ',')
			}
			b = escapeString(b, s)
		}
		b = append(b, ']')
	}
	b = append(b, "],"...)
	b = escapeString(b, ev.Content)
	return append(b, ']')
}

// ComputeID hashes the canonical serialization and returns the id as
// 64-character lowercase hex.
func (ev *Event) ComputeID() string {
	h := sha256.Sum256(ev.Serialize())
	return hex.EncodeToString(h[:])
}

// CheckID recomputes the id from the event fields and compares it with the
// claimed id. The claimed id is never trusted as supplied.
func (ev *Event) CheckID() error {
	if ev.ComputeID() != ev.ID {
		return ErrEventIDMismatch
	}
	return nil
}

// Validate checks field presence and shape before any further processing:
// pubkey must be canonical hex, created_at and id/sig must be present, and
// tags must be a sequence of string sequences. Malformed events are rejected
// here, at the deserialization boundary.
func (ev *Event) Validate() error {
	if !IsValidPublicKeyHex(ev.PubKey) {
		return fmt.Errorf("%w: bad pubkey", ErrInvalidEvent)
	}
	if ev.CreatedAt <= 0 {
		return fmt.Errorf("%w: missing created_at", ErrInvalidEvent)
	}
	if len(ev.ID) != 64 {
		return fmt.Errorf("%w: bad id length", ErrInvalidEvent)
	}
	if _, err := hex.DecodeString(ev.ID); err != nil {
		return fmt.Errorf("%w: id is not hex", ErrInvalidEvent)
	}
	if len(ev.Sig) != 128 {
		return fmt.Errorf("%w: bad signature length", ErrInvalidEvent)
	}
	if _, err := hex.DecodeString(ev.Sig); err != nil {
		return fmt.Errorf("%w: signature is not hex", ErrInvalidEvent)
	}
	if ev.Tags == nil {
		return fmt.Errorf("%w: missing tags", ErrInvalidEvent)
	}
	for _, tag := range ev.Tags {
		if len(tag) == 0 {
			return fmt.Errorf("%w: empty tag", ErrInvalidEvent)
		}
	}
	return nil
}

// Sign computes the id and Schnorr signature with the given hex private key,
// filling in PubKey, ID and Sig.
func (ev *Event) Sign(skHex string) error {
	b, err := hex.DecodeString(skHex)
	if err != nil || len(b) != 32 {
		return ErrInvalidKeyFormat
	}
	sk, pk := btcec.PrivKeyFromBytes(b)
	ev.PubKey = hex.EncodeToString(schnorr.SerializePubKey(pk))
	if ev.Tags == nil {
		ev.Tags = [][]string{}
	}

	id := ev.ComputeID()
	hash, _ := hex.DecodeString(id)
	sig, err := schnorr.Sign(sk, hash)
	if err != nil {
		return fmt.Errorf("sign event: %w", err)
	}

	ev.ID = id
	ev.Sig = hex.EncodeToString(sig.Serialize())
	return nil
}

// CheckSignature verifies the Schnorr signature over the event id against
// the event's pubkey. It fails closed: any malformed key, id or signature
// is a verification failure, never a panic.
func (ev *Event) CheckSignature() error {
	pkb, err := hex.DecodeString(ev.PubKey)
	if err != nil || len(pkb) != 32 {
		return ErrSignatureInvalid
	}
	pk, err := schnorr.ParsePubKey(pkb)
	if err != nil {
		return ErrSignatureInvalid
	}
	sigb, err := hex.DecodeString(ev.Sig)
	if err != nil || len(sigb) != 64 {
		return ErrSignatureInvalid
	}
	sig, err := schnorr.ParseSignature(sigb)
	if err != nil {
		return ErrSignatureInvalid
	}
	hash, err := hex.DecodeString(ev.ID)
	if err != nil || len(hash) != 32 {
		return ErrSignatureInvalid
	}
	if !sig.Verify(hash, pk) {
		return ErrSignatureInvalid
	}
	return nil
}

// Verify performs the full check on an inbound event: field shape, id
// binding, then signature.
func (ev *Event) Verify() error {
	if err := ev.Validate(); err != nil {
		return err
	}
	if err := ev.CheckID(); err != nil {
		return err
	}
	return ev.CheckSignature()
}

// TagValue returns the second element of the first tag whose first element
// equals name, or "" if there is none.
func (ev *Event) TagValue(name string) string {
	for _, tag := range ev.Tags {
		if len(tag) >= 2 && tag[0] == name {
			return tag[1]
		}
	}
	return ""
}

// HasTag reports whether the event carries a tag [name, value].
func (ev *Event) HasTag(name, value string) bool {
	for _, tag := range ev.Tags {
		if len(tag) >= 2 && tag[0] == name && tag[1] == value {
			return true
		}
	}
	return false
}

// ExpirationTag returns an NIP-40 expiration tag set MessageExpiry after
// the given creation time.
func ExpirationTag(createdAt time.Time) []string {
	exp := createdAt.Add(MessageExpiry).Unix()
	return []string{"expiration", strconv.FormatInt(exp, 10)}
}
