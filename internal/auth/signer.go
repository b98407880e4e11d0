// Package auth implements the chat identity state machine: an injected
// external signer (the NIP-07 capability), a locally held private key, or
// anonymous read-only, plus the challenge-response login flow built on the
// same primitives.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Hitchwiki/mediawiki-nostr/internal/nostr"
)

var (
	// ErrNoExtensionFound means no external signing capability was
	// injected at construction time.
	ErrNoExtensionFound = errors.New("no signing extension available")

	// ErrExtensionRejected means the external signer refused the request.
	ErrExtensionRejected = errors.New("signing extension rejected the request")

	// ErrNoPublicKeyReturned means the external signer answered without a
	// usable public key.
	ErrNoPublicKeyReturned = errors.New("signing extension returned no public key")

	// ErrUnsupportedKeyFormat means a manually entered private key was not
	// in nsec form. Hex private keys are deliberately not accepted from
	// manual input, to avoid key/pubkey confusion.
	ErrUnsupportedKeyFormat = errors.New("only nsec private keys are accepted")

	// ErrNotAuthenticated means no signer is active.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrChallengeMismatch means the signed login event's content does not
	// equal the issued challenge.
	ErrChallengeMismatch = errors.New("challenge mismatch")

	// ErrPubkeyMismatch means the signed login event's author is not the
	// claimed public key.
	ErrPubkeyMismatch = errors.New("public key mismatch")
)

// SignTimeout bounds a request to the external signer.
const SignTimeout = 10 * time.Second

// Signer is the capability higher layers use to author events. The
// extension-backed implementation is injected by the host and never exposes
// the private key; the local implementation holds one.
type Signer interface {
	// PublicKey returns the active public key as lowercase hex.
	PublicKey(ctx context.Context) (string, error)
	// SignEvent fills in the event's PubKey, ID and Sig.
	SignEvent(ctx context.Context, ev *nostr.Event) error
}

// LocalSigner signs with a locally held hex private key.
type LocalSigner struct {
	sk string
	pk string
}

// NewLocalSigner derives the public key and returns a signer.
func NewLocalSigner(skHex string) (*LocalSigner, error) {
	pk, err := nostr.GetPublicKey(skHex)
	if err != nil {
		return nil, err
	}
	return &LocalSigner{sk: skHex, pk: pk}, nil
}

func (s *LocalSigner) PublicKey(ctx context.Context) (string, error) { return s.pk, nil }

func (s *LocalSigner) SignEvent(ctx context.Context, ev *nostr.Event) error {
	return ev.Sign(s.sk)
}

// SignChallenge builds and signs the kind-1 login event whose content is
// exactly the challenge string.
func SignChallenge(ctx context.Context, signer Signer, challenge string) (*nostr.Event, error) {
	ev := &nostr.Event{
		CreatedAt: time.Now().Unix(),
		Kind:      nostr.KindTextNote,
		Tags:      [][]string{},
		Content:   challenge,
	}
	if err := signer.SignEvent(ctx, ev); err != nil {
		return nil, fmt.Errorf("sign challenge: %w", err)
	}
	return ev, nil
}
