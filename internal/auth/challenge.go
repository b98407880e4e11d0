package auth

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/Hitchwiki/mediawiki-nostr/internal/nostr"
)

// NewChallenge returns an unpredictable single-use challenge string.
func NewChallenge() string {
	return "nostr-login-" + uuid.NewString()
}

// VerifyLogin checks a challenge-response login event. The order mirrors
// the server-side flow: field shape, id binding, signature, exact content
// equality with the challenge, then author equality with the claimed key.
// Every failure is terminal, not retryable.
func VerifyLogin(claimedPubkey, challenge string, ev *nostr.Event) error {
	claimed, err := nostr.NormalizePubkey(claimedPubkey)
	if err != nil {
		return err
	}

	if err := ev.Validate(); err != nil {
		return err
	}
	if err := ev.CheckID(); err != nil {
		return err
	}
	if err := ev.CheckSignature(); err != nil {
		return err
	}

	// Exact byte equality, no trimming or normalization.
	if ev.Content != challenge {
		return ErrChallengeMismatch
	}

	signer, err := nostr.NormalizePubkey(ev.PubKey)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPubkeyMismatch, err)
	}
	if signer != claimed {
		return ErrPubkeyMismatch
	}
	return nil
}
