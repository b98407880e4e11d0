package auth

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Hitchwiki/mediawiki-nostr/internal/nostr"
)

func TestNewChallengeUnpredictable(t *testing.T) {
	a, b := NewChallenge(), NewChallenge()
	if a == b {
		t.Errorf("two challenges are equal: %q", a)
	}
	if !strings.HasPrefix(a, "nostr-login-") {
		t.Errorf("challenge = %q, want nostr-login- prefix", a)
	}
}

func TestVerifyLogin(t *testing.T) {
	ext := newFakeExtension(t)
	const challenge = "login-42"

	signed := func(content string) *nostr.Event {
		ev, err := SignChallenge(context.Background(), ext, content)
		if err != nil {
			t.Fatalf("SignChallenge error: %v", err)
		}
		return ev
	}

	t.Run("valid response succeeds", func(t *testing.T) {
		if err := VerifyLogin(ext.pubkey, challenge, signed(challenge)); err != nil {
			t.Errorf("VerifyLogin error = %v, want nil", err)
		}
	})

	t.Run("claimed key as npub succeeds", func(t *testing.T) {
		npub, _ := nostr.EncodeNpub(ext.pubkey)
		if err := VerifyLogin(npub, challenge, signed(challenge)); err != nil {
			t.Errorf("VerifyLogin with npub claim error = %v, want nil", err)
		}
	})

	t.Run("wrong content is a challenge mismatch", func(t *testing.T) {
		err := VerifyLogin(ext.pubkey, challenge, signed("login-43"))
		if !errors.Is(err, ErrChallengeMismatch) {
			t.Errorf("VerifyLogin error = %v, want ErrChallengeMismatch", err)
		}
	})

	t.Run("whitespace is not normalized", func(t *testing.T) {
		err := VerifyLogin(ext.pubkey, challenge, signed(challenge+" "))
		if !errors.Is(err, ErrChallengeMismatch) {
			t.Errorf("VerifyLogin error = %v, want ErrChallengeMismatch", err)
		}
	})

	t.Run("different signer is a pubkey mismatch", func(t *testing.T) {
		other := newFakeExtension(t)
		err := VerifyLogin(other.pubkey, challenge, signed(challenge))
		if !errors.Is(err, ErrPubkeyMismatch) {
			t.Errorf("VerifyLogin error = %v, want ErrPubkeyMismatch", err)
		}
	})

	t.Run("tampered content fails id check", func(t *testing.T) {
		ev := signed(challenge)
		ev.Content = challenge // re-assign same, then tamper created_at
		ev.CreatedAt++
		err := VerifyLogin(ext.pubkey, challenge, ev)
		if !errors.Is(err, nostr.ErrEventIDMismatch) {
			t.Errorf("VerifyLogin error = %v, want ErrEventIDMismatch", err)
		}
	})

	t.Run("forged signature fails", func(t *testing.T) {
		ev := signed(challenge)
		ev.Sig = strings.Repeat("00", 64)
		err := VerifyLogin(ext.pubkey, challenge, ev)
		if !errors.Is(err, nostr.ErrSignatureInvalid) {
			t.Errorf("VerifyLogin error = %v, want ErrSignatureInvalid", err)
		}
	})

	t.Run("bad claimed key", func(t *testing.T) {
		err := VerifyLogin("garbage", challenge, signed(challenge))
		if !errors.Is(err, nostr.ErrInvalidKeyFormat) {
			t.Errorf("VerifyLogin error = %v, want ErrInvalidKeyFormat", err)
		}
	})

	t.Run("missing fields rejected", func(t *testing.T) {
		ev := signed(challenge)
		ev.Sig = ""
		err := VerifyLogin(ext.pubkey, challenge, ev)
		if !errors.Is(err, nostr.ErrInvalidEvent) {
			t.Errorf("VerifyLogin error = %v, want ErrInvalidEvent", err)
		}
	})
}
