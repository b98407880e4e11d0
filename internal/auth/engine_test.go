package auth

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/Hitchwiki/mediawiki-nostr/internal/nostr"
)

// fakeExtension is an injected signing capability for tests.
type fakeExtension struct {
	pubkey string
	sk     string // signs with this key, never exposed through the interface
	err    error
}

func (f *fakeExtension) PublicKey(ctx context.Context) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.pubkey, nil
}

func (f *fakeExtension) SignEvent(ctx context.Context, ev *nostr.Event) error {
	if f.err != nil {
		return f.err
	}
	return ev.Sign(f.sk)
}

func newFakeExtension(t *testing.T) *fakeExtension {
	t.Helper()
	sk, err := nostr.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("GeneratePrivateKey error: %v", err)
	}
	pk, err := nostr.GetPublicKey(sk)
	if err != nil {
		t.Fatalf("GetPublicKey error: %v", err)
	}
	return &fakeExtension{pubkey: pk, sk: sk}
}

func tempStore(t *testing.T) *FileStore {
	t.Helper()
	return NewFileStore(filepath.Join(t.TempDir(), "identity.json"))
}

func TestLoginWithExtension(t *testing.T) {
	ext := newFakeExtension(t)
	e := NewEngine(ext, tempStore(t))

	if got := e.Snapshot().State; got != StateAnonymous {
		t.Fatalf("initial state = %v, want anonymous", got)
	}

	if err := e.LoginWithExtension(context.Background()); err != nil {
		t.Fatalf("LoginWithExtension error: %v", err)
	}

	snap := e.Snapshot()
	if snap.State != StateExtensionAuthenticated {
		t.Errorf("state = %v, want extension-authenticated", snap.State)
	}
	if snap.PubKey != ext.pubkey {
		t.Errorf("pubkey = %q, want %q", snap.PubKey, ext.pubkey)
	}
	if snap.Npub == "" {
		t.Error("npub not populated")
	}

	signer, err := e.Signer()
	if err != nil {
		t.Fatalf("Signer error: %v", err)
	}
	ev := &nostr.Event{CreatedAt: 1700000000, Kind: nostr.KindTextNote, Content: "x"}
	if err := signer.SignEvent(context.Background(), ev); err != nil {
		t.Fatalf("SignEvent error: %v", err)
	}
	if err := ev.Verify(); err != nil {
		t.Errorf("extension-signed event does not verify: %v", err)
	}
}

func TestLoginWithExtensionFailures(t *testing.T) {
	tests := []struct {
		name string
		ext  Signer
		want error
	}{
		{"no capability injected", nil, ErrNoExtensionFound},
		{"capability rejects", &fakeExtension{err: errors.New("user denied")}, ErrExtensionRejected},
		{"empty pubkey", &fakeExtension{pubkey: ""}, ErrNoPublicKeyReturned},
		{"garbage pubkey", &fakeExtension{pubkey: "nonsense"}, ErrNoPublicKeyReturned},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine(tt.ext, tempStore(t))
			err := e.LoginWithExtension(context.Background())
			if !errors.Is(err, tt.want) {
				t.Errorf("LoginWithExtension error = %v, want %v", err, tt.want)
			}
			snap := e.Snapshot()
			if snap.State != StateAnonymous {
				t.Errorf("state after failure = %v, want anonymous", snap.State)
			}
			if snap.Err == nil {
				t.Error("snapshot error not recorded")
			}
			if _, err := e.Signer(); !errors.Is(err, ErrNotAuthenticated) {
				t.Errorf("Signer after failed login error = %v, want ErrNotAuthenticated", err)
			}
		})
	}
}

func TestLoginWithKey(t *testing.T) {
	sk, _ := nostr.GeneratePrivateKey()
	nsec, _ := nostr.EncodeNsec(sk)
	pk, _ := nostr.GetPublicKey(sk)

	store := tempStore(t)
	e := NewEngine(nil, store)
	if err := e.LoginWithKey(nsec); err != nil {
		t.Fatalf("LoginWithKey error: %v", err)
	}

	snap := e.Snapshot()
	if snap.State != StateManualKeyAuthenticated {
		t.Errorf("state = %v, want manual-key", snap.State)
	}
	if snap.PubKey != pk {
		t.Errorf("pubkey = %q, want %q", snap.PubKey, pk)
	}

	// The key survives a restart.
	id, err := store.Load()
	if err != nil {
		t.Fatalf("store.Load error: %v", err)
	}
	if id.Method != MethodManualKey || id.PrivateKey != sk {
		t.Errorf("persisted identity = %+v, want manual method with key", id)
	}

	e2 := NewEngine(nil, store)
	if got := e2.Snapshot().State; got != StateManualKeyAuthenticated {
		t.Errorf("restored state = %v, want manual-key", got)
	}
}

func TestLoginWithKeyRejectsNonNsec(t *testing.T) {
	sk, _ := nostr.GeneratePrivateKey()
	npub, _ := nostr.EncodeNpub(sk)

	tests := []struct {
		name   string
		secret string
		want   error
	}{
		{"hex rejected by design", sk, ErrUnsupportedKeyFormat},
		{"npub is not a private key", npub, ErrUnsupportedKeyFormat},
		{"empty", "", ErrUnsupportedKeyFormat},
		{"nsec with broken checksum", "nsec1qqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqq", nostr.ErrInvalidKeyFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine(nil, tempStore(t))
			if err := e.LoginWithKey(tt.secret); !errors.Is(err, tt.want) {
				t.Errorf("LoginWithKey(%q) error = %v, want %v", tt.secret, err, tt.want)
			}
			if got := e.Snapshot().State; got != StateAnonymous {
				t.Errorf("state = %v, want anonymous", got)
			}
		})
	}
}

func TestGenerateKey(t *testing.T) {
	store := tempStore(t)
	e := NewEngine(nil, store)
	if err := e.GenerateKey(); err != nil {
		t.Fatalf("GenerateKey error: %v", err)
	}

	snap := e.Snapshot()
	if snap.State != StateManualKeyAuthenticated {
		t.Errorf("state = %v, want manual-key", snap.State)
	}
	if !nostr.IsValidPublicKeyHex(snap.PubKey) {
		t.Errorf("pubkey = %q, want canonical hex", snap.PubKey)
	}
}

func TestSwitchingMethodsClearsSecrets(t *testing.T) {
	ext := newFakeExtension(t)
	store := tempStore(t)
	e := NewEngine(ext, store)

	if err := e.GenerateKey(); err != nil {
		t.Fatalf("GenerateKey error: %v", err)
	}
	if err := e.LoginWithExtension(context.Background()); err != nil {
		t.Fatalf("LoginWithExtension error: %v", err)
	}

	id, err := store.Load()
	if err != nil {
		t.Fatalf("store.Load error: %v", err)
	}
	if id.PrivateKey != "" {
		t.Error("private key still persisted after switching to extension")
	}
	if id.Method != MethodExtension {
		t.Errorf("persisted method = %q, want extension", id.Method)
	}
}

func TestLogout(t *testing.T) {
	store := tempStore(t)
	e := NewEngine(nil, store)
	if err := e.GenerateKey(); err != nil {
		t.Fatalf("GenerateKey error: %v", err)
	}

	if err := e.Logout(); err != nil {
		t.Fatalf("Logout error: %v", err)
	}
	snap := e.Snapshot()
	if snap.State != StateAnonymous || snap.PubKey != "" {
		t.Errorf("snapshot after logout = %+v, want anonymous", snap)
	}

	id, err := store.Load()
	if err != nil {
		t.Fatalf("store.Load error: %v", err)
	}
	if id != (Identity{}) {
		t.Errorf("persisted identity after logout = %+v, want empty", id)
	}
}

func TestRestoreExtensionIdentityWithoutCapability(t *testing.T) {
	store := tempStore(t)
	ext := newFakeExtension(t)
	e := NewEngine(ext, store)
	if err := e.LoginWithExtension(context.Background()); err != nil {
		t.Fatalf("LoginWithExtension error: %v", err)
	}

	// Restart without the capability: falls back to anonymous rather than
	// pretending to be able to sign.
	e2 := NewEngine(nil, store)
	if got := e2.Snapshot().State; got != StateAnonymous {
		t.Errorf("restored state without capability = %v, want anonymous", got)
	}
}
