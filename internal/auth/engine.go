package auth

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/Hitchwiki/mediawiki-nostr/internal/nostr"
)

// State of the authentication engine.
type State int

const (
	StateAnonymous State = iota
	StateExtensionPending
	StateExtensionAuthenticated
	StateManualKeyAuthenticated
)

func (s State) String() string {
	switch s {
	case StateExtensionPending:
		return "extension-pending"
	case StateExtensionAuthenticated:
		return "extension"
	case StateManualKeyAuthenticated:
		return "manual-key"
	default:
		return "anonymous"
	}
}

// Snapshot is the plain observable state any UI can render.
type Snapshot struct {
	State  State
	PubKey string // lowercase hex, empty when anonymous
	Npub   string // bech32 form of PubKey, empty when anonymous
	Err    error  // last failure, cleared by the next successful transition
}

// Engine is the identity state machine. Exactly one of the extension
// signer, a local private key, or nothing is active at any time; switching
// methods clears the previous method's secrets before activating the new
// one. All methods are safe for concurrent use.
type Engine struct {
	extension Signer // injected capability, nil when the host has none
	store     Store

	mu      sync.Mutex
	state   State
	pubkey  string
	signer  Signer
	lastErr error
}

// NewEngine wires the injected external signer (may be nil) and the
// identity store, and restores any persisted identity. A persisted
// extension identity without a live capability falls back to anonymous.
func NewEngine(extension Signer, store Store) *Engine {
	e := &Engine{extension: extension, store: store}

	id, err := store.Load()
	if err != nil {
		log.Printf("auth: ignoring unreadable identity: %v", err)
		return e
	}

	switch id.Method {
	case MethodManualKey:
		signer, err := NewLocalSigner(id.PrivateKey)
		if err != nil {
			log.Printf("auth: ignoring persisted manual key: %v", err)
			return e
		}
		e.state = StateManualKeyAuthenticated
		e.signer = signer
		e.pubkey, _ = nostr.GetPublicKey(id.PrivateKey)
	case MethodExtension:
		if extension == nil {
			log.Printf("auth: persisted extension identity but no capability injected")
			return e
		}
		pk, err := nostr.NormalizePubkey(id.PubKey)
		if err != nil {
			log.Printf("auth: ignoring persisted extension identity: %v", err)
			return e
		}
		e.state = StateExtensionAuthenticated
		e.signer = extension
		e.pubkey = pk
	}
	return e
}

// Snapshot returns the current observable state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	snap := Snapshot{State: e.state, PubKey: e.pubkey, Err: e.lastErr}
	if e.pubkey != "" {
		snap.Npub, _ = nostr.EncodeNpub(e.pubkey)
	}
	return snap
}

// Signer returns the active signing capability.
func (e *Engine) Signer() (Signer, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.signer == nil {
		return nil, ErrNotAuthenticated
	}
	return e.signer, nil
}

// fail records the error and reverts to anonymous without touching the
// store: a failed login must not leave a half-authenticated state, and the
// previous identity was already cleared before the attempt.
func (e *Engine) fail(err error) error {
	e.state = StateAnonymous
	e.pubkey = ""
	e.signer = nil
	e.lastErr = err
	return err
}

// clearSecrets removes the previous method's material from the store. This
// runs before any new method activates, so two signers are never live at
// once.
func (e *Engine) clearSecrets() error {
	e.pubkey = ""
	e.signer = nil
	return e.store.Clear()
}

// LoginWithExtension asks the injected capability for its public key and
// binds it as the active signer. The private key never passes through here.
func (e *Engine) LoginWithExtension(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.extension == nil {
		return e.fail(ErrNoExtensionFound)
	}
	e.state = StateExtensionPending
	if err := e.clearSecrets(); err != nil {
		return e.fail(err)
	}

	ctx, cancel := context.WithTimeout(ctx, SignTimeout)
	defer cancel()
	raw, err := e.extension.PublicKey(ctx)
	if err != nil {
		return e.fail(fmt.Errorf("%w: %v", ErrExtensionRejected, err))
	}
	if raw == "" {
		return e.fail(ErrNoPublicKeyReturned)
	}
	pk, err := nostr.NormalizePubkey(raw)
	if err != nil {
		return e.fail(fmt.Errorf("%w: %v", ErrNoPublicKeyReturned, err))
	}

	if err := e.store.Save(Identity{Method: MethodExtension, PubKey: pk}); err != nil {
		return e.fail(err)
	}
	e.state = StateExtensionAuthenticated
	e.pubkey = pk
	e.signer = e.extension
	e.lastErr = nil
	return nil
}

// LoginWithKey accepts an nsec private key, derives the public key locally
// and activates a local signer. Hex input is rejected outright.
func (e *Engine) LoginWithKey(secret string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	secret = strings.TrimSpace(secret)
	if !strings.HasPrefix(secret, nostr.PrefixPrivateKey+"1") {
		return e.fail(ErrUnsupportedKeyFormat)
	}
	sk, err := nostr.DecodeNsec(secret)
	if err != nil {
		return e.fail(err)
	}
	return e.activateManualKey(sk)
}

// GenerateKey creates a fresh random private key and activates it.
func (e *Engine) GenerateKey() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	sk, err := nostr.GeneratePrivateKey()
	if err != nil {
		return e.fail(err)
	}
	return e.activateManualKey(sk)
}

func (e *Engine) activateManualKey(sk string) error {
	if err := e.clearSecrets(); err != nil {
		return e.fail(err)
	}
	signer, err := NewLocalSigner(sk)
	if err != nil {
		return e.fail(err)
	}
	pk, _ := signer.PublicKey(context.Background())

	if err := e.store.Save(Identity{Method: MethodManualKey, PubKey: pk, PrivateKey: sk}); err != nil {
		return e.fail(err)
	}
	e.state = StateManualKeyAuthenticated
	e.pubkey = pk
	e.signer = signer
	e.lastErr = nil
	return nil
}

// Logout clears all secret material and returns to anonymous.
func (e *Engine) Logout() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.clearSecrets(); err != nil {
		return err
	}
	e.state = StateAnonymous
	e.lastErr = nil
	return nil
}
