// Package nip05 handles NIP-05 identity documents: resolving and verifying
// them against an allow-list of domains, and producing the document served
// from /.well-known/nostr.json.
package nip05

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/Hitchwiki/mediawiki-nostr/internal/nostr"
)

// ErrVerificationFailed is returned when no configured domain vouches for
// the claimed public key.
var ErrVerificationFailed = errors.New("NIP-5 verification failed")

// Document is the well-known nostr.json schema: local-part name to hex
// public key.
type Document struct {
	Names map[string]string `json:"names"`
}

// FetchTimeout bounds one identity document request.
const FetchTimeout = 5 * time.Second

// Resolver fetches identity documents over HTTPS.
type Resolver struct {
	client *http.Client
}

// NewResolver returns a resolver. httpClient may be nil for a default that
// refuses redirects, the same way document consumers are expected to.
func NewResolver(httpClient *http.Client) *Resolver {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: FetchTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	}
	return &Resolver{client: httpClient}
}

// documentURL returns the well-known URL for a domain. The domain may carry
// an explicit scheme for non-TLS test servers; bare domains get https.
func documentURL(domain string) string {
	if strings.Contains(domain, "://") {
		return strings.TrimSuffix(domain, "/") + "/.well-known/nostr.json"
	}
	return "https://" + strings.TrimSuffix(domain, "/") + "/.well-known/nostr.json"
}

// Fetch retrieves and decodes one domain's identity document.
func (r *Resolver) Fetch(ctx context.Context, domain string) (*Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, documentURL(domain), nil)
	if err != nil {
		return nil, fmt.Errorf("nip05: build request for %s: %w", domain, err)
	}

	res, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("nip05: fetch %s: %w", domain, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("nip05: fetch %s: status %d", domain, res.StatusCode)
	}

	var doc Document
	if err := json.NewDecoder(res.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("nip05: decode %s: %w", domain, err)
	}
	return &doc, nil
}

// Contains reports whether any entry in the document resolves to the
// claimed key. Values are normalized to hex first, so documents listing
// npub forms still match; comparison is case-insensitive.
func (d *Document) Contains(pubkeyHex string) bool {
	want := strings.ToLower(pubkeyHex)
	for _, v := range d.Names {
		hex, err := nostr.NormalizePubkey(v)
		if err != nil {
			continue
		}
		if hex == want {
			return true
		}
	}
	return false
}

// Verify succeeds if any of the allowed domains' documents contains an
// entry for the claimed public key. Fetch errors and malformed documents
// count as that domain not vouching; only when every domain fails does the
// whole check fail.
func (r *Resolver) Verify(ctx context.Context, pubkey string, domains []string) error {
	hex, err := nostr.NormalizePubkey(pubkey)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrVerificationFailed, err)
	}

	for _, domain := range domains {
		doc, err := r.Fetch(ctx, domain)
		if err != nil {
			log.Printf("nip05: %v", err)
			continue
		}
		if doc.Contains(hex) {
			return nil
		}
	}
	return fmt.Errorf("%w: no allowed domain lists pubkey %s", ErrVerificationFailed, hex)
}
