package nip05

import (
	"regexp"

	"github.com/Hitchwiki/mediawiki-nostr/internal/nostr"
)

// MaxNameLength bounds the accepted local-part length in lookups.
const MaxNameLength = 50

var nameRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidName reports whether a requested local-part is acceptable.
func ValidName(name string) bool {
	return name != "" && len(name) <= MaxNameLength && nameRe.MatchString(name)
}

// Lookup is the name→key source behind the well-known endpoint, answering
// "what is this name's public key" in whatever form the host stores it
// (hex or npub). Unknown names return ok=false.
type Lookup interface {
	PubkeyForName(name string) (pubkey string, ok bool)
}

// BuildDocument answers a ?name= query. The returned document contains the
// entry only when the name exists and carries a usable key; every other
// case yields an empty names object, so a caller cannot distinguish
// "no such account" from "account without a key".
func BuildDocument(lookup Lookup, name string) *Document {
	doc := &Document{Names: map[string]string{}}

	raw, ok := lookup.PubkeyForName(name)
	if !ok {
		return doc
	}
	hex, err := nostr.NormalizePubkey(raw)
	if err != nil {
		return doc
	}
	doc.Names[name] = hex
	return doc
}
