package nostr

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil/bech32"
)

// Bech32 human-readable prefixes for Nostr keys.
const (
	PrefixPublicKey  = "npub"
	PrefixPrivateKey = "nsec"
)

// GeneratePrivateKey returns a new random private key as 64-character
// lowercase hex.
func GeneratePrivateKey() (string, error) {
	sk, err := btcec.NewPrivateKey()
	if err != nil {
		return "", fmt.Errorf("generate private key: %w", err)
	}
	return hex.EncodeToString(sk.Serialize()), nil
}

// GetPublicKey derives the x-only public key (64-character lowercase hex)
// from a hex private key.
func GetPublicKey(skHex string) (string, error) {
	b, err := hex.DecodeString(skHex)
	if err != nil || len(b) != 32 {
		return "", ErrInvalidKeyFormat
	}
	_, pk := btcec.PrivKeyFromBytes(b)
	return hex.EncodeToString(schnorr.SerializePubKey(pk)), nil
}

// EncodeNpub converts a hex public key to its npub bech32 form.
func EncodeNpub(pkHex string) (string, error) {
	return encodeBech32(PrefixPublicKey, pkHex)
}

// DecodeNpub converts an npub bech32 string to 64-character lowercase hex.
func DecodeNpub(npub string) (string, error) {
	return decodeBech32(PrefixPublicKey, npub)
}

// EncodeNsec converts a hex private key to its nsec bech32 form.
func EncodeNsec(skHex string) (string, error) {
	return encodeBech32(PrefixPrivateKey, skHex)
}

// DecodeNsec converts an nsec bech32 string to 64-character lowercase hex.
func DecodeNsec(nsec string) (string, error) {
	return decodeBech32(PrefixPrivateKey, nsec)
}

func encodeBech32(hrp, keyHex string) (string, error) {
	b, err := hex.DecodeString(keyHex)
	if err != nil || len(b) != 32 {
		return "", ErrInvalidKeyFormat
	}
	grouped, err := bech32.ConvertBits(b, 8, 5, true)
	if err != nil {
		return "", ErrInvalidKeyFormat
	}
	s, err := bech32.Encode(hrp, grouped)
	if err != nil {
		return "", ErrInvalidKeyFormat
	}
	return s, nil
}

func decodeBech32(wantHrp, s string) (string, error) {
	// bech32.Decode validates the checksum.
	hrp, grouped, err := bech32.Decode(strings.ToLower(s))
	if err != nil {
		return "", ErrInvalidKeyFormat
	}
	if hrp != wantHrp {
		return "", ErrInvalidKeyFormat
	}
	b, err := bech32.ConvertBits(grouped, 5, 8, false)
	if err != nil || len(b) != 32 {
		return "", ErrInvalidKeyFormat
	}
	return hex.EncodeToString(b), nil
}

// NormalizePubkey converts any accepted public key input (64-character hex in
// either case, or npub bech32) to canonical lowercase 64-character hex.
func NormalizePubkey(s string) (string, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(strings.ToLower(s), PrefixPublicKey+"1") {
		return DecodeNpub(s)
	}
	if len(s) != 64 {
		return "", ErrInvalidKeyFormat
	}
	lower := strings.ToLower(s)
	if _, err := hex.DecodeString(lower); err != nil {
		return "", ErrInvalidKeyFormat
	}
	return lower, nil
}

// IsValidPublicKeyHex reports whether pk is already canonical: lowercase,
// 64 characters, valid hex.
func IsValidPublicKeyHex(pk string) bool {
	if strings.ToLower(pk) != pk {
		return false
	}
	dec, err := hex.DecodeString(pk)
	return err == nil && len(dec) == 32
}
