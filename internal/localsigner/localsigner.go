// Package localsigner is the production capability.Signer: an in-process
// secp256k1 key read from git config, signing with BIP-340 Schnorr
// (spec.md §4.8's key management). Remote signers (e.g. a NIP-46 bunker)
// are a distinct Signer implementation this package does not provide.
package localsigner

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"

	"github.com/make-os/nostrgit/internal/capability"
	"github.com/make-os/nostrgit/internal/nostrurl"
)

// ConfigKey is the git-config key holding the signing key, either as a
// bech32 nsec1... string or as raw 64-char hex.
const ConfigKey = "nostr.nsec"

// Signer holds a parsed secp256k1 private key in memory for the
// lifetime of one remote-helper invocation.
type Signer struct {
	priv *btcec.PrivateKey
	pub  string
}

var _ capability.Signer = (*Signer)(nil)

// FromSecret parses secret, accepting either a bech32 nsec1... string or
// raw 64-char hex, and returns a ready Signer.
func FromSecret(secret string) (*Signer, error) {
	secret = strings.TrimSpace(secret)

	var keyHex string
	if strings.HasPrefix(secret, "nsec1") {
		ptr, err := nostrurl.DecodeBech32ID(secret)
		if err != nil {
			return nil, fmt.Errorf("decode nsec: %w", err)
		}
		keyHex = ptr.PrivKeyHex
	} else {
		keyHex = secret
	}

	raw, err := hex.DecodeString(keyHex)
	if err != nil || len(raw) != 32 {
		return nil, fmt.Errorf("expected 32-byte hex private key, got %d bytes", len(raw))
	}

	priv, pubKey := btcec.PrivKeyFromBytes(raw)
	return &Signer{
		priv: priv,
		pub:  hex.EncodeToString(schnorr.SerializePubKey(pubKey)),
	}, nil
}

// PublicKey returns the signer's hex-encoded x-only public key.
func (s *Signer) PublicKey(ctx context.Context) (string, error) {
	return s.pub, nil
}

// Sign returns a 64-byte BIP-340 Schnorr signature over digest.
func (s *Signer) Sign(ctx context.Context, digest []byte) ([]byte, error) {
	sig, err := schnorr.Sign(s.priv, digest)
	if err != nil {
		return nil, err
	}
	return sig.Serialize(), nil
}

// FromGitConfig reads ConfigKey via get and parses it with FromSecret.
// get is expected to be capability.Git.ConfigGet bound to a scope, e.g.
//
//	localsigner.FromGitConfig(func(k string) (string, bool, error) {
//	    return git.ConfigGet("global", k)
//	})
func FromGitConfig(get func(key string) (string, bool, error)) (*Signer, error) {
	val, ok, err := get(ConfigKey)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", ConfigKey, err)
	}
	if !ok || val == "" {
		return nil, fmt.Errorf("%s is not configured; run `nostrgit login` first", ConfigKey)
	}
	return FromSecret(val)
}
