package eventmodel

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"
)

// preimage builds the exact byte sequence an event's id is the sha256 of:
// [0, pubkey, created_at, kind, tags, content], serialized with no
// insignificant whitespace. Field order and the leading 0 are fixed by
// convention and must never change once events are being signed against it.
func preimage(e *Event) ([]byte, error) {
	tags := e.Tags
	if tags == nil {
		tags = Tags{}
	}
	arr := []interface{}{0, e.PubKey, e.CreatedAt, int(e.Kind), tags, e.Content}
	return json.Marshal(arr)
}

// ComputeID returns the hex-encoded sha256 of the event's preimage.
func ComputeID(e *Event) (string, error) {
	p, err := preimage(e)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(p)
	return hex.EncodeToString(sum[:]), nil
}

// Finalize computes and sets e.ID, then signs it with sign and sets e.Sig.
// sign receives the 32-byte id digest and returns a 64-byte BIP-340
// Schnorr signature.
func Finalize(e *Event, sign func(digest []byte) ([]byte, error)) error {
	id, err := ComputeID(e)
	if err != nil {
		return err
	}
	digest, err := hex.DecodeString(id)
	if err != nil {
		return err
	}
	sig, err := sign(digest)
	if err != nil {
		return err
	}
	e.ID = id
	e.Sig = hex.EncodeToString(sig)
	return nil
}

// VerifySignature checks that e.Sig is a valid BIP-340 Schnorr signature by
// e.PubKey over the sha256 digest e.ID claims to be, and that e.ID actually
// matches the recomputed preimage hash. Both checks must pass for an event
// to be trusted.
func VerifySignature(e *Event) error {
	wantID, err := ComputeID(e)
	if err != nil {
		return err
	}
	if wantID != e.ID {
		return fe(-1, "id", "does not match computed hash")
	}

	pubBytes, err := hex.DecodeString(e.PubKey)
	if err != nil || len(pubBytes) != 32 {
		return fe(-1, "pubkey", "expected 32-byte hex x-only public key")
	}
	pub, err := schnorr.ParsePubKey(pubBytes)
	if err != nil {
		return fe(-1, "pubkey", fmt.Sprintf("invalid x-only public key: %s", err))
	}

	sigBytes, err := hex.DecodeString(e.Sig)
	if err != nil || len(sigBytes) != 64 {
		return fe(-1, "sig", "expected 64-byte hex signature")
	}
	sig, err := schnorr.ParseSignature(sigBytes)
	if err != nil {
		return fe(-1, "sig", fmt.Sprintf("malformed signature: %s", err))
	}

	digest, err := hex.DecodeString(e.ID)
	if err != nil {
		return fe(-1, "id", "not valid hex")
	}
	if !sig.Verify(digest, pub) {
		return fe(-1, "sig", "signature verification failed")
	}
	return nil
}
