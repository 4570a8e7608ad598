// Package bech32 provides helpers for encoding arbitrary byte slices to
// bech32 strings and back, used throughout the nostr identifier formats
// (npub, nsec, naddr, note, nevent).
package bech32

import "github.com/btcsuite/btcutil/bech32"

// ConvertAndEncode converts a byte slice into a base32-encoded string and
// bech32 encodes it with the given human-readable part.
func ConvertAndEncode(hrp string, data []byte) (string, error) {
	converted, err := bech32.ConvertBits(data, 8, 5, true)
	if err != nil {
		return "", err
	}
	return bech32.Encode(hrp, converted)
}

// DecodeAndConvert decodes a bech32-encoded string and converts the data
// part back to 8-bit bytes, returning the human-readable part alongside it.
func DecodeAndConvert(bech string) (string, []byte, error) {
	hrp, data, err := bech32.Decode(bech, 1023)
	if err != nil {
		return "", nil, err
	}
	converted, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return "", nil, err
	}
	return hrp, converted, nil
}
