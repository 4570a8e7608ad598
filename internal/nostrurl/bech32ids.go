package nostrurl

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/make-os/nostrgit/pkgs/bech32"
)

// TLV type bytes used by the naddr/nevent bech32-encoded identifiers.
const (
	tlvSpecial byte = 0
	tlvRelay   byte = 1
	tlvAuthor  byte = 2
	tlvKind    byte = 3
)

// Pointer is the decoded form of any of the npub/nsec/note/naddr/nevent
// identifier forms this system accepts.
type Pointer struct {
	HRP        string
	PubKeyHex  string // npub, naddr's author, nevent's author
	PrivKeyHex string // nsec
	EventID    string // note, nevent
	Identifier string // naddr's "d" tag value
	Kind       int
	Relays     []string
}

// DecodeBech32ID decodes any of npub1/nsec1/note1/naddr1/nevent1.
func DecodeBech32ID(s string) (Pointer, error) {
	hrp, data, err := bech32.DecodeAndConvert(s)
	if err != nil {
		return Pointer{}, fmt.Errorf("invalid bech32 identifier: %w", err)
	}
	switch hrp {
	case "npub":
		return Pointer{HRP: hrp, PubKeyHex: hex.EncodeToString(data)}, nil
	case "nsec":
		return Pointer{HRP: hrp, PrivKeyHex: hex.EncodeToString(data)}, nil
	case "note":
		return Pointer{HRP: hrp, EventID: hex.EncodeToString(data)}, nil
	case "naddr":
		p, err := decodeTLV(data)
		if err != nil {
			return Pointer{}, err
		}
		p.HRP = hrp
		return p, nil
	case "nevent":
		p, err := decodeTLV(data)
		if err != nil {
			return Pointer{}, err
		}
		p.HRP = hrp
		p.EventID = p.Identifier
		p.Identifier = ""
		return p, nil
	default:
		return Pointer{}, fmt.Errorf("unrecognized bech32 prefix %q", hrp)
	}
}

func decodeTLV(data []byte) (Pointer, error) {
	var p Pointer
	for i := 0; i+2 <= len(data); {
		t, l := data[i], int(data[i+1])
		i += 2
		if i+l > len(data) {
			return Pointer{}, fmt.Errorf("truncated TLV entry")
		}
		v := data[i : i+l]
		i += l
		switch t {
		case tlvSpecial:
			p.Identifier = string(v)
		case tlvRelay:
			p.Relays = append(p.Relays, string(v))
		case tlvAuthor:
			p.PubKeyHex = hex.EncodeToString(v)
		case tlvKind:
			if len(v) == 4 {
				p.Kind = int(binary.BigEndian.Uint32(v))
			}
		}
	}
	return p, nil
}

// EncodeNaddr builds a naddr1 identifier for the given coordinate.
func EncodeNaddr(identifier, authorPubKeyHex string, kind int, relays []string) (string, error) {
	author, err := hex.DecodeString(authorPubKeyHex)
	if err != nil {
		return "", fmt.Errorf("invalid author pubkey: %w", err)
	}
	var data []byte
	data = append(data, tlvEntry(tlvSpecial, []byte(identifier))...)
	for _, r := range relays {
		data = append(data, tlvEntry(tlvRelay, []byte(r))...)
	}
	data = append(data, tlvEntry(tlvAuthor, author)...)
	kindBytes := make([]byte, 4)
	binary.BigEndian.PutUint32(kindBytes, uint32(kind))
	data = append(data, tlvEntry(tlvKind, kindBytes)...)
	return bech32.ConvertAndEncode("naddr", data)
}

func tlvEntry(t byte, v []byte) []byte {
	out := make([]byte, 2+len(v))
	out[0] = t
	out[1] = byte(len(v))
	copy(out[2:], v)
	return out
}

// EncodeNpub builds an npub1 identifier for a hex-encoded public key.
func EncodeNpub(pubKeyHex string) (string, error) {
	b, err := hex.DecodeString(pubKeyHex)
	if err != nil {
		return "", fmt.Errorf("invalid pubkey: %w", err)
	}
	return bech32.ConvertAndEncode("npub", b)
}
