// Package nostrurl parses the nostr:// URL scheme this system accepts as
// a git remote (spec.md §4.2) and normalizes arbitrary clone URLs for
// announcement defaults.
package nostrurl

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/make-os/nostrgit/internal/eventmodel"
)

// RepoCoordinate identifies a repository announcement by its owning
// author and replaceable identifier.
type RepoCoordinate struct {
	Author     string // hex pubkey
	Identifier string
}

// NostrUrlDecoded is the parsed form of a nostr:// remote URL.
type NostrUrlDecoded struct {
	Coordinates map[RepoCoordinate]bool
	Protocol    string
	User        string
	Relays      []string
}

var supportedProtocols = map[string]bool{
	"ssh": true, "https": true, "http": true, "git": true,
}

// ParseURL parses a nostr:// remote URL per spec.md §4.2.
func ParseURL(raw string) (*NostrUrlDecoded, error) {
	if !strings.HasPrefix(raw, "nostr://") {
		return nil, fmt.Errorf("not a nostr:// url: %q", raw)
	}
	rest := strings.TrimPrefix(raw, "nostr://")

	var query string
	if i := strings.Index(rest, "?"); i >= 0 {
		query = rest[i+1:]
		rest = rest[:i]
	}

	segments := strings.Split(strings.Trim(rest, "/"), "/")
	if len(segments) == 0 || segments[0] == "" {
		return nil, fmt.Errorf("missing identifier in nostr url")
	}

	out := &NostrUrlDecoded{Coordinates: map[RepoCoordinate]bool{}}

	idx := 0

	// optional "[user@]"
	if at := strings.Index(segments[0], "@"); at >= 0 {
		out.User = segments[0][:at]
		segments[0] = segments[0][at+1:]
	}

	// optional "[protocol/]" — a lone first segment matching a known
	// protocol name, with at least a target and identifier following.
	if supportedProtocols[segments[0]] && len(segments) > 2 {
		out.Protocol = segments[0]
		idx = 1
	}

	target := segments[idx]
	idx++

	// any segments before the final one are relay hints. An naddr target
	// carries its own identifier, so it may stand alone.
	var relaySegs []string
	var identifier string
	if idx < len(segments) {
		for idx < len(segments)-1 {
			relaySegs = append(relaySegs, segments[idx])
			idx++
		}
		identifier = segments[idx]
	}

	for _, r := range relaySegs {
		out.Relays = append(out.Relays, normalizeRelay(r))
	}

	ptr, err := DecodeBech32ID(target)
	if err != nil {
		return nil, fmt.Errorf("invalid target %q: %w", target, err)
	}

	switch {
	case ptr.HRP == "naddr":
		if ptr.Kind != 0 && eventmodel.Kind(ptr.Kind) != eventmodel.KindRepoAnnouncement {
			return nil, fmt.Errorf("naddr does not point at a repo announcement")
		}
		out.Coordinates[RepoCoordinate{Author: ptr.PubKeyHex, Identifier: ptr.Identifier}] = true
		out.Relays = append(out.Relays, ptr.Relays...)
	case ptr.HRP == "npub":
		if identifier == "" {
			return nil, fmt.Errorf("missing identifier in nostr url")
		}
		out.Coordinates[RepoCoordinate{Author: ptr.PubKeyHex, Identifier: identifier}] = true
	default:
		return nil, fmt.Errorf("target must be an npub or naddr, got %s", ptr.HRP)
	}

	if query != "" {
		values, err := url.ParseQuery(query)
		if err != nil {
			return nil, fmt.Errorf("invalid query: %w", err)
		}
		if v := values.Get("protocol"); v != "" {
			out.Protocol = v
		}
		if v := values.Get("user"); v != "" {
			out.User = v
		}
		for _, r := range values["relay"] {
			out.Relays = append(out.Relays, normalizeRelay(r))
		}
	}

	if out.Protocol != "" && !supportedProtocols[out.Protocol] {
		return nil, fmt.Errorf("unrecognized protocol %q", out.Protocol)
	}

	return out, nil
}

func normalizeRelay(r string) string {
	if strings.Contains(r, "://") {
		return r
	}
	return "wss://" + r
}

// NormalizeCloneURL converts arbitrary clone URL forms (https, http, ssh,
// git, or scp-like user@host:path) into a normalized HTTPS form suitable
// as an announcement default.
func NormalizeCloneURL(raw string) (string, error) {
	if strings.HasPrefix(raw, "https://") {
		return raw, nil
	}
	if strings.HasPrefix(raw, "http://") {
		return "https://" + strings.TrimPrefix(raw, "http://"), nil
	}
	if strings.HasPrefix(raw, "ssh://") || strings.HasPrefix(raw, "git://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", fmt.Errorf("invalid clone url: %w", err)
		}
		return "https://" + u.Host + u.Path, nil
	}
	// scp-like form: user@host:path
	if at := strings.Index(raw, "@"); at >= 0 {
		if colon := strings.Index(raw[at:], ":"); colon >= 0 {
			host := raw[at+1 : at+colon]
			path := raw[at+colon+1:]
			return fmt.Sprintf("https://%s/%s", host, strings.TrimPrefix(path, "/")), nil
		}
	}
	return "", fmt.Errorf("unrecognized clone url form: %q", raw)
}

// StripCredentials removes any embedded userinfo from a clone URL.
func StripCredentials(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	u.User = nil
	return u.String()
}
