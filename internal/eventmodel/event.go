// Package eventmodel provides typed views over the signed events that
// carry this system's authoritative state: repository announcements,
// ref-state snapshots, patches, pull requests and their updates, and
// status markers. It centralizes tag conventions and the validation
// rules that decide whether a parsed event may be trusted.
package eventmodel

import (
	"fmt"
)

// Kind identifies the semantic type of an event, mirroring the kind
// numbers a relay network assigns to each event class.
type Kind int

const (
	KindRepoAnnouncement  Kind = 30617
	KindRepoState         Kind = 30618
	KindPatch             Kind = 1617
	KindPullRequest       Kind = 1618
	KindPullRequestUpdate Kind = 1619
	KindStatusOpen        Kind = 1630
	KindStatusApplied     Kind = 1631
	KindStatusClosed      Kind = 1632
	KindStatusDraft       Kind = 1633
	KindUserMetadata      Kind = 0
	KindUserRelayList     Kind = 10002
)

// IsReplaceable reports whether only the newest event for a given
// (author, kind, d-tag) is meant to be retained.
func (k Kind) IsReplaceable() bool {
	switch k {
	case KindRepoAnnouncement, KindRepoState, KindUserMetadata, KindUserRelayList:
		return true
	default:
		return false
	}
}

func (k Kind) String() string {
	switch k {
	case KindRepoAnnouncement:
		return "repo-announcement"
	case KindRepoState:
		return "repo-state"
	case KindPatch:
		return "patch"
	case KindPullRequest:
		return "pull-request"
	case KindPullRequestUpdate:
		return "pull-request-update"
	case KindStatusOpen:
		return "status-open"
	case KindStatusApplied:
		return "status-applied"
	case KindStatusClosed:
		return "status-closed"
	case KindStatusDraft:
		return "status-draft"
	case KindUserMetadata:
		return "user-metadata"
	case KindUserRelayList:
		return "user-relay-list"
	default:
		return fmt.Sprintf("kind-%d", int(k))
	}
}

// IsStatus reports whether k is one of the four status kinds.
func (k Kind) IsStatus() bool {
	switch k {
	case KindStatusOpen, KindStatusApplied, KindStatusClosed, KindStatusDraft:
		return true
	default:
		return false
	}
}

// Tag is a single tag entry: an ordered list of strings whose first
// element names the tag.
type Tag []string

// Name returns the tag's conventional first element, or "" if empty.
func (t Tag) Name() string {
	if len(t) == 0 {
		return ""
	}
	return t[0]
}

// Value returns the tag's first value (index 1), or "" if absent.
func (t Tag) Value() string {
	if len(t) < 2 {
		return ""
	}
	return t[1]
}

// Tags is an ordered collection of Tag.
type Tags []Tag

// Find returns the first tag whose name matches, and whether one was found.
func (ts Tags) Find(name string) (Tag, bool) {
	for _, t := range ts {
		if t.Name() == name {
			return t, true
		}
	}
	return nil, false
}

// FindAll returns every tag whose name matches.
func (ts Tags) FindAll(name string) []Tag {
	var out []Tag
	for _, t := range ts {
		if t.Name() == name {
			out = append(out, t)
		}
	}
	return out
}

// Value is a convenience wrapper around Find that returns the tag's
// first value, or "" if the tag is absent.
func (ts Tags) Value(name string) string {
	t, ok := ts.Find(name)
	if !ok {
		return ""
	}
	return t.Value()
}

// Event is the canonical signed-event shape. PubKey, CreatedAt, Kind,
// Tags and Content together form the bytes that Sig is computed over;
// ID is the content hash of that same preimage. The core never mutates
// an Event once it has an ID and Sig set.
type Event struct {
	ID        string `json:"id"`
	PubKey    string `json:"pubkey"`
	CreatedAt int64  `json:"created_at"`
	Kind      Kind   `json:"kind"`
	Tags      Tags   `json:"tags"`
	Content   string `json:"content"`
	Sig       string `json:"sig"`
}

// IsSigned reports whether the event carries an id and signature.
func (e *Event) IsSigned() bool {
	return e != nil && e.ID != "" && e.Sig != ""
}

// DTag returns the event's replaceable-identifier tag value.
func (e *Event) DTag() string {
	return e.Tags.Value("d")
}
