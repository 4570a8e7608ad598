// Package capability declares the narrow external-collaborator
// interfaces the core depends on: one per capability, one production
// implementation and one test fake per scenario (spec.md §9
// "Polymorphism"). Nothing in this package performs I/O itself.
package capability

import (
	"context"
	"time"

	"github.com/make-os/nostrgit/internal/eventmodel"
)

// Signer produces a BIP-340 Schnorr signature over an event id digest.
// Implementations may be local (in-process key) or remote (e.g. a
// NIP-46 bunker), hence the context and possible latency.
type Signer interface {
	// PublicKey returns the signer's hex-encoded x-only public key.
	PublicKey(ctx context.Context) (string, error)
	// Sign returns a 64-byte BIP-340 signature over digest.
	Sign(ctx context.Context, digest []byte) ([]byte, error)
}

// Network is the relay transport capability: publish an event to a set
// of relays and query relays for events matching a filter. Fan-out
// across relays is the caller's responsibility; a Network implementation
// only needs to speak to one relay at a time per call.
type Network interface {
	// Publish sends ev to relayURL and waits for the relay's OK response.
	Publish(ctx context.Context, relayURL string, ev *eventmodel.Event) error
	// Query returns every event at relayURL matching filter.
	Query(ctx context.Context, relayURL string, filter Filter) ([]*eventmodel.Event, error)
}

// Filter describes a relay subscription filter (NIP-01 shaped): any
// non-empty field narrows the match; empty fields are unconstrained.
type Filter struct {
	IDs     []string
	Authors []string
	Kinds   []eventmodel.Kind
	Tags    map[string][]string
	Since   *time.Time
	Until   *time.Time
	Limit   int
}

// Cache is the local event store: durable, id-keyed, and queryable by
// the index shapes discovery needs (author+kind+d, kind+a-tag,
// kind+e-tag). A cache may hold events a live network query would not
// return (spec.md §6) but must never be missing a cached-then-verified
// event.
type Cache interface {
	Put(ctx context.Context, ev *eventmodel.Event) error
	Get(ctx context.Context, id string) (*eventmodel.Event, bool, error)
	// ByAuthorKindD returns the (at most one, if kind is replaceable)
	// newest matching event.
	ByAuthorKindD(ctx context.Context, author string, kind eventmodel.Kind, d string) (*eventmodel.Event, bool, error)
	// ByKindATag returns every event of kind kind tagging coordinate a.
	ByKindATag(ctx context.Context, kind eventmodel.Kind, a string) ([]*eventmodel.Event, error)
	// ByKindETag returns every event of kind kind tagging event id e.
	ByKindETag(ctx context.Context, kind eventmodel.Kind, e string) ([]*eventmodel.Event, error)
}

// Prompter is the interactive-decision capability the CLI supplies; the
// core never blocks on a terminal directly (spec.md §6).
type Prompter interface {
	// Confirm asks a yes/no question, returning the user's answer.
	Confirm(ctx context.Context, question string) (bool, error)
	// Choose offers the user a set of labeled options, returning the
	// chosen option's index.
	Choose(ctx context.Context, question string, options []string) (int, error)
}
