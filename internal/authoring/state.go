package authoring

import (
	"context"
	"sort"

	"github.com/make-os/nostrgit/internal/capability"
	"github.com/make-os/nostrgit/internal/eventmodel"
)

// BuildState constructs the unsigned KindRepoState event snapshotting
// refs for identifier, in sorted ref-name order so repeated builds of
// an unchanged ref map serialize identically.
func BuildState(identifier string, refs map[string]string, pubkeyHex string) (*eventmodel.Event, error) {
	names := make([]string, 0, len(refs))
	for name := range refs {
		names = append(names, name)
	}
	sort.Strings(names)

	entries := make([]eventmodel.RefEntry, 0, len(names))
	for _, name := range names {
		entries = append(entries, eventmodel.RefEntry{Name: name, Target: refs[name]})
	}
	content, err := eventmodel.EncodeRefs(entries)
	if err != nil {
		return nil, err
	}

	return &eventmodel.Event{
		PubKey:  pubkeyHex,
		Kind:    eventmodel.KindRepoState,
		Tags:    eventmodel.Tags{{eventmodel.TagD, identifier}},
		Content: content,
	}, nil
}

// PublishEvent finalizes ev with signFn and publishes it to every relay,
// stopping at the first publish error so a caller can retry or surface
// which relay rejected it. Used for any already-built unsigned event,
// not only repo-state snapshots (e.g. the applied-status events merge
// detection builds, spec.md §4.6).
func PublishEvent(ctx context.Context, net capability.Network, relays []string, ev *eventmodel.Event, signFn func([]byte) ([]byte, error)) error {
	if err := eventmodel.Finalize(ev, signFn); err != nil {
		return err
	}
	for _, relay := range relays {
		if err := net.Publish(ctx, relay, ev); err != nil {
			return err
		}
	}
	return nil
}
