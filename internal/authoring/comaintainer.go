package authoring

import (
	"context"
	"time"

	"github.com/make-os/nostrgit/internal/capability"
	"github.com/make-os/nostrgit/internal/eventmodel"
)

// EnsureOwnAnnouncement implements spec.md §4.8's co-maintainer
// auto-accept rule: consumers MUST only trust state events from authors
// that have self-asserted maintainership via their own announcement
// (scam-protection invariant), so before a listed maintainer who has
// never published their own announcement can push, the engine
// synthesizes and silently publishes one on their behalf, then waits
// for grasp provisioning before resuming the push.
func EnsureOwnAnnouncement(
	ctx context.Context,
	git capability.Git,
	net capability.Network,
	pushingPubkey string,
	existing *eventmodel.Announcement,
	ownRelays []string,
	ownGraspHosts []string,
	ownNpub string,
	publishRelays []string,
	graspTimeout time.Duration,
) (*eventmodel.Event, error) {
	if existing.PubKey == pushingPubkey || !isListedMaintainer(pushingPubkey, existing) {
		return nil, nil
	}

	opts := InitOptions{
		Identifier:  existing.Identifier(),
		CloneURLs:   existing.CloneURLs(),
		Relays:      ownRelays,
		Maintainers: existing.Maintainers(),
		GraspHosts:  ownGraspHosts,
		AuthorNpub:  ownNpub,
	}
	synthesized := BuildAnnouncement(opts, pushingPubkey)

	var graspCloneURLs []string
	for _, host := range ownGraspHosts {
		graspCloneURLs = append(graspCloneURLs, GraspCloneURL(host, ownNpub, opts.Identifier))
	}

	if err := Init(ctx, git, net, publishRelays, synthesized, graspCloneURLs, graspTimeout); err != nil {
		return nil, err
	}
	return synthesized, nil
}

func isListedMaintainer(pubkey string, ann *eventmodel.Announcement) bool {
	if ann.PubKey == pubkey {
		return true
	}
	for _, m := range ann.Maintainers() {
		if m == pubkey {
			return true
		}
	}
	return false
}
