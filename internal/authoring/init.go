package authoring

import (
	"context"
	"time"

	"github.com/make-os/nostrgit/internal/capability"
	"github.com/make-os/nostrgit/internal/eventmodel"
)

// InitOptions configures publishing a new repository announcement.
type InitOptions struct {
	Identifier  string
	CloneURLs   []string
	Relays      []string
	Maintainers []string
	GraspHosts  []string // if non-empty, grasp-server mode is active
	AuthorNpub  string

	Name        string
	Description string
	Web         []string
	Blossoms    []string
	RootCommit  string // earliest-unique-commit marker, for fork recognition
}

// BuildAnnouncement constructs the unsigned announcement event for
// opts, deriving and appending per-grasp clone URLs when grasp-server
// mode is requested (spec.md §4.8).
func BuildAnnouncement(opts InitOptions, pubkeyHex string) *eventmodel.Event {
	clones := append([]string(nil), opts.CloneURLs...)
	for _, host := range opts.GraspHosts {
		clones = append(clones, GraspCloneURL(host, opts.AuthorNpub, opts.Identifier))
	}

	tags := eventmodel.Tags{
		eventmodel.Tag{eventmodel.TagD, opts.Identifier},
		eventmodel.BuildClone(clones),
	}
	if len(opts.Relays) > 0 {
		tags = append(tags, eventmodel.BuildRelays(opts.Relays))
	}
	if len(opts.Maintainers) > 0 {
		tags = append(tags, eventmodel.BuildMaintainers(opts.Maintainers))
	}
	if opts.Name != "" {
		tags = append(tags, eventmodel.Tag{eventmodel.TagName, opts.Name})
	}
	if opts.Description != "" {
		tags = append(tags, eventmodel.Tag{eventmodel.TagDescription, opts.Description})
	}
	if len(opts.Web) > 0 {
		tags = append(tags, eventmodel.BuildWeb(opts.Web))
	}
	if len(opts.Blossoms) > 0 {
		tags = append(tags, eventmodel.BuildBlossoms(opts.Blossoms))
	}
	if opts.RootCommit != "" {
		tags = append(tags, eventmodel.Tag{eventmodel.TagR, opts.RootCommit, "euc"})
	}

	return &eventmodel.Event{
		PubKey: pubkeyHex,
		Kind:   eventmodel.KindRepoAnnouncement,
		Tags:   tags,
	}
}

// Init publishes ann (already finalized/signed by the caller) and, in
// grasp-server mode, waits for each grasp host to finish provisioning
// before returning, so the very first push has somewhere to land.
func Init(ctx context.Context, git capability.Git, net capability.Network, relays []string, ann *eventmodel.Event, graspCloneURLs []string, timeout time.Duration) error {
	for _, relay := range relays {
		if err := net.Publish(ctx, relay, ann); err != nil {
			return err
		}
	}
	for _, cloneURL := range graspCloneURLs {
		if err := WaitForGraspProvision(ctx, git, cloneURL, timeout); err != nil {
			return err
		}
	}
	return nil
}
