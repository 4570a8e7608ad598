// Package discovery resolves a set of seed repository coordinates into a
// coherent RepoRef view: a merged announcement, the current ref state,
// and the authoritative list of proposals with their revision chains
// (spec.md §4.4). It drives the network and cache capabilities; nothing
// below it performs I/O of its own.
package discovery

import (
	"context"
	"sort"

	"github.com/thoas/go-funk"

	"github.com/make-os/nostrgit/internal/capability"
	"github.com/make-os/nostrgit/internal/eventmodel"
	"github.com/make-os/nostrgit/internal/nostrurl"
	"github.com/make-os/nostrgit/internal/proposal"
	"github.com/make-os/nostrgit/pkgs/logger"
	"github.com/make-os/nostrgit/pkgs/queue"
)

// authorItem adapts a pubkey string to pkgs/queue's Item interface so
// the maintainer-set BFS (spec.md §9's "worklist fixed-point") can use
// the teacher's unique-item worklist instead of a hand-rolled
// queue+seen-map pair.
type authorItem string

func (a authorItem) GetID() interface{} { return string(a) }

// RepoRef is the coherent view discovery produces for a resolved
// repository.
type RepoRef struct {
	Announcement *eventmodel.Announcement
	Maintainers  []string // author plus every transitively merged co-maintainer
	State        map[string]string
	Proposals    []*Proposal
}

// Proposal is one proposal's resolved revision chain plus its latest
// status, if any.
type Proposal struct {
	RootID string
	Chain  []*eventmodel.Event
	Status *eventmodel.Status
}

// Orchestrator resolves coordinates into RepoRef views, reading through
// cache first and filling gaps from the network.
type Orchestrator struct {
	Net    capability.Network
	Cache  capability.Cache
	Relays []string
	Log    logger.Logger
}

// Resolve implements spec.md §4.4's four-step resolution for a single
// seed coordinate.
func (o *Orchestrator) Resolve(ctx context.Context, seed nostrurl.RepoCoordinate, relays []string) (*RepoRef, error) {
	relaySet := funk.UniqString(append(append([]string(nil), o.Relays...), relays...))

	ann, maintainers, err := o.resolveAnnouncementAndMaintainers(ctx, seed, relaySet)
	if err != nil {
		return nil, err
	}

	state, err := o.resolveState(ctx, maintainers, relaySet)
	if err != nil {
		return nil, err
	}

	proposals, err := o.resolveProposals(ctx, ann, relaySet)
	if err != nil {
		return nil, err
	}

	return &RepoRef{
		Announcement: ann,
		Maintainers:  maintainers,
		State:        state,
		Proposals:    proposals,
	}, nil
}

// resolveAnnouncementAndMaintainers fetches the announcement for seed
// and every maintainer it names, merging maintainer sets transitively
// until a fixed point — a worklist BFS over announcements, never mutual
// recursion (spec.md §9), satisfying confluence invariant I6 because set
// union is commutative and associative regardless of visit order.
func (o *Orchestrator) resolveAnnouncementAndMaintainers(ctx context.Context, seed nostrurl.RepoCoordinate, relays []string) (*eventmodel.Announcement, []string, error) {
	var primary *eventmodel.Announcement
	seenAuthors := map[string]bool{}
	maintainerSet := map[string]bool{}
	pending := queue.NewUnique()
	pending.Append(authorItem(seed.Author))

	for !pending.Empty() {
		author := string(pending.Head().(authorItem))
		if seenAuthors[author] {
			continue
		}
		seenAuthors[author] = true

		ann, err := o.fetchAnnouncement(ctx, author, seed.Identifier, relays)
		if err != nil || ann == nil {
			continue
		}
		if author == seed.Author {
			primary = ann
		}
		maintainerSet[author] = true
		for _, m := range ann.Maintainers() {
			maintainerSet[m] = true
			if !seenAuthors[m] {
				pending.Append(authorItem(m))
			}
		}
	}

	if primary == nil {
		return nil, nil, errAnnouncementNotFound(seed)
	}

	maintainers := make([]string, 0, len(maintainerSet))
	for m := range maintainerSet {
		maintainers = append(maintainers, m)
	}
	sort.Strings(maintainers)
	return primary, maintainers, nil
}

func (o *Orchestrator) fetchAnnouncement(ctx context.Context, author, identifier string, relays []string) (*eventmodel.Announcement, error) {
	if cached, ok, err := o.Cache.ByAuthorKindD(ctx, author, eventmodel.KindRepoAnnouncement, identifier); err == nil && ok {
		return eventmodel.NewAnnouncement(cached)
	}

	filter := capability.Filter{
		Authors: []string{author},
		Kinds:   []eventmodel.Kind{eventmodel.KindRepoAnnouncement},
		Tags:    map[string][]string{eventmodel.TagD: {identifier}},
	}
	var best *eventmodel.Event
	for _, relay := range relays {
		events, err := o.Net.Query(ctx, relay, filter)
		if err != nil {
			if o.Log != nil {
				o.Log.Warn("announcement query failed", "relay", relay, "err", err)
			}
			continue
		}
		for _, e := range events {
			if err := eventmodel.ParseAndVerify(e); err != nil {
				continue
			}
			if best == nil || e.CreatedAt > best.CreatedAt {
				best = e
			}
		}
	}
	if best == nil {
		return nil, nil
	}
	_ = o.Cache.Put(ctx, best)
	return eventmodel.NewAnnouncement(best)
}

// resolveState fetches the latest state event from each resolved
// maintainer and keeps the most recent by timestamp.
func (o *Orchestrator) resolveState(ctx context.Context, maintainers []string, relays []string) (map[string]string, error) {
	var newest *eventmodel.State
	for _, author := range maintainers {
		s, err := o.fetchState(ctx, author, relays)
		if err != nil || s == nil {
			continue
		}
		if newest == nil || s.CreatedAt > newest.CreatedAt {
			newest = s
		}
	}
	if newest == nil {
		return map[string]string{}, nil
	}
	return newest.RefMap(), nil
}

func (o *Orchestrator) fetchState(ctx context.Context, author string, relays []string) (*eventmodel.State, error) {
	filter := capability.Filter{Authors: []string{author}, Kinds: []eventmodel.Kind{eventmodel.KindRepoState}}
	var best *eventmodel.Event
	for _, relay := range relays {
		events, err := o.Net.Query(ctx, relay, filter)
		if err != nil {
			continue
		}
		for _, e := range events {
			if err := eventmodel.ParseAndVerify(e); err != nil {
				continue
			}
			if best == nil || e.CreatedAt > best.CreatedAt {
				best = e
			}
		}
	}
	if best == nil {
		return nil, nil
	}
	_ = o.Cache.Put(ctx, best)
	return eventmodel.NewState(best)
}

// resolveProposals fetches every proposal-root/PR event referencing ann,
// then every descendant event for each, assembling revision chains.
func (o *Orchestrator) resolveProposals(ctx context.Context, ann *eventmodel.Announcement, relays []string) ([]*Proposal, error) {
	coord := ann.Event.Coordinate().String()

	roots := map[string]*eventmodel.Event{}
	for _, kind := range []eventmodel.Kind{eventmodel.KindPatch, eventmodel.KindPullRequest} {
		for _, relay := range relays {
			events, err := o.Net.Query(ctx, relay, capability.Filter{
				Kinds: []eventmodel.Kind{kind},
				Tags:  map[string][]string{eventmodel.TagA: {coord}},
			})
			if err != nil {
				continue
			}
			for _, e := range events {
				if err := eventmodel.ParseAndVerify(e); err != nil {
					continue
				}
				_ = o.Cache.Put(ctx, e)
				if isProposalRoot(e) {
					roots[e.ID] = e
				}
			}
		}
	}

	var proposals []*Proposal
	for rootID, root := range roots {
		all, err := o.collectThread(ctx, rootID, relays)
		if err != nil {
			return nil, err
		}
		all = append(all, root)
		chain := proposal.ResolveRevisionChain(dedupeEvents(all))

		var status *eventmodel.Status
		statusEvents, _ := o.Cache.ByKindETag(ctx, eventmodel.KindStatusOpen, rootID)
		for _, kind := range []eventmodel.Kind{eventmodel.KindStatusApplied, eventmodel.KindStatusClosed, eventmodel.KindStatusDraft} {
			more, _ := o.Cache.ByKindETag(ctx, kind, rootID)
			statusEvents = append(statusEvents, more...)
		}
		for _, e := range statusEvents {
			s, err := eventmodel.NewStatus(e)
			if err != nil {
				continue
			}
			if status == nil || s.CreatedAt > status.CreatedAt {
				status = s
			}
		}

		proposals = append(proposals, &Proposal{RootID: rootID, Chain: chain, Status: status})
	}

	sort.Slice(proposals, func(i, j int) bool { return proposals[i].RootID < proposals[j].RootID })
	return proposals, nil
}

func (o *Orchestrator) collectThread(ctx context.Context, rootID string, relays []string) ([]*eventmodel.Event, error) {
	var all []*eventmodel.Event
	for _, kind := range []eventmodel.Kind{eventmodel.KindPatch, eventmodel.KindPullRequestUpdate} {
		for _, relay := range relays {
			events, err := o.Net.Query(ctx, relay, capability.Filter{
				Kinds: []eventmodel.Kind{kind},
				Tags:  map[string][]string{eventmodel.TagBigE: {rootID}, eventmodel.TagE: {rootID}},
			})
			if err != nil {
				continue
			}
			for _, e := range events {
				if err := eventmodel.ParseAndVerify(e); err != nil {
					continue
				}
				_ = o.Cache.Put(ctx, e)
				all = append(all, e)
			}
		}
	}
	return all, nil
}

func isProposalRoot(e *eventmodel.Event) bool {
	if e.Kind == eventmodel.KindPullRequest {
		return true
	}
	if _, ok := e.Tags.Find(eventmodel.TagRoot); ok {
		return true
	}
	return false
}

func dedupeEvents(events []*eventmodel.Event) []*eventmodel.Event {
	seen := map[string]bool{}
	var out []*eventmodel.Event
	for _, e := range events {
		if seen[e.ID] {
			continue
		}
		seen[e.ID] = true
		out = append(out, e)
	}
	return out
}
