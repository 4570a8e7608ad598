package proposal

import (
	"sort"

	"github.com/make-os/nostrgit/internal/eventmodel"
)

// ResolveRevisionChain implements spec.md §4.6's revision chain
// resolution: given every event referencing a proposal root (including
// the root itself), find the current tip and walk `reply` parents back
// to a root patch/PR/PR-update.
//
// events need not be sorted; ResolveRevisionChain sorts a private copy.
func ResolveRevisionChain(events []*eventmodel.Event) []*eventmodel.Event {
	if len(events) == 0 {
		return nil
	}

	byID := make(map[string]*eventmodel.Event, len(events))
	for _, e := range events {
		byID[e.ID] = e
	}

	sorted := append([]*eventmodel.Event(nil), events...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt < sorted[j].CreatedAt
	})

	maxTS := sorted[len(sorted)-1].CreatedAt
	var cohort []*eventmodel.Event
	for _, e := range sorted {
		if e.CreatedAt == maxTS {
			cohort = append(cohort, e)
		}
	}

	referencedAsReply := make(map[string]bool, len(cohort))
	for _, e := range cohort {
		if t, ok := e.Tags.Find(eventmodel.TagE); ok && t.Value() != "" {
			referencedAsReply[t.Value()] = true
		}
	}

	var tip *eventmodel.Event
	for _, e := range cohort {
		if !referencedAsReply[e.ID] {
			tip = e
			break
		}
	}
	if tip == nil {
		tip = cohort[len(cohort)-1]
	}

	var chain []*eventmodel.Event
	cur := tip
	seen := make(map[string]bool)
	for cur != nil && !seen[cur.ID] {
		chain = append(chain, cur)
		seen[cur.ID] = true
		replyTo, ok := cur.Tags.Find(eventmodel.TagE)
		if !ok || replyTo.Value() == "" {
			break
		}
		cur = byID[replyTo.Value()]
	}

	// chain was built tip-first; reverse to root-first.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// Tip returns the current tip of a resolved chain (its last element),
// or nil if the chain is empty.
func Tip(chain []*eventmodel.Event) *eventmodel.Event {
	if len(chain) == 0 {
		return nil
	}
	return chain[len(chain)-1]
}

// TipCommit returns the head commit id chain's tip carries: patch,
// pull request, and pull request update all record it under the same
// "commit" tag, so no per-kind switch is needed. Empty for a cover
// letter tip, which carries no commit of its own.
func TipCommit(chain []*eventmodel.Event) string {
	tip := Tip(chain)
	if tip == nil {
		return ""
	}
	return tip.Tags.Value(eventmodel.TagCommit)
}
