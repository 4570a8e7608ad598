package authoring

import (
	"fmt"

	"github.com/make-os/nostrgit/internal/capability"
	"github.com/make-os/nostrgit/internal/eventmodel"
	"github.com/make-os/nostrgit/internal/proposal"
)

// BuildPatchSeries assembles the event chain for one patch-series
// submission: an optional cover letter followed by one KindPatch per
// commit, each replying to its predecessor (spec.md §4.3/§4.6). commits
// must already be in root-first order. When coverLetterSubject is
// non-empty a cover letter is emitted first and every commit event
// replies into the chain starting from it; otherwise the first commit
// event is itself the series root.
func BuildPatchSeries(commits []capability.CommitInfo, patchTexts []string, coverLetterSubject, pubkeyHex string) ([]*eventmodel.Event, error) {
	if len(commits) != len(patchTexts) {
		return nil, fmt.Errorf("commits/patchTexts length mismatch: %d vs %d", len(commits), len(patchTexts))
	}
	if len(commits) == 0 {
		return nil, fmt.Errorf("patch series requires at least one commit")
	}

	var events []*eventmodel.Event

	if coverLetterSubject != "" {
		cover := &eventmodel.Event{
			PubKey: pubkeyHex,
			Kind:   eventmodel.KindPatch,
			Tags: eventmodel.Tags{
				{eventmodel.TagCoverLetter},
				{eventmodel.TagRoot},
				{eventmodel.TagSubject, coverLetterSubject},
				buildSeriesTag(0, len(commits)),
			},
		}
		events = append(events, cover)
	}

	for i, c := range commits {
		tags := eventmodel.Tags{
			{eventmodel.TagCommit, c.Hash},
			{eventmodel.TagParentCommit, c.ParentHash},
			{eventmodel.TagSubject, c.Message},
			buildSeriesTag(i+1, len(commits)),
		}
		if c.PGPSig != "" {
			tags = append(tags, eventmodel.Tag{eventmodel.TagCommitSig, c.PGPSig})
		}
		if len(events) == 0 {
			tags = append(tags, eventmodel.Tag{eventmodel.TagRoot})
		} else {
			// The predecessor hasn't been signed yet, so there is no id
			// to reply to: FinalizeSeries fixes these edges up in order
			// once every event has a real id.
			tags = append(tags, eventmodel.BuildReplyEdge(""))
		}

		ev := &eventmodel.Event{
			PubKey:  pubkeyHex,
			Kind:    eventmodel.KindPatch,
			Tags:    tags,
			Content: patchTexts[i],
		}
		events = append(events, ev)
	}

	return events, nil
}

// FinalizeSeries signs every event in events, in order, fixing up each
// non-root event's reply edge to point at its now-signed predecessor's
// real id before signing it. Use this instead of signing each event in
// events independently, since BuildPatchSeries cannot know an event's id
// until it is finalized.
func FinalizeSeries(events []*eventmodel.Event, sign func([]byte) ([]byte, error)) error {
	for i, ev := range events {
		if i > 0 {
			for ti, t := range ev.Tags {
				if t.Name() == eventmodel.TagE {
					ev.Tags[ti] = eventmodel.BuildReplyEdge(events[i-1].ID)
				}
			}
		}
		if err := eventmodel.Finalize(ev, sign); err != nil {
			return fmt.Errorf("finalize series event %d: %w", i, err)
		}
	}
	return nil
}

func buildSeriesTag(n, total int) eventmodel.Tag {
	return eventmodel.Tag{eventmodel.TagSeries, fmt.Sprintf("%d", n), fmt.Sprintf("%d", total)}
}

// BuildPullRequest constructs an unsigned KindPullRequest event proposing
// head onto base.
func BuildPullRequest(base, head, subject string, cloneURLs []string, pubkeyHex string) *eventmodel.Event {
	return &eventmodel.Event{
		PubKey: pubkeyHex,
		Kind:   eventmodel.KindPullRequest,
		Tags: eventmodel.Tags{
			{eventmodel.TagC, base},
			{eventmodel.TagCommit, head},
			{eventmodel.TagSubject, subject},
			eventmodel.BuildClone(cloneURLs),
		},
	}
}

// BuildPullRequestUpdate constructs an unsigned KindPullRequestUpdate
// event revising rootID's head to a new base/head pair.
func BuildPullRequestUpdate(rootID, base, head string, cloneURLs []string, pubkeyHex string) *eventmodel.Event {
	return &eventmodel.Event{
		PubKey: pubkeyHex,
		Kind:   eventmodel.KindPullRequestUpdate,
		Tags: eventmodel.Tags{
			{eventmodel.TagC, base},
			{eventmodel.TagCommit, head},
			eventmodel.BuildClone(cloneURLs),
			eventmodel.BuildRootEdge(rootID),
		},
	}
}

// ChooseAndBuild picks a proposal form for the given ahead-commits and
// builds the corresponding event chain: a patch series for up to
// proposal.MaxPatchSeriesCommits commits, a pull request otherwise or
// when isRevision is set (spec.md §4.6). When rootID is set, the first
// event of a patch series carries a revision-root tag naming it, and a
// pull request is built as an update of it.
func ChooseAndBuild(
	isRevision bool,
	commits []capability.CommitInfo,
	patchTexts []string,
	subject string,
	base, head string,
	cloneURLs []string,
	pubkeyHex string,
	rootID string,
) ([]*eventmodel.Event, error) {
	form := proposal.ChooseForm(isRevision, len(commits))
	switch form {
	case proposal.FormPatchSeries:
		events, err := BuildPatchSeries(commits, patchTexts, subject, pubkeyHex)
		if err == nil && rootID != "" {
			events[0].Tags = append(events[0].Tags, eventmodel.Tag{eventmodel.TagRevisionRoot, rootID})
		}
		return events, err
	case proposal.FormPullRequest:
		if rootID == "" {
			return []*eventmodel.Event{BuildPullRequest(base, head, subject, cloneURLs, pubkeyHex)}, nil
		}
		return []*eventmodel.Event{BuildPullRequestUpdate(rootID, base, head, cloneURLs, pubkeyHex)}, nil
	default:
		return nil, fmt.Errorf("unknown proposal form %v", form)
	}
}
