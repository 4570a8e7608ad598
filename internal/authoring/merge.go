package authoring

import (
	"github.com/make-os/nostrgit/internal/capability"
	"github.com/make-os/nostrgit/internal/eventmodel"
	"github.com/make-os/nostrgit/internal/proposal"
)

// BuildStatusApplied constructs an unsigned KindStatusApplied event
// recording that proposalRootID was merged via mergeCommit, mentioning
// the proposal's tip event at the time of merge (spec.md §4.6).
func BuildStatusApplied(proposalRootID, mergeCommit, tipEventID, pubkeyHex string) *eventmodel.Event {
	tags := eventmodel.Tags{
		{eventmodel.TagE, proposalRootID},
		{eventmodel.TagMergeCommit, mergeCommit},
	}
	if tipEventID != "" {
		tags = append(tags, eventmodel.Tag{eventmodel.TagMention, tipEventID})
	}
	return &eventmodel.Event{
		PubKey: pubkeyHex,
		Kind:   eventmodel.KindStatusApplied,
		Tags:   tags,
	}
}

// DetectMergeStatuses walks the commits newly landed between oldTip and
// newTip on a default-branch push, looking for merges of known proposal
// branches, and builds one unsigned applied-status event per match
// (spec.md §4.6). A no-op when either tip is unknown (new branch, or a
// delete) since there is nothing to scan.
func DetectMergeStatuses(git capability.Git, oldTip, newTip string, knownTips []proposal.KnownBranchTip, pubkeyHex string) ([]*eventmodel.Event, error) {
	if oldTip == "" || newTip == "" || oldTip == newTip || len(knownTips) == 0 {
		return nil, nil
	}
	ab, err := git.CommitsAheadBehind(oldTip, newTip)
	if err != nil {
		return nil, err
	}

	var events []*eventmodel.Event
	seen := map[string]bool{}
	for _, commit := range ab.Ahead {
		info, err := git.CommitInfo(commit)
		if err != nil {
			return nil, err
		}
		match, err := proposal.DetectMerge(git, commit, info.Message, info.ParentHashes, knownTips)
		if err != nil {
			return nil, err
		}
		if match == nil || seen[match.ProposalRootID] {
			continue
		}
		seen[match.ProposalRootID] = true
		events = append(events, BuildStatusApplied(match.ProposalRootID, match.MergeCommit, match.TipEventID, pubkeyHex))
	}
	return events, nil
}
