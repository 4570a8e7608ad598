package proposal

import (
	"regexp"
	"strings"

	"github.com/make-os/nostrgit/internal/capability"
)

var mergeTrailer = regexp.MustCompile(`(?im)^Merges:\s*(\S+)\s*$`)

// KnownBranchTip maps a branch name to its last-known tip commit, used
// by DetectMerge to recognize "one parent is the tip of a known
// proposal branch" without re-walking every proposal's full history.
type KnownBranchTip struct {
	BranchName string
	ProposalID string // root event id of the proposal the branch belongs to
	Tip        string
	TipEventID string // id of the proposal chain's current tip event
}

// MergeMatch reports that a pushed commit merges a known proposal.
type MergeMatch struct {
	ProposalRootID string
	MergeCommit    string
	TipEventID     string
}

// DetectMerge inspects a commit being pushed onto the default branch
// for a merge trailer or a parent matching a known proposal branch tip,
// per spec.md §4.6's merge detection rule.
func DetectMerge(git capability.Git, commit string, message string, parents []string, knownTips []KnownBranchTip) (*MergeMatch, error) {
	if m := mergeTrailer.FindStringSubmatch(message); m != nil {
		for _, kt := range knownTips {
			if kt.BranchName == strings.TrimSpace(m[1]) {
				return &MergeMatch{ProposalRootID: kt.ProposalID, MergeCommit: commit, TipEventID: kt.TipEventID}, nil
			}
		}
	}

	for _, parent := range parents {
		for _, kt := range knownTips {
			if parent == kt.Tip {
				return &MergeMatch{ProposalRootID: kt.ProposalID, MergeCommit: commit, TipEventID: kt.TipEventID}, nil
			}
			isAncestor, err := git.IsAncestor(kt.Tip, parent)
			if err != nil {
				continue
			}
			if isAncestor {
				return &MergeMatch{ProposalRootID: kt.ProposalID, MergeCommit: commit, TipEventID: kt.TipEventID}, nil
			}
		}
	}
	return nil, nil
}
