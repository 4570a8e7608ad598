package proposal

import "github.com/make-os/nostrgit/internal/capability"

// Relation enumerates the branch/proposal relations from spec.md §4.6's
// decision table.
type Relation int

const (
	// RelationBranchAbsent: no local branch exists for the proposal yet.
	RelationBranchAbsent Relation = iota
	// RelationUpToDateCheckedOut: L == P and the branch is checked out.
	RelationUpToDateCheckedOut
	// RelationUpToDate: L == P, branch exists but isn't checked out.
	RelationUpToDate
	// RelationBehindTip: L appears inside the patch chain below the
	// tip — the proposal has new patches on top.
	RelationBehindTip
	// RelationDivergedRevision: L != P, L is not in the current chain,
	// and L is an ancestor of P. Events of earlier revisions are not
	// consulted.
	RelationDivergedRevision
	// RelationLocalAhead: L is a descendant of P — local has
	// unpublished commits on top.
	RelationLocalAhead
	// RelationDivergent: neither relation holds; local has been
	// rebased or amended away from any published version.
	RelationDivergent
)

// Action is the decision the engine offers the user for a Relation.
type Action int

const (
	ActionCreateCheckout Action = iota // apply patches onto B, or `git am`, or dump to disk
	ActionNone
	ActionOfferCheckout
	ActionApplyRemaining
	ActionOfferOverwriteOrKeep
	ActionOfferCheckoutAppend
	ActionRequireForceOrDump
)

// chainContains reports whether commit is one of the commit ids in chain.
func chainContains(chain []string, commit string) bool {
	for _, c := range chain {
		if c == commit {
			return true
		}
	}
	return false
}

// Classify determines the Relation between a proposal's current tip
// commit P, the local branch tip L (empty if the branch doesn't exist),
// and the ordered list of commits making up the proposal's patch chain,
// per spec.md §4.6's table. checkedOut reports whether the branch is the
// currently checked-out one.
func Classify(git capability.Git, branchExists, checkedOut bool, L, P string, chainCommits []string) Relation {
	if !branchExists {
		return RelationBranchAbsent
	}
	if L == P {
		if checkedOut {
			return RelationUpToDateCheckedOut
		}
		return RelationUpToDate
	}
	if chainContains(chainCommits, L) {
		return RelationBehindTip
	}

	if isAncestor, err := git.IsAncestor(P, L); err == nil && isAncestor {
		return RelationLocalAhead
	}
	if isAncestor, err := git.IsAncestor(L, P); err == nil && isAncestor {
		return RelationDivergedRevision
	}
	return RelationDivergent
}

// ActionFor maps a Relation to the offered Action, per the §4.6 table.
func ActionFor(r Relation) Action {
	switch r {
	case RelationBranchAbsent:
		return ActionCreateCheckout
	case RelationUpToDateCheckedOut:
		return ActionNone
	case RelationUpToDate:
		return ActionOfferCheckout
	case RelationBehindTip:
		return ActionApplyRemaining
	case RelationDivergedRevision:
		return ActionOfferOverwriteOrKeep
	case RelationLocalAhead:
		return ActionOfferCheckoutAppend
	default:
		return ActionRequireForceOrDump
	}
}
