package proposal

import "github.com/make-os/nostrgit/internal/eventmodel"

// MaxPatchSeriesCommits bounds how many commits may be published as a
// patch series before the engine switches to the pull-request form
// (spec.md §4.6, §9 open question: "any concrete threshold is
// acceptable provided it is deterministic and documented"). The original
// ngit-cli decides this the same way (are_commits_too_big_for_patches,
// called from its send subcommand alongside the PR-tip check below) but
// its threshold body wasn't among the retrieved sources, so the concrete
// number here is chosen rather than recovered, and documented at this
// constant's definition site.
const MaxPatchSeriesCommits = 32

// Form is the wire shape a new proposal submission takes.
type Form int

const (
	FormPatchSeries Form = iota
	FormPullRequest
)

// ChooseForm decides between a patch series and a pull request/update
// per spec.md §4.6: a PR-revision of an existing PR, or an oversized
// commit set, always publishes as PR form.
func ChooseForm(isRevisionOfExistingPR bool, commitCount int) Form {
	if isRevisionOfExistingPR || commitCount > MaxPatchSeriesCommits {
		return FormPullRequest
	}
	return FormPatchSeries
}

// TipIsPullRequestOrUpdate reports whether chain's current tip is
// itself a pull request or pull request update, the other half of
// ChooseForm's isRevisionOfExistingPR input: a branch that matches an
// existing proposal only forces PR form when that proposal's tip has
// already committed to the PR form, matching a patch-series proposal
// continues as a patch series unless the commit count alone forces it
// (spec.md §4.6, grounded on proposal_tip_is_pr_or_pr_update in the
// original send subcommand).
func TipIsPullRequestOrUpdate(chain []*eventmodel.Event) bool {
	tip := Tip(chain)
	if tip == nil {
		return false
	}
	return tip.Kind == eventmodel.KindPullRequest || tip.Kind == eventmodel.KindPullRequestUpdate
}
