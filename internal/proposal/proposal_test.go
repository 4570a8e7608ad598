package proposal_test

import (
	"testing"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/make-os/nostrgit/internal/capability"
	"github.com/make-os/nostrgit/internal/eventmodel"
	"github.com/make-os/nostrgit/internal/proposal"
)

func TestProposal(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Proposal Suite")
}

// fakeGit satisfies capability.Git with only IsAncestor wired to a
// declared ancestor map; every other method is unused by the functions
// under test here and panics if called, so a test that needs them fails
// loudly rather than silently passing on a zero value.
type fakeGit struct {
	ancestors map[[2]string]bool
}

func (f *fakeGit) IsAncestor(ancestor, descendant string) (bool, error) {
	return f.ancestors[[2]string{ancestor, descendant}], nil
}

func (f *fakeGit) References() (map[string]string, error)               { panic("unused") }
func (f *fakeGit) ResolveTip(ref string) (string, error)                { panic("unused") }
func (f *fakeGit) CommitsAheadBehind(base, head string) (capability.AheadBehind, error) {
	panic("unused")
}
func (f *fakeGit) ApplyPatchChain(branchName string, patches []string) error { panic("unused") }
func (f *fakeGit) UpdateRef(name, target string) error                      { panic("unused") }
func (f *fakeGit) DeleteRef(name string) error                              { panic("unused") }
func (f *fakeGit) MakePatchFromCommit(commit string, seriesIndex, seriesTotal int) (string, error) {
	panic("unused")
}
func (f *fakeGit) CommitInfo(commit string) (capability.CommitInfo, error) { panic("unused") }
func (f *fakeGit) ConfigGet(scope, key string) (string, bool, error)       { panic("unused") }
func (f *fakeGit) ConfigSet(scope, key, value string) error                { panic("unused") }
func (f *fakeGit) ConfigUnset(scope, key string) error                     { panic("unused") }
func (f *fakeGit) LsRemote(rawURL string) (map[string]string, error)       { panic("unused") }
func (f *fakeGit) FetchPack(rawURL string, oids []string) error            { panic("unused") }
func (f *fakeGit) SendPack(rawURL string, refspecs []string) error         { panic("unused") }

var _ capability.Git = (*fakeGit)(nil)

var _ = Describe("SanitizeBranchName", func() {
	It("lowercases and replaces non-alphanumeric/slash runes with dashes", func() {
		Expect(proposal.SanitizeBranchName("Fix Bug #42!")).To(Equal("fix-bug--42-"))
	})

	It("preserves slashes", func() {
		Expect(proposal.SanitizeBranchName("feature/foo")).To(Equal("feature/foo"))
	})

	It("truncates to 60 characters", func() {
		long := ""
		for i := 0; i < 100; i++ {
			long += "a"
		}
		Expect(len(proposal.SanitizeBranchName(long))).To(Equal(60))
	})
})

var _ = Describe("DeriveBranchName and MatchBranch", func() {
	It("derives pr/<sanitized>(<first-8-of-root>)", func() {
		name := proposal.DeriveBranchName("Add feature", "abcdef0123456789")
		Expect(name).To(Equal("pr/add-feature(abcdef01)"))
	})

	It("matches a checked-out branch to its derived name exactly", func() {
		Expect(proposal.MatchBranch("pr/add-feature(abcdef01)", "pr/add-feature(abcdef01)")).To(BeTrue())
	})

	It("matches a user's own in-progress branch once parenthesized suffixes are stripped", func() {
		Expect(proposal.MatchBranch("pr/add-feature", "pr/add-feature(abcdef01)")).To(BeTrue())
	})

	It("does not match an unrelated branch", func() {
		Expect(proposal.MatchBranch("pr/other-thing", "pr/add-feature(abcdef01)")).To(BeFalse())
	})
})

var _ = Describe("ChooseForm", func() {
	It("chooses patch series for a small new submission", func() {
		Expect(proposal.ChooseForm(false, 3)).To(Equal(proposal.FormPatchSeries))
	})

	It("chooses pull request once the commit count exceeds the threshold", func() {
		Expect(proposal.ChooseForm(false, proposal.MaxPatchSeriesCommits+1)).To(Equal(proposal.FormPullRequest))
	})

	It("stays within the threshold as patch series", func() {
		Expect(proposal.ChooseForm(false, proposal.MaxPatchSeriesCommits)).To(Equal(proposal.FormPatchSeries))
	})

	It("always chooses pull request for a revision of an existing PR", func() {
		Expect(proposal.ChooseForm(true, 1)).To(Equal(proposal.FormPullRequest))
	})
})

var _ = Describe("TipIsPullRequestOrUpdate", func() {
	It("is false for an empty chain", func() {
		Expect(proposal.TipIsPullRequestOrUpdate(nil)).To(BeFalse())
	})

	It("is false when the tip is a patch", func() {
		tip := &eventmodel.Event{ID: "p1", Kind: eventmodel.KindPatch}
		Expect(proposal.TipIsPullRequestOrUpdate([]*eventmodel.Event{tip})).To(BeFalse())
	})

	It("is true when the tip is a pull request", func() {
		tip := &eventmodel.Event{ID: "pr1", Kind: eventmodel.KindPullRequest}
		Expect(proposal.TipIsPullRequestOrUpdate([]*eventmodel.Event{tip})).To(BeTrue())
	})

	It("is true when the tip is a pull request update", func() {
		tip := &eventmodel.Event{ID: "pru1", Kind: eventmodel.KindPullRequestUpdate}
		Expect(proposal.TipIsPullRequestOrUpdate([]*eventmodel.Event{tip})).To(BeTrue())
	})
})

var _ = Describe("Classify", func() {
	It("reports branch-absent when no local branch exists", func() {
		g := &fakeGit{}
		Expect(proposal.Classify(g, false, false, "", "p1", nil)).To(Equal(proposal.RelationBranchAbsent))
	})

	It("reports up-to-date-checked-out when local tip equals proposal tip and it's checked out", func() {
		g := &fakeGit{}
		Expect(proposal.Classify(g, true, true, "p1", "p1", nil)).To(Equal(proposal.RelationUpToDateCheckedOut))
	})

	It("reports up-to-date when local tip equals proposal tip but it's not checked out", func() {
		g := &fakeGit{}
		Expect(proposal.Classify(g, true, false, "p1", "p1", nil)).To(Equal(proposal.RelationUpToDate))
	})

	It("reports behind-tip when local tip appears inside the chain below the real tip", func() {
		g := &fakeGit{}
		Expect(proposal.Classify(g, true, false, "mid", "tip", []string{"root", "mid", "tip"})).To(Equal(proposal.RelationBehindTip))
	})

	It("reports local-ahead when local is a descendant of the proposal tip", func() {
		g := &fakeGit{ancestors: map[[2]string]bool{{"p1", "local"}: true}}
		Expect(proposal.Classify(g, true, false, "local", "p1", nil)).To(Equal(proposal.RelationLocalAhead))
	})

	It("reports diverged-revision when local is an ancestor of the proposal tip", func() {
		g := &fakeGit{ancestors: map[[2]string]bool{{"local", "p1"}: true}}
		Expect(proposal.Classify(g, true, false, "local", "p1", nil)).To(Equal(proposal.RelationDivergedRevision))
	})

	It("reports divergent when neither is an ancestor of the other", func() {
		g := &fakeGit{}
		Expect(proposal.Classify(g, true, false, "local", "p1", nil)).To(Equal(proposal.RelationDivergent))
	})
})

var _ = Describe("ActionFor", func() {
	It("maps every relation to its documented action", func() {
		Expect(proposal.ActionFor(proposal.RelationBranchAbsent)).To(Equal(proposal.ActionCreateCheckout))
		Expect(proposal.ActionFor(proposal.RelationUpToDateCheckedOut)).To(Equal(proposal.ActionNone))
		Expect(proposal.ActionFor(proposal.RelationUpToDate)).To(Equal(proposal.ActionOfferCheckout))
		Expect(proposal.ActionFor(proposal.RelationBehindTip)).To(Equal(proposal.ActionApplyRemaining))
		Expect(proposal.ActionFor(proposal.RelationDivergedRevision)).To(Equal(proposal.ActionOfferOverwriteOrKeep))
		Expect(proposal.ActionFor(proposal.RelationLocalAhead)).To(Equal(proposal.ActionOfferCheckoutAppend))
		Expect(proposal.ActionFor(proposal.RelationDivergent)).To(Equal(proposal.ActionRequireForceOrDump))
	})
})

var _ = Describe("DetectMerge", func() {
	knownTips := []proposal.KnownBranchTip{{BranchName: "pr/add-feature(abc)", ProposalID: "root1", Tip: "tip1"}}

	It("matches via a Merges: trailer naming a known branch", func() {
		g := &fakeGit{}
		m, err := proposal.DetectMerge(g, "c1", "Merge pull request\n\nMerges: pr/add-feature(abc)\n", []string{"other"}, knownTips)
		Expect(err).To(BeNil())
		Expect(m).NotTo(BeNil())
		Expect(m.ProposalRootID).To(Equal("root1"))
	})

	It("matches when a parent is exactly a known branch tip", func() {
		g := &fakeGit{}
		m, err := proposal.DetectMerge(g, "c2", "Merge", []string{"tip1"}, knownTips)
		Expect(err).To(BeNil())
		Expect(m).NotTo(BeNil())
		Expect(m.ProposalRootID).To(Equal("root1"))
	})

	It("matches when a parent is a descendant of a known branch tip", func() {
		g := &fakeGit{ancestors: map[[2]string]bool{{"tip1", "parentX"}: true}}
		m, err := proposal.DetectMerge(g, "c3", "Merge", []string{"parentX"}, knownTips)
		Expect(err).To(BeNil())
		Expect(m).NotTo(BeNil())
	})

	It("returns nil when nothing matches", func() {
		g := &fakeGit{}
		m, err := proposal.DetectMerge(g, "c4", "unrelated commit", []string{"other"}, knownTips)
		Expect(err).To(BeNil())
		Expect(m).To(BeNil())
	})
})

func mkEvent(id string, createdAt int64, replyTo string) *eventmodel.Event {
	e := &eventmodel.Event{ID: id, CreatedAt: createdAt, Kind: eventmodel.KindPatch}
	if replyTo != "" {
		e.Tags = eventmodel.Tags{eventmodel.BuildReplyEdge(replyTo)}
	}
	return e
}

var _ = Describe("ResolveRevisionChain", func() {
	It("returns nil for an empty input", func() {
		Expect(proposal.ResolveRevisionChain(nil)).To(BeNil())
	})

	It("walks a simple linear chain from tip back to root, root-first", func() {
		root := mkEvent("root", 1, "")
		second := mkEvent("second", 2, "root")
		third := mkEvent("third", 3, "second")
		chain := proposal.ResolveRevisionChain([]*eventmodel.Event{third, root, second})
		Expect(chain).To(HaveLen(3))
		Expect(chain[0].ID).To(Equal("root"))
		Expect(chain[1].ID).To(Equal("second"))
		Expect(chain[2].ID).To(Equal("third"))
		Expect(proposal.Tip(chain).ID).To(Equal("third"))
	})

	It("picks the latest-timestamp event not referenced as a reply as the tip", func() {
		root := mkEvent("root", 1, "")
		branchA := mkEvent("a", 2, "root")
		branchB := mkEvent("b", 2, "root")
		chain := proposal.ResolveRevisionChain([]*eventmodel.Event{root, branchA, branchB})
		tip := proposal.Tip(chain)
		Expect(tip.ID).To(SatisfyAny(Equal("a"), Equal("b")))
	})

	It("returns nil Tip for an empty chain", func() {
		Expect(proposal.Tip(nil)).To(BeNil())
	})

	It("reads the tip's commit tag regardless of which proposal kind it is", func() {
		patchTip := mkEvent("p1", 1, "")
		patchTip.Tags = append(patchTip.Tags, eventmodel.Tag{eventmodel.TagCommit, "deadbeef"})
		Expect(proposal.TipCommit([]*eventmodel.Event{patchTip})).To(Equal("deadbeef"))

		prTip := &eventmodel.Event{ID: "pr1", Kind: eventmodel.KindPullRequest, Tags: eventmodel.Tags{{eventmodel.TagCommit, "feedface"}}}
		Expect(proposal.TipCommit([]*eventmodel.Event{prTip})).To(Equal("feedface"))
	})

	It("returns empty for a cover-letter tip with no commit of its own", func() {
		cover := mkEvent("cover", 1, "")
		Expect(proposal.TipCommit([]*eventmodel.Event{cover})).To(Equal(""))
	})
})
