package authoring_test

import (
	"context"
	"encoding/hex"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/make-os/nostrgit/internal/authoring"
	"github.com/make-os/nostrgit/internal/capability"
	"github.com/make-os/nostrgit/internal/eventmodel"
	"github.com/make-os/nostrgit/internal/proposal"
)

func TestAuthoring(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Authoring Suite")
}

func newKey() (string, func([]byte) ([]byte, error)) {
	priv, err := btcec.NewPrivateKey()
	Expect(err).To(BeNil())
	pub := hex.EncodeToString(schnorr.SerializePubKey(priv.PubKey()))
	return pub, func(digest []byte) ([]byte, error) {
		sig, err := schnorr.Sign(priv, digest)
		if err != nil {
			return nil, err
		}
		return sig.Serialize(), nil
	}
}

var _ = Describe("BuildAnnouncement", func() {
	It("appends grasp-derived clone urls in grasp mode", func() {
		pub, _ := newKey()
		opts := authoring.InitOptions{
			Identifier: "repo1",
			CloneURLs:  []string{"https://example.com/repo1.git"},
			GraspHosts: []string{"grasp.example"},
			AuthorNpub: "npub1abc",
		}
		ev := authoring.BuildAnnouncement(opts, pub)
		ann, err := eventmodel.NewAnnouncement(ev)
		Expect(err).To(BeNil())
		Expect(ann.CloneURLs()).To(ContainElement("https://grasp.example/npub1abc/repo1.git"))
	})

	It("carries name, description, web, blossoms and root-commit metadata when set", func() {
		pub, _ := newKey()
		opts := authoring.InitOptions{
			Identifier:  "repo1",
			CloneURLs:   []string{"https://example.com/repo1.git"},
			Name:        "Repo One",
			Description: "an example repository",
			Web:         []string{"https://example.com"},
			Blossoms:    []string{"https://blossom.example.com"},
			RootCommit:  "0123456789abcdef0123456789abcdef01234567",
		}
		ev := authoring.BuildAnnouncement(opts, pub)
		ann, err := eventmodel.NewAnnouncement(ev)
		Expect(err).To(BeNil())
		Expect(ann.Name()).To(Equal("Repo One"))
		Expect(ann.Description()).To(Equal("an example repository"))
		Expect(ann.Web()).To(ConsistOf("https://example.com"))
		Expect(ann.Blossoms()).To(ConsistOf("https://blossom.example.com"))
		Expect(ann.RootCommit()).To(Equal("0123456789abcdef0123456789abcdef01234567"))
	})

	It("omits metadata tags entirely when unset", func() {
		pub, _ := newKey()
		opts := authoring.InitOptions{
			Identifier: "repo1",
			CloneURLs:  []string{"https://example.com/repo1.git"},
		}
		ev := authoring.BuildAnnouncement(opts, pub)
		ann, err := eventmodel.NewAnnouncement(ev)
		Expect(err).To(BeNil())
		Expect(ann.Name()).To(Equal(""))
		Expect(ann.Web()).To(BeNil())
		Expect(ann.Blossoms()).To(BeNil())
		Expect(ann.RootCommit()).To(Equal(""))
	})
})

var _ = Describe("BuildState", func() {
	It("round-trips a sorted ref map through finalize", func() {
		pub, sign := newKey()
		ev, err := authoring.BuildState("repo1", map[string]string{
			"refs/heads/main":    "0000000000000000000000000000000000000001",
			"refs/heads/feature": "0000000000000000000000000000000000000002",
		}, pub)
		Expect(err).To(BeNil())
		Expect(eventmodel.Finalize(ev, sign)).To(Succeed())

		st, err := eventmodel.NewState(ev)
		Expect(err).To(BeNil())
		Expect(eventmodel.ValidateState(st)).To(Succeed())
		Expect(st.RefMap()).To(HaveKeyWithValue("refs/heads/main", "0000000000000000000000000000000000000001"))
	})
})

var _ = Describe("BuildPatchSeries/FinalizeSeries", func() {
	It("chains commit events with a cover letter as the series root", func() {
		pub, sign := newKey()
		commits := []capability.CommitInfo{
			{Hash: "1111111111111111111111111111111111111111", ParentHash: "", Message: "first"},
			{Hash: "2222222222222222222222222222222222222222", ParentHash: "1111111111111111111111111111111111111111", Message: "second"},
		}
		patches := []string{"diff-1", "diff-2"}

		events, err := authoring.BuildPatchSeries(commits, patches, "My series", pub)
		Expect(err).To(BeNil())
		Expect(events).To(HaveLen(3))

		Expect(authoring.FinalizeSeries(events, sign)).To(Succeed())

		cover, err := eventmodel.NewPatch(events[0])
		Expect(err).To(BeNil())
		Expect(cover.IsCoverLetter()).To(BeTrue())
		Expect(cover.IsRoot()).To(BeTrue())

		p1, err := eventmodel.NewPatch(events[1])
		Expect(err).To(BeNil())
		replyTo, ok := p1.ReplyTo()
		Expect(ok).To(BeTrue())
		Expect(replyTo).To(Equal(cover.ID))
		Expect(eventmodel.ValidatePatch(p1)).To(Succeed())

		p2, err := eventmodel.NewPatch(events[2])
		Expect(err).To(BeNil())
		replyTo2, ok := p2.ReplyTo()
		Expect(ok).To(BeTrue())
		Expect(replyTo2).To(Equal(p1.ID))
	})

	It("makes the sole commit its own root when there is no cover letter", func() {
		pub, sign := newKey()
		commits := []capability.CommitInfo{
			{Hash: "3333333333333333333333333333333333333333", Message: "standalone"},
		}
		events, err := authoring.BuildPatchSeries(commits, []string{"diff"}, "", pub)
		Expect(err).To(BeNil())
		Expect(events).To(HaveLen(1))
		Expect(authoring.FinalizeSeries(events, sign)).To(Succeed())

		p, err := eventmodel.NewPatch(events[0])
		Expect(err).To(BeNil())
		Expect(p.IsRoot()).To(BeTrue())
		Expect(eventmodel.ValidatePatch(p)).To(Succeed())
	})

	It("rejects mismatched commits/patchTexts lengths", func() {
		_, err := authoring.BuildPatchSeries([]capability.CommitInfo{{Hash: "a"}}, nil, "", "pub")
		Expect(err).NotTo(BeNil())
	})
})

var _ = Describe("BuildPullRequest/BuildPullRequestUpdate", func() {
	It("builds a valid pull request event", func() {
		pub, sign := newKey()
		ev := authoring.BuildPullRequest(
			"0000000000000000000000000000000000000001",
			"0000000000000000000000000000000000000002",
			"Add feature",
			[]string{"https://example.com/repo.git"},
			pub,
		)
		Expect(eventmodel.Finalize(ev, sign)).To(Succeed())
		pr, err := eventmodel.NewPullRequest(ev)
		Expect(err).To(BeNil())
		Expect(eventmodel.ValidatePullRequest(pr)).To(Succeed())
	})

	It("builds a valid pull request update referencing its root", func() {
		pub, sign := newKey()
		ev := authoring.BuildPullRequestUpdate(
			"rootid123",
			"0000000000000000000000000000000000000001",
			"0000000000000000000000000000000000000003",
			[]string{"https://example.com/repo.git"},
			pub,
		)
		Expect(eventmodel.Finalize(ev, sign)).To(Succeed())
		u, err := eventmodel.NewPullRequestUpdate(ev)
		Expect(err).To(BeNil())
		Expect(eventmodel.ValidatePullRequestUpdate(u)).To(Succeed())
		root, ok := u.RootProposal()
		Expect(ok).To(BeTrue())
		Expect(root).To(Equal("rootid123"))
	})
})

var _ = Describe("ChooseAndBuild", func() {
	It("builds a patch series for a small commit count", func() {
		pub, _ := newKey()
		commits := []capability.CommitInfo{{Hash: "1111111111111111111111111111111111111111", Message: "m"}}
		events, err := authoring.ChooseAndBuild(false, commits, []string{"diff"}, "subj", "", "", nil, pub, "")
		Expect(err).To(BeNil())
		Expect(events).To(HaveLen(1))
		Expect(events[0].Kind).To(Equal(eventmodel.KindPatch))
	})

	It("builds a pull request once the commit count exceeds the patch-series ceiling", func() {
		pub, _ := newKey()
		commits := make([]capability.CommitInfo, proposal.MaxPatchSeriesCommits+1)
		for i := range commits {
			commits[i] = capability.CommitInfo{Hash: "1111111111111111111111111111111111111111", Message: "m"}
		}
		patches := make([]string, len(commits))
		events, err := authoring.ChooseAndBuild(false, commits, patches, "subj", "base1", "head1", []string{"https://x/repo.git"}, pub, "")
		Expect(err).To(BeNil())
		Expect(events).To(HaveLen(1))
		Expect(events[0].Kind).To(Equal(eventmodel.KindPullRequest))
	})

	It("always builds a pull-request-update when revising an existing pull request", func() {
		pub, _ := newKey()
		commits := []capability.CommitInfo{{Hash: "1111111111111111111111111111111111111111", Message: "m"}}
		events, err := authoring.ChooseAndBuild(true, commits, []string{"diff"}, "subj", "base1", "head1", []string{"https://x/repo.git"}, pub, "root1")
		Expect(err).To(BeNil())
		Expect(events).To(HaveLen(1))
		Expect(events[0].Kind).To(Equal(eventmodel.KindPullRequestUpdate))
	})
})

var _ = Describe("GraspCloneURL/WaitForGraspProvision", func() {
	It("derives the conventional per-grasp clone url", func() {
		Expect(authoring.GraspCloneURL("grasp.example", "npub1abc", "repo1")).
			To(Equal("https://grasp.example/npub1abc/repo1.git"))
	})

	It("succeeds once ls-remote on the clone url stops erroring", func() {
		git := &probeGit{failuresRemaining: 2}
		err := authoring.WaitForGraspProvision(context.Background(), git, "https://grasp.example/npub1abc/repo1.git", authoring.GraspProvisionTimeoutTest)
		Expect(err).To(BeNil())
		Expect(git.calls).To(BeNumerically(">=", 3))
	})
})

var _ = Describe("EnsureOwnAnnouncement", func() {
	It("is a no-op when the pushing key is not a listed maintainer", func() {
		pubOwner, _ := newKey()
		pubOther, _ := newKey()
		ann, err := eventmodel.NewAnnouncement(&eventmodel.Event{
			PubKey: pubOwner, Kind: eventmodel.KindRepoAnnouncement,
			Tags: eventmodel.Tags{{eventmodel.TagD, "repo1"}, {eventmodel.TagClone, "https://x/repo1.git"}},
		})
		Expect(err).To(BeNil())

		net := &recordingNetwork{}
		ev, err := authoring.EnsureOwnAnnouncement(context.Background(), &probeGit{}, net, pubOther, ann, nil, nil, "", nil, authoring.GraspProvisionTimeoutTest)
		Expect(err).To(BeNil())
		Expect(ev).To(BeNil())
		Expect(net.published).To(BeEmpty())
	})

	It("synthesizes and publishes an announcement for a listed maintainer with none of their own", func() {
		pubOwner, _ := newKey()
		pubMaintainer, _ := newKey()
		ann, err := eventmodel.NewAnnouncement(&eventmodel.Event{
			PubKey: pubOwner, Kind: eventmodel.KindRepoAnnouncement,
			Tags: eventmodel.Tags{
				{eventmodel.TagD, "repo1"},
				{eventmodel.TagClone, "https://x/repo1.git"},
				eventmodel.BuildMaintainers([]string{pubMaintainer}),
			},
		})
		Expect(err).To(BeNil())

		net := &recordingNetwork{}
		ev, err := authoring.EnsureOwnAnnouncement(context.Background(), &probeGit{}, net, pubMaintainer, ann, []string{"wss://relay1"}, nil, "npub1maintainer", []string{"wss://relay1"}, authoring.GraspProvisionTimeoutTest)
		Expect(err).To(BeNil())
		Expect(ev).NotTo(BeNil())
		Expect(ev.PubKey).To(Equal(pubMaintainer))
		Expect(net.published).To(HaveLen(1))
	})
})

var _ = Describe("BuildStatusApplied", func() {
	It("tags the proposal, merge commit and mentioned tip", func() {
		pub, _ := newKey()
		ev := authoring.BuildStatusApplied("root1", "deadbeef", "tip-event-1", pub)
		Expect(ev.Kind).To(Equal(eventmodel.KindStatusApplied))
		Expect(ev.Tags.Value(eventmodel.TagE)).To(Equal("root1"))
		Expect(ev.Tags.Value(eventmodel.TagMergeCommit)).To(Equal("deadbeef"))
		Expect(ev.Tags.Value(eventmodel.TagMention)).To(Equal("tip-event-1"))
	})

	It("omits the mention tag when no tip event is known", func() {
		pub, _ := newKey()
		ev := authoring.BuildStatusApplied("root1", "deadbeef", "", pub)
		_, ok := ev.Tags.Find(eventmodel.TagMention)
		Expect(ok).To(BeFalse())
	})
})

var _ = Describe("DetectMergeStatuses", func() {
	knownTips := []proposal.KnownBranchTip{
		{BranchName: "pr/add-feature(abc)", ProposalID: "root1", Tip: "feature-tip", TipEventID: "tip-event-1"},
	}

	It("builds one applied status per merge found in the landed commits", func() {
		g := &mergeGit{
			ahead: capability.AheadBehind{Ahead: []string{"m2"}},
			commits: map[string]capability.CommitInfo{
				"m2": {Hash: "m2", ParentHashes: []string{"m1", "feature-tip"}, Message: "Merge"},
			},
		}
		pub, _ := newKey()
		events, err := authoring.DetectMergeStatuses(g, "m1", "m2", knownTips, pub)
		Expect(err).To(BeNil())
		Expect(events).To(HaveLen(1))
		Expect(events[0].Tags.Value(eventmodel.TagE)).To(Equal("root1"))
		Expect(events[0].Tags.Value(eventmodel.TagMergeCommit)).To(Equal("m2"))
	})

	It("is a no-op when either tip is unknown", func() {
		g := &mergeGit{}
		events, err := authoring.DetectMergeStatuses(g, "", "m2", knownTips, "pub1")
		Expect(err).To(BeNil())
		Expect(events).To(BeEmpty())
	})

	It("is a no-op when there are no known proposal branches", func() {
		g := &mergeGit{}
		events, err := authoring.DetectMergeStatuses(g, "m1", "m2", nil, "pub1")
		Expect(err).To(BeNil())
		Expect(events).To(BeEmpty())
	})
})

// mergeGit implements only the subset of capability.Git DetectMergeStatuses
// exercises: CommitsAheadBehind, CommitInfo, IsAncestor.
type mergeGit struct {
	capability.Git
	ahead   capability.AheadBehind
	commits map[string]capability.CommitInfo
}

func (g *mergeGit) CommitsAheadBehind(base, head string) (capability.AheadBehind, error) {
	return g.ahead, nil
}

func (g *mergeGit) CommitInfo(commit string) (capability.CommitInfo, error) {
	return g.commits[commit], nil
}

func (g *mergeGit) IsAncestor(ancestor, descendant string) (bool, error) {
	return false, nil
}

// probeGit implements only the subset of capability.Git these tests
// exercise: LsRemote, failing failuresRemaining times before succeeding.
type probeGit struct {
	capability.Git
	failuresRemaining int
	calls             int
}

func (g *probeGit) LsRemote(rawURL string) (map[string]string, error) {
	g.calls++
	if g.failuresRemaining > 0 {
		g.failuresRemaining--
		return nil, errProbe{}
	}
	return map[string]string{}, nil
}

type errProbe struct{}

func (errProbe) Error() string { return "not ready" }

type recordingNetwork struct {
	published []*eventmodel.Event
}

func (n *recordingNetwork) Publish(ctx context.Context, relayURL string, ev *eventmodel.Event) error {
	n.published = append(n.published, ev)
	return nil
}

func (n *recordingNetwork) Query(ctx context.Context, relayURL string, filter capability.Filter) ([]*eventmodel.Event, error) {
	return nil, nil
}

var _ capability.Network = (*recordingNetwork)(nil)
