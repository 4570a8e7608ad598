package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/make-os/nostrgit/internal/authoring"
	"github.com/make-os/nostrgit/internal/capability"
	"github.com/make-os/nostrgit/internal/discovery"
	"github.com/make-os/nostrgit/internal/eventcache"
	"github.com/make-os/nostrgit/internal/eventmodel"
	"github.com/make-os/nostrgit/internal/gitrepo"
	"github.com/make-os/nostrgit/internal/localsigner"
	"github.com/make-os/nostrgit/internal/nostrurl"
	"github.com/make-os/nostrgit/internal/proposal"
	"github.com/make-os/nostrgit/internal/relay"
)

var sendCmd = &cobra.Command{
	Use:   "send <nostr-url>",
	Short: "Publish the current branch as a patch series or pull request",
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return fmt.Errorf("nostr:// url is required")
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		base, _ := cmd.Flags().GetString("base")
		subject, _ := cmd.Flags().GetString("subject")

		decoded, err := nostrurl.ParseURL(args[0])
		if err != nil {
			return err
		}
		var coord nostrurl.RepoCoordinate
		for c := range decoded.Coordinates {
			coord = c
			break
		}
		if coord.Author == "" {
			return fmt.Errorf("nostr:// url names no repository coordinate")
		}

		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		git, err := gitrepo.Open(viper.GetString("gitbin"), cwd)
		if err != nil {
			return fmt.Errorf("open repository: %w", err)
		}

		signer, err := localsigner.FromGitConfig(func(key string) (string, bool, error) {
			return git.ConfigGet("global", key)
		})
		if err != nil {
			return err
		}
		pub, err := signer.PublicKey(cmd.Context())
		if err != nil {
			return err
		}

		refs, err := git.References()
		if err != nil {
			return err
		}
		branch, err := currentBranch(refs)
		if err != nil {
			return err
		}
		if subject == "" {
			subject = branch
		}

		headCommit, err := git.ResolveTip("refs/heads/" + branch)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", branch, err)
		}
		if base == "" {
			base = "main"
		}
		baseCommit, err := git.ResolveTip("refs/heads/" + base)
		if err != nil {
			return fmt.Errorf("resolve base %s: %w", base, err)
		}

		ab, err := git.CommitsAheadBehind(baseCommit, headCommit)
		if err != nil {
			return err
		}
		if len(ab.Ahead) == 0 {
			return fmt.Errorf("%s is not ahead of %s, nothing to send", branch, base)
		}

		cache, err := eventcache.Open(filepath.Join(cwd, ".git", "nostrgit-cache"))
		if err != nil {
			return fmt.Errorf("open event cache: %w", err)
		}
		defer cache.Close()

		ctx := context.Background()
		orch := &discovery.Orchestrator{Net: &relay.Client{}, Cache: cache, Relays: decoded.Relays, Log: log}
		ref, err := orch.Resolve(ctx, coord, decoded.Relays)
		if err != nil {
			return fmt.Errorf("resolve repository: %w", err)
		}

		rootID, tipIsPR := matchExisting(ref.Proposals, branch)

		ordered, err := orderCommits(git, ab.Ahead, headCommit, baseCommit)
		if err != nil {
			return err
		}

		commits := make([]capability.CommitInfo, len(ordered))
		patchTexts := make([]string, len(ordered))
		for i, info := range ordered {
			commits[i] = info
			text, err := git.MakePatchFromCommit(info.Hash, i+1, len(ordered))
			if err != nil {
				return fmt.Errorf("render patch for %s: %w", info.Hash, err)
			}
			patchTexts[i] = text
		}

		events, err := authoring.ChooseAndBuild(
			tipIsPR, commits, patchTexts, subject,
			baseCommit, headCommit, ref.Announcement.CloneURLs(),
			pub, rootID,
		)
		if err != nil {
			return err
		}

		signFn := func(digest []byte) ([]byte, error) { return signer.Sign(ctx, digest) }
		if len(events) > 1 {
			if err := authoring.FinalizeSeries(events, signFn); err != nil {
				return err
			}
		} else {
			if err := eventmodel.Finalize(events[0], signFn); err != nil {
				return err
			}
		}

		net := &relay.Client{}
		relays := decoded.Relays
		if len(relays) == 0 {
			relays = viper.GetStringSlice("relay")
		}
		for _, ev := range events {
			for _, r := range relays {
				if err := net.Publish(ctx, r, ev); err != nil {
					return fmt.Errorf("publish %s to %s: %w", ev.ID, r, err)
				}
			}
		}

		fmt.Printf("Published %d event(s) for %s\n", len(events), branch)
		return nil
	},
}

// orderCommits walks head back to base via parent links, since
// CommitsAheadBehind's Ahead set carries no ordering, and returns the
// ahead commits oldest first for patch-series numbering.
func orderCommits(git capability.Git, ahead []string, head, base string) ([]capability.CommitInfo, error) {
	aheadSet := make(map[string]bool, len(ahead))
	for _, h := range ahead {
		aheadSet[h] = true
	}

	var ordered []capability.CommitInfo
	cur := head
	for cur != "" && cur != base && aheadSet[cur] {
		info, err := git.CommitInfo(cur)
		if err != nil {
			return nil, fmt.Errorf("commit info for %s: %w", cur, err)
		}
		ordered = append(ordered, info)
		cur = info.ParentHash
	}
	for i, j := 0, len(ordered)-1; i < j; i, j = i+1, j-1 {
		ordered[i], ordered[j] = ordered[j], ordered[i]
	}
	if len(ordered) != len(ahead) {
		return nil, fmt.Errorf("branch history is not a single linear chain onto its base; merge commits are not supported for patch series")
	}
	return ordered, nil
}

func currentBranch(refs map[string]string) (string, error) {
	target, ok := refs["HEAD"]
	if !ok || !strings.HasPrefix(target, "ref: refs/heads/") {
		return "", fmt.Errorf("HEAD is not attached to a branch")
	}
	return strings.TrimPrefix(target, "ref: refs/heads/"), nil
}

// matchExisting finds a proposal whose derived branch name matches
// branch, reporting its root id so the caller publishes a revision
// instead of a brand new proposal (spec.md §4.6), and whether that
// proposal's tip has already committed to the pull-request form. Only
// the latter forces ChooseAndBuild into PR form; matching a still-patch-
// series proposal continues it as a patch series unless the commit
// count alone crosses proposal.MaxPatchSeriesCommits, mirroring
// as_pr's two-part condition in the original send subcommand
// (root_proposal.is_some() && proposal_tip_is_pr_or_pr_update(...)).
func matchExisting(proposals []*discovery.Proposal, branch string) (rootID string, tipIsPR bool) {
	for _, p := range proposals {
		tip := proposal.Tip(p.Chain)
		if tip == nil {
			continue
		}
		hint := tip.Tags.Value(eventmodel.TagSubject)
		if proposal.MatchBranch(branch, proposal.DeriveBranchName(hint, p.RootID)) {
			return p.RootID, proposal.TipIsPullRequestOrUpdate(p.Chain)
		}
	}
	return "", false
}

func init() {
	rootCmd.AddCommand(sendCmd)
	f := sendCmd.Flags()
	f.String("base", "main", "Branch this series/pull request is based on")
	f.String("subject", "", "Cover letter / pull request subject (defaults to the branch name)")
}
