// Command git-remote-nostr is the git remote-helper git invokes for any
// nostr:// remote (gitremote-helpers(7)). git runs it as
//
//	git-remote-nostr <remote-name> <url>
//
// and speaks the capabilities/list/fetch/push line protocol over its
// stdin/stdout (spec.md §4.7); internal/remotehelper.Session implements
// that loop, this command only wires its dependencies together.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/make-os/nostrgit/internal/authoring"
	"github.com/make-os/nostrgit/internal/capability"
	"github.com/make-os/nostrgit/internal/discovery"
	"github.com/make-os/nostrgit/internal/eventcache"
	"github.com/make-os/nostrgit/internal/eventmodel"
	"github.com/make-os/nostrgit/internal/gitrepo"
	"github.com/make-os/nostrgit/internal/localsigner"
	"github.com/make-os/nostrgit/internal/nostrurl"
	"github.com/make-os/nostrgit/internal/proposal"
	"github.com/make-os/nostrgit/internal/refstate"
	"github.com/make-os/nostrgit/internal/relay"
	"github.com/make-os/nostrgit/internal/remotehelper"
	"github.com/make-os/nostrgit/pkgs/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "git-remote-nostr:", err)
		os.Exit(1)
	}
}

func run() error {
	if len(os.Args) < 3 {
		return fmt.Errorf("usage: git-remote-nostr <remote-name> <url>")
	}
	remoteName, rawURL := os.Args[1], os.Args[2]

	log := logger.NewLogrus()
	if os.Getenv("GIT_TRACE") != "" {
		log.SetToDebug()
	}
	log = log.Module("git-remote-nostr").(*logger.LogrusWrapper)

	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	git, err := gitrepo.Open("git", cwd)
	if err != nil {
		return fmt.Errorf("open repository: %w", err)
	}

	decoded, err := nostrurl.ParseURL(rawURL)
	if err != nil {
		return fmt.Errorf("parse remote url: %w", err)
	}

	signer, err := localsigner.FromGitConfig(func(key string) (string, bool, error) {
		return git.ConfigGet("global", key)
	})
	if err != nil {
		return err
	}

	cachePath := filepath.Join(cwd, ".git", "nostrgit-cache")
	cache, err := eventcache.Open(cachePath)
	if err != nil {
		return fmt.Errorf("open event cache: %w", err)
	}
	defer cache.Close()

	net := &relay.Client{}
	orch := &discovery.Orchestrator{Net: net, Cache: cache, Relays: decoded.Relays, Log: log}

	ctx := context.Background()
	refs, err := resolveAll(ctx, orch, decoded)
	if err != nil {
		return err
	}

	servers := collectServers(refs)

	pub, err := signer.PublicKey(ctx)
	if err != nil {
		return err
	}

	session := &remotehelper.Session{
		Git:     git,
		Log:     log,
		Remote:  remoteName,
		Servers: servers,
		Resolve: func() (map[string]string, error) {
			return mergeState(refs), nil
		},
		PublishState: func(newState map[string]string) error {
			return publishState(ctx, net, decoded, refs, signer, newState)
		},
		Oracle: &refstate.GitOracle{Git: git},

		PubKey: pub,
		KnownProposalBranches: func() ([]proposal.KnownBranchTip, error) {
			return knownBranchTips(refs), nil
		},
		PublishStatus: func(ev *eventmodel.Event) error {
			return authoring.PublishEvent(ctx, net, decoded.Relays, ev, func(digest []byte) ([]byte, error) {
				return signer.Sign(ctx, digest)
			})
		},
	}

	return session.Run(os.Stdin, os.Stdout)
}

// resolveAll resolves every coordinate the url names, almost always
// exactly one (spec.md §4.2 allows more only for multi-coordinate
// aggregation, which this command merges conservatively).
func resolveAll(ctx context.Context, orch *discovery.Orchestrator, decoded *nostrurl.NostrUrlDecoded) ([]*discovery.RepoRef, error) {
	var out []*discovery.RepoRef
	for coord := range decoded.Coordinates {
		ref, err := orch.Resolve(ctx, coord, decoded.Relays)
		if err != nil {
			return nil, fmt.Errorf("resolve %s/%s: %w", coord.Author, coord.Identifier, err)
		}
		out = append(out, ref)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("nostr url names no repository coordinate")
	}
	return out, nil
}

func collectServers(refs []*discovery.RepoRef) []string {
	seen := map[string]bool{}
	var servers []string
	for _, ref := range refs {
		for _, raw := range ref.Announcement.CloneURLs() {
			norm, err := nostrurl.NormalizeCloneURL(raw)
			if err != nil {
				continue
			}
			if !seen[norm] {
				seen[norm] = true
				servers = append(servers, norm)
			}
		}
	}
	sort.Strings(servers)
	return servers
}

// knownBranchTips collects every open proposal's derived local branch
// name and current head commit across every resolved coordinate, the
// lookup table merge detection (spec.md §4.6) matches a pushed commit's
// parents against.
func knownBranchTips(refs []*discovery.RepoRef) []proposal.KnownBranchTip {
	var out []proposal.KnownBranchTip
	for _, ref := range refs {
		for _, p := range ref.Proposals {
			tip := proposal.Tip(p.Chain)
			if tip == nil {
				continue
			}
			commit := proposal.TipCommit(p.Chain)
			if commit == "" {
				continue
			}
			hint := tip.Tags.Value(eventmodel.TagSubject)
			out = append(out, proposal.KnownBranchTip{
				BranchName: proposal.DeriveBranchName(hint, p.RootID),
				ProposalID: p.RootID,
				Tip:        commit,
				TipEventID: tip.ID,
			})
		}
	}
	return out
}

func mergeState(refs []*discovery.RepoRef) map[string]string {
	merged := map[string]string{}
	for _, ref := range refs {
		for name, target := range ref.State {
			merged[name] = target
		}
	}
	return merged
}

// publishState builds and publishes a new KindRepoState event for the
// first resolved coordinate; multi-coordinate pushes are out of scope
// (spec.md Non-goals).
func publishState(ctx context.Context, net capability.Network, decoded *nostrurl.NostrUrlDecoded, refs []*discovery.RepoRef, signer *localsigner.Signer, newState map[string]string) error {
	identifier := refs[0].Announcement.Identifier()
	pub, err := signer.PublicKey(ctx)
	if err != nil {
		return err
	}
	ev, err := authoring.BuildState(identifier, newState, pub)
	if err != nil {
		return err
	}
	return authoring.PublishEvent(ctx, net, decoded.Relays, ev, func(digest []byte) ([]byte, error) {
		return signer.Sign(ctx, digest)
	})
}
