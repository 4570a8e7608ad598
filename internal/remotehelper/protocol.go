// Package remotehelper implements the git remote-helper line protocol
// (gitremote-helpers(7), spec.md §4.7): a strictly single-threaded,
// line-synchronous loop over stdin/stdout driving discovery (C4) and
// ref-state reconciliation (C5) on the caller's behalf. No operation
// starts until its full batch has been read.
package remotehelper

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/make-os/nostrgit/internal/capability"
	"github.com/make-os/nostrgit/internal/eventmodel"
	"github.com/make-os/nostrgit/internal/proposal"
	"github.com/make-os/nostrgit/internal/refstate"
	"github.com/make-os/nostrgit/pkgs/logger"
)

// defaultBranchRefs are the refs merge detection (spec.md §4.6) watches
// a push for; a repository conventionally has at most one of these.
var defaultBranchRefs = map[string]bool{
	"refs/heads/main":   true,
	"refs/heads/master": true,
}

// Session drives one remote-helper invocation: one capabilities/list/
// fetch/push exchange for a single nostr:// remote.
type Session struct {
	Git     capability.Git
	Log     logger.Logger
	Remote  string // the configured remote name, for refs/remotes/<remote>/*
	Servers []string

	// Resolve produces the discovery view and state needed to answer
	// list/push; supplied by the caller so this package stays free of
	// network/cache wiring concerns.
	Resolve func() (nostrState map[string]string, err error)
	// PublishState publishes a new state event and returns once it has
	// been accepted, before any git-server push is attempted.
	PublishState func(newState map[string]string) error
	// Oracle answers the ancestry questions C5 needs.
	Oracle refstate.AncestryOracle

	// PubKey is this session's signing identity, attached to any status
	// event it authors off the back of a push.
	PubKey string
	// KnownProposalBranches supplies every open proposal's derived
	// branch name and current tip, for merge detection (spec.md §4.6)
	// on a push that lands commits on the default branch. Nil disables
	// merge detection.
	KnownProposalBranches func() ([]proposal.KnownBranchTip, error)
	// PublishStatus publishes a status event authored by merge
	// detection (e.g. an "applied" status on merge).
	PublishStatus func(ev *eventmodel.Event) error
}

// Run executes the protocol loop against r/w until stdin is exhausted.
func (s *Session) Run(r io.Reader, w io.Writer) error {
	in := bufio.NewScanner(r)
	in.Buffer(make([]byte, 64*1024), 1<<20)
	out := bufio.NewWriter(w)
	defer out.Flush()

	for in.Scan() {
		line := in.Text()
		switch {
		case line == "capabilities":
			if err := s.handleCapabilities(out); err != nil {
				return err
			}
		case line == "list" || line == "list for-push":
			if err := s.handleList(out, line == "list for-push"); err != nil {
				return err
			}
		case strings.HasPrefix(line, "option "):
			if err := s.handleOption(out, line); err != nil {
				return err
			}
		case strings.HasPrefix(line, "fetch "):
			if err := s.handleFetchBatch(in, out, line); err != nil {
				return err
			}
		case strings.HasPrefix(line, "push "):
			if err := s.handlePushBatch(in, out, line); err != nil {
				return err
			}
		case line == "":
			continue
		default:
			return fmt.Errorf("remote-helper protocol violation: unrecognized command %q", line)
		}
		out.Flush()
	}
	return in.Err()
}

func (s *Session) handleCapabilities(w *bufio.Writer) error {
	fmt.Fprintln(w, "option")
	fmt.Fprintln(w, "push")
	fmt.Fprintln(w, "fetch")
	fmt.Fprintln(w)
	return nil
}

func (s *Session) handleOption(w *bufio.Writer, line string) error {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		fmt.Fprintln(w, "unsupported")
		return nil
	}
	if fields[1] == "verbosity" {
		fmt.Fprintln(w, "ok")
		return nil
	}
	fmt.Fprintln(w, "unsupported")
	return nil
}

func (s *Session) handleList(w *bufio.Writer, forPush bool) error {
	nostrState, err := s.Resolve()
	if err != nil {
		return err
	}

	perServer := map[string]map[string]string{}
	for _, srv := range s.Servers {
		refs, err := s.Git.LsRemote(srv)
		if err != nil {
			if s.Log != nil {
				s.Log.Warn("ls-remote failed", "server", srv, "err", err)
			}
			continue
		}
		perServer[srv] = refs
	}
	for _, srv := range s.Servers {
		for _, d := range refstate.DetectDrift(srv, nostrState, perServer[srv], s.Oracle) {
			if s.Log != nil {
				s.Log.Warn(d.String())
			}
		}
	}

	names := make([]string, 0, len(nostrState))
	for name := range nostrState {
		if name == "HEAD" {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		value := nostrState[name]
		if strings.HasPrefix(value, "ref: ") {
			fmt.Fprintf(w, "@%s %s\n", strings.TrimPrefix(value, "ref: "), name)
		} else {
			fmt.Fprintf(w, "%s %s\n", value, name)
		}
	}

	if !forPush {
		if head, ok := s.resolveHead(nostrState, perServer); ok {
			if strings.HasPrefix(head, "ref: ") {
				fmt.Fprintf(w, "@%s HEAD\n", strings.TrimPrefix(head, "ref: "))
			} else {
				fmt.Fprintf(w, "%s HEAD\n", head)
			}
		}
	}
	fmt.Fprintln(w)
	return nil
}

// resolveHead answers nostrState's HEAD entry, falling back to the first
// configured server's own HEAD (spec.md §8) when nostrState's HEAD
// targets a ref with no corresponding entry in the same state map — a
// malformed state a maintainer could have published by hand.
func (s *Session) resolveHead(nostrState map[string]string, perServer map[string]map[string]string) (string, bool) {
	value, ok := nostrState["HEAD"]
	if !ok {
		return s.firstServerHead(perServer)
	}
	if target := strings.TrimPrefix(value, "ref: "); target != value {
		if _, ok := nostrState[target]; !ok {
			if s.Log != nil {
				s.Log.Warn("nostr state HEAD targets an unknown ref, falling back to first server's HEAD", "target", target)
			}
			return s.firstServerHead(perServer)
		}
	}
	return value, true
}

func (s *Session) firstServerHead(perServer map[string]map[string]string) (string, bool) {
	if len(s.Servers) == 0 {
		return "", false
	}
	refs, ok := perServer[s.Servers[0]]
	if !ok {
		return "", false
	}
	head, ok := refs["HEAD"]
	return head, ok
}

func (s *Session) handleFetchBatch(in *bufio.Scanner, w *bufio.Writer, first string) error {
	oids := map[string]bool{}
	line := first
	for {
		fields := strings.Fields(line)
		if len(fields) >= 2 {
			oids[fields[1]] = true
		}
		if !in.Scan() {
			break
		}
		line = in.Text()
		if line == "" {
			break
		}
	}

	oidList := make([]string, 0, len(oids))
	for oid := range oids {
		oidList = append(oidList, oid)
	}
	sort.Strings(oidList)

	var lastErr error
	satisfied := false
	for _, srv := range s.Servers {
		if err := s.Git.FetchPack(srv, oidList); err != nil {
			lastErr = err
			continue
		}
		satisfied = true
		break
	}
	if !satisfied {
		return fmt.Errorf("fetch failed against every configured server: %w", lastErr)
	}
	fmt.Fprintln(w)
	return nil
}
