package remotehelper

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/make-os/nostrgit/internal/authoring"
	"github.com/make-os/nostrgit/internal/refstate"
)

// handlePushBatch implements spec.md §4.7's push contract: classify the
// whole batch (C5), publish the new state event before any git-server
// push, execute the per-server plans, then emit ok/error per original
// refspec in batch order.
func (s *Session) handlePushBatch(in *bufio.Scanner, w *bufio.Writer, first string) error {
	var rawSpecs []string
	line := first
	for {
		fields := strings.Fields(line)
		if len(fields) >= 2 {
			rawSpecs = append(rawSpecs, fields[1])
		}
		if !in.Scan() {
			break
		}
		line = in.Text()
		if line == "" {
			break
		}
	}

	var parsed []refstate.RefSpec
	for _, raw := range rawSpecs {
		rs, err := refstate.ParseRefSpec(raw)
		if err != nil {
			fmt.Fprintf(w, "error %s %s\n", raw, err)
			continue
		}
		parsed = append(parsed, rs)
	}

	nostrState, err := s.Resolve()
	if err != nil {
		return err
	}

	localTips := map[string]string{}
	for _, rs := range parsed {
		if rs.IsDelete() {
			continue
		}
		if tip, err := s.Git.ResolveTip(rs.Src); err == nil {
			localTips[rs.Src] = tip
		}
	}

	perServer := map[string]map[string]string{}
	for _, srv := range s.Servers {
		refs, err := s.Git.LsRemote(srv)
		if err != nil {
			if s.Log != nil {
				s.Log.Warn("ls-remote failed", "server", srv, "err", err)
			}
			perServer[srv] = map[string]string{}
			continue
		}
		perServer[srv] = refs
	}

	result := refstate.Classify(refstate.Input{
		NostrState:     nostrState,
		PerServerState: perServer,
		LocalTips:      localTips,
		RefSpecs:       parsed,
		Servers:        s.Servers,
	}, s.Oracle)

	if len(result.NewState) > 0 || len(nostrState) > 0 {
		stateChanged := !stateEquals(nostrState, result.NewState)
		if stateChanged {
			if err := s.PublishState(result.NewState); err != nil {
				return fmt.Errorf("publish state: %w", err)
			}
		}
	}

	for srv, refspecs := range result.PerServerPlan {
		if len(refspecs) == 0 {
			continue
		}
		if err := s.Git.SendPack(srv, refspecs); err != nil && s.Log != nil {
			s.Log.Warn("push to server failed", "server", srv, "err", err)
		}
	}

	var landed []refstate.RefSpec
	for _, rs := range parsed {
		if reasons, rejected := result.RejectedRefspecs[rs.Raw]; rejected {
			fmt.Fprintf(w, "error %s %s\n", rs.Dst, reasons[0].Reason)
			continue
		}
		fmt.Fprintf(w, "ok %s\n", rs.Dst)
		s.updateRemoteTrackingRef(rs)
		if !rs.IsDelete() {
			landed = append(landed, rs)
		}
	}

	if err := s.detectAndPublishMerges(nostrState, result.NewState, landed); err != nil && s.Log != nil {
		s.Log.Warn("merge detection failed", "err", err)
	}

	fmt.Fprintln(w)
	return nil
}

// detectAndPublishMerges implements spec.md §4.6: for every landed
// refspec targeting the default branch, scan the commits it newly
// brought in for a merge of a known proposal branch, and publish an
// applied status for each match. Disabled when the session carries no
// KnownProposalBranches/PublishStatus callbacks, e.g. in tests that
// don't exercise this flow.
func (s *Session) detectAndPublishMerges(oldState, newState map[string]string, landed []refstate.RefSpec) error {
	if s.KnownProposalBranches == nil || s.PublishStatus == nil {
		return nil
	}

	var onDefaultBranch bool
	for _, rs := range landed {
		if defaultBranchRefs[rs.Dst] {
			onDefaultBranch = true
			break
		}
	}
	if !onDefaultBranch {
		return nil
	}

	knownTips, err := s.KnownProposalBranches()
	if err != nil {
		return fmt.Errorf("load known proposal branches: %w", err)
	}
	if len(knownTips) == 0 {
		return nil
	}

	for _, rs := range landed {
		if !defaultBranchRefs[rs.Dst] {
			continue
		}
		events, err := authoring.DetectMergeStatuses(s.Git, oldState[rs.Dst], newState[rs.Dst], knownTips, s.PubKey)
		if err != nil {
			return fmt.Errorf("scan %s for merges: %w", rs.Dst, err)
		}
		for _, ev := range events {
			if err := s.PublishStatus(ev); err != nil {
				return fmt.Errorf("publish applied status: %w", err)
			}
		}
	}
	return nil
}

func (s *Session) updateRemoteTrackingRef(rs refstate.RefSpec) {
	if s.Remote == "" {
		return
	}
	tracking := fmt.Sprintf("refs/remotes/%s/%s", s.Remote, strings.TrimPrefix(rs.Dst, "refs/heads/"))
	if rs.IsDelete() {
		_ = s.Git.DeleteRef(tracking)
		return
	}
	if tip, err := s.Git.ResolveTip(rs.Src); err == nil {
		_ = s.Git.UpdateRef(tracking, tip)
	}
}

func stateEquals(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}
