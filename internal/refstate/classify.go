// Package refstate implements the ref-state reconciliation classifier
// (spec.md §4.5): a pure function over pre-materialized nostr state,
// per-server state, local tips and the refspecs being pushed. All
// network and git I/O is hoisted to the caller; the only capability
// this package depends on is a synchronous ancestry oracle over commits
// already resolvable in the local object store (spec.md §9 "the
// classifier is synchronous over pre-materialized inputs").
package refstate

import "sort"

// AncestryOracle answers ancestry questions against commits already
// present in the local object store. It performs no network I/O; a
// commit id it cannot resolve locally reports ok=false, which the
// classifier treats as "can't classify".
type AncestryOracle interface {
	// IsAncestor reports whether ancestor is an ancestor of (or equal
	// to) descendant. ok is false if either commit cannot be resolved.
	IsAncestor(ancestor, descendant string) (result bool, ok bool)
	// AheadBehind reports, relative to a common history, commits
	// reachable from head but not base (ahead) and from base but not
	// head (behind). ok is false if either commit cannot be resolved.
	AheadBehind(base, head string) (ahead, behind []string, ok bool)
}

// Input bundles everything the classifier needs, already gathered by
// the discovery/authoring orchestrators (spec.md §4.4/§4.8).
type Input struct {
	// NostrState is the ref map from the newest authoritative RepoState
	// (empty if none exists yet).
	NostrState map[string]string
	// PerServerState is the ls-remote result for each configured server.
	PerServerState map[string]map[string]string
	// LocalTips resolves each refspec's non-empty Src to a commit id.
	LocalTips map[string]string
	// RefSpecs is the batch being processed, in the order git supplied.
	RefSpecs []RefSpec
	// Servers lists the configured git servers in priority order; every
	// refspec is classified against every server in this list.
	Servers []string
}

// Rejection explains why a refspec could not be honoured on one server.
type Rejection struct {
	Server string
	Reason string
}

// Result is the classifier's output.
type Result struct {
	// RejectedRefspecs maps a raw refspec to the per-server reasons it
	// was rejected. A refspec present here is rejected on every server.
	RejectedRefspecs map[string][]Rejection
	// PerServerPlan is what to actually send to each server, force
	// prefix auto-injected where required. Only refspecs that survive
	// (are not in RejectedRefspecs) appear here.
	PerServerPlan map[string][]string
	// NewState is the ref map to publish after a successful push.
	NewState map[string]string
	// NoopRefspecs lists refspecs that classified as a no-op on every
	// server that carried them (already up to date).
	NoopRefspecs []string
}

type perServerOutcome struct {
	included bool
	refspec  string // the (possibly force-prefixed) string to send
	rejected *Rejection
	noop     bool
}

// Classify runs the per-(refspec, server) algorithm from spec.md §4.5
// and assembles the global result.
func Classify(in Input, oracle AncestryOracle) Result {
	res := Result{
		RejectedRefspecs: map[string][]Rejection{},
		PerServerPlan:    map[string][]string{},
		NewState:         copyState(in.NostrState),
	}
	for _, s := range in.Servers {
		res.PerServerPlan[s] = nil
	}

	for _, rs := range in.RefSpecs {
		outcomes := make(map[string]perServerOutcome, len(in.Servers))
		for _, server := range in.Servers {
			outcomes[server] = classifyOne(rs, server, in, oracle)
		}

		rejected := collectRejections(outcomes)
		if len(rejected) > 0 {
			res.RejectedRefspecs[rs.Raw] = rejected
			continue
		}

		allNoop := true
		for _, server := range in.Servers {
			o := outcomes[server]
			if !o.included {
				continue
			}
			res.PerServerPlan[server] = append(res.PerServerPlan[server], o.refspec)
			if !o.noop {
				allNoop = false
			}
		}
		if allNoop && anyIncluded(outcomes) {
			res.NoopRefspecs = append(res.NoopRefspecs, rs.Raw)
		}

		applyToState(res.NewState, rs, in.LocalTips)
	}

	return res
}

func anyIncluded(outcomes map[string]perServerOutcome) bool {
	for _, o := range outcomes {
		if o.included {
			return true
		}
	}
	return false
}

func collectRejections(outcomes map[string]perServerOutcome) []Rejection {
	var out []Rejection
	servers := make([]string, 0, len(outcomes))
	for s := range outcomes {
		servers = append(servers, s)
	}
	sort.Strings(servers)
	for _, s := range servers {
		if o := outcomes[s]; o.rejected != nil {
			out = append(out, *o.rejected)
		}
	}
	return out
}

func classifyOne(rs RefSpec, server string, in Input, oracle AncestryOracle) perServerOutcome {
	serverRefs := in.PerServerState[server]

	if rs.IsDelete() {
		if serverRefs != nil {
			if _, ok := serverRefs[rs.Dst]; ok {
				return perServerOutcome{included: true, refspec: rs.Raw}
			}
		}
		return perServerOutcome{included: false}
	}

	fromTip, ok := in.LocalTips[rs.Src]
	if !ok || fromTip == "" {
		return perServerOutcome{rejected: &Rejection{Server: server, Reason: "local source ref not resolvable"}}
	}

	n, nOK := in.NostrState[rs.Dst]
	s, sOK := serverRefs[rs.Dst]

	switch {
	case !nOK && !sOK:
		// new branch.
		return perServerOutcome{included: true, refspec: rs.Raw}

	case !nOK && sOK:
		isAncestor, known := oracle.IsAncestor(s, fromTip)
		if !known {
			return perServerOutcome{rejected: &Rejection{Server: server, Reason: "remote value not locally known"}}
		}
		if isAncestor {
			return perServerOutcome{included: true, refspec: rs.Raw}
		}
		return perServerOutcome{rejected: &Rejection{Server: server, Reason: "remote has work not in local"}}

	case nOK && !sOK:
		return perServerOutcome{included: true, refspec: rs.Raw}

	case n == s:
		isAncestor, known := oracle.IsAncestor(s, fromTip)
		if !known {
			return perServerOutcome{rejected: &Rejection{Server: server, Reason: "remote value not locally known"}}
		}
		if isAncestor {
			return perServerOutcome{included: true, refspec: rs.Raw}
		}
		return perServerOutcome{included: true, refspec: WithForce(rs.Raw, true)}

	default: // n != s, both present
		if fromTip == s {
			return perServerOutcome{included: true, refspec: rs.Raw, noop: true}
		}
		_, behind, known := oracle.AheadBehind(s, n)
		if !known {
			return perServerOutcome{rejected: &Rejection{Server: server, Reason: "remote value not locally known"}}
		}
		if len(behind) == 0 {
			return perServerOutcome{included: true, refspec: rs.Raw}
		}
		return perServerOutcome{rejected: &Rejection{Server: server, Reason: "conflicts with nostr"}}
	}
}

func applyToState(state map[string]string, rs RefSpec, localTips map[string]string) {
	if rs.IsDelete() {
		delete(state, rs.Dst)
		return
	}
	state[rs.Dst] = localTips[rs.Src]
}

func copyState(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
