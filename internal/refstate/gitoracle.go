package refstate

import "github.com/make-os/nostrgit/internal/capability"

// GitOracle adapts a capability.Git to AncestryOracle: every question is
// answered from the local object store, never the network, matching the
// classifier's synchronous contract.
type GitOracle struct {
	Git capability.Git
}

var _ AncestryOracle = (*GitOracle)(nil)

// IsAncestor reports whether ancestor is an ancestor of (or equal to)
// descendant, treating any resolution error as unresolvable rather than
// failing the whole classification.
func (o *GitOracle) IsAncestor(ancestor, descendant string) (bool, bool) {
	result, err := o.Git.IsAncestor(ancestor, descendant)
	if err != nil {
		return false, false
	}
	return result, true
}

// AheadBehind reports commits reachable from head but not base, and
// from base but not head.
func (o *GitOracle) AheadBehind(base, head string) ([]string, []string, bool) {
	ab, err := o.Git.CommitsAheadBehind(base, head)
	if err != nil {
		return nil, nil, false
	}
	return ab.Ahead, ab.Behind, true
}
