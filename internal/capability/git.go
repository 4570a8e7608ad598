package capability

import (
	"strconv"
	"time"
)

// CommitInfo is the metadata the core needs out of a commit: enough to
// build a patch event or display a proposal summary, never the full
// object graph.
type CommitInfo struct {
	Hash         string
	ParentHash   string   // first parent, empty for a root commit
	ParentHashes []string // every parent, more than one for a merge commit
	Author       string
	Committer    string
	When         time.Time
	Message      string
	PGPSig       string // empty if unsigned
}

// AheadBehind is the result of comparing two commit tips.
type AheadBehind struct {
	Ahead  []string // commit ids reachable from head but not base
	Behind []string // commit ids reachable from base but not head
}

// Git is the narrow capability the core depends on for every git
// operation it performs (spec.md §4.1) — nothing else reaches into the
// repository or shells out to git.
type Git interface {
	// References enumerates every ref the repository currently holds
	// along with its target, symbolic refs reported as "ref: <target>".
	References() (map[string]string, error)
	// ResolveTip resolves ref to its concrete commit id, following a
	// symbolic ref if necessary.
	ResolveTip(ref string) (string, error)
	// IsAncestor reports whether ancestor is an ancestor of (or equal
	// to) descendant.
	IsAncestor(ancestor, descendant string) (bool, error)
	// CommitsAheadBehind compares base and head, returning commits
	// reachable from each but not the other.
	CommitsAheadBehind(base, head string) (AheadBehind, error)

	// ApplyPatchChain creates or advances branchName by applying
	// patches, in order, as mail-format patches. Fails with
	// ErrPatchConflict if any patch does not apply cleanly.
	ApplyPatchChain(branchName string, patches []string) error
	// UpdateRef sets name to target, used to keep refs/remotes/<remote>/*
	// in sync with what was actually pushed.
	UpdateRef(name, target string) error
	// DeleteRef removes name, a no-op if it does not exist.
	DeleteRef(name string) error
	// MakePatchFromCommit renders commit as a mail-format patch string,
	// numbering it seriesIndex/seriesTotal in its subject when total > 0.
	MakePatchFromCommit(commit string, seriesIndex, seriesTotal int) (string, error)

	// CommitInfo extracts metadata for commit.
	CommitInfo(commit string) (CommitInfo, error)

	// ConfigGet reads a nostr.* git config key. scope is "local" or
	// "global"; ok is false if the key is unset in that scope.
	ConfigGet(scope, key string) (value string, ok bool, err error)
	// ConfigSet writes a nostr.* git config key in the given scope.
	ConfigSet(scope, key, value string) error
	// ConfigUnset removes a nostr.* git config key from the given scope.
	ConfigUnset(scope, key string) error

	// LsRemote lists the refs advertised by a git server at rawURL,
	// without mutating the local repository.
	LsRemote(rawURL string) (map[string]string, error)
	// FetchPack fetches the given oids from rawURL into the local
	// object store.
	FetchPack(rawURL string, oids []string) error
	// SendPack pushes refspecs to rawURL, using ambient credentials.
	SendPack(rawURL string, refspecs []string) error
}

// ErrPatchConflict is returned by ApplyPatchChain when a patch in the
// chain fails to apply onto the branch's current tip.
type ErrPatchConflict struct {
	BranchName string
	PatchIndex int
	Reason     string
}

func (e *ErrPatchConflict) Error() string {
	return "patch " + strconv.Itoa(e.PatchIndex) + " failed to apply onto " + e.BranchName + ": " + e.Reason
}
