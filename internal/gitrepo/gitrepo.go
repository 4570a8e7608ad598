// Package gitrepo implements the narrow git capability (spec.md §4.1)
// the core depends on, wrapping go-git/v5 for the plumbing-level
// operations the library does cleanly and shelling out to the git
// binary, in the style of the teacher's LiteGit, for config and
// mail-format patch operations go-git has no clean API for.
package gitrepo

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/pkg/errors"

	"github.com/make-os/nostrgit/internal/capability"
)

// ErrNotAnAncestor mirrors the teacher's repo.ErrNotAnAncestor sentinel.
var ErrNotAnAncestor = fmt.Errorf("not an ancestor")

// Repo is the production implementation of capability.Git.
type Repo struct {
	*git.Repository
	path       string
	gitBinPath string
}

var _ capability.Git = (*Repo)(nil)

// Open opens the repository at path using the named git binary for the
// shell-out operations (config, patch apply, ls-remote/fetch/send-pack).
func Open(gitBinPath, path string) (*Repo, error) {
	r, err := git.PlainOpen(path)
	if err != nil {
		return nil, errors.Wrap(err, "open repository")
	}
	if gitBinPath == "" {
		gitBinPath = "git"
	}
	return &Repo{Repository: r, path: path, gitBinPath: gitBinPath}, nil
}

func (r *Repo) execGit(args ...string) ([]byte, error) {
	cmd := exec.Command(r.gitBinPath, args...)
	cmd.Dir = r.path
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git %s: %s: %s", strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// References enumerates every ref, reporting symbolic refs as
// "ref: <target>" to match the published-state encoding (spec.md §4.5).
func (r *Repo) References() (map[string]string, error) {
	out := make(map[string]string)

	head, err := r.Repository.Reference(plumbing.HEAD, false)
	if err == nil && head.Type() == plumbing.SymbolicReference {
		out["HEAD"] = "ref: " + string(head.Target())
	}

	iter, err := r.Repository.References()
	if err != nil {
		return nil, errors.Wrap(err, "list references")
	}
	defer iter.Close()
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		if ref.Name() == plumbing.HEAD {
			return nil
		}
		if ref.Type() == plumbing.HashReference {
			out[string(ref.Name())] = ref.Hash().String()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ResolveTip resolves ref to its concrete commit id.
func (r *Repo) ResolveTip(ref string) (string, error) {
	h, err := r.Repository.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		return "", errors.Wrapf(err, "resolve %s", ref)
	}
	return h.String(), nil
}

// IsAncestor reports whether ancestor is an ancestor of (or equal to)
// descendant, mirroring the teacher's Repo.IsAncestor but returning a
// bool instead of a sentinel error. A commit that cannot be resolved is
// returned as an error, which internal/refstate's GitOracle reports as
// unresolvable rather than as "not an ancestor".
func (r *Repo) IsAncestor(ancestor, descendant string) (bool, error) {
	if ancestor == descendant {
		return true, nil
	}
	a, err := r.Repository.CommitObject(plumbing.NewHash(ancestor))
	if err != nil {
		return false, errors.Wrap(err, "resolve ancestor commit")
	}
	d, err := r.Repository.CommitObject(plumbing.NewHash(descendant))
	if err != nil {
		return false, errors.Wrap(err, "resolve descendant commit")
	}
	return a.IsAncestor(d)
}

// CommitsAheadBehind walks the history of head and base and reports the
// commits reachable from one but not the other.
func (r *Repo) CommitsAheadBehind(base, head string) (capability.AheadBehind, error) {
	var result capability.AheadBehind

	baseSet, err := r.ancestorSet(base)
	if err != nil {
		return result, err
	}
	headSet, err := r.ancestorSet(head)
	if err != nil {
		return result, err
	}

	for h := range headSet {
		if !baseSet[h] {
			result.Ahead = append(result.Ahead, h)
		}
	}
	for h := range baseSet {
		if !headSet[h] {
			result.Behind = append(result.Behind, h)
		}
	}
	return result, nil
}

func (r *Repo) ancestorSet(commit string) (map[string]bool, error) {
	set := map[string]bool{}
	c, err := r.Repository.CommitObject(plumbing.NewHash(commit))
	if err != nil {
		return nil, errors.Wrapf(err, "resolve commit %s", commit)
	}
	iter := object.NewCommitIterBSF(c, nil, nil)
	err = iter.ForEach(func(c *object.Commit) error {
		set[c.Hash.String()] = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return set, nil
}

// ApplyPatchChain creates or advances branchName by applying patches, in
// order, via `git am`; it shells out because go-git has no mail-format
// patch applier.
func (r *Repo) ApplyPatchChain(branchName string, patches []string) error {
	if _, err := r.execGit("checkout", "-B", branchName); err != nil {
		return errors.Wrap(err, "checkout branch")
	}
	for i, patch := range patches {
		cmd := exec.Command(r.gitBinPath, "am", "-3", "--quiet")
		cmd.Dir = r.path
		cmd.Stdin = strings.NewReader(patch)
		var stderr bytes.Buffer
		cmd.Stderr = &stderr
		if err := cmd.Run(); err != nil {
			_, _ = r.execGit("am", "--abort")
			return &capability.ErrPatchConflict{
				BranchName: branchName,
				PatchIndex: i,
				Reason:     strings.TrimSpace(stderr.String()),
			}
		}
	}
	return nil
}

// UpdateRef sets name to target via plumbing.HashReference, go-git's
// native ref storer, no shell-out needed.
func (r *Repo) UpdateRef(name, target string) error {
	ref := plumbing.NewHashReference(plumbing.ReferenceName(name), plumbing.NewHash(target))
	return r.Repository.Storer.SetReference(ref)
}

// DeleteRef removes name, a no-op if it does not exist.
func (r *Repo) DeleteRef(name string) error {
	err := r.Repository.Storer.RemoveReference(plumbing.ReferenceName(name))
	if err != nil && err != plumbing.ErrReferenceNotFound {
		return err
	}
	return nil
}

// MakePatchFromCommit renders commit as a mail-format patch string via
// `git format-patch`, numbering its subject when seriesTotal > 0.
func (r *Repo) MakePatchFromCommit(commit string, seriesIndex, seriesTotal int) (string, error) {
	args := []string{"format-patch", "-1", "--stdout", "--no-signature"}
	if seriesTotal > 0 {
		args = append(args, "-N", fmt.Sprintf("--subject-prefix=PATCH %d/%d", seriesIndex, seriesTotal))
	}
	args = append(args, commit)
	out, err := r.execGit(args...)
	if err != nil {
		return "", errors.Wrap(err, "format-patch")
	}
	return string(out), nil
}

// CommitInfo extracts commit metadata, preferring go-git for the fields
// it has a clean API for and `git log --show-signature` for the PGP
// signature, which go-git does not expose.
func (r *Repo) CommitInfo(commit string) (capability.CommitInfo, error) {
	c, err := r.Repository.CommitObject(plumbing.NewHash(commit))
	if err != nil {
		return capability.CommitInfo{}, errors.Wrap(err, "resolve commit")
	}
	info := capability.CommitInfo{
		Hash:      c.Hash.String(),
		Author:    fmt.Sprintf("%s <%s>", c.Author.Name, c.Author.Email),
		Committer: fmt.Sprintf("%s <%s>", c.Committer.Name, c.Committer.Email),
		When:      c.Author.When,
		Message:   c.Message,
		PGPSig:    c.PGPSignature,
	}
	for _, p := range c.ParentHashes {
		info.ParentHashes = append(info.ParentHashes, p.String())
	}
	if len(info.ParentHashes) > 0 {
		info.ParentHash = info.ParentHashes[0]
	}
	return info, nil
}

// configArgs builds the `git config` scope flag for the given scope.
func configArgs(scope string) []string {
	if scope == "global" {
		return []string{"--global"}
	}
	return []string{"--local"}
}

// ConfigGet reads a nostr.* git config key.
func (r *Repo) ConfigGet(scope, key string) (string, bool, error) {
	args := append([]string{"config"}, configArgs(scope)...)
	args = append(args, "--get", key)
	out, err := r.execGit(args...)
	if err != nil {
		return "", false, nil
	}
	return strings.TrimSpace(string(out)), true, nil
}

// ConfigSet writes a nostr.* git config key in the given scope.
func (r *Repo) ConfigSet(scope, key, value string) error {
	args := append([]string{"config"}, configArgs(scope)...)
	args = append(args, key, value)
	_, err := r.execGit(args...)
	return err
}

// ConfigUnset removes a nostr.* git config key from the given scope.
func (r *Repo) ConfigUnset(scope, key string) error {
	args := append([]string{"config"}, configArgs(scope)...)
	args = append(args, "--unset", key)
	_, err := r.execGit(args...)
	return err
}

// LsRemote lists the refs advertised by a git server without mutating
// the local repository.
func (r *Repo) LsRemote(rawURL string) (map[string]string, error) {
	out, err := r.execGit("ls-remote", rawURL)
	if err != nil {
		return nil, errors.Wrapf(err, "ls-remote %s", rawURL)
	}
	refs := make(map[string]string)
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			continue
		}
		refs[fields[1]] = fields[0]
	}
	return refs, nil
}

// FetchPack fetches the given oids from rawURL into the local object
// store.
func (r *Repo) FetchPack(rawURL string, oids []string) error {
	args := append([]string{"fetch", rawURL}, oids...)
	_, err := r.execGit(args...)
	return err
}

// SendPack pushes refspecs to rawURL using ambient credentials (whatever
// git's own credential helper chain resolves).
func (r *Repo) SendPack(rawURL string, refspecs []string) error {
	args := append([]string{"push", rawURL}, refspecs...)
	_, err := r.execGit(args...)
	return err
}
