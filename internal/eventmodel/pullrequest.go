package eventmodel

// PullRequest is the typed view of a KindPullRequest event: a proposal
// that points at a branch tip rather than enumerating individual commits.
type PullRequest struct {
	*Event
}

// NewPullRequest wraps e, which must already be of KindPullRequest.
func NewPullRequest(e *Event) (*PullRequest, error) {
	if e.Kind != KindPullRequest {
		return nil, fe(-1, "kind", "not a pull request")
	}
	return &PullRequest{e}, nil
}

// BaseCommit returns the commit id the pull request is proposed against.
func (pr *PullRequest) BaseCommit() string { return pr.Tags.Value(TagC) }

// HeadCommit returns the commit id at the tip of the proposed branch.
func (pr *PullRequest) HeadCommit() string { return pr.Tags.Value(TagCommit) }

// CloneURLs returns the clone hints a collaborator can fetch the head from.
func (pr *PullRequest) CloneURLs() []string {
	var out []string
	for _, t := range pr.Tags.FindAll(TagClone) {
		out = append(out, t[1:]...)
	}
	return out
}

// Subject returns the pull request's title, if tagged.
func (pr *PullRequest) Subject() string { return pr.Tags.Value(TagSubject) }

// PullRequestUpdate is the typed view of a KindPullRequestUpdate event: a
// later revision of an open pull request's head.
type PullRequestUpdate struct {
	*Event
}

// NewPullRequestUpdate wraps e, which must already be of
// KindPullRequestUpdate.
func NewPullRequestUpdate(e *Event) (*PullRequestUpdate, error) {
	if e.Kind != KindPullRequestUpdate {
		return nil, fe(-1, "kind", "not a pull request update")
	}
	return &PullRequestUpdate{e}, nil
}

// BaseCommit returns the (possibly rebased) base commit for this revision.
func (u *PullRequestUpdate) BaseCommit() string { return u.Tags.Value(TagC) }

// HeadCommit returns the new branch tip this revision proposes.
func (u *PullRequestUpdate) HeadCommit() string { return u.Tags.Value(TagCommit) }

// CloneURLs returns the clone hints for this revision's head.
func (u *PullRequestUpdate) CloneURLs() []string {
	var out []string
	for _, t := range u.Tags.FindAll(TagClone) {
		out = append(out, t[1:]...)
	}
	return out
}

// RootProposal returns the id of the pull request this is a revision of.
func (u *PullRequestUpdate) RootProposal() (string, bool) {
	t, ok := u.Tags.Find(TagBigE)
	if !ok {
		return "", false
	}
	return t.Value(), true
}

func validateCloneAndBase(clones []string, base string, kindName string) error {
	if len(clones) == 0 {
		return &ErrInvalidEvent{Cause: fe(-1, TagClone, kindName+" requires at least one clone hint")}
	}
	for i, c := range clones {
		if len(c) == 0 {
			return &ErrInvalidEvent{Cause: fe(i, TagClone, "empty clone hint")}
		}
	}
	if base == "" {
		return &ErrInvalidEvent{Cause: fe(-1, TagC, kindName+" requires a base commit")}
	}
	if !hexSHA1.MatchString(base) {
		return &ErrInvalidEvent{Cause: fe(-1, TagC, "base commit is not a 40-hex object id")}
	}
	return nil
}

// ValidatePullRequest enforces spec.md §4.3: a pull request must carry at
// least one clone hint and a base commit parseable as a 40-hex object id.
func ValidatePullRequest(pr *PullRequest) error {
	return validateCloneAndBase(pr.CloneURLs(), pr.BaseCommit(), "pull request")
}

// ValidatePullRequestUpdate applies the same rule to a revision event.
func ValidatePullRequestUpdate(u *PullRequestUpdate) error {
	if err := validateCloneAndBase(u.CloneURLs(), u.BaseCommit(), "pull request update"); err != nil {
		return err
	}
	if _, ok := u.RootProposal(); !ok {
		return &ErrInvalidEvent{Cause: fe(-1, TagBigE, "update must reference its pull request root")}
	}
	return nil
}
