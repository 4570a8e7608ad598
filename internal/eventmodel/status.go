package eventmodel

// Status is the typed view of one of the four status-kind events
// (open/applied/closed/draft) marking a proposal's lifecycle state.
type Status struct {
	*Event
}

// NewStatus wraps e, which must already be one of the status kinds.
func NewStatus(e *Event) (*Status, error) {
	if !e.Kind.IsStatus() {
		return nil, fe(-1, "kind", "not a status event")
	}
	return &Status{e}, nil
}

// Proposal returns the id of the proposal (patch root or pull request)
// this status applies to.
func (s *Status) Proposal() (string, bool) {
	t, ok := s.Tags.Find(TagE)
	if !ok {
		return "", false
	}
	return t.Value(), true
}

// MergeCommit returns the merge commit id attached to an applied status,
// if present.
func (s *Status) MergeCommit() string { return s.Tags.Value(TagMergeCommit) }

// IsAuthoritative reports whether signer is allowed to set this status:
// the proposal author, or a pubkey present in maintainers, may do so.
func (s *Status) IsAuthoritative(proposalAuthor string, maintainers []string) bool {
	if s.PubKey == proposalAuthor {
		return true
	}
	for _, m := range maintainers {
		if m == s.PubKey {
			return true
		}
	}
	return false
}

// ValidateStatus checks that the status references the proposal it
// applies to, and that an applied status carries a well-formed merge
// commit when one is present.
func ValidateStatus(s *Status) error {
	if _, ok := s.Proposal(); !ok {
		return &ErrInvalidEvent{Cause: fe(-1, TagE, "status must reference its proposal")}
	}
	if s.Kind == KindStatusApplied {
		if mc := s.MergeCommit(); mc != "" && !hexSHA1.MatchString(mc) {
			return &ErrInvalidEvent{Cause: fe(-1, TagMergeCommit, "not a 40-hex object id")}
		}
	}
	return nil
}
