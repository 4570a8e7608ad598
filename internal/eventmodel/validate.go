package eventmodel

// Validate runs the syntactic checks appropriate to e's kind. It does not
// verify the signature; callers that need trust guarantees should call
// VerifySignature first, and apply any author/maintainer consistency
// check (see ErrConsistency) after parsing into the concrete typed view.
func Validate(e *Event) error {
	switch e.Kind {
	case KindRepoAnnouncement:
		a, err := NewAnnouncement(e)
		if err != nil {
			return err
		}
		return ValidateAnnouncement(a)
	case KindRepoState:
		s, err := NewState(e)
		if err != nil {
			return err
		}
		return ValidateState(s)
	case KindPatch:
		p, err := NewPatch(e)
		if err != nil {
			return err
		}
		return ValidatePatch(p)
	case KindPullRequest:
		pr, err := NewPullRequest(e)
		if err != nil {
			return err
		}
		return ValidatePullRequest(pr)
	case KindPullRequestUpdate:
		u, err := NewPullRequestUpdate(e)
		if err != nil {
			return err
		}
		return ValidatePullRequestUpdate(u)
	case KindUserRelayList:
		_, err := NewUserRef(e)
		return err
	default:
		if e.Kind.IsStatus() {
			s, err := NewStatus(e)
			if err != nil {
				return err
			}
			return ValidateStatus(s)
		}
		return nil
	}
}

// ParseAndVerify verifies e's signature and applies kind-specific
// validation, the single entry point discovery and the remote-helper use
// before trusting an event read off a relay or the local cache.
func ParseAndVerify(e *Event) error {
	if !e.IsSigned() {
		return &ErrInvalidEvent{Cause: fe(-1, "sig", "event is unsigned")}
	}
	if err := VerifySignature(e); err != nil {
		return &ErrInvalidEvent{Cause: err}
	}
	return Validate(e)
}
