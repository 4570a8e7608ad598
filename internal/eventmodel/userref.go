package eventmodel

// UserRef is the typed view of a user's replaceable relay-list event
// (KindUserRelayList), used to resolve where to publish and look up an
// author's own events when no repository-level relay hint applies.
type UserRef struct {
	*Event
}

// NewUserRef wraps e, which must already be of KindUserRelayList.
func NewUserRef(e *Event) (*UserRef, error) {
	if e.Kind != KindUserRelayList {
		return nil, fe(-1, "kind", "not a user relay list")
	}
	return &UserRef{e}, nil
}

// Relays returns the relay URLs listed under "r" tags.
func (u *UserRef) Relays() []string {
	var out []string
	for _, t := range u.Tags.FindAll(TagR) {
		if v := t.Value(); v != "" {
			out = append(out, v)
		}
	}
	return out
}
