package eventmodel

import (
	"encoding/json"
	"regexp"
)

var hexSHA1 = regexp.MustCompile(`^[0-9a-f]{40}$`)

// RefEntry is one line of a repo-state snapshot's content: a ref name
// paired with the commit it points at.
type RefEntry struct {
	Name   string `json:"name"`
	Target string `json:"target"`
}

// State is the typed view of a KindRepoState event: a replaceable
// snapshot of every ref this author last observed for a repository.
type State struct {
	*Event
	refs []RefEntry
}

// NewState wraps e, which must already be of KindRepoState, decoding its
// content as a ref-entry list.
func NewState(e *Event) (*State, error) {
	if e.Kind != KindRepoState {
		return nil, fe(-1, "kind", "not a repo state")
	}
	var refs []RefEntry
	if e.Content != "" {
		if err := json.Unmarshal([]byte(e.Content), &refs); err != nil {
			return nil, &ErrInvalidEvent{Cause: fe(-1, "content", "not a valid ref list")}
		}
	}
	return &State{Event: e, refs: refs}, nil
}

// Identifier returns the repository's replaceable "d" identifier.
func (s *State) Identifier() string { return s.DTag() }

// Refs returns the snapshot's ref entries in declaration order.
func (s *State) Refs() []RefEntry { return s.refs }

// RefMap returns the snapshot's refs as a name-to-target map.
func (s *State) RefMap() map[string]string {
	m := make(map[string]string, len(s.refs))
	for _, r := range s.refs {
		m[r.Name] = r.Target
	}
	return m
}

// EncodeRefs serializes refs in the conventional content encoding,
// suitable for assignment to a not-yet-signed Event's Content field.
func EncodeRefs(refs []RefEntry) (string, error) {
	b, err := json.Marshal(refs)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ValidateState checks that every ref target is a well-formed 40-hex
// object id and that ref names are non-empty and unique.
func ValidateState(s *State) error {
	seen := make(map[string]bool, len(s.refs))
	for i, r := range s.refs {
		if r.Name == "" {
			return &ErrInvalidEvent{Cause: fe(i, "name", "ref name is required")}
		}
		if seen[r.Name] {
			return &ErrInvalidEvent{Cause: fe(i, "name", "duplicate ref name")}
		}
		seen[r.Name] = true
		if !hexSHA1.MatchString(r.Target) {
			return &ErrInvalidEvent{Cause: fe(i, "target", "not a 40-hex object id")}
		}
	}
	return nil
}
