package eventmodel

import "strings"

// Announcement is the typed view of a KindRepoAnnouncement event: the
// replaceable root record a repository is discovered from.
type Announcement struct {
	*Event
}

// NewAnnouncement wraps e, which must already be of KindRepoAnnouncement.
func NewAnnouncement(e *Event) (*Announcement, error) {
	if e.Kind != KindRepoAnnouncement {
		return nil, fe(-1, "kind", "not a repo announcement")
	}
	return &Announcement{e}, nil
}

// Identifier returns the repository's replaceable "d" identifier.
func (a *Announcement) Identifier() string { return a.DTag() }

// CloneURLs returns every clone-hint URL attached to the announcement.
func (a *Announcement) CloneURLs() []string {
	var out []string
	for _, t := range a.Tags.FindAll(TagClone) {
		out = append(out, t[1:]...)
	}
	return out
}

// Relays returns the relay set the repository announces itself on.
func (a *Announcement) Relays() []string {
	if t, ok := a.Tags.Find(TagRelays); ok {
		return t[1:]
	}
	return nil
}

// Maintainers returns the declared co-maintainer pubkeys. The announcing
// author is always an implicit maintainer and is not repeated here.
func (a *Announcement) Maintainers() []string {
	if t, ok := a.Tags.Find(TagMaintainers); ok {
		return t[1:]
	}
	return nil
}

// Name returns the repository's short display name, empty if unset.
func (a *Announcement) Name() string { return a.Tags.Value(TagName) }

// Description returns the repository's free-text description, empty if unset.
func (a *Announcement) Description() string { return a.Tags.Value(TagDescription) }

// Web returns the repository's homepage/project-page URLs, if any.
func (a *Announcement) Web() []string {
	if t, ok := a.Tags.Find(TagWeb); ok {
		return t[1:]
	}
	return nil
}

// Blossoms returns the blossom media server URLs the repository
// advertises, if any.
func (a *Announcement) Blossoms() []string {
	if t, ok := a.Tags.Find(TagBlossoms); ok {
		return t[1:]
	}
	return nil
}

// RootCommit returns the repository's earliest-unique-commit marker, a
// 40-hex-char git object id recorded under an "r" tag, used to recognize
// a fork of a known repository even after its identifier diverges.
// Empty if the announcement doesn't carry one.
func (a *Announcement) RootCommit() string {
	for _, t := range a.Tags.FindAll(TagR) {
		if len(t) >= 2 && len(t[1]) == 40 {
			return t[1]
		}
	}
	return ""
}

// ValidateAnnouncement applies the syntactic checks from spec.md §4.3: a
// non-empty identifier and at least one clone hint that looks URL-shaped.
func ValidateAnnouncement(a *Announcement) error {
	if a.Identifier() == "" {
		return &ErrInvalidEvent{Cause: fe(-1, TagD, "identifier is required")}
	}
	clones := a.CloneURLs()
	if len(clones) == 0 {
		return &ErrInvalidEvent{Cause: fe(-1, TagClone, "at least one clone hint is required")}
	}
	for i, c := range clones {
		if !strings.Contains(c, "://") {
			return &ErrInvalidEvent{Cause: fe(i, TagClone, "not a URL")}
		}
	}
	return nil
}
