package eventmodel

import "fmt"

// Patch is the typed view of a KindPatch event: one commit of a patch
// series, carrying the commit's metadata and diff as its content.
type Patch struct {
	*Event
}

// NewPatch wraps e, which must already be of KindPatch.
func NewPatch(e *Event) (*Patch, error) {
	if e.Kind != KindPatch {
		return nil, fe(-1, "kind", "not a patch")
	}
	return &Patch{e}, nil
}

// Commit returns the commit id this patch carries.
func (p *Patch) Commit() string { return p.Tags.Value(TagCommit) }

// ParentCommit returns the parent commit id the patch applies onto.
func (p *Patch) ParentCommit() string { return p.Tags.Value(TagParentCommit) }

// IsRoot reports whether this patch is the first of its series: either a
// standalone patch or the series' cover letter.
func (p *Patch) IsRoot() bool {
	_, ok := p.Tags.Find(TagRoot)
	return ok
}

// IsCoverLetter reports whether this patch event is a cover letter rather
// than a commit-carrying patch.
func (p *Patch) IsCoverLetter() bool {
	_, ok := p.Tags.Find(TagCoverLetter)
	return ok
}

// ReplyTo returns the id this patch replies to (its predecessor in the
// series, or the cover letter/root for the first real commit), if any.
func (p *Patch) ReplyTo() (string, bool) {
	t, ok := p.Tags.Find(TagE)
	if !ok {
		return "", false
	}
	return t.Value(), true
}

// RevisionRoot returns the id of the first patch-series submission this
// event is a revision of, if this is not itself the first revision.
func (p *Patch) RevisionRoot() (string, bool) {
	t, ok := p.Tags.Find(TagRevisionRoot)
	if !ok {
		return "", false
	}
	return t.Value(), true
}

// Series returns the (n, total) position of this patch within its
// series, as declared in its "series" tag, and whether one was present.
func (p *Patch) Series() (n, total int, ok bool) {
	t, found := p.Tags.Find(TagSeries)
	if !found || len(t) < 3 {
		return 0, 0, false
	}
	if _, err := fmt.Sscanf(t[1], "%d", &n); err != nil {
		return 0, 0, false
	}
	if _, err := fmt.Sscanf(t[2], "%d", &total); err != nil {
		return 0, 0, false
	}
	return n, total, true
}

// ValidatePatch applies spec.md §4.3's patch rules: a root marker implies
// the event is either a cover letter or a standalone (parentless) patch,
// never both absent.
func ValidatePatch(p *Patch) error {
	if p.IsCoverLetter() {
		return nil
	}
	if p.Commit() == "" {
		return &ErrInvalidEvent{Cause: fe(-1, TagCommit, "commit id is required")}
	}
	if !hexSHA1.MatchString(p.Commit()) {
		return &ErrInvalidEvent{Cause: fe(-1, TagCommit, "not a 40-hex object id")}
	}
	if p.IsRoot() && p.ParentCommit() == "" {
		// standalone patch: fine, no cover letter needed.
		return nil
	}
	if p.IsRoot() && p.ParentCommit() != "" {
		return &ErrInvalidEvent{Cause: fe(-1, TagRoot, "root patch with a parent must be a cover letter")}
	}
	if !p.IsRoot() {
		if _, ok := p.ReplyTo(); !ok {
			return &ErrInvalidEvent{Cause: fe(-1, TagE, "non-root patch must reply to its predecessor")}
		}
	}
	return nil
}
