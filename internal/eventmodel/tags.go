package eventmodel

// Tag name conventions, centralized here per spec.md §4.3 so every
// constructor/parser agrees on the same vocabulary.
const (
	TagD            = "d"             // replaceable identifier
	TagR            = "r"             // git ref or euc marker
	TagA            = "a"             // coordinate reference (kind:author:identifier)
	TagClone        = "clone"         // clone URL hint(s)
	TagRelays       = "relays"        // repo relay list
	TagMaintainers  = "maintainers"   // co-maintainer pubkeys
	TagName         = "name"          // repo display name
	TagWeb          = "web"           // homepage/project-page URL(s)
	TagBlossoms     = "blossoms"      // blossom media server URL(s)
	TagE            = "e"             // event reference, reply marker
	TagBigE         = "E"             // event reference, root/subject marker
	TagCommit       = "commit"        // own commit id
	TagParentCommit = "parent-commit" // parent commit id
	TagCommitSig    = "commit-pgp-sig"
	TagAuthor       = "author"
	TagCommitter    = "committer"
	TagBranchName   = "branch-name"
	TagSubject      = "subject"
	TagDescription  = "description"
	TagAlt          = "alt"
	TagRoot         = "root"
	TagRevisionRoot = "revision-root"
	TagCoverLetter  = "cover-letter"
	TagSeries       = "series" // ["series", n, total]
	TagC            = "c"      // base commit id (PR/PR-update)
	TagMergeCommit  = "merge-commit-id"
	TagMention      = "mention"
)

// ReplyMarker distinguishes a reply-parent "e" tag from a root "e" tag,
// carried as the tag's fourth element, e.g. ["e", <id>, "", "reply"].
const (
	MarkerReply = "reply"
	MarkerRoot  = "root"
)

func tag(name string, values ...string) Tag {
	t := make(Tag, 0, 1+len(values))
	t = append(t, name)
	t = append(t, values...)
	return t
}

// BuildMaintainers returns a "maintainers" tag listing the given pubkeys.
func BuildMaintainers(pubkeys []string) Tag {
	return tag(TagMaintainers, pubkeys...)
}

// BuildRelays returns a "relays" tag listing the given relay URLs.
func BuildRelays(relays []string) Tag {
	return tag(TagRelays, relays...)
}

// BuildClone returns a "clone" tag listing the given clone URL hints.
func BuildClone(urls []string) Tag {
	return tag(TagClone, urls...)
}

// BuildWeb returns a "web" tag listing the given homepage/project-page URLs.
func BuildWeb(urls []string) Tag {
	return tag(TagWeb, urls...)
}

// BuildBlossoms returns a "blossoms" tag listing the given media server URLs.
func BuildBlossoms(urls []string) Tag {
	return tag(TagBlossoms, urls...)
}

// BuildCoordinate returns an "a" tag referencing the given coordinate.
func BuildCoordinate(kind Kind, author, identifier string) Tag {
	return tag(TagA, coordString(kind, author, identifier))
}

// BuildReplyEdge returns an "e" tag marking id as the reply-parent.
func BuildReplyEdge(id string) Tag {
	return tag(TagE, id, "", MarkerReply)
}

// BuildRootEdge returns an "E" tag marking id as the thread root.
func BuildRootEdge(id string) Tag {
	return tag(TagBigE, id, "", MarkerRoot)
}
