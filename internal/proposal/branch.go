// Package proposal maps between proposal events (patch series and pull
// requests) and the local git branches a collaborator works against
// (spec.md §4.6).
package proposal

import (
	"fmt"
	"strings"
)

const branchNameMaxLen = 60

// SanitizeBranchName applies the §4.6 sanitization rule: lowercase ASCII
// alphanumeric and "/" preserved, everything else becomes "-",
// truncated to 60 characters.
func SanitizeBranchName(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '/':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	out := b.String()
	if len(out) > branchNameMaxLen {
		out = out[:branchNameMaxLen]
	}
	return out
}

// DeriveBranchName computes the canonical local branch name for a
// proposal with the given title/branch-name hint and root event id:
// pr/<sanitized>(<first-8-of-root-id>).
func DeriveBranchName(titleOrHint, rootID string) string {
	sanitized := SanitizeBranchName(titleOrHint)
	prefix := rootID
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	return fmt.Sprintf("pr/%s(%s)", sanitized, prefix)
}

// Unparenthesized strips the trailing "(<prefix>)" suffix a derived
// branch name carries, used to match a user's own in-progress branch
// before a proposal has been published yet.
func Unparenthesized(branchName string) string {
	if i := strings.LastIndex(branchName, "("); i > 0 && strings.HasSuffix(branchName, ")") {
		return branchName[:i]
	}
	return branchName
}

// MatchBranch reports whether checkedOutBranch corresponds to a
// proposal whose derived name is derivedBranchName, either by exact
// match or, for the user's own not-yet-published proposals, by matching
// once both names have had their parenthesized suffix removed.
func MatchBranch(checkedOutBranch, derivedBranchName string) bool {
	if checkedOutBranch == derivedBranchName {
		return true
	}
	return Unparenthesized(checkedOutBranch) == Unparenthesized(derivedBranchName)
}
