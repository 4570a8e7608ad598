package refstate_test

import (
	"errors"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/make-os/nostrgit/internal/capability"
	"github.com/make-os/nostrgit/internal/refstate"
)

type stubGit struct {
	capability.Git
	ancestorResult bool
	ancestorErr    error
	aheadBehind    capability.AheadBehind
	aheadBehindErr error
}

func (s *stubGit) IsAncestor(ancestor, descendant string) (bool, error) {
	return s.ancestorResult, s.ancestorErr
}

func (s *stubGit) CommitsAheadBehind(base, head string) (capability.AheadBehind, error) {
	return s.aheadBehind, s.aheadBehindErr
}

var _ = Describe("GitOracle", func() {
	It("reports ancestry through the underlying Git capability", func() {
		o := &refstate.GitOracle{Git: &stubGit{ancestorResult: true}}
		is, ok := o.IsAncestor("a", "b")
		Expect(ok).To(BeTrue())
		Expect(is).To(BeTrue())
	})

	It("reports unresolvable when the Git capability errors", func() {
		o := &refstate.GitOracle{Git: &stubGit{ancestorErr: errors.New("unknown commit")}}
		_, ok := o.IsAncestor("a", "b")
		Expect(ok).To(BeFalse())
	})

	It("passes through ahead/behind lists", func() {
		ab := capability.AheadBehind{Ahead: []string{"c1"}, Behind: []string{"c2"}}
		o := &refstate.GitOracle{Git: &stubGit{aheadBehind: ab}}
		ahead, behind, ok := o.AheadBehind("base", "head")
		Expect(ok).To(BeTrue())
		Expect(ahead).To(Equal([]string{"c1"}))
		Expect(behind).To(Equal([]string{"c2"}))
	})

	It("reports unresolvable when the ahead/behind comparison errors", func() {
		o := &refstate.GitOracle{Git: &stubGit{aheadBehindErr: errors.New("not a repository")}}
		_, _, ok := o.AheadBehind("base", "head")
		Expect(ok).To(BeFalse())
	})
})
