package eventcache_test

import (
	"context"
	"testing"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/make-os/nostrgit/internal/eventcache"
	"github.com/make-os/nostrgit/internal/eventmodel"
)

func TestEventcache(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Eventcache Suite")
}

func openTestCache() *eventcache.Cache {
	c, err := eventcache.Open("")
	Expect(err).To(BeNil())
	return c
}

var _ = Describe("Cache", func() {
	var c *eventcache.Cache
	ctx := context.Background()

	BeforeEach(func() {
		c = openTestCache()
	})

	AfterEach(func() {
		Expect(c.Close()).To(Succeed())
	})

	It("round-trips a Put event through Get", func() {
		ev := &eventmodel.Event{ID: "id1", PubKey: "pub1", Kind: eventmodel.KindPatch, CreatedAt: 1}
		Expect(c.Put(ctx, ev)).To(Succeed())

		got, ok, err := c.Get(ctx, "id1")
		Expect(err).To(BeNil())
		Expect(ok).To(BeTrue())
		Expect(got.ID).To(Equal("id1"))
	})

	It("reports a miss for an unknown id", func() {
		_, ok, err := c.Get(ctx, "nope")
		Expect(err).To(BeNil())
		Expect(ok).To(BeFalse())
	})

	It("indexes a replaceable event by author+kind+d and keeps only the newest", func() {
		older := &eventmodel.Event{
			ID: "old", PubKey: "pub1", Kind: eventmodel.KindRepoAnnouncement, CreatedAt: 1,
			Tags: eventmodel.Tags{{eventmodel.TagD, "repo1"}},
		}
		newer := &eventmodel.Event{
			ID: "new", PubKey: "pub1", Kind: eventmodel.KindRepoAnnouncement, CreatedAt: 2,
			Tags: eventmodel.Tags{{eventmodel.TagD, "repo1"}},
		}
		Expect(c.Put(ctx, older)).To(Succeed())
		Expect(c.Put(ctx, newer)).To(Succeed())

		got, ok, err := c.ByAuthorKindD(ctx, "pub1", eventmodel.KindRepoAnnouncement, "repo1")
		Expect(err).To(BeNil())
		Expect(ok).To(BeTrue())
		Expect(got.ID).To(Equal("new"))
	})

	It("does not let an older replaceable event steal the newer one's slot", func() {
		newer := &eventmodel.Event{
			ID: "new", PubKey: "pub1", Kind: eventmodel.KindRepoAnnouncement, CreatedAt: 5,
			Tags: eventmodel.Tags{{eventmodel.TagD, "repo1"}},
		}
		older := &eventmodel.Event{
			ID: "old", PubKey: "pub1", Kind: eventmodel.KindRepoAnnouncement, CreatedAt: 1,
			Tags: eventmodel.Tags{{eventmodel.TagD, "repo1"}},
		}
		Expect(c.Put(ctx, newer)).To(Succeed())
		Expect(c.Put(ctx, older)).To(Succeed())

		got, ok, err := c.ByAuthorKindD(ctx, "pub1", eventmodel.KindRepoAnnouncement, "repo1")
		Expect(err).To(BeNil())
		Expect(ok).To(BeTrue())
		Expect(got.ID).To(Equal("new"))
	})

	It("returns every event tagging a given coordinate via ByKindATag", func() {
		coord := "30617:pub1:repo1"
		e1 := &eventmodel.Event{ID: "p1", Kind: eventmodel.KindPatch, Tags: eventmodel.Tags{eventmodel.BuildCoordinate(eventmodel.KindRepoAnnouncement, "pub1", "repo1")}}
		e2 := &eventmodel.Event{ID: "p2", Kind: eventmodel.KindPatch, Tags: eventmodel.Tags{eventmodel.BuildCoordinate(eventmodel.KindRepoAnnouncement, "pub1", "repo1")}}
		unrelated := &eventmodel.Event{ID: "p3", Kind: eventmodel.KindPatch, Tags: eventmodel.Tags{eventmodel.BuildCoordinate(eventmodel.KindRepoAnnouncement, "pub2", "repo2")}}
		Expect(c.Put(ctx, e1)).To(Succeed())
		Expect(c.Put(ctx, e2)).To(Succeed())
		Expect(c.Put(ctx, unrelated)).To(Succeed())

		got, err := c.ByKindATag(ctx, eventmodel.KindPatch, coord)
		Expect(err).To(BeNil())
		Expect(got).To(HaveLen(2))
		var ids []string
		for _, g := range got {
			ids = append(ids, g.ID)
		}
		Expect(ids).To(ConsistOf("p1", "p2"))
	})

	It("returns every event referencing a root id via ByKindETag, matching both e and E tags", func() {
		e1 := &eventmodel.Event{ID: "u1", Kind: eventmodel.KindPullRequestUpdate, Tags: eventmodel.Tags{eventmodel.BuildReplyEdge("root1")}}
		e2 := &eventmodel.Event{ID: "u2", Kind: eventmodel.KindPullRequestUpdate, Tags: eventmodel.Tags{eventmodel.BuildRootEdge("root1")}}
		Expect(c.Put(ctx, e1)).To(Succeed())
		Expect(c.Put(ctx, e2)).To(Succeed())

		got, err := c.ByKindETag(ctx, eventmodel.KindPullRequestUpdate, "root1")
		Expect(err).To(BeNil())
		var ids []string
		for _, g := range got {
			ids = append(ids, g.ID)
		}
		Expect(ids).To(ConsistOf("u1", "u2"))
	})

	It("serves a repeated Get from the hot cache without error", func() {
		ev := &eventmodel.Event{ID: "hot1", Kind: eventmodel.KindPatch}
		Expect(c.Put(ctx, ev)).To(Succeed())
		for i := 0; i < 3; i++ {
			got, ok, err := c.Get(ctx, "hot1")
			Expect(err).To(BeNil())
			Expect(ok).To(BeTrue())
			Expect(got.ID).To(Equal("hot1"))
		}
	})
})
