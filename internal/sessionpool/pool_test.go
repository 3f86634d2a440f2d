package sessionpool

import (
	"context"
	"errors"
	"net/url"
	"testing"

	. "github.com/bsm/ginkgo/v2"
	. "github.com/bsm/gomega"
)

func TestSessionPool(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "sessionpool")
}

func mustURL(s string) *url.URL {
	u, err := url.Parse(s)
	if err != nil {
		panic(err)
	}
	return u
}

var _ = Describe("Pool", func() {
	var p *Pool

	BeforeEach(func() {
		p = NewPool(10)
	})

	Describe("Set", func() {
		It("tracks new exits", func() {
			p.Set([]*url.URL{mustURL("http://a.example"), mustURL("http://b.example")})
			Expect(p.Len()).To(Equal(2))
		})

		It("preserves counters for exits that persist across a refresh", func() {
			p.Set([]*url.URL{mustURL("http://a.example")})
			e := p.exits[0]
			e.positive = 5

			p.Set([]*url.URL{mustURL("http://a.example"), mustURL("http://b.example")})
			Expect(p.exits[0].positive).To(Equal(5))
		})
	})

	Describe("Next", func() {
		It("returns nil when the pool is empty", func() {
			Expect(p.Next()).To(BeNil())
		})

		It("returns an exit when one is available", func() {
			p.Set([]*url.URL{mustURL("http://a.example")})
			Expect(p.Next()).NotTo(BeNil())
		})
	})

	Describe("Penalize", func() {
		It("retires an exit after three failures with no successes", func() {
			p.Set([]*url.URL{mustURL("http://a.example")})
			e := p.exits[0]

			p.Penalize(e)
			p.Penalize(e)
			Expect(p.Len()).To(Equal(1))

			p.Penalize(e)
			Expect(p.Len()).To(Equal(0))
		})
	})

	Describe("Do", func() {
		It("reports ok=false with no exits configured", func() {
			ok, err := p.Do(context.Background(), func(context.Context, *url.URL) error { return nil })
			Expect(ok).To(BeFalse())
			Expect(err).To(BeNil())
		})

		It("routes through the selected exit and records the outcome", func() {
			p.Set([]*url.URL{mustURL("http://a.example")})

			var seen *url.URL
			ok, err := p.Do(context.Background(), func(_ context.Context, u *url.URL) error {
				seen = u
				return nil
			})

			Expect(ok).To(BeTrue())
			Expect(err).To(BeNil())
			Expect(seen.String()).To(Equal("http://a.example"))
			Expect(p.exits[0].positive).To(Equal(1))
		})

		It("penalizes the exit on failure", func() {
			p.Set([]*url.URL{mustURL("http://a.example")})

			ok, err := p.Do(context.Background(), func(context.Context, *url.URL) error {
				return errors.New("boom")
			})

			Expect(ok).To(BeTrue())
			Expect(err).To(HaveOccurred())
			Expect(p.exits[0].negative).To(Equal(1))
		})
	})
})
