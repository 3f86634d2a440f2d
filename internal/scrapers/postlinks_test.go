package scrapers

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	. "github.com/bsm/ginkgo/v2"
	. "github.com/bsm/gomega"
)

const postLinksFixture = `
<h3 class="post-title entry-title"><a href="/2026/01/proxy-server-list.html">Proxy Server List 01/01/2026</a></h3>
<h3 class="post-title entry-title"><a href="/2026/01/unrelated-post.html">Site News</a></h3>
`

const textareaFixture = `
<textarea onclick="this.focus();this.select()">
1.2.3.4:1080

5.6.7.8:1081
</textarea>
`

var _ = Describe("postLinks", func() {
	It("returns every post link when titleHas is empty", func() {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(postLinksFixture))
		Expect(err).NotTo(HaveOccurred())

		links := postLinks(doc, "")
		Expect(links).To(Equal([]string{
			"/2026/01/proxy-server-list.html",
			"/2026/01/unrelated-post.html",
		}))
	})

	It("filters by link text when titleHas is set", func() {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(postLinksFixture))
		Expect(err).NotTo(HaveOccurred())

		links := postLinks(doc, "Proxy Server")
		Expect(links).To(Equal([]string{"/2026/01/proxy-server-list.html"}))
	})
})

var _ = Describe("textareaLines", func() {
	It("splits the first onclick textarea into trimmed, non-blank lines", func() {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(textareaFixture))
		Expect(err).NotTo(HaveOccurred())

		Expect(textareaLines(doc)).To(Equal([]string{"1.2.3.4:1080", "5.6.7.8:1081"}))
	})

	It("returns nil when no matching textarea is present", func() {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<p>nothing here</p>`))
		Expect(err).NotTo(HaveOccurred())

		Expect(textareaLines(doc)).To(BeNil())
	})
})
