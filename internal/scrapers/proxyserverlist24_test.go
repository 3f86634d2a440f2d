package scrapers

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	. "github.com/bsm/ginkgo/v2"
	. "github.com/bsm/gomega"

	"github.com/neskk/PoGo-Proxies/internal/fetcher"
)

const proxyServerList24PostFixture = `
<pre class="alt2" dir="ltr">
<span>header</span>
<span>header2</span>
<span>
1.2.3.4:8080

5.6.7.8:3128
</span>
</pre>
`

var _ = Describe("ProxyServerList24", func() {
	It("reads the proxy list from the pre block's third span", func() {
		fw := NewFramework("proxyserverlist24-top", "ua", fetcher.Config{}, nil, "", nil, false, nil)
		defer fw.Close()
		s := NewProxyServerList24(fw)

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(proxyServerList24PostFixture))
		Expect(err).NotTo(HaveOccurred())

		Expect(s.parsePost(doc)).To(Equal([]string{
			"http://1.2.3.4:8080",
			"http://5.6.7.8:3128",
		}))
	})

	It("returns nil when the post has fewer than three spans", func() {
		fw := NewFramework("proxyserverlist24-top", "ua", fetcher.Config{}, nil, "", nil, false, nil)
		defer fw.Close()
		s := NewProxyServerList24(fw)

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<pre class="alt2" dir="ltr"><span>only one</span></pre>`))
		Expect(err).NotTo(HaveOccurred())

		Expect(s.parsePost(doc)).To(BeNil())
	})
})
