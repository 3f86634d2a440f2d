package scrapers

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	. "github.com/bsm/ginkgo/v2"
	. "github.com/bsm/gomega"

	"github.com/neskk/PoGo-Proxies/internal/fetcher"
)

const freeProxyListFixture = `
<table id="proxylisttable">
<tbody>
<tr><td>1.2.3.4</td><td>8080</td><td>US</td><td>United States</td><td>elite proxy</td><td>no</td><td>yes</td><td>1 min ago</td></tr>
<tr><td>5.6.7.8</td><td>3128</td><td>CN</td><td>China</td><td>elite proxy</td><td>no</td><td>no</td><td>2 mins ago</td></tr>
<tr><td>9.9.9.9</td><td>80</td><td>DE</td><td>Germany</td><td>transparent</td><td>no</td><td>yes</td><td>5 mins ago</td></tr>
</tbody>
</table>
`

var _ = Describe("FreeProxyList", func() {
	It("skips ignored countries and transparent rows", func() {
		fw := NewFramework("freeproxylist-net", "ua", fetcher.Config{}, nil, "", []string{"china"}, false, nil)
		defer fw.Close()
		s := NewFreeProxyList(fw)

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(freeProxyListFixture))
		Expect(err).NotTo(HaveOccurred())

		proxies := s.parse(doc)
		Expect(proxies).To(Equal([]string{"http://1.2.3.4:8080"}))
	})
})
