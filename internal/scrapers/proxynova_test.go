package scrapers

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	. "github.com/bsm/ginkgo/v2"
	. "github.com/bsm/gomega"

	"github.com/neskk/PoGo-Proxies/internal/fetcher"
)

const proxyNovaFixture = `
<table id="tbl_proxy_list">
<tbody>
<tr>
<td><script>document.write('1.2.3.4')</script></td>
<td>8080</td><td>x</td><td>x</td><td>x</td>
<td><a>united states<span>New York</span></a></td>
<td><span>elite proxy</span></td>
<td>x</td>
</tr>
<tr>
<td><script>document.write('5.6.7.8')</script></td>
<td>3128</td><td>x</td><td>x</td><td>x</td>
<td><a>china</a></td>
<td><span>transparent</span></td>
<td>x</td>
</tr>
</tbody>
</table>
`

var _ = Describe("ProxyNova", func() {
	It("extracts the IP from the inline script and strips the nested city span", func() {
		fw := NewFramework("proxynova-com", "ua", fetcher.Config{}, nil, "", nil, false, nil)
		defer fw.Close()
		s := NewProxyNova(fw)

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(proxyNovaFixture))
		Expect(err).NotTo(HaveOccurred())

		proxies := s.parse(doc)
		Expect(proxies).To(Equal([]string{"http://1.2.3.4:8080"}))
	})
})
