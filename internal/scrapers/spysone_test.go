package scrapers

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	. "github.com/bsm/ginkgo/v2"
	. "github.com/bsm/gomega"

	"github.com/neskk/PoGo-Proxies/internal/fetcher"
)

const spysOneFixture = `
<script>
a=5;b=3;c=a^b;
</script>
<table>
<tr class="spy1x">
<td><font>x<font>1.2.3.4<script>document.write(c)</script></font></font></td>
<td>x</td><td>HIA</td><td>United States (+1)</td><td>x</td><td>x</td><td>x</td><td>x</td><td>x</td><td>x</td>
</tr>
<tr class="spy1xx">
<td><font>x<font>5.6.7.8<script>document.write(c)</script></font></font></td>
<td>x</td><td>NOA</td><td>Germany</td><td>x</td><td>x</td><td>x</td><td>x</td><td>x</td><td>x</td>
</tr>
</table>
`

var _ = Describe("SpysOne", func() {
	It("decodes the XOR-obfuscated port and keeps only HIA rows", func() {
		fw := NewFramework("spys-one-http", "ua", fetcher.Config{}, nil, "", []string{"china"}, false, nil)
		defer fw.Close()
		s := NewSpysHTTP(fw)

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(spysOneFixture))
		Expect(err).NotTo(HaveOccurred())

		proxies := s.parse(doc, nil)
		Expect(proxies).To(Equal([]string{"http://1.2.3.4:6"}))
	})

	It("tags the SOCKS variant's rows with socks5:// instead", func() {
		fw := NewFramework("spys-one-socks", "ua", fetcher.Config{}, nil, "", nil, false, nil)
		defer fw.Close()
		s := NewSpysSOCKS(fw)

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(spysOneFixture))
		Expect(err).NotTo(HaveOccurred())

		proxies := s.parse(doc, nil)
		Expect(proxies).To(Equal([]string{"socks5://1.2.3.4:6"}))
	})
})
