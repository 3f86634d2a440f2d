package scrapers

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	. "github.com/bsm/ginkgo/v2"
	. "github.com/bsm/gomega"

	"github.com/neskk/PoGo-Proxies/internal/fetcher"
)

const socksProxyFixture = `
<table id="proxylisttable">
<tbody>
<tr><td>1.2.3.4</td><td>1080</td><td>US</td><td>United States</td><td>Socks5</td><td>elite</td><td>no</td><td>1 min ago</td></tr>
<tr><td>5.6.7.8</td><td>1081</td><td>DE</td><td>Germany</td><td>Socks4</td><td>transparent</td><td>no</td><td>2 mins ago</td></tr>
</tbody>
</table>
`

var _ = Describe("SocksProxy", func() {
	It("builds proto://ip:port from the protocol column and skips transparent rows", func() {
		fw := NewFramework("socksproxy-net", "ua", fetcher.Config{}, nil, "", nil, false, nil)
		defer fw.Close()
		s := NewSocksProxy(fw)

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(socksProxyFixture))
		Expect(err).NotTo(HaveOccurred())

		proxies := s.parse(doc)
		Expect(proxies).To(Equal([]string{"socks5://1.2.3.4:1080"}))
	})
})
