package scrapers

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	. "github.com/bsm/ginkgo/v2"
	. "github.com/bsm/gomega"

	"github.com/neskk/PoGo-Proxies/internal/fetcher"
)

const sockslistFixture = `
<script>
a=5;b=3;c=a^b;
</script>
<table class="proxytbl">
<tr><td class="t_ip">1.2.3.4</td><td class="t_port">document.write(c)</td><td class="t_country">US</td></tr>
<tr><td class="t_ip">5.6.7.8</td><td class="t_port">document.write(c)</td><td class="t_country">China</td></tr>
</table>
`

var _ = Describe("Sockslist", func() {
	It("decodes the obfuscated port via the page's XOR dictionary", func() {
		fw := NewFramework("sockslist-net", "ua", fetcher.Config{}, nil, "", []string{"China"}, false, nil)
		defer fw.Close()
		s := NewSockslist(fw)

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(sockslistFixture))
		Expect(err).NotTo(HaveOccurred())

		proxies := s.parse(doc, nil)
		Expect(proxies).To(Equal([]string{"socks5://1.2.3.4:6"}))
	})

	It("gives up when no decoding dictionary is found", func() {
		fw := NewFramework("sockslist-net", "ua", fetcher.Config{}, nil, "", nil, false, nil)
		defer fw.Close()
		s := NewSockslist(fw)

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<table class="proxytbl"></table>`))
		Expect(err).NotTo(HaveOccurred())

		Expect(s.parse(doc, nil)).To(BeEmpty())
	})
})
