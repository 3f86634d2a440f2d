package scrapers

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	. "github.com/bsm/ginkgo/v2"
	. "github.com/bsm/gomega"
)

const premproxyRowsFixture = `
<table>
<tr class="anon">
<td data-label="Country: ">United States</td>
<td><input type="checkbox" value="1.2.3.4|keyA"></td>
</tr>
<tr class="transp">
<td data-label="Country: ">China</td>
<td><input type="checkbox" value="5.6.7.8|keyB"></td>
</tr>
<tr class="anon">
<td data-label="Country: ">Germany</td>
<td><input type="checkbox" value="not-an-ip|keyA"></td>
</tr>
</table>
`

var _ = Describe("Premproxy", func() {
	It("extracts cssKey/port pairs two at a time from the unpacked JS", func() {
		unpacked := `$(document).ready(function(){(keyA)(8080)(keyB)(3128)});`
		matches := premproxyBracketPairs.FindAllStringSubmatch(unpacked, -1)
		ports := make(map[string]string, len(matches)/2)
		for i := 0; i+1 < len(matches); i += 2 {
			ports[matches[i][1]] = matches[i+1][1]
		}
		Expect(ports).To(Equal(map[string]string{"keyA": "8080", "keyB": "3128"}))
	})

	It("resolves checkbox ip|cssKey values against the port map, skipping ignored countries and bad IPs", func() {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(premproxyRowsFixture))
		Expect(err).NotTo(HaveOccurred())

		ports := map[string]string{"keyA": "8080", "keyB": "3128"}
		validate := func(country string) bool { return country != "china" }

		proxies := filterPremproxyRows(doc, ports, validate)
		Expect(proxies).To(Equal([]string{"http://1.2.3.4:8080"}))
	})
})
