package scrapers

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	. "github.com/bsm/ginkgo/v2"
	. "github.com/bsm/gomega"

	"github.com/neskk/PoGo-Proxies/internal/fetcher"
)

const idcloakFixture = `
<table id="sort">
<tr><td>a</td><td>b</td><td>c</td><td>d</td><td>e</td><td>f</td><td>8080</td><td>1.2.3.4</td></tr>
<tr><td>a</td><td>b</td><td>c</td><td>d</td><td>e</td><td>f</td><td>3128</td><td>5.6.7.8</td></tr>
</table>
<div class="pagination">
<input class="this_page" value="1">
<input value="2">
<input value="3">
</div>
`

const idcloakLastPageFixture = `
<table id="sort"></table>
<div class="pagination">
<input value="1">
<input class="this_page" value="2">
</div>
`

var _ = Describe("Idcloak", func() {
	It("reads ip/port from the reversed column order", func() {
		fw := NewFramework("idcloak-com", "ua", fetcher.Config{}, nil, "", nil, false, nil)
		defer fw.Close()
		s := NewIdcloak(fw)

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(idcloakFixture))
		Expect(err).NotTo(HaveOccurred())

		proxies := s.parse(doc)
		Expect(proxies).To(Equal([]string{"http://1.2.3.4:8080", "http://5.6.7.8:3128"}))
	})

	It("reports the next page number while one remains", func() {
		fw := NewFramework("idcloak-com", "ua", fetcher.Config{}, nil, "", nil, false, nil)
		defer fw.Close()
		s := NewIdcloak(fw)

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(idcloakFixture))
		Expect(err).NotTo(HaveOccurred())

		Expect(s.parseNextPage(doc)).To(Equal(2))
	})

	It("reports no next page once the current marker is last", func() {
		fw := NewFramework("idcloak-com", "ua", fetcher.Config{}, nil, "", nil, false, nil)
		defer fw.Close()
		s := NewIdcloak(fw)

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(idcloakLastPageFixture))
		Expect(err).NotTo(HaveOccurred())

		Expect(s.parseNextPage(doc)).To(Equal(0))
	})
})
