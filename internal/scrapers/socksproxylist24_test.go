package scrapers

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	. "github.com/bsm/ginkgo/v2"
	. "github.com/bsm/gomega"

	"github.com/neskk/PoGo-Proxies/internal/fetcher"
)

var _ = Describe("SocksProxyList24", func() {
	It("reads each post's proxy list out of its textarea", func() {
		fw := NewFramework("socksproxylist24-top", "ua", fetcher.Config{}, nil, "", nil, false, nil)
		defer fw.Close()
		s := NewSocksProxyList24(fw)
		Expect(s.Name()).To(Equal("socksproxylist24-top"))

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(textareaFixture))
		Expect(err).NotTo(HaveOccurred())

		Expect(textareaLines(doc)).To(Equal([]string{"1.2.3.4:1080", "5.6.7.8:1081"}))
	})
})
