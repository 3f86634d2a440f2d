package scrapers

import (
	"archive/zip"
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	. "github.com/bsm/ginkgo/v2"
	. "github.com/bsm/gomega"

	"github.com/neskk/PoGo-Proxies/internal/fetcher"
)

const vipsocks24DownloadFixture = `
<a href="/download/proxies.zip"><img alt="Download"></a>
`

func buildTestZip(files map[string]string) []byte {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := w.Create(name)
		Expect(err).NotTo(HaveOccurred())
		_, err = f.Write([]byte(content))
		Expect(err).NotTo(HaveOccurred())
	}
	Expect(w.Close()).To(Succeed())
	return buf.Bytes()
}

var _ = Describe("Vipsocks24", func() {
	It("prefers the textarea when present", func() {
		fw := NewFramework("vipsocks24-net", "ua", fetcher.Config{}, nil, "", nil, false, nil)
		defer fw.Close()
		s := NewVipsocks24(fw)

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(textareaFixture))
		Expect(err).NotTo(HaveOccurred())

		found, err := s.parsePost(nil, doc)
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(Equal([]string{"socks5://1.2.3.4:1080", "socks5://5.6.7.8:1081"}))
	})

	It("extracts the first .txt member from an in-memory ZIP archive", func() {
		archive := buildTestZip(map[string]string{
			"readme.md":  "not this one",
			"proxies.txt": "1.2.3.4:1080\n\n5.6.7.8:1081\n",
		})

		lines, err := extractZipLines(archive)
		Expect(err).NotTo(HaveOccurred())
		Expect(lines).To(Equal([]string{"1.2.3.4:1080", "5.6.7.8:1081"}))
	})

	It("has no download link to fall back to when no textarea or button is present", func() {
		fw := NewFramework("vipsocks24-net", "ua", fetcher.Config{}, nil, "", nil, false, nil)
		defer fw.Close()
		s := NewVipsocks24(fw)

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<p>nothing here</p>`))
		Expect(err).NotTo(HaveOccurred())

		found, err := s.parsePost(nil, doc)
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(BeNil())
	})
})
