package scrapers

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/bsm/ginkgo/v2"
	. "github.com/bsm/gomega"
)

var _ = Describe("FileReader", func() {
	var dir string

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "filereader-test")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(os.RemoveAll(dir)).To(Succeed())
	})

	It("skips blank lines and comments", func() {
		path := filepath.Join(dir, "proxies.txt")
		content := "1.2.3.4:8080\n\n# a comment\n  \n5.6.7.8:3128\n"
		Expect(os.WriteFile(path, []byte(content), 0o644)).To(Succeed())

		s := NewFileReader(path)
		Expect(s.Name()).To(Equal("file-reader"))

		proxies, err := s.Scrape(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(proxies).To(Equal([]string{"1.2.3.4:8080", "5.6.7.8:3128"}))
	})

	It("returns an error when the file does not exist", func() {
		s := NewFileReader(filepath.Join(dir, "missing.txt"))
		_, err := s.Scrape(context.Background())
		Expect(err).To(HaveOccurred())
	})
})
