package scrapers

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// postLinks collects the href of every `<h3 class="post-title entry-title">`
// anchor on an index page, the shared "index-and-post" landing-page layout
// used by proxyserverlist24, socksproxylist24 and vipsocks24. When titleHas
// is non-empty, a post is only kept if its link text contains it
// (case-sensitive, matching proxyserverlist24's "Proxy Server" filter).
func postLinks(doc *goquery.Document, titleHas string) []string {
	var urls []string

	doc.Find("h3.post-title.entry-title").Each(func(_ int, sel *goquery.Selection) {
		a := sel.Find("a").First()
		href, ok := a.Attr("href")
		if !ok || href == "" {
			return
		}
		if titleHas != "" && !strings.Contains(a.Text(), titleHas) {
			return
		}
		urls = append(urls, href)
	})

	return urls
}

// textareaLines returns the non-blank, trimmed lines of the first
// `<textarea onclick="this.focus();this.select()">` on the page, the
// selector every socks "index-and-post" site uses to publish its raw list.
func textareaLines(doc *goquery.Document) []string {
	textarea := doc.Find(`textarea[onclick="this.focus();this.select()"]`).First()
	if textarea.Length() == 0 {
		return nil
	}

	var lines []string
	for _, line := range strings.Split(textarea.Text(), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
