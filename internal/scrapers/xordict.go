package scrapers

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/neskk/PoGo-Proxies/internal/deobfuscator"
)

// scanXorDict walks every <script> on the page looking for the line that
// assigns the crazy-XOR decoding dictionary (one containing '^', ';' and
// '=' together), matching the obfuscated-port sites' shared layout. When
// packed is true the candidate line is first run through the p.a.c.k.e.r.
// unpacker (spys.one packs its decoding script; sockslist.net does not).
func scanXorDict(doc *goquery.Document, packed bool) deobfuscator.XorDict {
	var dict deobfuscator.XorDict

	doc.Find("script").Each(func(_ int, sel *goquery.Selection) {
		code := sel.Text()
		for _, line := range strings.Split(code, "\n") {
			if !strings.Contains(line, "^") || !strings.Contains(line, ";") || !strings.Contains(line, "=") {
				continue
			}
			line = strings.TrimSpace(line)
			if packed {
				if unpacked, ok, err := deobfuscator.Deobfuscate(line); err == nil && ok {
					line = unpacked
				}
			}
			dict = deobfuscator.ParseXorDict(line)
		}
	})

	return dict
}
