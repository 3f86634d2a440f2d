// Package output renders the validated proxy list the store returns from
// GetValid into the three external formats spec.md §6 names.
package output

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/neskk/PoGo-Proxies/internal/model"
)

// URL renders one proxy as proto://[user:pass@]ip:port, the canonical form
// every proxy-consuming tool in the pack expects.
func URL(p model.Proxy, stripProtocol bool) string {
	var b strings.Builder
	if !stripProtocol {
		b.WriteString(p.Protocol.String())
		b.WriteString("://")
	}
	if p.Username != "" {
		b.WriteString(p.Username)
		b.WriteByte(':')
		b.WriteString(p.Password)
		b.WriteByte('@')
	}
	b.WriteString(model.Uint32ToIP(p.IP))
	b.WriteByte(':')
	fmt.Fprintf(&b, "%d", p.Port)
	return b.String()
}

// WritePlain writes one URL per line, optionally stripped of its protocol
// prefix.
func WritePlain(w io.Writer, proxies []model.Proxy, stripProtocol bool) error {
	bw := bufio.NewWriter(w)
	for _, p := range proxies {
		if _, err := fmt.Fprintln(bw, URL(p, stripProtocol)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteProxyChains writes one space-separated `proto ip port [user pass]`
// line per proxy, the format proxychains.conf's ProxyList section expects.
func WriteProxyChains(w io.Writer, proxies []model.Proxy) error {
	bw := bufio.NewWriter(w)
	for _, p := range proxies {
		if p.Username != "" {
			if _, err := fmt.Fprintf(bw, "%s %s %d %s %s\n",
				p.Protocol, model.Uint32ToIP(p.IP), p.Port, p.Username, p.Password); err != nil {
				return err
			}
			continue
		}
		if _, err := fmt.Fprintf(bw, "%s %s %d\n", p.Protocol, model.Uint32ToIP(p.IP), p.Port); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteKinanCity writes a single `[url1,url2,...]` line with no trailing
// comma before the closing bracket.
func WriteKinanCity(w io.Writer, proxies []model.Proxy) error {
	var b strings.Builder
	b.WriteByte('[')
	for i, p := range proxies {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(URL(p, false))
	}
	b.WriteString("]\n")
	_, err := io.WriteString(w, b.String())
	return err
}
