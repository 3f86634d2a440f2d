package fetcher

import (
	"context"
	"net"
	"net/url"

	"golang.org/x/net/proxy"
)

func isSOCKS(scheme string) bool {
	return scheme == "socks4" || scheme == "socks5"
}

// socksDialContext builds a DialContext that routes through a SOCKS4/5
// upstream proxy, the transport net/http's own Transport.Proxy cannot
// drive (it only speaks HTTP-CONNECT).
func socksDialContext(proxyURL *url.URL) (func(ctx context.Context, network, addr string) (net.Conn, error), error) {
	dialer, err := proxy.FromURL(proxyURL, proxy.Direct)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		if d, ok := dialer.(proxy.ContextDialer); ok {
			return d.DialContext(ctx, network, addr)
		}
		return dialer.Dial(network, addr)
	}, nil
}
