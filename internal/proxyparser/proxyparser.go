// Package proxyparser turns the raw proxy strings scrapers emit into
// canonical ParsedProxy records: validated, hashed, and deduplicated.
package proxyparser

import (
	"strconv"
	"strings"

	"github.com/neskk/PoGo-Proxies/internal/model"
)

const minLength = 9

// Parse applies the canonical proxy-string grammar to a single raw line:
// strip whitespace, reject entries shorter than nine characters, optionally
// split a `proto://` prefix, optionally split `user:pass@` credentials,
// split `ip:port`, and validate the IP as dotted-quad IPv4. defaultProtocol
// is used when the line carries no explicit scheme and hasDefault is true;
// with hasDefault false a scheme-less line is rejected. ok is false for any
// line that should be silently skipped (too short, unknown or missing
// protocol, credentials without a colon, no port separator, bad IP).
func Parse(raw string, defaultProtocol model.Protocol, hasDefault bool) (p model.ParsedProxy, ok bool) {
	line := strings.TrimSpace(raw)
	if len(line) < minLength {
		return model.ParsedProxy{}, false
	}

	proto := defaultProtocol
	haveProto := hasDefault

	if i := strings.Index(line, "://"); i >= 0 {
		scheme := line[:i]
		line = line[i+3:]

		parsed, known := model.ParseProtocol(scheme)
		if !known {
			return model.ParsedProxy{}, false
		}
		proto = parsed
		haveProto = true
	}

	if !haveProto {
		return model.ParsedProxy{}, false
	}

	var username, password string
	if i := strings.Index(line, "@"); i >= 0 {
		creds := line[:i]
		line = line[i+1:]

		j := strings.Index(creds, ":")
		if j < 0 {
			return model.ParsedProxy{}, false
		}
		username, password = creds[:j], creds[j+1:]
	}

	i := strings.LastIndex(line, ":")
	if i < 0 {
		return model.ParsedProxy{}, false
	}
	ip, port := line[:i], line[i+1:]

	if !validateIPv4(ip) {
		return model.ParsedProxy{}, false
	}

	return model.ParsedProxy{
		Hash:     Hash(ip, port, username, password),
		IP:       ip,
		Port:     port,
		Protocol: proto,
		Username: username,
		Password: password,
	}, true
}

// ParseList parses every line with Parse, silently skipping invalid ones,
// and deduplicates the survivors by hash (the last occurrence wins).
func ParseList(lines []string, defaultProtocol model.Protocol, hasDefault bool) []model.ParsedProxy {
	byHash := make(map[uint32]model.ParsedProxy, len(lines))
	order := make([]uint32, 0, len(lines))

	for _, raw := range lines {
		p, ok := Parse(raw, defaultProtocol, hasDefault)
		if !ok {
			continue
		}
		if _, seen := byHash[p.Hash]; !seen {
			order = append(order, p.Hash)
		}
		byHash[p.Hash] = p
	}

	result := make([]model.ParsedProxy, 0, len(order))
	for _, h := range order {
		result = append(result, byHash[h])
	}
	return result
}

// validateIPv4 checks the dotted-quad form: exactly four non-empty parts of
// at most three characters, each parsing as an integer in 0..255. Leading
// zeros are accepted and read as decimal ("01" is 1).
func validateIPv4(ip string) bool {
	parts := strings.Split(ip, ".")
	if len(parts) != 4 {
		return false
	}
	for _, part := range parts {
		if part == "" || len(part) > 3 {
			return false
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 || n > 255 {
			return false
		}
	}
	return true
}
