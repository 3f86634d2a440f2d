// Package geoip resolves a proxy's IPv4 address to its country, the
// CountryLookup collaborator the test engine consumes to honor the
// ignore_country filter.
package geoip

import (
	"net"
	"strings"

	"github.com/oschwald/maxminddb-golang"
)

// MaxMindLookup is a thin wrapper over a MaxMind GeoLite2-Country (or
// compatible) binary database.
type MaxMindLookup struct {
	reader *maxminddb.Reader
}

// Open memory-maps the database at path. The returned *MaxMindLookup must
// be closed once no longer needed.
func Open(path string) (*MaxMindLookup, error) {
	reader, err := maxminddb.Open(path)
	if err != nil {
		return nil, err
	}
	return &MaxMindLookup{reader: reader}, nil
}

func (m *MaxMindLookup) Close() error {
	return m.reader.Close()
}

type countryRecord struct {
	Country struct {
		Names struct {
			English string `maxminddb:"en"`
		} `maxminddb:"names"`
	} `maxminddb:"country"`
}

// CountryOf returns the lowercase English country name for ip, or "n/a"
// when the address can't be parsed or isn't found in the database.
func (m *MaxMindLookup) CountryOf(ip string) string {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return "n/a"
	}

	var record countryRecord
	if err := m.reader.Lookup(parsed, &record); err != nil {
		return "n/a"
	}
	if record.Country.Names.English == "" {
		return "n/a"
	}
	return strings.ToLower(record.Country.Names.English)
}
