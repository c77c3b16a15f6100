package analytics

import (
	"net"

	"github.com/oschwald/geoip2-golang"
	"github.com/pkg/errors"
)

// GeoLocator resolves a client address to an ISO country code.
type GeoLocator interface {
	Country(addr string) (string, bool)
}

type GeoIP struct {
	db *geoip2.Reader
}

func OpenGeoIP(path string) (*GeoIP, error) {
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening geoip database")
	}
	return &GeoIP{db: db}, nil
}

func (g *GeoIP) Country(addr string) (string, bool) {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	ip := net.ParseIP(addr)
	if ip == nil {
		return "", false
	}

	record, err := g.db.Country(ip)
	if err != nil || record.Country.IsoCode == "" {
		return "", false
	}
	return record.Country.IsoCode, true
}

func (g *GeoIP) Close() error {
	return g.db.Close()
}
