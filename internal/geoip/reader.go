package geoip

import (
	"context"
	"net"

	"github.com/oschwald/geoip2-golang"
)

// Provider wraps the GeoIP2 database reader to provide country lookup functionality.
type Provider struct {
	db *geoip2.Reader
}

// Open initializes the GeoIP database reader from a specific file path.
func Open(path string) (*Provider, error) {
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, err
	}

	return &Provider{db: db}, nil
}

// Close closes the underlying GeoIP database reader.
func (p *Provider) Close() error {
	return p.db.Close()
}

// CountryCode looks up the ISO country code (e.g., "US", "DE") for an IP address.
// It returns an empty string if the country cannot be determined.
func (p *Provider) CountryCode(ip net.IP) string {
	if p == nil || ip == nil {
		return ""
	}

	record, err := p.db.Country(ip)
	if err != nil {
		return ""
	}

	return record.Country.IsoCode
}

// LookupHost resolves host and returns the country code of its first address.
func (p *Provider) LookupHost(ctx context.Context, host string) string {
	if p == nil {
		return ""
	}

	if ip := net.ParseIP(host); ip != nil {
		return p.CountryCode(ip)
	}

	addrs, err := net.DefaultResolver.LookupIP(ctx, "ip", host)
	if err != nil || len(addrs) == 0 {
		return ""
	}

	return p.CountryCode(addrs[0])
}
