package enrichment

import (
	"context"
	"net"

	"shortlink/internal/domain"

	geoip2 "github.com/oschwald/geoip2-golang"
)

// Location is the result of a geo lookup.
type Location struct {
	Country string
	City    string
}

// Geolocator resolves an IP address to a location. Implementations must
// degrade to Unknown instead of failing the click record.
type Geolocator interface {
	Locate(ctx context.Context, ip string) Location
}

// Compile-time interface checks
var (
	_ Geolocator = (*GeoIP2Locator)(nil)
	_ Geolocator = (*NoopLocator)(nil)
)

// GeoIP2Locator resolves IPs against a local GeoIP2/GeoLite2 city database.
type GeoIP2Locator struct {
	db *geoip2.Reader
}

// NewGeoIP2Locator opens the database at dbPath. Returns an error if the
// file cannot be opened or is corrupt.
func NewGeoIP2Locator(dbPath string) (*GeoIP2Locator, error) {
	db, err := geoip2.Open(dbPath)
	if err != nil {
		return nil, err
	}
	return &GeoIP2Locator{db: db}, nil
}

// Close closes the underlying database reader.
func (g *GeoIP2Locator) Close() error {
	return g.db.Close()
}

// Locate returns the country ISO code and city name for ip.
// Returns Unknown fields for private, invalid or unresolvable addresses.
func (g *GeoIP2Locator) Locate(_ context.Context, ipStr string) Location {
	unknown := Location{Country: domain.Unknown, City: domain.Unknown}

	ip := net.ParseIP(ipStr)
	if ip == nil {
		return unknown
	}

	record, err := g.db.City(ip)
	if err != nil {
		return unknown
	}

	loc := unknown
	if record.Country.IsoCode != "" {
		loc.Country = record.Country.IsoCode
	}
	if name, ok := record.City.Names["en"]; ok && name != "" {
		loc.City = name
	}
	return loc
}

// NoopLocator is used when no GeoIP database is configured.
type NoopLocator struct{}

// Locate always returns Unknown.
func (NoopLocator) Locate(context.Context, string) Location {
	return Location{Country: domain.Unknown, City: domain.Unknown}
}
