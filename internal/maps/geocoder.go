// README: Delivery-address validation via Google Geocoding.
package maps

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"
)

// Address is a simplified geocoding result.
type Address struct {
	Formatted string
	Lat       float64
	Lng       float64
	Partial   bool
}

// Geocoder validates free-text delivery addresses. A nil *Geocoder is valid
// and skips validation, for tenants without a Maps key.
type Geocoder struct {
	client *maps.Client
}

// NewGeocoder creates a Geocoder with the given API key.
func NewGeocoder(apiKey string) (*Geocoder, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &Geocoder{client: client}, nil
}

// Resolve geocodes the raw address within the given region (e.g. "co").
// A nil receiver accepts the address as-is.
func (g *Geocoder) Resolve(ctx context.Context, raw, region string) (*Address, error) {
	if g == nil {
		return &Address{Formatted: raw}, nil
	}
	results, err := g.client.Geocode(ctx, &maps.GeocodingRequest{
		Address: raw,
		Region:  region,
	})
	if err != nil {
		return nil, fmt.Errorf("geocode %q: %w", raw, err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("geocode %q: no results", raw)
	}
	best := results[0]
	return &Address{
		Formatted: best.FormattedAddress,
		Lat:       best.Geometry.Location.Lat,
		Lng:       best.Geometry.Location.Lng,
		Partial:   best.PartialMatch,
	}, nil
}
