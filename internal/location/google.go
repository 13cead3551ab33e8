package location

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"
)

// GoogleGeocoder reverse geocodes through the Google Maps Geocoding API.
type GoogleGeocoder struct {
	client *maps.Client
}

// NewGoogleGeocoder constructs a GoogleGeocoder. Extra client options
// (e.g. maps.WithBaseURL in tests) are appended after the API key.
func NewGoogleGeocoder(apiKey string, opts ...maps.ClientOption) (*GoogleGeocoder, error) {
	client, err := maps.NewClient(append([]maps.ClientOption{maps.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("creating maps client: %w", err)
	}
	return &GoogleGeocoder{client: client}, nil
}

// ReverseGeocode resolves c into a Place using the first result.
func (g *GoogleGeocoder) ReverseGeocode(ctx context.Context, c Coordinates) (Place, error) {
	results, err := g.client.ReverseGeocode(ctx, &maps.GeocodingRequest{
		LatLng: &maps.LatLng{Lat: c.Latitude, Lng: c.Longitude},
	})
	if err != nil {
		return Place{}, fmt.Errorf("google reverse geocode %.4f,%.4f: %w", c.Latitude, c.Longitude, err)
	}
	if len(results) == 0 {
		return Place{}, fmt.Errorf("google reverse geocode %.4f,%.4f: no results", c.Latitude, c.Longitude)
	}

	r := results[0]
	p := Place{DisplayName: r.FormattedAddress}
	for _, comp := range r.AddressComponents {
		for _, t := range comp.Types {
			switch t {
			case "locality", "postal_town":
				if p.City == "" {
					p.City = comp.LongName
				}
			case "route":
				p.Road = comp.LongName
			case "street_number":
				p.HouseNumber = comp.LongName
			case "administrative_area_level_1":
				p.Region = comp.LongName
			case "country":
				p.Country = comp.LongName
			case "point_of_interest", "premise":
				p.Name = comp.LongName
			}
		}
	}
	return p, nil
}
