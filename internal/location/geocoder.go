package location

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultGeocodeURL = "https://us1.locationiq.com/v1/reverse"

// doGet performs a GET request and decodes the JSON response into dst.
func doGet(ctx context.Context, client *http.Client, rawURL string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", req.URL.Host, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s returned status %d", req.URL.Host, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decoding response from %s: %w", req.URL.Host, err)
	}

	return nil
}

// HTTPGeocoder reverse geocodes through a LocationIQ/Nominatim style API.
type HTTPGeocoder struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewHTTPGeocoder constructs an HTTPGeocoder. An empty baseURL selects
// the LocationIQ endpoint.
func NewHTTPGeocoder(baseURL, apiKey string, timeout time.Duration) *HTTPGeocoder {
	if baseURL == "" {
		baseURL = defaultGeocodeURL
	}
	return &HTTPGeocoder{apiKey: apiKey, baseURL: baseURL, client: &http.Client{Timeout: timeout}}
}

type reverseResponse struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Address     struct {
		HouseNumber  string `json:"house_number"`
		Road         string `json:"road"`
		City         string `json:"city"`
		Town         string `json:"town"`
		Village      string `json:"village"`
		Municipality string `json:"municipality"`
		State        string `json:"state"`
		Country      string `json:"country"`
	} `json:"address"`
	Error string `json:"error"`
}

// ReverseGeocode resolves c into a Place.
func (g *HTTPGeocoder) ReverseGeocode(ctx context.Context, c Coordinates) (Place, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(c.Latitude, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(c.Longitude, 'f', -1, 64))
	q.Set("format", "json")
	if g.apiKey != "" {
		q.Set("key", g.apiKey)
	}

	var raw reverseResponse
	if err := doGet(ctx, g.client, g.baseURL+"?"+q.Encode(), &raw); err != nil {
		return Place{}, fmt.Errorf("reverse geocode %.4f,%.4f: %w", c.Latitude, c.Longitude, err)
	}
	if raw.Error != "" {
		return Place{}, fmt.Errorf("reverse geocode %.4f,%.4f: %s", c.Latitude, c.Longitude, raw.Error)
	}

	a := raw.Address
	return Place{
		City:        firstNonEmpty(a.City, a.Town, a.Village, a.Municipality),
		Name:        raw.Name,
		Road:        a.Road,
		HouseNumber: a.HouseNumber,
		Region:      a.State,
		Country:     a.Country,
		DisplayName: raw.DisplayName,
	}, nil
}

// ShortAddress renders "road number, city", dropping whatever is missing.
// Falls back to the first segment of DisplayName.
func ShortAddress(p Place) string {
	street := strings.TrimSpace(p.Road + " " + p.HouseNumber)
	if street == "" {
		street = p.Name
	}

	var parts []string
	if street != "" {
		parts = append(parts, street)
	}
	if p.City != "" && p.City != street {
		parts = append(parts, p.City)
	}
	if len(parts) > 0 {
		return strings.Join(parts, ", ")
	}

	if first, _, _ := strings.Cut(p.DisplayName, ","); first != "" {
		return strings.TrimSpace(first)
	}
	return ""
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
