// Package overpass looks up nearby public-transport stops through the
// OpenStreetMap Overpass API.
package overpass

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wayfarer/v2/internal/domain/geo"
	"github.com/wayfarer/v2/internal/ports/outbound"
)

const defaultBaseURL = "https://overpass-api.de/api/interpreter"

// Client implements the PlaceEnrichment interface against Overpass.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewClient creates a new Overpass client.
func NewClient(baseURL string, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  logger.Named("overpass"),
	}
}

type overpassResponse struct {
	Elements []overpassElement `json:"elements"`
}

type overpassElement struct {
	Lat  float64           `json:"lat"`
	Lon  float64           `json:"lon"`
	Tags map[string]string `json:"tags"`
}

// NearbyStop returns the closest named transit stop within the radius, or
// nil when nothing is found.
func (c *Client) NearbyStop(ctx context.Context, coord geo.Coordinate, radiusMeters int) (*outbound.NearbyStop, error) {
	query := fmt.Sprintf(
		`[out:json][timeout:8];(node(around:%d,%f,%f)[highway=bus_stop];node(around:%d,%f,%f)[public_transport=platform];);out body;`,
		radiusMeters, coord.Lat, coord.Lng,
		radiusMeters, coord.Lat, coord.Lng,
	)

	form := url.Values{"data": {query}}
	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("overpass request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("overpass error %d: %s", resp.StatusCode, string(body))
	}

	var parsed overpassResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	best := closestNamed(coord, parsed.Elements)
	if best == nil {
		c.logger.Debug("No named stop nearby",
			zap.Float64("lat", coord.Lat),
			zap.Float64("lng", coord.Lng),
			zap.Int("radius_m", radiusMeters),
		)
	}
	return best, nil
}

// closestNamed picks the nearest element that carries a name tag.
func closestNamed(origin geo.Coordinate, elements []overpassElement) *outbound.NearbyStop {
	var best *outbound.NearbyStop
	for _, el := range elements {
		name := el.Tags["name"]
		if name == "" {
			continue
		}
		dist := geo.DistanceKm(origin, geo.Coordinate{Lat: el.Lat, Lng: el.Lon}) * 1000
		if best == nil || dist < best.Distance {
			best = &outbound.NearbyStop{Name: name, Distance: dist}
		}
	}
	return best
}
