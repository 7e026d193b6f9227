// Package positioning implements the device positioning port.
package positioning

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kasuwa/searchstream/internal/domain/entities"
	"github.com/kasuwa/searchstream/internal/domain/providers"
	apperrors "github.com/kasuwa/searchstream/pkg/errors"
)

const (
	googleGeolocateURL = "https://www.googleapis.com/geolocation/v1/geolocate"
	defaultHTTPTimeout = 8 * time.Second
)

// HTTPPositioner resolves the device's position through a Google-style
// geolocation API: one POST per fix, no caching (the caller persists the
// result itself).
type HTTPPositioner struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewHTTPPositioner creates a positioner against the Google geolocation API.
func NewHTTPPositioner(apiKey string) *HTTPPositioner {
	return NewHTTPPositionerWithOptions(apiKey, googleGeolocateURL, nil)
}

// NewHTTPPositionerWithOptions allows overriding base URL and HTTP client
// (used for tests).
func NewHTTPPositionerWithOptions(apiKey, baseURL string, httpClient *http.Client) *HTTPPositioner {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = googleGeolocateURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &HTTPPositioner{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

type geolocateResponse struct {
	Location struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	} `json:"location"`
	Accuracy float64 `json:"accuracy"`
}

// CurrentPosition requests a single high-accuracy fix. The context deadline
// bounds the whole request.
func (p *HTTPPositioner) CurrentPosition(ctx context.Context) (*entities.GeoCoordinate, error) {
	url := p.baseURL
	if p.apiKey != "" {
		url += "?key=" + p.apiKey
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(`{"considerIp": true}`))
	if err != nil {
		return nil, apperrors.NewPositioningError("building geolocate request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewPositioningError("geolocate request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewPositioningError(fmt.Sprintf("geolocate returned status %d", resp.StatusCode), nil)
	}

	var body geolocateResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, apperrors.NewPositioningError("decoding geolocate response", err)
	}

	return &entities.GeoCoordinate{Lat: body.Location.Lat, Lon: body.Location.Lng}, nil
}

var _ providers.Positioner = (*HTTPPositioner)(nil)
