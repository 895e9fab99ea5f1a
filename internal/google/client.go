// Package google calls the Google Maps Geocoding and Places web services.
package google

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/me/lunchwheel/internal/logging"
	"github.com/me/lunchwheel/internal/signer"
	"github.com/me/lunchwheel/pkg/model"
)

// Production endpoints.
const (
	DefaultGeocodeURL = "https://maps.googleapis.com/maps/api/geocode/json"
	DefaultPlacesURL  = "https://maps.googleapis.com/maps/api/place/nearbysearch/json"
)

// DefaultTimeout bounds every upstream call.
const DefaultTimeout = 10 * time.Second

// Upstream status strings.
const (
	StatusOK          = "OK"
	StatusZeroResults = "ZERO_RESULTS"
)

// maxBody caps how much of an upstream reply is read.
const maxBody = 4 << 20

// ClientConfig holds Google web service configuration.
type ClientConfig struct {
	APIKey        string
	SigningSecret string // optional; enables URL signing
	GeocodeURL    string
	PlacesURL     string
	Timeout       time.Duration
}

// DefaultClientConfig returns configuration pointing to the production endpoints.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		GeocodeURL: DefaultGeocodeURL,
		PlacesURL:  DefaultPlacesURL,
		Timeout:    DefaultTimeout,
	}
}

// Client issues signed or unsigned GET requests to Google.
type Client struct {
	cfg    ClientConfig
	client *http.Client
	logger *slog.Logger
}

// NewClient creates a Client. Empty URLs and timeout fall back to the defaults.
func NewClient(cfg ClientConfig, logger *slog.Logger) *Client {
	def := DefaultClientConfig()
	if cfg.GeocodeURL == "" {
		cfg.GeocodeURL = def.GeocodeURL
	}
	if cfg.PlacesURL == "" {
		cfg.PlacesURL = def.PlacesURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{},
		logger: logger.With("component", "google"),
	}
}

// Signing reports whether requests will carry a signature.
func (c *Client) Signing() bool {
	return c.cfg.SigningSecret != ""
}

// GeocodeURL builds the request URL for an address and reports whether it was signed.
func (c *Client) GeocodeURL(address string) (string, bool, error) {
	params := url.Values{}
	params.Set("address", address)
	params.Set("key", c.cfg.APIKey)
	return c.buildURL(c.cfg.GeocodeURL, params)
}

// NearbySearchURL builds the legacy Nearby Search URL for q. Distance ranking
// sends rankby=distance and omits the radius, which Google rejects together.
func (c *Client) NearbySearchURL(q model.SearchQuery) (string, bool, error) {
	params := url.Values{}
	params.Set("location", formatCoord(q.Latitude)+","+formatCoord(q.Longitude))
	if q.RankPreference == model.RankByDistance {
		params.Set("rankby", "distance")
	} else {
		params.Set("radius", strconv.Itoa(q.RadiusMeters))
	}
	params.Set("type", "restaurant")
	params.Set("key", c.cfg.APIKey)
	return c.buildURL(c.cfg.PlacesURL, params)
}

func (c *Client) buildURL(base string, params url.Values) (string, bool, error) {
	u := base + "?" + params.Encode()
	if !c.Signing() {
		return u, false, nil
	}
	signed, err := signer.Sign(u, c.cfg.SigningSecret)
	if err != nil {
		return "", false, err
	}
	return signed, true, nil
}

// GeocodeResult is a decoded geocoding reply. Payload is the untouched body.
type GeocodeResult struct {
	Status  string
	Payload json.RawMessage
}

// FetchGeocode GETs a geocoding URL. A status other than OK is an UpstreamStatusError.
func (c *Client) FetchGeocode(ctx context.Context, requestURL string) (*GeocodeResult, error) {
	var envelope struct {
		Status       string `json:"status"`
		ErrorMessage string `json:"error_message"`
	}
	body, err := c.get(ctx, "geocode", requestURL, &envelope)
	if err != nil {
		return nil, err
	}
	if envelope.Status != StatusOK {
		return nil, &model.UpstreamStatusError{Service: "geocode", Status: envelope.Status, Message: envelope.ErrorMessage}
	}
	return &GeocodeResult{Status: envelope.Status, Payload: body}, nil
}

// FetchNearby GETs a Nearby Search URL. OK and ZERO_RESULTS both succeed.
func (c *Client) FetchNearby(ctx context.Context, requestURL string) ([]model.PlaceCandidate, error) {
	var envelope struct {
		Status       string                 `json:"status"`
		ErrorMessage string                 `json:"error_message"`
		Results      []model.PlaceCandidate `json:"results"`
	}
	if _, err := c.get(ctx, "places", requestURL, &envelope); err != nil {
		return nil, err
	}
	switch envelope.Status {
	case StatusOK:
		return envelope.Results, nil
	case StatusZeroResults:
		return []model.PlaceCandidate{}, nil
	default:
		return nil, &model.UpstreamStatusError{Service: "places", Status: envelope.Status, Message: envelope.ErrorMessage}
	}
}

// Geocode builds, signs and fetches a geocoding request.
func (c *Client) Geocode(ctx context.Context, address string) (*GeocodeResult, error) {
	u, _, err := c.GeocodeURL(address)
	if err != nil {
		return nil, err
	}
	return c.FetchGeocode(ctx, u)
}

// NearbySearch builds, signs and fetches a nearby restaurant search.
func (c *Client) NearbySearch(ctx context.Context, q model.SearchQuery) ([]model.PlaceCandidate, error) {
	u, _, err := c.NearbySearchURL(q)
	if err != nil {
		return nil, err
	}
	return c.FetchNearby(ctx, u)
}

// get performs a bounded GET and decodes the JSON body into out.
// Anything that prevents a decoded reply is a TransportError.
func (c *Client) get(ctx context.Context, op, requestURL string, out any) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, &model.TransportError{Op: op, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	c.logger.Debug("upstream request", "op", op, "url", logging.RedactURL(requestURL))

	resp, err := c.client.Do(req)
	if err != nil {
		// The url.Error from net/http embeds the request URL, key included.
		if uerr, ok := err.(*url.Error); ok {
			err = uerr.Err
		}
		return nil, &model.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, &model.TransportError{Op: op, Err: fmt.Errorf("read response: %w", err)}
	}

	c.logger.Debug("upstream response", "op", op, "http_status", resp.StatusCode, "duration", time.Since(start).String())

	if resp.StatusCode != http.StatusOK {
		return nil, &model.TransportError{Op: op, Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return nil, &model.TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return body, nil
}

func formatCoord(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
