package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/me/lunchwheel/internal/logging"
	"github.com/me/lunchwheel/pkg/model"
)

// Client is an HTTP client for the lunch wheel proxy.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// NewClient creates a proxy API client.
func NewClient(baseURL string, logger *slog.Logger) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{},
		Logger:     logger,
	}
}

// APIError is a non-2xx reply from the proxy.
type APIError struct {
	StatusCode int
	Body       model.ErrorBody
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("%s (HTTP %d)", e.Body.Error, e.StatusCode)
	if e.Body.Status != "" {
		msg += ": " + e.Body.Status
	}
	return msg
}

// Get performs a GET request and decodes a successful JSON reply into out.
func (c *Client) Get(path string, params url.Values, out any) error {
	u := c.BaseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	c.Logger.Debug("HTTP request", "method", "GET", "url", logging.RedactURL(u))

	resp, err := c.HTTPClient.Get(u)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	c.Logger.Debug("HTTP response", "status", resp.StatusCode, "bytes", len(respBody))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if err := json.Unmarshal(respBody, &apiErr.Body); err != nil || apiErr.Body.Error == "" {
			apiErr.Body.Error = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("parse response (status %d): %w\nbody: %s", resp.StatusCode, err, string(respBody))
	}
	return nil
}

// Geocode resolves a ZIP code through the proxy.
func (c *Client) Geocode(zip string) (*model.GeocodeResponse, error) {
	var out model.GeocodeResponse
	if err := c.Get("/api/geocode", url.Values{"zipCode": {zip}}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Places searches for restaurants around q.
func (c *Client) Places(q model.SearchQuery) ([]model.NormalizedPlace, error) {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(q.Latitude, 'f', -1, 64))
	params.Set("lng", strconv.FormatFloat(q.Longitude, 'f', -1, 64))
	if q.RankPreference == model.RankByDistance {
		params.Set("rankBy", "distance")
	} else {
		params.Set("radius", strconv.Itoa(q.RadiusMeters))
	}

	var out model.PlacesResponse
	if err := c.Get("/api/places", params, &out); err != nil {
		return nil, err
	}
	return out.Places, nil
}
