package server

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/me/lunchwheel/internal/config"
	"github.com/me/lunchwheel/internal/ratelimit"
	"github.com/me/lunchwheel/pkg/model"
)

const placesOK = `{
  "status": "OK",
  "results": [
    {
      "place_id": "r1",
      "name": "Taco Spot",
      "vicinity": "1 Main St",
      "types": ["mexican_restaurant", "restaurant", "food", "point_of_interest"],
      "rating": 4.5,
      "user_ratings_total": 120,
      "price_level": 2,
      "business_status": "OPERATIONAL",
      "geometry": {"location": {"lat": 32.78, "lng": -96.8}}
    },
    {
      "place_id": "g1",
      "name": "Fuel Stop",
      "vicinity": "2 Main St",
      "types": ["gas_station", "restaurant", "food"],
      "geometry": {"location": {"lat": 32.79, "lng": -96.81}}
    }
  ]
}`

const geocodeOK = `{"status":"OK","results":[{"formatted_address":"Dallas, TX 75201, USA","place_id":"z1","types":["postal_code"],"geometry":{"location":{"lat":32.78,"lng":-96.8}}}]}`

// fakeGoogle serves canned geocode and places replies and records the last query.
type fakeGoogle struct {
	*httptest.Server
	geocodeBody atomic.Value // string
	placesBody  atomic.Value // string
	lastQuery   atomic.Value // string
	calls       atomic.Int32
}

func newFakeGoogle(t *testing.T) *fakeGoogle {
	t.Helper()
	g := &fakeGoogle{}
	g.geocodeBody.Store(geocodeOK)
	g.placesBody.Store(placesOK)
	g.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g.calls.Add(1)
		g.lastQuery.Store(r.URL.RawQuery)
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/geocode/json":
			w.Write([]byte(g.geocodeBody.Load().(string)))
		case "/place/nearbysearch/json":
			w.Write([]byte(g.placesBody.Load().(string)))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(g.Close)
	return g
}

func (g *fakeGoogle) query() string {
	q, _ := g.lastQuery.Load().(string)
	return q
}

var fixedNow = time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)

func testConfig(g *fakeGoogle) config.ServerConfig {
	cfg := config.DefaultServerConfig()
	cfg.GoogleAPIKey = "test-key"
	if g != nil {
		cfg.GeocodeURL = g.URL + "/geocode/json"
		cfg.PlacesURL = g.URL + "/place/nearbysearch/json"
	}
	return cfg
}

func testServer(cfg config.ServerConfig, opts ...Option) *Server {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError}))
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return New(cfg, logger, opts...)
}

func do(t *testing.T, srv http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), "body=%s", w.Body.String())
	return body
}

func TestDiscovery(t *testing.T) {
	srv := testServer(testConfig(nil))
	w := do(t, srv, "GET", "/")
	require.Equal(t, http.StatusOK, w.Code)

	var data discoveryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &data))
	assert.Equal(t, "Lunch Wheel API", data.Name)
	assert.Len(t, data.Endpoints, 4)
}

func TestTestEndpoint(t *testing.T) {
	srv := testServer(testConfig(nil))
	for _, path := range []string{"/test", "/api/test"} {
		w := do(t, srv, "GET", path)
		require.Equal(t, http.StatusOK, w.Code, path)

		var data model.HealthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &data))
		assert.Equal(t, "OK", data.Message)
		assert.Equal(t, "2024-05-01T12:30:00.000Z", data.Timestamp)
		assert.True(t, strings.HasPrefix(data.GoVersion, "go"), data.GoVersion)
	}
}

func TestRequestIDHeader(t *testing.T) {
	srv := testServer(testConfig(nil))
	w := do(t, srv, "GET", "/test")
	id := w.Header().Get("X-Request-ID")
	assert.True(t, strings.HasPrefix(id, "req_"), id)
	assert.Len(t, id, 12)
}

func TestNotFoundEnvelope(t *testing.T) {
	srv := testServer(testConfig(nil))
	w := do(t, srv, "GET", "/nope")
	assert.Equal(t, http.StatusNotFound, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Not found", body["error"])
	assert.Equal(t, "2024-05-01T12:30:00.000Z", body["timestamp"])
}

func TestCORS(t *testing.T) {
	t.Run("development allows any origin", func(t *testing.T) {
		srv := testServer(testConfig(nil))
		w := do(t, srv, "GET", "/test")
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "GET, POST, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
		assert.Equal(t, "Content-Type, Authorization", w.Header().Get("Access-Control-Allow-Headers"))
	})

	t.Run("production pins the origin", func(t *testing.T) {
		cfg := testConfig(nil)
		cfg.Environment = config.Production
		cfg.AllowedOrigin = "https://lunch.example.com"
		srv := testServer(cfg)
		w := do(t, srv, "GET", "/test")
		assert.Equal(t, "https://lunch.example.com", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "Origin", w.Header().Get("Vary"))
	})

	t.Run("preflight", func(t *testing.T) {
		srv := testServer(testConfig(nil))
		w := do(t, srv, "OPTIONS", "/api/places")
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "3600", w.Header().Get("Access-Control-Max-Age"))
		assert.Empty(t, w.Body.String())
	})
}

func TestGeocode(t *testing.T) {
	g := newFakeGoogle(t)
	srv := testServer(testConfig(g))

	w := do(t, srv, "GET", "/api/geocode?zipCode=75201")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, geocodeOK, w.Body.String())
	assert.Contains(t, g.query(), "address=75201")
	assert.Contains(t, g.query(), "key=test-key")
	assert.NotContains(t, g.query(), "signature=")
}

func TestGeocodeSigned(t *testing.T) {
	g := newFakeGoogle(t)
	cfg := testConfig(g)
	cfg.SigningSecret = "vNIXE0xscrmjlyV-12Nj_BvUPaw="
	srv := testServer(cfg)

	w := do(t, srv, "GET", "/geocode?zipCode=75201")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, g.query(), "&signature=")
}

func TestGeocodeValidation(t *testing.T) {
	g := newFakeGoogle(t)
	srv := testServer(testConfig(g))

	for _, path := range []string{"/geocode", "/geocode?zipCode=", "/geocode?zipCode=%20%20"} {
		w := do(t, srv, "GET", path)
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
		assert.Equal(t, model.MsgInvalidZipCode, decode(t, w)["error"], path)
	}
	assert.Zero(t, g.calls.Load(), "invalid requests must not reach Google")
}

func TestGeocodeUpstreamStatus(t *testing.T) {
	g := newFakeGoogle(t)
	g.geocodeBody.Store(`{"status":"ZERO_RESULTS","results":[]}`)
	srv := testServer(testConfig(g))

	w := do(t, srv, "GET", "/geocode?zipCode=00000")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Geocoding failed", body["error"])
	assert.Equal(t, "ZERO_RESULTS", body["status"])
}

func TestMissingAPIKey(t *testing.T) {
	g := newFakeGoogle(t)
	cfg := testConfig(g)
	cfg.GoogleAPIKey = ""
	srv := testServer(cfg)

	for _, path := range []string{"/geocode?zipCode=75201", "/places?lat=32.7&lng=-96.8"} {
		w := do(t, srv, "GET", path)
		assert.Equal(t, http.StatusInternalServerError, w.Code, path)
		msg, _ := decode(t, w)["error"].(string)
		assert.Contains(t, strings.ToLower(msg), "configuration", path)
	}
	assert.Zero(t, g.calls.Load())
}

func TestPlacesFiltersNonRestaurants(t *testing.T) {
	g := newFakeGoogle(t)
	srv := testServer(testConfig(g))

	w := do(t, srv, "GET", "/api/places?lat=32.7767&lng=-96.797&radius=2000")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp model.PlacesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Places, 1)
	p := resp.Places[0]
	assert.Equal(t, "r1", p.ID)
	assert.Equal(t, "Taco Spot", p.DisplayName)
	require.NotNil(t, p.PrimaryType)
	assert.Equal(t, "Mexican Restaurant", *p.PrimaryType)
	require.NotNil(t, p.Rating)
	assert.InDelta(t, 4.5, *p.Rating, 1e-9)

	q := g.query()
	assert.Contains(t, q, "radius=2000")
	assert.Contains(t, q, "type=restaurant")
	assert.Contains(t, q, "location=32.7767%2C-96.797")
}

func TestPlacesRankByDistance(t *testing.T) {
	g := newFakeGoogle(t)
	srv := testServer(testConfig(g))

	w := do(t, srv, "GET", "/places?lat=32.7&lng=-96.8&radius=2000&rankBy=distance")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, g.query(), "rankby=distance")
	assert.NotContains(t, g.query(), "radius=")
}

func TestPlacesZeroResults(t *testing.T) {
	g := newFakeGoogle(t)
	g.placesBody.Store(`{"status":"ZERO_RESULTS","results":[]}`)
	srv := testServer(testConfig(g))

	w := do(t, srv, "GET", "/places?lat=32.7&lng=-96.8")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"places":[]}`, w.Body.String())
}

func TestPlacesUpstreamStatus(t *testing.T) {
	g := newFakeGoogle(t)
	g.placesBody.Store(`{"status":"REQUEST_DENIED","error_message":"The provided API key is invalid."}`)
	srv := testServer(testConfig(g))

	w := do(t, srv, "GET", "/places?lat=32.7&lng=-96.8")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Google Places API error", body["error"])
	assert.Equal(t, "REQUEST_DENIED", body["status"])
	assert.NotContains(t, w.Body.String(), "test-key")
}

func TestPlacesInvalidCoordinates(t *testing.T) {
	g := newFakeGoogle(t)
	srv := testServer(testConfig(g))

	for _, path := range []string{
		"/places",
		"/places?lat=abc&lng=-96.8",
		"/places?lat=91&lng=0",
		"/places?lat=0&lng=-180.5",
	} {
		w := do(t, srv, "GET", path)
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
		assert.Equal(t, model.MsgInvalidCoordinates, decode(t, w)["error"], path)
	}
	assert.Zero(t, g.calls.Load())
}

func TestPlacesTransportFailure(t *testing.T) {
	t.Run("timeout", func(t *testing.T) {
		slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}))
		defer slow.Close()

		cfg := testConfig(nil)
		cfg.PlacesURL = slow.URL
		cfg.UpstreamTimeout = 50 * time.Millisecond
		srv := testServer(cfg)

		w := do(t, srv, "GET", "/places?lat=32.7&lng=-96.8")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "Failed to fetch restaurants", decode(t, w)["error"])
	})

	t.Run("non-200 reply", func(t *testing.T) {
		broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "forbidden", http.StatusForbidden)
		}))
		defer broken.Close()

		cfg := testConfig(nil)
		cfg.GeocodeURL = broken.URL
		srv := testServer(cfg)

		w := do(t, srv, "GET", "/geocode?zipCode=75201")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "Failed to geocode ZIP code", decode(t, w)["error"])
		assert.NotContains(t, w.Body.String(), "test-key")
	})
}

func TestRateLimit(t *testing.T) {
	g := newFakeGoogle(t)
	cfg := testConfig(g)
	cfg.RateLimitMax = 2
	cfg.RateLimitWindow = time.Minute

	now := fixedNow
	limiter := ratelimit.New(ratelimit.WithClock(func() time.Time { return now }))
	srv := testServer(cfg, WithLimiter(limiter))

	get := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("GET", "/api/geocode?zipCode=75201", nil)
		req.Header.Set("X-Forwarded-For", ip)
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, get("10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, get("10.0.0.1").Code)

	w := get("10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, model.MsgTooManyRequests, decode(t, w)["error"])
	assert.Equal(t, "60", w.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, get("10.0.0.2").Code, "other clients are unaffected")

	// /test is not rate limited.
	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("X-Forwarded-For", "10.0.0.1")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	now = now.Add(time.Minute + time.Second)
	assert.Equal(t, http.StatusOK, get("10.0.0.1").Code, "window reset")
}

func TestRateLimit_RetryAfterCountsDown(t *testing.T) {
	g := newFakeGoogle(t)
	cfg := testConfig(g)
	cfg.RateLimitMax = 1
	cfg.RateLimitWindow = time.Minute

	now := fixedNow
	clock := func() time.Time { return now }
	srv := testServer(cfg, WithClock(clock), WithLimiter(ratelimit.New(ratelimit.WithClock(clock))))

	req := httptest.NewRequest("GET", "/api/geocode?zipCode=75201", nil)
	req.RemoteAddr = "192.0.2.7:5555"
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	now = now.Add(44*time.Second + 500*time.Millisecond)
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "16", w.Header().Get("Retry-After"))

	now = fixedNow.Add(59*time.Second + 900*time.Millisecond)
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
}

func TestClientIP(t *testing.T) {
	cases := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"first forwarded entry", map[string]string{"X-Forwarded-For": " 1.1.1.1 , 2.2.2.2"}, "9.9.9.9:1", "1.1.1.1"},
		{"forwarded beats real ip", map[string]string{"X-Forwarded-For": "1.1.1.1", "X-Real-IP": "3.3.3.3"}, "9.9.9.9:1", "1.1.1.1"},
		{"true client ip ignored", map[string]string{"True-Client-IP": "4.4.4.4", "X-Real-IP": "3.3.3.3"}, "9.9.9.9:1", "3.3.3.3"},
		{"remote addr", map[string]string{"True-Client-IP": "4.4.4.4"}, "9.9.9.9:1", "9.9.9.9"},
		{"empty forwarded list", map[string]string{"X-Forwarded-For": " , 2.2.2.2"}, "[::1]:80", "::1"},
		{"nothing", nil, "", "unknown"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tc.remote
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tc.want, clientIP(req))
		})
	}
}

func TestRateLimit_IgnoresTrueClientIP(t *testing.T) {
	g := newFakeGoogle(t)
	cfg := testConfig(g)
	cfg.RateLimitMax = 1
	cfg.RateLimitWindow = time.Minute
	srv := testServer(cfg, WithLimiter(ratelimit.New(ratelimit.WithClock(func() time.Time { return fixedNow }))))

	get := func(trueClient string) int {
		req := httptest.NewRequest("GET", "/api/geocode?zipCode=75201", nil)
		req.Header.Set("X-Forwarded-For", "10.0.0.9, 172.16.0.1")
		req.Header.Set("True-Client-IP", trueClient)
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, get("203.0.113.1"))
	assert.Equal(t, http.StatusTooManyRequests, get("203.0.113.2"), "a new True-Client-IP must not open a new bucket")
}

func TestDiagnostic(t *testing.T) {
	g := newFakeGoogle(t)
	cfg := testConfig(g)
	cfg.SigningSecret = "vNIXE0xscrmjlyV-12Nj_BvUPaw="
	srv := testServer(cfg)
	srv.hostStats = func() (hostStats, error) {
		return hostStats{MemoryTotal: 8 << 30, MemoryFree: 2 << 30, Uptime: 3600}, nil
	}

	w := do(t, srv, "GET", "/api/diagnostic")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "test-key")
	assert.NotContains(t, w.Body.String(), cfg.SigningSecret)

	var resp diagnosticResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "true", resp.Environment.Env["GOOGLE_API_KEY_SET"])
	assert.Equal(t, "true", resp.Environment.Env["GOOGLE_SIGNING_SECRET_SET"])
	require.NotNil(t, resp.Environment.Memory)
	assert.Equal(t, uint64(8<<30), resp.Environment.Memory.Total)
	assert.InDelta(t, 3600, resp.Environment.Uptime, 1e-9)

	assert.Equal(t, "success", resp.GoogleAPITest.Status)
	assert.Equal(t, "OK", resp.GoogleAPITest.GoogleStatus)
	assert.True(t, resp.GoogleAPITest.HasResults)
	assert.Contains(t, g.query(), "address=Dallas")

	assert.Equal(t, "success", resp.URLSigningTest.Status)
	assert.True(t, resp.URLSigningTest.Signed)
}

func TestDiagnosticWithoutCredentials(t *testing.T) {
	g := newFakeGoogle(t)
	cfg := testConfig(g)
	cfg.GoogleAPIKey = ""
	srv := testServer(cfg)

	w := do(t, srv, "GET", "/diagnostic")
	require.Equal(t, http.StatusOK, w.Code)

	var resp diagnosticResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "false", resp.Environment.Env["GOOGLE_API_KEY_SET"])
	assert.Contains(t, resp.GoogleAPITest.Status, "skipped")
	assert.False(t, resp.URLSigningTest.Signed)
	assert.Zero(t, g.calls.Load())
}
