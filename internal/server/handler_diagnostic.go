package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
	"golang.org/x/sync/errgroup"

	"github.com/me/lunchwheel/internal/config"
	"github.com/me/lunchwheel/internal/signer"
	"github.com/me/lunchwheel/pkg/model"
)

// diagnosticAddress is geocoded to check the key against the live API.
const diagnosticAddress = "Dallas"

// signingProbeURL is signed to check the configured secret decodes.
const signingProbeURL = "https://maps.googleapis.com/maps/api/geocode/json?address=Dallas"

type hostStats struct {
	MemoryTotal uint64
	MemoryFree  uint64
	Uptime      uint64 // seconds
}

func readHostStats() (hostStats, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return hostStats{}, err
	}
	up, err := host.Uptime()
	if err != nil {
		return hostStats{}, err
	}
	return hostStats{MemoryTotal: vm.Total, MemoryFree: vm.Available, Uptime: up}, nil
}

type memoryInfo struct {
	Total uint64 `json:"total"`
	Free  uint64 `json:"free"`
}

type environmentInfo struct {
	GoVersion     string            `json:"goVersion"`
	Platform      string            `json:"platform"`
	Arch          string            `json:"arch"`
	Memory        *memoryInfo       `json:"memory,omitempty"`
	Uptime        float64           `json:"uptime"`
	ServerUptime  float64           `json:"serverUptime"`
	Env           map[string]string `json:"env"`
	HostStatError string            `json:"hostStatError,omitempty"`
}

type googleAPITest struct {
	Status       string `json:"status"`
	GoogleStatus string `json:"googleStatus,omitempty"`
	HasResults   bool   `json:"hasResults"`
}

type urlSigningTest struct {
	Status string `json:"status"`
	Signed bool   `json:"signed"`
}

type diagnosticResponse struct {
	Message        string          `json:"message"`
	Timestamp      string          `json:"timestamp"`
	Environment    environmentInfo `json:"environment"`
	GoogleAPITest  googleAPITest   `json:"googleApiTest"`
	URLSigningTest urlSigningTest  `json:"urlSigningTest"`
}

// handleDiagnostic reports runtime and configuration health. Only the
// presence of credentials is reported, never their values.
func (s *Server) handleDiagnostic(w http.ResponseWriter, r *http.Request) {
	env := environmentInfo{
		GoVersion:    runtime.Version(),
		Platform:     runtime.GOOS,
		Arch:         runtime.GOARCH,
		ServerUptime: time.Since(s.startTime).Seconds(),
		Env: map[string]string{
			config.EnvEnvironment:            s.config.Environment,
			config.EnvGoogleAPIKey + "_SET":  strconv.FormatBool(s.config.GoogleAPIKey != ""),
			config.EnvSigningSecret + "_SET": strconv.FormatBool(s.config.SigningSecret != ""),
		},
	}

	// Probes are independent and run concurrently.
	var (
		g       errgroup.Group
		googleT googleAPITest
		signT   urlSigningTest
	)
	g.Go(func() error {
		if st, err := s.hostStats(); err != nil {
			env.HostStatError = err.Error()
		} else {
			env.Memory = &memoryInfo{Total: st.MemoryTotal, Free: st.MemoryFree}
			env.Uptime = float64(st.Uptime)
		}
		return nil
	})
	g.Go(func() error {
		googleT = s.probeGoogle(r.Context())
		return nil
	})
	g.Go(func() error {
		signT = s.probeSigning()
		return nil
	})
	g.Wait()

	s.respondOK(w, diagnosticResponse{
		Message:        "Diagnostic information",
		Timestamp:      s.timestamp(),
		Environment:    env,
		GoogleAPITest:  googleT,
		URLSigningTest: signT,
	})
}

func (s *Server) probeGoogle(ctx context.Context) googleAPITest {
	if s.config.GoogleAPIKey == "" {
		return googleAPITest{Status: "skipped: no API key"}
	}
	res, err := s.google.Geocode(ctx, diagnosticAddress)
	if err != nil {
		var ue *model.UpstreamStatusError
		if errors.As(err, &ue) {
			return googleAPITest{Status: "failed", GoogleStatus: ue.Status}
		}
		return googleAPITest{Status: "error: " + err.Error()}
	}
	return googleAPITest{Status: "success", GoogleStatus: res.Status, HasResults: hasGeocodeResults(res.Payload)}
}

func hasGeocodeResults(payload []byte) bool {
	var body model.GeocodeResponse
	if err := json.Unmarshal(payload, &body); err != nil {
		return false
	}
	return len(body.Results) > 0
}

func (s *Server) probeSigning() urlSigningTest {
	if s.config.SigningSecret == "" {
		return urlSigningTest{Status: "skipped: no signing secret"}
	}
	if _, err := signer.Sign(signingProbeURL, s.config.SigningSecret); err != nil {
		return urlSigningTest{Status: "error: " + err.Error()}
	}
	return urlSigningTest{Status: "success", Signed: true}
}
