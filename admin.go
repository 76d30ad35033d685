package peek

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// AdminAPI provides read-only REST endpoints for observing a running
// inspector: event counters, the active configuration, and health
// probes. Configuration itself is fixed at startup, so the API exposes
// no mutations.
//
// The API is mounted at a configurable path prefix (default "/api/v1")
// and uses [chi] for routing. All endpoints return JSON.
type AdminAPI struct {
	// Inspector is the inspector instance to observe.
	Inspector *Inspector

	// Config is the active configuration, echoed by GET /config.
	Config Config

	// Logger for admin API events.
	Logger *slog.Logger

	// PathPrefix is the URL path prefix for admin routes (default "/api/v1").
	PathPrefix string

	// Health provides /healthz and /readyz when set.
	Health *HealthChecker

	router chi.Router
}

// NewAdminAPI creates an AdminAPI wired to the given inspector.
func NewAdminAPI(inspector *Inspector, cfg Config) *AdminAPI {
	a := &AdminAPI{
		Inspector:  inspector,
		Config:     cfg,
		Logger:     slog.Default(),
		PathPrefix: "/api/v1",
	}
	if cfg.Admin.PathPrefix != "" {
		a.PathPrefix = cfg.Admin.PathPrefix
	}
	a.buildRouter()
	return a
}

func (a *AdminAPI) buildRouter() {
	r := chi.NewRouter()
	r.Use(middleware.SetHeader("Content-Type", "application/json"))

	r.Get("/status", a.handleStatus)
	r.Get("/config", a.handleConfig)

	a.router = r
}

// Handler returns an http.Handler for the admin API routes.
// Mount this on a separate listener alongside /metrics and the health
// endpoints.
func (a *AdminAPI) Handler() http.Handler {
	return http.StripPrefix(a.PathPrefix, a.router)
}

// ServeHTTP implements http.Handler by delegating to the internal chi router
// after stripping the path prefix.
func (a *AdminAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.Handler().ServeHTTP(w, r)
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	Status    string `json:"status"`
	Mode      string `json:"mode"`
	Uptime    string `json:"uptime,omitempty"`
	Requests  uint64 `json:"requests"`
	Responses uint64 `json:"responses"`
	Errors    uint64 `json:"errors"`
	Prefixes  int    `json:"binary_prefix_count"`
}

// ConfigResponse is returned by GET /config.
type ConfigResponse struct {
	Mode                   string   `json:"mode"`
	PreviewThresholdBytes  int      `json:"preview_threshold_bytes"`
	HexMaxBytes            int      `json:"hex_max_bytes"`
	TextMaxBytes           int      `json:"text_max_bytes"`
	ControlCharRatio       float64  `json:"control_char_ratio"`
	DecodeContentEncodings bool     `json:"decode_content_encodings"`
	BinaryPrefixes         []string `json:"binary_prefixes"`
}

// ErrorResponse is returned for error conditions.
type ErrorResponse struct {
	Error string `json:"error"`
}

func (a *AdminAPI) handleStatus(w http.ResponseWriter, _ *http.Request) {
	stats := a.Inspector.Stats()

	resp := StatusResponse{
		Status:    "ok",
		Mode:      a.Inspector.Mode(),
		Uptime:    time.Since(stats.Started).Truncate(time.Second).String(),
		Requests:  stats.Requests,
		Responses: stats.Responses,
		Errors:    stats.Errors,
		Prefixes:  a.Inspector.Classifier().PrefixCount(),
	}

	a.writeJSON(w, http.StatusOK, resp)
}

func (a *AdminAPI) handleConfig(w http.ResponseWriter, _ *http.Request) {
	prefixes := a.Config.BinaryPrefixes
	if len(prefixes) == 0 {
		prefixes = DefaultBinaryPrefixes
	}

	resp := ConfigResponse{
		Mode:                   a.Config.Mode,
		PreviewThresholdBytes:  a.Config.PreviewThresholdBytes,
		HexMaxBytes:            a.Config.HexMaxBytes,
		TextMaxBytes:           a.Config.TextMaxBytes,
		ControlCharRatio:       a.Config.ControlCharRatio,
		DecodeContentEncodings: a.Config.DecodeContentEncodings,
		BinaryPrefixes:         prefixes,
	}

	a.writeJSON(w, http.StatusOK, resp)
}

func (a *AdminAPI) writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.Logger.Error("encode admin response", "error", err)
	}
}

// AdminServer bundles the admin API, health probes, and optional
// metrics endpoint on one mux, ready to serve on the admin address.
func AdminServer(api *AdminAPI, metrics *Metrics) http.Handler {
	mux := http.NewServeMux()

	mux.Handle(api.PathPrefix+"/", api)

	if api.Health != nil {
		mux.HandleFunc("/healthz", api.Health.HandleHealthz)
		mux.HandleFunc("/readyz", api.Health.HandleReadyz)
	}

	if metrics != nil {
		mux.Handle("/metrics", metrics.Handler())
	}

	return mux
}
