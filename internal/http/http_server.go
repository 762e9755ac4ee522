// Package http implements the external HTTP surface (spec §6): a static
// "/" handler and a scrape endpoint that drives the Scrape Coordinator and
// renders its merged samples through the Prometheus text exposition
// format. Grounded on the teacher's internal/http/http_server.go server
// shape (mux, auth middleware, listen/serve split), rewired to the
// Coordinator instead of the default global prometheus registry.
package http

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dbmetrics/pg_exporter/internal/coordinator"
	"github.com/dbmetrics/pg_exporter/internal/log"
	"github.com/prometheus/common/expfmt"
)

// rootBody is the exact static body required for GET / (spec §6, §8
// scenario 6). It is inherited verbatim from the distilled spec text.
const rootBody = "This is a PgExporter for Prometheus written in Rust"

// scrapeTimeoutHeader is the header Prometheus sends advertising how long it
// will wait for this scrape (spec §4.5 deadline derivation).
const scrapeTimeoutHeader = "X-Prometheus-Scrape-Timeout-Seconds"

// AuthConfig defines optional basic-auth settings for the metrics endpoint.
// Not required by spec §6, but carried as ambient HTTP-layer configuration
// in the teacher's idiom (internal/http/http_server.go's AuthConfig).
type AuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

func (cfg AuthConfig) enabled() bool {
	return cfg.Username != "" && cfg.Password != ""
}

// ServerConfig defines HTTP server configuration.
type ServerConfig struct {
	Addr          string
	Endpoint      string
	ScrapeTimeout time.Duration
	Auth          AuthConfig
}

// Server serves the root page and metrics endpoint over HTTP.
type Server struct {
	config ServerConfig
	server *http.Server
}

// NewServer builds a Server that answers GET / with the static body and
// GET <endpoint> by driving coord and rendering its result as Prometheus
// text exposition (spec §4.6).
func NewServer(cfg ServerConfig, coord *coordinator.Coordinator) *Server {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "/metrics"
	}

	mux := http.NewServeMux()
	mux.Handle("/", handleRoot())

	metricsHandler := handleMetrics(coord, cfg.ScrapeTimeout)
	if cfg.Auth.enabled() {
		metricsHandler = basicAuth(cfg.Auth, metricsHandler)
	}
	mux.Handle(endpoint, metricsHandler)

	return &Server{
		config: cfg,
		server: &http.Server{
			Addr:         cfg.Addr,
			Handler:      mux,
			IdleTimeout:  10 * time.Second,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
	}
}

// Serve starts listening and serving requests; it blocks until the
// listener fails or is shut down.
func (s *Server) Serve() error {
	log.Infof("listen on %s", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// handleRoot answers GET / with the exact literal body required by spec §8
// scenario 6. The "/" pattern matches every path the ServeMux has no more
// specific route for, so the handler answers any path other than "/"
// itself with http.NotFound.
func handleRoot() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if _, err := w.Write([]byte(rootBody)); err != nil {
			log.Warnf("response write failed: %s", err)
		}
	})
}

// handleMetrics drives one scrape through the Coordinator under a
// request-scoped deadline (request header wins over the configured
// default, spec §4.5) and writes the merged families as Prometheus text
// exposition (spec §4.6), using expfmt rather than hand-rolling the wire
// format.
func handleMetrics(coord *coordinator.Coordinator, defaultTimeout time.Duration) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deadline := defaultTimeout
		if raw := r.Header.Get(scrapeTimeoutHeader); raw != "" {
			if secs, err := strconv.ParseFloat(raw, 64); err == nil && secs > 0 {
				deadline = time.Duration(secs * float64(time.Second))
			}
		}

		families, err := coord.Gather(r.Context(), deadline)
		if err != nil {
			http.Error(w, fmt.Sprintf("scrape failed: %s", err), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", string(expfmt.FmtText))
		enc := expfmt.NewEncoder(w, expfmt.FmtText)
		for _, mf := range families {
			if err := enc.Encode(mf); err != nil {
				log.Warnf("encode metric family %s failed: %s", mf.GetName(), err)
			}
		}
	})
}

// basicAuth is a middleware enforcing HTTP basic authentication.
func basicAuth(cfg AuthConfig, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if ok && username == cfg.Username && password == cfg.Password {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("WWW-Authenticate", `Basic realm="restricted", charset="UTF-8"`)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	})
}
