package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/skypro1111/passwdgen-service/internal/config"
	"github.com/skypro1111/passwdgen-service/internal/dispatch"
	"github.com/skypro1111/passwdgen-service/internal/metrics"
	"github.com/skypro1111/passwdgen-service/internal/protocol"
)

const (
	serviceName    = "passwdgen-service"
	serviceVersion = "1.0.0"
)

// HTTPServer provides HTTP API endpoints for monitoring and ad-hoc generation
type HTTPServer struct {
	server    *http.Server
	router    chi.Router
	logger    *slog.Logger
	config    *config.Config
	udpServer *UDPServer
	metrics   *metrics.Metrics
	gatherer  prometheus.Gatherer

	// HTTP handlers run concurrently, the dispatcher and its generator do not
	dispatcher *dispatch.Dispatcher
	dispatchMu sync.Mutex

	startTime time.Time
}

// NewHTTPServer creates a new HTTP API server
func NewHTTPServer(appConfig *config.Config, logger *slog.Logger, udpServer *UDPServer,
	m *metrics.Metrics, gatherer prometheus.Gatherer) (*HTTPServer, error) {

	gen, err := newGenerator(appConfig.Generator.Source, uint64(appConfig.Server.Workers))
	if err != nil {
		return nil, fmt.Errorf("failed to create generator: %w", err)
	}

	h := &HTTPServer{
		logger:     logger,
		config:     appConfig,
		udpServer:  udpServer,
		metrics:    m,
		gatherer:   gatherer,
		dispatcher: dispatch.New(gen),
		startTime:  time.Now(),
	}

	h.router = chi.NewRouter()
	h.setupRoutes(h.router)

	h.server = &http.Server{
		Addr:         net.JoinHostPort(appConfig.HTTP.Address, strconv.Itoa(appConfig.HTTP.Port)),
		Handler:      h.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return h, nil
}

// setupRoutes configures HTTP API routes
func (h *HTTPServer) setupRoutes(r chi.Router) {
	r.Get("/", h.withMetrics("/", h.handleRoot))
	r.Get("/health", h.withMetrics("/health", h.handleHealth))
	r.Get("/stats", h.withMetrics("/stats", h.handleStats))
	r.Get("/config", h.withMetrics("/config", h.handleConfig))
	r.Get("/generate", h.withMetrics("/generate", h.handleGenerate))

	// Prometheus metrics endpoint (not instrumented itself)
	r.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
}

// Handler returns the HTTP handler, mainly for tests
func (h *HTTPServer) Handler() http.Handler {
	return h.router
}

// withMetrics wraps an HTTP handler with metrics collection
func (h *HTTPServer) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		handler(ww, r)

		duration := time.Since(startTime).Seconds()
		h.metrics.RecordHTTPRequest(r.Method, endpoint, strconv.Itoa(ww.statusCode), duration)

		if ww.statusCode >= 400 {
			errorType := "client_error"
			if ww.statusCode >= 500 {
				errorType = "server_error"
			}
			h.metrics.RecordHTTPError(r.Method, endpoint, errorType)
		}
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start starts the HTTP server
func (h *HTTPServer) Start() error {
	listener, err := net.Listen("tcp", h.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", h.server.Addr, err)
	}

	h.logger.Info("Starting HTTP API server",
		slog.String("address", listener.Addr().String()),
	)

	go func() {
		if err := h.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			h.logger.Error("HTTP server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP server
func (h *HTTPServer) Stop(ctx context.Context) error {
	h.logger.Info("Stopping HTTP API server...")

	return h.server.Shutdown(ctx)
}

// handleGenerate answers /generate?type=n&length=8 (or ?request=n+8) exactly as the
// UDP transport would
func (h *HTTPServer) handleGenerate(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	payload := query.Get("request")
	if payload == "" && (query.Has("type") || query.Has("length")) {
		payload = query.Get("type") + " " + query.Get("length")
	}
	if len(payload) > protocol.MaxPayloadSize {
		payload = payload[:protocol.MaxPayloadSize]
	}

	start := time.Now()
	h.dispatchMu.Lock()
	result := h.dispatcher.Handle([]byte(payload))
	h.dispatchMu.Unlock()

	h.metrics.RecordRequest("http", result.Outcome.String(), passwordTypeLabel(result), time.Since(start).Seconds())

	logger := h.logger.With(
		slog.String("request_id", newRequestID()),
		slog.String("remote_addr", r.RemoteAddr),
	)
	logResult(logger, result, h.config.Logging.ShouldLogPasswords(), time.Since(start))

	status := http.StatusOK
	if result.Outcome.IsError() {
		status = http.StatusBadRequest
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	w.Write(result.Response)
}

// handleHealth implements the /health endpoint
func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	udpStats := h.udpServer.GetStatistics()

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(h.startTime).String(),
		"service": map[string]interface{}{
			"name":    serviceName,
			"version": serviceVersion,
		},
		"components": map[string]interface{}{
			"udp_server": map[string]interface{}{
				"status":             "running",
				"datagrams_received": udpStats.DatagramsReceived,
				"requests_handled":   udpStats.RequestsHandled,
				"send_errors":        udpStats.SendErrors,
				"queue_size":         udpStats.QueueSize,
			},
		},
	}

	writeJSON(w, health)
}

// handleStats implements the /stats endpoint
func (h *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := map[string]interface{}{
		"uptime":    time.Since(h.startTime).String(),
		"timestamp": time.Now().UTC(),
		"udp":       h.udpServer.GetStatistics(),
	}

	writeJSON(w, stats)
}

// handleConfig implements the /config endpoint
func (h *HTTPServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	cfg := map[string]interface{}{
		"server": map[string]interface{}{
			"udp_port":        h.config.Server.UDPPort,
			"bind_address":    h.config.Server.BindAddress,
			"buffer_size":     h.config.Server.BufferSize,
			"workers":         h.config.Server.Workers,
			"queue_size":      h.config.Server.QueueSize,
			"read_timeout_ms": h.config.Server.ReadTimeoutMS,
		},
		"generator": map[string]interface{}{
			"source": h.config.Generator.Source,
		},
		"rate_limit": map[string]interface{}{
			"enabled":             h.config.RateLimit.Enabled,
			"requests_per_second": h.config.RateLimit.RequestsPerSecond,
			"burst":               h.config.RateLimit.Burst,
			"idle_timeout":        h.config.RateLimit.IdleTimeout,
		},
		"protocol": map[string]interface{}{
			"min_length":       protocol.MinLength,
			"max_length":       protocol.MaxLength,
			"max_payload_size": protocol.MaxPayloadSize,
		},
		"logging": map[string]interface{}{
			"level":         h.config.Logging.Level,
			"format":        h.config.Logging.Format,
			"output":        h.config.Logging.Output,
			"log_passwords": h.config.Logging.ShouldLogPasswords(),
		},
	}

	writeJSON(w, cfg)
}

// handleRoot implements the / endpoint with API documentation
func (h *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	apiDoc := map[string]interface{}{
		"service": "Password Generator Service",
		"version": serviceVersion,
		"endpoints": map[string]interface{}{
			"GET /":                         "API documentation",
			"GET /health":                   "Service health check",
			"GET /stats":                    "Get service statistics",
			"GET /config":                   "Get service configuration",
			"GET /generate?type=n&length=8": "Generate a password",
			"GET /generate?request=h":       "Protocol help text",
			"GET /metrics":                  "Prometheus metrics",
		},
		"timestamp": time.Now().UTC(),
	}

	writeJSON(w, apiDoc)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
