package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/skypro1111/binspect/internal/config"
	"github.com/skypro1111/binspect/internal/decode"
	"github.com/skypro1111/binspect/internal/grammar"
	"github.com/skypro1111/binspect/internal/metrics"
	"github.com/skypro1111/binspect/internal/report"
)

// HTTPServer exposes the decoder over HTTP: one decode endpoint per
// registered grammar plus monitoring endpoints. Each request runs an
// independent decode call; the decoder itself holds no shared state, so
// request-level parallelism needs no coordination here.
type HTTPServer struct {
	server  *http.Server
	logger  *slog.Logger
	config  *config.Config
	metrics *metrics.Metrics

	// Server state
	startTime time.Time

	// Request counters
	decodesTotal uint64
	decodeErrors uint64
	mu           sync.RWMutex
}

// NewHTTPServer creates a new HTTP API server
func NewHTTPServer(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *HTTPServer {
	h := &HTTPServer{
		logger:    logger,
		config:    cfg,
		metrics:   m,
		startTime: time.Now(),
	}

	mux := http.NewServeMux()
	h.setupRoutes(mux)

	h.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port),
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return h
}

// setupRoutes configures HTTP API routes
func (h *HTTPServer) setupRoutes(mux *http.ServeMux) {
	// Decode endpoint: POST /decode/{grammar}
	mux.HandleFunc("/decode/", h.withMetrics("/decode/{grammar}", h.handleDecode))

	// Grammar listing
	mux.HandleFunc("/grammars", h.withMetrics("/grammars", h.handleGrammars))

	// Health check endpoint
	mux.HandleFunc("/health", h.withMetrics("/health", h.handleHealth))

	// Statistics endpoint
	mux.HandleFunc("/stats", h.withMetrics("/stats", h.handleStats))

	// Prometheus metrics endpoint (no metrics needed for metrics endpoint)
	mux.Handle("/metrics", promhttp.Handler())

	// Root endpoint with API documentation
	mux.HandleFunc("/", h.withMetrics("/", h.handleRoot))
}

// withMetrics wraps an HTTP handler with metrics collection
func (h *HTTPServer) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		// Create a response writer wrapper to capture status code
		ww := &responseWriter{ResponseWriter: w, statusCode: 200}

		// Call the original handler
		handler(ww, r)

		// Record metrics
		duration := time.Since(startTime).Seconds()
		statusCode := fmt.Sprintf("%d", ww.statusCode)

		h.metrics.RecordHTTPRequest(r.Method, endpoint, statusCode, duration)

		// Record error if status code indicates an error
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
	h.logger.Info("Starting HTTP API server",
		slog.String("address", h.server.Addr),
	)

	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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

// handleDecode implements POST /decode/{grammar}: the request body is the
// raw binary input, the response the JSON decode result.
func (h *HTTPServer) handleDecode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/decode/")
	if name == "" || strings.Contains(name, "/") {
		http.Error(w, "Usage: POST /decode/{grammar}", http.StatusNotFound)
		return
	}

	g, err := grammar.Lookup(name)
	if err != nil {
		h.writeError(w, http.StatusNotFound, err.Error(), -1)
		return
	}

	limit := int64(h.config.Decode.MaxInputBytes)
	data, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "failed to read request body", -1)
		return
	}
	if int64(len(data)) > limit {
		h.writeError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("input exceeds %d bytes", limit), -1)
		return
	}

	startTime := time.Now()
	root, stats, err := decode.Run(g, data, decode.WithMaxDepth(h.config.Decode.MaxDepth))
	duration := time.Since(startTime).Seconds()

	if err != nil {
		h.metrics.RecordDecodeError(name, decode.KindName(err), duration)
		h.recordDecode(false)
		h.logger.Debug("Decode failed",
			slog.String("grammar", name),
			slog.Int("input_bytes", len(data)),
			slog.String("error", err.Error()),
		)
		h.writeError(w, http.StatusBadRequest, decode.KindName(err), decode.OffsetOf(err))
		return
	}

	h.metrics.RecordDecodeSuccess(name, duration, stats.TotalNodes(), len(data))
	h.recordDecode(true)

	pretty := r.URL.Query().Get("pretty") == "true"
	w.Header().Set("Content-Type", "application/json")
	if err := report.Encode(w, &report.Result{Root: root, Stats: stats}, pretty); err != nil {
		h.logger.Error("Failed to write decode response", slog.String("error", err.Error()))
	}
}

// handleGrammars implements GET /grammars
func (h *HTTPServer) handleGrammars(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.writeJSON(w, map[string]any{
		"grammars": grammar.Names(),
	})
}

// handleHealth implements GET /health
func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	decodes, errors := h.statistics()
	h.writeJSON(w, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(h.startTime).String(),
		"service": map[string]any{
			"name":     "binspect",
			"grammars": grammar.Names(),
		},
		"decodes": map[string]any{
			"total":  decodes,
			"errors": errors,
		},
	})
}

// handleStats implements GET /stats
func (h *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	decodes, errors := h.statistics()
	h.writeJSON(w, map[string]any{
		"uptime_seconds": time.Since(h.startTime).Seconds(),
		"decodes_total":  decodes,
		"decode_errors":  errors,
		"limits": map[string]any{
			"max_depth":       h.config.Decode.MaxDepth,
			"max_input_bytes": h.config.Decode.MaxInputBytes,
		},
	})
}

// handleRoot lists the available endpoints
func (h *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	h.writeJSON(w, map[string]any{
		"service": "binspect",
		"endpoints": map[string]string{
			"POST /decode/{grammar}": "decode the request body, optional ?pretty=true",
			"GET /grammars":          "list registered grammars",
			"GET /health":            "health check",
			"GET /stats":             "server statistics",
			"GET /metrics":           "prometheus metrics",
		},
	})
}

// writeJSON writes a JSON response body
func (h *HTTPServer) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Failed to write response", slog.String("error", err.Error()))
	}
}

// writeError writes the JSON error shape used by all failure responses.
// offset is -1 when the failure happened before decoding started.
func (h *HTTPServer) writeError(w http.ResponseWriter, status int, message string, offset int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	body := map[string]any{"error": message}
	if offset >= 0 {
		body["offset"] = offset
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("Failed to write error response", slog.String("error", err.Error()))
	}
}

// recordDecode updates the request counters
func (h *HTTPServer) recordDecode(ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.decodesTotal++
	if !ok {
		h.decodeErrors++
	}
}

// statistics returns the current request counters
func (h *HTTPServer) statistics() (decodes, errors uint64) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.decodesTotal, h.decodeErrors
}
