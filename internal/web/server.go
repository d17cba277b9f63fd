package web

import (
	"encoding/json"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/lpwatch/lpwatch/internal/logger"
	"github.com/lpwatch/lpwatch/internal/state"
)

var webLogger = logger.GetForComponent("web_server")

// WebServer exposes the audit trail over HTTP: wallets, positions, metric
// history and recommendations. Read-only.
type WebServer struct {
	router *mux.Router
	port   string
}

// NewWebServer creates a new web server instance
func NewWebServer(port string) *WebServer {
	if port == "" {
		port = "8080"
	}

	server := &WebServer{
		router: mux.NewRouter(),
		port:   port,
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all HTTP routes
func (ws *WebServer) setupRoutes() {
	// Health endpoint (direct route)
	ws.router.HandleFunc("/health", ws.handleHealth).Methods("GET")

	// API endpoints
	api := ws.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", ws.handleHealth).Methods("GET")
	api.HandleFunc("/wallets", ws.handleGetWallets).Methods("GET")
	api.HandleFunc("/positions", ws.handleGetPositions).Methods("GET")
	api.HandleFunc("/positions/{tokenID}/metrics", ws.handleGetPositionMetrics).Methods("GET")
	api.HandleFunc("/recommendations/recent", ws.handleGetRecentRecommendations).Methods("GET")

	ws.router.Use(ws.corsMiddleware)
	ws.router.Use(ws.loggingMiddleware)
}

// Start starts the web server
func (ws *WebServer) Start() error {
	webLogger.Info().Str("port", ws.port).Msg("Starting web server")

	server := &http.Server{
		Addr:         ":" + ws.port,
		Handler:      ws.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server.ListenAndServe()
}

// handleHealth returns server and database health status
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	dbHealthy := true
	if err := state.TestDBConnection(); err != nil {
		dbHealthy = false
	}

	scanNumber, err := state.GetCurrentScanNumber()
	if err != nil {
		scanNumber = 0
	}

	overallStatus := "OK"
	statusCode := http.StatusOK
	if !dbHealthy {
		overallStatus = "DEGRADED"
		statusCode = http.StatusServiceUnavailable
	}

	response := map[string]interface{}{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"system": map[string]interface{}{
			"version":          runtime.Version(),
			"goroutines_count": runtime.NumGoroutine(),
			"alloc_bytes":      memStats.Alloc,
			"gc_cycles":        memStats.NumGC,
		},
		"component": map[string]interface{}{
			"name":    "lpwatch-position-monitor",
			"version": "1.0.0",
		},
		"agent_status": map[string]interface{}{
			"database_healthy": dbHealthy,
			"current_scan":     scanNumber,
		},
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// handleGetWallets returns all registered wallets
func (ws *WebServer) handleGetWallets(w http.ResponseWriter, r *http.Request) {
	wallets, err := state.GetWallets()
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get wallets")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve wallets")
		return
	}

	response := map[string]interface{}{
		"wallets": wallets,
		"count":   len(wallets),
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetPositions returns all tracked positions
func (ws *WebServer) handleGetPositions(w http.ResponseWriter, r *http.Request) {
	positions, err := state.GetPositions()
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get positions")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve positions")
		return
	}

	response := map[string]interface{}{
		"positions": positions,
		"count":     len(positions),
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetPositionMetrics returns the metric history for one position
func (ws *WebServer) handleGetPositionMetrics(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	tokenID, err := strconv.ParseInt(vars["tokenID"], 10, 64)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid token ID")
		return
	}

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 && parsedLimit <= 500 {
			limit = parsedLimit
		}
	}

	metrics, err := state.GetMetricsForPosition(tokenID, limit)
	if err != nil {
		webLogger.Error().Err(err).Int64("tokenID", tokenID).Msg("Failed to get position metrics")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve metrics")
		return
	}

	response := map[string]interface{}{
		"token_id": tokenID,
		"metrics":  metrics,
		"count":    len(metrics),
		"limit":    limit,
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetRecentRecommendations returns the latest recommendations across
// all positions
func (ws *WebServer) handleGetRecentRecommendations(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 && parsedLimit <= 100 {
			limit = parsedLimit
		}
	}

	recommendations, err := state.GetRecentRecommendations(limit)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get recent recommendations")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve recommendations")
		return
	}

	response := map[string]interface{}{
		"recommendations": recommendations,
		"count":           len(recommendations),
		"limit":           limit,
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// writeJSONResponse writes a JSON response
func (ws *WebServer) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		webLogger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error response
func (ws *WebServer) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	response := map[string]interface{}{
		"error":     true,
		"message":   message,
		"timestamp": time.Now().UTC(),
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// corsMiddleware adds CORS headers
func (ws *WebServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (ws *WebServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapper := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		webLogger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Int("status", wrapper.statusCode).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}

// responseWriterWrapper wraps http.ResponseWriter to capture status code
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
