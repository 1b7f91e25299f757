package web

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/cryptonique0/basero-yield-engine/internal/logger"
	"github.com/cryptonique0/basero-yield-engine/internal/strategy"
)

var webLogger = logger.GetForComponent("web_server")

// WebServer handles HTTP requests against the strategy engine
type WebServer struct {
	router *mux.Router
	engine *strategy.Engine
	port   string
}

// NewWebServer creates a new web server instance
func NewWebServer(port string, engine *strategy.Engine) *WebServer {
	if port == "" {
		port = "8080"
	}

	server := &WebServer{
		router: mux.NewRouter(),
		engine: engine,
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
	api.HandleFunc("/rate", ws.handleGetRate).Methods("GET")
	api.HandleFunc("/config", ws.handleGetConfig).Methods("GET")
	api.HandleFunc("/config/utilization", ws.handleSetUtilizationConfig).Methods("POST")
	api.HandleFunc("/config/tiers/{tier}", ws.handleSetTierConfig).Methods("POST")
	api.HandleFunc("/config/locks/{period}", ws.handleSetLockConfig).Methods("POST")
	api.HandleFunc("/config/fee", ws.handleSetFeeConfig).Methods("POST")
	api.HandleFunc("/high-water-mark", ws.handleUpdateHighWaterMark).Methods("POST")
	api.HandleFunc("/users/{user}/tier", ws.handleGetUserTier).Methods("GET")
	api.HandleFunc("/users/{user}/effective-rate", ws.handleGetEffectiveRate).Methods("GET")
	api.HandleFunc("/users/{user}/pending-fee", ws.handleGetPendingFee).Methods("GET")
	api.HandleFunc("/users/{user}/info", ws.handleGetStrategyInfo).Methods("GET")
	api.HandleFunc("/users/{user}/lock", ws.handleGetLock).Methods("GET")
	api.HandleFunc("/users/{user}/lock", ws.handleLockDeposit).Methods("POST")
	api.HandleFunc("/users/{user}/lock", ws.handleUnlockDeposit).Methods("DELETE")
	api.HandleFunc("/users/{user}/withdrawal", ws.handlePrepareWithdrawal).Methods("POST")
	api.HandleFunc("/events", ws.handleGetEvents).Methods("GET")
	api.HandleFunc("/rate-samples", ws.handleGetRateSamples).Methods("GET")

	// Add CORS middleware
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

// corsMiddleware adds CORS headers to all responses
func (ws *WebServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Caller")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs all HTTP requests
func (ws *WebServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		webLogger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote", r.RemoteAddr).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}

// respondJSON writes a JSON response with the given status code
func (ws *WebServer) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		webLogger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// respondError maps an engine error to an HTTP status and writes it
func (ws *WebServer) respondError(w http.ResponseWriter, err error) {
	ws.respondJSON(w, statusForError(err), map[string]string{"error": err.Error()})
}
