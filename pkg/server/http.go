package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/richard-senior/podds/internal/config"
	"github.com/richard-senior/podds/internal/logger"
	"github.com/richard-senior/podds/pkg/podds"
	"github.com/richard-senior/podds/pkg/tools"
	"github.com/rs/cors"
)

// HTTPServer serves the prediction tools as a JSON API
type HTTPServer struct {
	config     config.ServerConfig
	tools      *tools.PoddsTools
	started    time.Time
	httpServer *http.Server
}

// NewHTTPServer creates the API server. Nothing listens until Start
func NewHTTPServer(cfg config.ServerConfig, pt *tools.PoddsTools) *HTTPServer {
	s := &HTTPServer{
		config:  cfg,
		tools:   pt,
		started: time.Now(),
	}
	s.httpServer = &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

// Handler returns the router wrapped in CORS handling
func (s *HTTPServer) Handler() http.Handler {
	router := mux.NewRouter()

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods("GET")
	api.HandleFunc("/teams", s.handleTeams).Methods("GET")
	api.HandleFunc("/predict", s.handlePredict).Methods("GET")
	api.HandleFunc("/valuebets", s.handleValueBets).Methods("GET")

	origins := s.config.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(router)
}

// Start listens until Stop is called
func (s *HTTPServer) Start() error {
	logger.Info("Starting HTTP API on", s.config.HTTPAddr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop drains in-flight requests for up to five seconds
func (s *HTTPServer) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error:", err)
	}
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	d := s.tools.Predictor().Dataset()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"teams":   len(d.Teams()),
		"matches": d.Len(),
		"uptime":  time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *HTTPServer) handleTeams(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, s.tools.HandleListTeams, "filter")
}

func (s *HTTPServer) handlePredict(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, s.tools.HandlePredictMatch, "home", "away", "simulations", "last_matches", "min_edge")
}

func (s *HTTPServer) handleValueBets(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, s.tools.HandleValueBets, "home", "away", "simulations", "last_matches", "min_edge", "home_odds", "draw_odds", "away_odds")
}

// respond passes the named query parameters to a tool handler and writes its result
func (s *HTTPServer) respond(w http.ResponseWriter, r *http.Request, handler HandlerFunc, keys ...string) {
	params := map[string]any{}
	query := r.URL.Query()
	for _, key := range keys {
		if v := query.Get(key); v != "" {
			params[key] = v
		}
	}

	result, err := handler(params)
	if err != nil {
		status := http.StatusInternalServerError
		if podds.IsRequestError(err) {
			status = http.StatusBadRequest
			logger.Warn("Rejected", r.URL.Path, "request:", err)
		} else {
			logger.Error("Failed", r.URL.Path, "request:", err)
		}
		writeJSON(w, status, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("Failed to encode response:", err)
	}
}
