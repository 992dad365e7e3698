// Package api provides the HTTP API for observing a running simulation.
// GET endpoints are public and read-only; POST endpoints require a bearer token.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/talgya/colonysim/internal/calendar"
	"github.com/talgya/colonysim/internal/engine"
	"github.com/talgya/colonysim/internal/metrics"
	"github.com/talgya/colonysim/internal/persistence"
)

// Server serves the simulation state over HTTP.
type Server struct {
	Sim      *engine.Simulation
	Eng      *engine.Engine
	DB       *persistence.DB   // optional; enables /stats/history
	Metrics  *metrics.Recorder // optional; enables /metrics
	Addr     string
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.

	HistoryLimiter *RateLimiter
}

// Handler builds the request router.
func (s *Server) Handler() http.Handler {
	if s.HistoryLimiter == nil {
		s.HistoryLimiter = NewRateLimiter(60, time.Minute)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/colonies", s.handleColonies)
	mux.HandleFunc("/api/v1/colony/", s.handleColonyDetail)
	mux.HandleFunc("/api/v1/stats/history", RateLimitMiddleware(s.HistoryLimiter, s.handleStatsHistory))
	mux.HandleFunc("/api/v1/speed", s.adminOnly(s.handleSpeed))
	if s.Metrics != nil {
		mux.Handle("/metrics", s.Metrics.Handler())
	}
	return corsMiddleware(mux)
}

// Start begins serving the HTTP API in a goroutine. The returned server
// can be shut down by the caller.
func (s *Server) Start() *http.Server {
	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", s.Addr, "admin_auth", s.AdminKey != "", "history", s.DB != nil)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
	return srv
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS to a comma-separated list of extra allowed origins.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth on POST requests.
// GET requests pass through.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if s.AdminKey == "" {
				http.Error(w, "admin endpoints disabled (no COLONYSIM_ADMIN_KEY set)", http.StatusForbidden)
				return
			}
			if !s.checkBearerToken(r) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.Sim.Snapshot()
	status := map[string]any{
		"name":     "colonysim",
		"run_id":   snap.RunID,
		"date":     calendar.Format(snap.Date),
		"step":     snap.Step,
		"days":     snap.Days,
		"citizens": snap.Citizens,
		"colonies": len(snap.Colonies),
	}
	if s.Eng != nil {
		status["speed"] = s.Eng.Speed()
		status["running"] = s.Eng.Running()
	}
	writeJSON(w, status)
}

func (s *Server) handleColonies(w http.ResponseWriter, r *http.Request) {
	type colonySummary struct {
		ID         uint64             `json:"id"`
		Name       string             `json:"name"`
		Population int                `json:"population"`
		Working    int                `json:"working_pop"`
		LandUsed   float64            `json:"land_used"`
		LandSize   float64            `json:"land_size"`
		Resources  map[string]float64 `json:"resources"`
	}

	snap := s.Sim.Snapshot()
	out := make([]colonySummary, 0, len(snap.Colonies))
	for _, c := range snap.Colonies {
		res := make(map[string]float64, len(c.Resources))
		for _, p := range c.Resources {
			res[p.Kind.String()] = p.Amount
		}
		out = append(out, colonySummary{
			ID:         c.ID,
			Name:       c.Name,
			Population: c.Population.Count,
			Working:    c.Population.WorkingPop,
			LandUsed:   c.LandUsed,
			LandSize:   c.LandSize,
			Resources:  res,
		})
	}
	writeJSON(w, out)
}

func (s *Server) handleColonyDetail(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.TrimSuffix(r.URL.Path, "/"), "/")
	if len(parts) < 5 || parts[4] == "" {
		http.Error(w, "missing colony id", http.StatusBadRequest)
		return
	}
	id, err := strconv.ParseUint(parts[4], 10, 64)
	if err != nil {
		http.Error(w, "invalid colony id", http.StatusBadRequest)
		return
	}

	c, ok := s.Sim.Snapshot().Colony(id)
	if !ok {
		http.Error(w, "colony not found", http.StatusNotFound)
		return
	}
	writeJSON(w, c)
}

func (s *Server) handleStatsHistory(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}

	q := r.URL.Query()
	colonyID, err := strconv.ParseUint(q.Get("colony"), 10, 64)
	if err != nil {
		http.Error(w, "colony query parameter required", http.StatusBadRequest)
		return
	}
	limit := 30
	if l := q.Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 1000 {
			limit = v
		}
	}
	runID := q.Get("run")
	if runID == "" {
		runID = s.Sim.Snapshot().RunID
	}

	rows, err := s.DB.History(runID, colonyID, limit)
	if err != nil {
		slog.Error("stats history query failed", "error", err)
		http.Error(w, "history query failed", http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []engine.DayRecord{}
	}
	writeJSON(w, rows)
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if s.Eng == nil {
		http.Error(w, "engine not attached", http.StatusServiceUnavailable)
		return
	}
	if r.Method == http.MethodPost {
		var req struct {
			Speed float64 `json:"speed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Speed < 0 || req.Speed > 1000 {
			http.Error(w, "speed must be 0-1000", http.StatusBadRequest)
			return
		}
		s.Eng.SetSpeed(req.Speed)
		slog.Info("speed changed", "speed", req.Speed)
	}

	writeJSON(w, map[string]float64{"speed": s.Eng.Speed()})
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
