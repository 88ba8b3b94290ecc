package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/KRFH/vrp-cpsat-app/internal/buildinfo"
	"github.com/KRFH/vrp-cpsat-app/internal/metrics"
	"github.com/KRFH/vrp-cpsat-app/internal/model"
	"github.com/KRFH/vrp-cpsat-app/internal/opt"
	"github.com/KRFH/vrp-cpsat-app/internal/store"
	"github.com/KRFH/vrp-cpsat-app/internal/vis"
)

// SolvesHandler handles POST/GET /v1/solves
func (s *Server) SolvesHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleSolveCreate(w, r)
	case http.MethodGet:
		s.handleSolveList(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleSolveCreate(w http.ResponseWriter, r *http.Request) {
	if s.Limiter != nil && !s.Limiter.Allow() {
		writeProblem(w, http.StatusTooManyRequests, "Rate Limited", "too many solve submissions", r.URL.Path)
		return
	}
	var req struct {
		// Optional client-chosen id, so a stream can be opened before
		// submitting the solve.
		ID string `json:"id"`
		model.SolveRequest
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if err := validateSolveRequest(&req.SolveRequest); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid solve request", err.Error(), r.URL.Path)
		return
	}
	id := req.ID
	if id == "" {
		id = uuid.New().String()
	}

	budget := s.Cfg.Solver.TimeBudget()
	if req.TimeBudgetMs > 0 {
		budget = time.Duration(req.TimeBudgetMs) * time.Millisecond
	}
	cfg := opt.Config{
		TimeBudget:    budget,
		DistanceScale: s.Cfg.Solver.DistanceScale,
		MaxRounds:     s.Cfg.Solver.MaxRounds,
		OnIncumbent: func(objective float64) {
			s.Broker.Publish(id, SolveEvent{
				Type: "solve.incumbent",
				Data: map[string]any{"solveId": id, "objective": objective},
			})
		},
	}

	start := time.Now()
	sol, err := opt.Solve(req.SolveRequest.Instance(), cfg)
	elapsed := time.Since(start)
	if err != nil {
		s.Broker.Publish(id, SolveEvent{
			Type: "solve.finished",
			Data: map[string]any{"solveId": id, "error": err.Error()},
		})
		switch {
		case errors.Is(err, opt.ErrBuilder):
			writeProblem(w, http.StatusBadRequest, "Invalid instance", err.Error(), r.URL.Path)
		case errors.Is(err, opt.ErrInfeasibleInstance):
			writeProblem(w, http.StatusUnprocessableEntity, "Infeasible instance", err.Error(), r.URL.Path)
		default:
			// malformed assignment, invariant violation, consistency:
			// defects, never repaired here
			writeProblem(w, http.StatusInternalServerError, "Solve failed", err.Error(), r.URL.Path)
		}
		return
	}

	metrics.Solves.WithLabelValues(string(sol.Outcome)).Inc()
	metrics.SolveDuration.WithLabelValues(string(sol.Outcome)).Observe(elapsed.Seconds())
	metrics.SubtourCuts.Add(float64(sol.Cuts))
	metrics.SearchRounds.Observe(float64(sol.Rounds))

	rec := model.SolveRecord{
		ID:            id,
		CreatedAt:     start.UTC(),
		Request:       req.SolveRequest,
		Outcome:       sol.Outcome,
		Objective:     sol.Objective,
		TotalDistance: sol.TotalDistance,
		Routes:        sol.Routes,
		DurationMs:    elapsed.Milliseconds(),
	}
	if err := s.Store.SaveSolve(r.Context(), rec); err != nil {
		writeProblem(w, http.StatusInternalServerError, "Save solve failed", err.Error(), r.URL.Path)
		return
	}
	s.Broker.Publish(id, SolveEvent{
		Type: "solve.finished",
		Data: map[string]any{
			"solveId":       id,
			"outcome":       string(sol.Outcome),
			"objective":     sol.Objective,
			"totalDistance": sol.TotalDistance,
		},
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"solve":  rec,
		"rounds": sol.Rounds,
		"cuts":   sol.Cuts,
	})
}

func (s *Server) handleSolveList(w http.ResponseWriter, r *http.Request) {
	cursor := r.URL.Query().Get("cursor")
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeProblem(w, http.StatusBadRequest, "Invalid solve request", "limit must be a positive integer", r.URL.Path)
			return
		}
		limit = n
	}
	items, next, err := s.Store.ListSolves(r.Context(), cursor, limit)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "List solves failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
}

// SolveByIDHandler handles /v1/solves/{id}, /v1/solves/{id}/plot and
// /v1/solves/{id}/stream.
func (s *Server) SolveByIDHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/solves/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	id := parts[0]
	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		rec, err := s.Store.GetSolve(r.Context(), id)
		if err != nil {
			s.writeStoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	case len(parts) == 2 && parts[1] == "plot" && r.Method == http.MethodGet:
		rec, err := s.Store.GetSolve(r.Context(), id)
		if err != nil {
			s.writeStoreError(w, r, err)
			return
		}
		sol := model.Solution{
			Outcome:       rec.Outcome,
			Routes:        rec.Routes,
			TotalDistance: rec.TotalDistance,
			Objective:     rec.Objective,
		}
		writeJSON(w, http.StatusOK, vis.RoutesFigure(rec.Request.Instance().Locations, sol))
	case len(parts) == 2 && parts[1] == "stream":
		s.SolveStreamHandler(w, r, id)
	default:
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
	}
}

func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Not Found", "no such solve", r.URL.Path)
		return
	}
	writeProblem(w, http.StatusInternalServerError, "Store error", err.Error(), r.URL.Path)
}

// Health
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, 200, map[string]any{"status": "ok", "build": buildinfo.Info()})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	if p, ok := s.Store.(interface{ Ping(context.Context) error }); ok {
		if err := p.Ping(r.Context()); err != nil {
			writeProblem(w, http.StatusServiceUnavailable, "Not Ready", err.Error(), r.URL.Path)
			return
		}
	}
	writeJSON(w, 200, map[string]string{"status": "ready"})
}
