// Package ui exposes finished tracking runs over HTTP: a JSON API for
// downstream tools and a small dashboard for analysts.
package ui

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	"gotrack/app"
	"gotrack/domain/core"
	"gotrack/domain/track"
	apperr "gotrack/internal/errors"
	"gotrack/ports"
)

// API is the JSON surface over the run store and the tracker service.
type API struct {
	router  *chi.Mux
	runs    ports.RunRepository
	tracker *app.TrackerService
	loadCfg func() (*track.Config, error)
}

// NewAPI wires the API routes. runs may be nil when no run store is
// configured; loadCfg may be nil when the server has no project to
// recompute, which disables POST /api/runs.
func NewAPI(runs ports.RunRepository, tracker *app.TrackerService, loadCfg func() (*track.Config, error)) *API {
	a := &API{
		router:  chi.NewRouter(),
		runs:    runs,
		tracker: tracker,
		loadCfg: loadCfg,
	}

	a.router.Use(middleware.RequestID)
	a.router.Use(middleware.RealIP)
	a.router.Use(middleware.Recoverer)
	a.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	a.router.Get("/healthz", a.handleHealth)
	a.router.Route("/api", func(r chi.Router) {
		r.Get("/runs", a.handleListRuns)
		r.Get("/runs/latest", a.handleLatestRun)
		r.Get("/runs/{id}", a.handleGetRun)
		r.Post("/runs", a.handleTriggerRun)
	})
	return a
}

// Router returns the HTTP handler for mounting.
func (a *API) Router() http.Handler { return a.router }

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if a.runs == nil {
		writeError(w, http.StatusServiceUnavailable, "NO_RUN_STORE", "no run store is configured")
		return
	}
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "BAD_LIMIT", "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	summaries, err := a.runs.ListRuns(r.Context(), limit)
	if err != nil {
		a.storeError(w, err)
		return
	}
	if summaries == nil {
		summaries = []ports.RunSummary{}
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (a *API) handleLatestRun(w http.ResponseWriter, r *http.Request) {
	if a.runs == nil {
		writeError(w, http.StatusServiceUnavailable, "NO_RUN_STORE", "no run store is configured")
		return
	}
	run, err := a.runs.LatestRun(r.Context())
	if err != nil {
		a.storeError(w, err)
		return
	}
	if run == nil {
		writeError(w, http.StatusNotFound, "NO_RUNS", "no tracking runs have been stored yet")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (a *API) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if a.runs == nil {
		writeError(w, http.StatusServiceUnavailable, "NO_RUN_STORE", "no run store is configured")
		return
	}
	id := core.RunID(chi.URLParam(r, "id"))
	run, err := a.runs.GetRun(r.Context(), id)
	if err != nil {
		a.storeError(w, err)
		return
	}
	if run == nil {
		writeError(w, http.StatusNotFound, "RUN_NOT_FOUND", "no run with id "+id.String())
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// handleTriggerRun recomputes the configured project and stores the
// result when a run store is present.
func (a *API) handleTriggerRun(w http.ResponseWriter, r *http.Request) {
	if a.loadCfg == nil {
		writeError(w, http.StatusBadRequest, "NO_PROJECT", "server was started without a project configuration")
		return
	}
	cfg, err := a.loadCfg()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, apperr.GetCode(err), err.Error())
		return
	}

	result, err := a.tracker.Run(r.Context(), app.RunRequest{Config: cfg})
	if err != nil {
		log.Error().Err(err).Msg("triggered run failed")
		writeError(w, http.StatusUnprocessableEntity, apperr.GetCode(err), err.Error())
		return
	}

	if a.runs != nil {
		stored := &ports.StoredRun{Metadata: result.Metadata, Rows: result.Rows, Warnings: result.Warnings}
		if err := a.runs.SaveRun(r.Context(), stored); err != nil {
			log.Error().Err(err).Msg("storing triggered run failed")
			writeError(w, http.StatusInternalServerError, apperr.GetCode(err), err.Error())
			return
		}
	}
	writeJSON(w, http.StatusCreated, result)
}

func (a *API) storeError(w http.ResponseWriter, err error) {
	log.Error().Err(err).Msg("run store request failed")
	writeError(w, http.StatusInternalServerError, apperr.GetCode(err), "run store request failed")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("encoding API response failed")
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"error": code, "message": message})
}
