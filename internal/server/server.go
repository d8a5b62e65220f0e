// Package server exposes the advanced-set engine over HTTP. Each
// (workout log, exercise) slot gets one orchestrator, created lazily and
// kept for the life of the process; the session store remains the single
// source of truth for what is active.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/claude/repflow/internal/orchestrator"
	"github.com/claude/repflow/internal/session"
	"github.com/claude/repflow/internal/workoutlog"
	"github.com/go-chi/chi/v5"
)

// Historian reads back committed set history. *workoutlog.DB satisfies it.
type Historian interface {
	QueryCompletedSets(ctx context.Context, start, end time.Time, exerciseID string) ([]workoutlog.CompletedSetRow, error)
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	store    *session.Store
	recorder orchestrator.Recorder
	history  Historian
	log      *slog.Logger
	apiKey   string
	router   chi.Router

	mu    sync.Mutex
	slots map[string]*orchestrator.Orchestrator // keyed workoutLogID + "/" + exerciseID
}

// New creates a new Server with all routes configured. recorder and history
// may be nil when no workout-log database is attached.
func New(store *session.Store, recorder orchestrator.Recorder, history Historian, apiKey string, log *slog.Logger) *Server {
	s := &Server{
		store:    store,
		recorder: recorder,
		history:  history,
		log:      log,
		apiKey:   apiKey,
		router:   chi.NewRouter(),
		slots:    make(map[string]*orchestrator.Orchestrator),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	// Set execution endpoints (API key required)
	s.router.Route("/api/v1/sets", func(r chi.Router) {
		r.Use(APIKeyAuth(s.apiKey))
		r.Post("/attach", s.handleAttach)
		r.Post("/initialize", s.handleInitialize)
		r.Get("/current", s.handleCurrentSession)
		r.Get("/", s.handleListSessions)
		r.Get("/{id}", s.handleGetSession)
		r.Post("/{id}/complete-set", s.handleCompleteSet)
		r.Post("/{id}/rest/start", s.handleStartRest)
		r.Post("/{id}/rest/pause", s.handlePauseRest)
		r.Post("/{id}/rest/skip", s.handleSkipRest)
		r.Post("/{id}/reset", s.handleReset)
		r.Post("/{id}/abort", s.handleAbort)
	})

	// History endpoints (no auth — tsnet handles access)
	s.router.Get("/api/v1/workout-log", s.handleQueryWorkoutLog)
	s.router.Get("/api/v1/healthz", s.handleHealth)
}

// slot returns the orchestrator for a (workout log, exercise) pair,
// creating it on first use.
func (s *Server) slot(workoutLogID, exerciseID string) *orchestrator.Orchestrator {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := workoutLogID + "/" + exerciseID
	if o, ok := s.slots[key]; ok {
		return o
	}
	o := orchestrator.New(s.store, s.recorder, s.log)
	s.slots[key] = o
	return o
}

// slotForSession resolves a session id back to its orchestrator through the
// store. Returns nil when the session does not exist.
func (s *Server) slotForSession(id string) *orchestrator.Orchestrator {
	sess := s.store.GetSession(id)
	if sess == nil {
		return nil
	}
	o := s.slot(sess.WorkoutLogID, sess.ExerciseID)
	o.Attach(sess.ProfileID, sess.WorkoutLogID, sess.ExerciseID)
	return o
}
