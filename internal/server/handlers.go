package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/claude/repflow/internal/engine"
	"github.com/claude/repflow/internal/orchestrator"
	"github.com/claude/repflow/internal/protocol"
	"github.com/claude/repflow/internal/timer"
	"github.com/go-chi/chi/v5"
)

type attachRequest struct {
	ProfileID    string `json:"profile_id"`
	WorkoutLogID string `json:"workout_log_id"`
	ExerciseID   string `json:"exercise_id"`
}

type initializeRequest struct {
	attachRequest
	Config     protocol.SetConfiguration `json:"config"`
	LastWeight *float64                  `json:"last_weight,omitempty"`
}

// sessionSnapshot is the live view returned by every action endpoint:
// execution state, recorded history and the countdown as the orchestrator
// sees it right now.
type sessionSnapshot struct {
	SessionID     string                      `json:"session_id"`
	Restored      bool                        `json:"restored,omitempty"`
	State         *engine.ExecutionState      `json:"state,omitempty"`
	CompletedSets []engine.SetProgressionData `json:"completed_sets,omitempty"`
	Projection    any                         `json:"projection,omitempty"`
	Timer         timer.View                  `json:"timer"`
}

func (s *Server) handleAttach(w http.ResponseWriter, r *http.Request) {
	var req attachRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if req.WorkoutLogID == "" || req.ExerciseID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "workout_log_id and exercise_id required"})
		return
	}

	o := s.slot(req.WorkoutLogID, req.ExerciseID)
	restored := o.Attach(req.ProfileID, req.WorkoutLogID, req.ExerciseID)

	snap := s.snapshot(o)
	snap.Restored = restored
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleInitialize(w http.ResponseWriter, r *http.Request) {
	var req initializeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if req.WorkoutLogID == "" || req.ExerciseID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "workout_log_id and exercise_id required"})
		return
	}

	o := s.slot(req.WorkoutLogID, req.ExerciseID)
	o.Attach(req.ProfileID, req.WorkoutLogID, req.ExerciseID)
	if _, err := o.Initialize(req.Config, req.LastWeight); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, s.snapshot(o))
}

func (s *Server) handleCompleteSet(w http.ResponseWriter, r *http.Request) {
	o := s.slotForSession(chi.URLParam(r, "id"))
	if o == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
		return
	}

	var data engine.SetProgressionData
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	if err := o.CompleteCurrentSet(data); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, s.snapshot(o))
}

func (s *Server) handleStartRest(w http.ResponseWriter, r *http.Request) {
	o := s.slotForSession(chi.URLParam(r, "id"))
	if o == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
		return
	}
	o.StartRest()
	writeJSON(w, http.StatusOK, s.snapshot(o))
}

func (s *Server) handlePauseRest(w http.ResponseWriter, r *http.Request) {
	o := s.slotForSession(chi.URLParam(r, "id"))
	if o == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
		return
	}
	o.PauseRest()
	writeJSON(w, http.StatusOK, s.snapshot(o))
}

func (s *Server) handleSkipRest(w http.ResponseWriter, r *http.Request) {
	o := s.slotForSession(chi.URLParam(r, "id"))
	if o == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
		return
	}
	o.SkipRest()
	writeJSON(w, http.StatusOK, s.snapshot(o))
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	o := s.slotForSession(chi.URLParam(r, "id"))
	if o == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
		return
	}
	o.Reset()
	writeJSON(w, http.StatusOK, s.snapshot(o))
}

func (s *Server) handleAbort(w http.ResponseWriter, r *http.Request) {
	o := s.slotForSession(chi.URLParam(r, "id"))
	if o == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
		return
	}
	o.Abort()
	writeJSON(w, http.StatusOK, s.snapshot(o))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess := s.store.GetSession(chi.URLParam(r, "id"))
	if sess == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleCurrentSession(w http.ResponseWriter, r *http.Request) {
	sess := s.store.GetCurrentSession()
	if sess == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no current session"})
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	if profileID := r.URL.Query().Get("profile_id"); profileID != "" {
		writeJSON(w, http.StatusOK, s.store.GetSessionsForProfile(profileID))
		return
	}
	if workoutLogID := r.URL.Query().Get("workout_log_id"); workoutLogID != "" {
		writeJSON(w, http.StatusOK, s.store.GetSessionsForWorkout(workoutLogID))
		return
	}
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": "profile_id or workout_log_id parameter required"})
}

func (s *Server) handleQueryWorkoutLog(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "workout log not configured"})
		return
	}

	start, end, err := parseTimeRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	rows, err := s.history.QueryCompletedSets(r.Context(), start, end, r.URL.Query().Get("exercise_id"))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) snapshot(o *orchestrator.Orchestrator) sessionSnapshot {
	snap := sessionSnapshot{
		SessionID:     o.SessionID(),
		State:         o.State(),
		CompletedSets: o.CompletedSets(),
		Timer:         o.Timer(),
	}
	if snap.State != nil {
		snap.Projection = engine.Projection(*snap.State, snap.CompletedSets)
	}
	return snap
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func parseTimeRange(r *http.Request) (start, end time.Time, err error) {
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")

	if startStr == "" {
		// Default: last 7 days
		end = time.Now()
		start = end.AddDate(0, 0, -7)
		return
	}

	start, err = time.Parse(time.RFC3339, startStr)
	if err != nil {
		start, err = time.Parse("2006-01-02", startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	}

	if endStr == "" {
		end = time.Now()
	} else {
		end, err = time.Parse(time.RFC3339, endStr)
		if err != nil {
			end, err = time.Parse("2006-01-02", endStr)
			if err != nil {
				return time.Time{}, time.Time{}, err
			}
			// End of day for date-only
			end = end.Add(24 * time.Hour)
		}
	}
	return
}
