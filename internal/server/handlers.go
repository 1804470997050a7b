package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/meltforce/reptrack/internal/models"
	"github.com/meltforce/reptrack/internal/session"
)

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userInfoFromContext(r))
}

func (s *Server) handleStartFromTemplate(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	templateID, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	id, err := s.sessions.StartFromTemplate(r.Context(), templateID, userID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"workout_id": id})
}

func (s *Server) handleStartBlank(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	id, err := s.sessions.StartBlank(r.Context(), userID, r.PostFormValue("name"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"workout_id": id})
}

func (s *Server) handleGetWorkout(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	workoutID, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	workout, err := s.db.GetWorkout(r.Context(), workoutID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if workout.UserID != userID {
		s.writeError(w, &models.AccessDeniedError{Resource: "workout", ID: workoutID, UserID: userID})
		return
	}

	sets, err := s.db.ListSets(r.Context(), workoutID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	lookback, err := s.stats.WorkoutLookback(r.Context(), workoutID, userID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"workout":  workout,
		"sets":     sets,
		"lookback": lookback,
	})
}

func (s *Server) handleFinishWorkout(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	workoutID, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid form data"})
		return
	}

	action := session.Action(r.PostForm.Get("action"))
	if err := s.sessions.Finish(r.Context(), workoutID, userID, action, r.PostForm); err != nil {
		s.writeError(w, err)
		return
	}

	status := "finished"
	if action == session.ActionCancel {
		status = "cancelled"
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

func (s *Server) handleUpdateSet(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	setID, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid form data"})
		return
	}

	fields := make(map[string]string)
	for _, name := range []string{"weight", "reps", "rpe", "rir", "notes"} {
		if r.PostForm.Has(name) {
			fields[name] = r.PostForm.Get(name)
		}
	}

	if err := s.sessions.UpdateSet(r.Context(), setID, userID, fields); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (s *Server) handleDeleteSet(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	setID, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	if err := s.sessions.RemoveSet(r.Context(), setID, userID); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleAddExercise(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	workoutID, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid form data"})
		return
	}

	exerciseID, err := strconv.ParseInt(r.PostForm.Get("exercise_id"), 10, 64)
	if err != nil {
		s.writeError(w, &models.ValidationError{Field: "exercise_id", Value: r.PostForm.Get("exercise_id"), Reason: "must be an integer"})
		return
	}
	count, _ := strconv.Atoi(r.PostForm.Get("sets"))

	defaults, err := parseSetDefaults(r.PostForm.Get, r.PostForm.Has)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if err := s.sessions.AddExercise(r.Context(), workoutID, userID, exerciseID, count, defaults); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "added"})
}

func (s *Server) handleRemoveExercise(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	workoutID, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	exerciseID, ok := idParam(w, r, "exerciseID")
	if !ok {
		return
	}

	if err := s.sessions.RemoveExercise(r.Context(), workoutID, userID, exerciseID); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

func (s *Server) handleAddSet(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	workoutID, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	exerciseID, ok := idParam(w, r, "exerciseID")
	if !ok {
		return
	}

	if err := s.sessions.AddSet(r.Context(), workoutID, userID, exerciseID); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "added"})
}

func (s *Server) handleSaveHistoryEdit(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	workoutID, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid form data"})
		return
	}

	if err := s.sessions.SaveHistoryEdit(r.Context(), workoutID, userID, r.PostForm); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

func (s *Server) handleStatsSeries(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	series, err := s.stats.Series(r.Context(), userID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, series)
}

func (s *Server) handleLookback(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	exerciseID, err := strconv.ParseInt(r.URL.Query().Get("exercise"), 10, 64)
	if err != nil {
		s.writeError(w, &models.ValidationError{Field: "exercise", Value: r.URL.Query().Get("exercise"), Reason: "must be an integer"})
		return
	}
	var excludeID int64
	if v := r.URL.Query().Get("workout"); v != "" {
		excludeID, err = strconv.ParseInt(v, 10, 64)
		if err != nil {
			s.writeError(w, &models.ValidationError{Field: "workout", Value: v, Reason: "must be an integer"})
			return
		}
	}

	lp, err := s.stats.Lookback(r.Context(), userID, exerciseID, excludeID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if lp == nil {
		writeJSON(w, http.StatusOK, map[string]any{"previous": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"previous": lp})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	active, err := s.db.FindActiveWorkout(r.Context(), userID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	recent, err := s.db.ListCompletedWorkouts(r.Context(), userID, 5)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"active": active,
		"recent": recent,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	workouts, err := s.db.ListCompletedWorkouts(r.Context(), userID, 0)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, workouts)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	total, err := s.db.CountCompletedWorkouts(r.Context(), userID, nil)
	if err != nil {
		s.writeError(w, err)
		return
	}
	weekAgo := time.Now().AddDate(0, 0, -7)
	lastWeek, err := s.db.CountCompletedWorkouts(r.Context(), userID, &weekAgo)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user":           userInfoFromContext(r),
		"total_workouts": total,
		"last_7_days":    lastWeek,
	})
}

// currentUser resolves the request identity to a users row, creating it on
// first sight. A failed resolution writes the error response itself.
func (s *Server) currentUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	info := userInfoFromContext(r)
	id, err := s.db.GetOrCreateUser(r.Context(), info.Login, info.DisplayName)
	if err != nil {
		s.log.Error("resolving user", "login", info.Login, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "cannot resolve user"})
		return 0, false
	}
	return id, true
}

func idParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

// parseSetDefaults reads optional prefill values for sets added mid-session.
func parseSetDefaults(get func(string) string, has func(string) bool) (session.SetDefaults, error) {
	var d session.SetDefaults
	if has("weight") && get("weight") != "" {
		v, err := strconv.ParseFloat(get("weight"), 64)
		if err != nil || v < 0 {
			return d, &models.ValidationError{Field: "weight", Value: get("weight"), Reason: "must be a non-negative number"}
		}
		d.Weight = &v
	}
	if has("reps") && get("reps") != "" {
		v, err := strconv.Atoi(get("reps"))
		if err != nil || v < 0 {
			return d, &models.ValidationError{Field: "reps", Value: get("reps"), Reason: "must be a non-negative integer"}
		}
		d.Reps = &v
	}
	if has("rpe") && get("rpe") != "" {
		v, err := strconv.ParseFloat(get("rpe"), 64)
		if err != nil || v < 1 || v > 10 {
			return d, &models.ValidationError{Field: "rpe", Value: get("rpe"), Reason: "must be between 1 and 10"}
		}
		d.RPE = &v
	}
	if has("rir") && get("rir") != "" {
		v, err := strconv.Atoi(get("rir"))
		if err != nil || v < 0 || v > 9 {
			return d, &models.ValidationError{Field: "rir", Value: get("rir"), Reason: "must be between 0 and 9"}
		}
		d.RIR = &v
	}
	if has("notes") && get("notes") != "" {
		v := get("notes")
		d.Notes = &v
	}
	return d, nil
}

// writeError maps domain errors onto HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var (
		notFound  *models.NotFoundError
		denied    *models.AccessDeniedError
		completed *models.AlreadyCompletedError
		invalid   *models.ValidationError
	)
	switch {
	case errors.As(err, &notFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": notFound.Error()})
	case errors.As(err, &denied):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": denied.Error()})
	case errors.As(err, &completed):
		writeJSON(w, http.StatusConflict, map[string]string{"error": completed.Error()})
	case errors.As(err, &invalid):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  invalid.Error(),
			"set_id": invalid.SetID,
			"field":  invalid.Field,
			"value":  invalid.Value,
		})
	default:
		s.log.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
