// Package session owns the workout lifecycle: starting a session from a
// template or from scratch, mutating it while active, finishing or cancelling
// it, and the batch set-update protocol shared with history editing.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/meltforce/reptrack/internal/models"
)

// Action closes an active session.
type Action string

const (
	// ActionFinish commits the session as completed history.
	ActionFinish Action = "finish"
	// ActionCancel discards the session and everything recorded in it.
	ActionCancel Action = "cancel"
)

// Store is the persistence surface the lifecycle manager needs. *storage.DB
// satisfies it; tests use an in-memory fake. Every multi-row method is
// atomic: either all rows change or none do.
type Store interface {
	GetTemplate(ctx context.Context, id int64) (*models.Template, error)
	GetWorkout(ctx context.Context, id int64) (*models.Workout, error)
	GetSet(ctx context.Context, id int64) (*models.WorkoutSet, error)

	CreateWorkoutWithSets(ctx context.Context, w *models.Workout, sets []models.WorkoutSet) (int64, error)
	DeleteWorkoutCascade(ctx context.Context, id int64) error
	FinishWorkout(ctx context.Context, id int64, endedAt time.Time, patches map[int64]models.SetPatch) error
	ApplyHistoryEdit(ctx context.Context, id int64, patches map[int64]models.SetPatch) error

	CreateSets(ctx context.Context, sets []models.WorkoutSet) error
	UpdateSet(ctx context.Context, id int64, patch models.SetPatch) error
	DeleteSet(ctx context.Context, id int64) error
	DeleteExerciseSets(ctx context.Context, workoutID, exerciseID int64) error
}

// Manager drives workout sessions through their lifecycle.
type Manager struct {
	store Store
	log   *slog.Logger
	now   func() time.Time
}

// NewManager creates a Manager using the wall clock.
func NewManager(store Store, log *slog.Logger) *Manager {
	return &Manager{store: store, log: log, now: time.Now}
}

// StartFromTemplate creates an active workout from a template the user owns,
// materializing every prescription line into its requested number of sets.
// Weight, RPE, and RIR carry over; the rep prescription is informational (it
// may encode a range like "8-12") and is carried in the set notes instead of
// the integer reps field.
func (m *Manager) StartFromTemplate(ctx context.Context, templateID, userID int64) (int64, error) {
	t, err := m.store.GetTemplate(ctx, templateID)
	if err != nil {
		return 0, err
	}
	if t.UserID != userID {
		return 0, &models.AccessDeniedError{Resource: "template", ID: templateID, UserID: userID}
	}

	name := t.Name
	w := &models.Workout{
		UserID:     userID,
		TemplateID: &templateID,
		Name:       &name,
		StartedAt:  m.now(),
	}

	var sets []models.WorkoutSet
	for _, line := range t.Lines {
		notes := prescriptionNotes(line)
		for i := 0; i < line.Sets; i++ {
			sets = append(sets, models.WorkoutSet{
				ExerciseID: line.ExerciseID,
				Weight:     line.Weight,
				RPE:        line.RPE,
				RIR:        line.RIR,
				Notes:      notes,
			})
		}
	}

	id, err := m.store.CreateWorkoutWithSets(ctx, w, sets)
	if err != nil {
		return 0, fmt.Errorf("starting workout from template %d: %w", templateID, err)
	}

	m.log.Info("workout started", "workout_id", id, "template_id", templateID, "user_id", userID, "sets", len(sets))
	return id, nil
}

// StartBlank creates an empty active workout.
func (m *Manager) StartBlank(ctx context.Context, userID int64, name string) (int64, error) {
	w := &models.Workout{UserID: userID, StartedAt: m.now()}
	if name != "" {
		w.Name = &name
	}

	id, err := m.store.CreateWorkoutWithSets(ctx, w, nil)
	if err != nil {
		return 0, fmt.Errorf("starting blank workout: %w", err)
	}

	m.log.Info("blank workout started", "workout_id", id, "user_id", userID)
	return id, nil
}

// Finish closes an active workout. ActionCancel deletes the workout and all
// its sets; ActionFinish applies any submitted set updates, then marks the
// workout completed and stamps the end time. A validation failure anywhere
// in the submitted batch aborts the whole operation with nothing written.
func (m *Manager) Finish(ctx context.Context, workoutID, userID int64, action Action, form url.Values) error {
	w, err := m.store.GetWorkout(ctx, workoutID)
	if err != nil {
		return err
	}
	if w.UserID != userID {
		return &models.AccessDeniedError{Resource: "workout", ID: workoutID, UserID: userID}
	}
	if w.Completed {
		return &models.AlreadyCompletedError{WorkoutID: workoutID}
	}

	switch action {
	case ActionCancel:
		if err := m.store.DeleteWorkoutCascade(ctx, workoutID); err != nil {
			return fmt.Errorf("cancelling workout %d: %w", workoutID, err)
		}
		m.log.Info("workout cancelled", "workout_id", workoutID, "user_id", userID)
		return nil

	case ActionFinish:
		patches, err := m.buildBatch(ctx, workoutID, form)
		if err != nil {
			return err
		}
		if err := m.store.FinishWorkout(ctx, workoutID, m.now(), patches); err != nil {
			return fmt.Errorf("finishing workout %d: %w", workoutID, err)
		}
		m.log.Info("workout finished", "workout_id", workoutID, "user_id", userID, "sets_updated", len(patches))
		return nil

	default:
		return &models.ValidationError{Field: "action", Value: string(action), Reason: "must be finish or cancel"}
	}
}

// SaveHistoryEdit applies a set-update batch to a workout that is already
// part of completed history. Unlike Finish it has no terminal-state guard,
// and every set of the workout ends up marked completed, so re-applying the
// same edit changes nothing.
func (m *Manager) SaveHistoryEdit(ctx context.Context, workoutID, userID int64, form url.Values) error {
	w, err := m.store.GetWorkout(ctx, workoutID)
	if err != nil {
		return err
	}
	if w.UserID != userID {
		return &models.AccessDeniedError{Resource: "workout", ID: workoutID, UserID: userID}
	}

	patches, err := m.buildBatch(ctx, workoutID, form)
	if err != nil {
		return err
	}
	if err := m.store.ApplyHistoryEdit(ctx, workoutID, patches); err != nil {
		return fmt.Errorf("saving history edit for workout %d: %w", workoutID, err)
	}

	m.log.Info("history edit saved", "workout_id", workoutID, "user_id", userID, "sets_updated", len(patches))
	return nil
}

// UpdateSet validates and applies field updates to a single set while its
// session is being edited.
func (m *Manager) UpdateSet(ctx context.Context, setID, userID int64, fields map[string]string) error {
	s, err := m.store.GetSet(ctx, setID)
	if err != nil {
		return err
	}
	w, err := m.store.GetWorkout(ctx, s.WorkoutID)
	if err != nil {
		return err
	}
	if w.UserID != userID {
		return &models.AccessDeniedError{Resource: "set", ID: setID, UserID: userID}
	}

	patch, err := BuildPatch(setID, fields)
	if err != nil {
		return err
	}
	if patch.Empty() {
		return nil
	}
	if err := m.store.UpdateSet(ctx, setID, patch); err != nil {
		return fmt.Errorf("updating set %d: %w", setID, err)
	}
	return nil
}

// SetDefaults pre-populates sets added to a workout mid-session.
type SetDefaults struct {
	Weight *float64
	Reps   *int
	RPE    *float64
	RIR    *int
	Notes  *string
}

// AddExercise appends count sets of an exercise to a workout. Sets added to
// a completed workout (history editing) are created already completed.
func (m *Manager) AddExercise(ctx context.Context, workoutID, userID, exerciseID int64, count int, defaults SetDefaults) error {
	w, err := m.ownedWorkout(ctx, workoutID, userID)
	if err != nil {
		return err
	}
	if count < 1 {
		count = 1
	}

	sets := make([]models.WorkoutSet, 0, count)
	for i := 0; i < count; i++ {
		sets = append(sets, models.WorkoutSet{
			WorkoutID:  workoutID,
			ExerciseID: exerciseID,
			Weight:     defaults.Weight,
			Reps:       defaults.Reps,
			RPE:        defaults.RPE,
			RIR:        defaults.RIR,
			Notes:      defaults.Notes,
			Completed:  w.Completed,
		})
	}
	if err := m.store.CreateSets(ctx, sets); err != nil {
		return fmt.Errorf("adding exercise %d to workout %d: %w", exerciseID, workoutID, err)
	}
	return nil
}

// AddSet appends one empty set of an exercise to a workout.
func (m *Manager) AddSet(ctx context.Context, workoutID, userID, exerciseID int64) error {
	return m.AddExercise(ctx, workoutID, userID, exerciseID, 1, SetDefaults{})
}

// RemoveSet deletes a single set after an ownership check on its workout.
func (m *Manager) RemoveSet(ctx context.Context, setID, userID int64) error {
	s, err := m.store.GetSet(ctx, setID)
	if err != nil {
		return err
	}
	if _, err := m.ownedWorkout(ctx, s.WorkoutID, userID); err != nil {
		return err
	}
	return m.store.DeleteSet(ctx, setID)
}

// RemoveExercise deletes every set of an exercise from a workout.
func (m *Manager) RemoveExercise(ctx context.Context, workoutID, userID, exerciseID int64) error {
	if _, err := m.ownedWorkout(ctx, workoutID, userID); err != nil {
		return err
	}
	return m.store.DeleteExerciseSets(ctx, workoutID, exerciseID)
}

func (m *Manager) ownedWorkout(ctx context.Context, workoutID, userID int64) (*models.Workout, error) {
	w, err := m.store.GetWorkout(ctx, workoutID)
	if err != nil {
		return nil, err
	}
	if w.UserID != userID {
		return nil, &models.AccessDeniedError{Resource: "workout", ID: workoutID, UserID: userID}
	}
	return w, nil
}

// buildBatch turns a submitted field bag into validated patches keyed by set
// ID. Sets that no longer exist or belong to a different workout are skipped
// silently: they are stale rows in the client's view, not bad input. Groups
// are validated in ascending set-ID order so the first error reported is
// deterministic.
func (m *Manager) buildBatch(ctx context.Context, workoutID int64, form url.Values) (map[int64]models.SetPatch, error) {
	groups := ParseSetFields(form)

	ids := make([]int64, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	patches := make(map[int64]models.SetPatch, len(groups))
	for _, id := range ids {
		s, err := m.store.GetSet(ctx, id)
		if err != nil {
			if isNotFound(err) {
				m.log.Debug("skipping stale set reference", "set_id", id, "workout_id", workoutID)
				continue
			}
			return nil, err
		}
		if s.WorkoutID != workoutID {
			m.log.Debug("skipping foreign set reference", "set_id", id, "workout_id", workoutID)
			continue
		}

		patch, err := BuildPatch(id, groups[id])
		if err != nil {
			return nil, err
		}
		if !patch.Empty() {
			patches[id] = patch
		}
	}
	return patches, nil
}

func isNotFound(err error) bool {
	var nf *models.NotFoundError
	return errors.As(err, &nf)
}

func prescriptionNotes(line models.TemplateExercise) *string {
	var parts []string
	if line.Reps != nil && *line.Reps != "" {
		parts = append(parts, "target "+*line.Reps+" reps")
	}
	if line.Notes != nil && *line.Notes != "" {
		parts = append(parts, *line.Notes)
	}
	if len(parts) == 0 {
		return nil
	}
	s := strings.Join(parts, "; ")
	return &s
}
