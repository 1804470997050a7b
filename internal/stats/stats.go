// Package stats computes performance analytics over completed training
// history: estimated one-rep maxes, previous-performance lookback, and
// per-exercise strength progression series.
package stats

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/meltforce/reptrack/internal/models"
)

// Store is the read surface analytics needs. *storage.DB satisfies it.
type Store interface {
	GetWorkout(ctx context.Context, id int64) (*models.Workout, error)
	ListSets(ctx context.Context, workoutID int64) ([]models.WorkoutSet, error)
	ListQualifyingSets(ctx context.Context, workoutID, exerciseID int64) ([]models.WorkoutSet, error)
	ListDistinctExercisesPerformed(ctx context.Context, userID int64) ([]models.Exercise, error)
	ListCompletedWorkoutsForExercise(ctx context.Context, userID, exerciseID int64) ([]models.Workout, error)
	FindMostRecentCompletedWorkout(ctx context.Context, userID, exerciseID, excludeID int64) (*models.Workout, error)
}

// Service answers analytics queries. All methods only ever see completed
// workouts and qualifying sets (completed, with both weight and reps
// recorded), so partial in-progress data never skews the numbers.
type Service struct {
	store Store
	log   *slog.Logger
}

// NewService creates an analytics service.
func NewService(store Store, log *slog.Logger) *Service {
	return &Service{store: store, log: log}
}

// SetSnapshot is one qualifying set as shown in a lookback panel.
type SetSnapshot struct {
	SetID  int64    `json:"set_id"`
	Weight float64  `json:"weight"`
	Reps   int      `json:"reps"`
	RPE    *float64 `json:"rpe,omitempty"`
	RIR    *int     `json:"rir,omitempty"`
	Notes  *string  `json:"notes,omitempty"`
	OneRM  float64  `json:"one_rm"`
}

// LastPerformance is what the user did the previous time they trained an
// exercise.
type LastPerformance struct {
	WorkoutID   int64         `json:"workout_id"`
	WorkoutName *string       `json:"workout_name,omitempty"`
	PerformedAt time.Time     `json:"performed_at"`
	Sets        []SetSnapshot `json:"sets"`
}

// DataPoint is one workout's best estimated one-rep max for an exercise.
type DataPoint struct {
	Date   string   `json:"date"`
	OneRM  float64  `json:"one_rm"`
	Weight float64  `json:"weight"`
	Reps   int      `json:"reps"`
	RPE    *float64 `json:"rpe,omitempty"`
}

// EstimateOneRM applies the Epley formula, weight * (1 + reps/30), scaled by
// rpe/10 when an RPE was recorded to discount submaximal effort. The result
// is rounded to two decimals.
func EstimateOneRM(weight float64, reps int, rpe *float64) float64 {
	return math.Round(rawOneRM(weight, reps, rpe)*100) / 100
}

// rawOneRM is the unrounded estimate. Set comparisons use this, so two sets
// that round to the same two decimals still rank by their true values.
func rawOneRM(weight float64, reps int, rpe *float64) float64 {
	v := weight * (1 + float64(reps)/30)
	if rpe != nil {
		v *= *rpe / 10
	}
	return v
}

// Lookback finds the most recent completed workout, other than excludeID, in
// which the user logged a qualifying set of the exercise. It returns nil
// when the exercise has never been performed.
func (s *Service) Lookback(ctx context.Context, userID, exerciseID, excludeID int64) (*LastPerformance, error) {
	prev, err := s.store.FindMostRecentCompletedWorkout(ctx, userID, exerciseID, excludeID)
	if err != nil {
		return nil, fmt.Errorf("looking up previous workout for exercise %d: %w", exerciseID, err)
	}
	if prev == nil {
		return nil, nil
	}

	sets, err := s.store.ListQualifyingSets(ctx, prev.ID, exerciseID)
	if err != nil {
		return nil, fmt.Errorf("loading sets of workout %d: %w", prev.ID, err)
	}

	lp := &LastPerformance{
		WorkoutID:   prev.ID,
		WorkoutName: prev.Name,
		PerformedAt: prev.StartedAt,
		Sets:        make([]SetSnapshot, 0, len(sets)),
	}
	for _, set := range sets {
		lp.Sets = append(lp.Sets, snapshot(set))
	}
	return lp, nil
}

// WorkoutLookback returns the previous performance for every distinct
// exercise in a workout, keyed by exercise ID. Exercises with no prior
// history are absent from the map.
func (s *Service) WorkoutLookback(ctx context.Context, workoutID, userID int64) (map[int64]*LastPerformance, error) {
	w, err := s.store.GetWorkout(ctx, workoutID)
	if err != nil {
		return nil, err
	}
	if w.UserID != userID {
		return nil, &models.AccessDeniedError{Resource: "workout", ID: workoutID, UserID: userID}
	}

	sets, err := s.store.ListSets(ctx, workoutID)
	if err != nil {
		return nil, fmt.Errorf("loading sets of workout %d: %w", workoutID, err)
	}

	out := make(map[int64]*LastPerformance)
	for _, set := range sets {
		if _, seen := out[set.ExerciseID]; seen {
			continue
		}
		lp, err := s.Lookback(ctx, userID, set.ExerciseID, workoutID)
		if err != nil {
			return nil, err
		}
		if lp != nil {
			out[set.ExerciseID] = lp
		}
	}
	return out, nil
}

// Series builds per-exercise strength progression: for every exercise the
// user has performed, one data point per completed workout holding the best
// estimated one-rep max achieved in it. Within a workout the earliest set
// wins ties, so a later equal effort never displaces it. Exercises that end
// up with no points are omitted.
func (s *Service) Series(ctx context.Context, userID int64) (map[string][]DataPoint, error) {
	exercises, err := s.store.ListDistinctExercisesPerformed(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing performed exercises: %w", err)
	}

	out := make(map[string][]DataPoint, len(exercises))
	for _, ex := range exercises {
		workouts, err := s.store.ListCompletedWorkoutsForExercise(ctx, userID, ex.ID)
		if err != nil {
			return nil, fmt.Errorf("listing workouts for exercise %d: %w", ex.ID, err)
		}

		var points []DataPoint
		for _, w := range workouts {
			sets, err := s.store.ListQualifyingSets(ctx, w.ID, ex.ID)
			if err != nil {
				return nil, fmt.Errorf("loading sets of workout %d: %w", w.ID, err)
			}
			if best, ok := bestSet(sets); ok {
				points = append(points, DataPoint{
					Date:   w.StartedAt.Format("2006-01-02"),
					OneRM:  EstimateOneRM(*best.Weight, *best.Reps, best.RPE),
					Weight: *best.Weight,
					Reps:   *best.Reps,
					RPE:    best.RPE,
				})
			}
		}
		if len(points) > 0 {
			out[ex.Name] = points
		}
	}
	return out, nil
}

// bestSet picks the qualifying set with the highest estimated one-rep max.
// Replacement requires a strictly greater unrounded estimate, which keeps
// the earliest of truly equal sets without letting rounding create ties.
func bestSet(sets []models.WorkoutSet) (models.WorkoutSet, bool) {
	var best models.WorkoutSet
	bestRM := -1.0
	found := false
	for _, set := range sets {
		if set.Weight == nil || set.Reps == nil {
			continue
		}
		rm := rawOneRM(*set.Weight, *set.Reps, set.RPE)
		if rm > bestRM {
			best, bestRM, found = set, rm, true
		}
	}
	return best, found
}

func snapshot(set models.WorkoutSet) SetSnapshot {
	return SetSnapshot{
		SetID:  set.ID,
		Weight: *set.Weight,
		Reps:   *set.Reps,
		RPE:    set.RPE,
		RIR:    set.RIR,
		Notes:  set.Notes,
		OneRM:  EstimateOneRM(*set.Weight, *set.Reps, set.RPE),
	}
}
