package stats

import (
	"context"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/meltforce/reptrack/internal/models"
)

type fakeStore struct {
	workouts  map[int64]*models.Workout
	sets      map[int64][]models.WorkoutSet
	exercises []models.Exercise
}

func (f *fakeStore) GetWorkout(_ context.Context, id int64) (*models.Workout, error) {
	w, ok := f.workouts[id]
	if !ok {
		return nil, &models.NotFoundError{Resource: "workout", ID: id}
	}
	cp := *w
	return &cp, nil
}

func (f *fakeStore) ListSets(_ context.Context, workoutID int64) ([]models.WorkoutSet, error) {
	return f.sets[workoutID], nil
}

func (f *fakeStore) ListQualifyingSets(_ context.Context, workoutID, exerciseID int64) ([]models.WorkoutSet, error) {
	var out []models.WorkoutSet
	for _, s := range f.sets[workoutID] {
		if s.ExerciseID == exerciseID && s.Completed && s.Weight != nil && s.Reps != nil {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStore) ListDistinctExercisesPerformed(_ context.Context, _ int64) ([]models.Exercise, error) {
	return f.exercises, nil
}

func (f *fakeStore) ListCompletedWorkoutsForExercise(_ context.Context, userID, exerciseID int64) ([]models.Workout, error) {
	var out []models.Workout
	for _, w := range f.completedByStart(userID) {
		qs, _ := f.ListQualifyingSets(context.Background(), w.ID, exerciseID)
		if len(qs) > 0 {
			out = append(out, *w)
		}
	}
	return out, nil
}

func (f *fakeStore) FindMostRecentCompletedWorkout(_ context.Context, userID, exerciseID, excludeID int64) (*models.Workout, error) {
	ws := f.completedByStart(userID)
	for i := len(ws) - 1; i >= 0; i-- {
		w := ws[i]
		if w.ID == excludeID {
			continue
		}
		qs, _ := f.ListQualifyingSets(context.Background(), w.ID, exerciseID)
		if len(qs) > 0 {
			cp := *w
			return &cp, nil
		}
	}
	return nil, nil
}

// completedByStart returns the user's completed workouts ordered ascending
// by start time, breaking ties by ID the way the real queries do.
func (f *fakeStore) completedByStart(userID int64) []*models.Workout {
	var out []*models.Workout
	for _, w := range f.workouts {
		if w.UserID == userID && w.Completed {
			out = append(out, w)
		}
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0; j-- {
			a, b := out[j-1], out[j]
			if a.StartedAt.After(b.StartedAt) || (a.StartedAt.Equal(b.StartedAt) && a.ID > b.ID) {
				out[j-1], out[j] = b, a
			} else {
				break
			}
		}
	}
	return out
}

func ptr[T any](v T) *T { return &v }

func day(d int) time.Time {
	return time.Date(2025, 5, d, 18, 0, 0, 0, time.UTC)
}

func qualSet(id, exerciseID int64, weight float64, reps int, rpe *float64) models.WorkoutSet {
	return models.WorkoutSet{
		ID:         id,
		ExerciseID: exerciseID,
		Weight:     &weight,
		Reps:       &reps,
		RPE:        rpe,
		Completed:  true,
	}
}

func testService(f *fakeStore) *Service {
	return NewService(f, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestEstimateOneRM(t *testing.T) {
	cases := []struct {
		weight float64
		reps   int
		rpe    *float64
		want   float64
	}{
		{100, 5, nil, 116.67},
		{100, 5, ptr(8.0), 93.33},
		{100, 1, ptr(10.0), 103.33},
		{60, 0, nil, 60},
		{80, 12, ptr(7.5), 84},
	}
	for _, tc := range cases {
		got := EstimateOneRM(tc.weight, tc.reps, tc.rpe)
		if math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("EstimateOneRM(%g, %d, %v) = %g, want %g", tc.weight, tc.reps, tc.rpe, got, tc.want)
		}
	}
}

func TestLookbackExcludesCurrentWorkout(t *testing.T) {
	f := &fakeStore{
		workouts: map[int64]*models.Workout{
			1: {ID: 1, UserID: 1, StartedAt: day(1), Completed: true},
			2: {ID: 2, UserID: 1, StartedAt: day(3), Completed: true, Name: ptr("Push")},
			3: {ID: 3, UserID: 1, StartedAt: day(5), Completed: true},
		},
		sets: map[int64][]models.WorkoutSet{
			1: {qualSet(10, 100, 80, 8, nil)},
			2: {qualSet(20, 100, 85, 6, ptr(8.0)), qualSet(21, 100, 85, 8, nil)},
			3: {qualSet(30, 100, 90, 5, nil)},
		},
	}
	s := testService(f)

	lp, err := s.Lookback(context.Background(), 1, 100, 3)
	if err != nil {
		t.Fatalf("Lookback: %v", err)
	}
	if lp == nil {
		t.Fatal("got nil, want previous performance")
	}
	if lp.WorkoutID != 2 {
		t.Errorf("workout = %d, want 2 (most recent excluding current)", lp.WorkoutID)
	}
	if len(lp.Sets) != 2 {
		t.Fatalf("got %d sets, want 2", len(lp.Sets))
	}
	if lp.Sets[0].OneRM != 81.6 {
		t.Errorf("set 0 one_rm = %g, want 81.6", lp.Sets[0].OneRM)
	}
	if lp.Sets[1].OneRM != 107.67 {
		t.Errorf("set 1 one_rm = %g, want 107.67", lp.Sets[1].OneRM)
	}
}

func TestLookbackNoHistory(t *testing.T) {
	f := &fakeStore{workouts: map[int64]*models.Workout{}, sets: map[int64][]models.WorkoutSet{}}
	s := testService(f)

	lp, err := s.Lookback(context.Background(), 1, 100, 0)
	if err != nil {
		t.Fatalf("Lookback: %v", err)
	}
	if lp != nil {
		t.Errorf("got %+v, want nil for never-performed exercise", lp)
	}
}

func TestLookbackIgnoresActiveAndNonQualifying(t *testing.T) {
	f := &fakeStore{
		workouts: map[int64]*models.Workout{
			1: {ID: 1, UserID: 1, StartedAt: day(1), Completed: true},
			2: {ID: 2, UserID: 1, StartedAt: day(3), Completed: false},
			3: {ID: 3, UserID: 1, StartedAt: day(4), Completed: true},
		},
		sets: map[int64][]models.WorkoutSet{
			1: {qualSet(10, 100, 80, 8, nil)},
			2: {qualSet(20, 100, 200, 1, nil)},
			3: {{ID: 30, ExerciseID: 100, Weight: ptr(90.0), Completed: true}},
		},
	}
	s := testService(f)

	lp, err := s.Lookback(context.Background(), 1, 100, 0)
	if err != nil {
		t.Fatalf("Lookback: %v", err)
	}
	if lp == nil || lp.WorkoutID != 1 {
		t.Fatalf("got %+v, want workout 1 (active and reps-less rows ignored)", lp)
	}
}

func TestWorkoutLookbackOwnership(t *testing.T) {
	f := &fakeStore{
		workouts: map[int64]*models.Workout{
			1: {ID: 1, UserID: 1, StartedAt: day(1)},
		},
		sets: map[int64][]models.WorkoutSet{},
	}
	s := testService(f)

	_, err := s.WorkoutLookback(context.Background(), 1, 2)
	if _, ok := err.(*models.AccessDeniedError); !ok {
		t.Errorf("error = %v, want AccessDeniedError", err)
	}
}

func TestWorkoutLookbackPerExercise(t *testing.T) {
	f := &fakeStore{
		workouts: map[int64]*models.Workout{
			1: {ID: 1, UserID: 1, StartedAt: day(1), Completed: true},
			2: {ID: 2, UserID: 1, StartedAt: day(5)},
		},
		sets: map[int64][]models.WorkoutSet{
			1: {qualSet(10, 100, 80, 8, nil)},
			2: {
				{ID: 20, WorkoutID: 2, ExerciseID: 100},
				{ID: 21, WorkoutID: 2, ExerciseID: 100},
				{ID: 22, WorkoutID: 2, ExerciseID: 200},
			},
		},
	}
	s := testService(f)

	out, err := s.WorkoutLookback(context.Background(), 2, 1)
	if err != nil {
		t.Fatalf("WorkoutLookback: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("got %d entries, want 1 (exercise 200 has no history)", len(out))
	}
	lp := out[100]
	if lp == nil || lp.WorkoutID != 1 {
		t.Errorf("exercise 100 lookback = %+v, want workout 1", lp)
	}
}

func TestSeriesBestSetPerWorkout(t *testing.T) {
	f := &fakeStore{
		workouts: map[int64]*models.Workout{
			1: {ID: 1, UserID: 1, StartedAt: day(1), Completed: true},
			2: {ID: 2, UserID: 1, StartedAt: day(3), Completed: true},
		},
		sets: map[int64][]models.WorkoutSet{
			1: {
				qualSet(10, 100, 100, 5, nil),
				qualSet(11, 100, 110, 3, nil),
			},
			2: {
				qualSet(20, 100, 105, 5, nil),
			},
		},
		exercises: []models.Exercise{{ID: 100, Name: "Bench Press", Category: "Chest"}},
	}
	s := testService(f)

	out, err := s.Series(context.Background(), 1)
	if err != nil {
		t.Fatalf("Series: %v", err)
	}
	points := out["Bench Press"]
	if len(points) != 2 {
		t.Fatalf("got %d points, want 2", len(points))
	}
	if points[0].Date != "2025-05-01" || points[0].OneRM != 121 {
		t.Errorf("point 0 = %+v, want 2025-05-01 / 121 (set 11 beats set 10)", points[0])
	}
	if points[1].Date != "2025-05-03" || points[1].OneRM != 122.5 {
		t.Errorf("point 1 = %+v, want 2025-05-03 / 122.5", points[1])
	}
}

func TestSeriesTieKeepsEarliestSet(t *testing.T) {
	f := &fakeStore{
		workouts: map[int64]*models.Workout{
			1: {ID: 1, UserID: 1, StartedAt: day(1), Completed: true},
		},
		sets: map[int64][]models.WorkoutSet{
			1: {
				qualSet(10, 100, 100, 5, ptr(8.0)),
				qualSet(11, 100, 100, 5, ptr(8.0)),
			},
		},
		exercises: []models.Exercise{{ID: 100, Name: "Squat", Category: "Quadriceps"}},
	}
	s := testService(f)

	out, err := s.Series(context.Background(), 1)
	if err != nil {
		t.Fatalf("Series: %v", err)
	}
	points := out["Squat"]
	if len(points) != 1 {
		t.Fatalf("got %d points, want 1", len(points))
	}
	if points[0].Weight != 100 || points[0].Reps != 5 {
		t.Errorf("point = %+v, want the first of the tied sets", points[0])
	}
}

func TestSeriesOmitsEmptyExercises(t *testing.T) {
	f := &fakeStore{
		workouts:  map[int64]*models.Workout{},
		sets:      map[int64][]models.WorkoutSet{},
		exercises: []models.Exercise{{ID: 100, Name: "Deadlift", Category: "Back"}},
	}
	s := testService(f)

	out, err := s.Series(context.Background(), 1)
	if err != nil {
		t.Fatalf("Series: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("got %v, want empty map", out)
	}
}

func TestLookbackSameStartPrefersHigherID(t *testing.T) {
	f := &fakeStore{
		workouts: map[int64]*models.Workout{
			1: {ID: 1, UserID: 1, StartedAt: day(2), Completed: true},
			2: {ID: 2, UserID: 1, StartedAt: day(2), Completed: true},
		},
		sets: map[int64][]models.WorkoutSet{
			1: {qualSet(10, 100, 80, 8, nil)},
			2: {qualSet(20, 100, 82.5, 8, nil)},
		},
	}
	s := testService(f)

	lp, err := s.Lookback(context.Background(), 1, 100, 0)
	if err != nil {
		t.Fatalf("Lookback: %v", err)
	}
	if lp == nil {
		t.Fatal("got nil, want previous performance")
	}
	if lp.WorkoutID != 2 {
		t.Errorf("workout = %d, want 2 (higher id wins an equal start time)", lp.WorkoutID)
	}

	// Excluding the winner falls through to the other workout of the pair.
	lp, err = s.Lookback(context.Background(), 1, 100, 2)
	if err != nil {
		t.Fatalf("Lookback: %v", err)
	}
	if lp == nil || lp.WorkoutID != 1 {
		t.Errorf("got %+v, want workout 1", lp)
	}
}

func TestSeriesBestSetComparesUnroundedEstimates(t *testing.T) {
	// Both sets round to a 116.67 estimate, but the second's true value is
	// marginally higher and must win.
	f := &fakeStore{
		workouts: map[int64]*models.Workout{
			1: {ID: 1, UserID: 1, StartedAt: day(1), Completed: true},
		},
		sets: map[int64][]models.WorkoutSet{
			1: {
				qualSet(10, 100, 99.999, 5, nil),
				qualSet(11, 100, 100, 5, nil),
			},
		},
		exercises: []models.Exercise{{ID: 100, Name: "Bench Press", Category: "Chest"}},
	}
	s := testService(f)

	out, err := s.Series(context.Background(), 1)
	if err != nil {
		t.Fatalf("Series: %v", err)
	}
	points := out["Bench Press"]
	if len(points) != 1 {
		t.Fatalf("got %d points, want 1", len(points))
	}
	if points[0].Weight != 100 {
		t.Errorf("weight = %g, want 100 (the truly heavier set)", points[0].Weight)
	}
	if points[0].OneRM != 116.67 {
		t.Errorf("one_rm = %g, want 116.67", points[0].OneRM)
	}
}
