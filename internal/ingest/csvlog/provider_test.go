package csvlog

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/meltforce/reptrack/internal/models"
)

type fakeStore struct {
	exercises map[string]int64
	workouts  map[int64]*models.Workout
	sets      map[int64][]models.WorkoutSet
	nextID    int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		exercises: make(map[string]int64),
		workouts:  make(map[int64]*models.Workout),
		sets:      make(map[int64][]models.WorkoutSet),
		nextID:    1,
	}
}

func (f *fakeStore) GetOrCreateExercise(_ context.Context, name, category string, _ *string) (int64, error) {
	key := name + "|" + category
	if id, ok := f.exercises[key]; ok {
		return id, nil
	}
	id := f.nextID
	f.nextID++
	f.exercises[key] = id
	return id, nil
}

func (f *fakeStore) FindWorkoutByNameAndDay(_ context.Context, userID int64, name string, day time.Time) (*models.Workout, error) {
	for _, w := range f.workouts {
		if w.UserID != userID || w.Name == nil || *w.Name != name {
			continue
		}
		if w.StartedAt.Format("2006-01-02") == day.Format("2006-01-02") {
			cp := *w
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) DeleteWorkoutCascade(_ context.Context, id int64) error {
	delete(f.workouts, id)
	delete(f.sets, id)
	return nil
}

func (f *fakeStore) CreateWorkoutWithSets(_ context.Context, w *models.Workout, sets []models.WorkoutSet) (int64, error) {
	cp := *w
	cp.ID = f.nextID
	f.nextID++
	f.workouts[cp.ID] = &cp
	f.sets[cp.ID] = sets
	return cp.ID, nil
}

func testProvider(f *fakeStore) *Provider {
	return NewProvider(f, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestIngestCreatesCompletedHistory(t *testing.T) {
	f := newFakeStore()
	p := testProvider(f)

	res, err := p.Ingest(context.Background(), strings.NewReader(sampleCSV), 1)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if res.WorkoutsReceived != 2 || res.WorkoutsCreated != 2 {
		t.Errorf("workouts = %d/%d, want 2/2", res.WorkoutsReceived, res.WorkoutsCreated)
	}
	if res.SetsCreated != 5 {
		t.Errorf("sets created = %d, want 5", res.SetsCreated)
	}
	if res.ExercisesResolved != 4 {
		t.Errorf("exercises resolved = %d, want 4", res.ExercisesResolved)
	}
	if res.WorkoutsReplaced != 0 {
		t.Errorf("workouts replaced = %d, want 0", res.WorkoutsReplaced)
	}

	for _, w := range f.workouts {
		if !w.Completed {
			t.Errorf("workout %d not completed", w.ID)
		}
		if w.EndedAt == nil {
			t.Errorf("workout %d has no end time", w.ID)
		}
		for _, s := range f.sets[w.ID] {
			if !s.Completed {
				t.Errorf("set of workout %d not completed", w.ID)
			}
		}
	}
}

func TestIngestReplacesOnReimport(t *testing.T) {
	f := newFakeStore()
	p := testProvider(f)
	ctx := context.Background()

	if _, err := p.Ingest(ctx, strings.NewReader(sampleCSV), 1); err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	res, err := p.Ingest(ctx, strings.NewReader(sampleCSV), 1)
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if res.WorkoutsReplaced != 2 {
		t.Errorf("workouts replaced = %d, want 2", res.WorkoutsReplaced)
	}
	if len(f.workouts) != 2 {
		t.Errorf("stored workouts = %d, want 2 after replace", len(f.workouts))
	}
}

func TestIngestParseFailureWritesNothing(t *testing.T) {
	f := newFakeStore()
	p := testProvider(f)

	csv := "date,workout,exercise,rpe\n2025-04-07,Legs,Squat,12\n"
	if _, err := p.Ingest(context.Background(), strings.NewReader(csv), 1); err == nil {
		t.Fatal("expected error")
	}
	if len(f.workouts) != 0 {
		t.Errorf("stored workouts = %d, want 0", len(f.workouts))
	}
}
