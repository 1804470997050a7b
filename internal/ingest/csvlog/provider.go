package csvlog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/meltforce/reptrack/internal/ingest"
	"github.com/meltforce/reptrack/internal/models"
)

// Store is the persistence surface the provider needs. *storage.DB
// satisfies it.
type Store interface {
	GetOrCreateExercise(ctx context.Context, name, category string, equipment *string) (int64, error)
	FindWorkoutByNameAndDay(ctx context.Context, userID int64, name string, day time.Time) (*models.Workout, error)
	DeleteWorkoutCascade(ctx context.Context, id int64) error
	CreateWorkoutWithSets(ctx context.Context, w *models.Workout, sets []models.WorkoutSet) (int64, error)
}

// Provider ingests CSV training logs as completed workout history.
type Provider struct {
	store Store
	log   *slog.Logger
}

// NewProvider creates a CSV log ingest provider.
func NewProvider(store Store, log *slog.Logger) *Provider {
	return &Provider{store: store, log: log}
}

// Ingest parses a CSV export and stores each session as a completed workout.
// A session that matches an existing workout by name and day replaces it, so
// re-importing the same file always reflects the latest file contents.
func (p *Provider) Ingest(ctx context.Context, r io.Reader, userID int64) (*ingest.Result, error) {
	sessions, err := Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing CSV: %w", err)
	}

	result := &ingest.Result{WorkoutsReceived: len(sessions)}
	exerciseIDs := make(map[string]int64)

	for _, s := range sessions {
		existing, err := p.store.FindWorkoutByNameAndDay(ctx, userID, s.Name, s.Date)
		if err != nil {
			return nil, fmt.Errorf("checking for existing workout %q: %w", s.Name, err)
		}
		if existing != nil {
			if err := p.store.DeleteWorkoutCascade(ctx, existing.ID); err != nil {
				return nil, fmt.Errorf("replacing workout %d: %w", existing.ID, err)
			}
			result.WorkoutsReplaced++
		}

		sets := make([]models.WorkoutSet, 0, len(s.Sets))
		for _, row := range s.Sets {
			key := row.Exercise + "\x00" + row.Category
			id, ok := exerciseIDs[key]
			if !ok {
				category := row.Category
				if category == "" {
					category = "Other"
				}
				var equipment *string
				if row.Equipment != "" {
					eq := row.Equipment
					equipment = &eq
				}
				id, err = p.store.GetOrCreateExercise(ctx, row.Exercise, category, equipment)
				if err != nil {
					return nil, fmt.Errorf("resolving exercise %q: %w", row.Exercise, err)
				}
				exerciseIDs[key] = id
				result.ExercisesResolved++
			}
			sets = append(sets, models.WorkoutSet{
				ExerciseID: id,
				Weight:     row.Weight,
				Reps:       row.Reps,
				RPE:        row.RPE,
				RIR:        row.RIR,
				Notes:      row.Notes,
				Completed:  true,
			})
		}
		result.SetsReceived += len(s.Sets)

		date := s.Date
		name := s.Name
		w := &models.Workout{
			UserID:    userID,
			StartedAt: date,
			EndedAt:   &date,
			Completed: true,
		}
		if name != "" {
			w.Name = &name
		}
		id, err := p.store.CreateWorkoutWithSets(ctx, w, sets)
		if err != nil {
			return nil, fmt.Errorf("storing workout %q: %w", s.Name, err)
		}
		result.WorkoutsCreated++
		result.SetsCreated += len(sets)
		p.log.Debug("session ingested", "workout_id", id, "name", s.Name, "sets", len(sets))
	}

	return result, nil
}
