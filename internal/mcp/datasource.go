package mcp

import (
	"context"
	"time"

	"github.com/meltforce/reptrack/internal/models"
	"github.com/meltforce/reptrack/internal/storage"
)

// DataSource abstracts the data layer for MCP tools. It is a superset of the
// analytics store, so a stats.Service can run directly on top of it.
type DataSource interface {
	ListExercises(ctx context.Context) ([]models.Exercise, error)
	GetWorkout(ctx context.Context, id int64) (*models.Workout, error)
	ListSets(ctx context.Context, workoutID int64) ([]models.WorkoutSet, error)
	ListQualifyingSets(ctx context.Context, workoutID, exerciseID int64) ([]models.WorkoutSet, error)
	ListCompletedWorkouts(ctx context.Context, userID int64, limit int) ([]models.Workout, error)
	CountCompletedWorkouts(ctx context.Context, userID int64, since *time.Time) (int64, error)
	ListDistinctExercisesPerformed(ctx context.Context, userID int64) ([]models.Exercise, error)
	ListCompletedWorkoutsForExercise(ctx context.Context, userID, exerciseID int64) ([]models.Workout, error)
	FindMostRecentCompletedWorkout(ctx context.Context, userID, exerciseID, excludeID int64) (*models.Workout, error)
}

// Compile-time check: *storage.DB satisfies DataSource.
var _ DataSource = (*storage.DB)(nil)
