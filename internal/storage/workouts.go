package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/meltforce/reptrack/internal/models"
)

const workoutColumns = `id, user_id, template_id, name, notes, started_at, ended_at, completed`

// CreateWorkoutWithSets inserts a workout and its initial sets in one
// transaction, so a concurrent read never sees a half-materialized session.
// Returns the new workout ID.
func (db *DB) CreateWorkoutWithSets(ctx context.Context, w *models.Workout, sets []models.WorkoutSet) (int64, error) {
	var id int64
	err := db.withTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO workouts (user_id, template_id, name, notes, started_at, completed)
			VALUES ($1, $2, $3, $4, $5, FALSE)
			RETURNING id
		`, w.UserID, w.TemplateID, w.Name, w.Notes, w.StartedAt).Scan(&id)
		if err != nil {
			return fmt.Errorf("inserting workout: %w", err)
		}
		for i := range sets {
			sets[i].WorkoutID = id
		}
		return insertSets(ctx, tx, sets)
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// GetWorkout retrieves a single workout by ID.
func (db *DB) GetWorkout(ctx context.Context, id int64) (*models.Workout, error) {
	var w models.Workout
	err := db.Pool.QueryRow(ctx,
		`SELECT `+workoutColumns+` FROM workouts WHERE id = $1`, id).
		Scan(&w.ID, &w.UserID, &w.TemplateID, &w.Name, &w.Notes, &w.StartedAt, &w.EndedAt, &w.Completed)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &models.NotFoundError{Resource: "workout", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("querying workout %d: %w", id, err)
	}
	return &w, nil
}

// UpdateWorkout overwrites a workout's name and notes.
func (db *DB) UpdateWorkout(ctx context.Context, id int64, name, notes *string) error {
	tag, err := db.Pool.Exec(ctx,
		`UPDATE workouts SET name = $2, notes = $3 WHERE id = $1`, id, name, notes)
	if err != nil {
		return fmt.Errorf("updating workout %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return &models.NotFoundError{Resource: "workout", ID: id}
	}
	return nil
}

// DeleteWorkoutCascade removes a workout and every set referencing it in one
// transaction. Used by session cancellation.
func (db *DB) DeleteWorkoutCascade(ctx context.Context, id int64) error {
	return db.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM workout_sets WHERE workout_id = $1`, id); err != nil {
			return fmt.Errorf("deleting sets of workout %d: %w", id, err)
		}
		tag, err := tx.Exec(ctx, `DELETE FROM workouts WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("deleting workout %d: %w", id, err)
		}
		if tag.RowsAffected() == 0 {
			return &models.NotFoundError{Resource: "workout", ID: id}
		}
		return nil
	})
}

// FinishWorkout applies a validated batch of set patches, flips the workout
// to completed, and stamps the end time in a single transaction.
func (db *DB) FinishWorkout(ctx context.Context, id int64, endedAt time.Time, patches map[int64]models.SetPatch) error {
	return db.withTx(ctx, func(tx pgx.Tx) error {
		if err := applyPatches(ctx, tx, patches); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx,
			`UPDATE workouts SET completed = TRUE, ended_at = $2 WHERE id = $1`, id, endedAt)
		if err != nil {
			return fmt.Errorf("completing workout %d: %w", id, err)
		}
		if tag.RowsAffected() == 0 {
			return &models.NotFoundError{Resource: "workout", ID: id}
		}
		return nil
	})
}

// ApplyHistoryEdit applies a validated batch of set patches to a completed
// workout and marks every one of its sets completed, atomically. Re-applying
// the same edit is a no-op.
func (db *DB) ApplyHistoryEdit(ctx context.Context, id int64, patches map[int64]models.SetPatch) error {
	return db.withTx(ctx, func(tx pgx.Tx) error {
		if err := applyPatches(ctx, tx, patches); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`UPDATE workout_sets SET completed = TRUE WHERE workout_id = $1`, id); err != nil {
			return fmt.Errorf("marking sets of workout %d completed: %w", id, err)
		}
		return nil
	})
}

// FindActiveWorkout returns the user's most recently started uncompleted
// workout, or nil when none is active.
func (db *DB) FindActiveWorkout(ctx context.Context, userID int64) (*models.Workout, error) {
	var w models.Workout
	err := db.Pool.QueryRow(ctx, `
		SELECT `+workoutColumns+`
		FROM workouts
		WHERE user_id = $1 AND NOT completed
		ORDER BY started_at DESC, id DESC
		LIMIT 1
	`, userID).Scan(&w.ID, &w.UserID, &w.TemplateID, &w.Name, &w.Notes, &w.StartedAt, &w.EndedAt, &w.Completed)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying active workout: %w", err)
	}
	return &w, nil
}

// ListCompletedWorkouts returns the user's completed workouts, most recent
// first. A limit of 0 means no limit.
func (db *DB) ListCompletedWorkouts(ctx context.Context, userID int64, limit int) ([]models.Workout, error) {
	query := `SELECT ` + workoutColumns + `
		 FROM workouts
		 WHERE user_id = $1 AND completed
		 ORDER BY started_at DESC, id DESC`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying completed workouts: %w", err)
	}
	defer rows.Close()

	return scanWorkouts(rows)
}

// CountCompletedWorkouts counts a user's completed workouts, optionally only
// those started at or after since.
func (db *DB) CountCompletedWorkouts(ctx context.Context, userID int64, since *time.Time) (int64, error) {
	query := `SELECT COUNT(*) FROM workouts WHERE user_id = $1 AND completed`
	args := []any{userID}
	if since != nil {
		query += ` AND started_at >= $2`
		args = append(args, *since)
	}

	var count int64
	if err := db.Pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting completed workouts: %w", err)
	}
	return count, nil
}

// FindMostRecentCompletedWorkout returns the latest completed workout of the
// user, other than excludeID, containing at least one completed set of the
// exercise with both weight and reps recorded. Equal start timestamps are
// broken by the higher workout ID. Returns nil when no workout qualifies.
func (db *DB) FindMostRecentCompletedWorkout(ctx context.Context, userID, exerciseID, excludeID int64) (*models.Workout, error) {
	var w models.Workout
	err := db.Pool.QueryRow(ctx, `
		SELECT `+workoutColumns+`
		FROM workouts w
		WHERE w.user_id = $1
		  AND w.id <> $3
		  AND w.completed
		  AND EXISTS (
			SELECT 1 FROM workout_sets s
			WHERE s.workout_id = w.id
			  AND s.exercise_id = $2
			  AND s.completed
			  AND s.weight IS NOT NULL
			  AND s.reps IS NOT NULL
		  )
		ORDER BY w.started_at DESC, w.id DESC
		LIMIT 1
	`, userID, exerciseID, excludeID).
		Scan(&w.ID, &w.UserID, &w.TemplateID, &w.Name, &w.Notes, &w.StartedAt, &w.EndedAt, &w.Completed)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying previous workout: %w", err)
	}
	return &w, nil
}

// ListCompletedWorkoutsForExercise returns, oldest first, the user's
// completed workouts containing at least one qualifying set of the exercise.
func (db *DB) ListCompletedWorkoutsForExercise(ctx context.Context, userID, exerciseID int64) ([]models.Workout, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT `+workoutColumns+`
		FROM workouts w
		WHERE w.user_id = $1
		  AND w.completed
		  AND EXISTS (
			SELECT 1 FROM workout_sets s
			WHERE s.workout_id = w.id
			  AND s.exercise_id = $2
			  AND s.completed
			  AND s.weight IS NOT NULL
			  AND s.reps IS NOT NULL
		  )
		ORDER BY w.started_at ASC, w.id ASC
	`, userID, exerciseID)
	if err != nil {
		return nil, fmt.Errorf("querying workouts for exercise %d: %w", exerciseID, err)
	}
	defer rows.Close()

	return scanWorkouts(rows)
}

// FindWorkoutByNameAndDay returns a completed workout of the user with the
// given name started on the given calendar day, or nil. Used by the CSV
// ingest to replace previously imported sessions.
func (db *DB) FindWorkoutByNameAndDay(ctx context.Context, userID int64, name string, day time.Time) (*models.Workout, error) {
	var w models.Workout
	err := db.Pool.QueryRow(ctx, `
		SELECT `+workoutColumns+`
		FROM workouts
		WHERE user_id = $1 AND name = $2 AND started_at::date = $3::date
		ORDER BY id DESC
		LIMIT 1
	`, userID, name, day).
		Scan(&w.ID, &w.UserID, &w.TemplateID, &w.Name, &w.Notes, &w.StartedAt, &w.EndedAt, &w.Completed)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying workout by name and day: %w", err)
	}
	return &w, nil
}

func scanWorkouts(rows pgx.Rows) ([]models.Workout, error) {
	var result []models.Workout
	for rows.Next() {
		var w models.Workout
		if err := rows.Scan(&w.ID, &w.UserID, &w.TemplateID, &w.Name, &w.Notes,
			&w.StartedAt, &w.EndedAt, &w.Completed); err != nil {
			return nil, fmt.Errorf("scanning workout: %w", err)
		}
		result = append(result, w)
	}
	return result, rows.Err()
}
