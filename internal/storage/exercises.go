package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/meltforce/reptrack/internal/models"
)

// ListExercises returns the full catalog ordered by category then name.
func (db *DB) ListExercises(ctx context.Context) ([]models.Exercise, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, name, category, equipment FROM exercises ORDER BY category, name`)
	if err != nil {
		return nil, fmt.Errorf("querying exercises: %w", err)
	}
	defer rows.Close()

	return scanExercises(rows)
}

// GetExercise retrieves a single catalog entry.
func (db *DB) GetExercise(ctx context.Context, id int64) (*models.Exercise, error) {
	var e models.Exercise
	err := db.Pool.QueryRow(ctx,
		`SELECT id, name, category, equipment FROM exercises WHERE id = $1`, id).
		Scan(&e.ID, &e.Name, &e.Category, &e.Equipment)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &models.NotFoundError{Resource: "exercise", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("querying exercise %d: %w", id, err)
	}
	return &e, nil
}

// GetOrCreateExercise finds an exercise by (name, category) or inserts it.
// Used by the importers, which encounter movements outside the seed catalog.
func (db *DB) GetOrCreateExercise(ctx context.Context, name, category string, equipment *string) (int64, error) {
	var id int64
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO exercises (name, category, equipment)
		VALUES ($1, $2, $3)
		ON CONFLICT (name, category) DO UPDATE
			SET equipment = COALESCE(exercises.equipment, EXCLUDED.equipment)
		RETURNING id
	`, name, category, equipment).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upserting exercise %q: %w", name, err)
	}
	return id, nil
}

// SeedExercises batch-inserts catalog entries. Existing (name, category)
// pairs are left untouched. Returns the number of rows inserted.
func (db *DB) SeedExercises(ctx context.Context, exercises []models.Exercise) (int64, error) {
	if len(exercises) == 0 {
		return 0, nil
	}

	query := `INSERT INTO exercises (name, category, equipment) VALUES `
	args := make([]any, 0, len(exercises)*3)
	valueStrings := make([]string, 0, len(exercises))

	for i, e := range exercises {
		base := i * 3
		valueStrings = append(valueStrings, fmt.Sprintf("($%d,$%d,$%d)", base+1, base+2, base+3))
		args = append(args, e.Name, e.Category, e.Equipment)
	}

	query += strings.Join(valueStrings, ",") + " ON CONFLICT DO NOTHING"

	tag, err := db.Pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("seeding exercises: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ListDistinctExercisesPerformed returns every exercise for which the user
// has at least one completed set with both weight and reps recorded.
func (db *DB) ListDistinctExercisesPerformed(ctx context.Context, userID int64) ([]models.Exercise, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT DISTINCT e.id, e.name, e.category, e.equipment
		FROM exercises e
		JOIN workout_sets s ON s.exercise_id = e.id
		JOIN workouts w ON w.id = s.workout_id
		WHERE w.user_id = $1
		  AND w.completed
		  AND s.completed
		  AND s.weight IS NOT NULL
		  AND s.reps IS NOT NULL
		ORDER BY e.category, e.name
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying performed exercises: %w", err)
	}
	defer rows.Close()

	return scanExercises(rows)
}

func scanExercises(rows pgx.Rows) ([]models.Exercise, error) {
	var result []models.Exercise
	for rows.Next() {
		var e models.Exercise
		if err := rows.Scan(&e.ID, &e.Name, &e.Category, &e.Equipment); err != nil {
			return nil, fmt.Errorf("scanning exercise: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}
