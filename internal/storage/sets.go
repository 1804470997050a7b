package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/meltforce/reptrack/internal/models"
)

const setColumns = `id, workout_id, exercise_id, weight, reps, rpe, rir, notes, completed`

// GetSet retrieves a single workout set by ID.
func (db *DB) GetSet(ctx context.Context, id int64) (*models.WorkoutSet, error) {
	var s models.WorkoutSet
	err := db.Pool.QueryRow(ctx,
		`SELECT `+setColumns+` FROM workout_sets WHERE id = $1`, id).
		Scan(&s.ID, &s.WorkoutID, &s.ExerciseID, &s.Weight, &s.Reps, &s.RPE, &s.RIR, &s.Notes, &s.Completed)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &models.NotFoundError{Resource: "set", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("querying set %d: %w", id, err)
	}
	return &s, nil
}

// ListSets returns a workout's sets in creation order.
func (db *DB) ListSets(ctx context.Context, workoutID int64) ([]models.WorkoutSet, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+setColumns+` FROM workout_sets WHERE workout_id = $1 ORDER BY id`, workoutID)
	if err != nil {
		return nil, fmt.Errorf("querying sets: %w", err)
	}
	defer rows.Close()

	return scanSets(rows)
}

// ListQualifyingSets returns the completed sets of an exercise within a
// workout that have both weight and reps recorded, in creation order.
func (db *DB) ListQualifyingSets(ctx context.Context, workoutID, exerciseID int64) ([]models.WorkoutSet, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT `+setColumns+`
		FROM workout_sets
		WHERE workout_id = $1
		  AND exercise_id = $2
		  AND completed
		  AND weight IS NOT NULL
		  AND reps IS NOT NULL
		ORDER BY id
	`, workoutID, exerciseID)
	if err != nil {
		return nil, fmt.Errorf("querying qualifying sets: %w", err)
	}
	defer rows.Close()

	return scanSets(rows)
}

// CreateSets batch-inserts sets in a single statement.
func (db *DB) CreateSets(ctx context.Context, sets []models.WorkoutSet) error {
	return insertSets(ctx, db.Pool, sets)
}

// UpdateSet applies a single validated patch outside any batch.
func (db *DB) UpdateSet(ctx context.Context, id int64, patch models.SetPatch) error {
	return execPatch(ctx, db.Pool, id, patch)
}

// DeleteSet removes a single set.
func (db *DB) DeleteSet(ctx context.Context, id int64) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM workout_sets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting set %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return &models.NotFoundError{Resource: "set", ID: id}
	}
	return nil
}

// DeleteExerciseSets removes every set of one exercise within a workout.
func (db *DB) DeleteExerciseSets(ctx context.Context, workoutID, exerciseID int64) error {
	_, err := db.Pool.Exec(ctx,
		`DELETE FROM workout_sets WHERE workout_id = $1 AND exercise_id = $2`,
		workoutID, exerciseID)
	if err != nil {
		return fmt.Errorf("deleting sets of exercise %d in workout %d: %w", exerciseID, workoutID, err)
	}
	return nil
}

func insertSets(ctx context.Context, ex execer, sets []models.WorkoutSet) error {
	if len(sets) == 0 {
		return nil
	}

	query := `INSERT INTO workout_sets (workout_id, exercise_id, weight, reps, rpe, rir, notes, completed) VALUES `
	args := make([]any, 0, len(sets)*8)
	valueStrings := make([]string, 0, len(sets))

	for i, s := range sets {
		base := i * 8
		valueStrings = append(valueStrings, fmt.Sprintf(
			"($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8,
		))
		args = append(args, s.WorkoutID, s.ExerciseID, s.Weight, s.Reps, s.RPE, s.RIR, s.Notes, s.Completed)
	}

	query += strings.Join(valueStrings, ",")

	if _, err := ex.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting sets: %w", err)
	}
	return nil
}

// applyPatches executes every patch in the batch on the given executor.
// Callers wrap it in a transaction for all-or-nothing semantics.
func applyPatches(ctx context.Context, ex execer, patches map[int64]models.SetPatch) error {
	for id, p := range patches {
		if err := execPatch(ctx, ex, id, p); err != nil {
			return err
		}
	}
	return nil
}

func execPatch(ctx context.Context, ex execer, setID int64, p models.SetPatch) error {
	var cols []string
	var args []any

	assign := func(col string, clear bool, v any) {
		if clear {
			cols = append(cols, col+" = NULL")
			return
		}
		args = append(args, v)
		cols = append(cols, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if p.Weight.Present {
		assign("weight", p.Weight.Clear, p.Weight.Value)
	}
	if p.Reps.Present {
		assign("reps", p.Reps.Clear, p.Reps.Value)
	}
	if p.RPE.Present {
		assign("rpe", p.RPE.Clear, p.RPE.Value)
	}
	if p.RIR.Present {
		assign("rir", p.RIR.Clear, p.RIR.Value)
	}
	if p.Notes.Present {
		assign("notes", p.Notes.Clear, p.Notes.Value)
	}
	if p.MarkCompleted {
		cols = append(cols, "completed = TRUE")
	}
	if len(cols) == 0 {
		return nil
	}

	args = append(args, setID)
	query := fmt.Sprintf("UPDATE workout_sets SET %s WHERE id = $%d",
		strings.Join(cols, ", "), len(args))

	tag, err := ex.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("patching set %d: %w", setID, err)
	}
	if tag.RowsAffected() == 0 {
		return &models.NotFoundError{Resource: "set", ID: setID}
	}
	return nil
}

func scanSets(rows pgx.Rows) ([]models.WorkoutSet, error) {
	var result []models.WorkoutSet
	for rows.Next() {
		var s models.WorkoutSet
		if err := rows.Scan(&s.ID, &s.WorkoutID, &s.ExerciseID, &s.Weight, &s.Reps,
			&s.RPE, &s.RIR, &s.Notes, &s.Completed); err != nil {
			return nil, fmt.Errorf("scanning set: %w", err)
		}
		result = append(result, s)
	}
	return result, rows.Err()
}
