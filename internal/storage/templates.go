package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/meltforce/reptrack/internal/models"
)

// CreateTemplate inserts a template into a folder and returns its ID.
func (db *DB) CreateTemplate(ctx context.Context, folderID int64, name string) (int64, error) {
	var id int64
	err := db.Pool.QueryRow(ctx,
		`INSERT INTO templates (folder_id, name) VALUES ($1, $2) RETURNING id`,
		folderID, name).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting template: %w", err)
	}
	return id, nil
}

// GetTemplate retrieves a template with its exercise lines in prescription
// order. UserID is the owning folder's user, for ownership checks.
func (db *DB) GetTemplate(ctx context.Context, id int64) (*models.Template, error) {
	var t models.Template
	err := db.Pool.QueryRow(ctx, `
		SELECT t.id, t.folder_id, t.name, f.user_id
		FROM templates t
		JOIN folders f ON f.id = t.folder_id
		WHERE t.id = $1
	`, id).Scan(&t.ID, &t.FolderID, &t.Name, &t.UserID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &models.NotFoundError{Resource: "template", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("querying template %d: %w", id, err)
	}

	rows, err := db.Pool.Query(ctx, `
		SELECT id, template_id, exercise_id, sets, reps, weight, rpe, rir, notes, position
		FROM template_exercises
		WHERE template_id = $1
		ORDER BY position, id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("querying template lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var line models.TemplateExercise
		if err := rows.Scan(&line.ID, &line.TemplateID, &line.ExerciseID, &line.Sets,
			&line.Reps, &line.Weight, &line.RPE, &line.RIR, &line.Notes, &line.Position); err != nil {
			return nil, fmt.Errorf("scanning template line: %w", err)
		}
		t.Lines = append(t.Lines, line)
	}
	return &t, rows.Err()
}

// ListTemplates returns all templates in a folder.
func (db *DB) ListTemplates(ctx context.Context, folderID int64) ([]models.Template, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT t.id, t.folder_id, t.name, f.user_id
		FROM templates t
		JOIN folders f ON f.id = t.folder_id
		WHERE t.folder_id = $1
		ORDER BY t.name
	`, folderID)
	if err != nil {
		return nil, fmt.Errorf("querying templates: %w", err)
	}
	defer rows.Close()

	var result []models.Template
	for rows.Next() {
		var t models.Template
		if err := rows.Scan(&t.ID, &t.FolderID, &t.Name, &t.UserID); err != nil {
			return nil, fmt.Errorf("scanning template: %w", err)
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

// DeleteTemplate removes a template and its lines (cascade).
func (db *DB) DeleteTemplate(ctx context.Context, id int64) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM templates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting template %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return &models.NotFoundError{Resource: "template", ID: id}
	}
	return nil
}

// AddTemplateExercise appends a prescription line to a template. Position
// defaults to the end of the current line list.
func (db *DB) AddTemplateExercise(ctx context.Context, line models.TemplateExercise) (int64, error) {
	var id int64
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO template_exercises (template_id, exercise_id, sets, reps, weight, rpe, rir, notes, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8,
			(SELECT COALESCE(MAX(position), 0) + 1 FROM template_exercises WHERE template_id = $1))
		RETURNING id
	`, line.TemplateID, line.ExerciseID, line.Sets, line.Reps, line.Weight,
		line.RPE, line.RIR, line.Notes).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting template line: %w", err)
	}
	return id, nil
}

// UpdateTemplateExercise overwrites a prescription line's fields. The update
// is scoped to the line's template, so an id belonging to another template
// is treated as not found.
func (db *DB) UpdateTemplateExercise(ctx context.Context, line models.TemplateExercise) error {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE template_exercises
		SET sets = $2, reps = $3, weight = $4, rpe = $5, rir = $6, notes = $7
		WHERE id = $1 AND template_id = $8
	`, line.ID, line.Sets, line.Reps, line.Weight, line.RPE, line.RIR, line.Notes, line.TemplateID)
	if err != nil {
		return fmt.Errorf("updating template line %d: %w", line.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return &models.NotFoundError{Resource: "template line", ID: line.ID}
	}
	return nil
}

// DeleteTemplateExercise removes a single prescription line, scoped to its
// template like UpdateTemplateExercise.
func (db *DB) DeleteTemplateExercise(ctx context.Context, templateID, lineID int64) error {
	tag, err := db.Pool.Exec(ctx,
		`DELETE FROM template_exercises WHERE id = $1 AND template_id = $2`,
		lineID, templateID)
	if err != nil {
		return fmt.Errorf("deleting template line %d: %w", lineID, err)
	}
	if tag.RowsAffected() == 0 {
		return &models.NotFoundError{Resource: "template line", ID: lineID}
	}
	return nil
}
