package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/meltforce/reptrack/internal/models"
)

// CreateFolder inserts a folder and returns its ID.
func (db *DB) CreateFolder(ctx context.Context, userID int64, name string) (int64, error) {
	var id int64
	err := db.Pool.QueryRow(ctx,
		`INSERT INTO folders (user_id, name) VALUES ($1, $2) RETURNING id`,
		userID, name).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting folder: %w", err)
	}
	return id, nil
}

// GetFolder retrieves a folder by ID.
func (db *DB) GetFolder(ctx context.Context, id int64) (*models.Folder, error) {
	var f models.Folder
	err := db.Pool.QueryRow(ctx,
		`SELECT id, user_id, name FROM folders WHERE id = $1`, id).
		Scan(&f.ID, &f.UserID, &f.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &models.NotFoundError{Resource: "folder", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("querying folder %d: %w", id, err)
	}
	return &f, nil
}

// ListFolders returns all folders owned by a user.
func (db *DB) ListFolders(ctx context.Context, userID int64) ([]models.Folder, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, user_id, name FROM folders WHERE user_id = $1 ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying folders: %w", err)
	}
	defer rows.Close()

	var result []models.Folder
	for rows.Next() {
		var f models.Folder
		if err := rows.Scan(&f.ID, &f.UserID, &f.Name); err != nil {
			return nil, fmt.Errorf("scanning folder: %w", err)
		}
		result = append(result, f)
	}
	return result, rows.Err()
}

// DeleteFolder removes a folder. Its templates and their lines go with it
// via ON DELETE CASCADE.
func (db *DB) DeleteFolder(ctx context.Context, id int64) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM folders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting folder %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return &models.NotFoundError{Resource: "folder", ID: id}
	}
	return nil
}
