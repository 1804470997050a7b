// Package importer migrates a legacy SQLite workouts.db file into Postgres.
// The legacy schema predates this codebase; every row is remapped onto the
// current catalog so imported history behaves exactly like native history.
package importer

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/meltforce/reptrack/internal/models"
	"github.com/meltforce/reptrack/internal/storage"
)

// Stats tracks import progress.
type Stats struct {
	UsersImported     int
	FoldersImported   int
	TemplatesImported int
	TemplateLines     int
	ExercisesCreated  int
	WorkoutsImported  int
	SetsImported      int
	SetsSkipped       int
}

// Importer reads a legacy SQLite database and inserts its data into the DB.
type Importer struct {
	db     *storage.DB
	log    *slog.Logger
	dryRun bool
	stats  Stats
}

// New creates a new Importer. With dryRun set it parses and counts
// everything but writes nothing.
func New(db *storage.DB, log *slog.Logger, dryRun bool) *Importer {
	return &Importer{db: db, log: log, dryRun: dryRun}
}

// Import migrates every user found in the legacy database. Legacy usernames
// become logins; legacy integer IDs are remapped as rows are created.
func (imp *Importer) Import(ctx context.Context, path string) (*Stats, error) {
	start := time.Now()

	legacy, err := sql.Open("sqlite", path)
	if err != nil {
		return &imp.stats, fmt.Errorf("opening %s: %w", path, err)
	}
	defer legacy.Close()
	if err := legacy.PingContext(ctx); err != nil {
		return &imp.stats, fmt.Errorf("opening %s: %w", path, err)
	}

	exerciseIDs, err := imp.importExercises(ctx, legacy)
	if err != nil {
		return &imp.stats, fmt.Errorf("importing exercises: %w", err)
	}

	users, err := imp.legacyUsers(ctx, legacy)
	if err != nil {
		return &imp.stats, fmt.Errorf("reading users: %w", err)
	}

	for _, u := range users {
		if err := imp.importUser(ctx, legacy, u, exerciseIDs); err != nil {
			return &imp.stats, fmt.Errorf("importing user %q: %w", u.username, err)
		}
		imp.stats.UsersImported++
	}

	imp.logResult(ctx, path, time.Since(start), users)
	return &imp.stats, nil
}

type legacyUser struct {
	id       int64
	username string
}

func (imp *Importer) legacyUsers(ctx context.Context, legacy *sql.DB) ([]legacyUser, error) {
	rows, err := legacy.QueryContext(ctx, `SELECT id, username FROM user ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []legacyUser
	for rows.Next() {
		var u legacyUser
		if err := rows.Scan(&u.id, &u.username); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// importExercises maps every legacy exercise onto the current catalog,
// creating the ones the catalog lacks. Returns legacy ID to new ID.
func (imp *Importer) importExercises(ctx context.Context, legacy *sql.DB) (map[int64]int64, error) {
	rows, err := legacy.QueryContext(ctx, `SELECT id, name, category, equipment FROM exercise ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	existing := make(map[string]bool)
	if !imp.dryRun {
		catalog, err := imp.db.ListExercises(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range catalog {
			existing[e.Name+"|"+e.Category] = true
		}
	}

	ids := make(map[int64]int64)
	var next int64 = 1
	for rows.Next() {
		var (
			legacyID  int64
			name      string
			category  string
			equipment sql.NullString
		)
		if err := rows.Scan(&legacyID, &name, &category, &equipment); err != nil {
			return nil, err
		}
		if !existing[name+"|"+category] {
			imp.stats.ExercisesCreated++
		}
		if imp.dryRun {
			ids[legacyID] = next
			next++
			continue
		}
		id, err := imp.db.GetOrCreateExercise(ctx, name, category, nullableString(equipment))
		if err != nil {
			return nil, err
		}
		ids[legacyID] = id
	}
	return ids, rows.Err()
}

func (imp *Importer) importUser(ctx context.Context, legacy *sql.DB, u legacyUser, exerciseIDs map[int64]int64) error {
	var userID int64
	if !imp.dryRun {
		id, err := imp.db.GetOrCreateUser(ctx, u.username, u.username)
		if err != nil {
			return err
		}
		userID = id
	}

	templateIDs, err := imp.importTemplates(ctx, legacy, u.id, userID, exerciseIDs)
	if err != nil {
		return fmt.Errorf("templates: %w", err)
	}
	if err := imp.importWorkouts(ctx, legacy, u.id, userID, templateIDs, exerciseIDs); err != nil {
		return fmt.Errorf("workouts: %w", err)
	}
	return nil
}

// importTemplates recreates the user's folders and templates. Returns legacy
// template ID to new ID.
func (imp *Importer) importTemplates(ctx context.Context, legacy *sql.DB, legacyUserID, userID int64, exerciseIDs map[int64]int64) (map[int64]int64, error) {
	folders, err := legacy.QueryContext(ctx,
		`SELECT id, name FROM folder WHERE user_id = ? ORDER BY id`, legacyUserID)
	if err != nil {
		return nil, err
	}
	defer folders.Close()

	templateIDs := make(map[int64]int64)
	for folders.Next() {
		var (
			legacyFolderID int64
			name           string
		)
		if err := folders.Scan(&legacyFolderID, &name); err != nil {
			return nil, err
		}

		var folderID int64
		if !imp.dryRun {
			folderID, err = imp.db.CreateFolder(ctx, userID, name)
			if err != nil {
				return nil, err
			}
		}
		imp.stats.FoldersImported++

		if err := imp.importFolderTemplates(ctx, legacy, legacyFolderID, folderID, templateIDs, exerciseIDs); err != nil {
			return nil, err
		}
	}
	return templateIDs, folders.Err()
}

func (imp *Importer) importFolderTemplates(ctx context.Context, legacy *sql.DB, legacyFolderID, folderID int64, templateIDs, exerciseIDs map[int64]int64) error {
	templates, err := legacy.QueryContext(ctx,
		`SELECT id, name FROM workout_template WHERE folder_id = ? ORDER BY id`, legacyFolderID)
	if err != nil {
		return err
	}
	defer templates.Close()

	type tpl struct {
		legacyID int64
		name     string
	}
	var tpls []tpl
	for templates.Next() {
		var t tpl
		if err := templates.Scan(&t.legacyID, &t.name); err != nil {
			return err
		}
		tpls = append(tpls, t)
	}
	if err := templates.Err(); err != nil {
		return err
	}

	for _, t := range tpls {
		var templateID int64
		if !imp.dryRun {
			templateID, err = imp.db.CreateTemplate(ctx, folderID, t.name)
			if err != nil {
				return err
			}
		}
		templateIDs[t.legacyID] = templateID
		imp.stats.TemplatesImported++

		if err := imp.importTemplateLines(ctx, legacy, t.legacyID, templateID, exerciseIDs); err != nil {
			return err
		}
	}
	return nil
}

func (imp *Importer) importTemplateLines(ctx context.Context, legacy *sql.DB, legacyTemplateID, templateID int64, exerciseIDs map[int64]int64) error {
	lines, err := legacy.QueryContext(ctx,
		`SELECT exercise_id, sets, reps, weight, rpe, rir, notes
		 FROM template_exercise WHERE template_id = ? ORDER BY id`, legacyTemplateID)
	if err != nil {
		return err
	}
	defer lines.Close()

	var batch []models.TemplateExercise
	for lines.Next() {
		var (
			legacyExerciseID int64
			sets             int
			reps, notes      sql.NullString
			weight, rpe      sql.NullFloat64
			rir              sql.NullInt64
		)
		if err := lines.Scan(&legacyExerciseID, &sets, &reps, &weight, &rpe, &rir, &notes); err != nil {
			return err
		}
		exerciseID, ok := exerciseIDs[legacyExerciseID]
		if !ok {
			return fmt.Errorf("template line references unknown exercise %d", legacyExerciseID)
		}
		batch = append(batch, models.TemplateExercise{
			TemplateID: templateID,
			ExerciseID: exerciseID,
			Sets:       sets,
			Reps:       nullableString(reps),
			Weight:     nullableFloat(weight),
			RPE:        nullableFloat(rpe),
			RIR:        nullableInt(rir),
			Notes:      nullableString(notes),
		})
	}
	if err := lines.Err(); err != nil {
		return err
	}

	for _, line := range batch {
		if !imp.dryRun {
			if _, err := imp.db.AddTemplateExercise(ctx, line); err != nil {
				return err
			}
		}
		imp.stats.TemplateLines++
	}
	return nil
}

func (imp *Importer) importWorkouts(ctx context.Context, legacy *sql.DB, legacyUserID, userID int64, templateIDs, exerciseIDs map[int64]int64) error {
	workouts, err := legacy.QueryContext(ctx,
		`SELECT id, template_id, date, name, notes, completed, end_time
		 FROM workout WHERE user_id = ? ORDER BY date, id`, legacyUserID)
	if err != nil {
		return err
	}
	defer workouts.Close()

	type legacyWorkout struct {
		id         int64
		templateID sql.NullInt64
		date       string
		name       sql.NullString
		notes      sql.NullString
		completed  bool
		endTime    sql.NullString
	}
	var batch []legacyWorkout
	for workouts.Next() {
		var lw legacyWorkout
		if err := workouts.Scan(&lw.id, &lw.templateID, &lw.date, &lw.name, &lw.notes, &lw.completed, &lw.endTime); err != nil {
			return err
		}
		batch = append(batch, lw)
	}
	if err := workouts.Err(); err != nil {
		return err
	}

	for _, lw := range batch {
		startedAt, err := ParseLegacyTime(lw.date)
		if err != nil {
			return fmt.Errorf("workout %d: %w", lw.id, err)
		}
		w := models.Workout{
			UserID:    userID,
			Name:      nullableString(lw.name),
			Notes:     nullableString(lw.notes),
			StartedAt: startedAt,
			Completed: lw.completed,
		}
		if lw.endTime.Valid && lw.endTime.String != "" {
			endedAt, err := ParseLegacyTime(lw.endTime.String)
			if err != nil {
				return fmt.Errorf("workout %d end time: %w", lw.id, err)
			}
			w.EndedAt = &endedAt
		}
		if lw.templateID.Valid {
			if id, ok := templateIDs[lw.templateID.Int64]; ok && id != 0 {
				w.TemplateID = &id
			}
		}

		sets, skipped, err := imp.legacySets(ctx, legacy, lw.id, exerciseIDs)
		if err != nil {
			return fmt.Errorf("workout %d sets: %w", lw.id, err)
		}
		imp.stats.SetsSkipped += skipped

		if !imp.dryRun {
			if _, err := imp.db.CreateWorkoutWithSets(ctx, &w, sets); err != nil {
				return err
			}
		}
		imp.stats.WorkoutsImported++
		imp.stats.SetsImported += len(sets)
	}
	return nil
}

func (imp *Importer) legacySets(ctx context.Context, legacy *sql.DB, legacyWorkoutID int64, exerciseIDs map[int64]int64) ([]models.WorkoutSet, int, error) {
	rows, err := legacy.QueryContext(ctx,
		`SELECT exercise_id, weight, reps, rpe, rir, notes, completed
		 FROM workout_set WHERE workout_id = ? ORDER BY id`, legacyWorkoutID)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var (
		sets    []models.WorkoutSet
		skipped int
	)
	for rows.Next() {
		var (
			legacyExerciseID int64
			weight, rpe      sql.NullFloat64
			reps, rir        sql.NullInt64
			notes            sql.NullString
			completed        bool
		)
		if err := rows.Scan(&legacyExerciseID, &weight, &reps, &rpe, &rir, &notes, &completed); err != nil {
			return nil, 0, err
		}
		exerciseID, ok := exerciseIDs[legacyExerciseID]
		if !ok {
			imp.log.Warn("skipping set with unknown exercise", "legacy_exercise_id", legacyExerciseID)
			skipped++
			continue
		}
		sets = append(sets, models.WorkoutSet{
			ExerciseID: exerciseID,
			Weight:     nullableFloat(weight),
			Reps:       nullableInt(reps),
			RPE:        nullableFloat(rpe),
			RIR:        nullableInt(rir),
			Notes:      nullableString(notes),
			Completed:  completed,
		})
	}
	return sets, skipped, rows.Err()
}

// logResult records the import outcome, both to the logger and as an
// import_logs row for the settings page.
func (imp *Importer) logResult(ctx context.Context, path string, elapsed time.Duration, users []legacyUser) {
	imp.log.Info("import finished",
		"path", path,
		"dry_run", imp.dryRun,
		"users", imp.stats.UsersImported,
		"workouts", imp.stats.WorkoutsImported,
		"sets", imp.stats.SetsImported,
		"templates", imp.stats.TemplatesImported,
		"exercises_created", imp.stats.ExercisesCreated,
		"duration", elapsed)

	if imp.dryRun || len(users) == 0 {
		return
	}

	userID, err := imp.db.GetOrCreateUser(ctx, users[0].username, users[0].username)
	if err != nil {
		imp.log.Error("recording import log", "error", err)
		return
	}
	meta, _ := json.Marshal(map[string]any{"path": path, "users": imp.stats.UsersImported})
	durationMs := int(elapsed.Milliseconds())
	metaRaw := json.RawMessage(meta)
	entry := storage.ImportLog{
		UserID:           userID,
		Source:           "sqlite",
		Status:           "completed",
		WorkoutsCreated:  imp.stats.WorkoutsImported,
		SetsCreated:      imp.stats.SetsImported,
		TemplatesCreated: imp.stats.TemplatesImported,
		ExercisesCreated: imp.stats.ExercisesCreated,
		DurationMs:       &durationMs,
		Metadata:         &metaRaw,
	}
	if _, err := imp.db.InsertImportLog(ctx, entry); err != nil {
		imp.log.Error("recording import log", "error", err)
	}
}

// ParseLegacyTime parses the timestamp formats SQLAlchemy wrote to SQLite,
// with or without fractional seconds or a timezone offset.
func ParseLegacyTime(s string) (time.Time, error) {
	layouts := []string{
		"2006-01-02 15:04:05.999999-07:00",
		"2006-01-02 15:04:05.999999",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05.999999",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse legacy timestamp %q", s)
}

func nullableString(v sql.NullString) *string {
	if !v.Valid || v.String == "" {
		return nil
	}
	s := v.String
	return &s
}

func nullableFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullableInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}
