package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/meltforce/reptrack/internal/config"
	"github.com/meltforce/reptrack/internal/importer"
	"github.com/meltforce/reptrack/internal/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	dbPath := flag.String("path", "", "path to legacy workouts.db SQLite file (required)")
	dryRun := flag.Bool("dry-run", false, "report counts without inserting into database")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *dbPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: reptrack-import -config config.yaml -path /path/to/workouts.db [-dry-run]\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	info, err := os.Stat(*dbPath)
	if err != nil || info.IsDir() {
		log.Error("legacy database path does not exist or is a directory", "path", *dbPath)
		os.Exit(1)
	}

	ctx := context.Background()

	// Dry runs read only the legacy file, so skip the Postgres setup entirely.
	var db *storage.DB
	if *dryRun {
		log.Info("DRY RUN mode: no data will be written to the database")
	} else {
		cfg, err := config.Load(*configPath)
		if err != nil {
			log.Error("failed to load config", "error", err)
			os.Exit(1)
		}

		dsn := cfg.Database.DSN()
		if err := storage.RunMigrations(dsn, "migrations"); err != nil {
			log.Error("migration failed", "error", err)
			os.Exit(1)
		}
		log.Info("migrations applied")

		db, err = storage.New(ctx, dsn)
		if err != nil {
			log.Error("failed to connect database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		log.Info("database connected")
	}

	imp := importer.New(db, log, *dryRun)
	stats, err := imp.Import(ctx, *dbPath)
	if err != nil {
		log.Error("import failed", "error", err)
		printStats(log, stats)
		os.Exit(1)
	}

	printStats(log, stats)
	log.Info("import complete")
}

func printStats(log *slog.Logger, stats *importer.Stats) {
	log.Info("import stats",
		"users_imported", stats.UsersImported,
		"folders_imported", stats.FoldersImported,
		"templates_imported", stats.TemplatesImported,
		"template_lines", stats.TemplateLines,
		"exercises_created", stats.ExercisesCreated,
		"workouts_imported", stats.WorkoutsImported,
		"sets_imported", stats.SetsImported,
		"sets_skipped", stats.SetsSkipped,
	)
}
