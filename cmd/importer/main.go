// Command importer replaces the betting_events table with the rows of a CSV
// file. The bot reads that table when dataset.source is postgres.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cheggaaa/pb/v3"

	"github.com/Proton-105/strike-bot/internal/database"
	"github.com/Proton-105/strike-bot/internal/dataset"
	"github.com/Proton-105/strike-bot/internal/repository"
	"github.com/Proton-105/strike-bot/migrations"
	"github.com/Proton-105/strike-bot/pkg/config"
	"github.com/Proton-105/strike-bot/pkg/logger"
)

func main() {
	var (
		file    = flag.String("file", "", "CSV file to import (defaults to dataset.path)")
		migrate = flag.Bool("migrate", true, "apply schema migrations before importing")
		quiet   = flag.Bool("quiet", false, "hide the progress bar")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *file, *migrate, *quiet); err != nil {
		fmt.Fprintf(os.Stderr, "importer: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, file string, migrate, quiet bool) error {
	cfg, _, err := config.Load()
	if err != nil {
		return err
	}
	log, _ := logger.New(*cfg)

	if file == "" {
		file = cfg.Dataset.Path
	}

	ds, err := dataset.LoadFile(file)
	if err != nil {
		return fmt.Errorf("load %s: %w", file, err)
	}

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if migrate {
		if err := database.NewMigrator(db, log).ApplyFS(ctx, migrations.FS, "."); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
	}

	events := ds.Events()
	bar := pb.StartNew(len(events))
	if quiet {
		bar.SetWriter(io.Discard)
	}

	err = repository.NewEventRepository(db, log).Import(ctx, events, func() { bar.Increment() })
	elapsed := time.Since(bar.StartTime())
	bar.Finish()
	if err != nil {
		return err
	}

	log.Info("import finished",
		slog.String("file", file),
		slog.Int("events", len(events)),
		slog.Int("players", len(ds.PlayerNames())),
		slog.Duration("elapsed", elapsed),
	)
	return nil
}
