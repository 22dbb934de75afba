package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/timgst1/policyd/internal/admin"
	"github.com/timgst1/policyd/internal/db"
	"github.com/timgst1/policyd/internal/observability"
	"github.com/timgst1/policyd/internal/storage/sqlite"
)

func runProvision(args []string) error {
	fs := pflag.NewFlagSet("provision", pflag.ContinueOnError)

	file := fs.String("file", "", "fixture YAML to provision [required]")
	dbPath := fs.String("db", getenvDefault("SQLITE_PATH", "./data/policyd.db"), "path to sqlite db file")
	dryRun := fs.Bool("dry-run", false, "only report what would be created")
	logLevel := fs.String("log-level", getenvDefault("LOG_LEVEL", "info"), "debug, info, warn or error")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return fmt.Errorf("--file is required")
	}

	log, err := observability.NewLogger(*logLevel, "text", os.Stderr)
	if err != nil {
		return err
	}

	fx, err := admin.LoadFixtures(*file)
	if err != nil {
		return err
	}

	sqlDB, err := sqlite.Open(*dbPath)
	if err != nil {
		return err
	}
	defer sqlDB.Close()
	if err := sqlite.Migrate(sqlDB); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	res, err := admin.Provision(ctx, db.New(sqlDB, db.WithLogger(log)), fx, admin.ProvisionOptions{
		DryRun: *dryRun,
		Logger: log,
	})
	if err != nil {
		return err
	}

	if *dryRun {
		fmt.Printf("dry-run: would create %d entries, %d already exist\n", res.Created, res.Reused)
		return nil
	}
	fmt.Printf("provision complete: created=%d existing=%d\n", res.Created, res.Reused)
	return nil
}

func getenvDefault(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
