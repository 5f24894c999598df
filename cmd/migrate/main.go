package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/storyframe-backend/pkg/config"
	"github.com/angelmondragon/storyframe-backend/pkg/db"
	"github.com/angelmondragon/storyframe-backend/pkg/db/models"
	"github.com/angelmondragon/storyframe-backend/pkg/logger"
	"github.com/angelmondragon/storyframe-backend/pkg/migrate"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "migrate"})

	_ = godotenv.Load()

	cmd := flag.String("cmd", "up", "migration command: up|down|status|version|create|validate")
	dir := flag.String("dir", "", "migrations directory (default: embedded set; create and validate use "+migrate.DefaultDir+")")
	name := flag.String("name", "", "migration name (for create)")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	// create and validate only touch the filesystem
	fileDir := *dir
	if fileDir == "" {
		fileDir = migrate.DefaultDir
	}
	switch *cmd {
	case "create":
		if *name == "" {
			exitf("missing -name for create")
		}
		path, err := migrate.CreateSQLMigration(fileDir, *name)
		if err != nil {
			exitf("failed to create migration: %v", err)
		}
		fmt.Println("created migration:", path)
		return
	case "validate":
		if err := migrate.ValidateDir(fileDir); err != nil {
			exitf("migration validation failed: %v", err)
		}
		fmt.Println("migration validation passed")
		return
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":    cfg.App.Env,
		"cmd":    *cmd,
		"dir":    *dir,
		"driver": cfg.DB.Driver,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() { _ = dbClient.Close() }()

	if err := execute(ctx, cfg, dbClient, *cmd, *dir, *version); err != nil {
		logg.Error(ctx, "migration failed", err)
		_ = dbClient.Close()
		os.Exit(1)
	}
	logg.Info(ctx, "migration complete")
}

func execute(ctx context.Context, cfg *config.Config, client *db.Client, cmd, dir, version string) error {
	// the goose files are Postgres SQL; sqlite databases are shaped from the models
	if cfg.DB.IsSQLite() {
		if cmd != "up" {
			return fmt.Errorf("command %q is not supported for the sqlite driver", cmd)
		}
		return client.DB().WithContext(ctx).AutoMigrate(models.All()...)
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	fsys, err := migrate.Source(dir)
	if err != nil {
		return err
	}

	var lines []string
	switch cmd {
	case "up", "down", "status":
		lines, err = migrate.Run(ctx, sqlDB, fsys, cmd)
	case "version":
		if version == "" {
			return errors.New("missing -version for version command")
		}
		lines, err = migrate.MigrateToVersion(ctx, sqlDB, fsys, version)
	default:
		return fmt.Errorf("unknown -cmd value: %s", cmd)
	}
	for _, line := range lines {
		fmt.Println(line)
	}
	return err
}

func exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
