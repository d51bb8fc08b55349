package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"os"

	"github.com/angelmondragon/storefront-backend/internal/shipping"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
	"github.com/joho/godotenv"
)

const usage = "migration command: up|down|status|version|create|validate|seed-shipping"

func main() {
	logg := logger.New(logger.Options{ServiceName: "migrate"})

	_ = godotenv.Load()

	cmd := flag.String("cmd", "up", usage)
	dir := flag.String("dir", "", "migrations directory (default: the set embedded in the binary; create writes to "+migrate.SourceDir+")")
	name := flag.String("name", "", "migration name (for create)")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	// create only touches the working tree and runs without config.
	if *cmd == "create" {
		target := *dir
		if target == "" {
			target = migrate.SourceDir
		}
		if *name == "" {
			exitf("missing -name for create")
		}
		path, err := migrate.CreateSQLMigration(target, *name)
		if err != nil {
			exitf("failed to create migration: %v", err)
		}
		fmt.Println("created migration:", path)
		return
	}

	fsys, err := migrate.Source(*dir)
	if err != nil {
		exitf("failed to open migrations: %v", err)
	}
	if *cmd == "validate" {
		if err := migrate.ValidateFS(fsys); err != nil {
			exitf("migration validation failed: %v", err)
		}
		fmt.Println("migration validation passed")
		return
	}

	cfg, err := config.Load()
	requireResource(context.Background(), logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env": cfg.App.Env,
		"cmd": *cmd,
		"dir": *dir,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	if err := run(ctx, dbClient, fsys, *cmd, *version); err != nil {
		logg.Error(ctx, "migrate command failed", err)
		os.Exit(1)
	}
	logg.Info(ctx, "migrate command finished")
}

func run(ctx context.Context, dbClient *db.Client, fsys fs.FS, cmd, version string) error {
	if cmd == "seed-shipping" {
		n, err := seedShippingRates(ctx, shipping.NewRepository(dbClient.DB()))
		if err != nil {
			return err
		}
		fmt.Printf("seeded %d shipping rates\n", n)
		return nil
	}

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		return fmt.Errorf("sql database: %w", err)
	}
	switch cmd {
	case "up", "down", "status":
		return migrate.Run(ctx, sqlDB, fsys, cmd, os.Stdout)
	case "version":
		if version == "" {
			return fmt.Errorf("missing -version for version command")
		}
		return migrate.MigrateToVersion(ctx, sqlDB, fsys, version, os.Stdout)
	}
	return fmt.Errorf("unknown -cmd value %q (%s)", cmd, usage)
}

// seedShippingRates writes the built-in wilaya fees as stored overrides so
// operators can edit them in place.
func seedShippingRates(ctx context.Context, repo *shipping.Repository) (int, error) {
	regions := shipping.DefaultTable().Regions()
	for _, region := range regions {
		row := &models.ShippingRate{
			Region:    region.Region,
			HomeFee:   region.HomeFee,
			OfficeFee: region.OfficeFee,
		}
		if err := repo.Upsert(ctx, row); err != nil {
			return 0, fmt.Errorf("upsert %s: %w", region.Region, err)
		}
	}
	return len(regions), nil
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}

func exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
