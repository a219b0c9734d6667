package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/ogurasousui/guard-shifts/internal/platform/config"
	pg "github.com/ogurasousui/guard-shifts/internal/platform/db/postgres"
	"github.com/ogurasousui/guard-shifts/internal/platform/logging"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var (
		configPath    string
		migrationsDir string
		seedsDir      string
	)

	flagSet := pflag.NewFlagSet("migrate", pflag.ContinueOnError)
	flagSet.StringVarP(&configPath, "config", "c", "", "path to config file (defaults to CONFIG_PATH env or assets/local.yaml)")
	flagSet.StringVar(&migrationsDir, "dir", "assets/migrations", "directory containing migration files")
	flagSet.StringVar(&seedsDir, "seeds", "assets/seeds", "directory containing seed SQL files (used by the seed action)")
	flagSet.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: migrate [flags] [up|down|drop|version|seed]\n\n")
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	action := "up"
	if flagSet.NArg() > 0 {
		action = flagSet.Arg(0)
	}

	cfg, err := config.Load(effectiveConfigPath(configPath))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if action == "seed" {
		if err := applySeeds(context.Background(), cfg.Database, seedsDir, logger); err != nil {
			return fmt.Errorf("seed failed: %w", err)
		}
		logger.Info("seed completed", zap.String("dir", seedsDir))
		return nil
	}

	if err := runMigration(action, migrationsDir, cfg.Database.DSN(), logger); err != nil {
		return fmt.Errorf("migration %s failed: %w", action, err)
	}

	logger.Info("migration completed", zap.String("action", action))
	return nil
}

func effectiveConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv("CONFIG_PATH"); env != "" {
		return env
	}
	return "assets/local.yaml"
}

func runMigration(action, dir, dsn string, logger *zap.Logger) error {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolve path for %s: %w", dir, err)
	}
	absDir = filepath.ToSlash(absDir)

	m, err := migrate.New(fmt.Sprintf("file://%s", absDir), dsn)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	switch action {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return err
		}
		return nil
	case "down":
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return err
		}
		return nil
	case "drop":
		return m.Drop()
	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			if errors.Is(err, migrate.ErrNilVersion) {
				logger.Info("no migration applied")
				return nil
			}
			return err
		}
		logger.Info("migration version", zap.Uint("version", version), zap.Bool("dirty", dirty))
		return nil
	default:
		return fmt.Errorf("unsupported action %q", action)
	}
}

func applySeeds(ctx context.Context, dbCfg config.DatabaseConfig, dir string, logger *zap.Logger) error {
	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return err
	}
	sort.Strings(files)

	pool, err := pg.NewPool(ctx, dbCfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	for _, f := range files {
		b, err := os.ReadFile(f)
		if err != nil {
			return fmt.Errorf("read %s: %w", f, err)
		}
		if _, err := pool.Exec(ctx, string(b)); err != nil {
			return fmt.Errorf("apply %s: %w", f, err)
		}
		logger.Info("seed applied", zap.String("file", filepath.Base(f)))
	}
	return nil
}
