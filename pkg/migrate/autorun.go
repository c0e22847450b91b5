package migrate

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/storetrail/storetrail-backend/pkg/config"
	"github.com/storetrail/storetrail-backend/pkg/db"
	"github.com/storetrail/storetrail-backend/pkg/db/models"
	"github.com/storetrail/storetrail-backend/pkg/logger"
)

const seedStoresGlob = "*_seed_stores.sql"

// MaybeRunDev executes migrations automatically when the app is running in dev mode and
// the feature flag is enabled.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "dir": DefaultDir, "dialect": client.Dialect()})

	if cfg.DB.IsSQLite() {
		logg.Info(ctx, "bootstrapping sqlite schema (dev auto-run)")
		seeded, err := AutoMigrateSQLite(ctx, client, DefaultDir)
		if err != nil {
			return err
		}
		logg.Info(logg.WithField(ctx, "seeded_stores", seeded), "sqlite schema ready")
		return nil
	}

	sqlDB, err := client.SQL()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	logg.Info(ctx, "running Goose migrations (dev auto-run)")
	if err := Run(ctx, sqlDB, DefaultDir, "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}
	logg.Info(ctx, "Goose migrations completed")
	return nil
}

// AutoMigrateSQLite creates the schema from the gorm models and loads the store
// catalog seed when the stores table is empty. It returns the number of seeded stores.
func AutoMigrateSQLite(ctx context.Context, client *db.Client, dir string) (int64, error) {
	conn := client.DB().WithContext(ctx)
	if err := conn.AutoMigrate(
		&models.User{},
		&models.Store{},
		&models.CheckIn{},
		&models.OutboxEvent{},
		&models.OutboxDLQ{},
	); err != nil {
		return 0, fmt.Errorf("auto migrate: %w", err)
	}

	var existing int64
	if err := conn.Model(&models.Store{}).Count(&existing).Error; err != nil {
		return 0, fmt.Errorf("count stores: %w", err)
	}
	if existing > 0 {
		return 0, nil
	}

	matches, err := filepath.Glob(filepath.Join(dir, seedStoresGlob))
	if err != nil || len(matches) == 0 {
		return 0, fmt.Errorf("store seed migration not found in %q", dir)
	}
	stmts, err := upStatements(matches[0])
	if err != nil {
		return 0, err
	}
	for _, stmt := range stmts {
		if err := conn.Exec(stmt).Error; err != nil {
			return 0, fmt.Errorf("seed stores: %w", err)
		}
	}

	var seeded int64
	if err := conn.Model(&models.Store{}).Count(&seeded).Error; err != nil {
		return 0, fmt.Errorf("count seeded stores: %w", err)
	}
	return seeded, nil
}

// upStatements extracts the StatementBegin/StatementEnd blocks of a goose Up section.
func upStatements(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", path, err)
	}
	defer f.Close()

	var (
		stmts   []string
		current strings.Builder
		inUp    bool
		inStmt  bool
	)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "-- +goose Up":
			inUp = true
		case trimmed == "-- +goose Down":
			inUp = false
		case inUp && trimmed == "-- +goose StatementBegin":
			inStmt = true
			current.Reset()
		case inUp && trimmed == "-- +goose StatementEnd":
			inStmt = false
			if s := strings.TrimSpace(current.String()); s != "" {
				stmts = append(stmts, s)
			}
		case inStmt:
			current.WriteString(line)
			current.WriteByte('\n')
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %q: %w", path, err)
	}
	return stmts, nil
}
