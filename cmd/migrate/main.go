// Command migrate applies, inspects and scaffolds goose migrations.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/storetrail/storetrail-backend/pkg/config"
	"github.com/storetrail/storetrail-backend/pkg/db"
	"github.com/storetrail/storetrail-backend/pkg/logger"
	"github.com/storetrail/storetrail-backend/pkg/migrate"
)

type options struct {
	cmd     string
	dir     string
	name    string
	version string
}

// offline commands only touch the migrations directory.
var offline = map[string]func(options) error{
	"create": func(o options) error {
		if o.name == "" {
			return errors.New("-name is required for create")
		}
		path, err := migrate.CreateSQLMigration(o.dir, o.name)
		if err == nil {
			fmt.Println("created", path)
		}
		return err
	},
	"validate": func(o options) error {
		if err := migrate.ValidateDir(o.dir); err != nil {
			return err
		}
		fmt.Println("migrations valid")
		return nil
	},
}

func main() {
	var o options
	flag.StringVar(&o.cmd, "cmd", "up", "up|down|status|version|create|validate|sqlite")
	flag.StringVar(&o.dir, "dir", migrate.DefaultDir, "goose migrations directory")
	flag.StringVar(&o.name, "name", "", "migration name for -cmd=create")
	flag.StringVar(&o.version, "version", "", "target YYYYMMDDHHMMSS for -cmd=version")
	flag.Parse()

	_ = godotenv.Load()

	if fn, ok := offline[o.cmd]; ok {
		if err := fn(o); err != nil {
			fmt.Fprintf(os.Stderr, "migrate %s: %v\n", o.cmd, err)
			os.Exit(1)
		}
		return
	}

	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.Options{ServiceName: "migrate"}).Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	logg := logger.ForService("migrate", cfg.App)
	ctx := logg.WithFields(context.Background(), map[string]any{"env": cfg.App.Env, "cmd": o.cmd, "dir": o.dir})

	if err := online(ctx, cfg, logg, o); err != nil {
		logg.Error(ctx, "migrate failed", err)
		os.Exit(1)
	}
	logg.Info(ctx, "migrate finished")
}

func online(ctx context.Context, cfg *config.Config, logg *logger.Logger, o options) (err error) {
	client, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, client.Close()) }()

	if o.cmd == "sqlite" {
		if client.Dialect() != "sqlite3" {
			return errors.New("-cmd=sqlite needs a sqlite database")
		}
		seeded, err := migrate.AutoMigrateSQLite(ctx, client, o.dir)
		if err != nil {
			return err
		}
		logg.Info(logg.WithField(ctx, "seeded_stores", seeded), "sqlite schema ready")
		return nil
	}

	var pool *sql.DB
	if pool, err = client.SQL(); err != nil {
		return err
	}
	switch o.cmd {
	case "up", "down", "status":
		return migrate.Run(ctx, pool, o.dir, o.cmd)
	case "version":
		if o.version == "" {
			return errors.New("-version is required for -cmd=version")
		}
		return migrate.MigrateToVersion(ctx, pool, o.dir, o.version)
	default:
		return fmt.Errorf("unknown -cmd %q", o.cmd)
	}
}
