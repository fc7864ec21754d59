// Command fortyfivectl is the operator tool for the fortyfive bot: it runs
// migrations, manages chat subscriptions and edits per-channel config.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pscheid92/fortyfive/internal/adapter/postgres"
	"github.com/pscheid92/fortyfive/internal/adapter/sqlite"
	"github.com/pscheid92/fortyfive/internal/domain"
	"github.com/pscheid92/fortyfive/internal/platform/config"
	"github.com/pscheid92/fortyfive/internal/platform/logging"
	"github.com/pscheid92/fortyfive/internal/platform/version"
	"github.com/urfave/cli/v2"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.App{
		Name:    "fortyfivectl",
		Usage:   "operate the fortyfive chat bot",
		Version: version.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "log-level", Value: "info", EnvVars: []string{"LOG_LEVEL"}},
			&cli.StringFlag{Name: "database-driver", Value: config.DriverPostgres, EnvVars: []string{"DATABASE_DRIVER"}},
			&cli.StringFlag{Name: "database-url", EnvVars: []string{"DATABASE_URL"}},
			&cli.StringFlag{Name: "redis-url", EnvVars: []string{"REDIS_URL"}},
		},
		Before: func(cctx *cli.Context) error {
			logging.InitLogger(cctx.String("log-level"), "text")
			return nil
		},
		Commands: []*cli.Command{
			migrateCommand,
			subscriptionsCommand,
			configCommand,
		},
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

var migrateCommand = &cli.Command{
	Name:  "migrate",
	Usage: "apply database migrations",
	Action: func(cctx *cli.Context) error {
		_, closeDB, err := openSubscriptions(cctx)
		if err != nil {
			return err
		}
		closeDB()
		slog.Info("Database schema is up to date", "driver", cctx.String("database-driver"))
		return nil
	},
}

// openSubscriptions opens the configured SQL backend, applying migrations on
// the way, and returns its subscription repository.
func openSubscriptions(cctx *cli.Context) (domain.EventSubRepository, func(), error) {
	dsn := cctx.String("database-url")
	if dsn == "" {
		return nil, nil, cli.Exit("--database-url or DATABASE_URL is required", 2)
	}

	switch driver := cctx.String("database-driver"); driver {
	case config.DriverSQLite:
		db, err := sqlite.Open(cctx.Context, dsn, nil)
		if err != nil {
			return nil, nil, err
		}
		return sqlite.NewEventSubRepo(db), func() { _ = db.Close() }, nil
	case config.DriverPostgres:
		pool, err := postgres.Connect(cctx.Context, dsn, nil)
		if err != nil {
			return nil, nil, err
		}
		if err := postgres.RunMigrationsWithLock(cctx.Context, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return postgres.NewEventSubRepo(pool), pool.Close, nil
	default:
		return nil, nil, cli.Exit(fmt.Sprintf("unknown database driver %q", driver), 2)
	}
}
