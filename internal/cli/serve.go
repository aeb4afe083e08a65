package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/evcraddock/field-scheduler/internal/auth"
	"github.com/evcraddock/field-scheduler/internal/config"
	"github.com/evcraddock/field-scheduler/internal/customer"
	"github.com/evcraddock/field-scheduler/internal/logging"
	"github.com/evcraddock/field-scheduler/internal/technician"
	"github.com/evcraddock/field-scheduler/internal/telemetry"
	"github.com/evcraddock/field-scheduler/internal/visit"
	"github.com/evcraddock/field-scheduler/internal/visit/postgres"
	"github.com/evcraddock/field-scheduler/internal/web"
)

func newServeCmd() *cobra.Command {
	var (
		port       int
		configFile string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long: `Start the HTTP API server.

Settings come from --config (YAML), then FSCHED_* environment variables,
then flags. Setting database_url moves visit storage to PostgreSQL; API
keys stay in the SQLite database.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			if flagDB != "" {
				cfg.DBPath = flagDB
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg)
		},
	}

	cmd.Flags().IntVar(&port, "port", 8080, "port to listen on")
	cmd.Flags().StringVar(&configFile, "config", "", "path to a YAML config file")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	logging.Setup(cfg.DevMode)

	shutdown, err := telemetry.Setup(ctx, "fsched", version(), cfg.OTelEndpoint, cfg.OTelInsecure)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(flushCtx); err != nil {
			slog.Warn("flushing traces", "error", err)
		}
	}()

	database, err := openPath(cfg.DBPath)
	if err != nil {
		return err
	}
	defer closeDB(database)

	deps := web.Deps{
		APIKeys: auth.NewAPIKeyStore(database),
		Limiter: auth.NewFailureLimiter(cfg.APIRateLimit),
	}

	if cfg.UsePostgres() {
		pool, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()

		store := postgres.NewStore(pool)
		if err := store.Migrate(ctx); err != nil {
			return err
		}
		deps.Visits = visit.NewService(store)
		slog.Info("visit store", "backend", "postgres")
	} else {
		deps.Visits = visit.NewService(visit.NewRepository(database))
		deps.Technicians = technician.NewRepository(database)
		deps.Customers = customer.NewRepository(database)
		slog.Info("visit store", "backend", "sqlite", "path", cfg.DBPath)
	}

	fmt.Printf("Serving fsched API on http://localhost:%d\n", cfg.Port)
	return web.NewServer(deps).ListenAndServe(ctx, cfg.Port)
}
