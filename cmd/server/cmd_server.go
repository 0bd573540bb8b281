package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dimaum1001/sistema-restaurante/internal/config"
	"github.com/dimaum1001/sistema-restaurante/internal/database"
	"github.com/dimaum1001/sistema-restaurante/internal/logger"
	"github.com/dimaum1001/sistema-restaurante/internal/metrics"
	"github.com/dimaum1001/sistema-restaurante/internal/server"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

// boot loads config, builds the logger and opens the database.
func boot() (*config.Config, *zap.Logger, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	log, err := logger.New(cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("logger: %w", err)
	}
	for _, w := range cfg.Warnings() {
		log.Warn(w)
	}
	db, err := database.Open(cfg.Database, log)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, log, db, nil
}

func buildApp(cfg *config.Config, log *zap.Logger, db *gorm.DB) *fiber.App {
	m := metrics.New(prometheus.NewRegistry())
	svc := server.NewServices(cfg, db, log, m, nil)
	return server.New(cfg, db, log, m, svc)
}

// restaurante serve
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Migrate the schema and start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, db, err := boot()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		if err := database.Migrate(db); err != nil {
			return err
		}

		app := buildApp(cfg, log, db)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			addr := ":" + cfg.HTTPPort
			log.Info("listening",
				zap.String("addr", addr),
				zap.String("env", cfg.AppEnv),
				zap.String("db_driver", cfg.Database.Driver),
				zap.String("report_tz", cfg.Reports.Location.String()),
			)
			errCh <- app.Listen(addr)
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
		return nil
	},
}

// restaurante route:list
var routeListCmd = &cobra.Command{
	Use:   "route:list",
	Short: "List every registered route",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		// Handlers are only registered, never invoked, so no connection is needed.
		app := buildApp(cfg, zap.NewNop(), nil)

		routes := app.GetRoutes(true)
		sort.Slice(routes, func(i, j int) bool {
			if routes[i].Path != routes[j].Path {
				return routes[i].Path < routes[j].Path
			}
			return routes[i].Method < routes[j].Method
		})

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "METHOD\tPATH")
		fmt.Fprintln(w, "------\t----")
		for _, r := range routes {
			if r.Method == fiber.MethodHead || r.Method == "USE" {
				continue
			}
			fmt.Fprintf(w, "%s\t%s\n", r.Method, r.Path)
		}
		return w.Flush()
	},
}
