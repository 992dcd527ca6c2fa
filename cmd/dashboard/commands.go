package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/dashboard/internal/config"
	"github.com/ehr/dashboard/internal/dashboard"
	"github.com/ehr/dashboard/internal/platform/db"
	"github.com/ehr/dashboard/internal/platform/export"
	"github.com/ehr/dashboard/internal/platform/middleware"
	"github.com/ehr/dashboard/internal/statsapi"
	"github.com/ehr/dashboard/migrations"
)

// runCycle loads the configuration and runs one fetch cycle for the range
// given by ini and fim.
func runCycle(ctx context.Context, ini, fim string, logger zerolog.Logger) (dashboard.ViewModel, error) {
	cfg, err := loadConfig()
	if err != nil {
		return dashboard.ViewModel{}, err
	}
	r, err := dashboard.ParseRange(ini, fim, time.Now(), cfg.DefaultRangeDays)
	if err != nil {
		return dashboard.ViewModel{}, err
	}

	dash := newDashboard(cfg, logger, newFetcher(cfg), nil)
	vm, _ := dash.Refresh(ctx, r)
	return vm, nil
}

func snapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Run one fetch cycle and print the view as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			ini, _ := cmd.Flags().GetString("ini")
			fim, _ := cmd.Flags().GetString("fim")

			logger := newLogger(os.Getenv("ENV"), cmd.ErrOrStderr())
			vm, err := runCycle(cmd.Context(), ini, fim, logger)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(vm); err != nil {
				return fmt.Errorf("encode view: %w", err)
			}
			if len(vm.Degraded) > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "degraded sections: %s\n", strings.Join(vm.Degraded, ", "))
			}
			return nil
		},
	}
	cmd.Flags().String("ini", "", "Start date (YYYY-MM-DD), defaults to the trailing window")
	cmd.Flags().String("fim", "", "End date (YYYY-MM-DD), defaults to today")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "export <section>",
		Short:     "Run one fetch cycle and write a section as a spreadsheet",
		Args:      cobra.ExactArgs(1),
		ValidArgs: dashboard.ExportNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			ex, ok := dashboard.LookupExport(args[0])
			if !ok {
				return fmt.Errorf("unknown export %q, expected one of: %s", args[0], strings.Join(dashboard.ExportNames(), ", "))
			}
			ini, _ := cmd.Flags().GetString("ini")
			fim, _ := cmd.Flags().GetString("fim")
			out, _ := cmd.Flags().GetString("out")
			if out == "" {
				out = export.FileName(ex.Sheet)
			}

			logger := newLogger(os.Getenv("ENV"), cmd.ErrOrStderr())
			vm, err := runCycle(cmd.Context(), ini, fim, logger)
			if err != nil {
				return err
			}
			if vm.IsDegraded(ex.Name) {
				fmt.Fprintf(cmd.ErrOrStderr(), "WARNING: %s could not be fetched, writing an empty sheet\n", ex.Name)
			}

			rows := export.MapRows(ex.Rows(vm), ex.Rename)
			if err := writeExport(out, ex, rows); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d row(s) to %s\n", len(rows), out)
			return nil
		},
	}
	cmd.Flags().String("ini", "", "Start date (YYYY-MM-DD)")
	cmd.Flags().String("fim", "", "End date (YYYY-MM-DD)")
	cmd.Flags().String("out", "", "Output file, defaults to <sheet>.xlsx")
	return cmd
}

func writeExport(path string, ex dashboard.Export, rows []export.Row) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := export.Write(f, ex.Sheet, rows, export.Options{Columns: ex.Columns}); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func backendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backend",
		Short: "Serve the statistics endpoints from PostgreSQL",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBackend()
		},
	}
}

// newBackendServer mounts the statistics endpoints under the API prefix.
func newBackendServer(cfg *config.Config, logger zerolog.Logger, q statsapi.Querier, dbHealth echo.HandlerFunc) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	if dbHealth != nil {
		e.GET("/health/db", dbHealth)
	}

	statsapi.NewHandler(q, cfg.DefaultRangeDays, logger).RegisterRoutes(e.Group(cfg.APIPrefix))
	return e
}

func runBackend() error {
	logger := newLogger(os.Getenv("ENV"), os.Stdout)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}
	if err := cfg.RequireDatabase(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	e := newBackendServer(cfg, logger, pool, db.HealthHandler(pool))
	return serve(e, ":"+cfg.Port, logger)
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the clinical statistics schema",
	}

	// migrate up
	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd.Context(), func(ctx context.Context, m *db.Migrator) error {
				count, err := m.Up(ctx)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) successfully.\n", count)
				return nil
			})
		},
	})

	// migrate status
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd.Context(), func(ctx context.Context, m *db.Migrator) error {
				statuses, err := m.Status(ctx)
				if err != nil {
					return fmt.Errorf("failed to get migration status: %w", err)
				}
				printStatus(cmd.OutOrStdout(), statuses)
				return nil
			})
		},
	})

	return cmd
}

func withMigrator(ctx context.Context, fn func(context.Context, *db.Migrator) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.RequireDatabase(); err != nil {
		return err
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return err
	}
	defer pool.Close()

	return fn(ctx, db.NewMigrator(pool, migrations.FS))
}

func printStatus(w io.Writer, statuses []db.MigrationStatus) {
	fmt.Fprintf(w, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
	fmt.Fprintln(w, "---------- ---------------------------------------- ---------- --------------------")
	for _, s := range statuses {
		status := "pending"
		appliedAt := ""
		if s.Applied {
			status = "applied"
			if s.AppliedAt != nil {
				appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
		}
		fmt.Fprintf(w, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
	}
}
