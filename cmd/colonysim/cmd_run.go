package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/talgya/colonysim/internal/api"
	"github.com/talgya/colonysim/internal/calendar"
	"github.com/talgya/colonysim/internal/config"
	"github.com/talgya/colonysim/internal/engine"
	"github.com/talgya/colonysim/internal/metrics"
	"github.com/talgya/colonysim/internal/persistence"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the simulation",
		Long: `Run the simulation until interrupted or until --days have elapsed.

A saved world in the database is resumed unless --fresh is given. The
world state is saved every --save-every days and once more on shutdown.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			if err := applyRunFlags(cmd, cfg); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			setupLogging(cfg.Logging.Level)

			opts := runOptions{}
			opts.days, _ = cmd.Flags().GetUint64("days")
			opts.fresh, _ = cmd.Flags().GetBool("fresh")
			opts.saveEvery, _ = cmd.Flags().GetInt("save-every")
			opts.description, _ = cmd.Flags().GetString("description")

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runSimulation(ctx, cfg, opts)
		},
	}

	cmd.Flags().Int64("seed", 0, "Random seed (overrides config)")
	cmd.Flags().Uint64("days", 0, "Stop after this many simulated days (0 = run until interrupted)")
	cmd.Flags().String("db-driver", "", "Database driver: sqlite or pgx (overrides config)")
	cmd.Flags().String("db", "", "Database DSN or sqlite path (overrides config)")
	cmd.Flags().String("addr", "", "HTTP API listen address (overrides config)")
	cmd.Flags().Bool("fresh", false, "Discard any saved world and start a new run")
	cmd.Flags().Int("save-every", 30, "Save the world state every N simulated days")
	cmd.Flags().String("description", "", "Free-form description stored with the run")
	return cmd
}

type runOptions struct {
	days        uint64
	fresh       bool
	saveEvery   int
	description string
}

// applyRunFlags layers explicitly set flags over the loaded config.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("seed") {
		cfg.Simulation.Seed, _ = flags.GetInt64("seed")
	}
	if flags.Changed("db-driver") {
		cfg.Storage.Driver, _ = flags.GetString("db-driver")
	}
	if flags.Changed("db") {
		cfg.Storage.DSN, _ = flags.GetString("db")
	}
	if flags.Changed("addr") {
		cfg.API.Addr, _ = flags.GetString("addr")
		cfg.API.Enabled = cfg.API.Addr != ""
	}
	if flags.Changed("save-every") {
		if n, _ := flags.GetInt("save-every"); n < 1 {
			return fmt.Errorf("--save-every must be at least 1, got %d", n)
		}
	}
	return nil
}

func openDatabase(cfg config.StorageConfig) (*persistence.DB, error) {
	if cfg.Driver == persistence.DriverSQLite {
		if dir := filepath.Dir(cfg.DSN); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create data dir: %w", err)
			}
		}
	}
	return persistence.Open(cfg.Driver, cfg.DSN)
}

// loadOrCreate resumes the saved world or builds and registers a new run.
func loadOrCreate(db *persistence.DB, cfg *config.Config, opts runOptions) (*engine.Simulation, error) {
	if opts.fresh {
		if err := db.ClearWorldState(); err != nil {
			return nil, err
		}
	}

	if db.HasWorldState() {
		slog.Info("found saved world state, loading...")
		sim, err := engine.NewSimulation(cfg, "")
		if err != nil {
			return nil, err
		}
		if err := db.LoadWorldState(sim); err != nil {
			return nil, fmt.Errorf("load world state: %w", err)
		}
		return sim, nil
	}

	slog.Info("no saved state found, generating new colonies...")
	run, err := persistence.NewRun(cfg, opts.description)
	if err != nil {
		return nil, err
	}
	if err := db.BeginRun(run); err != nil {
		return nil, err
	}
	sim, err := engine.NewSimulation(cfg, run.UUID)
	if err != nil {
		return nil, err
	}
	if err := sim.Populate(); err != nil {
		return nil, fmt.Errorf("populate: %w", err)
	}
	if err := db.SaveWorldState(sim); err != nil {
		slog.Error("initial save failed", "error", err)
	}
	return sim, nil
}

// attachEngine wires the engine callbacks to sim. The day boundary only
// closes the day; the periodic save waits until the step that processes
// the new day has run, so a saved world never holds a half-started day.
func attachEngine(eng *engine.Engine, sim *engine.Simulation, db *persistence.DB, rec *metrics.Recorder, saveEvery int) {
	if saveEvery < 1 {
		saveEvery = 30
	}
	eng.Step = sim.LastStep

	days := 0
	eng.OnDay = func(step uint64) error {
		_, err := sim.AdvanceDay()
		return err
	}
	eng.OnStep = func(step uint64) error {
		if err := sim.Step(step); err != nil {
			return err
		}
		if step%eng.StepsPerDay != 0 {
			return nil
		}
		rec.Publish(sim.Snapshot())
		days++
		if days%saveEvery == 0 {
			if err := db.SaveWorldState(sim); err != nil {
				slog.Error("periodic save failed", "error", err)
			}
		}
		return nil
	}
}

func runSimulation(ctx context.Context, cfg *config.Config, opts runOptions) error {
	db, err := openDatabase(cfg.Storage)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	slog.Info("database opened", "driver", db.Driver())

	sim, err := loadOrCreate(db, cfg, opts)
	if err != nil {
		return err
	}
	sim.Recorder = db

	rec := metrics.NewRecorder(metrics.NamesFromRegistry(sim.Colonies))
	sim.AddConsumer(rec)
	rec.Publish(sim.Snapshot())

	eng := engine.NewEngine(cfg.Simulation.StepsPerDay, cfg.Simulation.StepInterval)
	eng.MaxDays = opts.days
	attachEngine(eng, sim, db, rec, opts.saveEvery)

	var srv *http.Server
	if cfg.API.Enabled {
		adminKey := os.Getenv("COLONYSIM_ADMIN_KEY")
		if adminKey == "" {
			slog.Warn("COLONYSIM_ADMIN_KEY not set, admin POST endpoints will be disabled")
		}
		srv = (&api.Server{
			Sim:      sim,
			Eng:      eng,
			DB:       db,
			Metrics:  rec,
			Addr:     cfg.API.Addr,
			AdminKey: adminKey,
		}).Start()
	}

	snap := sim.Snapshot()
	slog.Info("simulation starting",
		"run_id", snap.RunID,
		"date", calendar.Format(snap.Date),
		"citizens", snap.Citizens,
		"colonies", len(snap.Colonies),
		"max_days", opts.days,
	)

	runErr := eng.Run(ctx)
	if ctx.Err() != nil {
		slog.Info("received signal, shutting down")
	}

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("HTTP shutdown", "error", err)
		}
	}

	slog.Info("final save...")
	if err := db.SaveWorldState(sim); err != nil {
		slog.Error("final save failed", "error", err)
	}

	if runErr != nil {
		return fmt.Errorf("simulation stopped: %w", runErr)
	}
	slog.Info("simulation stopped, world state saved",
		"days", eng.Days(), "date", calendar.Format(sim.Snapshot().Date))
	return nil
}
