package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/talgya/colonysim/internal/monitor"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Observe a running simulation and grade colony health",
		Long: `Poll the HTTP API of a running simulation and print a health grade
(HEALTHY, WATCH, WARNING, CRITICAL) for every colony.

With --once a single observation is printed and the command exits non-zero
when any colony is CRITICAL.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			url, _ := cmd.Flags().GetString("url")
			interval, _ := cmd.Flags().GetDuration("interval")
			once, _ := cmd.Flags().GetBool("once")
			jsonOut, _ := cmd.Flags().GetBool("json")
			if interval <= 0 {
				return fmt.Errorf("--interval must be positive, got %v", interval)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			observer := monitor.NewObserver(url)
			out := cmd.OutOrStdout()

			if once {
				worst, err := watchCycle(ctx, observer, out, jsonOut)
				if err != nil {
					return err
				}
				if worst == monitor.LevelCritical {
					return fmt.Errorf("colony health critical")
				}
				return nil
			}

			slog.Info("waiting for simulation API...", "url", url)
			if err := observer.WaitReady(ctx); err != nil {
				return err
			}

			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				if _, err := watchCycle(ctx, observer, out, jsonOut); err != nil {
					slog.Error("observation failed", "error", err)
				}
				select {
				case <-ticker.C:
				case <-ctx.Done():
					slog.Info("received signal, shutting down")
					return nil
				}
			}
		},
	}
	cmd.Flags().String("url", envOrDefault("COLONYSIM_API_URL", "http://localhost:8080"), "Base URL of the simulation API")
	cmd.Flags().Duration("interval", 30*time.Second, "Time between observations")
	cmd.Flags().Bool("once", false, "Observe once and exit")
	return cmd
}

// watchCycle runs one observe and triage cycle and prints the result.
func watchCycle(ctx context.Context, observer *monitor.Observer, out io.Writer, jsonOut bool) (string, error) {
	obs, err := observer.Observe(ctx)
	if err != nil {
		return "", err
	}
	health := monitor.Triage(obs)
	worst := monitor.Worst(health)

	if jsonOut {
		return worst, json.NewEncoder(out).Encode(map[string]any{
			"date":     obs.Status.Date,
			"run_id":   obs.Status.RunID,
			"worst":    worst,
			"colonies": health,
		})
	}

	fmt.Fprintf(out, "%s  run=%s  citizens=%d  worst=%s\n", obs.Status.Date, obs.Status.RunID, obs.Status.Citizens, worst)
	for _, h := range health {
		fmt.Fprintf(out, "  %-12s %-8s pop=%-6d working=%4.0f%%  food/capita=%.1f  decline=%.1f%%\n",
			h.Name, h.Level, h.Population, h.WorkingShare*100, h.FoodPerCapita, h.Decline*100)
	}
	return worst, nil
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
