// Command colonysim runs the colony population and food economy simulation.
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var version = "0.1.0-dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "colonysim",
		Short: "Colony population and food economy simulation",
		Long: `colonysim simulates colonies of citizens who age, come of age, work
grain and livestock farms and retire, while their harvest is cooked into food.

Daily per-colony statistics are written to sqlite or Postgres and exposed
over a small HTTP API with Prometheus metrics.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("config", "", "YAML config file layered over the built-in defaults")
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(),
		newValidateCmd(),
		newRunsCmd(),
		newWatchCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{"version": version})
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "colonysim version %s\n", version)
			}
		},
	}
}

// setupLogging installs the default slog text logger at the given level.
func setupLogging(level string) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(level),
	}))
	slog.SetDefault(logger)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
