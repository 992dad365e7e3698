package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/talgya/colonysim/internal/config"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded simulation runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			jsonOut, _ := cmd.Flags().GetBool("json")
			limit, _ := cmd.Flags().GetInt("limit")

			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			if err := applyRunFlags(cmd, cfg); err != nil {
				return err
			}
			db, err := openDatabase(cfg.Storage)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			runs, err := db.Runs(limit)
			if err != nil {
				return fmt.Errorf("list runs: %w", err)
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return json.NewEncoder(out).Encode(runs)
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "no runs recorded")
				return nil
			}
			for _, r := range runs {
				desc := r.Description
				if desc == "" {
					desc = "-"
				}
				fmt.Fprintf(out, "%s  %s  %s\n", r.UUID, r.TimeCreated, desc)
			}
			return nil
		},
	}
	cmd.Flags().Int("limit", 20, "Maximum number of runs to list")
	cmd.Flags().String("db-driver", "", "Database driver: sqlite or pgx (overrides config)")
	cmd.Flags().String("db", "", "Database DSN or sqlite path (overrides config)")
	return cmd
}
