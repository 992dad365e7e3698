package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/talgya/colonysim/internal/config"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load and validate the configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return json.NewEncoder(out).Encode(cfg)
			}

			fmt.Fprintf(out, "config ok: %d colonies, %d steps/day, start %s, aggregation %s\n",
				len(cfg.Worlds), cfg.Simulation.StepsPerDay, cfg.Simulation.StartingDate, cfg.Simulation.Aggregation)
			for _, w := range cfg.Worlds {
				fmt.Fprintf(out, "  %-12s pop=%d land=%.0f grain=%d livestock=%d harvest_cycle=%dd\n",
					w.Name, w.Population.PopulationSize, w.Size,
					w.Food.GrainFarms.Count, w.Food.LivestockFarms.Count, w.Food.HarvestCycleDays)
			}
			return nil
		},
	}
}
