// Harvest cycles: every colony's farms start a fresh cycle each
// harvest_cycle_days days after the starting date.
package engine

import "log/slog"

// processHarvestReset zeroes the harvest accumulators of colonies whose
// cycle ends today. A cycle length of 0 never resets.
func (s *Simulation) processHarvestReset() {
	elapsed := s.Clock.DaysElapsed()
	if elapsed <= 0 {
		return
	}
	for _, c := range s.Colonies.All() {
		cycle := c.Config.Food.HarvestCycleDays
		if cycle <= 0 || elapsed%cycle != 0 {
			continue
		}
		for _, f := range s.colonyFarms[c.ID] {
			f.ResetHarvest()
		}
		slog.Info("harvest cycle reset", "colony", c.Name, "day", elapsed, "farms", len(s.colonyFarms[c.ID]))
	}
}
