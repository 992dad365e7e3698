// Labor market: per farm kind, farms short of their quota request workers
// and idle citizens of the same colony are hired first-fit in ascending ID order.
package engine

import (
	"fmt"
	"log/slog"

	"github.com/talgya/colonysim/internal/citizens"
	"github.com/talgya/colonysim/internal/colony"
	"github.com/talgya/colonysim/internal/economy"
	"github.com/talgya/colonysim/internal/events"
)

// workerCounts returns the number of citizens attached to each farm of kind.
func (s *Simulation) workerCounts(kind economy.FarmKind) map[economy.FarmID]int {
	counts := make(map[economy.FarmID]int)
	s.Citizens.Each(func(c *citizens.Citizen) {
		if c.Job != nil && c.Job.Kind == kind {
			counts[c.Job.Farm]++
		}
	})
	return counts
}

// processLaborDemand queues one FarmNeedsWorker per missing slot on every
// farm of kind, colony by colony.
func (s *Simulation) processLaborDemand(kind economy.FarmKind) {
	counts := s.workerCounts(kind)
	for _, c := range s.Colonies.All() {
		for _, f := range s.colonyFarms[c.ID] {
			if f.Kind != kind {
				continue
			}
			for missing := f.Quota - counts[f.ID]; missing > 0; missing-- {
				s.queue.FarmNeedsWorker = append(s.queue.FarmNeedsWorker, events.FarmNeedsWorker{
					Kind:   kind,
					Colony: c.ID,
					Farm:   f.ID,
				})
			}
		}
	}
}

// processLaborMatching serves the queued requests of kind. Each request
// takes the lowest-ID hireable citizen of its colony; requests that find
// nobody are dropped.
func (s *Simulation) processLaborMatching(kind economy.FarmKind) error {
	requests := s.queue.NeedsWorker(kind)
	if len(requests) == 0 {
		return nil
	}

	// Hiring only ever removes citizens from the candidate set, so a
	// per-colony cursor visits candidates in the same order a rescan would.
	candidates := make(map[colony.ID][]*citizens.Citizen)
	s.Citizens.Each(func(c *citizens.Citizen) {
		if c.Hireable() {
			candidates[c.Colony] = append(candidates[c.Colony], c)
		}
	})

	hired, unfilled := 0, 0
	for _, req := range requests {
		f := s.farmIndex[req.Farm]
		if f == nil {
			return fmt.Errorf("staffing request: %w: %d", ErrUnknownFarm, req.Farm)
		}
		if f.Colony != req.Colony {
			return fmt.Errorf("staffing request: farm %d does not belong to colony %d", req.Farm, req.Colony)
		}

		pool := candidates[req.Colony]
		for len(pool) > 0 && !pool[0].Hireable() {
			pool = pool[1:]
		}
		if len(pool) == 0 {
			candidates[req.Colony] = pool
			unfilled++
			continue
		}
		pool[0].Hire(kind, f.ID)
		candidates[req.Colony] = pool[1:]
		hired++
	}

	if hired > 0 || unfilled > 0 {
		slog.Debug("labor matched", "kind", kind, "hired", hired, "unfilled", unfilled)
	}
	return nil
}
