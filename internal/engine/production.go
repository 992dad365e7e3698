// Farm production: each day every farm applies one labor-day of harvest,
// capped by its capacity, and ships the output to the colony pool.
package engine

import (
	"github.com/talgya/colonysim/internal/economy"
	"github.com/talgya/colonysim/internal/events"
)

// processProduction works every farm of kind for one day.
func (s *Simulation) processProduction(kind economy.FarmKind) error {
	counts := s.workerCounts(kind)
	resource := kind.Resource()
	for _, f := range s.Farms {
		if f.Kind != kind {
			continue
		}
		increment := f.Work(counts[f.ID])
		if increment <= 0 {
			continue
		}
		pool, err := s.Ledger.Pool(f.Colony, resource)
		if err != nil {
			return err
		}
		amount := f.Output(increment)
		pool.Amount += amount
		s.queue.ResourceCreated = append(s.queue.ResourceCreated, events.ResourceCreated{
			Colony: f.Colony,
			Kind:   resource,
			Amount: amount,
		})
	}
	return nil
}
