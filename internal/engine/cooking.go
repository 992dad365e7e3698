// Cooking: carbohydrate and protein are converted into prepared food in
// fixed batches, at most one batch per colony per step.
package engine

import (
	"log/slog"

	"github.com/talgya/colonysim/internal/economy"
	"github.com/talgya/colonysim/internal/events"
)

// cookingBatchBase is multiplied by the colony's cooking multiplier to get
// the batch size.
const cookingBatchBase = 100.0

// processCooking runs one cooking batch in every colony whose carbohydrate
// and protein stocks both strictly exceed the batch size.
func (s *Simulation) processCooking() error {
	for _, c := range s.Colonies.All() {
		stock, err := s.Ledger.Stock(c.ID)
		if err != nil {
			return err
		}
		batch := cookingBatchBase * c.Config.Food.CookingMultiplier
		if stock.Carbohydrate.Amount <= batch || stock.Protein.Amount <= batch {
			continue
		}

		stock.Carbohydrate.Amount -= batch
		stock.Protein.Amount -= batch
		stock.PreparedFood.Amount += batch

		s.queue.ResourceConsumed = append(s.queue.ResourceConsumed,
			events.ResourceConsumed{Colony: c.ID, Kind: economy.Carbohydrate, Amount: batch},
			events.ResourceConsumed{Colony: c.ID, Kind: economy.Protein, Amount: batch},
		)
		s.queue.ResourceCreated = append(s.queue.ResourceCreated,
			events.ResourceCreated{Colony: c.ID, Kind: economy.PreparedFood, Amount: batch},
		)
		slog.Debug("food cooked", "colony", c.Name, "amount", batch)
	}
	return nil
}
