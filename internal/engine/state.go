package engine

import (
	"fmt"
	"time"

	"github.com/talgya/colonysim/internal/citizens"
	"github.com/talgya/colonysim/internal/colony"
	"github.com/talgya/colonysim/internal/economy"
	"github.com/talgya/colonysim/internal/events"
)

// ColonySnapshot is a read-only copy of one colony.
type ColonySnapshot struct {
	ID         colony.ID              `json:"id"`
	Name       string                 `json:"name"`
	LandSize   float64                `json:"land_size"`
	LandUsed   float64                `json:"land_used"`
	Government string                 `json:"government"`
	Wealth     float64                `json:"wealth"`
	Population colony.Population      `json:"population"`
	Resources  []economy.ResourcePool `json:"resources"`
	Farms      []FarmSnapshot         `json:"farms"`
}

// FarmSnapshot is a read-only copy of one farm with its current staffing.
type FarmSnapshot struct {
	economy.Farm
	Workers int `json:"workers"`
}

// Snapshot is a consistent copy of the simulation for readers.
type Snapshot struct {
	RunID    string           `json:"run_id"`
	Date     time.Time        `json:"date"`
	Step     uint64           `json:"step"`
	Days     int              `json:"days"`
	Citizens int              `json:"citizens"`
	Colonies []ColonySnapshot `json:"colonies"`
}

// Colony returns the snapshot of one colony.
func (s Snapshot) Colony(id colony.ID) (ColonySnapshot, bool) {
	for _, c := range s.Colonies {
		if c.ID == id {
			return c, true
		}
	}
	return ColonySnapshot{}, false
}

// Snapshot copies the current state under the read lock.
func (s *Simulation) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	workers := make(map[economy.FarmID]int)
	s.Citizens.Each(func(c *citizens.Citizen) {
		if c.Job != nil {
			workers[c.Job.Farm]++
		}
	})

	snap := Snapshot{
		RunID:    s.RunID,
		Date:     s.Clock.Now(),
		Step:     s.LastStep,
		Days:     s.Clock.DaysElapsed(),
		Citizens: s.Citizens.Len(),
	}
	for _, c := range s.Colonies.All() {
		cs := ColonySnapshot{
			ID:         c.ID,
			Name:       c.Name,
			LandSize:   c.LandSize,
			LandUsed:   c.LandUsed,
			Government: c.Government,
			Wealth:     c.Wealth,
			Population: c.Population,
		}
		if stock, err := s.Ledger.Stock(c.ID); err == nil {
			for _, kind := range economy.ResourceKinds {
				cs.Resources = append(cs.Resources, *stock.Pool(kind))
			}
		}
		for _, f := range s.colonyFarms[c.ID] {
			cs.Farms = append(cs.Farms, FarmSnapshot{Farm: *f, Workers: workers[f.ID]})
		}
		snap.Colonies = append(snap.Colonies, cs)
	}
	return snap
}

// WorldState is everything needed to resume a run on top of the same config.
type WorldState struct {
	RunID         string
	Date          time.Time
	Step          uint64
	NextCitizenID citizens.ID
	RandomDraws   uint64
	// PendingDay is set when the state was taken between AdvanceDay and the
	// step that processes the new day.
	PendingDay bool
	// Flows are the statistics counters of the day still open at Date.
	Flows    map[colony.ID]DailyFlows
	Citizens []citizens.Citizen
	Farms    []economy.Farm
	Pools    []economy.ResourcePool
}

// State returns a deep copy of the mutable world state.
func (s *Simulation) State() WorldState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := WorldState{
		RunID:         s.RunID,
		Date:          s.Clock.Now(),
		Step:          s.LastStep,
		NextCitizenID: s.Spawner.NextID(),
		RandomDraws:   s.Spawner.Draws(),
		PendingDay:    len(s.queue.DayChanged) > 0,
		Flows:         s.tally.All(),
		Citizens:      make([]citizens.Citizen, 0, s.Citizens.Len()),
		Farms:         make([]economy.Farm, 0, len(s.Farms)),
	}
	s.Citizens.Each(func(c *citizens.Citizen) {
		st.Citizens = append(st.Citizens, copyCitizen(c))
	})
	for _, f := range s.Farms {
		st.Farms = append(st.Farms, *f)
	}
	for _, p := range s.Ledger.All() {
		st.Pools = append(st.Pools, *p)
	}
	return st
}

// Restore replaces the mutable world state with st. Farms and pools are
// matched by identity against the ones built from the config.
func (s *Simulation) Restore(st WorldState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	store := citizens.NewStore()
	for i := range st.Citizens {
		c := copyCitizen(&st.Citizens[i])
		if !s.Colonies.Has(c.Colony) {
			return fmt.Errorf("restore citizen %d: %w: %d", c.ID, colony.ErrUnknownColony, c.Colony)
		}
		if c.Job != nil && s.farmIndex[c.Job.Farm] == nil {
			return fmt.Errorf("restore citizen %d: %w: %d", c.ID, ErrUnknownFarm, c.Job.Farm)
		}
		if err := store.Add(&c); err != nil {
			return fmt.Errorf("restore: %w", err)
		}
	}
	for _, saved := range st.Farms {
		f := s.farmIndex[saved.ID]
		if f == nil || f.Colony != saved.Colony || f.Kind != saved.Kind {
			return fmt.Errorf("restore: %w: %d", ErrUnknownFarm, saved.ID)
		}
		f.Harvested = saved.Harvested
	}
	for _, saved := range st.Pools {
		p, err := s.Ledger.Pool(saved.Colony, saved.Kind)
		if err != nil {
			return fmt.Errorf("restore: %w", err)
		}
		p.Amount = saved.Amount
		p.Quality = saved.Quality
	}

	s.Citizens = store
	s.Clock.Set(st.Date)
	s.LastStep = st.Step
	if st.RunID != "" {
		s.RunID = st.RunID
	}
	next := st.NextCitizenID
	if floor := store.MaxID() + 1; next < floor {
		next = floor
	}
	s.Spawner.SetNextID(next)
	s.Spawner.FastForward(st.RandomDraws)
	s.queue.Reset()
	if st.PendingDay {
		s.queue.DayChanged = append(s.queue.DayChanged, events.DayChanged{Date: st.Date})
	}
	s.tally.Reset()
	for id, f := range st.Flows {
		if s.Colonies.Has(id) {
			s.tally.Set(id, f)
		}
	}
	s.processAggregation()
	return nil
}

func copyCitizen(c *citizens.Citizen) citizens.Citizen {
	out := *c
	if c.Female != nil {
		f := *c.Female
		if c.Female.LastChildBirth != nil {
			d := *c.Female.LastChildBirth
			f.LastChildBirth = &d
		}
		out.Female = &f
	}
	if c.Job != nil {
		j := *c.Job
		out.Job = &j
	}
	return out
}
