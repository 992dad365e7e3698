// Simulation ties together the colony systems and runs them each step.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/talgya/colonysim/internal/calendar"
	"github.com/talgya/colonysim/internal/citizens"
	"github.com/talgya/colonysim/internal/colony"
	"github.com/talgya/colonysim/internal/config"
	"github.com/talgya/colonysim/internal/economy"
	"github.com/talgya/colonysim/internal/entropy"
	"github.com/talgya/colonysim/internal/events"
)

// Spawner stream offset within the configured seed.
const spawnerSeedOffset = 300

// ErrUnknownFarm is returned when a staffing request names a farm that does not exist.
var ErrUnknownFarm = errors.New("unknown farm")

// Recorder receives the statistics of every closed day.
type Recorder interface {
	SaveRecords(runID string, records []DayRecord) error
}

// Simulation holds the complete colony state and wires systems together.
// Step and AdvanceDay mutate it under an exclusive lock; readers use
// Snapshot or State.
type Simulation struct {
	mu sync.RWMutex

	Config   *config.Config
	RunID    string
	Colonies *colony.Registry
	Citizens *citizens.Store
	Farms    []*economy.Farm // ascending ID
	Ledger   *economy.Ledger
	Clock    *calendar.Clock
	Spawner  *citizens.Spawner
	LastStep uint64

	// Recorder, when set, receives each closed day's records.
	Recorder Recorder

	farmIndex     map[economy.FarmID]*economy.Farm
	colonyFarms   map[colony.ID][]*economy.Farm
	queue         events.Queue
	consumers     []events.Consumer
	tally         *StatsTally
	meanAggregate bool
}

// NewSimulation builds the colonies, their farms and resource pools from
// cfg. Setup invariants are checked here; the population is created
// separately by Populate or restored with Restore.
func NewSimulation(cfg *config.Config, runID string) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	start, err := cfg.Simulation.StartDate()
	if err != nil {
		return nil, err
	}

	s := &Simulation{
		Config:        cfg,
		RunID:         runID,
		Colonies:      colony.NewRegistry(cfg.Worlds),
		Citizens:      citizens.NewStore(),
		Ledger:        economy.NewLedger(),
		Clock:         calendar.NewClock(start),
		Spawner:       citizens.NewSpawner(entropy.New(cfg.Simulation.Seed, spawnerSeedOffset)),
		farmIndex:     make(map[economy.FarmID]*economy.Farm),
		colonyFarms:   make(map[colony.ID][]*economy.Farm),
		meanAggregate: cfg.Simulation.Aggregation == config.AggregationMean,
	}

	var farms []*economy.Farm
	var nextFarm economy.FarmID = 1
	for _, c := range s.Colonies.All() {
		for _, kind := range economy.FarmKinds {
			fc := economy.FarmConfig(c.Config.Food, kind)
			for i := 0; i < fc.Count; i++ {
				farms = append(farms, economy.NewFarm(nextFarm, kind, c.ID, fc))
				nextFarm++
			}
		}
		for _, kind := range economy.ResourceKinds {
			if err := s.Ledger.Register(economy.NewPool(kind, c.ID)); err != nil {
				return nil, err
			}
		}
	}
	if err := s.addFarms(farms); err != nil {
		return nil, err
	}
	if err := s.Ledger.Validate(s.Colonies); err != nil {
		return nil, err
	}

	s.tally = NewStatsTally()
	s.consumers = append(s.consumers, s.tally)
	return s, nil
}

// addFarms indexes farms and charges their land to the owning colony.
func (s *Simulation) addFarms(farms []*economy.Farm) error {
	for _, f := range farms {
		c, err := s.Colonies.Get(f.Colony)
		if err != nil {
			return fmt.Errorf("farm %d: %w", f.ID, err)
		}
		if _, dup := s.farmIndex[f.ID]; dup {
			return fmt.Errorf("farm %d registered twice", f.ID)
		}
		s.Farms = append(s.Farms, f)
		s.farmIndex[f.ID] = f
		s.colonyFarms[f.Colony] = append(s.colonyFarms[f.Colony], f)
		c.LandUsed += f.Size
		if c.LandUsed > c.LandSize {
			slog.Warn("farms exceed colony land", "colony", c.Name, "land_used", c.LandUsed, "land_size", c.LandSize)
		}
	}
	return nil
}

// AddConsumer registers a consumer invoked at the end of every step.
func (s *Simulation) AddConsumer(c events.Consumer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.consumers = append(s.consumers, c)
}

// Populate spawns the starting population of every colony and queues a
// CitizenCreated notification per citizen.
func (s *Simulation) Populate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.Clock.Now()
	for _, c := range s.Colonies.All() {
		spawned, err := s.Spawner.SpawnPopulation(c, now)
		if err != nil {
			return err
		}
		for _, sp := range spawned {
			if err := s.addCitizen(sp.Citizen, sp.Age); err != nil {
				return err
			}
		}
		slog.Info("colony populated", "colony", c.Name, "citizens", len(spawned), "farms", len(s.colonyFarms[c.ID]))
	}
	s.processAggregation()
	return nil
}

// AddCitizen registers a citizen created outside the generator (births,
// immigration) and queues CitizenCreated.
func (s *Simulation) AddCitizen(c *citizens.Citizen) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	age, _ := c.Age(s.Clock.Now())
	return s.addCitizen(c, age)
}

func (s *Simulation) addCitizen(c *citizens.Citizen, age int) error {
	if !s.Colonies.Has(c.Colony) {
		return fmt.Errorf("citizen %d: %w: %d", c.ID, colony.ErrUnknownColony, c.Colony)
	}
	if err := s.Citizens.Add(c); err != nil {
		return err
	}
	s.queue.CitizenCreated = append(s.queue.CitizenCreated, events.CitizenCreated{
		Citizen: c.ID,
		Colony:  c.Colony,
		Age:     age,
	})
	return nil
}

// SpawnNewborn creates and registers a child of mother (and father, if known).
func (s *Simulation) SpawnNewborn(motherID, fatherID citizens.ID) (*citizens.Citizen, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mother := s.Citizens.Get(motherID)
	if mother == nil || !mother.IsFemale() {
		return nil, fmt.Errorf("citizen %d cannot be a mother", motherID)
	}
	col, err := s.Colonies.Get(mother.Colony)
	if err != nil {
		return nil, err
	}
	baby := s.Spawner.SpawnNewborn(col, s.Clock.Now(), mother, s.Citizens.Get(fatherID))
	if err := s.addCitizen(baby, 0); err != nil {
		return nil, err
	}
	return baby, nil
}

// RemoveCitizen deletes a citizen and queues CitizenDied. Removing an
// unknown citizen is a no-op that returns false.
func (s *Simulation) RemoveCitizen(id citizens.ID, cause events.DeathCause) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.Citizens.Remove(id)
	if c == nil {
		return false
	}
	s.queue.CitizenDied = append(s.queue.CitizenDied, events.CitizenDied{
		Citizen: c.ID,
		Colony:  c.Colony,
		Cause:   cause,
	})
	slog.Debug("citizen died", "citizen", c.Name, "colony", c.Colony, "cause", cause)
	return true
}

// AdvanceDay closes the current day's statistics, advances the clock and
// queues DayChanged. The closed records are returned and handed to the
// Recorder, if any.
func (s *Simulation) AdvanceDay() ([]DayRecord, error) {
	s.mu.Lock()
	closed := s.Clock.Now()
	s.deliverPending(closed)
	records, err := s.closeDay(closed)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	date := s.Clock.Advance()
	s.queue.DayChanged = append(s.queue.DayChanged, events.DayChanged{Date: date})
	s.logDailyReport(closed, records)
	recorder, runID := s.Recorder, s.RunID
	s.mu.Unlock()

	if recorder != nil {
		if err := recorder.SaveRecords(runID, records); err != nil {
			return records, fmt.Errorf("record %s: %w", calendar.Format(closed), err)
		}
	}
	return records, nil
}

// deliverPending hands citizens created or removed since the last step to
// the consumers, so they count toward the day in which they happened.
// Caller holds mu.
func (s *Simulation) deliverPending(date time.Time) {
	if len(s.queue.CitizenCreated) == 0 && len(s.queue.CitizenDied) == 0 {
		return
	}
	pending := events.Queue{
		CitizenCreated: s.queue.CitizenCreated,
		CitizenDied:    s.queue.CitizenDied,
	}
	for _, c := range s.consumers {
		c.Consume(date, &pending)
	}
	s.queue.CitizenCreated = s.queue.CitizenCreated[:0]
	s.queue.CitizenDied = s.queue.CitizenDied[:0]
	s.processAggregation()
}

// Step runs one simulation step in the fixed system order:
// day-gated systems (when a DayChanged is queued), cooking, aggregation,
// consumers, then the queue is drained.
func (s *Simulation) Step(step uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastStep = step

	if date, ok := s.queue.NewDay(); ok {
		if err := s.processDay(date); err != nil {
			return err
		}
	}
	if err := s.processCooking(); err != nil {
		return err
	}
	s.processAggregation()

	now := s.Clock.Now()
	for _, c := range s.consumers {
		c.Consume(now, &s.queue)
	}
	s.queue.Reset()
	return nil
}

// processDay runs the systems gated on a day change.
func (s *Simulation) processDay(date time.Time) error {
	s.processBirthdays(date)
	s.processComingOfAge()
	s.processRetirement()
	s.processGrowth(date)
	s.processHarvestReset()
	for _, kind := range economy.FarmKinds {
		s.processLaborDemand(kind)
	}
	for _, kind := range economy.FarmKinds {
		if err := s.processLaborMatching(kind); err != nil {
			return err
		}
	}
	for _, kind := range economy.FarmKinds {
		if err := s.processProduction(kind); err != nil {
			return err
		}
	}
	return nil
}

// Farm returns the farm with id, or nil.
func (s *Simulation) Farm(id economy.FarmID) *economy.Farm {
	return s.farmIndex[id]
}

// ColonyFarms returns the farms of one colony in ascending ID order.
func (s *Simulation) ColonyFarms(id colony.ID) []*economy.Farm {
	return s.colonyFarms[id]
}

// Queue exposes the pending notifications. Only valid between steps.
func (s *Simulation) Queue() *events.Queue {
	return &s.queue
}

func (s *Simulation) logDailyReport(date time.Time, records []DayRecord) {
	for _, r := range records {
		slog.Info("daily report",
			"date", calendar.Format(date),
			"colony", r.ColonyName,
			"population", r.TotalPop,
			"younglings", r.Younglings,
			"working", r.WorkingPop,
			"retirees", r.Retirees,
			"carb", fmt.Sprintf("%.0f", r.CarbResources),
			"meat", fmt.Sprintf("%.0f", r.MeatResources),
			"food", fmt.Sprintf("%.0f", r.FoodResources),
		)
	}
}
