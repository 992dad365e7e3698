// Daily statistics: a queue consumer tallies each day's flows per colony,
// and closeDay combines them with the population snapshot and stock levels.
package engine

import (
	"time"

	"github.com/talgya/colonysim/internal/colony"
	"github.com/talgya/colonysim/internal/economy"
	"github.com/talgya/colonysim/internal/events"
)

// DayRecord is one colony's statistics for one simulated day.
type DayRecord struct {
	RunID      string    `json:"run_id" db:"uuid"`
	Date       time.Time `json:"date" db:"date"`
	Colony     colony.ID `json:"colony" db:"colony"`
	ColonyName string    `json:"colony_name" db:"colony_name"`

	TotalPop                 int     `json:"total_pop" db:"total_pop"`
	AverageAge               int     `json:"average_age" db:"average_age"`
	Younglings               int     `json:"younglings" db:"younglings"`
	WorkingPop               int     `json:"working_pop" db:"working_pop"`
	Retirees                 int     `json:"retirees" db:"retirees"`
	AverageChildrenPerMother float64 `json:"average_children_per_mother" db:"average_children_per_mother"`

	InfantDeaths     int `json:"infant_deaths" db:"infant_deaths"`
	StarvationDeaths int `json:"starvation_deaths" db:"starvation_deaths"`
	OldAgeDeaths     int `json:"old_age_deaths" db:"old_age_death"`
	CitizensCreated  int `json:"citizens_created" db:"citizen_created"`

	MeatResources float64 `json:"meat_resources" db:"meat_resources"`
	MeatQuality   float64 `json:"meat_quality" db:"meat_quality"`
	MeatConsumed  float64 `json:"meat_consumed" db:"meat_consumed"`
	MeatProduced  float64 `json:"meat_produced" db:"meat_produced"`
	CarbResources float64 `json:"carb_resources" db:"carb_resources"`
	CarbQuality   float64 `json:"carb_quality" db:"carb_quality"`
	CarbConsumed  float64 `json:"carb_consumed" db:"carb_consumed"`
	CarbProduced  float64 `json:"carb_produced" db:"carb_produced"`
	FoodResources float64 `json:"food_resources" db:"food_resources"`
	FoodQuality   float64 `json:"food_quality" db:"food_quality"`
	FoodConsumed  float64 `json:"food_consumed" db:"food_consumed"`
	FoodProduced  float64 `json:"food_produced" db:"food_produced"`
}

// DailyFlows are the per-colony counters accumulated during one day.
type DailyFlows struct {
	Created  int                               `json:"created"`
	Deaths   map[events.DeathCause]int         `json:"deaths"`
	Produced [economy.NumResourceKinds]float64 `json:"produced"`
	Consumed [economy.NumResourceKinds]float64 `json:"consumed"`
}

// StatsTally accumulates DailyFlows per colony from the step queue.
type StatsTally struct {
	flows map[colony.ID]*DailyFlows
}

// NewStatsTally creates an empty tally.
func NewStatsTally() *StatsTally {
	return &StatsTally{flows: make(map[colony.ID]*DailyFlows)}
}

func (t *StatsTally) colony(id colony.ID) *DailyFlows {
	f, ok := t.flows[id]
	if !ok {
		f = &DailyFlows{Deaths: make(map[events.DeathCause]int)}
		t.flows[id] = f
	}
	return f
}

// Consume implements events.Consumer.
func (t *StatsTally) Consume(_ time.Time, q *events.Queue) {
	for _, e := range q.CitizenCreated {
		t.colony(e.Colony).Created++
	}
	for _, e := range q.CitizenDied {
		t.colony(e.Colony).Deaths[e.Cause]++
	}
	for _, e := range q.ResourceCreated {
		t.colony(e.Colony).Produced[e.Kind] += e.Amount
	}
	for _, e := range q.ResourceConsumed {
		t.colony(e.Colony).Consumed[e.Kind] += e.Amount
	}
}

// Flows returns the running counters of one colony.
func (t *StatsTally) Flows(id colony.ID) DailyFlows {
	if f, ok := t.flows[id]; ok {
		return *f
	}
	return DailyFlows{}
}

// All returns a copy of every colony's counters.
func (t *StatsTally) All() map[colony.ID]DailyFlows {
	out := make(map[colony.ID]DailyFlows, len(t.flows))
	for id, f := range t.flows {
		out[id] = f.clone()
	}
	return out
}

// Set replaces the counters of one colony.
func (t *StatsTally) Set(id colony.ID, f DailyFlows) {
	c := f.clone()
	t.flows[id] = &c
}

func (f DailyFlows) clone() DailyFlows {
	out := f
	out.Deaths = make(map[events.DeathCause]int, len(f.Deaths))
	for cause, n := range f.Deaths {
		out.Deaths[cause] = n
	}
	return out
}

// Reset clears every counter.
func (t *StatsTally) Reset() {
	clear(t.flows)
}

// closeDay builds the records of date for every colony and resets the tally.
func (s *Simulation) closeDay(date time.Time) ([]DayRecord, error) {
	records := make([]DayRecord, 0, s.Colonies.Len())
	for _, c := range s.Colonies.All() {
		stock, err := s.Ledger.Stock(c.ID)
		if err != nil {
			return nil, err
		}
		flows := s.tally.Flows(c.ID)
		p := c.Population
		r := DayRecord{
			RunID:                    s.RunID,
			Date:                     date,
			Colony:                   c.ID,
			ColonyName:               c.Name,
			TotalPop:                 p.Count,
			AverageAge:               p.AverageAge,
			Younglings:               p.Younglings,
			WorkingPop:               p.WorkingPop,
			Retirees:                 p.Retirees,
			AverageChildrenPerMother: p.AverageChildrenPerMother,
			CitizensCreated:          flows.Created,

			MeatResources: stock.Protein.Amount,
			MeatQuality:   stock.Protein.Quality,
			MeatConsumed:  flows.Consumed[economy.Protein],
			MeatProduced:  flows.Produced[economy.Protein],
			CarbResources: stock.Carbohydrate.Amount,
			CarbQuality:   stock.Carbohydrate.Quality,
			CarbConsumed:  flows.Consumed[economy.Carbohydrate],
			CarbProduced:  flows.Produced[economy.Carbohydrate],
			FoodResources: stock.PreparedFood.Amount,
			FoodQuality:   stock.PreparedFood.Quality,
			FoodConsumed:  flows.Consumed[economy.PreparedFood],
			FoodProduced:  flows.Produced[economy.PreparedFood],
		}
		if flows.Deaths != nil {
			r.InfantDeaths = flows.Deaths[events.DeathInfant]
			r.StarvationDeaths = flows.Deaths[events.DeathStarvation]
			r.OldAgeDeaths = flows.Deaths[events.DeathOldAge]
		}
		records = append(records, r)
	}
	s.tally.Reset()
	return records, nil
}
