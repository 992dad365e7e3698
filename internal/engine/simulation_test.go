package engine

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/talgya/colonysim/internal/citizens"
	"github.com/talgya/colonysim/internal/config"
	"github.com/talgya/colonysim/internal/economy"
	"github.com/talgya/colonysim/internal/events"
)

// testSim builds a one-colony simulation starting 2050-01-01 with no
// generated population, no grain farms and a single livestock farm.
func testSim(t *testing.T, mutate func(*config.Config)) *Simulation {
	t.Helper()
	cfg := config.Default()
	cfg.Simulation.StartingDate = "2050-01-01"
	w := &cfg.Worlds[0]
	w.Population.PopulationSize = 0
	w.Food.HarvestCycleDays = 0
	w.Food.GrainFarms.Count = 0
	w.Food.LivestockFarms.Count = 1
	if mutate != nil {
		mutate(cfg)
	}
	sim, err := NewSimulation(cfg, "test-run")
	if err != nil {
		t.Fatalf("new simulation: %v", err)
	}
	return sim
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func addCitizen(t *testing.T, sim *Simulation, c *citizens.Citizen) *citizens.Citizen {
	t.Helper()
	if c.Colony == 0 {
		c.Colony = 1
	}
	if err := sim.AddCitizen(c); err != nil {
		t.Fatalf("add citizen %d: %v", c.ID, err)
	}
	return c
}

func adult(id citizens.ID) *citizens.Citizen {
	return &citizens.Citizen{ID: id, Birthday: date(2020, time.June, 1), Employable: true}
}

// day advances the clock and runs the step carrying the DayChanged.
func day(t *testing.T, sim *Simulation) []DayRecord {
	t.Helper()
	records, err := sim.AdvanceDay()
	if err != nil {
		t.Fatalf("advance day: %v", err)
	}
	if err := sim.Step(sim.LastStep + 1); err != nil {
		t.Fatalf("step: %v", err)
	}
	return records
}

func pool(t *testing.T, sim *Simulation, kind economy.ResourceKind) *economy.ResourcePool {
	t.Helper()
	p, err := sim.Ledger.Pool(1, kind)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	return p
}

// captureQueue records a copy of selected queue contents every step.
type captureQueue struct {
	steps []events.Queue
}

func (c *captureQueue) Consume(_ time.Time, q *events.Queue) {
	c.steps = append(c.steps, events.Queue{
		DayChanged:       append([]events.DayChanged(nil), q.DayChanged...),
		CitizenBirthday:  append([]events.CitizenBirthday(nil), q.CitizenBirthday...),
		FarmNeedsWorker:  append([]events.FarmNeedsWorker(nil), q.FarmNeedsWorker...),
		ResourceCreated:  append([]events.ResourceCreated(nil), q.ResourceCreated...),
		ResourceConsumed: append([]events.ResourceConsumed(nil), q.ResourceConsumed...),
	})
}

func TestNewSimulationRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Worlds[0].Population.PopulationDist.Scale = -2
	if _, err := NewSimulation(cfg, ""); !errors.Is(err, config.ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}

func TestNewSimulationBuildsFarmsAndPools(t *testing.T) {
	cfg := config.Default()
	cfg.Worlds = append(cfg.Worlds, cfg.Worlds[0])
	cfg.Worlds[1].Name = "Borealis"
	sim, err := NewSimulation(cfg, "")
	if err != nil {
		t.Fatalf("new simulation: %v", err)
	}
	if len(sim.Farms) != 18 {
		t.Fatalf("farm count: got=%d want=18", len(sim.Farms))
	}
	for i, f := range sim.Farms {
		if f.ID != economy.FarmID(i+1) {
			t.Fatalf("farm ids not ascending: %d at %d", f.ID, i)
		}
	}
	second := sim.ColonyFarms(2)
	if len(second) != 9 || second[0].ID != 10 || second[0].Kind != economy.GrainFarm || second[8].Kind != economy.LivestockFarm {
		t.Fatalf("unexpected farms for colony 2: %+v", second)
	}
	if len(sim.Ledger.All()) != 6 {
		t.Fatalf("pool count: got=%d want=6", len(sim.Ledger.All()))
	}
	c, _ := sim.Colonies.Get(1)
	if want := 6*17.4 + 3*500; math.Abs(c.LandUsed-want) > 1e-9 {
		t.Fatalf("land used: got=%v want=%v", c.LandUsed, want)
	}
}

func TestCookingBatch(t *testing.T) {
	sim := testSim(t, nil)
	capture := &captureQueue{}
	sim.AddConsumer(capture)

	pool(t, sim, economy.Carbohydrate).Amount = 600
	pool(t, sim, economy.Protein).Amount = 600

	if err := sim.Step(1); err != nil {
		t.Fatalf("step: %v", err)
	}
	carb, meat, food := pool(t, sim, economy.Carbohydrate), pool(t, sim, economy.Protein), pool(t, sim, economy.PreparedFood)
	if carb.Amount != 100 || meat.Amount != 100 || food.Amount != 500 {
		t.Fatalf("after cooking: carb=%v meat=%v food=%v", carb.Amount, meat.Amount, food.Amount)
	}
	first := capture.steps[0]
	if len(first.ResourceConsumed) != 2 || len(first.ResourceCreated) != 1 || first.ResourceCreated[0].Kind != economy.PreparedFood {
		t.Fatalf("unexpected cooking notifications: %+v", first)
	}

	if err := sim.Step(2); err != nil {
		t.Fatalf("step: %v", err)
	}
	if carb.Amount != 100 || meat.Amount != 100 || food.Amount != 500 {
		t.Fatalf("second step must not cook: carb=%v meat=%v food=%v", carb.Amount, meat.Amount, food.Amount)
	}
	if n := len(capture.steps[1].ResourceConsumed); n != 0 {
		t.Fatalf("second step emitted %d consumption notifications", n)
	}
}

func TestCookingRequiresStrictlyMoreThanBatch(t *testing.T) {
	sim := testSim(t, nil)
	pool(t, sim, economy.Carbohydrate).Amount = 500
	pool(t, sim, economy.Protein).Amount = 10000
	if err := sim.Step(1); err != nil {
		t.Fatalf("step: %v", err)
	}
	if got := pool(t, sim, economy.PreparedFood).Amount; got != 0 {
		t.Fatalf("cooked at the threshold: food=%v", got)
	}
}

func TestLaborMatchingFillsQuotaInIDOrder(t *testing.T) {
	sim := testSim(t, nil)
	capture := &captureQueue{}
	sim.AddConsumer(capture)
	for id := citizens.ID(1); id <= 6; id++ {
		addCitizen(t, sim, adult(id))
	}
	if err := sim.Step(1); err != nil {
		t.Fatalf("step: %v", err)
	}

	day(t, sim)

	requests := capture.steps[len(capture.steps)-1].FarmNeedsWorker
	if len(requests) != 4 {
		t.Fatalf("requests: got=%d want=4", len(requests))
	}
	for id := citizens.ID(1); id <= 6; id++ {
		c := sim.Citizens.Get(id)
		wantEmployed := id <= 4
		if c.Employed != wantEmployed || (c.Job != nil) != wantEmployed {
			t.Fatalf("citizen %d: employed=%v job=%+v", id, c.Employed, c.Job)
		}
		if wantEmployed && (c.Job.Farm != 1 || c.Job.Kind != economy.LivestockFarm) {
			t.Fatalf("citizen %d assigned to %+v", id, c.Job)
		}
	}

	// Fully staffed: no further requests or hires.
	day(t, sim)
	if n := len(capture.steps[len(capture.steps)-1].FarmNeedsWorker); n != 0 {
		t.Fatalf("staffed farm still requested %d workers", n)
	}
	if sim.Citizens.Get(5).Employed {
		t.Fatalf("citizen 5 hired beyond quota")
	}
}

func TestLaborMatchingWithFewerCandidates(t *testing.T) {
	sim := testSim(t, nil)
	capture := &captureQueue{}
	sim.AddConsumer(capture)
	addCitizen(t, sim, adult(1))
	addCitizen(t, sim, adult(2))
	addCitizen(t, sim, &citizens.Citizen{ID: 3, Birthday: date(2045, time.June, 1), Youngling: true})
	addCitizen(t, sim, &citizens.Citizen{ID: 4, Birthday: date(1970, time.June, 1), Retiree: true})

	day(t, sim)
	if n := len(capture.steps[len(capture.steps)-1].FarmNeedsWorker); n != 4 {
		t.Fatalf("requests: got=%d want=4", n)
	}
	employed := 0
	for _, c := range sim.Citizens.All() {
		if c.Employed {
			employed++
		}
	}
	if employed != 2 || !sim.Citizens.Get(1).Employed || !sim.Citizens.Get(2).Employed {
		t.Fatalf("expected exactly citizens 1 and 2 employed, got %d", employed)
	}

	// Remaining demand is requested again the next day.
	day(t, sim)
	if n := len(capture.steps[len(capture.steps)-1].FarmNeedsWorker); n != 2 {
		t.Fatalf("requests on second day: got=%d want=2", n)
	}
}

func TestLaborMatchingStaysInColony(t *testing.T) {
	sim := testSim(t, func(cfg *config.Config) {
		cfg.Worlds = append(cfg.Worlds, cfg.Worlds[0])
		cfg.Worlds[1].Name = "Borealis"
		cfg.Worlds[1].Food.LivestockFarms.Count = 0
	})
	addCitizen(t, sim, &citizens.Citizen{ID: 1, Colony: 2, Birthday: date(2020, time.June, 1), Employable: true})
	day(t, sim)
	if sim.Citizens.Get(1).Employed {
		t.Fatalf("citizen of colony 2 hired by colony 1's farm")
	}
}

func TestProductionNeverExceedsCapacity(t *testing.T) {
	sim := testSim(t, nil)
	for id := citizens.ID(1); id <= 4; id++ {
		addCitizen(t, sim, adult(id))
	}
	farm := sim.Farm(1)

	day(t, sim)
	if farm.Harvested != 4 {
		t.Fatalf("first day harvest: got=%v want=4", farm.Harvested)
	}
	if got := pool(t, sim, economy.Protein).Amount; got != 8000 {
		t.Fatalf("first day meat: got=%v want=8000", got)
	}

	for i := 0; i < 100; i++ {
		day(t, sim)
		if farm.Harvested > farm.Capacity {
			t.Fatalf("day %d: harvested %v exceeds cap %v", i, farm.Harvested, farm.Capacity)
		}
	}
	if farm.Harvested != farm.Capacity {
		t.Fatalf("farm should be full: harvested=%v cap=%v", farm.Harvested, farm.Capacity)
	}
	if got, want := pool(t, sim, economy.Protein).Amount, farm.Capacity*farm.Yield; got != want {
		t.Fatalf("total meat: got=%v want=%v", got, want)
	}
}

func TestHarvestCycleReset(t *testing.T) {
	sim := testSim(t, func(cfg *config.Config) { cfg.Worlds[0].Food.HarvestCycleDays = 5 })
	for id := citizens.ID(1); id <= 4; id++ {
		addCitizen(t, sim, adult(id))
	}
	farm := sim.Farm(1)
	want := []float64{4, 8, 12, 16, 4, 8}
	for i, w := range want {
		day(t, sim)
		if farm.Harvested != w {
			t.Fatalf("day %d: harvested=%v want=%v", i+1, farm.Harvested, w)
		}
	}
}

func TestRetirementFiresOnBirthdayOnly(t *testing.T) {
	sim := testSim(t, nil)
	retiring := addCitizen(t, sim, &citizens.Citizen{ID: 1, Birthday: date(1985, time.January, 5), Employable: true})
	younger := addCitizen(t, sim, &citizens.Citizen{ID: 2, Birthday: date(1986, time.January, 5), Employable: true})

	for d := 2; d <= 4; d++ {
		day(t, sim)
		if retiring.Retiree || !retiring.Employed {
			t.Fatalf("2050-01-%02d: retired early (retiree=%v employed=%v)", d, retiring.Retiree, retiring.Employed)
		}
	}

	day(t, sim) // 2050-01-05
	if !retiring.Retiree || retiring.Employed || retiring.Job != nil {
		t.Fatalf("retirement did not fire: %+v", retiring)
	}
	if younger.Retiree || !younger.Employed {
		t.Fatalf("64-year-old retired: %+v", younger)
	}

	for i := 0; i < 3; i++ {
		day(t, sim)
	}
	if retiring.Employed || !retiring.Retiree {
		t.Fatalf("retiree was rehired: %+v", retiring)
	}
}

func TestComingOfAgeThenHiredSameDay(t *testing.T) {
	sim := testSim(t, nil)
	c := addCitizen(t, sim, &citizens.Citizen{ID: 1, Birthday: date(2032, time.January, 3), Youngling: true})

	day(t, sim) // 2050-01-02
	if !c.Youngling || c.Employed {
		t.Fatalf("came of age early: %+v", c)
	}
	day(t, sim) // 2050-01-03
	if c.Youngling || !c.Employable || !c.Employed {
		t.Fatalf("coming of age and hire expected on birthday: %+v", c)
	}
}

func TestLeapDayBirthdayInCommonYear(t *testing.T) {
	sim := testSim(t, func(cfg *config.Config) { cfg.Simulation.StartingDate = "2050-02-26" })
	capture := &captureQueue{}
	sim.AddConsumer(capture)
	c := addCitizen(t, sim, &citizens.Citizen{ID: 1, Birthday: date(2032, time.February, 29), Youngling: true})

	day(t, sim) // 2050-02-27
	if !c.Youngling || len(capture.steps[len(capture.steps)-1].CitizenBirthday) != 0 {
		t.Fatalf("birthday fired early: %+v", c)
	}
	day(t, sim) // 2050-02-28
	got := capture.steps[len(capture.steps)-1].CitizenBirthday
	if len(got) != 1 || got[0].Age != 18 {
		t.Fatalf("birthday notifications on feb 28: %+v", got)
	}
	if c.Youngling || !c.Employed {
		t.Fatalf("leap day citizen did not come of age: %+v", c)
	}
	day(t, sim) // 2050-03-01
	if got := capture.steps[len(capture.steps)-1].CitizenBirthday; len(got) != 0 {
		t.Fatalf("birthday repeated on march 1: %+v", got)
	}
}

func TestBirthdayNotificationsCarryAge(t *testing.T) {
	sim := testSim(t, nil)
	capture := &captureQueue{}
	sim.AddConsumer(capture)
	addCitizen(t, sim, &citizens.Citizen{ID: 7, Birthday: date(2000, time.January, 2), Employable: true})

	day(t, sim)
	got := capture.steps[len(capture.steps)-1].CitizenBirthday
	if len(got) != 1 || got[0].Citizen != 7 || got[0].Age != 50 || got[0].Colony != 1 {
		t.Fatalf("birthday notifications: %+v", got)
	}
}

func TestQueueDrainedEveryStep(t *testing.T) {
	sim := testSim(t, nil)
	capture := &captureQueue{}
	sim.AddConsumer(capture)

	if _, err := sim.AdvanceDay(); err != nil {
		t.Fatalf("advance: %v", err)
	}
	for step := uint64(1); step <= 2; step++ {
		if err := sim.Step(step); err != nil {
			t.Fatalf("step: %v", err)
		}
		if n := sim.Queue().Len(); n != 0 {
			t.Fatalf("step %d left %d notifications", step, n)
		}
	}
	if len(capture.steps[0].DayChanged) != 1 || len(capture.steps[1].DayChanged) != 0 {
		t.Fatalf("day change delivered %d then %d times", len(capture.steps[0].DayChanged), len(capture.steps[1].DayChanged))
	}
}

func TestAggregationCountsAndFolds(t *testing.T) {
	for _, tc := range []struct {
		mode     string
		age      int
		height   float64
		children float64
	}{
		{config.AggregationPairwise, 48, 137.5, 2.5},
		{config.AggregationMean, 35, 145, 2},
	} {
		t.Run(tc.mode, func(t *testing.T) {
			sim := testSim(t, func(cfg *config.Config) { cfg.Simulation.Aggregation = tc.mode })
			female := func(n int) *citizens.Female { return &citizens.Female{ChildrenHad: n} }
			addCitizen(t, sim, &citizens.Citizen{ID: 1, Birthday: date(2040, time.January, 1), Height: 130, Youngling: true,
				Sex: citizens.SexFemale, Female: female(2)})
			addCitizen(t, sim, &citizens.Citizen{ID: 2, Birthday: date(2030, time.January, 1), Height: 170, Employable: true,
				Sex: citizens.SexFemale, Female: female(0)})
			addCitizen(t, sim, &citizens.Citizen{ID: 3, Birthday: date(2010, time.January, 1), Height: 160, Employable: true,
				Pregnant: true, Sex: citizens.SexFemale, Female: female(4)})
			addCitizen(t, sim, &citizens.Citizen{ID: 4, Birthday: date(1980, time.January, 1), Height: 120, Retiree: true})

			if err := sim.Step(1); err != nil {
				t.Fatalf("step: %v", err)
			}
			c, _ := sim.Colonies.Get(1)
			p := c.Population
			if p.Count != 4 || p.Younglings != 1 || p.WorkingPop != 1 || p.Retirees != 1 {
				t.Fatalf("counts: %+v", p)
			}
			if p.Younglings+p.WorkingPop+p.Retirees > p.Count {
				t.Fatalf("buckets exceed total: %+v", p)
			}
			if p.AverageAge != tc.age {
				t.Fatalf("average age: got=%d want=%d", p.AverageAge, tc.age)
			}
			if math.Abs(p.AverageHeight-tc.height) > 1e-9 {
				t.Fatalf("average height: got=%v want=%v", p.AverageHeight, tc.height)
			}
			if math.Abs(p.AverageChildrenPerMother-tc.children) > 1e-9 {
				t.Fatalf("children per mother: got=%v want=%v", p.AverageChildrenPerMother, tc.children)
			}
		})
	}
}

type fakeRecorder struct {
	runs    []string
	batches [][]DayRecord
}

func (f *fakeRecorder) SaveRecords(runID string, records []DayRecord) error {
	f.runs = append(f.runs, runID)
	f.batches = append(f.batches, records)
	return nil
}

func TestDailyRecords(t *testing.T) {
	sim := testSim(t, func(cfg *config.Config) { cfg.Worlds[0].Population.PopulationSize = 20 })
	rec := &fakeRecorder{}
	sim.Recorder = rec
	if err := sim.Populate(); err != nil {
		t.Fatalf("populate: %v", err)
	}
	if err := sim.Step(1); err != nil {
		t.Fatalf("step: %v", err)
	}

	first := day(t, sim)
	if len(first) != 1 {
		t.Fatalf("records: got=%d want=1", len(first))
	}
	r := first[0]
	if r.RunID != "test-run" || !r.Date.Equal(date(2050, time.January, 1)) || r.ColonyName != "Aurora" {
		t.Fatalf("record identity: %+v", r)
	}
	if r.CitizensCreated != 20 || r.TotalPop != 20 || r.MeatQuality != 1 {
		t.Fatalf("record contents: %+v", r)
	}
	if len(rec.batches) != 1 || rec.runs[0] != "test-run" {
		t.Fatalf("recorder not called once: %d", len(rec.batches))
	}

	victim := sim.Citizens.All()[0].ID
	if !sim.RemoveCitizen(victim, events.DeathOldAge) {
		t.Fatalf("remove failed")
	}
	if sim.RemoveCitizen(victim, events.DeathOldAge) {
		t.Fatalf("second remove must report false")
	}
	if err := sim.Step(sim.LastStep + 1); err != nil {
		t.Fatalf("step: %v", err)
	}

	second := day(t, sim)[0]
	if second.CitizensCreated != 0 || second.OldAgeDeaths != 1 || second.TotalPop != 19 {
		t.Fatalf("second record: %+v", second)
	}
}

func TestFirstRecordWithoutStepCountsPopulation(t *testing.T) {
	sim := testSim(t, func(cfg *config.Config) { cfg.Worlds[0].Population.PopulationSize = 12 })
	if err := sim.Populate(); err != nil {
		t.Fatalf("populate: %v", err)
	}
	records, err := sim.AdvanceDay()
	if err != nil {
		t.Fatalf("advance day: %v", err)
	}
	if len(records) != 1 || records[0].TotalPop != 12 || records[0].CitizensCreated != 12 {
		t.Fatalf("first record: %+v", records)
	}

	if err := sim.Step(sim.LastStep + 1); err != nil {
		t.Fatalf("step: %v", err)
	}
	// Citizens added between steps land in the day being closed.
	if err := sim.AddCitizen(&citizens.Citizen{ID: 500, Colony: 1, Birthday: date(2050, time.January, 2), Youngling: true}); err != nil {
		t.Fatalf("add citizen: %v", err)
	}
	records, err = sim.AdvanceDay()
	if err != nil {
		t.Fatalf("advance day: %v", err)
	}
	if records[0].TotalPop != 13 || records[0].CitizensCreated != 1 {
		t.Fatalf("second record: %+v", records[0])
	}
}

func TestRemovedWorkerIsReplaced(t *testing.T) {
	sim := testSim(t, nil)
	for id := citizens.ID(1); id <= 5; id++ {
		addCitizen(t, sim, adult(id))
	}
	day(t, sim)
	if sim.Citizens.Get(5).Employed {
		t.Fatalf("citizen 5 hired beyond quota")
	}
	sim.RemoveCitizen(2, events.DeathStarvation)
	day(t, sim)
	if !sim.Citizens.Get(5).Employed {
		t.Fatalf("vacancy was not refilled")
	}
}

func TestSpawnNewborn(t *testing.T) {
	sim := testSim(t, nil)
	mother := addCitizen(t, sim, &citizens.Citizen{ID: 1, Birthday: date(2020, time.June, 1), Employable: true,
		Sex: citizens.SexFemale, Female: &citizens.Female{}, GeneticHeight: 170, GeneticWeight: 70})
	sim.Spawner.SetNextID(2)

	baby, err := sim.SpawnNewborn(1, 0)
	if err != nil {
		t.Fatalf("spawn newborn: %v", err)
	}
	if baby.ID != 2 || !baby.Youngling || sim.Citizens.Get(2) == nil {
		t.Fatalf("newborn not registered: %+v", baby)
	}
	if mother.Female.ChildrenHad != 1 {
		t.Fatalf("birth not recorded on mother")
	}
	if _, err := sim.SpawnNewborn(99, 0); err == nil {
		t.Fatalf("unknown mother must be rejected")
	}
}

func TestUnknownFarmRequestStopsStep(t *testing.T) {
	sim := testSim(t, nil)
	addCitizen(t, sim, adult(1))
	q := sim.Queue()
	q.FarmNeedsWorker = append(q.FarmNeedsWorker, events.FarmNeedsWorker{Kind: economy.LivestockFarm, Colony: 1, Farm: 999})
	if _, err := sim.AdvanceDay(); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if err := sim.Step(1); !errors.Is(err, ErrUnknownFarm) {
		t.Fatalf("expected ErrUnknownFarm, got %v", err)
	}
}

func TestStateRestoreRoundTrip(t *testing.T) {
	mutate := func(cfg *config.Config) { cfg.Worlds[0].Population.PopulationSize = 30 }
	sim := testSim(t, mutate)
	if err := sim.Populate(); err != nil {
		t.Fatalf("populate: %v", err)
	}
	for i := 0; i < 5; i++ {
		day(t, sim)
	}
	st := sim.State()
	before := sim.Snapshot()

	restored := testSim(t, mutate)
	restored.RunID = ""
	if err := restored.Restore(st); err != nil {
		t.Fatalf("restore: %v", err)
	}
	after := restored.Snapshot()

	if after.RunID != "test-run" || !after.Date.Equal(before.Date) || after.Step != before.Step || after.Citizens != 30 {
		t.Fatalf("restored header mismatch: before=%+v after=%+v", before, after)
	}
	b, a := before.Colonies[0], after.Colonies[0]
	if a.Population != b.Population {
		t.Fatalf("population mismatch: before=%+v after=%+v", b.Population, a.Population)
	}
	for i := range b.Resources {
		if a.Resources[i] != b.Resources[i] {
			t.Fatalf("pool %d mismatch: before=%+v after=%+v", i, b.Resources[i], a.Resources[i])
		}
	}
	for i := range b.Farms {
		if a.Farms[i] != b.Farms[i] {
			t.Fatalf("farm %d mismatch: before=%+v after=%+v", i, b.Farms[i], a.Farms[i])
		}
	}
	if restored.Spawner.NextID() != 31 {
		t.Fatalf("next id: got=%d want=31", restored.Spawner.NextID())
	}
	if st.RandomDraws == 0 || restored.Spawner.Draws() != sim.Spawner.Draws() {
		t.Fatalf("random stream position: saved=%d restored=%d live=%d", st.RandomDraws, restored.Spawner.Draws(), sim.Spawner.Draws())
	}

	// The saved copy must not alias live citizens.
	st.Citizens[0].Name = "changed"
	if restored.Citizens.Get(st.Citizens[0].ID).Name == "changed" {
		t.Fatalf("restored citizens alias the saved state")
	}
}
