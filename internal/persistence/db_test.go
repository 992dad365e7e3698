package persistence

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/talgya/colonysim/internal/config"
	"github.com/talgya/colonysim/internal/engine"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(DriverSQLite, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func smallConfig() *config.Config {
	cfg := config.Default()
	cfg.Worlds[0].Population.PopulationSize = 40
	return cfg
}

func TestMetaRoundTrip(t *testing.T) {
	db := openTestDB(t)
	if db.HasWorldState() {
		t.Fatalf("fresh database reports saved state")
	}
	if err := db.SaveMeta("k", "one"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := db.SaveMeta("k", "two"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, err := db.GetMeta("k")
	if err != nil || got != "two" {
		t.Fatalf("get meta: got=%q err=%v", got, err)
	}
}

func TestRuns(t *testing.T) {
	db := openTestDB(t)
	run, err := NewRun(smallConfig(), "unit test")
	if err != nil {
		t.Fatalf("new run: %v", err)
	}
	if len(run.UUID) != 36 {
		t.Fatalf("run id is not a uuid: %q", run.UUID)
	}
	var worlds []config.WorldConfig
	if err := json.Unmarshal([]byte(run.WorldsConfig), &worlds); err != nil || len(worlds) != 1 {
		t.Fatalf("worlds config not serialized: %v", err)
	}
	if err := db.BeginRun(run); err != nil {
		t.Fatalf("begin run: %v", err)
	}
	got, err := db.GetRun(run.UUID)
	if err != nil || got != run {
		t.Fatalf("get run: got=%+v err=%v", got, err)
	}
	runs, err := db.Runs(5)
	if err != nil || len(runs) != 1 {
		t.Fatalf("runs: got=%d err=%v", len(runs), err)
	}
}

func TestSaveRecordsAndHistory(t *testing.T) {
	db := openTestDB(t)
	start := time.Date(2050, time.January, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		recs := []engine.DayRecord{
			{Date: start.AddDate(0, 0, i), Colony: 1, ColonyName: "Aurora", TotalPop: 100 + i, MeatQuality: 1, OldAgeDeaths: i},
			{Date: start.AddDate(0, 0, i), Colony: 2, ColonyName: "Borealis", TotalPop: 50},
		}
		if err := db.SaveRecords("run-a", recs); err != nil {
			t.Fatalf("save day %d: %v", i, err)
		}
	}
	if err := db.SaveRecords("run-b", []engine.DayRecord{{Date: start, Colony: 1, TotalPop: 999}}); err != nil {
		t.Fatalf("save other run: %v", err)
	}

	hist, err := db.History("run-a", 1, 3)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(hist) != 3 {
		t.Fatalf("history length: got=%d want=3", len(hist))
	}
	for i, r := range hist {
		wantDate := start.AddDate(0, 0, 2+i)
		if !r.Date.Equal(wantDate) || r.TotalPop != 102+i || r.OldAgeDeaths != 2+i || r.RunID != "run-a" {
			t.Fatalf("history[%d] = %+v", i, r)
		}
	}

	// Closing a day again replaces the stored row.
	if err := db.SaveRecords("run-a", []engine.DayRecord{{Date: start.AddDate(0, 0, 4), Colony: 1, TotalPop: 7}}); err != nil {
		t.Fatalf("resave day: %v", err)
	}
	hist, err = db.History("run-a", 1, 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(hist) != 5 || hist[4].TotalPop != 7 {
		t.Fatalf("resaved day not replaced: len=%d last=%+v", len(hist), hist[len(hist)-1])
	}
}

func TestResumeFromSaveBetweenDayAndStep(t *testing.T) {
	db := openTestDB(t)
	cfg := smallConfig()

	sim, err := engine.NewSimulation(cfg, "run-r")
	if err != nil {
		t.Fatalf("new simulation: %v", err)
	}
	sim.Recorder = db
	if err := sim.Populate(); err != nil {
		t.Fatalf("populate: %v", err)
	}
	if _, err := sim.AdvanceDay(); err != nil {
		t.Fatalf("advance: %v", err)
	}
	// Saved while the new day is still waiting for its step.
	if err := db.SaveWorldState(sim); err != nil {
		t.Fatalf("save world: %v", err)
	}
	var step uint64 = 1
	if err := sim.Step(step); err != nil {
		t.Fatalf("step: %v", err)
	}
	for d := 0; d < 2; d++ {
		if _, err := sim.AdvanceDay(); err != nil {
			t.Fatalf("advance: %v", err)
		}
		step++
		if err := sim.Step(step); err != nil {
			t.Fatalf("step: %v", err)
		}
	}
	uninterrupted := sim.Snapshot().Colonies[0]

	restored, err := engine.NewSimulation(cfg, "")
	if err != nil {
		t.Fatalf("new simulation: %v", err)
	}
	restored.Recorder = db
	if err := db.LoadWorldState(restored); err != nil {
		t.Fatalf("load world: %v", err)
	}
	if _, ok := restored.Queue().NewDay(); !ok {
		t.Fatalf("pending day change lost on restore")
	}
	step = 1
	if err := restored.Step(step); err != nil {
		t.Fatalf("step after restore: %v", err)
	}
	for d := 0; d < 2; d++ {
		if _, err := restored.AdvanceDay(); err != nil {
			t.Fatalf("advance after restore: %v", err)
		}
		step++
		if err := restored.Step(step); err != nil {
			t.Fatalf("step after restore: %v", err)
		}
	}

	resumed := restored.Snapshot().Colonies[0]
	if resumed.Population != uninterrupted.Population {
		t.Fatalf("population diverged: got=%+v want=%+v", resumed.Population, uninterrupted.Population)
	}
	for i := range uninterrupted.Farms {
		if resumed.Farms[i] != uninterrupted.Farms[i] {
			t.Fatalf("farm %d diverged: got=%+v want=%+v", i, resumed.Farms[i], uninterrupted.Farms[i])
		}
	}
	hist, err := db.History("run-r", 1, 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(hist) != 3 {
		t.Fatalf("history length: got=%d want=3", len(hist))
	}
}

func TestWorldStateRoundTrip(t *testing.T) {
	db := openTestDB(t)
	cfg := smallConfig()

	sim, err := engine.NewSimulation(cfg, "run-x")
	if err != nil {
		t.Fatalf("new simulation: %v", err)
	}
	if err := sim.Populate(); err != nil {
		t.Fatalf("populate: %v", err)
	}
	var step uint64
	for d := 0; d < 3; d++ {
		if _, err := sim.AdvanceDay(); err != nil {
			t.Fatalf("advance: %v", err)
		}
		step++
		if err := sim.Step(step); err != nil {
			t.Fatalf("step: %v", err)
		}
	}

	if err := db.SaveWorldState(sim); err != nil {
		t.Fatalf("save world: %v", err)
	}
	if !db.HasWorldState() {
		t.Fatalf("saved state not detected")
	}

	restored, err := engine.NewSimulation(cfg, "")
	if err != nil {
		t.Fatalf("new simulation: %v", err)
	}
	if err := db.LoadWorldState(restored); err != nil {
		t.Fatalf("load world: %v", err)
	}

	before, after := sim.Snapshot(), restored.Snapshot()
	if after.RunID != "run-x" || after.Citizens != before.Citizens || !after.Date.Equal(before.Date) || after.Step != 3 {
		t.Fatalf("restored header: before=%+v after=%+v", before, after)
	}
	if after.Colonies[0].Population != before.Colonies[0].Population {
		t.Fatalf("population mismatch: before=%+v after=%+v", before.Colonies[0].Population, after.Colonies[0].Population)
	}
	for i, f := range before.Colonies[0].Farms {
		if after.Colonies[0].Farms[i] != f {
			t.Fatalf("farm %d mismatch: before=%+v after=%+v", i, f, after.Colonies[0].Farms[i])
		}
	}

	if err := db.ClearWorldState(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	fresh, _ := engine.NewSimulation(cfg, "")
	if err := db.LoadWorldState(fresh); !errors.Is(err, ErrNoWorldState) {
		t.Fatalf("expected ErrNoWorldState, got %v", err)
	}
}
