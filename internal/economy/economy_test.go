package economy

import (
	"errors"
	"testing"

	"github.com/talgya/colonysim/internal/colony"
	"github.com/talgya/colonysim/internal/config"
)

func TestFarmWorkNeverExceedsCapacity(t *testing.T) {
	fc := config.Default().Worlds[0].Food.LivestockFarms
	f := NewFarm(1, LivestockFarm, 1, fc)
	if f.Capacity != 250 {
		t.Fatalf("capacity mismatch: got=%v want=250", f.Capacity)
	}

	total := 0.0
	for day := 0; day < 100; day++ {
		inc := f.Work(4)
		total += inc
		if f.Harvested > f.Capacity {
			t.Fatalf("day %d: harvested %v exceeds cap %v", day, f.Harvested, f.Capacity)
		}
	}
	if total != f.Capacity || !f.Full() {
		t.Fatalf("expected to fill exactly to cap, got total=%v", total)
	}
	if inc := f.Work(4); inc != 0 {
		t.Fatalf("full farm must not produce, got %v", inc)
	}
	if got := f.Output(1.5); got != 3000 {
		t.Fatalf("output mismatch: got=%v want=3000", got)
	}

	f.ResetHarvest()
	if inc := f.Work(2); inc != 2 {
		t.Fatalf("after reset: got=%v want=2", inc)
	}
}

func TestFarmWorkClampsLastIncrement(t *testing.T) {
	f := &Farm{Capacity: 5, DailyRate: 1}
	f.Work(4)
	if inc := f.Work(4); inc != 1 {
		t.Fatalf("clamped increment mismatch: got=%v want=1", inc)
	}
}

func TestFarmKindResource(t *testing.T) {
	if GrainFarm.Resource() != Carbohydrate || LivestockFarm.Resource() != Protein {
		t.Fatalf("farm kinds mapped to wrong resources")
	}
}

func TestLedgerValidate(t *testing.T) {
	reg := colony.NewRegistry(config.Default().Worlds)

	l := NewLedger()
	for _, kind := range ResourceKinds {
		if err := l.Register(NewPool(kind, 1)); err != nil {
			t.Fatalf("register %s: %v", kind, err)
		}
	}
	if err := l.Validate(reg); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := l.Register(NewPool(Protein, 1)); !errors.Is(err, ErrDuplicatePool) {
		t.Fatalf("expected ErrDuplicatePool, got %v", err)
	}

	missing := NewLedger()
	_ = missing.Register(NewPool(Carbohydrate, 1))
	_ = missing.Register(NewPool(Protein, 1))
	if err := missing.Validate(reg); !errors.Is(err, ErrMissingPool) {
		t.Fatalf("expected ErrMissingPool, got %v", err)
	}

	stray := NewLedger()
	for _, kind := range ResourceKinds {
		_ = stray.Register(NewPool(kind, 1))
	}
	_ = stray.Register(NewPool(Protein, 9))
	if err := stray.Validate(reg); !errors.Is(err, colony.ErrUnknownColony) {
		t.Fatalf("expected ErrUnknownColony, got %v", err)
	}
}

func TestStockPool(t *testing.T) {
	l := NewLedger()
	for _, kind := range ResourceKinds {
		_ = l.Register(NewPool(kind, 3))
	}
	s, err := l.Stock(3)
	if err != nil {
		t.Fatalf("stock: %v", err)
	}
	s.Pool(Protein).Amount = 12
	p, _ := l.Pool(3, Protein)
	if p.Amount != 12 {
		t.Fatalf("stock must alias ledger pools")
	}
}
