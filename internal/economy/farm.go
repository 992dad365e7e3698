package economy

import (
	"fmt"

	"github.com/talgya/colonysim/internal/colony"
	"github.com/talgya/colonysim/internal/config"
)

// FarmID is a unique identifier for a farm.
type FarmID = uint64

// FarmKind enumerates the farm types.
type FarmKind uint8

const (
	GrainFarm FarmKind = iota
	LivestockFarm
)

// FarmKinds lists every kind in the order the simulation processes them.
var FarmKinds = []FarmKind{GrainFarm, LivestockFarm}

func (k FarmKind) String() string {
	switch k {
	case GrainFarm:
		return "grain"
	case LivestockFarm:
		return "livestock"
	default:
		return fmt.Sprintf("farm(%d)", uint8(k))
	}
}

// Resource returns the resource a farm of this kind produces.
func (k FarmKind) Resource() ResourceKind {
	if k == LivestockFarm {
		return Protein
	}
	return Carbohydrate
}

// FarmConfig picks the config block for kind.
func FarmConfig(food config.FoodConfig, kind FarmKind) config.FarmConfig {
	if kind == LivestockFarm {
		return food.LivestockFarms
	}
	return food.GrainFarms
}

// Farm accumulates harvest up to a cap derived from its size.
type Farm struct {
	ID        FarmID    `json:"id"`
	Kind      FarmKind  `json:"kind"`
	Colony    colony.ID `json:"colony"`
	Size      float64   `json:"size"` // hectares, fixed at creation
	Harvested float64   `json:"harvested"`

	// Fixed per-kind rules copied from the colony config at creation.
	Capacity  float64 `json:"capacity"`
	DailyRate float64 `json:"daily_rate"`
	Yield     float64 `json:"yield"`
	Quota     int     `json:"quota"`
}

// NewFarm builds a farm from its kind's config block.
func NewFarm(id FarmID, kind FarmKind, colonyID colony.ID, fc config.FarmConfig) *Farm {
	return &Farm{
		ID:        id,
		Kind:      kind,
		Colony:    colonyID,
		Size:      fc.Size,
		Capacity:  fc.Capacity(),
		DailyRate: fc.DailyRate,
		Yield:     fc.Yield,
		Quota:     fc.Workers,
	}
}

// Work applies one labor-day for workers and returns the clamped harvest
// increment. Harvested never exceeds Capacity.
func (f *Farm) Work(workers int) float64 {
	increment := f.DailyRate * float64(workers)
	if room := f.Capacity - f.Harvested; increment > room {
		increment = room
	}
	if increment < 0 {
		increment = 0
	}
	f.Harvested += increment
	return increment
}

// Output converts a harvest increment into resource units.
func (f *Farm) Output(increment float64) float64 {
	return increment * f.Yield
}

// Full reports whether the farm has reached its cap for this cycle.
func (f *Farm) Full() bool {
	return f.Harvested >= f.Capacity
}

// ResetHarvest starts a new harvest cycle.
func (f *Farm) ResetHarvest() {
	f.Harvested = 0
}
