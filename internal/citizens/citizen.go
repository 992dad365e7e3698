// Package citizens provides the citizen data model, the ordered citizen
// store and the spawner that creates starting populations and newborns.
package citizens

import (
	"time"

	"github.com/talgya/colonysim/internal/calendar"
	"github.com/talgya/colonysim/internal/colony"
	"github.com/talgya/colonysim/internal/economy"
)

// MaturationDays is the window over which citizens grow linearly from the
// newborn baselines to their genetic targets (25 years).
const MaturationDays = 25 * calendar.DaysPerYear

// ID is a unique identifier for a citizen.
type ID = uint64

// Sex represents biological sex for demographic simulation.
type Sex uint8

const (
	SexMale   Sex = 0
	SexFemale Sex = 1
)

func (s Sex) String() string {
	if s == SexFemale {
		return "female"
	}
	return "male"
}

// Female carries the reproductive history of female citizens.
type Female struct {
	ChildrenHad    int        `json:"children_had"`
	LastChildBirth *time.Time `json:"last_child_birth,omitempty"`
}

// Job attaches an employed citizen to exactly one farm.
type Job struct {
	Kind economy.FarmKind `json:"kind"`
	Farm economy.FarmID   `json:"farm"`
}

// Citizen is an individual member of a colony.
type Citizen struct {
	ID       ID        `json:"id"`
	Name     string    `json:"name"`
	Birthday time.Time `json:"birthday"`
	Colony   colony.ID `json:"colony"`

	// Biology
	Sex            Sex     `json:"sex"`
	Female         *Female `json:"female,omitempty"` // set iff Sex == SexFemale
	GeneticHeight  float64 `json:"genetic_height"`   // cm, adult target
	GeneticWeight  float64 `json:"genetic_weight"`   // kg, adult target
	Height         float64 `json:"height"`
	Weight         float64 `json:"weight"`
	DailyGrowth    float64 `json:"daily_growth"`
	DailyFattening float64 `json:"daily_fattening"`

	// Lifecycle flags
	Youngling  bool `json:"youngling"`
	Employable bool `json:"employable"`
	Employed   bool `json:"employed"`
	Retiree    bool `json:"retiree"`
	Pregnant   bool `json:"pregnant"`

	Job *Job `json:"job,omitempty"`
}

// Age returns whole years since birth; false if the birthday lies after now.
func (c *Citizen) Age(now time.Time) (int, bool) {
	return calendar.YearsSince(now, c.Birthday)
}

// IsFemale reports whether the citizen carries the female variant.
func (c *Citizen) IsFemale() bool {
	return c.Sex == SexFemale && c.Female != nil
}

// Working reports whether the citizen counts toward the working population.
func (c *Citizen) Working() bool {
	return !c.Youngling && !c.Retiree && !c.Pregnant
}

// Hireable reports whether the labor market may assign the citizen to a farm.
func (c *Citizen) Hireable() bool {
	return c.Employable && !c.Employed && !c.Youngling && !c.Retiree
}

// WorksAt reports whether the citizen is attached to the given farm.
func (c *Citizen) WorksAt(farm economy.FarmID) bool {
	return c.Job != nil && c.Job.Farm == farm
}

// Hire attaches the citizen to a farm.
func (c *Citizen) Hire(kind economy.FarmKind, farm economy.FarmID) {
	c.Job = &Job{Kind: kind, Farm: farm}
	c.Employed = true
}

// ComeOfAge ends childhood and makes the citizen available for work.
func (c *Citizen) ComeOfAge() {
	c.Youngling = false
	c.Employable = true
}

// Retire drops any job and marks the citizen as a retiree.
func (c *Citizen) Retire() {
	c.Job = nil
	c.Employed = false
	c.Employable = false
	c.Youngling = false
	c.Retiree = true
}

// Grow applies one day of growth, never passing the genetic targets.
// Citizens past the maturation window do not change.
func (c *Citizen) Grow(now time.Time) {
	if calendar.DaysSince(now, c.Birthday) > MaturationDays {
		return
	}
	c.Height = approach(c.Height, c.DailyGrowth, c.GeneticHeight)
	c.Weight = approach(c.Weight, c.DailyFattening, c.GeneticWeight)
}

func approach(v, step, target float64) float64 {
	v += step
	if (step >= 0 && v > target) || (step < 0 && v < target) {
		return target
	}
	return v
}

// RecordBirth notes a child born to a female citizen on date.
func (c *Citizen) RecordBirth(date time.Time) {
	if c.Female == nil {
		return
	}
	c.Female.ChildrenHad++
	d := calendar.Date(date)
	c.Female.LastChildBirth = &d
	c.Pregnant = false
}
