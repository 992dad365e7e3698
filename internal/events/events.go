// Package events provides the per-step notification queue shared by the
// simulation subsystems and their consumers. Every notification lives for
// exactly one step: the simulation drains the queue after the last consumer ran.
package events

import (
	"time"

	"github.com/talgya/colonysim/internal/citizens"
	"github.com/talgya/colonysim/internal/colony"
	"github.com/talgya/colonysim/internal/economy"
)

// DeathCause classifies a CitizenDied notification.
type DeathCause uint8

const (
	DeathInfant DeathCause = iota
	DeathStarvation
	DeathOldAge
)

func (c DeathCause) String() string {
	switch c {
	case DeathInfant:
		return "infant"
	case DeathStarvation:
		return "starvation"
	case DeathOldAge:
		return "old_age"
	default:
		return "unknown"
	}
}

// DayChanged is pushed once when the simulated date advances.
type DayChanged struct {
	Date time.Time
}

// CitizenCreated announces a citizen added to a colony, with its age in years.
type CitizenCreated struct {
	Citizen citizens.ID
	Colony  colony.ID
	Age     int
}

// CitizenBirthday announces a citizen whose birthday is today.
type CitizenBirthday struct {
	Citizen citizens.ID
	Colony  colony.ID
	Age     int
}

// FarmNeedsWorker is one missing staffing slot on a farm.
type FarmNeedsWorker struct {
	Kind   economy.FarmKind
	Colony colony.ID
	Farm   economy.FarmID
}

// ResourceCreated records resource units added to a colony pool.
type ResourceCreated struct {
	Colony colony.ID
	Kind   economy.ResourceKind
	Amount float64
}

// ResourceConsumed records resource units taken from a colony pool.
type ResourceConsumed struct {
	Colony colony.ID
	Kind   economy.ResourceKind
	Amount float64
}

// CitizenDied announces a citizen removed from the simulation.
type CitizenDied struct {
	Citizen citizens.ID
	Colony  colony.ID
	Cause   DeathCause
}

// Queue holds the notifications produced during one step.
type Queue struct {
	DayChanged       []DayChanged
	CitizenCreated   []CitizenCreated
	CitizenBirthday  []CitizenBirthday
	FarmNeedsWorker  []FarmNeedsWorker
	ResourceCreated  []ResourceCreated
	ResourceConsumed []ResourceConsumed
	CitizenDied      []CitizenDied
}

// NewDay reports whether a day change was queued this step, and its date.
func (q *Queue) NewDay() (time.Time, bool) {
	if len(q.DayChanged) == 0 {
		return time.Time{}, false
	}
	return q.DayChanged[len(q.DayChanged)-1].Date, true
}

// NeedsWorker returns the queued staffing requests for one farm kind, in
// the order they were pushed.
func (q *Queue) NeedsWorker(kind economy.FarmKind) []FarmNeedsWorker {
	var out []FarmNeedsWorker
	for _, n := range q.FarmNeedsWorker {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

// Len returns the total number of queued notifications.
func (q *Queue) Len() int {
	return len(q.DayChanged) + len(q.CitizenCreated) + len(q.CitizenBirthday) +
		len(q.FarmNeedsWorker) + len(q.ResourceCreated) + len(q.ResourceConsumed) +
		len(q.CitizenDied)
}

// Reset drains every notification, keeping the backing arrays.
func (q *Queue) Reset() {
	q.DayChanged = q.DayChanged[:0]
	q.CitizenCreated = q.CitizenCreated[:0]
	q.CitizenBirthday = q.CitizenBirthday[:0]
	q.FarmNeedsWorker = q.FarmNeedsWorker[:0]
	q.ResourceCreated = q.ResourceCreated[:0]
	q.ResourceConsumed = q.ResourceConsumed[:0]
	q.CitizenDied = q.CitizenDied[:0]
}

// Consumer reads the queue once per step, after every subsystem ran and
// before the queue is drained. Consumers must not modify the queue.
type Consumer interface {
	Consume(date time.Time, q *Queue)
}

// ConsumerFunc adapts a function to Consumer.
type ConsumerFunc func(date time.Time, q *Queue)

// Consume calls f.
func (f ConsumerFunc) Consume(date time.Time, q *Queue) { f(date, q) }
