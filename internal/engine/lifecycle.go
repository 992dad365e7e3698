// Citizen lifecycle: birthdays, coming of age, retirement and daily growth.
package engine

import (
	"log/slog"
	"time"

	"github.com/talgya/colonysim/internal/calendar"
	"github.com/talgya/colonysim/internal/citizens"
	"github.com/talgya/colonysim/internal/events"
)

// processBirthdays queues a CitizenBirthday for every citizen whose birthday
// falls on date. Feb 29 birthdays fall on Feb 28 in common years.
func (s *Simulation) processBirthdays(date time.Time) {
	s.Citizens.Each(func(c *citizens.Citizen) {
		if !calendar.IsAnniversary(date, c.Birthday) {
			return
		}
		age, ok := c.Age(date)
		if !ok {
			return
		}
		s.queue.CitizenBirthday = append(s.queue.CitizenBirthday, events.CitizenBirthday{
			Citizen: c.ID,
			Colony:  c.Colony,
			Age:     age,
		})
	})
}

// processComingOfAge ends childhood for citizens turning the colony's adult age.
func (s *Simulation) processComingOfAge() {
	for _, b := range s.queue.CitizenBirthday {
		col, err := s.Colonies.Get(b.Colony)
		if err != nil || b.Age != col.AdultAge() {
			continue
		}
		if c := s.Citizens.Get(b.Citizen); c != nil {
			c.ComeOfAge()
			slog.Debug("citizen came of age", "citizen", c.Name, "colony", col.Name)
		}
	}
}

// processRetirement retires citizens turning the colony's retirement age.
func (s *Simulation) processRetirement() {
	for _, b := range s.queue.CitizenBirthday {
		col, err := s.Colonies.Get(b.Colony)
		if err != nil || b.Age != col.RetirementAge() {
			continue
		}
		if c := s.Citizens.Get(b.Citizen); c != nil {
			c.Retire()
			slog.Debug("citizen retired", "citizen", c.Name, "colony", col.Name)
		}
	}
}

// processGrowth applies one day of growth to every citizen.
func (s *Simulation) processGrowth(date time.Time) {
	s.Citizens.Each(func(c *citizens.Citizen) {
		c.Grow(date)
	})
}
