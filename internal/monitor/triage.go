package monitor

import (
	"sort"

	"github.com/talgya/colonysim/internal/economy"
)

// Health levels, most severe first.
const (
	LevelCritical = "CRITICAL"
	LevelWarning  = "WARNING"
	LevelWatch    = "WATCH"
	LevelHealthy  = "HEALTHY"
)

// ColonyHealth holds derived diagnostic signals for one colony.
type ColonyHealth struct {
	Colony        uint64  `json:"colony"`
	Name          string  `json:"name"`
	Population    int     `json:"population"`
	WorkingShare  float64 `json:"working_share"`
	FoodPerCapita float64 `json:"food_per_capita"`
	// Decline is the fractional population loss from the oldest to the
	// newest observed day; zero when the colony grew or held steady.
	Decline      float64 `json:"decline"`
	LastProduced float64 `json:"last_produced"` // carb + meat produced on the newest day
	HasHistory   bool    `json:"has_history"`
	Level        string  `json:"level"`
}

// Triage grades every colony in the observation, ordered by colony ID.
func Triage(obs *Observation) []ColonyHealth {
	out := make([]ColonyHealth, 0, len(obs.Colonies))
	for _, c := range obs.Colonies {
		h := ColonyHealth{
			Colony:     c.ID,
			Name:       c.Name,
			Population: c.Population,
		}
		if c.Population > 0 {
			h.WorkingShare = float64(c.Working) / float64(c.Population)
			h.FoodPerCapita = c.Resources[economy.PreparedFood.String()] / float64(c.Population)
		}

		if rows := obs.History[c.ID]; len(rows) > 0 {
			h.HasHistory = true
			oldest, newest := rows[0], rows[len(rows)-1]
			if oldest.TotalPop > 0 && newest.TotalPop < oldest.TotalPop {
				h.Decline = float64(oldest.TotalPop-newest.TotalPop) / float64(oldest.TotalPop)
			}
			h.LastProduced = newest.CarbProduced + newest.MeatProduced
		}

		h.Level = grade(h)
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Colony < out[j].Colony })
	return out
}

func grade(h ColonyHealth) string {
	switch {
	case h.Population == 0:
		return LevelCritical
	case h.Decline > 0.1:
		return LevelCritical
	case h.WorkingShare == 0:
		return LevelWarning
	case h.HasHistory && h.LastProduced == 0:
		return LevelWarning
	case h.Decline > 0:
		return LevelWatch
	case h.FoodPerCapita < 1:
		return LevelWatch
	}
	return LevelHealthy
}

// Worst returns the most severe level among the colonies.
func Worst(health []ColonyHealth) string {
	rank := map[string]int{LevelHealthy: 0, LevelWatch: 1, LevelWarning: 2, LevelCritical: 3}
	worst := LevelHealthy
	for _, h := range health {
		if rank[h.Level] > rank[worst] {
			worst = h.Level
		}
	}
	return worst
}
