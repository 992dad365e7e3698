// Population aggregation: every step each colony's Population snapshot is
// rebuilt from the live citizens.
package engine

import (
	"math"

	"github.com/talgya/colonysim/internal/citizens"
	"github.com/talgya/colonysim/internal/colony"
)

// average folds a sequence of values. In pairwise mode the running value
// is (avg+v)/2 starting from the first value; otherwise it is the
// arithmetic mean.
type average struct {
	pairwise bool
	n        int
	value    float64
	sum      float64
}

func (a *average) add(v float64) {
	a.n++
	a.sum += v
	if a.n == 1 {
		a.value = v
		return
	}
	a.value = (a.value + v) / 2
}

func (a *average) result() float64 {
	if a.n == 0 {
		return 0
	}
	if a.pairwise {
		return a.value
	}
	return a.sum / float64(a.n)
}

type populationFold struct {
	pop                              colony.Population
	age, height, weight, childrenPer average
}

func newPopulationFold(pairwise bool) *populationFold {
	return &populationFold{
		age:         average{pairwise: pairwise},
		height:      average{pairwise: pairwise},
		weight:      average{pairwise: pairwise},
		childrenPer: average{pairwise: pairwise},
	}
}

// processAggregation replaces every colony's Population snapshot.
func (s *Simulation) processAggregation() {
	now := s.Clock.Now()
	folds := make(map[colony.ID]*populationFold, s.Colonies.Len())
	for _, c := range s.Colonies.All() {
		folds[c.ID] = newPopulationFold(!s.meanAggregate)
	}

	s.Citizens.Each(func(c *citizens.Citizen) {
		f := folds[c.Colony]
		if f == nil {
			return
		}
		age, _ := c.Age(now)
		f.pop.Count++
		f.age.add(float64(age))
		f.height.add(c.Height)
		f.weight.add(c.Weight)

		if c.Youngling {
			f.pop.Younglings++
		}
		if c.Retiree {
			f.pop.Retirees++
		}
		if c.Working() {
			f.pop.WorkingPop++
		}
		if c.IsFemale() {
			f.childrenPer.add(float64(c.Female.ChildrenHad))
		}
	})

	for _, c := range s.Colonies.All() {
		f := folds[c.ID]
		f.pop.AverageAge = int(math.Floor(f.age.result()))
		f.pop.AverageHeight = f.height.result()
		f.pop.AverageWeight = f.weight.result()
		f.pop.AverageChildrenPerMother = f.childrenPer.result()
		c.Population = f.pop
	}
}
