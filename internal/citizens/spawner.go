// Citizen spawning: the starting population of each colony and newborns.
package citizens

import (
	"fmt"
	"math"
	"time"

	"github.com/talgya/colonysim/internal/calendar"
	"github.com/talgya/colonysim/internal/colony"
	"github.com/talgya/colonysim/internal/entropy"
)

// Spawned pairs a generated citizen with the age drawn for it.
type Spawned struct {
	Citizen *Citizen
	Age     int
}

// Spawner creates citizens for the simulation.
type Spawner struct {
	rng    *entropy.Source
	nextID ID
}

// NewSpawner creates a citizen spawner drawing from rng.
func NewSpawner(rng *entropy.Source) *Spawner {
	return &Spawner{rng: rng, nextID: 1}
}

// SetNextID sets the next citizen ID to be issued (used when restoring from DB).
func (s *Spawner) SetNextID(id ID) {
	s.nextID = id
}

// NextID returns the ID the next spawned citizen will receive.
func (s *Spawner) NextID() ID {
	return s.nextID
}

// Draws returns how far the spawner's random stream has advanced.
func (s *Spawner) Draws() uint64 {
	return s.rng.Draws()
}

// FastForward advances the random stream to position n, so a restored
// spawner continues where the saved one stopped.
func (s *Spawner) FastForward(n uint64) {
	s.rng.Skip(n)
}

// SpawnPopulation creates the starting population of col as of now.
// Invalid age distribution parameters are rejected before any citizen is made.
func (s *Spawner) SpawnPopulation(col *colony.Colony, now time.Time) ([]Spawned, error) {
	pop := col.Config.Population
	dist, err := entropy.NewSkewNormal(pop.PopulationDist.Location, pop.PopulationDist.Scale, pop.PopulationDist.Shape)
	if err != nil {
		return nil, fmt.Errorf("colony %s population_dist: %w", col.Name, err)
	}

	now = calendar.Date(now)
	out := make([]Spawned, 0, pop.PopulationSize)
	for i := 0; i < pop.PopulationSize; i++ {
		age := int(math.Floor(dist.Sample(s.rng)))
		if age < 0 {
			age = 0
		}
		c, err := s.spawnOne(col, now, age)
		if err != nil {
			return nil, err
		}
		out = append(out, Spawned{Citizen: c, Age: age})
	}
	return out, nil
}

func (s *Spawner) spawnOne(col *colony.Colony, now time.Time, age int) (*Citizen, error) {
	pop := col.Config.Population

	birthday, err := calendar.FromYearDay(now.Year()-age, s.rng.Intn(calendar.DaysPerYear)+1)
	if err != nil {
		return nil, fmt.Errorf("birthday for age %d: %w", age, err)
	}
	// A zero-year-old drawn a day later in the year is born today.
	if birthday.After(now) {
		birthday = now
	}

	geneticHeight := math.Max(entropy.Normal(s.rng, pop.HeightDist.Average, pop.HeightDist.StdDev), pop.NewbornHeight)
	geneticWeight := math.Max(entropy.Normal(s.rng, pop.WeightDist.Average, pop.WeightDist.StdDev), pop.NewbornWeight)
	dailyGrowth := (geneticHeight - pop.NewbornHeight) / MaturationDays
	dailyFattening := (geneticWeight - pop.NewbornWeight) / MaturationDays

	days := float64(min(age*calendar.DaysPerYear, MaturationDays))

	sex := SexMale
	if entropy.Chance(s.rng, 0.5) {
		sex = SexFemale
	}

	c := &Citizen{
		ID:             s.issueID(),
		Name:           s.generateName(sex),
		Birthday:       birthday,
		Colony:         col.ID,
		Sex:            sex,
		GeneticHeight:  geneticHeight,
		GeneticWeight:  geneticWeight,
		Height:         days*dailyGrowth + pop.NewbornHeight,
		Weight:         days*dailyFattening + pop.NewbornWeight,
		DailyGrowth:    dailyGrowth,
		DailyFattening: dailyFattening,
	}
	if sex == SexFemale {
		c.Female = &Female{}
	}
	if years, _ := calendar.YearsSince(now, birthday); years >= pop.AgeOfAdult {
		c.Employable = true
	} else {
		c.Youngling = true
	}
	return c, nil
}

// SpawnNewborn creates a youngling born in col on date. Genetic targets are
// the mean of the parents' (the mother's alone when father is nil), and the
// birth is recorded on the mother.
func (s *Spawner) SpawnNewborn(col *colony.Colony, date time.Time, mother, father *Citizen) *Citizen {
	pop := col.Config.Population
	date = calendar.Date(date)

	geneticHeight, geneticWeight := pop.HeightDist.Average, pop.WeightDist.Average
	if mother != nil {
		geneticHeight, geneticWeight = mother.GeneticHeight, mother.GeneticWeight
		if father != nil {
			geneticHeight = (geneticHeight + father.GeneticHeight) / 2
			geneticWeight = (geneticWeight + father.GeneticWeight) / 2
		}
	}
	geneticHeight = math.Max(geneticHeight, pop.NewbornHeight)
	geneticWeight = math.Max(geneticWeight, pop.NewbornWeight)

	sex := SexMale
	if entropy.Chance(s.rng, 0.5) {
		sex = SexFemale
	}
	c := &Citizen{
		ID:             s.issueID(),
		Name:           s.generateName(sex),
		Birthday:       date,
		Colony:         col.ID,
		Sex:            sex,
		GeneticHeight:  geneticHeight,
		GeneticWeight:  geneticWeight,
		Height:         pop.NewbornHeight,
		Weight:         pop.NewbornWeight,
		DailyGrowth:    (geneticHeight - pop.NewbornHeight) / MaturationDays,
		DailyFattening: (geneticWeight - pop.NewbornWeight) / MaturationDays,
		Youngling:      true,
	}
	if sex == SexFemale {
		c.Female = &Female{}
	}
	if mother != nil {
		mother.RecordBirth(date)
	}
	return c
}

func (s *Spawner) issueID() ID {
	id := s.nextID
	s.nextID++
	return id
}

func (s *Spawner) generateName(sex Sex) string {
	first := praenomina[s.rng.Intn(len(praenomina))]
	if sex == SexFemale {
		first = feminina[s.rng.Intn(len(feminina))]
	}
	return first + " " + nomina[s.rng.Intn(len(nomina))]
}

// Name pools for procedural generation.
var praenomina = []string{
	"Aulus", "Appius", "Decimus", "Gaius", "Gnaeus", "Lucius", "Mamercus",
	"Manius", "Marcus", "Numerius", "Publius", "Quintus", "Servius",
	"Sextus", "Spurius", "Tiberius", "Titus", "Vibius", "Faustus", "Opiter",
}

var feminina = []string{
	"Aelia", "Aurelia", "Caecilia", "Claudia", "Cornelia", "Domitia",
	"Fabia", "Flavia", "Julia", "Junia", "Livia", "Lucretia", "Octavia",
	"Porcia", "Sabina", "Servilia", "Terentia", "Tullia", "Valeria", "Vipsania",
}

var nomina = []string{
	"Aemilius", "Antonius", "Calpurnius", "Cassius", "Decius", "Fabricius",
	"Furius", "Horatius", "Licinius", "Manlius", "Marcius", "Naevius",
	"Papirius", "Postumius", "Quinctius", "Sempronius", "Sulpicius",
	"Valerius", "Verginius", "Vettius", "Volumnius", "Sergius", "Pompeius",
}
