// Package colony holds the colony registry: per-colony configuration, land
// usage and the latest population snapshot.
package colony

import (
	"errors"
	"fmt"

	"github.com/talgya/colonysim/internal/config"
)

// ErrUnknownColony is returned when an entity references a colony that does not exist.
var ErrUnknownColony = errors.New("unknown colony")

// ID is a unique identifier for a colony.
type ID = uint64

// Colony is a settlement owning citizens, farms and resource pools.
type Colony struct {
	ID     ID                 `json:"id"`
	Name   string             `json:"name"`
	Config config.WorldConfig `json:"-"`

	// Land
	LandSize float64 `json:"land_size"`
	LandUsed float64 `json:"land_used"`

	// Government and wealth are owned by other systems; carried for reporting.
	Government string  `json:"government"`
	Wealth     float64 `json:"wealth"`

	// Latest snapshot, replaced wholesale by the aggregator every step.
	Population Population `json:"population"`
}

// Population is the per-colony summary recomputed each step.
type Population struct {
	Count                    int     `json:"count"`
	Younglings               int     `json:"younglings"`
	WorkingPop               int     `json:"working_pop"`
	Retirees                 int     `json:"retirees"`
	AverageAge               int     `json:"average_age"` // floored years
	AverageHeight            float64 `json:"average_height"`
	AverageWeight            float64 `json:"average_weight"`
	AverageChildrenPerMother float64 `json:"average_children_per_mother"`
}

// SpaceLeft returns the unused land.
func (c *Colony) SpaceLeft() float64 {
	return c.LandSize - c.LandUsed
}

// AdultAge returns the age at which younglings come of age.
func (c *Colony) AdultAge() int {
	return c.Config.Population.AgeOfAdult
}

// RetirementAge returns the age at which citizens retire.
func (c *Colony) RetirementAge() int {
	return c.Config.Population.AgeOfRetirement
}

// Registry indexes colonies by ID and keeps them in ascending ID order.
type Registry struct {
	colonies []*Colony
	index    map[ID]*Colony
}

// NewRegistry creates one colony per world config, with IDs starting at 1.
func NewRegistry(worlds []config.WorldConfig) *Registry {
	r := &Registry{index: make(map[ID]*Colony, len(worlds))}
	for i, w := range worlds {
		c := &Colony{
			ID:         ID(i + 1),
			Name:       w.Name,
			Config:     w,
			LandSize:   w.Size,
			Government: w.Government,
		}
		r.colonies = append(r.colonies, c)
		r.index[c.ID] = c
	}
	return r
}

// Get returns the colony with the given ID.
func (r *Registry) Get(id ID) (*Colony, error) {
	c, ok := r.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownColony, id)
	}
	return c, nil
}

// Has reports whether id is registered.
func (r *Registry) Has(id ID) bool {
	_, ok := r.index[id]
	return ok
}

// All returns the colonies in ascending ID order. The slice must not be modified.
func (r *Registry) All() []*Colony {
	return r.colonies
}

// Len returns the number of colonies.
func (r *Registry) Len() int {
	return len(r.colonies)
}
