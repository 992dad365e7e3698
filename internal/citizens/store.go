package citizens

import (
	"fmt"
	"slices"

	"github.com/talgya/colonysim/internal/colony"
)

// Store holds the live citizens and enumerates them in ascending ID order.
type Store struct {
	byID map[ID]*Citizen
	ids  []ID // sorted ascending
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{byID: make(map[ID]*Citizen)}
}

// Add inserts a citizen. IDs must be unique.
func (s *Store) Add(c *Citizen) error {
	if _, ok := s.byID[c.ID]; ok {
		return fmt.Errorf("citizen %d already exists", c.ID)
	}
	s.byID[c.ID] = c
	if n := len(s.ids); n == 0 || s.ids[n-1] < c.ID {
		s.ids = append(s.ids, c.ID)
		return nil
	}
	i, _ := slices.BinarySearch(s.ids, c.ID)
	s.ids = slices.Insert(s.ids, i, c.ID)
	return nil
}

// Remove deletes a citizen and returns it, or nil if it was not present.
func (s *Store) Remove(id ID) *Citizen {
	c, ok := s.byID[id]
	if !ok {
		return nil
	}
	delete(s.byID, id)
	if i, found := slices.BinarySearch(s.ids, id); found {
		s.ids = slices.Delete(s.ids, i, i+1)
	}
	return c
}

// Get returns the citizen with id, or nil.
func (s *Store) Get(id ID) *Citizen {
	return s.byID[id]
}

// Len returns the number of live citizens.
func (s *Store) Len() int {
	return len(s.ids)
}

// MaxID returns the highest ID in the store, or 0 when empty.
func (s *Store) MaxID() ID {
	if len(s.ids) == 0 {
		return 0
	}
	return s.ids[len(s.ids)-1]
}

// All returns every citizen in ascending ID order.
func (s *Store) All() []*Citizen {
	out := make([]*Citizen, 0, len(s.ids))
	for _, id := range s.ids {
		out = append(out, s.byID[id])
	}
	return out
}

// Each calls fn for every citizen in ascending ID order.
func (s *Store) Each(fn func(*Citizen)) {
	for _, id := range s.ids {
		fn(s.byID[id])
	}
}

// InColony returns the citizens of one colony in ascending ID order.
func (s *Store) InColony(colonyID colony.ID) []*Citizen {
	var out []*Citizen
	for _, id := range s.ids {
		if c := s.byID[id]; c.Colony == colonyID {
			out = append(out, c)
		}
	}
	return out
}
