// Package economy provides farms and the per-colony resource pools.
package economy

import (
	"errors"
	"fmt"

	"github.com/talgya/colonysim/internal/colony"
)

// Pool lookup failures. Both indicate a broken setup invariant.
var (
	ErrMissingPool   = errors.New("missing resource pool")
	ErrDuplicatePool = errors.New("duplicate resource pool")
)

// ResourceKind enumerates the food resources a colony stocks.
type ResourceKind uint8

const (
	Carbohydrate ResourceKind = iota // grain output
	Protein                          // livestock output (meat)
	PreparedFood                     // cooked from carbohydrate + protein
)

// NumResourceKinds is the total number of resource kinds.
const NumResourceKinds = 3

// ResourceKinds lists every kind in declaration order.
var ResourceKinds = [NumResourceKinds]ResourceKind{Carbohydrate, Protein, PreparedFood}

func (k ResourceKind) String() string {
	switch k {
	case Carbohydrate:
		return "carb"
	case Protein:
		return "meat"
	case PreparedFood:
		return "food"
	default:
		return fmt.Sprintf("resource(%d)", uint8(k))
	}
}

// ResourcePool is a colony's stock of one resource kind.
type ResourcePool struct {
	Kind    ResourceKind `json:"kind"`
	Colony  colony.ID    `json:"colony"`
	Amount  float64      `json:"amount"`
	Quality float64      `json:"quality"` // 1.0 = nominal; reported, not yet used by any formula
}

// Stock is the validated triple of pools belonging to one colony.
type Stock struct {
	Carbohydrate *ResourcePool
	Protein      *ResourcePool
	PreparedFood *ResourcePool
}

// Pool returns the pool of the given kind.
func (s Stock) Pool(kind ResourceKind) *ResourcePool {
	switch kind {
	case Carbohydrate:
		return s.Carbohydrate
	case Protein:
		return s.Protein
	case PreparedFood:
		return s.PreparedFood
	}
	return nil
}

// Ledger holds every resource pool, indexed by colony.
type Ledger struct {
	pools    []*ResourcePool
	byColony map[colony.ID]*[NumResourceKinds]*ResourcePool
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{byColony: make(map[colony.ID]*[NumResourceKinds]*ResourcePool)}
}

// NewPool returns an empty pool at nominal quality.
func NewPool(kind ResourceKind, colonyID colony.ID) *ResourcePool {
	return &ResourcePool{Kind: kind, Colony: colonyID, Quality: 1}
}

// Register adds a pool. A second pool of the same kind for a colony is rejected.
func (l *Ledger) Register(p *ResourcePool) error {
	if int(p.Kind) >= NumResourceKinds {
		return fmt.Errorf("register pool: unknown kind %d", p.Kind)
	}
	slots, ok := l.byColony[p.Colony]
	if !ok {
		slots = &[NumResourceKinds]*ResourcePool{}
		l.byColony[p.Colony] = slots
	}
	if slots[p.Kind] != nil {
		return fmt.Errorf("%w: colony %d already has a %s pool", ErrDuplicatePool, p.Colony, p.Kind)
	}
	slots[p.Kind] = p
	l.pools = append(l.pools, p)
	return nil
}

// Validate checks that every colony in reg has exactly one pool of each
// kind and that no pool references an unknown colony.
func (l *Ledger) Validate(reg *colony.Registry) error {
	for id := range l.byColony {
		if !reg.Has(id) {
			return fmt.Errorf("resource pool: %w: %d", colony.ErrUnknownColony, id)
		}
	}
	for _, c := range reg.All() {
		if _, err := l.Stock(c.ID); err != nil {
			return err
		}
	}
	return nil
}

// Stock returns the colony's three pools.
func (l *Ledger) Stock(colonyID colony.ID) (Stock, error) {
	slots, ok := l.byColony[colonyID]
	if !ok {
		return Stock{}, fmt.Errorf("%w: colony %d has no pools", ErrMissingPool, colonyID)
	}
	for _, kind := range ResourceKinds {
		if slots[kind] == nil {
			return Stock{}, fmt.Errorf("%w: colony %d has no %s pool", ErrMissingPool, colonyID, kind)
		}
	}
	return Stock{Carbohydrate: slots[Carbohydrate], Protein: slots[Protein], PreparedFood: slots[PreparedFood]}, nil
}

// Pool returns one pool of a colony.
func (l *Ledger) Pool(colonyID colony.ID, kind ResourceKind) (*ResourcePool, error) {
	slots, ok := l.byColony[colonyID]
	if !ok || int(kind) >= NumResourceKinds || slots[kind] == nil {
		return nil, fmt.Errorf("%w: colony %d has no %s pool", ErrMissingPool, colonyID, kind)
	}
	return slots[kind], nil
}

// All returns every pool in registration order.
func (l *Ledger) All() []*ResourcePool {
	return l.pools
}
