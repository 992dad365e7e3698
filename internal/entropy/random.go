// Package entropy provides the seedable random sources and distributions
// used by the stochastic parts of the simulation.
// Every source is derived from one configured seed so runs are reproducible;
// a zero seed is replaced with one drawn from crypto/rand.
package entropy

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	mrand "math/rand"
)

// ErrInvalidDistribution is returned for distribution parameters that
// would produce NaN or infinite samples.
var ErrInvalidDistribution = errors.New("invalid distribution parameters")

// Source is the random source handed to stochastic subsystems. It counts
// the values drawn from its stream so a saved run can fast-forward a fresh
// source to the same position.
type Source struct {
	*mrand.Rand
	stream *countingSource
}

// New returns a deterministic source for seed. Offsets keep independent
// subsystems from sharing a stream.
func New(seed int64, offset int64) *Source {
	stream := &countingSource{src: mrand.NewSource(seed + offset).(mrand.Source64)}
	return &Source{Rand: mrand.New(stream), stream: stream}
}

// Draws returns the number of values taken from the stream so far.
func (s *Source) Draws() uint64 {
	return s.stream.draws
}

// Skip advances the stream until Draws reaches n. It never rewinds.
func (s *Source) Skip(n uint64) {
	for s.stream.draws < n {
		s.stream.Uint64()
	}
}

// countingSource wraps a Source64 and counts every value it yields. Each
// Int63 or Uint64 call advances the underlying generator by one step.
type countingSource struct {
	src   mrand.Source64
	draws uint64
}

func (c *countingSource) Int63() int64 {
	c.draws++
	return c.src.Int63()
}

func (c *countingSource) Uint64() uint64 {
	c.draws++
	return c.src.Uint64()
}

func (c *countingSource) Seed(seed int64) {
	c.src.Seed(seed)
	c.draws = 0
}

// Seed returns seed unchanged, or a crypto/rand seed when seed is zero.
func Seed(seed int64) int64 {
	if seed != 0 {
		return seed
	}
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand never fails on supported platforms.
		return 1
	}
	s := int64(binary.LittleEndian.Uint64(buf[:]) >> 1)
	if s == 0 {
		s = 1
	}
	return s
}

// SkewNormal is a skew-normal distribution.
type SkewNormal struct {
	location float64
	scale    float64
	shape    float64
}

// NewSkewNormal validates the parameters. Scale must be positive and finite.
func NewSkewNormal(location, scale, shape float64) (SkewNormal, error) {
	for _, v := range []float64{location, scale, shape} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return SkewNormal{}, fmt.Errorf("%w: non-finite skew-normal parameter", ErrInvalidDistribution)
		}
	}
	if scale <= 0 {
		return SkewNormal{}, fmt.Errorf("%w: skew-normal scale must be positive, got %v", ErrInvalidDistribution, scale)
	}
	return SkewNormal{location: location, scale: scale, shape: shape}, nil
}

// Sample draws one value using the max/min construction of two standard normals.
func (d SkewNormal) Sample(r *Source) float64 {
	u1 := r.NormFloat64()
	if d.shape == 0 {
		return d.location + d.scale*u1
	}
	u2 := r.NormFloat64()
	u, v := math.Max(u1, u2), math.Min(u1, u2)
	if d.shape == -1 {
		return d.location + d.scale*v
	}
	z := ((1+d.shape)*u + (1-d.shape)*v) / math.Sqrt(2*(1+d.shape*d.shape))
	return d.location + d.scale*z
}

// Normal draws from N(mean, stdDev). A zero stdDev returns mean without
// consuming randomness.
func Normal(r *Source, mean, stdDev float64) float64 {
	if stdDev == 0 {
		return mean
	}
	return mean + stdDev*r.NormFloat64()
}

// Chance returns true with probability p.
func Chance(r *Source, p float64) bool {
	return r.Float64() < p
}
