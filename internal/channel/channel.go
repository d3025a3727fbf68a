package channel

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"gonum.org/v1/gonum/stat/distuv"

	"tesim/internal/domain"
)

var (
	// ErrInvalidConfiguration is returned by New for an unusable lane count, rate pair or initial vector
	ErrInvalidConfiguration = errors.New("invalid channel configuration")
	// ErrLengthMismatch is returned by Impair when the vector width differs from the lane count
	ErrLengthMismatch = errors.New("vector length mismatch")
)

// Engine is a Gilbert-Elliott impairment channel over a fixed-width sample vector.
//
// Each lane runs its own two-state Markov chain. While a lane is bad the
// sample is replaced by the value emitted for that lane on the previous tick.
//
// An Engine is not safe for concurrent use.
type Engine struct {
	rate  domain.ErrorRate
	good  []bool
	held  []float64
	rng   distuv.Uniform
	ticks int64
}

// New creates an engine with every lane good and the held values copied from initial.
// The random source is seeded from seed, so two engines built from the same
// arguments and fed the same vectors produce identical output.
func New(rate domain.ErrorRate, dlen int, initial []float64, seed int64) (*Engine, error) {
	if dlen < 1 {
		return nil, fmt.Errorf("%w: lane count %d", ErrInvalidConfiguration, dlen)
	}
	if err := rate.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}
	if len(initial) != dlen {
		return nil, fmt.Errorf("%w: %d initial values for %d lanes", ErrInvalidConfiguration, len(initial), dlen)
	}

	good := make([]bool, dlen)
	for i := range good {
		good[i] = true
	}

	return &Engine{
		rate: rate,
		good: good,
		held: append([]float64(nil), initial...),
		rng: distuv.Uniform{
			Min: 0,
			Max: 1,
			Src: rand.NewPCG(uint64(seed), uint64(seed)),
		},
	}, nil
}

// Draw returns the next uniform sample in [0,1) from the engine's stream
func (e *Engine) Draw() float64 {
	return e.rng.Rand()
}

// Impair advances every lane by one tick and rewrites data in place.
// The same slice is returned for chaining. A width mismatch is rejected
// before any lane is touched.
func (e *Engine) Impair(data []float64) ([]float64, error) {
	if len(data) != len(e.good) {
		return data, fmt.Errorf("%w: got %d values, want %d", ErrLengthMismatch, len(data), len(e.good))
	}

	for i := range data {
		r := e.Draw()
		if e.good[i] {
			e.good[i] = r > e.rate.Loss
		} else {
			e.good[i] = r <= e.rate.Recover
		}

		// substitution looks at the state after this tick's transition
		if !e.good[i] {
			data[i] = e.held[i]
		}
		e.held[i] = data[i]
	}
	e.ticks++

	return data, nil
}

// String renders the lane states as tab separated tokens, 1 for good and 0 for bad
func (e *Engine) String() string {
	var sb strings.Builder
	for i, good := range e.good {
		if i > 0 {
			sb.WriteByte('\t')
		}
		if good {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

// Len returns the lane count
func (e *Engine) Len() int {
	return len(e.good)
}

// ErrorRate returns the transition pair the engine was built with
func (e *Engine) ErrorRate() domain.ErrorRate {
	return e.rate
}

// Ticks returns the number of completed Impair calls
func (e *Engine) Ticks() int64 {
	return e.ticks
}

// States returns a copy of the lane states, true meaning good
func (e *Engine) States() []bool {
	return append([]bool(nil), e.good...)
}

// Held returns a copy of the held values
func (e *Engine) Held() []float64 {
	return append([]float64(nil), e.held...)
}

// BadCount returns the number of lanes currently in the bad state
func (e *Engine) BadCount() int {
	n := 0
	for _, good := range e.good {
		if !good {
			n++
		}
	}
	return n
}
