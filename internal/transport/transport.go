// Package transport abstracts the remote I/O endpoint the control loop talks through.
//
// A real deployment reads and writes named controller variables over a vendor
// protocol. The simulation only needs the shape of that exchange: connect to a
// named variable, read one vector per scan, write one vector per scan. Bus
// provides that shape in process.
package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrUnknownVariable is returned when connecting to a variable that was never declared
	ErrUnknownVariable = errors.New("unknown variable")
	// ErrWidthMismatch is returned when a written vector does not match the declared width
	ErrWidthMismatch = errors.New("variable width mismatch")
)

// Endpoint is one connected remote variable
type Endpoint interface {
	Read(ctx context.Context) ([]float64, error)
	Write(ctx context.Context, values []float64) error
}

// Bus is an in-process table of named vector variables.
// It is safe for concurrent use.
type Bus struct {
	mu   sync.RWMutex
	vars map[string][]float64
}

// NewBus creates an empty bus
func NewBus() *Bus {
	return &Bus{vars: make(map[string][]float64)}
}

// Declare creates or replaces a variable with the given initial contents
func (b *Bus) Declare(name string, initial []float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.vars[name] = append([]float64(nil), initial...)
}

// Connect returns an endpoint bound to a declared variable
func (b *Bus) Connect(name string) (Endpoint, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if _, ok := b.vars[name]; !ok {
		return nil, fmt.Errorf("connect %s: %w", name, ErrUnknownVariable)
	}
	return &endpoint{bus: b, name: name}, nil
}

type endpoint struct {
	bus  *Bus
	name string
}

// Read returns a copy of the variable's current contents
func (e *endpoint) Read(ctx context.Context) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.bus.mu.RLock()
	defer e.bus.mu.RUnlock()
	return append([]float64(nil), e.bus.vars[e.name]...), nil
}

// Write replaces the variable's contents; the width is fixed at declaration
func (e *endpoint) Write(ctx context.Context, values []float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.bus.mu.Lock()
	defer e.bus.mu.Unlock()
	current := e.bus.vars[e.name]
	if len(values) != len(current) {
		return fmt.Errorf("write %s: %w: got %d, want %d", e.name, ErrWidthMismatch, len(values), len(current))
	}
	copy(current, values)
	return nil
}
