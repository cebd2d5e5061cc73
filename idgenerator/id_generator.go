// Package idgenerator hands out sequential uint32 identifiers.
package idgenerator

import "sync/atomic"

// IdGenerator returns increasing IDs, safe for concurrent use. The counter
// wraps around after the maximum uint32.
type IdGenerator struct {
	id atomic.Uint32
}

// NewIdGenerator creates a generator whose first Id is startValue+1.
func NewIdGenerator(startValue uint32) *IdGenerator {
	gen := &IdGenerator{}
	gen.id.Store(startValue)
	return gen
}

// Id returns the next ID.
func (g *IdGenerator) Id() uint32 {
	return g.id.Add(1)
}
