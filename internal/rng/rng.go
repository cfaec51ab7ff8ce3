// Package rng threads a seeded PRNG through the pipeline as an explicit
// parameter rather than a process-wide singleton (spec.md 9: "Global state
// is confined to the PRNG; it must be threaded as an explicit parameter or
// held in a per-run context, never a process-wide singleton").
package rng

import "math/rand"

// Context wraps a deterministic PRNG plus a monotonically advancing draw
// counter, mirroring the teacher's game.Game.rng field (game/game.go) but
// scoped per run instead of per process.
type Context struct {
	r       *rand.Rand
	draws   uint64
	baseSeed int64
}

// New creates a run context seeded from seed.
func New(seed int64) *Context {
	return &Context{r: rand.New(rand.NewSource(seed)), baseSeed: seed}
}

// ForFeature derives a fresh, deterministic sub-context for generating one
// feature, advancing the draw counter. Same seed + same draw count always
// yields the same sub-context (spec.md 4.3: "deterministic in the seed").
func (c *Context) ForFeature() *Context {
	c.draws++
	return New(c.baseSeed ^ int64(c.draws)<<1 ^ int64(c.draws>>32))
}

// Draws returns the number of ForFeature derivations taken so far.
func (c *Context) Draws() uint64 { return c.draws }

// Rand exposes the underlying *rand.Rand for sampling distributions.
func (c *Context) Rand() *rand.Rand { return c.r }

// Float64 draws a uniform float64 in [0,1).
func (c *Context) Float64() float64 { return c.r.Float64() }

// Intn draws a uniform int in [0,n).
func (c *Context) Intn(n int) int { return c.r.Intn(n) }
