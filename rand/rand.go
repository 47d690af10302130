// rand/rand.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package rand

import (
	"time"

	"github.com/MichaelTJones/pcg"
)

///////////////////////////////////////////////////////////////////////////
// Random numbers.

// Rand is a PCG32-based generator. It is not safe for concurrent use;
// each goroutine that needs random numbers should have its own, which
// can be derived from a parent with Fork.
type Rand struct {
	r *pcg.PCG32
}

const pcgSequence = 0xda3e39cb94b95bdb

// Make returns a generator seeded from the current time.
func Make() *Rand {
	r := &Rand{r: pcg.NewPCG32()}
	r.Seed(time.Now().UnixNano())
	return r
}

// MakeSeeded returns a generator with a fixed seed, for reproducible
// runs and tests.
func MakeSeeded(s int64) *Rand {
	r := &Rand{r: pcg.NewPCG32()}
	r.Seed(s)
	return r
}

func (r *Rand) Seed(s int64) {
	r.r.Seed(uint64(s), pcgSequence)
}

// Fork returns a new generator seeded from r; the child's sequence is
// fully determined by r's state.
func (r *Rand) Fork() *Rand {
	return MakeSeeded(int64(uint64(r.r.Random())<<32 | uint64(r.r.Random())))
}

func (r *Rand) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(r.r.Bounded(uint32(n)))
}

// IntRange returns a value uniformly distributed in [lo, hi].
func (r *Rand) IntRange(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + r.Intn(hi-lo+1)
}

func (r *Rand) Float32() float32 {
	return float32(r.r.Random()) / (1<<32 - 1)
}

func (r *Rand) Uint32() uint32 {
	return r.r.Random()
}

// Chance returns true with probability p.
func (r *Rand) Chance(p float32) bool {
	if p <= 0 {
		return false
	} else if p >= 1 {
		return true
	}
	return r.Float32() < p
}
