package game

import "math"

// Rand is the single deterministic random source for a game session. Its
// entire state is one 32-bit integer, so a saved game stores the integer and
// resumes its exact future sequence. The step is a mulberry32-style
// multiplicative/xorshift advance.
type Rand struct {
	state uint32
}

func NewRand(seed uint32) *Rand {
	return &Rand{state: seed}
}

// NewRandString hashes an arbitrary seed string (FNV-1a) so human seeds like
// "test-1" work.
func NewRandString(seed string) *Rand {
	const (
		offset32 = 2166136261
		prime32  = 16777619
	)
	h := uint32(offset32)
	for i := 0; i < len(seed); i++ {
		h ^= uint32(seed[i])
		h *= prime32
	}
	return NewRand(h)
}

// State exposes the raw generator state for persistence.
func (r *Rand) State() uint32 { return r.state }

// SetState restores a persisted state; the next draw continues the saved
// sequence.
func (r *Rand) SetState(s uint32) { r.state = s }

// Float64 returns the next value in [0,1).
func (r *Rand) Float64() float64 {
	r.state += 0x6D2B79F5
	z := r.state
	z = (z ^ (z >> 15)) * (z | 1)
	z ^= z + (z^(z>>7))*(z|61)
	z ^= z >> 14
	return float64(z) / 4294967296.0
}

// Range returns a uniform value in [min, max).
func (r *Rand) Range(min, max float64) float64 {
	return min + r.Float64()*(max-min)
}

// Int returns a uniform integer in [min, max], inclusive on both ends.
func (r *Rand) Int(min, max int) int {
	if max <= min {
		return min
	}
	return min + int(r.Float64()*float64(max-min+1))
}

// Chance returns true with probability p.
func (r *Rand) Chance(p float64) bool {
	return r.Float64() < p
}

// Normal draws from a gaussian via Box-Muller. Both uniforms are consumed on
// every call and the spare is discarded, so the draw count per call is fixed
// and replays stay position-exact.
func (r *Rand) Normal(mean, stdDev float64) float64 {
	u1 := r.Float64()
	u2 := r.Float64()
	if u1 < 1e-12 {
		u1 = 1e-12
	}
	z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
	return mean + stdDev*z
}

// Pick returns a uniformly chosen element. Panics on an empty slice, same as
// indexing would.
func Pick[T any](r *Rand, list []T) T {
	return list[r.Int(0, len(list)-1)]
}
