// Package dice provides the randomness abstraction used by combat resolution,
// loot generation, and zone population.
package dice

// Source is the randomness provider for every random draw in the simulation.
//
// Implementations MUST be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
	// Float64 returns a random float in [0.0, 1.0).
	Float64() float64
}

// Between returns a uniformly distributed integer in [min, max].
//
// Precondition: src must be non-nil.
// Postcondition: min <= result <= max; when max <= min, min is returned.
func Between(src Source, min, max int) int {
	if max <= min {
		return min
	}
	return min + src.Intn(max-min+1)
}

// Chance reports whether a Bernoulli trial with probability p succeeds.
//
// Postcondition: p <= 0 always fails; p >= 1 always succeeds.
func Chance(src Source, p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return src.Float64() < p
}

// Spread returns a multiplier drawn uniformly from [1-jitter, 1+jitter].
//
// Postcondition: jitter <= 0 returns exactly 1.
func Spread(src Source, jitter float64) float64 {
	if jitter <= 0 {
		return 1
	}
	return 1 - jitter + src.Float64()*2*jitter
}
