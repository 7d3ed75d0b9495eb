// Package generators implements the procedural question generators: one
// module per curriculum topic, plus the randomization and formatting
// utilities they share. Every generator computes a correct answer from
// freshly sampled operands and fabricates distractors that each encode a
// specific, named student misconception.
package generators

import (
	"math/rand"
)

// RandomInt returns a uniform integer in [min, max], inclusive on both ends.
func RandomInt(r *rand.Rand, min, max int) int {
	if max < min {
		min, max = max, min
	}
	return min + r.Intn(max-min+1)
}

// Pick returns a uniform choice from pool. Callers must guarantee a
// non-empty pool; an empty pool panics.
func Pick[T any](r *rand.Rand, pool []T) T {
	if len(pool) == 0 {
		panic("generators: pick from empty pool")
	}
	return pool[r.Intn(len(pool))]
}

// RandomNonZeroInt returns a uniform integer in [-limit, limit] excluding
// zero, by resampling zero draws.
func RandomNonZeroInt(r *rand.Rand, limit int) int {
	for {
		n := RandomInt(r, -limit, limit)
		if n != 0 {
			return n
		}
	}
}

// ShuffleOptions permutes options in place with a Fisher-Yates shuffle.
func ShuffleOptions(r *rand.Rand, options []string) {
	for i := len(options) - 1; i > 0; i-- {
		j := r.Intn(i + 1)
		options[i], options[j] = options[j], options[i]
	}
}
