package robust

import (
	"math/rand"
	"sync"
)

// globalRandom is the process-wide deterministic RNG source: a single
// seedable source subsample/colsample draws pull from, guarded by a
// mutex for the builder's otherwise-serial sampling sections.
type globalRNG struct {
	mu  sync.Mutex
	rng *rand.Rand
}

var globalRandom = &globalRNG{rng: rand.New(rand.NewSource(0))}

// SeedGlobalRandom reseeds the process-wide RNG. Call once before
// building a tree for reproducible subsample/colsample draws.
func SeedGlobalRandom(seed int64) {
	globalRandom.mu.Lock()
	defer globalRandom.mu.Unlock()
	globalRandom.rng = rand.New(rand.NewSource(seed))
}

// Float64 draws a uniform [0,1) value from the global RNG.
func Float64() float64 {
	globalRandom.mu.Lock()
	defer globalRandom.mu.Unlock()
	return globalRandom.rng.Float64()
}

// Perm draws a random permutation of [0,n) from the global RNG, used
// for colsample_bytree/colsample_bylevel feature subsetting.
func Perm(n int) []int {
	globalRandom.mu.Lock()
	defer globalRandom.mu.Unlock()
	return globalRandom.rng.Perm(n)
}
