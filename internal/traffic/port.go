package traffic

import (
	"math/rand"
	"time"

	"github.com/dpws-sim/dpws-sim/internal/config"
)

// SeedFactory produces a per-source RNG seed. Injected at construction so
// tests can get deterministic port sequences.
type SeedFactory func() int64

// SystemSeedFactory is the default factory: a nondeterministic,
// time-derived seed so that sibling sources do not correlate their port
// choices.
func SystemSeedFactory() int64 { return time.Now().UnixNano() }

// resolvePort returns the port to use on one send: configured is the value
// already resolved past the -2 "inherit" precedence chain by
// internal/attack, so here only -1 ("randomize every call") and fixed
// values in [0, 65535] remain.
func resolvePort(configured int, rng *rand.Rand) int {
	if configured == config.RandomizePort {
		return rng.Intn(65536)
	}
	return configured
}
