package policy

import (
	"math/rand"

	"github.com/san-kum/spotsim/internal/env"
)

// Random samples the action space uniformly. The generator keeps running
// across Reset; Seed restarts it.
type Random struct {
	rng   *rand.Rand
	space env.Space
}

func NewRandom(seed int64) *Random {
	return &Random{rng: rand.New(rand.NewSource(seed)), space: env.ActionSpace()}
}

func (r *Random) Act(env.Observation, float64) []float32 {
	return r.space.Sample(r.rng)
}

func (r *Random) Reset() {}

// Seed implements Seeder.
func (r *Random) Seed(seed int64) {
	r.rng = rand.New(rand.NewSource(seed))
}
