package rollout

import (
	"fmt"
	"math/rand"

	"github.com/san-kum/spotsim/internal/config"
	"github.com/san-kum/spotsim/internal/dynamo"
	"github.com/san-kum/spotsim/internal/env"
	"github.com/san-kum/spotsim/internal/policy"
)

// Registry builds environments and policies from a loaded config.
type Registry struct {
	cfg     *config.Config
	actions [][]float32
	params  map[string]float64
}

func NewRegistry(cfg *config.Config) *Registry {
	return &Registry{cfg: cfg}
}

// WithReplay sets the sequence used by the replay policy.
func (r *Registry) WithReplay(actions [][]float32) *Registry {
	r.actions = actions
	return r
}

// NewEnv builds an Env on a fresh built-in world.
func (r *Registry) NewEnv(seed int64) (*env.Env, error) {
	world, err := r.cfg.NewWorld()
	if err != nil {
		return nil, fmt.Errorf("build world: %w", err)
	}
	e, err := env.New(world,
		env.WithConfig(r.cfg.Env),
		env.WithRand(rand.New(rand.NewSource(seed))),
	)
	if err != nil {
		world.Close()
		return nil, err
	}
	return e, nil
}

// WithParams sets named parameters applied to every policy built. The
// policy must implement dynamo.Configurable when params is non-empty.
func (r *Registry) WithParams(params map[string]float64) *Registry {
	r.params = params
	return r
}

func (r *Registry) NewPolicy(seed int64) (policy.Policy, error) {
	p, err := policy.New(r.cfg.Rollout.Policy, policy.Params{
		Seed:      seed,
		Amplitude: r.cfg.Rollout.Amplitude,
		Frequency: r.cfg.Rollout.Frequency,
		Actions:   r.actions,

		Hidden:      r.cfg.Rollout.Hidden,
		WeightsFile: r.cfg.Rollout.Weights,
	})
	if err != nil || len(r.params) == 0 {
		return p, err
	}
	tunable, ok := p.(dynamo.Configurable)
	if !ok {
		return nil, fmt.Errorf("policy %s is not tunable", r.cfg.Rollout.Policy)
	}
	for name, v := range r.params {
		if err := tunable.SetParam(name, v); err != nil {
			return nil, fmt.Errorf("policy %s: %w", r.cfg.Rollout.Policy, err)
		}
	}
	return p, nil
}

// Factory returns an ensemble factory seeding worker w's environment
// with seed+w. Policies are built from the run seed so every worker
// holds the same network; per-episode streams come from Seeder.
func (r *Registry) Factory() Factory {
	return func(w int) (*env.Env, policy.Policy, error) {
		e, err := r.NewEnv(r.cfg.Seed + int64(w))
		if err != nil {
			return nil, nil, err
		}
		p, err := r.NewPolicy(r.cfg.Seed)
		if err != nil {
			e.Close()
			return nil, nil, err
		}
		return e, p, nil
	}
}

// Ensemble builds an ensemble sized by the rollout config.
func (r *Registry) Ensemble() *Ensemble {
	return &Ensemble{Workers: r.cfg.Rollout.Workers, Factory: r.Factory()}
}

// RunConfig returns the rollout settings for the configured episode count.
func (r *Registry) RunConfig(record bool) Config {
	return Config{Episodes: r.cfg.Rollout.Episodes, Seed: r.cfg.Seed, Record: record}
}
