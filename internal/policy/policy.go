package policy

import (
	"fmt"
	"sort"

	"github.com/san-kum/spotsim/internal/env"
)

// Policy maps an observation at simulated time t to joint targets.
type Policy interface {
	Act(obs env.Observation, t float64) []float32
	Reset()
}

// Seeder is implemented by stochastic policies. Runners call Seed with
// the episode seed after Reset so an episode replays identically no
// matter which worker plays it.
type Seeder interface {
	Seed(seed int64)
}

// Params configures policies built by New.
type Params struct {
	Seed      int64
	Amplitude float64
	Frequency float64
	Actions   [][]float32
	// Hidden and WeightsFile configure the mlp policy. A weights file
	// carries its own layout and overrides Hidden.
	Hidden      []int
	WeightsFile string
}

var factories = map[string]func(Params) (Policy, error){
	"zero":  func(Params) (Policy, error) { return NewZero(), nil },
	"stand": func(Params) (Policy, error) { return NewStand(), nil },
	"random": func(p Params) (Policy, error) {
		return NewRandom(p.Seed), nil
	},
	"gait": func(p Params) (Policy, error) {
		return NewGait(p.Amplitude, p.Frequency), nil
	},
	"replay": func(p Params) (Policy, error) {
		return NewReplay(p.Actions)
	},
	"mlp": func(p Params) (Policy, error) {
		if p.WeightsFile != "" {
			return LoadMLP(p.WeightsFile)
		}
		return NewMLP(p.Hidden, p.Seed)
	},
}

// New builds a policy by name.
func New(name string, p Params) (Policy, error) {
	fn, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown policy: %s", name)
	}
	return fn(p)
}

func Names() []string {
	names := make([]string, 0, len(factories))
	for n := range factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

type Zero struct{}

func NewZero() *Zero { return &Zero{} }

func (z *Zero) Act(env.Observation, float64) []float32 { return make([]float32, env.ActionDim) }
func (z *Zero) Reset()                                 {}

// Replay plays back a fixed sequence, holding the last action once it
// runs out.
type Replay struct {
	actions [][]float32
	i       int
}

func NewReplay(actions [][]float32) (*Replay, error) {
	if len(actions) == 0 {
		return nil, fmt.Errorf("replay needs at least one action")
	}
	for i, a := range actions {
		if len(a) != env.ActionDim {
			return nil, fmt.Errorf("replay action %d: %w", i, &env.DimensionError{Want: env.ActionDim, Got: len(a)})
		}
	}
	return &Replay{actions: actions}, nil
}

func (r *Replay) Act(env.Observation, float64) []float32 {
	a := r.actions[r.i]
	if r.i < len(r.actions)-1 {
		r.i++
	}
	out := make([]float32, len(a))
	copy(out, a)
	return out
}

func (r *Replay) Reset() { r.i = 0 }
