package metrics

import (
	"github.com/san-kum/spotsim/internal/env"
)

// Transition is one environment step as seen by a metric.
type Transition struct {
	Step    int
	Time    float64
	Action  env.Action
	Reward  float64
	Terms   env.RewardTerms
	Reading env.Reading
	Command env.Command
	Status  env.Status
}

type Metric interface {
	Name() string
	Observe(tr Transition)
	Value() float64
	Reset()
}

// Default returns a fresh instance of every episode metric.
func Default() []Metric {
	return []Metric{
		NewReturn(),
		NewEpisodeLength(),
		NewControlEffort(),
		NewUprightness(DefaultUprightTolerance),
		NewCommandTracking(env.DefaultRewardConfig().CommandScale),
		NewMeanHeight(),
	}
}

// Snapshot collects current values keyed by metric name.
func Snapshot(ms []Metric) map[string]float64 {
	out := make(map[string]float64, len(ms))
	for _, m := range ms {
		out[m.Name()] = m.Value()
	}
	return out
}

func ResetAll(ms []Metric) {
	for _, m := range ms {
		m.Reset()
	}
}
