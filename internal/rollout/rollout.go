package rollout

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/san-kum/spotsim/internal/env"
	"github.com/san-kum/spotsim/internal/logging"
	"github.com/san-kum/spotsim/internal/metrics"
	"github.com/san-kum/spotsim/internal/physics"
	"github.com/san-kum/spotsim/internal/policy"
)

type Config struct {
	Episodes int
	Seed     int64
	// Record keeps a StepRecord for every step of every episode.
	Record bool
	// Command fixes the episode command instead of sampling one.
	Command *env.Command
}

// StepRecord is the flattened per-step row written to steps.csv.
type StepRecord struct {
	Episode int
	Step    int
	Time    float64
	Reward  float64
	Height  float64
	Roll    float64
	Pitch   float64
	VX      float64
	Status  env.Status
	Action  env.Action
}

type EpisodeSummary struct {
	Index    int                `json:"index"`
	Seed     int64              `json:"seed"`
	Command  env.Command        `json:"command"`
	Return   float64            `json:"return"`
	Length   int                `json:"length"`
	Status   env.Status         `json:"status"`
	Success  bool               `json:"success"`
	Metrics  map[string]float64 `json:"metrics"`
	Duration time.Duration      `json:"duration"`
}

type Result struct {
	Episodes []EpisodeSummary
	Steps    []StepRecord
}

func (r *Result) MeanReturn() float64 {
	if len(r.Episodes) == 0 {
		return 0
	}
	var s float64
	for _, e := range r.Episodes {
		s += e.Return
	}
	return s / float64(len(r.Episodes))
}

func (r *Result) MeanLength() float64 {
	if len(r.Episodes) == 0 {
		return 0
	}
	var s int
	for _, e := range r.Episodes {
		s += e.Length
	}
	return float64(s) / float64(len(r.Episodes))
}

func (r *Result) SuccessRate() float64 {
	if len(r.Episodes) == 0 {
		return 0
	}
	n := 0
	for _, e := range r.Episodes {
		if e.Success {
			n++
		}
	}
	return float64(n) / float64(len(r.Episodes))
}

// StatusCounts tallies final episode statuses.
func (r *Result) StatusCounts() map[env.Status]int {
	out := make(map[env.Status]int)
	for _, e := range r.Episodes {
		out[e.Status]++
	}
	return out
}

// Runner drives one Env with one Policy.
type Runner struct {
	env     *env.Env
	policy  policy.Policy
	metrics []metrics.Metric
	log     *logrus.Entry
}

// NewRunner uses metrics.Default when no metrics are given.
func NewRunner(e *env.Env, p policy.Policy, ms ...metrics.Metric) *Runner {
	if len(ms) == 0 {
		ms = metrics.Default()
	}
	return &Runner{env: e, policy: p, metrics: ms, log: logging.ForComponent("rollout")}
}

// Run plays cfg.Episodes episodes. Episode i is seeded cfg.Seed+i.
func (r *Runner) Run(ctx context.Context, cfg Config) (*Result, error) {
	res := &Result{}
	for i := 0; i < cfg.Episodes; i++ {
		sum, steps, err := r.RunEpisode(ctx, i, cfg)
		if err != nil {
			return res, err
		}
		res.Episodes = append(res.Episodes, sum)
		res.Steps = append(res.Steps, steps...)
	}
	return res, nil
}

// RunEpisode plays a single episode to termination or truncation.
// Cancellation is checked between steps.
func (r *Runner) RunEpisode(ctx context.Context, index int, cfg Config) (EpisodeSummary, []StepRecord, error) {
	start := time.Now()
	seed := cfg.Seed + int64(index)
	obs, info, err := r.env.Reset(env.ResetOptions{Seed: &seed, Command: cfg.Command})
	if err != nil {
		return EpisodeSummary{}, nil, fmt.Errorf("episode %d: %w", index, err)
	}
	r.policy.Reset()
	if s, ok := r.policy.(policy.Seeder); ok {
		s.Seed(seed)
	}
	metrics.ResetAll(r.metrics)

	sum := EpisodeSummary{Index: index, Seed: seed, Command: info.Command}
	var steps []StepRecord
	dt := r.env.Config().Dt

	for {
		select {
		case <-ctx.Done():
			return sum, steps, ctx.Err()
		default:
		}

		t := float64(r.env.StepIndex()) * dt
		res, err := r.env.Step(r.policy.Act(obs, t))
		if err != nil {
			return sum, steps, fmt.Errorf("episode %d step %d: %w", index, r.env.StepIndex(), err)
		}
		obs = res.Observation
		reading := r.env.Reading()

		tr := metrics.Transition{
			Step:    res.Info.StepIndex,
			Time:    float64(res.Info.StepIndex) * dt,
			Action:  obs.PrevAction(),
			Reward:  res.Reward,
			Terms:   res.Info.Terms,
			Reading: reading,
			Command: res.Info.Command,
			Status:  res.Info.Status,
		}
		for _, m := range r.metrics {
			m.Observe(tr)
		}
		if cfg.Record {
			steps = append(steps, record(index, tr))
		}

		sum.Return += res.Reward
		sum.Length = res.Info.StepIndex
		sum.Status = res.Info.Status
		sum.Success = res.Info.Success
		if res.Terminated || res.Truncated {
			break
		}
	}

	sum.Metrics = metrics.Snapshot(r.metrics)
	sum.Duration = time.Since(start)
	r.log.WithFields(logrus.Fields{
		"episode": index,
		"return":  fmt.Sprintf("%.3f", sum.Return),
		"length":  sum.Length,
		"status":  sum.Status.String(),
	}).Info("episode finished")
	return sum, steps, nil
}

func record(episode int, tr metrics.Transition) StepRecord {
	rec := StepRecord{
		Episode: episode,
		Step:    tr.Step,
		Time:    tr.Time,
		Reward:  tr.Reward,
		Height:  tr.Reading.Pose.Position.Z,
		VX:      tr.Reading.Velocity.Linear.X,
		Status:  tr.Status,
		Action:  tr.Action,
	}
	if tr.Reading.Pose.Finite() {
		rec.Roll, rec.Pitch, _ = physics.EulerFromQuaternion(tr.Reading.Pose.Orientation)
	} else {
		rec.Roll, rec.Pitch = math.NaN(), math.NaN()
	}
	return rec
}
