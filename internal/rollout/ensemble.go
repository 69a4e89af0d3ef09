package rollout

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/spotsim/internal/env"
	"github.com/san-kum/spotsim/internal/policy"
)

// Factory builds the Env and Policy for one worker. Each call must return
// an Env backed by its own world.
type Factory func(worker int) (*env.Env, policy.Policy, error)

// Ensemble spreads episodes over independent workers. Worker w plays
// episodes w, w+Workers, ... so results do not depend on the worker count.
type Ensemble struct {
	Workers int
	Factory Factory
}

func (e *Ensemble) Run(ctx context.Context, cfg Config) (*Result, error) {
	if cfg.Episodes < 1 {
		return &Result{}, nil
	}
	workers := e.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > cfg.Episodes {
		workers = cfg.Episodes
	}

	type part struct {
		episodes []EpisodeSummary
		steps    []StepRecord
	}
	parts := make([]part, workers)

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		w := w
		g.Go(func() error {
			en, p, err := e.Factory(w)
			if err != nil {
				return fmt.Errorf("worker %d: %w", w, err)
			}
			defer en.Close()

			r := NewRunner(en, p)
			for i := w; i < cfg.Episodes; i += workers {
				sum, steps, err := r.RunEpisode(ctx, i, cfg)
				if err != nil {
					return err
				}
				parts[w].episodes = append(parts[w].episodes, sum)
				parts[w].steps = append(parts[w].steps, steps...)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{}
	for _, p := range parts {
		res.Episodes = append(res.Episodes, p.episodes...)
		res.Steps = append(res.Steps, p.steps...)
	}
	sort.Slice(res.Episodes, func(i, j int) bool { return res.Episodes[i].Index < res.Episodes[j].Index })
	sort.SliceStable(res.Steps, func(i, j int) bool { return res.Steps[i].Episode < res.Steps[j].Episode })
	return res, nil
}
