package rollout

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/spotsim/internal/config"
	"github.com/san-kum/spotsim/internal/env"
	"github.com/san-kum/spotsim/internal/policy"
)

func shortConfig(policyName string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Env.Limits.MaxSteps = 30
	cfg.Env.SuccessSteps = 20
	cfg.Rollout.Policy = policyName
	cfg.Rollout.Episodes = 4
	cfg.Seed = 7
	return cfg
}

func TestRunnerTruncatesEpisodes(t *testing.T) {
	reg := NewRegistry(shortConfig("zero"))
	e, err := reg.NewEnv(1)
	require.NoError(t, err)
	defer e.Close()
	p, err := reg.NewPolicy(1)
	require.NoError(t, err)

	res, err := NewRunner(e, p).Run(context.Background(), Config{Episodes: 2, Seed: 3, Record: true})
	require.NoError(t, err)
	require.Len(t, res.Episodes, 2)
	assert.Len(t, res.Steps, 60)

	for i, ep := range res.Episodes {
		assert.Equal(t, i, ep.Index)
		assert.Equal(t, int64(3+i), ep.Seed)
		assert.Equal(t, 30, ep.Length)
		assert.Equal(t, env.Truncated, ep.Status)
		assert.True(t, ep.Success)
		assert.Equal(t, float64(30), ep.Metrics["length"])
		assert.InDelta(t, ep.Return, ep.Metrics["return"], 1e-9)
	}
	assert.Equal(t, 1.0, res.SuccessRate())
	assert.Equal(t, 30.0, res.MeanLength())
	assert.Equal(t, 2, res.StatusCounts()[env.Truncated])
	assert.Equal(t, 1, res.Steps[0].Step)
	assert.Equal(t, 1, res.Steps[30].Episode)
}

func TestRunnerFixedCommand(t *testing.T) {
	reg := NewRegistry(shortConfig("stand"))
	e, err := reg.NewEnv(1)
	require.NoError(t, err)
	defer e.Close()
	p, _ := reg.NewPolicy(1)

	cmd := env.Command{VX: 0.5}
	res, err := NewRunner(e, p).Run(context.Background(), Config{Episodes: 1, Command: &cmd})
	require.NoError(t, err)
	assert.Equal(t, cmd, res.Episodes[0].Command)
}

func TestRunnerCancelled(t *testing.T) {
	reg := NewRegistry(shortConfig("zero"))
	e, err := reg.NewEnv(1)
	require.NoError(t, err)
	defer e.Close()
	p, _ := reg.NewPolicy(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewRunner(e, p).Run(ctx, Config{Episodes: 1})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEnsembleMatchesSerialRun(t *testing.T) {
	cfg := shortConfig("random")
	cfg.Rollout.Episodes = 5

	cfg.Rollout.Workers = 1
	serial, err := NewRegistry(cfg).Ensemble().Run(context.Background(), NewRegistry(cfg).RunConfig(false))
	require.NoError(t, err)

	cfg.Rollout.Workers = 3
	parallel, err := NewRegistry(cfg).Ensemble().Run(context.Background(), NewRegistry(cfg).RunConfig(false))
	require.NoError(t, err)

	require.Len(t, parallel.Episodes, 5)
	for i := range serial.Episodes {
		assert.Equal(t, i, parallel.Episodes[i].Index)
		assert.Equal(t, serial.Episodes[i].Command, parallel.Episodes[i].Command)
		assert.Equal(t, serial.Episodes[i].Seed, parallel.Episodes[i].Seed)
		assert.InDelta(t, serial.Episodes[i].Return, parallel.Episodes[i].Return, 1e-9)
		assert.Equal(t, serial.Episodes[i].Length, parallel.Episodes[i].Length)
	}
}

func TestEnsembleNoEpisodes(t *testing.T) {
	reg := NewRegistry(shortConfig("zero"))
	for _, n := range []int{0, -3} {
		res, err := reg.Ensemble().Run(context.Background(), Config{Episodes: n})
		require.NoError(t, err)
		assert.Empty(t, res.Episodes)
		assert.Empty(t, res.Steps)
	}
}

func TestEnsembleRecordsStepsInEpisodeOrder(t *testing.T) {
	cfg := shortConfig("zero")
	cfg.Rollout.Workers = 2
	reg := NewRegistry(cfg)
	res, err := reg.Ensemble().Run(context.Background(), reg.RunConfig(true))
	require.NoError(t, err)
	require.Len(t, res.Steps, 4*30)
	for i := 1; i < len(res.Steps); i++ {
		assert.LessOrEqual(t, res.Steps[i-1].Episode, res.Steps[i].Episode)
	}
}

func TestRegistryErrors(t *testing.T) {
	cfg := shortConfig("lqr")
	_, err := NewRegistry(cfg).NewPolicy(1)
	assert.Error(t, err)

	_, err = NewRegistry(cfg).Ensemble().Run(context.Background(), Config{Episodes: 1})
	assert.Error(t, err)

	replay := NewRegistry(shortConfig("replay")).WithReplay([][]float32{make([]float32, env.ActionDim)})
	_, err = replay.NewPolicy(1)
	assert.NoError(t, err)
}

func TestRegistryParams(t *testing.T) {
	p, err := NewRegistry(shortConfig("gait")).
		WithParams(map[string]float64{"amplitude": 0.1}).
		NewPolicy(1)
	require.NoError(t, err)
	assert.Equal(t, 0.1, p.(*policy.Gait).Amplitude)

	_, err = NewRegistry(shortConfig("gait")).WithParams(map[string]float64{"bogus": 1}).NewPolicy(1)
	assert.Error(t, err)

	_, err = NewRegistry(shortConfig("zero")).WithParams(map[string]float64{"amplitude": 1}).NewPolicy(1)
	assert.Error(t, err)
}

func TestMLPRollout(t *testing.T) {
	cfg := shortConfig("mlp")
	cfg.Rollout.Hidden = []int{16}
	cfg.Rollout.Episodes = 3

	cfg.Rollout.Workers = 1
	serial, err := NewRegistry(cfg).Ensemble().Run(context.Background(), NewRegistry(cfg).RunConfig(false))
	require.NoError(t, err)
	require.Len(t, serial.Episodes, 3)

	cfg.Rollout.Workers = 3
	parallel, err := NewRegistry(cfg).Ensemble().Run(context.Background(), NewRegistry(cfg).RunConfig(false))
	require.NoError(t, err)
	for i, ep := range serial.Episodes {
		assert.Positive(t, ep.Length)
		assert.InDelta(t, ep.Return, parallel.Episodes[i].Return, 1e-9, "episode %d", i)
	}
}

func TestMLPRolloutFromWeightsFile(t *testing.T) {
	m, err := policy.NewMLP([]int{8}, 3)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "weights.yaml")
	require.NoError(t, policy.SaveMLP(path, m))

	cfg := shortConfig("mlp")
	cfg.Rollout.Weights = path
	reg := NewRegistry(cfg)
	p, err := reg.NewPolicy(1)
	require.NoError(t, err)
	assert.Equal(t, m.Params(), p.(*policy.MLP).Params())

	res, err := reg.Ensemble().Run(context.Background(), reg.RunConfig(false))
	require.NoError(t, err)
	assert.Len(t, res.Episodes, cfg.Rollout.Episodes)

	cfg.Rollout.Weights = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = NewRegistry(cfg).NewPolicy(1)
	assert.Error(t, err)
}
