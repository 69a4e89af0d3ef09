package env

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/san-kum/spotsim/internal/dynamo"
	"github.com/san-kum/spotsim/internal/logging"
	"github.com/san-kum/spotsim/internal/physics"
)

// Config collects every tunable of an Env.
type Config struct {
	Dt           float64       `yaml:"dt"`
	SuccessSteps int           `yaml:"success_steps"`
	SpawnHeight  float64       `yaml:"spawn_height"`
	Gains        Gains         `yaml:"gains"`
	Commands     CommandRanges `yaml:"commands"`
	Limits       EpisodeLimits `yaml:"limits"`
	Reward       RewardConfig  `yaml:"reward"`
}

func DefaultConfig() Config {
	return Config{
		Dt:           1.0 / 120.0,
		SuccessSteps: 500,
		SpawnHeight:  0.3,
		Gains:        DefaultGains(),
		Commands:     DefaultCommandRanges(),
		Limits:       DefaultEpisodeLimits(),
		Reward:       DefaultRewardConfig(),
	}
}

func (c Config) Validate() error {
	if c.Dt <= 0 {
		return fmt.Errorf("dt must be > 0, got %g", c.Dt)
	}
	if c.Limits.MaxSteps <= 0 {
		return fmt.Errorf("max steps must be > 0, got %d", c.Limits.MaxSteps)
	}
	if c.SpawnHeight <= 0 {
		return fmt.Errorf("spawn height must be > 0, got %g", c.SpawnHeight)
	}
	if c.Gains.MaxForce <= 0 {
		return fmt.Errorf("max force must be > 0, got %g", c.Gains.MaxForce)
	}
	if err := c.Commands.Validate(); err != nil {
		return err
	}
	return c.Reward.Validate()
}

// Info carries per-step diagnostics.
type Info struct {
	StepIndex     int
	Success       bool
	Status        Status
	Terms         RewardTerms
	Command       Command
	MissingJoints []string
}

type StepResult struct {
	Observation Observation
	Reward      float64
	Terminated  bool
	Truncated   bool
	Info        Info
}

// ResetOptions override the episode command and reseed the generator.
// Nil fields keep the defaults.
type ResetOptions struct {
	Command *Command
	Seed    *int64
}

type Option func(*Env)

func WithConfig(cfg Config) Option {
	return func(e *Env) { e.cfg = cfg }
}

func WithLogger(log *logrus.Entry) Option {
	return func(e *Env) { e.log = log }
}

func WithRand(rng *rand.Rand) Option {
	return func(e *Env) { e.rng = rng }
}

// Env runs episodes of one robot in one world. It is not safe for
// concurrent use.
type Env struct {
	world physics.World
	cfg   Config
	log   *logrus.Entry
	rng   *rand.Rand

	encoder *ObservationEncoder
	applier *ActionApplier
	shaper  *RewardShaper
	episode EpisodeController

	body    physics.BodyHandle
	loaded  bool
	closed  bool
	joints  JointMap
	command Command
	prev    Action
	step    int
	reading Reading
}

// New wraps world. The Env takes ownership and closes it on Close.
func New(world physics.World, opts ...Option) (*Env, error) {
	if world == nil {
		return nil, errors.New("env: nil world")
	}
	e := &Env{world: world, cfg: DefaultConfig()}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("env config: %w", err)
	}
	if e.log == nil {
		e.log = logging.ForComponent("env")
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	e.encoder = NewObservationEncoder(e.log)
	e.applier = NewActionApplier(e.cfg.Gains)
	e.shaper = NewRewardShaper(e.cfg.Reward)
	e.episode = EpisodeController{Limits: e.cfg.Limits}
	return e, nil
}

func (e *Env) Config() Config          { return e.cfg }
func (e *Env) Command() Command        { return e.command }
func (e *Env) StepIndex() int          { return e.step }
func (e *Env) JointMap() JointMap      { return e.joints }
func (e *Env) ObservationSpace() Space { return ObservationSpace() }
func (e *Env) ActionSpace() Space      { return ActionSpace() }

// Reading returns the last snapshot taken from the world.
func (e *Env) Reading() Reading { return e.reading }

// Reset spawns a fresh robot and returns the first observation. The
// previous body, if any, is removed first.
func (e *Env) Reset(opts ResetOptions) (Observation, Info, error) {
	if e.closed {
		return Observation{}, Info{}, dynamo.ErrClosed
	}
	if opts.Seed != nil {
		e.rng = rand.New(rand.NewSource(*opts.Seed))
	}
	if e.loaded {
		if err := e.world.RemoveBody(e.body); err != nil {
			e.log.WithError(err).Warn("removing previous body")
		}
		e.loaded = false
	}

	h, err := e.world.LoadBody(physics.SpawnPose(e.cfg.SpawnHeight))
	if err != nil {
		return Observation{}, Info{}, fmt.Errorf("load body: %w", err)
	}
	e.body, e.loaded = h, true

	infos, err := e.world.Joints(h)
	if err != nil {
		return Observation{}, Info{}, fmt.Errorf("enumerate joints: %w", err)
	}
	e.joints = ResolveJoints(infos, JointNames, e.log)

	if opts.Command != nil {
		e.command = opts.Command.Clamp()
	} else {
		e.command = SampleCommand(e.rng, e.cfg.Commands)
	}
	e.prev = Action{}
	e.step = 0

	if err := e.read(); err != nil {
		return Observation{}, Info{}, err
	}
	obs := e.encoder.Encode(e.reading, e.prev, e.command)

	e.log.WithFields(logrus.Fields{
		"command": e.command.String(),
		"joints":  e.joints.Count(),
	}).Debug("reset")

	return obs, Info{
		Status:        Running,
		Command:       e.command,
		MissingJoints: e.joints.Missing(),
	}, nil
}

// Step applies action, advances one control period and scores the
// result. A non-finite world state ends the episode as diverged rather
// than returning an error.
func (e *Env) Step(action []float32) (StepResult, error) {
	if e.closed {
		return StepResult{}, dynamo.ErrClosed
	}
	if !e.loaded {
		return StepResult{}, ErrNotReset
	}
	act, err := ActionFromSlice(action)
	if err != nil {
		return StepResult{}, err
	}

	applied, err := e.applier.Apply(e.world, e.body, e.joints, act)
	if err != nil {
		return StepResult{}, err
	}
	if err := e.world.Advance(e.cfg.Dt); err != nil {
		return StepResult{}, &dynamo.SimError{Step: e.step, Time: float64(e.step) * e.cfg.Dt, Wrapped: err}
	}
	e.prev = applied
	e.step++

	if err := e.read(); err != nil {
		return StepResult{}, err
	}
	obs := e.encoder.Encode(e.reading, e.prev, e.command)
	terms := e.shaper.Reward(e.reading.Pose, e.reading.Velocity, e.command, e.prev)

	status := e.episode.Evaluate(e.reading.Pose, e.step)
	if status != TerminatedDiverged && !e.reading.Velocity.Finite() {
		status = TerminatedDiverged
	}
	if status == TerminatedDiverged {
		e.log.WithField("step", e.step).Warn("simulation diverged")
	}

	return StepResult{
		Observation: obs,
		Reward:      terms.Total(),
		Terminated:  status.Terminated(),
		Truncated:   status.Truncated(),
		Info: Info{
			StepIndex: e.step,
			Success:   !status.Terminated() && e.step > e.cfg.SuccessSteps,
			Status:    status,
			Terms:     terms,
			Command:   e.command,
		},
	}, nil
}

// Close releases the world. Calling it again is a no-op.
func (e *Env) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	e.loaded = false
	return e.world.Close()
}

func (e *Env) read() error {
	pose, err := e.world.BodyPose(e.body)
	if err != nil {
		return fmt.Errorf("read pose: %w", err)
	}
	vel, err := e.world.BodyVelocity(e.body)
	if err != nil {
		return fmt.Errorf("read velocity: %w", err)
	}
	r := Reading{Pose: pose, Velocity: vel}
	slots, indices := e.joints.Resolved()
	if len(indices) > 0 {
		states, err := e.world.JointStates(e.body, indices)
		if err != nil {
			return fmt.Errorf("read joints: %w", err)
		}
		if len(states) != len(indices) {
			return &DimensionError{Want: len(indices), Got: len(states)}
		}
		for i, slot := range slots {
			r.Joints[slot] = states[i]
			r.Resolved[slot] = true
		}
	}
	e.reading = r
	return nil
}
