package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/spotsim/internal/env"
	"github.com/san-kum/spotsim/internal/physics"
)

const (
	DefaultDataDir  = ".spotsim"
	DefaultPolicy   = "stand"
	DefaultEpisodes = 10
	DefaultWorkers  = 1
	DefaultSeed     = 1

	EnvDataDir  = "SPOTSIM_DATA"
	EnvLogLevel = "SPOTSIM_LOG_LEVEL"
	EnvSeed     = "SPOTSIM_SEED"
)

type Config struct {
	Robot   string        `yaml:"robot,omitempty"`
	Seed    int64         `yaml:"seed"`
	Env     env.Config    `yaml:"env"`
	World   WorldConfig   `yaml:"world"`
	Rollout RolloutConfig `yaml:"rollout"`
	Log     LogConfig     `yaml:"log"`
}

// WorldConfig is the tunable subset of the built-in physics world.
type WorldConfig struct {
	Integrator       string  `yaml:"integrator"`
	SubSteps         int     `yaml:"sub_steps"`
	ContactStiffness float64 `yaml:"contact_stiffness"`
	ContactDamping   float64 `yaml:"contact_damping"`
	Friction         float64 `yaml:"friction"`
	FrictionCoeff    float64 `yaml:"friction_coeff"`
	GainScale        float64 `yaml:"gain_scale"`
}

type RolloutConfig struct {
	Policy    string  `yaml:"policy"`
	Episodes  int     `yaml:"episodes"`
	Workers   int     `yaml:"workers"`
	Amplitude float64 `yaml:"amplitude"`
	Frequency float64 `yaml:"frequency"`
	Weights   string  `yaml:"weights,omitempty"`
	Hidden    []int   `yaml:"hidden,omitempty,flow"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func DefaultConfig() *Config {
	w := physics.DefaultWorldConfig()
	return &Config{
		Seed: DefaultSeed,
		Env:  env.DefaultConfig(),
		World: WorldConfig{
			Integrator:       w.Integrator,
			SubSteps:         w.SubSteps,
			ContactStiffness: w.ContactStiffness,
			ContactDamping:   w.ContactDamping,
			Friction:         w.Friction,
			FrictionCoeff:    w.FrictionCoeff,
			GainScale:        w.GainScale,
		},
		Rollout: RolloutConfig{
			Policy:    DefaultPolicy,
			Episodes:  DefaultEpisodes,
			Workers:   DefaultWorkers,
			Amplitude: 0.3,
			Frequency: 2.0,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if err := c.Env.Validate(); err != nil {
		return err
	}
	if err := c.Physics().Validate(); err != nil {
		return err
	}
	if c.Rollout.Episodes < 1 {
		return fmt.Errorf("episodes must be at least 1, got %d", c.Rollout.Episodes)
	}
	for _, n := range c.Rollout.Hidden {
		if n < 1 {
			return fmt.Errorf("hidden layer sizes must be at least 1, got %v", c.Rollout.Hidden)
		}
	}
	if c.Rollout.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Rollout.Workers)
	}
	return nil
}

// Physics overlays the tunables on the built-in world defaults.
func (c *Config) Physics() physics.WorldConfig {
	w := physics.DefaultWorldConfig()
	w.Integrator = c.World.Integrator
	w.SubSteps = c.World.SubSteps
	w.ContactStiffness = c.World.ContactStiffness
	w.ContactDamping = c.World.ContactDamping
	w.Friction = c.World.Friction
	w.FrictionCoeff = c.World.FrictionCoeff
	w.GainScale = c.World.GainScale
	return w
}

// LoadRobot reads the configured description, or the embedded one when
// none is set.
func (c *Config) LoadRobot() (*physics.Robot, error) {
	if c.Robot == "" {
		return physics.DefaultRobot(), nil
	}
	return physics.LoadURDF(c.Robot)
}

// NewWorld builds a fresh built-in world from the configuration.
func (c *Config) NewWorld() (*physics.Sim, error) {
	robot, err := c.LoadRobot()
	if err != nil {
		return nil, err
	}
	return physics.NewWorld(robot, c.Physics())
}

// LoadEnvFile loads KEY=VALUE pairs into the process environment. A
// missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields from SPOTSIM_* variables.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(EnvSeed); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvSeed, err)
		}
		c.Seed = seed
	}
	return nil
}

// DataDir returns SPOTSIM_DATA or the default run directory.
func DataDir() string {
	if v := os.Getenv(EnvDataDir); v != "" {
		return v
	}
	return DefaultDataDir
}
