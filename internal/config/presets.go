package config

import (
	"sort"

	"github.com/san-kum/spotsim/internal/env"
)

var presets = map[string]func(*Config){
	"default": func(*Config) {},
	"stand": func(c *Config) {
		c.Rollout.Policy = "stand"
		c.Rollout.Episodes = 5
		c.Env.Commands = env.CommandRanges{}
	},
	"trot": func(c *Config) {
		c.Rollout.Policy = "gait"
		c.Rollout.Amplitude = 0.35
		c.Rollout.Frequency = 2.5
		c.Env.Commands = env.CommandRanges{VX: env.Range{Min: 0.5, Max: 1}}
	},
	"stress": func(c *Config) {
		c.Rollout.Policy = "random"
		c.Rollout.Episodes = 40
		c.Rollout.Workers = 4
		c.World.Integrator = "euler"
		c.World.SubSteps = 8
	},
}

// GetPreset returns the defaults with the named preset applied, or nil.
func GetPreset(name string) *Config {
	apply, ok := presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	apply(cfg)
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
