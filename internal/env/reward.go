package env

import (
	"fmt"
	"math"

	"github.com/san-kum/spotsim/internal/physics"
)

// RewardWeights scale each reward term before summation.
type RewardWeights struct {
	Alive       float64 `yaml:"alive"`
	Velocity    float64 `yaml:"velocity"`
	Orientation float64 `yaml:"orientation"`
	Energy      float64 `yaml:"energy"`
	HeightBand  float64 `yaml:"height_band"`
}

// RewardConfig holds the reward constants.
//
// The alive threshold sits below the height band, so a body between
// AliveHeight and BandLow is both alive and penalised.
type RewardConfig struct {
	AliveHeight  float64       `yaml:"alive_height"`
	AliveBonus   float64       `yaml:"alive_bonus"`
	CommandScale float64       `yaml:"command_scale"`
	EnergyCoef   float64       `yaml:"energy_coef"`
	BandLow      float64       `yaml:"band_low"`
	BandHigh     float64       `yaml:"band_high"`
	BandBonus    float64       `yaml:"band_bonus"`
	BandPenalty  float64       `yaml:"band_penalty"`
	Weights      RewardWeights `yaml:"weights"`
}

func DefaultRewardConfig() RewardConfig {
	return RewardConfig{
		AliveHeight:  0.15,
		AliveBonus:   1.0,
		CommandScale: 0.5,
		EnergyCoef:   0.01,
		BandLow:      0.2,
		BandHigh:     0.5,
		BandBonus:    0.5,
		BandPenalty:  -1.0,
		Weights: RewardWeights{
			Alive:       1.0,
			Velocity:    2.0,
			Orientation: 0.5,
			Energy:      1.0,
			HeightBand:  0.5,
		},
	}
}

func (c RewardConfig) Validate() error {
	if c.BandLow >= c.BandHigh {
		return fmt.Errorf("height band [%g, %g] is empty", c.BandLow, c.BandHigh)
	}
	if c.EnergyCoef < 0 {
		return fmt.Errorf("energy coefficient must be >= 0, got %g", c.EnergyCoef)
	}
	return nil
}

// RewardTerms are the unweighted components of one step's reward.
type RewardTerms struct {
	Alive       float64 `json:"alive"`
	Velocity    float64 `json:"velocity"`
	Orientation float64 `json:"orientation"`
	Energy      float64 `json:"energy"`
	HeightBand  float64 `json:"height_band"`

	weights RewardWeights
}

// Total is the weighted sum of the terms.
func (t RewardTerms) Total() float64 {
	w := t.weights
	return w.Alive*t.Alive +
		w.Velocity*t.Velocity +
		w.Orientation*t.Orientation +
		w.Energy*t.Energy +
		w.HeightBand*t.HeightBand
}

// RewardShaper scores a post-step state. It is a pure function of its
// inputs.
type RewardShaper struct {
	cfg RewardConfig
}

func NewRewardShaper(cfg RewardConfig) *RewardShaper {
	return &RewardShaper{cfg: cfg}
}

func (s *RewardShaper) Config() RewardConfig { return s.cfg }

// Reward computes the terms for a state. A non-finite state scores zero
// on every term.
func (s *RewardShaper) Reward(pose physics.Pose, vel physics.Velocity, cmd Command, prev Action) RewardTerms {
	c := s.cfg
	terms := RewardTerms{weights: c.Weights}
	if !pose.Finite() || !vel.Finite() {
		return terms
	}

	h := pose.Position.Z
	if h > c.AliveHeight {
		terms.Alive = c.AliveBonus
	}

	target := float64(cmd.VX) * c.CommandScale
	terms.Velocity = -math.Abs(vel.Linear.X - target)

	roll, pitch, _ := physics.EulerFromQuaternion(pose.Orientation)
	terms.Orientation = -(math.Abs(roll) + math.Abs(pitch))

	var sq float64
	for _, a := range prev {
		sq += float64(a) * float64(a)
	}
	terms.Energy = -c.EnergyCoef * sq

	if h > c.BandLow && h < c.BandHigh {
		terms.HeightBand = c.BandBonus
	} else {
		terms.HeightBand = c.BandPenalty
	}
	return terms
}
