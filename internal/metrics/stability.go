package metrics

import (
	"math"

	"github.com/san-kum/spotsim/internal/physics"
)

const DefaultUprightTolerance = 0.2

// Uprightness is the fraction of steps with roll and pitch both inside
// the tolerance.
type Uprightness struct {
	name      string
	tolerance float64
	upright   int
	samples   int
}

func NewUprightness(tolerance float64) *Uprightness {
	return &Uprightness{
		name:      "uprightness",
		tolerance: tolerance,
	}
}

func (u *Uprightness) Name() string {
	return u.name
}

func (u *Uprightness) Observe(tr Transition) {
	u.samples++
	if !tr.Reading.Pose.Finite() {
		return
	}
	roll, pitch, _ := physics.EulerFromQuaternion(tr.Reading.Pose.Orientation)
	if math.Abs(roll) < u.tolerance && math.Abs(pitch) < u.tolerance {
		u.upright++
	}
}

func (u *Uprightness) Value() float64 {
	if u.samples == 0 {
		return 1.0
	}
	return float64(u.upright) / float64(u.samples)
}

func (u *Uprightness) Reset() {
	u.upright = 0
	u.samples = 0
}

// MeanHeight averages the finite base heights seen.
type MeanHeight struct {
	sum     float64
	samples int
}

func NewMeanHeight() *MeanHeight { return &MeanHeight{} }

func (m *MeanHeight) Name() string { return "mean_height" }

func (m *MeanHeight) Observe(tr Transition) {
	z := tr.Reading.Pose.Position.Z
	if math.IsNaN(z) || math.IsInf(z, 0) {
		return
	}
	m.sum += z
	m.samples++
}

func (m *MeanHeight) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return m.sum / float64(m.samples)
}

func (m *MeanHeight) Reset() {
	m.sum = 0
	m.samples = 0
}
