package env

import "math/rand"

// Space is a box of per-slot float32 bounds.
type Space struct {
	Low  []float32
	High []float32
}

func (s Space) Dim() int { return len(s.Low) }

// Contains reports whether v has the right length and lies in bounds.
// NaN is never contained.
func (s Space) Contains(v []float32) bool {
	if len(v) != len(s.Low) {
		return false
	}
	for i, x := range v {
		if !(x >= s.Low[i] && x <= s.High[i]) {
			return false
		}
	}
	return true
}

// Clip clamps v into the box in place. NaN becomes zero clamped into
// the slot's bounds.
func (s Space) Clip(v []float32) {
	for i := range v {
		if i >= len(s.Low) {
			return
		}
		x := v[i]
		if x != x {
			x = 0
		}
		if x < s.Low[i] {
			x = s.Low[i]
		} else if x > s.High[i] {
			x = s.High[i]
		}
		v[i] = x
	}
}

// Sample draws a point uniformly from the box.
func (s Space) Sample(rng *rand.Rand) []float32 {
	out := make([]float32, len(s.Low))
	for i := range out {
		out[i] = s.Low[i] + rng.Float32()*(s.High[i]-s.Low[i])
	}
	return out
}

// ObservationSpace returns the bounds of every observation slot.
func ObservationSpace() Space {
	s := Space{Low: make([]float32, ObservationDim), High: make([]float32, ObservationDim)}
	for _, slot := range Layout() {
		for i := slot.Offset; i < slot.Offset+slot.Size; i++ {
			s.Low[i], s.High[i] = slot.Low, slot.High
		}
	}
	return s
}

// ActionSpace returns [-pi, pi] on every joint.
func ActionSpace() Space {
	s := Space{Low: make([]float32, ActionDim), High: make([]float32, ActionDim)}
	for i := range s.Low {
		s.Low[i], s.High[i] = -AngleLimit, AngleLimit
	}
	return s
}
