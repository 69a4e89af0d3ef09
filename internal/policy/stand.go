package policy

import "github.com/san-kum/spotsim/internal/env"

// Standing angles per leg, in JointNames order.
const (
	StandHip   = 0.5
	StandUpper = 0.7
	StandLower = -1.8
)

// StandingPose returns the default pose. Left hips splay outward with a
// positive angle, right hips with a negative one.
func StandingPose() env.Action {
	var a env.Action
	for leg := 0; leg < 4; leg++ {
		hip := float32(StandHip)
		if leg%2 == 1 {
			hip = -hip
		}
		a[leg*3] = hip
		a[leg*3+1] = StandUpper
		a[leg*3+2] = StandLower
	}
	return a
}

// Stand holds the standing pose.
type Stand struct {
	pose env.Action
}

func NewStand() *Stand { return &Stand{pose: StandingPose()} }

func (s *Stand) Act(env.Observation, float64) []float32 {
	out := make([]float32, env.ActionDim)
	copy(out, s.pose[:])
	return out
}

func (s *Stand) Reset() {}
