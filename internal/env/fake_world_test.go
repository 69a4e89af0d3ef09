package env

import (
	"errors"

	"github.com/san-kum/spotsim/internal/dynamo"
	"github.com/san-kum/spotsim/internal/physics"
)

type target struct {
	joint      int
	angle      float64
	p, d, maxF float64
}

// fakeWorld is a scriptable physics.World. Joint indices start at 100 so
// tests notice when slots and physics indices get confused.
type fakeWorld struct {
	names    []string
	pose     physics.Pose
	vel      physics.Velocity
	angles   map[int]float64
	targets  []target
	handle   physics.BodyHandle
	live     map[physics.BodyHandle]bool
	loads    int
	removes  int
	advances int
	closes   int
	closed   bool
	loadErr  error

	// onAdvance runs after each Advance to script the body's motion.
	onAdvance func(w *fakeWorld)
}

func newFakeWorld() *fakeWorld {
	return &fakeWorld{
		names:  JointNames[:],
		angles: map[int]float64{},
		live:   map[physics.BodyHandle]bool{},
	}
}

func (w *fakeWorld) LoadBody(pose physics.Pose) (physics.BodyHandle, error) {
	if w.closed {
		return 0, dynamo.ErrClosed
	}
	if w.loadErr != nil {
		return 0, w.loadErr
	}
	w.loads++
	w.handle++
	w.live[w.handle] = true
	w.pose = pose
	w.vel = physics.Velocity{}
	w.angles = map[int]float64{}
	return w.handle, nil
}

func (w *fakeWorld) check(h physics.BodyHandle) error {
	if w.closed {
		return dynamo.ErrClosed
	}
	if !w.live[h] {
		return dynamo.ErrUnknownBody
	}
	return nil
}

func (w *fakeWorld) RemoveBody(h physics.BodyHandle) error {
	if err := w.check(h); err != nil {
		return err
	}
	w.removes++
	delete(w.live, h)
	return nil
}

func (w *fakeWorld) Joints(h physics.BodyHandle) ([]physics.JointInfo, error) {
	if err := w.check(h); err != nil {
		return nil, err
	}
	out := make([]physics.JointInfo, len(w.names))
	for i, n := range w.names {
		out[i] = physics.JointInfo{Index: 100 + i, Name: n, Lower: -3, Upper: 3}
	}
	return out, nil
}

func (w *fakeWorld) SetJointTarget(h physics.BodyHandle, joint int, angle, p, d, maxF float64) error {
	if err := w.check(h); err != nil {
		return err
	}
	w.targets = append(w.targets, target{joint, angle, p, d, maxF})
	return nil
}

func (w *fakeWorld) Advance(dt float64) error {
	if w.closed {
		return dynamo.ErrClosed
	}
	if dt <= 0 {
		return errors.New("fake: bad dt")
	}
	w.advances++
	if w.onAdvance != nil {
		w.onAdvance(w)
	}
	return nil
}

func (w *fakeWorld) BodyPose(h physics.BodyHandle) (physics.Pose, error) {
	return w.pose, w.check(h)
}

func (w *fakeWorld) BodyVelocity(h physics.BodyHandle) (physics.Velocity, error) {
	return w.vel, w.check(h)
}

func (w *fakeWorld) JointStates(h physics.BodyHandle, joints []int) ([]physics.JointState, error) {
	if err := w.check(h); err != nil {
		return nil, err
	}
	out := make([]physics.JointState, len(joints))
	for i, j := range joints {
		out[i] = physics.JointState{Angle: w.angles[j]}
	}
	return out, nil
}

func (w *fakeWorld) Close() error {
	w.closes++
	w.closed = true
	return nil
}

var _ physics.World = (*fakeWorld)(nil)
