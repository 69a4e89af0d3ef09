package physics

import (
	"errors"
	"fmt"

	"github.com/san-kum/spotsim/internal/dynamo"
	"github.com/san-kum/spotsim/internal/integrators"
	"github.com/san-kum/spotsim/internal/logging"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/spatial/r3"
)

// WorldConfig holds the reduced-order contact and actuator model.
type WorldConfig struct {
	Integrator       string
	SubSteps         int
	Gravity          float64
	ContactStiffness float64
	ContactDamping   float64
	Friction         float64 // tangential damping, N*s/m
	FrictionCoeff    float64 // Coulomb cap on tangential force
	GainScale        float64 // maps unitless PD gains to N*m/rad
	JointInertia     float64
	JointDamping     float64
	AngularDamping   float64
	BodyMass         float64 // used when the description carries no mass
	Inertia          r3.Vec
	HipX, HipY       float64
	UpperLength      float64
	LowerLength      float64
}

func DefaultWorldConfig() WorldConfig {
	return WorldConfig{
		Integrator:       "rk4",
		SubSteps:         4,
		Gravity:          9.81,
		ContactStiffness: 5000,
		ContactDamping:   400,
		Friction:         800,
		FrictionCoeff:    0.8,
		GainScale:        100,
		JointInertia:     0.02,
		JointDamping:     0.05,
		AngularDamping:   0.5,
		BodyMass:         12,
		Inertia:          r3.Vec{X: 0.08, Y: 0.37, Z: 0.42},
		HipX:             0.25,
		HipY:             0.1,
		UpperLength:      0.17,
		LowerLength:      0.17,
	}
}

func (c WorldConfig) Validate() error {
	switch {
	case c.SubSteps < 1:
		return fmt.Errorf("sub-steps must be at least 1, got %d", c.SubSteps)
	case c.JointInertia <= 0:
		return fmt.Errorf("joint inertia must be positive, got %f", c.JointInertia)
	case c.Inertia.X <= 0 || c.Inertia.Y <= 0 || c.Inertia.Z <= 0:
		return errors.New("body inertia must be positive on every axis")
	case c.ContactStiffness < 0 || c.ContactDamping < 0:
		return errors.New("contact parameters must be non-negative")
	}
	return nil
}

// Sim is the built-in World: a reduced-order quadruped model whose bodies
// are advanced by a dynamo.Integrator.
type Sim struct {
	robot      *Robot
	cfg        WorldConfig
	integrator dynamo.Integrator
	bodies     map[BodyHandle]*body
	next       BodyHandle
	t          float64
	closed     bool
	log        *logrus.Entry
}

// NewWorld connects a simulator for the given robot description.
func NewWorld(robot *Robot, cfg WorldConfig) (*Sim, error) {
	if robot == nil {
		return nil, fmt.Errorf("%w: nil robot", dynamo.ErrAssetNotFound)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("world config: %w", err)
	}
	integ, err := integrators.New(cfg.Integrator)
	if err != nil {
		return nil, err
	}

	return &Sim{
		robot:      robot,
		cfg:        cfg,
		integrator: integ,
		bodies:     make(map[BodyHandle]*body),
		log:        logging.ForComponent("physics").WithField("robot", robot.Name),
	}, nil
}

func (s *Sim) Robot() *Robot  { return s.robot }
func (s *Sim) Time() float64  { return s.t }
func (s *Sim) NumBodies() int { return len(s.bodies) }

func (s *Sim) body(h BodyHandle) (*body, error) {
	if s.closed {
		return nil, dynamo.ErrClosed
	}
	b, ok := s.bodies[h]
	if !ok {
		return nil, fmt.Errorf("%w: %d", dynamo.ErrUnknownBody, h)
	}
	return b, nil
}

func (s *Sim) LoadBody(pose Pose) (BodyHandle, error) {
	if s.closed {
		return 0, dynamo.ErrClosed
	}
	if !pose.Finite() {
		return 0, fmt.Errorf("%w: spawn pose", dynamo.ErrInvalidState)
	}

	s.next++
	h := s.next
	s.bodies[h] = newBody(s.robot, &s.cfg, pose)
	s.log.WithField("body", h).Debug("body loaded")
	return h, nil
}

func (s *Sim) RemoveBody(h BodyHandle) error {
	if _, err := s.body(h); err != nil {
		return err
	}
	delete(s.bodies, h)
	return nil
}

func (s *Sim) Joints(h BodyHandle) ([]JointInfo, error) {
	b, err := s.body(h)
	if err != nil {
		return nil, err
	}
	infos := make([]JointInfo, len(b.joints))
	for i, j := range b.joints {
		infos[i] = JointInfo{Index: i, Name: j.Name, Lower: j.Lower, Upper: j.Upper}
	}
	return infos, nil
}

func (s *Sim) SetJointTarget(h BodyHandle, joint int, angle, gainP, gainD, maxForce float64) error {
	b, err := s.body(h)
	if err != nil {
		return err
	}
	if joint < 0 || joint >= len(b.motors) {
		return fmt.Errorf("%w: %d", dynamo.ErrUnknownJoint, joint)
	}
	b.motors[joint] = motor{
		target:   angle,
		gainP:    gainP,
		gainD:    gainD,
		maxForce: maxForce,
		active:   true,
	}
	return nil
}

// Advance integrates every body over dt in cfg.SubSteps equal steps.
// Bodies that diverge keep their non-finite state; callers detect it
// through the pose and velocity queries.
func (s *Sim) Advance(dt float64) error {
	if s.closed {
		return dynamo.ErrClosed
	}
	if dt <= 0 {
		return fmt.Errorf("dt must be positive, got %f", dt)
	}

	sub := dt / float64(s.cfg.SubSteps)
	for h, b := range s.bodies {
		valid := b.x.IsValid()
		for k := 0; k < s.cfg.SubSteps; k++ {
			b.x = s.integrator.Step(b, b.x, nil, s.t+float64(k)*sub, sub)
			b.settle()
		}
		if valid && !b.x.IsValid() {
			s.log.WithFields(logrus.Fields{"body": h, "t": s.t}).Warn("body state diverged")
		}
	}
	s.t += dt
	return nil
}

func (s *Sim) BodyPose(h BodyHandle) (Pose, error) {
	b, err := s.body(h)
	if err != nil {
		return Pose{}, err
	}
	return b.pose(), nil
}

func (s *Sim) BodyVelocity(h BodyHandle) (Velocity, error) {
	b, err := s.body(h)
	if err != nil {
		return Velocity{}, err
	}
	return b.velocity(), nil
}

func (s *Sim) JointStates(h BodyHandle, joints []int) ([]JointState, error) {
	b, err := s.body(h)
	if err != nil {
		return nil, err
	}
	n := len(b.joints)
	states := make([]JointState, len(joints))
	for i, j := range joints {
		if j < 0 || j >= n {
			return nil, fmt.Errorf("%w: %d", dynamo.ErrUnknownJoint, j)
		}
		states[i] = JointState{Angle: b.x[iJoint+j], Velocity: b.x[iJoint+n+j]}
	}
	return states, nil
}

// Close drops every body. It is safe to call more than once.
func (s *Sim) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.bodies = nil
	return nil
}

// SetBodyState overwrites a body's pose and velocity. Used to stage
// initial conditions and fault scenarios.
func (s *Sim) SetBodyState(h BodyHandle, pose Pose, vel Velocity) error {
	b, err := s.body(h)
	if err != nil {
		return err
	}
	q := pose.Orientation
	b.x[iPos], b.x[iPos+1], b.x[iPos+2] = pose.Position.X, pose.Position.Y, pose.Position.Z
	b.x[iQuat], b.x[iQuat+1], b.x[iQuat+2], b.x[iQuat+3] = q.Real, q.Imag, q.Jmag, q.Kmag
	b.x[iVel], b.x[iVel+1], b.x[iVel+2] = vel.Linear.X, vel.Linear.Y, vel.Linear.Z
	b.x[iOmega], b.x[iOmega+1], b.x[iOmega+2] = vel.Angular.X, vel.Angular.Y, vel.Angular.Z
	return nil
}

var _ World = (*Sim)(nil)
