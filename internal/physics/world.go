package physics

import (
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// BodyHandle identifies a body loaded into a World.
type BodyHandle int

// Pose is a body position and unit orientation in the world frame.
type Pose struct {
	Position    r3.Vec
	Orientation quat.Number
}

// Velocity holds world-frame linear and angular velocity.
type Velocity struct {
	Linear  r3.Vec
	Angular r3.Vec
}

type JointState struct {
	Angle    float64
	Velocity float64
}

// JointInfo describes a movable joint of a loaded body. Index is the
// world's handle for the joint and is only meaningful for that body.
type JointInfo struct {
	Index int
	Name  string
	Lower float64
	Upper float64
}

// World is the rigid-body simulator consumed by the environment.
type World interface {
	LoadBody(pose Pose) (BodyHandle, error)
	RemoveBody(h BodyHandle) error
	Joints(h BodyHandle) ([]JointInfo, error)
	SetJointTarget(h BodyHandle, joint int, angle, gainP, gainD, maxForce float64) error
	Advance(dt float64) error
	BodyPose(h BodyHandle) (Pose, error)
	BodyVelocity(h BodyHandle) (Velocity, error)
	JointStates(h BodyHandle, joints []int) ([]JointState, error)
	Close() error
}

// SpawnPose returns an upright pose at the given height above the origin.
func SpawnPose(height float64) Pose {
	return Pose{
		Position:    r3.Vec{Z: height},
		Orientation: quat.Number{Real: 1},
	}
}

// Finite reports whether every component of the pose is finite.
func (p Pose) Finite() bool {
	return finite(p.Position.X, p.Position.Y, p.Position.Z,
		p.Orientation.Real, p.Orientation.Imag, p.Orientation.Jmag, p.Orientation.Kmag)
}

func (v Velocity) Finite() bool {
	return finite(v.Linear.X, v.Linear.Y, v.Linear.Z, v.Angular.X, v.Angular.Y, v.Angular.Z)
}
