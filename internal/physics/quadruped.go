package physics

import (
	"math"
	"strings"

	"github.com/san-kum/spotsim/internal/dynamo"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Body state layout: position(3) orientation(4) linear(3) angular(3)
// followed by joint angles(n) and joint rates(n).
const (
	iPos   = 0
	iQuat  = 3
	iVel   = 7
	iOmega = 10
	iJoint = 13
)

var legPrefixes = [4]string{"front_left", "front_right", "back_left", "back_right"}

type motor struct {
	target   float64
	gainP    float64
	gainD    float64
	maxForce float64
	active   bool
}

// leg is the contact model of one 3-joint leg. Joint indices are -1 when
// the description lacks that joint; the missing joint reads as zero.
type leg struct {
	hip, upper, lower int
	offset            r3.Vec
	l1, l2            float64
}

func jointAt(vals []float64, idx int) float64 {
	if idx < 0 {
		return 0
	}
	return vals[idx]
}

// foot returns the body-frame foot position relative to the base origin
// and its rate of change from the joint rates.
func (l *leg) foot(angles, rates []float64) (r3.Vec, r3.Vec) {
	h, a, b := jointAt(angles, l.hip), jointAt(angles, l.upper), jointAt(angles, l.lower)
	hd, ad, bd := jointAt(rates, l.hip), jointAt(rates, l.upper), jointAt(rates, l.lower)

	sa, ca := math.Sincos(a)
	sab, cab := math.Sincos(a + b)
	sh, ch := math.Sincos(h)

	ext := l.l1*ca + l.l2*cab
	extDot := -(l.l1*sa*ad + l.l2*sab*(ad+bd))
	x := -(l.l1*sa + l.l2*sab)
	xDot := -(l.l1*ca*ad + l.l2*cab*(ad+bd))

	pos := r3.Vec{X: x, Y: ext * sh, Z: -ext * ch}
	vel := r3.Vec{
		X: xDot,
		Y: extDot*sh + ext*ch*hd,
		Z: -extDot*ch + ext*sh*hd,
	}
	return r3.Add(l.offset, pos), vel
}

type body struct {
	cfg    *WorldConfig
	mass   float64
	joints []JointSpec
	motors []motor
	legs   [4]leg
	x      dynamo.State
}

func newBody(robot *Robot, cfg *WorldConfig, pose Pose) *body {
	joints := robot.MovableJoints()
	n := len(joints)

	b := &body{
		cfg:    cfg,
		mass:   robot.Mass,
		joints: joints,
		motors: make([]motor, n),
		x:      make(dynamo.State, iJoint+2*n),
	}
	if b.mass <= 0 {
		b.mass = cfg.BodyMass
	}

	q := Normalize(pose.Orientation)
	b.x[iPos], b.x[iPos+1], b.x[iPos+2] = pose.Position.X, pose.Position.Y, pose.Position.Z
	b.x[iQuat], b.x[iQuat+1], b.x[iQuat+2], b.x[iQuat+3] = q.Real, q.Imag, q.Jmag, q.Kmag
	for i, j := range joints {
		b.x[iJoint+i] = clamp(0, j.Lower, j.Upper)
	}

	for i, prefix := range legPrefixes {
		b.legs[i] = buildLeg(robot, joints, cfg, prefix, i)
	}
	return b
}

func buildLeg(robot *Robot, joints []JointSpec, cfg *WorldConfig, prefix string, slot int) leg {
	l := leg{hip: -1, upper: -1, lower: -1, l1: cfg.UpperLength, l2: cfg.LowerLength}

	// Default hip layout: front legs +x, left legs +y.
	l.offset = r3.Vec{X: cfg.HipX, Y: cfg.HipY}
	if slot >= 2 {
		l.offset.X = -cfg.HipX
	}
	if slot%2 == 1 {
		l.offset.Y = -cfg.HipY
	}

	for i, j := range joints {
		if !strings.Contains(j.Name, prefix) {
			continue
		}
		switch {
		case strings.HasSuffix(j.Name, "_hip"):
			l.hip = i
			l.offset = j.Origin
		case strings.HasSuffix(j.Name, "_upper_leg"):
			l.upper = i
		case strings.HasSuffix(j.Name, "_lower_leg"):
			l.lower = i
			if d := r3.Norm(j.Origin); d > 0 {
				l.l1 = d
			}
			if foot, ok := robot.jointFromLink(j.Child); ok {
				if d := r3.Norm(foot.Origin); d > 0 {
					l.l2 = d
				}
			}
		}
	}
	return l
}

func (b *body) StateDim() int   { return len(b.x) }
func (b *body) ControlDim() int { return 0 }

func (b *body) pose() Pose {
	return Pose{
		Position:    r3.Vec{X: b.x[iPos], Y: b.x[iPos+1], Z: b.x[iPos+2]},
		Orientation: quat.Number{Real: b.x[iQuat], Imag: b.x[iQuat+1], Jmag: b.x[iQuat+2], Kmag: b.x[iQuat+3]},
	}
}

func (b *body) velocity() Velocity {
	return Velocity{
		Linear:  r3.Vec{X: b.x[iVel], Y: b.x[iVel+1], Z: b.x[iVel+2]},
		Angular: r3.Vec{X: b.x[iOmega], Y: b.x[iOmega+1], Z: b.x[iOmega+2]},
	}
}

func (b *body) Derive(x dynamo.State, _ dynamo.Control, _ float64) dynamo.State {
	n := len(b.motors)
	cfg := b.cfg
	dx := make(dynamo.State, len(x))

	pos := r3.Vec{X: x[iPos], Y: x[iPos+1], Z: x[iPos+2]}
	q := quat.Number{Real: x[iQuat], Imag: x[iQuat+1], Jmag: x[iQuat+2], Kmag: x[iQuat+3]}
	v := r3.Vec{X: x[iVel], Y: x[iVel+1], Z: x[iVel+2]}
	w := r3.Vec{X: x[iOmega], Y: x[iOmega+1], Z: x[iOmega+2]}
	angles := x[iJoint : iJoint+n]
	rates := x[iJoint+n : iJoint+2*n]

	force := r3.Vec{Z: -cfg.Gravity * b.mass}
	var torque r3.Vec
	for i := range b.legs {
		rb, rbDot := b.legs[i].foot(angles, rates)
		r := Rotate(q, rb)
		pen := -(pos.Z + r.Z)
		if pen <= 0 {
			continue
		}

		footVel := r3.Add(r3.Add(v, r3.Cross(w, r)), Rotate(q, rbDot))
		fz := cfg.ContactStiffness*pen - cfg.ContactDamping*footVel.Z
		if fz <= 0 {
			continue
		}

		ft := r3.Vec{X: -cfg.Friction * footVel.X, Y: -cfg.Friction * footVel.Y}
		if limit, mag := cfg.FrictionCoeff*fz, r3.Norm(ft); mag > limit {
			ft = r3.Scale(limit/mag, ft)
		}
		f := r3.Vec{X: ft.X, Y: ft.Y, Z: fz}
		force = r3.Add(force, f)
		torque = r3.Add(torque, r3.Cross(r, f))
	}

	acc := r3.Scale(1/b.mass, force)
	tb := InverseRotate(q, torque)
	alphaBody := r3.Vec{X: tb.X / cfg.Inertia.X, Y: tb.Y / cfg.Inertia.Y, Z: tb.Z / cfg.Inertia.Z}
	alpha := r3.Sub(Rotate(q, alphaBody), r3.Scale(cfg.AngularDamping, w))
	qd := orientationRate(q, w)

	dx[iPos], dx[iPos+1], dx[iPos+2] = v.X, v.Y, v.Z
	dx[iQuat], dx[iQuat+1], dx[iQuat+2], dx[iQuat+3] = qd.Real, qd.Imag, qd.Jmag, qd.Kmag
	dx[iVel], dx[iVel+1], dx[iVel+2] = acc.X, acc.Y, acc.Z
	dx[iOmega], dx[iOmega+1], dx[iOmega+2] = alpha.X, alpha.Y, alpha.Z

	for j := 0; j < n; j++ {
		m := b.motors[j]
		tau := 0.0
		if m.active {
			tau = cfg.GainScale * (m.gainP*(m.target-angles[j]) - m.gainD*rates[j])
			tau = clamp(tau, -m.maxForce, m.maxForce)
		}
		dx[iJoint+j] = rates[j]
		dx[iJoint+n+j] = (tau - cfg.JointDamping*rates[j]) / cfg.JointInertia
	}
	return dx
}

// settle renormalises the orientation and enforces joint limits after an
// integrator step.
func (b *body) settle() {
	q := Normalize(quat.Number{Real: b.x[iQuat], Imag: b.x[iQuat+1], Jmag: b.x[iQuat+2], Kmag: b.x[iQuat+3]})
	b.x[iQuat], b.x[iQuat+1], b.x[iQuat+2], b.x[iQuat+3] = q.Real, q.Imag, q.Jmag, q.Kmag

	n := len(b.joints)
	for i, j := range b.joints {
		a, r := &b.x[iJoint+i], &b.x[iJoint+n+i]
		if *a < j.Lower {
			*a = j.Lower
			*r = math.Max(*r, 0)
		} else if *a > j.Upper {
			*a = j.Upper
			*r = math.Min(*r, 0)
		}
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
