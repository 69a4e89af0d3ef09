package physics

import (
	"math"

	"github.com/san-kum/spotsim/internal/dynamo"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

func finite(vals ...float64) bool { return dynamo.Finite(vals...) }

func raise(v r3.Vec) quat.Number {
	return quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}
}

// Normalize scales q to unit length. The zero quaternion maps to NaN.
func Normalize(q quat.Number) quat.Number {
	return quat.Scale(1/quat.Abs(q), q)
}

// Rotate maps v from the body frame of orientation q into the world frame.
func Rotate(q quat.Number, v r3.Vec) r3.Vec {
	q = Normalize(q)
	p := quat.Mul(quat.Mul(q, raise(v)), quat.Conj(q))
	return r3.Vec{X: p.Imag, Y: p.Jmag, Z: p.Kmag}
}

// InverseRotate maps the world-frame vector v into the body frame of q.
func InverseRotate(q quat.Number, v r3.Vec) r3.Vec {
	return Rotate(quat.Inv(q), v)
}

// EulerFromQuaternion returns roll, pitch and yaw (ZYX convention).
func EulerFromQuaternion(q quat.Number) (roll, pitch, yaw float64) {
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag

	roll = math.Atan2(2*(w*x+y*z), 1-2*(x*x+y*y))

	sp := 2 * (w*y - z*x)
	if sp > 1 {
		sp = 1
	} else if sp < -1 {
		sp = -1
	}
	pitch = math.Asin(sp)

	yaw = math.Atan2(2*(w*z+x*y), 1-2*(y*y+z*z))
	return roll, pitch, yaw
}

// QuaternionFromEuler builds a unit quaternion from roll, pitch and yaw.
func QuaternionFromEuler(roll, pitch, yaw float64) quat.Number {
	sr, cr := math.Sincos(roll / 2)
	sp, cp := math.Sincos(pitch / 2)
	sy, cy := math.Sincos(yaw / 2)
	return quat.Number{
		Real: cr*cp*cy + sr*sp*sy,
		Imag: sr*cp*cy - cr*sp*sy,
		Jmag: cr*sp*cy + sr*cp*sy,
		Kmag: cr*cp*sy - sr*sp*cy,
	}
}

// orientationRate is dq/dt for a world-frame angular velocity w.
func orientationRate(q quat.Number, w r3.Vec) quat.Number {
	return quat.Scale(0.5, quat.Mul(raise(w), q))
}
