package viz

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/spotsim/internal/env"
	"github.com/san-kum/spotsim/internal/physics"
)

// Nominal leg geometry for drawing only.
const (
	drawHipX   = 0.25
	drawUpper  = 0.17
	drawLower  = 0.17
	viewScale  = 90
	viewGround = -0.05
)

var legHipX = [4]float64{drawHipX, drawHipX, -drawHipX, -drawHipX}

// drawRobot renders a side view (world x/z) of the reading.
func drawRobot(c *Canvas, r env.Reading) {
	c.Clear()
	if !r.Pose.Finite() {
		return
	}
	v := Viewport{CenterX: r.Pose.Position.X, MinZ: viewGround, Scale: viewScale}

	half := float64(c.Width) / v.Scale
	v.Line(c, v.CenterX-half, 0, v.CenterX+half, 0)

	world := func(p r3.Vec) r3.Vec {
		return r3.Add(r.Pose.Position, physics.Rotate(r.Pose.Orientation, p))
	}
	front := world(r3.Vec{X: drawHipX})
	back := world(r3.Vec{X: -drawHipX})
	v.Line(c, back.X, back.Z, front.X, front.Z)

	for leg := 0; leg < 4; leg++ {
		upper := r.Joints[leg*3+1].Angle
		lower := r.Joints[leg*3+2].Angle
		if math.IsNaN(upper) || math.IsNaN(lower) {
			continue
		}
		hip := r3.Vec{X: legHipX[leg]}
		knee := r3.Add(hip, r3.Vec{X: -drawUpper * math.Sin(upper), Z: -drawUpper * math.Cos(upper)})
		foot := r3.Add(knee, r3.Vec{X: -drawLower * math.Sin(upper+lower), Z: -drawLower * math.Cos(upper+lower)})

		h, k, f := world(hip), world(knee), world(foot)
		v.Line(c, h.X, h.Z, k.X, k.Z)
		v.Line(c, k.X, k.Z, f.X, f.Z)
	}
}
