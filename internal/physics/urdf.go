package physics

import (
	_ "embed"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/san-kum/spotsim/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r3"
)

//go:embed assets/spot.urdf
var defaultURDF string

// JointSpec is one joint of a robot description.
type JointSpec struct {
	Name   string
	Type   string
	Parent string
	Child  string
	Origin r3.Vec
	Lower  float64
	Upper  float64
	Effort float64
}

// Movable reports whether the joint is actuated.
func (j JointSpec) Movable() bool {
	return j.Type == "revolute" || j.Type == "continuous"
}

// Robot is the subset of a URDF description the simulator needs.
type Robot struct {
	Name   string
	Mass   float64
	Joints []JointSpec
}

// MovableJoints returns the actuated joints in document order. A joint's
// position in this slice is its world joint index.
func (r *Robot) MovableJoints() []JointSpec {
	out := make([]JointSpec, 0, len(r.Joints))
	for _, j := range r.Joints {
		if j.Movable() {
			out = append(out, j)
		}
	}
	return out
}

func (r *Robot) jointFromLink(link string) (JointSpec, bool) {
	for _, j := range r.Joints {
		if j.Parent == link {
			return j, true
		}
	}
	return JointSpec{}, false
}

type urdfRobot struct {
	XMLName xml.Name    `xml:"robot"`
	Name    string      `xml:"name,attr"`
	Links   []urdfLink  `xml:"link"`
	Joints  []urdfJoint `xml:"joint"`
}

type urdfLink struct {
	Name     string `xml:"name,attr"`
	Inertial *struct {
		Mass struct {
			Value float64 `xml:"value,attr"`
		} `xml:"mass"`
	} `xml:"inertial"`
}

type urdfJoint struct {
	Name   string `xml:"name,attr"`
	Type   string `xml:"type,attr"`
	Parent struct {
		Link string `xml:"link,attr"`
	} `xml:"parent"`
	Child struct {
		Link string `xml:"link,attr"`
	} `xml:"child"`
	Origin *struct {
		XYZ string `xml:"xyz,attr"`
	} `xml:"origin"`
	Limit *struct {
		Lower  float64 `xml:"lower,attr"`
		Upper  float64 `xml:"upper,attr"`
		Effort float64 `xml:"effort,attr"`
	} `xml:"limit"`
}

// ParseURDF decodes a URDF document.
func ParseURDF(r io.Reader) (*Robot, error) {
	var doc urdfRobot
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode urdf: %w", err)
	}

	robot := &Robot{Name: doc.Name}
	for _, l := range doc.Links {
		if l.Inertial != nil {
			robot.Mass += l.Inertial.Mass.Value
		}
	}

	for _, j := range doc.Joints {
		spec := JointSpec{
			Name:   j.Name,
			Type:   j.Type,
			Parent: j.Parent.Link,
			Child:  j.Child.Link,
			Lower:  -math.Pi,
			Upper:  math.Pi,
		}
		if j.Origin != nil {
			origin, err := parseXYZ(j.Origin.XYZ)
			if err != nil {
				return nil, fmt.Errorf("joint %s origin: %w", j.Name, err)
			}
			spec.Origin = origin
		}
		if j.Limit != nil && j.Type == "revolute" {
			if j.Limit.Lower > j.Limit.Upper {
				return nil, fmt.Errorf("joint %s: lower limit %.3f above upper %.3f", j.Name, j.Limit.Lower, j.Limit.Upper)
			}
			spec.Lower, spec.Upper = j.Limit.Lower, j.Limit.Upper
			spec.Effort = j.Limit.Effort
		}
		robot.Joints = append(robot.Joints, spec)
	}

	if len(robot.MovableJoints()) == 0 {
		return nil, errors.New("urdf has no movable joints")
	}
	return robot, nil
}

// LoadURDF reads a robot description from disk. A missing file is
// reported as dynamo.ErrAssetNotFound.
func LoadURDF(path string) (*Robot, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", dynamo.ErrAssetNotFound, path)
		}
		return nil, err
	}
	defer f.Close()

	robot, err := ParseURDF(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return robot, nil
}

// DefaultRobot returns the embedded quadruped description.
func DefaultRobot() *Robot {
	robot, err := ParseURDF(strings.NewReader(defaultURDF))
	if err != nil {
		panic(fmt.Sprintf("embedded urdf: %v", err))
	}
	return robot
}

func parseXYZ(s string) (r3.Vec, error) {
	fields := strings.Fields(s)
	if len(fields) != 3 {
		return r3.Vec{}, fmt.Errorf("expected 3 components, got %q", s)
	}
	var v [3]float64
	for i, f := range fields {
		x, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return r3.Vec{}, err
		}
		v[i] = x
	}
	return r3.Vec{X: v[0], Y: v[1], Z: v[2]}, nil
}
