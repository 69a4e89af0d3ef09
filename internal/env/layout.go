package env

import "math"

const (
	ObservationDim = 42
	ActionDim      = 12
	CommandDim     = 3
	NumJoints      = 12
)

// Observation slot offsets.
const (
	GravitySlot    = 0
	JointPosSlot   = GravitySlot + 3
	JointVelSlot   = JointPosSlot + NumJoints
	PrevActionSlot = JointVelSlot + NumJoints
	CommandSlot    = PrevActionSlot + ActionDim
)

const (
	maxJointVelocity = 50
)

// AngleLimit is the largest float32 not above pi, the bound of every
// angular slot. float32(math.Pi) rounds up past pi.
var AngleLimit = math.Nextafter32(float32(math.Pi), 0)

// JointNames is the controller's joint enumeration. Slot i of every joint
// block in the observation and action refers to JointNames[i].
var JointNames = [NumJoints]string{
	"motor_front_left_hip", "motor_front_left_upper_leg", "motor_front_left_lower_leg",
	"motor_front_right_hip", "motor_front_right_upper_leg", "motor_front_right_lower_leg",
	"motor_back_left_hip", "motor_back_left_upper_leg", "motor_back_left_lower_leg",
	"motor_back_right_hip", "motor_back_right_upper_leg", "motor_back_right_lower_leg",
}

// Observation is the fixed-layout policy input.
type Observation [ObservationDim]float32

// Action holds one target joint angle per slot of JointNames.
type Action [ActionDim]float32

func (o Observation) Gravity() [3]float32 {
	return [3]float32{o[GravitySlot], o[GravitySlot+1], o[GravitySlot+2]}
}

func (o Observation) JointPositions() []float32 {
	return o[JointPosSlot : JointPosSlot+NumJoints]
}

func (o Observation) JointVelocities() []float32 {
	return o[JointVelSlot : JointVelSlot+NumJoints]
}

func (o Observation) PrevAction() Action {
	var a Action
	copy(a[:], o[PrevActionSlot:PrevActionSlot+ActionDim])
	return a
}

func (o Observation) Command() Command {
	return Command{VX: o[CommandSlot], VY: o[CommandSlot+1], Yaw: o[CommandSlot+2]}
}

// ActionFromSlice copies v into an Action. The length must be ActionDim.
func ActionFromSlice(v []float32) (Action, error) {
	var a Action
	if len(v) != ActionDim {
		return a, &DimensionError{Want: ActionDim, Got: len(v)}
	}
	copy(a[:], v)
	return a, nil
}

// SlotInfo names one block of the observation vector.
type SlotInfo struct {
	Name   string
	Offset int
	Size   int
	Low    float32
	High   float32
}

// Layout describes the observation vector block by block.
func Layout() []SlotInfo {
	return []SlotInfo{
		{"gravity_body", GravitySlot, 3, -1, 1},
		{"joint_pos", JointPosSlot, NumJoints, -AngleLimit, AngleLimit},
		{"joint_vel", JointVelSlot, NumJoints, -maxJointVelocity, maxJointVelocity},
		{"prev_action", PrevActionSlot, ActionDim, -AngleLimit, AngleLimit},
		{"command", CommandSlot, CommandDim, -1, 1},
	}
}
