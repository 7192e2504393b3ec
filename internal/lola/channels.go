package lola

import "fmt"

// Group identifies one class of actuator output. Each group is serialised
// as a single key in the command frame.
type Group int

const (
	JointPositions Group = iota
	JointStiffnesses
	ChestLed
	LeftEarLeds
	RightEarLeds
	LeftEyeLeds
	RightEyeLeds
	LeftFootLed
	RightFootLed
	HeadLeds
	SonarUsage

	numGroups
)

// Hardware array lengths fixed by the LoLA protocol.
const (
	NumJoints      = 25
	NumEarLeds     = 10
	NumEyeLeds     = 8
	NumSkullLeds   = 12
	NumColorValues = 3

	eyeArrayLength = NumEyeLeds * NumColorValues
	sonarLength    = 2
)

type groupInfo struct {
	name      string
	key       string
	hwLength  int
	isBoolean bool
}

var groups = [numGroups]groupInfo{
	JointPositions:   {name: "JointPositions", key: "Position", hwLength: NumJoints},
	JointStiffnesses: {name: "JointStiffnesses", key: "Stiffness", hwLength: NumJoints},
	ChestLed:         {name: "ChestLed", key: "Chest", hwLength: NumColorValues},
	LeftEarLeds:      {name: "LeftEarLeds", key: "LEar", hwLength: NumEarLeds},
	RightEarLeds:     {name: "RightEarLeds", key: "REar", hwLength: NumEarLeds},
	LeftEyeLeds:      {name: "LeftEyeLeds", key: "LEye", hwLength: eyeArrayLength},
	RightEyeLeds:     {name: "RightEyeLeds", key: "REye", hwLength: eyeArrayLength},
	LeftFootLed:      {name: "LeftFootLed", key: "LFoot", hwLength: NumColorValues},
	RightFootLed:     {name: "RightFootLed", key: "RFoot", hwLength: NumColorValues},
	HeadLeds:         {name: "HeadLeds", key: "Skull", hwLength: NumSkullLeds},
	SonarUsage:       {name: "SonarUsage", key: "Sonar", hwLength: sonarLength, isBoolean: true},
}

// AllGroups returns every channel group in wire order.
func AllGroups() []Group {
	out := make([]Group, 0, numGroups)
	for g := Group(0); g < numGroups; g++ {
		out = append(out, g)
	}
	return out
}

// Valid reports whether g is a known channel group.
func (g Group) Valid() bool { return g >= 0 && g < numGroups }

func (g Group) String() string {
	if !g.Valid() {
		return fmt.Sprintf("Group(%d)", int(g))
	}
	return groups[g].name
}

// Key returns the case-sensitive command frame key for g.
func (g Group) Key() string {
	if !g.Valid() {
		return ""
	}
	return groups[g].key
}

// HardwareLength returns the fixed array length the wire format requires
// for g. It does not depend on how many updates were applied.
func (g Group) HardwareLength() int {
	if !g.Valid() {
		return 0
	}
	return groups[g].hwLength
}

// Boolean reports whether g is serialised as an array of booleans rather
// than floats. Only SonarUsage is.
func (g Group) Boolean() bool {
	return g.Valid() && groups[g].isBoolean
}

// GroupForKey resolves a command frame key back to its group.
func GroupForKey(key string) (Group, bool) {
	for g := Group(0); g < numGroups; g++ {
		if groups[g].key == key {
			return g, true
		}
	}
	return 0, false
}

// Color is one RGB LED value with channels in [0, 1].
type Color struct {
	R float32 `json:"r" msgpack:"r"`
	G float32 `json:"g" msgpack:"g"`
	B float32 `json:"b" msgpack:"b"`
}
