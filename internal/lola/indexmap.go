package lola

import "fmt"

// jointLayout is the LoLA joint order. Sensor and command arrays for
// Position, Stiffness, Temperature, Current and Status all use it.
var jointLayout = []string{
	"HeadYaw", "HeadPitch",
	"LShoulderPitch", "LShoulderRoll", "LElbowYaw", "LElbowRoll", "LWristYaw",
	"LHipYawPitch", "LHipRoll", "LHipPitch", "LKneePitch", "LAnklePitch", "LAnkleRoll",
	"RHipRoll", "RHipPitch", "RKneePitch", "RAnklePitch", "RAnkleRoll",
	"RShoulderPitch", "RShoulderRoll", "RElbowYaw", "RElbowRoll", "RWristYaw",
	"LHand", "RHand",
}

// jointMessageOrder is the joint order used by bus messages.
var jointMessageOrder = []string{
	"HeadYaw", "HeadPitch",
	"LShoulderPitch", "LShoulderRoll", "LElbowYaw", "LElbowRoll", "LWristYaw",
	"LHipYawPitch", "LHipRoll", "LHipPitch", "LKneePitch", "LAnklePitch", "LAnkleRoll",
	"RHipRoll", "RHipPitch", "RKneePitch", "RAnklePitch", "RAnkleRoll",
	"RShoulderPitch", "RShoulderRoll", "RElbowYaw", "RElbowRoll", "RWristYaw",
	"LHand", "RHand",
}

// Ear LEDs are named by angle. Messages count clockwise from 0 degrees on
// both ears; the right ear is reversed on the wire.
var (
	earMessageOrder   = []string{"0", "36", "72", "108", "144", "180", "216", "252", "288", "324"}
	leftEarLayout     = []string{"0", "36", "72", "108", "144", "180", "216", "252", "288", "324"}
	rightEarLayout    = []string{"324", "288", "252", "216", "180", "144", "108", "72", "36", "0"}
	eyeMessageOrder   = []string{"0", "45", "90", "135", "180", "225", "270", "315"}
	leftEyeLayout     = []string{"45", "0", "315", "270", "225", "180", "135", "90"}
	rightEyeLayout    = []string{"0", "45", "90", "135", "180", "225", "270", "315"}
	skullMessageOrder = []string{
		"Front/Left/0", "Front/Left/1", "Front/Right/0", "Front/Right/1",
		"Middle/Left/0", "Middle/Right/0",
		"Rear/Left/0", "Rear/Left/1", "Rear/Left/2",
		"Rear/Right/0", "Rear/Right/1", "Rear/Right/2",
	}
	skullLayout = []string{
		"Front/Left/1", "Front/Left/0", "Middle/Left/0",
		"Rear/Left/0", "Rear/Left/1", "Rear/Left/2",
		"Rear/Right/2", "Rear/Right/1", "Rear/Right/0",
		"Middle/Right/0", "Front/Right/0", "Front/Right/1",
	}
)

// indexMap translates an external index into a hardware index for one group.
type indexMap struct {
	toHardware []int
	toExternal []int
}

func (m *indexMap) domainSize() int { return len(m.toHardware) }

// newIndexMap places every name of external at its position in layout.
func newIndexMap(external, layout []string) *indexMap {
	if len(external) != len(layout) {
		panic(fmt.Sprintf("lola: layout size %d does not match message order size %d", len(layout), len(external)))
	}
	pos := make(map[string]int, len(layout))
	for i, name := range layout {
		if _, dup := pos[name]; dup {
			panic("lola: duplicate hardware channel " + name)
		}
		pos[name] = i
	}
	m := &indexMap{
		toHardware: make([]int, len(external)),
		toExternal: make([]int, len(layout)),
	}
	for i, name := range external {
		hw, ok := pos[name]
		if !ok {
			panic("lola: no hardware channel for " + name)
		}
		m.toHardware[i] = hw
		m.toExternal[hw] = i
	}
	return m
}

// indexMaps holds one table per indexed group. Full-replace groups have none.
var indexMaps = func() [numGroups]*indexMap {
	var maps [numGroups]*indexMap
	joints := newIndexMap(jointMessageOrder, jointLayout)
	maps[JointPositions] = joints
	maps[JointStiffnesses] = joints
	maps[LeftEarLeds] = newIndexMap(earMessageOrder, leftEarLayout)
	maps[RightEarLeds] = newIndexMap(earMessageOrder, rightEarLayout)
	maps[LeftEyeLeds] = newIndexMap(eyeMessageOrder, leftEyeLayout)
	maps[RightEyeLeds] = newIndexMap(eyeMessageOrder, rightEyeLayout)
	maps[HeadLeds] = newIndexMap(skullMessageOrder, skullLayout)
	return maps
}()

// Lookup returns the hardware index for externalIndex in group g. For eye
// groups the result is the red channel's base index; green and blue sit at
// base+8 and base+16.
//
// An index outside [0, DomainSize(g)) fails with ErrUnknownIndex. Callers
// must treat this as a protocol mismatch and not substitute another index.
func Lookup(g Group, externalIndex int) (int, error) {
	if !g.Valid() || indexMaps[g] == nil {
		return 0, fmt.Errorf("%w: group %s has no index map", ErrUnknownIndex, g)
	}
	m := indexMaps[g]
	if externalIndex < 0 || externalIndex >= m.domainSize() {
		return 0, &IndexError{Group: g, Index: externalIndex, DomainSize: m.domainSize()}
	}
	return m.toHardware[externalIndex], nil
}

// ExternalIndex is the inverse of Lookup for base hardware indices.
func ExternalIndex(g Group, hardwareIndex int) (int, error) {
	if !g.Valid() || indexMaps[g] == nil {
		return 0, fmt.Errorf("%w: group %s has no index map", ErrUnknownIndex, g)
	}
	m := indexMaps[g]
	if hardwareIndex < 0 || hardwareIndex >= len(m.toExternal) {
		return 0, &IndexError{Group: g, Index: hardwareIndex, DomainSize: len(m.toExternal), Hardware: true}
	}
	return m.toExternal[hardwareIndex], nil
}

// DomainSize returns the number of external indices group g accepts, or 0
// for groups that are always replaced in full.
func DomainSize(g Group) int {
	if !g.Valid() || indexMaps[g] == nil {
		return 0
	}
	return indexMaps[g].domainSize()
}

// JointName returns the name of the joint at external index i.
func JointName(i int) string {
	if i < 0 || i >= len(jointMessageOrder) {
		return ""
	}
	return jointMessageOrder[i]
}
