package lola

// ChannelUpdate is one actuator update as delivered by the bus. There is one
// concrete type per channel group; the builder dispatches on the type.
type ChannelUpdate interface {
	// Group reports the channel group this update targets.
	Group() Group
	isChannelUpdate()
}

// JointPositionsUpdate sets target angles (radians) for the listed joints.
// Joints not listed keep whatever was set earlier in the same cycle.
type JointPositionsUpdate struct {
	Indices   []int     `json:"indexes"`
	Positions []float32 `json:"positions"`
}

// JointStiffnessesUpdate sets stiffness in [0, 1] for the listed joints.
type JointStiffnessesUpdate struct {
	Indices     []int     `json:"indexes"`
	Stiffnesses []float32 `json:"stiffnesses"`
}

// ChestLedUpdate sets the chest button LED.
type ChestLedUpdate struct {
	Color Color `json:"color"`
}

// LeftEarLedsUpdate sets left ear LED intensities. Each update replaces the
// whole ear; unlisted LEDs are switched off.
type LeftEarLedsUpdate struct {
	Indices     []int     `json:"indexes"`
	Intensities []float32 `json:"intensities"`
}

// RightEarLedsUpdate sets right ear LED intensities, replacing the whole ear.
type RightEarLedsUpdate struct {
	Indices     []int     `json:"indexes"`
	Intensities []float32 `json:"intensities"`
}

// LeftEyeLedsUpdate sets left eye LED colors, replacing the whole eye.
type LeftEyeLedsUpdate struct {
	Indices []int   `json:"indexes"`
	Colors  []Color `json:"colors"`
}

// RightEyeLedsUpdate sets right eye LED colors, replacing the whole eye.
type RightEyeLedsUpdate struct {
	Indices []int   `json:"indexes"`
	Colors  []Color `json:"colors"`
}

// LeftFootLedUpdate sets the left foot LED.
type LeftFootLedUpdate struct {
	Color Color `json:"color"`
}

// RightFootLedUpdate sets the right foot LED.
type RightFootLedUpdate struct {
	Color Color `json:"color"`
}

// HeadLedsUpdate sets skull LED intensities, replacing the whole skull.
type HeadLedsUpdate struct {
	Indices     []int     `json:"indexes"`
	Intensities []float32 `json:"intensities"`
}

// SonarUsageUpdate enables or disables the left and right sonar emitters.
type SonarUsageUpdate struct {
	Left  bool `json:"left"`
	Right bool `json:"right"`
}

func (JointPositionsUpdate) Group() Group   { return JointPositions }
func (JointStiffnessesUpdate) Group() Group { return JointStiffnesses }
func (ChestLedUpdate) Group() Group         { return ChestLed }
func (LeftEarLedsUpdate) Group() Group      { return LeftEarLeds }
func (RightEarLedsUpdate) Group() Group     { return RightEarLeds }
func (LeftEyeLedsUpdate) Group() Group      { return LeftEyeLeds }
func (RightEyeLedsUpdate) Group() Group     { return RightEyeLeds }
func (LeftFootLedUpdate) Group() Group      { return LeftFootLed }
func (RightFootLedUpdate) Group() Group     { return RightFootLed }
func (HeadLedsUpdate) Group() Group         { return HeadLeds }
func (SonarUsageUpdate) Group() Group       { return SonarUsage }

func (JointPositionsUpdate) isChannelUpdate()   {}
func (JointStiffnessesUpdate) isChannelUpdate() {}
func (ChestLedUpdate) isChannelUpdate()         {}
func (LeftEarLedsUpdate) isChannelUpdate()      {}
func (RightEarLedsUpdate) isChannelUpdate()     {}
func (LeftEyeLedsUpdate) isChannelUpdate()      {}
func (RightEyeLedsUpdate) isChannelUpdate()     {}
func (LeftFootLedUpdate) isChannelUpdate()      {}
func (RightFootLedUpdate) isChannelUpdate()     {}
func (HeadLedsUpdate) isChannelUpdate()         {}
func (SonarUsageUpdate) isChannelUpdate()       {}
