package bridge

import "github.com/banshee-data/nao-lola/internal/lola"

const (
	// EffectorPrefix prefixes the per-group update topics.
	EffectorPrefix = "effectors/"
	// SensorPrefix prefixes the decoded sensor section topics.
	SensorPrefix = "sensors/"
	// FramesTopic carries a FrameSummary for every transmitted frame.
	FramesTopic = "bridge/frames"
)

var effectorNames = map[lola.Group]string{
	lola.JointPositions:   "joint_positions",
	lola.JointStiffnesses: "joint_stiffnesses",
	lola.ChestLed:         "chest_led",
	lola.LeftEarLeds:      "left_ear_leds",
	lola.RightEarLeds:     "right_ear_leds",
	lola.LeftEyeLeds:      "left_eye_leds",
	lola.RightEyeLeds:     "right_eye_leds",
	lola.LeftFootLed:      "left_foot_led",
	lola.RightFootLed:     "right_foot_led",
	lola.HeadLeds:         "head_leds",
	lola.SonarUsage:       "sonar_usage",
}

// EffectorName is the topic suffix for g, e.g. "joint_positions".
func EffectorName(g lola.Group) string { return effectorNames[g] }

// EffectorTopic is the bus topic on which updates for g arrive.
func EffectorTopic(g lola.Group) string { return EffectorPrefix + effectorNames[g] }

// GroupForEffector maps a topic suffix back to its group.
func GroupForEffector(name string) (lola.Group, bool) {
	for g, n := range effectorNames {
		if n == name {
			return g, true
		}
	}
	return 0, false
}

// SensorTopic is the bus topic for the named sensor section.
func SensorTopic(name string) string { return SensorPrefix + name }

// SensorNames lists every sensor section published per cycle.
func SensorNames() []string {
	readings := lola.SensorFrame{}.Readings()
	out := make([]string, len(readings))
	for i, r := range readings {
		out[i] = r.Name
	}
	return out
}
