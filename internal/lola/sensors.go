package lola

import (
	"bytes"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Sizes of the sensor arrays in a LoLA sensor frame.
const (
	numAccelerometer = 3
	numGyroscope     = 3
	numAngles        = 2
	numBattery       = 4
	numFSR           = 8
	numTouch         = 14
	numSonar         = 2
	numRobotConfig   = 4
)

// rawSensorFrame mirrors the MessagePack map the robot sends each cycle.
// Joint arrays are in hardware order.
type rawSensorFrame struct {
	Accelerometer []float32 `msgpack:"Accelerometer"`
	Angles        []float32 `msgpack:"Angles"`
	Battery       []float32 `msgpack:"Battery"`
	Current       []float32 `msgpack:"Current"`
	FSR           []float32 `msgpack:"FSR"`
	Gyroscope     []float32 `msgpack:"Gyroscope"`
	Position      []float32 `msgpack:"Position"`
	Sonar         []float32 `msgpack:"Sonar"`
	Stiffness     []float32 `msgpack:"Stiffness"`
	Temperature   []float32 `msgpack:"Temperature"`
	Touch         []float32 `msgpack:"Touch"`
	Status        []float32 `msgpack:"Status"`
	RobotConfig   []string  `msgpack:"RobotConfig"`
}

// Vector3 is an inertial reading.
type Vector3 struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

// Angle is the torso inclination estimated by the IMU.
type Angle struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
}

// Battery is the battery state.
type Battery struct {
	Charge      float32 `json:"charge"`
	Status      float32 `json:"status"`
	Current     float32 `json:"current"`
	Temperature float32 `json:"temperature"`
}

// FSR holds the force sensitive resistor readings of both feet in kg.
type FSR struct {
	LFootFrontLeft  float32 `json:"l_foot_front_left"`
	LFootFrontRight float32 `json:"l_foot_front_right"`
	LFootBackLeft   float32 `json:"l_foot_back_left"`
	LFootBackRight  float32 `json:"l_foot_back_right"`
	RFootFrontLeft  float32 `json:"r_foot_front_left"`
	RFootFrontRight float32 `json:"r_foot_front_right"`
	RFootBackLeft   float32 `json:"r_foot_back_left"`
	RFootBackRight  float32 `json:"r_foot_back_right"`
}

// Buttons are the chest button and foot bumpers.
type Buttons struct {
	Chest            bool `json:"chest"`
	LFootBumperLeft  bool `json:"l_foot_bumper_left"`
	LFootBumperRight bool `json:"l_foot_bumper_right"`
	RFootBumperLeft  bool `json:"r_foot_bumper_left"`
	RFootBumperRight bool `json:"r_foot_bumper_right"`
}

// Touch holds the capacitive head and hand sensors.
type Touch struct {
	HeadFront  bool `json:"head_front"`
	HeadMiddle bool `json:"head_middle"`
	HeadRear   bool `json:"head_rear"`
	LHandBack  bool `json:"l_hand_back"`
	LHandLeft  bool `json:"l_hand_left"`
	LHandRight bool `json:"l_hand_right"`
	RHandBack  bool `json:"r_hand_back"`
	RHandLeft  bool `json:"r_hand_left"`
	RHandRight bool `json:"r_hand_right"`
}

// Sonar holds the left and right distance readings in metres.
type Sonar struct {
	Left  float32 `json:"left"`
	Right float32 `json:"right"`
}

// RobotConfig identifies the hardware.
type RobotConfig struct {
	BodyID      string `json:"body_id"`
	BodyVersion string `json:"body_version"`
	HeadID      string `json:"head_id"`
	HeadVersion string `json:"head_version"`
}

// SensorFrame is one decoded sensor frame. Joint arrays are indexed in bus
// (external) order.
type SensorFrame struct {
	Accelerometer     Vector3
	Angle             Angle
	Battery           Battery
	Buttons           Buttons
	FSR               FSR
	Gyroscope         Vector3
	JointPositions    []float32
	JointStiffnesses  []float32
	JointTemperatures []float32
	JointCurrents     []float32
	JointStatuses     []int32
	Sonar             Sonar
	Touch             Touch
	RobotConfig       RobotConfig
}

// Readings returns each sensor section keyed by its topic name, in a fixed
// order, for publishing.
func (f SensorFrame) Readings() []Reading {
	return []Reading{
		{Name: "accelerometer", Value: f.Accelerometer},
		{Name: "angle", Value: f.Angle},
		{Name: "buttons", Value: f.Buttons},
		{Name: "fsr", Value: f.FSR},
		{Name: "gyroscope", Value: f.Gyroscope},
		{Name: "joint_positions", Value: f.JointPositions},
		{Name: "joint_stiffnesses", Value: f.JointStiffnesses},
		{Name: "joint_temperatures", Value: f.JointTemperatures},
		{Name: "joint_currents", Value: f.JointCurrents},
		{Name: "joint_statuses", Value: f.JointStatuses},
		{Name: "sonar", Value: f.Sonar},
		{Name: "touch", Value: f.Touch},
		{Name: "battery", Value: f.Battery},
		{Name: "robot_config", Value: f.RobotConfig},
	}
}

// Reading is one named section of a sensor frame.
type Reading struct {
	Name  string
	Value any
}

// DecodeSensorFrame parses a LoLA sensor frame. Bytes after the first
// MessagePack value (the zero padding of a fixed-size frame) are ignored.
func DecodeSensorFrame(data []byte) (SensorFrame, error) {
	var raw rawSensorFrame
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&raw); err != nil {
		return SensorFrame{}, fmt.Errorf("failed to decode sensor frame: %w", err)
	}

	checks := []struct {
		name string
		got  int
		want int
	}{
		{"Accelerometer", len(raw.Accelerometer), numAccelerometer},
		{"Angles", len(raw.Angles), numAngles},
		{"Battery", len(raw.Battery), numBattery},
		{"Current", len(raw.Current), NumJoints},
		{"FSR", len(raw.FSR), numFSR},
		{"Gyroscope", len(raw.Gyroscope), numGyroscope},
		{"Position", len(raw.Position), NumJoints},
		{"Sonar", len(raw.Sonar), numSonar},
		{"Stiffness", len(raw.Stiffness), NumJoints},
		{"Temperature", len(raw.Temperature), NumJoints},
		{"Touch", len(raw.Touch), numTouch},
		{"Status", len(raw.Status), NumJoints},
		{"RobotConfig", len(raw.RobotConfig), numRobotConfig},
	}
	for _, c := range checks {
		if c.got != c.want {
			return SensorFrame{}, fmt.Errorf("sensor frame %s has %d values, want %d", c.name, c.got, c.want)
		}
	}

	t := raw.Touch
	f := SensorFrame{
		Accelerometer: Vector3{X: raw.Accelerometer[0], Y: raw.Accelerometer[1], Z: raw.Accelerometer[2]},
		Angle:         Angle{X: raw.Angles[0], Y: raw.Angles[1]},
		Battery: Battery{
			Charge:      raw.Battery[0],
			Status:      raw.Battery[1],
			Current:     raw.Battery[2],
			Temperature: raw.Battery[3],
		},
		FSR: FSR{
			LFootFrontLeft:  raw.FSR[0],
			LFootFrontRight: raw.FSR[1],
			LFootBackLeft:   raw.FSR[2],
			LFootBackRight:  raw.FSR[3],
			RFootFrontLeft:  raw.FSR[4],
			RFootFrontRight: raw.FSR[5],
			RFootBackLeft:   raw.FSR[6],
			RFootBackRight:  raw.FSR[7],
		},
		Gyroscope: Vector3{X: raw.Gyroscope[0], Y: raw.Gyroscope[1], Z: raw.Gyroscope[2]},
		// Touch layout: chest, head front/middle/rear, left foot bumpers,
		// left hand back/left/right, right foot bumpers, right hand.
		Buttons: Buttons{
			Chest:            t[0] > 0.5,
			LFootBumperLeft:  t[4] > 0.5,
			LFootBumperRight: t[5] > 0.5,
			RFootBumperLeft:  t[9] > 0.5,
			RFootBumperRight: t[10] > 0.5,
		},
		Touch: Touch{
			HeadFront:  t[1] > 0.5,
			HeadMiddle: t[2] > 0.5,
			HeadRear:   t[3] > 0.5,
			LHandBack:  t[6] > 0.5,
			LHandLeft:  t[7] > 0.5,
			LHandRight: t[8] > 0.5,
			RHandBack:  t[11] > 0.5,
			RHandLeft:  t[12] > 0.5,
			RHandRight: t[13] > 0.5,
		},
		Sonar: Sonar{Left: raw.Sonar[0], Right: raw.Sonar[1]},
		RobotConfig: RobotConfig{
			BodyID:      raw.RobotConfig[0],
			BodyVersion: raw.RobotConfig[1],
			HeadID:      raw.RobotConfig[2],
			HeadVersion: raw.RobotConfig[3],
		},
	}

	var err error
	if f.JointPositions, err = jointsToExternal(raw.Position); err != nil {
		return SensorFrame{}, err
	}
	if f.JointStiffnesses, err = jointsToExternal(raw.Stiffness); err != nil {
		return SensorFrame{}, err
	}
	if f.JointTemperatures, err = jointsToExternal(raw.Temperature); err != nil {
		return SensorFrame{}, err
	}
	if f.JointCurrents, err = jointsToExternal(raw.Current); err != nil {
		return SensorFrame{}, err
	}
	statuses, err := jointsToExternal(raw.Status)
	if err != nil {
		return SensorFrame{}, err
	}
	f.JointStatuses = make([]int32, len(statuses))
	for i, s := range statuses {
		f.JointStatuses[i] = int32(s)
	}
	return f, nil
}

// jointsToExternal reorders a hardware-ordered joint array into bus order.
func jointsToExternal(hw []float32) ([]float32, error) {
	out := make([]float32, len(hw))
	for h, v := range hw {
		ext, err := ExternalIndex(JointPositions, h)
		if err != nil {
			return nil, err
		}
		out[ext] = v
	}
	return out, nil
}

// EncodeSensorFrame serialises a sensor frame in the LoLA layout, padded with
// zeros to size bytes when size is larger than the encoding. It is used by
// the simulated robot and by tests.
func EncodeSensorFrame(f SensorFrame, size int) ([]byte, error) {
	toHW := func(ext []float32) []float32 {
		hw := make([]float32, NumJoints)
		for i, v := range ext {
			if h, err := Lookup(JointPositions, i); err == nil {
				hw[h] = v
			}
		}
		return hw
	}
	b := func(v bool) float32 {
		if v {
			return 1
		}
		return 0
	}
	statuses := make([]float32, len(f.JointStatuses))
	for i, s := range f.JointStatuses {
		statuses[i] = float32(s)
	}
	raw := rawSensorFrame{
		Accelerometer: []float32{f.Accelerometer.X, f.Accelerometer.Y, f.Accelerometer.Z},
		Angles:        []float32{f.Angle.X, f.Angle.Y},
		Battery:       []float32{f.Battery.Charge, f.Battery.Status, f.Battery.Current, f.Battery.Temperature},
		Current:       toHW(f.JointCurrents),
		FSR: []float32{
			f.FSR.LFootFrontLeft, f.FSR.LFootFrontRight, f.FSR.LFootBackLeft, f.FSR.LFootBackRight,
			f.FSR.RFootFrontLeft, f.FSR.RFootFrontRight, f.FSR.RFootBackLeft, f.FSR.RFootBackRight,
		},
		Gyroscope:   []float32{f.Gyroscope.X, f.Gyroscope.Y, f.Gyroscope.Z},
		Position:    toHW(f.JointPositions),
		Sonar:       []float32{f.Sonar.Left, f.Sonar.Right},
		Stiffness:   toHW(f.JointStiffnesses),
		Temperature: toHW(f.JointTemperatures),
		Touch: []float32{
			b(f.Buttons.Chest), b(f.Touch.HeadFront), b(f.Touch.HeadMiddle), b(f.Touch.HeadRear),
			b(f.Buttons.LFootBumperLeft), b(f.Buttons.LFootBumperRight),
			b(f.Touch.LHandBack), b(f.Touch.LHandLeft), b(f.Touch.LHandRight),
			b(f.Buttons.RFootBumperLeft), b(f.Buttons.RFootBumperRight),
			b(f.Touch.RHandBack), b(f.Touch.RHandLeft), b(f.Touch.RHandRight),
		},
		Status: toHW(statuses),
		RobotConfig: []string{
			f.RobotConfig.BodyID, f.RobotConfig.BodyVersion,
			f.RobotConfig.HeadID, f.RobotConfig.HeadVersion,
		},
	}
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.UseCompactFloats(true)
	if err := enc.Encode(&raw); err != nil {
		return nil, fmt.Errorf("failed to encode sensor frame: %w", err)
	}
	data := buf.Bytes()
	if len(data) > size {
		if size > 0 {
			return nil, fmt.Errorf("sensor frame is %d bytes, larger than frame size %d", len(data), size)
		}
		return data, nil
	}
	padded := make([]byte, size)
	copy(padded, data)
	return padded, nil
}
