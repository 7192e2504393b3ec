package lola

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/vmihailenco/msgpack/v5"
)

func sampleSensorFrame() SensorFrame {
	joints := func(base float32) []float32 {
		out := make([]float32, NumJoints)
		for i := range out {
			out[i] = base + float32(i)*0.5
		}
		return out
	}
	statuses := make([]int32, NumJoints)
	statuses[3] = 2
	return SensorFrame{
		Accelerometer:     Vector3{X: 0.25, Y: -0.5, Z: 9.75},
		Angle:             Angle{X: 0.125, Y: -0.125},
		Battery:           Battery{Charge: 0.75, Status: 3, Current: -1.5, Temperature: 30},
		Buttons:           Buttons{Chest: true, RFootBumperLeft: true},
		FSR:               FSR{LFootFrontLeft: 0.5, RFootBackRight: 1.5},
		Gyroscope:         Vector3{X: 0.5, Y: 0, Z: -0.25},
		JointPositions:    joints(0),
		JointStiffnesses:  joints(1),
		JointTemperatures: joints(30),
		JointCurrents:     joints(0.25),
		JointStatuses:     statuses,
		Sonar:             Sonar{Left: 0.5, Right: 2.5},
		Touch:             Touch{HeadMiddle: true, LHandRight: true},
		RobotConfig:       RobotConfig{BodyID: "P0000074A03S94300019", BodyVersion: "6.0.0", HeadID: "P0000073A06S92600028", HeadVersion: "6.0.0"},
	}
}

func TestSensorFrame_EncodeDecodeWithPadding(t *testing.T) {
	want := sampleSensorFrame()
	data, err := EncodeSensorFrame(want, 2048)
	if err != nil {
		t.Fatalf("EncodeSensorFrame failed: %v", err)
	}
	if len(data) != 2048 {
		t.Fatalf("frame is %d bytes, want padding to 2048", len(data))
	}

	got, err := DecodeSensorFrame(data)
	if err != nil {
		t.Fatalf("DecodeSensorFrame failed: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("sensor frame mismatch (-want +got):\n%s", diff)
	}
}

func TestEncodeSensorFrame_TooLarge(t *testing.T) {
	if _, err := EncodeSensorFrame(sampleSensorFrame(), 16); err == nil {
		t.Fatal("expected error when frame does not fit")
	}
}

func TestDecodeSensorFrame_RejectsShortArrays(t *testing.T) {
	data, err := msgpack.Marshal(map[string]any{"Position": []float32{1, 2, 3}})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := DecodeSensorFrame(data); err == nil {
		t.Fatal("expected error for incomplete sensor frame")
	}
}

func TestDecodeSensorFrame_Garbage(t *testing.T) {
	if _, err := DecodeSensorFrame([]byte{0xc1}); err == nil {
		t.Fatal("expected error for invalid MessagePack")
	}
}

func TestSensorFrame_Readings(t *testing.T) {
	readings := sampleSensorFrame().Readings()
	if len(readings) != 14 {
		t.Fatalf("got %d readings, want 14", len(readings))
	}
	seen := make(map[string]bool)
	for _, r := range readings {
		if seen[r.Name] {
			t.Errorf("duplicate reading %q", r.Name)
		}
		seen[r.Name] = true
	}
	for _, name := range []string{"joint_positions", "battery", "robot_config", "buttons"} {
		if !seen[name] {
			t.Errorf("missing reading %q", name)
		}
	}
}
