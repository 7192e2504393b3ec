package lola

import (
	"bytes"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// CommandFrame is one outgoing LoLA command. A nil field means the group was
// not updated this cycle and is omitted from the wire map, so the hardware
// keeps its last commanded value. A present field always has the group's
// full hardware length.
type CommandFrame struct {
	Position  []float32 `msgpack:"Position,omitempty" json:"Position,omitempty"`
	Stiffness []float32 `msgpack:"Stiffness,omitempty" json:"Stiffness,omitempty"`
	Chest     []float32 `msgpack:"Chest,omitempty" json:"Chest,omitempty"`
	LEar      []float32 `msgpack:"LEar,omitempty" json:"LEar,omitempty"`
	REar      []float32 `msgpack:"REar,omitempty" json:"REar,omitempty"`
	LEye      []float32 `msgpack:"LEye,omitempty" json:"LEye,omitempty"`
	REye      []float32 `msgpack:"REye,omitempty" json:"REye,omitempty"`
	LFoot     []float32 `msgpack:"LFoot,omitempty" json:"LFoot,omitempty"`
	RFoot     []float32 `msgpack:"RFoot,omitempty" json:"RFoot,omitempty"`
	Skull     []float32 `msgpack:"Skull,omitempty" json:"Skull,omitempty"`
	Sonar     []bool    `msgpack:"Sonar,omitempty" json:"Sonar,omitempty"`
}

func (f *CommandFrame) floatSlot(g Group) *[]float32 {
	switch g {
	case JointPositions:
		return &f.Position
	case JointStiffnesses:
		return &f.Stiffness
	case ChestLed:
		return &f.Chest
	case LeftEarLeds:
		return &f.LEar
	case RightEarLeds:
		return &f.REar
	case LeftEyeLeds:
		return &f.LEye
	case RightEyeLeds:
		return &f.REye
	case LeftFootLed:
		return &f.LFoot
	case RightFootLed:
		return &f.RFoot
	case HeadLeds:
		return &f.Skull
	}
	return nil
}

// Floats returns the float array for g, or nil when g is absent or is the
// boolean sonar group.
func (f CommandFrame) Floats(g Group) []float32 {
	if s := f.floatSlot(g); s != nil {
		return *s
	}
	return nil
}

// Has reports whether g is present in the frame.
func (f CommandFrame) Has(g Group) bool {
	if g == SonarUsage {
		return f.Sonar != nil
	}
	return f.Floats(g) != nil
}

// Groups lists the present groups in wire order.
func (f CommandFrame) Groups() []Group {
	var out []Group
	for g := Group(0); g < numGroups; g++ {
		if f.Has(g) {
			out = append(out, g)
		}
	}
	return out
}

// Keys lists the wire keys of the present groups.
func (f CommandFrame) Keys() []string {
	groups := f.Groups()
	keys := make([]string, len(groups))
	for i, g := range groups {
		keys[i] = g.Key()
	}
	return keys
}

// Empty reports whether no group is present.
func (f CommandFrame) Empty() bool { return len(f.Groups()) == 0 }

// Encode serialises f as a MessagePack map keyed by group key.
func Encode(f CommandFrame) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	if err := enc.Encode(&f); err != nil {
		return nil, fmt.Errorf("failed to encode command frame: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeCommandFrame parses an encoded command frame and checks that every
// present group has its hardware length.
func DecodeCommandFrame(data []byte) (CommandFrame, error) {
	var f CommandFrame
	if err := msgpack.Unmarshal(data, &f); err != nil {
		return CommandFrame{}, fmt.Errorf("failed to decode command frame: %w", err)
	}
	for _, g := range f.Groups() {
		n := len(f.Floats(g))
		if g == SonarUsage {
			n = len(f.Sonar)
		}
		if n != g.HardwareLength() {
			return CommandFrame{}, fmt.Errorf("command frame %s has %d values, want %d", g.Key(), n, g.HardwareLength())
		}
	}
	return f, nil
}
