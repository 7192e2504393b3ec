package lola

import "fmt"

// CommandFrameBuilder accumulates actuator updates for exactly one control
// cycle. A group is present in the finalized frame once any update for it
// has been applied. Builders are not safe for concurrent use and are never
// reset; start each cycle with a new one.
type CommandFrameBuilder struct {
	floats [numGroups][]float32
	sonar  []bool
}

// NewCommandFrameBuilder returns an empty builder with no group present.
func NewCommandFrameBuilder() *CommandFrameBuilder {
	return &CommandFrameBuilder{}
}

// Apply folds one update into the builder.
//
// Joint updates merge into the array built so far this cycle. Ear, eye and
// head LED updates replace the group's array on every call. Chest, foot and
// sonar updates always replace the whole payload. A rejected update
// (ErrSizeMismatch, ErrUnknownIndex) leaves the builder unchanged.
func (b *CommandFrameBuilder) Apply(u ChannelUpdate) error {
	switch u := u.(type) {
	case JointPositionsUpdate:
		return b.mergeIndexed(JointPositions, u.Indices, u.Positions)
	case JointStiffnessesUpdate:
		return b.mergeIndexed(JointStiffnesses, u.Indices, u.Stiffnesses)
	case LeftEarLedsUpdate:
		return b.replaceIndexed(LeftEarLeds, u.Indices, u.Intensities)
	case RightEarLedsUpdate:
		return b.replaceIndexed(RightEarLeds, u.Indices, u.Intensities)
	case HeadLedsUpdate:
		return b.replaceIndexed(HeadLeds, u.Indices, u.Intensities)
	case LeftEyeLedsUpdate:
		return b.replaceEye(LeftEyeLeds, u.Indices, u.Colors)
	case RightEyeLedsUpdate:
		return b.replaceEye(RightEyeLeds, u.Indices, u.Colors)
	case ChestLedUpdate:
		b.replaceColor(ChestLed, u.Color)
	case LeftFootLedUpdate:
		b.replaceColor(LeftFootLed, u.Color)
	case RightFootLedUpdate:
		b.replaceColor(RightFootLed, u.Color)
	case SonarUsageUpdate:
		b.sonar = []bool{u.Left, u.Right}
	default:
		return fmt.Errorf("%w: %T", ErrUnknownUpdate, u)
	}
	return nil
}

// resolve validates a whole indexed update before anything is written.
func resolve(g Group, indices []int, values int) ([]int, error) {
	if len(indices) != values {
		return nil, &SizeError{Group: g, Indices: len(indices), Values: values}
	}
	hw := make([]int, len(indices))
	for k, i := range indices {
		h, err := Lookup(g, i)
		if err != nil {
			return nil, err
		}
		hw[k] = h
	}
	return hw, nil
}

func (b *CommandFrameBuilder) mergeIndexed(g Group, indices []int, values []float32) error {
	hw, err := resolve(g, indices, len(values))
	if err != nil {
		return err
	}
	arr := b.floats[g]
	if arr == nil {
		arr = make([]float32, g.HardwareLength())
		b.floats[g] = arr
	}
	for k, h := range hw {
		arr[h] = values[k]
	}
	return nil
}

func (b *CommandFrameBuilder) replaceIndexed(g Group, indices []int, values []float32) error {
	hw, err := resolve(g, indices, len(values))
	if err != nil {
		return err
	}
	arr := make([]float32, g.HardwareLength())
	for k, h := range hw {
		arr[h] = values[k]
	}
	b.floats[g] = arr
	return nil
}

func (b *CommandFrameBuilder) replaceEye(g Group, indices []int, colors []Color) error {
	hw, err := resolve(g, indices, len(colors))
	if err != nil {
		return err
	}
	arr := make([]float32, g.HardwareLength())
	for k, base := range hw {
		arr[base] = colors[k].R
		arr[base+NumEyeLeds] = colors[k].G
		arr[base+2*NumEyeLeds] = colors[k].B
	}
	b.floats[g] = arr
	return nil
}

func (b *CommandFrameBuilder) replaceColor(g Group, c Color) {
	b.floats[g] = []float32{c.R, c.G, c.B}
}

// Present reports whether any update for g has been applied.
func (b *CommandFrameBuilder) Present(g Group) bool {
	if g == SonarUsage {
		return b.sonar != nil
	}
	return g.Valid() && b.floats[g] != nil
}

// Frame returns the command frame for the current state. It copies every
// present array, so later updates to the builder do not leak into the
// returned frame. Frame never changes the builder.
func (b *CommandFrameBuilder) Frame() CommandFrame {
	var f CommandFrame
	for g := Group(0); g < numGroups; g++ {
		if g == SonarUsage || b.floats[g] == nil {
			continue
		}
		*f.floatSlot(g) = append([]float32(nil), b.floats[g]...)
	}
	if b.sonar != nil {
		f.Sonar = append([]bool(nil), b.sonar...)
	}
	return f
}
