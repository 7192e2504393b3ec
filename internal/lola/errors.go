package lola

import (
	"errors"
	"fmt"
)

var (
	// ErrSizeMismatch is returned when an indexed update carries index and
	// value sequences of different lengths. The update is not applied.
	ErrSizeMismatch = errors.New("index and value lengths differ")

	// ErrUnknownIndex is returned when an external index falls outside a
	// group's domain. It signals a version mismatch between the bus message
	// definitions and the hardware layout.
	ErrUnknownIndex = errors.New("unknown channel index")

	// ErrUnknownUpdate is returned for ChannelUpdate values the builder
	// does not recognise.
	ErrUnknownUpdate = errors.New("unknown channel update")
)

// IndexError describes an out-of-domain index. It matches ErrUnknownIndex
// under errors.Is.
type IndexError struct {
	Group      Group
	Index      int
	DomainSize int
	Hardware   bool
}

func (e *IndexError) Error() string {
	side := "external"
	if e.Hardware {
		side = "hardware"
	}
	return fmt.Sprintf("%s: %s %s index %d outside [0, %d)", ErrUnknownIndex, e.Group, side, e.Index, e.DomainSize)
}

func (e *IndexError) Is(target error) bool { return target == ErrUnknownIndex }

// SizeError describes an indexed update whose sequences disagree in length.
// It matches ErrSizeMismatch under errors.Is.
type SizeError struct {
	Group   Group
	Indices int
	Values  int
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("%s: %s update has %d indices and %d values", ErrSizeMismatch, e.Group, e.Indices, e.Values)
}

func (e *SizeError) Is(target error) bool { return target == ErrSizeMismatch }
