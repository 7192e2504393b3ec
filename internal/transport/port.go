// Package transport owns the duplex byte stream to the robot: opening it
// (Unix domain socket or serial link), fixed-size sensor frame reads, whole
// command frame writes, and in-memory stand-ins for tests and dev mode.
package transport

import (
	"io"
)

// Porter is the minimal interface needed for the hardware link. Closing it
// must unblock a pending Read.
type Porter interface {
	io.ReadWriter
	io.Closer
}

// Network selects how the hardware link is opened.
type Network string

const (
	// NetworkUnix dials the LoLA Unix domain socket.
	NetworkUnix Network = "unix"
	// NetworkSerial opens a serial device, used on bench rigs.
	NetworkSerial Network = "serial"
)

const (
	// DefaultSocketPath is where LoLA listens on the robot.
	DefaultSocketPath = "/tmp/robocup"
	// DefaultFrameSize is the size of one LoLA sensor frame in bytes.
	DefaultFrameSize = 896
)

// Options describes how to reach the robot.
type Options struct {
	Network Network
	// Address is the socket path for NetworkUnix or the device path for
	// NetworkSerial.
	Address string
	Serial  PortOptions
}

// Opener opens a Porter. It exists so callers can substitute the simulated
// robot or a test port for the real link.
type Opener func(opts Options) (Porter, error)
