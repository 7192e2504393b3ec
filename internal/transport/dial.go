package transport

import (
	"context"
	"fmt"
	"net"
	"time"

	"go.bug.st/serial"
)

// dialTimeout bounds how long opening the LoLA socket may take.
const dialTimeout = 2 * time.Second

// Open opens the hardware link described by opts.
func Open(opts Options) (Porter, error) {
	switch opts.Network {
	case NetworkUnix, "":
		path := opts.Address
		if path == "" {
			path = DefaultSocketPath
		}
		ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
		defer cancel()
		var d net.Dialer
		conn, err := d.DialContext(ctx, "unix", path)
		if err != nil {
			return nil, fmt.Errorf("failed to dial %s: %w", path, err)
		}
		return conn, nil

	case NetworkSerial:
		if opts.Address == "" {
			return nil, fmt.Errorf("serial transport requires a device path")
		}
		mode, err := opts.Serial.SerialMode()
		if err != nil {
			return nil, err
		}
		port, err := serial.Open(opts.Address, mode)
		if err != nil {
			return nil, fmt.Errorf("failed to open serial port %s: %w", opts.Address, err)
		}
		return port, nil
	}
	return nil, fmt.Errorf("unsupported transport %q", opts.Network)
}
