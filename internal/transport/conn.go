package transport

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
)

var (
	// ErrWriteFailed is returned when the link accepts only part of a frame.
	ErrWriteFailed = fmt.Errorf("failed to write command frame")
	// ErrClosed is returned by operations on a closed Conn.
	ErrClosed = errors.New("connection closed")
)

// Conn frames the byte stream: every sensor frame is exactly frameSize
// bytes, every command frame is written in one call.
type Conn struct {
	port      Porter
	frameSize int
	buf       []byte

	writeMu   sync.Mutex
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// NewConn wraps port. A frameSize of 0 selects DefaultFrameSize.
func NewConn(port Porter, frameSize int) *Conn {
	if frameSize <= 0 {
		frameSize = DefaultFrameSize
	}
	return &Conn{
		port:      port,
		frameSize: frameSize,
		buf:       make([]byte, frameSize),
	}
}

// FrameSize returns the sensor frame size in bytes.
func (c *Conn) FrameSize() int { return c.frameSize }

// ReceiveFrame blocks until one complete sensor frame has arrived. The
// returned slice is reused by the next call. Only one goroutine may receive.
func (c *Conn) ReceiveFrame() ([]byte, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	if _, err := io.ReadFull(c.port, c.buf); err != nil {
		if c.closed.Load() {
			return nil, ErrClosed
		}
		return nil, fmt.Errorf("failed to read sensor frame: %w", err)
	}
	return c.buf, nil
}

// Send writes one command frame.
func (c *Conn) Send(frame []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.closed.Load() {
		return ErrClosed
	}
	n, err := c.port.Write(frame)
	if err != nil {
		return fmt.Errorf("failed to send command frame: %w", err)
	}
	if n != len(frame) {
		return ErrWriteFailed
	}
	return nil
}

// Close tears the link down, interrupting a pending ReceiveFrame. It is safe
// to call more than once.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.closeErr = c.port.Close()
	})
	return c.closeErr
}
