package transport

import (
	"bytes"
	"errors"
	"sync"
)

// TestablePort implements Porter with configurable behaviour for testing.
// Reads are served from ReadBuffer; every Write is recorded separately so
// tests can inspect individual command frames.
type TestablePort struct {
	mu sync.Mutex

	// ReadBuffer holds data to be returned by Read calls.
	ReadBuffer *bytes.Buffer

	// ReadError is returned by the next Read call if set.
	ReadError error

	// WriteError is returned by the next Write call if set.
	WriteError error

	// ShortWrite makes the next Write report one byte fewer than given.
	ShortWrite bool

	// CloseError is returned by Close if set.
	CloseError error

	// BlockReads causes Read to block until data is added or Close is called.
	BlockReads bool

	// OnWrite, if set, is called with a copy of every successful write,
	// outside the port's lock.
	OnWrite func([]byte)

	closed   bool
	writes   [][]byte
	readCond *sync.Cond
}

// NewTestablePort creates a TestablePort with blocking reads enabled.
func NewTestablePort() *TestablePort {
	p := &TestablePort{
		ReadBuffer: bytes.NewBuffer(nil),
		BlockReads: true,
	}
	p.readCond = sync.NewCond(&p.mu)
	return p
}

var errPortClosed = errors.New("port closed")

// Read reads from the read buffer, optionally blocking until data arrives.
func (p *TestablePort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return 0, errPortClosed
	}
	if p.ReadError != nil {
		err := p.ReadError
		p.ReadError = nil
		return 0, err
	}
	if p.BlockReads {
		for !p.closed && p.ReadBuffer.Len() == 0 && p.ReadError == nil {
			p.readCond.Wait()
		}
		if p.closed {
			return 0, errPortClosed
		}
		if p.ReadError != nil {
			err := p.ReadError
			p.ReadError = nil
			return 0, err
		}
	}
	return p.ReadBuffer.Read(b)
}

// Write records b as one frame.
func (p *TestablePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return 0, errPortClosed
	}
	if p.WriteError != nil {
		err := p.WriteError
		p.WriteError = nil
		p.mu.Unlock()
		return 0, err
	}
	n := len(b)
	if p.ShortWrite && n > 0 {
		p.ShortWrite = false
		n--
	}
	frame := append([]byte(nil), b[:n]...)
	p.writes = append(p.writes, frame)
	hook := p.OnWrite
	p.mu.Unlock()

	if hook != nil {
		hook(append([]byte(nil), frame...))
	}
	return n, nil
}

// Close marks the port closed and wakes blocked readers.
func (p *TestablePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	p.readCond.Broadcast()
	return p.CloseError
}

// Closed reports whether Close has been called.
func (p *TestablePort) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// AddReadData queues data for subsequent Read calls.
func (p *TestablePort) AddReadData(data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.ReadBuffer.Write(data)
	p.readCond.Broadcast()
}

// FailNextRead makes the next Read return err, waking a blocked reader.
func (p *TestablePort) FailNextRead(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.ReadError = err
	p.readCond.Broadcast()
}

// Writes returns a copy of every frame written so far.
func (p *TestablePort) Writes() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([][]byte, len(p.writes))
	copy(out, p.writes)
	return out
}
