package transport

import (
	"bytes"
	"sync"
	"time"
)

// SimulatedRobot is a Porter that plays the robot side of the link: it
// produces one canned sensor frame per period and swallows command frames.
// It stands in for hardware in dev mode.
type SimulatedRobot struct {
	frame  []byte
	ticker *time.Ticker
	done   chan struct{}
	once   sync.Once

	mu      sync.Mutex
	pending bytes.Buffer
	last    []byte
	written int
}

// NewSimulatedRobot returns a robot emitting frame every period.
func NewSimulatedRobot(frame []byte, period time.Duration) *SimulatedRobot {
	return &SimulatedRobot{
		frame:  append([]byte(nil), frame...),
		ticker: time.NewTicker(period),
		done:   make(chan struct{}),
	}
}

// Read blocks until the next tick when no frame bytes are pending.
func (s *SimulatedRobot) Read(p []byte) (int, error) {
	s.mu.Lock()
	if s.pending.Len() > 0 {
		defer s.mu.Unlock()
		return s.pending.Read(p)
	}
	s.mu.Unlock()

	select {
	case <-s.done:
		return 0, errPortClosed
	case <-s.ticker.C:
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending.Write(s.frame)
	return s.pending.Read(p)
}

// Write records the most recent command frame.
func (s *SimulatedRobot) Write(p []byte) (int, error) {
	select {
	case <-s.done:
		return 0, errPortClosed
	default:
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = append(s.last[:0], p...)
	s.written++
	return len(p), nil
}

// Close stops the robot and unblocks a pending Read.
func (s *SimulatedRobot) Close() error {
	s.once.Do(func() {
		s.ticker.Stop()
		close(s.done)
	})
	return nil
}

// LastCommand returns a copy of the last command frame written and how many
// frames have been written in total.
func (s *SimulatedRobot) LastCommand() ([]byte, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.last...), s.written
}
