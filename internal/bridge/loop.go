package bridge

import (
	"context"
	"fmt"

	"github.com/banshee-data/nao-lola/internal/bus"
	"github.com/banshee-data/nao-lola/internal/lola"
	"github.com/banshee-data/nao-lola/internal/transport"
)

// Observer is told about each completed cycle. Its methods run on the loop
// goroutine and must not block.
type Observer interface {
	FrameSent(cycle uint64, frame lola.CommandFrame, payload []byte)
	DecodeFailed(err error)
}

// Loop is the control cycle: the robot sends a sensor frame, the loop
// answers with exactly one command frame holding whatever was accumulated
// since the previous reply.
type Loop struct {
	Conn        *transport.Conn
	Accumulator *Accumulator
	// Bus receives decoded sensor sections. Optional.
	Bus *bus.Bus
	// Observer is optional.
	Observer Observer
}

// Run cycles until ctx is cancelled or the link fails. Cancelling ctx closes
// the connection so a blocked receive returns promptly. When the link fails
// the frame already swapped out for that cycle is discarded; nothing is sent
// after a failed receive.
func (l *Loop) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { l.Conn.Close() })
	defer stop()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		data, err := l.Conn.ReceiveFrame()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("receive: %w", err)
		}
		l.publishSensors(data)

		frame, cycle := l.Accumulator.Swap()
		payload, err := lola.Encode(frame)
		if err != nil {
			return fmt.Errorf("failed to encode cycle %d: %w", cycle, err)
		}
		if err := l.Conn.Send(payload); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("send cycle %d: %w", cycle, err)
		}
		if l.Observer != nil {
			l.Observer.FrameSent(cycle, frame, payload)
		}
	}
}

func (l *Loop) publishSensors(data []byte) {
	if l.Bus == nil && l.Observer == nil {
		return
	}
	frame, err := lola.DecodeSensorFrame(data)
	if err != nil {
		if l.Observer != nil {
			l.Observer.DecodeFailed(err)
		}
		return
	}
	if l.Bus == nil {
		return
	}
	for _, r := range frame.Readings() {
		l.Bus.Publish(SensorTopic(r.Name), r.Value)
	}
}
