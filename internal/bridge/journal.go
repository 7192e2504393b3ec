package bridge

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/banshee-data/nao-lola/internal/db"
	"github.com/banshee-data/nao-lola/internal/monitoring"
)

// Recorder persists the cycle journal. *db.DB implements it.
type Recorder interface {
	RecordSession(s db.Session) error
	EndSession(id string, at time.Time, reason string) error
	RecordFrame(f db.FrameRecord) error
	RecordRejected(r db.RejectedUpdate) error
}

// DefaultJournalDepth is the number of journal writes that may be pending
// before new ones are dropped.
const DefaultJournalDepth = 1024

// journal decouples the control loop from disk: writes are queued and applied
// by a single goroutine, and dropped when the queue is full.
type journal struct {
	rec     Recorder
	queue   chan func(Recorder) error
	dropped atomic.Uint64
	failed  atomic.Uint64
}

func newJournal(rec Recorder, depth int) *journal {
	if depth <= 0 {
		depth = DefaultJournalDepth
	}
	return &journal{rec: rec, queue: make(chan func(Recorder) error, depth)}
}

// enqueue never blocks. It reports whether the write was queued.
func (j *journal) enqueue(write func(Recorder) error) bool {
	select {
	case j.queue <- write:
		return true
	default:
		j.dropped.Add(1)
		return false
	}
}

// run applies queued writes until ctx is done, then flushes what is left.
func (j *journal) run(ctx context.Context) {
	for {
		select {
		case write := <-j.queue:
			j.apply(write)
		case <-ctx.Done():
			for {
				select {
				case write := <-j.queue:
					j.apply(write)
				default:
					return
				}
			}
		}
	}
}

func (j *journal) apply(write func(Recorder) error) {
	if err := write(j.rec); err != nil {
		monitoring.LogSampled(j.failed.Add(1), 1000, "journal write failed: %v", err)
	}
}
