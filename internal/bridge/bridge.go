// Package bridge connects the effector bus to the robot: it folds incoming
// channel updates into the current cycle's command frame and runs the
// control loop that answers every sensor frame with that command frame.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/nao-lola/internal/bus"
	"github.com/banshee-data/nao-lola/internal/db"
	"github.com/banshee-data/nao-lola/internal/lola"
	"github.com/banshee-data/nao-lola/internal/monitoring"
	"github.com/banshee-data/nao-lola/internal/transport"
)

// Config configures a Bridge.
type Config struct {
	Bus *bus.Bus
	// Recorder, when set, receives the cycle journal.
	Recorder Recorder
	// JournalDepth bounds pending journal writes. 0 selects
	// DefaultJournalDepth.
	JournalDepth int
}

// SessionInfo describes the link a session runs over.
type SessionInfo struct {
	Transport string
	Address   string
}

// FrameSummary describes one transmitted command frame.
type FrameSummary struct {
	Session string    `json:"session"`
	Cycle   uint64    `json:"cycle"`
	Groups  []string  `json:"groups"`
	Bytes   int       `json:"bytes"`
	SentAt  time.Time `json:"sent_at"`
}

// Bridge owns the Accumulator shared by the effector subscribers and the
// control loop.
type Bridge struct {
	bus     *bus.Bus
	acc     *Accumulator
	journal *journal
	stats   counters

	mu        sync.Mutex
	session   string
	lastSum   FrameSummary
	lastFrame lola.CommandFrame
	hasLast   bool
	lastAt    time.Time

	wg            sync.WaitGroup
	journalCancel context.CancelFunc
	journalDone   chan struct{}
}

func New(cfg Config) *Bridge {
	b := &Bridge{
		bus: cfg.Bus,
		acc: NewAccumulator(),
	}
	if b.bus == nil {
		b.bus = bus.New()
	}
	if cfg.Recorder != nil {
		b.journal = newJournal(cfg.Recorder, cfg.JournalDepth)
	}
	return b
}

func (b *Bridge) Bus() *bus.Bus             { return b.bus }
func (b *Bridge) Accumulator() *Accumulator { return b.acc }

// Start subscribes to every effector topic with a depth of one, so an
// update not yet applied is superseded by a newer one on the same topic.
// Subscribers stop when ctx is done.
func (b *Bridge) Start(ctx context.Context) {
	for _, g := range lola.AllGroups() {
		sub := b.bus.Subscribe(EffectorTopic(g), 1)
		b.wg.Add(1)
		go b.consume(ctx, g, sub)
	}
	if b.journal != nil {
		jctx, cancel := context.WithCancel(context.Background())
		b.journalCancel = cancel
		b.journalDone = make(chan struct{})
		go func() {
			defer close(b.journalDone)
			b.journal.run(jctx)
		}()
	}
}

// Close waits for the subscribers to stop, then flushes the journal. Call it
// after the context passed to Start is done and Serve has returned.
func (b *Bridge) Close() {
	b.wg.Wait()
	if b.journalCancel != nil {
		b.journalCancel()
		<-b.journalDone
	}
}

func (b *Bridge) consume(ctx context.Context, g lola.Group, sub *bus.Subscription) {
	defer b.wg.Done()
	defer sub.Unsubscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.Channel():
			if !ok {
				return
			}
			b.HandleUpdate(g, msg)
		}
	}
}

// HandleUpdate applies one bus message carrying an update for g. Rejected
// updates are logged, counted and journaled; the error is returned as well.
func (b *Bridge) HandleUpdate(g lola.Group, msg bus.Message) error {
	u, ok := msg.Payload.(lola.ChannelUpdate)
	var err error
	switch {
	case !ok:
		err = fmt.Errorf("%w: %T on %s", lola.ErrUnknownUpdate, msg.Payload, msg.Topic)
	case u.Group() != g:
		err = fmt.Errorf("%w: %s update on %s", lola.ErrUnknownUpdate, u.Group(), msg.Topic)
	default:
		err = b.acc.Apply(u)
	}
	if err != nil {
		b.reject(msg.Topic, err)
		return err
	}
	b.stats.updatesApplied.Add(1)
	return nil
}

func (b *Bridge) reject(topic string, err error) {
	kind := ErrorKind(err)
	b.stats.reject(kind)
	if kind == KindUnknownIndex {
		monitoring.Logf("ERROR: rejected %s update: %v", topic, err)
	} else {
		monitoring.Logf("rejected %s update: %v", topic, err)
	}
	if b.journal == nil {
		return
	}
	rec := db.RejectedUpdate{
		SessionID:  b.Session(),
		Topic:      topic,
		Kind:       kind,
		Message:    err.Error(),
		RejectedAt: time.Now(),
	}
	b.journal.enqueue(func(r Recorder) error { return r.RecordRejected(rec) })
}

// Session returns the id of the running session, or "" between sessions.
func (b *Bridge) Session() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.session
}

// Serve runs the control loop over conn as one journal session. conn is
// closed on return. The returned error is ctx.Err() on shutdown, otherwise
// the link failure.
func (b *Bridge) Serve(ctx context.Context, conn *transport.Conn, info SessionInfo) error {
	defer conn.Close()

	id := uuid.NewString()
	b.mu.Lock()
	b.session = id
	b.mu.Unlock()

	if b.journal != nil {
		s := db.Session{
			ID:        id,
			Transport: info.Transport,
			Address:   info.Address,
			FrameSize: conn.FrameSize(),
			StartedAt: time.Now(),
		}
		b.journal.enqueue(func(r Recorder) error { return r.RecordSession(s) })
	}
	monitoring.Logf("session %s started on %s %s", id, info.Transport, info.Address)

	loop := &Loop{Conn: conn, Accumulator: b.acc, Bus: b.bus, Observer: b}
	err := loop.Run(ctx)

	reason := "shutdown"
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		reason = err.Error()
	}
	monitoring.Logf("session %s ended: %s", id, reason)
	if b.journal != nil {
		ended := time.Now()
		b.journal.enqueue(func(r Recorder) error { return r.EndSession(id, ended, reason) })
	}

	b.mu.Lock()
	b.session = ""
	b.mu.Unlock()
	return err
}

// FrameSent implements Observer.
func (b *Bridge) FrameSent(cycle uint64, frame lola.CommandFrame, payload []byte) {
	now := time.Now()
	b.stats.cycles.Add(1)

	b.mu.Lock()
	sum := FrameSummary{
		Session: b.session,
		Cycle:   cycle,
		Groups:  frame.Keys(),
		Bytes:   len(payload),
		SentAt:  now,
	}
	b.lastSum = sum
	b.lastFrame = frame
	b.hasLast = true
	b.lastAt = now
	b.mu.Unlock()

	if b.journal != nil {
		rec := db.FrameRecord{
			SessionID: sum.Session,
			Cycle:     cycle,
			Groups:    sum.Groups,
			Payload:   payload,
			SentAt:    now,
		}
		b.journal.enqueue(func(r Recorder) error { return r.RecordFrame(rec) })
	}
	b.bus.Publish(FramesTopic, sum)
}

// DecodeFailed implements Observer.
func (b *Bridge) DecodeFailed(err error) {
	monitoring.LogSampled(b.stats.decodeErrors.Add(1), 1000, "failed to decode sensor frame: %v", err)
}

// LastFrame returns the most recently transmitted frame.
func (b *Bridge) LastFrame() (FrameSummary, lola.CommandFrame, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastSum, b.lastFrame, b.hasLast
}

// Stats returns a snapshot of the bridge counters.
func (b *Bridge) Stats() Stats {
	s := Stats{
		Cycles:         b.stats.cycles.Load(),
		UpdatesApplied: b.stats.updatesApplied.Load(),
		Rejected: map[string]uint64{
			KindSizeMismatch:  b.stats.sizeMismatch.Load(),
			KindUnknownIndex:  b.stats.unknownIndex.Load(),
			KindUnknownUpdate: b.stats.unknownUpdate.Load(),
		},
		DecodeErrors: b.stats.decodeErrors.Load(),
		BusDropped:   b.bus.Dropped(),
	}
	if b.journal != nil {
		s.JournalDropped = b.journal.dropped.Load()
		s.JournalFailed = b.journal.failed.Load()
	}
	b.mu.Lock()
	s.Session = b.session
	s.LastCycleAt = b.lastAt
	b.mu.Unlock()
	return s
}
