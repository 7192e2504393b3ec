package bridge

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/banshee-data/nao-lola/internal/lola"
)

// Error kinds recorded for rejected updates.
const (
	KindSizeMismatch  = "size_mismatch"
	KindUnknownIndex  = "unknown_index"
	KindUnknownUpdate = "unknown_update"
)

// ErrorKind classifies an Apply error for stats and the journal.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, lola.ErrSizeMismatch):
		return KindSizeMismatch
	case errors.Is(err, lola.ErrUnknownIndex):
		return KindUnknownIndex
	default:
		return KindUnknownUpdate
	}
}

// Stats is a point-in-time snapshot of the bridge counters.
type Stats struct {
	Session        string            `json:"session,omitempty"`
	Cycles         uint64            `json:"cycles"`
	UpdatesApplied uint64            `json:"updates_applied"`
	Rejected       map[string]uint64 `json:"rejected"`
	DecodeErrors   uint64            `json:"decode_errors"`
	BusDropped     uint64            `json:"bus_dropped"`
	JournalDropped uint64            `json:"journal_dropped"`
	JournalFailed  uint64            `json:"journal_failed"`
	LastCycleAt    time.Time         `json:"last_cycle_at,omitzero"`
}

type counters struct {
	cycles         atomic.Uint64
	updatesApplied atomic.Uint64
	sizeMismatch   atomic.Uint64
	unknownIndex   atomic.Uint64
	unknownUpdate  atomic.Uint64
	decodeErrors   atomic.Uint64
}

func (c *counters) reject(kind string) {
	switch kind {
	case KindSizeMismatch:
		c.sizeMismatch.Add(1)
	case KindUnknownIndex:
		c.unknownIndex.Add(1)
	default:
		c.unknownUpdate.Add(1)
	}
}
