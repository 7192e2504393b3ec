package bridge

import (
	"sync"

	"github.com/banshee-data/nao-lola/internal/lola"
)

// Accumulator owns the command frame being built for the current cycle.
// Every update and the loop's finalize-and-swap run under one mutex, so each
// update lands wholly in exactly one frame.
type Accumulator struct {
	mu      sync.Mutex
	builder *lola.CommandFrameBuilder
	cycle   uint64
}

func NewAccumulator() *Accumulator {
	return &Accumulator{builder: lola.NewCommandFrameBuilder()}
}

// Apply folds u into the current cycle's frame. A rejected update leaves the
// frame unchanged.
func (a *Accumulator) Apply(u lola.ChannelUpdate) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.builder.Apply(u)
}

// Swap finalizes the current frame, installs a fresh builder for the next
// cycle and returns the finalized frame with its cycle number (from 1).
func (a *Accumulator) Swap() (lola.CommandFrame, uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	frame := a.builder.Frame()
	a.builder = lola.NewCommandFrameBuilder()
	a.cycle++
	return frame, a.cycle
}

// Pending reports which groups the current cycle has updated so far.
func (a *Accumulator) Pending() []lola.Group {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []lola.Group
	for _, g := range lola.AllGroups() {
		if a.builder.Present(g) {
			out = append(out, g)
		}
	}
	return out
}
