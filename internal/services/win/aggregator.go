package win

import (
	"slices"
	"sync"
	"time"

	"github.com/minhtien379/Loto/internal/dependencies/clock"
)

// DefaultWindow is how long the aggregator waits for simultaneous winners
const DefaultWindow = 2000 * time.Millisecond

// Aggregator collects accepted winners that arrive close together and
// confirms them in one announcement when the window closes.
//
// Add and Cancel must be called with locker held. The window callback
// acquires locker itself before calling onConfirm.
type Aggregator struct {
	clock     clock.Clock
	window    time.Duration
	locker    sync.Locker
	onConfirm func(names []string)

	names      []string
	timer      clock.Timer
	generation uint64
}

// NewAggregator creates an Aggregator
func NewAggregator(clock clock.Clock, window time.Duration, locker sync.Locker, onConfirm func(names []string)) *Aggregator {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Aggregator{
		clock:     clock,
		window:    window,
		locker:    locker,
		onConfirm: onConfirm,
	}
}

// Add records a winner. The first winner opens the window; it reports whether it did.
func (a *Aggregator) Add(name string) bool {
	if !slices.Contains(a.names, name) {
		a.names = append(a.names, name)
	}
	if a.timer != nil {
		return false
	}
	gen := a.generation
	a.timer = a.clock.AfterFunc(a.window, func() { a.fire(gen) })
	return true
}

// Cancel drops the open window and any collected names
func (a *Aggregator) Cancel() {
	a.generation++
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.names = nil
}

// Pending returns the names collected in the open window
func (a *Aggregator) Pending() []string {
	return slices.Clone(a.names)
}

// Open reports whether a window is collecting names
func (a *Aggregator) Open() bool {
	return a.timer != nil
}

func (a *Aggregator) fire(gen uint64) {
	a.locker.Lock()
	defer a.locker.Unlock()
	if gen != a.generation {
		return
	}
	names := a.names
	a.names = nil
	a.timer = nil
	a.generation++
	if len(names) > 0 {
		a.onConfirm(names)
	}
}
