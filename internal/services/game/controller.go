package game

import (
	"github.com/minhtien379/Loto/internal/dependencies/clock"
	"github.com/minhtien379/Loto/internal/dependencies/ids"
	"github.com/minhtien379/Loto/internal/dependencies/random"
	"github.com/minhtien379/Loto/internal/model"
)

// Controller is the host-authoritative draw state machine.
// It is not safe for concurrent use; the owning room serializes access.
type Controller struct {
	random random.Random
	clock  clock.Clock

	roundID  model.RoundID
	phase    model.Phase
	pool     []int
	called   []int
	isCalled [model.MaxNumber + 1]bool
	current  int
	drawing  bool
}

// NewController creates a Controller with a freshly shuffled pool
func NewController(random random.Random, clock clock.Clock) *Controller {
	c := &Controller{
		random: random,
		clock:  clock,
	}
	c.Reset()
	return c
}

// BeginDraw takes the next number from the pool and marks a draw in flight.
// The caller must call EndDraw once the number has been announced.
func (c *Controller) BeginDraw() (int, error) {
	if c.drawing {
		return 0, model.ErrDrawInProgress
	}
	if len(c.pool) == 0 {
		return 0, model.ErrNoNumbersRemaining
	}

	last := len(c.pool) - 1
	n := c.pool[last]
	c.pool = c.pool[:last]

	c.called = append(c.called, n)
	c.isCalled[n] = true
	c.current = n
	c.phase = model.PhaseStarted
	c.drawing = true
	return n, nil
}

// EndDraw clears the in-flight flag
func (c *Controller) EndDraw() {
	c.drawing = false
}

// Drawing reports whether a draw is in flight
func (c *Controller) Drawing() bool {
	return c.drawing
}

// Reset starts a new round with every number back in a reshuffled pool
func (c *Controller) Reset() model.RoundID {
	c.roundID = ids.NewRoundID(c.clock.Now())
	c.phase = model.PhaseNotStarted
	c.called = nil
	c.isCalled = [model.MaxNumber + 1]bool{}
	c.current = 0
	c.drawing = false
	c.pool = c.shuffledPool(nil)
	return c.roundID
}

// Restore rebuilds a round from persisted state. Called numbers are excluded
// from the pool so they cannot be drawn again. Out of range and repeated
// values are skipped.
func (c *Controller) Restore(roundID model.RoundID, called []int, current int) {
	c.Reset()
	if roundID != "" {
		c.roundID = roundID
	}
	for _, n := range called {
		if n < model.MinNumber || n > model.MaxNumber || c.isCalled[n] {
			continue
		}
		c.isCalled[n] = true
		c.called = append(c.called, n)
	}
	c.pool = c.shuffledPool(&c.isCalled)

	if len(c.called) == 0 {
		return
	}
	c.phase = model.PhaseStarted
	c.current = c.called[len(c.called)-1]
	if current >= model.MinNumber && current <= model.MaxNumber && c.isCalled[current] {
		c.current = current
	}
}

// IsCalled reports whether n has been drawn this round
func (c *Controller) IsCalled(n int) bool {
	if n < model.MinNumber || n > model.MaxNumber {
		return false
	}
	return c.isCalled[n]
}

// Started reports whether at least one number has been drawn this round
func (c *Controller) Started() bool {
	return c.phase == model.PhaseStarted
}

// Remaining returns how many numbers are left in the pool
func (c *Controller) Remaining() int {
	return len(c.pool)
}

// RoundID returns the identifier of the current round
func (c *Controller) RoundID() model.RoundID {
	return c.roundID
}

// Snapshot returns a copy of the current state
func (c *Controller) Snapshot() model.GameSnapshot {
	return model.GameSnapshot{
		RoundID:       c.roundID,
		Phase:         c.phase,
		CalledNumbers: append([]int{}, c.called...),
		CurrentNumber: c.current,
		Remaining:     len(c.pool),
		Drawing:       c.drawing,
	}
}

func (c *Controller) shuffledPool(exclude *[model.MaxNumber + 1]bool) []int {
	pool := make([]int, 0, model.MaxNumber)
	for n := model.MinNumber; n <= model.MaxNumber; n++ {
		if exclude != nil && exclude[n] {
			continue
		}
		pool = append(pool, n)
	}
	random.Shuffle(c.random, len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	return pool
}
