// Package budget manages the iteration allowance a task gets before the
// orchestrator must stop and report whatever progress it made. The
// allocation formula scales with how complex the goal looked at the start
// (pkg/complexity.Score), and can be adjusted mid-task as the planner
// re-estimates complexity, without ever dropping below iterations already
// spent.
package budget

import (
	"fmt"
	"math"
	"time"

	"github.com/adhocore/gronx"
)

const (
	minIterations = 8
	maxIterations = 50

	// margin is the conservative safety margin δ applied to the raw
	// complexity-scaled term before flooring.
	margin = 0.05
)

// Manager tracks a task's iteration allowance and consumption.
type Manager struct {
	allocated int
	consumed  int
}

// Allocate computes the initial iteration budget from a complexity score in
// [0,1]: I = 8 + floor(25 · C · (1 + δ)), clamped to [8, 50].
func Allocate(complexityScore float64) *Manager {
	return &Manager{allocated: allocationFor(complexityScore)}
}

func allocationFor(complexityScore float64) int {
	if complexityScore < 0 {
		complexityScore = 0
	}
	if complexityScore > 1 {
		complexityScore = 1
	}
	n := minIterations + int(math.Floor(25*complexityScore*(1+margin)))
	if n < minIterations {
		n = minIterations
	}
	if n > maxIterations {
		n = maxIterations
	}
	return n
}

// Consume records one spent iteration and reports whether budget remains.
func (m *Manager) Consume() bool {
	m.consumed++
	return m.consumed < m.allocated
}

// Consumed returns how many iterations have been spent so far.
func (m *Manager) Consumed() int {
	return m.consumed
}

// Remaining returns how many iterations remain, never negative.
func (m *Manager) Remaining() int {
	r := m.allocated - m.consumed
	if r < 0 {
		return 0
	}
	return r
}

// Adjust recomputes the allocation from an updated complexity score
// (e.g. after a replan revises how hard the goal actually is). The
// allocation only ever moves in the direction that keeps it above what has
// already been consumed — Adjust never shrinks the budget below consumed
// iterations, so a task already past the new target isn't retroactively
// declared exhausted by a downward re-estimate.
func (m *Manager) Adjust(newComplexityScore float64) {
	target := allocationFor(newComplexityScore)
	if target < m.consumed {
		target = m.consumed
	}
	m.allocated = target
}

// Exhausted reports whether the budget has run out.
func (m *Manager) Exhausted() bool {
	return m.consumed >= m.allocated
}

// NextReplanDeadline returns the next time a periodic replan checkpoint
// should fire, per a cron expression (e.g. "*/2 * * * *" for a checkpoint
// every two minutes), computed from after.
func NextReplanDeadline(cronExpr string, after time.Time) (time.Time, error) {
	g := gronx.New()
	if !g.IsValid(cronExpr) {
		return time.Time{}, fmt.Errorf("budget: invalid cron expression %q", cronExpr)
	}
	return gronx.NextTickAfter(cronExpr, after, false)
}
