package budget

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocateClampsToRange(t *testing.T) {
	assert.Equal(t, minIterations, Allocate(0).Remaining())
	assert.Equal(t, 34, Allocate(1).Remaining())
}

func TestAllocateMatchesFormula(t *testing.T) {
	// I = 8 + floor(25 * C * 1.05)
	assert.Equal(t, 8, Allocate(0).Remaining())
	assert.Equal(t, 8+int(25*0.5*1.05), Allocate(0.5).Remaining())
}

func TestAllocateScalesWithComplexity(t *testing.T) {
	low := Allocate(0.1).Remaining()
	high := Allocate(0.9).Remaining()
	assert.Less(t, low, high)
}

func TestConsumeDecrementsRemaining(t *testing.T) {
	m := Allocate(0)
	before := m.Remaining()
	m.Consume()
	assert.Equal(t, before-1, m.Remaining())
}

func TestExhaustedAfterAllIterationsConsumed(t *testing.T) {
	m := Allocate(0)
	for !m.Exhausted() {
		m.Consume()
	}
	assert.Equal(t, minIterations, m.Consumed())
}

func TestAdjustNeverDropsBelowConsumed(t *testing.T) {
	m := Allocate(1)
	for i := 0; i < 20; i++ {
		m.Consume()
	}
	m.Adjust(0)
	assert.GreaterOrEqual(t, m.allocated, m.consumed)
}

func TestNextReplanDeadlineRejectsInvalidExpr(t *testing.T) {
	_, err := NextReplanDeadline("not a cron", time.Now())
	require.Error(t, err)
}

func TestNextReplanDeadlineValidExpr(t *testing.T) {
	after := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	next, err := NextReplanDeadline("*/5 * * * *", after)
	require.NoError(t, err)
	assert.True(t, next.After(after))
}
