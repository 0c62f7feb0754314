package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecordIncreasesScoreAsSubgoalsComplete(t *testing.T) {
	tr := New()
	first := tr.Record(Snapshot{SubgoalsCompleted: 1, SubgoalsTotal: 4, ToolCallsOK: 1, ToolCallsTotal: 1})
	second := tr.Record(Snapshot{SubgoalsCompleted: 2, SubgoalsTotal: 4, ToolCallsOK: 2, ToolCallsTotal: 2})
	assert.Greater(t, second, first)
}

func TestRecordIsMonotoneAcrossRegression(t *testing.T) {
	tr := New()
	high := tr.Record(Snapshot{SubgoalsCompleted: 3, SubgoalsTotal: 4, ToolCallsOK: 3, ToolCallsTotal: 3})
	regressed := tr.Record(Snapshot{SubgoalsCompleted: 1, SubgoalsTotal: 4, ToolCallsOK: 0, ToolCallsTotal: 5, Replans: 3})
	assert.Equal(t, high, regressed)
}

func TestRecordZeroTotalsDoNotDivideByZero(t *testing.T) {
	tr := New()
	score := tr.Record(Snapshot{})
	assert.GreaterOrEqual(t, score, 0.0)
}
