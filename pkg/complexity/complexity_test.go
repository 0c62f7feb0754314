package complexity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScoreEmptyGoal(t *testing.T) {
	assert.Equal(t, 0.0, Score(""))
}

func TestScoreSimpleGoalIsLow(t *testing.T) {
	assert.Less(t, Score("print hello"), 0.3)
}

func TestScoreComplexGoalIsHigh(t *testing.T) {
	goal := "read the config file and then maybe figure out how to run the install script, " +
		"but not if it would download anything without asking first"
	assert.Greater(t, Score(goal), 0.5)
}

func TestScoreNeverExceedsOne(t *testing.T) {
	goal := "and then also additionally maybe perhaps not sure figure out file directory command run fetch download install search api script but not except unless without avoid"
	assert.LessOrEqual(t, Score(goal), 1.0)
}
