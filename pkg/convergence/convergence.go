// Package convergence decides when the orchestrator should stop iterating:
// because the goal was reached, because progress has stalled, or because
// the iteration budget ran out. It watches a sliding window of progress
// scores and derives a velocity (progress per iteration) from it.
package convergence

// Decision is the outcome of one Evaluate call.
type Decision string

const (
	Continue       Decision = "continue"
	StopSuccess    Decision = "stop_success"
	StopStagnation Decision = "stop_stagnation"
	StopExhausted  Decision = "stop_exhausted"
)

// Detector tracks a bounded window of recent progress scores.
type Detector struct {
	window    []float64
	windowCap int

	velocityFloor float64
	patience      int
	lowStreak     int
}

// New creates a Detector. windowCap bounds how many recent progress samples
// are considered; velocityFloor is the minimum per-iteration progress delta
// that counts as "still moving"; patience is how many consecutive
// below-floor windows declare stagnation (the patience-th one does).
func New(windowCap int, velocityFloor float64, patience int) *Detector {
	if windowCap < 2 {
		windowCap = 2
	}
	return &Detector{windowCap: windowCap, velocityFloor: velocityFloor, patience: patience}
}

// Evaluate folds in one iteration's progress score and returns the
// convergence decision. goalAchieved and budgetExhausted short-circuit the
// velocity logic: success always wins, then exhaustion, then stagnation.
func (d *Detector) Evaluate(progressScore float64, goalAchieved, budgetExhausted bool) Decision {
	if goalAchieved {
		return StopSuccess
	}

	d.window = append(d.window, progressScore)
	if len(d.window) > d.windowCap {
		d.window = d.window[1:]
	}

	if budgetExhausted {
		return StopExhausted
	}

	if len(d.window) < d.windowCap {
		return Continue
	}

	if d.velocity() < d.velocityFloor {
		d.lowStreak++
	} else {
		d.lowStreak = 0
	}

	if d.lowStreak >= d.patience {
		return StopStagnation
	}
	return Continue
}

// velocity is the average per-iteration progress delta across the current
// window.
func (d *Detector) velocity() float64 {
	if len(d.window) < 2 {
		return 0
	}
	return (d.window[len(d.window)-1] - d.window[0]) / float64(len(d.window)-1)
}
