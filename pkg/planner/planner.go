package planner

import "fmt"

// Strategy names one way of attempting a subgoal.
type Strategy string

const (
	StrategyDirect      Strategy = "direct"
	StrategyExploratory Strategy = "exploratory"
	StrategySystematic  Strategy = "systematic"
)

var allStrategies = []Strategy{StrategyDirect, StrategyExploratory, StrategySystematic}

// betaPosterior is a Beta(alpha, beta) posterior over a strategy's success
// probability, seeded uninformatively at Beta(1,1). Only the analytic mean
// (alpha/(alpha+beta)) is used for scoring — no sampling — since picking
// the highest-mean strategy is all the planner needs, and that avoids
// pulling in a stats/sampling library for what is otherwise a two-float
// running count.
type betaPosterior struct {
	alpha float64
	beta  float64
}

func newBetaPosterior() betaPosterior { return betaPosterior{alpha: 1, beta: 1} }

func (b betaPosterior) mean() float64 { return b.alpha / (b.alpha + b.beta) }

func (b *betaPosterior) record(success bool) {
	if success {
		b.alpha++
	} else {
		b.beta++
	}
}

// Planner composes a goal DAG with per-strategy outcome tracking and a
// single cursor over the current subgoal being attempted.
type Planner struct {
	dag        *DAG
	current    NodeID
	strategies map[Strategy]*betaPosterior
	replans    int
}

// New creates a Planner for a top-level goal, with the root as the initial
// subgoal.
func New(goal string) *Planner {
	dag := NewDAG(goal)
	strategies := make(map[Strategy]*betaPosterior, len(allStrategies))
	for _, s := range allStrategies {
		b := newBetaPosterior()
		strategies[s] = &b
	}
	return &Planner{dag: dag, current: dag.Root(), strategies: strategies}
}

// DAG exposes the underlying goal DAG, mainly for telemetry/inspection.
func (p *Planner) DAG() *DAG { return p.dag }

// Decompose splits the current subgoal into child subgoals, descending the
// cursor to the first of them. It fails if the decomposition would exceed
// MaxDepth or MaxFanout.
func (p *Planner) Decompose(subgoals []string) error {
	if len(subgoals) == 0 {
		return fmt.Errorf("planner: decompose requires at least one subgoal")
	}
	parent := p.current
	var first NodeID
	for i, g := range subgoals {
		id, err := p.dag.AddChild(parent, g)
		if err != nil {
			return err
		}
		if i == 0 {
			first = id
		}
	}
	p.current = first
	return nil
}

// CurrentSubgoal returns the text of the subgoal the orchestrator should
// work on next.
func (p *Planner) CurrentSubgoal() (string, error) {
	return p.dag.Goal(p.current)
}

// Advance marks the current subgoal complete and moves the cursor to the
// next unfinished leaf in the DAG, in depth-first order starting from the
// root. Returns false when no unfinished subgoal remains.
func (p *Planner) Advance() (bool, error) {
	if err := p.dag.MarkDone(p.current); err != nil {
		return false, err
	}
	next, ok := p.dag.firstUnfinishedLeaf(p.dag.Root())
	if !ok {
		return false, nil
	}
	p.current = next
	return true, nil
}

// Replan grafts a fresh decomposition onto the current subgoal, leaving its
// siblings intact, and moves the cursor to the first new child — used when
// the current approach isn't working and a different breakdown is needed.
// Each call increments ReplanCount; no limit on the number of replans is
// enforced.
func (p *Planner) Replan(reason string, newSubgoals []string) error {
	if err := p.Decompose(newSubgoals); err != nil {
		return fmt.Errorf("planner: replan (%s): %w", reason, err)
	}
	p.replans++
	return nil
}

// ReplanCount reports how many times Replan has been called.
func (p *Planner) ReplanCount() int { return p.replans }

// RecordOutcome updates a strategy's Beta posterior after it was used to
// attempt a subgoal.
func (p *Planner) RecordOutcome(strategy Strategy, success bool) {
	if b, ok := p.strategies[strategy]; ok {
		b.record(success)
	}
}

// BestStrategy returns the strategy with the highest posterior mean,
// breaking ties by the fixed preference order direct > exploratory >
// systematic (the cheapest-to-try strategy wins ties).
func (p *Planner) BestStrategy() Strategy {
	best := allStrategies[0]
	bestMean := p.strategies[best].mean()
	for _, s := range allStrategies[1:] {
		if m := p.strategies[s].mean(); m > bestMean {
			best = s
			bestMean = m
		}
	}
	return best
}
