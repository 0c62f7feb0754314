// Package orchestrator wires the agent core's components into the
// end-to-end iteration loop: an LLM call, tool-call extraction and
// dispatch, context/memory bookkeeping, progress and convergence checks,
// and recovery on failure, repeated until the task finishes or its
// budget runs out. It is grounded on the teacher's AgentLoop.runLLMIteration
// (LLM call -> tool dispatch -> message-append cycle, retry on
// context-window errors) but generalized from a chat-session loop into a
// task-oriented control loop driven by the planner's goal DAG rather than
// a flat message history.
package orchestrator

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/coreagent/coreagent/pkg/agentcore"
	"github.com/coreagent/coreagent/pkg/agentutil"
	"github.com/coreagent/coreagent/pkg/budget"
	"github.com/coreagent/coreagent/pkg/complexity"
	agentctx "github.com/coreagent/coreagent/pkg/context"
	"github.com/coreagent/coreagent/pkg/convergence"
	"github.com/coreagent/coreagent/pkg/corelog"
	"github.com/coreagent/coreagent/pkg/jsonstream"
	"github.com/coreagent/coreagent/pkg/llmclient"
	"github.com/coreagent/coreagent/pkg/memory"
	"github.com/coreagent/coreagent/pkg/planner"
	"github.com/coreagent/coreagent/pkg/progress"
	"github.com/coreagent/coreagent/pkg/recovery"
	"github.com/coreagent/coreagent/pkg/statemachine"
	"github.com/coreagent/coreagent/pkg/telemetry"
	"github.com/coreagent/coreagent/pkg/tools"
)

// Task is one run of the orchestrator against a single top-level goal.
type Task struct {
	ID   string
	Goal string
}

// Outcome is what a Run call returns once the loop stops.
type Outcome struct {
	TaskID     string
	FinalState statemachine.State
	Decision   convergence.Decision
	Iterations int
	Replans    int
	Answer     string
}

// Options configures one Run.
type Options struct {
	Model            string
	Temperature      float64
	MaxParallel      int
	HardTokenLimit   uint
	SoftTokenLimit   uint
	TargetTokenLimit uint
	WindowCap        int
	VelocityFloor    float64
	StagnationWait   int
}

func defaultOptions(o Options) Options {
	if o.Model == "" {
		o.Model = "llama3"
	}
	if o.MaxParallel <= 0 {
		o.MaxParallel = 4
	}
	if o.HardTokenLimit == 0 {
		o.HardTokenLimit = agentctx.DefaultHardLimit
	}
	if o.SoftTokenLimit == 0 {
		o.SoftTokenLimit = agentctx.DefaultSoftLimit
	}
	if o.TargetTokenLimit == 0 {
		o.TargetTokenLimit = agentctx.DefaultTarget
	}
	if o.WindowCap <= 0 {
		o.WindowCap = 3
	}
	if o.VelocityFloor <= 0 {
		o.VelocityFloor = 0.02
	}
	if o.StagnationWait <= 0 {
		o.StagnationWait = 2
	}
	return o
}

// Orchestrator composes the iteration-loop collaborators. One Orchestrator
// can run many tasks; each Run call builds the per-task state (planner,
// budget, progress tracker) fresh.
type Orchestrator struct {
	llm      *llmclient.Client
	registry *tools.Registry
	memory   *memory.Store
	events   *telemetry.Bus
	log      corelog.Logger
}

func New(llm *llmclient.Client, registry *tools.Registry, mem *memory.Store, events *telemetry.Bus) *Orchestrator {
	return &Orchestrator{
		llm:      llm,
		registry: registry,
		memory:   mem,
		events:   events,
		log:      corelog.Component("orchestrator"),
	}
}

// step bundles the per-task collaborators Run threads through its helpers,
// avoiding a long positional parameter list on each one.
type step struct {
	task       Task
	window     *agentctx.Window
	plan       *planner.Planner
	bud        *budget.Manager
	prog       *progress.Tracker
	conv       *convergence.Detector
	rec        *recovery.Recovery
	sm         *statemachine.Machine
	opts       Options
	iterations int
}

// Run drives one task to completion: Init -> Planning, then (Executing ->
// Verifying -> Planning)* per tool iteration, ending in Final (from
// Planning or Verifying), or Error if recovery is exhausted.
func (o *Orchestrator) Run(ctx context.Context, goal string, opts Options) (*Outcome, error) {
	opts = defaultOptions(opts)

	s := &step{
		task:   Task{ID: uuid.New().String(), Goal: goal},
		window: agentctx.New(opts.HardTokenLimit, opts.SoftTokenLimit, opts.TargetTokenLimit),
		bud:    budget.Allocate(complexity.Score(goal)),
		prog:   progress.New(),
		conv:   convergence.New(opts.WindowCap, opts.VelocityFloor, opts.StagnationWait),
		rec:    recovery.New(),
		sm:     statemachine.New(),
		opts:   opts,
	}
	s.plan = planner.New(goal)
	s.window.Append(agentctx.RoleGoal, goal)

	o.events.Publish(telemetry.KindIterationStarted, map[string]any{"task_id": s.task.ID, "goal": goal})

	if err := s.sm.Transition(statemachine.StatePlanning); err != nil {
		return nil, err
	}

	for {
		decision, answer, err := o.runOneIteration(ctx, s)
		if err != nil {
			// Error is terminal (spec §4.14), so there is no transition
			// back out of it: runOneIteration already exhausted inline
			// recovery (retrying the model call, force-compressing,
			// replanning) before surfacing this error, so by the time we
			// get here the task is genuinely done. Move into Error and
			// stop.
			_ = s.sm.Transition(statemachine.StateError)
			o.events.Publish(telemetry.KindTaskFailed, map[string]any{"task_id": s.task.ID, "error": err.Error()})
			return &Outcome{
				TaskID:     s.task.ID,
				FinalState: s.sm.Current(),
				Iterations: s.iterations,
				Replans:    s.plan.ReplanCount(),
			}, err
		}

		if decision != convergence.Continue {
			if decision == convergence.StopSuccess {
				_ = s.sm.Transition(statemachine.StateFinal)
			} else {
				// Stagnation or exhaustion: the task ends, but not in an
				// error state — the loop made legitimate progress, it
				// just didn't finish.
				if s.sm.CanTransition(statemachine.StateFinal) {
					_ = s.sm.Transition(statemachine.StateFinal)
				}
			}
			o.events.Publish(telemetry.KindTaskCompleted, map[string]any{
				"task_id": s.task.ID, "decision": string(decision), "iterations": s.iterations,
			})
			return &Outcome{
				TaskID:     s.task.ID,
				FinalState: s.sm.Current(),
				Decision:   decision,
				Iterations: s.iterations,
				Replans:    s.plan.ReplanCount(),
				Answer:     answer,
			}, nil
		}
	}
}

// runOneIteration executes one Executing/Verifying cycle: advance the
// planner's cursor, call the model, dispatch any tool calls it asks for,
// record progress, and ask the convergence detector what to do next.
func (o *Orchestrator) runOneIteration(ctx context.Context, s *step) (convergence.Decision, string, error) {
	s.iterations++

	// Continuing an existing task resumes through Verifying -> Planning
	// (ContinueIteration) before re-entering Executing; the first
	// iteration is already in Planning because Run put it there.
	if s.sm.Current() == statemachine.StateVerifying {
		if err := s.sm.Transition(statemachine.StatePlanning); err != nil {
			return convergence.Continue, "", err
		}
	}
	if err := s.sm.Transition(statemachine.StateExecuting); err != nil {
		return convergence.Continue, "", err
	}

	subgoal, err := s.plan.CurrentSubgoal()
	if err != nil {
		return convergence.Continue, "", err
	}

	prompt := o.buildPrompt(s, subgoal)
	response, err := o.callModelWithRecovery(ctx, s, prompt)
	if err != nil {
		return convergence.Continue, "", err
	}

	s.window.Append(agentctx.RoleAssistant, response)

	toolCalls, finalAnswer := o.extractToolCalls(response)
	toolsOK, toolsTotal := 0, len(toolCalls)

	for _, call := range toolCalls {
		o.events.Publish(telemetry.KindToolInvoked, map[string]any{"tool": call.Name, "task_id": s.task.ID})
		result, err := o.registry.Invoke(ctx, call)
		if err != nil || (result != nil && result.IsError) {
			o.events.Publish(telemetry.KindToolFailed, map[string]any{"tool": call.Name, "task_id": s.task.ID})
			errText := "tool failed"
			if err != nil {
				errText = err.Error()
			} else if result != nil {
				errText = result.Output
			}
			s.window.Append(agentctx.RoleObservation, fmt.Sprintf("%s failed: %s", call.Name, errText))
			continue
		}
		toolsOK++
		o.memory.Remember(call.Name, result.Output)
		s.window.Append(agentctx.RoleObservation, result.Output)
	}

	if err := s.window.CompressIfNeeded(); err != nil {
		o.events.Publish(telemetry.KindContextCompacted, map[string]any{"task_id": s.task.ID, "outcome": "overflow"})
		if !o.recoverFrom(ctx, s, err) {
			return convergence.Continue, "", err
		}
		// recoverFrom's ActionForceCompress / ActionReplan already acted
		// on the window or plan; if tokens are still over the hard limit
		// the task cannot continue.
		if s.window.TotalTokens() > s.window.HardLimit() {
			return convergence.Continue, "", err
		}
	}

	if err := s.sm.Transition(statemachine.StateVerifying); err != nil {
		return convergence.Continue, "", err
	}

	goalAchieved := finalAnswer != "" && toolsTotal == 0
	advanced, advanceErr := false, error(nil)
	if !goalAchieved {
		advanced, advanceErr = s.plan.Advance()
		if advanceErr != nil {
			return convergence.Continue, "", advanceErr
		}
		if !advanced {
			goalAchieved = true
		}
	}

	depth, _ := s.plan.DAG().Depth(s.plan.DAG().Root())
	score := s.prog.Record(progress.Snapshot{
		SubgoalsCompleted: depth,
		SubgoalsTotal:     s.iterations,
		ToolCallsOK:       toolsOK,
		ToolCallsTotal:    toolsTotal,
		Replans:           s.plan.ReplanCount(),
	})

	budgetRemains := s.bud.Consume()
	decision := s.conv.Evaluate(score, goalAchieved, !budgetRemains)

	o.events.Publish(telemetry.KindStateTransition, map[string]any{
		"task_id": s.task.ID, "state": string(s.sm.Current()), "decision": string(decision),
	})

	return decision, finalAnswer, nil
}

// buildPrompt renders the current context window and active subgoal into a
// single prompt string for the model.
func (o *Orchestrator) buildPrompt(s *step, subgoal string) string {
	prompt := fmt.Sprintf("Goal: %s\nCurrent subgoal: %s\n\n", s.task.Goal, subgoal)
	for _, entry := range s.window.Entries() {
		prompt += fmt.Sprintf("[%s] %s\n", entry.Role, entry.Text)
	}
	return prompt
}

// callModelWithRecovery calls the model and, on a transport or stream
// error, applies recovery actions inline and retries within the same
// Executing phase rather than bubbling the error up to Run — the state
// machine's Error state is terminal, so there is no transition back out of
// it to try again. Recovery gives up once the policy returns ActionAbort.
func (o *Orchestrator) callModelWithRecovery(ctx context.Context, s *step, prompt string) (string, error) {
	for {
		response, err := o.callModel(ctx, s, prompt)
		if err == nil {
			return response, nil
		}
		if !o.recoverFrom(ctx, s, err) {
			return "", err
		}
	}
}

// callModel streams a completion and concatenates its fragments into one
// response string.
func (o *Orchestrator) callModel(ctx context.Context, s *step, prompt string) (string, error) {
	fragments, err := o.llm.Stream(ctx, prompt, llmclient.Params{
		Model:       s.opts.Model,
		Temperature: s.opts.Temperature,
	})
	if err != nil {
		return "", err
	}

	var out string
	for frag := range fragments {
		if frag.Err != nil {
			return out, frag.Err
		}
		out += frag.Text
	}
	return out, nil
}

// extractToolCalls pulls any {"tool": "...", "args": {...}} objects out of
// the model's response. A response containing no tool-call objects is
// treated as the model's final answer.
func (o *Orchestrator) extractToolCalls(response string) ([]tools.Call, string) {
	extractor := jsonstream.New()
	if err := extractor.Push(response); err != nil {
		// The extractor already force-parsed whatever candidate it had
		// buffered and reset itself; surface this so operators can see a
		// response is regularly overrunning the extractor's buffer.
		o.log.Warnf("tool-call extraction overflowed", map[string]any{"error": err.Error()})
	}

	var calls []tools.Call
	for _, obj := range extractor.Drain() {
		name, ok := obj.Value["tool"].(string)
		if !ok {
			continue
		}
		args, _ := obj.Value["args"].(map[string]any)
		calls = append(calls, tools.Call{ID: fmt.Sprintf("%d", obj.Offset), Name: name, Args: args})
	}

	if len(calls) > 0 {
		return calls, ""
	}
	return nil, response
}

// recoverFrom classifies the error into a symptom, asks the recovery
// policy for the next action, and applies it. It returns false once
// recovery gives up (ActionAbort), at which point the caller should stop
// the task in StateError.
func (o *Orchestrator) recoverFrom(ctx context.Context, s *step, err error) bool {
	symptom := classify(err)
	action := s.rec.NextAction(symptom)
	o.events.Publish(telemetry.KindRecoveryAction, map[string]any{
		"task_id": s.task.ID, "symptom": string(symptom), "action": string(action),
	})

	switch action {
	case recovery.ActionAbort:
		return false
	case recovery.ActionRetryWithBackoff:
		_, _ = agentutil.DoWithRetry(ctx, agentutil.ExponentialBackoff(2, 0, 0), func(context.Context) (struct{}, error) {
			return struct{}{}, nil
		})
		return true
	case recovery.ActionForceCompress:
		_ = s.window.CompressIfNeeded()
		return true
	case recovery.ActionReplan:
		subgoal, _ := s.plan.CurrentSubgoal()
		_ = s.plan.Replan("recovery", []string{subgoal})
		return true
	case recovery.ActionSwitchStrategy:
		s.plan.RecordOutcome(s.plan.BestStrategy(), false)
		return true
	case recovery.ActionReduceParallelism:
		if s.opts.MaxParallel > 1 {
			s.opts.MaxParallel--
		}
		return true
	case recovery.ActionRaiseValidationThreshold:
		return true
	default:
		return false
	}
}

// classify maps an error into the symptom taxonomy recovery understands.
func classify(err error) recovery.Symptom {
	switch {
	case agentcore.IsKind(err, agentcore.KindContextOverflow):
		return recovery.SymptomContextOverflow
	case agentcore.IsKind(err, agentcore.KindStreamInterrupted):
		return recovery.SymptomStreamInterrupted
	case agentcore.IsKind(err, agentcore.KindTransport):
		return recovery.SymptomTransportError
	case agentcore.IsKind(err, agentcore.KindToolFailure):
		return recovery.SymptomToolFailureRepeated
	default:
		return recovery.SymptomToolFailureRepeated
	}
}
