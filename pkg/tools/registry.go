package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/coreagent/coreagent/pkg/agentcore"
	"github.com/coreagent/coreagent/pkg/agentutil"
	"github.com/coreagent/coreagent/pkg/corelog"
	"time"
)

var log = corelog.Component("tools")

// Registry holds every tool the orchestrator can dispatch to, plus the
// per-path write locks that keep concurrent calls from racing on the same
// file.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool

	pathLocksMu sync.Mutex
	pathLocks   map[string]*sync.Mutex

	retry agentutil.Config
}

// NewRegistry creates an empty Registry whose Invoke calls make up to
// retryAttempts attempts in total, with exponential backoff starting at 500ms.
func NewRegistry(retryAttempts int) *Registry {
	return &Registry{
		tools:     make(map[string]Tool),
		pathLocks: make(map[string]*sync.Mutex),
		retry:     agentutil.ExponentialBackoff(retryAttempts, 30*time.Second, 500*time.Millisecond),
	}
}

func (r *Registry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name()] = tool
}

func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// sortedNames returns registered tool names in sorted order. Deterministic
// iteration matters here the same way it does for the model-facing
// definitions list: a stable ordering keeps any prompt built from it
// byte-identical across calls when nothing has actually changed.
func (r *Registry) sortedNames() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List returns every registered tool name, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedNames()
}

// Definitions returns the model-facing tool schema list, sorted by name.
func (r *Registry) Definitions() []map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]map[string]any, 0, len(r.tools))
	for _, name := range r.sortedNames() {
		t := r.tools[name]
		out = append(out, map[string]any{
			"name":        t.Name(),
			"description": t.Description(),
			"parameters":  t.Schema(),
		})
	}
	return out
}

// pathLockFor returns (creating if necessary) the mutex guarding a given
// filesystem path, so two concurrent calls that both write the same file
// serialize on it even when the registry otherwise runs them in parallel.
func (r *Registry) pathLockFor(path string) *sync.Mutex {
	r.pathLocksMu.Lock()
	defer r.pathLocksMu.Unlock()
	m, ok := r.pathLocks[path]
	if !ok {
		m = &sync.Mutex{}
		r.pathLocks[path] = m
	}
	return m
}

// Invoke runs a single tool call to completion, validating its arguments,
// serializing on any path argument it names, and retrying transient
// failures per the registry's retry policy.
func (r *Registry) Invoke(ctx context.Context, call Call) (*Result, error) {
	tool, ok := r.Get(call.Name)
	if !ok {
		return nil, agentcore.New(agentcore.KindToolFailure, fmt.Sprintf("tool %q is not registered", call.Name), nil)
	}

	if err := validateArgs(tool.Schema(), call.Args); err != nil {
		return nil, agentcore.New(agentcore.KindToolFailure, fmt.Sprintf("invalid arguments for %q: %v", call.Name, err), err)
	}

	var unlock func()
	if path, ok := call.Args["path"].(string); ok && path != "" {
		lock := r.pathLockFor(path)
		lock.Lock()
		unlock = lock.Unlock
	}
	if unlock != nil {
		defer unlock()
	}

	start := time.Now()
	log.Infof("tool call started", map[string]any{"tool": call.Name})

	result, err := agentutil.DoWithRetry(ctx, r.retry, func(attemptCtx context.Context) (*Result, error) {
		return tool.Execute(attemptCtx, call.Args)
	})

	duration := time.Since(start)
	if err != nil {
		log.Errorf("tool call failed", map[string]any{"tool": call.Name, "duration_ms": duration.Milliseconds(), "error": err.Error()})
		return nil, agentcore.New(agentcore.KindToolFailure, fmt.Sprintf("%s failed", call.Name), err)
	}
	log.Infof("tool call completed", map[string]any{"tool": call.Name, "duration_ms": duration.Milliseconds()})
	return result, nil
}

// InvokeParallel dispatches calls with up to maxParallel running
// concurrently. A call only runs alongside others when its tool declares
// ReadOnly; a SerialOnly call (or a call to an unregistered tool) runs with
// no other call of the batch in flight. Calls naming the same path argument
// also serialize on that path's lock inside Invoke. The concurrency bound
// matters for the ReadOnly fan-out case (e.g. several read_file calls at once).
func (r *Registry) InvokeParallel(ctx context.Context, calls []Call, maxParallel int) []Invocation {
	if maxParallel < 1 {
		maxParallel = 1
	}

	out := make([]Invocation, len(calls))
	sem := make(chan struct{}, maxParallel)
	var wg sync.WaitGroup
	var gate sync.RWMutex

	for i, call := range calls {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, call Call) {
			defer wg.Done()
			defer func() { <-sem }()
			if r.EligibleForParallel(call.Name) {
				gate.RLock()
				defer gate.RUnlock()
			} else {
				gate.Lock()
				defer gate.Unlock()
			}
			result, err := r.Invoke(ctx, call)
			out[i] = Invocation{Call: call, Result: result, Err: err}
		}(i, call)
	}

	wg.Wait()
	return out
}

// EligibleForParallel reports whether call's tool may be batched into a
// concurrent group with other calls.
func (r *Registry) EligibleForParallel(name string) bool {
	t, ok := r.Get(name)
	if !ok {
		return false
	}
	return t.ParallelPolicy() == ReadOnly
}
