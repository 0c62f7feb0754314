// Package telemetry is a bounded, non-blocking event bus the orchestrator
// publishes iteration lifecycle events onto. It is grounded on the
// teacher's MessageBus (buffered channel, mutex-guarded subscriber
// registry, idempotent Close) but Publish never blocks: instead of a
// buffered channel send that would stall the publisher once full, a
// capacity-bounded backlog drops its oldest non-terminal event to make
// room, so a slow or absent consumer never throttles the orchestrator and
// terminal events (task completion/failure) are never silently discarded
// in favor of routine ones.
package telemetry

import "sync"

// Capacity bounds how many events the bus retains before it must evict one
// to admit a new one.
const Capacity = 100

// Kind identifies the category of an event.
type Kind string

const (
	KindIterationStarted Kind = "iteration_started"
	KindPlanDecomposed   Kind = "plan_decomposed"
	KindToolInvoked      Kind = "tool_invoked"
	KindToolFailed       Kind = "tool_failed"
	KindRecoveryAction   Kind = "recovery_action"
	KindStateTransition  Kind = "state_transition"
	KindContextCompacted Kind = "context_compacted"
	KindTaskCompleted    Kind = "task_completed"
	KindTaskFailed       Kind = "task_failed"
)

// terminalKinds marks events that must never be evicted to make room for
// routine ones: they mark the end of a task and a consumer that misses
// them has no other way to learn the task is over.
var terminalKinds = map[Kind]bool{
	KindTaskCompleted: true,
	KindTaskFailed:    true,
}

// Event is one published occurrence.
type Event struct {
	Seq     uint64
	Kind    Kind
	Payload map[string]any
}

// Bus is a bounded, non-blocking event log with live subscribers.
type Bus struct {
	mu          sync.Mutex
	backlog     []Event
	subscribers []chan Event
	nextSeq     uint64
	closed      bool
}

func New() *Bus {
	return &Bus{}
}

// Publish records an event and fans it out to current subscribers. It
// never blocks: if the backlog is at Capacity, the oldest non-terminal
// event is evicted to make room; if every backlogged event is terminal
// (pathological, but possible under a burst), the oldest overall is
// evicted rather than refusing the new event. Subscriber sends are
// likewise non-blocking — when a subscriber channel is full, its oldest
// undelivered event is dropped to make room rather than stalling the
// publisher.
func (b *Bus) Publish(kind Kind, payload map[string]any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}

	b.nextSeq++
	evt := Event{Seq: b.nextSeq, Kind: kind, Payload: payload}

	if len(b.backlog) >= Capacity {
		b.evictOne()
	}
	b.backlog = append(b.backlog, evt)

	for _, sub := range b.subscribers {
		select {
		case sub <- evt:
		default:
			select {
			case <-sub:
			default:
			}
			select {
			case sub <- evt:
			default:
			}
		}
	}
}

// evictOne drops the oldest non-terminal event in the backlog, or the
// oldest event overall if none are non-terminal. Caller must hold b.mu.
func (b *Bus) evictOne() {
	for i, evt := range b.backlog {
		if !terminalKinds[evt.Kind] {
			b.backlog = append(b.backlog[:i], b.backlog[i+1:]...)
			return
		}
	}
	b.backlog = b.backlog[1:]
}

// Subscribe returns a channel that receives future events, and a function
// to unsubscribe it. The channel is buffered at Capacity so a subscriber
// that drains promptly sees everything; one that falls behind silently
// drops the oldest undelivered events per the Publish policy above.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, Capacity)
	b.subscribers = append(b.subscribers, ch)

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, sub := range b.subscribers {
			if sub == ch {
				b.subscribers = append(b.subscribers[:i], b.subscribers[i+1:]...)
				break
			}
		}
	}
	return ch, unsubscribe
}

// Backlog returns a snapshot of the currently retained events, oldest first.
func (b *Bus) Backlog() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Event, len(b.backlog))
	copy(out, b.backlog)
	return out
}

// Close marks the bus closed; further Publish calls are no-ops. Idempotent.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, sub := range b.subscribers {
		close(sub)
	}
	b.subscribers = nil
}
