// Package agentcore holds the error taxonomy shared across the agent core
// components, plus the translation from an internal error kind into a
// message safe to show a user. No component should format a raw Go error
// for display; everything goes through UserMessage.
package agentcore

import (
	"errors"
	"fmt"
)

// Kind enumerates the error categories the core components raise. Every
// typed error below carries one of these so a caller can branch on Kind
// without string-matching messages.
type Kind int

const (
	KindUnknown Kind = iota
	KindTransport
	KindStreamInterrupted
	KindContextOverflow
	KindJailEscape
	KindInvalidTransition
	KindToolFailure
	KindBudgetExhausted
	KindReplanLimit
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport_error"
	case KindStreamInterrupted:
		return "stream_interrupted"
	case KindContextOverflow:
		return "context_overflow"
	case KindJailEscape:
		return "jail_escape"
	case KindInvalidTransition:
		return "invalid_transition"
	case KindToolFailure:
		return "tool_failure"
	case KindBudgetExhausted:
		return "budget_exhausted"
	case KindReplanLimit:
		return "replan_limit"
	default:
		return "unknown"
	}
}

// CoreError is the typed error every component returns for a classified
// failure. The Wrapped error, if any, is never surfaced to a user directly —
// only Kind and Message are.
type CoreError struct {
	Kind    Kind
	Message string
	Wrapped error
}

func (e *CoreError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *CoreError) Unwrap() error { return e.Wrapped }

func New(kind Kind, message string, wrapped error) *CoreError {
	return &CoreError{Kind: kind, Message: message, Wrapped: wrapped}
}

func IsKind(err error, kind Kind) bool {
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce.Kind == kind
	}
	return false
}

// UserMessage converts any error into a message safe to display. Internal
// detail (wrapped errors, paths, stack traces) never leaks through it.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var ce *CoreError
	if errors.As(err, &ce) {
		return kindToUserMessage(ce.Kind)
	}
	return genericMessage
}

func kindToUserMessage(kind Kind) string {
	switch kind {
	case KindTransport:
		return "I couldn't reach the model server. Check that it is running and reachable, then try again."
	case KindStreamInterrupted:
		return "The model's response was interrupted partway through. Retrying the request usually resolves this."
	case KindContextOverflow:
		return "The conversation grew too large to compress safely. Starting a new task will help."
	case KindJailEscape:
		return "That path falls outside the workspace the agent is allowed to touch, so the operation was refused."
	case KindInvalidTransition:
		return "The agent tried an operation that isn't valid in its current state. Run 'coreagent doctor' to diagnose."
	case KindToolFailure:
		return "A tool call failed and could not be retried successfully."
	case KindBudgetExhausted:
		return "The task ran out of its iteration budget before converging."
	case KindReplanLimit:
		return "The planner replanned too many times without making progress."
	default:
		return genericMessage
	}
}

const genericMessage = "Something went wrong while working on this task. Run 'coreagent doctor' to diagnose."
