// Package context implements the bounded conversation window the
// orchestrator appends tool observations and model turns into. Unlike the
// teacher's compaction, which calls the model to summarize, this window's
// compression is a deterministic, synthesized digest: the contract is a
// guaranteed token reduction, not prose quality.
package context

import (
	"fmt"

	"github.com/coreagent/coreagent/pkg/agentcore"
	"github.com/coreagent/coreagent/pkg/tokencount"
)

// Role distinguishes the kind of entry appended to the window.
type Role string

const (
	RoleSystem      Role = "system"
	RoleGoal        Role = "goal"
	RoleAssistant   Role = "assistant"
	RoleObservation Role = "observation"
	RoleSummary     Role = "summary"
)

// Entry is one unit of conversation history.
type Entry struct {
	Role   Role
	Text   string
	Tokens uint
}

// protectedRecentCount is how many of the most recent assistant/observation
// entries are never summarized away, regardless of budget pressure.
const protectedRecentCount = 3

// Default thresholds for the three-tier compression contract: compression
// triggers once total tokens pass softLimit, must bring the total down to
// target, and hardLimit is the invariant ceiling that a well-behaved window
// (one that compresses promptly after every append) should never reach.
const (
	DefaultHardLimit = 8000
	DefaultSoftLimit = 6000
	DefaultTarget    = 4000
)

// Window holds ordered conversation entries plus a running token total.
type Window struct {
	entries   []Entry
	total     uint
	hardLimit uint
	softLimit uint
	target    uint
}

// New creates a window with explicit hard, soft, and target thresholds.
func New(hardLimit, softLimit, target uint) *Window {
	return &Window{hardLimit: hardLimit, softLimit: softLimit, target: target}
}

// NewDefault creates a window using the spec's default thresholds
// (hard_limit=8000, soft_limit=6000, target=4000).
func NewDefault() *Window {
	return New(DefaultHardLimit, DefaultSoftLimit, DefaultTarget)
}

// HardLimit returns the invariant ceiling total_tokens should never cross.
func (w *Window) HardLimit() uint {
	return w.hardLimit
}

// Append adds a new entry, computing its token cost via pkg/tokencount.
func (w *Window) Append(role Role, text string) {
	tokens := tokencount.Estimate(text)
	w.entries = append(w.entries, Entry{Role: role, Text: text, Tokens: tokens})
	w.total += tokens
}

// TotalTokens returns the current running total across all entries.
func (w *Window) TotalTokens() uint {
	return w.total
}

// Entries returns a copy of the current entry list, in order.
func (w *Window) Entries() []Entry {
	out := make([]Entry, len(w.entries))
	copy(out, w.entries)
	return out
}

// protectedIndices returns the entry indices that compression must never
// touch: every system and goal entry, plus the last protectedRecentCount
// assistant/observation entries.
func (w *Window) protectedIndices() map[int]bool {
	protected := make(map[int]bool)
	recentCount := 0
	for i := len(w.entries) - 1; i >= 0 && recentCount < protectedRecentCount; i-- {
		if w.entries[i].Role == RoleAssistant || w.entries[i].Role == RoleObservation {
			protected[i] = true
			recentCount++
		}
	}
	for i, e := range w.entries {
		if e.Role == RoleSystem || e.Role == RoleGoal {
			protected[i] = true
		}
	}
	return protected
}

// CompressIfNeeded collapses the unprotected prefix of the window into
// summary entries whenever TotalTokens exceeds softLimit, repeating passes
// until the total is at or below target. Returns ContextOverflow if target
// cannot be reached without dropping protected entries, if a pass makes no
// progress, or if the net reduction across the call is below the required
// 33% ratio.
func (w *Window) CompressIfNeeded() error {
	if w.total <= w.softLimit {
		return nil
	}

	startTotal := w.total

	for w.total > w.target {
		protected := w.protectedIndices()

		var collapsible []Entry
		var collapsibleTokens uint
		var kept []Entry
		for i, e := range w.entries {
			if protected[i] {
				kept = append(kept, e)
				continue
			}
			collapsible = append(collapsible, e)
			collapsibleTokens += e.Tokens
		}

		if len(collapsible) == 0 {
			return agentcore.New(agentcore.KindContextOverflow,
				fmt.Sprintf("protected entries alone total %d tokens against a %d target", w.total, w.target), nil)
		}

		summary := synthesizeSummary(collapsible)
		summaryTokens := tokencount.Estimate(summary)

		// Guarantee a reduction: if the synthesized summary would not
		// actually be cheaper than what it replaces (pathological short
		// collapsible entries), force it down to a bound well under the
		// collapsed total.
		if summaryTokens >= collapsibleTokens {
			summaryTokens = collapsibleTokens / 2
			if summaryTokens == 0 {
				summaryTokens = 1
			}
		}

		newEntries := make([]Entry, 0, len(kept)+1)
		newEntries = append(newEntries, Entry{Role: RoleSummary, Text: summary, Tokens: summaryTokens})
		newEntries = append(newEntries, kept...)

		var newTotal uint
		for _, e := range newEntries {
			newTotal += e.Tokens
		}

		if newTotal >= w.total {
			return agentcore.New(agentcore.KindContextOverflow,
				fmt.Sprintf("compression could not reduce window below %d tokens", w.total), nil)
		}

		w.entries = newEntries
		w.total = newTotal
	}

	reduction := float64(startTotal-w.total) / float64(startTotal)
	if reduction < 0.33 {
		return agentcore.New(agentcore.KindContextOverflow,
			fmt.Sprintf("compression reduced tokens by only %.0f%%, below the required 33%%", reduction*100), nil)
	}
	return nil
}

// synthesizeSummary builds a deterministic digest enumerating what kind of
// entries were collapsed and how many of each, rather than asking the model
// to write prose about them.
func synthesizeSummary(collapsed []Entry) string {
	counts := map[Role]int{}
	for _, e := range collapsed {
		counts[e.Role]++
	}
	summary := "[compressed history]"
	for _, role := range []Role{RoleSystem, RoleGoal, RoleAssistant, RoleObservation, RoleSummary} {
		if n, ok := counts[role]; ok && n > 0 {
			summary += fmt.Sprintf(" %s=%d", role, n)
		}
	}
	return summary
}
