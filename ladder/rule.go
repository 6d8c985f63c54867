// Package ladder implements the scan-based rule engine: an ordered list of
// rules evaluated every tick, ladder-logic style (spec.md §4.3).
package ladder

import (
	"time"

	"github.com/bellafruita/feedctl/iomap"
	"github.com/bellafruita/feedctl/machmem"
)

// Condition reports whether a rule should fire this scan. A returned error
// is logged and treated as false — it never aborts the scan (Design Note 2).
type Condition func(f *iomap.Facade, mem *machmem.Memory) (bool, error)

// Action runs a rule's side effects once its condition is true. A returned
// error is logged and swallowed.
type Action func(f *iomap.Facade, mem *machmem.Memory) error

// Rule is one ladder rung: a name, a condition, an action, and bookkeeping
// (spec.md §3 "Rule").
type Rule struct {
	Name    string
	Enabled bool

	Condition Condition
	Action    Action

	TriggerCount    int
	LastTriggeredAt time.Time
}

// NewRule constructs an enabled Rule.
func NewRule(name string, condition Condition, action Action) *Rule {
	return &Rule{Name: name, Enabled: true, Condition: condition, Action: action}
}
