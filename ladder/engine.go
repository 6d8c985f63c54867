package ladder

import (
	"fmt"
	"time"

	"github.com/bellafruita/feedctl/iomap"
	"github.com/bellafruita/feedctl/machmem"
)

// Logger is the minimal surface Engine needs to report rule failures;
// eventlog.Sink satisfies it without either package importing the other.
type Logger interface {
	Info(msg string)
	Error(msg string)
}

// Engine owns the ordered rule list and the persistent memory they share
// (spec.md §4.3). Rules run in registration order every scan; since each
// may write outputs and memory, later rules win over earlier ones within
// the same tick ("late-wins") — callers register safety/emergency rules
// last for exactly that reason.
type Engine struct {
	Memory *machmem.Memory

	rules           []*Rule
	activeRuleNames []string
	logger          Logger
}

// NewEngine constructs an empty Engine around mem. logger may be nil.
func NewEngine(mem *machmem.Memory, logger Logger) *Engine {
	return &Engine{Memory: mem, logger: logger}
}

// AddRule appends a rule to the end of the scan order.
func (e *Engine) AddRule(r *Rule) {
	e.rules = append(e.rules, r)
	if e.logger != nil {
		e.logger.Info("Added rule: " + r.Name)
	}
}

// Evaluate runs one scan: clears active-rule tracking (memory is untouched,
// I3), then walks every enabled rule in order.
func (e *Engine) Evaluate(f *iomap.Facade) {
	e.activeRuleNames = e.activeRuleNames[:0]
	for _, r := range e.rules {
		if !r.Enabled {
			continue
		}
		e.runRule(r, f)
	}
}

func (e *Engine) runRule(r *Rule, f *iomap.Facade) {
	defer func() {
		if rec := recover(); rec != nil && e.logger != nil {
			e.logger.Error(fmt.Sprintf("panic in rule %q: %v", r.Name, rec))
		}
	}()

	ok, err := r.Condition(f, e.Memory)
	if err != nil {
		if e.logger != nil {
			e.logger.Error(fmt.Sprintf("condition error in rule %q: %v", r.Name, err))
		}
		return
	}
	if !ok {
		return
	}

	e.activeRuleNames = append(e.activeRuleNames, r.Name)
	r.LastTriggeredAt = time.Now()
	r.TriggerCount++

	if err := r.Action(f, e.Memory); err != nil && e.logger != nil {
		e.logger.Error(fmt.Sprintf("action error in rule %q: %v", r.Name, err))
	}
}

// ActiveRuleNames returns a copy of the rules that fired on the last scan.
func (e *Engine) ActiveRuleNames() []string {
	return append([]string(nil), e.activeRuleNames...)
}

// RuleStatus mirrors spec.md §3's Rule fields for introspection/UI use.
type RuleStatus struct {
	Name            string
	Enabled         bool
	TriggerCount    int
	LastTriggeredAt time.Time
}

func (e *Engine) RuleStatuses() []RuleStatus {
	out := make([]RuleStatus, len(e.rules))
	for i, r := range e.rules {
		out[i] = RuleStatus{Name: r.Name, Enabled: r.Enabled, TriggerCount: r.TriggerCount, LastTriggeredAt: r.LastTriggeredAt}
	}
	return out
}

// EnableRule / DisableRule toggle a rule by name, a no-op if not found.
func (e *Engine) EnableRule(name string)  { e.setEnabled(name, true) }
func (e *Engine) DisableRule(name string) { e.setEnabled(name, false) }

func (e *Engine) setEnabled(name string, enabled bool) {
	for _, r := range e.rules {
		if r.Name == name {
			r.Enabled = enabled
			return
		}
	}
}
