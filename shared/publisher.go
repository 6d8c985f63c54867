// Package shared implements the mutex-guarded snapshot the polling
// goroutine publishes after every scan, and any number of reader
// goroutines (a future UI) may pull (spec.md §3 SharedState, §5).
package shared

import (
	"sync"
	"time"

	"github.com/bellafruita/feedctl/machmem"
)

// Snapshot is an immutable point-in-time view of the control loop's state.
// Publisher hands out copies so a reader can never observe a write-in-progress;
// a reader holds the lock only while the snapshot is copied out.
type Snapshot struct {
	Timestamp time.Time

	InputData  map[string]any
	OutputData map[string]any

	Mode              machmem.Mode
	RuleMemorySnapshot map[string]machmem.Value
	ActiveRuleNames   []string

	InputHeartbeat  uint64
	OutputHeartbeat uint64

	Connected    bool
	InCommsError bool
}

// Publisher guards the current Snapshot with a single sync.RWMutex: any
// number of readers may copy it out at once, a publish waits only for
// readers already holding the lock, and no reader sees a half-written
// snapshot (spec.md §5).
type Publisher struct {
	mu       sync.RWMutex
	current  Snapshot
	inputHB  uint64
	outputHB uint64
}

// NewPublisher constructs a Publisher with a zero-value initial snapshot.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// Publish replaces the current snapshot atomically under the write lock.
func (p *Publisher) Publish(snap Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = snap
}

// Current returns a copy of the most recently published snapshot.
func (p *Publisher) Current() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// NextInputHeartbeat and NextOutputHeartbeat hand out monotonically
// increasing counters for the poller to stamp into the next Snapshot; the
// poller takes one of each on every scan, whether or not its reads succeeded.
func (p *Publisher) NextInputHeartbeat() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inputHB++
	return p.inputHB
}

func (p *Publisher) NextOutputHeartbeat() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.outputHB++
	return p.outputHB
}
