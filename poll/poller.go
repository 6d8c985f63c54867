// Package poll runs the single background scan loop: read, evaluate,
// publish, on a fixed period. It is the Go translation of the original
// PollingThread (spec.md §4.6/§4.7, §5).
package poll

import (
	"context"
	"time"

	"github.com/bellafruita/feedctl/eventlog"
	"github.com/bellafruita/feedctl/iomap"
	"github.com/bellafruita/feedctl/ladder"
	"github.com/bellafruita/feedctl/machmem"
	"github.com/bellafruita/feedctl/shared"
)

// rotateEvery is how many scans elapse between event-log rotation attempts
// (spec.md §4.6 step 5: "every ~1000 ticks").
const rotateEvery = 1000

// Poller owns the facade, engine, and publisher, and drives them on a
// fixed-period loop from a single goroutine. Nothing else may call
// Facade.Get/Set or touch the transports directly while a Poller is
// running (spec.md §5's "transports are owned by the polling thread").
type Poller struct {
	facade   *iomap.Facade
	engine   *ladder.Engine
	mem      *machmem.Memory
	pub      *shared.Publisher
	sink     *eventlog.Sink
	interval time.Duration

	scans uint64
}

// New constructs a Poller. interval is the scan period (spec.md §4.6
// default 100ms).
func New(facade *iomap.Facade, engine *ladder.Engine, mem *machmem.Memory, pub *shared.Publisher, sink *eventlog.Sink, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &Poller{facade: facade, engine: engine, mem: mem, pub: pub, sink: sink, interval: interval}
}

// Run blocks, scanning every interval until ctx is cancelled. Cancellation
// is cooperative: it is inspected at the top of each loop iteration, so an
// in-flight Modbus read may delay exit up to the transport's own timeout
// (spec.md §4.6/§5).
func (p *Poller) Run(ctx context.Context) {
	p.sink.Debug("Polling thread started")
	defer p.sink.Debug("Polling thread stopped")

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		loopStart := time.Now()
		p.scanOnce(ctx, loopStart)

		p.scans++
		if p.scans >= rotateEvery {
			p.scans = 0
			if err := p.sink.Rotate(); err != nil {
				p.sink.Error("log rotation failed: " + err.Error())
			}
		}

		elapsed := time.Since(loopStart)
		sleepFor := p.interval - elapsed
		if sleepFor <= 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(sleepFor):
		}
	}
}

// scanOnce performs one full scan: read, evaluate, publish.
func (p *Poller) scanOnce(ctx context.Context, now time.Time) {
	wasErrorComms := p.mem.Mode() == machmem.ModeErrorComms

	// Reads continue even in ERROR_COMMS: input reads are how the
	// operator's Manual_Select acknowledgement is ever seen, and output
	// reads are how VERSION recovering is ever seen (spec.md §4.7).
	inErr := p.facade.RefreshInputs(ctx, now)
	outErr := p.facade.RefreshOutputs(ctx, now)

	if inErr != nil {
		if wasErrorComms {
			p.sink.Debug("input read failed during ERROR_COMMS (will retry): " + inErr.Error())
		} else {
			p.sink.Error("input read failed: " + inErr.Error())
		}
	}
	if outErr != nil {
		if wasErrorComms {
			p.sink.Debug("output read failed during ERROR_COMMS (will retry): " + outErr.Error())
		} else {
			p.sink.Error("output read failed: " + outErr.Error())
		}
	}

	if wasErrorComms {
		// Each scan in ERROR_COMMS re-attempts connect() on both
		// transports; success is logged only at DEBUG (spec.md §4.7) —
		// recovery itself is declared by the rule engine, not here.
		if err := p.facade.Connect(ctx); err != nil {
			p.sink.Debug("reconnect attempt failed: " + err.Error())
		} else {
			p.sink.Debug("reconnect attempt succeeded")
		}
	}

	p.engine.Evaluate(p.facade)

	mode := p.mem.Mode()
	snap := shared.Snapshot{
		Timestamp:          now,
		InputData:          p.facade.GetAll(iomap.DeviceInput, iomap.KindCoil),
		OutputData:         mergeOutputs(p.facade),
		Mode:               mode,
		RuleMemorySnapshot: p.mem.Snapshot(),
		ActiveRuleNames:    p.engine.ActiveRuleNames(),
		InputHeartbeat:     p.pub.NextInputHeartbeat(),
		OutputHeartbeat:    p.pub.NextOutputHeartbeat(),
		Connected:          p.facade.InputConnected() && p.facade.OutputConnected(),
		InCommsError:       mode == machmem.ModeErrorComms || mode == machmem.ModeErrorCommsAck,
	}
	p.pub.Publish(snap)
}

// mergeOutputs combines output coils and output registers (VERSION) into
// a single label->value map, matching Procon.get_all's merge of 'coils'
// and 'registers' for a device (original_source main.py
// read_and_log_all_outputs).
func mergeOutputs(f *iomap.Facade) map[string]any {
	merged := f.GetAll(iomap.DeviceOutput, iomap.KindCoil)
	for k, v := range f.GetAll(iomap.DeviceOutput, iomap.KindRegister) {
		merged[k] = v
	}
	return merged
}
