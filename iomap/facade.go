package iomap

import (
	"context"
	"time"

	"github.com/bellafruita/feedctl/history"
)

// Facade is the symbolic label-keyed I/O API rules and the poller use
// (spec.md §4.1). It owns the label map, the two device transports and
// their history buffers; callers never see a raw (device, address).
type Facade struct {
	labels *LabelMap

	input  Transport
	output Transport

	inputHist  *history.Buffer
	outputHist *history.Buffer

	edgeWindow time.Duration
	current    map[string]any
}

// NewFacade wires a Facade from its transports and history buffers.
// edgeWindow is the default window for RisingEdge/FallingEdge when callers
// pass a non-positive duration.
func NewFacade(labels *LabelMap, input, output Transport, inputHist, outputHist *history.Buffer, edgeWindow time.Duration) *Facade {
	return &Facade{
		labels:     labels,
		input:      input,
		output:     output,
		inputHist:  inputHist,
		outputHist: outputHist,
		edgeWindow: edgeWindow,
		current:    make(map[string]any),
	}
}

// RefreshInputs reads every input coil in one request and appends a new
// entry to the input history. A transport failure yields an empty map
// rather than propagating (spec.md §4.1); the returned error is for the
// poller's diagnostics only.
func (f *Facade) RefreshInputs(ctx context.Context, now time.Time) error {
	slots := f.labels.Labels(DeviceInput, KindCoil)
	data := make(map[string]any, len(slots))

	var retErr error
	if len(slots) > 0 {
		start, count := f.labels.Range(DeviceInput, KindCoil)
		values, err := f.input.ReadCoils(ctx, start, count)
		if err != nil {
			retErr = err
		} else {
			for _, s := range slots {
				idx := s.Address - start
				if idx < 0 || idx >= len(values) {
					continue
				}
				data[s.Label] = values[idx]
				f.current[normalizeLabel(s.Label)] = values[idx]
			}
		}
	}

	f.inputHist.Append(history.Entry{Timestamp: now, Data: data})
	return retErr
}

// RefreshOutputs reads every output coil and the VERSION register. A
// transport failure yields a zero-filled map (false coils, VERSION=0) so
// the comms watchdog sees the dead-link sentinel rather than a propagated
// error (spec.md §4.1, §4.2).
func (f *Facade) RefreshOutputs(ctx context.Context, now time.Time) error {
	coilSlots := f.labels.Labels(DeviceOutput, KindCoil)
	regSlots := f.labels.Labels(DeviceOutput, KindRegister)
	data := make(map[string]any, len(coilSlots)+len(regSlots))

	var retErr error

	if len(coilSlots) > 0 {
		start, count := f.labels.Range(DeviceOutput, KindCoil)
		values, err := f.output.ReadCoils(ctx, start, count)
		if err != nil {
			retErr = err
			for _, s := range coilSlots {
				data[s.Label] = false
				f.current[normalizeLabel(s.Label)] = false
			}
		} else {
			for _, s := range coilSlots {
				idx := s.Address - start
				if idx < 0 || idx >= len(values) {
					continue
				}
				data[s.Label] = values[idx]
				f.current[normalizeLabel(s.Label)] = values[idx]
			}
		}
	}

	if len(regSlots) > 0 {
		start, count := f.labels.Range(DeviceOutput, KindRegister)
		values, err := f.output.ReadHoldings(ctx, start, count)
		if err != nil {
			if retErr == nil {
				retErr = err
			}
			for _, s := range regSlots {
				data[s.Label] = uint16(0)
				f.current[normalizeLabel(s.Label)] = uint16(0)
			}
		} else {
			for _, s := range regSlots {
				idx := s.Address - start
				if idx < 0 || idx >= len(values) {
					continue
				}
				data[s.Label] = values[idx]
				f.current[normalizeLabel(s.Label)] = values[idx]
			}
		}
	}

	f.outputHist.Append(history.Entry{Timestamp: now, Data: data})
	return retErr
}

// Get returns the last-known value for label and whether it resolved at
// all. An unresolved label reports ok=false (spec.md §8 "caller must
// handle None").
func (f *Facade) Get(label string) (any, bool) {
	if _, ok := f.labels.Resolve(label); !ok {
		return nil, false
	}
	v, ok := f.current[normalizeLabel(label)]
	return v, ok
}

// GetDevice is Get's explicit-device variant (spec.md §4.1): it additionally
// requires label to live on device, reporting ok=false on a device mismatch
// even if the label itself resolves elsewhere. Invariant I5 (a label
// resolves to exactly one device/kind) makes this equivalent to Get in
// practice; it exists so callers that know which terminal they mean can say
// so.
func (f *Facade) GetDevice(device Device, label string) (any, bool) {
	if _, ok := f.labels.ResolveDevice(device, label); !ok {
		return nil, false
	}
	v, ok := f.current[normalizeLabel(label)]
	return v, ok
}

func (f *Facade) GetBool(label string) (bool, bool) {
	v, ok := f.Get(label)
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

func (f *Facade) GetInt(label string) (uint16, bool) {
	v, ok := f.Get(label)
	if !ok {
		return 0, false
	}
	u, ok := v.(uint16)
	return u, ok
}

// GetAll returns every resolved label's value for the given device/kind.
func (f *Facade) GetAll(device Device, kind Kind) map[string]any {
	out := make(map[string]any)
	for _, s := range f.labels.Labels(device, kind) {
		if v, ok := f.current[normalizeLabel(s.Label)]; ok {
			out[s.Label] = v
		}
	}
	return out
}

// Set writes value to whichever device owns label (spec.md §4.1). A
// kind mismatch (bool for a register, or vice versa) or an unresolved /
// non-output label returns false without writing.
func (f *Facade) Set(ctx context.Context, label string, value any) bool {
	slot, ok := f.labels.ResolveDevice(DeviceOutput, label)
	if !ok {
		return false
	}

	switch slot.Kind {
	case KindCoil:
		b, ok := value.(bool)
		if !ok {
			return false
		}
		if err := f.output.WriteCoil(ctx, slot.Address, b); err != nil {
			return false
		}
		f.current[normalizeLabel(label)] = b
		return true
	case KindRegister:
		var u uint16
		switch v := value.(type) {
		case uint16:
			u = v
		case int:
			u = uint16(v)
		default:
			return false
		}
		if err := f.output.WriteHolding(ctx, slot.Address, u); err != nil {
			return false
		}
		f.current[normalizeLabel(label)] = u
		return true
	default:
		return false
	}
}

func (f *Facade) window(w time.Duration) time.Duration {
	if w <= 0 {
		return f.edgeWindow
	}
	return w
}

// RisingEdge, FallingEdge and ExtendedHold query the input history buffer
// (spec.md §4.4). For the two edge queries a non-positive window falls back
// to the facade's default; ExtendedHold uses hold as given.
func (f *Facade) RisingEdge(label string, window time.Duration) bool {
	return f.inputHist.RisingEdge(label, f.window(window))
}

func (f *Facade) FallingEdge(label string, window time.Duration) bool {
	return f.inputHist.FallingEdge(label, f.window(window))
}

func (f *Facade) ExtendedHold(label string, value bool, hold time.Duration) bool {
	return f.inputHist.ExtendedHold(label, value, hold)
}

// CheckCommsHealth evaluates the comms-health watchdog against the output
// history's VERSION heartbeat (spec.md §4.2).
func (f *Facade) CheckCommsHealth(timeout time.Duration) bool {
	return f.outputHist.CheckCommsHealth(timeout)
}

// Connect dials both transports, attempting the output terminal even if the
// input terminal fails. The first failure is returned; callers may still be
// partially connected (spec.md §4.7 treats each transport
// independently).
func (f *Facade) Connect(ctx context.Context) error {
	errIn := f.input.Connect(ctx)
	errOut := f.output.Connect(ctx)
	if errIn != nil {
		return errIn
	}
	return errOut
}

// Close disconnects both transports, e.g. on entering ERROR_COMMS.
func (f *Facade) Close() error {
	errIn := f.input.Close()
	errOut := f.output.Close()
	if errIn != nil {
		return errIn
	}
	return errOut
}

func (f *Facade) InputConnected() bool  { return f.input.Connected() }
func (f *Facade) OutputConnected() bool { return f.output.Connected() }
