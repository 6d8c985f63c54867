// Package mockio implements an in-process stand-in for a Modbus terminal,
// used by `--mock` and by every test that exercises the feeder rules
// without real hardware.
package mockio

import (
	"context"
	"sync"
)

// Device is a mock iomap.Transport. It never touches the network; reads and
// writes go straight to in-memory maps that tests can poke directly via
// SetCoil/SetRegister.
//
// Grounded on the original mock Modbus client: default holding register 0
// to a nonzero VERSION so a fresh mock starts "comms healthy", and expose
// plain setter helpers rather than a full protocol stack.
type Device struct {
	mu        sync.Mutex
	connected bool

	coils     map[int]bool
	registers map[int]uint16
}

// NewDevice constructs a Device with holding register 0 defaulted to a
// nonzero VERSION (12345) so a freshly-constructed mock reads as
// comms-healthy without any setup.
func NewDevice() *Device {
	return &Device{
		coils:     make(map[int]bool),
		registers: map[int]uint16{0: 12345},
	}
}

func (d *Device) Connect(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.connected = true
	return nil
}

func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.connected = false
	return nil
}

func (d *Device) Connected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connected
}

func (d *Device) ReadCoils(_ context.Context, start, count int) ([]bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]bool, count)
	for i := 0; i < count; i++ {
		out[i] = d.coils[start+i]
	}
	return out, nil
}

func (d *Device) WriteCoil(_ context.Context, address int, value bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.coils[address] = value
	return nil
}

func (d *Device) ReadHoldings(_ context.Context, start, count int) ([]uint16, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]uint16, count)
	for i := 0; i < count; i++ {
		out[i] = d.registers[start+i]
	}
	return out, nil
}

func (d *Device) WriteHolding(_ context.Context, address int, value uint16) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.registers[address] = value
	return nil
}

// SetCoil is a test helper: force a coil to a value as if the physical
// input changed, bypassing WriteCoil's "output write" semantics.
func (d *Device) SetCoil(address int, value bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.coils[address] = value
}

// SetRegister is a test helper mirroring SetCoil for holding registers.
func (d *Device) SetRegister(address int, value uint16) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.registers[address] = value
}

// Reset clears all coils and registers back to zero (VERSION included).
func (d *Device) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.coils = make(map[int]bool)
	d.registers = make(map[int]uint16)
}
