package iomap

import (
	"context"
	"errors"
	"time"

	"github.com/goburrow/modbus"
)

// ErrNotConnected is returned by every ModbusTransport operation attempted
// before Connect succeeds or after Close.
var ErrNotConnected = errors.New("iomap: transport not connected")

// ModbusTransport drives a remote terminal over Modbus/TCP using
// github.com/goburrow/modbus, satisfying Transport (spec.md §4.1). It is the
// production implementation; mockio.Device is the test/--mock stand-in.
type ModbusTransport struct {
	hostport string
	unitID   int
	timeout  time.Duration

	handler *modbus.TCPClientHandler
	client  modbus.Client
}

// NewModbusTransport constructs a transport for the given "host:port"
// address and Modbus unit ID. It does not dial; call Connect.
func NewModbusTransport(hostport string, unitID int, timeout time.Duration) *ModbusTransport {
	return &ModbusTransport{hostport: hostport, unitID: unitID, timeout: timeout}
}

// Connect dials the remote terminal over TCP. Safe to call again after a
// failed or closed connection (spec.md §4.7 reconnect-on-each-scan policy).
func (t *ModbusTransport) Connect(_ context.Context) error {
	if t.handler != nil {
		return nil
	}
	handler := modbus.NewTCPClientHandler(t.hostport)
	handler.SlaveId = byte(t.unitID)
	handler.Timeout = t.timeout
	if err := handler.Connect(); err != nil {
		return err
	}
	t.handler = handler
	t.client = modbus.NewClient(handler)
	return nil
}

func (t *ModbusTransport) Close() error {
	if t.handler == nil {
		return nil
	}
	err := t.handler.Close()
	t.handler = nil
	t.client = nil
	return err
}

func (t *ModbusTransport) Connected() bool { return t.handler != nil }

func (t *ModbusTransport) ReadCoils(_ context.Context, start, count int) ([]bool, error) {
	if !t.Connected() {
		return nil, ErrNotConnected
	}
	raw, err := t.client.ReadCoils(uint16(start), uint16(count))
	if err != nil {
		return nil, err
	}
	return unpackBits(raw, count), nil
}

func (t *ModbusTransport) WriteCoil(_ context.Context, address int, value bool) error {
	if !t.Connected() {
		return ErrNotConnected
	}
	v := uint16(0x0000)
	if value {
		v = 0xFF00
	}
	_, err := t.client.WriteSingleCoil(uint16(address), v)
	return err
}

func (t *ModbusTransport) ReadHoldings(_ context.Context, start, count int) ([]uint16, error) {
	if !t.Connected() {
		return nil, ErrNotConnected
	}
	raw, err := t.client.ReadHoldingRegisters(uint16(start), uint16(count))
	if err != nil {
		return nil, err
	}
	return unpackWords(raw, count), nil
}

func (t *ModbusTransport) WriteHolding(_ context.Context, address int, value uint16) error {
	if !t.Connected() {
		return ErrNotConnected
	}
	_, err := t.client.WriteSingleRegister(uint16(address), value)
	return err
}

// unpackBits expands a Modbus coil/discrete-input byte packing (one bit per
// point, LSB first within each byte) into count bool values.
func unpackBits(raw []byte, count int) []bool {
	out := make([]bool, count)
	for i := 0; i < count; i++ {
		out[i] = raw[i/8]&(1<<uint(i%8)) != 0
	}
	return out
}

// unpackWords expands a Modbus register byte packing (big-endian 16-bit
// words) into count uint16 values.
func unpackWords(raw []byte, count int) []uint16 {
	out := make([]uint16, count)
	for i := 0; i < count; i++ {
		out[i] = uint16(raw[2*i])<<8 | uint16(raw[2*i+1])
	}
	return out
}
