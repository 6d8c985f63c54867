package iomap

import "context"

// Transport is the narrow surface the facade needs from a remote terminal.
// The facade depends only on this interface; modbus_transport.go is the one
// file in iomap that imports the Modbus library, so that library stays
// swappable (spec.md §1).
type Transport interface {
	Connect(ctx context.Context) error
	Close() error
	Connected() bool

	ReadCoils(ctx context.Context, start, count int) ([]bool, error)
	WriteCoil(ctx context.Context, address int, value bool) error

	ReadHoldings(ctx context.Context, start, count int) ([]uint16, error)
	WriteHolding(ctx context.Context, address int, value uint16) error
}
