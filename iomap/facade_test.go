package iomap

import (
	"context"
	"testing"
	"time"

	"github.com/bellafruita/feedctl/history"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	connected bool
	coils     []bool
	holdings  []uint16
	failRead  bool
}

func (f *fakeTransport) Connect(context.Context) error { f.connected = true; return nil }
func (f *fakeTransport) Close() error                  { f.connected = false; return nil }
func (f *fakeTransport) Connected() bool               { return f.connected }

func (f *fakeTransport) ReadCoils(_ context.Context, start, count int) ([]bool, error) {
	if f.failRead {
		return nil, errFakeRead
	}
	return append([]bool(nil), f.coils[start:start+count]...), nil
}

func (f *fakeTransport) WriteCoil(_ context.Context, address int, value bool) error {
	f.coils[address] = value
	return nil
}

func (f *fakeTransport) ReadHoldings(_ context.Context, start, count int) ([]uint16, error) {
	if f.failRead {
		return nil, errFakeRead
	}
	return append([]uint16(nil), f.holdings[start:start+count]...), nil
}

func (f *fakeTransport) WriteHolding(_ context.Context, address int, value uint16) error {
	f.holdings[address] = value
	return nil
}

var errFakeRead = &fakeErr{"read failed"}

type fakeErr struct{ s string }

func (e *fakeErr) Error() string { return e.s }

func newTestFacade(t *testing.T) (*Facade, *fakeTransport, *fakeTransport) {
	t.Helper()
	labels := DefaultLabelMap()
	in := &fakeTransport{coils: make([]bool, 16)}
	out := &fakeTransport{coils: make([]bool, 4), holdings: make([]uint16, 1)}
	f := NewFacade(labels, in, out, history.NewBuffer(100), history.NewBuffer(100), 500*time.Millisecond)
	return f, in, out
}

func TestRefreshInputsPopulatesCurrent(t *testing.T) {
	f, in, _ := newTestFacade(t)
	in.coils[0] = true // S1

	require.NoError(t, f.RefreshInputs(context.Background(), time.Now()))

	v, ok := f.GetBool("S1")
	require.True(t, ok)
	require.True(t, v)
}

func TestRefreshInputsFailureYieldsEmptyNotPanicking(t *testing.T) {
	f, in, _ := newTestFacade(t)
	in.failRead = true

	err := f.RefreshInputs(context.Background(), time.Now())
	require.Error(t, err)

	_, ok := f.GetBool("S1")
	require.False(t, ok)
}

func TestRefreshOutputsFailureZeroFillsVersion(t *testing.T) {
	f, _, out := newTestFacade(t)
	out.holdings[0] = 42
	out.failRead = true

	_ = f.RefreshOutputs(context.Background(), time.Now())

	v, ok := f.GetInt("VERSION")
	require.True(t, ok)
	require.Equal(t, uint16(0), v)
}

func TestSetRejectsKindMismatch(t *testing.T) {
	f, _, _ := newTestFacade(t)
	require.False(t, f.Set(context.Background(), "MOTOR_2", 1))
	require.True(t, f.Set(context.Background(), "MOTOR_2", true))
}

func TestSetRejectsInputLabel(t *testing.T) {
	f, _, _ := newTestFacade(t)
	require.False(t, f.Set(context.Background(), "S1", true))
}

func TestGetUnresolvedLabel(t *testing.T) {
	f, _, _ := newTestFacade(t)
	_, ok := f.Get("NOT_A_LABEL")
	require.False(t, ok)
}

func TestGetDeviceRequiresMatchingDevice(t *testing.T) {
	f, in, _ := newTestFacade(t)
	in.coils[0] = true // S1 lives on DeviceInput

	require.NoError(t, f.RefreshInputs(context.Background(), time.Now()))

	v, ok := f.GetDevice(DeviceInput, "S1")
	require.True(t, ok)
	require.Equal(t, true, v)

	_, ok = f.GetDevice(DeviceOutput, "S1")
	require.False(t, ok)
}

func TestDefaultLabelMapHasExpectedCounts(t *testing.T) {
	lm := DefaultLabelMap()
	require.Len(t, lm.Labels(DeviceInput, KindCoil), 16)
	require.Len(t, lm.Labels(DeviceOutput, KindCoil), 4)
	require.Len(t, lm.Labels(DeviceOutput, KindRegister), 1)
}
