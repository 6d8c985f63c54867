package poll

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bellafruita/feedctl/eventlog"
	"github.com/bellafruita/feedctl/feeder"
	"github.com/bellafruita/feedctl/history"
	"github.com/bellafruita/feedctl/iomap"
	"github.com/bellafruita/feedctl/ladder"
	"github.com/bellafruita/feedctl/machmem"
	"github.com/bellafruita/feedctl/mockio"
	"github.com/bellafruita/feedctl/shared"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestPoller(t *testing.T) (*Poller, *mockio.Device, *mockio.Device, *shared.Publisher) {
	t.Helper()
	in := mockio.NewDevice()
	out := mockio.NewDevice()
	labels := iomap.DefaultLabelMap()
	facade := iomap.NewFacade(labels, in, out, history.NewBuffer(2000), history.NewBuffer(2000), 500*time.Millisecond)
	mem := machmem.New(nil)
	engine := ladder.NewEngine(mem, nil)
	feeder.Register(engine, feeder.Config{CommsTimeout: 5 * time.Second, EdgeWindow: 500 * time.Millisecond})

	sinkPath := filepath.Join(t.TempDir(), "events.jsonl")
	sink, err := eventlog.NewSink(sinkPath, 100, false, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = sink.Close(); _ = os.RemoveAll(filepath.Dir(sinkPath)) })

	pub := shared.NewPublisher()
	p := New(facade, engine, mem, pub, sink, 10*time.Millisecond)
	return p, in, out, pub
}

func TestScanOncePublishesSnapshot(t *testing.T) {
	p, in, out, pub := newTestPoller(t)
	setAllSafe(t, in, out)
	require.NoError(t, p.facade.Connect(context.Background()))

	p.scanOnce(context.Background(), time.Now())

	snap := pub.Current()
	require.Equal(t, uint64(1), snap.InputHeartbeat)
	require.Equal(t, uint64(1), snap.OutputHeartbeat)
	require.True(t, snap.Connected)
	require.Contains(t, snap.InputData, "S1")
	require.Contains(t, snap.OutputData, "VERSION")
}

func TestRunStopsOnContextCancel(t *testing.T) {
	p, in, out, _ := newTestPoller(t)
	setAllSafe(t, in, out)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}

func TestScanOnceDuringErrorCommsAttemptsReconnect(t *testing.T) {
	p, in, out, pub := newTestPoller(t)
	setAllSafe(t, in, out)
	p.mem.SetMode(machmem.ModeErrorComms)

	p.scanOnce(context.Background(), time.Now())

	snap := pub.Current()
	require.True(t, snap.InCommsError || snap.Mode == machmem.ModeErrorComms)
	// The mocks start disconnected; only the ERROR_COMMS reconnect connects them.
	require.True(t, snap.Connected)
}

func setAllSafe(t *testing.T, in, out *mockio.Device) {
	t.Helper()
	labels := iomap.DefaultLabelMap()
	defaults := map[string]bool{
		"E_Stop": true, "M1_Trip": true, "M2_Trip": true, "DHLM_Trip_Signal": true,
		"Auto_Select": true, "Manual_Select": false,
		"S1": true, "S2": true,
		"CPS_1": true, "CPS_2": true,
		"PALM_Run_Signal": true, "Klaar_Geweeg_Btn": false, "Reset_Btn": false,
	}
	for label, v := range defaults {
		slot, ok := labels.ResolveDevice(iomap.DeviceInput, label)
		require.True(t, ok)
		in.SetCoil(slot.Address, v)
	}
	out.SetRegister(0, 42)
}
