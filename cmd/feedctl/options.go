package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bellafruita/feedctl/eventlog"
	"github.com/bellafruita/feedctl/feeder"
	"github.com/bellafruita/feedctl/history"
	"github.com/bellafruita/feedctl/iomap"
	"github.com/bellafruita/feedctl/ladder"
	"github.com/bellafruita/feedctl/machmem"
	"github.com/bellafruita/feedctl/mockio"
	"github.com/bellafruita/feedctl/poll"
	"github.com/bellafruita/feedctl/shared"
)

// minEdgeWindow and maxEdgeWindow clamp --edge-window (spec.md §4.4).
const (
	minEdgeWindow = 50 * time.Millisecond
	maxEdgeWindow = 60 * time.Second
)

// RunCommand is the primary subcommand (it must be named on the command
// line; there is no default subcommand): it brings up the full
// control loop and blocks until interrupted.
type RunCommand struct {
	Mock bool `long:"mock" description:"use in-process mock transports instead of dialing real Modbus/TCP endpoints"`

	Input       string `long:"input" default:"172.20.231.25:502" description:"input terminal host:port"`
	Output      string `long:"output" default:"172.20.231.49:502" description:"output terminal host:port"`
	InputSlave  int    `long:"input-slave" default:"1" description:"input terminal Modbus unit id"`
	OutputSlave int    `long:"output-slave" default:"1" description:"output terminal Modbus unit id"`

	PollInterval time.Duration `long:"poll-interval" default:"100ms" description:"scan period"`
	CommsTimeout time.Duration `long:"comms-timeout" default:"5s" description:"comms watchdog timeout"`
	EdgeWindow   time.Duration `long:"edge-window" default:"500ms" description:"default edge-detection window, clamped to [50ms, 60s]"`

	LogFile      string `long:"log-file" default:"logs/system_events.jsonl" description:"JSON-Lines event sink path"`
	LogStackSize int    `long:"log-stack-size" default:"3000" description:"event ring buffer / rotation threshold"`

	View string `long:"view" choice:"tui" choice:"web" choice:"logs" default:"logs" description:"UI view; only 'logs' is implemented in-tree"`
	Port int    `long:"port" default:"7681" description:"reserved for the web view"`
}

// Execute wires every package together explicitly (Design Note 4: no
// globals) and runs the scan loop until the process receives an interrupt.
func (c *RunCommand) Execute(args []string) error {
	edgeWindow := c.EdgeWindow
	if edgeWindow < minEdgeWindow {
		edgeWindow = minEdgeWindow
	}
	if edgeWindow > maxEdgeWindow {
		edgeWindow = maxEdgeWindow
	}

	debug := os.Getenv("DEBUG") == "1"
	console := eventlog.NewConsoleLogger(debug)

	sink, err := eventlog.NewSink(c.LogFile, c.LogStackSize, debug, console)
	if err != nil {
		return fmt.Errorf("feedctl: open event sink: %w", err)
	}
	defer func() {
		if cerr := sink.Close(); cerr != nil {
			fmt.Fprintln(os.Stderr, "feedctl: closing event sink:", cerr)
		}
	}()

	labels := iomap.DefaultLabelMap()

	var input, output iomap.Transport
	if c.Mock {
		input = mockio.NewDevice()
		output = mockio.NewDevice()
		sink.Info("using mock transports (--mock)")
	} else {
		input = iomap.NewModbusTransport(c.Input, c.InputSlave, 10*time.Second)
		output = iomap.NewModbusTransport(c.Output, c.OutputSlave, 10*time.Second)
	}

	facade := iomap.NewFacade(labels, input, output,
		history.NewBuffer(c.LogStackSize), history.NewBuffer(c.LogStackSize), edgeWindow)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := facade.Connect(ctx); err != nil {
		sink.Error("initial connect failed: " + err.Error())
	}
	defer func() {
		if cerr := facade.Close(); cerr != nil {
			sink.Error("closing transports: " + cerr.Error())
		}
	}()

	mem := machmem.New(sink)
	engine := ladder.NewEngine(mem, sink)
	feeder.Register(engine, feeder.Config{
		CommsTimeout: c.CommsTimeout,
		EdgeWindow:   edgeWindow,
		Logger:       sink,
	})

	pub := shared.NewPublisher()
	poller := poll.New(facade, engine, mem, pub, sink, c.PollInterval)

	switch c.View {
	case "logs":
		go tailLogs(ctx, sink)
	case "tui", "web":
		sink.Warning(fmt.Sprintf("--view %s is accepted but not implemented in this build; falling back to logs", c.View))
		go tailLogs(ctx, sink)
	}

	sink.Info(fmt.Sprintf("feedctl starting: poll=%s comms-timeout=%s edge-window=%s mock=%v", c.PollInterval, c.CommsTimeout, edgeWindow, c.Mock))
	poller.Run(ctx)
	sink.Info("feedctl stopped")
	return nil
}
