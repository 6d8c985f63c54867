package main

import (
	"context"
	"fmt"
	"time"

	"github.com/bellafruita/feedctl/eventlog"
)

// tailLogs is the "logs" view: a minimal stdout tail of the event sink's
// ring buffer, printed as new entries arrive. It requires no UI framework,
// unlike the tui/web views it stands in for (SPEC_FULL.md §6).
func tailLogs(ctx context.Context, sink *eventlog.Sink) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	var lastPrinted time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, e := range sink.Recent(1000) {
				if !e.Timestamp.After(lastPrinted) {
					continue // already printed
				}
				fmt.Printf("%s [%s] %s\n", e.FormattedTime(), e.Level, e.Message)
				lastPrinted = e.Timestamp
			}
		}
	}
}
