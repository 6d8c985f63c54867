package feeder

import (
	"time"

	"github.com/bellafruita/feedctl/ladder"
)

// Config carries the operator-tunable knobs the rule set needs; everything
// else (trip holds, dwell/stagger delays) is fixed behavior per spec.md §4.5
// and lives in keys.go's constants.
type Config struct {
	CommsTimeout time.Duration
	EdgeWindow   time.Duration
	Logger       Logger
}

// Register builds the full feeder rule set and adds it to engine in the
// exact order of spec.md §4.5's transition table: normal-operation rules
// first, comms/E-Stop safety rules last so late-wins semantics make them
// dominant (P5).
func Register(engine *ladder.Engine, cfg Config) {
	commsTimeout := cfg.CommsTimeout
	edgeWindow := cfg.EdgeWindow

	rules := []*ladder.Rule{
		buildReadyFromSafeRule(),
		buildManualSelectRule(),
		buildSafetyTripRule(cfg.Logger),
		buildC3ToC2EntryRule(),
		buildC3ToC2ProgressRule(),
		buildC3ToC2ExitRule(),
		buildC2ToPalmEntryRule(edgeWindow),
		buildC2ToPalmExitRule(),
		buildMovingBothEntryRule(),
		buildMovingBothProgressRule(),
		buildMovingBothExitRule(),
		buildC3TimerRule(),
		buildEstopTripRule(cfg.Logger),
		buildEstopRecoverRule(),
		buildCommsHealthTripRule(cfg.Logger, commsTimeout),
		buildCommsAckRule(cfg.Logger),
		buildCommsRecoverReadyRule(commsTimeout),
		buildCommsRecoverFailRule(commsTimeout),
		buildCrateMisalignmentRule(),
		buildCommsIndicatorRule(commsTimeout),
	}
	for _, r := range rules {
		engine.AddRule(r)
	}
}
