// Package feeder implements the apple-sorting conveyor's mode state
// machine as an ordered ladder.Rule list (spec.md §4.5).
package feeder

import "time"

// Memory keys used by the timestamp-in-memory scheduling pattern (Design
// Note 3), by the C3 dwell timer, and by the LED_GREEN change tracker.
const (
	keyC3ToC2StartAt    = "C3toC2_StartTime"
	keyC3ToC2Motor3At   = "C3toC2_Motor3At"
	keyC2ToPalmOffAt    = "C2ToPalm_Motor2OffAt"
	keyMotor3StartAt    = "Motor3_StartTime"
	keyMotor3DelayAt    = "MovingBoth_Motor3DelayAt"
	keyC3Timer          = "C3_Timer"
	keyLedGreenObserved = "_LedGreenObserved"
)

// Fixed timing constants from spec.md §4.5 — these are system behavior,
// not operator-tunable configuration.
const (
	tripHoldDuration      = 1 * time.Second
	estopHoldDuration     = 1 * time.Second
	c3ToC2Delay           = 30 * time.Second
	motorStaggerDelay     = 2 * time.Second
	c2ToPalmMotorOffDelay = 1 * time.Second
)

// tripLabels are the dedicated trip inputs checked by SafetyTrip; E_Stop is
// handled by its own rule pair, not lumped in here.
var tripLabels = []string{"M1_Trip", "M2_Trip", "DHLM_Trip_Signal"}
