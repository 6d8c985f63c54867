package feeder

import (
	"context"
	"fmt"
	"time"

	"github.com/bellafruita/feedctl/iomap"
	"github.com/bellafruita/feedctl/ladder"
	"github.com/bellafruita/feedctl/machmem"
)

// Logger is the subset of eventlog.Sink's API the rule set needs to narrate
// safety and comms events with enough detail to debug after the fact.
type Logger interface {
	Info(msg string)
	Warning(msg string)
	Critical(msg string)
}

var bg = context.Background()

func motorsOff(f *iomap.Facade) {
	f.Set(bg, "MOTOR_2", false)
	f.Set(bg, "MOTOR_3", false)
}

// buildReadyFromSafeRule: unset/MANUAL/ERROR_SAFETY -> READY once Auto_Select
// is selected and every safety input has held true for a full second.
func buildReadyFromSafeRule() *ladder.Rule {
	condition := func(f *iomap.Facade, mem *machmem.Memory) (bool, error) {
		switch mem.Mode() {
		case machmem.ModeUnset, machmem.ModeManual, machmem.ModeErrorSafety:
		default:
			return false, nil
		}
		auto, _ := f.GetBool("Auto_Select")
		if !auto {
			return false, nil
		}
		if !f.ExtendedHold("E_Stop", true, tripHoldDuration) {
			return false, nil
		}
		for _, trip := range tripLabels {
			if !f.ExtendedHold(trip, true, tripHoldDuration) {
				return false, nil
			}
		}
		return true, nil
	}
	action := func(f *iomap.Facade, mem *machmem.Memory) error {
		mem.SetMode(machmem.ModeReady)
		motorsOff(f)
		return nil
	}
	return ladder.NewRule("ReadyFromSafe", condition, action)
}

// buildManualSelectRule: any mode but ERROR_COMMS_ACK -> MANUAL on
// Manual_Select. ERROR_ESTOP and ERROR_COMMS are also excluded: their own
// rows further down the table react to Manual_Select more specifically
// (the E-Stop latch needs E_Stop released too; comms failure needs explicit
// acknowledgement), and those later rules would never get a chance to see
// the mode they're supposed to key off if this rule renamed it first.
func buildManualSelectRule() *ladder.Rule {
	condition := func(f *iomap.Facade, mem *machmem.Memory) (bool, error) {
		switch mem.Mode() {
		case machmem.ModeErrorCommsAck, machmem.ModeErrorEstop, machmem.ModeErrorComms:
			return false, nil
		}
		manual, _ := f.GetBool("Manual_Select")
		return manual, nil
	}
	action := func(f *iomap.Facade, mem *machmem.Memory) error {
		mem.SetMode(machmem.ModeManual)
		motorsOff(f)
		return nil
	}
	return ladder.NewRule("ManualSelect", condition, action)
}

// buildSafetyTripRule: any mode but ERROR_COMMS/ERROR_ESTOP -> ERROR_SAFETY
// when any trip input has held false for a full second.
func buildSafetyTripRule(logger Logger) *ladder.Rule {
	var trippedLabel string
	condition := func(f *iomap.Facade, mem *machmem.Memory) (bool, error) {
		switch mem.Mode() {
		case machmem.ModeErrorComms, machmem.ModeErrorEstop:
			return false, nil
		}
		for _, trip := range tripLabels {
			if f.ExtendedHold(trip, false, tripHoldDuration) {
				trippedLabel = trip
				return true, nil
			}
		}
		return false, nil
	}
	action := func(f *iomap.Facade, mem *machmem.Memory) error {
		mem.SetMode(machmem.ModeErrorSafety)
		motorsOff(f)
		if logger != nil {
			logger.Warning(fmt.Sprintf("Safety trip: %s held false for %s", trippedLabel, tripHoldDuration))
		}
		return nil
	}
	return ladder.NewRule("SafetyTrip", condition, action)
}

// buildC3ToC2EntryRule: READY -> MOVING_C3_TO_C2 when a bin sits on C3 with
// C2 clear; schedules the 30s dwell via the timestamp-in-memory pattern.
func buildC3ToC2EntryRule() *ladder.Rule {
	condition := func(f *iomap.Facade, mem *machmem.Memory) (bool, error) {
		if mem.Mode() != machmem.ModeReady {
			return false, nil
		}
		s2, _ := f.GetBool("S2")
		s1, _ := f.GetBool("S1")
		return s2 && !s1, nil
	}
	action := func(f *iomap.Facade, mem *machmem.Memory) error {
		mem.SetMode(machmem.ModeMovingC3ToC2)
		mem.SetTime(keyC3ToC2StartAt, time.Now().Add(c3ToC2Delay))
		return nil
	}
	return ladder.NewRule("C3ToC2Entry", condition, action)
}

// buildC3ToC2ProgressRule implements the two-stage MOTOR_2-then-MOTOR_3
// start with a 2s safety stagger between them, both driven by scheduled
// timestamps rather than a sleep inside the action.
func buildC3ToC2ProgressRule() *ladder.Rule {
	const (
		stageNone = iota
		stageStartMotor2
		stageStartMotor3
	)
	var stage int
	condition := func(f *iomap.Facade, mem *machmem.Memory) (bool, error) {
		stage = stageNone
		if mem.Mode() != machmem.ModeMovingC3ToC2 {
			return false, nil
		}
		now := time.Now()
		if t, ok := mem.GetTime(keyC3ToC2Motor3At); ok && !now.Before(t) {
			stage = stageStartMotor3
			return true, nil
		}
		if t, ok := mem.GetTime(keyC3ToC2StartAt); ok && !now.Before(t) {
			stage = stageStartMotor2
			return true, nil
		}
		return false, nil
	}
	action := func(f *iomap.Facade, mem *machmem.Memory) error {
		switch stage {
		case stageStartMotor2:
			f.Set(bg, "MOTOR_2", true)
			mem.Pop(keyC3ToC2StartAt)
			mem.SetTime(keyC3ToC2Motor3At, time.Now().Add(motorStaggerDelay))
		case stageStartMotor3:
			f.Set(bg, "MOTOR_3", true)
			mem.Pop(keyC3ToC2Motor3At)
		}
		return nil
	}
	return ladder.NewRule("C3ToC2Progress", condition, action)
}

// buildC3ToC2ExitRule: MOVING_C3_TO_C2 -> READY once the bin has arrived on C2.
func buildC3ToC2ExitRule() *ladder.Rule {
	condition := func(f *iomap.Facade, mem *machmem.Memory) (bool, error) {
		if mem.Mode() != machmem.ModeMovingC3ToC2 {
			return false, nil
		}
		s2, _ := f.GetBool("S2")
		return !s2, nil
	}
	action := func(f *iomap.Facade, mem *machmem.Memory) error {
		mem.SetMode(machmem.ModeReady)
		motorsOff(f)
		mem.Pop(keyC3ToC2StartAt)
		mem.Pop(keyC3ToC2Motor3At)
		return nil
	}
	return ladder.NewRule("C3ToC2Exit", condition, action)
}

// buildC2ToPalmEntryRule: READY -> MOVING_C2_TO_PALM, a bin already on C2
// dispatched to PALM on the weigh-ready button's rising edge.
func buildC2ToPalmEntryRule(edgeWindow time.Duration) *ladder.Rule {
	condition := func(f *iomap.Facade, mem *machmem.Memory) (bool, error) {
		if mem.Mode() != machmem.ModeReady {
			return false, nil
		}
		s1, _ := f.GetBool("S1")
		s2, _ := f.GetBool("S2")
		palm, _ := f.GetBool("PALM_Run_Signal")
		return s1 && !s2 && palm && f.RisingEdge("Klaar_Geweeg_Btn", edgeWindow), nil
	}
	action := func(f *iomap.Facade, mem *machmem.Memory) error {
		mem.SetMode(machmem.ModeMovingC2ToPalm)
		f.Set(bg, "MOTOR_2", true)
		return nil
	}
	return ladder.NewRule("C2ToPalmEntry", condition, action)
}

// buildC2ToPalmExitRule: MOVING_C2_TO_PALM -> READY once the bin has left
// C2, after a 1s drain delay before MOTOR_2 stops.
func buildC2ToPalmExitRule() *ladder.Rule {
	const (
		stageNone = iota
		stageSchedule
		stageCommit
	)
	var stage int
	condition := func(f *iomap.Facade, mem *machmem.Memory) (bool, error) {
		stage = stageNone
		if mem.Mode() != machmem.ModeMovingC2ToPalm {
			return false, nil
		}
		if t, ok := mem.GetTime(keyC2ToPalmOffAt); ok {
			if !time.Now().Before(t) {
				stage = stageCommit
				return true, nil
			}
			return false, nil
		}
		s2, _ := f.GetBool("S2")
		if s2 {
			stage = stageSchedule
			return true, nil
		}
		return false, nil
	}
	action := func(f *iomap.Facade, mem *machmem.Memory) error {
		switch stage {
		case stageSchedule:
			mem.SetTime(keyC2ToPalmOffAt, time.Now().Add(c2ToPalmMotorOffDelay))
		case stageCommit:
			mem.SetMode(machmem.ModeReady)
			f.Set(bg, "MOTOR_2", false)
			mem.Pop(keyC2ToPalmOffAt)
		}
		return nil
	}
	return ladder.NewRule("C2ToPalmExit", condition, action)
}

// buildMovingBothEntryRule: READY -> MOVING_BOTH, both bins dispatched
// together. MOTOR_2 starts immediately; MOTOR_3's 30s dwell target accounts
// for time the bin has already spent waiting on C3.
func buildMovingBothEntryRule() *ladder.Rule {
	condition := func(f *iomap.Facade, mem *machmem.Memory) (bool, error) {
		if mem.Mode() != machmem.ModeReady {
			return false, nil
		}
		s1, _ := f.GetBool("S1")
		s2, _ := f.GetBool("S2")
		palm, _ := f.GetBool("PALM_Run_Signal")
		return !s1 && !s2 && palm && f.RisingEdge("Klaar_Geweeg_Btn", 0), nil
	}
	action := func(f *iomap.Facade, mem *machmem.Memory) error {
		mem.SetMode(machmem.ModeMovingBoth)
		f.Set(bg, "MOTOR_2", true)

		elapsed := time.Duration(0)
		if t, ok := mem.GetTime(keyC3Timer); ok {
			elapsed = time.Since(t)
		}
		remaining := c3ToC2Delay - elapsed
		if remaining < 0 {
			remaining = 0
		}
		mem.SetTime(keyMotor3StartAt, time.Now().Add(remaining))
		return nil
	}
	return ladder.NewRule("MovingBothEntry", condition, action)
}

// buildMovingBothProgressRule mirrors the C3ToC2 two-stage stagger for the
// MOVING_BOTH path's MOTOR_3 start.
func buildMovingBothProgressRule() *ladder.Rule {
	const (
		stageNone = iota
		stageScheduleDelay
		stageStartMotor3
	)
	var stage int
	condition := func(f *iomap.Facade, mem *machmem.Memory) (bool, error) {
		stage = stageNone
		if mem.Mode() != machmem.ModeMovingBoth {
			return false, nil
		}
		now := time.Now()
		if t, ok := mem.GetTime(keyMotor3DelayAt); ok && !now.Before(t) {
			stage = stageStartMotor3
			return true, nil
		}
		if t, ok := mem.GetTime(keyMotor3StartAt); ok && !now.Before(t) {
			stage = stageScheduleDelay
			return true, nil
		}
		return false, nil
	}
	action := func(f *iomap.Facade, mem *machmem.Memory) error {
		switch stage {
		case stageScheduleDelay:
			mem.Pop(keyMotor3StartAt)
			mem.SetTime(keyMotor3DelayAt, time.Now().Add(motorStaggerDelay))
		case stageStartMotor3:
			f.Set(bg, "MOTOR_3", true)
			mem.Pop(keyMotor3DelayAt)
		}
		return nil
	}
	return ladder.NewRule("MovingBothProgress", condition, action)
}

// buildMovingBothExitRule: MOVING_BOTH -> READY once C3 is empty and a bin
// sits on C2 (S1 true, S2 false).
func buildMovingBothExitRule() *ladder.Rule {
	condition := func(f *iomap.Facade, mem *machmem.Memory) (bool, error) {
		if mem.Mode() != machmem.ModeMovingBoth {
			return false, nil
		}
		s1, _ := f.GetBool("S1")
		s2, _ := f.GetBool("S2")
		return s1 && !s2, nil
	}
	action := func(f *iomap.Facade, mem *machmem.Memory) error {
		mem.SetMode(machmem.ModeReady)
		motorsOff(f)
		mem.Pop(keyMotor3StartAt)
		mem.Pop(keyMotor3DelayAt)
		return nil
	}
	return ladder.NewRule("MovingBothExit", condition, action)
}

// buildC3TimerRule tracks how long a bin has waited on C3: the timer starts
// on S1's falling edge (bin arrives) and clears on its rising edge (bin
// leaves), independent of mode.
func buildC3TimerRule() *ladder.Rule {
	condition := func(*iomap.Facade, *machmem.Memory) (bool, error) { return true, nil }
	action := func(f *iomap.Facade, mem *machmem.Memory) error {
		if f.FallingEdge("S1", 0) {
			mem.SetTime(keyC3Timer, time.Now())
		}
		if f.RisingEdge("S1", 0) {
			mem.Pop(keyC3Timer)
		}
		return nil
	}
	return ladder.NewRule("C3Timer", condition, action)
}

// buildEstopTripRule: any mode -> ERROR_ESTOP, wiping memory, when E_Stop
// has held false for a full second (spec.md §4.5, P5).
func buildEstopTripRule(logger Logger) *ladder.Rule {
	condition := func(f *iomap.Facade, mem *machmem.Memory) (bool, error) {
		return f.ExtendedHold("E_Stop", false, estopHoldDuration), nil
	}
	action := func(f *iomap.Facade, mem *machmem.Memory) error {
		mem.Clear()
		mem.SetMode(machmem.ModeErrorEstop)
		motorsOff(f)
		if logger != nil {
			logger.Critical("E-Stop engaged")
		}
		return nil
	}
	return ladder.NewRule("EstopTrip", condition, action)
}

// buildEstopRecoverRule: ERROR_ESTOP -> unset once the operator confirms
// with E_Stop released and Manual_Select chosen.
func buildEstopRecoverRule() *ladder.Rule {
	condition := func(f *iomap.Facade, mem *machmem.Memory) (bool, error) {
		if mem.Mode() != machmem.ModeErrorEstop {
			return false, nil
		}
		estop, _ := f.GetBool("E_Stop")
		manual, _ := f.GetBool("Manual_Select")
		return estop && manual, nil
	}
	action := func(f *iomap.Facade, mem *machmem.Memory) error {
		mem.SetMode(machmem.ModeUnset)
		return nil
	}
	return ladder.NewRule("EstopRecover", condition, action)
}

// buildCommsHealthTripRule: any mode -> ERROR_COMMS on the comms-just-died
// edge; closes both transports once, not on every subsequent tick.
func buildCommsHealthTripRule(logger Logger, commsTimeout time.Duration) *ladder.Rule {
	condition := func(f *iomap.Facade, mem *machmem.Memory) (bool, error) {
		if mem.Mode() == machmem.ModeErrorComms {
			return false, nil
		}
		return !f.CheckCommsHealth(commsTimeout), nil
	}
	action := func(f *iomap.Facade, mem *machmem.Memory) error {
		mem.SetMode(machmem.ModeErrorComms)
		motorsOff(f)
		if err := f.Close(); err != nil && logger != nil {
			logger.Warning(fmt.Sprintf("error closing transports on comms failure: %v", err))
		}
		if logger != nil {
			logger.Critical("Communications failed, motors stopped")
		}
		return nil
	}
	return ladder.NewRule("CommsHealthTrip", condition, action)
}

// buildCommsAckRule: ERROR_COMMS -> ERROR_COMMS_ACK when the operator
// acknowledges with Manual_Select.
func buildCommsAckRule(logger Logger) *ladder.Rule {
	condition := func(f *iomap.Facade, mem *machmem.Memory) (bool, error) {
		if mem.Mode() != machmem.ModeErrorComms {
			return false, nil
		}
		manual, _ := f.GetBool("Manual_Select")
		return manual, nil
	}
	action := func(f *iomap.Facade, mem *machmem.Memory) error {
		mem.SetMode(machmem.ModeErrorCommsAck)
		if logger != nil {
			logger.Info("Comms failure acknowledged")
		}
		return nil
	}
	return ladder.NewRule("CommsAck", condition, action)
}

// buildCommsRecoverReadyRule: ERROR_COMMS_ACK -> READY once Auto_Select is
// chosen again and comms have actually recovered.
func buildCommsRecoverReadyRule(commsTimeout time.Duration) *ladder.Rule {
	condition := func(f *iomap.Facade, mem *machmem.Memory) (bool, error) {
		if mem.Mode() != machmem.ModeErrorCommsAck {
			return false, nil
		}
		auto, _ := f.GetBool("Auto_Select")
		return auto && f.CheckCommsHealth(commsTimeout), nil
	}
	action := func(f *iomap.Facade, mem *machmem.Memory) error {
		mem.SetMode(machmem.ModeReady)
		return nil
	}
	return ladder.NewRule("CommsRecoverReady", condition, action)
}

// buildCommsRecoverFailRule: ERROR_COMMS_ACK -> ERROR_COMMS if Auto_Select
// is chosen but comms are still unhealthy.
func buildCommsRecoverFailRule(commsTimeout time.Duration) *ladder.Rule {
	condition := func(f *iomap.Facade, mem *machmem.Memory) (bool, error) {
		if mem.Mode() != machmem.ModeErrorCommsAck {
			return false, nil
		}
		auto, _ := f.GetBool("Auto_Select")
		return auto && !f.CheckCommsHealth(commsTimeout), nil
	}
	action := func(f *iomap.Facade, mem *machmem.Memory) error {
		mem.SetMode(machmem.ModeErrorComms)
		return nil
	}
	return ladder.NewRule("CommsRecoverFail", condition, action)
}

// buildCrateMisalignmentRule drives LED_RED as its own rule rather than an
// inline side effect, per the supplemented feature in SPEC_FULL.md §4.5.
func buildCrateMisalignmentRule() *ladder.Rule {
	condition := func(*iomap.Facade, *machmem.Memory) (bool, error) { return true, nil }
	action := func(f *iomap.Facade, mem *machmem.Memory) error {
		cps1, _ := f.GetBool("CPS_1")
		cps2, _ := f.GetBool("CPS_2")
		f.Set(bg, "LED_RED", !(cps1 && cps2))
		return nil
	}
	return ladder.NewRule("CrateMisalignment", condition, action)
}

// buildCommsIndicatorRule drives LED_GREEN from comms health, writing only
// on change (spec.md §4.5), as its own rule for active_rule_names visibility.
func buildCommsIndicatorRule(commsTimeout time.Duration) *ladder.Rule {
	condition := func(*iomap.Facade, *machmem.Memory) (bool, error) { return true, nil }
	action := func(f *iomap.Facade, mem *machmem.Memory) error {
		healthy := f.CheckCommsHealth(commsTimeout)
		if last, ok := mem.GetBool(keyLedGreenObserved); !ok || last != healthy {
			f.Set(bg, "LED_GREEN", healthy)
			mem.SetBool(keyLedGreenObserved, healthy)
		}
		return nil
	}
	return ladder.NewRule("CommsIndicator", condition, action)
}
