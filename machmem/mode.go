// Package machmem implements the persistent machine memory that carries
// mode and timers across scans (spec.md §3, Design Note 1): a typed
// key/value bag rather than the source's dynamically-typed dict, with the
// reserved "_MODE" key modeled as a dedicated enum instead of a bare string.
package machmem

// Mode is the feeder's operational mode, spec.md §3/§4.5.
type Mode int

const (
	// ModeUnset is the zero value: memory has never had a mode set, or was
	// just cleared (e.g. by the emergency-stop rule).
	ModeUnset Mode = iota
	ModeReady
	ModeManual
	ModeMovingC3ToC2
	ModeMovingBoth
	ModeMovingC2ToPalm
	ModeErrorSafety
	ModeErrorComms
	ModeErrorCommsAck
	ModeErrorEstop
)

func (m Mode) String() string {
	switch m {
	case ModeReady:
		return "READY"
	case ModeManual:
		return "MANUAL"
	case ModeMovingC3ToC2:
		return "MOVING_C3_TO_C2"
	case ModeMovingBoth:
		return "MOVING_BOTH"
	case ModeMovingC2ToPalm:
		return "MOVING_C2_TO_PALM"
	case ModeErrorSafety:
		return "ERROR_SAFETY"
	case ModeErrorComms:
		return "ERROR_COMMS"
	case ModeErrorCommsAck:
		return "ERROR_COMMS_ACK"
	case ModeErrorEstop:
		return "ERROR_ESTOP"
	default:
		return "UNSET"
	}
}
