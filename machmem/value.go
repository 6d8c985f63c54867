package machmem

import "time"

// Kind discriminates the tagged union stored per memory key.
type Kind int

const (
	KindNone Kind = iota
	KindBool
	KindInt
	KindFloat
	KindTime
	KindMode
)

// Value is a single memory slot: a tagged union over the types rules
// actually need (booleans for latches, ints/floats for counters, time.Time
// for the scheduled-timestamp pattern of Design Note 3, and Mode for the
// reserved "_MODE" key).
type Value struct {
	Kind  Kind
	Bool  bool
	Int   int
	Float float64
	Time  time.Time
	Mode  Mode
}

func BoolValue(b bool) Value   { return Value{Kind: KindBool, Bool: b} }
func IntValue(i int) Value     { return Value{Kind: KindInt, Int: i} }
func FloatValue(f float64) Value { return Value{Kind: KindFloat, Float: f} }
func TimeValue(t time.Time) Value { return Value{Kind: KindTime, Time: t} }
func ModeValue(m Mode) Value   { return Value{Kind: KindMode, Mode: m} }
