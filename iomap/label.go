// Package iomap implements the symbolic label→address facade over the two
// Modbus terminals (spec.md §3/§4.1), plus the temporal-signal queries
// exposed through it (§4.4).
package iomap

import "fmt"

// Device identifies which of the two remote terminals a slot lives on.
type Device int

const (
	DeviceInput Device = iota
	DeviceOutput
)

func (d Device) String() string {
	if d == DeviceOutput {
		return "OUTPUT"
	}
	return "INPUT"
}

// Kind identifies whether a slot is a single-bit coil or a 16-bit register.
type Kind int

const (
	KindCoil Kind = iota
	KindRegister
)

// Slot is one entry of the static label map: spec.md §3 "Label map".
type Slot struct {
	Device  Device
	Kind    Kind
	Address int
	Label   string
}

// LabelMap is the immutable, case-insensitive label→slot index (spec.md §3,
// invariant I5: a label resolves in exactly one (device, kind) slot).
type LabelMap struct {
	slots   []Slot
	byLabel map[string]Slot
}

// NewLabelMap validates and builds a LabelMap. Duplicate labels (compared
// case-insensitively) are a configuration error, fatal at startup per
// spec.md §8.
func NewLabelMap(slots []Slot) (*LabelMap, error) {
	byLabel := make(map[string]Slot, len(slots))
	for _, s := range slots {
		key := normalizeLabel(s.Label)
		if _, dup := byLabel[key]; dup {
			return nil, fmt.Errorf("iomap: duplicate label %q", s.Label)
		}
		byLabel[key] = s
	}
	return &LabelMap{slots: append([]Slot(nil), slots...), byLabel: byLabel}, nil
}

func normalizeLabel(label string) string {
	out := make([]byte, len(label))
	for i := 0; i < len(label); i++ {
		c := label[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}

// Resolve looks a label up regardless of which device it lives on.
func (lm *LabelMap) Resolve(label string) (Slot, bool) {
	s, ok := lm.byLabel[normalizeLabel(label)]
	return s, ok
}

// ResolveDevice resolves a label, additionally requiring it to live on the
// given device.
func (lm *LabelMap) ResolveDevice(device Device, label string) (Slot, bool) {
	s, ok := lm.Resolve(label)
	if !ok || s.Device != device {
		return Slot{}, false
	}
	return s, true
}

// Labels returns every slot for the given device/kind, in the order the
// slots were given to NewLabelMap (address order for DefaultLabelMap).
func (lm *LabelMap) Labels(device Device, kind Kind) []Slot {
	var out []Slot
	for _, s := range lm.slots {
		if s.Device == device && s.Kind == kind {
			out = append(out, s)
		}
	}
	return out
}

// Range returns the contiguous (start, count) address span covering every
// slot of the given device/kind, so a single Modbus request can fetch them
// all (spec.md §4.1 get_all).
func (lm *LabelMap) Range(device Device, kind Kind) (start, count int) {
	slots := lm.Labels(device, kind)
	if len(slots) == 0 {
		return 0, 0
	}
	lo, hi := slots[0].Address, slots[0].Address
	for _, s := range slots[1:] {
		if s.Address < lo {
			lo = s.Address
		}
		if s.Address > hi {
			hi = s.Address
		}
	}
	return lo, hi - lo + 1
}

// DefaultLabelMap is the feeder's fixed label table, spec.md §6, bit-exact:
// INPUT coils 0..15, OUTPUT coils 0..3, OUTPUT holding register 0.
func DefaultLabelMap() *LabelMap {
	inputCoils := []string{
		"S1", "S2", "CS1", "CS2", "CS3", "M1_Trip", "M2_Trip", "E_Stop",
		"Manual_Select", "Auto_Select", "Klaar_Geweeg_Btn", "CPS_1", "CPS_2",
		"Reset_Btn", "PALM_Run_Signal", "DHLM_Trip_Signal",
	}
	outputCoils := []string{"LED_GREEN", "MOTOR_2", "MOTOR_3", "LED_RED"}

	var slots []Slot
	for addr, label := range inputCoils {
		slots = append(slots, Slot{Device: DeviceInput, Kind: KindCoil, Address: addr, Label: label})
	}
	for addr, label := range outputCoils {
		slots = append(slots, Slot{Device: DeviceOutput, Kind: KindCoil, Address: addr, Label: label})
	}
	slots = append(slots, Slot{Device: DeviceOutput, Kind: KindRegister, Address: 0, Label: "VERSION"})

	lm, err := NewLabelMap(slots)
	if err != nil {
		// The fixed table above is a compile-time constant with no
		// duplicates; a failure here means the table itself was edited
		// incorrectly, which is a programmer error, not a runtime one.
		panic(err)
	}
	return lm
}
