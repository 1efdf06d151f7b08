package design

import (
	"fmt"
	"strings"
)

// Type selects a biquad filter shape.
type Type int

// Filter shapes in control-code order.
const (
	Lowpass Type = iota
	Highpass
	Bandpass
	Notch
	Peaking
	LowShelf
	HighShelf
	Allpass
)

var typeNames = [...]string{
	Lowpass:   "lowpass",
	Highpass:  "highpass",
	Bandpass:  "bandpass",
	Notch:     "notch",
	Peaking:   "peaking",
	LowShelf:  "lowshelf",
	HighShelf: "highshelf",
	Allpass:   "allpass",
}

// TypeFromCode maps an integral control code to a Type. Codes outside
// 0..7 map to Peaking.
func TypeFromCode(code int) Type {
	if code < int(Lowpass) || code > int(Allpass) {
		return Peaking
	}
	return Type(code)
}

// Code returns the integral control code of t.
func (t Type) Code() int {
	return int(t)
}

// Valid reports whether t is one of the eight known shapes.
func (t Type) Valid() bool {
	return t >= Lowpass && t <= Allpass
}

// UsesGain reports whether the shape depends on a gain parameter.
func (t Type) UsesGain() bool {
	return t == Peaking || t == LowShelf || t == HighShelf
}

func (t Type) String() string {
	if !t.Valid() {
		return fmt.Sprintf("Type(%d)", int(t))
	}
	return typeNames[t]
}

// ParseType parses a shape name (case-insensitive; "peak", "bell",
// "low-shelf" and "high-shelf" are accepted aliases).
func ParseType(name string) (Type, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.ReplaceAll(n, "-", "")
	n = strings.ReplaceAll(n, "_", "")

	switch n {
	case "peak", "bell":
		return Peaking, nil
	case "lp":
		return Lowpass, nil
	case "hp":
		return Highpass, nil
	case "bp":
		return Bandpass, nil
	}

	for i, s := range typeNames {
		if s == n {
			return Type(i), nil
		}
	}

	return Peaking, fmt.Errorf("design: unknown filter type %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("design: invalid filter type %d", int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(b []byte) error {
	v, err := ParseType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}
