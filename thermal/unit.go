// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package thermal

import "fmt"

// Unit is the unit temperatures are displayed in. Frames are always in °C.
type Unit uint8

// Valid values for Unit.
const (
	Celsius    Unit = 0
	Fahrenheit Unit = 1
)

// CToF converts °C to °F.
func CToF(c float64) float64 {
	return 9.0/5.0*c + 32.0
}

// Convert converts a temperature in °C to the unit.
func (u Unit) Convert(c float64) float64 {
	if u == Fahrenheit {
		return CToF(c)
	}
	return c
}

// Suffix is the one letter suffix used when printing a temperature.
func (u Unit) Suffix() string {
	if u == Fahrenheit {
		return "F"
	}
	return "C"
}

// Format prints a temperature in °C in the unit, with an explicit sign.
func (u Unit) Format(c float64) string {
	return fmt.Sprintf("%+.1f%s", u.Convert(c), u.Suffix())
}

func (u Unit) String() string {
	if u == Fahrenheit {
		return "Fahrenheit"
	}
	return "Celsius"
}
