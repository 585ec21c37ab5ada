// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package thermal holds a raw thermal sensor frame and converts it to an 8
// bits intensity image.
package thermal

import (
	"image"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Sensor geometry of a MLX90640.
const (
	Rows = 24
	Cols = 32
)

// Frame is one sensor read, in °C, row-major.
//
// The length is fixed; a failed acquisition is represented by a zeroed frame,
// never by a partial one.
type Frame struct {
	Pix [Rows * Cols]float64
}

// Range is the minimum and maximum temperature of a frame.
type Range struct {
	Min float64
	Max float64
}

// Bounds returns the sensor geometry.
func (f *Frame) Bounds() image.Rectangle {
	return image.Rect(0, 0, Cols, Rows)
}

// At returns the temperature at the pixel.
func (f *Frame) At(x, y int) float64 {
	return f.Pix[y*Cols+x]
}

// Reset zeroes the whole frame.
func (f *Frame) Reset() {
	*f = Frame{}
}

// Sanitize replaces non-finite readings with 0. It returns the number of
// readings replaced.
func (f *Frame) Sanitize() int {
	n := 0
	for i, v := range f.Pix {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			f.Pix[i] = 0
			n++
		}
	}
	return n
}

// Range returns the temperature range of the frame.
//
// Sanitize must be called first.
func (f *Frame) Range() Range {
	return Range{Min: floats.Min(f.Pix[:]), Max: floats.Max(f.Pix[:])}
}

// Mean returns the average temperature of the whole field of view.
func (f *Frame) Mean() float64 {
	return stat.Mean(f.Pix[:], nil)
}

// Equal returns true if both frames contain the same readings.
func (f *Frame) Equal(r *Frame) bool {
	return f.Pix == r.Pix
}

// AGC reduces the dynamic range of the frame down to 8 bits, linearly
// between r.Min and r.Max.
//
// A uniform frame, where r.Min == r.Max, maps to 0.
func (f *Frame) AGC(dst *image.Gray, r Range) {
	delta := r.Max - r.Min
	for y := 0; y < Rows; y++ {
		for x := 0; x < Cols; x++ {
			v := uint8(0)
			if delta > 0 {
				v = intensity((f.Pix[y*Cols+x] - r.Min) * 255 / delta)
			}
			dst.Pix[y*dst.Stride+x] = v
		}
	}
}

// NewIntensity returns an intensity image sized for a frame.
func NewIntensity() *image.Gray {
	return image.NewGray(image.Rect(0, 0, Cols, Rows))
}

func intensity(v float64) uint8 {
	if !(v > 0) {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(math.Round(v))
}
