// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package palette

import "math"

// Colormap definitions, in R, G, B in [0, 1].

func rainbow(x float64) (float64, float64, float64) {
	return math.Abs(2*x - 0.5), math.Sin(math.Pi * x), math.Cos(math.Pi / 2 * x)
}

func gnuplot2(x float64) (float64, float64, float64) {
	var b float64
	switch {
	case x < 0.25:
		b = 4 * x
	case x < 0.42:
		b = 1
	case x < 0.92:
		b = -2*x + 1.84
	default:
		b = x/0.08 - 11.5
	}
	return x/0.32 - 0.78125, 2*x - 0.84, b
}

var (
	jetR = []point{{0, 0}, {0.35, 0}, {0.66, 1}, {0.89, 1}, {1, 0.5}}
	jetG = []point{{0, 0}, {0.125, 0}, {0.375, 1}, {0.64, 1}, {0.91, 0}, {1, 0}}
	jetB = []point{{0, 0.5}, {0.11, 1}, {0.34, 1}, {0.65, 0}, {1, 0}}
)

var bwr = [][3]float64{
	{0, 0, 1},
	{1, 1, 1},
	{1, 0, 0},
}

var seismic = [][3]float64{
	{0, 0, 0.3},
	{0, 0, 1},
	{1, 1, 1},
	{1, 0, 0},
	{0.5, 0, 0},
}

var brg = [][3]float64{
	{0, 0, 1},
	{1, 0, 0},
	{0, 1, 0},
}

var tab10 = hexStops(
	0x1f77b4, 0xff7f0e, 0x2ca02c, 0xd62728, 0x9467bd,
	0x8c564b, 0xe377c2, 0x7f7f7f, 0xbcbd22, 0x17becf,
)

var tab20 = hexStops(
	0x1f77b4, 0xaec7e8, 0xff7f0e, 0xffbb78, 0x2ca02c,
	0x98df8a, 0xd62728, 0xff9896, 0x9467bd, 0xc5b0d5,
	0x8c564b, 0xc49c94, 0xe377c2, 0xf7b6d2, 0x7f7f7f,
	0xc7c7c7, 0xbcbd22, 0xdbdb8d, 0x17becf, 0x9edae5,
)

func hexStops(v ...uint32) [][3]float64 {
	out := make([][3]float64, len(v))
	for i, c := range v {
		out[i] = [3]float64{float64(c>>16&0xff) / 255, float64(c>>8&0xff) / 255, float64(c&0xff) / 255}
	}
	return out
}
