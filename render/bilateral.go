// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package render

import (
	"image"
	"math"
)

// Bilateral is an edge preserving smoothing filter.
type Bilateral struct {
	Diameter   int     // Window diameter in pixels.
	SigmaColor float64 // Larger values mix colors further apart.
	SigmaSpace float64 // Larger values mix pixels further apart.

	offsets []image.Point
	space   []float32
	color   [3*255 + 1]float32
}

// NewBilateral returns the filter used for noise smoothing: 15px window,
// sigma 80 for both color and space.
func NewBilateral() *Bilateral {
	b := &Bilateral{Diameter: 15, SigmaColor: 80, SigmaSpace: 80}
	b.init()
	return b
}

func (b *Bilateral) init() {
	radius := b.Diameter / 2
	if radius < 1 {
		radius = 1
	}
	cc := -0.5 / (b.SigmaColor * b.SigmaColor)
	sc := -0.5 / (b.SigmaSpace * b.SigmaSpace)
	b.offsets = b.offsets[:0]
	b.space = b.space[:0]
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			r := math.Sqrt(float64(dx*dx + dy*dy))
			if r > float64(radius) {
				continue
			}
			b.offsets = append(b.offsets, image.Point{dx, dy})
			b.space = append(b.space, float32(math.Exp(r*r*sc)))
		}
	}
	for i := range b.color {
		b.color[i] = float32(math.Exp(float64(i*i) * cc))
	}
}

// Apply returns a filtered copy of src. Alpha is copied as is.
func (b *Bilateral) Apply(src *image.RGBA) *image.RGBA {
	if b.offsets == nil {
		b.init()
	}
	r := src.Rect
	dst := image.NewRGBA(r)
	w, h := r.Dx(), r.Dy()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := src.Pix[y*src.Stride+4*x:]
			r0, g0, b0 := int(c[0]), int(c[1]), int(c[2])
			var sr, sg, sb, sw float32
			for k, o := range b.offsets {
				n := src.Pix[reflect101(y+o.Y, h)*src.Stride+4*reflect101(x+o.X, w):]
				r1, g1, b1 := int(n[0]), int(n[1]), int(n[2])
				wt := b.space[k] * b.color[abs(r1-r0)+abs(g1-g0)+abs(b1-b0)]
				sr += wt * float32(r1)
				sg += wt * float32(g1)
				sb += wt * float32(b1)
				sw += wt
			}
			d := dst.Pix[y*dst.Stride+4*x:]
			d[0] = uint8(sr/sw + 0.5)
			d[1] = uint8(sg/sw + 0.5)
			d[2] = uint8(sb/sw + 0.5)
			d[3] = c[3]
		}
	}
	return dst
}

// reflect101 mirrors out of range coordinates without repeating the edge
// pixel.
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*n - 2 - i
		}
	}
	return i
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
