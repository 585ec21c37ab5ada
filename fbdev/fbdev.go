// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package fbdev shows images on a Linux framebuffer device.
//
// Images are centered on the screen and cropped when larger than it.
package fbdev

import (
	"fmt"
	"image"
	"io"

	"github.com/pkg/errors"
)

// Bitfield is the location of a color channel in a pixel.
type Bitfield struct {
	Offset uint32
	Length uint32
}

// Geometry is the framebuffer memory layout.
type Geometry struct {
	Width        int // Visible pixels.
	Height       int
	BitsPerPixel int // 16 or 32.
	Stride       int // Bytes per line.
	Red          Bitfield
	Green        Bitfield
	Blue         Bitfield
	Alpha        Bitfield
}

// RGB565 returns the usual layout of a 16 bits small LCD.
func RGB565(w, h int) Geometry {
	return Geometry{
		Width:        w,
		Height:       h,
		BitsPerPixel: 16,
		Stride:       2 * w,
		Red:          Bitfield{11, 5},
		Green:        Bitfield{5, 6},
		Blue:         Bitfield{0, 5},
	}
}

// XRGB8888 returns the usual layout of a 32 bits display.
func XRGB8888(w, h int) Geometry {
	return Geometry{
		Width:        w,
		Height:       h,
		BitsPerPixel: 32,
		Stride:       4 * w,
		Red:          Bitfield{16, 8},
		Green:        Bitfield{8, 8},
		Blue:         Bitfield{0, 8},
	}
}

func (g *Geometry) validate() error {
	if g.Width <= 0 || g.Height <= 0 {
		return fmt.Errorf("fbdev: invalid size %dx%d", g.Width, g.Height)
	}
	if g.BitsPerPixel != 16 && g.BitsPerPixel != 32 {
		return fmt.Errorf("fbdev: unsupported %d bits per pixel", g.BitsPerPixel)
	}
	if g.Stride < g.Width*g.BitsPerPixel/8 {
		return fmt.Errorf("fbdev: stride %d too small", g.Stride)
	}
	for _, b := range []Bitfield{g.Red, g.Green, g.Blue, g.Alpha} {
		if b.Length > 8 || b.Offset+b.Length > uint32(g.BitsPerPixel) {
			return fmt.Errorf("fbdev: invalid bitfield %+v", b)
		}
	}
	return nil
}

// Dev is an open framebuffer.
type Dev struct {
	g    Geometry
	w    io.WriterAt
	c    io.Closer
	line []byte
}

// New returns a Dev writing to w with the layout g. If w implements
// io.Closer, it is closed by Close.
func New(w io.WriterAt, g Geometry) (*Dev, error) {
	if err := g.validate(); err != nil {
		return nil, err
	}
	d := &Dev{g: g, w: w, line: make([]byte, g.Stride)}
	if c, ok := w.(io.Closer); ok {
		d.c = c
	}
	return d, nil
}

func (d *Dev) String() string {
	return fmt.Sprintf("fbdev{%dx%d %dbpp}", d.g.Width, d.g.Height, d.g.BitsPerPixel)
}

// Geometry returns the framebuffer layout.
func (d *Dev) Geometry() Geometry {
	return d.g
}

// Bounds returns the visible area.
func (d *Dev) Bounds() image.Rectangle {
	return image.Rect(0, 0, d.g.Width, d.g.Height)
}

// Show draws img centered on the screen. It implements camera.Display.
func (d *Dev) Show(img *image.RGBA) error {
	sw, sh := img.Rect.Dx(), img.Rect.Dy()
	w, h := min(sw, d.g.Width), min(sh, d.g.Height)
	dstX, dstY := (d.g.Width-w)/2, (d.g.Height-h)/2
	srcX, srcY := img.Rect.Min.X+(sw-w)/2, img.Rect.Min.Y+(sh-h)/2
	bpp := d.g.BitsPerPixel / 8
	line := d.line[:w*bpp]
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := img.PixOffset(srcX+x, srcY+y)
			p := img.Pix[i : i+4 : i+4]
			d.put(line[x*bpp:], p[0], p[1], p[2])
		}
		if _, err := d.w.WriteAt(line, int64((dstY+y)*d.g.Stride+dstX*bpp)); err != nil {
			return errors.Wrap(err, "fbdev: write")
		}
	}
	return nil
}

// Clear blanks the whole screen.
func (d *Dev) Clear() error {
	bpp := d.g.BitsPerPixel / 8
	line := d.line[:d.g.Width*bpp]
	for x := 0; x < d.g.Width; x++ {
		d.put(line[x*bpp:], 0, 0, 0)
	}
	for y := 0; y < d.g.Height; y++ {
		if _, err := d.w.WriteAt(line, int64(y*d.g.Stride)); err != nil {
			return errors.Wrap(err, "fbdev: write")
		}
	}
	return nil
}

// Close releases the device.
func (d *Dev) Close() error {
	if d.c == nil {
		return nil
	}
	err := d.c.Close()
	d.c = nil
	return err
}

//

// put packs a pixel in little endian.
func (d *Dev) put(dst []byte, r, g, b uint8) {
	v := channel(r, d.g.Red) | channel(g, d.g.Green) | channel(b, d.g.Blue) | channel(0xFF, d.g.Alpha)
	dst[0] = byte(v)
	dst[1] = byte(v >> 8)
	if d.g.BitsPerPixel == 32 {
		dst[2] = byte(v >> 16)
		dst[3] = byte(v >> 24)
	}
}

func channel(v uint8, b Bitfield) uint32 {
	if b.Length == 0 {
		return 0
	}
	return uint32(v>>(8-b.Length)) << b.Offset
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
