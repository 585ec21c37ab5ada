// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package fbdev

import (
	"os"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

const fbioGetVScreenInfo = 0x4600

// varScreenInfo is struct fb_var_screeninfo from linux/fb.h.
type varScreenInfo struct {
	XRes, YRes               uint32
	XResVirtual, YResVirtual uint32
	XOffset, YOffset         uint32
	BitsPerPixel             uint32
	Grayscale                uint32
	Red, Green, Blue, Transp struct{ Offset, Length, MSBRight uint32 }
	NonStd                   uint32
	Activate                 uint32
	Height, Width            uint32
	AccelFlags               uint32
	Timings                  [11]uint32
	Reserved                 [4]uint32
}

// Open opens a framebuffer device like /dev/fb0 and maps its memory.
func Open(path string) (*Dev, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	var v varScreenInfo
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), fbioGetVScreenInfo, uintptr(unsafe.Pointer(&v))); errno != 0 {
		f.Close()
		return nil, errors.Wrapf(errno, "fbdev: %s: FBIOGET_VSCREENINFO", path)
	}
	g := Geometry{
		Width:        int(v.XRes),
		Height:       int(v.YRes),
		BitsPerPixel: int(v.BitsPerPixel),
		Stride:       int(v.XResVirtual * v.BitsPerPixel / 8),
		Red:          Bitfield{v.Red.Offset, v.Red.Length},
		Green:        Bitfield{v.Green.Offset, v.Green.Length},
		Blue:         Bitfield{v.Blue.Offset, v.Blue.Length},
		Alpha:        Bitfield{v.Transp.Offset, v.Transp.Length},
	}
	if err := g.validate(); err != nil {
		f.Close()
		return nil, err
	}
	mem, err := unix.Mmap(int(f.Fd()), 0, g.Stride*int(v.YResVirtual), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "fbdev: %s: mmap", path)
	}
	return New(&mapping{f: f, mem: mem}, g)
}

// mapping is the framebuffer memory.
type mapping struct {
	f   *os.File
	mem []byte
}

func (m *mapping) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 || off+int64(len(p)) > int64(len(m.mem)) {
		return 0, errors.New("out of bounds")
	}
	return copy(m.mem[off:], p), nil
}

func (m *mapping) Close() error {
	err := unix.Munmap(m.mem)
	if err2 := m.f.Close(); err == nil {
		err = err2
	}
	return err
}
