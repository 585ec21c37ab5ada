// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package mlx90640 reads frames from a Melexis MLX90640 32x24 thermal sensor
// over I²C.
//
// The sensor measures the pixels in two interleaved halves, called subpages,
// laid out as a chess board. Each read returns the most recent subpage, which
// is merged into the previous frame.
//
// Temperatures are derived from the raw counts with a single linear response
// for the whole array. The per-pixel EEPROM calibration is not applied.
//
// Datasheet
//
// https://www.melexis.com/en/documents/documentation/datasheets/datasheet-mlx90640
package mlx90640

import (
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/maruel/go-thermcam/thermal"
	"github.com/pkg/errors"
	"periph.io/x/periph/conn/i2c"
	"periph.io/x/periph/conn/physic"
)

// Addr is the default I²C address of the sensor.
const Addr = 0x33

// Registers.
const (
	regStatus  uint16 = 0x8000
	regControl uint16 = 0x800D
	regRAM     uint16 = 0x0400
	regID      uint16 = 0x2407
)

// Status register bits.
const (
	statusSubpageMask = 0x7
	statusNewData     = 0x8
)

// Control register refresh rate field.
const (
	refreshShift = 7
	refreshMask  = 0x7 << refreshShift
)

// refreshRates are the valid values of the control register refresh rate
// field, by code.
var refreshRates = []physic.Frequency{
	500 * physic.MilliHertz,
	physic.Hertz,
	2 * physic.Hertz,
	4 * physic.Hertz,
	8 * physic.Hertz,
	16 * physic.Hertz,
	32 * physic.Hertz,
	64 * physic.Hertz,
}

// Period returns the time between two subpages at refresh rate f. It returns
// 0 for a non-positive rate.
func Period(f physic.Frequency) time.Duration {
	if f <= 0 {
		return 0
	}
	return time.Duration(int64(physic.Hertz) * int64(time.Second) / int64(f))
}

// Default linear response, approximating a sensor at room temperature.
const (
	DefaultGain   = 0.02
	DefaultOffset = 25.
)

// transientError is an error expected to clear on the next read.
type transientError string

func (t transientError) Error() string {
	return string(t)
}

// Transient returns true.
func (t transientError) Transient() bool {
	return true
}

// Errors returned by Dev.Acquire that are expected to clear on the next read.
var (
	// ErrNotReady means no new subpage was measured since the last read.
	ErrNotReady error = transientError("mlx90640: no new data")
	// ErrIncomplete means a single subpage was read so far.
	ErrIncomplete error = transientError("mlx90640: frame incomplete")
)

// Opts is the device configuration.
type Opts struct {
	// RefreshRate is the subpage measurement rate. It must be one of the
	// sensor's supported rates, from 0.5Hz to 64Hz. Defaults to 8Hz.
	RefreshRate physic.Frequency
	// Gain and Offset convert a raw count to °C. Both default to the
	// package's defaults when zero.
	Gain   float64
	Offset float64
}

// DefaultOpts is the recommended configuration.
var DefaultOpts = Opts{
	RefreshRate: 8 * physic.Hertz,
	Gain:        DefaultGain,
	Offset:      DefaultOffset,
}

// Dev is a handle to a MLX90640.
type Dev struct {
	c      i2c.Dev
	gain   float64
	offset float64

	mu   sync.Mutex
	buf  [2 * thermal.Rows * thermal.Cols]byte
	pix  thermal.Frame
	seen [2]bool
}

// New opens a handle to the sensor and sets its refresh rate.
func New(b i2c.Bus, opts *Opts) (*Dev, error) {
	o := *opts
	if o.RefreshRate == 0 {
		o.RefreshRate = DefaultOpts.RefreshRate
	}
	if o.Gain == 0 {
		o.Gain = DefaultOpts.Gain
	}
	if o.Offset == 0 {
		o.Offset = DefaultOpts.Offset
	}
	d := &Dev{c: i2c.Dev{Bus: b, Addr: Addr}, gain: o.Gain, offset: o.Offset}
	if err := d.SetRefreshRate(o.RefreshRate); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Dev) String() string {
	return fmt.Sprintf("MLX90640{%s}", d.c.String())
}

// Halt implements conn.Resource. The sensor keeps measuring in the
// background; there is nothing to stop.
func (d *Dev) Halt() error {
	return nil
}

// Acquire merges the most recent subpage into f.
//
// It returns ErrNotReady when no new subpage is available and ErrIncomplete
// until both subpages were read once. Both are transient. Any other error is
// a bus failure. f is only modified on success.
func (d *Dev) Acquire(f *thermal.Frame) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	status, err := d.readReg(regStatus)
	if err != nil {
		return errors.Wrap(err, "mlx90640: read status")
	}
	if status&statusNewData == 0 {
		return ErrNotReady
	}
	subpage := int(status & statusSubpageMask)
	if subpage > 1 {
		return fmt.Errorf("mlx90640: invalid subpage %d", subpage)
	}
	raw := d.buf[:]
	if err := d.readBlock(regRAM, raw); err != nil {
		return errors.Wrap(err, "mlx90640: read RAM")
	}
	if err := d.writeReg(regStatus, status&^statusNewData); err != nil {
		return errors.Wrap(err, "mlx90640: clear status")
	}
	for i := range d.pix.Pix {
		if chess(i) != subpage {
			continue
		}
		v := int16(binary.BigEndian.Uint16(raw[2*i:]))
		d.pix.Pix[i] = d.gain*float64(v) + d.offset
	}
	d.seen[subpage] = true
	if !d.seen[0] || !d.seen[1] {
		return ErrIncomplete
	}
	*f = d.pix
	return nil
}

// RefreshRate returns the current subpage measurement rate.
func (d *Dev) RefreshRate() (physic.Frequency, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, err := d.readReg(regControl)
	if err != nil {
		return 0, errors.Wrap(err, "mlx90640: read control")
	}
	return refreshRates[(v&refreshMask)>>refreshShift], nil
}

// SetRefreshRate changes the subpage measurement rate.
func (d *Dev) SetRefreshRate(f physic.Frequency) error {
	code := -1
	for i, r := range refreshRates {
		if r == f {
			code = i
			break
		}
	}
	if code == -1 {
		return fmt.Errorf("mlx90640: unsupported refresh rate %s", f)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	v, err := d.readReg(regControl)
	if err != nil {
		return errors.Wrap(err, "mlx90640: read control")
	}
	v = v&^refreshMask | uint16(code)<<refreshShift
	return errors.Wrap(d.writeReg(regControl, v), "mlx90640: write control")
}

// SerialNumber returns the 48 bits device ID stored in EEPROM.
func (d *Dev) SerialNumber() (uint64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var b [6]byte
	if err := d.readBlock(regID, b[:]); err != nil {
		return 0, errors.Wrap(err, "mlx90640: read ID")
	}
	return uint64(b[0])<<40 | uint64(b[1])<<32 | uint64(b[2])<<24 | uint64(b[3])<<16 | uint64(b[4])<<8 | uint64(b[5]), nil
}

// Subpages returns which subpages were read so far.
func (d *Dev) Subpages() [2]bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.seen
}

//

// chess returns the subpage measuring the pixel at index i.
func chess(i int) int {
	return (i/thermal.Cols + i%thermal.Cols) & 1
}

// readBlock reads len(b) bytes starting at the 16 bits address reg.
func (d *Dev) readBlock(reg uint16, b []byte) error {
	return d.c.Tx([]byte{byte(reg >> 8), byte(reg)}, b)
}

func (d *Dev) readReg(reg uint16) (uint16, error) {
	var r [2]byte
	if err := d.readBlock(reg, r[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(r[:]), nil
}

func (d *Dev) writeReg(reg, v uint16) error {
	return d.c.Tx([]byte{byte(reg >> 8), byte(reg), byte(v >> 8), byte(v)}, nil)
}
