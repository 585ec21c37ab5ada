// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package camera drives the thermal camera frame pipeline.
//
// It reads a raw frame from a Source, normalizes it, colorizes and upscales
// it, optionally smooths it and overlays the status line. The resulting image
// is cached until a new frame is acquired or a setting changes.
//
// A Camera is meant to be used from a single goroutine: the one pumping UI
// events and rendering frames. It has no locks.
package camera

import (
	"fmt"
	"image"
	"image/draw"
	"log"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/maruel/go-thermcam/palette"
	"github.com/maruel/go-thermcam/render"
	"github.com/maruel/go-thermcam/snapshot"
	"github.com/maruel/go-thermcam/thermal"
	"github.com/pkg/errors"
)

// SavedNotice is how long the snapshot confirmation stays on screen.
const SavedNotice = time.Second

// RetryInterval is the delay before reading again after a transient fault.
const RetryInterval = 5 * time.Millisecond

// MaxTransientRetries is the minimum number of in-place retries of transient
// sensor faults.
const MaxTransientRetries = 64

// NewRetry returns the transient fault retry policy for a sensor producing a
// reading every period.
//
// Retries last at least 2.5 periods, enough for a sensor to measure a full
// frame of two subpages, and never less than MaxTransientRetries.
func NewRetry(period time.Duration) backoff.BackOff {
	n := uint64(MaxTransientRetries)
	if m := uint64(period * 5 / 2 / RetryInterval); m > n {
		n = m
	}
	return backoff.WithMaxRetries(backoff.NewConstantBackOff(RetryInterval), n)
}

// Source yields raw frames.
//
// Errors implementing Transient() bool and returning true are retried in
// place. Any other error is a hard fault.
type Source interface {
	Acquire(f *thermal.Frame) error
}

// Renderer converts an intensity image to a color image at display
// resolution. *render.Renderer implements it.
type Renderer interface {
	Render(src *image.Gray, o render.Options) (*image.RGBA, error)
}

// Stats counts frames and faults.
type Stats struct {
	LastFail          error
	Frames            int // Frames acquired.
	Rendered          int // Frames run through the pipeline.
	TransientFaults   int
	HardFaults        int
	NonFinite         int // Readings replaced with 0.
	ProcessingFaults  int
	PersistenceFaults int
	Snapshots         int
}

// Options configures a Camera.
type Options struct {
	Width  int // Display resolution.
	Height int
	State  State // Initial presentation state.

	// Recorder names and encodes snapshots. Sink defaults to Recorder.
	Recorder *snapshot.Recorder
	Sink     snapshot.Sink

	// Period is the time between two sensor readings. It sizes the transient
	// fault retry budget when Retry is nil.
	Period time.Duration

	// Stop is checked between frames and commands. Once it returns true, the
	// camera stops running as if RequestQuit was called.
	Stop func() bool

	// Optional overrides, mostly for testing.
	Renderer Renderer
	Retry    backoff.BackOff
	Now      func() time.Time
}

// Camera is the pipeline controller. It owns the presentation state, the
// current raw frame and the current image.
type Camera struct {
	src      Source
	renderer Renderer
	recorder *snapshot.Recorder
	sink     snapshot.Sink
	retry    backoff.BackOff
	now      func() time.Time
	stop     func() bool
	width    int
	height   int

	state     State
	raw       thermal.Frame
	rng       thermal.Range
	intensity *image.Gray
	base      *image.RGBA   // Last successful render, without overlay.
	img       *image.RGBA   // base with overlay.
	status    render.Status // Status line of the last annotated frame.
	texts     []render.Text
	message   string
	quit      bool
	stats     Stats
}

// New returns a Camera reading from src.
func New(src Source, opts *Options) (*Camera, error) {
	if src == nil {
		return nil, errors.New("camera: no source")
	}
	o := *opts
	if o.Width == 0 && o.Height == 0 {
		o.Width, o.Height = render.DefaultWidth, render.DefaultHeight
	}
	if o.State.Palette < 0 || o.State.Palette >= palette.Len() {
		return nil, fmt.Errorf("camera: palette %d out of range", o.State.Palette)
	}
	if o.State.Interpolation < 0 || o.State.Interpolation >= len(render.Interpolations) {
		return nil, fmt.Errorf("camera: interpolation %d out of range", o.State.Interpolation)
	}
	if o.Renderer == nil {
		r, err := render.New(o.Width, o.Height)
		if err != nil {
			return nil, err
		}
		o.Renderer = r
	}
	if o.Recorder == nil {
		o.Recorder = &snapshot.Recorder{Root: "."}
	}
	if o.Sink == nil {
		o.Sink = o.Recorder
	}
	if o.Retry == nil {
		o.Retry = NewRetry(o.Period)
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	c := &Camera{
		src:       src,
		renderer:  o.Renderer,
		recorder:  o.Recorder,
		sink:      o.Sink,
		retry:     o.Retry,
		now:       o.Now,
		stop:      o.Stop,
		width:     o.Width,
		height:    o.Height,
		state:     o.State,
		intensity: thermal.NewIntensity(),
	}
	c.state.Phase = RawOnly
	return c, nil
}

// Acquire reads a new raw frame and marks the image as out of date.
//
// Transient faults are retried in place a bounded number of times. Hard
// faults and exhausted retries are logged and yield a zeroed frame.
func (c *Camera) Acquire() {
	c.stats.Frames++
	err := backoff.Retry(func() error {
		err := c.src.Acquire(&c.raw)
		if err == nil {
			return nil
		}
		if IsTransient(err) {
			c.stats.TransientFaults++
			return err
		}
		return backoff.Permanent(&Error{Fault: HardSensorFault, Err: err})
	}, c.retry)
	if err != nil {
		if _, ok := FaultOf(err); !ok {
			err = &Error{Fault: HardSensorFault, Err: errors.Wrap(err, "too many transient faults")}
		}
		c.stats.HardFaults++
		c.stats.LastFail = err
		log.Printf("ERROR: sensor: %s; continuing with a zeroed frame", err)
		c.raw.Reset()
	}
	if n := c.raw.Sanitize(); n != 0 {
		c.stats.NonFinite += n
		log.Printf("INFO: sensor: replaced %d non-finite readings", n)
	}
	c.rng = c.raw.Range()
	c.raw.AGC(c.intensity, c.rng)
	c.state.Phase = RawOnly
}

// CurrentImage returns the image for the current raw frame.
//
// When the cached image is up to date, it is returned without running the
// pipeline. The returned image is a copy the caller may keep or modify.
func (c *Camera) CurrentImage() *image.RGBA {
	if c.state.Phase == RawOnly {
		c.process()
		c.annotate()
		c.state.Phase = Rendered
	}
	return clone(c.img)
}

// RenderNextFrame acquires a new raw frame and returns its image.
func (c *Camera) RenderNextFrame() *image.RGBA {
	c.Acquire()
	return c.CurrentImage()
}

// Raw returns a copy of the current raw frame, in °C.
func (c *Camera) Raw() thermal.Frame {
	return c.raw
}

// Range returns the temperature range of the current raw frame, in °C.
func (c *Camera) Range() thermal.Range {
	return c.rng
}

// Texts returns the strings drawn on the current image.
func (c *Camera) Texts() []string {
	out := make([]string, len(c.texts))
	for i, t := range c.texts {
		out[i] = t.S
	}
	return out
}

// Stats returns the frame and fault counters.
func (c *Camera) Stats() Stats {
	return c.stats
}

// RequestSnapshot saves the current image. On success, a confirmation is
// shown for SavedNotice.
func (c *Camera) RequestSnapshot() error {
	img := c.CurrentImage()
	now := c.now()
	path := c.recorder.Path(now)
	data, err := c.recorder.Encode(img)
	if err == nil {
		err = c.sink.Save(path, data)
	}
	if err != nil {
		c.stats.PersistenceFaults++
		c.stats.LastFail = err
		log.Printf("ERROR: snapshot: %s", err)
		return &Error{Fault: PersistenceFault, Err: err}
	}
	c.stats.Snapshots++
	c.state.SavedUntil = now.Add(SavedNotice)
	c.overlay(now)
	log.Printf("INFO: saved %s", path)
	return nil
}

// Private details.

// process runs the renderer. On failure, the previous image is kept.
func (c *Camera) process() {
	img, err := c.render()
	if err != nil {
		c.stats.ProcessingFaults++
		c.stats.LastFail = err
		log.Printf("ERROR: %s; keeping previous image", err)
		if c.base == nil {
			c.base = image.NewRGBA(image.Rect(0, 0, c.width, c.height))
		}
		return
	}
	c.stats.Rendered++
	c.base = img
}

func (c *Camera) render() (img *image.RGBA, err error) {
	defer func() {
		if r := recover(); r != nil {
			img = nil
			err = &Error{Fault: ImageProcessingFault, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	img, err = c.renderer.Render(c.intensity, c.state.options())
	if err != nil {
		return nil, &Error{Fault: ImageProcessingFault, Err: err}
	}
	if b := img.Bounds(); b.Dx() != c.width || b.Dy() != c.height {
		return nil, &Error{Fault: ImageProcessingFault, Err: fmt.Errorf("unexpected size %s", b)}
	}
	return img, nil
}

// annotate draws the overlay on a copy of the last rendered image.
func (c *Camera) annotate() {
	now := c.now()
	fps := 0.
	if !c.state.LastFrame.IsZero() {
		if d := now.Sub(c.state.LastFrame); d > 0 {
			fps = 1 / d.Seconds()
		}
	}
	c.state.LastFrame = now
	c.status = render.Status{
		Range:         c.rng,
		Unit:          c.state.Unit,
		FPS:           fps,
		Interpolation: c.state.InterpolationName(),
		Palette:       c.state.PaletteName(),
		Filtered:      c.state.Filter,
	}
	c.overlay(now)
}

// overlay redraws the status line and the notices on a copy of the last
// rendered image. It does not run the renderer.
func (c *Camera) overlay(now time.Time) {
	c.texts = append(c.texts[:0], render.Text{S: c.status.String(), Origin: render.StatusOrigin})
	if now.Before(c.state.SavedUntil) {
		c.texts = append(c.texts, render.Text{S: render.SavedMessage, Origin: render.MessageOrigin, Bold: true})
	} else if c.message != "" {
		c.texts = append(c.texts, render.Text{S: c.message, Origin: render.MessageOrigin, Bold: true})
	}
	c.img = clone(c.base)
	render.Annotate(c.img, c.texts)
}

func clone(src *image.RGBA) *image.RGBA {
	dst := image.NewRGBA(src.Rect)
	draw.Draw(dst, dst.Rect, src, src.Rect.Min, draw.Src)
	return dst
}
