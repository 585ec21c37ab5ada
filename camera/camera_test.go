// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package camera

import (
	"bytes"
	"errors"
	"image"
	"log"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/maruel/go-thermcam/palette"
	"github.com/maruel/go-thermcam/render"
	"github.com/maruel/go-thermcam/snapshot"
	"github.com/maruel/go-thermcam/thermal"
)

func TestEndToEnd_uniform(t *testing.T) {
	c, clk, _ := newTestCamera(t, uniform(20))
	clk.advance(125 * time.Millisecond)
	img := c.RenderNextFrame()
	if b := img.Bounds(); b != image.Rect(0, 0, render.DefaultWidth, render.DefaultHeight) {
		t.Fatal(b)
	}
	st := c.State()
	if st.Palette != 0 || st.Interpolation != 3 || st.Filter || st.Unit != thermal.Fahrenheit {
		t.Fatalf("unexpected defaults %+v", st)
	}
	texts := c.Texts()
	if len(texts) != 1 {
		t.Fatal(texts)
	}
	if !strings.HasPrefix(texts[0], "Tmin=+68.0F - Tmax=+68.0F - FPS=") {
		t.Fatal(texts[0])
	}
	if fps := parseFPS(t, texts[0]); math.IsInf(fps, 0) || math.IsNaN(fps) {
		t.Fatal(fps)
	}
	if !strings.Contains(texts[0], "Interpolation: Inter Cubic - Colormap: rainbow - Filtered: false") {
		t.Fatal(texts[0])
	}
	// Every pixel is either the palette's cold color or overlay text.
	want := palette.At(0).RGB(0)
	text := 0
	for y := 0; y < img.Rect.Dy(); y++ {
		for x := 0; x < img.Rect.Dx(); x++ {
			p := img.RGBAAt(x, y)
			if p == want {
				continue
			}
			if p.R == 0 && p.G == 0 && p.B == 0 && y < 30 {
				text++
				continue
			}
			t.Fatalf("pixel (%d, %d) = %v; want %v", x, y, p, want)
		}
	}
	if text == 0 {
		t.Fatal("no overlay")
	}
}

func TestFPS(t *testing.T) {
	c, clk, _ := newTestCamera(t, uniform(20))
	c.RenderNextFrame()
	clk.advance(250 * time.Millisecond)
	c.RenderNextFrame()
	if fps := parseFPS(t, c.Texts()[0]); fps != 4 {
		t.Fatal(fps)
	}
	// No time elapsed; the figure stays finite.
	c.RenderNextFrame()
	if fps := parseFPS(t, c.Texts()[0]); fps != 0 {
		t.Fatal(fps)
	}
}

func TestCurrentImage_cached(t *testing.T) {
	r := &countingRenderer{t: t, failAfter: 1}
	c, _, _ := newTestCameraOpts(t, uniform(20), &Options{Renderer: r})
	c.Acquire()
	if c.State().Phase != RawOnly {
		t.Fatal("expected RawOnly")
	}
	a := c.CurrentImage()
	if c.State().Phase != Rendered {
		t.Fatal("expected Rendered")
	}
	b := c.CurrentImage()
	if r.calls != 1 {
		t.Fatalf("renderer called %d times", r.calls)
	}
	if !bytes.Equal(a.Pix, b.Pix) {
		t.Fatal("images differ")
	}
	// The returned image is a copy.
	a.Pix[0] = ^a.Pix[0]
	if d := c.CurrentImage(); d.Pix[0] == a.Pix[0] {
		t.Fatal("caller modified the cached image")
	}
}

func TestProcessingFault_keepsPrevious(t *testing.T) {
	r := &countingRenderer{t: t, failAfter: 1}
	c, _, logs := newTestCameraOpts(t, uniform(20), &Options{Renderer: r})
	a := c.RenderNextFrame()
	b := c.RenderNextFrame()
	if r.calls != 2 {
		t.Fatal(r.calls)
	}
	if !bytes.Equal(a.Pix, b.Pix) {
		t.Fatal("previous image not retained")
	}
	if s := c.Stats(); s.ProcessingFaults != 1 || s.Rendered != 1 {
		t.Fatalf("%+v", s)
	}
	if !strings.Contains(logs.String(), "ERROR: ImageProcessingFault") {
		t.Fatal(logs.String())
	}
}

func TestProcessingFault_panic(t *testing.T) {
	c, _, _ := newTestCameraOpts(t, uniform(20), &Options{Renderer: panicRenderer{}})
	img := c.RenderNextFrame()
	if b := img.Bounds(); b.Dx() != render.DefaultWidth || b.Dy() != render.DefaultHeight {
		t.Fatal(b)
	}
	if s := c.Stats(); s.ProcessingFaults != 1 {
		t.Fatalf("%+v", s)
	}
}

func TestHardFault_twice(t *testing.T) {
	src := &scriptedSource{steps: []error{errHard, errHard}}
	c, _, logs := newTestCamera(t, src)
	for i := 0; i < 2; i++ {
		img := c.RenderNextFrame()
		if !c.Running() {
			t.Fatal("loop halted")
		}
		if raw := c.Raw(); !raw.Equal(&thermal.Frame{}) {
			t.Fatal("expected zeroed frame")
		}
		if b := img.Bounds(); b.Dx() != render.DefaultWidth {
			t.Fatal(b)
		}
		if !strings.HasPrefix(c.Texts()[0], "Tmin=+32.0F - Tmax=+32.0F") {
			t.Fatal(c.Texts()[0])
		}
	}
	if n := strings.Count(logs.String(), "HardSensorFault"); n != 2 {
		t.Fatalf("%d log entries:\n%s", n, logs.String())
	}
	if s := c.Stats(); s.HardFaults != 2 || s.Frames != 2 {
		t.Fatalf("%+v", s)
	}
}

func TestHardFault_replacesWholeFrame(t *testing.T) {
	src := &scriptedSource{steps: []error{nil, errHard}, value: 30}
	c, _, _ := newTestCamera(t, src)
	c.Acquire()
	if c.Range().Max != 30 {
		t.Fatal(c.Range())
	}
	c.Acquire()
	if raw := c.Raw(); !raw.Equal(&thermal.Frame{}) {
		t.Fatal("expected zeroed frame")
	}
}

func TestTransientFault_retried(t *testing.T) {
	src := &scriptedSource{steps: []error{errTransient, errTransient, nil}, value: 25}
	c, _, logs := newTestCamera(t, src)
	c.Acquire()
	if src.calls != 3 {
		t.Fatal(src.calls)
	}
	if c.Range().Min != 25 {
		t.Fatal(c.Range())
	}
	if s := c.Stats(); s.TransientFaults != 2 || s.HardFaults != 0 {
		t.Fatalf("%+v", s)
	}
	if logs.Len() != 0 {
		t.Fatal(logs.String())
	}
}

func TestTransientFault_bounded(t *testing.T) {
	src := &scriptedSource{steps: []error{errTransient, errTransient, errTransient, errTransient}, value: 25}
	c, _, _ := newTestCameraOpts(t, src, &Options{Retry: backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 2)})
	c.Acquire()
	if src.calls != 3 {
		t.Fatal(src.calls)
	}
	if raw := c.Raw(); !raw.Equal(&thermal.Frame{}) {
		t.Fatal("expected zeroed frame")
	}
	if s := c.Stats(); s.HardFaults != 1 {
		t.Fatalf("%+v", s)
	}
}

func TestTransientFault_slowSource(t *testing.T) {
	// A 2Hz sensor needs up to 500ms per subpage.
	src := &slowSource{ready: 300 * time.Millisecond, value: 21}
	c, _, logs := newTestCameraOpts(t, src, &Options{Retry: NewRetry(500 * time.Millisecond)})
	c.Acquire()
	if s := c.Stats(); s.HardFaults != 0 || s.TransientFaults == 0 {
		t.Fatalf("%+v", s)
	}
	if r := c.Range(); r.Min != 21 || r.Max != 21 {
		t.Fatal(r)
	}
	if logs.Len() != 0 {
		t.Fatal(logs.String())
	}
}

func TestNewRetry(t *testing.T) {
	data := []struct {
		period time.Duration
		want   int
	}{
		{0, MaxTransientRetries},
		{125 * time.Millisecond, MaxTransientRetries},
		{500 * time.Millisecond, 250},
		{2 * time.Second, 1000},
	}
	for i, line := range data {
		b := NewRetry(line.period)
		n := 0
		for {
			d := b.NextBackOff()
			if d == backoff.Stop {
				break
			}
			if d != RetryInterval {
				t.Fatalf("#%d: %s", i, d)
			}
			n++
		}
		if n != line.want {
			t.Fatalf("#%d: %d retries; want %d", i, n, line.want)
		}
	}
}

func TestNonFinite(t *testing.T) {
	src := &funcSource{f: func(f *thermal.Frame) error {
		for i := range f.Pix {
			f.Pix[i] = 30
		}
		f.Pix[7] = math.NaN()
		return nil
	}}
	c, _, _ := newTestCamera(t, src)
	c.Acquire()
	if r := c.Range(); r.Min != 0 || r.Max != 30 {
		t.Fatal(r)
	}
	if s := c.Stats(); s.NonFinite != 1 {
		t.Fatalf("%+v", s)
	}
}

func TestState_names(t *testing.T) {
	c, _, _ := newTestCamera(t, uniform(20))
	if n := c.State().PaletteName(); n != palette.At(0).Name {
		t.Fatal(n)
	}
	if n := c.State().InterpolationName(); n != "Inter Cubic" {
		t.Fatal(n)
	}
	c.CyclePalette(true)
	if n := c.State().PaletteName(); n != palette.At(1).Name {
		t.Fatal(n)
	}
}

func TestCyclePalette(t *testing.T) {
	c, _, _ := newTestCamera(t, uniform(20))
	start := c.State().Palette
	for i := 0; i < palette.Len(); i++ {
		c.CyclePalette(true)
		if p := c.State().Palette; p < 0 || p >= palette.Len() {
			t.Fatal(p)
		}
	}
	if p := c.State().Palette; p != start {
		t.Fatal(p)
	}
	c.CyclePalette(true)
	c.CyclePalette(false)
	if p := c.State().Palette; p != start {
		t.Fatal(p)
	}
	c.CyclePalette(false)
	if p := c.State().Palette; p != palette.Len()-1 {
		t.Fatal(p)
	}
}

func TestCycleInterpolation(t *testing.T) {
	c, _, _ := newTestCamera(t, uniform(20))
	n := len(render.Interpolations)
	for i := 0; i < 3*n; i++ {
		c.CycleInterpolation(i%3 != 0)
		if v := c.State().Interpolation; v < 0 || v >= n {
			t.Fatal(v)
		}
	}
	start := c.State().Interpolation
	for i := 0; i < n; i++ {
		c.CycleInterpolation(false)
	}
	if v := c.State().Interpolation; v != start {
		t.Fatal(v)
	}
	// Every method renders at the display resolution.
	for i := 0; i < n; i++ {
		c.CycleInterpolation(true)
		if b := c.RenderNextFrame().Bounds(); b.Dx() != render.DefaultWidth || b.Dy() != render.DefaultHeight {
			t.Fatalf("%s: %s", c.State().InterpolationName(), b)
		}
	}
}

func TestControls_markDirty(t *testing.T) {
	r := &countingRenderer{t: t}
	c, _, _ := newTestCameraOpts(t, uniform(20), &Options{Renderer: r})
	c.RenderNextFrame()
	c.ToggleFilter()
	if !c.State().Filter || c.State().Phase != RawOnly {
		t.Fatalf("%+v", c.State())
	}
	c.CurrentImage()
	if r.calls != 2 || !r.last.Filter {
		t.Fatal(r.calls, r.last)
	}
	c.ToggleUnit()
	c.CurrentImage()
	if !strings.HasPrefix(c.Texts()[0], "Tmin=+20.0C") {
		t.Fatal(c.Texts()[0])
	}
	if !strings.HasSuffix(c.Texts()[0], "Filtered: true") {
		t.Fatal(c.Texts()[0])
	}
}

func TestSnapshot_notificationWindow(t *testing.T) {
	sink := &memorySink{}
	c, clk, _ := newTestCameraOpts(t, uniform(20), &Options{Sink: sink})
	c.RenderNextFrame()
	if err := c.RequestSnapshot(); err != nil {
		t.Fatal(err)
	}
	if len(sink.paths) != 1 || !regexp.MustCompile(`^out/pic_\d{4}-\d\d-\d\d_\d\d-\d\d-\d\d\.jpg$`).MatchString(sink.paths[0]) {
		t.Fatal(sink.paths)
	}
	if !contains(c.Texts(), render.SavedMessage) {
		c.CurrentImage()
	}
	if !contains(c.Texts(), render.SavedMessage) {
		t.Fatal(c.Texts())
	}
	clk.advance(500 * time.Millisecond)
	c.RenderNextFrame()
	if !contains(c.Texts(), render.SavedMessage) {
		t.Fatal(c.Texts())
	}
	clk.advance(600 * time.Millisecond)
	c.RenderNextFrame()
	if contains(c.Texts(), render.SavedMessage) {
		t.Fatal(c.Texts())
	}
	if s := c.Stats(); s.Snapshots != 1 {
		t.Fatalf("%+v", s)
	}
}

func TestSnapshot_noRender(t *testing.T) {
	r := &countingRenderer{t: t}
	c, _, _ := newTestCameraOpts(t, uniform(20), &Options{Renderer: r})
	c.RenderNextFrame()
	status := c.Texts()[0]
	if err := c.RequestSnapshot(); err != nil {
		t.Fatal(err)
	}
	if !contains(c.Texts(), render.SavedMessage) {
		t.Fatal(c.Texts())
	}
	c.CurrentImage()
	if r.calls != 1 {
		t.Fatal(r.calls)
	}
	if c.Texts()[0] != status {
		t.Fatal(c.Texts())
	}
	if p := c.State().Phase; p != Rendered {
		t.Fatal(p)
	}
}

func TestSnapshot_fail(t *testing.T) {
	sink := &memorySink{err: errors.New("disk full")}
	c, _, logs := newTestCameraOpts(t, uniform(20), &Options{Sink: sink})
	c.RenderNextFrame()
	err := c.RequestSnapshot()
	if f, ok := FaultOf(err); !ok || f != PersistenceFault {
		t.Fatal(err)
	}
	c.CurrentImage()
	if contains(c.Texts(), render.SavedMessage) {
		t.Fatal(c.Texts())
	}
	if !c.Running() {
		t.Fatal("halted")
	}
	if !strings.Contains(logs.String(), "disk full") {
		t.Fatal(logs.String())
	}
}

func TestSetMessage(t *testing.T) {
	c, _, _ := newTestCamera(t, uniform(20))
	c.SetMessage("Sensor offline")
	c.CurrentImage()
	if !contains(c.Texts(), "Sensor offline") {
		t.Fatal(c.Texts())
	}
	c.SetMessage("")
	c.CurrentImage()
	if len(c.Texts()) != 1 {
		t.Fatal(c.Texts())
	}
}

func TestRun(t *testing.T) {
	c, clk, _ := newTestCameraOpts(t, uniform(20), &Options{Renderer: &countingRenderer{t: t}})
	cmds := make(chan Command, 10)
	cmds <- NextPalette
	cmds <- ToggleFilter
	d := &displayFunc{}
	d.f = func(img *image.RGBA) error {
		clk.advance(100 * time.Millisecond)
		switch len(d.shown) {
		case 1:
			cmds <- PrevPalette
			cmds <- NextInterpolation
		case 3:
			cmds <- Quit
			// Ignored: the loop quits before reaching it.
			cmds <- ToggleUnit
		}
		return nil
	}
	c.Run(d, cmds)
	if len(d.shown) != 3 {
		t.Fatal(len(d.shown))
	}
	st := c.State()
	if st.Palette != 0 || st.Interpolation != 4 || !st.Filter || st.Unit != thermal.Fahrenheit {
		t.Fatalf("%+v", st)
	}
	if c.Running() {
		t.Fatal("still running")
	}
}

func TestRun_displayFailure(t *testing.T) {
	c, _, logs := newTestCamera(t, uniform(20))
	d := &displayFunc{}
	d.f = func(img *image.RGBA) error {
		if len(d.shown) == 3 {
			c.RequestQuit()
		}
		return errors.New("no display")
	}
	c.Run(d, nil)
	if len(d.shown) != 3 {
		t.Fatal(len(d.shown))
	}
	if n := strings.Count(logs.String(), "no display"); n != 1 {
		t.Fatal(logs.String())
	}
}

func TestRun_stop(t *testing.T) {
	// The producer keeps the channel busy so Quit could never be queued.
	cmds := make(chan Command)
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case cmds <- ToggleUnit:
			case <-done:
				return
			}
		}
	}()
	stopped := false
	c, _, _ := newTestCameraOpts(t, uniform(20), &Options{
		Renderer: &countingRenderer{t: t},
		Stop:     func() bool { return stopped },
	})
	d := &displayFunc{}
	d.f = func(img *image.RGBA) error {
		if len(d.shown) == 3 {
			stopped = true
		}
		return nil
	}
	c.Run(d, cmds)
	if len(d.shown) != 3 {
		t.Fatal(len(d.shown))
	}
	if c.Running() {
		t.Fatal("still running")
	}
}

func TestCommand(t *testing.T) {
	for c := NextPalette; c <= Quit; c++ {
		got, err := ParseCommand(c.String())
		if err != nil || got != c {
			t.Fatal(c, got, err)
		}
	}
	if _, err := ParseCommand("Dance"); err == nil {
		t.Fatal("expected failure")
	}
	c, _, _ := newTestCamera(t, uniform(20))
	if err := c.Do(Command(100)); err == nil {
		t.Fatal("expected failure")
	}
}

func TestNew_invalid(t *testing.T) {
	if _, err := New(nil, &Options{State: DefaultState()}); err == nil {
		t.Fatal("expected failure")
	}
	st := DefaultState()
	st.Palette = palette.Len()
	if _, err := New(uniform(1), &Options{State: st}); err == nil {
		t.Fatal("expected failure")
	}
	st = DefaultState()
	st.Interpolation = -1
	if _, err := New(uniform(1), &Options{State: st}); err == nil {
		t.Fatal("expected failure")
	}
}

func TestIsTransient(t *testing.T) {
	if !IsTransient(errTransient) {
		t.Fatal("expected transient")
	}
	if IsTransient(errHard) || IsTransient(nil) {
		t.Fatal("unexpected transient")
	}
	if s := HardSensorFault.String(); s != "HardSensorFault" {
		t.Fatal(s)
	}
}

//

type transientError struct{}

func (transientError) Error() string   { return "incomplete read" }
func (transientError) Transient() bool { return true }

var (
	errTransient error = transientError{}
	errHard            = errors.New("i/o error")
)

func uniform(v float64) Source {
	return &funcSource{f: func(f *thermal.Frame) error {
		for i := range f.Pix {
			f.Pix[i] = v
		}
		return nil
	}}
}

type funcSource struct {
	f func(f *thermal.Frame) error
}

func (s *funcSource) Acquire(f *thermal.Frame) error {
	return s.f(f)
}

// scriptedSource returns the errors in steps in order, then succeeds. On
// success, the frame is filled with value.
type scriptedSource struct {
	steps []error
	value float64
	calls int
}

func (s *scriptedSource) Acquire(f *thermal.Frame) error {
	s.calls++
	if len(s.steps) != 0 {
		err := s.steps[0]
		s.steps = s.steps[1:]
		if err != nil {
			// A failed read leaves garbage behind.
			f.Pix[0] = 1234
			return err
		}
	}
	for i := range f.Pix {
		f.Pix[i] = s.value
	}
	return nil
}

// slowSource is not ready until ready elapsed since its first read, like a
// sensor at a low refresh rate.
type slowSource struct {
	ready time.Duration
	value float64
	start time.Time
}

func (s *slowSource) Acquire(f *thermal.Frame) error {
	if s.start.IsZero() {
		s.start = time.Now()
	}
	if time.Since(s.start) < s.ready {
		return errTransient
	}
	for i := range f.Pix {
		f.Pix[i] = s.value
	}
	return nil
}

type countingRenderer struct {
	t         *testing.T
	calls     int
	failAfter int // Fail every call after this many; 0 means never.
	last      render.Options
}

func (c *countingRenderer) Render(src *image.Gray, o render.Options) (*image.RGBA, error) {
	c.calls++
	c.last = o
	if c.failAfter != 0 && c.calls > c.failAfter {
		return nil, errors.New("colorize failed")
	}
	img := image.NewRGBA(image.Rect(0, 0, render.DefaultWidth, render.DefaultHeight))
	for i := range img.Pix {
		img.Pix[i] = byte(c.calls * 10)
	}
	return img, nil
}

type panicRenderer struct{}

func (panicRenderer) Render(src *image.Gray, o render.Options) (*image.RGBA, error) {
	panic("boom")
}

type memorySink struct {
	paths []string
	err   error
}

func (m *memorySink) Save(path string, data []byte) error {
	if m.err != nil {
		return m.err
	}
	if len(data) == 0 {
		return errors.New("empty")
	}
	m.paths = append(m.paths, path)
	return nil
}

type displayFunc struct {
	shown []*image.RGBA
	f     func(img *image.RGBA) error
}

func (d *displayFunc) Show(img *image.RGBA) error {
	d.shown = append(d.shown, img)
	return d.f(img)
}

type fakeClock struct {
	t time.Time
}

func (f *fakeClock) now() time.Time {
	return f.t
}

func (f *fakeClock) advance(d time.Duration) {
	f.t = f.t.Add(d)
}

func newTestCamera(t *testing.T, src Source) (*Camera, *fakeClock, *bytes.Buffer) {
	return newTestCameraOpts(t, src, &Options{})
}

func newTestCameraOpts(t *testing.T, src Source, opts *Options) (*Camera, *fakeClock, *bytes.Buffer) {
	clk := &fakeClock{t: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	logs := &bytes.Buffer{}
	log.SetOutput(logs)
	log.SetFlags(0)
	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
		log.SetFlags(log.LstdFlags)
	})
	o := *opts
	o.State = DefaultState()
	o.Now = clk.now
	if o.Recorder == nil {
		o.Recorder = &snapshot.Recorder{Root: "out"}
	}
	if o.Sink == nil {
		o.Sink = &memorySink{}
	}
	if o.Retry == nil {
		o.Retry = backoff.WithMaxRetries(&backoff.ZeroBackOff{}, MaxTransientRetries)
	}
	c, err := New(src, &o)
	if err != nil {
		t.Fatal(err)
	}
	return c, clk, logs
}

var fpsRe = regexp.MustCompile(`FPS=([0-9.]+)`)

func parseFPS(t *testing.T, s string) float64 {
	m := fpsRe.FindStringSubmatch(s)
	if m == nil {
		t.Fatal(s)
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func contains(l []string, s string) bool {
	for _, v := range l {
		if v == s {
			return true
		}
	}
	return false
}
