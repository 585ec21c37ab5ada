// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package mlx90640test implements a fake MLX90640.
package mlx90640test

import (
	"math/rand"
	"sync"
	"time"

	"github.com/maruel/go-thermcam/thermal"
)

// Ambient is the background temperature of the fake scene, in °C.
const Ambient = 22.

// Fake is a fake for mlx90640.Dev.
//
// It renders a few warm spots drifting over a room temperature background.
type Fake struct {
	// Delay is slept before each frame. It defaults to 0, set it to 125ms to
	// simulate a sensor at 8Hz.
	Delay time.Duration

	mu     sync.Mutex
	noise  *noise
	faults []error
	frames int
}

// New returns a fake sensor. The scene is deterministic.
func New() *Fake {
	return &Fake{noise: makeNoise()}
}

// Inject queues errors to be returned by the next calls to Acquire, in
// order, before frames are produced again.
func (f *Fake) Inject(errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.faults = append(f.faults, errs...)
}

// Acquire implements camera.Source.
func (f *Fake) Acquire(dst *thermal.Frame) error {
	if f.Delay != 0 {
		time.Sleep(f.Delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.faults) != 0 {
		err := f.faults[0]
		f.faults = f.faults[1:]
		if err != nil {
			return err
		}
	}
	f.frames++
	f.noise.update()
	f.noise.render(dst)
	return nil
}

// Frames returns the number of frames produced.
func (f *Fake) Frames() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.frames
}

// Close implements io.Closer.
func (f *Fake) Close() error {
	return nil
}

// Halt implements conn.Resource.
func (f *Fake) Halt() error {
	return nil
}

func (f *Fake) String() string {
	return "MLX90640Fake"
}

//

type spot struct {
	intensity float64
	x         float64
	y         float64
}

// noise is cheezy but gets us going for testing without a device.
type noise struct {
	rand  *rand.Rand
	spots []spot
}

func makeNoise() *noise {
	n := &noise{rand: rand.New(rand.NewSource(0))}
	n.spots = make([]spot, 4)
	for i := range n.spots {
		n.spots[i].intensity = 5 + n.rand.Float64()*10
		n.spots[i].x = n.rand.Float64() * thermal.Cols
		n.spots[i].y = n.rand.Float64() * thermal.Rows
	}
	return n
}

func (n *noise) update() {
	for i := range n.spots {
		n.spots[i].intensity += n.rand.NormFloat64() * 0.1
		n.spots[i].x = wrap(n.spots[i].x+n.rand.NormFloat64()*0.3, thermal.Cols)
		n.spots[i].y = wrap(n.spots[i].y+n.rand.NormFloat64()*0.3, thermal.Rows)
	}
}

func (n *noise) render(f *thermal.Frame) {
	for y := 0; y < thermal.Rows; y++ {
		fy := float64(y)
		for x := 0; x < thermal.Cols; x++ {
			fx := float64(x)
			v := Ambient + n.rand.NormFloat64()*0.1
			for _, s := range n.spots {
				d := (s.x-fx)*(s.x-fx) + (s.y-fy)*(s.y-fy)
				v += s.intensity / (1 + d/4)
			}
			f.Pix[y*thermal.Cols+x] = v
		}
	}
}

func wrap(v, max float64) float64 {
	for v < 0 {
		v += max
	}
	for v >= max {
		v -= max
	}
	return v
}
