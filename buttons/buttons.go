// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package buttons maps GPIO push buttons to camera commands.
//
// Each button is wired between its pin and ground. The pin is pulled up and
// a press is a falling edge.
package buttons

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/maruel/go-thermcam/camera"
	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"
)

// DefaultDebounce is the minimum delay between two presses of a button.
const DefaultDebounce = 200 * time.Millisecond

// poll is how often the watchers check if they were closed.
const poll = 100 * time.Millisecond

// Button is a push button bound to a command.
type Button struct {
	Pin     gpio.PinIn
	Command camera.Command
}

func (b *Button) String() string {
	return fmt.Sprintf("%s->%s", b.Pin, b.Command)
}

// FromNames looks up the pins by name, as set in the configuration file. The
// keys are command names, the values pin names.
func FromNames(m map[string]string) ([]Button, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]Button, 0, len(m))
	for _, k := range keys {
		c, err := camera.ParseCommand(k)
		if err != nil {
			return nil, err
		}
		p := gpioreg.ByName(m[k])
		if p == nil {
			return nil, fmt.Errorf("buttons: unknown pin %q for %s", m[k], c)
		}
		out = append(out, Button{Pin: p, Command: c})
	}
	return out, nil
}

// Watcher sends the commands of pressed buttons.
type Watcher struct {
	debounce time.Duration
	out      chan<- camera.Command
	quit     chan struct{}
	wg       sync.WaitGroup
}

// New configures the pins and starts watching them. Presses closer than
// debounce are ignored.
func New(buttons []Button, debounce time.Duration, out chan<- camera.Command) (*Watcher, error) {
	for i := range buttons {
		if err := buttons[i].Pin.In(gpio.PullUp, gpio.FallingEdge); err != nil {
			return nil, fmt.Errorf("buttons: %s: %v", buttons[i].Pin, err)
		}
	}
	w := &Watcher{debounce: debounce, out: out, quit: make(chan struct{})}
	for i := range buttons {
		w.wg.Add(1)
		go w.watch(buttons[i])
	}
	return w, nil
}

// Close stops the watchers and waits for them.
func (w *Watcher) Close() error {
	close(w.quit)
	w.wg.Wait()
	return nil
}

func (w *Watcher) watch(b Button) {
	defer w.wg.Done()
	var last time.Time
	for {
		select {
		case <-w.quit:
			return
		default:
		}
		if !b.Pin.WaitForEdge(poll) {
			continue
		}
		if b.Pin.Read() != gpio.Low {
			continue
		}
		now := time.Now()
		if !last.IsZero() && now.Sub(last) < w.debounce {
			continue
		}
		last = now
		select {
		case w.out <- b.Command:
		case <-w.quit:
			return
		}
	}
}
