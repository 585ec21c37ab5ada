// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package camera

import (
	"fmt"
	"image"
	"log"
)

// Command is a user control, as sent by a UI event source.
type Command int

// Valid values for Command.
const (
	NextPalette Command = iota
	PrevPalette
	NextInterpolation
	PrevInterpolation
	ToggleFilter
	ToggleUnit
	Snapshot
	Quit
)

var commandNames = []string{
	"NextPalette",
	"PrevPalette",
	"NextInterpolation",
	"PrevInterpolation",
	"ToggleFilter",
	"ToggleUnit",
	"Snapshot",
	"Quit",
}

func (c Command) String() string {
	if c >= 0 && int(c) < len(commandNames) {
		return commandNames[c]
	}
	return fmt.Sprintf("Command(%d)", int(c))
}

// ParseCommand is the reverse of Command.String.
func ParseCommand(s string) (Command, error) {
	for i, n := range commandNames {
		if n == s {
			return Command(i), nil
		}
	}
	return 0, fmt.Errorf("unknown command %q", s)
}

// Display shows images. It must not modify the image.
type Display interface {
	Show(img *image.RGBA) error
}

// Do runs one control operation.
func (c *Camera) Do(cmd Command) error {
	switch cmd {
	case NextPalette:
		c.CyclePalette(true)
	case PrevPalette:
		c.CyclePalette(false)
	case NextInterpolation:
		c.CycleInterpolation(true)
	case PrevInterpolation:
		c.CycleInterpolation(false)
	case ToggleFilter:
		c.ToggleFilter()
	case ToggleUnit:
		c.ToggleUnit()
	case Snapshot:
		return c.RequestSnapshot()
	case Quit:
		c.RequestQuit()
	default:
		return fmt.Errorf("camera: unknown command %d", int(cmd))
	}
	return nil
}

// Run alternates between executing pending commands and showing a new frame
// on d, until RequestQuit is called or Options.Stop returns true.
//
// Commands are only read between frames, so the state is never modified
// while a frame is being produced. Snapshot failures are logged by
// RequestSnapshot and do not stop the loop.
func (c *Camera) Run(d Display, cmds <-chan Command) {
	var lastFail error
	for c.Running() {
		c.pump(cmds)
		if !c.Running() {
			break
		}
		img := c.RenderNextFrame()
		if err := d.Show(img); err != nil {
			if lastFail == nil {
				log.Printf("ERROR: display: %s", err)
			}
			lastFail = err
		} else {
			lastFail = nil
		}
	}
}

// pump executes the queued commands without blocking. Commands queued after
// Quit are not executed.
//
// At most cap(cmds)+1 commands are executed per frame, so a producer that
// keeps the channel full cannot hold back rendering.
func (c *Camera) pump(cmds <-chan Command) {
	for i := 0; i <= cap(cmds) && c.Running(); i++ {
		select {
		case cmd, ok := <-cmds:
			if !ok {
				return
			}
			if err := c.Do(cmd); err != nil {
				if _, ok := FaultOf(err); !ok {
					log.Printf("WARNING: %s", err)
				}
			}
		default:
			return
		}
	}
}
