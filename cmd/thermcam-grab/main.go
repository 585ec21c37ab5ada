// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// thermcam-grab captures a single image.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"strings"

	"github.com/maruel/go-thermcam/camera"
	"github.com/maruel/go-thermcam/mlx90640"
	"github.com/maruel/go-thermcam/mlx90640/mlx90640test"
	"github.com/maruel/go-thermcam/palette"
	"github.com/maruel/go-thermcam/render"
	"github.com/maruel/go-thermcam/snapshot"
	"github.com/maruel/go-thermcam/thermal"
	"periph.io/x/periph/conn/i2c/i2creg"
	"periph.io/x/periph/conn/physic"
	"periph.io/x/periph/host"
)

// grab captures one frame from src and returns it encoded as a JPEG.
func grab(src camera.Source, o *camera.Options) ([]byte, *camera.Camera, error) {
	c, err := camera.New(src, o)
	if err != nil {
		return nil, nil, err
	}
	img := c.RenderNextFrame()
	if st := c.Stats(); st.HardFaults != 0 {
		return nil, nil, st.LastFail
	}
	data, err := o.Recorder.Encode(img)
	return data, c, err
}

func mainImpl() error {
	i2cName := flag.String("i2c", "", "I²C bus to use")
	i2cHz := flag.Int64("hz", 0, "I²C bus speed")
	fake := flag.Bool("fake", false, "use a fake camera")
	pal := flag.String("palette", palette.At(0).Name, fmt.Sprintf("palette, one of %s", palette.Names()))
	interp := flag.String("interpolation", render.Interpolations[render.DefaultInterpolation].Name, "upscaling method")
	filter := flag.Bool("filter", false, "smooth the image")
	celsius := flag.Bool("celsius", false, "print temperatures in °C")
	width := flag.Int("width", render.DefaultWidth, "image width")
	height := flag.Int("height", render.DefaultHeight, "image height")
	quality := flag.Int("quality", snapshot.DefaultQuality, "JPEG quality")
	meta := flag.Bool("meta", false, "print the frame statistics")
	verbose := flag.Bool("v", false, "verbose mode")
	flag.Parse()
	if !*verbose {
		log.SetOutput(ioutil.Discard)
	}
	log.SetFlags(log.Lmicroseconds)

	if flag.NArg() != 1 {
		return errors.New("supply path to JPEG to save")
	}

	st := camera.DefaultState()
	var ok bool
	if st.Palette, ok = palette.Index(*pal); !ok {
		return fmt.Errorf("unknown palette %q", *pal)
	}
	if st.Interpolation, ok = render.InterpolationIndex(*interp); !ok {
		return fmt.Errorf("unknown interpolation %q; valid: %s", *interp, interpolationNames())
	}
	st.Filter = *filter
	if *celsius {
		st.Unit = thermal.Celsius
	}

	var src camera.Source
	if *fake {
		src = mlx90640test.New()
	} else {
		if _, err := host.Init(); err != nil {
			return err
		}
		i2cBus, err := i2creg.Open(*i2cName)
		if err != nil {
			return err
		}
		defer i2cBus.Close()
		if *i2cHz != 0 {
			if err := i2cBus.SetSpeed(physic.Frequency(*i2cHz) * physic.Hertz); err != nil {
				return err
			}
		}
		dev, err := mlx90640.New(i2cBus, &mlx90640.DefaultOpts)
		if err != nil {
			return fmt.Errorf("%s\nIf testing without hardware, use -fake to simulate a camera", err)
		}
		src = dev
	}
	data, c, err := grab(src, &camera.Options{
		Width:    *width,
		Height:   *height,
		State:    st,
		Recorder: &snapshot.Recorder{Quality: *quality},
		Period:   mlx90640.Period(mlx90640.DefaultOpts.RefreshRate),
	})
	if err != nil {
		return err
	}
	if *meta {
		raw := c.Raw()
		r := c.Range()
		fmt.Printf("Min:  %s\n", st.Unit.Format(r.Min))
		fmt.Printf("Max:  %s\n", st.Unit.Format(r.Max))
		fmt.Printf("Mean: %s\n", st.Unit.Format(raw.Mean()))
	}
	return ioutil.WriteFile(flag.Args()[0], data, 0644)
}

func interpolationNames() string {
	n := make([]string, len(render.Interpolations))
	for i, m := range render.Interpolations {
		n[i] = m.Name
	}
	return strings.Join(n, ", ")
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "\nthermcam-grab: %s.\n", err)
		os.Exit(1)
	}
}
