// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// thermcam-query uses the I²C interface to query the sensor's internal state.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/maruel/go-thermcam/camera"
	"github.com/maruel/go-thermcam/mlx90640"
	"github.com/maruel/go-thermcam/thermal"
	"periph.io/x/periph/conn/i2c/i2creg"
	"periph.io/x/periph/conn/physic"
	"periph.io/x/periph/host"
)

func mainImpl() error {
	i2cName := flag.String("i2c", "", "I²C bus to use")
	i2cHz := flag.Int64("hz", 0, "I²C bus speed")
	refresh := flag.Float64("refresh", 8, "refresh rate to set, in Hz")
	read := flag.Bool("read", false, "read a frame and print the temperature range")
	flag.Parse()

	if len(flag.Args()) != 0 {
		return fmt.Errorf("unexpected argument: %s", flag.Args())
	}

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
	dev, err := mlx90640.New(i2cBus, &mlx90640.Opts{RefreshRate: physic.Frequency(*refresh * float64(physic.Hertz))})
	if err != nil {
		return err
	}
	serial, err := dev.SerialNumber()
	if err != nil {
		return err
	}
	fmt.Printf("Serial:      0x%012x\n", serial)
	rate, err := dev.RefreshRate()
	if err != nil {
		return err
	}
	fmt.Printf("RefreshRate: %s\n", rate)
	if !*read {
		return nil
	}
	f := thermal.Frame{}
	start := time.Now()
	// The first frame needs both subpages.
	b := camera.NewRetry(mlx90640.Period(rate))
	err = backoff.Retry(func() error {
		err := dev.Acquire(&f)
		if err != nil && !camera.IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}, b)
	if err != nil {
		return err
	}
	r := f.Range()
	fmt.Printf("Frame:       %s\n", time.Since(start))
	fmt.Printf("Min:         %s\n", thermal.Celsius.Format(r.Min))
	fmt.Printf("Max:         %s\n", thermal.Celsius.Format(r.Max))
	fmt.Printf("Mean:        %s\n", thermal.Celsius.Format(f.Mean()))
	return nil
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "\nthermcam-query: %s.\n", err)
		os.Exit(1)
	}
}
