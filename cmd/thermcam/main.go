// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// thermcam shows a live MLX90640 thermal image on a Linux framebuffer.
//
// Controls are read from stdin (see -help) and from optional GPIO push
// buttons configured in ~/.config/thermcam/thermcam.json.
package main

import (
	"flag"
	"fmt"
	"image"
	"io"
	"io/ioutil"
	"log"
	"os"
	"os/user"
	"path/filepath"
	"runtime/pprof"
	"time"

	"github.com/maruel/go-thermcam/buttons"
	"github.com/maruel/go-thermcam/camera"
	"github.com/maruel/go-thermcam/fbdev"
	"github.com/maruel/go-thermcam/mlx90640"
	"github.com/maruel/go-thermcam/mlx90640/mlx90640test"
	"github.com/maruel/go-thermcam/palette"
	"github.com/maruel/go-thermcam/render"
	"github.com/maruel/go-thermcam/snapshot"
	"github.com/maruel/go-thermcam/thermal"
	"github.com/maruel/interrupt"
	"periph.io/x/periph/conn/i2c/i2creg"
	"periph.io/x/periph/conn/physic"
	"periph.io/x/periph/host"
)

// sensor is a frame source that can be closed.
type sensor struct {
	camera.Source
	io.Closer
}

func openSensor(c *config) (*sensor, error) {
	if c.Fake {
		f := mlx90640test.New()
		f.Delay = mlx90640.Period(refreshRate(c))
		return &sensor{Source: f, Closer: f}, nil
	}
	if _, err := host.Init(); err != nil {
		return nil, err
	}
	bus, err := i2creg.Open(c.I2C)
	if err != nil {
		return nil, err
	}
	if c.I2CHz != 0 {
		if err := bus.SetSpeed(physic.Frequency(c.I2CHz) * physic.Hertz); err != nil {
			bus.Close()
			return nil, err
		}
	}
	dev, err := mlx90640.New(bus, &mlx90640.Opts{RefreshRate: refreshRate(c)})
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("%s\nIf testing without hardware, use -fake to simulate a camera", err)
	}
	log.Printf("INFO: using %s", dev)
	return &sensor{Source: dev, Closer: bus}, nil
}

func refreshRate(c *config) physic.Frequency {
	return physic.Frequency(c.RefreshHz * float64(physic.Hertz))
}

// display is a camera.Display that can be closed.
type display interface {
	camera.Display
	io.Closer
}

// headless is used when no framebuffer is configured.
type headless struct{}

func (headless) Show(img *image.RGBA) error { return nil }
func (headless) Close() error               { return nil }

func openDisplay(c *config) (display, error) {
	if c.Framebuffer == "" {
		log.Printf("INFO: no framebuffer; running headless")
		return headless{}, nil
	}
	d, err := fbdev.Open(c.Framebuffer)
	if err != nil {
		return nil, err
	}
	if b := d.Bounds(); b.Dx() < c.Width || b.Dy() < c.Height {
		log.Printf("WARNING: %s is smaller than %dx%d; image is cropped", d, c.Width, c.Height)
	}
	return d, nil
}

// statsDisplay prints the counters once per second.
type statsDisplay struct {
	camera.Display
	c    *camera.Camera
	last time.Time
}

func (s *statsDisplay) Show(img *image.RGBA) error {
	err := s.Display.Show(img)
	if now := time.Now(); now.Sub(s.last) >= time.Second {
		s.last = now
		st := s.c.Stats()
		fmt.Printf("\r%d frames %d rendered %d transient %d hard %d processing %d saved", st.Frames, st.Rendered, st.TransientFaults, st.HardFaults, st.ProcessingFaults, st.Snapshots)
	}
	return err
}

// send queues a command without ever blocking.
func send(cmds chan<- camera.Command, c camera.Command) {
	select {
	case cmds <- c:
	default:
	}
}

// flagKeys maps flag names to config field names.
var flagKeys = map[string]string{
	"out":           "OutputFolder",
	"width":         "Width",
	"height":        "Height",
	"fahrenheit":    "Fahrenheit",
	"filter":        "Filter",
	"palette":       "Palette",
	"interpolation": "Interpolation",
	"i2c":           "I2C",
	"hz":            "I2CHz",
	"refresh":       "RefreshHz",
	"fb":            "Framebuffer",
	"quality":       "JPEGQuality",
	"fake":          "Fake",
}

func mainImpl() error {
	cpuprofile := flag.String("cpuprofile", "", "dump CPU profile in file")
	verbose := flag.Bool("v", false, "verbose mode")
	logPath := flag.String("log", "", "append the logs to this file; implies -v")
	home, err := homeDir(user.Current)
	if err != nil {
		return err
	}
	configPath := flag.String("config", filepath.Join(home, ".config", "thermcam", "thermcam.json"), "configuration file")
	d := defaultConfig(home)
	flag.String("out", d.OutputFolder, "folder to save snapshots in")
	flag.Int("width", d.Width, "image width")
	flag.Int("height", d.Height, "image height")
	flag.Bool("fahrenheit", d.Fahrenheit, "show temperatures in °F")
	flag.Bool("filter", d.Filter, "smooth the image")
	flag.String("palette", d.Palette, fmt.Sprintf("initial palette, one of %s", palette.Names()))
	flag.String("interpolation", d.Interpolation, "initial upscaling method")
	flag.String("i2c", d.I2C, "I²C bus to use")
	flag.Int64("hz", d.I2CHz, "I²C bus speed")
	flag.Float64("refresh", d.RefreshHz, "sensor refresh rate in Hz")
	flag.String("fb", d.Framebuffer, "framebuffer device; empty to run headless")
	flag.Int("quality", d.JPEGQuality, "snapshot JPEG quality")
	flag.Bool("fake", d.Fake, "use a fake camera")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: thermcam [flags]\n\nKeys, followed by Enter:\n%s\nFlags override %s:\n", keysHelp(), *configPath)
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 0 {
		return fmt.Errorf("unexpected argument: %s", flag.Args())
	}

	if *logPath != "" {
		f, err := os.OpenFile(*logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		defer f.Close()
		log.SetOutput(f)
	} else if !*verbose {
		log.SetOutput(ioutil.Discard)
	}
	log.SetFlags(log.Lmicroseconds)

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			return err
		}
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	set := map[string]interface{}{}
	flag.Visit(func(f *flag.Flag) {
		if k, ok := flagKeys[f.Name]; ok {
			set[k] = f.Value.(flag.Getter).Get()
		}
	})
	cfg, err := loadConfig(*configPath, d, set)
	if err != nil {
		return err
	}

	interrupt.HandleCtrlC()

	s, err := openSensor(cfg)
	if err != nil {
		return err
	}
	defer s.Close()
	disp, err := openDisplay(cfg)
	if err != nil {
		return err
	}
	defer disp.Close()

	st := camera.DefaultState()
	st.Palette, _ = palette.Index(cfg.Palette)
	st.Interpolation, _ = render.InterpolationIndex(cfg.Interpolation)
	st.Filter = cfg.Filter
	st.Unit = thermal.Celsius
	if cfg.Fahrenheit {
		st.Unit = thermal.Fahrenheit
	}
	c, err := camera.New(s, &camera.Options{
		Width:    cfg.Width,
		Height:   cfg.Height,
		State:    st,
		Recorder: &snapshot.Recorder{Root: cfg.OutputFolder, Quality: cfg.JPEGQuality},
		Period:   mlx90640.Period(refreshRate(cfg)),
		Stop:     interrupt.IsSet,
	})
	if err != nil {
		return err
	}

	cmds := make(chan camera.Command, 16)
	if len(cfg.Buttons) != 0 {
		b, err := buttons.FromNames(cfg.Buttons)
		if err != nil {
			return err
		}
		w, err := buttons.New(b, buttons.DefaultDebounce, cmds)
		if err != nil {
			return err
		}
		defer w.Close()
	}
	go func() {
		if err := readKeys(os.Stdin, cmds); err != nil {
			log.Printf("WARNING: stdin: %s", err)
		}
	}()
	exe, err := os.Executable()
	if err != nil {
		return err
	}
	fw, err := newFileWatcher(exe, *configPath)
	if err != nil {
		return err
	}
	defer fw.Close()
	go func() {
		// Quit on Ctrl-C, or when the executable or the configuration is
		// replaced so the service manager restarts with the new one.
		p, err := fw.wait(interrupt.Channel)
		if err != nil {
			log.Printf("WARNING: watch: %s", err)
		} else if p != "" {
			log.Printf("INFO: %s was modified; quitting", p)
		}
		interrupt.Set()
		send(cmds, camera.Quit)
	}()

	c.Run(&statsDisplay{Display: disp, c: c}, cmds)
	fmt.Print("\n")
	if err := c.Stats().LastFail; err != nil {
		log.Printf("INFO: last failure: %s", err)
	}
	return nil
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "\nthermcam: %s.\n", err)
		os.Exit(1)
	}
}
