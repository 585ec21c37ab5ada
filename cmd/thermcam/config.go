// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"bytes"
	"encoding/json"
	"io/ioutil"
	"log"
	"os"
	"os/user"
	"path/filepath"

	"github.com/knadh/koanf"
	kjson "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/maruel/go-thermcam/palette"
	"github.com/maruel/go-thermcam/render"
	"github.com/maruel/go-thermcam/snapshot"
	"github.com/pkg/errors"
)

// config is stored in ~/.config/thermcam/thermcam.json.
type config struct {
	OutputFolder  string            `json:"OutputFolder" koanf:"OutputFolder"`
	Width         int               `json:"Width" koanf:"Width"`
	Height        int               `json:"Height" koanf:"Height"`
	Fahrenheit    bool              `json:"Fahrenheit" koanf:"Fahrenheit"`
	Filter        bool              `json:"Filter" koanf:"Filter"`
	Palette       string            `json:"Palette" koanf:"Palette"`
	Interpolation string            `json:"Interpolation" koanf:"Interpolation"`
	I2C           string            `json:"I2C" koanf:"I2C"`
	I2CHz         int64             `json:"I2CHz" koanf:"I2CHz"`
	RefreshHz     float64           `json:"RefreshHz" koanf:"RefreshHz"`
	Framebuffer   string            `json:"Framebuffer" koanf:"Framebuffer"`
	JPEGQuality   int               `json:"JPEGQuality" koanf:"JPEGQuality"`
	Buttons       map[string]string `json:"Buttons" koanf:"Buttons"` // Command name to GPIO pin name.
	Fake          bool              `json:"Fake" koanf:"Fake"`
}

// homeDir returns the home directory of the user returned by current.
func homeDir(current func() (*user.User, error)) (string, error) {
	u, err := current()
	if err != nil {
		return "", errors.Wrap(err, "looking up the home directory")
	}
	return u.HomeDir, nil
}

func defaultConfig(home string) config {
	return config{
		OutputFolder:  filepath.Join(home, "thermcam", "saved_snapshots"),
		Width:         render.DefaultWidth,
		Height:        render.DefaultHeight,
		Fahrenheit:    true,
		Palette:       palette.At(0).Name,
		Interpolation: render.Interpolations[render.DefaultInterpolation].Name,
		I2CHz:         800000,
		RefreshHz:     8,
		Framebuffer:   "/dev/fb0",
		JPEGQuality:   snapshot.DefaultQuality,
		Buttons:       map[string]string{},
	}
}

// normalize replaces invalid values with the defaults.
func (c *config) normalize(d *config) {
	if c.Width <= 0 || c.Height <= 0 {
		log.Printf("WARNING: invalid size %dx%d", c.Width, c.Height)
		c.Width, c.Height = d.Width, d.Height
	}
	if _, ok := palette.Index(c.Palette); !ok {
		log.Printf("WARNING: unknown palette %q", c.Palette)
		c.Palette = d.Palette
	}
	if _, ok := render.InterpolationIndex(c.Interpolation); !ok {
		log.Printf("WARNING: unknown interpolation %q", c.Interpolation)
		c.Interpolation = d.Interpolation
	}
	if c.I2CHz < 0 {
		c.I2CHz = d.I2CHz
	}
	if c.RefreshHz <= 0 {
		c.RefreshHz = d.RefreshHz
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		c.JPEGQuality = d.JPEGQuality
	}
	if c.Buttons == nil {
		c.Buttons = map[string]string{}
	}
}

// loadConfig layers the defaults, the file at path, then the flags that were
// explicitly set, keyed by config field name.
//
// The file is normalized and rewritten when it differs from its normalized
// form. The flags are not persisted.
func loadConfig(path string, defaults config, flags map[string]interface{}) (*config, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, err
	}
	src, err := ioutil.ReadFile(path)
	if err == nil {
		if err := k.Load(file.Provider(path), kjson.Parser()); err != nil {
			log.Printf("WARNING: %s is invalid json: %s", path, err)
			src = nil
		}
	}
	c := &config{}
	if err := k.UnmarshalWithConf("", c, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, errors.Wrapf(err, "decoding %s", path)
	}
	c.normalize(&defaults)
	if err := writeConfig(path, src, c); err != nil {
		log.Printf("WARNING: %s", err)
	}
	if len(flags) == 0 {
		return c, nil
	}
	if err := k.Load(confmap.Provider(flags, "."), nil); err != nil {
		return nil, err
	}
	c = &config{}
	if err := k.UnmarshalWithConf("", c, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, errors.Wrap(err, "decoding flags")
	}
	c.normalize(&defaults)
	return c, nil
}

// writeConfig writes c to path unless src is already its normalized form.
func writeConfig(path string, src []byte, c *config) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if bytes.Equal(src, data) {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return errors.Wrap(err, "creating config folder")
	}
	return errors.Wrapf(ioutil.WriteFile(path, data, 0600), "writing %s", path)
}
