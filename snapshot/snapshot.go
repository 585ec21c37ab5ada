// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package snapshot encodes images and saves them with a timestamped name.
package snapshot

import (
	"bytes"
	"image"
	"image/jpeg"
	"io/ioutil"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

// DefaultQuality is the JPEG quality used when none is specified.
const DefaultQuality = 90

// Sink persists an encoded image.
type Sink interface {
	Save(path string, data []byte) error
}

// Recorder names and writes snapshots in a folder. It is not thread safe.
type Recorder struct {
	// Root is the output folder. It is created on first write.
	Root string
	// Prefix is prepended to the timestamp. Defaults to "pic_".
	Prefix string
	// Quality is the JPEG quality, between 1 and 100.
	Quality int
}

// Path returns the path of a snapshot taken at t.
func (r *Recorder) Path(t time.Time) string {
	prefix := r.Prefix
	if prefix == "" {
		prefix = "pic_"
	}
	return filepath.Join(r.Root, prefix+t.Format("2006-01-02_15-04-05")+".jpg")
}

// Encode encodes img as a JPEG.
func (r *Recorder) Encode(img image.Image) ([]byte, error) {
	q := r.Quality
	if q <= 0 || q > 100 {
		q = DefaultQuality
	}
	var b bytes.Buffer
	if err := jpeg.Encode(&b, img, &jpeg.Options{Quality: q}); err != nil {
		return nil, errors.Wrap(err, "encoding snapshot")
	}
	return b.Bytes(), nil
}

// Save implements Sink.
func (r *Recorder) Save(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, "creating snapshot folder")
	}
	if err := ioutil.WriteFile(path, data, 0644); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}
	return nil
}
