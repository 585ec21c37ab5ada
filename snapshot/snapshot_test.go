// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package snapshot

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestPath(t *testing.T) {
	r := Recorder{Root: "/home/pi/snaps"}
	ts := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	if p := r.Path(ts); p != "/home/pi/snaps/pic_2026-03-04_05-06-07.jpg" {
		t.Fatal(p)
	}
	r.Prefix = "therm_"
	if p := r.Path(ts); p != "/home/pi/snaps/therm_2026-03-04_05-06-07.jpg" {
		t.Fatal(p)
	}
}

func TestEncodeSave(t *testing.T) {
	dir, err := ioutil.TempDir("", "snapshot")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	img := image.NewRGBA(image.Rect(0, 0, 16, 8))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	r := Recorder{Root: filepath.Join(dir, "sub"), Quality: 75}
	data, err := r.Encode(img)
	if err != nil {
		t.Fatal(err)
	}
	p := r.Path(time.Now())
	if err := r.Save(p, data); err != nil {
		t.Fatal(err)
	}
	got, err := ioutil.ReadFile(p)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Fatal("content mismatch")
	}
	dec, err := jpeg.Decode(bytes.NewReader(got))
	if err != nil {
		t.Fatal(err)
	}
	if b := dec.Bounds(); b.Dx() != 16 || b.Dy() != 8 {
		t.Fatal(b)
	}
	r8, _, _, _ := color.RGBAModel.Convert(dec.At(3, 3)).RGBA()
	if v := r8 >> 8; v < 190 || v > 210 {
		t.Fatal(v)
	}
}

func TestSave_fail(t *testing.T) {
	dir, err := ioutil.TempDir("", "snapshot")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	// A file where a folder is expected.
	blocker := filepath.Join(dir, "file")
	if err := ioutil.WriteFile(blocker, nil, 0644); err != nil {
		t.Fatal(err)
	}
	r := Recorder{Root: filepath.Join(blocker, "sub")}
	if err := r.Save(r.Path(time.Now()), []byte("x")); err == nil {
		t.Fatal("expected failure")
	}
}
