// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build !linux

package fbdev

import "github.com/pkg/errors"

// Open is only supported on linux.
func Open(path string) (*Dev, error) {
	return nil, errors.New("fbdev: not supported on this OS")
}
