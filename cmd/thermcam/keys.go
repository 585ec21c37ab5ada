// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/maruel/go-thermcam/camera"
)

var keyBindings = map[byte]camera.Command{
	'c': camera.NextPalette,
	'C': camera.PrevPalette,
	'i': camera.NextInterpolation,
	'I': camera.PrevInterpolation,
	'f': camera.ToggleFilter,
	'u': camera.ToggleUnit,
	's': camera.Snapshot,
	'q': camera.Quit,
}

func keysHelp() string {
	keys := make([]string, 0, len(keyBindings))
	for k := range keyBindings {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "  %s  %s\n", k, keyBindings[k[0]])
	}
	return b.String()
}

// readKeys sends the command bound to each key read from r. Unknown keys are
// ignored. It returns nil at EOF.
func readKeys(r io.Reader, out chan<- camera.Command) error {
	br := bufio.NewReader(r)
	for {
		b, err := br.ReadByte()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if c, ok := keyBindings[b]; ok {
			out <- c
		}
	}
}
