// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"os"
	"time"

	fsnotify "gopkg.in/fsnotify.v1"
)

// fileWatcher reports the first modification of one of a set of files.
type fileWatcher struct {
	w    *fsnotify.Watcher
	mods map[string]time.Time
}

// newFileWatcher starts watching the paths. Missing files are skipped.
func newFileWatcher(paths ...string) (*fileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	f := &fileWatcher{w: w, mods: map[string]time.Time{}}
	for _, p := range paths {
		fi, err := os.Stat(p)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			w.Close()
			return nil, err
		}
		f.mods[p] = fi.ModTime()
		if err := w.Add(p); err != nil {
			w.Close()
			return nil, err
		}
	}
	return f, nil
}

// wait returns the path of the first file modified, removed or replaced. It
// returns an empty string once done is closed or the watcher is closed.
func (f *fileWatcher) wait(done <-chan struct{}) (string, error) {
	for {
		select {
		case <-done:
			return "", nil
		case err, ok := <-f.w.Errors:
			if !ok {
				return "", nil
			}
			return "", err
		case e, ok := <-f.w.Events:
			if !ok {
				return "", nil
			}
			mod0, ok := f.mods[e.Name]
			if !ok {
				continue
			}
			if fi, err := os.Stat(e.Name); err != nil || !fi.ModTime().Equal(mod0) {
				return e.Name, nil
			}
		}
	}
}

func (f *fileWatcher) Close() error {
	return f.w.Close()
}
