// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build !linux

package main

// fileWatcher never reports a modification outside of Linux.
type fileWatcher struct{}

func newFileWatcher(paths ...string) (*fileWatcher, error) {
	return &fileWatcher{}, nil
}

func (f *fileWatcher) wait(done <-chan struct{}) (string, error) {
	<-done
	return "", nil
}

func (f *fileWatcher) Close() error {
	return nil
}
