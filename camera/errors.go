// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package camera

import (
	"fmt"

	"github.com/pkg/errors"
)

// Fault classifies a failure. None of them stop the render loop.
type Fault int

// Valid values for Fault.
const (
	// TransientSensorFault is retried in place and never surfaced.
	TransientSensorFault Fault = iota
	// HardSensorFault is logged and the frame is zeroed.
	HardSensorFault
	// ImageProcessingFault is logged and the previous image is kept.
	ImageProcessingFault
	// PersistenceFault is logged and no confirmation is shown.
	PersistenceFault
)

func (f Fault) String() string {
	switch f {
	case TransientSensorFault:
		return "TransientSensorFault"
	case HardSensorFault:
		return "HardSensorFault"
	case ImageProcessingFault:
		return "ImageProcessingFault"
	case PersistenceFault:
		return "PersistenceFault"
	default:
		return fmt.Sprintf("Fault(%d)", int(f))
	}
}

// Error is a classified failure.
type Error struct {
	Fault Fault
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Fault, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsTransient returns true if a Source error is expected to clear on the next
// read.
//
// A Source marks such errors by implementing Transient() bool.
func IsTransient(err error) bool {
	var t interface{ Transient() bool }
	return errors.As(err, &t) && t.Transient()
}

// FaultOf returns the classification of an error returned by this package.
func FaultOf(err error) (Fault, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Fault, true
	}
	return 0, false
}
