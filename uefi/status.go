// Copyright (c) The sevdxe authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package uefi

import (
	"errors"
	"fmt"
)

// EFI_STATUS error bit
const errorBit = 1 << 63

// EFI_STATUS codes (Appendix D), error codes are expressed without the error
// bit and must be compared against status&0xff.
const (
	EFI_SUCCESS = iota
	EFI_LOAD_ERROR
	EFI_INVALID_PARAMETER
	EFI_UNSUPPORTED
	EFI_BAD_BUFFER_SIZE
	EFI_BUFFER_TOO_SMALL
	EFI_NOT_READY
	EFI_DEVICE_ERROR
	EFI_WRITE_PROTECTED
	EFI_OUT_OF_RESOURCES
	EFI_VOLUME_CORRUPTED
	EFI_VOLUME_FULL
	EFI_NO_MEDIA
	EFI_MEDIA_CHANGED
	EFI_NOT_FOUND
	EFI_ACCESS_DENIED
	EFI_NO_RESPONSE
	EFI_NO_MAPPING
	EFI_TIMEOUT
	EFI_NOT_STARTED
	EFI_ALREADY_STARTED
	EFI_ABORTED
)

var statusNames = map[uint64]string{
	EFI_SUCCESS:           "EFI_SUCCESS",
	EFI_LOAD_ERROR:        "EFI_LOAD_ERROR",
	EFI_INVALID_PARAMETER: "EFI_INVALID_PARAMETER",
	EFI_UNSUPPORTED:       "EFI_UNSUPPORTED",
	EFI_BAD_BUFFER_SIZE:   "EFI_BAD_BUFFER_SIZE",
	EFI_BUFFER_TOO_SMALL:  "EFI_BUFFER_TOO_SMALL",
	EFI_NOT_READY:         "EFI_NOT_READY",
	EFI_DEVICE_ERROR:      "EFI_DEVICE_ERROR",
	EFI_WRITE_PROTECTED:   "EFI_WRITE_PROTECTED",
	EFI_OUT_OF_RESOURCES:  "EFI_OUT_OF_RESOURCES",
	EFI_VOLUME_CORRUPTED:  "EFI_VOLUME_CORRUPTED",
	EFI_VOLUME_FULL:       "EFI_VOLUME_FULL",
	EFI_NO_MEDIA:          "EFI_NO_MEDIA",
	EFI_MEDIA_CHANGED:     "EFI_MEDIA_CHANGED",
	EFI_NOT_FOUND:         "EFI_NOT_FOUND",
	EFI_ACCESS_DENIED:     "EFI_ACCESS_DENIED",
	EFI_NO_RESPONSE:       "EFI_NO_RESPONSE",
	EFI_NO_MAPPING:        "EFI_NO_MAPPING",
	EFI_TIMEOUT:           "EFI_TIMEOUT",
	EFI_NOT_STARTED:       "EFI_NOT_STARTED",
	EFI_ALREADY_STARTED:   "EFI_ALREADY_STARTED",
	EFI_ABORTED:           "EFI_ABORTED",
}

// StatusError represents a failed EFI_STATUS.
type StatusError struct {
	Status uint64
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	code := e.Status &^ errorBit

	if name, ok := statusNames[code]; ok {
		return fmt.Sprintf("EFI_STATUS error %#x (%s)", e.Status, name)
	}

	return fmt.Sprintf("EFI_STATUS error %#x (%d)", e.Status, code&0xff)
}

// Is allows comparison against the package error variables with
// [errors.Is].
func (e *StatusError) Is(target error) bool {
	t, ok := target.(*StatusError)
	return ok && (t.Status&^errorBit) == (e.Status&^errorBit)
}

// EFI_STATUS errors
var (
	ErrInvalidParameter = &StatusError{errorBit | EFI_INVALID_PARAMETER}
	ErrUnsupported      = &StatusError{errorBit | EFI_UNSUPPORTED}
	ErrDeviceError      = &StatusError{errorBit | EFI_DEVICE_ERROR}
	ErrOutOfResources   = &StatusError{errorBit | EFI_OUT_OF_RESOURCES}
	ErrNotFound         = &StatusError{errorBit | EFI_NOT_FOUND}
	ErrNoMapping        = &StatusError{errorBit | EFI_NO_MAPPING}
	ErrAborted          = &StatusError{errorBit | EFI_ABORTED}
)

func parseStatus(status uint64) (err error) {
	switch {
	case status == EFI_SUCCESS:
		return
	case status&errorBit == 0:
		// warning codes are not errors
		return
	default:
		return &StatusError{Status: status}
	}
}

// StatusCode returns the EFI_STATUS value representing the argument error,
// suitable for returning to the firmware dispatcher. Errors which do not wrap
// a StatusError are reported as EFI_ABORTED.
func StatusCode(err error) uint64 {
	var s *StatusError

	if err == nil {
		return EFI_SUCCESS
	}

	if errors.As(err, &s) {
		return s.Status | errorBit
	}

	return ErrAborted.Status
}

// LookupStatus returns the error matching an EFI_STATUS name (e.g.
// "EFI_NO_MAPPING").
func LookupStatus(name string) (err *StatusError, ok bool) {
	for code, n := range statusNames {
		if n == name && code != EFI_SUCCESS {
			return &StatusError{Status: errorBit | code}, true
		}
	}

	return
}
