/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package engine

import "errors"

// Code is a numeric status reported by engine calls and completion callbacks.
// CodeSuccess is the only code that does not map to an error.
type Code uint32

// engine status codes.
const (
	CodeSuccess Code = 0

	CodeUnknown                 Code = 1001
	CodeOptionsValidation       Code = 1002
	CodeMalformedPayload        Code = 1003
	CodeInvalidConnectionHandle Code = 1004
	CodeInvalidHandle           Code = 1005
)

var (
	// ErrUnknown is returned when an operation fails for a reason the engine cannot classify,
	// including releasing a session that never held a handle.
	ErrUnknown = errors.New("unknown error")
	// ErrOptionsValidation is returned when a required construction field is missing.
	ErrOptionsValidation = errors.New("invalid options: missing required field")
	// ErrMalformedPayload is returned when a payload expected to be structured data fails to parse
	// or a snapshot is structurally invalid.
	ErrMalformedPayload = errors.New("malformed payload")
	// ErrInvalidConnectionHandle is returned when the supplied connection carries no usable handle.
	ErrInvalidConnectionHandle = errors.New("invalid connection handle")
	// ErrInvalidHandle is returned when an operation targets a handle that is uninitialized
	// or already released.
	ErrInvalidHandle = errors.New("invalid handle")
)

// Err maps a status code to its sentinel error. CodeSuccess maps to nil.
func (c Code) Err() error {
	switch c {
	case CodeSuccess:
		return nil
	case CodeOptionsValidation:
		return ErrOptionsValidation
	case CodeMalformedPayload:
		return ErrMalformedPayload
	case CodeInvalidConnectionHandle:
		return ErrInvalidConnectionHandle
	case CodeInvalidHandle:
		return ErrInvalidHandle
	default:
		return ErrUnknown
	}
}

// CodeOf maps an error to the status code carried across the callback boundary.
func CodeOf(err error) Code {
	switch {
	case err == nil:
		return CodeSuccess
	case errors.Is(err, ErrOptionsValidation):
		return CodeOptionsValidation
	case errors.Is(err, ErrMalformedPayload):
		return CodeMalformedPayload
	case errors.Is(err, ErrInvalidConnectionHandle):
		return CodeInvalidConnectionHandle
	case errors.Is(err, ErrInvalidHandle):
		return CodeInvalidHandle
	default:
		return CodeUnknown
	}
}
