package errcode

import (
	"errors"

	"powermon-go/drivers/ina226"
)

// Code is a stable, bus-facing error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK             Code = "ok"
	Busy           Code = "busy"
	Unsupported    Code = "unsupported"
	InvalidParams  Code = "invalid_params"
	InvalidPayload Code = "invalid_payload"

	UnknownDevice    Code = "unknown_device"
	DeviceTableFull  Code = "device_table_full"
	NoDeviceFound    Code = "no_device_found"
	CalibrationRange Code = "calibration_range"
	Timeout          Code = "timeout"
	Transport        Code = "transport"

	Error Code = "error" // generic fallback
)

// Optional wrapper when we want to keep context and a cause.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	if e.Msg != "" {
		return string(e.C) + ": " + e.Msg
	}
	return string(e.C)
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	if c, ok := err.(Code); ok {
		return c
	}
	type coder interface{ Code() Code }
	if x, ok := err.(coder); ok {
		return x.Code()
	}
	return Error
}

// MapDriverErr maps low-level driver and monitor errors to a Code.
// Anything unrecognised is assumed to come from the bus transaction layer.
func MapDriverErr(err error) Code {
	switch {
	case err == nil:
		return OK
	case errors.Is(err, ina226.ErrCalibrationRange),
		errors.Is(err, ina226.ErrShuntUnset),
		errors.Is(err, ina226.ErrMaxAmpsUnset):
		return CalibrationRange
	case errors.Is(err, ina226.ErrConversionTimeout):
		return Timeout
	case errors.Is(err, ina226.ErrInvalidMode):
		return InvalidParams
	default:
		if c := Of(err); c != Error {
			return c
		}
		return Transport
	}
}
