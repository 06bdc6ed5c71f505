package errcode

import (
	"errors"
	"testing"

	"powermon-go/drivers/ina226"
)

func TestOf(t *testing.T) {
	if Of(nil) != OK {
		t.Error("Of(nil) != OK")
	}
	if Of(Timeout) != Timeout {
		t.Error("bare Code not extracted")
	}
	e := &E{C: UnknownDevice, Op: "monitor", Msg: "unknown device index"}
	if Of(e) != UnknownDevice {
		t.Error("wrapped code not extracted")
	}
	if Of(errors.New("plain")) != Error {
		t.Error("plain error should fall back to Error")
	}
}

func TestEError(t *testing.T) {
	e := &E{C: Timeout, Msg: "conversion wait expired"}
	if e.Error() != "timeout: conversion wait expired" {
		t.Errorf("Error() = %q", e.Error())
	}
	cause := errors.New("cause")
	if !errors.Is(&E{C: Transport, Err: cause}, cause) {
		t.Error("E does not unwrap to its cause")
	}
}

func TestMapDriverErr(t *testing.T) {
	cases := []struct {
		err  error
		want Code
	}{
		{nil, OK},
		{ina226.ErrCalibrationRange, CalibrationRange},
		{ina226.ErrShuntUnset, CalibrationRange},
		{ina226.ErrMaxAmpsUnset, CalibrationRange},
		{ina226.ErrConversionTimeout, Timeout},
		{ina226.ErrInvalidMode, InvalidParams},
		{&E{C: DeviceTableFull}, DeviceTableFull},
		{errors.New("i2c: nack"), Transport},
	}
	for _, c := range cases {
		if got := MapDriverErr(c.err); got != c.want {
			t.Errorf("MapDriverErr(%v) = %s, want %s", c.err, got, c.want)
		}
	}
}
