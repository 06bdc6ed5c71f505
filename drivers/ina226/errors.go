package ina226

import "errors"

var (
	// Sentinel errors (TinyGo-safe; no fmt)
	ErrCalibrationRange  = errors.New("ina226: calibration out of 16-bit range for given shunt/current")
	ErrConversionTimeout = errors.New("ina226: conversion-ready wait timed out")
	ErrInvalidMode       = errors.New("ina226: invalid operating mode")
	ErrShuntUnset        = errors.New("ina226: ShuntMicroOhms must be set")
	ErrMaxAmpsUnset      = errors.New("ina226: MaxBusAmps must be set")
)
