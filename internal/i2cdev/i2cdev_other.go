//go:build !linux

package i2cdev

import "errors"

var errUnsupported = errors.New("i2cdev: only supported on linux")

type Bus struct{}

func Open(busNumber int) (*Bus, error)   { return nil, errUnsupported }
func OpenPath(path string) (*Bus, error) { return nil, errUnsupported }

func (b *Bus) Close() error { return errUnsupported }

func (b *Bus) Tx(addr uint16, w, r []byte) error { return errUnsupported }
