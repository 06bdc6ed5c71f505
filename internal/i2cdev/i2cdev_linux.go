//go:build linux

// Package i2cdev adapts a Linux /dev/i2c-N character device to the
// drivers.I2C interface. Combined write+read transactions are issued as a
// single I2C_RDWR ioctl so the read happens under a repeated start, which
// register-pointer devices require.
package i2cdev

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	i2cRDWR = 0x0707
	i2cMRd  = 0x0001
)

type i2cMsg struct {
	addr  uint16
	flags uint16
	len   uint16
	_     uint16
	buf   uintptr
}

type i2cRdwrData struct {
	msgs  uintptr
	nmsgs uint32
}

// Bus is one open I²C adapter.
type Bus struct {
	f *os.File
}

// Open opens /dev/i2c-<n>.
func Open(busNumber int) (*Bus, error) {
	path := fmt.Sprintf("/dev/i2c-%d", busNumber)
	return OpenPath(path)
}

// OpenPath opens an adapter by device path.
func OpenPath(path string) (*Bus, error) {
	f, err := os.OpenFile(path, unix.O_RDWR, 0o666)
	if err != nil {
		return nil, err
	}
	return &Bus{f: f}, nil
}

func (b *Bus) Close() error { return b.f.Close() }

// Tx implements drivers.I2C. A non-empty w is written first; a non-empty r
// is then read in the same transaction.
func (b *Bus) Tx(addr uint16, w, r []byte) error {
	var msgs [2]i2cMsg
	n := 0
	if len(w) > 0 {
		msgs[n] = i2cMsg{
			addr: addr,
			len:  uint16(len(w)),
			buf:  uintptr(unsafe.Pointer(&w[0])),
		}
		n++
	}
	if len(r) > 0 {
		msgs[n] = i2cMsg{
			addr:  addr,
			flags: i2cMRd,
			len:   uint16(len(r)),
			buf:   uintptr(unsafe.Pointer(&r[0])),
		}
		n++
	}
	if n == 0 {
		return nil
	}
	return b.transfer(&msgs[0], n)
}

func (b *Bus) transfer(msgs *i2cMsg, n int) error {
	data := i2cRdwrData{
		msgs:  uintptr(unsafe.Pointer(msgs)),
		nmsgs: uint32(n),
	}
	_, _, errno := unix.Syscall(
		unix.SYS_IOCTL,
		b.f.Fd(),
		uintptr(i2cRDWR),
		uintptr(unsafe.Pointer(&data)),
	)
	if errno != 0 {
		return errno
	}
	return nil
}
