// Package ina226 provides a driver for the INA226 high-side/low-side,
// bi-directional current and power monitor.
//
// Design notes (datasheet references):
// • I2C, read/write word protocol; data-high then data-low (big-endian).
// • External shunt; the chip multiplies shunt counts by the calibration
//   register internally, so current/power registers read in LSB units
//   fixed at Configure time.
// • Integer-only scaling throughout (mV, µV, µA, µW).
//
// NOTE: I2C.Tx MUST perform a write followed by a repeated-start read when
// both w and r are provided, without releasing the bus.
package ina226

import (
	"time"

	"tinygo.org/x/drivers"

	"powermon-go/x/mathx"
)

// Config holds the physical parameters for one chip.
type Config struct {
	// Address defaults to AddressDefault if zero.
	Address uint16
	// MaxBusAmps is the expected maximum current in whole amps.
	MaxBusAmps uint32
	// ShuntMicroOhms is the external shunt resistance in µΩ.
	ShuntMicroOhms uint32
	// PollInterval paces WaitForConversion status reads. Default 1 ms.
	PollInterval time.Duration
}

// Device represents one INA226 on an I²C bus.
type Device struct {
	i2c  drivers.I2C
	addr uint16

	cal  Calibration
	mode Mode

	maxBusAmps uint32
	shuntUOhm  uint32
	poll       time.Duration

	// Fixed buffers to avoid per-call heap allocations.
	w [3]byte
	r [2]byte
}

// New constructs a Device with the supplied config. It does not touch the
// hardware; call Configure before reading.
func New(i2c drivers.I2C, cfg Config) *Device {
	addr := cfg.Address
	if addr == 0 {
		addr = AddressDefault
	}
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = time.Millisecond
	}
	return &Device{
		i2c:        i2c,
		addr:       addr,
		maxBusAmps: cfg.MaxBusAmps,
		shuntUOhm:  cfg.ShuntMicroOhms,
		poll:       poll,
	}
}

// Configure runs the calibration engine, writes the calibration register
// and the default configuration word, and caches the scale constants. The
// descriptor is fully populated on success; only the operating mode
// mutates afterwards.
func (d *Device) Configure() error {
	cal, err := Calibrate(d.maxBusAmps, d.shuntUOhm)
	if err != nil {
		return err
	}
	if err := d.writeWord(regCalibration, cal.Register); err != nil {
		return err
	}
	if err := d.writeWord(regConfiguration, cfgDefault); err != nil {
		return err
	}
	d.cal = cal
	d.mode = ConfigWord(cfgDefault).Mode()
	return nil
}

// Introspection.
func (d *Device) Address() uint16               { return d.addr }
func (d *Device) CalibrationScale() Calibration { return d.cal }
func (d *Device) OperatingMode() Mode           { return d.mode }
func (d *Device) MaxBusAmps() uint32            { return d.maxBusAmps }
func (d *Device) ShuntMicroOhms() uint32        { return d.shuntUOhm }

// Readings (integer units)

// BusMilliVolts reads and decodes the bus-voltage register.
func (d *Device) BusMilliVolts() (int32, error) {
	raw, err := d.readS16(regBusVoltage)
	if err != nil {
		return 0, err
	}
	return BusMilliVolts(raw), nil
}

// ShuntMicroVolts reads and decodes the shunt-voltage register. The result
// is signed; current may flow either way through the shunt.
func (d *Device) ShuntMicroVolts() (int32, error) {
	raw, err := d.readS16(regShuntVoltage)
	if err != nil {
		return 0, err
	}
	return ShuntMicroVolts(raw), nil
}

// CurrentMicroAmps reads the current register and scales it by the
// device's current LSB. The caller is responsible for having triggered or
// awaited a conversion in triggered modes.
func (d *Device) CurrentMicroAmps() (int32, error) {
	raw, err := d.readS16(regCurrent)
	if err != nil {
		return 0, err
	}
	return CurrentMicroAmps(raw, d.cal.CurrentLSB), nil
}

// PowerMicroWatts reads the power register and scales it by the device's
// power LSB.
func (d *Device) PowerMicroWatts() (int32, error) {
	raw, err := d.readWord(regPower)
	if err != nil {
		return 0, err
	}
	return PowerMicroWatts(raw, d.cal.PowerLSB), nil
}

// Configuration register control (read-modify-write per field).

// SetMode updates the mode bits and the cached operating mode.
func (d *Device) SetMode(m Mode) error {
	if !m.Valid() {
		return ErrInvalidMode
	}
	cur, err := d.readWord(regConfiguration)
	if err != nil {
		return err
	}
	if err := d.writeWord(regConfiguration, uint16(ConfigWord(cur).WithMode(m))); err != nil {
		return err
	}
	d.mode = m
	return nil
}

// Mode reads the mode bits back from the configuration register.
func (d *Device) Mode() (Mode, error) {
	cur, err := d.readWord(regConfiguration)
	if err != nil {
		return 0, err
	}
	return ConfigWord(cur).Mode(), nil
}

// SetAveraging maps samples to the nearest legal averaging count
// (1/4/16/64/128/256/512/1024) and updates only the averaging bits.
func (d *Device) SetAveraging(samples uint16) error {
	cur, err := d.readWord(regConfiguration)
	if err != nil {
		return err
	}
	next := ConfigWord(cur).WithAveragingCode(AveragingCode(samples))
	return d.writeWord(regConfiguration, uint16(next))
}

// Averaging reads back the effective averaging sample count.
func (d *Device) Averaging() (uint16, error) {
	cur, err := d.readWord(regConfiguration)
	if err != nil {
		return 0, err
	}
	return AveragingSamples(ConfigWord(cur).AveragingCode()), nil
}

// SetBusConversionTime maps micros to the nearest legal per-sample bus
// conversion time (140–8244 µs) and updates only the bus-time bits.
func (d *Device) SetBusConversionTime(micros uint16) error {
	cur, err := d.readWord(regConfiguration)
	if err != nil {
		return err
	}
	next := ConfigWord(cur).WithBusTimeCode(ConversionCode(micros))
	return d.writeWord(regConfiguration, uint16(next))
}

// SetShuntConversionTime is the shunt-side counterpart of
// SetBusConversionTime.
func (d *Device) SetShuntConversionTime(micros uint16) error {
	cur, err := d.readWord(regConfiguration)
	if err != nil {
		return err
	}
	next := ConfigWord(cur).WithShuntTimeCode(ConversionCode(micros))
	return d.writeWord(regConfiguration, uint16(next))
}

// Reset writes the reset bit pattern, restoring hardware defaults. The
// calibration register is cleared by the chip; re-run Configure to
// restore scaling.
func (d *Device) Reset() error {
	return d.writeWord(regConfiguration, cfgReset)
}

// SetAlertOnConversionReady routes (or stops routing) the conversion-ready
// condition to the ALERT pin, leaving the other mask bits untouched. The
// read-only status flags (AFF/CVRF/OVF) are masked out of the write-back.
func (d *Device) SetAlertOnConversionReady(on bool) error {
	cur, err := d.readWord(regMaskEnable)
	if err != nil {
		return err
	}
	if (cur&maskConvReadyAlert != 0) == on {
		return nil
	}
	next := cur &^ maskStatusFlags
	if on {
		next |= maskConvReadyAlert
	} else {
		next &^= maskConvReadyAlert
	}
	return d.writeWord(regMaskEnable, next)
}

// ConversionReady reads the CVRF flag. The flag clears when the
// mask/enable register is read, so one poll both samples and re-arms it.
func (d *Device) ConversionReady() (bool, error) {
	v, err := d.readWord(regMaskEnable)
	if err != nil {
		return false, err
	}
	return v&maskConvReadyFlag != 0, nil
}

// WaitForConversion polls CVRF until a conversion completes. The wait is
// bounded by twice the configured conversion budget (per-sample times ×
// averaging count) plus a small margin; expiry returns
// ErrConversionTimeout, never a stale reading.
func (d *Device) WaitForConversion() error {
	cfg, err := d.readWord(regConfiguration)
	if err != nil {
		return err
	}
	budget := time.Duration(ConfigWord(cfg).ConversionBudgetMicros()) * time.Microsecond
	deadline := time.Now().Add(2*budget + 2*time.Millisecond)
	interval := mathx.Min(d.poll, budget/4+time.Microsecond*50)

	for {
		ready, err := d.ConversionReady()
		if err != nil {
			return err
		}
		if ready {
			return nil
		}
		if time.Now().After(deadline) {
			return ErrConversionTimeout
		}
		time.Sleep(interval)
	}
}

// Identification.

// ManufacturerID reads the manufacturer register (0x5449, "TI").
func (d *Device) ManufacturerID() (uint16, error) { return d.readWord(regManufacturerID) }

// DieID reads the die identification register.
func (d *Device) DieID() (uint16, error) { return d.readWord(regDieID) }

// AlertLimit reads the raw alert-limit register.
func (d *Device) AlertLimit() (uint16, error) { return d.readWord(regAlertLimit) }

// SetAlertLimit writes the raw alert-limit register.
func (d *Device) SetAlertLimit(v uint16) error { return d.writeWord(regAlertLimit, v) }

// Connected probes addr for an INA226 by manufacturer-ID readback.
func Connected(i2c drivers.I2C, addr uint16) bool {
	var w [1]byte
	var r [2]byte
	w[0] = regManufacturerID
	if err := i2c.Tx(addr, w[:1], r[:2]); err != nil {
		return false
	}
	return uint16(r[0])<<8|uint16(r[1]) == ManufacturerTI
}

// Scan probes the strap-selectable address range and returns every address
// with a responding INA226, in ascending order.
func Scan(i2c drivers.I2C) []uint16 {
	var found []uint16
	for addr := uint16(ScanFirst); addr <= ScanLast; addr++ {
		if Connected(i2c, addr) {
			found = append(found, addr)
		}
	}
	return found
}

// ---------------- Low-level I2C (READ/WRITE WORD) ----------------

// Big-endian on the wire: HIGH then LOW (unlike SMBus word order).

func (d *Device) readWord(reg byte) (uint16, error) {
	d.w[0] = reg
	if err := d.i2c.Tx(d.addr, d.w[:1], d.r[:2]); err != nil {
		return 0, err
	}
	return uint16(d.r[0])<<8 | uint16(d.r[1]), nil
}

func (d *Device) readS16(reg byte) (int16, error) {
	u, err := d.readWord(reg)
	return int16(u), err
}

func (d *Device) writeWord(reg byte, val uint16) error {
	d.w[0] = reg
	d.w[1] = byte(val >> 8) // high
	d.w[2] = byte(val)      // low
	return d.i2c.Tx(d.addr, d.w[:3], nil)
}
