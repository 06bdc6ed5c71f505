// Package monitor owns the table of attached INA226 devices on one I²C bus
// and sequences all register I/O against it.
//
// The table is bounded and append-only: an entry is created fully populated
// by Init and only its operating mode mutates afterwards. All calls are
// blocking and must be serialised by the caller; the monitor takes no locks.
package monitor

import (
	"time"

	"tinygo.org/x/drivers"

	"powermon-go/drivers/ina226"
	"powermon-go/errcode"
	"powermon-go/types"
	"powermon-go/x/timex"
)

// DefaultCapacity bounds the device table unless Config overrides it.
const DefaultCapacity = 16

// Sentinels carry their bus-facing code so errcode.Of classifies them
// without a mapping table.
var (
	ErrUnknownDevice = &errcode.E{C: errcode.UnknownDevice, Op: "monitor", Msg: "unknown device index"}
	ErrTableFull     = &errcode.E{C: errcode.DeviceTableFull, Op: "monitor", Msg: "device table full"}
	ErrNoDeviceFound = &errcode.E{C: errcode.NoDeviceFound, Op: "monitor", Msg: "no unclaimed device found on bus"}
)

// Config tunes the monitor. The zero value is usable.
type Config struct {
	// Capacity of the device table. Default DefaultCapacity.
	Capacity int
	// PollInterval paces conversion-ready waits on every device.
	PollInterval time.Duration
}

// Params describes one device to initialise. The bus address is passed
// separately: Init takes it explicitly, InitNext discovers it.
type Params struct {
	// MaxBusAmps is the expected maximum current in whole amps.
	MaxBusAmps uint32
	// ShuntMicroOhms is the external shunt resistance in µΩ.
	ShuntMicroOhms uint32
}

// Target selects the devices an operation applies to.
type Target struct {
	all   bool
	index int
}

// One targets a single device by its table index.
func One(index int) Target { return Target{index: index} }

// All targets every registered device.
func All() Target { return Target{all: true} }

// Monitor is the conversion controller plus device table.
type Monitor struct {
	i2c  drivers.I2C
	cap  int
	poll time.Duration
	devs []*ina226.Device
}

// New creates an empty monitor on the given bus.
func New(i2c drivers.I2C, cfg Config) *Monitor {
	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Monitor{
		i2c:  i2c,
		cap:  capacity,
		poll: cfg.PollInterval,
		devs: make([]*ina226.Device, 0, capacity),
	}
}

// Init calibrates and configures the device at addr and appends it to the
// table, returning its index.
func (m *Monitor) Init(addr uint16, p Params) (int, error) {
	if len(m.devs) >= m.cap {
		return 0, ErrTableFull
	}
	dev := ina226.New(m.i2c, ina226.Config{
		Address:        addr,
		MaxBusAmps:     p.MaxBusAmps,
		ShuntMicroOhms: p.ShuntMicroOhms,
		PollInterval:   m.poll,
	})
	if err := dev.Configure(); err != nil {
		return 0, err
	}
	m.devs = append(m.devs, dev)
	return len(m.devs) - 1, nil
}

// InitNext scans the chip's strap address range for the next responding
// device not already in the table and initialises it like Init.
func (m *Monitor) InitNext(p Params) (int, error) {
	if len(m.devs) >= m.cap {
		return 0, ErrTableFull
	}
	addr, err := m.discover()
	if err != nil {
		return 0, err
	}
	return m.Init(addr, p)
}

func (m *Monitor) discover() (uint16, error) {
	for _, addr := range ina226.Scan(m.i2c) {
		if !m.claimed(addr) {
			return addr, nil
		}
	}
	return 0, ErrNoDeviceFound
}

func (m *Monitor) claimed(addr uint16) bool {
	for _, d := range m.devs {
		if d.Address() == addr {
			return true
		}
	}
	return false
}

// Devices returns the number of registered devices.
func (m *Monitor) Devices() int { return len(m.devs) }

func (m *Monitor) device(index int) (*ina226.Device, error) {
	if index < 0 || index >= len(m.devs) {
		return nil, ErrUnknownDevice
	}
	return m.devs[index], nil
}

func (m *Monitor) each(t Target, f func(*ina226.Device) error) error {
	if !t.all {
		d, err := m.device(t.index)
		if err != nil {
			return err
		}
		return f(d)
	}
	for _, d := range m.devs {
		if err := f(d); err != nil {
			return err
		}
	}
	return nil
}

// Configuration operations. All are bit-level read-modify-writes on the
// configuration (or mask/enable) register of each targeted device.

func (m *Monitor) SetMode(t Target, mode ina226.Mode) error {
	return m.each(t, func(d *ina226.Device) error { return d.SetMode(mode) })
}

// ModeOf reads the mode bits back from the device's configuration register.
func (m *Monitor) ModeOf(index int) (ina226.Mode, error) {
	d, err := m.device(index)
	if err != nil {
		return 0, err
	}
	return d.Mode()
}

func (m *Monitor) SetAveraging(t Target, samples uint16) error {
	return m.each(t, func(d *ina226.Device) error { return d.SetAveraging(samples) })
}

func (m *Monitor) SetBusConversionTime(t Target, micros uint16) error {
	return m.each(t, func(d *ina226.Device) error { return d.SetBusConversionTime(micros) })
}

func (m *Monitor) SetShuntConversionTime(t Target, micros uint16) error {
	return m.each(t, func(d *ina226.Device) error { return d.SetShuntConversionTime(micros) })
}

func (m *Monitor) SetAlertOnConversionReady(t Target, on bool) error {
	return m.each(t, func(d *ina226.Device) error { return d.SetAlertOnConversionReady(on) })
}

// Reset restores one device's hardware defaults. Calibration is cleared by
// the chip; re-run Init for that channel to restore scaling.
func (m *Monitor) Reset(index int) error {
	d, err := m.device(index)
	if err != nil {
		return err
	}
	return d.Reset()
}

// WaitForConversion blocks until the device's conversion-ready flag sets,
// bounded by the configured conversion budget.
func (m *Monitor) WaitForConversion(index int) error {
	d, err := m.device(index)
	if err != nil {
		return err
	}
	return d.WaitForConversion()
}

// Readings.

func (m *Monitor) BusMilliVolts(index int, wait bool) (int32, error) {
	d, err := m.device(index)
	if err != nil {
		return 0, err
	}
	if wait {
		if err := d.WaitForConversion(); err != nil {
			return 0, err
		}
	}
	return d.BusMilliVolts()
}

func (m *Monitor) ShuntMicroVolts(index int, wait bool) (int32, error) {
	d, err := m.device(index)
	if err != nil {
		return 0, err
	}
	if wait {
		if err := d.WaitForConversion(); err != nil {
			return 0, err
		}
	}
	return d.ShuntMicroVolts()
}

// CurrentMicroAmps does not wait for a conversion; in triggered modes the
// caller awaits one first.
func (m *Monitor) CurrentMicroAmps(index int) (int32, error) {
	d, err := m.device(index)
	if err != nil {
		return 0, err
	}
	return d.CurrentMicroAmps()
}

func (m *Monitor) PowerMicroWatts(index int) (int32, error) {
	d, err := m.device(index)
	if err != nil {
		return 0, err
	}
	return d.PowerMicroWatts()
}

// Info returns the static descriptor for one channel.
func (m *Monitor) Info(index int) (types.MonitorInfo, error) {
	d, err := m.device(index)
	if err != nil {
		return types.MonitorInfo{}, err
	}
	cal := d.CalibrationScale()
	return types.MonitorInfo{
		Addr:          d.Address(),
		Shunt_uOhm:    d.ShuntMicroOhms(),
		MaxBusAmps:    d.MaxBusAmps(),
		Calibration:   cal.Register,
		CurrentLSB_nA: cal.CurrentLSB,
		PowerLSB_nW:   cal.PowerLSB,
		Driver:        "ina226",
		SchemaVersion: 1,
	}, nil
}

// Snapshot reads all four converted quantities from one channel. Any read
// failure fails the whole snapshot; a failed read is never reported as a
// zero sample.
func (m *Monitor) Snapshot(index int) (types.PowerValue, error) {
	d, err := m.device(index)
	if err != nil {
		return types.PowerValue{}, err
	}
	bus, err := d.BusMilliVolts()
	if err != nil {
		return types.PowerValue{}, err
	}
	shunt, err := d.ShuntMicroVolts()
	if err != nil {
		return types.PowerValue{}, err
	}
	amps, err := d.CurrentMicroAmps()
	if err != nil {
		return types.PowerValue{}, err
	}
	watts, err := d.PowerMicroWatts()
	if err != nil {
		return types.PowerValue{}, err
	}
	return types.PowerValue{
		Bus_mV:     bus,
		Shunt_uV:   shunt,
		Current_uA: amps,
		Power_uW:   watts,
		TsMs:       timex.NowMs(),
	}, nil
}
