// Package ina226 provides constants for register addresses and bitfields used
// in the operation of the INA226 current/power monitor.
package ina226

const (
	// 7-bit I2C address with A0/A1 strapped to GND.
	AddressDefault = 0x40

	// Strap-selectable address range scanned during discovery.
	ScanFirst = 0x40
	ScanLast  = 0x4F

	// MANUFACTURER_ID reads "TI".
	ManufacturerTI = 0x5449

	// --- Register sub-addresses (16-bit word registers) ---

	regConfiguration  = 0x00 // R/W
	regShuntVoltage   = 0x01 // R, signed, 2.5 µV/LSB
	regBusVoltage     = 0x02 // R, 1.25 mV/LSB
	regPower          = 0x03 // R, powerLSB/LSB
	regCurrent        = 0x04 // R, signed, currentLSB/LSB
	regCalibration    = 0x05 // R/W
	regMaskEnable     = 0x06 // R/W
	regAlertLimit     = 0x07 // R/W
	regManufacturerID = 0xFE // R
	regDieID          = 0xFF // R

	// --- Configuration register (0x00) ---

	cfgReset   = 0x8000 // self-clearing reset bit
	cfgDefault = 0x4127 // power-on default: avg=1, 1.1ms/1.1ms, continuous both

	cfgAvgMask      = 0x0E00 // bits 9-11
	cfgAvgShift     = 9
	cfgBusCTMask    = 0x01C0 // bits 6-8
	cfgBusCTShift   = 6
	cfgShuntCTMask  = 0x0038 // bits 3-5
	cfgShuntCTShift = 3
	cfgModeMask     = 0x0007 // bits 0-2

	// --- Mask/Enable register (0x06) ---

	maskConvReadyAlert = 0x0400 // CNVR: route conversion-ready to ALERT pin
	maskConvReadyFlag  = 0x0008 // CVRF: set when a conversion completes
	maskStatusFlags    = 0x001C // AFF/CVRF/OVF: read-only, never written back

	// Fixed-point voltage scale factors.
	busVoltageLSB   = 125 // µV×100 per count (1.25 mV)
	shuntVoltageLSB = 25  // µV×10 per count (2.5 µV)
)

// Mode selects which conversions run and whether continuously or triggered.
type Mode uint8

const (
	ModePowerDown      Mode = 0
	ModeTriggeredShunt Mode = 1
	ModeTriggeredBus   Mode = 2
	ModeTriggeredBoth  Mode = 3
	// Mode 4 is reserved on the chip and behaves as power-down.
	ModeContinuousShunt Mode = 5
	ModeContinuousBus   Mode = 6
	ModeContinuousBoth  Mode = 7
)

// Valid reports whether m is one of the 3-bit encodings the chip accepts.
func (m Mode) Valid() bool { return m <= 7 }

// Continuous reports whether conversions free-run in this mode.
func (m Mode) Continuous() bool { return m >= ModeContinuousShunt }

// Triggered reports whether this mode performs one-shot conversions.
func (m Mode) Triggered() bool { return m >= ModeTriggeredShunt && m <= ModeTriggeredBoth }
