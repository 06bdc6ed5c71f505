package ina226

// Calibration engine. Pure integer computation, run once per device during
// Configure. The fixed-point convention is nanoamps per count for the
// current LSB, which keeps sub-amp ranges exact in integer math; the power
// LSB is the chip-fixed 25× multiple (nanowatts per count).

// calScale is the datasheet scaling constant 0.00512, pre-multiplied into
// the working units: 0.00512 × 1e9 (A→nA) × 1e6 (Ω→µΩ).
const calScale = uint64(5_120_000_000_000)

// Calibration is the scale triple derived from the physical parameters.
// All three are fixed for a device's lifetime once written.
type Calibration struct {
	Register   uint16 // value written to the calibration register
	CurrentLSB uint32 // nA per current-register count
	PowerLSB   uint32 // nW per power-register count, always 25×CurrentLSB
}

// Calibrate derives the calibration register value and LSB scale constants
// for a maximum expected current (whole amps) and a shunt resistance (µΩ).
//
// The baseline LSB spreads maxBusAmps over the signed ADC half-range
// (maxBusAmps/2^15). If that would push the calibration register past
// 0xFFFF the LSB is doubled until the register fits, trading resolution
// for range in power-of-two steps. If the register floors to zero even at
// the baseline, no LSB can both cover maxBusAmps and keep a nonzero
// register value, and ErrCalibrationRange is returned rather than a
// silent clamp.
func Calibrate(maxBusAmps, shuntMicroOhms uint32) (Calibration, error) {
	if shuntMicroOhms == 0 {
		return Calibration{}, ErrShuntUnset
	}
	if maxBusAmps == 0 {
		return Calibration{}, ErrMaxAmpsUnset
	}

	lsb := uint64(maxBusAmps) * 1_000_000_000 / 32768
	if lsb == 0 {
		lsb = 1
	}

	reg := calScale / (lsb * uint64(shuntMicroOhms))
	if reg == 0 {
		return Calibration{}, ErrCalibrationRange
	}
	for reg > 0xFFFF {
		lsb *= 2
		reg = calScale / (lsb * uint64(shuntMicroOhms))
	}
	if lsb > 0xFFFF_FFFF || lsb*25 > 0xFFFF_FFFF {
		return Calibration{}, ErrCalibrationRange
	}

	return Calibration{
		Register:   uint16(reg),
		CurrentLSB: uint32(lsb),
		PowerLSB:   uint32(lsb) * 25,
	}, nil
}
