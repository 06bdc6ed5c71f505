package ina226

import "powermon-go/x/mathx"

// Pure register codec: raw 16-bit counts to physical units and back, and
// configuration bitfield packing. No I/O, no state.

// BusMilliVolts converts a raw bus-voltage count to millivolts.
// LSB is 1.25 mV, carried as 125 in µV×100 units so the division is exact
// for every representable count.
func BusMilliVolts(raw int16) int32 {
	return int32(raw) * busVoltageLSB / 100
}

// ShuntMicroVolts converts a raw shunt-voltage count to microvolts.
// LSB is 2.5 µV; the shunt is bidirectional so the result keeps its sign.
func ShuntMicroVolts(raw int16) int32 {
	return int32(raw) * shuntVoltageLSB / 10
}

// CurrentMicroAmps scales a raw current count by a per-device LSB in
// nanoamps per count.
func CurrentMicroAmps(raw int16, currentLSB uint32) int32 {
	return int32(int64(raw) * int64(currentLSB) / 1000)
}

// PowerMicroWatts scales a raw power count by a per-device LSB in
// nanowatts per count. The power register is unsigned.
func PowerMicroWatts(raw uint16, powerLSB uint32) int32 {
	return int32(int64(raw) * int64(powerLSB) / 1000)
}

// ConfigWord is the configuration register bit pattern: averaging in bits
// 9-11, bus conversion time in bits 6-8, shunt conversion time in bits 3-5,
// operating mode in bits 0-2.
type ConfigWord uint16

func (c ConfigWord) Mode() Mode           { return Mode(c & cfgModeMask) }
func (c ConfigWord) AveragingCode() uint8 { return uint8((c & cfgAvgMask) >> cfgAvgShift) }
func (c ConfigWord) BusTimeCode() uint8   { return uint8((c & cfgBusCTMask) >> cfgBusCTShift) }
func (c ConfigWord) ShuntTimeCode() uint8 { return uint8((c & cfgShuntCTMask) >> cfgShuntCTShift) }

// Field insertion preserves the other three fields (bit-level
// read-modify-write; the full register is only overwritten by reset).

func (c ConfigWord) WithMode(m Mode) ConfigWord {
	return (c &^ cfgModeMask) | ConfigWord(m&0x07)
}

func (c ConfigWord) WithAveragingCode(code uint8) ConfigWord {
	return (c &^ cfgAvgMask) | (ConfigWord(code&0x07) << cfgAvgShift)
}

func (c ConfigWord) WithBusTimeCode(code uint8) ConfigWord {
	return (c &^ cfgBusCTMask) | (ConfigWord(code&0x07) << cfgBusCTShift)
}

func (c ConfigWord) WithShuntTimeCode(code uint8) ConfigWord {
	return (c &^ cfgShuntCTMask) | (ConfigWord(code&0x07) << cfgShuntCTShift)
}

// The chip accepts only these discrete averaging counts and per-sample
// conversion times; requests are mapped to the nearest legal value.

var avgSamples = [8]uint16{1, 4, 16, 64, 128, 256, 512, 1024}

var convMicros = [8]uint16{140, 204, 332, 588, 1100, 2116, 4156, 8244}

// AveragingSamples returns the sample count a 3-bit averaging code selects.
func AveragingSamples(code uint8) uint16 { return avgSamples[code&0x07] }

// ConversionMicros returns the per-sample conversion time in µs for a
// 3-bit conversion-time code.
func ConversionMicros(code uint8) uint16 { return convMicros[code&0x07] }

// AveragingCode maps a requested sample count to the nearest legal code.
func AveragingCode(samples uint16) uint8 { return nearestCode(&avgSamples, samples) }

// ConversionCode maps a requested per-sample time in µs to the nearest
// legal code.
func ConversionCode(micros uint16) uint8 { return nearestCode(&convMicros, micros) }

func nearestCode(table *[8]uint16, want uint16) uint8 {
	best := uint8(0)
	bestDiff := mathx.Abs(int32(table[0]) - int32(want))
	for i := 1; i < len(table); i++ {
		d := mathx.Abs(int32(table[i]) - int32(want))
		if d < bestDiff {
			best = uint8(i)
			bestDiff = d
		}
	}
	return best
}

// ConversionBudgetMicros is the nominal time one full conversion cycle
// takes under this configuration: (bus time + shunt time) × averaging
// count. Used to bound conversion-ready waits.
func (c ConfigWord) ConversionBudgetMicros() uint32 {
	per := uint32(ConversionMicros(c.BusTimeCode())) + uint32(ConversionMicros(c.ShuntTimeCode()))
	return per * uint32(AveragingSamples(c.AveragingCode()))
}
