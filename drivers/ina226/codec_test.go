package ina226

import "testing"

func TestBusMilliVolts(t *testing.T) {
	cases := []struct {
		raw  int16
		want int32
	}{
		{0, 0},
		{1, 1},    // 1.25 mV truncates to 1
		{4, 5},    // exactly 5 mV
		{1000, 1250},
		{0x7FFF, 40958}, // full scale
	}
	for _, c := range cases {
		if got := BusMilliVolts(c.raw); got != c.want {
			t.Errorf("BusMilliVolts(%d) = %d, want %d", c.raw, got, c.want)
		}
	}
}

func TestShuntMicroVolts(t *testing.T) {
	cases := []struct {
		raw  int16
		want int32
	}{
		{0, 0},
		{100, 250},
		{-100, -250}, // reverse current keeps its sign
		{0x7FFF, 81917},
		{-0x8000, -81920},
	}
	for _, c := range cases {
		if got := ShuntMicroVolts(c.raw); got != c.want {
			t.Errorf("ShuntMicroVolts(%d) = %d, want %d", c.raw, got, c.want)
		}
	}
}

func TestCurrentAndPowerScaling(t *testing.T) {
	// 244140 nA/count is the scale for 8 A over a 100 mΩ shunt.
	if got := CurrentMicroAmps(1000, 244140); got != 244140 {
		t.Errorf("CurrentMicroAmps(1000) = %d, want 244140", got)
	}
	if got := CurrentMicroAmps(-1000, 244140); got != -244140 {
		t.Errorf("CurrentMicroAmps(-1000) = %d, want -244140", got)
	}
	if got := CurrentMicroAmps(100, 244140); got != 24414 {
		t.Errorf("CurrentMicroAmps(100) = %d, want 24414", got)
	}
	if got := PowerMicroWatts(1000, 6103500); got != 6103500 {
		t.Errorf("PowerMicroWatts(1000) = %d, want 6103500", got)
	}
	if got := PowerMicroWatts(0, 6103500); got != 0 {
		t.Errorf("PowerMicroWatts(0) = %d, want 0", got)
	}
}

func TestConfigWordFieldInsertion(t *testing.T) {
	// Field writes must not disturb the other three fields.
	start := ConfigWord(0xFFFF)
	if got := start.WithMode(ModePowerDown); got != 0xFFF8 {
		t.Errorf("WithMode(0) = %#04x, want 0xfff8", uint16(got))
	}
	if got := start.WithAveragingCode(0); got != 0xF1FF {
		t.Errorf("WithAveragingCode(0) = %#04x, want 0xf1ff", uint16(got))
	}
	if got := start.WithBusTimeCode(0); got != 0xFE3F {
		t.Errorf("WithBusTimeCode(0) = %#04x, want 0xfe3f", uint16(got))
	}
	if got := start.WithShuntTimeCode(0); got != 0xFFC7 {
		t.Errorf("WithShuntTimeCode(0) = %#04x, want 0xffc7", uint16(got))
	}

	// Round-trip through the accessors.
	w := ConfigWord(0).
		WithMode(ModeContinuousBoth).
		WithAveragingCode(4).
		WithBusTimeCode(2).
		WithShuntTimeCode(5)
	if w.Mode() != ModeContinuousBoth || w.AveragingCode() != 4 ||
		w.BusTimeCode() != 2 || w.ShuntTimeCode() != 5 {
		t.Errorf("field round-trip failed: %#04x", uint16(w))
	}
}

func TestDefaultConfigFields(t *testing.T) {
	c := ConfigWord(cfgDefault)
	if c.Mode() != ModeContinuousBoth {
		t.Errorf("default mode = %d, want continuous both", c.Mode())
	}
	if AveragingSamples(c.AveragingCode()) != 1 {
		t.Errorf("default averaging = %d samples, want 1", AveragingSamples(c.AveragingCode()))
	}
	if ConversionMicros(c.BusTimeCode()) != 1100 || ConversionMicros(c.ShuntTimeCode()) != 1100 {
		t.Error("default conversion times should be 1.1 ms")
	}
}

func TestNearestAveragingCode(t *testing.T) {
	cases := []struct {
		samples uint16
		code    uint8
	}{
		{0, 0},
		{1, 0},
		{3, 1},     // 4 is closer than 1
		{100, 4},   // 128 is closer than 64
		{1024, 7},
		{65535, 7}, // clamps to the largest count
	}
	for _, c := range cases {
		if got := AveragingCode(c.samples); got != c.code {
			t.Errorf("AveragingCode(%d) = %d, want %d", c.samples, got, c.code)
		}
	}
}

func TestNearestConversionCode(t *testing.T) {
	cases := []struct {
		micros uint16
		code   uint8
	}{
		{0, 0},
		{140, 0},
		{1000, 4},  // 1100 is closer than 588
		{8244, 7},
		{65535, 7},
	}
	for _, c := range cases {
		if got := ConversionCode(c.micros); got != c.code {
			t.Errorf("ConversionCode(%d) = %d, want %d", c.micros, got, c.code)
		}
	}
}

func TestConversionBudget(t *testing.T) {
	if got := ConfigWord(cfgDefault).ConversionBudgetMicros(); got != 2200 {
		t.Errorf("default budget = %d µs, want 2200", got)
	}
	// Worst case: 8.244 ms per side, 1024 samples.
	w := ConfigWord(0).WithAveragingCode(7).WithBusTimeCode(7).WithShuntTimeCode(7)
	if got := w.ConversionBudgetMicros(); got != 2*8244*1024 {
		t.Errorf("max budget = %d µs, want %d", got, 2*8244*1024)
	}
}
