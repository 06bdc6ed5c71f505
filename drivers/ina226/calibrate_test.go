package ina226

import "testing"

func TestCalibrateTypicalShunt(t *testing.T) {
	// 8 A over a 100 mΩ shunt.
	cal, err := Calibrate(8, 100000)
	if err != nil {
		t.Fatalf("Calibrate: %v", err)
	}
	if cal.CurrentLSB != 244140 {
		t.Errorf("CurrentLSB = %d nA, want 244140", cal.CurrentLSB)
	}
	if cal.Register != 209 {
		t.Errorf("Register = %d, want 209", cal.Register)
	}
	if cal.PowerLSB != cal.CurrentLSB*25 {
		t.Errorf("PowerLSB = %d, want 25×CurrentLSB = %d", cal.PowerLSB, cal.CurrentLSB*25)
	}
}

func TestCalibrateDeterministic(t *testing.T) {
	a, err := Calibrate(8, 100000)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Calibrate(8, 100000)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("same inputs gave %+v and %+v", a, b)
	}
}

func TestCalibrateScalesLSBUpForTinyShunt(t *testing.T) {
	// 1 A over 100 µΩ: the baseline LSB overflows the register, so it is
	// doubled until the register fits.
	cal, err := Calibrate(1, 100)
	if err != nil {
		t.Fatalf("Calibrate: %v", err)
	}
	if cal.CurrentLSB != 30517*32 {
		t.Errorf("CurrentLSB = %d, want %d", cal.CurrentLSB, 30517*32)
	}
	if cal.Register != 52429 {
		t.Errorf("Register = %d, want 52429", cal.Register)
	}
	if cal.Register == 0 || cal.Register > 0xFFFF {
		t.Errorf("Register = %d out of range", cal.Register)
	}
}

func TestCalibrateRangeError(t *testing.T) {
	// 200 A over 1 Ω: even the coarsest LSB covering 200 A floors the
	// register to zero.
	if _, err := Calibrate(200, 1_000_000); err != ErrCalibrationRange {
		t.Errorf("err = %v, want ErrCalibrationRange", err)
	}
}

func TestCalibrateUnsetInputs(t *testing.T) {
	if _, err := Calibrate(8, 0); err != ErrShuntUnset {
		t.Errorf("zero shunt: err = %v, want ErrShuntUnset", err)
	}
	if _, err := Calibrate(0, 100000); err != ErrMaxAmpsUnset {
		t.Errorf("zero max current: err = %v, want ErrMaxAmpsUnset", err)
	}
}
