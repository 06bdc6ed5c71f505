package telemetry

import (
	"errors"
	"sync"
	"testing"
	"time"

	"powermon-go/bus"
	"powermon-go/drivers/ina226"
	"powermon-go/services/monitor"
	"powermon-go/types"
)

// fakeBus is a minimal INA226 register file on one address.
type fakeBus struct {
	mu   sync.Mutex
	regs map[byte]uint16
	fail bool
}

func newFakeBus() *fakeBus {
	return &fakeBus{regs: map[byte]uint16{
		0x00: 0x4127,
		0xFE: ina226.ManufacturerTI,
	}}
}

func (f *fakeBus) Tx(addr uint16, w, r []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.fail {
		return errors.New("fakeBus: forced failure")
	}
	switch {
	case len(w) == 3 && len(r) == 0:
		f.regs[w[0]] = uint16(w[1])<<8 | uint16(w[2])
	case len(w) == 1 && len(r) == 2:
		v := f.regs[w[0]]
		if w[0] == 0x06 {
			v |= 0x0008 // conversion always ready
		}
		r[0] = byte(v >> 8)
		r[1] = byte(v)
	default:
		return errors.New("fakeBus: unexpected transaction")
	}
	return nil
}

func (f *fakeBus) setFail(on bool) {
	f.mu.Lock()
	f.fail = on
	f.mu.Unlock()
}

func newTestService(t *testing.T) (*Service, *fakeBus, *bus.Bus) {
	t.Helper()
	f := newFakeBus()
	mon := monitor.New(f, monitor.Config{})
	if _, err := mon.Init(0x40, monitor.Params{MaxBusAmps: 8, ShuntMicroOhms: 100000}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	b := bus.NewBus(8)
	svc := New(mon, b.NewConnection("telemetry"), Config{})
	return svc, f, b
}

func recvPayload(t *testing.T, sub *bus.Subscription) any {
	t.Helper()
	select {
	case msg := <-sub.Channel():
		return msg.Payload
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout waiting for bus message")
		return nil
	}
}

func TestSampleAllPublishesRetainedValue(t *testing.T) {
	svc, f, b := newTestService(t)

	f.mu.Lock()
	f.regs[0x02] = 1000 // bus voltage
	f.regs[0x04] = 100  // current
	f.mu.Unlock()

	conn := b.NewConnection("test")
	sub := conn.Subscribe(topicValue(0))

	svc.SampleAll()

	val, ok := recvPayload(t, sub).(*types.PowerValue)
	if !ok {
		t.Fatal("payload is not a PowerValue")
	}
	if val.Bus_mV != 1250 || val.Current_uA != 24414 {
		t.Errorf("unexpected sample: %+v", val)
	}

	// A late subscriber gets the retained value immediately.
	late := conn.Subscribe(topicValue(0))
	if _, ok := recvPayload(t, late).(*types.PowerValue); !ok {
		t.Fatal("no retained value for late subscriber")
	}
}

func TestSampleAllPublishesStatusOnFailure(t *testing.T) {
	svc, f, b := newTestService(t)
	f.setFail(true)

	conn := b.NewConnection("test")
	valueSub := conn.Subscribe(topicValue(0))
	statusSub := conn.Subscribe(topicStatus(0))

	svc.SampleAll()

	ev, ok := recvPayload(t, statusSub).(*types.StatusEvent)
	if !ok {
		t.Fatal("payload is not a StatusEvent")
	}
	if ev.Index != 0 || ev.Err == "" {
		t.Errorf("unexpected status event: %+v", ev)
	}

	select {
	case msg := <-valueSub.Channel():
		t.Fatalf("failed read published a value: %#v", msg.Payload)
	case <-time.After(60 * time.Millisecond):
	}
}

func TestPublishInfoRetained(t *testing.T) {
	svc, _, b := newTestService(t)

	svc.PublishInfo()

	conn := b.NewConnection("test")
	sub := conn.Subscribe(topicInfo(0))
	info, ok := recvPayload(t, sub).(*types.MonitorInfo)
	if !ok {
		t.Fatal("no retained descriptor")
	}
	if info.Addr != 0x40 || info.Calibration != 209 {
		t.Errorf("unexpected descriptor: %+v", info)
	}
}

func TestControlSetModeFromJSON(t *testing.T) {
	svc, _, _ := newTestService(t)

	svc.handleControl([]byte(`{"verb":"set_mode","index":0,"mode":3}`))

	mode, err := svc.mon.ModeOf(0)
	if err != nil {
		t.Fatal(err)
	}
	if mode != ina226.ModeTriggeredBoth {
		t.Errorf("mode = %d, want triggered both", mode)
	}
}

func TestControlAppliesToAllWhenIndexOmitted(t *testing.T) {
	svc, f, _ := newTestService(t)

	svc.handleControl([]byte(`{"verb":"set_averaging","count":100}`))

	f.mu.Lock()
	cfg := ina226.ConfigWord(f.regs[0x00])
	f.mu.Unlock()
	if ina226.AveragingSamples(cfg.AveragingCode()) != 128 {
		t.Errorf("averaging = %d samples, want 128", ina226.AveragingSamples(cfg.AveragingCode()))
	}
}

func TestControlBadVerbPublishesStatus(t *testing.T) {
	svc, _, b := newTestService(t)

	conn := b.NewConnection("test")
	sub := conn.Subscribe(topicStatus(-1))

	svc.handleControl([]byte(`{"verb":"frobnicate"}`))

	ev, ok := recvPayload(t, sub).(*types.StatusEvent)
	if !ok {
		t.Fatal("no status event for bad verb")
	}
	if ev.Err != "unsupported" {
		t.Errorf("status err = %q, want unsupported", ev.Err)
	}
}

func TestControlMissingParam(t *testing.T) {
	svc, _, b := newTestService(t)

	conn := b.NewConnection("test")
	sub := conn.Subscribe(topicStatus(0))

	svc.handleControl([]byte(`{"verb":"set_mode","index":0}`))

	ev, ok := recvPayload(t, sub).(*types.StatusEvent)
	if !ok {
		t.Fatal("no status event for missing param")
	}
	if ev.Err != "invalid_params" {
		t.Errorf("status err = %q, want invalid_params", ev.Err)
	}
}

func TestStreamerFanOut(t *testing.T) {
	s := NewStreamer[Frame](4)
	go s.Run()
	defer s.Stop()

	// Run is racing us; wait until broadcasts are accepted.
	deadline := time.Now().Add(200 * time.Millisecond)
	for !s.Broadcast(&Frame{Kind: "info"}) && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	c := s.NewClient(4)
	defer c.Close()

	if !s.Broadcast(&Frame{Kind: "value", Index: 2}) {
		t.Fatal("Broadcast refused while running")
	}

	select {
	case frame := <-c.C:
		if frame.Kind != "value" || frame.Index != 2 {
			t.Errorf("unexpected frame: %+v", frame)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout waiting for frame")
	}
}
