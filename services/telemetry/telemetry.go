// Package telemetry periodically samples every monitored channel and
// publishes the results on the bus, retained, so late consumers start from
// the last known value. It also accepts control commands and fans frames
// out to websocket clients.
//
// Topics:
//
//	power/dev/<index>/value   retained types.PowerValue
//	power/dev/<index>/info    retained types.MonitorInfo
//	power/dev/<index>/status  types.StatusEvent (not retained)
//	power/ctrl                types.Control
package telemetry

import (
	"context"
	"log"
	"time"

	jsoniter "github.com/json-iterator/go"

	"powermon-go/bus"
	"powermon-go/drivers/ina226"
	"powermon-go/errcode"
	"powermon-go/services/monitor"
	"powermon-go/types"
	"powermon-go/x/timex"
)

var json jsoniter.API = jsoniter.ConfigCompatibleWithStandardLibrary

var topicCtrl = bus.Topic{bus.S("power"), bus.S("ctrl")}

func topicValue(index int) bus.Topic {
	return bus.Topic{bus.S("power"), bus.S("dev"), bus.I(index), bus.S("value")}
}
func topicInfo(index int) bus.Topic {
	return bus.Topic{bus.S("power"), bus.S("dev"), bus.I(index), bus.S("info")}
}
func topicStatus(index int) bus.Topic {
	return bus.Topic{bus.S("power"), bus.S("dev"), bus.I(index), bus.S("status")}
}

// Config tunes the service. The zero value samples at 1 Hz.
type Config struct {
	// SampleHz is the sampling rate for all channels.
	SampleHz uint32
	// StreamBuffer is the per-client websocket frame queue length.
	StreamBuffer int
}

// Service owns the monitor: after Start, all device I/O happens on the
// service goroutine and everyone else talks to it through the bus.
type Service struct {
	mon    *monitor.Monitor
	conn   *bus.Connection
	stream *Streamer[Frame]
	period time.Duration
}

func New(mon *monitor.Monitor, conn *bus.Connection, cfg Config) *Service {
	hz := cfg.SampleHz
	if hz == 0 {
		hz = 1
	}
	buf := cfg.StreamBuffer
	if buf <= 0 {
		buf = 16
	}
	return &Service{
		mon:    mon,
		conn:   conn,
		stream: NewStreamer[Frame](buf),
		period: timex.PeriodFromHz(hz),
	}
}

// Start publishes the channel descriptors and launches the service loop.
func (s *Service) Start(ctx context.Context) error {
	s.PublishInfo()
	go s.stream.Run()
	go s.serviceLoop(ctx)
	return nil
}

func (s *Service) serviceLoop(ctx context.Context) {
	ctrlSub := s.conn.Subscribe(topicCtrl)
	defer s.conn.Unsubscribe(ctrlSub)

	tick := time.NewTicker(s.period)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Print("telemetry: stopping")
			s.stream.Stop()
			return
		case <-tick.C:
			s.SampleAll()
		case msg := <-ctrlSub.Channel():
			s.handleControl(msg.Payload)
		}
	}
}

// PublishInfo emits the retained descriptor for every registered channel.
func (s *Service) PublishInfo() {
	for i := 0; i < s.mon.Devices(); i++ {
		info, err := s.mon.Info(i)
		if err != nil {
			continue
		}
		s.conn.Publish(&bus.Message{Topic: topicInfo(i), Payload: &info, Retained: true})
		s.stream.Broadcast(&Frame{Kind: "info", Index: i, Info: &info})
	}
}

// SampleAll reads one snapshot from every channel. A failed read is
// published as a status event on that channel, never as a zero sample.
func (s *Service) SampleAll() {
	for i := 0; i < s.mon.Devices(); i++ {
		val, err := s.mon.Snapshot(i)
		if err != nil {
			s.publishStatus(i, err)
			continue
		}
		s.conn.Publish(&bus.Message{Topic: topicValue(i), Payload: &val, Retained: true})
		s.stream.Broadcast(&Frame{Kind: "value", Index: i, Value: &val})
	}
}

func (s *Service) publishStatus(index int, err error) {
	ev := types.StatusEvent{
		Index: index,
		Err:   string(errcode.MapDriverErr(err)),
		TsMs:  timex.NowMs(),
	}
	s.conn.Publish(&bus.Message{Topic: topicStatus(index), Payload: &ev})
	s.stream.Broadcast(&Frame{Kind: "status", Index: index, Status: &ev})
	log.Printf("telemetry: dev %d: %v", index, err)
}

// handleControl decodes and applies one control command. Payloads arrive
// either decoded (internal publishers) or as raw JSON (websocket clients).
func (s *Service) handleControl(payload any) {
	var c types.Control
	switch v := payload.(type) {
	case *types.Control:
		c = *v
	case types.Control:
		c = v
	case []byte:
		if err := json.Unmarshal(v, &c); err != nil {
			log.Printf("telemetry: bad control payload: %v", err)
			return
		}
	default:
		log.Printf("telemetry: unsupported control payload %T", payload)
		return
	}
	if err := s.apply(&c); err != nil {
		index := -1
		if c.Index != nil {
			index = *c.Index
		}
		s.publishStatus(index, err)
	}
}

func (s *Service) apply(c *types.Control) error {
	target := monitor.All()
	if c.Index != nil {
		target = monitor.One(*c.Index)
	}
	switch c.Verb {
	case "set_mode":
		if c.Mode == nil {
			return errcode.InvalidParams
		}
		return s.mon.SetMode(target, ina226.Mode(*c.Mode))
	case "set_averaging":
		if c.Count == nil {
			return errcode.InvalidParams
		}
		return s.mon.SetAveraging(target, *c.Count)
	case "set_bus_time":
		if c.Us == nil {
			return errcode.InvalidParams
		}
		return s.mon.SetBusConversionTime(target, *c.Us)
	case "set_shunt_time":
		if c.Us == nil {
			return errcode.InvalidParams
		}
		return s.mon.SetShuntConversionTime(target, *c.Us)
	case "set_alert":
		if c.On == nil {
			return errcode.InvalidParams
		}
		return s.mon.SetAlertOnConversionReady(target, *c.On)
	case "reset":
		if c.Index != nil {
			return s.mon.Reset(*c.Index)
		}
		for i := 0; i < s.mon.Devices(); i++ {
			if err := s.mon.Reset(i); err != nil {
				return err
			}
		}
		return nil
	default:
		return errcode.Unsupported
	}
}
