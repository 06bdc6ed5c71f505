// Command powermon samples INA226 power monitors on a Linux I²C adapter
// and serves the readings over a websocket.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"powermon-go/bus"
	"powermon-go/internal/i2cdev"
	"powermon-go/services/monitor"
	"powermon-go/services/telemetry"
)

func main() {
	dev := flag.String("dev", "/dev/i2c-1", "I²C adapter device path")
	addr := flag.Uint("addr", 0, "explicit 7-bit device address (0 = discover)")
	count := flag.Int("count", 1, "number of devices to initialise when discovering")
	shunt := flag.Uint("shunt-uohm", 100000, "shunt resistance in µΩ")
	maxAmps := flag.Uint("max-amps", 8, "expected maximum bus current in A")
	rate := flag.Uint("rate", 1, "sampling rate in Hz")
	listen := flag.String("listen", ":8080", "HTTP listen address")
	flag.Parse()

	i2c, err := i2cdev.OpenPath(*dev)
	if err != nil {
		log.Fatal("open adapter: ", err)
	}
	defer i2c.Close()

	mon := monitor.New(i2c, monitor.Config{})
	params := monitor.Params{
		MaxBusAmps:     uint32(*maxAmps),
		ShuntMicroOhms: uint32(*shunt),
	}
	if *addr != 0 {
		index, err := mon.Init(uint16(*addr), params)
		if err != nil {
			log.Fatal("init device: ", err)
		}
		log.Printf("dev %d at 0x%02x", index, *addr)
	} else {
		for i := 0; i < *count; i++ {
			index, err := mon.InitNext(params)
			if err != nil {
				if errors.Is(err, monitor.ErrNoDeviceFound) && i > 0 {
					break
				}
				log.Fatal("init device: ", err)
			}
			info, _ := mon.Info(index)
			log.Printf("dev %d at 0x%02x", index, info.Addr)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	b := bus.NewBus(32)
	svc := telemetry.New(mon, b.NewConnection("telemetry"), telemetry.Config{
		SampleHz: uint32(*rate),
	})
	if err := svc.Start(ctx); err != nil {
		log.Fatal("start telemetry: ", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", svc.ServeWS)
	server := &http.Server{Addr: *listen, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer shutdownCancel()
		server.Shutdown(shutdownCtx)
	}()

	log.Print("listening on ", *listen)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}
