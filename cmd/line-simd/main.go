// Command line-simd hosts a virtual bus of simulated LINE peripherals. With
// no serial device configured it runs as a pure in-process bus for tests and
// demos; with one configured it attaches to the wire in sniffer/responder
// mode and answers a real master's requests on behalf of the peripherals it
// hosts.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/kstaniek/line-bus/internal/metrics"
	"github.com/kstaniek/line-bus/internal/serialport"
	"github.com/kstaniek/line-bus/internal/transport"
)

func main() {
	cfg, showVersion := parseFlags()
	if showVersion {
		fmt.Printf("line-simd %s (commit %s, built %s)\n", version, commit, date)
		return
	}
	if cfg == nil {
		os.Exit(1)
	}

	l := setupLogger(cfg.logFormat, cfg.logLevel)

	net, err := loadNetwork(cfg.networkPath, l)
	if err != nil {
		l.Error("network_load_error", "error", err)
		os.Exit(1)
	}
	baud := cfg.baud
	if net.Baudrate > 0 {
		baud = net.Baudrate
	}

	bus, peripherals := buildBus(net, l)
	l.Info("bus_ready", "peripherals", len(peripherals))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var wg sync.WaitGroup

	if cfg.serialDev != "" {
		port, err := serialport.Open(cfg.serialDev, baud, cfg.serialReadTO)
		if err != nil {
			l.Error("serial_open_error", "device", cfg.serialDev, "error", err)
			os.Exit(1)
		}
		defer port.Close()
		l.Info("serial_open", "device", cfg.serialDev, "baud", baud, "one_wire", cfg.oneWire)

		tr := transport.New(transport.Config{Port: port, Baud: baud, OneWire: cfg.oneWire})
		responder := newBusResponder(bus, l)
		stop := make(chan struct{})
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Listen(stop, responder)
		}()
		go func() {
			<-ctx.Done()
			close(stop)
		}()
	} else {
		l.Info("running_without_serial_device")
	}

	startMetricsLogger(ctx, cfg.logMetricsEvery, l, &wg)

	metrics.SetReadinessFunc(func() bool { return ctx.Err() == nil })
	if cfg.metricsAddr != "" {
		metrics.InitBuildInfo(version, commit, date)
		metrics.SetSimulatedPeripherals(len(peripherals))
		srv := metrics.StartHTTP(cfg.metricsAddr)
		defer func() { _ = srv.Shutdown(context.Background()) }()
	}

	cleanupMDNS, err := startMDNS(ctx, cfg, net, len(peripherals))
	if err != nil {
		l.Warn("mdns_start_failed", "error", err)
	} else {
		defer cleanupMDNS()
	}

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	s := <-sigCh
	l.Info("shutdown_signal", "signal", s.String())
	cancel()
	time.Sleep(50 * time.Millisecond)
	wg.Wait()
}
