// Command line-masterd drives the LINE master engine against a physical
// serial port, optionally loading a network description and enabling one
// of its schedules.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/kstaniek/line-bus/internal/master"
	"github.com/kstaniek/line-bus/internal/metrics"
	"github.com/kstaniek/line-bus/internal/serialport"
	"github.com/kstaniek/line-bus/internal/transport"
)

func main() {
	cfg, showVersion := parseFlags()
	if showVersion {
		fmt.Printf("line-masterd %s (commit %s, built %s)\n", version, commit, date)
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
	if net != nil && net.Baudrate > 0 {
		baud = net.Baudrate
	}

	port, err := serialport.Open(cfg.serialDev, baud, cfg.serialReadTO)
	if err != nil {
		l.Error("serial_open_error", "device", cfg.serialDev, "error", err)
		os.Exit(1)
	}
	defer port.Close()
	l.Info("serial_open", "device", cfg.serialDev, "baud", baud, "one_wire", cfg.oneWire)

	tr := transport.New(transport.Config{Port: port, Baud: baud, OneWire: cfg.oneWire})

	m := master.New(tr, net)
	m.Enter()
	defer m.Exit()

	if cfg.scheduleName != "" {
		if err := m.EnableScheduleByName(cfg.scheduleName); err != nil {
			l.Error("schedule_enable_error", "schedule", cfg.scheduleName, "error", err)
		} else {
			l.Info("schedule_enabled", "schedule", cfg.scheduleName)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var wg sync.WaitGroup
	startMetricsLogger(ctx, cfg.logMetricsEvery, l, &wg)

	metrics.SetReadinessFunc(func() bool { return ctx.Err() == nil })
	if cfg.metricsAddr != "" {
		metrics.InitBuildInfo(version, commit, date)
		srv := metrics.StartHTTP(cfg.metricsAddr)
		defer func() { _ = srv.Shutdown(context.Background()) }()
	}

	cleanupMDNS, err := startMDNS(ctx, cfg, net, baud)
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
	time.Sleep(50 * time.Millisecond) // let the metrics logger observe ctx.Done
	wg.Wait()
}
