package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type appConfig struct {
	serialDev       string
	baud            int
	serialReadTO    time.Duration
	oneWire         bool
	networkPath     string
	scheduleName    string
	logFormat       string
	logLevel        string
	metricsAddr     string
	logMetricsEvery time.Duration
	mdnsEnable      bool
	mdnsName        string
}

func parseFlags() (*appConfig, bool) {
	cfg := &appConfig{}
	serialDev := flag.String("serial", "/dev/ttyUSB0", "Serial device path")
	baud := flag.Int("baud", 19200, "Serial baud rate (overridden by --network if it sets one)")
	serialReadTO := flag.Duration("serial-read-timeout", 20*time.Millisecond, "Per-Read syscall timeout on the serial port")
	oneWire := flag.Bool("one-wire", true, "Drain the self-echo of writes before reading a response (single-wire half-duplex bus)")
	networkPath := flag.String("network", "", "Path to a LINE network description JSON file; empty runs with no Network (numeric ids only)")
	scheduleName := flag.String("schedule", "", "Name of a network schedule to enable at startup; empty disables automatic scheduling")
	logFormat := flag.String("log-format", "text", "Log format: text|json")
	logLevel := flag.String("log-level", "info", "Log level: debug|info|warn|error")
	metricsAddr := flag.String("metrics-addr", "", "Metrics HTTP listen address (e.g., :9100); empty disables")
	logMetricsEvery := flag.Duration("log-metrics-interval", 0, "If >0, periodically log metrics counters")
	mdnsEnable := flag.Bool("mdns-enable", false, "Enable mDNS advertisement of this master")
	mdnsName := flag.String("mdns-name", "", "mDNS instance name (default master-<hostname>)")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	setFlags := map[string]struct{}{}
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = struct{}{} })

	cfg.serialDev = *serialDev
	cfg.baud = *baud
	cfg.serialReadTO = *serialReadTO
	cfg.oneWire = *oneWire
	cfg.networkPath = *networkPath
	cfg.scheduleName = *scheduleName
	cfg.logFormat = *logFormat
	cfg.logLevel = *logLevel
	cfg.metricsAddr = *metricsAddr
	cfg.logMetricsEvery = *logMetricsEvery
	cfg.mdnsEnable = *mdnsEnable
	cfg.mdnsName = *mdnsName

	if err := applyEnvOverrides(cfg, setFlags); err != nil {
		fmt.Printf("environment override error: %v\n", err)
		return nil, *showVersion
	}
	if err := cfg.validate(); err != nil {
		fmt.Printf("configuration error: %v\n", err)
		return nil, *showVersion
	}
	return cfg, *showVersion
}

func (c *appConfig) validate() error {
	if c == nil {
		return errors.New("nil config")
	}
	switch c.logFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log-format: %s", c.logFormat)
	}
	switch c.logLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log-level: %s", c.logLevel)
	}
	if c.baud <= 0 {
		return fmt.Errorf("baud must be > 0 (got %d)", c.baud)
	}
	if c.serialReadTO <= 0 {
		return fmt.Errorf("serial-read-timeout must be > 0")
	}
	return nil
}

// applyEnvOverrides maps LINE_MASTERD_* environment variables onto cfg
// unless the corresponding flag was explicitly set (flag wins).
func applyEnvOverrides(c *appConfig, set map[string]struct{}) error {
	var firstErr error
	get := func(k string) (string, bool) { v, ok := os.LookupEnv(k); return strings.TrimSpace(v), ok }

	if _, ok := set["serial"]; !ok {
		if v, ok := get("LINE_MASTERD_SERIAL"); ok && v != "" {
			c.serialDev = v
		}
	}
	if _, ok := set["baud"]; !ok {
		if v, ok := get("LINE_MASTERD_BAUD"); ok && v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				c.baud = n
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid LINE_MASTERD_BAUD: %w", err)
			}
		}
	}
	if _, ok := set["serial-read-timeout"]; !ok {
		if v, ok := get("LINE_MASTERD_SERIAL_READ_TIMEOUT"); ok && v != "" {
			if d, err := time.ParseDuration(v); err == nil && d > 0 {
				c.serialReadTO = d
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid LINE_MASTERD_SERIAL_READ_TIMEOUT: %w", err)
			}
		}
	}
	if _, ok := set["one-wire"]; !ok {
		if v, ok := get("LINE_MASTERD_ONE_WIRE"); ok && v != "" {
			switch strings.ToLower(v) {
			case "1", "true", "yes", "on":
				c.oneWire = true
			case "0", "false", "no", "off":
				c.oneWire = false
			}
		}
	}
	if _, ok := set["network"]; !ok {
		if v, ok := get("LINE_MASTERD_NETWORK"); ok && v != "" {
			c.networkPath = v
		}
	}
	if _, ok := set["schedule"]; !ok {
		if v, ok := get("LINE_MASTERD_SCHEDULE"); ok && v != "" {
			c.scheduleName = v
		}
	}
	if _, ok := set["log-format"]; !ok {
		if v, ok := get("LINE_MASTERD_LOG_FORMAT"); ok && v != "" {
			c.logFormat = v
		}
	}
	if _, ok := set["log-level"]; !ok {
		if v, ok := get("LINE_MASTERD_LOG_LEVEL"); ok && v != "" {
			c.logLevel = v
		}
	}
	if _, ok := set["metrics-addr"]; !ok {
		if v, ok := get("LINE_MASTERD_METRICS"); ok {
			c.metricsAddr = v
		}
	}
	if _, ok := set["log-metrics-interval"]; !ok {
		if v, ok := get("LINE_MASTERD_LOG_METRICS_INTERVAL"); ok && v != "" {
			if d, err := time.ParseDuration(v); err == nil && d >= 0 {
				c.logMetricsEvery = d
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid LINE_MASTERD_LOG_METRICS_INTERVAL: %w", err)
			}
		}
	}
	if _, ok := set["mdns-enable"]; !ok {
		if v, ok := get("LINE_MASTERD_MDNS_ENABLE"); ok && v != "" {
			switch strings.ToLower(v) {
			case "1", "true", "yes", "on":
				c.mdnsEnable = true
			case "0", "false", "no", "off":
				c.mdnsEnable = false
			}
		}
	}
	if _, ok := set["mdns-name"]; !ok {
		if v, ok := get("LINE_MASTERD_MDNS_NAME"); ok && v != "" {
			c.mdnsName = v
		}
	}
	return firstErr
}
