// Package mdns advertises a LINE daemon (master or simulator) over
// zeroconf so operator tooling on the same network segment can discover
// its metrics/control port without static configuration.
package mdns

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/grandcat/zeroconf"
)

// ServiceType is the zeroconf service type LINE daemons advertise under.
const ServiceType = "_line-bus._tcp"

// Config describes one mDNS advertisement.
type Config struct {
	Enable   bool
	Instance string // defaults to "<role>-<hostname>" when empty
	Role     string // "master" or "simulator", used for the default instance name
	Meta     map[string]string
}

// Start registers the service and returns a cleanup function; it is safe
// to call Start with Enable=false, in which case the cleanup is a no-op.
func Start(ctx context.Context, cfg Config, port int) (func(), error) {
	if !cfg.Enable {
		return func() {}, nil
	}
	instance := cfg.Instance
	if instance == "" {
		host, _ := os.Hostname()
		instance = fmt.Sprintf("%s-%s", cfg.Role, host)
	}
	meta := make([]string, 0, len(cfg.Meta))
	for k, v := range cfg.Meta {
		meta = append(meta, k+"="+v)
	}

	svc, err := zeroconf.Register(instance, ServiceType, "local.", port, meta, nil)
	if err != nil {
		return nil, fmt.Errorf("mdns register: %w", err)
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		svc.Shutdown()
	}()
	return func() { close(done); svc.Shutdown(); time.Sleep(50 * time.Millisecond) }, nil
}
