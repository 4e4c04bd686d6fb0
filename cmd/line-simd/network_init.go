package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/kstaniek/line-bus/internal/network"
	"github.com/kstaniek/line-bus/internal/peripheral"
	"github.com/kstaniek/line-bus/internal/virtualbus"
)

// loadNetwork reads and parses the network description at path.
func loadNetwork(path string, l *slog.Logger) (*network.Network, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read network file: %w", err)
	}
	net, err := network.Load(data)
	if err != nil {
		return nil, fmt.Errorf("parse network file: %w", err)
	}
	l.Info("network_loaded", "path", path, "nodes", len(net.Nodes), "requests", len(net.Requests), "baud", net.Baudrate)
	return net, nil
}

// buildBus constructs a peripheral for every node in net other than the
// master itself, assigns each a deterministic serial number derived from
// its bus address, and registers it on a fresh virtual bus.
func buildBus(net *network.Network, l *slog.Logger) (*virtualbus.Bus, []*peripheral.Peripheral) {
	bus := virtualbus.New()
	peripherals := make([]*peripheral.Peripheral, 0, len(net.Nodes))

	for _, node := range net.Nodes {
		if net.Master != nil && node.Name == net.Master.Name {
			continue
		}
		name := node.Name
		serial := 0x00010000 + uint32(node.Address)
		p := peripheral.New(node, serial, peripheral.Hooks{
			OnWakeup:   func() { l.Debug("peripheral_wakeup", "node", name) },
			OnIdle:     func() { l.Debug("peripheral_idle", "node", name) },
			OnShutdown: func() { l.Debug("peripheral_shutdown", "node", name) },
			OnAddressChanged: func(newAddr int) {
				l.Info("peripheral_address_changed", "node", name, "address", newAddr)
			},
			OnSubscribed: func(req *network.Request, _ network.SignalValueContainer) {
				l.Debug("peripheral_subscribed_request", "node", name, "request", req.Name)
			},
		})
		p.Connect()
		bus.Add(p)
		peripherals = append(peripherals, p)
		l.Info("peripheral_attached", "node", node.Name, "address", node.Address, "serial", serial)
	}
	return bus, peripherals
}
