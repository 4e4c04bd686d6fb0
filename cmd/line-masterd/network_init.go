package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/kstaniek/line-bus/internal/network"
)

// loadNetwork reads and parses the network description at path, or returns
// (nil, nil) when path is empty.
func loadNetwork(path string, l *slog.Logger) (*network.Network, error) {
	if path == "" {
		return nil, nil
	}
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
