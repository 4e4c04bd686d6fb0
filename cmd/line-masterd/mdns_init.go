package main

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/kstaniek/line-bus/internal/mdns"
	"github.com/kstaniek/line-bus/internal/network"
)

func startMDNS(ctx context.Context, cfg *appConfig, net_ *network.Network, baud int) (func(), error) {
	meta := map[string]string{
		"version": version,
		"commit":  commit,
		"baud":    fmt.Sprintf("%d", baud),
	}
	if net_ != nil && net_.Master != nil {
		meta["network"] = net_.Master.Name
	}
	return mdns.Start(ctx, mdns.Config{
		Enable:   cfg.mdnsEnable,
		Instance: cfg.mdnsName,
		Role:     "master",
		Meta:     meta,
	}, metricsPort(cfg.metricsAddr))
}

func metricsPort(addr string) int {
	if addr == "" {
		return 0
	}
	_, p, err := net.SplitHostPort(addr)
	if err != nil {
		return 0
	}
	port, err := strconv.Atoi(p)
	if err != nil {
		return 0
	}
	return port
}
