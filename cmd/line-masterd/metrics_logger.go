package main

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/kstaniek/line-bus/internal/metrics"
)

func startMetricsLogger(ctx context.Context, interval time.Duration, l *slog.Logger, wg *sync.WaitGroup) {
	if interval <= 0 {
		return
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				snap := metrics.Snap()
				l.Info("metrics_snapshot",
					"frames_tx", snap.FramesTx,
					"frames_rx", snap.FramesRx,
					"errors", snap.Errors,
					"bus_contention", snap.Contention,
					"decode_errors", snap.DecodeErrors,
				)
			case <-ctx.Done():
				return
			}
		}
	}()
}
