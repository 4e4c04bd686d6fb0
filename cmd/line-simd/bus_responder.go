package main

import (
	"log/slog"

	"github.com/kstaniek/line-bus/internal/virtualbus"
)

// busResponder adapts a virtualbus.Bus (whose OnRequest reports contention
// as a third error return) to transport.SnifferResponder, whose two-return
// shape has no room for that: a contended request is logged and treated as
// "no member answered" so the real master's own retry/timeout handling
// takes over.
type busResponder struct {
	bus *virtualbus.Bus
	l   *slog.Logger
}

func newBusResponder(bus *virtualbus.Bus, l *slog.Logger) *busResponder {
	return &busResponder{bus: bus, l: l}
}

func (r *busResponder) OnRequest(reqID int) ([]byte, bool) {
	data, responded, err := r.bus.OnRequest(reqID)
	if err != nil {
		r.l.Warn("bus_contention", "request_id", reqID, "error", err)
		return nil, false
	}
	return data, responded
}

func (r *busResponder) OnRequestComplete(reqID int, data []byte) {
	r.bus.OnRequestComplete(reqID, data)
}
