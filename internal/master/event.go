package master

import (
	"time"

	"github.com/kstaniek/line-bus/internal/codec"
)

type eventKind int

const (
	eventTx eventKind = iota
	eventRx
)

// transmitEvent is a single-assignment completion cell for one queued
// request (§9's design note): a completion flag, a buffer for the
// response, an optional exception and a timestamp, modeled here as a
// closed channel plus plain fields written once before the close.
type transmitEvent struct {
	id        uint64
	kind      eventKind
	reqID     int
	data      []byte
	checksum  *byte
	timestamp time.Time

	done   chan struct{}
	result []byte
	err    error
}

func newEvent(id uint64, kind eventKind, reqID int, data []byte, checksum *byte) *transmitEvent {
	return &transmitEvent{
		id:       id,
		kind:     kind,
		reqID:    reqID,
		data:     data,
		checksum: checksum,
		done:     make(chan struct{}),
	}
}

func (e *transmitEvent) complete(result []byte, err error) {
	e.result = result
	e.err = err
	close(e.done)
}

// wait blocks until the event completes or timeout elapses.
func (e *transmitEvent) wait(timeout time.Duration) ([]byte, error) {
	select {
	case <-e.done:
		return e.result, e.err
	case <-time.After(timeout):
		return nil, codec.ErrTimeout
	}
}
