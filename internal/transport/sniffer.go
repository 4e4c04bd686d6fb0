package transport

import (
	"time"

	"github.com/kstaniek/line-bus/internal/codec"
)

type snifferState int

const (
	waitSync snifferState = iota
	waitReqMsb
	waitReqLsb
	waitSize
	waitData
	waitChecksum
)

// Listen runs the sniffer state machine described in §4.3, consuming bytes
// from the transport's port until stop is closed. Any traffic seen — ours
// or another master's — is reported through the registered
// TrafficListeners; if responder is non-nil it may answer a request
// observed at WaitReqLsb, in which case the response is written back to
// the wire (and, on a one-wire link, its echo is consumed as part of the
// same frame rather than restarting the state machine).
func (t *Transport) Listen(stop <-chan struct{}, responder SnifferResponder) {
	state := waitSync
	var reqID int
	var size int
	var data []byte

	reset := func() {
		state = waitSync
		data = nil
	}

	for {
		select {
		case <-stop:
			return
		default:
		}

		timeout := codec.DataTimeout
		if state == waitSync {
			timeout = 24 * time.Hour // idle wait; bounded only by stop
		}

		b, err := readByte(t.port, timeout)
		if err != nil {
			if state != waitSync {
				t.notifyError(reqID, codec.ErrTimeout)
			}
			reset()
			continue
		}

		switch state {
		case waitSync:
			if b == codec.Sync {
				state = waitReqMsb
			}
		case waitReqMsb:
			reqID = int(b) << 8
			state = waitReqLsb
		case waitReqLsb:
			word := uint16(reqID | int(b))
			if !codec.ValidateRequestCode(word) {
				t.notifyError(reqID, codec.ErrHeader)
				reset()
				continue
			}
			reqID = int(word & codec.ParityMask)

			if responder != nil {
				if respData, ok := responder.OnRequest(reqID); ok {
					frame := make([]byte, 0, 1+len(respData)+1)
					frame = append(frame, byte(len(respData)))
					frame = append(frame, respData...)
					frame = append(frame, codec.DataChecksum(respData))
					_, _ = t.port.Write(frame)
					responder.OnRequestComplete(reqID, respData)
					if !t.oneWire {
						// Full duplex: nothing comes back on the wire for us
						// to parse, so there is no remainder of this frame.
						reset()
						continue
					}
					// One-wire: our own write echoes back on the same wire.
					// Fall through into the normal size/data/checksum states
					// so the echo is validated and reported exactly like any
					// other frame, instead of being silently discarded.
				}
			}
			state = waitSize
		case waitSize:
			size = int(b)
			data = make([]byte, 0, size)
			if size == 0 {
				state = waitChecksum
			} else {
				state = waitData
			}
		case waitData:
			data = append(data, b)
			if len(data) >= size {
				state = waitChecksum
			}
		case waitChecksum:
			if codec.DataChecksum(data) != b {
				t.notifyError(reqID, codec.ErrChecksum)
			} else {
				t.notifyRequest(reqID, size, data, b)
			}
			reset()
		}
	}
}
