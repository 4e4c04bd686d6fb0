// Package transport implements the half-duplex byte-stream state machine
// that issues master headers, collects responses, and (in sniffer mode)
// tracks traffic on the wire (§4.3). Adapted from the teacher's CAN-gateway
// transport package: it used to decode/encode socketcan/cannelloni frames
// off an io.Reader/io.Writer; this keeps the same "abstract the byte
// stream behind small interfaces" shape for the LINE wire protocol instead.
package transport

import (
	"io"
	"sync"
	"time"

	"github.com/kstaniek/line-bus/internal/codec"
	"github.com/kstaniek/line-bus/internal/metrics"
)

// Port is the byte-stream abstraction the transport drives; satisfied by
// internal/serialport's wrapper over github.com/tarm/serial as well as any
// in-memory fake used in tests.
type Port interface {
	io.Reader
	io.Writer
}

// TrafficListener observes raw bus events: a full request/response seen,
// or a failure classified by a codec sentinel error (§4.3 step 7).
type TrafficListener interface {
	OnRequest(ts time.Time, reqID int, size int, data []byte, checksum byte)
	OnError(ts time.Time, reqID int, err error)
}

// SnifferResponder lets a caller (typically a virtual-bus adapter) answer
// requests observed on the wire while sniffing, mirroring the LINE
// transport listener hook of §4.3's WaitReqLsb state.
type SnifferResponder interface {
	OnRequest(reqID int) (data []byte, responded bool)
	OnRequestComplete(reqID int, data []byte)
}

// Config configures a Transport instance.
type Config struct {
	Port    Port
	Baud    int
	OneWire bool
}

// Transport drives a single half-duplex LINE wire as bus master and,
// optionally, as a passive sniffer.
type Transport struct {
	port    Port
	oneWire bool

	mu        sync.Mutex
	listeners []TrafficListener

	now func() time.Time // overridable for tests
}

// New constructs a Transport over the given port.
func New(cfg Config) *Transport {
	return &Transport{port: cfg.Port, oneWire: cfg.OneWire, now: time.Now}
}

// AddTrafficListener registers an observer of raw bus events.
func (t *Transport) AddTrafficListener(l TrafficListener) {
	t.mu.Lock()
	t.listeners = append(t.listeners, l)
	t.mu.Unlock()
}

func (t *Transport) notifyRequest(reqID, size int, data []byte, checksum byte) {
	t.mu.Lock()
	ls := append([]TrafficListener(nil), t.listeners...)
	t.mu.Unlock()
	ts := t.now()
	for _, l := range ls {
		l.OnRequest(ts, reqID, size, data, checksum)
	}
}

func (t *Transport) notifyError(reqID int, err error) {
	t.mu.Lock()
	ls := append([]TrafficListener(nil), t.listeners...)
	t.mu.Unlock()
	ts := t.now()
	for _, l := range ls {
		l.OnError(ts, reqID, err)
	}
}

// RequestData performs a master request/response exchange (§4.3).
func (t *Transport) RequestData(reqID int) ([]byte, error) {
	header, err := codec.CreateHeader(reqID)
	if err != nil {
		return nil, err
	}
	if _, err := t.port.Write(header); err != nil {
		return nil, err
	}

	if t.oneWire {
		if err := t.drainEcho(len(header)); err != nil {
			metrics.IncTransportError(metrics.ErrSelfEcho)
			t.notifyError(reqID, codec.ErrSelfEchoTimeout)
			return nil, codec.ErrSelfEchoTimeout
		}
	}

	sizeByte, err := readByte(t.port, codec.RequestTimeout)
	if err != nil {
		metrics.IncTransportError(metrics.ErrTimeout)
		t.notifyError(reqID, codec.ErrTimeout)
		return nil, codec.ErrTimeout
	}
	size := int(sizeByte)

	data := make([]byte, 0, size)
	for len(data) < size {
		b, err := readByte(t.port, codec.DataTimeout)
		if err != nil {
			metrics.IncTransportError(metrics.ErrIncomplete)
			t.notifyError(reqID, codec.ErrIncompleteResponse)
			return nil, codec.ErrIncompleteResponse
		}
		data = append(data, b)
	}

	checksumByte, err := readByte(t.port, codec.DataTimeout)
	if err != nil {
		metrics.IncTransportError(metrics.ErrIncomplete)
		t.notifyError(reqID, codec.ErrIncompleteResponse)
		return nil, codec.ErrIncompleteResponse
	}
	if codec.DataChecksum(data) != checksumByte {
		metrics.IncTransportError(metrics.ErrChecksum)
		t.notifyError(reqID, codec.ErrChecksum)
		return nil, codec.ErrChecksum
	}

	metrics.IncFramesRx()
	t.notifyRequest(reqID, size, data, checksumByte)
	return data, nil
}

// SendData writes a complete frame (§4.3 send_data).
func (t *Transport) SendData(reqID int, data []byte, checksum *byte) error {
	frame, err := codec.CreateFrame(reqID, data, checksum)
	if err != nil {
		return err
	}
	if _, err := t.port.Write(frame); err != nil {
		return err
	}
	if t.oneWire {
		if err := t.drainEcho(len(frame)); err != nil {
			metrics.IncTransportError(metrics.ErrSelfEcho)
			t.notifyError(reqID, codec.ErrSelfEchoTimeout)
			return codec.ErrSelfEchoTimeout
		}
	}
	metrics.IncFramesTx()
	t.notifyRequest(reqID, len(data), data, codec.DataChecksum(data))
	return nil
}

const selfEchoTimeout = 1 * time.Second

func (t *Transport) drainEcho(n int) error {
	for i := 0; i < n; i++ {
		if _, err := readByte(t.port, selfEchoTimeout); err != nil {
			return err
		}
	}
	return nil
}

// readByte reads a single byte from r, failing if none arrives within
// timeout. The read races against a timer rather than relying on the Port
// supporting deadlines, so it works uniformly over any io.Reader-backed Port.
func readByte(r io.Reader, timeout time.Duration) (byte, error) {
	type result struct {
		b   byte
		err error
	}
	ch := make(chan result, 1)
	go func() {
		var buf [1]byte
		n, err := r.Read(buf[:])
		if n > 0 {
			ch <- result{buf[0], nil}
			return
		}
		if err == nil {
			err = io.ErrNoProgress
		}
		ch <- result{0, err}
	}()
	select {
	case res := <-ch:
		return res.b, res.err
	case <-time.After(timeout):
		return 0, codec.ErrTimeout
	}
}
