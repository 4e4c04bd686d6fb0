package transport

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/kstaniek/line-bus/internal/codec"
)

// queuePort is a fake Port backed by a queue of pre-loaded read bytes and a
// buffer recording everything written to it, used to simulate both a
// one-wire self-echo and a peripheral's response arriving afterward.
type queuePort struct {
	mu      sync.Mutex
	toRead  []byte
	written bytes.Buffer
}

func (p *queuePort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.toRead) == 0 {
		<-time.After(time.Second) // starve the caller into a timeout
		return 0, nil
	}
	n := copy(b, p.toRead)
	p.toRead = p.toRead[n:]
	return n, nil
}

func (p *queuePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written.Write(b)
}

func (p *queuePort) queue(b []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.toRead = append(p.toRead, b...)
}

func TestTransport_RequestData_OneWireEchoThenResponse(t *testing.T) {
	port := &queuePort{}
	tr := New(Config{Port: port, OneWire: true})

	header, err := codec.CreateHeader(0x0200)
	if err != nil {
		t.Fatalf("CreateHeader: %v", err)
	}
	resp := []byte{0x01}
	port.queue(header)                          // self-echo of our own header
	port.queue([]byte{byte(len(resp))})          // size byte
	port.queue(resp)                             // payload
	port.queue([]byte{codec.DataChecksum(resp)}) // checksum

	data, err := tr.RequestData(0x0200)
	if err != nil {
		t.Fatalf("RequestData: %v", err)
	}
	if !bytes.Equal(data, resp) {
		t.Fatalf("data = % X, want % X", data, resp)
	}
}

func TestTransport_RequestData_ChecksumMismatch(t *testing.T) {
	port := &queuePort{}
	tr := New(Config{Port: port, OneWire: false})

	resp := []byte{0x01}
	port.queue([]byte{byte(len(resp))})
	port.queue(resp)
	port.queue([]byte{codec.DataChecksum(resp) + 1})

	var gotErr error
	tr.AddTrafficListener(listenerFunc{onError: func(reqID int, err error) { gotErr = err }})

	if _, err := tr.RequestData(0x0200); err != codec.ErrChecksum {
		t.Fatalf("err = %v, want ErrChecksum", err)
	}
	if gotErr != codec.ErrChecksum {
		t.Fatalf("listener err = %v, want ErrChecksum", gotErr)
	}
}

func TestTransport_RequestData_Timeout(t *testing.T) {
	port := &queuePort{}
	tr := New(Config{Port: port, OneWire: false})

	if _, err := tr.RequestData(0x0200); err != codec.ErrTimeout {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
}

func TestTransport_SendData_NonOneWire(t *testing.T) {
	port := &queuePort{}
	tr := New(Config{Port: port, OneWire: false})

	var seen []byte
	tr.AddTrafficListener(listenerFunc{onRequest: func(reqID, size int, data []byte, checksum byte) {
		seen = data
	}})

	data := []byte{0xAA, 0xBB}
	if err := tr.SendData(0x0300, data, nil); err != nil {
		t.Fatalf("SendData: %v", err)
	}
	want, _ := codec.CreateFrame(0x0300, data, nil)
	if !bytes.Equal(port.written.Bytes(), want) {
		t.Fatalf("written = % X, want % X", port.written.Bytes(), want)
	}
	if !bytes.Equal(seen, data) {
		t.Fatalf("listener saw % X, want % X", seen, data)
	}
}

type listenerFunc struct {
	onRequest func(reqID, size int, data []byte, checksum byte)
	onError   func(reqID int, err error)
}

func (l listenerFunc) OnRequest(_ time.Time, reqID, size int, data []byte, checksum byte) {
	if l.onRequest != nil {
		l.onRequest(reqID, size, data, checksum)
	}
}

func (l listenerFunc) OnError(_ time.Time, reqID int, err error) {
	if l.onError != nil {
		l.onError(reqID, err)
	}
}
