package serialport

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"
)

type fakePort struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (p *fakePort) Read(b []byte) (int, error)  { return 0, nil }
func (p *fakePort) Close() error                { return nil }
func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buf.Write(b)
}
func (p *fakePort) written() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]byte(nil), p.buf.Bytes()...)
}

func TestTxWriter_WritesThroughAsynchronously(t *testing.T) {
	port := &fakePort{}
	w := NewTxWriter(context.Background(), port, 4)
	defer w.Close()

	if err := w.SendFrame([]byte{0x55, 0xC2, 0x00}); err != nil {
		t.Fatalf("SendFrame: %v", err)
	}

	deadline := time.Now().Add(200 * time.Millisecond)
	for time.Now().Before(deadline) && len(port.written()) == 0 {
		time.Sleep(5 * time.Millisecond)
	}
	if got := port.written(); len(got) != 3 {
		t.Fatalf("written = % X, want 3 bytes", got)
	}
}

func TestTxWriter_OverflowDropsWithError(t *testing.T) {
	blockCh := make(chan struct{})
	port := &blockingPort{release: blockCh, entered: make(chan struct{}, 1)}
	w := NewTxWriter(context.Background(), port, 1)
	defer func() {
		close(blockCh)
		w.Close()
	}()

	if err := w.SendFrame([]byte{0x01}); err != nil {
		t.Fatalf("first SendFrame: %v", err)
	}
	// Wait until the worker is blocked inside Write holding the first frame;
	// the second frame then fills the one-slot buffer and the third overflows.
	<-port.entered
	if err := w.SendFrame([]byte{0x02}); err != nil {
		t.Fatalf("second SendFrame: %v", err)
	}
	if err := w.SendFrame([]byte{0x03}); err != ErrTxOverflow {
		t.Fatalf("err = %v, want ErrTxOverflow", err)
	}
}

type blockingPort struct {
	release chan struct{}
	entered chan struct{}
}

func (p *blockingPort) Read(b []byte) (int, error) { return 0, nil }
func (p *blockingPort) Close() error                { return nil }
func (p *blockingPort) Write(b []byte) (int, error) {
	select {
	case p.entered <- struct{}{}:
	default:
	}
	<-p.release
	return len(b), nil
}
