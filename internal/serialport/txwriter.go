package serialport

import (
	"context"

	"github.com/kstaniek/line-bus/internal/logging"
	"github.com/kstaniek/line-bus/internal/metrics"
	"github.com/kstaniek/line-bus/internal/transport"
)

// TxWriter funnels writes to a Port through one goroutine, so a caller
// that must not block behind a slow device (e.g. a sniffer relaying
// echoed virtual-bus responses) can fire-and-forget.
type TxWriter struct{ base *transport.AsyncTx[[]byte] }

// NewTxWriter creates a write-behind TxWriter with a buffered channel of
// size buf.
func NewTxWriter(parent context.Context, p Port, buf int) *TxWriter {
	send := func(frame []byte) error {
		_, err := p.Write(frame)
		return err
	}
	hooks := transport.Hooks{
		OnError: func(err error) {
			metrics.IncTransportError(metrics.ErrWrite)
			logging.L().Error("serial_write_error", "error", err)
		},
		OnAfter: func() { metrics.IncFramesTx() },
		OnDrop: func() error {
			metrics.IncTransportError(metrics.ErrWrite)
			return ErrTxOverflow
		},
	}
	return &TxWriter{base: transport.NewAsyncTx(parent, buf, send, hooks)}
}

// SendFrame queues a frame for asynchronous write, dropping with
// ErrTxOverflow if the buffer is full.
func (w *TxWriter) SendFrame(frame []byte) error { return w.base.SendFrame(frame) }

// Close stops the writer and waits for the goroutine to exit.
func (w *TxWriter) Close() { w.base.Close() }
