// Package serialport wraps github.com/tarm/serial as the transport.Port
// implementation used against a real LINE bus, and offers a write-behind
// TxWriter for callers that must not block on a slow or wedged device.
package serialport

import (
	"time"

	"github.com/tarm/serial"
)

// Port is satisfied by *serial.Port and by in-memory fakes used in tests.
type Port interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

// Open opens a serial device at the given baud rate. readTimeout bounds
// each individual Read call, independent of transport's own per-byte
// timeout logic, and should generally be left small (tens of
// milliseconds) so the transport's own timers stay in control.
func Open(name string, baud int, readTimeout time.Duration) (Port, error) {
	cfg := &serial.Config{Name: name, Baud: baud, ReadTimeout: readTimeout}
	return serial.OpenPort(cfg)
}
