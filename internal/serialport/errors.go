package serialport

import "errors"

// ErrTxOverflow is returned by TxWriter.SendFrame when the write-behind
// buffer is full.
var ErrTxOverflow = errors.New("serialport: tx overflow")
