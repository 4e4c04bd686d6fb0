package codec

import "errors"

// Sentinel errors, classified with errors.Is at call sites, mirroring the
// server package's wrapped-sentinel convention.
var (
	ErrInvalidRequest     = errors.New("codec: invalid request id")
	ErrTimeout            = errors.New("codec: timeout waiting for response")
	ErrIncompleteResponse = errors.New("codec: incomplete response")
	ErrChecksum           = errors.New("codec: checksum mismatch")
	ErrHeader             = errors.New("codec: header parity mismatch")
	ErrSelfEchoTimeout    = errors.New("codec: one-wire self-echo timeout")
	ErrBusContention      = errors.New("codec: bus contention")
	ErrUnknownLabel       = errors.New("codec: unknown label")
	ErrUnmappedCode       = errors.New("codec: unmapped code")
	ErrLookup             = errors.New("codec: unknown name or address")
	ErrConfig             = errors.New("codec: invalid configuration")
)
