package master

import "errors"

var (
	// ErrNoNetwork is returned by name-based lookups when the master was
	// constructed without a network.Network.
	ErrNoNetwork = errors.New("master: no network configured")
	// ErrNotRunning is returned by calls made before Enter or after Exit.
	ErrNotRunning = errors.New("master: not running")
	// ErrNoTransport is returned when a receive is scheduled with neither a
	// transport nor a virtual-bus responder able to answer it.
	ErrNoTransport = errors.New("master: no transport configured")
)
