// Package virtualbus implements the in-process fan-out bus of §4.4: every
// request is offered to all members, and more than one non-null response
// is reported as contention.
package virtualbus

import (
	"sync"

	"github.com/kstaniek/line-bus/internal/codec"
	"github.com/kstaniek/line-bus/internal/metrics"
)

// Member is a participant on the virtual bus (typically a simulated
// peripheral from internal/peripheral).
type Member interface {
	OnRequest(reqID int) (data []byte, responded bool)
	OnRequestComplete(reqID int, data []byte)
	OnError(reqID int, err error)
}

// Bus fans requests out to its members and detects contention.
type Bus struct {
	mu      sync.RWMutex
	members []Member
}

// New creates an empty virtual bus.
func New() *Bus { return &Bus{} }

// Add registers a member. Members may be added but not removed while a
// request is in flight — callers must serialize Add with OnRequest, which
// the master engine's single-worker invariant (§5) already guarantees.
func (b *Bus) Add(m Member) {
	b.mu.Lock()
	b.members = append(b.members, m)
	n := len(b.members)
	b.mu.Unlock()
	metrics.SetSimulatedPeripherals(n)
}

// OnRequest offers reqID to every member in order. At most one member may
// respond; a second non-null response raises ErrBusContention.
func (b *Bus) OnRequest(reqID int) (data []byte, responded bool, err error) {
	b.mu.RLock()
	members := append([]Member(nil), b.members...)
	b.mu.RUnlock()

	for _, m := range members {
		d, ok := m.OnRequest(reqID)
		if !ok {
			continue
		}
		if responded {
			metrics.IncBusContention()
			return nil, false, codec.ErrBusContention
		}
		data, responded = d, true
	}
	return data, responded, nil
}

// OnRequestComplete fans out unconditionally to every member.
func (b *Bus) OnRequestComplete(reqID int, data []byte) {
	b.mu.RLock()
	members := append([]Member(nil), b.members...)
	b.mu.RUnlock()
	for _, m := range members {
		m.OnRequestComplete(reqID, data)
	}
}

// OnError fans out unconditionally to every member.
func (b *Bus) OnError(reqID int, err error) {
	b.mu.RLock()
	members := append([]Member(nil), b.members...)
	b.mu.RUnlock()
	for _, m := range members {
		m.OnError(reqID, err)
	}
}

// Count returns the number of registered members.
func (b *Bus) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.members)
}
