// Package network holds the in-memory LINE network model: Nodes, Requests,
// Signals and Schedules, constructed once by a loader and thereafter
// immutable (§3).
package network

import (
	"fmt"
	"sort"

	"github.com/kstaniek/line-bus/internal/codec"
	"github.com/kstaniek/line-bus/internal/signal"
)

// Signal is a named bit-field within a Request payload.
type Signal struct {
	Name    string
	Offset  int // bits
	Width   int // bits, 1..32
	Initial any
	Encoder signal.Encoder // nil means raw integer pass-through with no transform
}

// SignalValue is the decoded value of one Signal: its physical
// interpretation (phy) alongside the raw integer that produced it.
type SignalValue struct {
	Signal *Signal
	Phy    any
	Raw    uint32
}

// SignalValueContainer maps signal names to their decoded values.
type SignalValueContainer struct {
	values map[string]SignalValue
}

func newSignalValueContainer(values []SignalValue) SignalValueContainer {
	m := make(map[string]SignalValue, len(values))
	for _, v := range values {
		m[v.Signal.Name] = v
	}
	return SignalValueContainer{values: m}
}

// Get returns the decoded value for a signal name.
func (c SignalValueContainer) Get(name string) (SignalValue, bool) {
	v, ok := c.values[name]
	return v, ok
}

// Names returns all signal names present, unordered.
func (c SignalValueContainer) Names() []string {
	names := make([]string, 0, len(c.values))
	for n := range c.values {
		names = append(names, n)
	}
	return names
}

// Request is an application-level message: a 14-bit id with a payload of
// up to 8 bytes made of non-overlapping signals sorted by offset.
type Request struct {
	Name    string
	ID      int
	Size    int // payload bytes, 0..8
	Signals []*Signal
}

// NewRequest validates and constructs a Request, sorting signals by offset
// and rejecting overlap or out-of-frame placement (§3).
func NewRequest(name string, id, size int, signals []*Signal) (*Request, error) {
	if id < 0 || id > codec.ParityMask {
		return nil, fmt.Errorf("%w: request %q id %d out of 14-bit range", codec.ErrConfig, name, id)
	}
	if size < 0 || size > 8 {
		return nil, fmt.Errorf("%w: request %q size %d out of 0..8 range", codec.ErrConfig, name, size)
	}
	sorted := make([]*Signal, len(signals))
	copy(sorted, signals)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Offset < sorted[j].Offset })

	end := 0
	for _, s := range sorted {
		if s.Width < 1 || s.Width > 32 {
			return nil, fmt.Errorf("%w: signal %q width %d out of 1..32 range", codec.ErrConfig, s.Name, s.Width)
		}
		if s.Offset < end {
			return nil, fmt.Errorf("%w: signal %q overlaps preceding signal", codec.ErrConfig, s.Name)
		}
		end = s.Offset + s.Width
		if end > size*8 {
			return nil, fmt.Errorf("%w: signal %q spans outside the %d-byte frame", codec.ErrConfig, s.Name, size)
		}
	}
	return &Request{Name: name, ID: id, Size: size, Signals: sorted}, nil
}

// GetSignal looks up a signal by name.
func (r *Request) GetSignal(name string) (*Signal, error) {
	for _, s := range r.Signals {
		if s.Name == name {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: signal %q not found in request %q", codec.ErrLookup, name, r.Name)
}

// Encode packs the given signal values (by name) into the little-endian
// payload; any signal not present uses its Initial value. Padding bits
// between or after signals are left at zero.
func (r *Request) Encode(values map[string]any) ([]byte, error) {
	data := make([]byte, r.Size)
	for _, s := range r.Signals {
		value, provided := values[s.Name]
		if !provided {
			value = s.Initial
		}
		var raw uint32
		var err error
		if s.Encoder != nil {
			raw, err = s.Encoder.Encode(value)
			if err != nil {
				return nil, err
			}
		} else {
			raw, err = toRaw(value)
			if err != nil {
				return nil, err
			}
		}
		packBits(data, s.Offset, s.Width, raw)
	}
	return data, nil
}

func toRaw(value any) (uint32, error) {
	switch v := value.(type) {
	case int:
		return uint32(v), nil
	case int64:
		return uint32(v), nil
	case uint32:
		return v, nil
	default:
		return 0, fmt.Errorf("%w: cannot encode %v without an encoder", codec.ErrConfig, value)
	}
}

// Decode extracts each signal from data and runs it through its encoder
// (or passes the raw integer through unchanged).
func (r *Request) Decode(data []byte) (SignalValueContainer, error) {
	values := make([]SignalValue, 0, len(r.Signals))
	for _, s := range r.Signals {
		raw := unpackBits(data, s.Offset, s.Width)
		var phy any
		var err error
		if s.Encoder != nil {
			phy, err = s.Encoder.Decode(raw)
			if err != nil {
				return SignalValueContainer{}, err
			}
		} else {
			phy = int64(raw)
		}
		values = append(values, SignalValue{Signal: s, Phy: phy, Raw: raw})
	}
	return newSignalValueContainer(values), nil
}

// packBits ORs the low `width` bits of raw into data at bit offset,
// little-endian within the byte window.
func packBits(data []byte, offset, width int, raw uint32) {
	for i := 0; i < width; i++ {
		bit := offset + i
		byteIdx, bitIdx := bit/8, bit%8
		if byteIdx >= len(data) {
			return
		}
		if raw&(1<<uint(i)) != 0 {
			data[byteIdx] |= 1 << uint(bitIdx)
		}
	}
}

// unpackBits is the inverse of packBits.
func unpackBits(data []byte, offset, width int) uint32 {
	var raw uint32
	for i := 0; i < width; i++ {
		bit := offset + i
		byteIdx, bitIdx := bit/8, bit%8
		if byteIdx >= len(data) {
			break
		}
		if data[byteIdx]&(1<<uint(bitIdx)) != 0 {
			raw |= 1 << uint(i)
		}
	}
	return raw
}

// Node is a physical or simulated addressable participant.
type Node struct {
	Name       string
	Address    int
	Publishes  []*Request
	Subscribes []*Request
}

// Network is the top-level immutable container for one LINE bus.
type Network struct {
	Baudrate int
	Master   *Node
	Nodes    []*Node
	Requests []*Request
	Schedules map[string]Schedule
}

// RequestByName looks up a request by name.
func (n *Network) RequestByName(name string) (*Request, error) {
	for _, r := range n.Requests {
		if r.Name == name {
			return r, nil
		}
	}
	return nil, fmt.Errorf("%w: request %q", codec.ErrLookup, name)
}

// RequestByID looks up a request by 14-bit id.
func (n *Network) RequestByID(id int) (*Request, error) {
	for _, r := range n.Requests {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, fmt.Errorf("%w: request id %d", codec.ErrLookup, id)
}

// NodeByName looks up a node by name.
func (n *Network) NodeByName(name string) (*Node, error) {
	for _, node := range n.Nodes {
		if node.Name == name {
			return node, nil
		}
	}
	return nil, fmt.Errorf("%w: node %q", codec.ErrLookup, name)
}

// NodeByAddress looks up a node by bus address.
func (n *Network) NodeByAddress(addr int) (*Node, error) {
	for _, node := range n.Nodes {
		if node.Address == addr {
			return node, nil
		}
	}
	return nil, fmt.Errorf("%w: node address %d", codec.ErrLookup, addr)
}
