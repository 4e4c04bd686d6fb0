// Package peripheral implements the simulated LINE peripheral of §4.5: a
// virtual-bus member that answers publishes and diagnostic requests and
// reacts to broadcasts and subscribed requests.
package peripheral

import (
	"encoding/binary"
	"sync"

	"github.com/kstaniek/line-bus/internal/codec"
	"github.com/kstaniek/line-bus/internal/network"
)

// PowerStatus mirrors the four-byte power-status diagnostic payload.
type PowerStatus struct {
	VoltageDeciVolts byte
	OpCurrentLo      byte
	OpCurrentHi      byte
	SleepCurrent     byte
}

// SoftwareVersion is the {major, minor, patch} diagnostic payload.
type SoftwareVersion struct {
	Major, Minor, Patch byte
}

// Hooks lets a test or application observe peripheral lifecycle events.
type Hooks struct {
	OnWakeup   func()
	OnIdle     func()
	OnShutdown func()
	OnAddressChanged func(newAddr int)
	OnSubscribed     func(req *network.Request, values network.SignalValueContainer)
}

// Peripheral is a simulated LINE node attachable to a virtualbus.Bus.
type Peripheral struct {
	node *network.Node

	mu              sync.Mutex
	address         int
	hasAddress      bool
	connected       bool
	serialNumber    uint32
	hasSerial       bool
	opStatus        *codec.OpStatus
	powerStatus     *PowerStatus
	softwareVersion *SoftwareVersion

	outgoing map[int]map[string]any // request id -> signal name -> value

	hooks Hooks
}

// New creates a peripheral for the given node, initially disconnected.
func New(node *network.Node, serialNumber uint32, hooks Hooks) *Peripheral {
	p := &Peripheral{
		node:         node,
		address:      node.Address,
		hasAddress:   true,
		serialNumber: serialNumber,
		hasSerial:    true,
		outgoing:     make(map[int]map[string]any),
		hooks:        hooks,
	}
	for _, req := range node.Publishes {
		values := make(map[string]any, len(req.Signals))
		for _, s := range req.Signals {
			values[s.Name] = s.Initial
		}
		p.outgoing[req.ID] = values
	}
	return p
}

// Connect marks the peripheral as present on the bus.
func (p *Peripheral) Connect() { p.mu.Lock(); p.connected = true; p.mu.Unlock() }

// Disconnect marks the peripheral as absent; it stops responding entirely.
func (p *Peripheral) Disconnect() { p.mu.Lock(); p.connected = false; p.mu.Unlock() }

// SetSignal updates a value to be published the next time its owning
// request is queried.
func (p *Peripheral) SetSignal(requestID int, signalName string, value any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if m, ok := p.outgoing[requestID]; ok {
		m[signalName] = value
	}
}

// SetOpStatus sets the diagnostic operation-status property.
func (p *Peripheral) SetOpStatus(s codec.OpStatus) { p.mu.Lock(); p.opStatus = &s; p.mu.Unlock() }

// SetPowerStatus sets the diagnostic power-status property.
func (p *Peripheral) SetPowerStatus(s PowerStatus) { p.mu.Lock(); p.powerStatus = &s; p.mu.Unlock() }

// SetSoftwareVersion sets the diagnostic software-version property.
func (p *Peripheral) SetSoftwareVersion(v SoftwareVersion) {
	p.mu.Lock()
	p.softwareVersion = &v
	p.mu.Unlock()
}

// OnRequest implements virtualbus.Member (§4.5 on_request).
func (p *Peripheral) OnRequest(reqID int) ([]byte, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.connected {
		return nil, false
	}

	if req := p.publishedRequest(reqID); req != nil {
		data, err := req.Encode(p.outgoing[req.ID])
		if err != nil {
			return nil, false
		}
		return data, true
	}

	if !p.hasAddress || p.address == codec.AddressUnassigned {
		return nil, false
	}
	if reqID&0xF != p.address {
		return nil, false
	}

	switch reqID &^ 0xF {
	case codec.ReqOpStatusBase:
		if p.opStatus == nil {
			return nil, false
		}
		return []byte{byte(*p.opStatus)}, true
	case codec.ReqSerialNumberBase:
		if !p.hasSerial {
			return nil, false
		}
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, p.serialNumber)
		return buf, true
	case codec.ReqSoftwareVersionBase:
		if p.softwareVersion == nil {
			return nil, false
		}
		v := p.softwareVersion
		return []byte{v.Major, v.Minor, v.Patch}, true
	case codec.ReqPowerStatusBase:
		if p.powerStatus == nil {
			return nil, false
		}
		s := p.powerStatus
		return []byte{s.VoltageDeciVolts, s.OpCurrentLo, s.OpCurrentHi, s.SleepCurrent}, true
	}
	return nil, false
}

func (p *Peripheral) publishedRequest(reqID int) *network.Request {
	for _, r := range p.node.Publishes {
		if r.ID == reqID {
			return r
		}
	}
	return nil
}

// OnRequestComplete implements virtualbus.Member (§4.5 on_request_complete).
func (p *Peripheral) OnRequestComplete(reqID int, data []byte) {
	switch reqID {
	case codec.ReqWakeup:
		if p.hooks.OnWakeup != nil {
			p.hooks.OnWakeup()
		}
		return
	case codec.ReqIdle:
		if p.hooks.OnIdle != nil {
			p.hooks.OnIdle()
		}
		return
	case codec.ReqShutdown:
		if p.hooks.OnShutdown != nil {
			p.hooks.OnShutdown()
		}
		return
	case codec.ReqCondChangeAddress:
		p.handleConditionalChangeAddress(data)
		return
	}

	if sub := p.subscribedRequest(reqID); sub != nil {
		values, err := sub.Decode(data)
		if err != nil {
			return
		}
		if p.hooks.OnSubscribed != nil {
			p.hooks.OnSubscribed(sub, values)
		}
	}
}

func (p *Peripheral) subscribedRequest(reqID int) *network.Request {
	for _, r := range p.node.Subscribes {
		if r.ID == reqID {
			return r
		}
	}
	return nil
}

func (p *Peripheral) handleConditionalChangeAddress(data []byte) {
	if len(data) < 5 {
		return
	}
	serial := binary.LittleEndian.Uint32(data[0:4])
	newAddr := int(data[4])

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.hasSerial && p.serialNumber == serial {
		p.address = newAddr
		p.hasAddress = true
		if p.hooks.OnAddressChanged != nil {
			p.hooks.OnAddressChanged(newAddr)
		}
		return
	}
	if p.hasAddress && p.address == newAddr && (!p.hasSerial || p.serialNumber != serial) {
		p.address = codec.AddressUnassigned
	}
}

// OnError implements virtualbus.Member; peripherals do not react to errors
// other than to keep their silence.
func (p *Peripheral) OnError(reqID int, err error) {}
