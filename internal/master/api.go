package master

import (
	"encoding/binary"
	"time"

	"github.com/kstaniek/line-bus/internal/codec"
)

// RequestByID schedules a receive against reqID, optionally blocking for the
// response.
func (m *Master) RequestByID(reqID int, wait bool, timeout time.Duration) ([]byte, error) {
	ev := newEvent(m.nextEventID(), eventRx, reqID, nil, nil)
	return m.enqueue(ev, wait, timeout)
}

// Request resolves a request by name against the configured network and
// schedules a receive for it.
func (m *Master) Request(name string, wait bool, timeout time.Duration) ([]byte, error) {
	id, err := m.resolveRequestID(name)
	if err != nil {
		return nil, err
	}
	return m.RequestByID(id, wait, timeout)
}

// SendRequest schedules a transmit of data under reqID, optionally
// computing the checksum automatically when checksum is nil.
func (m *Master) SendRequest(reqID int, data []byte, checksum *byte, wait bool, timeout time.Duration) error {
	ev := newEvent(m.nextEventID(), eventTx, reqID, data, checksum)
	_, err := m.enqueue(ev, wait, timeout)
	return err
}

// Wakeup broadcasts the wakeup diagnostic.
func (m *Master) Wakeup(wait bool, timeout time.Duration) error {
	return m.SendRequest(codec.ReqWakeup, nil, nil, wait, timeout)
}

// Idle broadcasts the idle diagnostic.
func (m *Master) Idle(wait bool, timeout time.Duration) error {
	return m.SendRequest(codec.ReqIdle, nil, nil, wait, timeout)
}

// Shutdown broadcasts the shutdown diagnostic.
func (m *Master) Shutdown(wait bool, timeout time.Duration) error {
	return m.SendRequest(codec.ReqShutdown, nil, nil, wait, timeout)
}

// ConditionalChangeAddress sends the serial-matched address reassignment
// diagnostic (§4.5).
func (m *Master) ConditionalChangeAddress(serial uint32, newAddress byte, wait bool, timeout time.Duration) error {
	payload := make([]byte, 5)
	binary.LittleEndian.PutUint32(payload[0:4], serial)
	payload[4] = newAddress
	return m.SendRequest(codec.ReqCondChangeAddress, payload, nil, wait, timeout)
}

// GetOperationStatus requests a node's operation-status diagnostic. When
// wait is true it blocks and returns the buffered value updated by the
// response; wait=false returns (nil, nil) immediately.
func (m *Master) GetOperationStatus(addr int, wait bool, timeout time.Duration) (*string, error) {
	if _, err := m.RequestByID(codec.ReqOpStatusBase|addr, wait, timeout); err != nil {
		return nil, err
	}
	if !wait {
		return nil, nil
	}
	return m.GetNodeStatus(addr).OpStatus, nil
}

// GetPowerStatus requests a node's power-status diagnostic.
func (m *Master) GetPowerStatus(addr int, wait bool, timeout time.Duration) (*PowerStatus, error) {
	if _, err := m.RequestByID(codec.ReqPowerStatusBase|addr, wait, timeout); err != nil {
		return nil, err
	}
	if !wait {
		return nil, nil
	}
	return m.GetNodeStatus(addr).PowerStatus, nil
}

// GetSerialNumber requests a node's serial-number diagnostic.
func (m *Master) GetSerialNumber(addr int, wait bool, timeout time.Duration) (*uint32, error) {
	if _, err := m.RequestByID(codec.ReqSerialNumberBase|addr, wait, timeout); err != nil {
		return nil, err
	}
	if !wait {
		return nil, nil
	}
	return m.GetNodeStatus(addr).SerialNumber, nil
}

// GetSoftwareVersion requests a node's software-version diagnostic.
func (m *Master) GetSoftwareVersion(addr int, wait bool, timeout time.Duration) (*string, error) {
	if _, err := m.RequestByID(codec.ReqSoftwareVersionBase|addr, wait, timeout); err != nil {
		return nil, err
	}
	if !wait {
		return nil, nil
	}
	return m.GetNodeStatus(addr).SoftwareVersion, nil
}

// GetOperationStatusByName resolves a node by name before requesting its
// operation status.
func (m *Master) GetOperationStatusByName(node string, wait bool, timeout time.Duration) (*string, error) {
	addr, err := m.resolveNodeAddress(node)
	if err != nil {
		return nil, err
	}
	return m.GetOperationStatus(addr, wait, timeout)
}
