package master

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/kstaniek/line-bus/internal/codec"
	"github.com/kstaniek/line-bus/internal/logging"
	"github.com/kstaniek/line-bus/internal/metrics"
)

// doTransmit implements the worker's Tx path (§4.6): write the frame,
// notify the virtual bus that the request completed, and release the
// caller.
func (m *Master) doTransmit(ev *transmitEvent) {
	ts := time.Now()

	if m.transport != nil {
		if err := m.transport.SendData(ev.reqID, ev.data, ev.checksum); err != nil {
			logging.L().Warn("master_tx_error", "request", fmt.Sprintf("0x%04X", ev.reqID), "error", err)
		}
	}
	m.bus.OnRequestComplete(ev.reqID, ev.data)

	ev.timestamp = ts
	ev.complete(nil, nil)
}

// doReceive implements the worker's Rx path (§4.6): try the virtual bus
// first, falling back to the transport, then dispatch the response through
// the diagnostic and user-request tables before releasing the caller.
func (m *Master) doReceive(ev *transmitEvent) {
	data, responded, err := m.bus.OnRequest(ev.reqID)
	if err != nil {
		m.bus.OnError(ev.reqID, err)
		m.finishReceiveError(ev, err)
		return
	}

	if responded {
		ts := time.Now()
		if m.transport != nil {
			_ = m.transport.SendData(ev.reqID, data, nil)
		}
		m.processDiagnosticRequest(ts, ev.reqID, data)
		m.processUserRequest(ts, ev.reqID, data)
		m.bus.OnRequestComplete(ev.reqID, data)

		ev.timestamp = ts
		ev.complete(data, nil)
		return
	}

	if m.transport == nil {
		m.finishReceiveError(ev, ErrNoTransport)
		return
	}

	response, err := m.transport.RequestData(ev.reqID)
	ts := time.Now()
	if err != nil {
		m.bus.OnError(ev.reqID, err)
		m.processUserRequestError(ts, ev.reqID, err)
		m.finishReceiveError(ev, err)
		return
	}

	m.processDiagnosticRequest(ts, ev.reqID, response)
	m.processUserRequest(ts, ev.reqID, response)
	m.bus.OnRequestComplete(ev.reqID, response)

	ev.timestamp = ts
	ev.complete(response, nil)
}

func (m *Master) finishReceiveError(ev *transmitEvent, err error) {
	ev.timestamp = time.Now()
	ev.complete(nil, err)
}

// processDiagnosticRequest updates the buffered node status table from a
// diagnostic response and notifies node-status listeners (§4.6
// _process_diagnostic_request).
func (m *Master) processDiagnosticRequest(ts time.Time, reqID int, data []byte) {
	addr := reqID & 0xF
	var prop NodeStatusProperty
	var changed bool

	status := m.GetNodeStatus(addr)
	m.mu.Lock()
	switch reqID &^ 0xF {
	case codec.ReqOpStatusBase:
		if len(data) < 1 {
			m.mu.Unlock()
			return
		}
		label := codec.OpStatus(data[0]).String()
		status.OpStatus = &label
		prop, changed = PropertyOpStatus, true
	case codec.ReqPowerStatusBase:
		if len(data) < 3 {
			m.mu.Unlock()
			return
		}
		status.PowerStatus = &PowerStatus{
			VoltageVolts: float64(data[0]) / 10.0,
			OpCurrent:    int(data[1]),
			SleepCurrent: int(data[2]),
		}
		prop, changed = PropertyPowerStatus, true
	case codec.ReqSerialNumberBase:
		if len(data) < 4 {
			m.mu.Unlock()
			return
		}
		serial := binary.LittleEndian.Uint32(data[0:4])
		status.SerialNumber = &serial
		prop, changed = PropertySerialNumber, true
	case codec.ReqSoftwareVersionBase:
		if len(data) < 3 {
			m.mu.Unlock()
			return
		}
		version := fmt.Sprintf("%d.%d.%d", data[0], data[1], data[2])
		status.SoftwareVersion = &version
		prop, changed = PropertySoftwareVersion, true
	}
	m.mu.Unlock()

	if changed {
		metrics.IncNodeStatusUpdate(prop.String())
		m.notifyNodeChange(ts, addr, status, prop)
	}
}

// processUserRequest decodes a response against its network.Request
// definition and buffers it for GetUserRequest / listener notification
// (§4.6 _process_user_request).
func (m *Master) processUserRequest(ts time.Time, reqID int, data []byte) {
	m.mu.Lock()
	ur, ok := m.userRequests[reqID]
	m.mu.Unlock()
	if !ok {
		return
	}
	signals, err := ur.Request.Decode(data)
	if err != nil {
		metrics.IncUserRequestDecodeError()
		m.processUserRequestError(ts, reqID, err)
		return
	}

	m.mu.Lock()
	ur.Signals = signals
	ur.LastTimestamp = ts
	ur.Err = nil
	m.mu.Unlock()

	m.notifyUserRequest(ts, ur.Request, signals)
}

func (m *Master) processUserRequestError(ts time.Time, reqID int, err error) {
	m.mu.Lock()
	ur, ok := m.userRequests[reqID]
	if ok {
		ur.Err = err
		ur.LastTimestamp = ts
	}
	m.mu.Unlock()
	if ok {
		m.notifyRequestError(ts, ur.Request, err)
	}
}

// GetUserRequest returns the buffered decode of a network-described
// request by id, if one is registered.
func (m *Master) GetUserRequest(reqID int) (*UserRequest, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ur, ok := m.userRequests[reqID]
	return ur, ok
}
