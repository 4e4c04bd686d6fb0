package master

import (
	"time"

	"github.com/kstaniek/line-bus/internal/network"
)

// PowerStatus mirrors the decoded power-status diagnostic response.
type PowerStatus struct {
	VoltageVolts   float64
	OpCurrent      int
	SleepCurrent   int
}

// NodeStatus buffers the most recently observed diagnostic values for one
// bus address. Zero-value fields (nil pointers) mean "never observed".
type NodeStatus struct {
	OpStatus        *string
	PowerStatus     *PowerStatus
	SerialNumber    *uint32
	SoftwareVersion *string
}

func newNodeStatus() *NodeStatus { return &NodeStatus{} }

func (n *NodeStatus) reset() {
	n.OpStatus = nil
	n.PowerStatus = nil
	n.SerialNumber = nil
	n.SoftwareVersion = nil
}

// NodeStatusProperty names which field of a NodeStatus a listener was
// notified about.
type NodeStatusProperty int

const (
	PropertyOpStatus NodeStatusProperty = iota
	PropertyPowerStatus
	PropertySerialNumber
	PropertySoftwareVersion
)

func (p NodeStatusProperty) String() string {
	switch p {
	case PropertyOpStatus:
		return "op_status"
	case PropertyPowerStatus:
		return "power_status"
	case PropertySerialNumber:
		return "serial_number"
	case PropertySoftwareVersion:
		return "software_version"
	default:
		return "unknown"
	}
}

// UserRequest buffers the most recent decode of one network-described
// request, so callers that poll rather than subscribe can read a steady
// value between updates.
type UserRequest struct {
	Request       *network.Request
	LastTimestamp time.Time
	Signals       network.SignalValueContainer
	Err           error
}

func newUserRequest(req *network.Request) *UserRequest {
	return &UserRequest{Request: req}
}

func (u *UserRequest) reset() {
	u.LastTimestamp = time.Time{}
	u.Signals = network.SignalValueContainer{}
	u.Err = nil
}

// RequestListener observes completed or failed user requests.
type RequestListener interface {
	OnUserRequest(ts time.Time, req *network.Request, signals network.SignalValueContainer)
	OnError(ts time.Time, req *network.Request, err error)
}

// NodeStatusListener observes diagnostic status changes for a bus address.
type NodeStatusListener interface {
	OnNodeChange(ts time.Time, addr int, status *NodeStatus, property NodeStatusProperty)
}
