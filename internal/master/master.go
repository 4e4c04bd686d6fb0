// Package master implements the LINE master engine (§4.6): a single
// consumer goroutine that mediates between user calls, an optional
// schedule executor, the virtual bus and the transport.
package master

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/kstaniek/line-bus/internal/codec"
	"github.com/kstaniek/line-bus/internal/network"
	"github.com/kstaniek/line-bus/internal/schedule"
	"github.com/kstaniek/line-bus/internal/transport"
	"github.com/kstaniek/line-bus/internal/virtualbus"
)

// Transport is the subset of *transport.Transport the master drives; a
// narrow interface so tests can substitute a fake.
type Transport interface {
	RequestData(reqID int) ([]byte, error)
	SendData(reqID int, data []byte, checksum *byte) error
}

var _ Transport = (*transport.Transport)(nil)

// Master is the LINE master engine. Zero value is not usable; build one
// with New.
type Master struct {
	transport Transport
	network   *network.Network
	bus       *virtualbus.Bus

	queue    chan *transmitEvent
	eventID  atomic.Uint64
	running  atomic.Bool
	wg       sync.WaitGroup
	stop     chan struct{}
	exitOnce sync.Once

	mu           sync.Mutex
	userRequests map[int]*UserRequest
	nodeStatus   map[int]*NodeStatus

	listenersMu      sync.RWMutex
	requestListeners []RequestListener
	statusListeners  []NodeStatusListener

	scheduleMu      sync.Mutex
	scheduleRunning atomic.Bool
	scheduleStop    chan struct{}
	scheduleWg      sync.WaitGroup
}

// New builds a Master over the given transport (may be nil for a
// virtual-bus-only simulator) and network (may be nil if requests are only
// ever addressed by numeric id).
func New(t Transport, net *network.Network) *Master {
	return &Master{
		transport:    t,
		network:      net,
		bus:          virtualbus.New(),
		queue:        make(chan *transmitEvent, 256),
		userRequests: make(map[int]*UserRequest),
		nodeStatus:   make(map[int]*NodeStatus),
	}
}

// VirtualBus exposes the master's virtual bus so peripherals can be
// attached before or after Enter.
func (m *Master) VirtualBus() *virtualbus.Bus { return m.bus }

// AddRequestListener registers an observer of completed/failed user requests.
func (m *Master) AddRequestListener(l RequestListener) {
	m.listenersMu.Lock()
	m.requestListeners = append(m.requestListeners, l)
	m.listenersMu.Unlock()
}

// AddNodeStatusListener registers an observer of diagnostic status changes.
func (m *Master) AddNodeStatusListener(l NodeStatusListener) {
	m.listenersMu.Lock()
	m.statusListeners = append(m.statusListeners, l)
	m.listenersMu.Unlock()
}

// GetNodeStatus returns the buffered diagnostic status for a bus address,
// creating an empty one on first observation.
func (m *Master) GetNodeStatus(addr int) *NodeStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.nodeStatusLocked(addr)
}

func (m *Master) nodeStatusLocked(addr int) *NodeStatus {
	s, ok := m.nodeStatus[addr]
	if !ok {
		s = newNodeStatus()
		m.nodeStatus[addr] = s
	}
	return s
}

// ResetUserRequests clears every buffered user request back to unset.
func (m *Master) ResetUserRequests() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.userRequests {
		r.reset()
	}
}

// ResetNodeStatus clears every buffered node status and notifies listeners
// of the reset, one notification per property, mirroring a fresh network
// attach where nothing has been observed yet.
func (m *Master) ResetNodeStatus() {
	m.mu.Lock()
	addrs := make([]int, 0, len(m.nodeStatus))
	for addr, s := range m.nodeStatus {
		s.reset()
		addrs = append(addrs, addr)
	}
	m.mu.Unlock()

	ts := time.Now()
	for _, addr := range addrs {
		status := m.GetNodeStatus(addr)
		for _, prop := range []NodeStatusProperty{PropertyOpStatus, PropertyPowerStatus, PropertySerialNumber, PropertySoftwareVersion} {
			m.notifyNodeChange(ts, addr, status, prop)
		}
	}
}

func (m *Master) setup() {
	if m.network != nil {
		for _, req := range m.network.Requests {
			m.userRequests[req.ID] = newUserRequest(req)
		}
	}
}

// Enter starts the worker goroutine; call Exit to stop it. Safe to call
// once per Master instance.
func (m *Master) Enter() *Master {
	m.mu.Lock()
	m.setup()
	m.mu.Unlock()

	m.stop = make(chan struct{})
	m.running.Store(true)
	m.wg.Add(1)
	go m.run()
	return m
}

// Exit stops the worker goroutine and, if active, the schedule goroutine,
// blocking until both have returned. Idempotent: calling it more than once
// produces no additional worker activity.
func (m *Master) Exit() {
	if m.scheduleRunning.Load() {
		m.DisableSchedule()
	}
	m.running.Store(false)
	m.exitOnce.Do(func() { close(m.stop) })
	m.wg.Wait()
}

// run is the single consumer of the event queue (§4.6, §5): it pops at
// most one event per iteration, polling its stop signal at least once a
// second so Exit is observed promptly even with an idle queue.
func (m *Master) run() {
	defer m.wg.Done()
	for {
		select {
		case ev := <-m.queue:
			m.dispatch(ev)
		case <-m.stop:
			return
		case <-time.After(time.Second):
		}
	}
}

func (m *Master) dispatch(ev *transmitEvent) {
	switch ev.kind {
	case eventTx:
		m.doTransmit(ev)
	case eventRx:
		m.doReceive(ev)
	}
}

func (m *Master) nextEventID() uint64 { return m.eventID.Add(1) }

// enqueue posts an event and, if wait is true, blocks for its completion.
func (m *Master) enqueue(ev *transmitEvent, wait bool, timeout time.Duration) ([]byte, error) {
	if !m.running.Load() {
		return nil, ErrNotRunning
	}
	ev.timestamp = time.Now()
	select {
	case m.queue <- ev:
	case <-m.stop:
		return nil, ErrNotRunning
	}
	if !wait {
		return nil, nil
	}
	return ev.wait(timeout)
}

func (m *Master) resolveRequestID(name string) (int, error) {
	if m.network == nil {
		return 0, ErrNoNetwork
	}
	req, err := m.network.RequestByName(name)
	if err != nil {
		return 0, err
	}
	return req.ID, nil
}

func (m *Master) resolveNodeAddress(name string) (int, error) {
	if m.network == nil {
		return 0, ErrNoNetwork
	}
	node, err := m.network.NodeByName(name)
	if err != nil {
		return 0, err
	}
	return node.Address, nil
}

func (m *Master) notifyUserRequest(ts time.Time, req *network.Request, signals network.SignalValueContainer) {
	m.listenersMu.RLock()
	ls := append([]RequestListener(nil), m.requestListeners...)
	m.listenersMu.RUnlock()
	for _, l := range ls {
		l.OnUserRequest(ts, req, signals)
	}
}

func (m *Master) notifyRequestError(ts time.Time, req *network.Request, err error) {
	m.listenersMu.RLock()
	ls := append([]RequestListener(nil), m.requestListeners...)
	m.listenersMu.RUnlock()
	for _, l := range ls {
		l.OnError(ts, req, err)
	}
}

func (m *Master) notifyNodeChange(ts time.Time, addr int, status *NodeStatus, prop NodeStatusProperty) {
	m.listenersMu.RLock()
	ls := append([]NodeStatusListener(nil), m.statusListeners...)
	m.listenersMu.RUnlock()
	for _, l := range ls {
		l.OnNodeChange(ts, addr, status, prop)
	}
}

// EnableSchedule starts a goroutine driving the given schedule's executor
// against this master's API, stopping any schedule already running.
func (m *Master) EnableSchedule(s network.Schedule, baud int) {
	m.scheduleMu.Lock()
	defer m.scheduleMu.Unlock()
	if m.scheduleRunning.Load() {
		m.disableScheduleLocked()
	}

	exec := schedule.NewExecutor(s, baud)
	m.scheduleStop = make(chan struct{})
	m.scheduleRunning.Store(true)
	m.scheduleWg.Add(1)
	go m.runSchedule(exec)
}

// EnableScheduleByName resolves a schedule by name against the configured
// network and enables it.
func (m *Master) EnableScheduleByName(name string) error {
	if m.network == nil {
		return ErrNoNetwork
	}
	s, ok := m.network.Schedules[name]
	if !ok {
		return codec.ErrLookup
	}
	m.EnableSchedule(s, m.network.Baudrate)
	return nil
}

// DisableSchedule stops the running schedule goroutine, if any.
func (m *Master) DisableSchedule() {
	m.scheduleMu.Lock()
	defer m.scheduleMu.Unlock()
	m.disableScheduleLocked()
}

func (m *Master) disableScheduleLocked() {
	if !m.scheduleRunning.Load() {
		return
	}
	m.scheduleRunning.Store(false)
	close(m.scheduleStop)
	m.scheduleWg.Wait()
}

func (m *Master) runSchedule(exec schedule.Executor) {
	defer m.scheduleWg.Done()
	for {
		select {
		case <-m.scheduleStop:
			return
		default:
		}
		if entry, ok := exec.Next(); ok {
			m.performEntry(entry)
		}
		exec.Wait()
	}
}

// performEntry translates a schedule entry into the matching master call,
// fire-and-forget (no wait), mirroring the original Entry.perform dispatch.
func (m *Master) performEntry(e network.Entry) {
	switch e.Kind {
	case network.EntryWakeup:
		m.Wakeup(false, 0)
	case network.EntryIdle:
		m.Idle(false, 0)
	case network.EntryShutdown:
		m.Shutdown(false, 0)
	case network.EntryGetOperationStatus:
		if e.Node != nil {
			m.GetOperationStatus(e.Node.Address, false, 0)
		}
	case network.EntryGetPowerStatus:
		if e.Node != nil {
			m.GetPowerStatus(e.Node.Address, false, 0)
		}
	case network.EntryGetSerialNumber:
		if e.Node != nil {
			m.GetSerialNumber(e.Node.Address, false, 0)
		}
	case network.EntryGetSoftwareVersion:
		if e.Node != nil {
			m.GetSoftwareVersion(e.Node.Address, false, 0)
		}
	case network.EntryRequest:
		if e.Request != nil {
			m.RequestByID(e.Request.ID, false, 0)
		}
	}
}
