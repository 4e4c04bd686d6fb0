package network

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/kstaniek/line-bus/internal/codec"
	"github.com/kstaniek/line-bus/internal/signal"
)

// flexInt decodes an integer that may be a JSON number or a decimal/0x-prefixed string (§6.2).
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	var n int64
	if err := json.Unmarshal(b, &n); err == nil {
		*f = flexInt(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%w: not an int or numeric string: %s", codec.ErrConfig, b)
	}
	v, err := strconv.ParseInt(strings.TrimSpace(s), 0, 64)
	if err != nil {
		return fmt.Errorf("%w: invalid integer %q: %v", codec.ErrConfig, s, err)
	}
	*f = flexInt(v)
	return nil
}

type docEncoder struct {
	Type    string         `json:"type"`
	Scale   float64        `json:"scale"`
	Offset  float64        `json:"offset"`
	Unit    string         `json:"unit"`
	Mapping map[string]any `json:"mapping"`
}

type docSignal struct {
	Offset  flexInt `json:"offset"`
	Width   flexInt `json:"width"`
	Initial any     `json:"initial"`
	Encoder string  `json:"encoder"`
}

type docRequest struct {
	ID     flexInt              `json:"id"`
	Size   flexInt              `json:"size"`
	Layout map[string]docSignal `json:"layout"`
}

type docNode struct {
	Address    flexInt  `json:"address"`
	Publishes  []string `json:"publishes"`
	Subscribes []string `json:"subscribes"`
}

type docScheduleEntry struct {
	Type    string `json:"type"`
	Node    string `json:"node"`
	Request string `json:"request"`
	Cycle   *int   `json:"cycle"`
	MaxAge  *int   `json:"maxAge"`
}

type docSchedule struct {
	Type         string             `json:"type"`
	Slots        string             `json:"slots"`
	Phase        string             `json:"phase"`
	ReserveSlots bool               `json:"reserve_slots"`
	Delay        float64            `json:"delay"`
	Entries      []docScheduleEntry `json:"entries"`
}

type document struct {
	Baudrate  int                    `json:"baudrate"`
	Master    string                 `json:"master"`
	Encoders  map[string]docEncoder  `json:"encoders"`
	Requests  map[string]docRequest  `json:"requests"`
	Nodes     map[string]docNode     `json:"nodes"`
	Schedules map[string]docSchedule `json:"schedules"`
}

// Load parses a network description JSON document (§6.2) into an immutable Network.
func Load(data []byte) (*Network, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", codec.ErrConfig, err)
	}

	encoders := make(map[string]signal.Encoder, len(doc.Encoders))
	for name, e := range doc.Encoders {
		enc, err := buildEncoder(name, e)
		if err != nil {
			return nil, err
		}
		encoders[name] = enc
	}

	n := &Network{Baudrate: doc.Baudrate, Schedules: map[string]Schedule{}}

	for name, r := range doc.Requests {
		signals := make([]*Signal, 0, len(r.Layout))
		for sigName, s := range r.Layout {
			var enc signal.Encoder = signal.None{}
			if s.Encoder != "" {
				var ok bool
				enc, ok = encoders[s.Encoder]
				if !ok {
					return nil, fmt.Errorf("%w: signal %q references unknown encoder %q", codec.ErrConfig, sigName, s.Encoder)
				}
			}
			initial := s.Initial
			if initial == nil {
				initial = 0
			}
			signals = append(signals, &Signal{
				Name:    sigName,
				Offset:  int(s.Offset),
				Width:   int(s.Width),
				Initial: initial,
				Encoder: enc,
			})
		}
		req, err := NewRequest(name, int(r.ID), int(r.Size), signals)
		if err != nil {
			return nil, err
		}
		n.Requests = append(n.Requests, req)
	}

	for name, nd := range doc.Nodes {
		node := &Node{Name: name, Address: int(nd.Address)}
		for _, rn := range nd.Publishes {
			req, err := n.RequestByName(rn)
			if err != nil {
				return nil, err
			}
			node.Publishes = append(node.Publishes, req)
		}
		for _, rn := range nd.Subscribes {
			req, err := n.RequestByName(rn)
			if err != nil {
				return nil, err
			}
			node.Subscribes = append(node.Subscribes, req)
		}
		n.Nodes = append(n.Nodes, node)
	}

	master, err := n.NodeByName(doc.Master)
	if err != nil {
		return nil, fmt.Errorf("%w: master node %q: %v", codec.ErrConfig, doc.Master, err)
	}
	n.Master = master

	for name, sch := range doc.Schedules {
		parsed, err := buildSchedule(n, name, sch)
		if err != nil {
			return nil, err
		}
		n.Schedules[name] = parsed
	}

	return n, nil
}

func buildEncoder(name string, e docEncoder) (signal.Encoder, error) {
	switch e.Type {
	case "formula":
		return signal.Formula{Scale: e.Scale, Offset: e.Offset, Unit: e.Unit}, nil
	case "mapping":
		m := make(map[uint32]string, len(e.Mapping))
		for k, v := range e.Mapping {
			code, err := strconv.ParseUint(k, 0, 32)
			if err != nil {
				return nil, fmt.Errorf("%w: encoder %q mapping key %q: %v", codec.ErrConfig, name, k, err)
			}
			label, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("%w: encoder %q mapping value for %q is not a string", codec.ErrConfig, name, k)
			}
			m[uint32(code)] = label
		}
		return signal.Mapping{CodeToLabel: m}, nil
	default:
		return nil, fmt.Errorf("%w: unknown encoder type %q for %q", codec.ErrConfig, e.Type, name)
	}
}

func buildScheduleEntry(n *Network, scheduleName string, e docScheduleEntry) (Entry, error) {
	switch e.Type {
	case "wakeup":
		return Entry{Kind: EntryWakeup}, nil
	case "idle":
		return Entry{Kind: EntryIdle}, nil
	case "shutdown":
		return Entry{Kind: EntryShutdown}, nil
	case "opstatus", "pwrstatus", "serial", "swversion":
		if e.Node == "" {
			return Entry{}, fmt.Errorf("%w: schedule %q: %q entry must have 'node' defined", codec.ErrConfig, scheduleName, e.Type)
		}
		node, err := n.NodeByName(e.Node)
		if err != nil {
			return Entry{}, err
		}
		kind := map[string]EntryKind{
			"opstatus":  EntryGetOperationStatus,
			"pwrstatus": EntryGetPowerStatus,
			"serial":    EntryGetSerialNumber,
			"swversion": EntryGetSoftwareVersion,
		}[e.Type]
		return Entry{Kind: kind, Node: node}, nil
	case "request":
		if e.Request == "" {
			return Entry{}, fmt.Errorf("%w: schedule %q: 'request' entry must have 'request' defined", codec.ErrConfig, scheduleName)
		}
		req, err := n.RequestByName(e.Request)
		if err != nil {
			return Entry{}, err
		}
		return Entry{Kind: EntryRequest, Request: req}, nil
	default:
		return Entry{}, fmt.Errorf("%w: schedule %q: unknown entry type %q", codec.ErrConfig, scheduleName, e.Type)
	}
}

func buildSchedule(n *Network, name string, sch docSchedule) (Schedule, error) {
	slots := SlotsVariable
	if sch.Slots == "fixed" {
		slots = SlotsFixed
	}
	switch sch.Type {
	case "", "fixed":
		entries := make([]Entry, 0, len(sch.Entries))
		for _, e := range sch.Entries {
			entry, err := buildScheduleEntry(n, name, e)
			if err != nil {
				return nil, err
			}
			entries = append(entries, entry)
		}
		return &FixedOrderSchedule{Name: name, Entries: entries, Slots: slots, ReserveSlots: true, Delay: sch.Delay}, nil
	case "priority-aging":
		entries := make([]PriorityEntry, 0, len(sch.Entries))
		for _, e := range sch.Entries {
			if e.Cycle == nil || e.MaxAge == nil {
				return nil, fmt.Errorf("%w: schedule %q: priority-aging entry must have 'cycle' and 'maxAge' defined", codec.ErrConfig, name)
			}
			entry, err := buildScheduleEntry(n, name, e)
			if err != nil {
				return nil, err
			}
			entries = append(entries, PriorityEntry{Entry: entry, Cycle: *e.Cycle, MaxAge: *e.MaxAge})
		}
		phase := PhaseZero
		if sch.Phase == "adjusted" {
			phase = PhaseAdjusted
		}
		return &PriorityAgingSchedule{Name: name, Entries: entries, Slots: slots, Phase: phase, ReserveSlots: true, Delay: sch.Delay}, nil
	default:
		return nil, fmt.Errorf("%w: unknown schedule type %q for %q", codec.ErrConfig, sch.Type, name)
	}
}
