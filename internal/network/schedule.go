package network

// EntryKind tags the polymorphic schedule-entry variants of §4.7. Expressed
// as a small tagged union rather than runtime reflection, per §9.
type EntryKind int

const (
	EntryWakeup EntryKind = iota
	EntryIdle
	EntryShutdown
	EntryGetOperationStatus
	EntryGetPowerStatus
	EntryGetSerialNumber
	EntryGetSoftwareVersion
	EntryRequest
)

// Entry is one polymorphic schedule-entry; Node is populated for the
// Get*-status kinds, Request for EntryRequest, and neither for the
// broadcast kinds (Wakeup/Idle/Shutdown).
type Entry struct {
	Kind    EntryKind
	Node    *Node
	Request *Request
}

// Slots selects how an executor paces entries within a schedule.
type Slots int

const (
	SlotsVariable Slots = iota
	SlotsFixed
)

// Phase selects the initial cycle-counter state for a PriorityAgingSchedule.
type Phase int

const (
	PhaseZero Phase = iota
	PhaseAdjusted
)

// Schedule is the tagged variant of §3: either FixedOrder or PriorityAging.
type Schedule interface {
	scheduleName() string
}

// FixedOrderSchedule walks Entries in order, wrapping at the end (§3, §4.7).
type FixedOrderSchedule struct {
	Name         string
	Entries      []Entry
	Slots        Slots
	ReserveSlots bool
	Delay        float64 // seconds
}

func (s *FixedOrderSchedule) scheduleName() string { return s.Name }

// PriorityEntry pairs a schedule Entry with its cycle/max-age aging parameters.
type PriorityEntry struct {
	Entry  Entry
	Cycle  int
	MaxAge int
}

// PriorityAgingSchedule selects entries by aging priority (§4.7).
type PriorityAgingSchedule struct {
	Name         string
	Entries      []PriorityEntry
	Slots        Slots
	Phase        Phase
	ReserveSlots bool
	Delay        float64 // seconds
}

func (s *PriorityAgingSchedule) scheduleName() string { return s.Name }
