// Package schedule implements the two schedule executors of §4.7:
// FixedOrder and PriorityAging. Both expose Next()/Wait(); the master's
// scheduler goroutine loops `if e, ok := executor.Next(); ok { perform(e) };
// executor.Wait()`.
package schedule

import (
	"time"

	"github.com/kstaniek/line-bus/internal/metrics"
	"github.com/kstaniek/line-bus/internal/network"
)

// Executor produces the next schedule entry to send and paces the caller
// between slots.
type Executor interface {
	// Next returns the next entry to perform, or ok=false for a no-op slot
	// (PriorityAging only; FixedOrder always returns an entry).
	Next() (network.Entry, bool)
	// Wait blocks for this schedule's inter-slot delay.
	Wait()
}

// NewExecutor builds the concrete executor for a network.Schedule variant.
func NewExecutor(s network.Schedule, baud int) Executor {
	switch sched := s.(type) {
	case *network.FixedOrderSchedule:
		return &fixedOrderExecutor{schedule: sched, baud: baud}
	case *network.PriorityAgingSchedule:
		return newPriorityAgingExecutor(sched, baud)
	default:
		panic("schedule: unknown schedule variant")
	}
}

type fixedOrderExecutor struct {
	schedule *network.FixedOrderSchedule
	index    int
	baud     int
}

func (e *fixedOrderExecutor) Next() (network.Entry, bool) {
	entry := e.schedule.Entries[e.index]
	e.index++
	if e.index >= len(e.schedule.Entries) {
		e.index = 0
	}
	metrics.IncScheduleEntryFired(e.schedule.Name)
	return entry, true
}

func (e *fixedOrderExecutor) Wait() {
	time.Sleep(waitDuration(e.schedule.Slots, e.schedule.Delay, e.baud))
}

type priorityAgingExecutor struct {
	schedule *network.PriorityAgingSchedule
	counters []float64
	baud     int
}

func newPriorityAgingExecutor(s *network.PriorityAgingSchedule, baud int) *priorityAgingExecutor {
	counters := make([]float64, len(s.Entries))
	if s.Phase == network.PhaseAdjusted {
		for i, e := range s.Entries {
			counters[i] = float64(e.Cycle) / 2
		}
	}
	return &priorityAgingExecutor{schedule: s, counters: counters, baud: baud}
}

// Next implements the §4.7 selection algorithm: increment all counters,
// then prefer any entry at/over its max-age, else any entry at/over its
// cycle, else no-op.
func (e *priorityAgingExecutor) Next() (network.Entry, bool) {
	for i := range e.counters {
		e.counters[i]++
	}
	for i, pe := range e.schedule.Entries {
		if e.counters[i] >= float64(pe.MaxAge) {
			e.counters[i] = 0
			metrics.IncScheduleEntryFired(e.schedule.Name)
			return pe.Entry, true
		}
	}
	for i, pe := range e.schedule.Entries {
		if e.counters[i] >= float64(pe.Cycle) {
			e.counters[i] = 0
			metrics.IncScheduleEntryFired(e.schedule.Name)
			return pe.Entry, true
		}
	}
	metrics.IncScheduleNoOpSlot(e.schedule.Name)
	return network.Entry{}, false
}

func (e *priorityAgingExecutor) Wait() {
	time.Sleep(waitDuration(e.schedule.Slots, e.schedule.Delay, e.baud))
}

func waitDuration(slots network.Slots, delaySeconds float64, baud int) time.Duration {
	delay := time.Duration(delaySeconds * float64(time.Second))
	if slots == network.SlotsVariable {
		return delay
	}
	return MaxFrameDuration(baud) + delay
}

// MaxFrameDuration computes the worst-case time to transmit and receive a
// full frame at the given baud rate: header (3B) + size (1B) + 8 payload
// bytes + checksum (1B) = 13 bytes, each byte costing 10 bit-times
// (start+8 data+stop) over the wire. The header is the master's request and
// the remaining bytes are the response, so one frame covers the whole
// exchange (§9, "fixed slots" open question).
func MaxFrameDuration(baud int) time.Duration {
	if baud <= 0 {
		return 0
	}
	const worstCaseBytes = 3 + 1 + 8 + 1
	const bitsPerByte = 10
	seconds := float64(worstCaseBytes*bitsPerByte) / float64(baud)
	return time.Duration(seconds * float64(time.Second))
}

// Utilization reports, for a schedule, an estimate of the number of Next()
// calls before every entry has fired at least once. For FixedOrder this is
// exactly the entry count; for PriorityAging it is the largest max_age
// across entries. Only one entry fires per slot, so when several entries
// reach their max_age in the same slot the real count can exceed this value.
// Grounded on the original source's schedule_analyze.py intent.
func Utilization(s network.Schedule) int {
	switch sched := s.(type) {
	case *network.FixedOrderSchedule:
		return len(sched.Entries)
	case *network.PriorityAgingSchedule:
		max := 0
		for _, e := range sched.Entries {
			if e.MaxAge > max {
				max = e.MaxAge
			}
		}
		return max
	default:
		return 0
	}
}
