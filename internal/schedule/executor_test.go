package schedule

import (
	"testing"

	"github.com/kstaniek/line-bus/internal/network"
)

func TestFixedOrderExecutor_WrapsAtEnd(t *testing.T) {
	e1 := network.Entry{Kind: network.EntryWakeup}
	e2 := network.Entry{Kind: network.EntryIdle}
	e3 := network.Entry{Kind: network.EntryShutdown}
	sched := &network.FixedOrderSchedule{Name: "s", Entries: []network.Entry{e1, e2, e3}, Slots: network.SlotsVariable, Delay: 0}
	exec := NewExecutor(sched, 19200)

	kinds := []network.EntryKind{}
	for i := 0; i < 7; i++ {
		entry, ok := exec.Next()
		if !ok {
			t.Fatalf("FixedOrder.Next() returned ok=false at i=%d", i)
		}
		kinds = append(kinds, entry.Kind)
	}
	want := []network.EntryKind{network.EntryWakeup, network.EntryIdle, network.EntryShutdown, network.EntryWakeup, network.EntryIdle, network.EntryShutdown, network.EntryWakeup}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("position %d = %v, want %v", i, kinds[i], want[i])
		}
	}
}

func TestPriorityAgingExecutor_KnownSequence(t *testing.T) {
	e1 := network.Entry{Kind: network.EntryWakeup}
	e2 := network.Entry{Kind: network.EntryIdle}
	sched := &network.PriorityAgingSchedule{
		Name: "s",
		Entries: []network.PriorityEntry{
			{Entry: e1, Cycle: 2, MaxAge: 10},
			{Entry: e2, Cycle: 3, MaxAge: 10},
		},
		Slots: network.SlotsVariable,
		Phase: network.PhaseZero,
		Delay: 0,
	}
	exec := NewExecutor(sched, 19200)

	expectNull := func(i int) {
		entry, ok := exec.Next()
		if ok {
			t.Fatalf("call %d: expected no-op, got %+v", i, entry)
		}
	}
	expectKind := func(i int, want network.EntryKind) {
		entry, ok := exec.Next()
		if !ok {
			t.Fatalf("call %d: expected entry, got no-op", i)
		}
		if entry.Kind != want {
			t.Fatalf("call %d: got %v, want %v", i, entry.Kind, want)
		}
	}

	expectNull(0)
	expectKind(1, network.EntryWakeup)
	expectKind(2, network.EntryIdle)
	expectKind(3, network.EntryWakeup)
	expectNull(4)
	expectKind(5, network.EntryWakeup)
	expectKind(6, network.EntryIdle)
	expectKind(7, network.EntryWakeup)
}

func TestPriorityAgingExecutor_NoStarvation(t *testing.T) {
	entries := []network.PriorityEntry{
		{Entry: network.Entry{Kind: network.EntryWakeup}, Cycle: 5, MaxAge: 20},
		{Entry: network.Entry{Kind: network.EntryIdle}, Cycle: 100, MaxAge: 20},
	}
	sched := &network.PriorityAgingSchedule{Name: "s", Entries: entries, Slots: network.SlotsVariable, Phase: network.PhaseZero}
	exec := NewExecutor(sched, 19200)

	seen := map[network.EntryKind]bool{}
	for i := 0; i < 20; i++ {
		if entry, ok := exec.Next(); ok {
			seen[entry.Kind] = true
		}
	}
	if !seen[network.EntryWakeup] || !seen[network.EntryIdle] {
		t.Fatalf("expected both entries to fire within max_age slots, got %v", seen)
	}
}

func TestMaxFrameDuration_Positive(t *testing.T) {
	if MaxFrameDuration(19200) <= 0 {
		t.Fatalf("expected positive duration")
	}
	if MaxFrameDuration(0) != 0 {
		t.Fatalf("expected zero duration for invalid baud")
	}
}
