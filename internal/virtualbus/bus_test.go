package virtualbus

import (
	"errors"
	"testing"

	"github.com/kstaniek/line-bus/internal/codec"
)

type fakeMember struct {
	respondTo int
	data      []byte
	completed []int
	errors    []error
}

func (m *fakeMember) OnRequest(reqID int) ([]byte, bool) {
	if reqID == m.respondTo {
		return m.data, true
	}
	return nil, false
}
func (m *fakeMember) OnRequestComplete(reqID int, data []byte) { m.completed = append(m.completed, reqID) }
func (m *fakeMember) OnError(reqID int, err error)             { m.errors = append(m.errors, err) }

func TestBus_SingleResponder(t *testing.T) {
	b := New()
	m := &fakeMember{respondTo: 0x10, data: []byte{1, 2}}
	b.Add(m)

	data, responded, err := b.OnRequest(0x10)
	if err != nil || !responded {
		t.Fatalf("OnRequest = %v, %v, %v", data, responded, err)
	}
	if len(data) != 2 {
		t.Fatalf("data = %v", data)
	}
}

func TestBus_Contention(t *testing.T) {
	b := New()
	a := &fakeMember{respondTo: 0x10, data: []byte{1}}
	c := &fakeMember{respondTo: 0x10, data: []byte{2}}
	b.Add(a)
	b.Add(c)

	_, _, err := b.OnRequest(0x10)
	if !errors.Is(err, codec.ErrBusContention) {
		t.Fatalf("expected ErrBusContention, got %v", err)
	}
}

func TestBus_CompleteFanOut(t *testing.T) {
	b := New()
	a := &fakeMember{}
	c := &fakeMember{}
	b.Add(a)
	b.Add(c)

	b.OnRequestComplete(0x42, []byte{9})
	if len(a.completed) != 1 || a.completed[0] != 0x42 {
		t.Fatalf("member a did not receive completion: %v", a.completed)
	}
	if len(c.completed) != 1 || c.completed[0] != 0x42 {
		t.Fatalf("member c did not receive completion: %v", c.completed)
	}
}
