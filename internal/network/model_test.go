package network

import (
	"testing"

	"github.com/kstaniek/line-bus/internal/signal"
)

func TestRequest_EncodeDecodeRoundTrip(t *testing.T) {
	speed := &Signal{Name: "Speed", Offset: 0, Width: 16, Initial: 0.0, Encoder: signal.Formula{Scale: 0.1, Offset: 0}}
	req, err := NewRequest("WheelSpeed", 0x1000, 5, []*Signal{speed})
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}

	data, err := req.Encode(map[string]any{"Speed": 12.3})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := []byte{0x7B, 0x00, 0x00, 0x00, 0x00}
	for i := range want {
		if data[i] != want[i] {
			t.Fatalf("Encode = % X, want % X", data, want)
		}
	}

	values, err := req.Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	got, ok := values.Get("Speed")
	if !ok {
		t.Fatalf("Speed not present in decoded container")
	}
	phy := got.Phy.(float64)
	if phy < 12.29 || phy > 12.31 {
		t.Fatalf("Speed decoded to %v, want ~12.3", phy)
	}
}

func TestRequest_RejectsOverlap(t *testing.T) {
	a := &Signal{Name: "A", Offset: 0, Width: 8}
	b := &Signal{Name: "B", Offset: 4, Width: 8}
	if _, err := NewRequest("Overlap", 1, 2, []*Signal{a, b}); err == nil {
		t.Fatalf("expected error for overlapping signals")
	}
}

func TestRequest_RejectsOutOfFrame(t *testing.T) {
	a := &Signal{Name: "A", Offset: 0, Width: 32}
	if _, err := NewRequest("TooBig", 1, 2, []*Signal{a}); err == nil {
		t.Fatalf("expected error for signal spanning outside frame")
	}
}

func TestRequest_PaddingStaysZero(t *testing.T) {
	a := &Signal{Name: "A", Offset: 8, Width: 8, Initial: int64(0xFF)}
	req, err := NewRequest("Padded", 1, 2, []*Signal{a})
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	data, err := req.Encode(map[string]any{"A": int64(0xFF)})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if data[0] != 0 {
		t.Fatalf("padding byte 0 = 0x%02X, want 0x00", data[0])
	}
	if data[1] != 0xFF {
		t.Fatalf("signal byte = 0x%02X, want 0xFF", data[1])
	}
}
