package signal

import (
	"errors"
	"testing"

	"github.com/kstaniek/line-bus/internal/codec"
)

func TestNoneEncoder_RejectsNonInteger(t *testing.T) {
	var e None
	if _, err := e.Encode("not an int"); !errors.Is(err, codec.ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
	raw, err := e.Encode(int64(42))
	if err != nil || raw != 42 {
		t.Fatalf("Encode(42) = %d, %v", raw, err)
	}
}

func TestFormulaEncoder_RoundTrip(t *testing.T) {
	f := Formula{Scale: 0.1, Offset: 0}
	raw, err := f.Encode(12.3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raw != 123 {
		t.Fatalf("Encode(12.3) = %d, want 123", raw)
	}
	phy, err := f.Decode(123)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if phy.(float64) < 12.29 || phy.(float64) > 12.31 {
		t.Fatalf("Decode(123) = %v, want ~12.3", phy)
	}
}

func TestMappingEncoder_Bijective(t *testing.T) {
	m := Mapping{CodeToLabel: map[uint32]string{0: "Off", 1: "On"}}
	raw, err := m.Encode("On")
	if err != nil || raw != 1 {
		t.Fatalf("Encode(On) = %d, %v", raw, err)
	}
	label, err := m.Decode(0)
	if err != nil || label != "Off" {
		t.Fatalf("Decode(0) = %v, %v", label, err)
	}
	if _, err := m.Encode("Unknown"); !errors.Is(err, codec.ErrUnknownLabel) {
		t.Fatalf("expected ErrUnknownLabel, got %v", err)
	}
	if _, err := m.Decode(99); !errors.Is(err, codec.ErrUnmappedCode) {
		t.Fatalf("expected ErrUnmappedCode, got %v", err)
	}
}

func TestTwosComplement_RoundTrip(t *testing.T) {
	tc := TwosComplement{Width: 8}
	raw, err := tc.Encode(int64(-1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raw != 0xFF {
		t.Fatalf("Encode(-1) = 0x%X, want 0xFF", raw)
	}
	phy, err := tc.Decode(0xFF)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if phy.(int64) != -1 {
		t.Fatalf("Decode(0xFF) = %v, want -1", phy)
	}
	phy2, _ := tc.Decode(0x7F)
	if phy2.(int64) != 127 {
		t.Fatalf("Decode(0x7F) = %v, want 127", phy2)
	}
}
