// Package signal implements the four LINE signal encoders: None, Formula,
// Mapping and TwosComplement. Each converts between a raw wire integer and
// a physical value (int64, float64 or string label).
package signal

import (
	"fmt"

	"github.com/kstaniek/line-bus/internal/codec"
)

// Encoder converts between raw wire integers and physical values.
type Encoder interface {
	// Encode takes a physical value (int64, float64 or string depending on
	// the concrete encoder) and returns the unsigned raw integer to pack
	// onto the wire.
	Encode(value any) (uint32, error)
	// Decode takes a raw wire integer and returns its physical value.
	Decode(raw uint32) (any, error)
}

// None is an integer pass-through encoder; it rejects non-integer inputs.
type None struct{}

func (None) Encode(value any) (uint32, error) {
	switch v := value.(type) {
	case int:
		return uint32(v), nil
	case int64:
		return uint32(v), nil
	case uint32:
		return v, nil
	default:
		return 0, fmt.Errorf("%w: unable to encode non-integer %v", codec.ErrConfig, value)
	}
}

func (None) Decode(raw uint32) (any, error) { return int64(raw), nil }

// Formula implements phy = raw*scale + offset, and on encode truncates
// toward zero: raw = int((phy - offset) / scale). Per §9 this is a
// deliberate behavior choice, not "fixed" to round-nearest.
type Formula struct {
	Scale  float64
	Offset float64
	Unit   string
}

func (f Formula) Encode(value any) (uint32, error) {
	phy, err := toFloat(value)
	if err != nil {
		return 0, err
	}
	raw := (phy - f.Offset) / f.Scale
	return uint32(int64(raw)), nil // truncation toward zero, matching math.Trunc for |raw|
}

func (f Formula) Decode(raw uint32) (any, error) {
	return float64(raw)*f.Scale + f.Offset, nil
}

func toFloat(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		var f float64
		if _, err := fmt.Sscanf(v, "%g", &f); err != nil {
			return 0, fmt.Errorf("%w: cannot parse %q as number", codec.ErrConfig, v)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("%w: unsupported value type %T", codec.ErrConfig, value)
	}
}

// Mapping is a bijective code<->label encoder.
type Mapping struct {
	CodeToLabel map[uint32]string
}

func (m Mapping) Encode(value any) (uint32, error) {
	label, ok := value.(string)
	if !ok {
		return 0, fmt.Errorf("%w: mapping encoder requires a string label, got %T", codec.ErrUnknownLabel, value)
	}
	for code, l := range m.CodeToLabel {
		if l == label {
			return code, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", codec.ErrUnknownLabel, label)
}

func (m Mapping) Decode(raw uint32) (any, error) {
	if label, ok := m.CodeToLabel[raw]; ok {
		return label, nil
	}
	return nil, fmt.Errorf("%w: %d", codec.ErrUnmappedCode, raw)
}

// TwosComplement reinterprets a width-bit unsigned integer as signed.
type TwosComplement struct {
	Width int
}

func (t TwosComplement) Encode(value any) (uint32, error) {
	var v int64
	switch x := value.(type) {
	case int:
		v = int64(x)
	case int64:
		v = x
	default:
		return 0, fmt.Errorf("%w: twos-complement encoder requires an integer, got %T", codec.ErrConfig, value)
	}
	if v < 0 {
		v += int64(1) << uint(t.Width)
	}
	return uint32(v), nil
}

func (t TwosComplement) Decode(raw uint32) (any, error) {
	signBit := uint32(1) << uint(t.Width-1)
	if raw&signBit != 0 {
		return int64(raw) - (int64(1) << uint(t.Width)), nil
	}
	return int64(raw), nil
}
