package metadata

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/goccy/go-json"
)

// Kind identifies the concrete type stored in a Value.
type Kind uint8

const (
	// KindInvalid represents an invalid kind.
	KindInvalid Kind = iota
	// KindInt represents an integer value.
	KindInt
	// KindFloat represents a float value.
	KindFloat
	// KindBool represents a boolean value.
	KindBool
	// KindString represents a string value.
	KindString
	// KindTuple represents an ordered tuple of floats.
	KindTuple
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindInt:
		return "Int"
	case KindFloat:
		return "Float"
	case KindBool:
		return "Bool"
	case KindString:
		return "String"
	case KindTuple:
		return "Tuple"
	default:
		return "Invalid"
	}
}

// Value is a small typed setting value: a scalar or a tuple of floats.
//
// The representation is deliberately closed so that the canonical encoding
// feeding the fingerprint stays stable across releases.
type Value struct {
	Kind Kind      `json:"k"`
	I64  int64     `json:"i,omitempty"`
	F64  float64   `json:"f,omitempty"`
	B    bool      `json:"b,omitempty"`
	S    string    `json:"s,omitempty"`
	T    []float64 `json:"t,omitempty"`
}

// Int creates an integer value.
func Int(v int64) Value { return Value{Kind: KindInt, I64: v} }

// Float creates a float value.
func Float(v float64) Value { return Value{Kind: KindFloat, F64: v} }

// Bool creates a boolean value.
func Bool(v bool) Value { return Value{Kind: KindBool, B: v} }

// String creates a string value.
func String(v string) Value { return Value{Kind: KindString, S: v} }

// Tuple creates a tuple value from a copy of vs.
func Tuple(vs ...float64) Value {
	t := make([]float64, len(vs))
	copy(t, vs)
	return Value{Kind: KindTuple, T: t}
}

// Equal reports whether two values have the same kind and content.
// No numeric coercion happens here: Int(2) and Float(2) are different,
// matching the exact-equality contract of settings filtering.
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindInt:
		return v.I64 == other.I64
	case KindFloat:
		return v.F64 == other.F64
	case KindBool:
		return v.B == other.B
	case KindString:
		return v.S == other.S
	case KindTuple:
		if len(v.T) != len(other.T) {
			return false
		}
		for i := range v.T {
			if v.T[i] != other.T[i] {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// GoString returns a readable form, mainly for error messages and logs.
func (v Value) GoString() string {
	switch v.Kind {
	case KindInt:
		return fmt.Sprintf("%d", v.I64)
	case KindFloat:
		return fmt.Sprintf("%g", v.F64)
	case KindBool:
		return fmt.Sprintf("%t", v.B)
	case KindString:
		return v.S
	case KindTuple:
		return fmt.Sprintf("%v", v.T)
	default:
		return "<invalid>"
	}
}

// appendCanonical appends the canonical binary encoding of the value:
// a kind tag followed by a fixed little-endian representation.
func (v Value) appendCanonical(dst []byte) []byte {
	dst = append(dst, byte(v.Kind))
	switch v.Kind {
	case KindInt:
		dst = binary.LittleEndian.AppendUint64(dst, uint64(v.I64))
	case KindFloat:
		dst = binary.LittleEndian.AppendUint64(dst, math.Float64bits(v.F64))
	case KindBool:
		if v.B {
			dst = append(dst, 1)
		} else {
			dst = append(dst, 0)
		}
	case KindString:
		dst = binary.LittleEndian.AppendUint32(dst, uint32(len(v.S)))
		dst = append(dst, v.S...)
	case KindTuple:
		dst = binary.LittleEndian.AppendUint32(dst, uint32(len(v.T)))
		for _, f := range v.T {
			dst = binary.LittleEndian.AppendUint64(dst, math.Float64bits(f))
		}
	}
	return dst
}

// CanonicalString returns a stable textual key for the value, used by the
// settings index.
func (v Value) CanonicalString() string {
	return fmt.Sprintf("%d:%x", v.Kind, v.appendCanonical(nil))
}

// Settings is a key to scalar/tuple mapping. Iteration order is not
// significant; every canonical operation sorts the keys first.
type Settings map[string]Value

// Clone returns a deep copy of the settings.
func (s Settings) Clone() Settings {
	if s == nil {
		return nil
	}
	out := make(Settings, len(s))
	for k, v := range s {
		if v.Kind == KindTuple {
			v = Tuple(v.T...)
		}
		out[k] = v
	}
	return out
}

// SortedKeys returns the keys in lexical order.
func (s Settings) SortedKeys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Equal reports whether both settings hold exactly the same keys and values.
func (s Settings) Equal(other Settings) bool {
	if len(s) != len(other) {
		return false
	}
	return s.Contains(other)
}

// Contains reports whether every key of subset exists in s with an equal
// value. Extra keys in s are ignored; this is the superset-equal match used
// by settings filtering.
func (s Settings) Contains(subset Settings) bool {
	for k, want := range subset {
		got, ok := s[k]
		if !ok || !got.Equal(want) {
			return false
		}
	}
	return true
}

// appendCanonical appends the canonical encoding of the whole mapping:
// keys sorted, each key length-prefixed and followed by its value.
func (s Settings) appendCanonical(dst []byte) []byte {
	for _, k := range s.SortedKeys() {
		dst = binary.LittleEndian.AppendUint32(dst, uint32(len(k)))
		dst = append(dst, k...)
		dst = s[k].appendCanonical(dst)
	}
	return dst
}

// MarshalJSON implements json.Marshaler. Values serialize with their kind
// tag so that Int(2) and Float(2) survive a round-trip distinct.
func (v Value) MarshalJSON() ([]byte, error) {
	type alias Value
	return json.Marshal(alias(v))
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	type alias Value
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*v = Value(a)
	if v.Kind == KindInvalid || v.Kind > KindTuple {
		return fmt.Errorf("metadata: invalid value kind %d", v.Kind)
	}
	return nil
}
