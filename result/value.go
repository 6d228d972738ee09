// Package result implements C5, the typed variable-length intermediate
// result ("handle value") that operators produce and the session (C6)
// registers by name. The payload is a Go-native sum type over the four
// element types instead of the source's tagged void*, matching the
// "duck-typed payload" guidance: only one backing slice is populated per
// Value, selected by ElementType.
package result

import "fmt"

// ElementType tags which backing slice of a Value is populated.
type ElementType int

const (
	Int32 ElementType = iota
	Int64
	F64
	PositionIndex
)

func (t ElementType) String() string {
	switch t {
	case Int32:
		return "Int32"
	case Int64:
		return "Int64"
	case F64:
		return "F64"
	case PositionIndex:
		return "PositionIndex"
	default:
		return "Unknown"
	}
}

// Value is a handle value: a typed, variable-length vector carrying
// (element_type, length, capacity, payload). Capacity is implicit in the
// Go slice; callers that need a capacity distinct from length should keep
// growing the underlying slice via append and re-slice to Len.
type Value struct {
	Type ElementType

	i32 []int32
	i64 []int64
	f64 []float64
	pos []uint32 // PositionIndex: row positions into a base column
}

// NewInt32 builds an Int32 result from the given values (copies the slice).
func NewInt32(vs []int32) Value {
	out := make([]int32, len(vs))
	copy(out, vs)
	return Value{Type: Int32, i32: out}
}

// NewInt64 builds an Int64 result.
func NewInt64(vs []int64) Value {
	out := make([]int64, len(vs))
	copy(out, vs)
	return Value{Type: Int64, i64: out}
}

// NewF64 builds an F64 result.
func NewF64(vs []float64) Value {
	out := make([]float64, len(vs))
	copy(out, vs)
	return Value{Type: F64, f64: out}
}

// NewPositions builds a PositionIndex result.
func NewPositions(ps []uint32) Value {
	out := make([]uint32, len(ps))
	copy(out, ps)
	return Value{Type: PositionIndex, pos: out}
}

// Len returns the logical length of the result, regardless of type.
func (v Value) Len() int {
	switch v.Type {
	case Int32:
		return len(v.i32)
	case Int64:
		return len(v.i64)
	case F64:
		return len(v.f64)
	case PositionIndex:
		return len(v.pos)
	default:
		return 0
	}
}

// Int32s returns the backing Int32 slice; panics if v is not an Int32 value.
func (v Value) Int32s() []int32 {
	if v.Type != Int32 {
		panic(fmt.Sprintf("result: Int32s called on %s value", v.Type))
	}
	return v.i32
}

// Int64s returns the backing Int64 slice; panics if v is not an Int64 value.
func (v Value) Int64s() []int64 {
	if v.Type != Int64 {
		panic(fmt.Sprintf("result: Int64s called on %s value", v.Type))
	}
	return v.i64
}

// F64s returns the backing F64 slice; panics if v is not an F64 value.
func (v Value) F64s() []float64 {
	if v.Type != F64 {
		panic(fmt.Sprintf("result: F64s called on %s value", v.Type))
	}
	return v.f64
}

// Positions returns the backing PositionIndex slice; panics otherwise.
func (v Value) Positions() []uint32 {
	if v.Type != PositionIndex {
		panic(fmt.Sprintf("result: Positions called on %s value", v.Type))
	}
	return v.pos
}

// AtString formats element i as a decimal string, regardless of the
// backing element type; used by the print operator, which only ever
// needs a textual rendering of a row.
func (v Value) AtString(i int) string {
	switch v.Type {
	case Int32:
		return fmt.Sprintf("%d", v.i32[i])
	case Int64:
		return fmt.Sprintf("%d", v.i64[i])
	case F64:
		return fmt.Sprintf("%g", v.f64[i])
	case PositionIndex:
		return fmt.Sprintf("%d", v.pos[i])
	default:
		return ""
	}
}
