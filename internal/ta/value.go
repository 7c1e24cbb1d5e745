package ta

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// Value is an indicator reading that may be undefined. The zero value is
// undefined; there is no numeric sentinel.
type Value struct {
	v  float64
	ok bool
}

// Defined wraps a number. Non-finite numbers stay undefined.
func Defined(v float64) Value {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Value{}
	}
	return Value{v: v, ok: true}
}

// Undefined returns the undefined value.
func Undefined() Value { return Value{} }

func (x Value) Get() (float64, bool) { return x.v, x.ok }

func (x Value) IsDefined() bool { return x.ok }

// Or returns the number, or def when undefined.
func (x Value) Or(def float64) float64 {
	if !x.ok {
		return def
	}
	return x.v
}

func (x Value) String() string {
	if !x.ok {
		return "undefined"
	}
	return strconv.FormatFloat(x.v, 'f', -1, 64)
}

func (x Value) MarshalJSON() ([]byte, error) {
	if !x.ok {
		return []byte("null"), nil
	}
	return json.Marshal(x.v)
}

func (x *Value) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*x = Value{}
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*x = Defined(f)
	return nil
}

// Series is aligned 1:1 with the bar sequence it was computed from.
type Series []Value

// FromFloats lifts raw numbers into a Series; non-finite entries become gaps.
func FromFloats(xs []float64) Series {
	out := make(Series, len(xs))
	for i, x := range xs {
		out[i] = Defined(x)
	}
	return out
}

// Last returns the final value, undefined for an empty series.
func (s Series) Last() Value {
	if len(s) == 0 {
		return Value{}
	}
	return s[len(s)-1]
}

// At is bounds-safe indexing.
func (s Series) At(i int) Value {
	if i < 0 || i >= len(s) {
		return Value{}
	}
	return s[i]
}

// FirstDefined returns the index of the first defined value or -1.
func (s Series) FirstDefined() int {
	for i, x := range s {
		if x.ok {
			return i
		}
	}
	return -1
}
