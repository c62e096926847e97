package prediction

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

var (
	// ErrCoercion reports a model output that holds no usable number.
	ErrCoercion = errors.New("prediction: output cannot be coerced to a scalar")
	// ErrModelUnavailable reports a missing or failing model.
	ErrModelUnavailable = errors.New("prediction: model unavailable")
)

type outputKind int

const (
	kindScalar outputKind = iota + 1
	kindSequence
)

// Output is a raw model result: either a single number or a sequence whose
// elements are themselves outputs (so nested arrays are representable).
type Output struct {
	kind   outputKind
	scalar float64
	items  []Output
}

// Scalar wraps a single number.
func Scalar(v float64) Output {
	return Output{kind: kindScalar, scalar: v}
}

// Sequence wraps an ordered list of outputs.
func Sequence(items ...Output) Output {
	return Output{kind: kindSequence, items: items}
}

// Floats builds a flat sequence.
func Floats(values ...float64) Output {
	items := make([]Output, len(values))
	for i, v := range values {
		items[i] = Scalar(v)
	}
	return Sequence(items...)
}

// IsScalar reports whether the output is a single number.
func (o Output) IsScalar() bool {
	return o.kind == kindScalar
}

// Len returns the number of direct elements of a sequence, or 1 for a scalar.
func (o Output) Len() int {
	switch o.kind {
	case kindScalar:
		return 1
	case kindSequence:
		return len(o.items)
	default:
		return 0
	}
}

// first walks to the first element of the flattened output.
func (o Output) first() (float64, bool) {
	switch o.kind {
	case kindScalar:
		return o.scalar, true
	case kindSequence:
		for _, item := range o.items {
			if v, ok := item.first(); ok {
				return v, true
			}
		}
	}
	return 0, false
}

// Coerce reduces an output to one decimal: a scalar as is, a sequence by
// its first element in flattened order.
func Coerce(o Output) (decimal.Decimal, error) {
	v, ok := o.first()
	if !ok {
		return decimal.Zero, ErrCoercion
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero, fmt.Errorf("%w: non-finite value", ErrCoercion)
	}
	return decimal.NewFromFloat(v), nil
}

// ParseOutput decodes a JSON number or (nested) array of numbers.
func ParseOutput(raw json.RawMessage) (Output, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Output{}, fmt.Errorf("%w: empty output", ErrCoercion)
	}

	if raw[0] == '[' {
		var elems []json.RawMessage
		if err := json.Unmarshal(raw, &elems); err != nil {
			return Output{}, fmt.Errorf("%w: %v", ErrCoercion, err)
		}
		items := make([]Output, 0, len(elems))
		for _, elem := range elems {
			item, err := ParseOutput(elem)
			if err != nil {
				return Output{}, err
			}
			items = append(items, item)
		}
		return Sequence(items...), nil
	}

	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return Output{}, fmt.Errorf("%w: %v", ErrCoercion, err)
	}
	return Scalar(v), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *Output) UnmarshalJSON(data []byte) error {
	parsed, err := ParseOutput(data)
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}
