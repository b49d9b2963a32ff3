package graph

import (
	"fmt"
	"reflect"

	"google.golang.org/protobuf/types/known/structpb"
)

// Attributes maps a key to a value in the protobuf struct value domain:
// nil, bool, float64, string, []any and map[string]any.
// Values of other Go types are converted on entry (all numbers become float64).
type Attributes map[string]any

// Filter selects entities that carry every key with an equal value.
type Filter map[string]any

func NormalizeValue(value any) (any, error) {
	protoValue, err := structpb.NewValue(plainValue(value))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidValue, err)
	}
	return protoValue.AsInterface(), nil
}

func NormalizeAttributes(attributes Attributes) (Attributes, error) {
	normalized := Attributes{}
	for key, value := range attributes {
		normalizedValue, err := NormalizeValue(value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		normalized[key] = normalizedValue
	}
	return normalized, nil
}

// plainValue converts nested `Attributes` and `Filter` maps to `map[string]any`,
// the only map type structpb accepts
func plainValue(value any) any {
	switch v := value.(type) {
	case Attributes:
		return plainMap(v)
	case Filter:
		return plainMap(v)
	case map[string]any:
		return plainMap(v)
	case []any:
		c := make([]any, len(v))
		for i, elem := range v {
			c[i] = plainValue(elem)
		}
		return c
	default:
		return v
	}
}

func plainMap(m map[string]any) map[string]any {
	c := make(map[string]any, len(m))
	for key, elem := range m {
		c[key] = plainValue(elem)
	}
	return c
}

// copyValue deep copies a normalized value
func copyValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		c := make(map[string]any, len(v))
		for key, elem := range v {
			c[key] = copyValue(elem)
		}
		return c
	case []any:
		c := make([]any, len(v))
		for i, elem := range v {
			c[i] = copyValue(elem)
		}
		return c
	default:
		return v
	}
}

func (self Attributes) Clone() Attributes {
	if self == nil {
		return Attributes{}
	}
	c := make(Attributes, len(self))
	for key, value := range self {
		c[key] = copyValue(value)
	}
	return c
}

// Matches reports whether every filter key is present in `attributes` with an equal value.
// Filter values are normalized before comparison so that `1` matches a stored `1.0`.
func (self Filter) Matches(attributes Attributes) bool {
	for key, filterValue := range self {
		value, ok := attributes[key]
		if !ok {
			return false
		}
		normalizedFilterValue, err := NormalizeValue(filterValue)
		if err != nil {
			return false
		}
		if !reflect.DeepEqual(normalizedFilterValue, value) {
			return false
		}
	}
	return true
}
