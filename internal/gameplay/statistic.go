package gameplay

import (
	"fmt"
	"strings"
)

// ValueKind is the kind-tag stored in the statistic table.
type ValueKind string

const (
	KindInt     ValueKind = "INT"
	KindFloat   ValueKind = "FLOAT"
	KindAvgRate ValueKind = "AVGRATE"
)

// ParseValueKind maps a kind name (any case) to its ValueKind.
func ParseValueKind(s string) (ValueKind, bool) {
	switch kind := ValueKind(strings.ToUpper(strings.TrimSpace(s))); kind {
	case KindInt, KindFloat, KindAvgRate:
		return kind, true
	}
	return "", false
}

// Number is the set of payload types a statistic can carry.
type Number interface {
	~int64 | ~float64
}

// Fields is the numeric payload shared by all value kinds.
// DefaultValue is optional on input and persisted as zero when nil.
type Fields[T Number] struct {
	Value        T
	DefaultValue *T
	MinValue     *T
	MaxValue     *T
	MaxChange    *T
}

// Default returns the default value, or zero when none was supplied.
func (f Fields[T]) Default() T {
	if f.DefaultValue == nil {
		var zero T
		return zero
	}
	return *f.DefaultValue
}

// Values is the kind-specific payload of a Statistic.
// The implementations are IntValues, FloatValues and AvgRateValues.
type Values interface {
	Kind() ValueKind
	isValues()
}

// IntValues is the payload of an integer statistic.
type IntValues struct {
	Fields[int64]
}

// FloatValues is the payload of a floating-point statistic.
type FloatValues struct {
	Fields[float64]
}

// AvgRateValues is the payload of an averaging-rate statistic.
type AvgRateValues struct {
	Fields[float64]
}

func (IntValues) Kind() ValueKind     { return KindInt }
func (FloatValues) Kind() ValueKind   { return KindFloat }
func (AvgRateValues) Kind() ValueKind { return KindAvgRate }

func (IntValues) isValues()     {}
func (FloatValues) isValues()   {}
func (AvgRateValues) isValues() {}

// Statistic is a single gameplay statistic mirrored from the remote stats service.
type Statistic struct {
	ID            int64
	Key           string
	Window        *float64 // only meaningful for AVGRATE
	IncrementOnly bool
	Values        Values
}

// NewStatistic builds a Statistic. The value kind follows from the payload type.
// A window passed with a non-AVGRATE payload is dropped.
func NewStatistic(id int64, key string, window *float64, incrementOnly bool, values Values) (Statistic, error) {
	s := Statistic{
		ID:            id,
		Key:           key,
		IncrementOnly: incrementOnly,
		Values:        values,
	}
	if values != nil && values.Kind() == KindAvgRate {
		s.Window = window
	}
	if err := s.Validate(); err != nil {
		return Statistic{}, err
	}
	return s, nil
}

// Kind returns the value kind implied by the payload, or "" when there is none.
func (s Statistic) Kind() ValueKind {
	if s.Values == nil {
		return ""
	}
	return s.Values.Kind()
}

// Validate checks that the statistic can be persisted. Bounds are not enforced.
func (s Statistic) Validate() error {
	if s.Key == "" {
		return fmt.Errorf("%w: statistic %d has an empty key", ErrInvalidStatistic, s.ID)
	}
	switch s.Values.(type) {
	case IntValues, FloatValues, AvgRateValues:
		return nil
	case nil:
		return fmt.Errorf("%w: statistic %q has no values", ErrInvalidStatistic, s.Key)
	default:
		return fmt.Errorf("%w: statistic %q has unsupported values %T", ErrInvalidStatistic, s.Key, s.Values)
	}
}

// Ptr returns a pointer to v, for filling optional payload fields.
func Ptr[T any](v T) *T {
	return &v
}
