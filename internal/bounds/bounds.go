// Package bounds classifies column values against declared min/max ranges.
//
// A Registry maps column names to Bounds. Each side of a Bounds is stored
// exactly as declared (number, string, or a "not applicable" sentinel) and is
// only interpreted when a value is checked:
//
//   - If the checked value is a date (a time.Time or a string in a recognized
//     date layout), both value and bounds are compared as dates. Bound sides
//     that are not dates are ignored.
//   - Otherwise the value is compared against the bounds as declared. Numbers
//     compare numerically, text compares lexically, and text is converted to a
//     number when compared against a numeric side. Anything else fails with
//     ErrTypeMismatch.
//
// The maximum is always evaluated before the minimum, so a value violating
// both sides reports ExceedsMax.
//
// A Registry is not safe for concurrent use.
package bounds

import (
	"sort"
	"strings"
	"time"
)

// Result is the classification of a value against a column's bounds.
type Result int

const (
	Valid Result = iota + 1
	ExceedsMax
	BelowMin
)

// String returns the wire name of the result.
func (r Result) String() string {
	switch r {
	case Valid:
		return "valid"
	case ExceedsMax:
		return "exceeds_max"
	case BelowMin:
		return "below_min"
	default:
		return "unknown"
	}
}

// Bounds is the declared range of a column. A nil side is absent.
type Bounds struct {
	Min any `json:"min,omitempty" yaml:"min,omitempty" koanf:"min"`
	Max any `json:"max,omitempty" yaml:"max,omitempty" koanf:"max"`
}

// Registry holds the declared bounds of each column.
type Registry struct {
	columns map[string]Bounds
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{columns: make(map[string]Bounds)}
}

// Set inserts or replaces the bounds of column. The values are stored as
// given; they are not validated until a value is checked.
func (r *Registry) Set(column string, min, max any) {
	r.columns[column] = Bounds{Min: min, Max: max}
}

// Get returns the bounds stored for column.
func (r *Registry) Get(column string) (Bounds, bool) {
	b, ok := r.columns[column]
	return b, ok
}

// Columns returns the declared column names in sorted order.
func (r *Registry) Columns() []string {
	names := make([]string, 0, len(r.columns))
	for name := range r.columns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of declared columns.
func (r *Registry) Len() int {
	return len(r.columns)
}

// Check classifies value against the bounds of column. Undeclared columns
// are always Valid.
func (r *Registry) Check(column string, value any) (Result, error) {
	b, ok := r.columns[column]
	if !ok {
		return Valid, nil
	}

	if d, ok := asDate(value); ok {
		return checkDate(d, b), nil
	}
	return checkRaw(column, value, b)
}

func checkDate(value time.Time, b Bounds) Result {
	if max, ok := dateSide(b.Max); ok && value.After(max) {
		return ExceedsMax
	}
	if min, ok := dateSide(b.Min); ok && value.Before(min) {
		return BelowMin
	}
	return Valid
}

// dateSide returns the side as a date. Sides that are absent, not applicable
// or not dates are inactive in the date domain.
func dateSide(side any) (time.Time, bool) {
	if !active(side) {
		return time.Time{}, false
	}
	return asDate(side)
}

func checkRaw(column string, value any, b Bounds) (Result, error) {
	maxActive, minActive := active(b.Max), active(b.Min)
	if !maxActive && !minActive {
		return Valid, nil
	}

	v, err := resolve(value)
	if err != nil {
		return 0, &CheckError{Column: column, Value: value, Err: err}
	}

	if maxActive {
		cmp, err := compareSide(v, b.Max)
		if err != nil {
			return 0, &CheckError{Column: column, Side: "max", Value: value, Bound: b.Max, Err: err}
		}
		if cmp > 0 {
			return ExceedsMax, nil
		}
	}
	if minActive {
		cmp, err := compareSide(v, b.Min)
		if err != nil {
			return 0, &CheckError{Column: column, Side: "min", Value: value, Bound: b.Min, Err: err}
		}
		if cmp < 0 {
			return BelowMin, nil
		}
	}
	return Valid, nil
}

func compareSide(v value, side any) (int, error) {
	bound, err := resolve(side)
	if err != nil {
		return 0, err
	}
	return v.compare(bound)
}

// active reports whether a bound side constrains values.
func active(side any) bool {
	return side != nil && !IsNotApplicable(side)
}

// IsNotApplicable reports whether raw is the "not applicable" sentinel:
// "na", "n/a" or the empty string, ignoring case.
func IsNotApplicable(raw any) bool {
	switch strings.ToLower(textForm(raw)) {
	case "na", "n/a", "":
		return true
	}
	return false
}
