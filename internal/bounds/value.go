package bounds

import (
	"cmp"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// kind is the comparison domain of a resolved value.
type kind int

const (
	kindNumeric kind = iota + 1
	kindText
	kindDate
)

func (k kind) String() string {
	switch k {
	case kindNumeric:
		return "numeric"
	case kindText:
		return "text"
	case kindDate:
		return "date"
	default:
		return "unknown"
	}
}

// value is a raw value resolved into exactly one comparison domain.
type value struct {
	kind kind
	num  float64
	text string
	date time.Time
}

// resolve converts a raw-domain value into its variant. Strings stay text
// even when they look numeric; the conversion happens in compare, where the
// other side's kind is known.
func resolve(raw any) (value, error) {
	if n, ok := asNumber(raw); ok {
		return value{kind: kindNumeric, num: n}, nil
	}
	switch v := raw.(type) {
	case string:
		return value{kind: kindText, text: strings.TrimSpace(v)}, nil
	case time.Time:
		return value{kind: kindDate, date: v}, nil
	}
	return value{}, fmt.Errorf("%w: unsupported type %T", ErrTypeMismatch, raw)
}

// compare returns -1, 0 or +1 as v is less than, equal to or greater than o.
func (v value) compare(o value) (int, error) {
	switch {
	case v.kind == o.kind:
		switch v.kind {
		case kindNumeric:
			return cmp.Compare(v.num, o.num), nil
		case kindText:
			return strings.Compare(v.text, o.text), nil
		case kindDate:
			return v.date.Compare(o.date), nil
		}
	case v.kind == kindNumeric && o.kind == kindText:
		n, err := parseNumber(o.text)
		if err != nil {
			return 0, err
		}
		return cmp.Compare(v.num, n), nil
	case v.kind == kindText && o.kind == kindNumeric:
		n, err := parseNumber(v.text)
		if err != nil {
			return 0, err
		}
		return cmp.Compare(n, o.num), nil
	}
	return 0, fmt.Errorf("%w: cannot compare %s with %s", ErrTypeMismatch, v.kind, o.kind)
}

func parseNumber(s string) (float64, error) {
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrTypeMismatch, s)
	}
	return n, nil
}

// asNumber converts Go numeric kinds and json.Number to float64.
func asNumber(raw any) (float64, bool) {
	switch v := raw.(type) {
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case json.Number:
		n, err := v.Float64()
		return n, err == nil
	}
	return 0, false
}

// asDate reports whether raw is a date: a time.Time or a string in one of
// the recognized layouts.
func asDate(raw any) (time.Time, bool) {
	switch v := raw.(type) {
	case time.Time:
		return v, true
	case string:
		return ParseDate(v)
	}
	return time.Time{}, false
}

// textForm renders raw the way the sentinel check sees it.
func textForm(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	}
	if n, ok := asNumber(raw); ok {
		return strconv.FormatFloat(n, 'g', -1, 64)
	}
	return fmt.Sprint(raw)
}
