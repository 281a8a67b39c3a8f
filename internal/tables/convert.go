package tables

// convert.go turns CSV cells into pgtype values for the COPY protocol.
//
// Cells are cleaned of common spreadsheet artifacts first. Empty cells
// become NULL (Valid=false). Non-empty cells that cannot be converted are
// reported as errors so the row can be recorded as failed.

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/aperture/internal/bounds"
)

// numericRegex validates that a string is a valid numeric format after cleanup.
// Matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// ToPgText converts a string to pgtype.Text.
// Returns invalid if the string is empty or only whitespace.
func ToPgText(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

// ToPgDate converts a string to pgtype.Date using the same layouts as the
// bounds checker. Returns invalid for empty or unrecognized input.
func ToPgDate(s string) pgtype.Date {
	t, ok := bounds.ParseDate(s)
	if !ok {
		return pgtype.Date{Valid: false}
	}
	return pgtype.Date{Time: t, Valid: true}
}

// ToPgFloat8 converts a string to pgtype.Float8.
// Thousands separators are removed before parsing.
func ToPgFloat8(s string) pgtype.Float8 {
	f, ok := parseFloat(s)
	if !ok {
		return pgtype.Float8{Valid: false}
	}
	return pgtype.Float8{Float64: f, Valid: true}
}

// ToPgInt4 converts a string to pgtype.Int4. Whole-valued decimals such as
// "12.0" are accepted; fractions and out-of-range values are invalid.
func ToPgInt4(s string) pgtype.Int4 {
	i, ok := parseInt(s, math.MinInt32, math.MaxInt32)
	if !ok {
		return pgtype.Int4{Valid: false}
	}
	return pgtype.Int4{Int32: int32(i), Valid: true}
}

// ToPgInt2 converts a string to pgtype.Int2 with the rules of ToPgInt4.
func ToPgInt2(s string) pgtype.Int2 {
	i, ok := parseInt(s, math.MinInt16, math.MaxInt16)
	if !ok {
		return pgtype.Int2{Valid: false}
	}
	return pgtype.Int2{Int16: int16(i), Valid: true}
}

func cleanNumber(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	return s
}

func parseFloat(s string) (float64, bool) {
	s = cleanNumber(s)
	if !numericRegex.MatchString(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func parseInt(s string, lo, hi int64) (int64, bool) {
	s = cleanNumber(s)
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, i >= lo && i <= hi
	}
	f, ok := parseFloat(s)
	if !ok || f != math.Trunc(f) || f < float64(lo) || f > float64(hi) {
		return 0, false
	}
	return int64(f), true
}

// Cell is a converted CSV cell: the value written to the database and the
// value handed to the bounds checker.
type Cell struct {
	DB    any
	Check any
	Null  bool
}

// ConvertCell converts raw according to kind. Empty cells are NULL.
func ConvertCell(kind Kind, raw string) (Cell, error) {
	raw = CleanCell(raw)
	if raw == "" {
		return Cell{DB: nil, Null: true}, nil
	}

	switch kind {
	case KindText:
		v := ToPgText(raw)
		return Cell{DB: v, Check: v.String}, nil
	case KindDate:
		v := ToPgDate(raw)
		if !v.Valid {
			return Cell{}, fmt.Errorf("invalid date %q", raw)
		}
		// Dates are checked in their original text so date bounds apply.
		return Cell{DB: v, Check: raw}, nil
	case KindInt2:
		v := ToPgInt2(raw)
		if !v.Valid {
			return Cell{}, fmt.Errorf("invalid smallint %q", raw)
		}
		return Cell{DB: v, Check: int64(v.Int16)}, nil
	case KindInt4:
		v := ToPgInt4(raw)
		if !v.Valid {
			return Cell{}, fmt.Errorf("invalid integer %q", raw)
		}
		return Cell{DB: v, Check: int64(v.Int32)}, nil
	case KindFloat8:
		v := ToPgFloat8(raw)
		if !v.Valid {
			return Cell{}, fmt.Errorf("invalid number %q", raw)
		}
		return Cell{DB: v, Check: v.Float64}, nil
	default:
		return Cell{}, fmt.Errorf("unsupported column kind %s", kind)
	}
}

// CleanCell removes common CSV artifacts from a cell value:
// - Trims whitespace
// - Removes Excel formula prefix (="...")
// - Removes surrounding quotes
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	return strings.TrimSpace(strings.Trim(s, `"'`))
}

// normalizeHeader cleans a header cell for comparison with column names.
func normalizeHeader(h string) string {
	return strings.ToLower(CleanCell(h))
}
