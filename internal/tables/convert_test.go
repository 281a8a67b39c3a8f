package tables

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

func TestToPgText(t *testing.T) {
	tests := []struct {
		input string
		want  pgtype.Text
	}{
		{"hello", pgtype.Text{String: "hello", Valid: true}},
		{"  hello  ", pgtype.Text{String: "hello", Valid: true}},
		{"", pgtype.Text{Valid: false}},
		{"   ", pgtype.Text{Valid: false}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ToPgText(tt.input)
			if got != tt.want {
				t.Errorf("ToPgText(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestToPgDate(t *testing.T) {
	tests := []struct {
		input string
		want  time.Time
		valid bool
	}{
		{"2011-01-03", time.Date(2011, 1, 3, 0, 0, 0, 0, time.UTC), true},
		{"1/3/2011", time.Date(2011, 1, 3, 0, 0, 0, 0, time.UTC), true},
		{"Jan 3, 2011", time.Date(2011, 1, 3, 0, 0, 0, 0, time.UTC), true},
		{"", time.Time{}, false},
		{"yesterday", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ToPgDate(tt.input)
			if got.Valid != tt.valid {
				t.Fatalf("ToPgDate(%q).Valid = %v, want %v", tt.input, got.Valid, tt.valid)
			}
			if tt.valid && !got.Time.Equal(tt.want) {
				t.Errorf("ToPgDate(%q) = %v, want %v", tt.input, got.Time, tt.want)
			}
		})
	}
}

func TestToPgInt4(t *testing.T) {
	tests := []struct {
		input string
		want  int32
		valid bool
	}{
		{"42", 42, true},
		{"-7", -7, true},
		{"1,234", 1234, true},
		{"12.0", 12, true},
		{"12.5", 0, false},
		{"2147483648", 0, false},
		{"abc", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ToPgInt4(tt.input)
			if got.Valid != tt.valid || got.Int32 != tt.want {
				t.Errorf("ToPgInt4(%q) = %+v, want {%d %v}", tt.input, got, tt.want, tt.valid)
			}
		})
	}
}

func TestToPgInt2(t *testing.T) {
	if got := ToPgInt2("1"); !got.Valid || got.Int16 != 1 {
		t.Errorf("ToPgInt2(\"1\") = %+v", got)
	}
	if got := ToPgInt2("40000"); got.Valid {
		t.Errorf("ToPgInt2(\"40000\") should be invalid, got %+v", got)
	}
}

func TestToPgFloat8(t *testing.T) {
	tests := []struct {
		input string
		want  float64
		valid bool
	}{
		{"3.25", 3.25, true},
		{"-0.5", -0.5, true},
		{"1,000.5", 1000.5, true},
		{"1e3", 1000, true},
		{".5", 0.5, true},
		{"NaN", 0, false},
		{"12abc", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ToPgFloat8(tt.input)
			if got.Valid != tt.valid || got.Float64 != tt.want {
				t.Errorf("ToPgFloat8(%q) = %+v, want {%v %v}", tt.input, got, tt.want, tt.valid)
			}
		})
	}
}

func TestConvertCell(t *testing.T) {
	tests := []struct {
		name      string
		kind      Kind
		raw       string
		wantNull  bool
		wantCheck any
		wantErr   bool
	}{
		{name: "empty is null", kind: KindInt4, raw: "  ", wantNull: true},
		{name: "integer", kind: KindInt4, raw: "150", wantCheck: int64(150)},
		{name: "smallint", kind: KindInt2, raw: "1", wantCheck: int64(1)},
		{name: "float", kind: KindFloat8, raw: "12.5", wantCheck: 12.5},
		{name: "text", kind: KindText, raw: `="W"`, wantCheck: "W"},
		{name: "date keeps text for checks", kind: KindDate, raw: "2011-01-03", wantCheck: "2011-01-03"},
		{name: "bad integer", kind: KindInt4, raw: "fast", wantErr: true},
		{name: "bad date", kind: KindDate, raw: "someday", wantErr: true},
		{name: "bad float", kind: KindFloat8, raw: "x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cell, err := ConvertCell(tt.kind, tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ConvertCell(%s, %q) expected error", tt.kind, tt.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("ConvertCell(%s, %q) error = %v", tt.kind, tt.raw, err)
			}
			if cell.Null != tt.wantNull {
				t.Errorf("Null = %v, want %v", cell.Null, tt.wantNull)
			}
			if cell.Check != tt.wantCheck {
				t.Errorf("Check = %#v, want %#v", cell.Check, tt.wantCheck)
			}
		})
	}
}

func TestCleanCell(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"  plain  ", "plain"},
		{`="00123"`, "00123"},
		{"=SUM", "SUM"},
		{`"quoted"`, "quoted"},
		{`'single'`, "single"},
	}
	for _, tt := range tests {
		if got := CleanCell(tt.input); got != tt.want {
			t.Errorf("CleanCell(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
