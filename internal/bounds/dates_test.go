package bounds

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		input string
		want  time.Time
		ok    bool
	}{
		{"2011-01-03", time.Date(2011, 1, 3, 0, 0, 0, 0, time.UTC), true},
		{"  1990-01-01  ", time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC), true},
		{"2011/01/03", time.Date(2011, 1, 3, 0, 0, 0, 0, time.UTC), true},
		{"1/3/2011", time.Date(2011, 1, 3, 0, 0, 0, 0, time.UTC), true},
		{"01-03-2011", time.Date(2011, 1, 3, 0, 0, 0, 0, time.UTC), true},
		{"Jan 3, 2011", time.Date(2011, 1, 3, 0, 0, 0, 0, time.UTC), true},
		{"3 January 2011", time.Date(2011, 1, 3, 0, 0, 0, 0, time.UTC), true},
		{"2011-01-03T08:30:00", time.Date(2011, 1, 3, 8, 30, 0, 0, time.UTC), true},
		{"2011-01-03 08:30", time.Date(2011, 1, 3, 8, 30, 0, 0, time.UTC), true},
		{"1/3/99", time.Date(1999, 1, 3, 0, 0, 0, 0, time.UTC), true},
		{"1/3/11", time.Date(2011, 1, 3, 0, 0, 0, 0, time.UTC), true},

		{"", time.Time{}, false},
		{"NA", time.Time{}, false},
		{"20110103", time.Time{}, false},
		{"150", time.Time{}, false},
		{"12.5", time.Time{}, false},
		{"2011-13-01", time.Time{}, false},
		{"not a date", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseDate(tt.input)
			if ok != tt.ok {
				t.Fatalf("ParseDate(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			}
			if ok && !got.Equal(tt.want) {
				t.Errorf("ParseDate(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseDate_TwoDigitYear(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{"1/1/00", 2000},
		{"2/29/00", 2000},
		{"9/15/20", 2020},
		{"12/31/49", 2049},
		{"1/1/50", 1950},
		{"01.02.69", 1969},
		{"1-2-99", 1999},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseDate(tt.input)
			if !ok {
				t.Fatalf("ParseDate(%q) failed", tt.input)
			}
			if got.Year() != tt.want {
				t.Errorf("ParseDate(%q) year = %d, want %d", tt.input, got.Year(), tt.want)
			}
		})
	}
}
