package bounds

import (
	"strings"
	"time"
)

// twoDigitYearCutoff splits 2-digit years between centuries: 00-49 are
// read as 20xx and 50-99 as 19xx.
const twoDigitYearCutoff = 50

// Date layouts split by year format for proper 2-digit year handling.
// Bare digit strings (20060102) are left out: they are indistinguishable
// from integer ids.
var (
	dateTimeLayouts = []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04:05Z07:00",
		"2006-01-02 15:04",
		"1/2/2006 15:04:05",
		"1/2/2006 15:04",
	}
	fourDigitYearLayouts = []string{
		"2006-01-02", "2006/01/02", "2006.01.02",
		"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006", "1.2.2006", "01.02.2006",
		"Jan 2, 2006", "January 2, 2006", "Jan 2 2006",
		"2 Jan 2006", "2 January 2006", "02-Jan-2006",
	}
	twoDigitYearLayouts = []string{
		"1/2/06", "01/02/06", "1-2-06", "1.2.06", "01.02.06",
	}
)

// ParseDate parses s as a calendar date or date-time.
// ISO 8601 forms are tried first, then US-ordered and textual month layouts.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	// Try 4-digit year layouts first (unambiguous)
	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	// Try 2-digit year layouts with a fixed century cutoff
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			yy := t.Year() % 100
			year := 2000 + yy
			if yy >= twoDigitYearCutoff {
				year = 1900 + yy
			}
			return t.AddDate(year-t.Year(), 0, 0), true
		}
	}

	return time.Time{}, false
}
