package tables

// streaming.go prepares CSV input for parsing without loading it into memory.
//
// Files exported from spreadsheet tools often start with a byte order mark
// and occasionally contain invalid UTF-8. The decoder strips a UTF-8 BOM,
// transcodes UTF-16 input when a UTF-16 BOM is present, and replaces
// invalid sequences with U+FFFD.

import (
	"encoding/csv"
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// CountingReader wraps an io.Reader to track bytes read.
type CountingReader struct {
	reader    io.Reader
	BytesRead int64
}

// NewCountingReader creates a counting reader.
func NewCountingReader(r io.Reader) *CountingReader {
	return &CountingReader{reader: r}
}

// Read implements io.Reader.
func (r *CountingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.BytesRead += int64(n)
	return n, err
}

// NewDecodingReader returns r decoded to clean UTF-8.
func NewDecodingReader(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
}

// NewCSVReader wraps r for CSV parsing. The returned CountingReader reports
// raw bytes consumed from r.
func NewCSVReader(r io.Reader) (*csv.Reader, *CountingReader) {
	counter := NewCountingReader(r)
	cr := csv.NewReader(NewDecodingReader(counter))
	cr.ReuseRecord = true
	cr.TrimLeadingSpace = true
	return cr, counter
}
