package web

// This file contains shared request parsing helpers used across handlers.

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// maxBodySize caps JSON request bodies.
const maxBodySize = 1 << 20

// dateLayout is the query parameter format for dates.
const dateLayout = "2006-01-02"

// decodeJSON decodes the request body into v. Numbers are kept as
// json.Number so integers are not widened to float64. An empty body leaves
// v untouched when allowEmpty is set.
func decodeJSON(r *http.Request, v any, allowEmpty bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err)
	}
	return nil
}

// literal converts a decoded JSON scalar to the value stored as a bound or
// checked against one. Numbers become int64 when integral, float64
// otherwise. Objects, arrays and booleans are rejected.
func literal(field string, v any) (any, error) {
	switch x := v.(type) {
	case nil, string:
		return x, nil
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i, nil
		}
		f, err := x.Float64()
		if err != nil {
			return nil, fmt.Errorf("%w: %s: invalid number %q", errBadRequest, field, x)
		}
		return f, nil
	default:
		return nil, fmt.Errorf("%w: %s must be a number, string or null, got %T", errBadRequest, field, v)
	}
}

// parseDateParam parses a required YYYY-MM-DD query parameter.
func parseDateParam(r *http.Request, name string) (time.Time, error) {
	val := r.URL.Query().Get(name)
	if val == "" {
		return time.Time{}, fmt.Errorf("%w: %s is required", errBadRequest, name)
	}
	t, err := time.Parse(dateLayout, val)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be YYYY-MM-DD, got %q", errBadRequest, name, val)
	}
	return t, nil
}

// parseIntParam parses an integer query parameter with a default value.
// Negative values are rejected.
func parseIntParam(r *http.Request, name string, defaultVal int64, required bool) (int64, error) {
	val := r.URL.Query().Get(name)
	if val == "" {
		if required {
			return 0, fmt.Errorf("%w: %s is required", errBadRequest, name)
		}
		return defaultVal, nil
	}
	i, err := strconv.ParseInt(val, 10, 64)
	if err != nil || i < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer, got %q", errBadRequest, name, val)
	}
	return i, nil
}

// parseBoolParam parses an optional boolean query parameter. Absent means
// false.
func parseBoolParam(r *http.Request, name string) (bool, error) {
	val := r.URL.Query().Get(name)
	if val == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("%w: %s must be a boolean, got %q", errBadRequest, name, val)
	}
	return b, nil
}
