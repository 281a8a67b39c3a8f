package web

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/aperture/internal/bounds"
	"github.com/JonMunkholm/aperture/internal/config"
	"github.com/JonMunkholm/aperture/internal/logging"
)

type boundsResponse struct {
	Column string `json:"column"`
	Min    any    `json:"min"`
	Max    any    `json:"max"`
}

type boundsRequest struct {
	Min any `json:"min"`
	Max any `json:"max"`
}

type checkResponse struct {
	Column string `json:"column"`
	Result string `json:"result"`
}

// handleListBounds returns every declared column with its bounds.
func (s *Server) handleListBounds(w http.ResponseWriter, r *http.Request) {
	var resp []boundsResponse
	_ = s.withDocument(func(doc *config.Document) error {
		reg := doc.Bounds()
		resp = make([]boundsResponse, 0, reg.Len())
		for _, column := range reg.Columns() {
			b, _ := reg.Get(column)
			resp = append(resp, boundsResponse{Column: column, Min: b.Min, Max: b.Max})
		}
		return nil
	})
	writeJSON(w, r, http.StatusOK, resp)
}

// handleGetBounds returns the bounds declared for one column.
func (s *Server) handleGetBounds(w http.ResponseWriter, r *http.Request) {
	column := chi.URLParam(r, "column")

	var (
		b  bounds.Bounds
		ok bool
	)
	_ = s.withDocument(func(doc *config.Document) error {
		b, ok = doc.GetBounds(column)
		return nil
	})
	if !ok {
		s.respondError(w, r, fmt.Errorf("%w: %q", errUndeclared, column), http.StatusNotFound)
		return
	}
	writeJSON(w, r, http.StatusOK, boundsResponse{Column: column, Min: b.Min, Max: b.Max})
}

// handleSetBounds declares or replaces the bounds of a column. The change
// is kept in memory until the document is saved.
func (s *Server) handleSetBounds(w http.ResponseWriter, r *http.Request) {
	column := chi.URLParam(r, "column")

	var req boundsRequest
	if err := decodeJSON(r, &req, false); err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	lo, err := literal("min", req.Min)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	hi, err := literal("max", req.Max)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	_ = s.withDocument(func(doc *config.Document) error {
		doc.SetBounds(column, lo, hi)
		return nil
	})
	logging.FromContext(r.Context()).Info("bounds set", "column", column, "min", lo, "max", hi)
	writeJSON(w, r, http.StatusOK, boundsResponse{Column: column, Min: lo, Max: hi})
}

// handleCheckBounds classifies a value against a column's bounds.
// Undeclared columns are always valid.
func (s *Server) handleCheckBounds(w http.ResponseWriter, r *http.Request) {
	column := chi.URLParam(r, "column")

	var body map[string]any
	if err := decodeJSON(r, &body, false); err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	raw, ok := body["value"]
	if !ok {
		s.respondError(w, r, fmt.Errorf("%w: value is required", errBadRequest), http.StatusBadRequest)
		return
	}
	value, err := literal("value", raw)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	var result bounds.Result
	err = s.withDocument(func(doc *config.Document) error {
		result, err = doc.CheckBounds(column, value)
		return err
	})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, bounds.ErrTypeMismatch) {
			status = http.StatusUnprocessableEntity
		}
		s.respondError(w, r, err, status)
		return
	}
	writeJSON(w, r, http.StatusOK, checkResponse{Column: column, Result: result.String()})
}
