package web

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/aperture/internal/tables"
)

type columnInfo struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	References string `json:"references,omitempty"`
}

type tableInfo struct {
	Name        string       `json:"name"`
	IndexColumn string       `json:"index_column,omitempty"`
	Columns     []columnInfo `json:"columns"`
	PrimaryKey  []string     `json:"primary_key,omitempty"`
}

type rowsResponse struct {
	Table string       `json:"table"`
	Count int          `json:"count"`
	Rows  []tables.Row `json:"rows"`
}

type flagsResponse struct {
	FlagID int64         `json:"flag_id"`
	Count  int           `json:"count"`
	Flags  []tables.Flag `json:"flags"`
}

// handleListTables returns the registered table definitions.
func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	all := tables.All()
	resp := make([]tableInfo, len(all))
	for i, t := range all {
		info := tableInfo{
			Name:        t.Name,
			IndexColumn: t.IndexColumn,
			Columns:     make([]columnInfo, len(t.Columns)),
			PrimaryKey:  t.PrimaryKey,
		}
		for j, c := range t.Columns {
			info.Columns[j] = columnInfo{Name: c.Name, Type: c.SQLType}
			if c.References != nil {
				info.Columns[j].References = c.References.Table + "." + c.References.Column
			}
		}
		resp[i] = info
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// requireStore answers 503 when no database is configured.
func (s *Server) requireStore(w http.ResponseWriter, r *http.Request) bool {
	if s.store == nil {
		s.respondError(w, r, errNoDatabase, http.StatusServiceUnavailable)
		return false
	}
	return true
}

// handleTableRows returns every row of a registered table.
func (s *Server) handleTableRows(w http.ResponseWriter, r *http.Request) {
	t, err := tables.Lookup(chi.URLParam(r, "table"))
	if err != nil {
		s.respondError(w, r, err, http.StatusNotFound)
		return
	}
	if !s.requireStore(w, r) {
		return
	}

	rows, err := s.store.ReadAll(r.Context(), t)
	if err != nil {
		s.respondError(w, r, fmt.Errorf("%w: %w", errDatabase, err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, r, http.StatusOK, rowsResponse{Table: t.Name, Count: len(rows), Rows: rows})
}

// handleCtranRange returns ctran_data rows with a service date between the
// from and to query parameters, inclusive.
func (s *Server) handleCtranRange(w http.ResponseWriter, r *http.Request) {
	from, err := parseDateParam(r, "from")
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	to, err := parseDateParam(r, "to")
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	if to.Before(from) {
		s.respondError(w, r, fmt.Errorf("%w: to is before from", errBadRequest), http.StatusBadRequest)
		return
	}
	if !s.requireStore(w, r) {
		return
	}

	rows, err := s.store.QueryDateRange(r.Context(), from, to)
	if err != nil {
		s.respondError(w, r, fmt.Errorf("%w: %w", errDatabase, err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, r, http.StatusOK, rowsResponse{Table: tables.CtranData.Name, Count: len(rows), Rows: rows})
}

// handleFlags returns the rows carrying a flag, optionally limited.
func (s *Server) handleFlags(w http.ResponseWriter, r *http.Request) {
	flagID, err := parseIntParam(r, "flag_id", 0, true)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	limit, err := parseIntParam(r, "limit", 0, false)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	if !s.requireStore(w, r) {
		return
	}

	flags, err := s.store.QueryFlagsByFlagID(r.Context(), flagID, int(limit))
	if err != nil {
		s.respondError(w, r, fmt.Errorf("%w: %w", errDatabase, err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, r, http.StatusOK, flagsResponse{FlagID: flagID, Count: len(flags), Flags: flags})
}
