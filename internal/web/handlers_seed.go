package web

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/aperture/internal/bounds"
	"github.com/JonMunkholm/aperture/internal/config"
	"github.com/JonMunkholm/aperture/internal/tables"
)

// handleSeedTable bulk-loads a CSV into a table. The CSV is either the
// request body or the "file" part of a multipart form, and is streamed
// straight into COPY so memory use does not grow with the file.
func (s *Server) handleSeedTable(w http.ResponseWriter, r *http.Request) {
	t, err := tables.Lookup(chi.URLParam(r, "table"))
	if err != nil {
		s.respondError(w, r, err, http.StatusNotFound)
		return
	}
	checkBounds, err := parseBoolParam(r, "check_bounds")
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	skipViolations, err := parseBoolParam(r, "skip_violations")
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	if !s.requireStore(w, r) {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.seedMaxBytes())
	body, err := csvBody(r)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	if err := s.limiter.Acquire(r.Context()); err != nil {
		s.respondError(w, r, err, http.StatusTooManyRequests)
		return
	}
	defer s.limiter.Release()

	opts := tables.SeedOptions{SkipViolations: skipViolations}
	if checkBounds || skipViolations {
		opts.Bounds = s.snapshotBounds()
	}

	report, err := s.store.Seed(r.Context(), t, body, opts)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			s.respondError(w, r, fmt.Errorf("%w: %w", errBadRequest, err), http.StatusRequestEntityTooLarge)
		case errors.Is(err, tables.ErrColumnMismatch):
			s.respondError(w, r, err, http.StatusUnprocessableEntity)
		default:
			s.respondError(w, r, fmt.Errorf("%w: %w", errDatabase, err), http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, r, http.StatusOK, report)
}

// csvBody returns the CSV carried by r: the "file" part of a multipart
// form, or the body itself.
func csvBody(r *http.Request) (io.Reader, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		return r.Body, nil
	}

	mr, err := r.MultipartReader()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errBadRequest, err)
	}
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return nil, fmt.Errorf("%w: no file provided", errBadRequest)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errBadRequest, err)
		}
		if part.FormName() == "file" {
			return part, nil
		}
		part.Close()
	}
}

func (s *Server) seedMaxBytes() int64 {
	if s.cfg.SeedMaxBytes > 0 {
		return s.cfg.SeedMaxBytes
	}
	return 100 << 20
}

// snapshotBounds copies the document's bounds so a seed can check against
// them without holding the document lock for the whole load.
func (s *Server) snapshotBounds() *bounds.Registry {
	reg := bounds.NewRegistry()
	_ = s.withDocument(func(doc *config.Document) error {
		src := doc.Bounds()
		for _, column := range src.Columns() {
			b, _ := src.Get(column)
			reg.Set(column, b.Min, b.Max)
		}
		return nil
	})
	return reg
}
