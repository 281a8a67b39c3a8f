package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/JonMunkholm/aperture/internal/config"
)

// healthTimeout bounds the database ping in /api/health.
const healthTimeout = 2 * time.Second

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// handleHealth reports service and database status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Database: "unconfigured"}
	if s.pinger == nil {
		writeJSON(w, r, http.StatusOK, resp)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()
	if err := s.pinger.Ping(ctx); err != nil {
		s.logger.Warn("health check ping failed", "error", err)
		resp.Status = "degraded"
		resp.Database = "unreachable"
		writeJSON(w, r, http.StatusServiceUnavailable, resp)
		return
	}
	resp.Database = "ok"
	writeJSON(w, r, http.StatusOK, resp)
}

type configResponse struct {
	Location string         `json:"location"`
	Settings map[string]any `json:"settings"`
	Columns  int            `json:"columns"`
}

// handleGetConfig returns the document's settings. The password is masked.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	var resp configResponse
	_ = s.withDocument(func(doc *config.Document) error {
		resp.Location = doc.Location()
		resp.Columns = doc.Bounds().Len()
		resp.Settings = make(map[string]any)
		for _, key := range doc.Keys() {
			v, _ := doc.Value(key)
			if key == config.KeyPassword && v != "" {
				v = "[MASKED]"
			}
			resp.Settings[key] = v
		}
		return nil
	})
	writeJSON(w, r, http.StatusOK, resp)
}

type saveRequest struct {
	Location string `json:"location"`
}

type saveResponse struct {
	Location string `json:"location"`
}

// handleSaveConfig persists the document to the requested location, or to
// the location it was loaded from.
func (s *Server) handleSaveConfig(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if err := decodeJSON(r, &req, true); err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	var saved string
	err := s.withDocument(func(doc *config.Document) error {
		saved = req.Location
		if saved == "" {
			saved = doc.Location()
		}
		return doc.Save(r.Context(), req.Location)
	})
	if err != nil {
		status := http.StatusInternalServerError
		if saved == "" {
			status = http.StatusBadRequest
		} else {
			err = fmt.Errorf("%w: %w", errSaveDocument, err)
		}
		s.respondError(w, r, err, status)
		return
	}
	writeJSON(w, r, http.StatusOK, saveResponse{Location: saved})
}
