package web

// errors.go provides unified error response handling for the API.
//
// Handlers call respondError with the failing error and a status. The error
// is mapped to a user message with a support code, logged with the request
// ID for correlation, and returned as JSON.
//
// Codes:
//
//	REQ001 - Bad request: a parameter or body could not be parsed
//	BND001 - Type mismatch: value and bound cannot be compared
//	BND002 - Undeclared column: no bounds are declared for the column
//	TBL001 - Unknown table: the table is not registered
//	TBL002 - Column mismatch: stored columns differ from the definition
//	DB001  - Database failure: a query failed
//	DB002  - Database unavailable: no database is configured
//	CFG001 - Save failure: the pipeline document could not be written
//	SEED001 - Busy: too many seeds are already running
//	ERR000 - Unknown error

import (
	"errors"
	"net/http"

	"github.com/JonMunkholm/aperture/internal/bounds"
	"github.com/JonMunkholm/aperture/internal/config"
	"github.com/JonMunkholm/aperture/internal/logging"
	"github.com/JonMunkholm/aperture/internal/tables"
)

var (
	errBadRequest   = errors.New("bad request")
	errUndeclared   = errors.New("column has no declared bounds")
	errDatabase     = errors.New("database failure")
	errNoDatabase   = errors.New("database unavailable")
	errSaveDocument = errors.New("save failure")
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// userMessage is the client-facing side of an error.
type userMessage struct {
	Code    string
	Message string
	Action  string
}

// errorMappings is checked in order; the first match wins.
var errorMappings = []struct {
	target error
	msg    userMessage
}{
	{errBadRequest, userMessage{"REQ001", "The request could not be understood", "Check the parameters and request body"}},
	{bounds.ErrTypeMismatch, userMessage{"BND001", "The value cannot be compared with the column bounds", "Send a value of the same type as the bounds"}},
	{errUndeclared, userMessage{"BND002", "No bounds are declared for this column", "Declare bounds with PUT /api/bounds/{column}"}},
	{tables.ErrUnknownTable, userMessage{"TBL001", "The table is not registered", "List tables with GET /api/tables"}},
	{tables.ErrColumnMismatch, userMessage{"TBL002", "Stored columns do not match the table definition", "Recreate the table"}},
	{config.ErrNoLocation, userMessage{"CFG001", "The pipeline document has no location to save to", "Pass a location in the request body"}},
	{errSaveDocument, userMessage{"CFG001", "The pipeline document could not be saved", "Check the document location and permissions"}},
	{tables.ErrBusy, userMessage{"SEED001", "Too many seeds are running", "Retry in a moment"}},
	{errNoDatabase, userMessage{"DB002", "No database is configured", "Set DATABASE_URL or the pipeline_* document values"}},
	{errDatabase, userMessage{"DB001", "The database query failed", "Please try again"}},
}

// mapError converts an error to the message returned to clients.
func mapError(err error) userMessage {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.msg
		}
	}
	return userMessage{"ERR000", "An unexpected error occurred", "Please try again or contact support"}
}

// respondError logs the technical error server-side and writes the mapped
// user message as JSON. Server errors are not echoed to the client.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	msg := mapError(err)
	detail := err.Error()
	if statusCode >= http.StatusInternalServerError {
		detail = msg.Message
	}

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", msg.Code,
	)

	writeJSON(w, r, statusCode, ErrorResponse{
		Error:   detail,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}
