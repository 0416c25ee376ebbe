package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/extforge/extforge/internal/credential"
	"github.com/extforge/extforge/internal/logging"
	"github.com/extforge/extforge/internal/project"
	"github.com/extforge/extforge/internal/provider"
	"github.com/extforge/extforge/internal/template"
	"github.com/extforge/extforge/internal/workspace"
)

// ErrorResponse is the envelope of every non-2xx JSON response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Error codes
const (
	ErrCodeInvalidRequest    = "INVALID_REQUEST"
	ErrCodeInvalidIdentity   = "INVALID_IDENTITY"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeBusy              = "BUSY"
	ErrCodeCredentialMissing = "CREDENTIAL_MISSING"
	ErrCodeProviderError     = "PROVIDER_ERROR"
	ErrCodeStorageError      = "STORAGE_ERROR"
	ErrCodeInternalError     = "INTERNAL_ERROR"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeErrorWithDetails(w, status, code, message, nil)
}

func writeErrorWithDetails(w http.ResponseWriter, status int, code, message string, details map[string]any) {
	writeJSON(w, status, ErrorResponse{
		Error: ErrorDetail{Code: code, Message: message, Details: details},
	})
}

func writeSuccess(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// classify maps the domain errors handlers can meet to a status and code.
func classify(err error) (status int, code string, details map[string]any, ok bool) {
	var gen *provider.GenerationError
	var perr *project.PersistenceError
	switch {
	case errors.Is(err, workspace.ErrEmptyInput), errors.Is(err, workspace.ErrNothingToSave):
		return http.StatusBadRequest, ErrCodeInvalidRequest, nil, true
	case errors.Is(err, workspace.ErrBusy):
		return http.StatusConflict, ErrCodeBusy, nil, true
	case errors.Is(err, credential.ErrCredentialMissing):
		return http.StatusPreconditionFailed, ErrCodeCredentialMissing, nil, true
	case errors.Is(err, project.ErrNotFound), errors.Is(err, template.ErrNotFound):
		return http.StatusNotFound, ErrCodeNotFound, nil, true
	case errors.As(err, &gen):
		return http.StatusBadGateway, ErrCodeProviderError, nil, true
	case errors.As(err, &perr):
		return http.StatusInternalServerError, ErrCodeStorageError, map[string]any{"op": perr.Op}, true
	}
	return 0, "", nil, false
}

// writeFailure writes err with its mapped status, or 500 when it is not a
// known domain error.
func writeFailure(w http.ResponseWriter, err error) {
	writeFailureOr(w, err, http.StatusInternalServerError, ErrCodeInternalError)
}

// writeFailureOr is writeFailure with a caller-chosen fallback.
func writeFailureOr(w http.ResponseWriter, err error, status int, code string) {
	if s, c, details, ok := classify(err); ok {
		writeErrorWithDetails(w, s, c, err.Error(), details)
		return
	}
	if status >= http.StatusInternalServerError {
		logging.Warn().Err(err).Int("status", status).Msg("request failed")
	}
	writeError(w, status, code, err.Error())
}

// decodeJSON reads a JSON request body into v. An empty body leaves v as is.
func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func trimmed(s string) string {
	return strings.TrimSpace(s)
}
