package server

import (
	"errors"
	"net/http"

	"github.com/extforge/extforge/internal/credential"
	"github.com/extforge/extforge/internal/event"
)

// CredentialStatus describes the key a caller's rounds would use. The key
// itself is never returned.
type CredentialStatus struct {
	Configured bool              `json:"configured"`
	Source     credential.Source `json:"source"`
	Masked     string            `json:"masked,omitempty"`
}

// SetCredentialRequest is the body of PUT /settings/credential.
type SetCredentialRequest struct {
	APIKey string `json:"apiKey"`
}

// getCredential handles GET /settings/credential
func (s *Server) getCredential(w http.ResponseWriter, r *http.Request) {
	status, err := s.credentialStatus(r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeStorageError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) credentialStatus(r *http.Request) (CredentialStatus, error) {
	key, source, err := s.credentials.Resolve(r.Context(), scopeOf(r))
	if errors.Is(err, credential.ErrCredentialMissing) {
		return CredentialStatus{Source: credential.SourceNone}, nil
	}
	if err != nil {
		return CredentialStatus{}, err
	}
	return CredentialStatus{Configured: true, Source: source, Masked: credential.Mask(key)}, nil
}

// setCredential handles PUT /settings/credential
func (s *Server) setCredential(w http.ResponseWriter, r *http.Request) {
	var req SetCredentialRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON body")
		return
	}
	key := trimmed(req.APIKey)
	if key == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "apiKey is required")
		return
	}

	scope := scopeOf(r)
	if err := s.credentials.Store().Set(r.Context(), scope, key); err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeStorageError, err.Error())
		return
	}
	s.respondCredential(w, r, scope)
}

// clearCredential handles DELETE /settings/credential
func (s *Server) clearCredential(w http.ResponseWriter, r *http.Request) {
	scope := scopeOf(r)
	if err := s.credentials.Store().Delete(r.Context(), scope); err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeStorageError, err.Error())
		return
	}
	s.respondCredential(w, r, scope)
}

func (s *Server) respondCredential(w http.ResponseWriter, r *http.Request, scope string) {
	status, err := s.credentialStatus(r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeStorageError, err.Error())
		return
	}
	s.publish(event.SettingsUpdated, scope, status)
	writeJSON(w, http.StatusOK, status)
}
