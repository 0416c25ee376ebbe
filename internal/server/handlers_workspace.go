package server

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/extforge/extforge/internal/archive"
	"github.com/extforge/extforge/internal/preview"
	"github.com/extforge/extforge/internal/workspace"
)

// PreviewCSP confines the preview document to an opaque origin.
const PreviewCSP = "sandbox allow-scripts allow-modals allow-forms"

// SendMessageRequest is the body of POST /workspace/message. New discards
// the current conversation and files first.
type SendMessageRequest struct {
	Content string `json:"content"`
	New     bool   `json:"new,omitempty"`
}

// SendMessageResponse carries the round result and the updated workspace.
type SendMessageResponse struct {
	Round     *workspace.Round `json:"round"`
	Workspace workspace.View   `json:"workspace"`
}

// SelectFileRequest is the body of PUT /workspace/selection.
type SelectFileRequest struct {
	Filename string `json:"filename"`
}

// getWorkspace handles GET /workspace
func (s *Server) getWorkspace(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.workspaceFor(r).View())
}

// sendMessage handles POST /workspace/message
// The response is written once the round finishes.
func (s *Server) sendMessage(w http.ResponseWriter, r *http.Request) {
	var req SendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON body")
		return
	}

	ws := s.workspaceFor(r)
	send := ws.Send
	if req.New {
		send = ws.StartNew
	}

	round, err := send(r.Context(), req.Content)
	if err != nil {
		// Unclassified round failures come from the model call.
		writeFailureOr(w, err, http.StatusBadGateway, ErrCodeProviderError)
		return
	}
	writeJSON(w, http.StatusOK, SendMessageResponse{Round: round, Workspace: ws.View()})
}

// resetWorkspace handles POST /workspace/reset
func (s *Server) resetWorkspace(w http.ResponseWriter, r *http.Request) {
	ws := s.workspaceFor(r)
	if err := ws.Reset(); err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ws.View())
}

// getPreview handles GET /workspace/preview
func (s *Server) getPreview(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Security-Policy", PreviewCSP)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, s.workspaceFor(r).Preview())
}

// getPreviewReport handles GET /workspace/preview/report
func (s *Server) getPreviewReport(w http.ResponseWriter, r *http.Request) {
	report, err := preview.Analyze(s.workspaceFor(r).Files())
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// listFiles handles GET /workspace/files
func (s *Server) listFiles(w http.ResponseWriter, r *http.Request) {
	set := s.workspaceFor(r).Files()

	pattern := r.URL.Query().Get("glob")
	if pattern == "" {
		writeJSON(w, http.StatusOK, set.Files())
		return
	}

	files, err := set.Match(pattern)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, files)
}

// getFile handles GET /workspace/files/*
func (s *Server) getFile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "*")
	file, ok := s.workspaceFor(r).Files().Find(name)
	if !ok {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "file not found: "+name)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, file.Content)
}

// selectFile handles PUT /workspace/selection
func (s *Server) selectFile(w http.ResponseWriter, r *http.Request) {
	var req SelectFileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON body")
		return
	}

	ws := s.workspaceFor(r)
	if !ws.Select(req.Filename) {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "file not found: "+req.Filename)
		return
	}
	writeJSON(w, http.StatusOK, workspace.Selection{Selected: ws.Selected()})
}

// getPermissions handles GET /workspace/permissions
func (s *Server) getPermissions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"permissions": s.workspaceFor(r).View().Permissions,
	})
}

// download handles GET /workspace/download
func (s *Server) download(w http.ResponseWriter, r *http.Request) {
	files := s.workspaceFor(r).Files().Files()
	if len(files) == 0 {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "there are no files to download")
		return
	}

	data, err := archive.Bytes(files)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+archive.DefaultName+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
