package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// listTemplates handles GET /templates
func (s *Server) listTemplates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.templates.List())
}

// getTemplate handles GET /templates/{templateID}
func (s *Server) getTemplate(w http.ResponseWriter, r *http.Request) {
	t, err := s.templates.Get(chi.URLParam(r, "templateID"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// loadTemplate handles POST /templates/{templateID}/load
func (s *Server) loadTemplate(w http.ResponseWriter, r *http.Request) {
	t, err := s.templates.Get(chi.URLParam(r, "templateID"))
	if err != nil {
		writeFailure(w, err)
		return
	}

	ws := s.workspaceFor(r)
	if err := ws.LoadTemplate(t); err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ws.View())
}
