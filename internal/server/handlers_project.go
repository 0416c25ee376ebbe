package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"

	"github.com/extforge/extforge/internal/event"
	"github.com/extforge/extforge/pkg/types"
)

// SaveProjectRequest is the body of POST /projects. An empty name
// defaults to the manifest name.
type SaveProjectRequest struct {
	Name string `json:"name"`
}

// listProjects handles GET /projects
func (s *Server) listProjects(w http.ResponseWriter, r *http.Request) {
	snaps, err := s.projects.List(r.Context(), scopeOf(r))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lo.Map(snaps, func(snap types.Snapshot, _ int) types.SnapshotInfo {
		return snap.Info()
	}))
}

// saveProject handles POST /projects
func (s *Server) saveProject(w http.ResponseWriter, r *http.Request) {
	var req SaveProjectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON body")
		return
	}

	snap, err := s.workspaceFor(r).Snapshot(trimmed(req.Name))
	if err != nil {
		writeFailure(w, err)
		return
	}

	scope := scopeOf(r)
	saved, err := s.projects.Save(r.Context(), scope, snap)
	if err != nil {
		writeFailure(w, err)
		return
	}

	s.publish(event.ProjectSaved, scope, saved.Info())
	writeJSON(w, http.StatusCreated, saved.Info())
}

// getProject handles GET /projects/{projectID}
func (s *Server) getProject(w http.ResponseWriter, r *http.Request) {
	snap, err := s.projects.Get(r.Context(), scopeOf(r), chi.URLParam(r, "projectID"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// deleteProject handles DELETE /projects/{projectID}
func (s *Server) deleteProject(w http.ResponseWriter, r *http.Request) {
	scope := scopeOf(r)
	id := chi.URLParam(r, "projectID")
	if err := s.projects.Delete(r.Context(), scope, id); err != nil {
		writeFailure(w, err)
		return
	}

	s.publish(event.ProjectDeleted, scope, map[string]string{"id": id})
	writeSuccess(w)
}

// restoreProject handles POST /projects/{projectID}/restore
func (s *Server) restoreProject(w http.ResponseWriter, r *http.Request) {
	snap, err := s.projects.Get(r.Context(), scopeOf(r), chi.URLParam(r, "projectID"))
	if err != nil {
		writeFailure(w, err)
		return
	}

	ws := s.workspaceFor(r)
	if err := ws.Restore(snap); err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ws.View())
}

func (s *Server) publish(t event.EventType, scope string, data any) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(event.Event{Type: t, Scope: scope, Data: data})
}
