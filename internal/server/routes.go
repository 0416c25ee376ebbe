package server

import (
	"github.com/go-chi/chi/v5"
)

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	r := s.router

	r.Route("/workspace", func(r chi.Router) {
		r.Get("/", s.getWorkspace)
		r.Post("/message", s.sendMessage)
		r.Post("/reset", s.resetWorkspace)

		r.Get("/preview", s.getPreview)
		r.Get("/preview/report", s.getPreviewReport)

		r.Get("/files", s.listFiles)
		r.Get("/files/*", s.getFile)
		r.Put("/selection", s.selectFile)
		r.Get("/permissions", s.getPermissions)
		r.Get("/download", s.download)
	})

	r.Route("/templates", func(r chi.Router) {
		r.Get("/", s.listTemplates)
		r.Get("/{templateID}", s.getTemplate)
		r.Post("/{templateID}/load", s.loadTemplate)
	})

	r.Route("/projects", func(r chi.Router) {
		r.Get("/", s.listProjects)
		r.Post("/", s.saveProject)
		r.Get("/{projectID}", s.getProject)
		r.Delete("/{projectID}", s.deleteProject)
		r.Post("/{projectID}/restore", s.restoreProject)
	})

	r.Route("/settings", func(r chi.Router) {
		r.Get("/credential", s.getCredential)
		r.Put("/credential", s.setCredential)
		r.Delete("/credential", s.clearCredential)
	})

	r.Get("/event", s.events)
}
