package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/cbl/internal/docservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *docservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Projects.
	r.Get("/projects", h.ListProjects)
	r.Post("/projects", h.CreateProject)

	// Objects.
	r.Get("/projects/{project}/objects", h.ListObjects)
	r.Post("/projects/{project}/objects", h.AddObject)
	r.Post("/projects/{project}/objects/upload", h.UploadObject)

	// Resolution and assembly.
	r.Get("/projects/{project}/versions/{version}", h.ShowVersion)
	r.Get("/projects/{project}/versions/{version}/document", h.Document)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
