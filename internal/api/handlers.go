package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/cbl/internal/docservice"
	"github.com/starford/cbl/internal/render"
)

const maxBodyBytes = 10 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *docservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *docservice.Service) *Handler {
	return &Handler{svc: svc}
}

// ListProjects handles GET /api/projects.
//
//	@Summary		List projects
//	@Tags			projects
//	@Produce		json
//	@Success		200	{object}	ProjectListResponse
//	@Security		BearerAuth
//	@Router			/projects [get]
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.svc.Projects(r.Context())
	if err != nil {
		writeError(w, "list projects", err)
		return
	}
	writeJSON(w, http.StatusOK, ProjectListResponse{Projects: projects})
}

// CreateProject handles POST /api/projects.
//
//	@Summary		Create a project
//	@Tags			projects
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateProjectRequest	true	"Project to create"
//	@Success		201		{object}	Project
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects [post]
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	project, err := h.svc.Init(r.Context(), req.Name, req.Description)
	if err != nil {
		writeError(w, "create project", err)
		return
	}
	slog.Info("project created", slog.String("project", project.Name))
	writeJSON(w, http.StatusCreated, project)
}

// ListObjects handles GET /api/projects/{project}/objects.
//
//	@Summary		List every object version of a project
//	@Tags			objects
//	@Produce		json
//	@Param			project	path		string	true	"Project name"
//	@Success		200		{object}	ObjectListResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{project}/objects [get]
func (h *Handler) ListObjects(w http.ResponseWriter, r *http.Request) {
	project := chi.URLParam(r, "project")
	records, err := h.svc.List(r.Context(), project)
	if err != nil {
		writeError(w, "list objects", err)
		return
	}
	writeJSON(w, http.StatusOK, ObjectListResponse{Project: project, Objects: records})
}

// AddObject handles POST /api/projects/{project}/objects.
//
//	@Summary		Add a new version of an object
//	@Tags			objects
//	@Accept			json
//	@Produce		json
//	@Param			project	path		string				true	"Project name"
//	@Param			body	body		AddObjectRequest	true	"Object version"
//	@Success		201		{object}	Added
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{project}/objects [post]
func (h *Handler) AddObject(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req AddObjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	h.add(w, r, docservice.AddInput{
		Project:  chi.URLParam(r, "project"),
		Name:     req.Name,
		Version:  req.Version,
		Section:  req.Section,
		Audience: req.Audience,
		Content:  []byte(req.Content),
	})
}

func (h *Handler) add(w http.ResponseWriter, r *http.Request, in docservice.AddInput) {
	added, err := h.svc.Add(r.Context(), in)
	if err != nil {
		writeError(w, "add object", err)
		return
	}
	slog.Info("object added",
		slog.String("project", added.Project),
		slog.String("name", added.Record.Name),
		slog.String("version", added.Record.Version))
	writeJSON(w, http.StatusCreated, added)
}

// ShowVersion handles GET /api/projects/{project}/versions/{version}.
//
//	@Summary		Resolve the objects visible at a version
//	@Tags			documents
//	@Produce		json
//	@Param			project	path		string	true	"Project name"
//	@Param			version	path		string	true	"Target version"
//	@Param			level	query		string	false	"Audience filter"
//	@Success		200		{object}	ResolveResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{project}/versions/{version} [get]
func (h *Handler) ShowVersion(w http.ResponseWriter, r *http.Request) {
	project := chi.URLParam(r, "project")
	target := chi.URLParam(r, "version")
	level := r.URL.Query().Get("level")

	buckets, err := h.svc.Show(r.Context(), project, target, level)
	if err != nil {
		writeError(w, "show version", err)
		return
	}
	writeJSON(w, http.StatusOK, ResolveResponse{
		Project:  project,
		Version:  target,
		Level:    h.svc.Level(level),
		Sections: buckets,
	})
}

// Document handles GET /api/projects/{project}/versions/{version}/document.
//
//	@Summary		Build the assembled document
//	@Tags			documents
//	@Produce		text/markdown,text/html
//	@Param			project	path		string	true	"Project name"
//	@Param			version	path		string	true	"Target version"
//	@Param			level	query		string	false	"Audience filter"
//	@Param			format	query		string	false	"Output format"	Enums(md, html)
//	@Success		200		{string}	string
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{project}/versions/{version}/document [get]
func (h *Handler) Document(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format := q.Get("format")
	if format != "" && format != render.FormatMarkdown && format != render.FormatHTML {
		writeJSON(w, http.StatusBadRequest, errorBody("format must be md or html"))
		return
	}

	doc, err := h.svc.Build(r.Context(), chi.URLParam(r, "project"), chi.URLParam(r, "version"), q.Get("level"))
	if err != nil {
		writeError(w, "build document", err)
		return
	}
	out, err := render.Document(doc, format)
	if err != nil {
		writeError(w, "render document", err)
		return
	}
	w.Header().Set("Content-Type", render.ContentType(format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}
