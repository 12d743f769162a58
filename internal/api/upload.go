package api

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/cbl/internal/docservice"
)

const maxUploadBytes = 50 << 20 // 50 MB

// UploadObject handles POST /api/projects/{project}/objects/upload
// (multipart/form-data). The content comes from the "file" field; "name"
// defaults to the file name without extension, and "version", "section"
// and "audience" are optional form fields.
func (h *Handler) UploadObject(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read file"))
		return
	}

	name := r.FormValue("name")
	if name == "" {
		base := filepath.Base(header.Filename)
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}

	h.add(w, r, docservice.AddInput{
		Project:  chi.URLParam(r, "project"),
		Name:     name,
		Version:  r.FormValue("version"),
		Section:  r.FormValue("section"),
		Audience: r.FormValue("audience"),
		Content:  content,
	})
}
