package api

import (
	"github.com/starford/cbl/internal/assemble"
	"github.com/starford/cbl/internal/docservice"
	"github.com/starford/cbl/internal/models"
)

// CreateProjectRequest is the request body for creating a project.
type CreateProjectRequest struct {
	Name        string `json:"name" example:"docs" validate:"required"`
	Description string `json:"description" example:"Product documentation"`
}

// AddObjectRequest is the request body for adding an object version.
// Version, section and audience may also come from front matter in Content.
type AddObjectRequest struct {
	Name     string `json:"name" example:"intro" validate:"required"`
	Version  string `json:"version" example:"1.0.0"`
	Section  string `json:"section" example:"Overview"`
	Audience string `json:"audience" example:"user"`
	Content  string `json:"content" example:"# Intro\nHello" validate:"required"`
}

// Project is a project in API responses (aliased from the domain layer).
type Project = models.Project

// Record is one object version in API responses (aliased from the domain layer).
type Record = models.Record

// Added is the response of a successful object add (aliased from the domain layer).
type Added = docservice.Added

// ProjectListResponse wraps project listings.
type ProjectListResponse struct {
	Projects []Project `json:"projects" validate:"required"`
}

// ObjectListResponse wraps every record of a project.
type ObjectListResponse struct {
	Project string   `json:"project" example:"docs" validate:"required"`
	Objects []Record `json:"objects" validate:"required"`
}

// ResolveResponse lists the records visible at a version, grouped by section.
type ResolveResponse struct {
	Project  string                   `json:"project" example:"docs" validate:"required"`
	Version  string                   `json:"version" example:"1.5.0" validate:"required"`
	Level    string                   `json:"level,omitempty" example:"user"`
	Sections []assemble.PreviewBucket `json:"sections" validate:"required"`
}
