// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes cbl tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/cbl/internal/docservice"
	"github.com/starford/cbl/internal/render"
)

// DocumentFormatURI is the resource describing how objects are assembled.
const DocumentFormatURI = "cbl://document-format"

// Server wraps the MCP server with cbl tools.
type Server struct {
	mcp *server.MCPServer
	svc *docservice.Service
}

// New creates a new MCP server with all cbl tools registered.
func New(svc *docservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"cbl",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_projects",
		mcp.WithDescription("List all documentation projects."),
	), s.listProjects)

	s.mcp.AddTool(mcp.NewTool("list_objects",
		mcp.WithDescription("List every stored version of every object in a project, "+
			"ordered by name then version."),
		mcp.WithString("project", mcp.Required(), mcp.Description("Project name")),
	), s.listObjects)

	s.mcp.AddTool(mcp.NewTool("show_objects",
		mcp.WithDescription("Resolve which object versions are visible at a target version "+
			"and return them grouped by section with a one-line preview."),
		mcp.WithString("project", mcp.Required(), mcp.Description("Project name")),
		mcp.WithString("version", mcp.Required(), mcp.Description("Target semantic version (e.g. 1.5.0)")),
		mcp.WithString("level", mcp.Description("Optional audience filter")),
	), s.showObjects)

	s.mcp.AddTool(mcp.NewTool("build_document",
		mcp.WithDescription("Assemble the full document for a project at a target version. "+
			"Read the "+DocumentFormatURI+" resource for the output layout."),
		mcp.WithString("project", mcp.Required(), mcp.Description("Project name")),
		mcp.WithString("version", mcp.Required(), mcp.Description("Target semantic version (e.g. 1.5.0)")),
		mcp.WithString("level", mcp.Description("Optional audience filter")),
		mcp.WithString("format", mcp.Description("Output format: md (default) or html")),
	), s.buildDocument)

	s.mcp.AddTool(mcp.NewTool("add_object",
		mcp.WithDescription("Add a new immutable version of a named documentation object. "+
			"Existing versions are never modified."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Object name (e.g. intro)")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Markdown content; may start with YAML front matter")),
		mcp.WithString("project", mcp.Description("Project name; optional when exactly one project exists")),
		mcp.WithString("version", mcp.Description("Semantic version; falls back to front matter, then the configured default")),
		mcp.WithString("section", mcp.Description("Optional section label")),
		mcp.WithString("audience", mcp.Description("Optional audience label")),
	), s.addObject)

	// Resource: document format.
	s.mcp.AddResource(
		mcp.NewResource(DocumentFormatURI, "Document Format",
			mcp.WithResourceDescription("How objects are resolved and assembled into a document."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readDocumentFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listProjects(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projects, err := s.svc.Projects(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(projects) == 0 {
		return mcp.NewToolResultText("no projects found"), nil
	}
	names := make([]string, len(projects))
	for i, p := range projects {
		names[i] = p.Name
	}
	return mcp.NewToolResultText(strings.Join(names, "\n")), nil
}

func (s *Server) listObjects(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project, err := req.RequireString("project")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	records, err := s.svc.List(ctx, project)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(records)
}

func (s *Server) showObjects(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project, err := req.RequireString("project")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	target, err := req.RequireString("version")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	buckets, err := s.svc.Show(ctx, project, target, req.GetString("level", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(buckets)
}

func (s *Server) buildDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project, err := req.RequireString("project")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	target, err := req.RequireString("version")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := s.svc.Build(ctx, project, target, req.GetString("level", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, err := render.Document(doc, req.GetString("format", render.FormatMarkdown))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) addObject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	added, err := s.svc.Add(ctx, docservice.AddInput{
		Project:  req.GetString("project", ""),
		Name:     name,
		Version:  req.GetString("version", ""),
		Section:  req.GetString("section", ""),
		Audience: req.GetString("audience", ""),
		Content:  []byte(content),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("added: %s %s@%s (%s)",
		added.Project, added.Record.Name, added.Record.Version, added.Record.Digest)), nil
}

func (s *Server) readDocumentFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      DocumentFormatURI,
			MIMEType: "text/markdown",
			Text:     DocumentFormat,
		},
	}, nil
}
