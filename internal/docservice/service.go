// Package docservice coordinates the content store, metadata index,
// resolver and assembler behind the operations exposed by the CLI, the
// HTTP API and the MCP server.
package docservice

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/starford/cbl/internal/apperr"
	"github.com/starford/cbl/internal/assemble"
	"github.com/starford/cbl/internal/frontmatter"
	"github.com/starford/cbl/internal/index"
	"github.com/starford/cbl/internal/models"
	"github.com/starford/cbl/internal/resolve"
	"github.com/starford/cbl/internal/storage"
	"github.com/starford/cbl/internal/version"
)

// Settings are the configuration values the service reads on every call.
// They can be replaced while serving.
type Settings struct {
	DefaultVersion  string
	DefaultAudience string
	Sections        []string
}

// AddInput describes one object version to add. Empty fields fall back to
// front matter in Content and then to Settings.
type AddInput struct {
	Project  string `json:"project"`
	Name     string `json:"name"`
	Version  string `json:"version"`
	Section  string `json:"section"`
	Audience string `json:"audience"`
	Content  []byte `json:"-"`
}

// Added is the outcome of a successful Add.
type Added struct {
	Project string        `json:"project"`
	Record  models.Record `json:"record"`
}

// Service coordinates storage and index operations.
type Service struct {
	store    storage.Provider
	idx      index.RecordIndex
	resolver *resolve.Resolver
	now      func() time.Time

	mu       sync.RWMutex
	settings Settings
	onAdd    func(Added)
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithOnAdd registers a callback invoked after every successful Add.
func WithOnAdd(fn func(Added)) Option {
	return func(s *Service) { s.onAdd = fn }
}

// New creates a document service.
func New(store storage.Provider, idx index.RecordIndex, settings Settings, opts ...Option) *Service {
	s := &Service{
		store:    store,
		idx:      idx,
		resolver: resolve.New(idx),
		now:      time.Now,
		settings: settings,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Settings returns the current settings.
func (s *Service) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// SetSettings replaces the settings used by subsequent calls.
func (s *Service) SetSettings(settings Settings) {
	s.mu.Lock()
	s.settings = settings
	s.mu.Unlock()
}

// Init creates a project.
func (s *Service) Init(_ context.Context, name, description string) (*models.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("project name is required: %w", apperr.ErrInvalidArgument)
	}
	id, err := s.idx.CreateProject(name, description)
	if err != nil {
		return nil, err
	}
	return &models.Project{ID: id, Name: name, Description: description}, nil
}

// Projects lists all projects by name.
func (s *Service) Projects(_ context.Context) ([]models.Project, error) {
	projects, err := s.idx.ListProjects()
	if err != nil {
		return nil, err
	}
	return nonNilSlice(projects), nil
}

// Add stores the content and records a new version of the named object.
// The version is validated before anything is written; the blob is
// written before the index record.
func (s *Service) Add(_ context.Context, in AddInput) (*Added, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("object name is required: %w", apperr.ErrInvalidArgument)
	}

	settings := s.Settings()
	content := in.Content
	if fm := frontmatter.Parse(content); fm.Found {
		content = fm.Body
		in.Version = firstNonEmpty(in.Version, fm.Meta.Version)
		in.Section = firstNonEmpty(in.Section, fm.Meta.Section)
		in.Audience = firstNonEmpty(in.Audience, fm.Meta.Audience)
	}
	in.Version = firstNonEmpty(in.Version, settings.DefaultVersion)
	if in.Version == "" {
		return nil, fmt.Errorf("%w: version is required", apperr.ErrInvalidVersion)
	}
	if _, err := version.Parse(in.Version); err != nil {
		return nil, err
	}

	project := in.Project
	if project == "" {
		p, err := s.idx.FindSingleProject()
		if err != nil {
			return nil, err
		}
		project = p
	}

	digest, err := s.store.Put(content)
	if err != nil {
		return nil, err
	}

	row := index.RecordRow{
		Name:      in.Name,
		Version:   in.Version,
		Section:   models.Optional(in.Section),
		Audience:  models.Optional(in.Audience),
		Digest:    digest,
		CreatedAt: s.now().UTC(),
	}
	seq, err := s.idx.AddRecordByName(project, row)
	if err != nil {
		return nil, err
	}

	added := &Added{
		Project: project,
		Record: models.Record{
			Seq:       seq,
			Name:      row.Name,
			Version:   row.Version,
			Section:   row.Section,
			Audience:  row.Audience,
			Digest:    row.Digest,
			CreatedAt: row.CreatedAt,
		},
	}

	s.mu.RLock()
	hook := s.onAdd
	s.mu.RUnlock()
	if hook != nil {
		hook(*added)
	}
	return added, nil
}

// List returns every record of the project ordered by name, then version
// precedence, then insertion order.
func (s *Service) List(_ context.Context, project string) ([]models.Record, error) {
	records, err := s.idx.ListRecords(project, "")
	if err != nil {
		return nil, err
	}
	sortRecords(records)
	return nonNilSlice(records), nil
}

// Resolve returns the latest applicable record per object name.
// An empty level falls back to the configured default audience.
func (s *Service) Resolve(_ context.Context, project, target, level string) (resolve.Result, error) {
	return s.resolver.Resolve(project, target, s.Level(level))
}

// Show resolves and groups the records with a one-line content preview.
func (s *Service) Show(ctx context.Context, project, target, level string) ([]assemble.PreviewBucket, error) {
	res, err := s.Resolve(ctx, project, target, level)
	if err != nil {
		return nil, err
	}
	return s.assembler().Preview(res)
}

// Build resolves and assembles the full Markdown document.
func (s *Service) Build(ctx context.Context, project, target, level string) ([]byte, error) {
	res, err := s.Resolve(ctx, project, target, level)
	if err != nil {
		return nil, err
	}
	return s.assembler().Build(res)
}

// Content returns the stored content for a digest.
func (s *Service) Content(_ context.Context, digest string) ([]byte, error) {
	return s.store.Get(digest)
}

func (s *Service) assembler() *assemble.Assembler {
	return assemble.New(s.store, s.Settings().Sections)
}

// Level returns level, or the configured default audience when empty.
func (s *Service) Level(level string) string {
	if level != "" {
		return level
	}
	return s.Settings().DefaultAudience
}

// sortRecords orders by name, then version precedence, then Seq. Versions
// that fail to parse sort after valid ones, by string.
func sortRecords(records []models.Record) {
	parsed := make(map[string]*version.Version, len(records))
	for _, r := range records {
		if _, ok := parsed[r.Version]; ok {
			continue
		}
		if v, err := version.Parse(r.Version); err == nil {
			parsed[r.Version] = &v
		} else {
			parsed[r.Version] = nil
		}
	}

	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		av, bv := parsed[a.Version], parsed[b.Version]
		switch {
		case av != nil && bv != nil:
			if c := version.Compare(*av, *bv); c != 0 {
				return c < 0
			}
		case av != nil:
			return true
		case bv != nil:
			return false
		case a.Version != b.Version:
			return a.Version < b.Version
		}
		return a.Seq < b.Seq
	})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
