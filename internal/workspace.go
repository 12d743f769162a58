package internal

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/starford/cbl/internal/docservice"
	"github.com/starford/cbl/internal/index"
	"github.com/starford/cbl/internal/storage"
	pkgconfig "github.com/starford/cbl/pkg/config"
)

// ErrNotInitialized is returned when a workspace has not been created yet.
var ErrNotInitialized = errors.New("workspace not initialized (run `cbl init <project>`)")

// Workspace bundles the opened store, index and document service.
type Workspace struct {
	Layout  Layout
	Config  *Config
	Store   *storage.FS
	DB      *index.DB
	Service *docservice.Service
}

// LoadConfig reads path over the defaults. A missing file yields defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := NewDefaultConfig()
	if err := pkgconfig.LoadOptional(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ServiceSettings extracts the values the document service reads.
func (c *Config) ServiceSettings() docservice.Settings {
	return docservice.Settings{
		DefaultVersion:  c.Defaults.Version,
		DefaultAudience: c.Defaults.Audience,
		Sections:        c.Display.SectionList(),
	}
}

// OpenWorkspace opens the store and index of an initialized workspace.
// create makes the directories first, for init.
func OpenWorkspace(layout Layout, cfg *Config, create bool, logger *slog.Logger, opts ...docservice.Option) (*Workspace, error) {
	if create {
		if err := layout.Ensure(); err != nil {
			return nil, err
		}
	} else if !layout.Initialized() {
		return nil, fmt.Errorf("%s: %w", layout.Root, ErrNotInitialized)
	}

	store, err := storage.NewFS(layout.ObjectsDir())
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(layout.IndexPath())
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	logger.Debug("workspace opened",
		slog.String("root", layout.Root),
		slog.String("index", layout.IndexPath()))

	return &Workspace{
		Layout:  layout,
		Config:  cfg,
		Store:   store,
		DB:      db,
		Service: docservice.New(store, db, cfg.ServiceSettings(), opts...),
	}, nil
}

// Close releases the index.
func (w *Workspace) Close() error {
	return w.DB.Close()
}
