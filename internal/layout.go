package internal

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultRoot is the workspace directory used when none is configured.
const DefaultRoot = ".codebylevel"

// Layout derives the on-disk paths of a workspace from its root.
type Layout struct {
	Root string
}

// NewLayout returns the layout for root, or DefaultRoot when root is empty.
func NewLayout(root string) Layout {
	if root == "" {
		root = DefaultRoot
	}
	return Layout{Root: root}
}

// ObjectsDir is the content store directory.
func (l Layout) ObjectsDir() string { return filepath.Join(l.Root, "objects") }

// IndexPath is the SQLite metadata index.
func (l Layout) IndexPath() string { return filepath.Join(l.Root, "index.sqlite") }

// ConfigPath is the workspace configuration file.
func (l Layout) ConfigPath() string { return filepath.Join(l.Root, "config.yaml") }

// Ensure creates the root and objects directories.
func (l Layout) Ensure() error {
	if err := os.MkdirAll(l.ObjectsDir(), 0o755); err != nil {
		return fmt.Errorf("create workspace %s: %w", l.Root, err)
	}
	return nil
}

// Initialized reports whether the objects directory exists.
func (l Layout) Initialized() bool {
	info, err := os.Stat(l.ObjectsDir())
	return err == nil && info.IsDir()
}
