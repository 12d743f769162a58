package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zlib"
	"github.com/spf13/afero"

	"github.com/starford/cbl/internal/apperr"
	"github.com/starford/cbl/internal/checksum"
)

const tmpPrefix = ".cbl-tmp-"

// FS implements Provider on top of an afero file system. Objects live at
// <root>/<first two digest chars>/<remaining digest chars> and hold the
// zlib-compressed framed payload.
type FS struct {
	fs   afero.Fs
	root string
}

// NewFS creates a store rooted at the given directory on the OS file system.
// The directory must already exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	return NewFSWith(afero.NewOsFs(), abs)
}

// NewFSWith creates a store rooted at root on fsys.
func NewFSWith(fsys afero.Fs, root string) (*FS, error) {
	info, err := fsys.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", root)
	}
	return &FS{fs: fsys, root: root}, nil
}

// Root returns the objects directory.
func (f *FS) Root() string {
	return f.root
}

func (f *FS) objectPath(digest string) (string, error) {
	if !checksum.Valid(digest) {
		return "", fmt.Errorf("storage: malformed digest %q: %w", digest, apperr.ErrNotFound)
	}
	return filepath.Join(f.root, digest[:2], digest[2:]), nil
}

// Put frames, compresses and writes data unless its digest is already stored.
func (f *FS) Put(data []byte) (string, error) {
	digest := checksum.Sum(data)
	p, err := f.objectPath(digest)
	if err != nil {
		return "", err
	}
	exists, err := afero.Exists(f.fs, p)
	if err != nil {
		return "", fmt.Errorf("storage: stat %s: %w", digest, err)
	}
	if exists {
		return digest, nil
	}

	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(checksum.Frame(data)); err != nil {
		return "", fmt.Errorf("storage: compress %s: %w", digest, err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("storage: compress %s: %w", digest, err)
	}
	if err := f.writeAtomic(p, buf.Bytes()); err != nil {
		return "", err
	}
	return digest, nil
}

// Get returns the body stored under digest, without its frame header.
// The digest is not re-verified against the content.
func (f *FS) Get(digest string) ([]byte, error) {
	p, err := f.objectPath(digest)
	if err != nil {
		return nil, err
	}
	raw, err := afero.ReadFile(f.fs, p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("storage: object %s: %w", digest, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("storage: read %s: %w", digest, err)
	}
	zr, err := zlib.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("storage: decompress %s: %w", digest, err)
	}
	defer zr.Close()
	framed, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("storage: decompress %s: %w", digest, err)
	}
	i := bytes.IndexByte(framed, 0)
	if i < 0 {
		return nil, fmt.Errorf("storage: object %s has no header", digest)
	}
	return framed[i+1:], nil
}

// Has reports whether digest is stored.
func (f *FS) Has(digest string) (bool, error) {
	p, err := f.objectPath(digest)
	if err != nil {
		return false, nil
	}
	ok, err := afero.Exists(f.fs, p)
	if err != nil {
		return false, fmt.Errorf("storage: stat %s: %w", digest, err)
	}
	return ok, nil
}

// Digests walks the store and returns every digest it holds.
func (f *FS) Digests() ([]string, error) {
	var out []string
	err := afero.Walk(f.fs, f.root, func(p string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if info.IsDir() || strings.HasPrefix(info.Name(), tmpPrefix) {
			return nil
		}
		rel, err := filepath.Rel(f.root, p)
		if err != nil {
			return err
		}
		digest := strings.ReplaceAll(filepath.ToSlash(rel), "/", "")
		if checksum.Valid(digest) {
			out = append(out, digest)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	sort.Strings(out)
	return out, nil
}

// writeAtomic writes content: tmp file → fsync → rename.
func (f *FS) writeAtomic(abs string, content []byte) error {
	dir := filepath.Dir(abs)
	if err := f.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}

	tmp, err := afero.TempFile(f.fs, dir, tmpPrefix+"*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = f.fs.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := f.fs.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}
