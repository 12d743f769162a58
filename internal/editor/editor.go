// Package editor collects object content from a file, stdin or an
// interactive editor session.
package editor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/term"
)

// Stdin is the --file value that reads content from standard input.
const Stdin = "-"

// ErrEmpty is returned when the editor session produced no content.
var ErrEmpty = errors.New("editor: empty content, aborting")

// Seed returns the initial buffer for a new object.
func Seed(name string) string {
	return fmt.Sprintf("# Documentation for %s\n\n", name)
}

// Command picks the editor: $EDITOR, then fallback, then vi. Blank values
// are skipped.
func Command(fallback string) string {
	if e := strings.TrimSpace(os.Getenv("EDITOR")); e != "" {
		return e
	}
	if f := strings.TrimSpace(fallback); f != "" {
		return f
	}
	return "vi"
}

// Source reads content for an add.
//
// A non-empty file is read from disk, or from stdin when it is Stdin.
// Without a file, piped stdin is read directly and a terminal gets an
// editor session seeded with Seed(name).
type Source struct {
	Stdin  *os.File
	Stdout io.Writer
	Stderr io.Writer
	Editor string
}

// Read returns the content for name according to file.
func (s Source) Read(ctx context.Context, name, file string) ([]byte, error) {
	switch {
	case file == Stdin:
		return io.ReadAll(s.Stdin)
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("editor: read %s: %w", file, err)
		}
		return data, nil
	case !term.IsTerminal(int(s.Stdin.Fd())):
		return io.ReadAll(s.Stdin)
	default:
		return s.Compose(ctx, Seed(name))
	}
}

// Compose writes seed to a temporary file, runs the editor on it and
// returns what was saved. A buffer left empty or unchanged yields ErrEmpty.
func (s Source) Compose(ctx context.Context, seed string) ([]byte, error) {
	tmp, err := os.CreateTemp("", "cbl-*.md")
	if err != nil {
		return nil, fmt.Errorf("editor: temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(seed); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("editor: seed: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("editor: seed: %w", err)
	}

	// The editor setting may carry arguments, e.g. "code --wait".
	parts := strings.Fields(Command(s.Editor))
	cmd := exec.CommandContext(ctx, parts[0], append(parts[1:], tmp.Name())...)
	cmd.Stdin = s.Stdin
	cmd.Stdout = s.Stdout
	cmd.Stderr = s.Stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("editor: %s: %w", parts[0], err)
	}

	data, err := os.ReadFile(tmp.Name())
	if err != nil {
		return nil, fmt.Errorf("editor: read back: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" || string(data) == seed {
		return nil, ErrEmpty
	}
	return data, nil
}
