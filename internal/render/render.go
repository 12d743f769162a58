// Package render formats records and documents for terminal and file output.
package render

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/starford/cbl/internal/assemble"
	"github.com/starford/cbl/internal/models"
)

// Output formats for built documents.
const (
	FormatMarkdown = "md"
	FormatHTML     = "html"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

var titleStyle = lipgloss.NewStyle().Bold(true)

func writeTable(w io.Writer, title string, t *table.Table) error {
	if title != "" {
		if _, err := fmt.Fprintln(w, titleStyle.Render(title)); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

// Records writes the list view under title: one row per record.
func Records(w io.Writer, title string, records []models.Record) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No objects.")
		return err
	}
	t := newTable("NAME", "VERSION", "SECTION", "AUDIENCE", "CREATED")
	for _, r := range records {
		t.Row(r.Name, r.Version, dash(r.SectionLabel()), dash(r.AudienceLabel()),
			r.CreatedAt.Local().Format(time.DateTime))
	}
	return writeTable(w, title, t)
}

// Preview writes the show view under title: one row per resolved entry,
// grouped by section in output order.
func Preview(w io.Writer, title string, buckets []assemble.PreviewBucket) error {
	if len(buckets) == 0 {
		_, err := fmt.Fprintln(w, "No objects match.")
		return err
	}
	t := newTable("SECTION", "NAME", "VERSION", "PREVIEW")
	for _, b := range buckets {
		for _, e := range b.Entries {
			t.Row(b.Label, e.Name, e.Version, e.Preview)
		}
	}
	return writeTable(w, title, t)
}

// Projects writes one row per project.
func Projects(w io.Writer, projects []models.Project) error {
	if len(projects) == 0 {
		_, err := fmt.Fprintln(w, "No projects.")
		return err
	}
	t := newTable("NAME", "DESCRIPTION")
	for _, p := range projects {
		t.Row(p.Name, p.Description)
	}
	return writeTable(w, "", t)
}

var (
	markdownOnce sync.Once
	markdown     goldmark.Markdown
)

func converter() goldmark.Markdown {
	markdownOnce.Do(func() {
		markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))
	})
	return markdown
}

// Document converts an assembled Markdown document to format.
func Document(doc []byte, format string) ([]byte, error) {
	switch format {
	case "", FormatMarkdown:
		return doc, nil
	case FormatHTML:
		var buf bytes.Buffer
		if err := converter().Convert(doc, &buf); err != nil {
			return nil, fmt.Errorf("render: html: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("render: unknown format %q (want %s or %s)", format, FormatMarkdown, FormatHTML)
	}
}

// ContentType returns the HTTP media type for format.
func ContentType(format string) string {
	if format == FormatHTML {
		return "text/html; charset=utf-8"
	}
	return "text/markdown; charset=utf-8"
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
