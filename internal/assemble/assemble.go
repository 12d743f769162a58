// Package assemble groups resolved records by section and renders them into
// a single ordered document.
package assemble

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/starford/cbl/internal/models"
	"github.com/starford/cbl/internal/resolve"
)

// OtherLabel is the heading of the catch-all bucket for records whose
// section is absent or not configured.
const OtherLabel = "Other"

// PreviewWidth is the maximum number of characters kept from a preview line.
const PreviewWidth = 50

// ContentReader reads stored content by digest.
type ContentReader interface {
	Get(digest string) ([]byte, error)
}

// Bucket is one section group in output order.
type Bucket struct {
	Label    string
	Catchall bool
	Entries  []models.Record
}

// PreviewEntry is a record with the first line of its content.
type PreviewEntry struct {
	models.Record
	Preview string `json:"preview"`
}

// PreviewBucket is a Bucket whose entries carry previews.
type PreviewBucket struct {
	Label   string         `json:"label"`
	Entries []PreviewEntry `json:"entries"`
}

// Assembler turns a resolve.Result into ordered output.
type Assembler struct {
	store    ContentReader
	sections []string
}

// New creates an Assembler that orders buckets by sections.
func New(store ContentReader, sections []string) *Assembler {
	return &Assembler{store: store, sections: append([]string(nil), sections...)}
}

// Group places every resolved record into its bucket. Configured sections
// come first in their configured order, followed by one catch-all bucket.
// Entries within a bucket are sorted by name. Empty buckets are dropped.
func (a *Assembler) Group(res resolve.Result) []Bucket {
	buckets := make([]Bucket, len(a.sections))
	pos := make(map[string]int, len(a.sections))
	for i, s := range a.sections {
		buckets[i] = Bucket{Label: s}
		if _, dup := pos[s]; !dup {
			pos[s] = i
		}
	}

	other := -1
	for _, name := range res.Names() {
		rec := res[name]
		i, ok := -1, false
		if rec.Section != nil {
			i, ok = pos[*rec.Section]
		}
		if !ok {
			if other < 0 {
				buckets = append(buckets, Bucket{Label: OtherLabel, Catchall: true})
				other = len(buckets) - 1
			}
			i = other
		}
		buckets[i].Entries = append(buckets[i].Entries, rec)
	}

	out := buckets[:0]
	for _, b := range buckets {
		if len(b.Entries) == 0 {
			continue
		}
		sort.SliceStable(b.Entries, func(i, j int) bool { return b.Entries[i].Name < b.Entries[j].Name })
		out = append(out, b)
	}
	return out
}

// Preview groups res and reads the first line of every entry.
func (a *Assembler) Preview(res resolve.Result) ([]PreviewBucket, error) {
	groups := a.Group(res)
	out := make([]PreviewBucket, 0, len(groups))
	for _, b := range groups {
		pb := PreviewBucket{Label: b.Label, Entries: make([]PreviewEntry, 0, len(b.Entries))}
		for _, rec := range b.Entries {
			data, err := a.store.Get(rec.Digest)
			if err != nil {
				return nil, fmt.Errorf("assemble: %q@%s: %w", rec.Name, rec.Version, err)
			}
			pb.Entries = append(pb.Entries, PreviewEntry{Record: rec, Preview: PreviewLine(data)})
		}
		out = append(out, pb)
	}
	return out, nil
}

// Build renders res as one Markdown document: a "## <section>" heading per
// non-empty bucket followed by the full content of each entry, entries and
// buckets separated by a blank line.
func (a *Assembler) Build(res resolve.Result) ([]byte, error) {
	var buf bytes.Buffer
	for i, b := range a.Group(res) {
		if i > 0 {
			buf.WriteByte('\n')
		}
		fmt.Fprintf(&buf, "## %s\n\n", b.Label)
		for j, rec := range b.Entries {
			data, err := a.store.Get(rec.Digest)
			if err != nil {
				return nil, fmt.Errorf("assemble: %q@%s: %w", rec.Name, rec.Version, err)
			}
			if j > 0 {
				buf.WriteByte('\n')
			}
			buf.Write(data)
			if len(data) == 0 || data[len(data)-1] != '\n' {
				buf.WriteByte('\n')
			}
		}
	}
	return buf.Bytes(), nil
}

// PreviewLine returns the first line of the trimmed content, cut to
// PreviewWidth characters with "..." appended when cut.
func PreviewLine(data []byte) string {
	s := strings.TrimSpace(string(data))
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		s = s[:i]
	}
	if utf8.RuneCountInString(s) <= PreviewWidth {
		return s
	}
	r := []rune(s)
	return string(r[:PreviewWidth]) + "..."
}
