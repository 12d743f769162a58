// Package resolve selects, per object name, the record visible at a target
// version.
package resolve

import (
	"fmt"
	"sort"

	"github.com/starford/cbl/internal/models"
	"github.com/starford/cbl/internal/version"
)

// RecordLister is the slice of the metadata index the resolver reads.
type RecordLister interface {
	ListRecords(project, audience string) ([]models.Record, error)
}

// Result maps object name to its selected record.
type Result map[string]models.Record

// Names returns the object names in ascending order.
func (r Result) Names() []string {
	names := make([]string, 0, len(r))
	for n := range r {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Resolver resolves project state at a version.
type Resolver struct {
	index RecordLister
}

// New creates a Resolver over idx.
func New(idx RecordLister) *Resolver {
	return &Resolver{index: idx}
}

// Resolve returns the visible record per object name for project at target.
// An empty audience disables filtering.
func (r *Resolver) Resolve(project, target, audience string) (Result, error) {
	tv, err := version.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("resolve: target: %w", err)
	}
	records, err := r.index.ListRecords(project, audience)
	if err != nil {
		return nil, err
	}
	return Select(records, tv)
}

// Select applies resolution to records already fetched from the index.
// Records above target are dropped; per name the greatest version wins.
// Equal versions are ordered by CreatedAt, then by Seq, and the later
// record wins. Any unparseable stored version fails the whole call.
func Select(records []models.Record, target version.Version) (Result, error) {
	type candidate struct {
		rec models.Record
		ver version.Version
	}
	best := make(map[string]candidate)

	for _, rec := range records {
		v, err := version.Parse(rec.Version)
		if err != nil {
			return nil, fmt.Errorf("resolve: object %q record %d: %w", rec.Name, rec.Seq, err)
		}
		if version.Compare(v, target) > 0 {
			continue
		}
		cur, ok := best[rec.Name]
		if !ok || newer(rec, v, cur.rec, cur.ver) {
			best[rec.Name] = candidate{rec: rec, ver: v}
		}
	}

	out := make(Result, len(best))
	for name, c := range best {
		out[name] = c.rec
	}
	return out, nil
}

func newer(a models.Record, av version.Version, b models.Record, bv version.Version) bool {
	if c := version.Compare(av, bv); c != 0 {
		return c > 0
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.Seq > b.Seq
}
