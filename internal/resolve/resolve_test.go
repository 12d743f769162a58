package resolve

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/cbl/internal/apperr"
	"github.com/starford/cbl/internal/models"
	"github.com/starford/cbl/internal/version"
)

type fakeIndex struct {
	records map[string][]models.Record
}

func (f *fakeIndex) ListRecords(project, audience string) ([]models.Record, error) {
	recs, ok := f.records[project]
	if !ok {
		return nil, apperr.ErrProjectNotFound
	}
	var out []models.Record
	for _, r := range recs {
		if audience == "" || r.AudienceLabel() == audience {
			out = append(out, r)
		}
	}
	return out, nil
}

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func rec(seq int64, name, ver, digest string) models.Record {
	return models.Record{Seq: seq, Name: name, Version: ver, Digest: digest, CreatedAt: epoch.Add(time.Duration(seq) * time.Second)}
}

func resolver(recs ...models.Record) *Resolver {
	return New(&fakeIndex{records: map[string][]models.Record{"docs": recs}})
}

func TestResolve_HighestNotExceedingTarget(t *testing.T) {
	r := resolver(
		rec(1, "intro", "1.0.0", "d1"),
		rec(2, "intro", "1.2.0", "d2"),
		rec(3, "intro", "2.0.0", "d3"),
	)

	got, err := r.Resolve("docs", "1.5.0", "")
	require.NoError(t, err)
	assert.Equal(t, "1.2.0", got["intro"].Version)

	got, err = r.Resolve("docs", "0.9.0", "")
	require.NoError(t, err)
	assert.NotContains(t, got, "intro")

	got, err = r.Resolve("docs", "2.0.0", "")
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", got["intro"].Version)
}

func TestResolve_InsertionOrderDoesNotMatter(t *testing.T) {
	r := resolver(
		rec(1, "intro", "2.0.0", "d3"),
		rec(2, "intro", "1.0.0", "d1"),
		rec(3, "intro", "1.2.0", "d2"),
	)
	got, err := r.Resolve("docs", "3.0.0", "")
	require.NoError(t, err)
	assert.Equal(t, "d3", got["intro"].Digest)
}

func TestResolve_TieBreakLastWriteWins(t *testing.T) {
	r := resolver(
		rec(1, "intro", "1.0.0", "first"),
		rec(2, "intro", "1.0.0", "second"),
	)
	got, err := r.Resolve("docs", "1.0.0", "")
	require.NoError(t, err)
	assert.Equal(t, "second", got["intro"].Digest)
}

func TestResolve_TieBreakTimestampBeforeSeq(t *testing.T) {
	later := rec(1, "intro", "1.0.0", "later-clock")
	later.CreatedAt = epoch.Add(time.Hour)
	earlier := rec(2, "intro", "1.0.0", "earlier-clock")

	got, err := Select([]models.Record{later, earlier}, version.MustParse("1.0.0"))
	require.NoError(t, err)
	assert.Equal(t, "later-clock", got["intro"].Digest)
}

func TestResolve_TieBreakSeqOnEqualTimestamps(t *testing.T) {
	a := rec(1, "intro", "1.0.0", "a")
	b := rec(2, "intro", "1.0.0", "b")
	b.CreatedAt = a.CreatedAt

	got, err := Select([]models.Record{b, a}, version.MustParse("1.0.0"))
	require.NoError(t, err)
	assert.Equal(t, "b", got["intro"].Digest)
}

func TestResolve_BuildMetadataTiesResolvedByInsertion(t *testing.T) {
	r := resolver(
		rec(1, "intro", "1.0.0+a", "a"),
		rec(2, "intro", "1.0.0+b", "b"),
	)
	got, err := r.Resolve("docs", "1.0.0", "")
	require.NoError(t, err)
	assert.Equal(t, "b", got["intro"].Digest)
}

func TestResolve_PreReleaseBelowRelease(t *testing.T) {
	r := resolver(
		rec(1, "intro", "1.0.0-rc.1", "rc"),
		rec(2, "intro", "1.0.0", "final"),
	)
	got, err := r.Resolve("docs", "1.0.0-rc.2", "")
	require.NoError(t, err)
	assert.Equal(t, "rc", got["intro"].Digest)

	got, err = r.Resolve("docs", "1.0.0", "")
	require.NoError(t, err)
	assert.Equal(t, "final", got["intro"].Digest)
}

func TestResolve_AudienceFilterIsExclusive(t *testing.T) {
	internal := rec(2, "intro", "1.1.0", "internal")
	internal.Audience = models.Optional("internal")
	public := rec(1, "intro", "1.0.0", "public")
	public.Audience = models.Optional("public")
	r := resolver(public, internal)

	got, err := r.Resolve("docs", "2.0.0", "public")
	require.NoError(t, err)
	assert.Equal(t, "public", got["intro"].Digest)

	got, err = r.Resolve("docs", "2.0.0", "")
	require.NoError(t, err)
	assert.Equal(t, "internal", got["intro"].Digest)
}

func TestResolve_IndependentNames(t *testing.T) {
	r := resolver(
		rec(1, "intro", "1.0.0", "i1"),
		rec(2, "api", "1.1.0", "a1"),
		rec(3, "api", "3.0.0", "a3"),
		rec(4, "faq", "2.0.0", "f2"),
	)
	got, err := r.Resolve("docs", "1.5.0", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"api", "intro"}, got.Names())
	assert.Equal(t, "a1", got["api"].Digest)
}

func TestResolve_EmptyProject(t *testing.T) {
	got, err := resolver().Resolve("docs", "1.0.0", "")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestResolve_InvalidTarget(t *testing.T) {
	_, err := resolver(rec(1, "intro", "1.0.0", "d")).Resolve("docs", "1.5", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrInvalidVersion))
	assert.Contains(t, err.Error(), `"1.5"`)
}

func TestResolve_CorruptStoredVersionFailsWholeCall(t *testing.T) {
	r := resolver(
		rec(1, "intro", "1.0.0", "d"),
		rec(2, "broken", "latest", "x"),
	)
	got, err := r.Resolve("docs", "9.0.0", "")
	require.Error(t, err)
	assert.Nil(t, got)
	assert.True(t, errors.Is(err, apperr.ErrInvalidVersion))
	assert.Contains(t, err.Error(), `"latest"`)
	assert.Contains(t, err.Error(), `"broken"`)
}

func TestResolve_ProjectNotFound(t *testing.T) {
	_, err := resolver().Resolve("nope", "1.0.0", "")
	assert.True(t, errors.Is(err, apperr.ErrProjectNotFound))
}
