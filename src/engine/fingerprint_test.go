package engine

import (
	"testing"
	"time"

	"github.com/ailog-dev/ailog/src/adapters"
	"github.com/ailog-dev/ailog/src/storage"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fingerprintFixture(t *testing.T, content string) (afero.Fs, adapters.FileCandidate, *storage.IndexStateRow) {
	t.Helper()
	fsys := afero.NewMemMapFs()
	path := "/logs/s1.jsonl"
	require.NoError(t, afero.WriteFile(fsys, path, []byte(content), 0644))

	mtime := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	require.NoError(t, fsys.Chtimes(path, mtime, mtime))

	hash, err := hashFile(fsys, path)
	require.NoError(t, err)

	cand := adapters.FileCandidate{Path: path, Size: int64(len(content)), ModTime: mtime}
	prev := &storage.IndexStateRow{
		FilePath:    path,
		Size:        int64(len(content)),
		MtimeNS:     mtime.UnixNano(),
		ContentHash: hash,
		ParsedAt:    mtime.Add(time.Minute),
	}
	return fsys, cand, prev
}

func TestDecideChangeNewFile(t *testing.T) {
	fsys, cand, _ := fingerprintFixture(t, "content")
	dec, err := decideChange(fsys, nil, cand)
	require.NoError(t, err)
	assert.Equal(t, fileChanged, dec)
}

func TestDecideChangeUnchanged(t *testing.T) {
	fsys, cand, prev := fingerprintFixture(t, "content")
	dec, err := decideChange(fsys, prev, cand)
	require.NoError(t, err)
	assert.Equal(t, fileUnchanged, dec)
}

func TestDecideChangePartialAlwaysReparses(t *testing.T) {
	fsys, cand, prev := fingerprintFixture(t, "content")
	prev.Partial = true
	dec, err := decideChange(fsys, prev, cand)
	require.NoError(t, err)
	assert.Equal(t, fileChanged, dec)
}

func TestDecideChangeSizeDelta(t *testing.T) {
	fsys, cand, prev := fingerprintFixture(t, "content")
	cand.Size++
	dec, err := decideChange(fsys, prev, cand)
	require.NoError(t, err)
	assert.Equal(t, fileChanged, dec)
}

func TestDecideChangeTouchedButIdentical(t *testing.T) {
	fsys, cand, prev := fingerprintFixture(t, "content")
	cand.ModTime = cand.ModTime.Add(time.Hour)
	dec, err := decideChange(fsys, prev, cand)
	require.NoError(t, err)
	assert.Equal(t, fileRefreshed, dec)
}

func TestDecideChangeRewrittenSameSize(t *testing.T) {
	fsys, cand, prev := fingerprintFixture(t, "content")
	require.NoError(t, afero.WriteFile(fsys, cand.Path, []byte("tnetnoc"), 0644))
	cand.ModTime = cand.ModTime.Add(time.Hour)
	dec, err := decideChange(fsys, prev, cand)
	require.NoError(t, err)
	assert.Equal(t, fileChanged, dec)
}

func TestDecideChangeRacyWindow(t *testing.T) {
	fsys, cand, prev := fingerprintFixture(t, "content")
	// Last parse landed within the racy window of the mtime, so metadata
	// alone cannot prove the file unchanged.
	prev.ParsedAt = cand.ModTime.Add(time.Second)

	dec, err := decideChange(fsys, prev, cand)
	require.NoError(t, err)
	assert.Equal(t, fileUnchanged, dec, "hash settles the ambiguity")

	// Same size, same mtime, different bytes: only the hash catches this.
	require.NoError(t, afero.WriteFile(fsys, cand.Path, []byte("tnetnoc"), 0644))
	require.NoError(t, fsys.Chtimes(cand.Path, cand.ModTime, cand.ModTime))
	dec, err = decideChange(fsys, prev, cand)
	require.NoError(t, err)
	assert.Equal(t, fileChanged, dec)
}
