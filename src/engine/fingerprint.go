package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/ailog-dev/ailog/src/adapters"
	"github.com/ailog-dev/ailog/src/storage"
	"github.com/spf13/afero"
)

// racyMtimeWindow is how close a parse may be to a file's mtime before the
// mtime stops proving anything: a write landing in the same instant we
// parsed can leave size and mtime untouched. Inside the window the content
// hash decides. Outside it, matching size and mtime are trusted without
// hashing, so a same-size rewrite with a deliberately restored mtime goes
// undetected; that keeps the unchanged fast path free of reads.
const racyMtimeWindow = 2 * time.Second

type changeDecision int

const (
	// fileUnchanged: skip, fingerprint still valid.
	fileUnchanged changeDecision = iota
	// fileChanged: re-parse and replace.
	fileChanged
	// fileRefreshed: content proven identical but the stored mtime is
	// stale; update the fingerprint without re-parsing.
	fileRefreshed
)

// decideChange compares a candidate file against its tracked state. It reads
// file bytes only when size and mtime cannot settle the question.
func decideChange(fsys afero.Fs, prev *storage.IndexStateRow, cand adapters.FileCandidate) (changeDecision, error) {
	if prev == nil {
		return fileChanged, nil
	}
	// Partial files looked in-progress last time; always retry them.
	if prev.Partial {
		return fileChanged, nil
	}
	if cand.Size != prev.Size {
		return fileChanged, nil
	}

	mtimeNS := cand.ModTime.UnixNano()
	if mtimeNS != prev.MtimeNS {
		// Same size, moved mtime: often a touch or an in-place rewrite.
		// Hash to tell them apart.
		hash, err := hashFile(fsys, cand.Path)
		if err != nil {
			return fileChanged, err
		}
		if prev.ContentHash != "" && hash == prev.ContentHash {
			return fileRefreshed, nil
		}
		return fileChanged, nil
	}

	// Size and mtime both match. Trust them unless the last parse raced
	// the write.
	parsedDelta := prev.ParsedAt.Sub(cand.ModTime)
	if parsedDelta < 0 {
		parsedDelta = -parsedDelta
	}
	if parsedDelta <= racyMtimeWindow {
		hash, err := hashFile(fsys, cand.Path)
		if err != nil {
			return fileChanged, err
		}
		if prev.ContentHash == "" || hash != prev.ContentHash {
			return fileChanged, nil
		}
	}
	return fileUnchanged, nil
}

// hashFile returns the hex sha256 of a file's content.
func hashFile(fsys afero.Fs, path string) (string, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
