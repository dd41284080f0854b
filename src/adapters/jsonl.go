package adapters

import (
	"bufio"
	"encoding/json"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// jsonlScan reads a line-delimited JSON file and calls fn with each decoded
// line. Lines that fail to decode are skipped; the returned flag reports
// whether any line was skipped, which callers treat as an in-progress file
// (agents append lines and the last one is often incomplete).
func jsonlScan(fsys afero.Fs, path string, fn func(line map[string]any)) (partial bool, err error) {
	f, err := fsys.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	// Session lines carry whole assistant turns; allow up to 4MB per line.
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var line map[string]any
		if err := json.Unmarshal([]byte(text), &line); err != nil {
			partial = true
			continue
		}
		fn(line)
	}
	if err := scanner.Err(); err != nil {
		if err == bufio.ErrTooLong {
			return true, nil
		}
		return partial, err
	}
	return partial, nil
}

// jsonString digs a string value out of decoded JSON by key path.
func jsonString(v map[string]any, keys ...string) string {
	cur := any(v)
	for _, k := range keys {
		m, ok := cur.(map[string]any)
		if !ok {
			return ""
		}
		cur = m[k]
	}
	s, _ := cur.(string)
	return s
}

// parseTimestamp parses an RFC3339 timestamp, normalized to UTC.
func parseTimestamp(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t, err = time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return nil
		}
	}
	utc := t.UTC()
	return &utc
}

// widenSpan grows the [started, ended] window to include ts.
func widenSpan(started, ended **time.Time, ts *time.Time) {
	if ts == nil {
		return
	}
	if *started == nil || ts.Before(**started) {
		*started = ts
	}
	if *ended == nil || ts.After(**ended) {
		*ended = ts
	}
}
