// Package snapshot reads and writes record sets as JSONL, one record per
// line. Writes are atomic: a temp file is written, synced and renamed.
package snapshot

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

// ErrEmptyName is reported for a line whose record has no name.
var ErrEmptyName = errors.New("record name is empty")

// Write atomically replaces path with recs in JSONL form.
func Write(path string, recs []types.Record) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".pantry-*.jsonl.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	fail := func(err error) error {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}

	if err := Encode(tmp, recs); err != nil {
		return fail(err)
	}
	if err := tmp.Sync(); err != nil {
		return fail(fmt.Errorf("syncing temp file: %w", err))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// Encode writes recs to w, one JSON object per line.
func Encode(w io.Writer, recs []types.Record) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for _, r := range recs {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("writing record %d: %w", r.ID, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flushing buffer: %w", err)
	}
	return nil
}

// MaxLineSize is the longest JSONL line Decode accepts.
const MaxLineSize = 64 << 20

// Read loads the records stored at path.
func Read(path string, logger *slog.Logger) ([]types.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return Decode(f, logger)
}

// Decode reads JSONL records from r. Blank lines are ignored. Malformed
// lines, lines without a name and lines with a negative quantity are
// skipped and logged.
func Decode(r io.Reader, logger *slog.Logger) ([]types.Record, error) {
	if logger == nil {
		logger = slog.Default()
	}

	recs := []types.Record{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxLineSize)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec types.Record
		if err := json.Unmarshal(line, &rec); err != nil {
			logger.Warn("skipping malformed line", "line", lineNo, "error", err)
			continue
		}
		if err := check(rec); err != nil {
			logger.Warn("skipping invalid record", "line", lineNo, "error", err)
			continue
		}
		recs = append(recs, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning: %w", err)
	}
	return recs, nil
}

func check(r types.Record) error {
	if r.Name == "" {
		return ErrEmptyName
	}
	if r.Quantity < 0 {
		return types.NewValidationError("quantity", fmt.Sprint(r.Quantity), "must not be negative")
	}
	return nil
}
