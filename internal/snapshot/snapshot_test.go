package snapshot

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestWriteRead_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.jsonl")
	recs := []types.Record{
		{ID: 1, Name: "Milk", Quantity: 2},
		{ID: 4, Name: "çay", Quantity: 0},
	}

	require.NoError(t, Write(path, recs))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t,
		"{\"id\":1,\"name\":\"Milk\",\"quantity\":2}\n{\"id\":4,\"name\":\"çay\",\"quantity\":0}\n",
		string(data))

	got, err := Read(path, quiet)
	require.NoError(t, err)
	assert.Equal(t, recs, got)
}

func TestWriteRead_LongName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.jsonl")
	recs := []types.Record{
		{ID: 1, Name: strings.Repeat("x", 70000), Quantity: 1},
		{ID: 2, Name: "Milk", Quantity: 2},
	}

	require.NoError(t, Write(path, recs))

	got, err := Read(path, quiet)
	require.NoError(t, err)
	assert.Equal(t, recs, got)
}

func TestWrite_ReplacesExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "records.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("old\n"), 0o644))

	require.NoError(t, Write(path, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, data)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file left behind")
}

func TestWrite_MissingDirectory(t *testing.T) {
	err := Write(filepath.Join(t.TempDir(), "nope", "records.jsonl"), nil)
	assert.Error(t, err)
}

func TestDecode_SkipsBadLines(t *testing.T) {
	input := strings.Join([]string{
		`{"id":1,"name":"Milk","quantity":2}`,
		``,
		`not json`,
		`{"id":2,"name":"","quantity":1}`,
		`{"id":3,"name":"Eggs","quantity":-4}`,
		`{"id":5,"name":"Eggs","quantity":12}`,
	}, "\n")

	var logs bytes.Buffer
	got, err := Decode(strings.NewReader(input), slog.New(slog.NewTextHandler(&logs, nil)))
	require.NoError(t, err)
	assert.Equal(t, []types.Record{
		{ID: 1, Name: "Milk", Quantity: 2},
		{ID: 5, Name: "Eggs", Quantity: 12},
	}, got)
	assert.Equal(t, 3, strings.Count(logs.String(), "level=WARN"))
}

func TestDecode_Empty(t *testing.T) {
	got, err := Decode(strings.NewReader(""), quiet)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestRead_MissingFile(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "absent.jsonl"), quiet)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
