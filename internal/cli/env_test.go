package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

// testEnv is an isolated config and data directory pair.
type testEnv struct {
	t         *testing.T
	ConfigDir string
	DataDir   string
}

// cmdResult holds the outcome of one CLI invocation.
type cmdResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	for _, key := range []string{
		"PANTRY_BACKEND", "PANTRY_OUTPUT", "PANTRY_LOG_LEVEL",
		"PANTRY_DATA_DIR", "PANTRY_CONFIG_DIR", "PANTRY_DYNAMODB_TABLE",
	} {
		t.Setenv(key, "")
	}

	dir := t.TempDir()
	env := &testEnv{
		t:         t,
		ConfigDir: filepath.Join(dir, "config"),
		DataDir:   filepath.Join(dir, "data"),
	}
	require.NoError(t, os.MkdirAll(env.ConfigDir, 0o755))
	cfg := "backend: sqlite\ndata_dir: " + env.DataDir + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(env.ConfigDir, "config.yaml"), []byte(cfg), 0o644))
	return env
}

func (e *testEnv) run(args ...string) cmdResult {
	return e.runWithInput("", args...)
}

func (e *testEnv) runWithInput(input string, args ...string) cmdResult {
	e.t.Helper()
	all := append([]string{"--config-dir", e.ConfigDir}, args...)

	var stdout, stderr bytes.Buffer
	code := Execute(context.Background(), all, strings.NewReader(input), &stdout, &stderr)
	return cmdResult{Stdout: stdout.String(), Stderr: stderr.String(), ExitCode: code}
}

func (e *testEnv) mustRun(args ...string) cmdResult {
	e.t.Helper()
	res := e.run(args...)
	require.Equal(e.t, ExitSuccess, res.ExitCode, "stderr: %s", res.Stderr)
	return res
}

func parseRecords(t *testing.T, out string) []types.Record {
	t.Helper()
	var recs []types.Record
	require.NoError(t, json.Unmarshal([]byte(out), &recs), "output: %s", out)
	return recs
}
