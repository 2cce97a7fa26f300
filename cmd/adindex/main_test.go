package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func tempConfig(t *testing.T) (cfgPath, dataDir string) {
	t.Helper()
	dir := t.TempDir()
	dataDir = filepath.Join(dir, "data")
	cfgPath = filepath.Join(dir, "config.toml")
	body := fmt.Sprintf("api_url = \"http://127.0.0.1:9\"\ndata_dir = %q\n", dataDir)
	require.NoError(t, os.WriteFile(cfgPath, []byte(body), 0o600))
	return cfgPath, dataDir
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Regexp(t, `^adindex \S+\n$`, out)
}

func TestSessionShowWithoutSession(t *testing.T) {
	cfg, _ := tempConfig(t)
	out, err := execute(t, "session", "show", "--config", cfg)
	require.NoError(t, err)
	assert.Equal(t, "no stored session\n", out)
}

func TestSessionShowAndReset(t *testing.T) {
	cfg, dataDir := tempConfig(t)
	require.NoError(t, os.MkdirAll(dataDir, 0o700))
	store := "session_id = \"0123456789abcdef\"\nvapid_pub = \"BKEY\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "store.toml"), []byte(store), 0o600))

	out, err := execute(t, "session", "show", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "0123…cdef")
	assert.NotContains(t, out, "0123456789abcdef")

	out, err = execute(t, "session", "show", "--config", cfg, "--reveal")
	require.NoError(t, err)
	assert.Contains(t, out, "0123456789abcdef")

	out, err = execute(t, "session", "reset", "--config", cfg)
	require.NoError(t, err)
	assert.Equal(t, "session forgotten\n", out)

	out, err = execute(t, "session", "show", "--config", cfg)
	require.NoError(t, err)
	assert.Equal(t, "no stored session\n", out)
}

func TestLogsFiltersByLevel(t *testing.T) {
	cfg, dataDir := tempConfig(t)
	require.NoError(t, os.MkdirAll(dataDir, 0o700))
	lines := `{"level":"info","message":"session confirmed"}
{"level":"warn","message":"status refresh failed","failures":2}
`
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "client.log"), []byte(lines), 0o600))

	out, err := execute(t, "logs", "--config", cfg, "--level", "warn")
	require.NoError(t, err)
	assert.Contains(t, out, "status refresh failed")
	assert.NotContains(t, out, "session confirmed")

	out, err = execute(t, "logs", "--config", cfg, "--raw", "-n", "1")
	require.NoError(t, err)
	assert.Equal(t, `{"level":"warn","message":"status refresh failed","failures":2}`+"\n", out)
}
