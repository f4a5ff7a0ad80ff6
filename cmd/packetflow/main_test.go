package main

import (
	"bytes"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate runs the command in an empty directory with no config to find
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("PACKETFLOW_CONFIG", "")
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	t.Setenv("HOME", dir)
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestRunHeadless(t *testing.T) {
	isolate(t)

	out, err := execute(t, "run", "--frames", "300", "--seed", "7")
	require.NoError(t, err)
	assert.Contains(t, out, "frames:     300")
	assert.Contains(t, out, "spawned:    ")
	assert.Contains(t, out, "cwnd:       ")
	assert.Contains(t, out, "network:    modern")
	assert.NotContains(t, out, "recorded:")
}

func TestRunStartsOnNamedNetwork(t *testing.T) {
	isolate(t)

	out, err := execute(t, "run", "--frames", "60", "--seed", "7", "--network", "osi")
	require.NoError(t, err)
	assert.Contains(t, out, "network:    osi")

	_, err = execute(t, "run", "--frames", "60", "--network", "arpanet")
	assert.Error(t, err)
}

func TestRunRecordsDeliveries(t *testing.T) {
	dir := isolate(t)
	db := filepath.Join(dir, "deliveries.db")

	out, err := execute(t, "run", "--frames", "600", "--seed", "7", "--record", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "recorded:")
	assert.Contains(t, out, "mean 2.00 hops")
	assert.FileExists(t, db)
}

func TestRunRejectsZeroFrames(t *testing.T) {
	isolate(t)

	_, err := execute(t, "run", "--frames", "0")
	assert.Error(t, err)
}

func TestTopologyRoute(t *testing.T) {
	isolate(t)

	out, err := execute(t, "topology", "route", "A", "D")
	require.NoError(t, err)
	assert.Equal(t, "A -> E -> D\n", out)

	_, err = execute(t, "topology", "route", "A", "Z")
	assert.Error(t, err)
}

func TestTopologyExportAndValidate(t *testing.T) {
	dir := isolate(t)

	out, err := execute(t, "topology", "export", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"hub": "E"`)

	path := filepath.Join(dir, "diagram.yaml")
	_, err = execute(t, "topology", "export", "-o", path)
	require.NoError(t, err)

	out, err = execute(t, "topology", "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "ok (hub E, 5 nodes, 6 edges)")

	out, err = execute(t, "topology", "route", "--file", path, "B", "C")
	require.NoError(t, err)
	assert.Equal(t, "B -> E -> C\n", out)
}

func TestTopologyValidateRejectsBadFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("hub: X\nnodes: []\nedges: []\n"), 0644))

	_, err := execute(t, "topology", "validate", path)
	assert.Error(t, err)
}

func TestConfigInitAndShow(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "conf", "packetflow.yaml")

	out, err := execute(t, "config", "init", "--path", path)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+path)

	_, err = execute(t, "config", "init", "--path", path)
	assert.Error(t, err, "init must not overwrite without --force")

	_, err = execute(t, "config", "init", "--path", path, "--force")
	assert.NoError(t, err)

	out, err = execute(t, "--config", path, "config", "show")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "# "+path))
	assert.Contains(t, out, "fps: 60")
}

func TestConfigShowDefaults(t *testing.T) {
	isolate(t)

	out, err := execute(t, "config", "show")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "# built-in defaults"))
}

func TestInvalidLogLevel(t *testing.T) {
	isolate(t)

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--log-level", "loud", "config", "show"})
	assert.Error(t, cmd.Execute())
}

func TestViewerURL(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{"127.0.0.1:3000", "http://127.0.0.1:3000/"},
		{"0.0.0.0:8080", "http://localhost:8080/"},
		{"[::]:3000", "http://localhost:3000/"},
	}

	for _, tt := range tests {
		addr, err := net.ResolveTCPAddr("tcp", tt.addr)
		require.NoError(t, err)
		assert.Equal(t, tt.want, viewerURL(addr), tt.addr)
	}
}
