package plugins

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePlugin(t *testing.T, dir, command string) string {
	t.Helper()
	path := filepath.Join(dir, Prefix+command)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\nexit 3\n"), 0o755))
	return path
}

func TestLocator_Find_NotFound(t *testing.T) {
	l := &Locator{ExecDir: t.TempDir(), PluginDir: t.TempDir()}

	_, err := l.Find("nonexistent-plugin-xyz")
	assert.ErrorIs(t, err, ErrPluginNotFound)
}

func TestLocator_Find_Order(t *testing.T) {
	execDir, pluginDir := t.TempDir(), t.TempDir()
	l := &Locator{ExecDir: execDir, PluginDir: pluginDir}

	inPluginDir := writePlugin(t, pluginDir, "follow")
	found, err := l.Find("follow")
	require.NoError(t, err)
	assert.Equal(t, inPluginDir, found)

	inExecDir := writePlugin(t, execDir, "follow")
	found, err = l.Find("follow")
	require.NoError(t, err)
	assert.Equal(t, inExecDir, found)
}

func TestLocator_Find_SearchPath(t *testing.T) {
	pathDir := t.TempDir()
	want := writePlugin(t, pathDir, "pathplugin")
	t.Setenv("PATH", pathDir)

	found, err := (&Locator{SearchPath: true}).Find("pathplugin")
	require.NoError(t, err)
	assert.Equal(t, want, found)

	_, err = (&Locator{}).Find("pathplugin")
	assert.ErrorIs(t, err, ErrPluginNotFound)
}

func TestLocator_Find_RejectsPaths(t *testing.T) {
	dir := t.TempDir()
	l := &Locator{ExecDir: dir}

	for _, cmd := range []string{"", "../x", "a/b"} {
		_, err := l.Find(cmd)
		assert.ErrorIs(t, err, ErrPluginNotFound, cmd)
	}
}

func TestExecute_ExitCode(t *testing.T) {
	path := writePlugin(t, t.TempDir(), "exit")

	assert.Equal(t, 3, Execute(path, nil))
}

func TestFormatNotFoundError(t *testing.T) {
	msg := FormatNotFoundError("export")

	assert.Contains(t, msg, `unknown command "export"`)
	assert.Contains(t, msg, "If this is a plugin")
	assert.Contains(t, msg, "authburst-export in the same directory")
	assert.Contains(t, msg, "~/.authburst/plugins/authburst-export")
	assert.NotContains(t, msg, "provided by a plugin")
}
