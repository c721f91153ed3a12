// Package plugins runs external authburst-<command> binaries for commands
// that are not built in, the way kubectl and git do.
package plugins

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Prefix is prepended to a command name to form the plugin binary name.
const Prefix = "authburst-"

// ErrPluginNotFound is returned when no plugin binary can be located.
var ErrPluginNotFound = errors.New("plugin not found")

// Locator finds plugin binaries. Empty fields are skipped.
type Locator struct {
	// ExecDir is the directory holding the authburst binary.
	ExecDir string

	// PluginDir is the per-user plugin directory.
	PluginDir string

	// SearchPath enables a PATH lookup as the last resort.
	SearchPath bool
}

// DefaultLocator searches next to the running binary, then
// ~/.authburst/plugins, then PATH.
func DefaultLocator() *Locator {
	l := &Locator{SearchPath: true}
	if execPath, err := os.Executable(); err == nil {
		l.ExecDir = filepath.Dir(execPath)
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		l.PluginDir = filepath.Join(homeDir, ".authburst", "plugins")
	}
	return l
}

// Find returns the full path of the plugin binary for command.
func (l *Locator) Find(command string) (string, error) {
	if command == "" || strings.ContainsAny(command, `/\`) {
		return "", ErrPluginNotFound
	}
	name := Prefix + command

	for _, dir := range []string{l.ExecDir, l.PluginDir} {
		if dir == "" {
			continue
		}
		if candidate := filepath.Join(dir, name); isExecutable(candidate) {
			return candidate, nil
		}
	}

	if l.SearchPath {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}

	return "", ErrPluginNotFound
}

// FindPlugin searches the default locations for a plugin.
func FindPlugin(command string) (string, error) {
	return DefaultLocator().Find(command)
}

// Execute runs a plugin with the given arguments, sharing this process's
// standard streams, and returns the plugin's exit code.
func Execute(pluginPath string, args []string) int {
	cmd := exec.Command(pluginPath, args...) // #nosec G204 -- plugin path comes from Locator
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode()
		}
		fmt.Fprintf(os.Stderr, "Error executing plugin: %v\n", err)
		return 2
	}

	return 0
}

// FormatNotFoundError returns the message shown for an unknown command.
func FormatNotFoundError(command string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "unknown command %q for \"authburst\"\n", command)

	sb.WriteString("\nIf this is a plugin, install the binary as one of:\n")

	fmt.Fprintf(&sb, "  - %s%s in the same directory as authburst\n", Prefix, command)
	fmt.Fprintf(&sb, "  - ~/.authburst/plugins/%s%s\n", Prefix, command)
	fmt.Fprintf(&sb, "  - %s%s anywhere in your PATH\n", Prefix, command)

	sb.WriteString("\nRun 'authburst --help' for usage.")

	return sb.String()
}

// isExecutable checks if a regular file exists with any execute bit set.
func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular() && info.Mode()&0o111 != 0
}
