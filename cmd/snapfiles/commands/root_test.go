package commands

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()

	var out bytes.Buffer
	root := GetRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	t.Cleanup(func() {
		root.SetArgs(nil)
		cfgFile = ""
	})

	require.NoError(t, root.Execute())
	return out.String()
}

func TestRootRegistersSubcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range GetRootCmd().Commands() {
		names[c.Name()] = true
	}

	for _, want := range []string{"start", "version", "config"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestVersionCommand(t *testing.T) {
	out := execute(t, "version")
	assert.Contains(t, out, "snapfiles dev")
	assert.Contains(t, out, "protocol V1.4")
}

func TestConfigInitAndShow(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yaml")

	out := execute(t, "config", "init", "--config", path)
	assert.Contains(t, out, path)

	out = execute(t, "config", "show", "--config", path)
	assert.Contains(t, out, "port: 7083")
	assert.Contains(t, out, "shutdown_timeout: 30s")

	out = execute(t, "config", "validate", "--config", path)
	assert.Contains(t, out, "Validation: OK")
}

func TestConfigInitRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	execute(t, "config", "init", "--config", path)

	root := GetRootCmd()
	root.SetArgs([]string{"config", "init", "--config", path})
	t.Cleanup(func() { root.SetArgs(nil) })
	assert.Error(t, root.Execute())
}
