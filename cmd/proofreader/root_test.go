package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/proofreader"
	"github.com/aretw0/proofreader/internal/config"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "proofreader version "+proofreader.Version+"\n", out.String())
}

func TestLoadConfig_FlagsOverrideFile(t *testing.T) {
	t.Setenv(config.EnvRedisURL, "")
	path := filepath.Join(t.TempDir(), "proofreader.yaml")
	require.NoError(t, os.WriteFile(path, []byte("provider:\n  name: gemini\nlog:\n  level: info\n"), 0o644))

	cmd := &cobra.Command{Use: "test"}
	addConfigFlags(cmd.Flags())
	require.NoError(t, cmd.ParseFlags([]string{
		"--config", path,
		"--provider", "ollama",
		"--model", "llama3.2",
		"--log-level", "debug",
		"--store", "file",
	}))

	cfg, err := loadConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, "ollama", cfg.Provider.Name)
	assert.Equal(t, "llama3.2", cfg.Provider.Model)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, config.StoreFile, cfg.Store.Type)
}

func TestLoadConfig_InvalidOverride(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	addConfigFlags(cmd.Flags())
	require.NoError(t, cmd.ParseFlags([]string{"--store", "sqlite"}))

	_, err := loadConfig(cmd)
	assert.ErrorContains(t, err, "store.type")
}

func TestSessionCommands_FileStore(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(t.TempDir(), "proofreader.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  type: file\n  path: "+dir+"\n"), 0o644))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	rootCmd.SetArgs([]string{"session", "ls", "--config", path})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "No sessions found.")
}
