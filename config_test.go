package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	require.NotNil(t, config)

	assert.Equal(t, 5, config.MaxLoginRetries)
	assert.Equal(t, 9, config.MailboxRetries)
	assert.Equal(t, 30, config.MailboxRetryDelay)
	assert.Equal(t, time.Second, config.artifactPollInterval())
	assert.Equal(t, ".ulf", config.LicenseSuffix)
	assert.NotEmpty(t, config.Selectors.EmailInput)
	assert.NotEmpty(t, config.Selectors.AuthenticatorInput)
	assert.NoError(t, config.Validate())
}

func TestConfigSaveAndLoad(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "test-config.yaml")

	config := DefaultConfig()
	config.BrowserProfilePath = filepath.Join(tempDir, "profile")
	config.DownloadDir = filepath.Join(tempDir, "downloads")
	config.DiagnosticsDir = filepath.Join(tempDir, "diagnostics")
	config.MaxLoginRetries = 3
	config.Headless = false
	config.MailboxArgs = []string{"-y", "unity-verify-code"}

	require.NoError(t, config.Save(configPath))

	loaded, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, 3, loaded.MaxLoginRetries)
	assert.False(t, loaded.Headless)
	assert.Equal(t, []string{"-y", "unity-verify-code"}, loaded.MailboxArgs)

	for _, dir := range []string{config.BrowserProfilePath, config.DownloadDir, config.DiagnosticsDir} {
		assert.DirExists(t, dir)
	}
}

func TestLoadConfigCreatesDefaultIfMissing(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "new-config.yaml")

	// Keep the test out of the real home directory.
	t.Setenv("HOME", tempDir)

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.FileExists(t, configPath)
	assert.Equal(t, DefaultConfig().LoginURL, config.LoginURL)
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "invalid-config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("invalid: yaml: content: [unclosed"), 0644))

	_, err := LoadConfig(configPath)
	assert.Error(t, err)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "bad.yaml")

	content := "login_url: \"\"\ndownload_dir: " + tempDir + "\n"
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))

	_, err := LoadConfig(configPath)
	assert.Error(t, err, "empty login_url")
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing authenticated fragment", func(c *Config) { c.AuthenticatedURLFragment = "" }},
		{"missing manual url", func(c *Config) { c.ManualURL = "" }},
		{"missing suffix", func(c *Config) { c.LicenseSuffix = "" }},
		{"missing mailbox command", func(c *Config) { c.MailboxCommand = "" }},
		{"negative login retries", func(c *Config) { c.MaxLoginRetries = -1 }},
		{"negative mailbox retries", func(c *Config) { c.MailboxRetries = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			assert.Error(t, config.Validate())
		})
	}
}
