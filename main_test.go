package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetUserDataDir(t *testing.T) {
	dir := getUserDataDir()

	require.NotEmpty(t, dir)
	if dir != "./ulfetch-data" {
		assert.Contains(t, dir, ".ulfetch")
	}
}

func TestStartCommandFlags(t *testing.T) {
	root := newRootCmd()

	start, _, err := root.Find([]string{"start"})
	require.NoError(t, err)
	assert.Equal(t, "start", start.Name())

	for _, name := range []string{"config", "email", "password", "alf", "code", "email-password", "authenticator-key", "headless", "debug", "timeout"} {
		assert.NotNil(t, start.Flags().Lookup(name), "flag --%s", name)
	}
}

func TestCredentialsFromEnvironment(t *testing.T) {
	t.Setenv(envEmail, "env@example.com")
	t.Setenv(envPassword, "env-pass")
	t.Setenv(envAuthenticatorKey, secret)
	t.Setenv(envVerificationCode, "")
	t.Setenv(envEmailPassword, "")

	opts := &startOptions{password: "flag-pass"}
	creds := opts.credentials()

	assert.Equal(t, "env@example.com", creds.Email)
	assert.Equal(t, "flag-pass", creds.Password, "flags win over the environment")
	assert.Equal(t, secret, creds.AuthenticatorKey)
	assert.Empty(t, creds.VerificationCode)
	assert.Equal(t, "flag-pass", creds.mailboxPassword())
}

func TestCredentialsValidate(t *testing.T) {
	assert.Error(t, Credentials{Password: "x"}.Validate())
	assert.Error(t, Credentials{Email: "x"}.Validate())
	assert.NoError(t, Credentials{Email: "x", Password: "y"}.Validate())
}

func TestStartRequiresLicenseRequest(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv(envLicenseRequest, "")

	root := newRootCmd()
	root.SetArgs([]string{"start", "--config", dir + "/config.yaml", "--email", "a", "--password", "b"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--alf")
}

func TestNewLoggerLevels(t *testing.T) {
	var out strings.Builder

	log := NewLogger(false, &out)
	log.Debug("hidden")
	log.Info("shown")
	assert.NotContains(t, out.String(), "hidden")
	assert.Contains(t, out.String(), "shown")
	assert.Contains(t, out.String(), "run_id=")

	out.Reset()
	NewLogger(true, &out).Debug("visible")
	assert.Contains(t, out.String(), "visible")
}

func TestExecuteReportsErrorOnce(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv(envLicenseRequest, "")

	var stderr strings.Builder
	root := newRootCmd()
	root.SetErr(&stderr)
	root.SetArgs([]string{"start", "--config", dir + "/config.yaml", "--email", "a", "--password", "b"})

	assert.Equal(t, 1, execute(root))
	assert.Equal(t, 1, strings.Count(stderr.String(), "--alf"))
	assert.True(t, strings.HasPrefix(stderr.String(), "Error: "))
}
