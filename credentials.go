package main

import (
	"fmt"
	"os"
)

// Environment variables consulted when a flag is left empty. They may also
// come from a .env file in the working directory.
const (
	envEmail            = "UNITY_EMAIL"
	envPassword         = "UNITY_PASSWORD"
	envLicenseRequest   = "UNITY_LICENSE_REQUEST"
	envVerificationCode = "UNITY_VERIFY_CODE"
	envEmailPassword    = "UNITY_EMAIL_PASSWORD"
	envAuthenticatorKey = "UNITY_AUTHENTICATOR_KEY"
)

// Credentials are fixed for the whole run.
type Credentials struct {
	Email    string
	Password string

	// VerificationCode, when set, is typed into whichever code prompt
	// appears instead of fetching or generating one.
	VerificationCode string

	// EmailPassword is the mailbox password when it differs from the
	// Unity account password.
	EmailPassword string

	// AuthenticatorKey is the base32 shared secret of the authenticator app.
	AuthenticatorKey string
}

func (c Credentials) Validate() error {
	if c.Email == "" {
		return fmt.Errorf("email is required (flag --email or %s)", envEmail)
	}
	if c.Password == "" {
		return fmt.Errorf("password is required (flag --password or %s)", envPassword)
	}
	return nil
}

func (c Credentials) mailboxPassword() string {
	if c.EmailPassword != "" {
		return c.EmailPassword
	}
	return c.Password
}

func envOr(value, key string) string {
	if value != "" {
		return value
	}
	return os.Getenv(key)
}
