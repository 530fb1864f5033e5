package main

import (
	"strings"
	"time"

	"github.com/pquerna/otp/totp"
)

// CodeGenerator derives a one-time code from a shared secret at a moment.
type CodeGenerator func(secret string, at time.Time) (string, error)

// GenerateTOTP computes the six digit RFC 6238 code for a base32 secret.
// Authenticator apps display secrets in lowercase groups of four, so
// spacing and case are normalised first.
func GenerateTOTP(secret string, at time.Time) (string, error) {
	secret = strings.ToUpper(strings.ReplaceAll(secret, " ", ""))
	return totp.GenerateCode(secret, at)
}
