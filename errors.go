package main

import "errors"

// ErrCodeUnavailable is returned by the mailbox fetcher once every attempt
// to read an emailed verification code has failed.
var ErrCodeUnavailable = errors.New("verification code unavailable")

// AuthError means sign-in could not be completed. It is never retried.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return "sign-in failed: " + e.Reason + ": " + e.Err.Error()
	}
	return "sign-in failed: " + e.Reason
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// FlowError reports the license submission step that failed.
type FlowError struct {
	Step string
	Err  error
}

func (e *FlowError) Error() string {
	return "license submission failed at " + e.Step + ": " + e.Err.Error()
}

func (e *FlowError) Unwrap() error {
	return e.Err
}
