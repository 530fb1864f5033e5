package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// SubState is what the sign-in page currently asks for.
type SubState int

const (
	StateUnknown SubState = iota
	StateAuthenticated
	StateTermsPending
	StateEmailCodePending
	StateAuthenticatorPending
	StateCodeExpired
)

func (s SubState) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	case StateTermsPending:
		return "terms_pending"
	case StateEmailCodePending:
		return "email_code_pending"
	case StateAuthenticatorPending:
		return "authenticator_pending"
	case StateCodeExpired:
		return "code_expired"
	default:
		return "unknown"
	}
}

// PageSnapshot records which sign-in markers a page showed at one moment.
type PageSnapshot struct {
	URL                string
	TermsPrompt        bool
	EmailCodeInput     bool
	AuthenticatorInput bool
	CodeExpired        bool
}

// Classify maps a snapshot to a sub-state. Markers are checked in a fixed
// priority order so a page showing several resolves the same way every time.
func Classify(snap PageSnapshot, authenticatedFragment string) SubState {
	switch {
	case authenticatedFragment != "" && strings.Contains(snap.URL, authenticatedFragment):
		return StateAuthenticated
	case snap.TermsPrompt:
		return StateTermsPending
	case snap.EmailCodeInput:
		return StateEmailCodePending
	case snap.AuthenticatorInput:
		return StateAuthenticatorPending
	case snap.CodeExpired:
		return StateCodeExpired
	default:
		return StateUnknown
	}
}

type stateHandler func(ctx context.Context, page Page, creds Credentials) error

// Authenticator signs in to a Unity ID, resolving terms prompts, email and
// authenticator codes and expired codes in whatever order they appear.
type Authenticator struct {
	config   *Config
	log      *logrus.Entry
	codes    CodeSource
	clock    Clock
	otp      CodeGenerator
	sleep    func(ctx context.Context, d time.Duration) error
	handlers map[SubState]stateHandler
}

func NewAuthenticator(config *Config, codes CodeSource, clock Clock, log *logrus.Entry) *Authenticator {
	a := &Authenticator{
		config: config,
		log:    log.WithField("component", "login"),
		codes:  codes,
		clock:  clock,
		otp:    GenerateTOTP,
		sleep:  sleepContext,
	}
	a.handlers = map[SubState]stateHandler{
		StateTermsPending:         a.acceptTerms,
		StateEmailCodePending:     a.submitEmailCode,
		StateAuthenticatorPending: a.submitAuthenticatorCode,
		StateCodeExpired:          a.reloadExpired,
		StateUnknown:              a.waitForChange,
	}
	return a
}

// Login returns nil once the page is inside the account area. Every
// failure is an *AuthError.
func (a *Authenticator) Login(ctx context.Context, page Page, creds Credentials) error {
	sel := a.config.Selectors

	fmt.Println(T("login_opening"))
	if err := page.Navigate(a.config.LoginURL); err != nil {
		return &AuthError{Reason: "failed to open sign-in page", Err: err}
	}

	// A persistent profile may still hold a live session.
	if url, err := page.URL(); err == nil && strings.Contains(url, a.config.AuthenticatedURLFragment) {
		fmt.Println(T("login_session_reused"))
		return nil
	}

	if err := page.WaitFor(sel.EmailInput, a.config.elementTimeout()); err != nil {
		return &AuthError{Reason: "sign-in form not found", Err: err}
	}
	if err := page.Input(sel.EmailInput, creds.Email); err != nil {
		return &AuthError{Reason: "failed to enter email", Err: err}
	}
	if err := page.Input(sel.PasswordInput, creds.Password); err != nil {
		return &AuthError{Reason: "failed to enter password", Err: err}
	}
	if err := page.ClickAndWait(sel.LoginSubmit, a.config.navigationTimeout()); err != nil {
		return &AuthError{Reason: "failed to submit credentials", Err: err}
	}
	fmt.Println(T("login_credentials_submitted"))

	for attempt := 0; attempt <= a.config.MaxLoginRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return &AuthError{Reason: "interrupted", Err: err}
		}

		snap, err := a.snapshot(page)
		if err != nil {
			return &AuthError{Reason: "failed to inspect sign-in page", Err: err}
		}

		state := Classify(snap, a.config.AuthenticatedURLFragment)
		a.log.WithFields(logrus.Fields{
			"attempt": attempt,
			"state":   state.String(),
			"url":     snap.URL,
		}).Debug("sign-in page classified")

		if state == StateAuthenticated {
			fmt.Println(T("login_success"))
			return nil
		}

		if err := a.handlers[state](ctx, page, creds); err != nil {
			var authErr *AuthError
			if errors.As(err, &authErr) {
				return authErr
			}
			return &AuthError{Reason: state.String() + " step failed", Err: err}
		}
	}

	return &AuthError{Reason: "unable to complete sign-in"}
}

// snapshot probes the markers only when the URL is not already conclusive.
func (a *Authenticator) snapshot(page Page) (PageSnapshot, error) {
	var snap PageSnapshot

	url, err := page.URL()
	if err != nil {
		return snap, err
	}
	snap.URL = url
	if strings.Contains(url, a.config.AuthenticatedURLFragment) {
		return snap, nil
	}

	sel := a.config.Selectors
	probes := []struct {
		selector string
		found    *bool
	}{
		{sel.TermsAccept, &snap.TermsPrompt},
		{sel.EmailCodeInput, &snap.EmailCodeInput},
		{sel.AuthenticatorInput, &snap.AuthenticatorInput},
		{sel.CodeExpired, &snap.CodeExpired},
	}
	for _, probe := range probes {
		has, err := page.Has(probe.selector)
		if err != nil {
			return snap, err
		}
		*probe.found = has
	}
	return snap, nil
}

func (a *Authenticator) acceptTerms(ctx context.Context, page Page, _ Credentials) error {
	fmt.Println(T("login_accepting_terms"))
	if err := page.Click(a.config.Selectors.TermsAccept); err != nil {
		return err
	}
	return a.sleep(ctx, a.config.settleDelay())
}

func (a *Authenticator) submitEmailCode(ctx context.Context, page Page, creds Credentials) error {
	sel := a.config.Selectors

	code := creds.VerificationCode
	if code == "" {
		fmt.Println(T("login_fetching_email_code"))
		fetched, err := a.codes.FetchCode(ctx, creds.Email, creds.mailboxPassword())
		if err != nil {
			return &AuthError{Reason: "no email verification code", Err: err}
		}
		code = fetched
	}

	fmt.Println(T("login_submitting_email_code"))
	if err := page.Input(sel.EmailCodeInput, code); err != nil {
		return err
	}
	return page.ClickAndWait(sel.EmailCodeSubmit, a.config.navigationTimeout())
}

func (a *Authenticator) submitAuthenticatorCode(_ context.Context, page Page, creds Credentials) error {
	sel := a.config.Selectors

	if creds.AuthenticatorKey == "" {
		return &AuthError{Reason: "2FA required, no authenticator key"}
	}

	code := creds.VerificationCode
	if code == "" {
		generated, err := a.otp(creds.AuthenticatorKey, a.clock.Now())
		if err != nil {
			return &AuthError{Reason: "invalid authenticator key", Err: err}
		}
		code = generated
	}

	fmt.Println(T("login_submitting_authenticator_code"))
	if err := page.Input(sel.AuthenticatorInput, code); err != nil {
		return err
	}
	return page.ClickAndWait(sel.AuthenticatorSubmit, a.config.navigationTimeout())
}

func (a *Authenticator) reloadExpired(_ context.Context, page Page, _ Credentials) error {
	fmt.Println(T("login_code_expired"))
	return page.Reload()
}

// waitForChange gives a slow page time to render its next prompt. The
// attempt bound in Login stops a page that never changes.
func (a *Authenticator) waitForChange(ctx context.Context, _ Page, _ Credentials) error {
	a.log.Debug("no sign-in marker found, waiting")
	return a.sleep(ctx, a.config.settleDelay())
}
