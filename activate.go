package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Activator runs one license acquisition from browser launch to the
// downloaded license file.
type Activator struct {
	config    *Config
	log       *logrus.Entry
	newDriver func(*Config, *logrus.Entry) Driver
	clock     *TimeSync
	auth      *Authenticator
	flow      *LicenseFlow
	watcher   *ArtifactWatcher
}

func NewActivator(config *Config, log *logrus.Entry) *Activator {
	clock := NewTimeSync(config.ClockSyncHosts, log)
	return &Activator{
		config:    config,
		log:       log,
		newDriver: newRodDriver,
		clock:     clock,
		auth:      NewAuthenticator(config, NewCodeFetcher(config, log), clock, log),
		flow:      NewLicenseFlow(config, log),
		watcher:   NewArtifactWatcher(config.DownloadDir, config.LicenseSuffix, config.artifactPollInterval()),
	}
}

// Run returns the path of the license file. On failure the page is
// captured to the diagnostics directory before the browser is closed.
func (a *Activator) Run(ctx context.Context, creds Credentials, licenseFile string) (string, error) {
	if err := creds.Validate(); err != nil {
		return "", err
	}

	if a.config.SyncClock && creds.AuthenticatorKey != "" {
		if err := a.clock.Sync(ctx); err != nil {
			a.log.WithError(err).Warn("clock sync failed, using local time for authenticator codes")
		} else {
			fmt.Printf(T("clock_synced")+"\n", a.clock.GetOffset())
		}
	}

	a.log.WithFields(logrus.Fields{
		"locale":       GetLocale(),
		"clock_synced": a.clock.IsSynced(),
		"clock_offset": a.clock.GetOffset(),
	}).Debug("activation starting")

	session := NewSession(a.newDriver(a.config, a.log), a.log)
	defer session.Close()

	runCtx, err := session.Open(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to open browser session: %w", err)
	}

	path, err := a.run(runCtx, session.Page(), creds, licenseFile)
	if err != nil {
		fmt.Println(T("capturing_diagnostics"))
		if captureErr := session.Capture(a.config.DiagnosticsDir); captureErr != nil {
			a.log.WithError(captureErr).Warn("diagnostic capture incomplete")
		}
		return "", err
	}
	return path, nil
}

func (a *Activator) run(ctx context.Context, page Page, creds Credentials, licenseFile string) (string, error) {
	if err := a.auth.Login(ctx, page, creds); err != nil {
		return "", err
	}

	if err := a.flow.Submit(ctx, page, licenseFile); err != nil {
		return "", err
	}

	fmt.Println(T("waiting_for_license"))
	path, err := a.watcher.Wait(ctx)
	if err != nil {
		return "", fmt.Errorf("license file never arrived: %w", err)
	}
	return path, nil
}
