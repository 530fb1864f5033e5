package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/sirupsen/logrus"
)

// Driver owns the browser process.
type Driver interface {
	Launch() error
	NewPage(ctx context.Context) (Page, error)
	Alive() bool
	Close() error
}

// Page is the browser tab the activation flow drives. Navigation and
// element calls are bound to the context the page was created with.
type Page interface {
	Navigate(url string) error
	URL() (string, error)
	WaitFor(selector string, timeout time.Duration) error
	Has(selector string) (bool, error)
	Input(selector, text string) error
	Click(selector string) error
	// ClickAndWait clicks and waits for the navigation it triggers.
	ClickAndWait(selector string, timeout time.Duration) error
	Evaluate(js string, args ...interface{}) (string, error)
	Upload(selector, path string) error
	Reload() error
	// WaitURL waits until the current URL contains fragment.
	WaitURL(fragment string, timeout time.Duration) error
	Screenshot(path string) error
	HTML() (string, error)
	Close() error
}

type rodDriver struct {
	config   *Config
	log      *logrus.Entry
	launcher *launcher.Launcher
	browser  *rod.Browser
	started  bool
}

func newRodDriver(config *Config, log *logrus.Entry) Driver {
	return &rodDriver{
		config: config,
		log:    log.WithField("component", "browser"),
	}
}

func (d *rodDriver) Launch() error {
	fmt.Println(T("browser_launching"))

	// Disable leakless mode on Windows to prevent deadlock
	// See: https://github.com/go-rod/rod/issues/853
	useLeakless := runtime.GOOS != "windows"

	chromePath, chromeExists := launcher.LookPath()

	d.launcher = launcher.New().
		Leakless(useLeakless).
		Headless(d.config.Headless)

	// Must be set before Bin() to be applied
	if d.config.BrowserProfilePath != "" {
		d.launcher = d.launcher.UserDataDir(d.config.BrowserProfilePath)
		d.log.WithField("profile", d.config.BrowserProfilePath).Debug("browser profile set")
	}

	if chromeExists {
		d.launcher = d.launcher.Bin(chromePath)
		d.log.WithField("bin", chromePath).Debug("using system chrome")
	} else {
		fmt.Println(T("browser_chrome_not_found"))
	}

	url, err := d.launcher.Launch()
	if err != nil {
		errMsg := err.Error()
		if strings.Contains(errMsg, "ProcessSingleton") || strings.Contains(errMsg, "SingletonLock") {
			fmt.Println(T("error_profile_in_use"))
			return fmt.Errorf("browser profile %s is locked by another browser: %w", d.config.BrowserProfilePath, err)
		}
		return fmt.Errorf("failed to launch browser: %w", err)
	}
	d.started = true

	d.browser = rod.New().ControlURL(url)
	if err := d.browser.Connect(); err != nil {
		return fmt.Errorf("failed to connect to browser: %w", err)
	}

	downloadDir, err := filepath.Abs(d.config.DownloadDir)
	if err != nil {
		return fmt.Errorf("failed to resolve download dir: %w", err)
	}

	err = proto.BrowserSetDownloadBehavior{
		Behavior:      proto.BrowserSetDownloadBehaviorBehaviorAllow,
		DownloadPath:  downloadDir,
		EventsEnabled: true,
	}.Call(d.browser)
	if err != nil {
		return fmt.Errorf("failed to set download directory: %w", err)
	}
	d.log.WithField("dir", downloadDir).Debug("downloads redirected")

	fmt.Println(T("browser_launched"))
	return nil
}

func (d *rodDriver) NewPage(ctx context.Context) (Page, error) {
	page, err := stealth.Page(d.browser)
	if err != nil {
		return nil, fmt.Errorf("failed to create stealth page: %w", err)
	}

	if d.config.ViewportWidth > 0 && d.config.ViewportHeight > 0 {
		err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             d.config.ViewportWidth,
			Height:            d.config.ViewportHeight,
			DeviceScaleFactor: 1,
		})
		if err != nil {
			d.log.WithError(err).Debug("failed to set viewport")
		}
	}

	return &rodPage{
		page:    page.Context(ctx),
		base:    page,
		timeout: d.config.elementTimeout(),
	}, nil
}

func (d *rodDriver) Alive() bool {
	if d.browser == nil {
		return false
	}

	if _, err := d.browser.Version(); err != nil {
		d.log.WithError(err).Debug("browser version check failed")
		return false
	}
	return true
}

func (d *rodDriver) Close() error {
	var err error
	if d.browser != nil {
		err = d.browser.Close()
	}
	if d.launcher == nil || !d.started {
		return err
	}

	// Cleanup removes the user data dir, which is only safe for the
	// launcher's throwaway default. A configured profile keeps the session.
	if d.config.BrowserProfilePath != "" {
		d.launcher.Kill()
		return err
	}
	d.launcher.Cleanup()
	return err
}

type rodPage struct {
	page *rod.Page
	// base is not bound to the run context so diagnostics can still be
	// captured after the run was cancelled.
	base    *rod.Page
	timeout time.Duration
}

const captureTimeout = 10 * time.Second

func (p *rodPage) element(selector string) (*rod.Element, error) {
	el, err := p.page.Timeout(p.timeout).Element(selector)
	if err != nil {
		return nil, fmt.Errorf("element %q: %w", selector, err)
	}
	return el.CancelTimeout(), nil
}

func (p *rodPage) Navigate(url string) error {
	if err := p.page.Navigate(url); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	if err := p.page.WaitLoad(); err != nil {
		return fmt.Errorf("page failed to load: %w", err)
	}
	return nil
}

func (p *rodPage) URL() (string, error) {
	info, err := p.page.Info()
	if err != nil {
		return "", err
	}
	return info.URL, nil
}

func (p *rodPage) WaitFor(selector string, timeout time.Duration) error {
	page := p.page.Timeout(timeout)
	defer page.CancelTimeout()

	if _, err := page.Element(selector); err != nil {
		return fmt.Errorf("element %q: %w", selector, err)
	}
	return nil
}

func (p *rodPage) Has(selector string) (bool, error) {
	has, _, err := p.page.Has(selector)
	return has, err
}

func (p *rodPage) Input(selector, text string) error {
	el, err := p.element(selector)
	if err != nil {
		return err
	}
	if err := el.SelectAllText(); err != nil {
		return err
	}
	return el.Input(text)
}

func (p *rodPage) Click(selector string) error {
	el, err := p.element(selector)
	if err != nil {
		return err
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

func (p *rodPage) ClickAndWait(selector string, timeout time.Duration) error {
	el, err := p.element(selector)
	if err != nil {
		return err
	}

	page := p.page.Timeout(timeout)
	defer page.CancelTimeout()

	wait := page.WaitNavigation(proto.PageLifecycleEventNameLoad)
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return err
	}
	if err := awaitNavigation(page.GetContext(), wait); err != nil {
		return fmt.Errorf("no navigation after clicking %q: %w", selector, err)
	}

	return p.page.WaitLoad()
}

// awaitNavigation runs wait and reports whether it returned because ctx
// expired rather than because the page navigated.
func awaitNavigation(ctx context.Context, wait func()) error {
	wait()
	return ctx.Err()
}

func (p *rodPage) Evaluate(js string, args ...interface{}) (string, error) {
	res, err := p.page.Eval(js, args...)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

func (p *rodPage) Upload(selector, path string) error {
	el, err := p.element(selector)
	if err != nil {
		return err
	}
	return el.SetFiles([]string{path})
}

func (p *rodPage) Reload() error {
	if err := p.page.Reload(); err != nil {
		return err
	}
	return p.page.WaitLoad()
}

func (p *rodPage) WaitURL(fragment string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		url, err := p.URL()
		if err == nil && strings.Contains(url, fragment) {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("url did not reach %q within %v (at %q)", fragment, timeout, url)
		}
		if err := sleepContext(p.page.GetContext(), 200*time.Millisecond); err != nil {
			return err
		}
	}
}

func (p *rodPage) Screenshot(path string) error {
	data, err := p.base.Timeout(captureTimeout).Screenshot(true, nil)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (p *rodPage) HTML() (string, error) {
	return p.base.Timeout(captureTimeout).HTML()
}

func (p *rodPage) Close() error {
	return p.base.Close()
}
