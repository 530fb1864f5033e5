package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

func testConfig(dir string) *Config {
	config := DefaultConfig()
	config.BrowserProfilePath = ""
	config.DownloadDir = dir
	config.DiagnosticsDir = dir
	config.CodeFile = dir + "/code.txt"
	config.SyncClock = false
	return config
}

func noSleep(ctx context.Context, d time.Duration) error {
	return ctx.Err()
}

// screen is one state of a fake page: its URL and the selectors on it.
type screen struct {
	url     string
	present []string
}

func (s screen) has(selector string) bool {
	for _, p := range s.present {
		if p == selector {
			return true
		}
	}
	return false
}

// fakePage walks through screens. Clicking, submitting and reloading each
// move to the next screen; the last screen is sticky.
type fakePage struct {
	mu      sync.Mutex
	screens []screen
	pos     int

	actions  []string
	inputs   map[string]string
	hasCalls map[string]int
	urlCalls int
	evals    []string
	uploads  []string
	closed   int

	failOn map[string]error
}

func newFakePage(screens ...screen) *fakePage {
	return &fakePage{
		screens:  screens,
		inputs:   map[string]string{},
		hasCalls: map[string]int{},
		failOn:   map[string]error{},
	}
}

func (p *fakePage) current() screen {
	return p.screens[p.pos]
}

func (p *fakePage) advance() {
	if p.pos < len(p.screens)-1 {
		p.pos++
	}
}

func (p *fakePage) record(action string) error {
	p.actions = append(p.actions, action)
	return p.failOn[action]
}

func (p *fakePage) Navigate(url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.record("navigate:" + url)
}

func (p *fakePage) URL() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.urlCalls++
	return p.current().url, nil
}

func (p *fakePage) WaitFor(selector string, timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.record("wait:" + selector); err != nil {
		return err
	}
	if !p.current().has(selector) {
		return fmt.Errorf("element %q not found", selector)
	}
	return nil
}

func (p *fakePage) Has(selector string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hasCalls[selector]++
	return p.current().has(selector), nil
}

func (p *fakePage) Input(selector, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inputs[selector] = text
	return p.record("input:" + selector)
}

func (p *fakePage) Click(selector string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.record("click:" + selector); err != nil {
		return err
	}
	p.advance()
	return nil
}

func (p *fakePage) ClickAndWait(selector string, timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.record("submit:" + selector); err != nil {
		return err
	}
	p.advance()
	return nil
}

func (p *fakePage) Evaluate(js string, args ...interface{}) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.evals = append(p.evals, fmt.Sprint(args...))
	if err := p.record("eval"); err != nil {
		return "", err
	}
	return "true", nil
}

func (p *fakePage) Upload(selector, path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.uploads = append(p.uploads, path)
	return p.record("upload:" + selector)
}

func (p *fakePage) Reload() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.record("reload"); err != nil {
		return err
	}
	p.advance()
	return nil
}

func (p *fakePage) WaitURL(fragment string, timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !strings.Contains(p.current().url, fragment) {
		return fmt.Errorf("url %q does not contain %q", p.current().url, fragment)
	}
	return nil
}

func (p *fakePage) Screenshot(path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.record("screenshot"); err != nil {
		return err
	}
	return os.WriteFile(path, []byte("png"), 0644)
}

func (p *fakePage) HTML() (string, error) {
	return "<html><body>" + p.current().url + "</body></html>", nil
}

func (p *fakePage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed++
	return nil
}

func (p *fakePage) count(prefix string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, a := range p.actions {
		if strings.HasPrefix(a, prefix) {
			n++
		}
	}
	return n
}

type fakeDriver struct {
	page      *fakePage
	launchErr error
	launched  int
	closed    int
}

func (d *fakeDriver) Launch() error {
	d.launched++
	return d.launchErr
}

func (d *fakeDriver) NewPage(ctx context.Context) (Page, error) {
	return d.page, nil
}

func (d *fakeDriver) Alive() bool {
	return true
}

func (d *fakeDriver) Close() error {
	d.closed++
	return nil
}

type fakeCodeSource struct {
	code      string
	err       error
	calls     int
	passwords []string
}

func (s *fakeCodeSource) FetchCode(ctx context.Context, email, password string) (string, error) {
	s.calls++
	s.passwords = append(s.passwords, password)
	return s.code, s.err
}

type fixedClock time.Time

func (c fixedClock) Now() time.Time {
	return time.Time(c)
}
