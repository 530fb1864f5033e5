package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	screenshotFile = "error.png"
	markupFile     = "error.html"
)

// Session is the single browser session of a run. Close releases it
// exactly once no matter how many times it is called.
type Session struct {
	driver    Driver
	page      Page
	log       *logrus.Entry
	ctx       context.Context
	cancel    context.CancelFunc
	stopChan  chan struct{}
	closeOnce sync.Once

	watchInterval time.Duration
}

func NewSession(driver Driver, log *logrus.Entry) *Session {
	return &Session{
		driver:        driver,
		log:           log.WithField("component", "session"),
		stopChan:      make(chan struct{}),
		watchInterval: 2 * time.Second,
	}
}

// Open launches the browser and opens the working page. The returned
// context is cancelled when the browser goes away.
func (s *Session) Open(ctx context.Context) (context.Context, error) {
	s.ctx, s.cancel = context.WithCancel(ctx)

	if err := s.driver.Launch(); err != nil {
		return nil, err
	}

	page, err := s.driver.NewPage(s.ctx)
	if err != nil {
		return nil, err
	}
	s.page = page

	go s.watchBrowser()
	return s.ctx, nil
}

func (s *Session) Page() Page {
	return s.page
}

// watchBrowser cancels the run when the user closes the browser window,
// so no wait is left hanging on a dead page.
func (s *Session) watchBrowser() {
	ticker := time.NewTicker(s.watchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			if !s.driver.Alive() {
				fmt.Println(T("browser_closed_by_user"))
				s.cancel()
				return
			}
		}
	}
}

// Capture writes a screenshot and the page markup into dir.
func (s *Session) Capture(dir string) error {
	if s.page == nil {
		return errors.New("no page to capture")
	}

	var errs []error
	if err := s.page.Screenshot(filepath.Join(dir, screenshotFile)); err != nil {
		errs = append(errs, fmt.Errorf("screenshot: %w", err))
	}

	html, err := s.page.HTML()
	if err != nil {
		errs = append(errs, fmt.Errorf("page markup: %w", err))
	} else if err := os.WriteFile(filepath.Join(dir, markupFile), []byte(html), 0644); err != nil {
		errs = append(errs, fmt.Errorf("page markup: %w", err))
	}

	return errors.Join(errs...)
}

func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		if s.cancel != nil {
			s.cancel()
		}

		fmt.Println(T("cleaning_up"))

		if s.page != nil {
			if err := s.page.Close(); err != nil {
				s.log.WithError(err).Debug("page close failed")
			}
		}

		if err := s.driver.Close(); err != nil {
			s.log.WithError(err).Debug("browser close failed")
		}

		fmt.Println(T("browser_destroyed"))
	})
}
