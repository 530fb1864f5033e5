package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// jumpScript replays the pointer sequence of a real click on the element
// matching its argument. The site ignores bare click() calls on it.
const jumpScript = `(sel) => {
	const el = document.querySelector(sel);
	if (!el) return false;
	const rect = el.getBoundingClientRect();
	const init = {
		view: window,
		bubbles: true,
		cancelable: true,
		clientX: rect.left + rect.width / 2,
		clientY: rect.top + rect.height / 2
	};
	const sequence = ['pointerover', 'mouseover', 'pointermove', 'mousemove',
		'pointerdown', 'mousedown', 'pointerup', 'mouseup', 'click'];
	for (const type of sequence) {
		const Ctor = type.startsWith('pointer') ? PointerEvent : MouseEvent;
		el.dispatchEvent(new Ctor(type, init));
	}
	return true;
}`

// LicenseFlow uploads the license request and picks the personal license.
type LicenseFlow struct {
	config *Config
	log    *logrus.Entry
}

func NewLicenseFlow(config *Config, log *logrus.Entry) *LicenseFlow {
	return &LicenseFlow{
		config: config,
		log:    log.WithField("component", "license"),
	}
}

// Submit runs the manual activation form to the download. Failures are
// *FlowError values naming the step.
func (f *LicenseFlow) Submit(ctx context.Context, page Page, licenseFile string) error {
	sel := f.config.Selectors
	elementTimeout := f.config.elementTimeout()
	navTimeout := f.config.navigationTimeout()

	path, err := filepath.Abs(licenseFile)
	if err != nil {
		return &FlowError{Step: "license request file", Err: err}
	}
	if _, err := os.Stat(path); err != nil {
		return &FlowError{Step: "license request file", Err: err}
	}

	fmt.Println(T("license_opening_manual"))
	if err := page.Navigate(f.config.ManualURL); err != nil {
		return &FlowError{Step: "open manual activation", Err: err}
	}

	// The manual page sometimes bounces through a redirect first.
	if err := page.WaitURL(f.config.ManualURLFragment, f.config.redirectTimeout()); err != nil {
		f.log.WithError(err).Debug("no redirect to manual page, continuing")
	}

	if err := f.jump(page); err != nil {
		return &FlowError{Step: "jump interstitial", Err: err}
	}

	if err := ctx.Err(); err != nil {
		return &FlowError{Step: "upload", Err: err}
	}

	fmt.Println(T("license_uploading"))
	if err := page.WaitFor(sel.LicenseFileInput, elementTimeout); err != nil {
		return &FlowError{Step: "upload", Err: err}
	}
	if err := page.Upload(sel.LicenseFileInput, path); err != nil {
		return &FlowError{Step: "upload", Err: err}
	}
	if err := page.ClickAndWait(sel.LicenseUploadSubmit, navTimeout); err != nil {
		return &FlowError{Step: "upload submit", Err: err}
	}

	fmt.Println(T("license_selecting_type"))
	if err := page.WaitFor(sel.PersonalTypeOption, elementTimeout); err != nil {
		return &FlowError{Step: "license type", Err: err}
	}
	if err := page.Click(sel.PersonalTypeOption); err != nil {
		return &FlowError{Step: "license type", Err: err}
	}
	if err := page.Click(sel.CapacityOption); err != nil {
		return &FlowError{Step: "license capacity", Err: err}
	}
	if err := page.ClickAndWait(sel.TypeSubmit, navTimeout); err != nil {
		return &FlowError{Step: "license type submit", Err: err}
	}

	fmt.Println(T("license_downloading"))
	if err := page.WaitFor(sel.DownloadButton, elementTimeout); err != nil {
		return &FlowError{Step: "download", Err: err}
	}
	if err := page.Click(sel.DownloadButton); err != nil {
		return &FlowError{Step: "download", Err: err}
	}
	return nil
}

func (f *LicenseFlow) jump(page Page) error {
	sel := f.config.Selectors
	if sel.JumpIndicator == "" {
		return nil
	}

	present, err := page.Has(sel.JumpIndicator)
	if err != nil || !present {
		return err
	}

	f.log.Debug("jump interstitial present")
	clicked, err := page.Evaluate(jumpScript, sel.JumpTarget)
	if err != nil {
		return err
	}
	if clicked != "true" {
		return fmt.Errorf("jump target %q not found", sel.JumpTarget)
	}
	return page.WaitURL(f.config.ManualURLFragment, f.config.navigationTimeout())
}
