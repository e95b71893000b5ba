package browser

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/playwright-community/playwright-go"
)

// PlaywrightDriver launches Chromium through a playwright driver process.
// Start must be called before Launch; Stop shuts the driver down.
type PlaywrightDriver struct {
	mu      sync.Mutex
	pw      *playwright.Playwright
	runOpts *playwright.RunOptions
	install bool
}

func NewPlaywrightDriver(install bool, logger log.Logger) *PlaywrightDriver {
	output := log.NewStdlibAdapter(log.With(logger, "component", "playwright"))

	return &PlaywrightDriver{
		install: install,
		runOpts: &playwright.RunOptions{
			Browsers: []string{"chromium"},
			Verbose:  false,
			Stdout:   output,
			Stderr:   output,
		},
	}
}

func (d *PlaywrightDriver) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pw != nil {
		return nil
	}

	if d.install {
		if err := playwright.Install(d.runOpts); err != nil {
			return fmt.Errorf("failed to install playwright: %w", err)
		}
	}

	pw, err := playwright.Run(d.runOpts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	d.pw = pw
	return nil
}

func (d *PlaywrightDriver) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pw == nil {
		return nil
	}

	err := d.pw.Stop()
	d.pw = nil
	if err != nil {
		return fmt.Errorf("failed to stop playwright: %w", err)
	}

	return nil
}

func (d *PlaywrightDriver) Launch(opts LaunchOptions) (Browser, error) {
	d.mu.Lock()
	pw := d.pw
	d.mu.Unlock()

	if pw == nil {
		return nil, ErrNotStarted
	}

	instance, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	if opts.ViewportWidth == 0 {
		opts.ViewportWidth = DefaultViewportWidth
	}
	if opts.ViewportHeight == 0 {
		opts.ViewportHeight = DefaultViewportHeight
	}

	return &session{
		browser: instance,
		viewport: playwright.Size{
			Width:  opts.ViewportWidth,
			Height: opts.ViewportHeight,
		},
		expect:  playwright.NewPlaywrightAssertions(float64(DefaultExpectTimeout.Milliseconds())),
		harPath: opts.HarPath,
	}, nil
}

type session struct {
	browser  playwright.Browser
	viewport playwright.Size
	expect   playwright.PlaywrightAssertions
	harPath  string

	pages []playwright.Page
}

func (s *session) NewPage() (Page, error) {
	opts := playwright.BrowserNewPageOptions{
		Viewport: &s.viewport,
	}
	if s.harPath != "" {
		opts.RecordHarPath = playwright.String(s.harPath)
	}

	p, err := s.browser.NewPage(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	s.pages = append(s.pages, p)

	return &page{page: p, expect: s.expect}, nil
}

func (s *session) Close() error {
	var errs []error

	// HAR recordings are only exported when their context closes
	for _, p := range s.pages {
		if err := p.Context().Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close page context: %w", err))
		}
	}
	s.pages = nil

	if err := s.browser.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
	}

	return errors.Join(errs...)
}

type page struct {
	page   playwright.Page
	expect playwright.PlaywrightAssertions
}

func (p *page) Goto(url string, timeout time.Duration) error {
	opts := playwright.PageGotoOptions{}
	if timeout > 0 {
		opts.Timeout = playwright.Float(float64(timeout.Milliseconds()))
	}

	if _, err := p.page.Goto(url, opts); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}

	return nil
}

func (p *page) WaitForNetworkIdle() error {
	err := p.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State: playwright.LoadStateNetworkidle,
	})
	if err != nil {
		return fmt.Errorf("wait for network idle failed: %w", err)
	}

	return nil
}

func (p *page) IsTextVisible(text string) (bool, error) {
	visible, err := p.page.GetByText(text).IsVisible()
	if err != nil {
		return false, fmt.Errorf("visibility check for %q failed: %w", text, err)
	}

	return visible, nil
}

func (p *page) ClickButton(name string) error {
	button := p.page.GetByRole(*playwright.AriaRoleButton, playwright.PageGetByRoleOptions{
		Name: name,
	})

	if err := button.Click(); err != nil {
		return fmt.Errorf("click on button %q failed: %w", name, err)
	}

	return nil
}

func (p *page) ExpectTextVisible(text string) error {
	return p.expect.Locator(p.page.GetByText(text)).ToBeVisible()
}

func (p *page) Screenshot(path string) ([]byte, error) {
	data, err := p.page.Screenshot(playwright.PageScreenshotOptions{
		Path: playwright.String(path),
	})
	if err != nil {
		return nil, fmt.Errorf("screenshot %q failed: %w", path, err)
	}

	return data, nil
}
