package consent_test

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sre-norns/logshare-verify/pkg/browser"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type fakeDriver struct {
	launchErr  error
	newPageErr error
	closeErr   error
	// Skip writing the HAR file on close
	noHar bool

	page    *fakePage
	browser *fakeBrowser
}

func (d *fakeDriver) Launch(opts browser.LaunchOptions) (browser.Browser, error) {
	if d.launchErr != nil {
		return nil, d.launchErr
	}

	d.browser = &fakeBrowser{
		headless:   opts.Headless,
		harPath:    opts.HarPath,
		noHar:      d.noHar,
		page:       d.page,
		newPageErr: d.newPageErr,
		closeErr:   d.closeErr,
	}
	return d.browser, nil
}

type fakeBrowser struct {
	mu         sync.Mutex
	headless   bool
	harPath    string
	noHar      bool
	closed     int
	page       *fakePage
	newPageErr error
	closeErr   error
}

func (b *fakeBrowser) NewPage() (browser.Page, error) {
	if b.newPageErr != nil {
		return nil, b.newPageErr
	}
	return b.page, nil
}

func (b *fakeBrowser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed++
	if b.harPath != "" && !b.noHar {
		if err := os.WriteFile(b.harPath, []byte(`{"log":{"version":"1.2","entries":[]}}`), 0o644); err != nil {
			return err
		}
	}
	return b.closeErr
}

// fakePage records every call made to it, in order
type fakePage struct {
	calls []string

	gotoErr    error
	gotoURL    string
	gotoLimit  time.Duration
	idleErr    error
	visibleErr error
	expectErr  error

	// Texts currently visible on the page
	visible map[string]bool

	// Errors to fail a click or a screenshot with, by button name or file name
	clickErr      map[string]error
	screenshotErr map[string]error

	onClick func(name string)
}

func (p *fakePage) Goto(url string, timeout time.Duration) error {
	p.calls = append(p.calls, "goto")
	p.gotoURL, p.gotoLimit = url, timeout
	return p.gotoErr
}

func (p *fakePage) WaitForNetworkIdle() error {
	p.calls = append(p.calls, "network-idle")
	return p.idleErr
}

func (p *fakePage) IsTextVisible(text string) (bool, error) {
	p.calls = append(p.calls, "visible:"+text)
	if p.visibleErr != nil {
		return false, p.visibleErr
	}
	return p.visible[text], nil
}

func (p *fakePage) ClickButton(name string) error {
	p.calls = append(p.calls, "click:"+name)
	if err := p.clickErr[name]; err != nil {
		return err
	}
	if p.onClick != nil {
		p.onClick(name)
	}
	return nil
}

func (p *fakePage) ExpectTextVisible(text string) error {
	p.calls = append(p.calls, "expect:"+text)
	if p.expectErr != nil {
		return p.expectErr
	}
	if !p.visible[text] {
		return errors.New("timeout: element is not visible")
	}
	return nil
}

func (p *fakePage) Screenshot(path string) ([]byte, error) {
	name := filepath.Base(path)
	p.calls = append(p.calls, "screenshot:"+name)
	if err := p.screenshotErr[name]; err != nil {
		return nil, err
	}

	if err := os.WriteFile(path, pngHeader, 0o644); err != nil {
		return nil, err
	}
	return pngHeader, nil
}
