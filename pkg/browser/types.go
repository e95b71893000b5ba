package browser

import (
	"fmt"
	"time"
)

var (
	ErrNotStarted = fmt.Errorf("browser driver is not started")
)

// Page is a single browser tab, addressed by what a user sees rather than by CSS selectors.
type Page interface {
	// Goto navigates to url, failing if the page has not loaded within timeout.
	Goto(url string, timeout time.Duration) error

	// WaitForNetworkIdle blocks until no network requests were made for a short interval.
	WaitForNetworkIdle() error

	// IsTextVisible reports whether an element containing text is visible right now. It does not wait.
	IsTextVisible(text string) (bool, error)

	// ClickButton clicks the element with the button role and the given accessible name.
	ClickButton(name string) error

	// ExpectTextVisible waits, up to the default assertion timeout, for text to become visible.
	ExpectTextVisible(text string) error

	// Screenshot captures the viewport into path and returns the PNG data.
	Screenshot(path string) ([]byte, error)
}

// Browser owns the pages it opens. Close releases all of them, flushing any HAR recording.
type Browser interface {
	NewPage() (Page, error)
	Close() error
}

type LaunchOptions struct {
	Headless bool

	// Viewport sets the initial page size. Zero values fall back to the defaults.
	ViewportWidth  int
	ViewportHeight int

	// HarPath, when set, records the network traffic of every page opened into a HAR file.
	// The file is written by Browser.Close.
	HarPath string
}

// Driver launches browser instances.
type Driver interface {
	Launch(opts LaunchOptions) (Browser, error)
}

const (
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 720

	// Matches the playwright default used by visibility assertions
	DefaultExpectTimeout = 5 * time.Second
)
