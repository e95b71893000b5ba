package prob

import (
	"github.com/sre-norns/logshare-verify/pkg/browser"
)

type BrowserOptions struct {
	Headless bool

	// Install the playwright driver and browsers before starting
	InstallDriver bool

	// Record network traffic of the run into a HAR artifact
	RecordHar bool

	// Directory screenshots are written to
	WorkingDirectory string

	// Driver to launch browsers with. When nil the prober starts, and stops, its own playwright driver.
	Driver browser.Driver
}

type PreflightOptions struct {
	// Probe the target over HTTP before opening a browser
	Enabled bool
}

type RunOptions struct {
	Browser   BrowserOptions
	Preflight PreflightOptions
}
