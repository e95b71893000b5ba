// Package consent verifies the log and data sharing consent flow of the local UI:
// the consent modal is dismissed if shown, and the settings view shows the log sharing section.
package consent

import (
	"context"
	"fmt"
	"reflect"
	"runtime/debug"
	"strings"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sre-norns/logshare-verify/pkg/browser"
	"github.com/sre-norns/logshare-verify/pkg/prob"
	"github.com/sre-norns/logshare-verify/pkg/runner"
	"github.com/sre-norns/wyrd/pkg/manifest"
)

const (
	Kind           = prob.Kind("log-sharing-consent")
	ScriptMimeType = "application/json"

	HarRelType  = "har"
	HarMimeType = "application/json"
)

type Spec struct {
	URL               string        `json:"url,omitempty"`
	NavigationTimeout time.Duration `json:"navigationTimeout,omitempty"`

	// Text shown by the consent modal
	ConsentText string `json:"consentText,omitempty"`
	// Accessible name of the button accepting the consent
	AgreeButton string `json:"agreeButton,omitempty"`
	// Time given to the modal close animation
	ModalCloseDelay time.Duration `json:"modalCloseDelay,omitempty"`

	// Accessible name of the navigation button opening settings
	SettingsButton string `json:"settingsButton,omitempty"`
	// Text that must become visible once settings are open
	SettingsText string `json:"settingsText,omitempty"`

	ConsentScreenshot  string `json:"consentScreenshot,omitempty"`
	SettingsScreenshot string `json:"settingsScreenshot,omitempty"`
	ErrorScreenshot    string `json:"errorScreenshot,omitempty"`

	// Network recording, kept only when HAR recording is enabled
	HarFile string `json:"harFile,omitempty"`
}

// DefaultSpec is the scenario for the UI dev server
func DefaultSpec() Spec {
	return Spec{
		URL:               "http://localhost:5173",
		NavigationTimeout: 10 * time.Second,

		ConsentText:     "로그 및 데이터 공유 동의",
		AgreeButton:     "동의 및 활성화",
		ModalCloseDelay: time.Second,

		SettingsButton: "설정",
		SettingsText:   "로그 및 데이터 공유",

		ConsentScreenshot:  "consent_modal.png",
		SettingsScreenshot: "settings_page.png",
		ErrorScreenshot:    "error.png",

		HarFile: "network.har",
	}
}

func init() {
	moduleVersion := "devel"
	if bi, ok := debug.ReadBuildInfo(); ok {
		moduleVersion = strings.Trim(bi.Main.Version, "()")
	}

	// Ignore double registration error
	_ = prob.RegisterProbKind(
		Kind,
		prob.ProbRegistration{
			RunFunc:     RunScript,
			ContentType: ScriptMimeType,
			Version:     moduleVersion,
			Produce:     []string{"consent_modal", "settings_page", "error", HarRelType, runner.LogRelType},
		},
	)
}

func RunScript(ctx context.Context, probSpec any, config prob.RunOptions, registry *prometheus.Registry, logger log.Logger) (prob.RunStatus, []prob.Artifact, error) {
	spec, ok := probSpec.(*Spec)
	if !ok {
		return prob.RunFinishedError, nil, fmt.Errorf("%w: got %q, expected %q", manifest.ErrUnexpectedSpecType, reflect.TypeOf(probSpec), reflect.TypeOf(&Spec{}))
	}

	if spec.URL == "" {
		return prob.RunFinishedError, nil, prob.ErrNoTarget
	}

	runLog := runner.NewRunLog(logger)
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if config.Preflight.Enabled {
		// Navigation reports the actual failure, preflight only gives an early hint
		if !Preflight(ctx, spec.URL, registry, runLog) {
			level.Warn(runLog).Log("msg", "target did not pass preflight probe", "target", spec.URL)
		}
	}

	driver := config.Browser.Driver
	if driver == nil {
		pw := browser.NewPlaywrightDriver(config.Browser.InstallDriver, runLog)
		if err := pw.Start(); err != nil {
			return prob.RunFinishedError, runLog.Package(), err
		}
		defer func() {
			if err := pw.Stop(); err != nil {
				level.Warn(runLog).Log("msg", "failed to stop browser driver", "err", err)
			}
		}()

		driver = pw
	}

	verifier := Verifier{
		Spec:      *spec,
		Driver:    driver,
		Directory: config.Browser.WorkingDirectory,
		Headless:  config.Browser.Headless,
		RecordHar: config.Browser.RecordHar,
		Logger:    runLog,
		Registry:  registry,
	}

	status, artifacts, err := verifier.Run(ctx)
	return status, append(artifacts, runLog.ToArtifact()), err
}
