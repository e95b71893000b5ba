package consent

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sre-norns/logshare-verify/pkg/browser"
	"github.com/sre-norns/logshare-verify/pkg/grace"
	"github.com/sre-norns/logshare-verify/pkg/prob"
)

// Verifier drives one browser page through the consent and settings flow.
type Verifier struct {
	Spec   Spec
	Driver browser.Driver

	// Directory screenshots are written to
	Directory string
	Headless  bool
	RecordHar bool

	Logger   log.Logger
	Registry *prometheus.Registry
}

// Run executes the flow once. Failures of individual steps are logged,
// captured in an error screenshot and reported through the returned status.
// An error is only returned if no page could be opened.
// The browser, once launched, is closed exactly once.
func (v *Verifier) Run(ctx context.Context) (status prob.RunStatus, artifacts []prob.Artifact, err error) {
	logger := v.Logger
	if logger == nil {
		logger = log.NewNopLogger()
	}

	registry := v.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if v.Directory != "" {
		if err := os.MkdirAll(v.Directory, 0o755); err != nil {
			return prob.RunFinishedError, nil, fmt.Errorf("failed to create artifacts directory: %w", err)
		}
	}

	var harPath string
	if v.RecordHar && v.Spec.HarFile != "" {
		harPath = v.artifactPath(v.Spec.HarFile)
	}

	instance, err := v.Driver.Launch(browser.LaunchOptions{
		Headless: v.Headless,
		HarPath:  harPath,
	})
	if err != nil {
		return prob.RunFinishedError, nil, err
	}
	defer func() {
		if err := instance.Close(); err != nil {
			level.Warn(logger).Log("msg", "failed to close browser", "err", err)
		}

		if harPath == "" {
			return
		}
		har, err := harArtifact(harPath)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// nothing was recorded
		case err != nil:
			level.Warn(logger).Log("msg", "failed to read HAR recording", "path", harPath, "err", err)
		default:
			artifacts = append(artifacts, har)
		}
	}()

	page, err := instance.NewPage()
	if err != nil {
		return prob.RunFinishedError, nil, err
	}

	r := &run{
		spec:    v.Spec,
		page:    page,
		path:    v.artifactPath,
		logger:  logger,
		metrics: newMetrics(registry),
	}

	started := time.Now()
	err = r.steps(ctx)
	r.metrics.runDuration.Set(time.Since(started).Seconds())

	if err != nil {
		level.Error(logger).Log("msg", "Error", "err", err)
		r.metrics.runSuccess.Set(0)

		if _, shotErr := r.screenshot(v.Spec.ErrorScreenshot); shotErr != nil {
			level.Warn(logger).Log("msg", "failed to capture error screenshot", "err", shotErr)
		}

		return statusOf(err), r.artifacts, nil
	}

	r.metrics.runSuccess.Set(1)
	return prob.RunFinishedSuccess, r.artifacts, nil
}

func (v *Verifier) artifactPath(name string) string {
	if v.Directory == "" {
		return name
	}
	return filepath.Join(v.Directory, name)
}

func harArtifact(path string) (prob.Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return prob.Artifact{}, err
	}

	return prob.Artifact{
		Rel:      HarRelType,
		MimeType: HarMimeType,
		Path:     path,
		Content:  data,
	}, nil
}

func statusOf(err error) prob.RunStatus {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return prob.RunFinishedTimeout
	case errors.Is(err, context.Canceled):
		return prob.RunFinishedCanceled
	default:
		return prob.RunFinishedFailed
	}
}

type run struct {
	spec    Spec
	page    browser.Page
	path    func(name string) string
	logger  log.Logger
	metrics *metrics

	artifacts []prob.Artifact
}

func (r *run) steps(ctx context.Context) error {
	err := r.step(ctx, "navigate", func() error {
		return r.page.Goto(r.spec.URL, r.spec.NavigationTimeout)
	})
	if err != nil {
		return err
	}

	if err := r.step(ctx, "network-idle", r.page.WaitForNetworkIdle); err != nil {
		return err
	}

	var modalVisible bool
	err = r.step(ctx, "consent-check", func() (err error) {
		modalVisible, err = r.page.IsTextVisible(r.spec.ConsentText)
		return err
	})
	if err != nil {
		return err
	}

	if modalVisible {
		r.metrics.modalPresent.Set(1)
		level.Info(r.logger).Log("msg", "Modal is visible. Taking screenshot...")
		if _, err := r.screenshot(r.spec.ConsentScreenshot); err != nil {
			return err
		}

		err := r.step(ctx, "agree", func() error {
			return r.page.ClickButton(r.spec.AgreeButton)
		})
		if err != nil {
			return err
		}
		level.Info(r.logger).Log("msg", "Clicked Agree.")

		if err := r.step(ctx, "modal-close", func() error {
			return sleep(ctx, r.spec.ModalCloseDelay)
		}); err != nil {
			return err
		}
	} else {
		r.metrics.modalPresent.Set(0)
	}

	err = r.step(ctx, "open-settings", func() error {
		return r.page.ClickButton(r.spec.SettingsButton)
	})
	if err != nil {
		return err
	}

	err = r.step(ctx, "expect-settings", func() error {
		if err := r.page.ExpectTextVisible(r.spec.SettingsText); err != nil {
			return grace.WrapError(err,
				fmt.Sprintf("%q to be visible in the settings view", r.spec.SettingsText),
				"check that the settings view renders the log sharing section",
			)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if _, err := r.screenshot(r.spec.SettingsScreenshot); err != nil {
		return err
	}
	level.Info(r.logger).Log("msg", "Settings page screenshot taken.")

	return nil
}

// step runs fn unless ctx is already done, recording its duration
func (r *run) step(ctx context.Context, name string, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	started := time.Now()
	err := fn()
	r.metrics.stepDuration.WithLabelValues(name).Observe(time.Since(started).Seconds())
	level.Debug(r.logger).Log("msg", "step finished", "step", name, "err", err)

	return err
}

func (r *run) screenshot(name string) (prob.Artifact, error) {
	path := r.path(name)
	data, err := r.page.Screenshot(path)
	if err != nil {
		return prob.Artifact{}, err
	}
	r.metrics.screenshots.WithLabelValues(name).Inc()

	artifact := prob.Artifact{
		Rel:      strings.TrimSuffix(name, filepath.Ext(name)),
		MimeType: http.DetectContentType(data),
		Path:     path,
		Content:  data,
	}
	r.artifacts = append(r.artifacts, artifact)

	return artifact, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
