package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sre-norns/wyrd/pkg/manifest"

	"github.com/sre-norns/logshare-verify/pkg/grace"
	"github.com/sre-norns/logshare-verify/pkg/prob"
	"github.com/sre-norns/logshare-verify/pkg/probers/consent"
	"github.com/sre-norns/logshare-verify/pkg/runner"
)

type VerifyConfig struct {
	runner.RunnerConfig `embed:""`

	Headless      bool   `help:"Run the browser without a window" default:"true" negatable:"" env:"VERIFY_HEADLESS"`
	InstallDriver bool   `help:"Install the playwright driver and Chromium before the run" env:"VERIFY_INSTALL_DRIVER"`
	Preflight     bool   `help:"Probe the UI over HTTP before opening a browser" env:"VERIFY_PREFLIGHT"`
	RecordHar     bool   `help:"Record the browser network traffic into a HAR file next to the screenshots" env:"VERIFY_RECORD_HAR"`
	MetricsFile   string `help:"Write run metrics, labeled with the run labels, to this file" type:"path" env:"VERIFY_METRICS_FILE"`
	OpenMetrics   bool   `help:"Write the metrics file in the OpenMetrics format" env:"VERIFY_OPEN_METRICS"`

	LogLevel  string `help:"Minimum log level" enum:"debug,info,warn,error" default:"info" env:"VERIFY_LOG_LEVEL"`
	LogFormat string `help:"Log line format" enum:"logfmt,json" default:"logfmt" env:"VERIFY_LOG_FORMAT"`
}

func newLogger(w io.Writer, format, minLevel string) log.Logger {
	out := log.NewSyncWriter(w)

	var logger log.Logger
	switch format {
	case "json":
		logger = log.NewJSONLogger(out)
	default:
		logger = log.NewLogfmtLogger(out)
	}

	var allow level.Option
	switch minLevel {
	case "debug":
		allow = level.AllowDebug()
	case "warn":
		allow = level.AllowWarn()
	case "error":
		allow = level.AllowError()
	default:
		allow = level.AllowInfo()
	}

	return log.With(level.NewFilter(logger, allow), "ts", log.DefaultTimestampUTC)
}

func (c *VerifyConfig) scenario(spec *consent.Spec) prob.Manifest {
	return prob.Manifest{
		Name:    string(consent.Kind),
		Kind:    consent.Kind,
		Timeout: c.Timeout,
		Spec:    spec,
	}
}

func (c *VerifyConfig) runOptions() prob.RunOptions {
	return prob.RunOptions{
		Browser: prob.BrowserOptions{
			Headless:         c.Headless,
			InstallDriver:    c.InstallDriver,
			RecordHar:        c.RecordHar,
			WorkingDirectory: c.WorkingDirectory,
		},
		Preflight: prob.PreflightOptions{
			Enabled: c.Preflight,
		},
	}
}

func (c *VerifyConfig) Run(ctx context.Context, logger log.Logger) error {
	runID := uuid.NewString()
	logger = log.With(logger, "run", runID)

	labels := manifest.MergeLabels(c.GetEffectiveLabels(), manifest.Labels{
		runner.LabelRunId: runID,
	})
	level.Debug(logger).Log("msg", "runner labels", "labels", fmt.Sprint(labels))

	spec := consent.DefaultSpec()
	registry := prometheus.NewRegistry()

	status, artifacts, err := prob.Play(ctx, c.scenario(&spec), c.runOptions(), registry, logger)
	if err != nil {
		return fmt.Errorf("failed to run %q: %w", consent.Kind, err)
	}
	level.Info(logger).Log("msg", "scenario finished", "status", status, "artifacts", len(artifacts))

	if c.MetricsFile != "" {
		metrics, err := runner.MetricsToArtifact(registry, runner.RegistryOptions{
			EnableOpenMetrics: c.OpenMetrics,
			Labels:            labels,
		})
		if err != nil {
			return fmt.Errorf("failed to collect metrics: %w", err)
		}

		if err := os.WriteFile(c.MetricsFile, metrics.Content, 0o644); err != nil {
			return fmt.Errorf("failed to write metrics file: %w", err)
		}
		metrics.Path = c.MetricsFile
		artifacts = append(artifacts, metrics)
	}

	printArtifacts(os.Stdout, artifacts)
	return nil
}

var appConfig = VerifyConfig{
	RunnerConfig: runner.NewDefaultConfig(),
}

func main() {
	// Optional: flags may also be set through a local .env file
	_ = godotenv.Load()

	kong.Parse(&appConfig,
		kong.Name("verify-log-sharing"),
		kong.Description("Checks that the log sharing consent modal can be accepted and the settings view shows log sharing, capturing screenshots as evidence"),
	)

	logger := newLogger(os.Stdout, appConfig.LogFormat, appConfig.LogLevel)
	mainContext := grace.SetupSignalHandler()

	grace.ExitOrLog(logger, appConfig.Run(mainContext, logger))
}
