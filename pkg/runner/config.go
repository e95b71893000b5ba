package runner

import (
	"runtime"
	"runtime/debug"
	"strings"
	"time"

	"github.com/sre-norns/wyrd/pkg/manifest"
	"golang.org/x/mod/semver"
)

const (
	LabelOS   = "runner.os"
	LabelArch = "runner.arch"

	LabelGoVersion      = "runner.go.version"
	LabelGoVersionMinor = LabelGoVersion + ".minor"

	// Well-known labels used by runners:
	LabelBuildVersion = "runner.version"
	LabelRunId        = "runner.run.id"
)

type RunnerConfig struct {
	systemLabels manifest.Labels `kong:"-"`
	CustomLabels manifest.Labels `help:"Extra labels to identify this run" name:"labels" env:"VERIFY_LABELS"`

	WorkingDirectory string        `help:"Directory screenshots are written to" default:"verification" env:"VERIFY_WORKING_DIRECTORY"`
	Timeout          time.Duration `help:"Maximum duration allotted for the whole run, 0 for no limit" default:"0" env:"VERIFY_TIMEOUT"`
}

func GetRuntimeLabels() manifest.Labels {
	labels := manifest.Labels{
		LabelArch: runtime.GOARCH,
		LabelOS:   runtime.GOOS,
	}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return labels
	}

	labels[LabelBuildVersion] = strings.Trim(bi.Main.Version, "()")

	goVersion := "v" + strings.TrimPrefix(bi.GoVersion, "go")
	if semver.IsValid(goVersion) {
		labels[LabelGoVersion] = goVersion[1:]
		labels[LabelGoVersionMinor] = semver.MajorMinor(goVersion)[1:]
	}

	return labels
}

func (c *RunnerConfig) GetEffectiveLabels() manifest.Labels {
	return manifest.MergeLabels(
		c.systemLabels,
		c.CustomLabels,
	)
}

func NewDefaultConfig() RunnerConfig {
	return RunnerConfig{
		systemLabels: GetRuntimeLabels(),
	}
}
