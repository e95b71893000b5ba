package prob

import (
	"context"
	"fmt"

	"github.com/go-kit/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sre-norns/wyrd/pkg/manifest"
)

var (
	ErrNilRunner = fmt.Errorf("prob run function is nil")
	ErrNoTarget  = fmt.Errorf("empty prob.target value")
	ErrNoKind    = fmt.Errorf("no scenario kind specified")
)

type ScriptRunFn func(ctx context.Context, spec any, config RunOptions, registry *prometheus.Registry, logger log.Logger) (RunStatus, []Artifact, error)

type ProbRegistration struct {
	// Function to execute a scenario
	RunFunc ScriptRunFn

	// Sem-version of the prober module loaded
	Version string

	// Mime type of the scenario description
	ContentType string

	// Types of artifacts this prob is expected to produce
	Produce []string
}

// Registrar of Probing modules
var (
	kindRunnerMap = map[Kind]ProbRegistration{}
)

// Register new kind of prob
func RegisterProbKind(kind Kind, probInfo ProbRegistration) error {
	if probInfo.RunFunc == nil {
		return ErrNilRunner
	}

	kindRunnerMap[kind] = probInfo
	return nil
}

// Unregister given prober kind
func UnregisterProbKind(kind Kind) error {
	delete(kindRunnerMap, kind)

	return nil
}

// List all registered probers
// Note: function makes a copy of the module list to avoid accidental modification of registration info
func ListProbs() map[Kind]ProbRegistration {
	result := make(map[Kind]ProbRegistration, len(kindRunnerMap))
	for kind, info := range kindRunnerMap {
		result[kind] = info
	}

	return result
}

func FindRunFunc(kind Kind) (ScriptRunFn, bool) {
	result, ok := kindRunnerMap[kind]
	return result.RunFunc, ok
}

// Play runs a single scenario with the prober registered for its kind.
// A non-zero manifest timeout bounds the run.
func Play(ctx context.Context, m Manifest, config RunOptions, registry *prometheus.Registry, logger log.Logger) (RunStatus, []Artifact, error) {
	if len(m.Kind) == 0 {
		return RunFinishedError, nil, ErrNoKind
	}

	runFn, ok := FindRunFunc(m.Kind)
	if !ok {
		return RunFinishedError, nil, fmt.Errorf("%w: %q", manifest.ErrUnknownKind, m.Kind)
	}

	if m.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.Timeout)
		defer cancel()
	}

	if m.Name != "" {
		logger = log.With(logger, "scenario", m.Name)
	}

	return runFn(ctx, m.Spec, config, registry, logger)
}
