package consent

import (
	"context"
	"time"

	"github.com/go-kit/log"
	bxconfig "github.com/prometheus/blackbox_exporter/config"
	"github.com/prometheus/blackbox_exporter/prober"
	"github.com/prometheus/client_golang/prometheus"
)

const PreflightTimeout = 5 * time.Second

// Preflight reports whether target answers a plain HTTP GET with a 2xx status.
// Probe metrics are recorded in registry.
func Preflight(ctx context.Context, target string, registry *prometheus.Registry, logger log.Logger) bool {
	module := bxconfig.Module{
		Prober:  "http",
		Timeout: PreflightTimeout,
		HTTP:    bxconfig.DefaultHTTPProbe,
	}

	probeCtx, cancel := context.WithTimeout(ctx, module.Timeout)
	defer cancel()

	return prober.ProbeHTTP(probeCtx, target, module, registry, log.With(logger, "probe", "preflight"))
}
