package consent

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	stepDuration *prometheus.HistogramVec
	screenshots  *prometheus.CounterVec
	modalPresent prometheus.Gauge
	runDuration  prometheus.Gauge
	runSuccess   prometheus.Gauge
}

func newMetrics(registry prometheus.Registerer) *metrics {
	return &metrics{
		stepDuration: register(registry, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "verify_step_duration_seconds",
			Help:    "Duration of each verification step",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"step"})),
		screenshots: register(registry, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "verify_screenshots_total",
			Help: "Screenshots captured, by file name",
		}, []string{"name"})),
		modalPresent: register(registry, prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "verify_consent_modal_present",
			Help: "1 if the consent modal was shown on load",
		})),
		runDuration: register(registry, prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "verify_run_duration_seconds",
			Help: "Duration of the verification steps",
		})),
		runSuccess: register(registry, prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "verify_run_success",
			Help: "1 if all verification steps succeeded",
		})),
	}
}

// register reuses an already registered collector of the same description
func register[T prometheus.Collector](registry prometheus.Registerer, c T) T {
	if err := registry.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
	}

	return c
}
