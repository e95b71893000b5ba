package runner

import (
	"bytes"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/sre-norns/logshare-verify/pkg/prob"
	"github.com/sre-norns/wyrd/pkg/manifest"
)

const MetricsRelType = "metrics"

type RegistryOptions struct {
	EnableOpenMetrics bool

	// Run labels attached to every exported series
	Labels manifest.Labels
}

// MetricLabelName maps a run label key, such as runner.run.id, onto a valid metric label name
func MetricLabelName(key string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, key)

	if name != "" && name[0] >= '0' && name[0] <= '9' {
		name = "_" + name
	}

	return name
}

func labelPairs(labels manifest.Labels) []*dto.LabelPair {
	pairs := make([]*dto.LabelPair, 0, len(labels))
	for key, value := range labels {
		name := MetricLabelName(key)
		if name == "" {
			continue
		}
		pairs = append(pairs, &dto.LabelPair{Name: &name, Value: &value})
	}

	return pairs
}

// attachLabels adds pairs to every metric. Labels a metric already carries win.
func attachLabels(mfs []*dto.MetricFamily, pairs []*dto.LabelPair) {
	for _, mf := range mfs {
		for _, m := range mf.GetMetric() {
			own := make(map[string]struct{}, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				own[lp.GetName()] = struct{}{}
			}

			for _, lp := range pairs {
				if _, taken := own[lp.GetName()]; !taken {
					m.Label = append(m.Label, lp)
				}
			}

			sort.Slice(m.Label, func(i, j int) bool {
				return m.Label[i].GetName() < m.Label[j].GetName()
			})
		}
	}
}

// MetricsToArtifact encodes everything gathered by the registry in the text exposition format
func MetricsToArtifact(registry prometheus.Gatherer, opts RegistryOptions) (prob.Artifact, error) {
	gatherer := prometheus.ToTransactionalGatherer(registry)
	mfs, done, err := gatherer.Gather()
	if err != nil {
		return prob.Artifact{}, err
	}
	defer done()

	attachLabels(mfs, labelPairs(opts.Labels))

	headers := http.Header{}
	var contentType expfmt.Format
	if opts.EnableOpenMetrics {
		headers.Set("Accept", "application/openmetrics-text")
		contentType = expfmt.NegotiateIncludingOpenMetrics(headers)
	} else {
		contentType = expfmt.Negotiate(headers)
	}

	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, contentType)
	for _, mf := range mfs {
		if err := enc.Encode(mf); err != nil {
			return prob.Artifact{}, fmt.Errorf("failed to encode metrics family %q: %w", mf.GetName(), err)
		}
	}

	if closer, ok := enc.(expfmt.Closer); ok {
		if err := closer.Close(); err != nil {
			return prob.Artifact{}, fmt.Errorf("failed to finalize metrics encoding: %w", err)
		}
	}

	return prob.Artifact{
		Rel:      MetricsRelType,
		MimeType: string(contentType),
		Content:  buf.Bytes(),
	}, nil
}
