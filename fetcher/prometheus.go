package fetcher

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/prometheus/common/model"
)

// parsePrometheus converts a text exposition body into
//
//	[{"name", "help", "type", "metrics": [{"value", "labels"}]}]
//
// sorted by family name. Sample values are kept as strings the way they
// appear on the wire; histograms carry "buckets", summaries "quantiles",
// both with "count" and "sum".
func parsePrometheus(body []byte) ([]any, error) {
	parser := expfmt.NewTextParser(model.UTF8Validation)
	families, err := parser.TextToMetricFamilies(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse prometheus text: %w", err)
	}

	names := make([]string, 0, len(families))
	for name := range families {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]any, 0, len(names))
	for _, name := range names {
		mf := families[name]
		metrics := make([]any, 0, len(mf.GetMetric()))
		for _, m := range mf.GetMetric() {
			metrics = append(metrics, sample(mf.GetType(), m))
		}
		out = append(out, map[string]any{
			"name":    name,
			"help":    mf.GetHelp(),
			"type":    mf.GetType().String(),
			"metrics": metrics,
		})
	}
	return out, nil
}

func sample(typ dto.MetricType, m *dto.Metric) map[string]any {
	s := map[string]any{}
	if len(m.GetLabel()) > 0 {
		labels := make(map[string]any, len(m.GetLabel()))
		for _, lp := range m.GetLabel() {
			labels[lp.GetName()] = lp.GetValue()
		}
		s["labels"] = labels
	}

	switch typ {
	case dto.MetricType_COUNTER:
		s["value"] = formatFloat(m.GetCounter().GetValue())
	case dto.MetricType_GAUGE:
		s["value"] = formatFloat(m.GetGauge().GetValue())
	case dto.MetricType_SUMMARY:
		quantiles := make(map[string]any, len(m.GetSummary().GetQuantile()))
		for _, q := range m.GetSummary().GetQuantile() {
			quantiles[formatFloat(q.GetQuantile())] = formatFloat(q.GetValue())
		}
		s["quantiles"] = quantiles
		s["count"] = strconv.FormatUint(m.GetSummary().GetSampleCount(), 10)
		s["sum"] = formatFloat(m.GetSummary().GetSampleSum())
	case dto.MetricType_HISTOGRAM:
		buckets := make(map[string]any, len(m.GetHistogram().GetBucket()))
		for _, b := range m.GetHistogram().GetBucket() {
			buckets[formatFloat(b.GetUpperBound())] = strconv.FormatUint(b.GetCumulativeCount(), 10)
		}
		s["buckets"] = buckets
		s["count"] = strconv.FormatUint(m.GetHistogram().GetSampleCount(), 10)
		s["sum"] = formatFloat(m.GetHistogram().GetSampleSum())
	default:
		s["value"] = formatFloat(m.GetUntyped().GetValue())
	}
	return s
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
