// Package metrics holds the Prometheus collectors for provider traffic.
package metrics

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

const namespace = "media_summarizer"

// Outcome label values for requests_total.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Recorder is what the manager reports into.
type Recorder interface {
	ObserveRequest(provider, outcome string, d time.Duration)
	AddTokens(provider string, prompt, completion int)
	CountError(provider, kind string)
}

// Metrics holds the collectors, registered on a private registry so several
// managers can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	Tokens          *prometheus.CounterVec
	Errors          *prometheus.CounterVec
}

// New creates and registers the collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,

		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Chat completion requests by provider and outcome",
		}, []string{"provider", "outcome"}),

		// up to 2 minutes for long transcripts
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Chat completion latency in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"provider"}),

		Tokens: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_total",
			Help:      "Tokens reported by providers, by kind (prompt or completion)",
		}, []string{"provider", "kind"}),

		Errors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Provider errors by error kind",
		}, []string{"provider", "kind"}),
	}
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveRequest records one finished request.
func (m *Metrics) ObserveRequest(provider, outcome string, d time.Duration) {
	m.Requests.WithLabelValues(provider, outcome).Inc()
	m.RequestDuration.WithLabelValues(provider).Observe(d.Seconds())
}

// AddTokens records reported token usage.
func (m *Metrics) AddTokens(provider string, prompt, completion int) {
	if prompt > 0 {
		m.Tokens.WithLabelValues(provider, "prompt").Add(float64(prompt))
	}
	if completion > 0 {
		m.Tokens.WithLabelValues(provider, "completion").Add(float64(completion))
	}
}

// CountError records a failed request by error kind.
func (m *Metrics) CountError(provider, kind string) {
	m.Errors.WithLabelValues(provider, kind).Inc()
}

// WriteSummary prints counters and histogram counts as "name{labels} value"
// lines, sorted, for the CLI.
func (m *Metrics) WriteSummary(w io.Writer) error {
	families, err := m.registry.Gather()
	if err != nil {
		return err
	}
	var lines []string
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			name := mf.GetName() + formatLabels(metric.GetLabel())
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				lines = append(lines, fmt.Sprintf("%s %g", name, metric.GetCounter().GetValue()))
			case dto.MetricType_HISTOGRAM:
				h := metric.GetHistogram()
				lines = append(lines, fmt.Sprintf("%s count=%d sum=%.3fs", name, h.GetSampleCount(), h.GetSampleSum()))
			}
		}
	}
	sort.Strings(lines)
	for _, l := range lines {
		if _, err := fmt.Fprintln(w, l); err != nil {
			return err
		}
	}
	return nil
}

func formatLabels(labels []*dto.LabelPair) string {
	if len(labels) == 0 {
		return ""
	}
	parts := make([]string, len(labels))
	for i, l := range labels {
		parts[i] = fmt.Sprintf("%s=%q", l.GetName(), l.GetValue())
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// Nop discards everything.
type Nop struct{}

func (Nop) ObserveRequest(string, string, time.Duration) {}
func (Nop) AddTokens(string, int, int)                   {}
func (Nop) CountError(string, string)                    {}
