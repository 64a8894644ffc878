// Package metric records the statistics of a catalog handle in prometheus
// collectors and renders them as a report.
package metric

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

const namespace = "fdb"

// Stats is nil safe: a nil *Stats records nothing.
type Stats struct {
	gatherer prometheus.Gatherer

	archives      prometheus.Counter
	archiveBytes  prometheus.Counter
	archiveTime   prometheus.Histogram
	retrieves     prometheus.Counter
	flushes       prometheus.Counter
	flushTime     prometheus.Histogram
	queryElements *prometheus.CounterVec
	errors        *prometheus.CounterVec
}

// NewStats registers the collectors with reg. A nil registry gets a private
// one. Collectors already registered by another Stats on reg are shared.
func NewStats(reg *prometheus.Registry) (*Stats, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	s := &Stats{gatherer: reg}
	var err error

	if s.archives, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "archive_total",
		Help:      "Number of archived fields",
	})); err != nil {
		return nil, err
	}
	if s.archiveBytes, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "archive_bytes_total",
		Help:      "Payload bytes archived",
	})); err != nil {
		return nil, err
	}
	if s.archiveTime, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "archive_duration_seconds",
		Help:      "Time spent archiving one field",
		Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
	})); err != nil {
		return nil, err
	}
	if s.retrieves, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "retrieve_total",
		Help:      "Number of retrieve requests",
	})); err != nil {
		return nil, err
	}
	if s.flushes, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "flush_total",
		Help:      "Number of flushes reaching the catalog",
	})); err != nil {
		return nil, err
	}
	if s.flushTime, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "flush_duration_seconds",
		Help:      "Time spent flushing",
		Buckets:   prometheus.DefBuckets,
	})); err != nil {
		return nil, err
	}
	if s.queryElements, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "query_elements_total",
		Help:      "Elements returned by catalog queries",
	}, []string{"tool"})); err != nil {
		return nil, err
	}
	if s.errors, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "errors_total",
		Help:      "Failed operations",
	}, []string{"operation"})); err != nil {
		return nil, err
	}

	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (s *Stats) Archived(bytes int, took time.Duration) {
	if s == nil {
		return
	}
	s.archives.Inc()
	s.archiveBytes.Add(float64(bytes))
	s.archiveTime.Observe(took.Seconds())
}

func (s *Stats) Retrieved() {
	if s == nil {
		return
	}
	s.retrieves.Inc()
}

func (s *Stats) Flushed(took time.Duration) {
	if s == nil {
		return
	}
	s.flushes.Inc()
	s.flushTime.Observe(took.Seconds())
}

// QueryElement counts one element returned by the named tool.
func (s *Stats) QueryElement(tool string) {
	if s == nil {
		return
	}
	s.queryElements.WithLabelValues(tool).Inc()
}

func (s *Stats) Failed(operation string) {
	if s == nil {
		return
	}
	s.errors.WithLabelValues(operation).Inc()
}

// Snapshot gathers the current values. Counters are reported by name with
// their labels, histograms as name_count and name_sum.
func (s *Stats) Snapshot() (map[string]float64, error) {
	values := make(map[string]float64)
	if s == nil {
		return values, nil
	}

	families, err := s.gatherer.Gather()
	if err != nil {
		return nil, err
	}

	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), namespace+"_") {
			continue
		}
		for _, m := range mf.GetMetric() {
			name := mf.GetName() + labels(m)
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				values[name] = m.GetCounter().GetValue()
			case dto.MetricType_GAUGE:
				values[name] = m.GetGauge().GetValue()
			case dto.MetricType_HISTOGRAM:
				values[name+"_count"] = float64(m.GetHistogram().GetSampleCount())
				values[name+"_sum"] = m.GetHistogram().GetSampleSum()
			}
		}
	}
	return values, nil
}

func labels(m *dto.Metric) string {
	pairs := m.GetLabel()
	if len(pairs) == 0 {
		return ""
	}
	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = fmt.Sprintf("%s=%q", p.GetName(), p.GetValue())
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// Report writes the snapshot sorted by name.
func (s *Stats) Report(w io.Writer) error {
	values, err := s.Snapshot()
	if err != nil {
		return err
	}

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if _, err := fmt.Fprintf(w, "%s %g\n", name, values[name]); err != nil {
			return err
		}
	}
	return nil
}
