/*
Copyright 2025 The KCP Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package metrics

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"k8s.io/klog/v2"
)

const (
	MetricNamespace        = "restclient"
	AuthorizationSubsystem = "authorization"

	LabelResult = "result"
)

// Results of a current user lookup.
const (
	ResultAuthorized   = "authorized"
	ResultUnauthorized = "unauthorized"
	ResultError        = "error"
)

// Registry holds the client metrics. Instruments are recorded to a private
// Prometheus registry and to the global OpenTelemetry meter provider.
type Registry struct {
	mu sync.RWMutex

	promRegistry *prometheus.Registry
	meter        metric.Meter
	enabled      bool

	userLookups        *prometheus.CounterVec
	userLookupDuration *prometheus.HistogramVec
	otelUserLookups    metric.Int64Counter
}

var (
	globalRegistry *Registry
	registryOnce   sync.Once
)

// NewRegistry creates a registry with all instruments registered.
func NewRegistry(enabled bool) (*Registry, error) {
	r := &Registry{
		promRegistry: prometheus.NewRegistry(),
		meter:        otel.Meter("github.com/openshift/restclient-go/metrics"),
		enabled:      enabled,
		userLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: MetricNamespace,
			Subsystem: AuthorizationSubsystem,
			Name:      "user_lookups_total",
			Help:      "Number of current user lookups performed to verify a token, by result.",
		}, []string{LabelResult}),
		userLookupDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: MetricNamespace,
			Subsystem: AuthorizationSubsystem,
			Name:      "user_lookup_duration_seconds",
			Help:      "Latency of current user lookups, by result.",
			Buckets:   prometheus.DefBuckets,
		}, []string{LabelResult}),
	}

	if err := r.promRegistry.Register(r.userLookups); err != nil {
		return nil, fmt.Errorf("failed to register user lookup counter: %w", err)
	}
	if err := r.promRegistry.Register(r.userLookupDuration); err != nil {
		return nil, fmt.Errorf("failed to register user lookup histogram: %w", err)
	}

	counter, err := r.meter.Int64Counter(
		MetricNamespace+"."+AuthorizationSubsystem+".user_lookups",
		metric.WithDescription("Number of current user lookups performed to verify a token."),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create user lookup instrument: %w", err)
	}
	r.otelUserLookups = counter

	klog.V(4).InfoS("Created metrics registry", "enabled", enabled)
	return r, nil
}

// GetRegistry returns the process wide registry, creating it if necessary.
func GetRegistry() *Registry {
	registryOnce.Do(func() {
		r, err := NewRegistry(true)
		if err != nil {
			// only reachable through duplicate registration on a fresh registry
			panic(err)
		}
		globalRegistry = r
	})
	return globalRegistry
}

// ObserveUserLookup records one current user lookup.
func (r *Registry) ObserveUserLookup(ctx context.Context, result string, duration time.Duration) {
	if !r.IsEnabled() {
		return
	}

	r.userLookups.WithLabelValues(result).Inc()
	r.userLookupDuration.WithLabelValues(result).Observe(duration.Seconds())
	r.otelUserLookups.Add(ctx, 1, metric.WithAttributes(attribute.String(LabelResult, result)))
}

// LogUserLookups writes the number and total latency of user lookups per
// result to logger.
func (r *Registry) LogUserLookups(logger klog.Logger) {
	for _, summary := range r.UserLookups() {
		logger.Info("User lookups", "result", summary.Result, "count", summary.Count, "latency", summary.Latency)
	}
}

// UserLookupSummary aggregates the lookups of one result.
type UserLookupSummary struct {
	Result  string
	Count   uint64
	Latency time.Duration
}

// UserLookups returns the recorded lookups by result, in result order.
func (r *Registry) UserLookups() []UserLookupSummary {
	m := &dto.Metric{}
	var summaries []UserLookupSummary
	for _, result := range []string{ResultAuthorized, ResultUnauthorized, ResultError} {
		observer, err := r.userLookupDuration.GetMetricWithLabelValues(result)
		if err != nil {
			continue
		}
		m.Reset()
		if err := observer.(prometheus.Metric).Write(m); err != nil {
			klog.V(4).InfoS("Failed to read user lookup histogram", "result", result, "err", err)
			continue
		}
		histogram := m.GetHistogram()
		if histogram.GetSampleCount() == 0 {
			continue
		}
		summaries = append(summaries, UserLookupSummary{
			Result:  result,
			Count:   histogram.GetSampleCount(),
			Latency: time.Duration(histogram.GetSampleSum() * float64(time.Second)),
		})
	}
	return summaries
}

// SetEnabled turns recording on or off.
func (r *Registry) SetEnabled(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enabled = enabled
}

func (r *Registry) IsEnabled() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.enabled
}

// GetPrometheusRegistry returns the internal Prometheus registry.
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.promRegistry
}

// Handler serves the Prometheus registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.promRegistry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Register adds a collector to the Prometheus registry.
func (r *Registry) Register(collector prometheus.Collector) error {
	return r.promRegistry.Register(collector)
}
