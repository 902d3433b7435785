// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package server

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "crlfilter"

type metrics struct {
	registry *prometheus.Registry

	requests      *prometheus.CounterVec
	buildDuration prometheus.Histogram
	latestVersion prometheus.Gauge
	filterSize    prometheus.Gauge
	notifyClients prometheus.Gauge
	publishes     prometheus.Counter
}

func newMetrics() (*metrics, error) {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served by route and status code",
		}, []string{"route", "code"}),
		buildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "build_duration_seconds",
			Help:      "Time spent building a filter",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		latestVersion: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "latest_version",
			Help:      "Latest published snapshot version",
		}),
		filterSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "filter_size_bytes",
			Help:      "Serialized size of the most recently built filter",
		}),
		notifyClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "notify_clients",
			Help:      "Connected notification clients",
		}),
		publishes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "publishes_total",
			Help:      "Snapshot versions published",
		}),
	}

	err := errors.Join(
		m.registry.Register(m.requests),
		m.registry.Register(m.buildDuration),
		m.registry.Register(m.latestVersion),
		m.registry.Register(m.filterSize),
		m.registry.Register(m.notifyClients),
		m.registry.Register(m.publishes),
		m.registry.Register(collectors.NewGoCollector()),
		m.registry.Register(collectors.NewProcessCollector(
			collectors.ProcessCollectorOpts{})),
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// instrument counts the responses of h under the given route label.
func (m *metrics) instrument(route string, h http.Handler) http.Handler {
	counter := m.requests.MustCurryWith(prometheus.Labels{"route": route})
	return promhttp.InstrumentHandlerCounter(counter, h)
}

// handler serves the registry in the prometheus exposition format.
func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		Registry: m.registry,
	})
}
