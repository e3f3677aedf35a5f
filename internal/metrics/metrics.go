// Package metrics exposes Prometheus metrics for the dialogue store
// server. Everything is registered on a private registry so tests and
// multiple servers in one process do not collide.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "dialoguetree"

// Collector holds the server metrics
type Collector struct {
	registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	EventsTotal     *prometheus.CounterVec
	StoreNodes      prometheus.Gauge
	StoreConns      prometheus.Gauge
	SSEClients      prometheus.Gauge
	WatcherReloads  *prometheus.CounterVec
}

// New creates and registers the server metrics
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),

		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),

		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),

		EventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "store",
				Name:      "events_total",
				Help:      "Total number of store events published",
			},
			[]string{"type"},
		),

		StoreNodes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "store",
				Name:      "nodes",
				Help:      "Number of dialogue nodes in the store",
			},
		),

		StoreConns: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "store",
				Name:      "connections",
				Help:      "Number of connections in the store",
			},
		),

		SSEClients: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "sse",
				Name:      "clients",
				Help:      "Number of connected SSE clients",
			},
		),

		WatcherReloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "watcher",
				Name:      "reloads_total",
				Help:      "Snapshot file reloads by outcome",
			},
			[]string{"status"},
		),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.RequestsTotal,
		c.RequestDuration,
		c.EventsTotal,
		c.StoreNodes,
		c.StoreConns,
		c.SSEClients,
		c.WatcherReloads,
	)
	return c
}

// Registry returns the registry the metrics live on
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the metrics in the Prometheus text format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one finished HTTP request
func (c *Collector) ObserveRequest(method, route string, status int, d time.Duration) {
	c.RequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.RequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// ObserveStore sets the store size gauges
func (c *Collector) ObserveStore(nodes, connections int) {
	c.StoreNodes.Set(float64(nodes))
	c.StoreConns.Set(float64(connections))
}

// ObserveEvent counts a published store event
func (c *Collector) ObserveEvent(kind string) {
	c.EventsTotal.WithLabelValues(kind).Inc()
}

// SetSSEClients sets the connected client gauge
func (c *Collector) SetSSEClients(n int) {
	c.SSEClients.Set(float64(n))
}

// ObserveReload counts a watcher reload; err nil means success
func (c *Collector) ObserveReload(err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.WatcherReloads.WithLabelValues(status).Inc()
}
