// Package metrics exposes marketplace counters on a prometheus registry.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

type Metrics struct {
	Registry *prometheus.Registry

	Bids               *prometheus.CounterVec
	Offers             *prometheus.CounterVec
	Settlements        *prometheus.CounterVec
	SettlementDuration prometheus.Histogram
	LedgerEntries      *prometheus.CounterVec
	HTTPRequests       *prometheus.CounterVec
	Subscribers        prometheus.Gauge
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		Registry: registry,
		Bids: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "onebid_bids_total",
				Help: "Bids placed, by outcome.",
			},
			[]string{"status"},
		),
		Offers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "onebid_offers_total",
				Help: "Offers placed, by outcome.",
			},
			[]string{"status"},
		),
		Settlements: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "onebid_settlements_total",
				Help: "Settlement attempts by sale type and outcome.",
			},
			[]string{"type", "status"},
		),
		SettlementDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "onebid_settlement_duration_seconds",
				Help:    "Settlement transaction duration in seconds.",
				Buckets: prometheus.DefBuckets,
			},
		),
		LedgerEntries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "onebid_ledger_entries_total",
				Help: "Ledger entries committed, by type.",
			},
			[]string{"type"},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "onebid_http_requests_total",
				Help: "HTTP requests by method and status code.",
			},
			[]string{"method", "status"},
		),
		Subscribers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "onebid_realtime_subscribers",
				Help: "Connected change-feed subscribers.",
			},
		),
	}

	registry.MustRegister(m.Bids, m.Offers, m.Settlements, m.SettlementDuration, m.LedgerEntries, m.HTTPRequests, m.Subscribers)
	return m
}

func (m *Metrics) Bid(status string) {
	if m != nil {
		m.Bids.WithLabelValues(status).Inc()
	}
}

func (m *Metrics) Offer(status string) {
	if m != nil {
		m.Offers.WithLabelValues(status).Inc()
	}
}

func (m *Metrics) Settlement(saleType, status string, started time.Time) {
	if m != nil {
		m.Settlements.WithLabelValues(saleType, status).Inc()
		m.SettlementDuration.Observe(time.Since(started).Seconds())
	}
}

func (m *Metrics) Ledger(txType string) {
	if m != nil {
		m.LedgerEntries.WithLabelValues(txType).Inc()
	}
}

func (m *Metrics) Request(method, status string) {
	if m != nil {
		m.HTTPRequests.WithLabelValues(method, status).Inc()
	}
}

func (m *Metrics) Subscribed(delta float64) {
	if m != nil {
		m.Subscribers.Add(delta)
	}
}
