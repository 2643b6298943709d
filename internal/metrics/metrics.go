// Package metrics records dispatch and delivery outcomes with Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder is consumed by the dispatcher and the notification router.
type Recorder interface {
	ObserveUpdate(kind, outcome string)
	ObserveDelivery(purpose string, ok bool)
}

// PrometheusRecorder implements Recorder with counter vectors.
type PrometheusRecorder struct {
	updatesTotal    *prometheus.CounterVec
	deliveriesTotal *prometheus.CounterVec
}

// NewPrometheusRecorder registers its collectors with reg.
func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	f := promauto.With(reg)
	return &PrometheusRecorder{
		updatesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "feedback_bot_updates_total",
				Help: "Inbound chat updates by kind and dispatch outcome",
			},
			[]string{"kind", "outcome"},
		),
		deliveriesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "feedback_bot_deliveries_total",
				Help: "Outbound message attempts by purpose and status",
			},
			[]string{"purpose", "status"},
		),
	}
}

func (p *PrometheusRecorder) ObserveUpdate(kind, outcome string) {
	p.updatesTotal.WithLabelValues(kind, outcome).Inc()
}

func (p *PrometheusRecorder) ObserveDelivery(purpose string, ok bool) {
	status := "ok"
	if !ok {
		status = "failed"
	}
	p.deliveriesTotal.WithLabelValues(purpose, status).Inc()
}

// Nop discards all observations.
type Nop struct{}

func (Nop) ObserveUpdate(string, string) {}
func (Nop) ObserveDelivery(string, bool) {}
