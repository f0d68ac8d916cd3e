package statusserver

import (
	"github.com/Jacob-Tate/docker-swarm-discord-monitor/internal/monitorservice"
	"github.com/prometheus/client_golang/prometheus"
)

// metrics live on a dedicated registry so several servers can coexist in one
// process, which the default registry does not allow.
type metrics struct {
	registry          *prometheus.Registry
	eventsTotal       *prometheus.CounterVec
	deliveriesTotal   *prometheus.CounterVec
	deliveryAttempts  prometheus.Counter
	sourceConnected   prometheus.Gauge
	sourceDisconnects prometheus.Counter
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "swarm_monitor",
			Name:      "events_total",
			Help:      "Number of container events by kind and result",
		}, []string{"kind", "result"}),
		deliveriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "swarm_monitor",
			Name:      "deliveries_total",
			Help:      "Number of webhook deliveries by outcome",
		}, []string{"outcome"}),
		deliveryAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "swarm_monitor",
			Name:      "delivery_attempts_total",
			Help:      "Number of webhook requests across all deliveries",
		}),
		sourceConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "swarm_monitor",
			Name:      "source_connected",
			Help:      "Whether the docker event stream is currently connected",
		}),
		sourceDisconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "swarm_monitor",
			Name:      "source_disconnects_total",
			Help:      "Number of times the docker event stream dropped",
		}),
	}
	m.registry.MustRegister(
		m.eventsTotal, m.deliveriesTotal, m.deliveryAttempts,
		m.sourceConnected, m.sourceDisconnects,
	)
	return m
}

func (m *metrics) observe(anyMessage any) {
	switch message := anyMessage.(type) {
	case *monitorservice.EventAcceptedMessage:
		m.eventsTotal.WithLabelValues(string(message.Event.Kind), "accepted").Inc()
	case *monitorservice.EventSuppressedMessage:
		m.eventsTotal.WithLabelValues(string(message.Event.Kind), "suppressed").Inc()
	case *monitorservice.DeliveryCompletedMessage:
		m.deliveriesTotal.WithLabelValues(string(message.Outcome.Status)).Inc()
		m.deliveryAttempts.Add(float64(message.Outcome.Attempts))
	case *monitorservice.SourceConnectedMessage:
		m.sourceConnected.Set(1)
	case *monitorservice.SourceDisconnectedMessage:
		m.sourceConnected.Set(0)
		m.sourceDisconnects.Inc()
	}
}
