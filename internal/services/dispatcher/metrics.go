package dispatcher

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/LeonardoBeccarini/telldus_queue/internal/model"
	"github.com/LeonardoBeccarini/telldus_queue/pkg/txqueue"
)

const metricPrefix = "telldus_"

var (
	registerOnce sync.Once

	commandsEnqueued   *prometheus.CounterVec
	commandsSuperseded *prometheus.CounterVec
	transmissions      *prometheus.CounterVec
	commandsDropped    *prometheus.CounterVec
	queueLength        prometheus.Gauge
	statusReports      *prometheus.CounterVec
	requestsRejected   *prometheus.CounterVec
)

func registerMetrics() {
	registerOnce.Do(func() {
		commandsEnqueued = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "commands_enqueued_total",
				Help: "Commands accepted into the TX queue by action",
			},
			[]string{"action"},
		)
		commandsSuperseded = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "commands_superseded_total",
				Help: "Queued commands invalidated by a newer command for the same device",
			},
			[]string{"action"},
		)
		transmissions = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "transmissions_total",
				Help: "Radio transmissions by action and result",
			},
			[]string{"action", "result"},
		)
		commandsDropped = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "commands_dropped_total",
				Help: "Commands removed from the TX queue by reason",
			},
			[]string{"reason"},
		)
		queueLength = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "queue_length",
				Help: "Records in the TX queue after the last enqueue",
			},
		)
		statusReports = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "status_reports_total",
				Help: "Status reports from the bridge, delivered or suppressed as duplicates",
			},
			[]string{"outcome"},
		)
		requestsRejected = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "requests_rejected_total",
				Help: "Command requests rejected at the service edge by surface",
			},
			[]string{"surface"},
		)

		prometheus.MustRegister(
			commandsEnqueued,
			commandsSuperseded,
			transmissions,
			commandsDropped,
			queueLength,
			statusReports,
			requestsRejected,
		)
	})
}

// Metrics exports scheduler and RX filter activity to Prometheus.
type Metrics struct{}

func NewMetrics() *Metrics {
	registerMetrics()
	return &Metrics{}
}

func (*Metrics) Enqueued(cmd model.Command, queued int) {
	commandsEnqueued.WithLabelValues(string(cmd.Action)).Inc()
	queueLength.Set(float64(queued))
}

func (*Metrics) Superseded(cmd model.Command) {
	commandsSuperseded.WithLabelValues(string(cmd.Action)).Inc()
}

func (*Metrics) Transmitted(cmd model.Command, _ int, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	transmissions.WithLabelValues(string(cmd.Action), result).Inc()
}

func (*Metrics) Dropped(_ model.Command, reason txqueue.DropReason) {
	commandsDropped.WithLabelValues(string(reason)).Inc()
}

func (*Metrics) Received(_ model.DeviceID, _ model.DeviceStatus, delivered bool) {
	outcome := "delivered"
	if !delivered {
		outcome = "duplicate"
	}
	statusReports.WithLabelValues(outcome).Inc()
}

func (*Metrics) Rejected(surface string) {
	requestsRejected.WithLabelValues(surface).Inc()
}
