package dispatcher

import (
	"net/http"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

type healthHandler struct {
	mqtt   mqtt.Client
	writer *Writer
	svc    *Service
}

// NewHealthHandler reports dependency state. A nil writer means Influx is
// disabled and counts as healthy.
func NewHealthHandler(m mqtt.Client, w *Writer, svc *Service) http.Handler {
	return &healthHandler{mqtt: m, writer: w, svc: svc}
}

func (h *healthHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	type status struct {
		Status          string  `json:"status"`
		MQTTConnected   bool    `json:"mqtt_connected"`
		InfluxEnabled   bool    `json:"influx_enabled"`
		LastWriteErrorS float64 `json:"last_write_error_age_sec"`
		Queued          int     `json:"queued"`
		Busy            bool    `json:"busy"`
	}
	st := status{
		MQTTConnected:   h.mqtt != nil && h.mqtt.IsConnectionOpen(),
		InfluxEnabled:   h.writer != nil,
		LastWriteErrorS: h.writer.LastErrorAge().Seconds(),
		Queued:          h.svc.Scheduler().Len(),
		Busy:            h.svc.Scheduler().Busy(),
	}

	writeOK := h.writer.LastErrorAge() > 30*time.Second
	switch {
	case st.MQTTConnected && writeOK:
		st.Status = "ok"
	case st.MQTTConnected:
		st.Status = "degraded"
	default:
		st.Status = "down"
	}
	writeJSON(w, http.StatusOK, st)
}

// Handler /readyz: 200 solo se MQTT e' connesso e Influx non ha errori recenti.
type readyHandler struct {
	mqtt     mqtt.Client
	writer   *Writer
	minError time.Duration
}

func NewReadyHandler(m mqtt.Client, w *Writer, minOkErrorAge time.Duration) http.Handler {
	return &readyHandler{mqtt: m, writer: w, minError: minOkErrorAge}
}

func (h *readyHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	type resp struct {
		Ready bool `json:"ready"`
	}
	ready := h.mqtt != nil && h.mqtt.IsConnectionOpen() && h.writer.LastErrorAge() > h.minError
	code := http.StatusOK
	if !ready {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp{Ready: ready})
}
