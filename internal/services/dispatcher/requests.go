package dispatcher

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/LeonardoBeccarini/telldus_queue/internal/model"
	"github.com/LeonardoBeccarini/telldus_queue/pkg/dedup"
)

// RequestHandler consumes command requests from MQTT. QoS1 redeliveries are
// dropped by request id, or by payload hash when the id is missing.
type RequestHandler struct {
	intake *Intake
	notify *Notifier
	seen   *dedup.Deduper
}

func NewRequestHandler(in *Intake, notify *Notifier, seen *dedup.Deduper) *RequestHandler {
	return &RequestHandler{intake: in, notify: notify, seen: seen}
}

func (h *RequestHandler) Handle(topic string, msg mqtt.Message) error {
	var req model.CommandRequest
	if err := json.Unmarshal(msg.Payload(), &req); err != nil {
		return fmt.Errorf("dispatcher: bad request on %s: %w", topic, err)
	}
	if h.seen != nil && !h.seen.ShouldProcess(requestKey(req, msg.Payload())) {
		return nil
	}
	// topic telldus/request/{device}: il device nel topic vale se manca nel payload
	if req.DeviceID == 0 {
		if i := strings.LastIndex(topic, "/"); i >= 0 {
			if id, err := model.ParseDeviceID(topic[i+1:]); err == nil {
				req.DeviceID = int(id)
			}
		}
	}
	if _, err := h.intake.Submit(req, SurfaceMQTT); err != nil {
		if h.notify != nil {
			h.notify.Rejected(req, err)
		}
		return err
	}
	return nil
}

func requestKey(req model.CommandRequest, payload []byte) string {
	if req.RequestID != "" {
		return "id:" + req.RequestID
	}
	sum := sha256.Sum256(payload)
	return "sha:" + hex.EncodeToString(sum[:])
}
