package messages

import (
	"time"

	"github.com/LeonardoBeccarini/telldus_queue/internal/model/entities"
)

// DeviceEvent is a status report, either raw from the bridge or deduplicated
// on its way to subscribers.
type DeviceEvent struct {
	DeviceID  int                   `json:"device_id"`
	Status    entities.DeviceStatus `json:"status"`
	Timestamp time.Time             `json:"timestamp"`
}
