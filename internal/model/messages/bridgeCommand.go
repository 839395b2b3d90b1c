package messages

import "time"

// BridgeCommand is what the RF bridge consumes: one radio transmission.
type BridgeCommand struct {
	DeviceID  int       `json:"device_id"`
	Method    string    `json:"method"`
	Level     *int      `json:"level,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
