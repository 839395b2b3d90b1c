package messages

import "time"

// CommandResultEvent is published once per command, after its first
// transmission outcome or when it left the queue without being sent.
type CommandResultEvent struct {
	RequestID string    `json:"request_id,omitempty"`
	DeviceID  int       `json:"device_id"`
	Action    string    `json:"action"`
	Level     *int      `json:"level,omitempty"`
	Status    string    `json:"status"`           // "OK" | "FAIL"
	Reason    string    `json:"reason,omitempty"` // transport error text on FAIL
	Timestamp time.Time `json:"timestamp"`
}

const (
	ResultOK   = "OK"
	ResultFail = "FAIL"
)
