package messages

// CommandRequest arrives on the dispatcher's request topic.
// Level is only read for the dim action.
type CommandRequest struct {
	RequestID string `json:"request_id,omitempty"`
	DeviceID  int    `json:"device_id"`
	Action    string `json:"action"`
	Level     *int   `json:"level,omitempty"`
}
