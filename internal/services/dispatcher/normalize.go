package dispatcher

import (
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/LeonardoBeccarini/telldus_queue/internal/model"
)

const (
	measurementStatus = "device_status"
	measurementResult = "command_result"
)

// StatusToPoint maps a deduplicated status report to one point, tagged by
// device and status name.
func StatusToPoint(ev model.DeviceEvent) *write.Point {
	tags := map[string]string{
		"device_id": model.DeviceID(ev.DeviceID).String(),
		"status":    ev.Status.Name,
	}
	fields := map[string]interface{}{
		"count": int64(1),
	}
	if ev.Status.DimLevel != nil {
		fields["dimlevel"] = int64(*ev.Status.DimLevel)
	}
	return influxdb2.NewPoint(measurementStatus, tags, fields, ev.Timestamp)
}

func ResultToPoint(res model.CommandResultEvent) *write.Point {
	tags := map[string]string{
		"device_id": model.DeviceID(res.DeviceID).String(),
		"action":    res.Action,
		"status":    res.Status,
	}
	fields := map[string]interface{}{
		"count": int64(1),
	}
	if res.Level != nil {
		fields["level"] = int64(*res.Level)
	}
	if res.Reason != "" {
		fields["reason"] = res.Reason
	}
	if res.RequestID != "" {
		fields["request_id"] = res.RequestID
	}
	return influxdb2.NewPoint(measurementResult, tags, fields, res.Timestamp)
}
