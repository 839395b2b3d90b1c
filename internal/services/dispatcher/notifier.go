package dispatcher

import (
	"log"
	"time"

	"github.com/LeonardoBeccarini/telldus_queue/internal/model"
	"github.com/LeonardoBeccarini/telldus_queue/internal/model/messages"
	"github.com/LeonardoBeccarini/telldus_queue/pkg/mqttbus"
)

const (
	ResultTopicPrefix = "telldus/result/"
	StatusTopicPrefix = "telldus/status/"
)

// Notifier publishes command outcomes and deduplicated statuses on MQTT and
// hands them to the sink. Both pub and sink may be nil.
type Notifier struct {
	pub  mqttbus.IPublisher
	sink Sink
	now  func() time.Time
}

func NewNotifier(pub mqttbus.IPublisher, sink Sink) *Notifier {
	return &Notifier{pub: pub, sink: sink, now: time.Now}
}

// Result reports the first transmission outcome of cmd.
func (n *Notifier) Result(requestID string, cmd model.Command, err error) model.CommandResultEvent {
	res := messages.CommandResultEvent{
		RequestID: requestID,
		DeviceID:  int(cmd.DeviceID),
		Action:    string(cmd.Action),
		Status:    messages.ResultOK,
		Timestamp: n.now().UTC(),
	}
	if cmd.Action == model.ActionDim {
		lvl := int(cmd.Level)
		res.Level = &lvl
	}
	if err != nil {
		res.Status = messages.ResultFail
		res.Reason = err.Error()
	}
	n.emit(res)
	return res
}

// Rejected reports a request that never made it into the queue.
func (n *Notifier) Rejected(req model.CommandRequest, err error) model.CommandResultEvent {
	res := messages.CommandResultEvent{
		RequestID: req.RequestID,
		DeviceID:  req.DeviceID,
		Action:    req.Action,
		Level:     req.Level,
		Status:    messages.ResultFail,
		Reason:    err.Error(),
		Timestamp: n.now().UTC(),
	}
	n.emit(res)
	return res
}

func (n *Notifier) emit(res model.CommandResultEvent) {
	if n.pub != nil {
		topic := ResultTopicPrefix + model.DeviceID(res.DeviceID).String()
		if err := n.pub.PublishJSON(topic, res); err != nil {
			log.Printf("dispatcher: result publish failed: %v", err)
		}
	}
	if n.sink != nil {
		n.sink.WriteResult(res)
	}
}

// Status forwards one deduplicated report. It has the StatusListener shape.
func (n *Notifier) Status(id model.DeviceID, status model.DeviceStatus) {
	ev := messages.DeviceEvent{DeviceID: int(id), Status: status, Timestamp: n.now().UTC()}
	if n.pub != nil {
		if err := n.pub.PublishJSON(StatusTopicPrefix+id.String(), ev); err != nil {
			log.Printf("dispatcher: status publish failed: %v", err)
		}
	}
	if n.sink != nil {
		n.sink.WriteStatus(ev)
	}
}
