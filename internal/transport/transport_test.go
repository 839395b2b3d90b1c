package transport

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/LeonardoBeccarini/telldus_queue/internal/model"
	"github.com/LeonardoBeccarini/telldus_queue/internal/model/messages"
	"github.com/LeonardoBeccarini/telldus_queue/pkg/mqttbus/mqttbustest"
)

func TestSendPublishesBridgeCommand(t *testing.T) {
	client := mqttbustest.NewClient()
	tr := NewMQTT(client, BreakerConfig{})

	if err := tr.Send(context.Background(), model.Command{DeviceID: 12, Action: model.ActionDim, Level: 128}); err != nil {
		t.Fatalf("send: %v", err)
	}
	got := client.Published(CommandTopicPrefix)
	if len(got) != 1 || got[0].Topic != "telldus/bridge/command/12" {
		t.Fatalf("unexpected publishes %+v", got)
	}
	var msg messages.BridgeCommand
	if err := json.Unmarshal(got[0].Payload, &msg); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if msg.DeviceID != 12 || msg.Method != "dim" || msg.Level == nil || *msg.Level != 128 {
		t.Fatalf("unexpected bridge command %+v", msg)
	}
}

func TestSendOmitsLevelForSwitches(t *testing.T) {
	client := mqttbustest.NewClient()
	tr := NewMQTT(client, BreakerConfig{})
	if err := tr.Send(context.Background(), model.Command{DeviceID: 1, Action: model.ActionTurnOff}); err != nil {
		t.Fatalf("send: %v", err)
	}
	var msg messages.BridgeCommand
	_ = json.Unmarshal(client.Published("")[0].Payload, &msg)
	if msg.Method != "turnOff" || msg.Level != nil {
		t.Fatalf("unexpected bridge command %+v", msg)
	}
}

func TestSendHonoursCancelledContext(t *testing.T) {
	client := mqttbustest.NewClient()
	tr := NewMQTT(client, BreakerConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := tr.Send(ctx, model.Command{DeviceID: 1, Action: model.ActionBell}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if n := len(client.Published("")); n != 0 {
		t.Fatalf("expected nothing published, got %d", n)
	}
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	boom := errors.New("broker down")
	client := mqttbustest.NewClient()
	client.PublishErr = boom
	tr := NewMQTT(client, BreakerConfig{Fails: 2, OpenMs: 60000})
	cmd := model.Command{DeviceID: 3, Action: model.ActionTurnOn}

	for i := 0; i < 2; i++ {
		if err := tr.Send(context.Background(), cmd); !errors.Is(err, boom) {
			t.Fatalf("send %d: expected publish error, got %v", i, err)
		}
	}
	client.PublishErr = nil
	if err := tr.Send(context.Background(), cmd); !errors.Is(err, ErrBreakerOpen) {
		t.Fatalf("expected open breaker, got %v", err)
	}
}

func TestEventsReachHandler(t *testing.T) {
	client := mqttbustest.NewClient()
	tr := NewMQTT(client, BreakerConfig{})

	type report struct {
		id     model.DeviceID
		status model.DeviceStatus
	}
	got := make(chan report, 4)
	tr.SetEventHandler(func(id model.DeviceID, st model.DeviceStatus) { got <- report{id, st} })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = tr.Listen(ctx) }()
	deadline := time.Now().Add(2 * time.Second)
	for !client.Subscribed(EventTopicPrefix + "#") {
		if time.Now().After(deadline) {
			t.Fatalf("transport never subscribed")
		}
		time.Sleep(time.Millisecond)
	}

	client.Deliver("telldus/bridge/event/5", []byte(`{"status":{"name":"on"}}`))
	client.Deliver("telldus/bridge/event/5", []byte(`not json`))
	client.Deliver("telldus/bridge/event/6", []byte(`{"device_id":6,"status":{"name":"DIM","dimlevel":40}}`))

	r := <-got
	if r.id != 5 || r.status.Name != "ON" {
		t.Fatalf("unexpected first report %+v", r)
	}
	r = <-got
	if r.id != 6 || r.status.DimLevel == nil || *r.status.DimLevel != 40 {
		t.Fatalf("unexpected second report %+v", r)
	}
}

func TestDecodeEventRejectsMissingStatus(t *testing.T) {
	if _, err := DecodeEvent("telldus/bridge/event/1", []byte(`{"device_id":1}`)); err == nil {
		t.Fatalf("expected error for event without status")
	}
}
