// Package transport connects the command queue to the RF bridge over MQTT.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sony/gobreaker"

	"github.com/LeonardoBeccarini/telldus_queue/internal/model"
	"github.com/LeonardoBeccarini/telldus_queue/internal/model/messages"
	"github.com/LeonardoBeccarini/telldus_queue/pkg/mqttbus"
)

const (
	CommandTopicPrefix = "telldus/bridge/command/"
	EventTopicPrefix   = "telldus/bridge/event/"
)

var ErrBreakerOpen = errors.New("transport: bridge circuit open")

// EventHandler receives every raw status report, duplicates included.
type EventHandler func(id model.DeviceID, status model.DeviceStatus)

// Transport is the fire-and-forget radio link: one send primitive and one
// event source.
type Transport interface {
	Send(ctx context.Context, cmd model.Command) error
	SetEventHandler(h EventHandler)
}

type BreakerConfig struct {
	Fails      int `yaml:"fails"`
	OpenMs     int `yaml:"open_ms"`
	IntervalMs int `yaml:"interval_ms"`
}

func newBreaker(name string, cfg BreakerConfig) *gobreaker.CircuitBreaker {
	fails := cfg.Fails
	if fails < 1 {
		fails = 5
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     name,
		Interval: time.Duration(cfg.IntervalMs) * time.Millisecond,
		Timeout:  time.Duration(cfg.OpenMs) * time.Millisecond,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= uint32(fails)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("transport: breaker %s %s -> %s", name, from, to)
		},
	})
}

// MQTT publishes bridge commands and decodes bridge status reports.
type MQTT struct {
	client   mqtt.Client
	pub      *mqttbus.Publisher
	consumer *mqttbus.Consumer
	cb       *gobreaker.CircuitBreaker
	now      func() time.Time

	mu      sync.RWMutex
	handler EventHandler
}

func NewMQTT(client mqtt.Client, cfg BreakerConfig) *MQTT {
	t := &MQTT{
		client: client,
		pub:    mqttbus.NewPublisher(client, 0, false),
		cb:     newBreaker("rf-bridge", cfg),
		now:    time.Now,
	}
	t.consumer = mqttbus.NewConsumer(client, 0, t.handleEvent, EventTopicPrefix+"#")
	return t
}

// Send publishes cmd on the bridge command topic. The radio gives no
// acknowledgment, so a nil error only means the broker took the message.
func (t *MQTT) Send(ctx context.Context, cmd model.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := messages.BridgeCommand{
		DeviceID:  int(cmd.DeviceID),
		Method:    string(cmd.Action),
		Timestamp: t.now().UTC(),
	}
	if cmd.Action == model.ActionDim {
		lvl := int(cmd.Level)
		msg.Level = &lvl
	}
	topic := CommandTopicPrefix + cmd.DeviceID.String()
	_, err := t.cb.Execute(func() (any, error) {
		return nil, t.pub.PublishJSON(topic, msg)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrBreakerOpen, err)
	}
	return err
}

func (t *MQTT) SetEventHandler(h EventHandler) {
	t.mu.Lock()
	t.handler = h
	t.mu.Unlock()
}

// Listen subscribes to bridge events and blocks until ctx is done.
func (t *MQTT) Listen(ctx context.Context) error {
	return t.consumer.ConsumeMessage(ctx)
}

func (t *MQTT) handleEvent(topic string, msg mqtt.Message) error {
	ev, err := DecodeEvent(topic, msg.Payload())
	if err != nil {
		return err
	}
	t.mu.RLock()
	h := t.handler
	t.mu.RUnlock()
	if h != nil {
		h(model.DeviceID(ev.DeviceID), ev.Status)
	}
	return nil
}

// DecodeEvent parses a bridge status report. The device id is taken from the
// topic when the payload leaves it out.
func DecodeEvent(topic string, payload []byte) (messages.DeviceEvent, error) {
	var ev messages.DeviceEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return ev, fmt.Errorf("transport: bad event on %s: %w", topic, err)
	}
	if ev.DeviceID == 0 {
		if id, err := strconv.Atoi(strings.TrimPrefix(topic, EventTopicPrefix)); err == nil {
			ev.DeviceID = id
		}
	}
	if strings.TrimSpace(ev.Status.Name) == "" {
		return ev, fmt.Errorf("transport: event on %s without status", topic)
	}
	ev.Status.Name = strings.ToUpper(ev.Status.Name)
	return ev, nil
}
