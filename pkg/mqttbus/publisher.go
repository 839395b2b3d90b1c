package mqttbus

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// IPublisher publishes a JSON payload on a topic.
type IPublisher interface {
	PublishJSON(topic string, v any) error
}

// Publisher publishes on any topic through a shared client.
type Publisher struct {
	client  mqtt.Client
	qos     byte
	retain  bool
	timeout time.Duration
}

func NewPublisher(client mqtt.Client, qos byte, retain bool) *Publisher {
	return &Publisher{client: client, qos: qos, retain: retain, timeout: 5 * time.Second}
}

func (p *Publisher) Publish(topic string, payload []byte) error {
	token := p.client.Publish(topic, p.qos, p.retain, payload)
	if !token.WaitTimeout(p.timeout) {
		return fmt.Errorf("mqttbus: publish to %s timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqttbus: publish to %s: %w", topic, err)
	}
	return nil
}

func (p *Publisher) PublishJSON(topic string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("mqttbus: marshal for %s: %w", topic, err)
	}
	return p.Publish(topic, b)
}
