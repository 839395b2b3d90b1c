package mqttbus

import (
	"context"
	"log"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

type Handler func(topic string, msg mqtt.Message) error

// IConsumer subscribes and dispatches messages until the context is done.
type IConsumer interface {
	ConsumeMessage(ctx context.Context) error
	SetHandler(h Handler)
}

// Consumer dispatches messages of one or more topic filters to a handler.
type Consumer struct {
	client  mqtt.Client
	topics  []string
	qos     byte
	mu      sync.RWMutex
	handler Handler
}

func NewConsumer(client mqtt.Client, qos byte, handler Handler, topics ...string) *Consumer {
	return &Consumer{client: client, topics: topics, qos: qos, handler: handler}
}

func (c *Consumer) SetHandler(h Handler) {
	c.mu.Lock()
	c.handler = h
	c.mu.Unlock()
}

func (c *Consumer) dispatch(filter string) mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		c.mu.RLock()
		h := c.handler
		c.mu.RUnlock()
		if h == nil {
			log.Printf("mqttbus: no handler for %s", filter)
			return
		}
		if err := h(msg.Topic(), msg); err != nil {
			log.Printf("mqttbus: handling %s: %v", msg.Topic(), err)
		}
	}
}

// Subscribe registers every topic filter and returns without blocking.
func (c *Consumer) Subscribe() error {
	for _, topic := range c.topics {
		token := c.client.Subscribe(topic, c.qos, c.dispatch(topic))
		token.Wait()
		if err := token.Error(); err != nil {
			return err
		}
		log.Printf("mqttbus: subscribed to %s", topic)
	}
	return nil
}

// ConsumeMessage subscribes and blocks until ctx is cancelled, then
// unsubscribes.
func (c *Consumer) ConsumeMessage(ctx context.Context) error {
	if err := c.Subscribe(); err != nil {
		return err
	}
	<-ctx.Done()
	c.client.Unsubscribe(c.topics...).Wait()
	return nil
}
