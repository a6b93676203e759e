// Package mqtttest provides an in-memory mqtt.Client for tests.
package mqtttest

import (
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

type token struct {
	err error
}

func (t *token) Wait() bool                     { return true }
func (t *token) WaitTimeout(time.Duration) bool { return true }
func (t *token) Error() error                   { return t.err }

func (t *token) Done() <-chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}

// Message is a published or delivered message.
type Message struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

func (m *Message) Duplicate() bool   { return false }
func (m *Message) Qos() byte         { return m.qos }
func (m *Message) Retained() bool    { return m.retained }
func (m *Message) Topic() string     { return m.topic }
func (m *Message) MessageID() uint16 { return 0 }
func (m *Message) Payload() []byte   { return m.payload }
func (m *Message) Ack()              {}

// Client records everything published, and routes messages passed to
// Deliver to the handlers subscribed for the exact topic.
type Client struct {
	mu        sync.Mutex
	Published []*Message
	handlers  map[string]mqtt.MessageHandler
	connected bool
}

var _ mqtt.Client = &Client{}

func New() *Client {
	return &Client{handlers: map[string]mqtt.MessageHandler{}, connected: true}
}

func (c *Client) IsConnected() bool      { return c.connected }
func (c *Client) IsConnectionOpen() bool { return c.connected }
func (c *Client) Connect() mqtt.Token    { c.connected = true; return &token{} }
func (c *Client) Disconnect(uint)        { c.connected = false }

func (c *Client) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	var b []byte
	switch p := payload.(type) {
	case []byte:
		b = p
	case string:
		b = []byte(p)
	default:
		return &token{err: fmt.Errorf("unsupported payload type %T", payload)}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Published = append(c.Published, &Message{topic: topic, payload: b, qos: qos, retained: retained})
	return &token{}
}

func (c *Client) Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[topic] = callback
	return &token{}
}

func (c *Client) SubscribeMultiple(filters map[string]byte, callback mqtt.MessageHandler) mqtt.Token {
	for topic, qos := range filters {
		c.Subscribe(topic, qos, callback)
	}
	return &token{}
}

func (c *Client) Unsubscribe(topics ...string) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, topic := range topics {
		delete(c.handlers, topic)
	}
	return &token{}
}

func (c *Client) AddRoute(topic string, callback mqtt.MessageHandler) {
	c.Subscribe(topic, 0, callback)
}

func (c *Client) OptionsReader() mqtt.ClientOptionsReader {
	return mqtt.ClientOptionsReader{}
}

// Subscribed tells whether a handler is registered for topic.
func (c *Client) Subscribed(topic string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.handlers[topic]
	return ok
}

// Deliver calls the handler subscribed to topic, synchronously.
func (c *Client) Deliver(topic string, payload []byte) error {
	c.mu.Lock()
	handler, ok := c.handlers[topic]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("nobody subscribed to %s", topic)
	}
	handler(c, &Message{topic: topic, payload: payload})
	return nil
}

// Last returns the last payload published to topic.
func (c *Client) Last(topic string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.Published) - 1; i >= 0; i-- {
		if c.Published[i].topic == topic {
			return c.Published[i].payload, true
		}
	}
	return nil, false
}
