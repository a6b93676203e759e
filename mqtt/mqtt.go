package mqtt

import (
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
)

const (
	timeout = 10 * time.Second
)

// Will is the message the broker publishes on our behalf once the
// connection drops.
type Will struct {
	Topic   string
	Payload string
}

// clientOptions builds the options Connect uses. Message handlers run
// unordered, each in its own goroutine, so handlers may subscribe and
// publish and wait for the result.
func clientOptions(serverURL string, clientID string, will *Will) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions().
		AddBroker(serverURL).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetOrderMatters(false).
		SetConnectTimeout(timeout).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.WithError(err).Warn("lost connection to mqtt broker")
		}).
		SetOnConnectHandler(func(_ mqtt.Client) {
			log.WithField("server", serverURL).Debug("connected to mqtt broker")
		})
	if will != nil {
		opts.SetWill(will.Topic, will.Payload, 1, true)
	}
	return opts
}

// Connect connects to the broker at serverURL. If will is non-nil, it is
// registered as retained last will.
func Connect(serverURL string, clientID string, will *Will) (mqtt.Client, error) {
	client := mqtt.NewClient(clientOptions(serverURL, clientID, will))

	token := client.Connect()
	completed := token.WaitTimeout(timeout)
	if !completed {
		return nil, fmt.Errorf("timeout connecting to mqtt")
	} else {
		return client, token.Error()
	}
}

// Publishes a given value to the the broker at the given topic.
// Non-strings are converted to their string representations, except for
// byte slices, which are sent as they are.
func Publish(mqttClient mqtt.Client, topic string, qos byte, retained bool, value interface{}) error {
	var payload interface{}
	switch v := value.(type) {
	case []byte:
		payload = v
	default:
		payload = fmt.Sprintf("%v", value)
	}

	l := log.WithFields(log.Fields{
		"topic":    topic,
		"qos":      qos,
		"retained": retained,
	})

	token := mqttClient.Publish(topic, qos, retained, payload)
	completed := token.WaitTimeout(timeout)

	if !completed {
		return fmt.Errorf("timeout publishing to mqtt")
	} else {
		if token.Error() == nil {
			l.Trace("published message")
		}
		return token.Error()
	}
}

func Subscribe(mqttClient mqtt.Client, topic string, qos byte, cb mqtt.MessageHandler) error {
	l := log.WithFields(log.Fields{
		"topic": topic,
		"qos":   qos,
	})

	token := mqttClient.Subscribe(topic, qos, cb)
	completed := token.WaitTimeout(timeout)
	if !completed {
		return fmt.Errorf("timeout subscribing to mqtt")
	} else {
		if token.Error() == nil {
			l.Debug("subscribed")
		}
		return token.Error()
	}
}

func Unsubscribe(mqttClient mqtt.Client, topics []string) error {
	l := log.WithFields(log.Fields{
		"topics": topics,
	})

	token := mqttClient.Unsubscribe(topics...)
	completed := token.WaitTimeout(timeout)
	if !completed {
		return fmt.Errorf("timeout unsubscribing from mqtt")
	} else {
		if token.Error() == nil {
			l.Debug("unsubscribed")
		}
		return token.Error()
	}
}

// Disconnect waits up to a second for pending work and closes the
// connection. The last will is not sent on a clean disconnect.
func Disconnect(mqttClient mqtt.Client) {
	mqttClient.Disconnect(1000)
	log.Debug("disconnected from mqtt broker")
}
