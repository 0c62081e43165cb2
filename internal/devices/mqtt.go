package devices

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// DefaultDeviceTopic is the topic on which a setpoint is published. {device} is replaced by the device's id.
const DefaultDeviceTopic = "heating/{device}/set"

type MQTTPublisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTDispatcher publishes an "exact" command for the device on its topic.
type MQTTDispatcher struct {
	Client MQTTPublisher
	Topic  string
	QoS    byte
}

type mqttCommand struct {
	Command string  `json:"command"`
	Level   float64 `json:"level"`
}

func (m MQTTDispatcher) Dispatch(ctx context.Context, device string, level float64) error {
	payload, err := json.Marshal(mqttCommand{Command: "exact", Level: level})
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	token := m.Client.Publish(m.topic(device), m.QoS, false, payload)
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m MQTTDispatcher) topic(device string) string {
	topic := m.Topic
	if topic == "" {
		topic = DefaultDeviceTopic
	}
	return strings.ReplaceAll(topic, "{device}", device)
}
