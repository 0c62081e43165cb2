// Package presence tracks the household's presence mode (e.g. "home", "away", "vacation"), as published on an MQTT topic.
package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/clambin/thermostat-control/pkg/pubsub"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// DefaultTopic is the topic on which the presence mode is published.
const DefaultTopic = "heating/presence"

type Subscriber interface {
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
	Unsubscribe(topics ...string) mqtt.Token
}

// Sensor holds the last received presence mode and informs its subscribers when it changes.
type Sensor struct {
	*pubsub.Publisher[string]
	Topic  string
	logger *slog.Logger
	lock   sync.RWMutex
	mode   string
	known  bool
}

func New(topic string, logger *slog.Logger) *Sensor {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Sensor{
		Publisher: pubsub.New[string](logger),
		Topic:     topic,
		logger:    logger,
	}
}

// Run subscribes to the sensor's topic and processes presence updates until ctx is canceled.
func (s *Sensor) Run(ctx context.Context, client Subscriber) error {
	s.logger.Debug("presence sensor starting", "topic", s.Topic)
	defer s.logger.Debug("presence sensor stopping")

	token := client.Subscribe(s.Topic, 1, s.onMessage)
	if token.Wait(); token.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", s.Topic, token.Error())
	}
	<-ctx.Done()
	client.Unsubscribe(s.Topic).Wait()
	return nil
}

// Mode returns the current presence mode. It returns false if no valid mode has been received.
func (s *Sensor) Mode() (string, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.mode, s.known
}

// Set updates the presence mode. An empty mode marks the presence mode as unknown.
// Subscribers are only informed if the mode changed.
func (s *Sensor) Set(mode string) {
	s.lock.Lock()
	changed := mode != s.mode || s.known != (mode != "")
	s.mode = mode
	s.known = mode != ""
	s.lock.Unlock()

	if changed {
		s.logger.Debug("presence mode changed", "mode", mode)
		s.Publish(mode)
	}
}

func (s *Sensor) onMessage(_ mqtt.Client, msg mqtt.Message) {
	mode, err := parseMode(msg.Payload())
	if err != nil {
		s.logger.Warn("invalid presence update", "payload", string(msg.Payload()), "err", err)
		return
	}
	s.Set(mode)
}

// parseMode accepts either the mode as plain text or a JSON object with a "mode" field.
func parseMode(payload []byte) (string, error) {
	text := strings.TrimSpace(string(payload))
	if !strings.HasPrefix(text, "{") {
		return strings.Trim(text, `"`), nil
	}
	var update struct {
		Mode string `json:"mode"`
	}
	if err := json.Unmarshal(payload, &update); err != nil {
		return "", err
	}
	return update.Mode, nil
}
