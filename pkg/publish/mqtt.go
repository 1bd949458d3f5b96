// Package publish pushes per-fix readouts to an MQTT broker so other
// field devices can follow along. Entirely optional; the core never
// depends on it.
package publish

import (
	"encoding/json"
	"fmt"
	"log/slog"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"fieldnav/pkg/config"
	"fieldnav/pkg/model"
)

// MQTTPublisher forwards derived state to a broker topic.
type MQTTPublisher struct {
	client mqtt.Client
	topic  string
}

// NewMQTT connects to the configured broker.
func NewMQTT(cfg config.MQTTConfig) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}
	slog.Info("telemetry publisher connected", "broker", cfg.Broker, "topic", cfg.Topic)

	return &MQTTPublisher{client: client, topic: cfg.Topic}, nil
}

// Publish sends one readout. Failures are logged, not fatal; the next
// fix gets another chance.
func (p *MQTTPublisher) Publish(state model.DerivedState) {
	payload, err := json.Marshal(state)
	if err != nil {
		slog.Error("telemetry marshal failed", "error", err)
		return
	}
	token := p.client.Publish(p.topic, 0, false, payload)
	go func() {
		if token.Wait() && token.Error() != nil {
			slog.Warn("telemetry publish failed", "error", token.Error())
		}
	}()
}

// Close disconnects from the broker.
func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}
