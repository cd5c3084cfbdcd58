// Package ingest feeds external vehicle telemetry into the engine over
// MQTT. Fleet transponders publish position fixes on
// trafficd/vehicles/<vehicle-id>/position.
package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"

	"github.com/citypulse/trafficd/internal/engine"
)

// PositionUpdate is the telemetry payload.
type PositionUpdate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Speed     float64 `json:"speed"`
}

// MQTTIngest subscribes to the telemetry topic and forwards fixes to the
// engine through its serialized entry point.
type MQTTIngest struct {
	engine *engine.Engine
	client mqtt.Client
	broker string
	topic  string
	log    *logrus.Entry
}

// NewMQTT creates an ingest for the given broker and topic filter.
func NewMQTT(broker, topic string, eng *engine.Engine, log *logrus.Logger) *MQTTIngest {
	return &MQTTIngest{
		engine: eng,
		broker: broker,
		topic:  topic,
		log:    log.WithField("component", "ingest"),
	}
}

// Start connects to the broker and subscribes.
func (m *MQTTIngest) Start() error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(m.broker)
	opts.SetClientID("trafficd-ingest")
	opts.SetAutoReconnect(true)

	m.client = mqtt.NewClient(opts)
	if token := m.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}
	if token := m.client.Subscribe(m.topic, 0, m.handleMessage); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", m.topic, token.Error())
	}

	m.log.WithField("topic", m.topic).Info("telemetry ingest started")
	return nil
}

// Stop disconnects from the broker.
func (m *MQTTIngest) Stop() {
	if m.client != nil {
		m.client.Disconnect(250)
	}
}

func (m *MQTTIngest) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	vehicleID, ok := vehicleIDFromTopic(msg.Topic())
	if !ok {
		m.log.WithField("topic", msg.Topic()).Warn("unparseable telemetry topic")
		return
	}

	var update PositionUpdate
	if err := json.Unmarshal(msg.Payload(), &update); err != nil {
		m.log.WithError(err).WithField("vehicle", vehicleID).Warn("bad telemetry payload")
		return
	}

	err := m.engine.UpdateVehiclePosition(vehicleID, update.Latitude, update.Longitude, update.Speed)
	if errors.Is(err, engine.ErrVehicleNotFound) {
		m.log.WithField("vehicle", vehicleID).Warn("telemetry for unregistered vehicle dropped")
	}
}

// vehicleIDFromTopic extracts the vehicle id from
// trafficd/vehicles/<id>/position.
func vehicleIDFromTopic(topic string) (string, bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 4 || parts[1] != "vehicles" || parts[3] != "position" || parts[2] == "" {
		return "", false
	}
	return parts[2], true
}
