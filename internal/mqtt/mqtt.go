// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/climate-sensor/internal/logic"
)

// Topic is the MQTT topic for sensor events.
const Topic = "environment/am2301/sensor/readings"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "environment/am2301/sensor/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a sensor event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event logic.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Sensor SensorPayload `json:"sensor"`
}

// SensorPayload contains the sensor event details. Measurement fields are
// present on READING events, failure fields on SENSOR_LOST.
type SensorPayload struct {
	Timestamp           string   `json:"timestamp"`
	Event               string   `json:"event"`
	Humidity            *float64 `json:"humidity,omitempty"`
	Temperature         *float64 `json:"temperature,omitempty"`
	HumidityTenths      *uint16  `json:"humidity_tenths,omitempty"`
	TemperatureTenths   *int16   `json:"temperature_tenths,omitempty"`
	Failure             string   `json:"failure,omitempty"`
	ConsecutiveFailures int      `json:"consecutive_failures,omitempty"`
}

// FormatPayload creates the JSON payload for a sensor event.
func FormatPayload(event logic.Event) ([]byte, error) {
	p := SensorPayload{
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
		Event:     string(event.Type),
	}

	switch event.Type {
	case logic.EventReading:
		h := event.Reading.HumidityPercent()
		t := event.Reading.Celsius()
		ht := event.Reading.Humidity
		tt := event.Reading.Temperature
		p.Humidity = &h
		p.Temperature = &t
		p.HumidityTenths = &ht
		p.TemperatureTenths = &tt
	case logic.EventSensorLost:
		p.Failure = string(event.Failure)
		p.ConsecutiveFailures = event.ConsecutiveFailures
	}

	return json.Marshal(Payload{Sensor: p})
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// willEvent is registered with the broker as the last will, published if
// the daemon disappears without a clean disconnect.
func willEvent(now time.Time) SystemEvent {
	return SystemEvent{
		Timestamp: now,
		Event:     "SHUTDOWN",
		Reason:    "MQTT_DISCONNECT",
		Retained:  true,
	}
}
