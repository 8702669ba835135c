package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event               string       `json:"event,omitempty"`
	Reason              string       `json:"reason,omitempty"`
	Ready               bool         `json:"ready"`
	SensorLost          bool         `json:"sensor_lost"`
	Reading             *ReadingJSON `json:"reading,omitempty"`
	ConsecutiveFailures int          `json:"consecutive_failures"`
	LastFailure         string       `json:"last_failure,omitempty"`
	UptimeSeconds       int64        `json:"uptime_seconds"`
	StartTime           string       `json:"start_time"`
	Timestamp           string       `json:"timestamp"`
	MQTT                MQTTStatus   `json:"mqtt"`
	Counts              CountsJSON   `json:"counts"`
	Network             *NetworkJSON `json:"network,omitempty"`
	Config              ConfigJSON   `json:"config"`
}

// ReadingJSON is the JSON representation of the last reading.
type ReadingJSON struct {
	Humidity    float64 `json:"humidity"`
	Temperature float64 `json:"temperature"`
	Timestamp   string  `json:"timestamp"`
	AgeSeconds  int64   `json:"age_seconds"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of acquisition counts.
type CountsJSON struct {
	Attempts int          `json:"attempts"`
	Readings int          `json:"readings"`
	Failures FailuresJSON `json:"failures"`
}

// FailuresJSON is the JSON representation of failure counts by kind.
type FailuresJSON struct {
	AckTimeout       int `json:"ack_timeout"`
	AckTimeout2      int `json:"ack_timeout_2"`
	BitTimeout       int `json:"bit_timeout"`
	EndTimeout       int `json:"end_timeout"`
	ChecksumMismatch int `json:"checksum_mismatch"`
	LineError        int `json:"line_error"`
	Aborted          int `json:"aborted"`
	Unknown          int `json:"unknown"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Pin           int    `json:"pin"`
	Driver        string `json:"driver"`
	PollMs        int64  `json:"poll_ms"`
	MinIntervalMs int64  `json:"min_interval_ms"`
	TimeoutMs     int64  `json:"timeout_ms"`
	HeartbeatMs   int64  `json:"heartbeat_ms"`
	LostAfter     int    `json:"lost_after"`
	Broker        string `json:"broker"`
	HTTPPort      string `json:"http_port"`
	WSBroker      string `json:"ws_broker,omitempty"`
}

func buildInner(snap Snapshot) StatusInner {
	f := snap.Counts.Failures
	inner := StatusInner{
		Ready:               snap.Ready,
		SensorLost:          snap.Lost,
		ConsecutiveFailures: snap.ConsecutiveFailures,
		LastFailure:         string(snap.LastFailure),
		UptimeSeconds:       int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:           snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:           snap.Now.UTC().Format(time.RFC3339),
		MQTT:                MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Attempts: snap.Counts.Attempts,
			Readings: snap.Counts.Readings,
			Failures: FailuresJSON{
				AckTimeout:       f.AckTimeout,
				AckTimeout2:      f.AckTimeout2,
				BitTimeout:       f.BitTimeout,
				EndTimeout:       f.EndTimeout,
				ChecksumMismatch: f.ChecksumMismatch,
				LineError:        f.LineError,
				Aborted:          f.Aborted,
				Unknown:          f.Unknown,
			},
		},
		Config: ConfigJSON{
			Pin:           snap.Config.Pin,
			Driver:        snap.Config.Driver,
			PollMs:        snap.Config.PollMs,
			MinIntervalMs: snap.Config.MinIntervalMs,
			TimeoutMs:     snap.Config.TimeoutMs,
			HeartbeatMs:   snap.Config.HeartbeatMs,
			LostAfter:     snap.Config.LostAfter,
			Broker:        snap.Config.Broker,
			HTTPPort:      snap.Config.HTTPPort,
			WSBroker:      snap.Config.WSBroker,
		},
	}

	if snap.Ready {
		inner.Reading = &ReadingJSON{
			Humidity:    snap.Reading.HumidityPercent(),
			Temperature: snap.Reading.Celsius(),
			Timestamp:   snap.ReadingTime.UTC().Format(time.RFC3339),
			AgeSeconds:  int64(snap.ReadingAge().Truncate(time.Second).Seconds()),
		}
	}
	return inner
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
