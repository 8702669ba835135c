// Package logic contains pure bookkeeping for sensor acquisition outcomes.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import (
	"time"

	"github.com/sweeney/climate-sensor/internal/am2301"
)

// EventType identifies an event to be published.
type EventType string

const (
	EventReading         EventType = "READING"
	EventSensorLost      EventType = "SENSOR_LOST"
	EventSensorRecovered EventType = "SENSOR_RECOVERED"
)

// Outcome is the result of one acquisition attempt.
type Outcome struct {
	Time    time.Time
	Reading am2301.Reading
	Err     error
}

// Event represents something to be published.
type Event struct {
	Timestamp time.Time
	Type      EventType
	// Reading is set for READING events.
	Reading am2301.Reading
	// Failure and ConsecutiveFailures are set for SENSOR_LOST events.
	Failure             am2301.FailureKind
	ConsecutiveFailures int
}

// FailureCounts tracks failed acquisitions by kind since startup.
type FailureCounts struct {
	AckTimeout       int
	AckTimeout2      int
	BitTimeout       int
	EndTimeout       int
	ChecksumMismatch int
	LineError        int
	Aborted          int
	Unknown          int
}

// Total returns the number of failed acquisitions.
func (f FailureCounts) Total() int {
	return f.AckTimeout + f.AckTimeout2 + f.BitTimeout + f.EndTimeout +
		f.ChecksumMismatch + f.LineError + f.Aborted + f.Unknown
}

// Counts tracks acquisition attempts since startup.
type Counts struct {
	Attempts int
	Readings int
	Failures FailureCounts
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    Counts
}
