package logic

import (
	"time"

	"github.com/sweeney/climate-sensor/internal/am2301"
)

// Monitor tracks acquisition outcomes and detects sensor loss and recovery.
type Monitor struct {
	lostAfter     int
	startTime     time.Time
	lastHeartbeat time.Time

	counts      Counts
	consecutive int
	lost        bool

	last     am2301.Reading
	lastTime time.Time
	ready    bool
}

// NewMonitor creates a Monitor that declares the sensor lost after
// lostAfter consecutive failures (0 disables loss detection).
// The startTime is used for calculating uptime in heartbeat events.
func NewMonitor(lostAfter int, startTime time.Time) *Monitor {
	return &Monitor{
		lostAfter:     lostAfter,
		startTime:     startTime,
		lastHeartbeat: startTime,
	}
}

// Process records an outcome and returns the events it produces.
// A reading always yields a READING event, preceded by SENSOR_RECOVERED if
// the sensor was lost. A failure yields SENSOR_LOST once, on the failure
// that reaches the threshold.
func (m *Monitor) Process(o Outcome) []Event {
	m.counts.Attempts++

	if o.Err == nil {
		var events []Event
		if m.lost {
			m.lost = false
			events = append(events, Event{Timestamp: o.Time, Type: EventSensorRecovered})
		}
		m.consecutive = 0
		m.counts.Readings++
		m.last = o.Reading
		m.lastTime = o.Time
		m.ready = true
		return append(events, Event{Timestamp: o.Time, Type: EventReading, Reading: o.Reading})
	}

	kind := am2301.Kind(o.Err)
	m.countFailure(kind)
	m.consecutive++

	if m.lost || m.lostAfter <= 0 || m.consecutive < m.lostAfter {
		return nil
	}
	m.lost = true
	return []Event{{
		Timestamp:           o.Time,
		Type:                EventSensorLost,
		Failure:             kind,
		ConsecutiveFailures: m.consecutive,
	}}
}

func (m *Monitor) countFailure(kind am2301.FailureKind) {
	f := &m.counts.Failures
	switch kind {
	case am2301.KindAckTimeout:
		f.AckTimeout++
	case am2301.KindAckTimeout2:
		f.AckTimeout2++
	case am2301.KindBitTimeout:
		f.BitTimeout++
	case am2301.KindEndTimeout:
		f.EndTimeout++
	case am2301.KindChecksumMismatch:
		f.ChecksumMismatch++
	case am2301.KindLineError:
		f.LineError++
	case am2301.KindAborted:
		f.Aborted++
	default:
		f.Unknown++
	}
}

// IsReady returns whether at least one valid reading has been seen.
func (m *Monitor) IsReady() bool {
	return m.ready
}

// IsLost returns whether the sensor is currently considered lost.
func (m *Monitor) IsLost() bool {
	return m.lost
}

// ConsecutiveFailures returns the failures since the last reading.
func (m *Monitor) ConsecutiveFailures() int {
	return m.consecutive
}

// LastReading returns the most recent reading and when it was taken.
// ok is false until the first reading.
func (m *Monitor) LastReading() (r am2301.Reading, at time.Time, ok bool) {
	return m.last, m.lastTime, m.ready
}

// CountsSnapshot returns a copy of the counters.
func (m *Monitor) CountsSnapshot() Counts {
	return m.counts
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if the interval has not elapsed,
// or if interval is <= 0 (disabled). Heartbeats continue while the sensor
// is lost.
func (m *Monitor) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}

	if now.Sub(m.lastHeartbeat) < interval {
		return nil
	}

	m.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(m.startTime),
		Counts:    m.counts,
	}
}
