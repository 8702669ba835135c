package status

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/climate-sensor/internal/am2301"
	"github.com/sweeney/climate-sensor/internal/logic"
)

func TestNewTracker(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := Config{Pin: 4, PollMs: 5000, Broker: "tcp://localhost:1883", HTTPPort: ":80"}
	tr := NewTracker(start, cfg)

	snap := tr.Snapshot()
	if !snap.StartTime.Equal(start) {
		t.Errorf("StartTime: got %v, want %v", snap.StartTime, start)
	}
	if snap.Config.PollMs != 5000 {
		t.Errorf("Config.PollMs: got %d, want 5000", snap.Config.PollMs)
	}
	if snap.Config.Pin != 4 {
		t.Errorf("Config.Pin: got %d, want 4", snap.Config.Pin)
	}
	if snap.Ready {
		t.Error("expected Ready=false initially")
	}
	if snap.MQTTConnected {
		t.Error("expected MQTTConnected=false initially")
	}
}

func TestUpdateAndSnapshot(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	at := time.Now().Add(-3 * time.Second)

	tr.Update(SensorState{
		Ready:       true,
		Reading:     am2301.Reading{Humidity: 652, Temperature: 259},
		ReadingTime: at,
		Counts:      logic.Counts{Attempts: 4, Readings: 3, Failures: logic.FailureCounts{AckTimeout: 1}},
	})

	snap := tr.Snapshot()
	if !snap.Ready {
		t.Error("expected Ready=true")
	}
	if snap.Reading.Humidity != 652 {
		t.Errorf("Reading.Humidity: got %d, want 652", snap.Reading.Humidity)
	}
	if snap.Counts.Failures.AckTimeout != 1 {
		t.Errorf("Counts.Failures.AckTimeout: got %d, want 1", snap.Counts.Failures.AckTimeout)
	}
	if age := snap.ReadingAge(); age < 3*time.Second || age > time.Minute {
		t.Errorf("ReadingAge: got %v, want about 3s", age)
	}
}

func TestReadingAgeWithoutReading(t *testing.T) {
	tr := NewTracker(time.Now().Add(-time.Hour), Config{})
	if age := tr.Snapshot().ReadingAge(); age != 0 {
		t.Errorf("expected zero age without a reading, got %v", age)
	}
}

func TestSetMQTTConnected(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.SetMQTTConnected(true)
	if !tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=true")
	}

	tr.SetMQTTConnected(false)
	if tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=false")
	}
}

func TestSetNetwork(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	if tr.Snapshot().Network != nil {
		t.Error("expected nil Network initially")
	}

	net := &NetworkInfo{Type: "wifi", IP: "192.168.1.42", Status: "connected"}
	tr.SetNetwork(net)

	snap := tr.Snapshot()
	if snap.Network == nil || snap.Network.IP != "192.168.1.42" {
		t.Errorf("Network: got %+v", snap.Network)
	}
}

func TestUptime(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{StartTime: start, Now: start.Add(90 * time.Minute)}
	if snap.Uptime() != 90*time.Minute {
		t.Errorf("Uptime: got %v, want 90m", snap.Uptime())
	}
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			tr.Update(SensorState{Ready: true, Counts: logic.Counts{Attempts: i}})
			tr.SetMQTTConnected(i%2 == 0)
		}(i)
		go func() {
			defer wg.Done()
			_ = tr.Snapshot()
		}()
	}
	wg.Wait()
}

func testSnapshot() Snapshot {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return Snapshot{
		SensorState: SensorState{
			Ready:               true,
			Reading:             am2301.Reading{Humidity: 652, Temperature: -15},
			ReadingTime:         start.Add(55 * time.Second),
			ConsecutiveFailures: 1,
			LastFailure:         am2301.KindChecksumMismatch,
			Counts: logic.Counts{
				Attempts: 13,
				Readings: 12,
				Failures: logic.FailureCounts{ChecksumMismatch: 1},
			},
		},
		StartTime:     start,
		Now:           start.Add(time.Minute),
		MQTTConnected: true,
		Config:        Config{Pin: 4, Driver: "cdev", PollMs: 5000, Broker: "tcp://broker:1883", HTTPPort: ":80"},
	}
}

func TestFormatJSON(t *testing.T) {
	var sj StatusJSON
	if err := json.Unmarshal(FormatJSON(testSnapshot()), &sj); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	s := sj.Status

	if s.Event != "" || s.Reason != "" {
		t.Errorf("web JSON should carry no event, got %q/%q", s.Event, s.Reason)
	}
	if !s.Ready {
		t.Error("expected ready=true")
	}
	if s.Reading == nil {
		t.Fatal("expected reading")
	}
	if s.Reading.Humidity != 65.2 || s.Reading.Temperature != -1.5 {
		t.Errorf("reading: got %v/%v, want 65.2/-1.5", s.Reading.Humidity, s.Reading.Temperature)
	}
	if s.Reading.AgeSeconds != 5 {
		t.Errorf("age_seconds: got %d, want 5", s.Reading.AgeSeconds)
	}
	if s.UptimeSeconds != 60 {
		t.Errorf("uptime_seconds: got %d, want 60", s.UptimeSeconds)
	}
	if s.LastFailure != "CHECKSUM_MISMATCH" {
		t.Errorf("last_failure: got %q", s.LastFailure)
	}
	if s.Counts.Attempts != 13 || s.Counts.Failures.ChecksumMismatch != 1 {
		t.Errorf("counts: got %+v", s.Counts)
	}
	if s.Config.Driver != "cdev" || s.Config.Pin != 4 {
		t.Errorf("config: got %+v", s.Config)
	}
	if s.Network != nil {
		t.Error("expected no network")
	}
}

func TestFormatJSONNotReady(t *testing.T) {
	snap := testSnapshot()
	snap.SensorState = SensorState{}

	var raw map[string]map[string]any
	if err := json.Unmarshal(FormatJSON(snap), &raw); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if _, ok := raw["status"]["reading"]; ok {
		t.Error("reading should be omitted before the first reading")
	}
}

func TestFormatStatusEvent(t *testing.T) {
	snap := testSnapshot()
	snap.Network = &NetworkInfo{Type: "wifi", IP: "10.0.0.2", Status: "connected"}

	var sj StatusJSON
	if err := json.Unmarshal(FormatStatusEvent(snap, "SHUTDOWN", "SIGTERM"), &sj); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if sj.Status.Event != "SHUTDOWN" || sj.Status.Reason != "SIGTERM" {
		t.Errorf("event/reason: got %q/%q", sj.Status.Event, sj.Status.Reason)
	}
	if sj.Status.Network == nil || sj.Status.Network.IP != "10.0.0.2" {
		t.Errorf("network: got %+v", sj.Status.Network)
	}
}
