package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/climate-sensor/internal/am2301"
	"github.com/sweeney/climate-sensor/internal/logic"
	"github.com/sweeney/climate-sensor/internal/status"
)

func newTestServer(t *testing.T) (*httptest.Server, *status.Tracker) {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := status.Config{
		Pin:         4,
		Driver:      "cdev",
		PollMs:      5000,
		TimeoutMs:   250,
		HeartbeatMs: 900000,
		Broker:      "tcp://192.168.1.200:1883",
		HTTPPort:    ":80",
	}
	tr := status.NewTracker(start, cfg)
	srv := New(":0", tr)
	ts := httptest.NewServer(srv.httpServer.Handler)
	t.Cleanup(ts.Close)
	return ts, tr
}

func getJSON(t *testing.T, url string) status.StatusJSON {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	return sj
}

func getBody(t *testing.T, url string) string {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return string(body)
}

func TestJSONEndpoint(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.Update(status.SensorState{
		Ready:       true,
		Reading:     am2301.Reading{Humidity: 652, Temperature: 259},
		ReadingTime: time.Now(),
		Counts:      logic.Counts{Attempts: 7, Readings: 5, Failures: logic.FailureCounts{AckTimeout: 2}},
	})
	tr.SetMQTTConnected(true)

	resp, err := http.Get(ts.URL + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}

	if sj.Status.Reading == nil {
		t.Fatal("expected reading in JSON")
	}
	if sj.Status.Reading.Humidity != 65.2 {
		t.Errorf("Reading.Humidity: got %v, want 65.2", sj.Status.Reading.Humidity)
	}
	if sj.Status.Reading.Temperature != 25.9 {
		t.Errorf("Reading.Temperature: got %v, want 25.9", sj.Status.Reading.Temperature)
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if sj.Status.Counts.Failures.AckTimeout != 2 {
		t.Errorf("Counts.Failures.AckTimeout: got %d, want 2", sj.Status.Counts.Failures.AckTimeout)
	}
	if sj.Status.Config.Pin != 4 {
		t.Errorf("Config.Pin: got %d, want 4", sj.Status.Config.Pin)
	}
}

func TestJSONBeforeFirstReading(t *testing.T) {
	ts, _ := newTestServer(t)

	sj := getJSON(t, ts.URL+"/index.json")
	if sj.Status.Ready {
		t.Error("expected Ready=false before first reading")
	}
	if sj.Status.Reading != nil {
		t.Errorf("expected no reading, got %+v", sj.Status.Reading)
	}
}

func TestJSONSensorLost(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.Update(status.SensorState{Lost: true, ConsecutiveFailures: 6, LastFailure: am2301.KindAckTimeout})

	sj := getJSON(t, ts.URL+"/index.json")
	if !sj.Status.SensorLost {
		t.Error("expected sensor_lost=true")
	}
	if sj.Status.ConsecutiveFailures != 6 {
		t.Errorf("consecutive_failures: got %d, want 6", sj.Status.ConsecutiveFailures)
	}
	if sj.Status.LastFailure != "ACK_TIMEOUT" {
		t.Errorf("last_failure: got %q, want ACK_TIMEOUT", sj.Status.LastFailure)
	}
}

func TestJSONNetworkInfo(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.SetNetwork(&status.NetworkInfo{
		Type:   "wifi",
		IP:     "192.168.1.42",
		Status: "connected",
		SSID:   "MyNet",
	})

	sj := getJSON(t, ts.URL+"/index.json")
	if sj.Status.Network == nil {
		t.Fatal("expected Network in JSON")
	}
	if sj.Status.Network.IP != "192.168.1.42" {
		t.Errorf("Network.IP: got %q, want 192.168.1.42", sj.Status.Network.IP)
	}
}

func TestHTMLEndpointRoot(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.Update(status.SensorState{
		Ready:       true,
		Reading:     am2301.Reading{Humidity: 603, Temperature: -10},
		ReadingTime: time.Now(),
	})

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	ct := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type: got %q, want text/html", ct)
	}

	body, _ := io.ReadAll(resp.Body)
	for _, want := range []string{"60.3 %RH", "-1.0 &deg;C", ">OK<"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("expected %q in page", want)
		}
	}
}

func TestHTMLBeforeFirstReading(t *testing.T) {
	ts, _ := newTestServer(t)

	body := getBody(t, ts.URL+"/index.html")
	if !strings.Contains(body, ">WAITING<") {
		t.Error("expected WAITING sensor state")
	}
	if strings.Contains(body, "%RH") {
		t.Error("expected no humidity value before first reading")
	}
}

func TestHTMLSensorLost(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.Update(status.SensorState{Lost: true, ConsecutiveFailures: 3, LastFailure: am2301.KindChecksumMismatch})

	body := getBody(t, ts.URL+"/")
	if !strings.Contains(body, ">LOST<") {
		t.Error("expected LOST sensor state")
	}
	if !strings.Contains(body, "CHECKSUM_MISMATCH") {
		t.Error("expected last failure kind")
	}
}

func TestHTMLLiveScriptOnlyWithWSBroker(t *testing.T) {
	ts, _ := newTestServer(t)
	if strings.Contains(getBody(t, ts.URL+"/"), "mqtt.connect") {
		t.Error("expected no live script without ws broker")
	}

	tr := status.NewTracker(time.Now(), status.Config{WSBroker: "ws://192.168.1.200:9001"})
	live := httptest.NewServer(New(":0", tr).httpServer.Handler)
	defer live.Close()

	body := getBody(t, live.URL+"/")
	if !strings.Contains(body, "mqtt.connect") {
		t.Error("expected live script with ws broker")
	}
	if !strings.Contains(body, `environment\/am2301\/sensor\/readings`) {
		t.Error("expected readings topic in live script")
	}
}

func TestNotFoundForUnknownPath(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/nonexistent")
	if err != nil {
		t.Fatalf("GET /nonexistent: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestHealthz(t *testing.T) {
	ts, tr := newTestServer(t)

	code := func() int {
		resp, err := http.Get(ts.URL + "/healthz")
		if err != nil {
			t.Fatalf("GET /healthz: %v", err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}

	if got := code(); got != http.StatusServiceUnavailable {
		t.Errorf("before first reading: got %d, want 503", got)
	}

	tr.Update(status.SensorState{Ready: true, Reading: am2301.Reading{Humidity: 500}, ReadingTime: time.Now()})
	if got := code(); got != http.StatusOK {
		t.Errorf("with reading: got %d, want 200", got)
	}

	tr.Update(status.SensorState{Ready: true, Lost: true})
	if got := code(); got != http.StatusServiceUnavailable {
		t.Errorf("sensor lost: got %d, want 503", got)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Post(ts.URL+"/index.json", "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("POST /index.json: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d, want 405", resp.StatusCode)
	}
	if allow := resp.Header.Get("Allow"); allow != "GET, HEAD" {
		t.Errorf("Allow: got %q", allow)
	}
}

func TestAgo(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0s"},
		{1500 * time.Millisecond, "1s"},
		{90 * time.Second, "1m 30s"},
		{3*time.Hour + 12*time.Minute + 5*time.Second, "3h 12m"},
		{26 * time.Hour, "1d 2h"},
		{time.Hour + 5*time.Second, "1h 0m"},
	}
	for _, tt := range tests {
		if got := ago(tt.d); got != tt.want {
			t.Errorf("ago(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestHTMLFailureCounts(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.Update(status.SensorState{
		Counts: logic.Counts{Attempts: 4, Failures: logic.FailureCounts{BitTimeout: 3, Unknown: 1}},
	})

	body := getBody(t, ts.URL+"/")
	for _, want := range []string{"<th>Bit timeout</th><td>3</td>", "<th>Other</th><td>1</td>", "<th>Attempts</th><td>4</td>"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in page", want)
		}
	}
}
