package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/climate-sensor/internal/mqtt"
	"github.com/sweeney/climate-sensor/internal/status"
)

// ago formats d with its two most significant units, e.g. "3h 12m".
func ago(d time.Duration) string {
	d = d.Truncate(time.Second)
	units := []struct {
		size time.Duration
		name string
	}{
		{24 * time.Hour, "d"},
		{time.Hour, "h"},
		{time.Minute, "m"},
		{time.Second, "s"},
	}
	out := ""
	shown := 0
	for _, u := range units {
		n := d / u.size
		if n == 0 && shown == 0 {
			continue
		}
		d -= n * u.size
		if out != "" {
			out += " "
		}
		out += fmt.Sprintf("%d%s", int64(n), u.name)
		if shown++; shown == 2 {
			break
		}
	}
	if out == "" {
		return "0s"
	}
	return out
}

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"ago":    ago,
	"tenths": func(v float64) string { return fmt.Sprintf("%.1f", v) },
	"stamp":  func(t time.Time) string { return t.UTC().Format(time.RFC3339) },
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>AM2301 on GPIO{{.Config.Pin}}</title>
<style>
body { font-family: monospace; max-width: 640px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
h2 { font-size: 1.1em; margin-top: 1.5em; }
table { border-collapse: collapse; width: 100%; }
th, td { text-align: left; padding: 3px 8px; border-bottom: 1px solid #ddd; }
th { width: 45%; font-weight: normal; color: #555; }
.big { font-size: 1.6em; }
.good { color: green; font-weight: bold; }
.bad { color: red; font-weight: bold; }
.wait { color: orange; }
#live { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; background: orange; }
#live.up { background: green; }
#live.down { background: red; }
</style>
</head>
<body>
<h1>AM2301 on GPIO{{.Config.Pin}}{{if .Config.WSBroker}}<span id="live" title="connecting"></span>{{end}}</h1>

<table>
{{- if .Ready}}
<tr><th>Humidity</th><td id="humidity" class="big">{{tenths .Reading.HumidityPercent}} %RH</td></tr>
<tr><th>Temperature</th><td id="temperature" class="big">{{tenths .Reading.Celsius}} &deg;C</td></tr>
<tr><th>Taken</th><td id="taken">{{stamp .ReadingTime}} ({{ago .ReadingAge}} ago)</td></tr>
{{- else}}
<tr><th>Humidity</th><td id="humidity" class="wait">no reading yet</td></tr>
<tr><th>Temperature</th><td id="temperature" class="wait">no reading yet</td></tr>
{{- end}}
<tr><th>Sensor</th><td id="sensor-state" class="{{.StateClass}}">{{.State}}</td></tr>
<tr><th>Consecutive failures</th><td>{{.ConsecutiveFailures}}{{with .LastFailure}} (last: {{.}}){{end}}</td></tr>
</table>

<h2>Acquisitions</h2>
<table>
<tr><th>Attempts</th><td>{{.Counts.Attempts}}</td></tr>
<tr><th>Readings</th><td>{{.Counts.Readings}}</td></tr>
{{- range .Failures}}
<tr><th>{{.Label}}</th><td>{{.Count}}</td></tr>
{{- end}}
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}good{{else}}bad{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{- with .Network}}
<tr><th>Network</th><td>{{.Status}} ({{.Type}}{{with .SSID}}, {{.}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.IP}}</td></tr>
{{- end}}
</table>

<h2>Daemon</h2>
<table>
<tr><th>Uptime</th><td>{{ago .Uptime}} (since {{stamp .StartTime}})</td></tr>
<tr><th>Driver</th><td>{{.Config.Driver}}</td></tr>
<tr><th>Poll / min interval</th><td>{{.Config.PollMs}}ms / {{.Config.MinIntervalMs}}ms</td></tr>
<tr><th>Acquire timeout</th><td>{{.Config.TimeoutMs}}ms</td></tr>
<tr><th>Lost after</th><td>{{if .Config.LostAfter}}{{.Config.LostAfter}} failures{{else}}never{{end}}</td></tr>
<tr><th>Heartbeat</th><td>{{if .Config.HeartbeatMs}}{{.Config.HeartbeatMs}}ms{{else}}disabled{{end}}</td></tr>
</table>

<p><a href="/index.json">index.json</a> &middot; <a href="/healthz">healthz</a></p>
{{- if .Config.WSBroker}}
<script src="/mqtt.min.js"></script>
<script>
(function() {
  var live = document.getElementById("live");
  var hum = document.getElementById("humidity");
  var temp = document.getElementById("temperature");
  var state = document.getElementById("sensor-state");

  function mark(cls, title) { live.className = cls; live.title = title; }

  var client = mqtt.connect("{{.Config.WSBroker}}", { reconnectPeriod: 5000 });
  client.on("connect", function() { mark("up", "live"); client.subscribe("{{.Topic}}"); });
  client.on("reconnect", function() { mark("", "reconnecting"); });
  client.on("offline", function() { mark("down", "offline"); });
  client.on("error", function() { mark("down", "error"); });

  client.on("message", function(_, payload) {
    var s;
    try { s = JSON.parse(payload.toString()).sensor; } catch (e) { return; }
    if (!s) return;
    switch (s.event) {
    case "READING":
      hum.textContent = s.humidity.toFixed(1) + " %RH";
      temp.innerHTML = s.temperature.toFixed(1) + " &deg;C";
      hum.className = temp.className = "big";
      state.textContent = "OK";
      state.className = "good";
      break;
    case "SENSOR_LOST":
      state.textContent = "LOST";
      state.className = "bad";
      break;
    }
  });
})();
</script>
{{- end}}
</body>
</html>
`

type failureRow struct {
	Label string
	Count int
}

type page struct {
	status.Snapshot
	// Uptime and ReadingAge shadow the Snapshot methods so the template
	// can use them as values.
	Uptime     time.Duration
	ReadingAge time.Duration
	State      string
	StateClass string
	Failures   []failureRow
	Topic      string
}

func newPage(snap status.Snapshot) page {
	p := page{
		Snapshot:   snap,
		Uptime:     snap.Uptime(),
		ReadingAge: snap.ReadingAge(),
		State:      "WAITING",
		StateClass: "wait",
		Topic:      mqtt.Topic,
	}
	switch {
	case snap.Lost:
		p.State, p.StateClass = "LOST", "bad"
	case snap.Ready:
		p.State, p.StateClass = "OK", "good"
	}

	f := snap.Counts.Failures
	p.Failures = []failureRow{
		{"Ack timeout", f.AckTimeout},
		{"Ack timeout (high)", f.AckTimeout2},
		{"Bit timeout", f.BitTimeout},
		{"End timeout", f.EndTimeout},
		{"Checksum mismatch", f.ChecksumMismatch},
		{"Line error", f.LineError},
		{"Aborted", f.Aborted},
	}
	if f.Unknown > 0 {
		p.Failures = append(p.Failures, failureRow{"Other", f.Unknown})
	}
	return p
}

func renderHTML(w io.Writer, snap status.Snapshot) error {
	return indexTmpl.Execute(w, newPage(snap))
}
