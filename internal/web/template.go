package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/wx-receiver/internal/report"
	"github.com/sweeney/wx-receiver/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"celsius": func(v float64) string {
		return fmt.Sprintf("%.1f °C", v)
	},
	"mm": func(v float64) string {
		return fmt.Sprintf("%.1f mm", v)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Weather Receiver</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.waiting { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
</style>
</head>
<body>
<h1>Weather Receiver{{if .Live}}<span id="live-dot" class="live-dot pending" title="connecting"></span>{{end}}</h1>

<h2>Reading</h2>
{{with .Current}}<table>
<tr><th>Temperature</th><td id="temperature">{{celsius .TemperatureC}}</td></tr>
<tr><th>Humidity</th><td id="humidity">{{.Humidity}} %</td></tr>
<tr><th>Dewpoint</th><td id="dewpoint">{{celsius .DewpointC}}</td></tr>
<tr><th>Wind</th><td id="wind">{{printf "%.1f" .Wind.SpeedKmh}} km/h {{.Wind.Direction}} ({{.Wind.DirectionDeg}}°)</td></tr>
<tr><th>Wind chill</th><td id="wind-chill">{{celsius .WindChillC}}</td></tr>
<tr><th>Rain last hour</th><td id="rain-1h">{{mm .Rain.HourMM}}</td></tr>
<tr><th>Rain last 24h</th><td id="rain-24h">{{mm .Rain.DayMM}}</td></tr>
<tr><th>Rain total</th><td id="rain-total">{{mm .Rain.TotalMM}} ({{.Rain.Total}} tips)</td></tr>
<tr><th>Sensor</th><td>{{.SensorID}}</td></tr>
<tr><th>Updated</th><td id="updated">{{.Timestamp}}</td></tr>
</table>{{else}}<p class="waiting">Waiting for a complete reading</p>{{end}}

<h2>Decoder</h2>
<table>
<tr><th>State</th><td>{{.Decoder.State}}</td></tr>
<tr><th>Seen this cycle</th><td>{{range $i, $t := .Seen}}{{if $i}}, {{end}}{{$t}}{{else}}none{{end}}</td></tr>
<tr><th>Clock</th><td>{{.Decoder.Clock}}</td></tr>
<tr><th>Edges</th><td>{{.Decoder.Receiver.Edges}}</td></tr>
<tr><th>Packets</th><td>{{.Decoder.Receiver.Packets}}</td></tr>
<tr><th>Noise</th><td>{{.Decoder.Receiver.Noise}}</td></tr>
<tr><th>Desyncs</th><td>{{.Decoder.Receiver.Desyncs}} (dropped {{.Decoder.Receiver.Dropped}})</td></tr>
<tr><th>Checksum errors</th><td>{{.Decoder.Parser.Checksum}}</td></tr>
<tr><th>Redundancy errors</th><td>{{.Decoder.Parser.Redundancy}}</td></tr>
<tr><th>Readings</th><td>{{.Decoder.Parser.Readings}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Config.Modbus}}<tr><th>Modbus</th><td>{{.Config.Modbus}}</td></tr>{{end}}
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Source</th><td>{{.Config.Source}}</td></tr>
<tr><th>Tick</th><td>{{.Config.TickUs}}us</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPPort}}</td></tr>
{{if .Config.RainStore}}<tr><th>Rain store</th><td>{{.Config.RainStore}}</td></tr>{{end}}
</table>

<p><a href="/index.json">JSON</a></p>
{{if .Live}}
<script>
(function() {
  var dot = document.getElementById("live-dot");

  function setDot(cls, title) {
    dot.className = "live-dot " + cls;
    dot.title = title;
  }

  function set(id, text) {
    var el = document.getElementById(id);
    if (el) { el.textContent = text; }
  }

  function connect() {
    var proto = location.protocol === "https:" ? "wss://" : "ws://";
    var ws = new WebSocket(proto + location.host + "/ws");

    ws.onopen = function() { setDot("ok", "live"); };
    ws.onclose = function() {
      setDot("err", "offline");
      setTimeout(connect, 5000);
    };
    ws.onmessage = function(ev) {
      try {
        var r = JSON.parse(ev.data);
        if (!document.getElementById("temperature")) { location.reload(); return; }
        set("temperature", r.temperature_c.toFixed(1) + " °C");
        set("humidity", r.humidity + " %");
        set("dewpoint", r.dewpoint_c.toFixed(1) + " °C");
        set("wind", r.wind.speed_kmh.toFixed(1) + " km/h " + r.wind.direction + " (" + r.wind.direction_deg + "°)");
        set("wind-chill", r.wind_chill_c.toFixed(1) + " °C");
        set("rain-1h", r.rain.last_hour_mm.toFixed(1) + " mm");
        set("rain-24h", r.rain.last_day_mm.toFixed(1) + " mm");
        set("rain-total", r.rain.total_mm.toFixed(1) + " mm (" + r.rain.total + " tips)");
        set("updated", r.timestamp);
      } catch (e) {}
    };
  }
  connect();
})();
</script>
{{end}}
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot, live bool) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime  time.Duration
		Current *report.ReadingJSON
		Seen    []string
		Live    bool
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		Seen:     status.SeenTypes(snap.Decoder.Seen),
		Live:     live,
	}
	if snap.Reading != nil {
		r := report.NewReadingJSON(*snap.Reading)
		data.Current = &r
	}
	indexTmpl.Execute(w, data)
}
