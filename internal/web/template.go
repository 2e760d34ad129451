package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/gesture-sensor/internal/status"
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
	"orNone": func(s string) string {
		if s == "" {
			return "NONE"
		}
		return s
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Gesture Sensor</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.gesture { font-weight: bold; }
.connected { color: green; }
.disconnected { color: red; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
</style>
</head>
<body>
<h1>Gesture Sensor{{if .Live}}<span id="live-dot" class="live-dot pending" title="connecting"></span>{{end}}</h1>

<h2>Gestures</h2>
<table>
<tr><th>Last gesture</th><td id="last-gesture" class="gesture">{{orNone (printf "%s" .LastGesture)}}</td></tr>
<tr><th>Suppression</th><td id="reason">{{.LastReason}}</td></tr>
<tr><th>Vertical axis</th><td>{{.VerticalAxis}}</td></tr>
<tr><th>LEFT</th><td id="count-left">{{.Counts.Left}}</td></tr>
<tr><th>RIGHT</th><td id="count-right">{{.Counts.Right}}</td></tr>
<tr><th>UP</th><td id="count-up">{{.Counts.Up}}</td></tr>
<tr><th>DOWN</th><td id="count-down">{{.Counts.Down}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>Source ({{.Config.Source}})</th><td class="{{if .SourceConnected}}connected{{else}}disconnected{{end}}">{{if .SourceConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Samples</th><td>{{.Samples}} ({{.Dropped}} dropped, {{.Sessions}} reconnects)</td></tr>
<tr><th>Sample period</th><td>{{.Config.SampleMs}}ms</td></tr>
<tr><th>Thresholds</th><td>{{.Config.ThresholdHigh}} / {{.Config.ThresholdLow}} g</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPPort}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
{{if .Live}}
<script>
(function() {
  var dot = document.getElementById("live-dot");
  var last = document.getElementById("last-gesture");
  var reason = document.getElementById("reason");

  function setDot(cls, title) {
    dot.className = "live-dot " + cls;
    dot.title = title;
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
        var msg = JSON.parse(ev.data);
        if (msg.type === "gesture") {
          last.textContent = msg.payload.event;
          var el = document.getElementById("count-" + msg.payload.event.toLowerCase());
          if (el) { el.textContent = parseInt(el.textContent, 10) + 1; }
        } else if (msg.type === "reason") {
          reason.textContent = msg.payload.reason;
        }
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
		Uptime time.Duration
		Live   bool
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		Live:     live,
	}
	indexTmpl.Execute(w, data)
}
