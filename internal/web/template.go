package web

import (
	"fmt"
	"html/template"
	"io"
	"math"
	"time"

	"github.com/inconshreveable/log15"

	"github.com/sweeney/dcf77-clock/internal/ring"
	"github.com/sweeney/dcf77-clock/internal/status"
)

var logger = log15.New("pkg", "web")

// Clock face geometry in SVG units.
const (
	faceSize    = 320
	outerRadius = 140
	innerRadius = 90
	outerDot    = 6
	innerDot    = 7
)

// dot is one LED on the rendered clock face.
type dot struct {
	X, Y  float64
	R     int
	Color string
	Title string
}

func place(i, n int, radius float64) (float64, float64) {
	a := 2*math.Pi*float64(i)/float64(n) - math.Pi/2 // index 0 at twelve o'clock
	c := float64(faceSize) / 2
	return c + radius*math.Cos(a), c + radius*math.Sin(a)
}

// offColor draws unlit LEDs so the face keeps its shape on the dark background.
const offColor = "#222222"

// faceDots lays out the LED strip: seconds on the outer ring, hours inside.
func faceDots(r ring.Ring) []dot {
	strip := r.Strip()
	dots := make([]dot, 0, len(strip))
	for i, c := range strip {
		d := dot{R: outerDot, Title: fmt.Sprintf("second %d", i)}
		if i < ring.HourOffset {
			d.X, d.Y = place(i, ring.SecondLEDs, outerRadius)
		} else {
			h := i - ring.HourOffset
			d.X, d.Y = place(h, ring.HourLEDs, innerRadius)
			d.R, d.Title = innerDot, fmt.Sprintf("hour LED %d", h)
		}
		d.Color = offColor
		if !c.IsOff() {
			d.Color = c.RGB().CSS()
		}
		dots = append(dots, d)
	}
	return dots
}

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
	"field": func(v int) string {
		if v < 0 {
			return "--"
		}
		return fmt.Sprintf("%02d", v)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="1">
<title>DCF77 Clock</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
svg { display: block; margin: 0 auto; background: #111; border-radius: 50%; }
.time { font-size: 2.4em; text-align: center; margin: 0.3em 0; }
.VALID { color: green; }
.SYNCED { color: orange; }
.UNSYNCED { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
.bits { word-break: break-all; }
</style>
</head>
<body>
<h1>DCF77 Clock</h1>

<svg width="{{.Size}}" height="{{.Size}}" viewBox="0 0 {{.Size}} {{.Size}}">
{{range .Dots}}<circle cx="{{printf "%.1f" .X}}" cy="{{printf "%.1f" .Y}}" r="{{.R}}" fill="{{.Color}}"><title>{{.Title}}</title></circle>
{{end}}</svg>
<p class="time">{{field .Frame.RealHours.Int}}:{{field .Frame.RealMinutes.Int}}</p>

<h2>Decoder</h2>
<table>
<tr><th>Phase</th><td class="{{.Frame.Phase}}">{{.Frame.Phase}}</td></tr>
<tr><th>Position</th><td>{{.Frame.Position}}</td></tr>
<tr><th>Buffer</th><td class="bits">{{.Bits}}</td></tr>
{{if .HaveBoundary}}<tr><th>Last boundary</th><td>{{.LastBoundary.UTC.Format "2006-01-02T15:04:05Z"}}{{with .LastCheck.Reason}} ({{.}}){{end}}</td></tr>{{end}}
</table>

<h2>Connectivity</h2>
<table>
<tr><th>Feed</th><td class="{{if .FeedConnected}}connected{{else}}disconnected{{end}}">{{.Config.Source}} {{.Config.Feed}}</td></tr>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}disabled{{end}}</td></tr>
</table>

<h2>Counters</h2>
<table>
<tr><th>Pulses</th><td>{{.Counters.Pulses}} ({{.Counters.Zeros}} zero, {{.Counters.Ones}} one, {{.Counters.Ignored}} ignored)</td></tr>
<tr><th>Minute boundaries</th><td>{{.Counters.Boundaries}}</td></tr>
<tr><th>Commits</th><td>{{.Counters.MinuteCommits}} minute, {{.Counters.HourCommits}} hour</td></tr>
<tr><th>Parity failures</th><td>{{.Counters.ParityFailures}}</td></tr>
<tr><th>Missing start marker</th><td>{{.Counters.StartMarkerMisses}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> | <a href="/metrics">metrics</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	// Derived values are precomputed so the template only reads fields.
	data := struct {
		status.Snapshot
		Uptime       time.Duration
		HaveBoundary bool
		Bits         string
		Size         int
		Dots         []dot
	}{
		Snapshot:     snap,
		Uptime:       snap.Uptime(),
		HaveBoundary: snap.HaveBoundary(),
		Bits:         snap.Frame.Bits.String(),
		Size:         faceSize,
		Dots:         faceDots(ring.Render(snap.Frame)),
	}
	return indexTmpl.Execute(w, data)
}
