// Command dcf77-clock decodes the DCF77 time signal from a pulse feed and publishes the time to MQTT.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/inconshreveable/log15"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/sweeney/dcf77-clock/internal/config"
	"github.com/sweeney/dcf77-clock/internal/dcf77"
	"github.com/sweeney/dcf77-clock/internal/feed"
	"github.com/sweeney/dcf77-clock/internal/gpio"
	"github.com/sweeney/dcf77-clock/internal/metrics"
	"github.com/sweeney/dcf77-clock/internal/mqtt"
	"github.com/sweeney/dcf77-clock/internal/status"
	"github.com/sweeney/dcf77-clock/internal/web"
)

var logger = log15.New("pkg", "main")

func main() {
	cfg, printConfig, err := loadConfig(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "dcf77-clock: %v\n", err)
		os.Exit(2)
	}

	if printConfig {
		out, err := cfg.YAML()
		if err != nil {
			fmt.Fprintf(os.Stderr, "dcf77-clock: %v\n", err)
			os.Exit(1)
		}
		os.Stdout.Write(out)
		return
	}

	if err := setupLogging(cfg.Log, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "dcf77-clock: %v\n", err)
		os.Exit(2)
	}
	if err := run(cfg); err != nil {
		logger.Crit("fatal", "err", err)
		os.Exit(1)
	}
}

// loadConfig applies defaults, then the config file, then explicitly set flags.
func loadConfig(args []string) (config.Config, bool, error) {
	def := config.Default()
	fs := pflag.NewFlagSet("dcf77-clock", pflag.ContinueOnError)

	path := fs.StringP("config", "c", "", "YAML config file")
	source := fs.String("source", def.Source, "Pulse source: websocket, gpio, replay or simulate")
	wsURL := fs.String("url", def.WebSocket.URL, "Live feed websocket URL")
	reconnect := fs.Duration("reconnect", def.WebSocket.Reconnect, "Websocket reconnect interval")
	chip := fs.String("gpio-chip", def.GPIO.Chip, "GPIO chip of the receiver module")
	line := fs.Int("gpio-line", def.GPIO.Line, "GPIO line of the receiver module")
	activeLow := fs.Bool("active-low", def.GPIO.ActiveLow, "Receiver pulls the line low during a pulse")
	replay := fs.String("replay", def.Replay.Path, `Recorded feed to replay ("-" for stdin)`)
	pace := fs.Float64("pace", def.Replay.Pace, "Replay/simulation speed (1 = real time, 0 = unpaced)")
	broker := fs.String("broker", def.MQTT.Broker, "MQTT broker address (empty to disable)")
	clientID := fs.String("client-id", def.MQTT.ClientID, "MQTT client id prefix")
	heartbeat := fs.Duration("heartbeat", def.MQTT.Heartbeat, "Heartbeat interval (0 to disable)")
	httpAddr := fs.String("http", def.HTTP.Addr, "HTTP status address (empty to disable)")
	logLevel := fs.String("log-level", def.Log.Level, "Log level: debug, info, warn, error or crit")
	logFormat := fs.String("log-format", def.Log.Format, "Log format: terminal, logfmt or json")
	printConfig := fs.Bool("print-config", false, "Print the effective configuration and exit")

	if err := fs.Parse(args); err != nil {
		return def, false, err
	}

	cfg := def
	if *path != "" {
		var err error
		if cfg, err = config.Load(*path); err != nil {
			return cfg, false, err
		}
	}

	set := func(name string, apply func()) {
		if fs.Changed(name) {
			apply()
		}
	}
	set("source", func() { cfg.Source = *source })
	set("url", func() { cfg.WebSocket.URL = *wsURL })
	set("reconnect", func() { cfg.WebSocket.Reconnect = *reconnect })
	set("gpio-chip", func() { cfg.GPIO.Chip = *chip })
	set("gpio-line", func() { cfg.GPIO.Line = *line })
	set("active-low", func() { cfg.GPIO.ActiveLow = *activeLow })
	set("replay", func() { cfg.Replay.Path = *replay })
	set("pace", func() {
		cfg.Replay.Pace = *pace
		cfg.Simulate.Pace = *pace
	})
	set("broker", func() { cfg.MQTT.Broker = *broker })
	set("client-id", func() { cfg.MQTT.ClientID = *clientID })
	set("heartbeat", func() { cfg.MQTT.Heartbeat = *heartbeat })
	set("http", func() { cfg.HTTP.Addr = *httpAddr })
	set("log-level", func() { cfg.Log.Level = *logLevel })
	set("log-format", func() { cfg.Log.Format = *logFormat })

	if err := cfg.Validate(); err != nil {
		return cfg, false, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, *printConfig, nil
}

// setupLogging installs the root log15 handler.
func setupLogging(lc config.LogConfig, w io.Writer) error {
	lvl, err := log15.LvlFromString(lc.Level)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}

	var format log15.Format
	switch lc.Format {
	case "json":
		format = log15.JsonFormat()
	case "logfmt":
		format = log15.LogfmtFormat()
	default:
		format = log15.TerminalFormat()
	}
	log15.Root().SetHandler(log15.LvlFilterHandler(lvl, log15.StreamHandler(w, format)))
	return nil
}

// newSource builds the configured pulse source. The returned closer releases
// any file the source reads from.
func newSource(cfg config.Config) (feed.Source, string, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Source {
	case config.SourceWebSocket:
		src := feed.NewWebSocketSource(cfg.WebSocket.URL, cfg.WebSocket.Origin, cfg.WebSocket.Reconnect)
		return src, cfg.WebSocket.URL, noop, nil
	case config.SourceGPIO:
		src := gpio.NewRealSource(cfg.GPIO.Chip, cfg.GPIO.Line, cfg.GPIO.ActiveLow)
		return src, fmt.Sprintf("%s:%d", cfg.GPIO.Chip, cfg.GPIO.Line), noop, nil
	case config.SourceReplay:
		if cfg.Replay.Path == "-" {
			return feed.NewReplaySource(os.Stdin, cfg.Replay.Pace), "stdin", noop, nil
		}
		f, err := os.Open(cfg.Replay.Path)
		if err != nil {
			return nil, "", nil, fmt.Errorf("open replay: %w", err)
		}
		return feed.NewReplaySource(f, cfg.Replay.Pace), cfg.Replay.Path, f.Close, nil
	case config.SourceSimulate:
		return feed.NewSimulatedSource(time.Now, cfg.Simulate.Pace), "local clock", noop, nil
	}
	return nil, "", nil, fmt.Errorf("unknown source %q", cfg.Source)
}

func run(cfg config.Config) error {
	src, target, closeSrc, err := newSource(cfg)
	if err != nil {
		return err
	}
	defer closeSrc()
	feedStatus, _ := src.(feed.Connected)

	// Initialize MQTT
	var publisher interface {
		mqtt.Publisher
		mqtt.ConnectionStatus
	} = mqtt.Nop{}
	if cfg.MQTT.Broker != "" {
		p, err := mqtt.NewRealPublisher(mqtt.Options{
			Broker:     cfg.MQTT.Broker,
			ClientID:   cfg.MQTT.ClientID,
			BufferSize: cfg.MQTT.BufferSize,
		})
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		publisher = p
	}
	defer publisher.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		Source:      cfg.Source,
		Feed:        target,
		Broker:      cfg.MQTT.Broker,
		HTTPAddr:    cfg.HTTP.Addr,
		HeartbeatMs: cfg.MQTT.Heartbeat.Milliseconds(),
	})
	tracker.SetMQTTConnected(publisher.IsConnected())

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	if err := publisher.PublishSystem(mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}); err != nil {
		logger.Warn("failed to publish startup event", "err", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	pulses := make(chan dcf77.Pulse, 64)
	g.Go(func() error {
		defer close(pulses)
		if err := src.Run(gctx, pulses); err != nil {
			return fmt.Errorf("pulse source: %w", err)
		}
		return nil
	})

	// Start HTTP status server
	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker, reg)
		g.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
			defer done()
			return srv.Shutdown(shutCtx)
		})
		logger.Info("http status server listening", "addr", cfg.HTTP.Addr)
	}

	logger.Info("started", "source", cfg.Source, "feed", target, "broker", cfg.MQTT.Broker, "heartbeat", cfg.MQTT.Heartbeat)

	var heartbeat <-chan time.Time
	if cfg.MQTT.Heartbeat > 0 {
		ticker := time.NewTicker(cfg.MQTT.Heartbeat)
		defer ticker.Stop()
		heartbeat = ticker.C
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	loopErr := runLoop(pulses, publisher, publisher, feedStatus, tracker, m, time.Now, heartbeat, sigCh)
	cancel()
	// Unblock the source if it is waiting to hand over a pulse.
	go func() {
		for range pulses {
		}
	}()
	if err := g.Wait(); err != nil {
		return err
	}
	return loopErr
}

// runLoop owns the decoder. Pulses are processed one at a time in arrival order;
// it returns on a signal or when the source closes the pulse channel.
func runLoop(pulses <-chan dcf77.Pulse, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, feedStatus feed.Connected, tracker *status.Tracker, m *metrics.Metrics, now func() time.Time, heartbeat <-chan time.Time, sig <-chan os.Signal) error {
	decoder := dcf77.NewDecoder()

	refresh := func() {
		if mqttStatus != nil {
			up := mqttStatus.IsConnected()
			tracker.SetMQTTConnected(up)
			m.SetMQTTConnected(up)
		}
		if feedStatus != nil {
			up := feedStatus.IsConnected()
			tracker.SetFeedConnected(up)
			m.SetFeedConnected(up)
		}
	}

	shutdown := func(reason string) {
		refresh()
		snap := tracker.Snapshot()
		event := mqtt.SystemEvent{
			Timestamp:  now(),
			Event:      "SHUTDOWN",
			Reason:     reason,
			Retained:   true,
			RawPayload: status.FormatStatusEvent(snap, "SHUTDOWN", reason),
		}
		if err := publisher.PublishSystem(event); err != nil {
			logger.Warn("failed to publish shutdown event", "err", err)
		} else {
			logger.Info("published shutdown event", "reason", reason)
		}
	}

	for {
		select {
		case s := <-sig:
			logger.Info("shutting down", "signal", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			shutdown(signalName)
			return nil

		case p, ok := <-pulses:
			if !ok {
				logger.Info("pulse feed ended")
				shutdown("FEED_ENDED")
				return nil
			}

			t := now()
			step := decoder.Process(p)
			frame := decoder.Frame()
			tracker.Observe(frame, step, t)
			m.Observe(frame, step, float64(t.UnixNano())/1e9)
			logger.Debug("pulse", "pulse_ms", p.PulseMs, "pause_ms", p.PauseMs, "class", step.Class, "pos", step.Written)

			if step.Boundary {
				logBoundary(frame, step)
				if err := publisher.Publish(mqtt.NewMinuteEvent(t, frame, step)); err != nil {
					logger.Warn("publish error", "err", err)
					// Don't crash on publish failure
				}
			}
			refresh()

		case <-heartbeat:
			refresh()
			snap := tracker.Snapshot()
			ctx := []interface{}{"uptime", snap.Uptime().Truncate(time.Second), "phase", snap.Frame.Phase,
				"pulses", snap.Counters.Pulses, "boundaries", snap.Counters.Boundaries}
			if b, ok := publisher.(mqtt.Backlog); ok {
				ctx = append(ctx, "mqtt_buffered", b.Buffered())
			}
			logger.Info("heartbeat", ctx...)
			if err := publisher.PublishSystem(mqtt.SystemEvent{
				Timestamp:  snap.Now,
				Event:      "HEARTBEAT",
				RawPayload: status.FormatStatusEvent(snap, "HEARTBEAT", ""),
			}); err != nil {
				logger.Warn("heartbeat publish error", "err", err)
			}
		}
	}
}

func logBoundary(frame dcf77.Frame, step dcf77.Step) {
	ctx := []interface{}{
		"phase", frame.Phase,
		"hours", frame.RealHours.Int(),
		"minutes", frame.RealMinutes.Int(),
		"rotation", step.Rotation,
	}
	if reason := step.Check.Reason(); reason != "" {
		logger.Warn("minute rejected", append(ctx, "reason", reason)...)
		return
	}
	logger.Info("minute decoded", ctx...)
}
