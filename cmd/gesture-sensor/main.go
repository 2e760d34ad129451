// Command gesture-sensor turns a live accelerometer stream into media
// control gestures and publishes them to MQTT.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/gesture-sensor/internal/action"
	"github.com/sweeney/gesture-sensor/internal/capture"
	"github.com/sweeney/gesture-sensor/internal/config"
	"github.com/sweeney/gesture-sensor/internal/gesture"
	"github.com/sweeney/gesture-sensor/internal/gpio"
	"github.com/sweeney/gesture-sensor/internal/mqtt"
	"github.com/sweeney/gesture-sensor/internal/source"
	"github.com/sweeney/gesture-sensor/internal/status"
	"github.com/sweeney/gesture-sensor/internal/web"
)

// statusInterval is how often connectivity and heartbeat are checked.
const statusInterval = time.Second

var errSourceClosed = errors.New("sample source closed")

// flagValues holds command-line overrides for the config file.
type flagValues struct {
	broker     string
	httpAddr   string
	heartbeat  time.Duration
	sourceKind string
	serialPort string
	topic      string
	record     string
	led        bool
	ledPin     int
}

func main() {
	def := config.Default()

	configPath := flag.String("config", "", "YAML config file (defaults apply when empty)")
	printConfig := flag.Bool("print-config", false, "Print the effective config and exit")
	var fv flagValues
	flag.StringVar(&fv.broker, "broker", def.MQTT.Broker, "MQTT broker address")
	flag.StringVar(&fv.httpAddr, "http", def.HTTP, "HTTP status address (empty to disable)")
	flag.DurationVar(&fv.heartbeat, "heartbeat", def.Heartbeat, "Heartbeat interval (0 to disable)")
	flag.StringVar(&fv.sourceKind, "source", def.Source.Kind, `Sample source: "mqtt" or "serial"`)
	flag.StringVar(&fv.serialPort, "serial-port", def.Source.Port, "Serial device for -source=serial")
	flag.StringVar(&fv.topic, "topic", def.Source.Topic, "MQTT topic carrying sample frames")
	flag.StringVar(&fv.record, "record", def.Record, "Append a capture of every sample to this file")
	flag.BoolVar(&fv.led, "led", def.LED.Enable, "Flash a GPIO LED on each gesture")
	flag.IntVar(&fv.ledPin, "pin-led", def.LED.Pin, "BCM pin number for the indicator LED")

	flag.Parse()

	cfg := def
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatalf("fatal: load config: %v", err)
		}
	}

	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	cfg = overlay(cfg, set, fv)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("fatal: %v", err)
	}

	if *printConfig {
		if err := writeConfig(os.Stdout, cfg); err != nil {
			log.Fatalf("fatal: %v", err)
		}
		return
	}

	if err := run(cfg); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// overlay applies the flags named in set on top of cfg.
func overlay(cfg config.Config, set map[string]bool, fv flagValues) config.Config {
	if set["broker"] {
		cfg.MQTT.Broker = fv.broker
	}
	if set["http"] {
		cfg.HTTP = fv.httpAddr
	}
	if set["heartbeat"] {
		cfg.Heartbeat = fv.heartbeat
	}
	if set["source"] {
		cfg.Source.Kind = fv.sourceKind
	}
	if set["serial-port"] {
		cfg.Source.Port = fv.serialPort
	}
	if set["topic"] {
		cfg.Source.Topic = fv.topic
	}
	if set["record"] {
		cfg.Record = fv.record
	}
	if set["led"] {
		cfg.LED.Enable = fv.led
	}
	if set["pin-led"] {
		cfg.LED.Pin = fv.ledPin
	}
	return cfg
}

func writeConfig(w io.Writer, cfg config.Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}

func openSource(cfg config.Config) (source.Reader, error) {
	switch cfg.Source.Kind {
	case config.SourceSerial:
		return source.OpenSerial(source.SerialConfig{Port: cfg.Source.Port, Baud: cfg.Source.Baud})
	default:
		return source.NewMQTTReader(source.MQTTConfig{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID + "-samples",
			Topic:    cfg.Source.Topic,
			Queue:    cfg.Source.Queue,
		})
	}
}

// logActions logs every routed action; it is always one of the targets.
func logActions() action.Funcs {
	logged := func(name action.Name) func() error {
		return func() error {
			log.Printf("action: %s", name)
			return nil
		}
	}
	return action.Funcs{
		Next:     logged(action.NameSkipNext),
		Previous: logged(action.NameSkipPrevious),
		Toggle:   logged(action.NameTogglePlayPause),
		Selector: logged(action.NameOpenSelector),
	}
}

func run(cfg config.Config) error {
	gcfg := cfg.Tuning.Gesture()

	src, err := openSource(cfg)
	if err != nil {
		return fmt.Errorf("init source: %w", err)
	}
	defer src.Close()

	// Initialize MQTT
	publisher := mqtt.NewRealPublisher(cfg.MQTT.Broker, cfg.MQTT.ClientID)
	defer publisher.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		Source:        cfg.Source.Kind,
		SampleMs:      gcfg.SampleDT.Milliseconds(),
		HeartbeatMs:   cfg.Heartbeat.Milliseconds(),
		ThresholdHigh: gcfg.ThresholdHigh,
		ThresholdLow:  gcfg.ThresholdLow,
		Broker:        cfg.MQTT.Broker,
		HTTPPort:      cfg.HTTP,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	targets := action.Multi{logActions()}
	if cfg.MQTT.Commands {
		targets = append(targets, mqtt.NewCommander(publisher, time.Now))
	}
	dispatcher := action.NewDispatcher(targets, action.DefaultQueueSize)
	go dispatcher.Run(ctx)

	d := &daemon{
		engine:     gesture.NewEngine(gcfg, time.Now()),
		publisher:  publisher,
		mqttStatus: publisher,
		dispatcher: dispatcher,
		tracker:    tracker,
		heartbeat:  cfg.Heartbeat,
		now:        time.Now,
	}
	if cs, ok := src.(source.ConnectionStatus); ok {
		d.sourceStatus = cs
	}
	if dc, ok := src.(source.DropCounter); ok {
		d.drops = dc
	}

	if cfg.LED.Enable {
		led, err := gpio.NewRealIndicator(cfg.LED.Pin, cfg.LED.Flash)
		if err != nil {
			log.Printf("led disabled: %v", err)
		} else {
			defer led.Close()
			d.indicator = led
		}
	}

	if cfg.Record != "" {
		f, err := os.OpenFile(cfg.Record, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open capture: %w", err)
		}
		rec := capture.NewWriter(f)
		defer rec.Close()
		rec.Comment(fmt.Sprintf("gesture-sensor %s source=%s dt=%v", time.Now().UTC().Format(time.RFC3339), cfg.Source.Kind, gcfg.SampleDT))
		d.recorder = rec
		log.Printf("recording samples to %s", cfg.Record)
	}

	// Start HTTP status server
	if cfg.HTTP != "" {
		d.hub = web.NewHub(tracker)
		srv := web.New(cfg.HTTP, tracker, d.hub)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTP)
	}

	log.Printf("started: source=%s broker=%s heartbeat=%v th_hi=%.2f th_lo=%.2f",
		cfg.Source.Kind, cfg.MQTT.Broker, cfg.Heartbeat, gcfg.ThresholdHigh, gcfg.ThresholdLow)

	readings := make(chan sourceItem, 64)
	go pump(ctx, src, readings)

	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return d.runLoop(readings, ticker.C, sigCh)
}

// sourceItem is one result of source.Reader.Read.
type sourceItem struct {
	reading source.Reading
	err     error
}

// pump reads src until it is exhausted or ctx is done, then closes out.
func pump(ctx context.Context, src source.Reader, out chan<- sourceItem) {
	defer close(out)
	for {
		rd, err := src.Read(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return
			}
			select {
			case out <- sourceItem{err: err}:
			case <-ctx.Done():
				return
			}
			if !errors.Is(err, source.ErrReset) {
				// Avoid spinning on a persistent transport error.
				select {
				case <-time.After(time.Second):
				case <-ctx.Done():
					return
				}
			}
			continue
		}
		select {
		case out <- sourceItem{reading: rd}:
		case <-ctx.Done():
			return
		}
	}
}

// daemon owns the engine and routes its output. Only runLoop's goroutine
// touches the engine.
type daemon struct {
	engine       *gesture.Engine
	publisher    mqtt.Publisher
	mqttStatus   mqtt.ConnectionStatus
	dispatcher   *action.Dispatcher
	indicator    gpio.Indicator
	hub          *web.Hub
	tracker      *status.Tracker
	recorder     *capture.Writer
	sourceStatus source.ConnectionStatus
	drops        source.DropCounter
	dropsLogged  uint64
	heartbeat    time.Duration
	now          func() time.Time
}

func (d *daemon) runLoop(readings <-chan sourceItem, tick <-chan time.Time, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			d.shutdown(signalName)
			return nil

		case item, ok := <-readings:
			if !ok {
				log.Printf("source: closed")
				d.shutdown("SOURCE_CLOSED")
				return errSourceClosed
			}
			if item.err != nil {
				d.sourceError(item.err)
				continue
			}
			d.process(item.reading)

		case <-tick:
			d.refresh()
			t := d.now()
			if hbData := d.engine.CheckHeartbeat(t, d.heartbeat); hbData != nil {
				log.Printf("heartbeat: uptime=%v samples=%d left=%d right=%d up=%d down=%d",
					hbData.Uptime, hbData.Samples, hbData.Counts.Left, hbData.Counts.Right, hbData.Counts.Up, hbData.Counts.Down)
				if dc, ok := d.publisher.(source.DropCounter); ok && dc.Dropped() > 0 {
					log.Printf("heartbeat: %d mqtt messages lost while offline", dc.Dropped())
				}

				hbEvent := mqtt.SystemEvent{
					Timestamp: hbData.Timestamp,
					Event:     "HEARTBEAT",
					Heartbeat: mqtt.NewHeartbeatInfo(*hbData),
				}
				if d.tracker != nil {
					// Refresh network info for heartbeat
					if net := readNetworkInfo(); net != nil {
						d.tracker.SetNetwork(net)
					}
					hbEvent.RawPayload = status.FormatStatusEvent(d.tracker.Snapshot(), "HEARTBEAT", "")
				}
				if err := d.publisher.PublishSystem(hbEvent); err != nil {
					log.Printf("heartbeat publish error: %v", err)
				}
			}
		}
	}
}

func (d *daemon) process(rd source.Reading) {
	if d.recorder != nil {
		if err := d.recorder.Write(rd.At, rd.Sample); err != nil {
			log.Printf("capture write error: %v", err)
		}
	}

	for _, event := range d.engine.Process(rd.Sample, rd.At) {
		log.Printf("gesture: %s (%dms)", event.Gesture, event.Duration.Milliseconds())
		if err := d.publisher.Publish(event); err != nil {
			log.Printf("publish error: %v", err)
			// Don't crash on publish failure
		}
		if d.dispatcher != nil && !d.dispatcher.Dispatch(event.Gesture) {
			log.Printf("action: queue full, dropped %s", event.Gesture)
		}
		if d.indicator != nil {
			if err := d.indicator.Flash(event.Gesture); err != nil {
				log.Printf("led error: %v", err)
			}
		}
		if d.hub != nil {
			d.hub.BroadcastGesture(event)
		}
	}

	if d.tracker != nil && d.tracker.Update(d.engine.Snapshot()) && d.hub != nil {
		d.hub.BroadcastReason(d.engine.LastReason())
	}
}

func (d *daemon) sourceError(err error) {
	if !errors.Is(err, source.ErrReset) {
		log.Printf("source read error: %v", err)
		return
	}
	log.Printf("source: reconnected, starting new session")
	d.engine.Reset()
	if d.tracker != nil {
		d.tracker.NewSession()
	}
	if d.recorder != nil {
		if err := d.recorder.Start(d.now()); err != nil {
			log.Printf("capture write error: %v", err)
		}
	}
}

// refresh copies connectivity and drop counts into the tracker.
func (d *daemon) refresh() {
	if d.tracker == nil {
		return
	}
	if d.mqttStatus != nil {
		d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
	}
	if d.sourceStatus != nil {
		d.tracker.SetSourceConnected(d.sourceStatus.IsConnected())
	}
	if d.drops != nil {
		n := d.drops.Dropped()
		d.tracker.SetDropped(n)
		d.logDrops(n)
	}
	if d.recorder != nil {
		if err := d.recorder.Flush(); err != nil {
			log.Printf("capture flush error: %v", err)
		}
	}
}

// logDrops reports the first malformed frame, then one count per refresh
// while frames keep being dropped.
func (d *daemon) logDrops(n uint64) {
	if n <= d.dropsLogged {
		return
	}
	if d.dropsLogged == 0 {
		log.Printf("source: dropping malformed or late frames")
	} else {
		log.Printf("source: dropped %d frames (%d total)", n-d.dropsLogged, n)
	}
	d.dropsLogged = n
}

func (d *daemon) shutdown(reason string) {
	event := mqtt.SystemEvent{
		Timestamp: d.now(),
		Event:     "SHUTDOWN",
		Reason:    reason,
		Retained:  true,
	}
	if d.tracker != nil {
		d.refresh()
		snap := d.tracker.Snapshot()
		event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", reason)
	}
	if err := d.publisher.PublishSystem(event); err != nil {
		log.Printf("failed to publish shutdown event: %v", err)
	} else {
		log.Printf("published shutdown event")
	}
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
