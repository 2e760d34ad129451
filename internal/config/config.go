// Package config loads the gesture-sensor YAML configuration file.
package config

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/gesture-sensor/internal/gesture"
	"github.com/sweeney/gesture-sensor/internal/gpio"
	"github.com/sweeney/gesture-sensor/internal/source"
)

// Source kinds.
const (
	SourceMQTT   = "mqtt"
	SourceSerial = "serial"
)

type Config struct {
	Tuning    Tuning        `yaml:"tuning"`
	Source    SourceConfig  `yaml:"source"`
	MQTT      MQTTConfig    `yaml:"mqtt"`
	HTTP      string        `yaml:"http"`
	LED       LEDConfig     `yaml:"led"`
	Heartbeat time.Duration `yaml:"heartbeat"`
	Record    string        `yaml:"record"`
}

// Tuning mirrors gesture.Config using the engine's documented constant names.
type Tuning struct {
	ThHi              float64 `yaml:"th_hi"`
	ThLo              float64 `yaml:"th_lo"`
	HPFFc             float64 `yaml:"hpf_fc"`
	LPFFc             float64 `yaml:"lpf_fc"`
	UDScale           float64 `yaml:"ud_scale"`
	UDDom             float64 `yaml:"ud_dom"`
	LRRefractMs       int     `yaml:"lr_refract_ms"`
	UDRefractMs       int     `yaml:"ud_refract_ms"`
	AxisCooldownMs    int     `yaml:"axis_cooldown_ms"`
	MutualBlockMs     int     `yaml:"mutual_block_ms"`
	UDToLRBlockMs     int     `yaml:"ud_to_lr_block_ms"`
	PostUDFreezeMs    int     `yaml:"post_ud_freeze_ms"`
	MinMs             int     `yaml:"min_ms"`
	MaxMs             int     `yaml:"max_ms"`
	SampleDT          float64 `yaml:"sample_dt"`
	GravityConfidence float64 `yaml:"gravity_confidence"`
	GravityFloor      float64 `yaml:"gravity_floor"`
}

type SourceConfig struct {
	Kind  string `yaml:"kind"`
	Topic string `yaml:"topic"`
	Port  string `yaml:"port"`
	Baud  uint   `yaml:"baud"`
	Queue int    `yaml:"queue"`
}

type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	// Commands publishes each routed action on the command topic.
	Commands bool `yaml:"commands"`
}

type LEDConfig struct {
	Enable bool          `yaml:"enable"`
	Pin    int           `yaml:"pin"`
	Flash  time.Duration `yaml:"flash"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Tuning: TuningFrom(gesture.DefaultConfig()),
		Source: SourceConfig{
			Kind:  SourceMQTT,
			Topic: source.DefaultTopic,
			Port:  "/dev/ttyACM0",
			Baud:  115200,
			Queue: 256,
		},
		MQTT: MQTTConfig{
			Broker:   "tcp://192.168.1.200:1883",
			ClientID: "gesture-sensor",
			Commands: true,
		},
		HTTP:      ":80",
		LED:       LEDConfig{Pin: gpio.PinLED, Flash: gpio.DefaultFlash},
		Heartbeat: 15 * time.Minute,
	}
}

// Load reads path over the defaults and validates the result.
// Unknown keys are rejected.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer f.Close()

	cfg := Default()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if err := c.Tuning.Gesture().Validate(); err != nil {
		return fmt.Errorf("tuning: %w", err)
	}

	switch c.Source.Kind {
	case SourceMQTT:
		if c.Source.Topic == "" {
			return errors.New("source.topic is required for kind mqtt")
		}
	case SourceSerial:
		if c.Source.Port == "" {
			return errors.New("source.port is required for kind serial")
		}
		if c.Source.Baud == 0 {
			return errors.New("source.baud must be > 0")
		}
	default:
		return fmt.Errorf("source.kind must be %q or %q, got %q", SourceMQTT, SourceSerial, c.Source.Kind)
	}
	if c.Source.Queue < 0 {
		return errors.New("source.queue must be >= 0")
	}

	if c.MQTT.Broker == "" {
		return errors.New("mqtt.broker is required")
	}
	if c.Heartbeat < 0 {
		return errors.New("heartbeat must be >= 0")
	}
	if c.LED.Enable {
		if c.LED.Pin < 0 {
			return errors.New("led.pin must be >= 0")
		}
		if c.LED.Flash <= 0 {
			return errors.New("led.flash must be > 0")
		}
	}
	return nil
}

// Gesture converts the tuning to engine config.
func (t Tuning) Gesture() gesture.Config {
	ms := func(n int) time.Duration { return time.Duration(n) * time.Millisecond }
	return gesture.Config{
		ThresholdHigh:          t.ThHi,
		ThresholdLow:           t.ThLo,
		HighPassCutoff:         t.HPFFc,
		LowPassCutoff:          t.LPFFc,
		VerticalScale:          t.UDScale,
		VerticalDominance:      t.UDDom,
		Refractory:             ms(t.LRRefractMs),
		VerticalRefractory:     ms(t.UDRefractMs),
		AxisCooldown:           ms(t.AxisCooldownMs),
		MutualBlock:            ms(t.MutualBlockMs),
		VerticalToLateralBlock: ms(t.UDToLRBlockMs),
		PostVerticalFreeze:     ms(t.PostUDFreezeMs),
		MinPulse:               ms(t.MinMs),
		MaxPulse:               ms(t.MaxMs),
		SampleDT:               time.Duration(math.Round(t.SampleDT * float64(time.Second))),
		GravityConfidence:      t.GravityConfidence,
		GravityFloor:           t.GravityFloor,
	}
}

// TuningFrom converts engine config to its file form.
func TuningFrom(c gesture.Config) Tuning {
	return Tuning{
		ThHi:              c.ThresholdHigh,
		ThLo:              c.ThresholdLow,
		HPFFc:             c.HighPassCutoff,
		LPFFc:             c.LowPassCutoff,
		UDScale:           c.VerticalScale,
		UDDom:             c.VerticalDominance,
		LRRefractMs:       int(c.Refractory.Milliseconds()),
		UDRefractMs:       int(c.VerticalRefractory.Milliseconds()),
		AxisCooldownMs:    int(c.AxisCooldown.Milliseconds()),
		MutualBlockMs:     int(c.MutualBlock.Milliseconds()),
		UDToLRBlockMs:     int(c.VerticalToLateralBlock.Milliseconds()),
		PostUDFreezeMs:    int(c.PostVerticalFreeze.Milliseconds()),
		MinMs:             int(c.MinPulse.Milliseconds()),
		MaxMs:             int(c.MaxPulse.Milliseconds()),
		SampleDT:          c.SampleDT.Seconds(),
		GravityConfidence: c.GravityConfidence,
		GravityFloor:      c.GravityFloor,
	}
}
