// Package config loads the daemon configuration: a YAML file with
// defaults, validated, then overridden from the environment.
package config

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Modem     ModemConfig     `yaml:"modem"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Redis     RedisConfig     `yaml:"redis"`
	Telephony TelephonyConfig `yaml:"telephony"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type ModemConfig struct {
	Host string `yaml:"host" env:"CALLMGRD_MODEM_HOST"`
	Port int    `yaml:"port" env:"CALLMGRD_MODEM_PORT"`
}

type MQTTConfig struct {
	Broker      string `yaml:"broker" env:"CALLMGRD_MQTT_BROKER"`
	ClientID    string `yaml:"client_id" env:"CALLMGRD_MQTT_CLIENT_ID"`
	TopicPrefix string `yaml:"topic_prefix" env:"CALLMGRD_MQTT_TOPIC_PREFIX"`
	// WatchedClients are IPC client names whose presence gates call
	// lifetime: when the last one disappears, all calls are ended.
	WatchedClients []string `yaml:"watched_clients" env:"CALLMGRD_MQTT_WATCHED_CLIENTS"`
}

type RedisConfig struct {
	Addr string `yaml:"addr" env:"CALLMGRD_REDIS_ADDR"`
	DB   int    `yaml:"db" env:"CALLMGRD_REDIS_DB"`
}

type TelephonyConfig struct {
	Slots             int `yaml:"slots"`
	MaxConferenceSize int `yaml:"max_conference_size"`

	DTMFPauseMS       int `yaml:"dtmf_pause_ms"`
	FlightModeGraceMS int `yaml:"flight_mode_grace_ms"`

	AutoAnswer AutoAnswerConfig `yaml:"auto_answer"`

	RejectDuringRecording bool `yaml:"reject_during_recording"`
	DoNotDisturb          bool `yaml:"do_not_disturb"`
	// LimitedMode rejects a second incoming call while one is live.
	LimitedMode bool `yaml:"limited_mode"`
}

type AutoAnswerConfig struct {
	BikeModeMS  int `yaml:"bike_mode_ms"`
	AccessoryMS int `yaml:"accessory_ms"`
	TestModeMS  int `yaml:"test_mode_ms"`

	BikeMode bool `yaml:"bike_mode"`
	TestMode bool `yaml:"test_mode"`
}

type LoggingConfig struct {
	File         string `yaml:"file" env:"CALLMGRD_LOG_FILE"`
	ConsoleLevel int    `yaml:"console_level"`
	FileLevel    int    `yaml:"file_level"`
	Core         int    `yaml:"core"`
	Modem        int    `yaml:"modem"`
	IPC          int    `yaml:"ipc"`
}

// Addr returns the modem daemon endpoint.
func (c *ModemConfig) Addr() string {
	return net.JoinHostPort(c.Host, fmt.Sprintf("%d", c.Port))
}

// DTMFPause returns the post-dial pause delay.
func (c *TelephonyConfig) DTMFPause() time.Duration {
	return time.Duration(c.DTMFPauseMS) * time.Millisecond
}

// FlightModeGrace returns how long a deferred dial waits for the
// network to re-register after flight mode is disabled.
func (c *TelephonyConfig) FlightModeGrace() time.Duration {
	return time.Duration(c.FlightModeGraceMS) * time.Millisecond
}

// AutoAnswerDelay returns the delay for the active auto-answer
// variant, or 0 when auto-answer does not apply. Test mode wins over
// bike mode, which wins over a connected accessory.
func (c *TelephonyConfig) AutoAnswerDelay(accessoryConnected bool) time.Duration {
	a := c.AutoAnswer
	switch {
	case a.TestMode:
		return time.Duration(a.TestModeMS) * time.Millisecond
	case a.BikeMode:
		return time.Duration(a.BikeModeMS) * time.Millisecond
	case accessoryConnected:
		return time.Duration(a.AccessoryMS) * time.Millisecond
	}
	return 0
}

// Load reads the YAML file, applies defaults, environment overrides
// and validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("applying env overrides: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Modem: ModemConfig{
			Host: "127.0.0.1",
			Port: 6701,
		},
		MQTT: MQTTConfig{
			Broker:      "tcp://localhost:1883",
			ClientID:    "callmgrd",
			TopicPrefix: "callmgr",
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Telephony: TelephonyConfig{
			Slots:             2,
			MaxConferenceSize: 5,
			DTMFPauseMS:       3000,
			FlightModeGraceMS: 10000,
			AutoAnswer: AutoAnswerConfig{
				BikeModeMS:  5000,
				AccessoryMS: 3000,
				TestModeMS:  100,
			},
		},
		Logging: LoggingConfig{
			File:         "callmgrd.log",
			ConsoleLevel: 2,
			FileLevel:    1,
			Core:         2,
			Modem:        2,
			IPC:          2,
		},
	}
}

func (c *Config) validate() error {
	if c.Modem.Host == "" {
		return fmt.Errorf("modem.host is required")
	}
	if c.Modem.Port < 1 || c.Modem.Port > 65535 {
		return fmt.Errorf("modem.port must be between 1 and 65535, got %d", c.Modem.Port)
	}
	if c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required")
	}
	if c.MQTT.ClientID == "" {
		return fmt.Errorf("mqtt.client_id is required")
	}
	if c.MQTT.TopicPrefix == "" {
		return fmt.Errorf("mqtt.topic_prefix is required")
	}
	if c.Telephony.Slots < 1 || c.Telephony.Slots > 2 {
		return fmt.Errorf("telephony.slots must be 1 or 2, got %d", c.Telephony.Slots)
	}
	if c.Telephony.MaxConferenceSize < 2 {
		return fmt.Errorf("telephony.max_conference_size must be at least 2, got %d", c.Telephony.MaxConferenceSize)
	}
	if c.Telephony.DTMFPauseMS < 1 {
		return fmt.Errorf("telephony.dtmf_pause_ms must be positive, got %d", c.Telephony.DTMFPauseMS)
	}
	return nil
}
