package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeConfig(t, `
modem:
  host: 192.168.1.200
  port: 6701
mqtt:
  broker: tcp://localhost:1883
  client_id: test
  topic_prefix: phone
  watched_clients: [dialer-ui]
telephony:
  slots: 2
  dtmf_pause_ms: 2500
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Modem.Host != "192.168.1.200" {
		t.Errorf("expected host=192.168.1.200, got %s", cfg.Modem.Host)
	}
	if cfg.Modem.Addr() != "192.168.1.200:6701" {
		t.Errorf("expected addr=192.168.1.200:6701, got %s", cfg.Modem.Addr())
	}
	if cfg.MQTT.TopicPrefix != "phone" {
		t.Errorf("expected topic_prefix=phone, got %s", cfg.MQTT.TopicPrefix)
	}
	if len(cfg.MQTT.WatchedClients) != 1 || cfg.MQTT.WatchedClients[0] != "dialer-ui" {
		t.Errorf("unexpected watched clients: %v", cfg.MQTT.WatchedClients)
	}
	if cfg.Telephony.DTMFPause() != 2500*time.Millisecond {
		t.Errorf("expected 2.5s pause, got %s", cfg.Telephony.DTMFPause())
	}
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
mqtt:
  client_id: test
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Modem.Host != "127.0.0.1" {
		t.Errorf("expected default host=127.0.0.1, got %s", cfg.Modem.Host)
	}
	if cfg.Modem.Port != 6701 {
		t.Errorf("expected default port=6701, got %d", cfg.Modem.Port)
	}
	if cfg.MQTT.Broker != "tcp://localhost:1883" {
		t.Errorf("expected default broker, got %s", cfg.MQTT.Broker)
	}
	if cfg.MQTT.TopicPrefix != "callmgr" {
		t.Errorf("expected default topic_prefix=callmgr, got %s", cfg.MQTT.TopicPrefix)
	}
	if cfg.Telephony.Slots != 2 {
		t.Errorf("expected default slots=2, got %d", cfg.Telephony.Slots)
	}
	if cfg.Telephony.MaxConferenceSize != 5 {
		t.Errorf("expected default max_conference_size=5, got %d", cfg.Telephony.MaxConferenceSize)
	}
	if cfg.Telephony.FlightModeGrace() != 10*time.Second {
		t.Errorf("expected default 10s grace, got %s", cfg.Telephony.FlightModeGrace())
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CALLMGRD_MQTT_BROKER", "tcp://broker.lan:1883")
	t.Setenv("CALLMGRD_MODEM_PORT", "7000")
	path := writeConfig(t, `
mqtt:
  broker: tcp://localhost:1883
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MQTT.Broker != "tcp://broker.lan:1883" {
		t.Errorf("expected env override for broker, got %s", cfg.MQTT.Broker)
	}
	if cfg.Modem.Port != 7000 {
		t.Errorf("expected env override for port, got %d", cfg.Modem.Port)
	}
}

func TestAutoAnswerDelayPrecedence(t *testing.T) {
	c := TelephonyConfig{AutoAnswer: AutoAnswerConfig{
		BikeModeMS:  5000,
		AccessoryMS: 3000,
		TestModeMS:  100,
	}}
	if d := c.AutoAnswerDelay(false); d != 0 {
		t.Errorf("expected no auto-answer, got %s", d)
	}
	if d := c.AutoAnswerDelay(true); d != 3*time.Second {
		t.Errorf("expected accessory delay, got %s", d)
	}
	c.AutoAnswer.BikeMode = true
	if d := c.AutoAnswerDelay(true); d != 5*time.Second {
		t.Errorf("expected bike mode to win over accessory, got %s", d)
	}
	c.AutoAnswer.TestMode = true
	if d := c.AutoAnswerDelay(true); d != 100*time.Millisecond {
		t.Errorf("expected test mode to win, got %s", d)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, `{{{invalid`)
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		config string
		errMsg string
	}{
		{"empty host", `
modem:
  host: ""
`, "modem.host is required"},
		{"port zero", `
modem:
  port: 0
`, "modem.port must be between 1 and 65535, got 0"},
		{"port too high", `
modem:
  port: 70000
`, "modem.port must be between 1 and 65535, got 70000"},
		{"empty broker", `
mqtt:
  broker: ""
`, "mqtt.broker is required"},
		{"empty client_id", `
mqtt:
  client_id: ""
`, "mqtt.client_id is required"},
		{"empty topic_prefix", `
mqtt:
  topic_prefix: ""
`, "mqtt.topic_prefix is required"},
		{"bad slots", `
telephony:
  slots: 3
`, "telephony.slots must be 1 or 2, got 3"},
		{"bad conference size", `
telephony:
  max_conference_size: 1
`, "telephony.max_conference_size must be at least 2, got 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.config)
			_, err := Load(path)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if err.Error() != tt.errMsg {
				t.Errorf("expected error %q, got %q", tt.errMsg, err.Error())
			}
		})
	}
}
