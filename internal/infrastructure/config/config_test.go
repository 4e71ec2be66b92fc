package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfigFile(t, "vessel:\n  id: mv-test\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Vessel.ID != "mv-test" {
		t.Errorf("Vessel.ID = %q, want %q", cfg.Vessel.ID, "mv-test")
	}
	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}
	if cfg.MQTT.Broker.ClientID != "steward-core" {
		t.Errorf("MQTT.Broker.ClientID = %q, want steward-core", cfg.MQTT.Broker.ClientID)
	}
	if cfg.Tasks.Workers != 4 || cfg.Tasks.QueueSize != 256 {
		t.Errorf("Tasks defaults = %d/%d, want 4/256", cfg.Tasks.Workers, cfg.Tasks.QueueSize)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
vessel:
  id: mv-aurora
  name: Aurora
database:
  path: /tmp/aurora.db
mqtt:
  broker:
    host: broker.local
    port: 8883
    tls: true
  qos: 2
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Database.Path != "/tmp/aurora.db" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
	if cfg.MQTT.Broker.Host != "broker.local" || cfg.MQTT.Broker.Port != 8883 {
		t.Errorf("broker = %s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port)
	}
	if !cfg.MQTT.Broker.TLS {
		t.Error("MQTT.Broker.TLS = false, want true")
	}
	if cfg.MQTT.QoS != 2 {
		t.Errorf("MQTT.QoS = %d, want 2", cfg.MQTT.QoS)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, "mqtt:\n  broker:\n    host: file-host\n")

	t.Setenv("STEWARD_MQTT_HOST", "env-host")
	t.Setenv("STEWARD_MQTT_PORT", "2883")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.MQTT.Broker.Host != "env-host" {
		t.Errorf("MQTT.Broker.Host = %q, want env-host", cfg.MQTT.Broker.Host)
	}
	if cfg.MQTT.Broker.Port != 2883 {
		t.Errorf("MQTT.Broker.Port = %d, want 2883", cfg.MQTT.Broker.Port)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty vessel id", func(c *Config) { c.Vessel.ID = "" }},
		{"empty database path", func(c *Config) { c.Database.Path = "" }},
		{"qos too high", func(c *Config) { c.MQTT.QoS = 3 }},
		{"port zero", func(c *Config) { c.API.Port = 0 }},
		{"no workers", func(c *Config) { c.Tasks.Workers = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load() = nil error for missing file")
	}
}
