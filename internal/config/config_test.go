// internal/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Validate(Default()))
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vedirect.yaml")
	data := []byte(`
serial:
  port: /dev/ttyUSB0
  baud: 19200
decoder:
  disable_checksum: true
  log_hex: true
metrics:
  listen: ":9101"
mqtt:
  broker: tcp://localhost:1883
  topic: solar/mppt/
  qos: 1
`)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, Validate(cfg))
	Normalize(cfg)

	assert.Equal(t, "/dev/ttyUSB0", cfg.Serial.Port)
	assert.True(t, cfg.Decoder.DisableChecksum)
	assert.True(t, cfg.Decoder.LogHex)
	assert.Equal(t, ":9101", cfg.Metrics.Listen)
	assert.Equal(t, "solar/mppt", cfg.MQTT.Topic)
	assert.Equal(t, uint8(1), cfg.MQTT.QoS)

	// untouched keys keep their defaults
	assert.Equal(t, "0403", cfg.Serial.VendorID)
	assert.Equal(t, "vedirect", cfg.MQTT.ClientID)
	assert.True(t, cfg.Serial.Reconnect)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestParseRejectsBadYAML(t *testing.T) {
	_, err := Parse([]byte("serial: [unterminated"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"explicit port without ids", func(c *Config) { c.Serial.Port = "/dev/ttyS0"; c.Serial.VendorID = "" }, false},
		{"zero baud", func(c *Config) { c.Serial.Baud = 0 }, true},
		{"bad vendor id", func(c *Config) { c.Serial.VendorID = "FTDI" }, true},
		{"reconnect without retries", func(c *Config) { c.Serial.MaxRetries = 0 }, true},
		{"reconnect disabled ignores retries", func(c *Config) { c.Serial.Reconnect = false; c.Serial.MaxRetries = 0 }, false},
		{"unknown log level", func(c *Config) { c.Log.Level = "trace" }, true},
		{"mqtt qos out of range", func(c *Config) { c.MQTT.Broker = "tcp://b:1883"; c.MQTT.QoS = 3 }, true},
		{"mqtt wildcard topic", func(c *Config) { c.MQTT.Broker = "tcp://b:1883"; c.MQTT.Topic = "solar/#" }, true},
		{"mqtt empty topic", func(c *Config) { c.MQTT.Broker = "tcp://b:1883"; c.MQTT.Topic = "/" }, true},
		{"mqtt ok", func(c *Config) { c.MQTT.Broker = "tcp://b:1883" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNormalizeUppercasesIDs(t *testing.T) {
	cfg := Default()
	cfg.Serial.ProductID = "6a0f"
	cfg.MQTT.ClientID = ""
	Normalize(cfg)
	assert.Equal(t, "6A0F", cfg.Serial.ProductID)
	assert.Equal(t, "vedirect", cfg.MQTT.ClientID)
}
