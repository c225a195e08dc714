// internal/config/config.go
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Serial  SerialConfig  `yaml:"serial"`
	Decoder DecoderConfig `yaml:"decoder"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
	MQTT    MQTTConfig    `yaml:"mqtt"`
}

// ---- SERIAL ----

type SerialConfig struct {
	// Port is the device path. Empty means: find the USB interface by
	// vendor/product id.
	Port      string `yaml:"port"`
	Baud      int    `yaml:"baud"`
	VendorID  string `yaml:"vendor_id"`
	ProductID string `yaml:"product_id"`

	Reconnect    bool `yaml:"reconnect"`
	MaxRetries   int  `yaml:"max_retries"`
	RetryDelayMs int  `yaml:"retry_delay_ms"`
}

// ---- DECODER ----

type DecoderConfig struct {
	DisableChecksum bool `yaml:"disable_checksum"`
	LogHex          bool `yaml:"log_hex"`
}

// ---- OUTPUTS ----

type LogConfig struct {
	Level string `yaml:"level"`
}

type MetricsConfig struct {
	Listen string `yaml:"listen"` // empty = disabled
}

type MQTTConfig struct {
	Broker    string `yaml:"broker"` // empty = disabled
	Topic     string `yaml:"topic"`
	ClientID  string `yaml:"client_id"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	QoS       uint8  `yaml:"qos"`
	Retain    bool   `yaml:"retain"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Baud:         19200,
			VendorID:     "0403",
			ProductID:    "6015",
			Reconnect:    true,
			MaxRetries:   1000,
			RetryDelayMs: 10000,
		},
		Log: LogConfig{Level: "info"},
		MQTT: MQTTConfig{
			Topic:     "vedirect",
			ClientID:  "vedirect",
			TimeoutMs: 5000,
		},
	}
}

// Load reads a YAML file over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
