// internal/config/validate.go
package config

import (
	"fmt"
	"strings"
)

var logLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Validate checks configuration correctness.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	// ---- serial ----
	if cfg.Serial.Baud <= 0 {
		return fmt.Errorf("serial.baud must be > 0, got %d", cfg.Serial.Baud)
	}
	if cfg.Serial.Port == "" {
		if !isHexID(cfg.Serial.VendorID) || !isHexID(cfg.Serial.ProductID) {
			return fmt.Errorf(
				"serial.port is empty and vendor_id/product_id (%q/%q) are not 4-digit hex ids",
				cfg.Serial.VendorID,
				cfg.Serial.ProductID,
			)
		}
	}
	if cfg.Serial.Reconnect {
		if cfg.Serial.MaxRetries <= 0 {
			return fmt.Errorf("serial.max_retries must be > 0 when reconnect is enabled")
		}
		if cfg.Serial.RetryDelayMs <= 0 {
			return fmt.Errorf("serial.retry_delay_ms must be > 0 when reconnect is enabled")
		}
	}

	// ---- log ----
	if cfg.Log.Level != "" && !logLevels[cfg.Log.Level] {
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", cfg.Log.Level)
	}

	// ---- mqtt (opt-in) ----
	if cfg.MQTT.Broker != "" {
		if cfg.MQTT.QoS > 2 {
			return fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", cfg.MQTT.QoS)
		}
		if strings.TrimSpace(strings.Trim(cfg.MQTT.Topic, "/")) == "" {
			return fmt.Errorf("mqtt.topic is required when mqtt.broker is set")
		}
		if strings.ContainsAny(cfg.MQTT.Topic, "#+") {
			return fmt.Errorf("mqtt.topic %q must not contain wildcards", cfg.MQTT.Topic)
		}
	}

	return nil
}

func isHexID(s string) bool {
	if len(s) != 4 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F') {
			return false
		}
	}
	return true
}
