// internal/config/normalize.go
package config

import "strings"

// Normalize applies post-validation normalization.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	// USB ids are compared upper case.
	cfg.Serial.VendorID = strings.ToUpper(cfg.Serial.VendorID)
	cfg.Serial.ProductID = strings.ToUpper(cfg.Serial.ProductID)

	// Field topics are built as <topic>/<NAME>.
	cfg.MQTT.Topic = strings.Trim(cfg.MQTT.Topic, "/")
	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = "vedirect"
	}
}
