// internal/config/normalize.go
package config

import "github.com/google/uuid"

// Normalize fills derived values in place. Call it after Validate.
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}
	s := &cfg.Scanner

	// the status block holds 16 name bytes
	if len(s.Name) > 16 {
		s.Name = s.Name[:16]
	}

	// MQTT client ids must be unique per broker
	if s.Status.MQTT != nil && s.Status.MQTT.ClientID == "" {
		s.Status.MQTT.ClientID = "magscan-" + uuid.NewString()
	}
}
