// internal/workers/notifications/send-expiry-alert/config.go
package sendexpiryalert

import (
	"time"

	"clinic-inventory-workers/internal/common/validation"
)

type Config struct {
	Timeout      time.Duration
	EmailEnabled bool
	FromEmail    string
	SMSEnabled   bool
	SenderID     string
	// MaxUnits caps each of the expiring and expired lists.
	MaxUnits  int
	Validator *validation.Validator
}

func LoadConfig() *Config {
	return &Config{
		Timeout:      30 * time.Second,
		EmailEnabled: true,
		FromEmail:    "inventory-alerts@example.org",
		SMSEnabled:   false,
		MaxUnits:     500,
	}
}
