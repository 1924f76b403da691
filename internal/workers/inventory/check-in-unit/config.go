// internal/workers/inventory/check-in-unit/config.go
package checkinunit

import (
	"time"

	"clinic-inventory-workers/internal/common/validation"
)

type Config struct {
	Timeout   time.Duration
	Validator *validation.Validator
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 10 * time.Second,
	}
}
