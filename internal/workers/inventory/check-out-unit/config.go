// internal/workers/inventory/check-out-unit/config.go
package checkoutunit

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
