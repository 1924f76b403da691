// internal/workers/inventory/update-transaction/config.go
package updatetransaction

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
