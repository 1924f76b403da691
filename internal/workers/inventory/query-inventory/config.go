// internal/workers/inventory/query-inventory/config.go
package queryinventory

import (
	"time"

	"clinic-inventory-workers/internal/common/validation"
)

type Config struct {
	Timeout         time.Duration
	CacheTTL        time.Duration
	DefaultPageSize int
	MaxPageSize     int
	Validator       *validation.Validator
}

func LoadConfig() *Config {
	return &Config{
		Timeout:         30 * time.Second,
		CacheTTL:        5 * time.Minute,
		DefaultPageSize: 50,
		MaxPageSize:     200,
	}
}
