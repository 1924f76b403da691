// internal/workers/drugs/search-drug-index/config.go
package searchdrugindex

import (
	"time"

	"clinic-inventory-workers/internal/common/validation"
)

type Config struct {
	Timeout     time.Duration
	IndexName   string
	DefaultSize int
	MaxSize     int
	Validator   *validation.Validator
}

func LoadConfig() *Config {
	return &Config{
		Timeout:     30 * time.Second,
		IndexName:   "medications",
		DefaultSize: 20,
		MaxSize:     100,
	}
}
