// internal/workers/drugs/lookup-rxnorm/config.go
package lookuprxnorm

import (
	"time"

	"clinic-inventory-workers/internal/common/validation"
)

const (
	DefaultBaseURL = "https://rxnav.nlm.nih.gov/REST"

	// approximateTerm is always asked for this many candidates.
	candidateLimit = 10
)

type Config struct {
	Timeout    time.Duration
	BaseURL    string
	MaxResults int
	CacheTTL   time.Duration
	Validator  *validation.Validator
}

func LoadConfig() *Config {
	return &Config{
		Timeout:    10 * time.Second,
		BaseURL:    DefaultBaseURL,
		MaxResults: 5,
		CacheTTL:   24 * time.Hour,
	}
}
