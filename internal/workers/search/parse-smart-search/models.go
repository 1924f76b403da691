// internal/workers/search/parse-smart-search/models.go
package parsesmartsearch

import "clinic-inventory-workers/internal/smartsearch"

type Input struct {
	Query    *string `json:"query"`
	ClinicID string  `json:"clinicId,omitempty"`
}

type Output struct {
	SearchQuery  smartsearch.SearchQuery `json:"searchQuery"`
	HasFilters   bool                    `json:"hasFilters"`
	MatchedRules []string                `json:"matchedRules"`
}
